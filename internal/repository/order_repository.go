package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"dropship-api/internal/entity"
)

const OrdersCollection = "orders"

type mongoOrderRepository struct {
	collection *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) OrderRepository {
	return &mongoOrderRepository{collection: db.Collection(OrdersCollection)}
}

func (r *mongoOrderRepository) Create(ctx context.Context, order *entity.Order) error {
	now := time.Now().UTC()
	order.CreatedAt, order.UpdatedAt = now, now
	order.CalculateTotals()

	res, err := r.collection.InsertOne(ctx, order)
	if err != nil {
		return errors.Wrap(err, "insert order")
	}
	order.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *mongoOrderRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*entity.Order, error) {
	var order entity.Order
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "find order")
	}
	return &order, nil
}

func (r *mongoOrderRepository) ListByUser(ctx context.Context, userID primitive.ObjectID, skip, limit int64) ([]entity.Order, int64, error) {
	return r.list(ctx, bson.M{"user": userID}, skip, limit)
}

func (r *mongoOrderRepository) List(ctx context.Context, status entity.OrderStatus, skip, limit int64) ([]entity.Order, int64, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	return r.list(ctx, filter, skip, limit)
}

func (r *mongoOrderRepository) list(ctx context.Context, filter bson.M, skip, limit int64) ([]entity.Order, int64, error) {
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, errors.Wrap(err, "count orders")
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list orders")
	}

	var orders []entity.Order
	if err = cursor.All(ctx, &orders); err != nil {
		return nil, 0, errors.Wrap(err, "decode orders")
	}
	return orders, total, nil
}

func (r *mongoOrderRepository) Save(ctx context.Context, order *entity.Order, expected entity.OrderStatus) error {
	order.UpdatedAt = time.Now().UTC()
	order.CalculateTotals()

	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": order.ID, "status": expected}, order)
	if err != nil {
		return errors.Wrap(err, "save order")
	}
	if res.MatchedCount == 0 {
		if _, err := r.FindByID(ctx, order.ID); err != nil {
			return err
		}
		return ErrStaleOrder
	}
	return nil
}
