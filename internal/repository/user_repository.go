package repository

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"dropship-api/internal/entity"
)

const UsersCollection = "users"

type mongoUserRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *mongo.Database) UserRepository {
	return &mongoUserRepository{collection: db.Collection(UsersCollection)}
}

func (r *mongoUserRepository) Create(ctx context.Context, user *entity.User) error {
	now := time.Now().UTC()
	user.Email = strings.ToLower(user.Email)
	user.CreatedAt, user.UpdatedAt = now, now
	if user.Orders == nil {
		user.Orders = []primitive.ObjectID{}
	}

	res, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return err
		}
		return errors.Wrap(err, "insert user")
	}
	user.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *mongoUserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*entity.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoUserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(email)})
}

func (r *mongoUserRepository) findOne(ctx context.Context, filter bson.M) (*entity.User, error) {
	var user entity.User
	err := r.collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "find user")
	}
	return &user, nil
}

// Update sets the editable fields. The orders array is only changed by
// AppendOrder.
func (r *mongoUserRepository) Update(ctx context.Context, user *entity.User) error {
	user.Email = strings.ToLower(user.Email)
	user.UpdatedAt = time.Now().UTC()

	set := bson.M{
		"name":      user.Name,
		"email":     user.Email,
		"password":  user.Password,
		"role":      user.Role,
		"address":   user.Address,
		"phone":     user.Phone,
		"updatedAt": user.UpdatedAt,
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{"$set": set})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return err
		}
		return errors.Wrap(err, "update user")
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoUserRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(err, "delete user")
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoUserRepository) List(ctx context.Context, skip, limit int64) ([]entity.User, int64, error) {
	total, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, errors.Wrap(err, "count users")
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list users")
	}

	var users []entity.User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, 0, errors.Wrap(err, "decode users")
	}
	return users, total, nil
}

func (r *mongoUserRepository) AppendOrder(ctx context.Context, userID, orderID primitive.ObjectID) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$push": bson.M{"orders": orderID},
			"$set":  bson.M{"updatedAt": time.Now().UTC()},
		},
	)
	if err != nil {
		return errors.Wrap(err, "append order to user")
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
