package repository

import (
	"context"
	"regexp"
	"sort"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"dropship-api/internal/entity"
)

const ProductsCollection = "products"

type mongoProductRepository struct {
	collection *mongo.Collection
}

func NewProductRepository(db *mongo.Database) ProductRepository {
	return &mongoProductRepository{collection: db.Collection(ProductsCollection)}
}

func (r *mongoProductRepository) Create(ctx context.Context, product *entity.Product) error {
	now := time.Now().UTC()
	product.CreatedAt, product.UpdatedAt = now, now
	normalizeProduct(product)

	res, err := r.collection.InsertOne(ctx, product)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return err
		}
		return errors.Wrap(err, "insert product")
	}
	product.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *mongoProductRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*entity.Product, error) {
	var product entity.Product
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "find product")
	}
	return &product, nil
}

// Update writes the catalog fields. Stock and ratings have their own
// operations and are left untouched here.
func (r *mongoProductRepository) Update(ctx context.Context, product *entity.Product) error {
	product.UpdatedAt = time.Now().UTC()
	normalizeProduct(product)

	set := bson.M{
		"name":           product.Name,
		"description":    product.Description,
		"price":          product.Price,
		"images":         product.Images,
		"category":       product.Category,
		"specifications": product.Specifications,
		"tags":           product.Tags,
		"isActive":       product.IsActive,
		"updatedAt":      product.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if product.Discount != nil {
		set["discount"] = product.Discount
	} else {
		update["$unset"] = bson.M{"discount": ""}
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": product.ID}, update)
	if err != nil {
		return errors.Wrap(err, "update product")
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetStock overwrites the stock level. Used for explicit admin edits only;
// orders go through DecrementStock and IncrementStock.
func (r *mongoProductRepository) SetStock(ctx context.Context, id primitive.ObjectID, stock int) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"stock": stock, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return errors.Wrap(err, "set product stock")
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoProductRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(err, "delete product")
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoProductRepository) List(ctx context.Context, filter ProductFilter, skip, limit int64) ([]entity.Product, int64, error) {
	query := buildProductQuery(filter)

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, errors.Wrap(err, "count products")
	}

	opts := options.Find().
		SetSort(productSort(filter.Sort)).
		SetSkip(skip).
		SetLimit(limit)
	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list products")
	}

	var products []entity.Product
	if err = cursor.All(ctx, &products); err != nil {
		return nil, 0, errors.Wrap(err, "decode products")
	}
	return products, total, nil
}

func (r *mongoProductRepository) TopRated(ctx context.Context, limit int64) ([]entity.Product, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "averageRating", Value: -1}, {Key: "numRatings", Value: -1}}).
		SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{"isActive": true, "numRatings": bson.M{"$gt": 0}}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "list top rated products")
	}

	var products []entity.Product
	if err = cursor.All(ctx, &products); err != nil {
		return nil, errors.Wrap(err, "decode products")
	}
	return products, nil
}

func (r *mongoProductRepository) Categories(ctx context.Context) ([]string, error) {
	values, err := r.collection.Distinct(ctx, "category", bson.M{"isActive": true})
	if err != nil {
		return nil, errors.Wrap(err, "distinct categories")
	}

	categories := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			categories = append(categories, s)
		}
	}
	sort.Strings(categories)
	return categories, nil
}

func (r *mongoProductRepository) DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "stock": bson.M{"$gte": qty}},
		bson.M{
			"$inc": bson.M{"stock": -qty},
			"$set": bson.M{"updatedAt": time.Now().UTC()},
		},
	)
	if err != nil {
		return errors.Wrap(err, "decrement stock")
	}
	if res.MatchedCount == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return ErrInsufficientStock
	}
	return nil
}

func (r *mongoProductRepository) IncrementStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{"stock": qty},
			"$set": bson.M{"updatedAt": time.Now().UTC()},
		},
	)
	if err != nil {
		return errors.Wrap(err, "increment stock")
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AddRating pushes the rating and recomputes the average in a single update
// pipeline, so concurrent raters cannot overwrite each other.
func (r *mongoProductRepository) AddRating(ctx context.Context, id primitive.ObjectID, rating entity.Rating) (*entity.Product, error) {
	filter := bson.M{"_id": id, "ratings.user": bson.M{"$ne": rating.User}}
	ratingDoc := bson.M{
		"user":      rating.User,
		"rating":    rating.Rating,
		"review":    rating.Review,
		"createdAt": rating.CreatedAt,
	}
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"ratings": bson.M{"$concatArrays": bson.A{
				bson.M{"$ifNull": bson.A{"$ratings", bson.A{}}},
				bson.A{ratingDoc},
			}},
		}}},
		{{Key: "$set", Value: bson.M{
			"numRatings":    bson.M{"$size": "$ratings"},
			"averageRating": bson.M{"$round": bson.A{bson.M{"$avg": "$ratings.rating"}, 2}},
			"updatedAt":     time.Now().UTC(),
		}}},
	}

	var product entity.Product
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := r.collection.FindOneAndUpdate(ctx, filter, pipeline, opts).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			if _, findErr := r.FindByID(ctx, id); findErr != nil {
				return nil, findErr
			}
			return nil, entity.ErrAlreadyRated
		}
		return nil, errors.Wrap(err, "add rating")
	}
	return &product, nil
}

func buildProductQuery(filter ProductFilter) bson.M {
	query := bson.M{}
	if !filter.IncludeInactive {
		query["isActive"] = true
	}
	if filter.Keyword != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(filter.Keyword), Options: "i"}
		query["$or"] = bson.A{
			bson.M{"name": pattern},
			bson.M{"description": pattern},
			bson.M{"tags": pattern},
		}
	}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	price := bson.M{}
	if filter.MinPrice != nil {
		price["$gte"] = *filter.MinPrice
	}
	if filter.MaxPrice != nil {
		price["$lte"] = *filter.MaxPrice
	}
	if len(price) > 0 {
		query["price"] = price
	}
	return query
}

func productSort(s string) bson.D {
	switch s {
	case SortPriceAsc:
		return bson.D{{Key: "price", Value: 1}, {Key: "_id", Value: 1}}
	case SortPriceDesc:
		return bson.D{{Key: "price", Value: -1}, {Key: "_id", Value: 1}}
	case SortRating:
		return bson.D{{Key: "averageRating", Value: -1}, {Key: "_id", Value: 1}}
	default:
		return bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}
	}
}

func normalizeProduct(p *entity.Product) {
	if p.Images == nil {
		p.Images = []string{}
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.Ratings == nil {
		p.Ratings = []entity.Rating{}
	}
}
