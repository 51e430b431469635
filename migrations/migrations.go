package migrations

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type collectionIndexes struct {
	collection string
	models     []mongo.IndexModel
}

func indexPlan() []collectionIndexes {
	return []collectionIndexes{
		{
			collection: "users",
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("email_1")},
				{Keys: bson.D{{Key: "createdAt", Value: -1}}},
			},
		},
		{
			collection: "products",
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "category", Value: 1}, {Key: "isActive", Value: 1}}},
				{Keys: bson.D{{Key: "price", Value: 1}}},
				{Keys: bson.D{{Key: "averageRating", Value: -1}}},
			},
		},
		{
			collection: "orders",
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
				{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
				{Keys: bson.D{{Key: "orderNumber", Value: 1}}, Options: options.Index().SetUnique(true).SetName("orderNumber_1")},
			},
		},
	}
}

// AutoMigrateIndexes creates the indexes every collection relies on. Index
// creation is idempotent, so it runs on every start.
func AutoMigrateIndexes(ctx context.Context, db *mongo.Database, retries int) error {
	for _, plan := range indexPlan() {
		view := db.Collection(plan.collection).Indexes()

		_, err := view.CreateMany(ctx, plan.models)
		for i := 0; err != nil && i < retries; i++ {
			time.Sleep(1 * time.Second)
			_, err = view.CreateMany(ctx, plan.models)
		}
		if err != nil {
			return errors.Wrapf(err, "create indexes on %s", plan.collection)
		}
	}
	return nil
}
