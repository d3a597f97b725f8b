package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// IndexSpec lists the indexes each collection needs.
func IndexSpec() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("email_unique")},
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName("username_unique")},
		},
		PostsCollection: {
			{Keys: bson.D{{Key: "createdAt", Value: -1}}, Options: options.Index().SetName("created_at_desc")},
			{Keys: bson.D{{Key: "postedBy", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("author_created_at")},
		},
		RepliesCollection: {
			{Keys: bson.D{{Key: "postId", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("post_created_at")},
		},
	}
}

// EnsureIndexes creates missing indexes; existing ones are left in place.
func EnsureIndexes(ctx context.Context, db *DB) ([]string, error) {
	var created []string
	for collection, models := range IndexSpec() {
		names, err := db.Collection(collection).Indexes().CreateMany(ctx, models)
		if err != nil {
			return created, fmt.Errorf("failed to create indexes on %s: %w", collection, err)
		}
		for _, name := range names {
			created = append(created, collection+"."+name)
		}
	}
	return created, nil
}
