package mongo

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type IndexConfig struct {
	CollectionName string
	IndexModel     mongo.IndexModel
}

func requiredIndexes(sessionTTL time.Duration) []IndexConfig {
	return []IndexConfig{
		// one document per (session, key)
		{
			CollectionName: SessionCollection,
			IndexModel: mongo.IndexModel{
				Keys: bson.D{
					{Key: "scope", Value: 1},
					{Key: "key", Value: 1},
				},
				Options: options.Index().SetUnique(true).SetName("idx_scope_key_unique"),
			},
		},
		// abandoned sessions expire
		{
			CollectionName: SessionCollection,
			IndexModel: mongo.IndexModel{
				Keys:    bson.D{{Key: "updated_at", Value: 1}},
				Options: options.Index().SetExpireAfterSeconds(int32(sessionTTL.Seconds())).SetName("idx_session_ttl"),
			},
		},
	}
}

func EnsureIndexes(ctx context.Context, db *mongo.Database, sessionTTL time.Duration) error {
	log.Println("Starting index creation...")

	for _, idxConfig := range requiredIndexes(sessionTTL) {
		collection := db.Collection(idxConfig.CollectionName)

		indexName, err := collection.Indexes().CreateOne(ctx, idxConfig.IndexModel)
		if err != nil {
			log.Printf("Error creating index on collection %s: %v",
				idxConfig.CollectionName, err)
			return err
		}

		log.Printf("Created index '%s' on collection '%s'", indexName, idxConfig.CollectionName)
	}

	return nil
}

func EnsureIndexesOnStartup(db *mongo.Database, sessionTTL time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := EnsureIndexes(ctx, db, sessionTTL); err != nil {
		log.Fatalf("Failed to ensure indexes: %v", err)
	}
}
