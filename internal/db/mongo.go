package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const (
	connectRetries  = 3
	connectInterval = 2 * time.Second
)

// Connect opens the document database, verifying the connection with a ping.
func Connect(ctx context.Context, uri, dbName string) (*mongo.Database, error) {
	var lastErr error
	for i := 0; i <= connectRetries; i++ {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
		if err == nil {
			if err = client.Ping(ctx, readpref.Primary()); err == nil {
				return client.Database(dbName), nil
			}
			_ = client.Disconnect(ctx)
		}
		lastErr = err
		if i < connectRetries {
			time.Sleep(connectInterval)
		}
	}
	return nil, fmt.Errorf("connect mongodb: %w", lastErr)
}

// EnsureIndexes creates the indexes the ordered queries hint at. Failure is
// tolerated: ordered queries will then fail and readers degrade to the
// unordered subscription with a client-side sort.
func EnsureIndexes(ctx context.Context, database *mongo.Database, log *zap.Logger) {
	messageIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().SetName("created_at_1"),
		},
		{
			Keys:    bson.D{{Key: "conversation_key", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("conversation_key_1_created_at_1"),
		},
	}
	if _, err := database.Collection("messages").Indexes().CreateMany(ctx, messageIndexes); err != nil {
		log.Warn("message index creation failed, ordered queries will fall back", zap.Error(err))
	}

	memeIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("user_id_1"),
		},
	}
	if _, err := database.Collection("memes").Indexes().CreateMany(ctx, memeIndexes); err != nil {
		log.Warn("meme index creation failed", zap.Error(err))
	}
}
