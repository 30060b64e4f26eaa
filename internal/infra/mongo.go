package infra

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// NewMongoDatabase connects to MongoDB and returns the configured database.
// The caller owns the client and must disconnect it on shutdown.
func NewMongoDatabase(ctx context.Context, cfg *Config) (*mongo.Client, *mongo.Database, error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("config is required")
	}

	client, err := mongo.Connect(
		options.Client().
			ApplyURI(cfg.MongoURL).
			SetConnectTimeout(10 * time.Second).
			SetMaxPoolSize(50).
			SetMinPoolSize(1).
			SetRetryWrites(true).
			SetRetryReads(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}

	return client, client.Database(cfg.MongoDatabase), nil
}
