package database

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ahmednasr/repo-recommender/server/internal/logging"
)

// connectTimeout bounds connect plus the initial ping.
const connectTimeout = 10 * time.Second

// NewMongo establishes a MongoDB client and verifies it with a ping.
//
// Typical usage:
//
//	client, err := database.NewMongo(ctx, cfg.MongoURI)
//	if err != nil { … }
//	defer database.Disconnect(client)
func NewMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, goerr.Wrap(err, "connect to mongodb")
	}

	if err := client.Ping(ctx, nil); err != nil {
		// Disconnect in case of ping failure to avoid leaking sockets.
		_ = client.Disconnect(context.Background())
		return nil, goerr.Wrap(err, "ping mongodb")
	}

	logging.Info().Msg("connected to mongodb")
	return client, nil
}

// Disconnect closes client, logging rather than returning any error.
func Disconnect(client *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		logging.Warn().Err(err).Msg("mongodb disconnect failed")
	}
}
