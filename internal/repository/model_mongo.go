package repository

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ahmednasr/repo-recommender/server/internal/logging"
	"github.com/ahmednasr/repo-recommender/server/internal/models"
	"github.com/ahmednasr/repo-recommender/server/internal/recommender"
)

// modelID is the _id of the single learner document.
const modelID = "recommender"

// MongoModelStore keeps the learner snapshot as one document in the "models"
// collection.
type MongoModelStore struct {
	col *mongo.Collection
}

// NewMongoModelStore returns a store operating on db.models.
func NewMongoModelStore(db *mongo.Database) *MongoModelStore {
	return &MongoModelStore{col: db.Collection("models")}
}

// Name identifies the backend in logs and /health.
func (s *MongoModelStore) Name() string { return "mongo" }

// Save replaces the stored snapshot.
func (s *MongoModelStore) Save(ctx context.Context, kind string, blob []byte) error {
	rec := models.ModelRecord{
		ID:      modelID,
		Kind:    kind,
		Blob:    blob,
		SavedAt: time.Now().UTC(),
	}
	_, err := s.col.ReplaceOne(ctx, bson.M{"_id": modelID}, rec, options.Replace().SetUpsert(true))
	if err != nil {
		return goerr.Wrap(err, "upsert model snapshot", goerr.V("collection", s.col.Name()))
	}
	logging.Debug().Str("collection", s.col.Name()).Int("bytes", len(blob)).Msg("model snapshot upserted")
	return nil
}

// Load returns the stored snapshot or recommender.ErrNotFound.
func (s *MongoModelStore) Load(ctx context.Context) ([]byte, error) {
	var rec models.ModelRecord
	err := s.col.FindOne(ctx, bson.M{"_id": modelID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, goerr.Wrap(recommender.ErrNotFound, "no saved model", goerr.V("collection", s.col.Name()))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "find model snapshot", goerr.V("collection", s.col.Name()))
	}
	return rec.Blob, nil
}

// Ping checks the database connection.
func (s *MongoModelStore) Ping(ctx context.Context) error {
	return s.col.Database().Client().Ping(ctx, nil)
}
