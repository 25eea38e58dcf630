package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/types"
)

const countersCollection = "counters"

// MongoStorage writes products to a MongoDB collection. Numeric ids come
// from a counter document so they match the relational backend.
type MongoStorage struct {
	client     *mongo.Client
	collection *mongo.Collection
	counters   *mongo.Collection
	logger     *slog.Logger
}

// NewMongoStorage connects to uri and verifies the connection.
func NewMongoStorage(ctx context.Context, uri, database, collection string, logger *slog.Logger) (*MongoStorage, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("connect: %w", err)}
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("ping: %w", err)}
	}

	db := client.Database(database)
	return &MongoStorage{
		client:     client,
		collection: db.Collection(collection),
		counters:   db.Collection(countersCollection),
		logger:     logger.With("component", "mongo_storage"),
	}, nil
}

func (s *MongoStorage) Name() string { return "mongodb" }

func (s *MongoStorage) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, nil); err != nil {
		return &types.StorageError{Backend: "mongodb", Err: err}
	}
	return nil
}

func (s *MongoStorage) Insert(ctx context.Context, p types.Product) (int64, error) {
	id, err := s.nextID(ctx)
	if err != nil {
		return 0, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("next id: %w", err)}
	}
	p.ID = id

	if _, err := s.collection.InsertOne(ctx, p); err != nil {
		return 0, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("insert: %w", err)}
	}
	s.logger.Debug("product stored", "id", id, "name", p.Name)
	return id, nil
}

func (s *MongoStorage) ListAll(ctx context.Context) ([]types.Product, error) {
	cur, err := s.collection.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "product_id", Value: 1}}))
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: err}
	}
	defer cur.Close(ctx)

	var products []types.Product
	if err := cur.All(ctx, &products); err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: err}
	}
	return products, nil
}

func (s *MongoStorage) GetByID(ctx context.Context, id int64) (types.Product, error) {
	var p types.Product
	err := s.collection.FindOne(ctx, bson.D{{Key: "product_id", Value: id}}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return types.Product{}, fmt.Errorf("product %d: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return types.Product{}, &types.StorageError{Backend: "mongodb", Err: err}
	}
	return p, nil
}

func (s *MongoStorage) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// nextID atomically increments the product counter.
func (s *MongoStorage) nextID(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: s.collection.Name()}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "seq", Value: int64(1)}}}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	return counter.Seq, err
}
