// Package storage persists extracted products and exports run results to files.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/config"
	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/types"
)

// Storage is the interface for all product persistence backends.
type Storage interface {
	// Insert stores one product and returns its assigned id.
	Insert(ctx context.Context, p types.Product) (int64, error)

	// ListAll returns every stored product ordered by id.
	ListAll(ctx context.Context) ([]types.Product, error)

	// GetByID returns the product with id, or types.ErrNotFound.
	GetByID(ctx context.Context, id int64) (types.Product, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// Open creates the backend selected by cfg.Type. Type "none" keeps products
// in memory for the lifetime of the process.
func Open(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (Storage, error) {
	switch cfg.Type {
	case "sqlite":
		return NewSQLiteStorage(ctx, cfg.DSN, logger)
	case "mongodb":
		return NewMongoStorage(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection, logger)
	case "none", "":
		return NewMemoryStorage(logger), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
