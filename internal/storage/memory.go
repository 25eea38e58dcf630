package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/types"
)

// MemoryStorage keeps products in process memory.
type MemoryStorage struct {
	mu       sync.Mutex
	products []types.Product
	logger   *slog.Logger
}

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage(logger *slog.Logger) *MemoryStorage {
	return &MemoryStorage{logger: logger.With("component", "memory_storage")}
}

func (s *MemoryStorage) Name() string { return "memory" }

func (s *MemoryStorage) Ping(context.Context) error { return nil }

func (s *MemoryStorage) Insert(_ context.Context, p types.Product) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = int64(len(s.products) + 1)
	s.products = append(s.products, p)
	return p.ID, nil
}

func (s *MemoryStorage) ListAll(context.Context) ([]types.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Product(nil), s.products...), nil
}

func (s *MemoryStorage) GetByID(_ context.Context, id int64) (types.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id < 1 || id > int64(len(s.products)) {
		return types.Product{}, fmt.Errorf("product %d: %w", id, types.ErrNotFound)
	}
	return s.products[id-1], nil
}

func (s *MemoryStorage) Close() error {
	s.logger.Debug("memory storage closing", "products", len(s.products))
	return nil
}
