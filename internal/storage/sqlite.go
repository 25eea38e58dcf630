package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/types"
)

//go:embed schema.sql
var schema string

const (
	insertProductSQL = `INSERT INTO products (name, price, rating, description, created_date, updated_date)
VALUES (?, ?, ?, ?, ?, ?)`
	listProductsSQL = `SELECT product_id, name, price, rating, description, created_date, updated_date
FROM products ORDER BY product_id`
	getProductSQL = `SELECT product_id, name, price, rating, description, created_date, updated_date
FROM products WHERE product_id = ?`
)

// SQLiteStorage stores products in a SQLite database.
type SQLiteStorage struct {
	db     *sql.DB
	dsn    string
	logger *slog.Logger
}

// NewSQLiteStorage opens dsn, creating the parent directory of a file
// database, and applies the schema.
func NewSQLiteStorage(ctx context.Context, dsn string, logger *slog.Logger) (*SQLiteStorage, error) {
	if path := sqliteFilePath(dsn); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &types.StorageError{Backend: "sqlite", Err: err}
	}
	// an in-memory database lives and dies with its connection
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, &types.StorageError{Backend: "sqlite", Err: fmt.Errorf("apply schema: %w", err)}
	}

	return &SQLiteStorage{
		db:     db,
		dsn:    dsn,
		logger: logger.With("component", "sqlite_storage"),
	}, nil
}

func (s *SQLiteStorage) Name() string { return "sqlite" }

func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &types.StorageError{Backend: "sqlite", Err: err}
	}
	return nil
}

func (s *SQLiteStorage) Insert(ctx context.Context, p types.Product) (int64, error) {
	res, err := s.db.ExecContext(ctx, insertProductSQL,
		p.Name, p.Price, p.Rating, p.Description,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		return 0, &types.StorageError{Backend: "sqlite", Err: fmt.Errorf("insert: %w", err)}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, &types.StorageError{Backend: "sqlite", Err: err}
	}
	s.logger.Debug("product stored", "id", id, "name", p.Name)
	return id, nil
}

func (s *SQLiteStorage) ListAll(ctx context.Context) ([]types.Product, error) {
	rows, err := s.db.QueryContext(ctx, listProductsSQL)
	if err != nil {
		return nil, &types.StorageError{Backend: "sqlite", Err: err}
	}
	defer rows.Close()

	var products []types.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, &types.StorageError{Backend: "sqlite", Err: err}
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, &types.StorageError{Backend: "sqlite", Err: err}
	}
	return products, nil
}

func (s *SQLiteStorage) GetByID(ctx context.Context, id int64) (types.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, getProductSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Product{}, fmt.Errorf("product %d: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return types.Product{}, &types.StorageError{Backend: "sqlite", Err: err}
	}
	return p, nil
}

func (s *SQLiteStorage) Close() error {
	s.logger.Debug("sqlite storage closing", "dsn", s.dsn)
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (types.Product, error) {
	var (
		p                types.Product
		created, updated string
	)
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Rating, &p.Description, &created, &updated)
	if err != nil {
		return types.Product{}, err
	}
	if p.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return types.Product{}, fmt.Errorf("parse created_date: %w", err)
	}
	if p.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return types.Product{}, fmt.Errorf("parse updated_date: %w", err)
	}
	return p, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// sqliteFilePath returns the file behind dsn, or "" for in-memory databases.
func sqliteFilePath(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" || strings.Contains(dsn, "mode=memory") {
		return ""
	}
	return path
}
