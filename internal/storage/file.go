package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/types"
)

// Exporter writes the products of a run to a file.
type Exporter interface {
	// Export appends products to the output.
	Export(products []types.Product) error

	// Close flushes pending writes and releases the file.
	Close() error

	// Path returns the output file path.
	Path() string
}

// csvColumns is the CSV header, in the order of the products table.
var csvColumns = []string{"product_id", "name", "price", "rating", "description", "created_at", "updated_at"}

// --- JSON Export ---

// JSONExporter writes products as a JSON array on Close.
type JSONExporter struct {
	path     string
	products []types.Product
	mu       sync.Mutex
	logger   *slog.Logger
}

// NewJSONExporter creates a JSON array exporter.
func NewJSONExporter(outputPath string, logger *slog.Logger) (*JSONExporter, error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &JSONExporter{
		path:     outputPath,
		products: make([]types.Product, 0),
		logger:   logger.With("component", "json_export"),
	}, nil
}

func (e *JSONExporter) Path() string { return e.path }

func (e *JSONExporter) Export(products []types.Product) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.products = append(e.products, products...)
	return nil
}

func (e *JSONExporter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	f, err := os.Create(e.path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(e.products); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}

	e.logger.Info("JSON written", "path", e.path, "products", len(e.products))
	return nil
}

// --- JSONL Export ---

// JSONLExporter writes one JSON object per line as products arrive.
type JSONLExporter struct {
	path   string
	file   *os.File
	enc    *json.Encoder
	mu     sync.Mutex
	count  int
	logger *slog.Logger
}

// NewJSONLExporter creates a streaming JSONL exporter.
func NewJSONLExporter(outputPath string, logger *slog.Logger) (*JSONLExporter, error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	return &JSONLExporter{
		path:   outputPath,
		file:   f,
		enc:    json.NewEncoder(f),
		logger: logger.With("component", "jsonl_export"),
	}, nil
}

func (e *JSONLExporter) Path() string { return e.path }

func (e *JSONLExporter) Export(products []types.Product) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range products {
		if err := e.enc.Encode(p); err != nil {
			return fmt.Errorf("encode JSONL: %w", err)
		}
		e.count++
	}
	return nil
}

func (e *JSONLExporter) Close() error {
	e.logger.Info("JSONL written", "path", e.path, "products", e.count)
	return e.file.Close()
}

// --- CSV Export ---

// CSVExporter writes products as CSV rows under a fixed header.
type CSVExporter struct {
	path          string
	file          *os.File
	writer        *csv.Writer
	headerWritten bool
	mu            sync.Mutex
	count         int
	logger        *slog.Logger
}

// NewCSVExporter creates a CSV exporter.
func NewCSVExporter(outputPath string, logger *slog.Logger) (*CSVExporter, error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	return &CSVExporter{
		path:   outputPath,
		file:   f,
		writer: csv.NewWriter(f),
		logger: logger.With("component", "csv_export"),
	}, nil
}

func (e *CSVExporter) Path() string { return e.path }

func (e *CSVExporter) Export(products []types.Product) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.headerWritten {
		if err := e.writer.Write(csvColumns); err != nil {
			return fmt.Errorf("write CSV header: %w", err)
		}
		e.headerWritten = true
	}

	for _, p := range products {
		flat := p.ToFlatMap()
		row := make([]string, len(csvColumns))
		for i, col := range csvColumns {
			row[i] = flat[col]
		}
		if err := e.writer.Write(row); err != nil {
			return fmt.Errorf("write CSV row: %w", err)
		}
		e.count++
	}

	e.writer.Flush()
	return e.writer.Error()
}

func (e *CSVExporter) Close() error {
	e.logger.Info("CSV written", "path", e.path, "products", e.count)
	e.writer.Flush()
	return e.file.Close()
}

// NewExporter creates the file exporter for format inside outputDir.
func NewExporter(format, outputDir string, logger *slog.Logger) (Exporter, error) {
	switch format {
	case "json":
		return NewJSONExporter(filepath.Join(outputDir, "products.json"), logger)
	case "jsonl":
		return NewJSONLExporter(filepath.Join(outputDir, "products.jsonl"), logger)
	case "csv":
		return NewCSVExporter(filepath.Join(outputDir, "products.csv"), logger)
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}
