package pipeline

import (
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/config"
	"github.com/JainArchi06/Flipkart-Electronics-Scraper/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func product(name, price string) types.Product {
	return types.Product{
		Name:        name,
		Price:       price,
		Rating:      types.NoRating,
		Description: types.NoDescription,
	}
}

func TestPipelineBasic(t *testing.T) {
	p := New(testLogger)
	p.Use(&WhitespaceMiddleware{})

	in := product("  Apple iPhone 15\n\t(Black,  128 GB) ", "₹65,999")
	result, err := p.Process(in)
	if err != nil {
		t.Fatalf("pipeline error: %v", err)
	}
	if result.Name != "Apple iPhone 15 (Black, 128 GB)" {
		t.Errorf("expected collapsed name, got %q", result.Name)
	}
	if in.Name == result.Name {
		t.Error("input product should not be modified")
	}
	if result.Rating != types.NoRating {
		t.Errorf("sentinel should pass through, got %q", result.Rating)
	}
}

func TestWhitespaceDecodesEntities(t *testing.T) {
	m := &WhitespaceMiddleware{}
	p := product("Tom &amp; Jerry Speaker", "₹1,299")

	result, err := m.Process(&p)
	if err != nil {
		t.Fatalf("process error: %v", err)
	}
	if result.Name != "Tom & Jerry Speaker" {
		t.Errorf("expected decoded entity, got %q", result.Name)
	}
}

func TestRequiredNameMiddleware(t *testing.T) {
	m := &RequiredNameMiddleware{}

	ok := product("POCO M6 5G", "₹9,499")
	if result, _ := m.Process(&ok); result == nil {
		t.Error("product with a name should pass")
	}

	unknown := product(types.UnknownProduct, "₹9,499")
	if result, _ := m.Process(&unknown); result != nil {
		t.Error("product with the name sentinel should be dropped")
	}

	blank := product("   ", "₹9,499")
	if result, _ := m.Process(&blank); result != nil {
		t.Error("product with a blank name should be dropped")
	}
}

func TestDedupMiddleware(t *testing.T) {
	m := NewDedupMiddleware()

	a := product("POCO M6 5G", "₹9,499")
	b := product("POCO M6 5G", "₹9,499")
	c := product("POCO M6 5G", "₹10,499")

	if result, _ := m.Process(&a); result == nil {
		t.Error("first product should pass")
	}
	if result, _ := m.Process(&b); result != nil {
		t.Error("duplicate product should be dropped")
	}
	if result, _ := m.Process(&c); result == nil {
		t.Error("same name with a different price should pass")
	}
}

func TestSentinelMiddleware(t *testing.T) {
	m := &SentinelMiddleware{}
	p := types.Product{Name: "Boat Airdopes 141", Price: " "}

	result, err := m.Process(&p)
	if err != nil {
		t.Fatalf("process error: %v", err)
	}
	if result.Price != types.PriceUnavailable {
		t.Errorf("expected price sentinel, got %q", result.Price)
	}
	if result.Rating != types.NoRating || result.Description != types.NoDescription {
		t.Errorf("expected rating and description sentinels, got %q / %q", result.Rating, result.Description)
	}
	if result.Name != "Boat Airdopes 141" {
		t.Errorf("name should be kept, got %q", result.Name)
	}
}

type failingMiddleware struct{}

func (failingMiddleware) Name() string { return "failing" }

func (failingMiddleware) Process(*types.Product) (*types.Product, error) {
	return nil, errors.New("boom")
}

func TestPipelineStageError(t *testing.T) {
	p := New(testLogger)
	p.Use(failingMiddleware{})

	_, err := p.Process(product("POCO M6 5G", "₹9,499"))
	if err == nil {
		t.Fatal("expected a stage error")
	}
	if err.Error() != "pipeline stage failing: boom" {
		t.Errorf("unexpected error text: %v", err)
	}
}

func TestFromConfigKeepsRecordsByDefault(t *testing.T) {
	p := FromConfig(config.PipelineConfig{}, testLogger)
	if p.Len() != 1 {
		t.Fatalf("expected only the name check, got %d middleware", p.Len())
	}

	kept, dropped := p.Run([]types.Product{
		product("Apple  iPhone 15", "₹65,999"),
		product("Apple  iPhone 15", "₹65,999"),
		product(types.UnknownProduct, "₹1"),
	})
	if dropped != 1 || len(kept) != 2 {
		t.Fatalf("expected 2 kept and 1 dropped, got %d/%d", len(kept), dropped)
	}
	if kept[0].Name != "Apple  iPhone 15" {
		t.Errorf("records should be stored as extracted, got %q", kept[0].Name)
	}
}

func TestFromConfigAllStages(t *testing.T) {
	p := FromConfig(config.PipelineConfig{Normalize: true, Dedup: true}, testLogger)
	if p.Len() != 3 {
		t.Fatalf("expected 3 middleware, got %d", p.Len())
	}

	kept, dropped := p.Run([]types.Product{
		product("Apple  iPhone 15", "₹65,999"),
		product(types.UnknownProduct, "₹1"),
		product("Apple iPhone 15", "₹65,999"),
		product("POCO M6 5G", "₹9,499"),
	})

	if dropped != 2 {
		t.Errorf("expected 2 dropped, got %d", dropped)
	}
	if len(kept) != 2 {
		t.Fatalf("expected 2 kept, got %d", len(kept))
	}
	if kept[0].Name != "Apple iPhone 15" || kept[1].Name != "POCO M6 5G" {
		t.Errorf("unexpected order or names: %q, %q", kept[0].Name, kept[1].Name)
	}
}

func TestStoredFillsMissingFields(t *testing.T) {
	kept, dropped := Stored(testLogger).Run([]types.Product{
		{ID: 4, Name: "Noise ColorFit Pro 5"},
		{ID: 5, Name: "", Price: "₹2,499", Rating: "4.0", Description: "1.85 inch display"},
	})
	if dropped != 0 || len(kept) != 2 {
		t.Fatalf("stored records must never be dropped, got %d/%d", len(kept), dropped)
	}
	if kept[0].Price != types.PriceUnavailable || kept[0].Description != types.NoDescription {
		t.Errorf("expected sentinels, got %+v", kept[0])
	}
	if kept[1].Name != types.UnknownProduct || kept[1].Rating != "4.0" {
		t.Errorf("unexpected record %+v", kept[1])
	}
	if kept[0].ID != 4 {
		t.Errorf("ID = %d, want 4", kept[0].ID)
	}
}

func TestPipelineRunIsolatesErrors(t *testing.T) {
	p := New(testLogger)
	p.Use(failingMiddleware{})

	kept, dropped := p.Run([]types.Product{product("A1", "₹1"), product("B2", "₹2")})
	if len(kept) != 0 || dropped != 2 {
		t.Errorf("expected every product dropped, got kept=%d dropped=%d", len(kept), dropped)
	}
}
