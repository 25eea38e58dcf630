package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestProductValid(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"Apple iPhone 15 (Black, 128 GB)", true},
		{"", false},
		{"   ", false},
		{UnknownProduct, false},
	}

	for _, tt := range tests {
		p := Product{Name: tt.name}
		if got := p.Valid(); got != tt.want {
			t.Errorf("Product{Name: %q}.Valid() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestFieldSentinels(t *testing.T) {
	want := map[Field]string{
		FieldName:        "Unknown Product",
		FieldPrice:       "Price not available",
		FieldRating:      "No rating",
		FieldDescription: "No description",
	}
	for _, f := range Fields {
		if got := f.Sentinel(); got != want[f] {
			t.Errorf("%s.Sentinel() = %q, want %q", f, got, want[f])
		}
	}
}

func TestProductWithAndAvailable(t *testing.T) {
	p := Product{}.With(FieldRating, NoRating).With(FieldPrice, "₹1,299")

	if p.Available(FieldRating) {
		t.Error("rating holding its sentinel should not be available")
	}
	if !p.Available(FieldPrice) {
		t.Error("price with a page value should be available")
	}
	if p.Get(FieldPrice) != "₹1,299" {
		t.Errorf("price = %q", p.Get(FieldPrice))
	}
}

func TestKindOf(t *testing.T) {
	base := errors.New("boom")
	tests := []struct {
		err  error
		want FailureKind
	}{
		{nil, KindUnknown},
		{base, KindUnknown},
		{&SelectorError{Selector: "//div[", Err: base}, KindSelectorMiss},
		{fmt.Errorf("discover: %w", ErrNoContainers), KindContainerMiss},
		{&ItemError{Index: 3, Err: base}, KindItemFailure},
		{&ItemError{Index: 3, Field: FieldDescription, Err: base}, KindFieldFailure},
		{&NavigationError{URL: "https://example.com", Err: base}, KindNavigationFailure},
		{&NavigationError{URL: "https://example.com", Err: &DriverError{Op: "navigate", Err: base}}, KindDriverFailure},
		{fmt.Errorf("find: %w", ErrDriverClosed), KindDriverFailure},
	}

	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestIsFatal(t *testing.T) {
	if IsFatal(&NavigationError{URL: "u", Err: errors.New("timeout")}) {
		t.Error("navigation failure must not be fatal")
	}
	if !IsFatal(&DriverError{Op: "launch", Err: errors.New("no chromium")}) {
		t.Error("driver failure must be fatal")
	}
}
