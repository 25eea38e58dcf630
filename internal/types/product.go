package types

import (
	"strconv"
	"strings"
	"time"
)

// Field names a semantic product field extracted from a listing tile.
type Field string

const (
	FieldName        Field = "name"
	FieldPrice       Field = "price"
	FieldRating      Field = "rating"
	FieldDescription Field = "description"
)

// Fields lists every extracted field in assembly order.
var Fields = []Field{FieldName, FieldPrice, FieldRating, FieldDescription}

// Sentinel values stored on a record when a field could not be found on the page.
const (
	UnknownProduct   = "Unknown Product"
	PriceUnavailable = "Price not available"
	NoRating         = "No rating"
	NoDescription    = "No description"
)

// Sentinel returns the placeholder stored for f when it is unavailable.
func (f Field) Sentinel() string {
	switch f {
	case FieldName:
		return UnknownProduct
	case FieldPrice:
		return PriceUnavailable
	case FieldRating:
		return NoRating
	case FieldDescription:
		return NoDescription
	default:
		return ""
	}
}

// Product is one extracted listing record.
type Product struct {
	// ID is assigned by the persistence layer; zero until stored.
	ID int64 `json:"product_id,omitempty" bson:"product_id,omitempty"`

	Name        string `json:"name"        bson:"name"`
	Price       string `json:"price"       bson:"price"`
	Rating      string `json:"rating"      bson:"rating"`
	Description string `json:"description" bson:"description"`

	// CreatedAt and UpdatedAt are stamped at assembly time.
	CreatedAt time.Time `json:"created_at" bson:"created_date"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_date"`
}

// Get returns the value of the given field.
func (p Product) Get(f Field) string {
	switch f {
	case FieldName:
		return p.Name
	case FieldPrice:
		return p.Price
	case FieldRating:
		return p.Rating
	case FieldDescription:
		return p.Description
	default:
		return ""
	}
}

// With returns a copy of p with field f set to value.
func (p Product) With(f Field, value string) Product {
	switch f {
	case FieldName:
		p.Name = value
	case FieldPrice:
		p.Price = value
	case FieldRating:
		p.Rating = value
	case FieldDescription:
		p.Description = value
	}
	return p
}

// Available reports whether f holds a value read from the page rather than its sentinel.
func (p Product) Available(f Field) bool {
	return p.Get(f) != f.Sentinel()
}

// Valid reports whether the record carries a usable name.
func (p Product) Valid() bool {
	name := strings.TrimSpace(p.Name)
	return name != "" && name != UnknownProduct
}

// ToFlatMap returns a flat map suitable for CSV export.
func (p Product) ToFlatMap() map[string]string {
	flat := map[string]string{
		"name":        p.Name,
		"price":       p.Price,
		"rating":      p.Rating,
		"description": p.Description,
		"created_at":  p.CreatedAt.Format(time.RFC3339),
		"updated_at":  p.UpdatedAt.Format(time.RFC3339),
	}
	if p.ID != 0 {
		flat["product_id"] = strconv.FormatInt(p.ID, 10)
	}
	return flat
}
