package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound       = errors.New("product not found")
	ErrInvalidProduct = errors.New("invalid product")
)

var (
	minPrice = decimal.NewFromInt(1)
	// NUMERIC(6,2)
	maxPrice = decimal.RequireFromString("9999.99")
	taxRate  = decimal.RequireFromString("1.1")
)

type Product struct {
	ID          string
	Title       string
	Slug        string
	Description string
	Price       decimal.Decimal
	Inventory   int
	UpdatedAt   time.Time
}

// PriceWithTax is the unit price including the flat 10% tax, at two decimals.
func (p Product) PriceWithTax() decimal.Decimal {
	return p.Price.Mul(taxRate).Round(2)
}

// Validate checks the product the same way the products table constraints do.
func (p Product) Validate() error {
	switch {
	case strings.TrimSpace(p.ID) == "":
		return fmt.Errorf("%w: id is required", ErrInvalidProduct)
	case strings.TrimSpace(p.Title) == "":
		return fmt.Errorf("%w: title is required", ErrInvalidProduct)
	case p.Price.LessThan(minPrice):
		return fmt.Errorf("%w: price must be at least %s", ErrInvalidProduct, minPrice.StringFixed(2))
	case p.Price.GreaterThan(maxPrice):
		return fmt.Errorf("%w: price must be at most %s", ErrInvalidProduct, maxPrice.StringFixed(2))
	case !p.Price.Equal(p.Price.Round(2)):
		return fmt.Errorf("%w: price has more than two decimal places", ErrInvalidProduct)
	case p.Inventory < 0:
		return fmt.Errorf("%w: inventory must not be negative", ErrInvalidProduct)
	}
	return nil
}

// Store is the system of record for products and their prices.
type Store interface {
	GetProduct(ctx context.Context, id string) (Product, error)
	// GetProducts returns the products that exist; unknown ids are omitted.
	GetProducts(ctx context.Context, ids []string) (map[string]Product, error)
	UpsertProduct(ctx context.Context, p Product) (Product, error)
}

// Slugify derives a URL slug from a title when none is supplied.
func Slugify(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
