package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/andreasstove999/ecommerce-system/cart-service-go/internal/cart"
)

// CartLookup exposes a Store as the cart's product lookup.
type CartLookup struct {
	store Store
}

func NewCartLookup(store Store) CartLookup {
	return CartLookup{store: store}
}

func (l CartLookup) Product(ctx context.Context, productID string) (cart.ProductSummary, error) {
	p, err := l.store.GetProduct(ctx, productID)
	if errors.Is(err, ErrNotFound) {
		return cart.ProductSummary{}, fmt.Errorf("%w: product %s", cart.ErrNotFound, productID)
	}
	if err != nil {
		return cart.ProductSummary{}, err
	}
	return summary(p), nil
}

func (l CartLookup) Products(ctx context.Context, productIDs []string) (map[string]cart.ProductSummary, error) {
	products, err := l.store.GetProducts(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[string]cart.ProductSummary, len(products))
	for id, p := range products {
		out[id] = summary(p)
	}
	return out, nil
}

func summary(p Product) cart.ProductSummary {
	return cart.ProductSummary{ID: p.ID, Title: p.Title, Price: p.Price}
}
