package catalog

import (
	"context"
	"maps"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// flightTimeout bounds a shared lookup, which no longer follows any single
// caller's deadline.
const flightTimeout = 5 * time.Second

// Coalescing shares one in-flight lookup between concurrent callers asking
// for the same product (or the same set of products). Nothing is cached once
// the lookup returns, so prices stay live.
//
// The shared lookup runs detached from the caller that started it; each
// caller only stops waiting when its own context ends.
type Coalescing struct {
	store Store
	group singleflight.Group
}

func NewCoalescing(store Store) *Coalescing {
	return &Coalescing{store: store}
}

func (c *Coalescing) GetProduct(ctx context.Context, id string) (Product, error) {
	v, _, err := c.do(ctx, productFlightKey(id), func(ctx context.Context) (any, error) {
		return c.store.GetProduct(ctx, id)
	})
	if err != nil {
		return Product{}, err
	}
	return v.(Product), nil
}

func (c *Coalescing) GetProducts(ctx context.Context, ids []string) (map[string]Product, error) {
	key := uniqueIDs(ids)
	slices.Sort(key)

	v, shared, err := c.do(ctx, "products:"+strings.Join(key, ","), func(ctx context.Context) (any, error) {
		return c.store.GetProducts(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	out := v.(map[string]Product)
	if shared {
		out = maps.Clone(out)
	}
	return out, nil
}

// UpsertProduct writes through and drops any in-flight lookup of the same id,
// so later readers do not join a lookup that started before the write.
func (c *Coalescing) UpsertProduct(ctx context.Context, p Product) (Product, error) {
	out, err := c.store.UpsertProduct(ctx, p)
	c.group.Forget(productFlightKey(p.ID))
	return out, err
}

func (c *Coalescing) do(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, bool, error) {
	ch := c.group.DoChan(key, func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flightTimeout)
		defer cancel()
		return fn(flightCtx)
	})
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		return res.Val, res.Shared, res.Err
	}
}

func productFlightKey(id string) string { return "product:" + id }
