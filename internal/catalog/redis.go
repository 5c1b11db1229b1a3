package catalog

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

func productKey(id string) string { return "product:" + id }

// RedisStore keeps one hash per product.
type RedisStore struct {
	client redis.UniversalClient
	now    func() time.Time
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func (s *RedisStore) GetProduct(ctx context.Context, id string) (Product, error) {
	fields, err := s.client.HGetAll(ctx, productKey(id)).Result()
	if err != nil {
		return Product{}, fmt.Errorf("redis get product %s: %w", id, err)
	}
	if len(fields) == 0 {
		return Product{}, ErrNotFound
	}
	return decodeProduct(id, fields)
}

func (s *RedisStore) GetProducts(ctx context.Context, ids []string) (map[string]Product, error) {
	ids = uniqueIDs(ids)
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, productKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis get products: %w", err)
	}

	out := make(map[string]Product, len(ids))
	for i, cmd := range cmds {
		if len(cmd.Val()) == 0 {
			continue
		}
		p, err := decodeProduct(ids[i], cmd.Val())
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, nil
}

func (s *RedisStore) UpsertProduct(ctx context.Context, p Product) (Product, error) {
	if p.Slug == "" {
		p.Slug = Slugify(p.Title)
	}
	if err := p.Validate(); err != nil {
		return Product{}, err
	}
	p.Price = p.Price.Round(2)
	p.UpdatedAt = s.now().UTC()

	err := s.client.HSet(ctx, productKey(p.ID),
		"title", p.Title,
		"slug", p.Slug,
		"description", p.Description,
		"price", p.Price.StringFixed(2),
		"inventory", p.Inventory,
		"updated_at", p.UpdatedAt.Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return Product{}, fmt.Errorf("redis upsert product %s: %w", p.ID, err)
	}
	return p, nil
}

func decodeProduct(id string, fields map[string]string) (Product, error) {
	price, err := decimal.NewFromString(fields["price"])
	if err != nil {
		return Product{}, fmt.Errorf("product %s: parse price: %w", id, err)
	}
	inventory, err := strconv.Atoi(fields["inventory"])
	if err != nil {
		return Product{}, fmt.Errorf("product %s: parse inventory: %w", id, err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, fields["updated_at"])
	if err != nil {
		return Product{}, fmt.Errorf("product %s: parse updated_at: %w", id, err)
	}
	return Product{
		ID:          id,
		Title:       fields["title"],
		Slug:        fields["slug"],
		Description: fields["description"],
		Price:       price,
		Inventory:   inventory,
		UpdatedAt:   updatedAt,
	}, nil
}
