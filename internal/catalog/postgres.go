package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// DBPool is the subset of *pgxpool.Pool the store needs.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

const (
	productColumns = `id, title, slug, description, price::text, inventory, updated_at`

	selectProductSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	selectProductsSQL = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`

	upsertProductSQL = `
		INSERT INTO products (id, title, slug, description, price, inventory)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			slug = EXCLUDED.slug,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			inventory = EXCLUDED.inventory,
			updated_at = now()
		RETURNING updated_at`
)

type PostgresStore struct {
	pool DBPool
}

func NewPostgresStore(pool DBPool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) GetProduct(ctx context.Context, id string) (Product, error) {
	p, err := scanProduct(s.pool.QueryRow(ctx, selectProductSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, fmt.Errorf("select product %s: %w", id, err)
	}
	return p, nil
}

func (s *PostgresStore) GetProducts(ctx context.Context, ids []string) (map[string]Product, error) {
	out := make(map[string]Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := s.pool.Query(ctx, selectProductsSQL, uniqueIDs(ids))
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) UpsertProduct(ctx context.Context, p Product) (Product, error) {
	if p.Slug == "" {
		p.Slug = Slugify(p.Title)
	}
	if err := p.Validate(); err != nil {
		return Product{}, err
	}

	err := s.pool.QueryRow(ctx, upsertProductSQL,
		p.ID, p.Title, p.Slug, p.Description, p.Price.StringFixed(2), p.Inventory,
	).Scan(&p.UpdatedAt)
	if err != nil {
		return Product{}, fmt.Errorf("upsert product %s: %w", p.ID, err)
	}
	p.Price = p.Price.Round(2)
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p     Product
		price string
	)
	if err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Description, &price, &p.Inventory, &p.UpdatedAt); err != nil {
		return Product{}, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return Product{}, fmt.Errorf("parse price %q: %w", price, err)
	}
	p.Price = d
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}
