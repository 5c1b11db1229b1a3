package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBPool matches the methods from *pgxpool.Pool that we use.
// This allows us to mock the database in tests.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Repository persists carts and their items.
//
// UpsertItem must be atomic with respect to other writers of the same
// (cartID, productID) pair: it creates the item with the given quantity or
// adds the quantity to the existing one. ListItems makes no ordering promise
// and returns an empty slice for an unknown cart.
type Repository interface {
	CreateCart(ctx context.Context) (Cart, error)
	GetCart(ctx context.Context, cartID string) (Cart, error)
	DeleteCart(ctx context.Context, cartID string) error
	FindItem(ctx context.Context, cartID, productID string) (Item, error)
	UpsertItem(ctx context.Context, cartID, productID string, quantity int) (Item, error)
	SetItemQuantity(ctx context.Context, cartID, productID string, quantity int) (Item, error)
	RemoveItem(ctx context.Context, cartID, productID string) error
	ListItems(ctx context.Context, cartID string) ([]Item, error)
}

const (
	insertCartSQL = `INSERT INTO carts (id) VALUES ($1) RETURNING created_at`

	selectCartSQL = `SELECT id::text, created_at FROM carts WHERE id = $1`

	deleteCartSQL = `DELETE FROM carts WHERE id = $1`

	selectItemSQL = `
		SELECT id, quantity
		FROM cart_items
		WHERE cart_id = $1 AND product_id = $2`

	upsertItemSQL = `
		INSERT INTO cart_items (cart_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = now()
		RETURNING id, quantity`

	updateItemSQL = `
		UPDATE cart_items
		SET quantity = $3, updated_at = now()
		WHERE cart_id = $1 AND product_id = $2
		RETURNING id`

	deleteItemSQL = `DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`

	listItemsSQL = `
		SELECT id, product_id, quantity
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY id`
)

// PostgresRepository stores carts in the carts and cart_items tables.
// It relies on the default READ COMMITTED isolation; increments are a single
// INSERT ... ON CONFLICT statement so no explicit transaction is needed.
type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) CreateCart(ctx context.Context) (Cart, error) {
	c := Cart{ID: uuid.NewString()}
	if err := r.pool.QueryRow(ctx, insertCartSQL, c.ID).Scan(&c.CreatedAt); err != nil {
		return Cart{}, fmt.Errorf("insert cart: %w", mapPgError(err))
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return c, nil
}

func (r *PostgresRepository) GetCart(ctx context.Context, cartID string) (Cart, error) {
	var (
		c         Cart
		createdAt time.Time
	)
	if err := r.pool.QueryRow(ctx, selectCartSQL, cartID).Scan(&c.ID, &createdAt); err != nil {
		return Cart{}, mapPgError(err)
	}
	c.CreatedAt = createdAt.UTC()
	return c, nil
}

func (r *PostgresRepository) DeleteCart(ctx context.Context, cartID string) error {
	tag, err := r.pool.Exec(ctx, deleteCartSQL, cartID)
	if err != nil {
		return fmt.Errorf("delete cart: %w", mapPgError(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) FindItem(ctx context.Context, cartID, productID string) (Item, error) {
	it := Item{CartID: cartID, ProductID: productID}
	if err := r.pool.QueryRow(ctx, selectItemSQL, cartID, productID).Scan(&it.ID, &it.Quantity); err != nil {
		return Item{}, mapPgError(err)
	}
	return it, nil
}

func (r *PostgresRepository) UpsertItem(ctx context.Context, cartID, productID string, quantity int) (Item, error) {
	it := Item{CartID: cartID, ProductID: productID}
	err := r.pool.QueryRow(ctx, upsertItemSQL, cartID, productID, quantity).Scan(&it.ID, &it.Quantity)
	if err != nil {
		return Item{}, fmt.Errorf("upsert item: %w", mapPgError(err))
	}
	return it, nil
}

func (r *PostgresRepository) SetItemQuantity(ctx context.Context, cartID, productID string, quantity int) (Item, error) {
	it := Item{CartID: cartID, ProductID: productID, Quantity: quantity}
	if err := r.pool.QueryRow(ctx, updateItemSQL, cartID, productID, quantity).Scan(&it.ID); err != nil {
		return Item{}, fmt.Errorf("update item: %w", mapPgError(err))
	}
	return it, nil
}

func (r *PostgresRepository) RemoveItem(ctx context.Context, cartID, productID string) error {
	tag, err := r.pool.Exec(ctx, deleteItemSQL, cartID, productID)
	if err != nil {
		return fmt.Errorf("delete item: %w", mapPgError(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) ListItems(ctx context.Context, cartID string) ([]Item, error) {
	rows, err := r.pool.Query(ctx, listItemsSQL, cartID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", mapPgError(err))
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		it := Item{CartID: cartID}
		if err := rows.Scan(&it.ID, &it.ProductID, &it.Quantity); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list items: %w", mapPgError(err))
	}
	return items, nil
}

// Postgres error codes we translate into cart errors.
const (
	pgForeignKeyViolation  = "23503"
	pgInvalidTextRepr      = "22P02"
	pgNumericOutOfRange    = "22003"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

func mapPgError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgForeignKeyViolation, pgInvalidTextRepr:
			return fmt.Errorf("%w: %s", ErrNotFound, pgErr.Message)
		case pgNumericOutOfRange:
			return fmt.Errorf("%w: quantity out of range: %s", ErrInvalidArgument, pgErr.Message)
		case pgSerializationFailure, pgDeadlockDetected:
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.Message)
		}
	}
	return err
}
