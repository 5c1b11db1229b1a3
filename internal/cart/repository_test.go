package cart

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCartID = "0b5c3b0e-6d3f-4b8e-8a52-2f3f6c1d9e01"

func newMockRepo(t *testing.T) (*PostgresRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresRepository(mock), mock
}

func TestPostgresRepository_CreateCart(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(insertCartSQL)).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(created))

	c, err := repo.CreateCart(context.Background())
	require.NoError(t, err)
	assert.Len(t, c.ID, 36)
	assert.Equal(t, created, c.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetCart(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectCartSQL)).
			WithArgs(testCartID).
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(testCartID, created))

		c, err := repo.GetCart(context.Background(), testCartID)
		require.NoError(t, err)
		assert.Equal(t, Cart{ID: testCartID, CreatedAt: created}, c)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectCartSQL)).
			WithArgs(testCartID).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetCart(context.Background(), testCartID)
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestPostgresRepository_UpsertItem(t *testing.T) {
	t.Run("returns accumulated quantity", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(upsertItemSQL)).
			WithArgs(testCartID, "shirt", 1).
			WillReturnRows(pgxmock.NewRows([]string{"id", "quantity"}).AddRow(int64(11), 3))

		it, err := repo.UpsertItem(context.Background(), testCartID, "shirt", 1)
		require.NoError(t, err)
		assert.Equal(t, Item{ID: 11, CartID: testCartID, ProductID: "shirt", Quantity: 3}, it)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("foreign key violation means cart or product is gone", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(upsertItemSQL)).
			WithArgs(testCartID, "shirt", 1).
			WillReturnError(&pgconn.PgError{Code: pgForeignKeyViolation, Message: "violates foreign key constraint"})

		_, err := repo.UpsertItem(context.Background(), testCartID, "shirt", 1)
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("integer overflow is an invalid argument", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(upsertItemSQL)).
			WithArgs(testCartID, "shirt", 1).
			WillReturnError(&pgconn.PgError{Code: pgNumericOutOfRange, Message: "integer out of range"})

		_, err := repo.UpsertItem(context.Background(), testCartID, "shirt", 1)
		require.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("serialization failure is a conflict", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(upsertItemSQL)).
			WithArgs(testCartID, "shirt", 1).
			WillReturnError(&pgconn.PgError{Code: pgSerializationFailure})

		_, err := repo.UpsertItem(context.Background(), testCartID, "shirt", 1)
		require.ErrorIs(t, err, ErrConflict)
	})

	t.Run("other errors pass through", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		boom := errors.New("connection reset")
		mock.ExpectQuery(regexp.QuoteMeta(upsertItemSQL)).
			WithArgs(testCartID, "shirt", 1).
			WillReturnError(boom)

		_, err := repo.UpsertItem(context.Background(), testCartID, "shirt", 1)
		require.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, ErrNotFound)
	})
}

func TestPostgresRepository_SetItemQuantity(t *testing.T) {
	t.Run("updates existing item", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(updateItemSQL)).
			WithArgs(testCartID, "mug", 4).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(5)))

		it, err := repo.SetItemQuantity(context.Background(), testCartID, "mug", 4)
		require.NoError(t, err)
		assert.Equal(t, Item{ID: 5, CartID: testCartID, ProductID: "mug", Quantity: 4}, it)
	})

	t.Run("absent item", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(updateItemSQL)).
			WithArgs(testCartID, "mug", 4).
			WillReturnRows(pgxmock.NewRows([]string{"id"}))

		_, err := repo.SetItemQuantity(context.Background(), testCartID, "mug", 4)
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestPostgresRepository_FindItem(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta(selectItemSQL)).
		WithArgs(testCartID, "mug").
		WillReturnRows(pgxmock.NewRows([]string{"id", "quantity"}).AddRow(int64(2), 6))
	mock.ExpectQuery(regexp.QuoteMeta(selectItemSQL)).
		WithArgs(testCartID, "hat").
		WillReturnRows(pgxmock.NewRows([]string{"id", "quantity"}))

	it, err := repo.FindItem(context.Background(), testCartID, "mug")
	require.NoError(t, err)
	assert.Equal(t, 6, it.Quantity)

	_, err = repo.FindItem(context.Background(), testCartID, "hat")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_RemoveItem(t *testing.T) {
	tests := map[string]struct {
		affected int64
		want     error
	}{
		"removed": {affected: 1},
		"absent":  {affected: 0, want: ErrNotFound},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			mock.ExpectExec(regexp.QuoteMeta(deleteItemSQL)).
				WithArgs(testCartID, "mug").
				WillReturnResult(pgxmock.NewResult("DELETE", tc.affected))

			err := repo.RemoveItem(context.Background(), testCartID, "mug")
			if tc.want == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tc.want)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresRepository_DeleteCart(t *testing.T) {
	tests := map[string]struct {
		affected int64
		want     error
	}{
		"deleted": {affected: 1},
		"absent":  {affected: 0, want: ErrNotFound},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			mock.ExpectExec(regexp.QuoteMeta(deleteCartSQL)).
				WithArgs(testCartID).
				WillReturnResult(pgxmock.NewResult("DELETE", tc.affected))

			err := repo.DeleteCart(context.Background(), testCartID)
			if tc.want == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tc.want)
			}
		})
	}
}

func TestPostgresRepository_ListItems(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta(listItemsSQL)).
		WithArgs(testCartID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "product_id", "quantity"}).
			AddRow(int64(1), "shirt", 3).
			AddRow(int64(2), "mug", 1))

	items, err := repo.ListItems(context.Background(), testCartID)
	require.NoError(t, err)
	assert.Equal(t, []Item{
		{ID: 1, CartID: testCartID, ProductID: "shirt", Quantity: 3},
		{ID: 2, CartID: testCartID, ProductID: "mug", Quantity: 1},
	}, items)
	require.NoError(t, mock.ExpectationsWereMet())
}
