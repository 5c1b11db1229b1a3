package cart

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"
)

// repositoryFactories lists every Repository that runs without external
// services. The Postgres implementation is covered by pgxmock tests and the
// integration suite.
func repositoryFactories() map[string]func(t *testing.T) Repository {
	return map[string]func(t *testing.T) Repository{
		"memory": func(t *testing.T) Repository {
			return NewMemoryRepository()
		},
		"redis": func(t *testing.T) Repository {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = client.Close() })
			return NewRedisRepository(client)
		},
	}
}

func TestRepositoryContract(t *testing.T) {
	for name, newRepo := range repositoryFactories() {
		t.Run(name, func(t *testing.T) {
			t.Run("create and get", func(t *testing.T) {
				ctx := context.Background()
				repo := newRepo(t)

				c, err := repo.CreateCart(ctx)
				require.NoError(t, err)

				got, err := repo.GetCart(ctx, c.ID)
				require.NoError(t, err)
				assert.Equal(t, c.ID, got.ID)
				assert.True(t, c.CreatedAt.Equal(got.CreatedAt))

				items, err := repo.ListItems(ctx, c.ID)
				require.NoError(t, err)
				assert.Empty(t, items)
			})

			t.Run("upsert increments", func(t *testing.T) {
				ctx := context.Background()
				repo := newRepo(t)
				c, err := repo.CreateCart(ctx)
				require.NoError(t, err)

				first, err := repo.UpsertItem(ctx, c.ID, "p1", 2)
				require.NoError(t, err)
				assert.Equal(t, 2, first.Quantity)

				second, err := repo.UpsertItem(ctx, c.ID, "p1", 3)
				require.NoError(t, err)
				assert.Equal(t, 5, second.Quantity)
				assert.Equal(t, first.ID, second.ID)

				other, err := repo.UpsertItem(ctx, c.ID, "p2", 1)
				require.NoError(t, err)
				assert.NotEqual(t, first.ID, other.ID)

				found, err := repo.FindItem(ctx, c.ID, "p1")
				require.NoError(t, err)
				assert.Equal(t, 5, found.Quantity)
				assert.Equal(t, first.ID, found.ID)

				items, err := repo.ListItems(ctx, c.ID)
				require.NoError(t, err)
				assert.Len(t, items, 2)
			})

			t.Run("set quantity replaces", func(t *testing.T) {
				ctx := context.Background()
				repo := newRepo(t)
				c, err := repo.CreateCart(ctx)
				require.NoError(t, err)

				_, err = repo.SetItemQuantity(ctx, c.ID, "p1", 4)
				require.ErrorIs(t, err, ErrNotFound)

				added, err := repo.UpsertItem(ctx, c.ID, "p1", 9)
				require.NoError(t, err)

				it, err := repo.SetItemQuantity(ctx, c.ID, "p1", 4)
				require.NoError(t, err)
				assert.Equal(t, 4, it.Quantity)
				assert.Equal(t, added.ID, it.ID)

				found, err := repo.FindItem(ctx, c.ID, "p1")
				require.NoError(t, err)
				assert.Equal(t, 4, found.Quantity)
			})

			t.Run("remove item", func(t *testing.T) {
				ctx := context.Background()
				repo := newRepo(t)
				c, err := repo.CreateCart(ctx)
				require.NoError(t, err)

				_, err = repo.UpsertItem(ctx, c.ID, "p1", 1)
				require.NoError(t, err)

				require.NoError(t, repo.RemoveItem(ctx, c.ID, "p1"))
				require.ErrorIs(t, repo.RemoveItem(ctx, c.ID, "p1"), ErrNotFound)

				_, err = repo.FindItem(ctx, c.ID, "p1")
				require.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("delete cascades", func(t *testing.T) {
				ctx := context.Background()
				repo := newRepo(t)
				c, err := repo.CreateCart(ctx)
				require.NoError(t, err)
				_, err = repo.UpsertItem(ctx, c.ID, "p1", 1)
				require.NoError(t, err)

				require.NoError(t, repo.DeleteCart(ctx, c.ID))
				require.ErrorIs(t, repo.DeleteCart(ctx, c.ID), ErrNotFound)

				_, err = repo.GetCart(ctx, c.ID)
				require.ErrorIs(t, err, ErrNotFound)
				_, err = repo.FindItem(ctx, c.ID, "p1")
				require.ErrorIs(t, err, ErrNotFound)
				_, err = repo.UpsertItem(ctx, c.ID, "p1", 1)
				require.ErrorIs(t, err, ErrNotFound)

				items, err := repo.ListItems(ctx, c.ID)
				require.NoError(t, err)
				assert.Empty(t, items)
			})

			t.Run("unknown cart", func(t *testing.T) {
				ctx := context.Background()
				repo := newRepo(t)
				const id = "3f0c8f46-6f1e-4d55-9a55-0e0f2f3b9c10"

				_, err := repo.GetCart(ctx, id)
				require.ErrorIs(t, err, ErrNotFound)
				_, err = repo.UpsertItem(ctx, id, "p1", 1)
				require.ErrorIs(t, err, ErrNotFound)
				require.ErrorIs(t, repo.RemoveItem(ctx, id, "p1"), ErrNotFound)
				require.ErrorIs(t, repo.DeleteCart(ctx, id), ErrNotFound)
			})

			t.Run("upsert rejects quantities past the maximum", func(t *testing.T) {
				ctx := context.Background()
				repo := newRepo(t)
				c, err := repo.CreateCart(ctx)
				require.NoError(t, err)

				_, err = repo.UpsertItem(ctx, c.ID, "p1", MaxQuantity)
				require.NoError(t, err)

				_, err = repo.UpsertItem(ctx, c.ID, "p1", 1)
				require.ErrorIs(t, err, ErrInvalidArgument)

				it, err := repo.FindItem(ctx, c.ID, "p1")
				require.NoError(t, err)
				assert.Equal(t, MaxQuantity, it.Quantity)

				_, err = repo.UpsertItem(ctx, c.ID, "p2", MaxQuantity+1)
				require.ErrorIs(t, err, ErrInvalidArgument)
				_, err = repo.FindItem(ctx, c.ID, "p2")
				require.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("concurrent upserts do not lose updates", func(t *testing.T) {
				ctx := context.Background()
				repo := newRepo(t)
				c, err := repo.CreateCart(ctx)
				require.NoError(t, err)

				const writers = 100
				var g errgroup.Group
				for i := 0; i < writers; i++ {
					g.Go(func() error {
						_, err := repo.UpsertItem(ctx, c.ID, "p1", 1)
						return err
					})
				}
				require.NoError(t, g.Wait())

				it, err := repo.FindItem(ctx, c.ID, "p1")
				require.NoError(t, err)
				assert.Equal(t, writers, it.Quantity)

				items, err := repo.ListItems(ctx, c.ID)
				require.NoError(t, err)
				assert.Len(t, items, 1)
			})

			t.Run("carts are independent", func(t *testing.T) {
				ctx := context.Background()
				repo := newRepo(t)
				a, err := repo.CreateCart(ctx)
				require.NoError(t, err)
				b, err := repo.CreateCart(ctx)
				require.NoError(t, err)

				var g errgroup.Group
				for i := 0; i < 20; i++ {
					g.Go(func() error {
						_, err := repo.UpsertItem(ctx, a.ID, "p1", 1)
						return err
					})
					g.Go(func() error {
						_, err := repo.UpsertItem(ctx, b.ID, "p1", 2)
						return err
					})
				}
				require.NoError(t, g.Wait())

				itA, err := repo.FindItem(ctx, a.ID, "p1")
				require.NoError(t, err)
				itB, err := repo.FindItem(ctx, b.ID, "p1")
				require.NoError(t, err)
				assert.Equal(t, 20, itA.Quantity)
				assert.Equal(t, 40, itB.Quantity)
			})
		})
	}
}

func TestService_ConcurrentAddItem(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	ctx := context.Background()
	svc := NewService(NewMemoryRepository(), newFakeProducts())

	c, err := svc.CreateCart(ctx)
	require.NoError(t, err)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 100; i++ {
		g.Go(func() error {
			_, err := svc.AddItem(gctx, c.ID, "shirt", 1)
			return err
		})
	}
	require.NoError(t, g.Wait())

	view, err := svc.GetCart(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 100, view.Items[0].Quantity)
	assert.Equal(t, "1999.00", view.TotalPrice.StringFixed(2))
}
