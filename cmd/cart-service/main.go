package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andreasstove999/ecommerce-system/cart-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/cart-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/cart-service-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/cart-service-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/cart-service-go/internal/events"
	httpapi "github.com/andreasstove999/ecommerce-system/cart-service-go/internal/http"
	"github.com/andreasstove999/ecommerce-system/cart-service-go/internal/logging"
	"github.com/andreasstove999/ecommerce-system/cart-service-go/internal/sequence"
)

func main() {
	cfg := config.Load()
	logger := logging.New(logging.Options{
		Service: cfg.ServiceName,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
	})

	if err := run(cfg, logger); err != nil {
		logger.Error("cart-service stopped", "err", err)
		os.Exit(1)
	}
}

type storage struct {
	carts    cart.Repository
	products catalog.Store
	// seq is nil unless events can be sequenced in Postgres.
	seq     events.Sequencer
	closers []func() error
}

func (s *storage) Close(logger *slog.Logger) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			logger.Warn("close storage", "err", err)
		}
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close(logger)

	opts := []cart.Option{cart.WithLogger(logger)}
	if cfg.PublishEvents {
		conn, err := events.Dial(cfg.RabbitMQURL)
		if err != nil {
			return err
		}
		defer conn.Close()

		pub, err := events.NewPublisher(conn, events.PublisherOptions{
			Producer:  cfg.ServiceName,
			Sequencer: st.seq,
		})
		if err != nil {
			return fmt.Errorf("create cart publisher: %w", err)
		}
		defer func() {
			if err := pub.Close(); err != nil {
				logger.Warn("publisher close error", "err", err)
			}
		}()
		opts = append(opts, cart.WithPublisher(pub))
	}

	products := catalog.NewCoalescing(st.products)
	svc := cart.NewService(st.carts, catalog.NewCartLookup(products), opts...)
	router := httpapi.NewRouter(httpapi.NewHandler(svc, products, logger), httpapi.RouterOptions{
		Logger:           logger,
		RequestTimeout:   cfg.RequestTimeout,
		CORSAllowOrigins: cfg.CORSAllowOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("cart-service listening", "addr", cfg.HTTPAddr, "storage", cfg.StorageDriver, "events", cfg.PublishEvents)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown error", "err", err)
	}
	return nil
}

func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (*storage, error) {
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		return openPostgres(ctx, cfg, logger)
	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		return &storage{
			carts:    cart.NewRedisRepository(client),
			products: catalog.NewRedisStore(client),
			closers:  []func() error{client.Close},
		}, nil
	default:
		logger.Warn("using in-memory storage; carts are lost on restart")
		return &storage{
			carts:    cart.NewMemoryRepository(),
			products: catalog.NewMemoryStore(),
		}, nil
	}
}

func openPostgres(ctx context.Context, cfg config.Config, logger *slog.Logger) (*storage, error) {
	sqlDB, err := db.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.RunMigrations {
		if err := db.RunMigrations(sqlDB, logger); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("open pool: %w", err)
	}

	return &storage{
		carts:    cart.NewPostgresRepository(pool),
		products: catalog.NewPostgresStore(pool),
		seq:      sequence.NewRepository(sqlDB),
		closers: []func() error{
			sqlDB.Close,
			func() error { pool.Close(); return nil },
		},
	}, nil
}
