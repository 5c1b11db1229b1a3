package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/andreasstove999/ecommerce-system/cart-service-go/internal/correlation"
)

type RouterOptions struct {
	Logger           *slog.Logger
	RequestTimeout   time.Duration
	CORSAllowOrigins []string
}

func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	logger := logDefault(opts.Logger)
	origins := opts.CORSAllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(CorrelationID)
	r.Use(RequestLogger(logger))
	r.Use(Recover(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", correlation.Header},
		ExposedHeaders: []string{correlation.Header, "Location"},
		MaxAge:         300,
	}))
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}

	r.Get("/health", h.Health)

	r.Route("/api/carts", func(r chi.Router) {
		r.Post("/", h.CreateCart)
		r.Route("/{cartId}", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.DeleteCart)

			r.Get("/items", h.ListItems)
			r.Post("/items", h.AddItem)
			r.Get("/items/{productId}", h.GetItem)
			r.Patch("/items/{productId}", h.UpdateItem)
			r.Delete("/items/{productId}", h.RemoveItem)
		})
	})

	r.Route("/api/products", func(r chi.Router) {
		r.Get("/{productId}", h.GetProduct)
		r.Put("/{productId}", h.PutProduct)
	})

	return r
}
