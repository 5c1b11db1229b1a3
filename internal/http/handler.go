package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/andreasstove999/ecommerce-system/cart-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/cart-service-go/internal/catalog"
)

type Handler struct {
	carts    *cart.Service
	products catalog.Store
	logger   *slog.Logger
}

func NewHandler(carts *cart.Service, products catalog.Store, logger *slog.Logger) *Handler {
	return &Handler{carts: carts, products: products, logger: logDefault(logger)}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) CreateCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.CreateCart(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/carts/"+c.ID)
	writeJSON(w, http.StatusCreated, toCartResponse(c))
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	v, err := h.carts.GetCart(r.Context(), chi.URLParam(r, "cartId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartViewResponse(v))
}

func (h *Handler) DeleteCart(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.DeleteCart(r.Context(), chi.URLParam(r, "cartId")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	lines, err := h.carts.ListItems(r.Context(), chi.URLParam(r, "cartId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLineResponses(lines))
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	line, err := h.carts.AddItem(r.Context(), chi.URLParam(r, "cartId"), req.ProductID, req.Quantity)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLineResponse(line))
}

func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	line, err := h.carts.GetItem(r.Context(), chi.URLParam(r, "cartId"), chi.URLParam(r, "productId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLineResponse(line))
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	line, err := h.carts.UpdateItemQuantity(r.Context(), chi.URLParam(r, "cartId"), chi.URLParam(r, "productId"), req.Quantity)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLineResponse(line))
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.RemoveItem(r.Context(), chi.URLParam(r, "cartId"), chi.URLParam(r, "productId")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetProduct(r.Context(), chi.URLParam(r, "productId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(p))
}

// PutProduct creates or replaces a product. The slug is derived from the
// title when the request leaves it empty.
func (h *Handler) PutProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	p, err := h.products.UpsertProduct(r.Context(), catalog.Product{
		ID:          chi.URLParam(r, "productId"),
		Title:       req.Title,
		Slug:        req.Slug,
		Description: req.Description,
		Price:       req.Price,
		Inventory:   req.Inventory,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(p))
}
