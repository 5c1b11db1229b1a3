package httpapi

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/cart-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/cart-service-go/internal/catalog"
)

// money renders as a string with exactly two decimals, e.g. "59.97".
type money string

func newMoney(d decimal.Decimal) money { return money(d.StringFixed(2)) }

type cartResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

type productSummaryResponse struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Price money  `json:"price"`
}

type lineResponse struct {
	ID         int64                  `json:"id"`
	ProductID  string                 `json:"productId"`
	Product    productSummaryResponse `json:"product"`
	Quantity   int                    `json:"quantity"`
	TotalPrice money                  `json:"totalPrice"`
}

type cartViewResponse struct {
	ID         string         `json:"id"`
	CreatedAt  time.Time      `json:"createdAt"`
	Items      []lineResponse `json:"items"`
	TotalPrice money          `json:"totalPrice"`
}

type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

type productRequest struct {
	Title       string          `json:"title"`
	Slug        string          `json:"slug"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Inventory   int             `json:"inventory"`
}

type productResponse struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Slug         string    `json:"slug"`
	Description  string    `json:"description"`
	Price        money     `json:"price"`
	PriceWithTax money     `json:"priceWithTax"`
	Inventory    int       `json:"inventory"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type errorResponse struct {
	Error         string `json:"error"`
	CorrelationID string `json:"correlationId,omitempty"`
}

func toCartResponse(c cart.Cart) cartResponse {
	return cartResponse{ID: c.ID, CreatedAt: c.CreatedAt}
}

func toLineResponse(l cart.Line) lineResponse {
	return lineResponse{
		ID:        l.ID,
		ProductID: l.ProductID,
		Product: productSummaryResponse{
			ID:    l.Product.ID,
			Title: l.Product.Title,
			Price: newMoney(l.Product.Price),
		},
		Quantity:   l.Quantity,
		TotalPrice: newMoney(l.TotalPrice),
	}
}

func toLineResponses(lines []cart.Line) []lineResponse {
	out := make([]lineResponse, 0, len(lines))
	for _, l := range lines {
		out = append(out, toLineResponse(l))
	}
	return out
}

func toCartViewResponse(v cart.View) cartViewResponse {
	return cartViewResponse{
		ID:         v.ID,
		CreatedAt:  v.CreatedAt,
		Items:      toLineResponses(v.Items),
		TotalPrice: newMoney(v.TotalPrice),
	}
}

func toProductResponse(p catalog.Product) productResponse {
	return productResponse{
		ID:           p.ID,
		Title:        p.Title,
		Slug:         p.Slug,
		Description:  p.Description,
		Price:        newMoney(p.Price),
		PriceWithTax: newMoney(p.PriceWithTax()),
		Inventory:    p.Inventory,
		UpdatedAt:    p.UpdatedAt,
	}
}
