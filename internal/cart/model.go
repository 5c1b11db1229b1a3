package cart

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

type Cart struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

// MaxQuantity is the largest quantity an item may hold; it matches the
// INTEGER column in Postgres.
const MaxQuantity = math.MaxInt32

// Item is one (product, quantity) line as stored. Quantity is always >= 1.
type Item struct {
	ID        int64  `json:"id"`
	CartID    string `json:"cartId"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type ProductSummary struct {
	ID    string
	Title string
	Price decimal.Decimal
}

// Line is an item resolved against the catalog at read time.
type Line struct {
	Item
	Product    ProductSummary
	TotalPrice decimal.Decimal
}

type View struct {
	ID         string
	CreatedAt  time.Time
	Items      []Line
	TotalPrice decimal.Decimal
}
