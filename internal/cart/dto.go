package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AddItemInput adds (or tops up) a product in the cart.
type AddItemInput struct {
	ProductID string `json:"product_id" validate:"required,uuid4"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// UpdateItemInput replaces the quantity of a cart line.
type UpdateItemInput struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

// ItemView is one cart line priced at the live catalog price.
type ItemView struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// View is the cart with its folded total. The total is never stored; it is
// recomputed from current catalog prices on every read.
type View struct {
	ID    uuid.UUID       `json:"id"`
	Items []ItemView      `json:"items"`
	Total decimal.Decimal `json:"total"`
}
