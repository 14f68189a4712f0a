package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ruralmart/ruralmart-backend/pkg/enums"
)

// AddItemInput adds a product to a pending order.
type AddItemInput struct {
	ProductID string `json:"product_id" validate:"required,uuid4"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// UpdateItemInput replaces the quantity of an order item.
type UpdateItemInput struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

// ListFilters describe the inputs supported by the order list.
type ListFilters struct {
	Status *enums.OrderStatus
}

// ItemResponse is an order line with its frozen unit price.
type ItemResponse struct {
	ID         uuid.UUID       `json:"id"`
	ProductID  uuid.UUID       `json:"product_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// Response is the order shape returned to clients.
type Response struct {
	ID          uuid.UUID         `json:"id"`
	UserID      uuid.UUID         `json:"user_id"`
	Status      enums.OrderStatus `json:"status"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
	Items       []ItemResponse    `json:"items"`
	CreatedAt   time.Time         `json:"created_at"`
}

// List wraps the paginated orders plus the next page cursor.
type List struct {
	Orders     []Response `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}
