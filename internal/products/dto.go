package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateProductInput captures the fields accepted when adding a catalog entry.
type CreateProductInput struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Description string  `json:"description" validate:"required,max=2000"`
	Price       string  `json:"price" validate:"required"`
	ImageURL    *string `json:"image_url" validate:"omitempty,url"`
	CategoryID  string  `json:"category_id" validate:"required,uuid4"`
}

// UpdateProductInput carries partial updates; nil fields are left unchanged.
type UpdateProductInput struct {
	Name        *string `json:"name" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Price       *string `json:"price"`
	ImageURL    *string `json:"image_url" validate:"omitempty,url"`
	CategoryID  *string `json:"category_id" validate:"omitempty,uuid4"`
}

// ListFilters describe the inputs supported by the product list.
type ListFilters struct {
	CategoryID *uuid.UUID
	Query      string
}

// ProductResponse is the catalog shape returned to clients.
type ProductResponse struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    *string         `json:"image_url,omitempty"`
	CategoryID  uuid.UUID       `json:"category_id"`
	Category    *string         `json:"category,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ProductList wraps the paginated products plus the next page cursor.
type ProductList struct {
	Products   []ProductResponse `json:"products"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

// CreateCategoryInput names a new category.
type CreateCategoryInput struct {
	Name string `json:"name" validate:"required,max=100"`
}

// CategoryResponse is the category shape returned to clients.
type CategoryResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}
