package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ruralmart/ruralmart-backend/pkg/enums"
)

// PaymentMethod names a way to pay (card, mobile money, bank transfer).
type PaymentMethod struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string    `gorm:"column:name;not null;unique"`
	Description *string   `gorm:"column:description"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Payment is one-to-one with an Order. Amount is copied from the order's
// total at creation and is not live-linked to the order afterwards.
type Payment struct {
	ID                   uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID               uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	OrderID              uuid.UUID           `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	PaymentMethodID      uuid.UUID           `gorm:"column:payment_method_id;type:uuid;not null"`
	PaymentMethod        *PaymentMethod      `gorm:"foreignKey:PaymentMethodID"`
	Amount               decimal.Decimal     `gorm:"column:amount;type:numeric(10,2);not null"`
	Status               enums.PaymentStatus `gorm:"column:status;not null;default:'pending'"`
	TransactionReference *string             `gorm:"column:transaction_reference;uniqueIndex"`
	PaymentGateway       *string             `gorm:"column:payment_gateway"`
	CreatedAt            time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// Transaction is an append-only record of one gateway decision for a payment.
// Rows are never mutated after creation.
type Transaction struct {
	ID              uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PaymentID       uuid.UUID               `gorm:"column:payment_id;type:uuid;not null;index"`
	TransactionID   string                  `gorm:"column:transaction_id;not null;unique"`
	Amount          decimal.Decimal         `gorm:"column:amount;type:numeric(10,2);not null"`
	Status          enums.TransactionStatus `gorm:"column:status;not null;default:'pending'"`
	GatewayResponse json.RawMessage         `gorm:"column:gateway_response;type:jsonb"`
	CreatedAt       time.Time               `gorm:"column:created_at;autoCreateTime"`
}
