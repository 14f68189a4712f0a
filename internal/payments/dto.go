package payments

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ruralmart/ruralmart-backend/pkg/db/models"
	"github.com/ruralmart/ruralmart-backend/pkg/enums"
)

// CreateInput starts a payment for an order.
type CreateInput struct {
	OrderID         string `json:"order_id" validate:"required,uuid4"`
	PaymentMethodID string `json:"payment_method_id" validate:"required,uuid4"`
}

// Response is the payment shape returned to clients.
type Response struct {
	ID                   uuid.UUID           `json:"id"`
	OrderID              uuid.UUID           `json:"order_id"`
	PaymentMethodID      uuid.UUID           `json:"payment_method_id"`
	Amount               decimal.Decimal     `json:"amount"`
	Status               enums.PaymentStatus `json:"status"`
	TransactionReference *string             `json:"transaction_reference,omitempty"`
	PaymentGateway       *string             `json:"payment_gateway,omitempty"`
	AuthorizationURL     string              `json:"authorization_url,omitempty"`
	CreatedAt            time.Time           `json:"created_at"`
}

// TransactionResponse is one append-only gateway decision record.
type TransactionResponse struct {
	ID              uuid.UUID               `json:"id"`
	TransactionID   string                  `json:"transaction_id"`
	Amount          decimal.Decimal         `json:"amount"`
	Status          enums.TransactionStatus `json:"status"`
	GatewayResponse json.RawMessage         `json:"gateway_response,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
}

// MethodResponse is a supported payment method.
type MethodResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
}

// WebhookEvent is the gateway's webhook envelope.
type WebhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		ID        int64  `json:"id"`
		Reference string `json:"reference"`
		Status    string `json:"status"`
		Amount    int64  `json:"amount"`
		PaidAt    string `json:"paid_at"`
		Channel   string `json:"channel"`
	} `json:"data"`
}

// WebhookDisposition reports what a webhook delivery did.
type WebhookDisposition string

const (
	WebhookApplied   WebhookDisposition = "applied"
	WebhookDuplicate WebhookDisposition = "duplicate"
	WebhookIgnored   WebhookDisposition = "ignored"
)

func responseFromModel(payment *models.Payment) Response {
	return Response{
		ID:                   payment.ID,
		OrderID:              payment.OrderID,
		PaymentMethodID:      payment.PaymentMethodID,
		Amount:               payment.Amount,
		Status:               payment.Status,
		TransactionReference: payment.TransactionReference,
		PaymentGateway:       payment.PaymentGateway,
		CreatedAt:            payment.CreatedAt,
	}
}
