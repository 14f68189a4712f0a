package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ruralmart/ruralmart-backend/internal/orders"
	"github.com/ruralmart/ruralmart-backend/internal/users"
	"github.com/ruralmart/ruralmart-backend/pkg/db/models"
	"github.com/ruralmart/ruralmart-backend/pkg/enums"
	pkgerrors "github.com/ruralmart/ruralmart-backend/pkg/errors"
	"github.com/ruralmart/ruralmart-backend/pkg/metrics"
	"github.com/ruralmart/ruralmart-backend/pkg/paystack"
)

const gatewayName = "paystack"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type gateway interface {
	Initialize(ctx context.Context, req paystack.InitializeRequest) (*paystack.InitializeResult, error)
	Verify(ctx context.Context, reference string) (*paystack.VerifyResult, error)
}

type idempotencyGuard interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
	Del(ctx context.Context, keys ...string) error
}

// Service owns the payment lifecycle: creation, gateway initialization, and
// reconciliation of gateway outcomes from both verify calls and webhooks.
type Service interface {
	CreatePayment(ctx context.Context, userID uuid.UUID, input CreateInput) (*Response, error)
	InitializePayment(ctx context.Context, userID, paymentID uuid.UUID) (*Response, error)
	VerifyPayment(ctx context.Context, userID, paymentID uuid.UUID) (*Response, error)
	GetPayment(ctx context.Context, userID, paymentID uuid.UUID) (*Response, error)
	ListTransactions(ctx context.Context, userID, paymentID uuid.UUID) ([]TransactionResponse, error)
	ListMethods(ctx context.Context) ([]MethodResponse, error)
	HandleWebhook(ctx context.Context, event WebhookEvent) (WebhookDisposition, error)
}

type service struct {
	repo           Repository
	orders         orders.Repository
	users          users.Repository
	gateway        gateway
	guard          idempotencyGuard
	tx             txRunner
	metrics        *metrics.PaymentMetrics
	idempotencyTTL time.Duration
}

// NewService builds the payments service with the required dependencies.
// The metrics recorder may be nil.
func NewService(
	repo Repository,
	ordersRepo orders.Repository,
	usersRepo users.Repository,
	gw gateway,
	guard idempotencyGuard,
	tx txRunner,
	recorder *metrics.PaymentMetrics,
	idempotencyTTL time.Duration,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if usersRepo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if gw == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if guard == nil {
		return nil, fmt.Errorf("idempotency guard required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if idempotencyTTL <= 0 {
		idempotencyTTL = 72 * time.Hour
	}
	return &service{
		repo:           repo,
		orders:         ordersRepo,
		users:          usersRepo,
		gateway:        gw,
		guard:          guard,
		tx:             tx,
		metrics:        recorder,
		idempotencyTTL: idempotencyTTL,
	}, nil
}

// CreatePayment records a pending payment for the order, copying the order
// total at this moment, then attempts gateway initialization. A gateway
// failure does not roll the payment back: the row stays pending without a
// reference and can be re-initialized later.
func (s *service) CreatePayment(ctx context.Context, userID uuid.UUID, input CreateInput) (*Response, error) {
	orderID, err := uuid.Parse(input.OrderID)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id")
	}
	methodID, err := uuid.Parse(input.PaymentMethodID)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method id")
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order in status %s cannot be paid", order.Status))
	}
	if !order.TotalAmount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order total must be positive")
	}

	if _, err := s.repo.FindByOrderID(ctx, orderID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order already has a payment")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup existing payment")
	}

	if _, err := s.repo.FindPaymentMethodByID(ctx, methodID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment method not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment method")
	}

	gw := gatewayName
	payment := &models.Payment{
		ID:              uuid.New(),
		UserID:          userID,
		OrderID:         orderID,
		PaymentMethodID: methodID,
		Amount:          order.TotalAmount,
		Status:          enums.PaymentStatusPending,
		PaymentGateway:  &gw,
	}
	if _, err := s.repo.CreatePayment(ctx, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
	}

	return s.initialize(ctx, payment)
}

// InitializePayment retries gateway initialization for a pending payment
// that has no usable checkout session yet.
func (s *service) InitializePayment(ctx context.Context, userID, paymentID uuid.UUID) (*Response, error) {
	payment, err := s.loadOwnedPayment(ctx, userID, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != enums.PaymentStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("payment in status %s cannot be initialized", payment.Status))
	}
	return s.initialize(ctx, payment)
}

func (s *service) initialize(ctx context.Context, payment *models.Payment) (*Response, error) {
	user, err := s.users.FindByID(ctx, payment.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payer")
	}

	result, err := s.gateway.Initialize(ctx, paystack.InitializeRequest{
		Email:    user.Email,
		Amount:   payment.Amount,
		OrderRef: payment.OrderID.String(),
	})
	if err != nil {
		// The payment survives: it stays pending without a reference and the
		// caller can retry initialization.
		resp := responseFromModel(payment)
		return &resp, err
	}

	if err := s.repo.UpdatePayment(ctx, payment.ID, map[string]any{
		"transaction_reference": result.Reference,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store gateway reference")
	}
	payment.TransactionReference = &result.Reference

	resp := responseFromModel(payment)
	resp.AuthorizationURL = result.AuthorizationURL
	return &resp, nil
}

// VerifyPayment asks the gateway for the charge state and reconciles the
// answer into the payment. A charge the customer has not completed yet leaves
// the payment pending and appends nothing.
func (s *service) VerifyPayment(ctx context.Context, userID, paymentID uuid.UUID) (*Response, error) {
	payment, err := s.loadOwnedPayment(ctx, userID, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.TransactionReference == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment has no gateway reference yet")
	}

	result, err := s.gateway.Verify(ctx, *payment.TransactionReference)
	if err != nil {
		return nil, err
	}

	switch result.Outcome {
	case paystack.OutcomeSuccess, paystack.OutcomeFailed:
		if _, err := s.resolve(ctx, payment, result.Outcome, result.Amount, result.RawPayload, "verify"); err != nil {
			return nil, err
		}
	default:
		// Abandoned or still awaiting the customer: no state change and no
		// transaction row.
	}

	return s.GetPayment(ctx, userID, paymentID)
}

func (s *service) GetPayment(ctx context.Context, userID, paymentID uuid.UUID) (*Response, error) {
	payment, err := s.loadOwnedPayment(ctx, userID, paymentID)
	if err != nil {
		return nil, err
	}
	resp := responseFromModel(payment)
	return &resp, nil
}

func (s *service) ListTransactions(ctx context.Context, userID, paymentID uuid.UUID) ([]TransactionResponse, error) {
	if _, err := s.loadOwnedPayment(ctx, userID, paymentID); err != nil {
		return nil, err
	}

	rows, err := s.repo.ListTransactionsByPayment(ctx, paymentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}
	out := make([]TransactionResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, TransactionResponse{
			ID:              row.ID,
			TransactionID:   row.TransactionID,
			Amount:          row.Amount,
			Status:          row.Status,
			GatewayResponse: row.GatewayResponse,
			CreatedAt:       row.CreatedAt,
		})
	}
	return out, nil
}

func (s *service) ListMethods(ctx context.Context) ([]MethodResponse, error) {
	rows, err := s.repo.ListPaymentMethods(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payment methods")
	}
	out := make([]MethodResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, MethodResponse{ID: row.ID, Name: row.Name, Description: row.Description})
	}
	return out, nil
}

func (s *service) loadOwnedPayment(ctx context.Context, userID, paymentID uuid.UUID) (*models.Payment, error) {
	payment, err := s.repo.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if payment.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payment does not belong to user")
	}
	return payment, nil
}
