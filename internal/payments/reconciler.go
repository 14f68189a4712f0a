package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ruralmart/ruralmart-backend/pkg/db/models"
	"github.com/ruralmart/ruralmart-backend/pkg/enums"
	pkgerrors "github.com/ruralmart/ruralmart-backend/pkg/errors"
	"github.com/ruralmart/ruralmart-backend/pkg/money"
	"github.com/ruralmart/ruralmart-backend/pkg/paystack"
)

// HandleWebhook reconciles an asynchronous gateway notification. Deliveries
// are deduplicated twice: a short-circuit redis guard keyed by the event, and
// the terminal-state check inside resolve for anything that slips past it.
func (s *service) HandleWebhook(ctx context.Context, event WebhookEvent) (WebhookDisposition, error) {
	if strings.TrimSpace(event.Event) == "" {
		return WebhookIgnored, pkgerrors.New(pkgerrors.CodeValidation, "webhook missing event type")
	}
	reference := strings.TrimSpace(event.Data.Reference)
	if reference == "" {
		return WebhookIgnored, pkgerrors.New(pkgerrors.CodeValidation, "webhook missing transaction reference")
	}
	outcome, ok := outcomeFromEvent(event.Event)
	if !ok {
		s.metrics.IncWebhook(string(WebhookIgnored))
		return WebhookIgnored, nil
	}

	payment, err := s.repo.FindByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return WebhookIgnored, pkgerrors.New(pkgerrors.CodeNotFound, "no payment matches transaction reference")
		}
		return WebhookIgnored, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment by reference")
	}

	// The guard runs after the lookup so unknown references never consume a
	// dedup slot; a redelivery after the payment is created must still apply.
	eventKey := s.guard.IdempotencyKey("webhook", fmt.Sprintf("%s:%d:%s", event.Event, event.Data.ID, reference))
	fresh, err := s.guard.SetNX(ctx, eventKey, "1", s.idempotencyTTL)
	if err != nil {
		return WebhookIgnored, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "webhook idempotency check")
	}
	if !fresh {
		s.metrics.IncWebhook(string(WebhookDuplicate))
		return WebhookDuplicate, nil
	}

	raw, err := json.Marshal(event)
	if err != nil {
		s.releaseGuard(ctx, eventKey)
		return WebhookIgnored, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal webhook payload")
	}

	disposition, err := s.resolve(ctx, payment, outcome, money.FromSubunits(event.Data.Amount), raw, "webhook")
	if err != nil {
		// Give the slot back on failure so the gateway's retry of this
		// exact delivery can still apply; the terminal-state check in
		// resolve remains the replay defense.
		s.releaseGuard(ctx, eventKey)
		return WebhookIgnored, err
	}
	s.metrics.IncWebhook(string(disposition))
	return disposition, nil
}

// releaseGuard frees a dedup slot. Best effort: if the delete fails the
// slot expires with its TTL and the event is delayed, not lost.
func (s *service) releaseGuard(ctx context.Context, key string) {
	_ = s.guard.Del(ctx, key)
}

// resolve moves a pending payment to a terminal status and appends exactly
// one transaction row, all in one database transaction. Replays against an
// already-terminal payment are no-ops when the outcome matches and a state
// conflict when it contradicts the recorded one.
func (s *service) resolve(
	ctx context.Context,
	payment *models.Payment,
	outcome paystack.ChargeOutcome,
	amount decimal.Decimal,
	rawPayload json.RawMessage,
	source string,
) (WebhookDisposition, error) {
	target := enums.PaymentStatusFailed
	txnStatus := enums.TransactionStatusFailed
	if outcome == paystack.OutcomeSuccess {
		// A success claim must match the charged amount; a mismatch is
		// recorded as a failure, never silently completed.
		if amount.Equal(payment.Amount) {
			target = enums.PaymentStatusCompleted
			txnStatus = enums.TransactionStatusCompleted
		}
	}

	if payment.Status.IsTerminal() {
		if payment.Status == target {
			return WebhookDuplicate, nil
		}
		return WebhookIgnored, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("payment already %s, cannot record %s", payment.Status, target))
	}

	reference := ""
	if payment.TransactionReference != nil {
		reference = *payment.TransactionReference
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := repo.FindByID(ctx, payment.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload payment")
		}
		if current.Status.IsTerminal() {
			if current.Status == target {
				return nil
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("payment already %s, cannot record %s", current.Status, target))
		}

		if err := repo.UpdatePayment(ctx, payment.ID, map[string]any{"status": target}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
		}

		if _, err := repo.CreateTransaction(ctx, &models.Transaction{
			ID:              uuid.New(),
			PaymentID:       payment.ID,
			TransactionID:   reference,
			Amount:          amount,
			Status:          txnStatus,
			GatewayResponse: rawPayload,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append transaction")
		}

		if target == enums.PaymentStatusCompleted {
			ordersRepo := s.orders.WithTx(tx)
			if err := ordersRepo.UpdateStatus(ctx, payment.OrderID, enums.OrderStatusProcessing); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance order status")
			}
		}
		return nil
	})
	if err != nil {
		return WebhookIgnored, err
	}

	payment.Status = target
	s.metrics.IncResolved(string(target), source)
	return WebhookApplied, nil
}

func outcomeFromEvent(event string) (paystack.ChargeOutcome, bool) {
	switch event {
	case "charge.success":
		return paystack.OutcomeSuccess, true
	case "charge.failed":
		return paystack.OutcomeFailed, true
	default:
		return "", false
	}
}
