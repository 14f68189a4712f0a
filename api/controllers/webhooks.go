package controllers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/ruralmart/ruralmart-backend/api/responses"
	"github.com/ruralmart/ruralmart-backend/internal/payments"
	pkgerrors "github.com/ruralmart/ruralmart-backend/pkg/errors"
	"github.com/ruralmart/ruralmart-backend/pkg/logger"
)

const paystackSignatureHeader = "x-paystack-signature"

type signatureVerifier interface {
	VerifySignature(body []byte, signature string) bool
}

// PaystackWebhook accepts gateway charge events. The body signature is checked
// before anything is parsed; duplicate and out-of-order deliveries are
// acknowledged without side effects so the gateway stops retrying.
func PaystackWebhook(svc payments.Service, verifier signatureVerifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil || verifier == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook handler unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		signature := r.Header.Get(paystackSignatureHeader)
		if !verifier.VerifySignature(payload, signature) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature"))
			return
		}

		var event payments.WebhookEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode event"))
			return
		}

		disposition, err := svc.HandleWebhook(ctx, event)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": string(disposition)})
	}
}
