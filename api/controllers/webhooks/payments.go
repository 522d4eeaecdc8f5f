package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/LucasBenitez7/acme-commerce-starter-sub000/api/responses"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/api/validators"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/internal/payments"
	pkgerrors "github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/errors"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/logger"
)

const paymentSignatureHeader = "X-Payment-Signature"

type PaymentWebhookService interface {
	HandleEvent(ctx context.Context, event *payments.Event) error
}

type paymentWebhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

// PaymentWebhook receives signed paid/not_paid signals from the payment provider.
func PaymentWebhook(svc PaymentWebhookService, secret string, guard paymentWebhookGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		payload, err := io.ReadAll(validators.LimitBody(w, r))
		if err != nil {
			if tooLarge := validators.BodyTooLarge(err); tooLarge != nil {
				responses.WriteError(ctx, logg, w, tooLarge)
				return
			}
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		sigHeader := strings.TrimSpace(r.Header.Get(paymentSignatureHeader))
		if sigHeader == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "payment signature missing"))
			return
		}
		if !validatePaymentSignature(payload, secret, sigHeader) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid payment signature"))
			return
		}

		var event payments.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode event"))
			return
		}

		eventID := strings.TrimSpace(event.EventID)
		if eventID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "event id is required"))
			return
		}

		alreadyProcessed, err := guard.CheckAndMark(ctx, eventID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if alreadyProcessed {
			responses.WriteSuccess(w, nil)
			return
		}

		if err := svc.HandleEvent(ctx, &event); err != nil {
			_ = guard.Delete(ctx, eventID)
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(logg.WithField(ctx, "payment_event_id", eventID), "payment event processed")
		}
		responses.WriteSuccess(w, nil)
	}
}

func validatePaymentSignature(payload []byte, secret, header string) bool {
	if header == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(header)))
}
