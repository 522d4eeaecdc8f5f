package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/LucasBenitez7/acme-commerce-starter-sub000/api/validators"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/internal/payments"
	pkgerrors "github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/errors"
)

const testSecret = "whsec_test"

func TestPaymentWebhook_SuccessAndIdempotent(t *testing.T) {
	payload := buildPaymentEvent(t, "evt_1", payments.StatusPaid)
	service := &fakePaymentService{}
	handler := PaymentWebhook(service, testSecret, newGuard(t), nil)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, signedRequest(payload, sign(payload, testSecret)))
		if rec.Code != http.StatusOK {
			t.Fatalf("delivery %d: expected 200, got %d (%s)", i, rec.Code, rec.Body.String())
		}
	}
	if service.calls != 1 {
		t.Fatalf("duplicate should not reach the service, got %d calls", service.calls)
	}
	if service.last.Status != payments.StatusPaid {
		t.Fatalf("unexpected status %s", service.last.Status)
	}
}

func TestPaymentWebhook_InvalidSignature(t *testing.T) {
	payload := buildPaymentEvent(t, "evt_2", payments.StatusPaid)
	service := &fakePaymentService{}
	handler := PaymentWebhook(service, testSecret, newGuard(t), nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, signedRequest(payload, sign(payload, "other-secret")))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid signature, got %d", rec.Code)
	}

	missing := httptest.NewRecorder()
	handler.ServeHTTP(missing, signedRequest(payload, ""))
	if missing.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for missing signature, got %d", missing.Code)
	}
	if service.calls != 0 {
		t.Fatalf("service should not be invoked on invalid signature")
	}
}

func TestPaymentWebhook_FailureReleasesEventForRetry(t *testing.T) {
	payload := buildPaymentEvent(t, "evt_3", payments.StatusPaid)
	service := &fakePaymentService{err: pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("db down"), "mark paid")}
	handler := PaymentWebhook(service, testSecret, newGuard(t), nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, signedRequest(payload, sign(payload, testSecret)))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	service.err = nil
	retry := httptest.NewRecorder()
	handler.ServeHTTP(retry, signedRequest(payload, sign(payload, testSecret)))
	if retry.Code != http.StatusOK {
		t.Fatalf("expected retry to succeed, got %d", retry.Code)
	}
	if service.calls != 2 {
		t.Fatalf("expected two service calls, got %d", service.calls)
	}
}

func TestPaymentWebhook_RejectsMalformedPayload(t *testing.T) {
	payload := []byte(`{"eventId":`)
	handler := PaymentWebhook(&fakePaymentService{}, testSecret, newGuard(t), nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, signedRequest(payload, sign(payload, testSecret)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func buildPaymentEvent(t *testing.T, eventID string, status payments.Status) []byte {
	t.Helper()
	payload, err := json.Marshal(payments.Event{EventID: eventID, OrderID: uuid.New(), Status: status})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return payload
}

func sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func signedRequest(payload []byte, signature string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set(paymentSignatureHeader, signature)
	}
	return req
}

func newGuard(t *testing.T) *payments.IdempotencyGuard {
	t.Helper()
	guard, err := payments.NewIdempotencyGuard(newInMemoryStore(), time.Minute, "payments-webhook")
	if err != nil {
		t.Fatalf("guard setup: %v", err)
	}
	return guard
}

type fakePaymentService struct {
	calls int
	last  payments.Event
	err   error
}

func (f *fakePaymentService) HandleEvent(ctx context.Context, event *payments.Event) error {
	f.calls++
	f.last = *event
	return f.err
}

type inMemoryStore struct {
	values map[string]string
}

func newInMemoryStore() *inMemoryStore {
	return &inMemoryStore{values: map[string]string{}}
}

func (s *inMemoryStore) Get(ctx context.Context, key string) (string, error) {
	if v, ok := s.values[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (s *inMemoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := s.values[key]; ok {
		return false, nil
	}
	s.values[key] = fmt.Sprint(value)
	return true, nil
}

func (s *inMemoryStore) IdempotencyKey(scope, id string) string {
	return scope + ":" + id
}

func (s *inMemoryStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

func TestPaymentWebhook_OversizedPayloadIsNotASignatureFailure(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), validators.MaxBodyBytes+1)
	service := &fakePaymentService{}
	handler := PaymentWebhook(service, testSecret, newGuard(t), nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, signedRequest(payload, sign(payload, testSecret)))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 for oversized payload, got %d (%s)", rec.Code, rec.Body.String())
	}
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.Error.Code != string(pkgerrors.CodePayloadTooLarge) {
		t.Fatalf("expected %s, got %s", pkgerrors.CodePayloadTooLarge, body.Error.Code)
	}
	if service.calls != 0 {
		t.Fatalf("service should not be invoked on oversized payload")
	}
}
