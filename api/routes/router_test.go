package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LucasBenitez7/acme-commerce-starter-sub000/internal/orders"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/internal/payments"
	pkgAuth "github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/auth"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/config"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/db/models"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/enums"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/logger"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/metrics"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubOrders struct {
	orders.Service
	markPaidCalls int
}

func (s *stubOrders) MarkPaid(ctx context.Context, caller orders.Caller, orderID uuid.UUID) (*models.Order, error) {
	s.markPaidCalls++
	return &models.Order{ID: orderID, Status: enums.OrderStatusPaid, Currency: enums.CurrencyEUR}, nil
}

func (s *stubOrders) GetOrder(ctx context.Context, caller orders.Caller, orderID uuid.UUID) (*orders.OrderView, error) {
	return orders.NewOrderView(&models.Order{ID: orderID, Status: enums.OrderStatusPendingPayment, Currency: enums.CurrencyEUR}, caller.Role), nil
}

type stubPayments struct{}

func (stubPayments) HandleEvent(ctx context.Context, event *payments.Event) error {
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:      config.AppConfig{Env: "dev", CORSOrigins: []string{"http://localhost:3000"}},
		JWT:      config.JWTConfig{Secret: "secret", Issuer: "acme-commerce", ExpirationMinutes: 10},
		Payments: config.PaymentsConfig{WebhookSecret: "whsec"},
	}
}

type memoryStore struct {
	values map[string]string
}

func (m *memoryStore) Get(ctx context.Context, key string) (string, error) {
	if v, ok := m.values[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = "1"
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return scope + ":" + id
}

func (m *memoryStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func newTestRouter(t *testing.T, svc orders.Service) (http.Handler, *config.Config) {
	t.Helper()
	cfg := testConfig()
	registry := prometheus.NewRegistry()
	metrics.NewOrderTransitionMetrics(registry)
	guard, err := payments.NewIdempotencyGuard(&memoryStore{values: map[string]string{}}, time.Hour, "payments-webhook")
	require.NoError(t, err)
	return NewRouter(cfg, logger.Nop(), stubPinger{}, nil, svc, stubPayments{}, guard, registry), cfg
}

func bearer(t *testing.T, cfg *config.Config, payload pkgAuth.AccessTokenPayload) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), payload)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestHealthRoutes(t *testing.T) {
	router, _ := newTestRouter(t, &stubOrders{})

	for _, path := range []string{"/health/live", "/health/ready"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestMetricsRoute(t *testing.T) {
	router, _ := newTestRouter(t, &stubOrders{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOrderRoutesRequireToken(t *testing.T) {
	router, _ := newTestRouter(t, &stubOrders{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOrderDetailRoute(t *testing.T) {
	router, cfg := newTestRouter(t, &stubOrders{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+uuid.NewString(), nil)
	req.Header.Set("Authorization", bearer(t, cfg, pkgAuth.AccessTokenPayload{Email: "guest@example.com", Role: enums.CallerRoleGuest}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"allowedActions":["cancel"]`)
}

func TestAdminRoutesRejectCustomers(t *testing.T) {
	svc := &stubOrders{}
	router, cfg := newTestRouter(t, svc)
	userID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/orders/"+uuid.NewString()+"/pay", nil)
	req.Header.Set("Authorization", bearer(t, cfg, pkgAuth.AccessTokenPayload{UserID: &userID, Role: enums.CallerRoleCustomer}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, svc.markPaidCalls)
}

func TestAdminMarkPaidRoute(t *testing.T) {
	svc := &stubOrders{}
	router, cfg := newTestRouter(t, svc)
	adminID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/orders/"+uuid.NewString()+"/pay", nil)
	req.Header.Set("Authorization", bearer(t, cfg, pkgAuth.AccessTokenPayload{UserID: &adminID, Role: enums.CallerRoleAdmin}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, svc.markPaidCalls)
}

func TestPaymentWebhookRouteRequiresSignature(t *testing.T) {
	router, _ := newTestRouter(t, &stubOrders{})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", strings.NewReader(`{"eventId":"evt"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
