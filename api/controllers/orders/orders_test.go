package orders

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LucasBenitez7/acme-commerce-starter-sub000/api/middleware"
	internalorders "github.com/LucasBenitez7/acme-commerce-starter-sub000/internal/orders"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/db/models"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/enums"
	pkgerrors "github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/errors"
)

type stubService struct {
	caller      internalorders.Caller
	orderID     uuid.UUID
	reason      string
	returnInput internalorders.RequestReturnInput
	resolve     internalorders.ResolveReturnInput
	order       *models.Order
	err         error
}

func (s *stubService) result(caller internalorders.Caller, orderID uuid.UUID) (*models.Order, error) {
	s.caller = caller
	s.orderID = orderID
	if s.err != nil {
		return nil, s.err
	}
	if s.order != nil {
		return s.order, nil
	}
	return &models.Order{ID: orderID, Status: enums.OrderStatusPaid, Currency: enums.CurrencyEUR, TotalMinor: 1999}, nil
}

func (s *stubService) MarkPaid(ctx context.Context, caller internalorders.Caller, orderID uuid.UUID) (*models.Order, error) {
	return s.result(caller, orderID)
}

func (s *stubService) Cancel(ctx context.Context, caller internalorders.Caller, orderID uuid.UUID, reason string) (*models.Order, error) {
	s.reason = reason
	return s.result(caller, orderID)
}

func (s *stubService) Expire(ctx context.Context, caller internalorders.Caller, orderID uuid.UUID) (*models.Order, error) {
	return s.result(caller, orderID)
}

func (s *stubService) RequestReturn(ctx context.Context, caller internalorders.Caller, input internalorders.RequestReturnInput) (*models.Order, error) {
	s.returnInput = input
	return s.result(caller, input.OrderID)
}

func (s *stubService) ResolveReturn(ctx context.Context, caller internalorders.Caller, input internalorders.ResolveReturnInput) (*models.Order, error) {
	s.resolve = input
	return s.result(caller, input.OrderID)
}

func (s *stubService) RejectReturn(ctx context.Context, caller internalorders.Caller, orderID uuid.UUID, reason string) (*models.Order, error) {
	s.reason = reason
	return s.result(caller, orderID)
}

func (s *stubService) GetOrder(ctx context.Context, caller internalorders.Caller, orderID uuid.UUID) (*internalorders.OrderView, error) {
	order, err := s.result(caller, orderID)
	if err != nil {
		return nil, err
	}
	return internalorders.NewOrderView(order, caller.Role), nil
}

func (s *stubService) ListHistory(ctx context.Context, caller internalorders.Caller, orderID uuid.UUID) ([]internalorders.HistoryEventView, error) {
	if _, err := s.result(caller, orderID); err != nil {
		return nil, err
	}
	return []internalorders.HistoryEventView{{Reason: "Pago confirmado", Type: enums.HistoryEventStatusChange}}, nil
}

func newRequest(method, orderID string, body io.Reader, caller *internalorders.Caller) *http.Request {
	req := httptest.NewRequest(method, "/api/v1/orders/"+orderID, body)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("orderId", orderID)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if caller != nil {
		ctx = middleware.WithCaller(ctx, *caller)
	}
	return req.WithContext(ctx)
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, dest))
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Error.Code
}

func TestDetailReturnsOrderView(t *testing.T) {
	svc := &stubService{}
	orderID := uuid.New()
	caller := internalorders.CustomerCaller(uuid.New(), "a@example.com")

	rec := httptest.NewRecorder()
	Detail(svc, nil).ServeHTTP(rec, newRequest(http.MethodGet, orderID.String(), nil, &caller))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var view internalorders.OrderView
	decodeData(t, rec, &view)
	assert.Equal(t, orderID, view.ID)
	assert.Equal(t, "19.99", view.Total)
	assert.Equal(t, []enums.OrderAction{enums.OrderActionRequestReturn}, view.AllowedActions)
	assert.Equal(t, caller.Role, svc.caller.Role)
}

func TestDetailRejectsInvalidOrderID(t *testing.T) {
	caller := internalorders.AdminCaller(uuid.New())
	rec := httptest.NewRecorder()
	Detail(&stubService{}, nil).ServeHTTP(rec, newRequest(http.MethodGet, "not-a-uuid", nil, &caller))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeValidation), decodeErrorCode(t, rec))
}

func TestDetailRequiresCaller(t *testing.T) {
	rec := httptest.NewRecorder()
	Detail(&stubService{}, nil).ServeHTTP(rec, newRequest(http.MethodGet, uuid.NewString(), nil, nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHistoryReturnsEvents(t *testing.T) {
	caller := internalorders.GuestCaller("guest@example.com")
	rec := httptest.NewRecorder()
	History(&stubService{}, nil).ServeHTTP(rec, newRequest(http.MethodGet, uuid.NewString(), nil, &caller))

	require.Equal(t, http.StatusOK, rec.Code)
	var events []internalorders.HistoryEventView
	decodeData(t, rec, &events)
	require.Len(t, events, 1)
	assert.Equal(t, "Pago confirmado", events[0].Reason)
}

func TestCancelAcceptsEmptyBody(t *testing.T) {
	svc := &stubService{}
	caller := internalorders.CustomerCaller(uuid.New(), "a@example.com")

	rec := httptest.NewRecorder()
	Cancel(svc, nil).ServeHTTP(rec, newRequest(http.MethodPost, uuid.NewString(), nil, &caller))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, svc.reason)
}

func TestCancelPassesTrimmedReason(t *testing.T) {
	svc := &stubService{}
	caller := internalorders.AdminCaller(uuid.New())

	rec := httptest.NewRecorder()
	Cancel(svc, nil).ServeHTTP(rec, newRequest(http.MethodPost, uuid.NewString(), strings.NewReader(`{"reason":"  sin stock  "}`), &caller))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sin stock", svc.reason)
}

func TestCancelMapsStateConflict(t *testing.T) {
	svc := &stubService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "transition not allowed")}
	caller := internalorders.CustomerCaller(uuid.New(), "a@example.com")

	rec := httptest.NewRecorder()
	Cancel(svc, nil).ServeHTTP(rec, newRequest(http.MethodPost, uuid.NewString(), nil, &caller))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeStateConflict), decodeErrorCode(t, rec))
}

func TestRequestReturnDecodesItems(t *testing.T) {
	svc := &stubService{}
	caller := internalorders.CustomerCaller(uuid.New(), "a@example.com")
	orderID := uuid.New()
	itemID := uuid.New()
	body := `{"reason":"talla incorrecta","items":[{"itemId":"` + itemID.String() + `","qty":2}]}`

	rec := httptest.NewRecorder()
	RequestReturn(svc, nil).ServeHTTP(rec, newRequest(http.MethodPost, orderID.String(), strings.NewReader(body), &caller))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, orderID, svc.returnInput.OrderID)
	assert.Equal(t, "talla incorrecta", svc.returnInput.Reason)
	assert.Equal(t, []internalorders.ItemQuantity{{ItemID: itemID, Qty: 2}}, svc.returnInput.Items)
}

func TestRequestReturnSurfacesMissingReason(t *testing.T) {
	svc := &stubService{err: pkgerrors.New(pkgerrors.CodeMissingReason, "reason must have at least 3 characters")}
	caller := internalorders.CustomerCaller(uuid.New(), "a@example.com")

	rec := httptest.NewRecorder()
	RequestReturn(svc, nil).ServeHTTP(rec, newRequest(http.MethodPost, uuid.NewString(), strings.NewReader(`{"reason":"no","items":[]}`), &caller))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeMissingReason), decodeErrorCode(t, rec))
}

func TestRequestReturnRejectsUnknownFields(t *testing.T) {
	svc := &stubService{}
	caller := internalorders.CustomerCaller(uuid.New(), "a@example.com")

	rec := httptest.NewRecorder()
	RequestReturn(svc, nil).ServeHTTP(rec, newRequest(http.MethodPost, uuid.NewString(), strings.NewReader(`{"reason":"roto","refund":true}`), &caller))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, uuid.Nil, svc.orderID)
}

func TestMarkPaidUsesCaller(t *testing.T) {
	svc := &stubService{}
	caller := internalorders.AdminCaller(uuid.New())
	orderID := uuid.New()

	rec := httptest.NewRecorder()
	MarkPaid(svc, nil).ServeHTTP(rec, newRequest(http.MethodPost, orderID.String(), nil, &caller))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, orderID, svc.orderID)
	assert.Equal(t, enums.CallerRoleAdmin, svc.caller.Role)
}

func TestResolveReturnDecodesDecision(t *testing.T) {
	svc := &stubService{}
	caller := internalorders.AdminCaller(uuid.New())
	itemID := uuid.New()
	body := `{"accepted":[{"itemId":"` + itemID.String() + `","qty":1}],"rejectionNote":"uno llegó dañado"}`

	rec := httptest.NewRecorder()
	ResolveReturn(svc, nil).ServeHTTP(rec, newRequest(http.MethodPost, uuid.NewString(), strings.NewReader(body), &caller))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []internalorders.ItemQuantity{{ItemID: itemID, Qty: 1}}, svc.resolve.Accepted)
	assert.Equal(t, "uno llegó dañado", svc.resolve.RejectionNote)
}

func TestResolveReturnRejectsOutOfRangeQuantities(t *testing.T) {
	caller := internalorders.AdminCaller(uuid.New())
	itemID := uuid.NewString()

	for name, qty := range map[string]string{
		"huge":     "9223372036854775807",
		"negative": "-1",
	} {
		t.Run(name, func(t *testing.T) {
			svc := &stubService{}
			body := `{"accepted":[{"itemId":"` + itemID + `","qty":` + qty + `},{"itemId":"` + itemID + `","qty":` + qty + `}]}`

			rec := httptest.NewRecorder()
			ResolveReturn(svc, nil).ServeHTTP(rec, newRequest(http.MethodPost, uuid.NewString(), strings.NewReader(body), &caller))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, string(pkgerrors.CodeValidation), decodeErrorCode(t, rec))
			assert.Nil(t, svc.resolve.Accepted)
		})
	}
}

func TestResolveReturnMapsQuantityExceeded(t *testing.T) {
	svc := &stubService{err: pkgerrors.New(pkgerrors.CodeQuantityExceeded, "item exceeds available quantity")}
	caller := internalorders.AdminCaller(uuid.New())

	rec := httptest.NewRecorder()
	ResolveReturn(svc, nil).ServeHTTP(rec, newRequest(http.MethodPost, uuid.NewString(), strings.NewReader(`{"accepted":[]}`), &caller))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeQuantityExceeded), decodeErrorCode(t, rec))
}

func TestRejectReturnPassesReason(t *testing.T) {
	svc := &stubService{}
	caller := internalorders.AdminCaller(uuid.New())

	rec := httptest.NewRecorder()
	RejectReturn(svc, nil).ServeHTTP(rec, newRequest(http.MethodPost, uuid.NewString(), strings.NewReader(`{"reason":"fuera de plazo"}`), &caller))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fuera de plazo", svc.reason)
}

func TestHandlersReportMissingService(t *testing.T) {
	caller := internalorders.AdminCaller(uuid.New())
	rec := httptest.NewRecorder()
	MarkPaid(nil, nil).ServeHTTP(rec, newRequest(http.MethodPost, uuid.NewString(), nil, &caller))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestDependencyFailureIsServiceUnavailable(t *testing.T) {
	svc := &stubService{err: pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("deadlock"), "commit")}
	caller := internalorders.AdminCaller(uuid.New())

	rec := httptest.NewRecorder()
	MarkPaid(svc, nil).ServeHTTP(rec, newRequest(http.MethodPost, uuid.NewString(), nil, &caller))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
