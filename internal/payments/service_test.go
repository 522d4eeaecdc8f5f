package payments

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LucasBenitez7/acme-commerce-starter-sub000/internal/orders"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/db/models"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/enums"
	pkgerrors "github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/errors"
)

type fakePayer struct {
	calls  []uuid.UUID
	caller orders.Caller
	err    error
}

func (f *fakePayer) MarkPaid(ctx context.Context, caller orders.Caller, orderID uuid.UUID) (*models.Order, error) {
	f.calls = append(f.calls, orderID)
	f.caller = caller
	if f.err != nil {
		return nil, f.err
	}
	return &models.Order{ID: orderID, Status: enums.OrderStatusPaid}, nil
}

func newTestService(t *testing.T, payer *fakePayer) Service {
	t.Helper()
	svc, err := NewService(payer, nil)
	require.NoError(t, err)
	return svc
}

func TestHandleEventPaidMarksOrderAsSystem(t *testing.T) {
	payer := &fakePayer{}
	svc := newTestService(t, payer)
	orderID := uuid.New()

	err := svc.HandleEvent(context.Background(), &Event{EventID: "evt_1", OrderID: orderID, Status: StatusPaid})
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{orderID}, payer.calls)
	assert.Equal(t, enums.CallerRoleSystem, payer.caller.Role)
}

func TestHandleEventNotPaidLeavesOrderAlone(t *testing.T) {
	payer := &fakePayer{}
	svc := newTestService(t, payer)

	err := svc.HandleEvent(context.Background(), &Event{EventID: "evt_2", OrderID: uuid.New(), Status: StatusNotPaid})
	require.NoError(t, err)
	assert.Empty(t, payer.calls)
}

func TestHandleEventAcknowledgesStateConflict(t *testing.T) {
	payer := &fakePayer{err: pkgerrors.New(pkgerrors.CodeStateConflict, "order already paid")}
	svc := newTestService(t, payer)

	err := svc.HandleEvent(context.Background(), &Event{EventID: "evt_3", OrderID: uuid.New(), Status: StatusPaid})
	require.NoError(t, err)
	assert.Len(t, payer.calls, 1)
}

func TestHandleEventPropagatesOtherFailures(t *testing.T) {
	payer := &fakePayer{err: pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("db down"), "mark paid")}
	svc := newTestService(t, payer)

	err := svc.HandleEvent(context.Background(), &Event{EventID: "evt_4", OrderID: uuid.New(), Status: StatusPaid})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsRetryable(err))

	payer.err = pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	err = svc.HandleEvent(context.Background(), &Event{EventID: "evt_5", OrderID: uuid.New(), Status: StatusPaid})
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestHandleEventValidation(t *testing.T) {
	svc := newTestService(t, &fakePayer{})
	cases := map[string]*Event{
		"nil event":      nil,
		"missing id":     {OrderID: uuid.New(), Status: StatusPaid},
		"missing order":  {EventID: "evt", Status: StatusPaid},
		"unknown status": {EventID: "evt", OrderID: uuid.New(), Status: "refunded"},
	}
	for name, event := range cases {
		t.Run(name, func(t *testing.T) {
			err := svc.HandleEvent(context.Background(), event)
			assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
		})
	}
}

func TestNewServiceRequiresOrders(t *testing.T) {
	_, err := NewService(nil, nil)
	require.Error(t, err)
}

type memoryStore struct {
	values map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}}
}

func (m *memoryStore) Get(ctx context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "idempotency:" + scope + ":" + id
}

func (m *memoryStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func TestIdempotencyGuard(t *testing.T) {
	store := newMemoryStore()
	guard, err := NewIdempotencyGuard(store, time.Hour, "payments-webhook")
	require.NoError(t, err)
	ctx := context.Background()

	seen, err := guard.CheckAndMark(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = guard.CheckAndMark(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, seen)

	require.NoError(t, guard.Delete(ctx, "evt_1"))
	seen, err = guard.CheckAndMark(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)

	_, err = guard.CheckAndMark(ctx, "")
	assert.Error(t, err)
}

func TestNewIdempotencyGuardValidation(t *testing.T) {
	_, err := NewIdempotencyGuard(nil, time.Hour, "scope")
	assert.Error(t, err)
	_, err = NewIdempotencyGuard(newMemoryStore(), -time.Second, "scope")
	assert.Error(t, err)
	_, err = NewIdempotencyGuard(newMemoryStore(), time.Hour, "")
	assert.Error(t, err)
}
