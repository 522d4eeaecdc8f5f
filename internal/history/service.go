package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/db/models"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/enums"
)

// Log is the append-only audit trail of order transitions.
type Log interface {
	Append(ctx context.Context, tx *gorm.DB, entry Entry) (*models.OrderHistoryEvent, error)
	List(ctx context.Context, orderID uuid.UUID) ([]models.OrderHistoryEvent, error)
}

// Entry carries the fields of one audit event.
type Entry struct {
	OrderID        uuid.UUID
	Type           enums.HistoryEventType
	SnapshotStatus enums.OrderStatus
	Actor          enums.HistoryActor
	Reason         string
	Details        []models.HistoryItemDetail
}

type log struct {
	repo Repository
}

// NewLog wires a history log with the provided repository.
func NewLog(repo Repository) (Log, error) {
	if repo == nil {
		return nil, fmt.Errorf("history repository required")
	}
	return &log{repo: repo}, nil
}

// Append inserts entry using tx. A failure must abort the caller's
// transaction, so tx is mandatory.
func (l *log) Append(ctx context.Context, tx *gorm.DB, entry Entry) (*models.OrderHistoryEvent, error) {
	if tx == nil {
		return nil, fmt.Errorf("history append requires a transaction")
	}
	if entry.OrderID == uuid.Nil {
		return nil, fmt.Errorf("order id is required")
	}
	if !entry.Type.IsValid() {
		return nil, fmt.Errorf("invalid history event type %q", entry.Type)
	}
	if !entry.SnapshotStatus.IsValid() {
		return nil, fmt.Errorf("invalid snapshot status %q", entry.SnapshotStatus)
	}
	if !entry.Actor.IsValid() {
		return nil, fmt.Errorf("invalid history actor %q", entry.Actor)
	}
	reason := strings.TrimSpace(entry.Reason)
	if reason == "" {
		return nil, fmt.Errorf("history reason is required")
	}

	event := &models.OrderHistoryEvent{
		OrderID:        entry.OrderID,
		Type:           entry.Type,
		SnapshotStatus: entry.SnapshotStatus,
		Actor:          entry.Actor,
		Reason:         reason,
		Details:        entry.Details,
	}
	if err := l.repo.WithTx(tx).Create(ctx, event); err != nil {
		return nil, fmt.Errorf("append order history: %w", err)
	}
	return event, nil
}

func (l *log) List(ctx context.Context, orderID uuid.UUID) ([]models.OrderHistoryEvent, error) {
	if orderID == uuid.Nil {
		return nil, fmt.Errorf("order id is required")
	}
	return l.repo.ListByOrderID(ctx, orderID)
}
