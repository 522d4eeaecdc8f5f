package inventory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/db/models"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/enums"
	pkgerrors "github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/errors"
)

// Adjustment returns Delta units of VariantID to stock.
type Adjustment struct {
	VariantID uuid.UUID
	Delta     int
}

// Restock groups the stock increments produced by one order operation.
type Restock struct {
	OrderID     uuid.UUID
	Reason      enums.InventoryMovementReason
	Adjustments []Adjustment
}

// Ledger returns units to stock. It never decrements.
type Ledger interface {
	Restock(ctx context.Context, tx *gorm.DB, input Restock) ([]Adjustment, error)
}

type ledger struct {
	repo Repository
}

// NewLedger wires a ledger over repo.
func NewLedger(repo Repository) (Ledger, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &ledger{repo: repo}, nil
}

// Restock applies every adjustment inside tx, summing duplicate variants and
// touching variants in id order. Variants that were deleted are skipped and
// left out of the returned slice.
func (l *ledger) Restock(ctx context.Context, tx *gorm.DB, input Restock) ([]Adjustment, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "restock requires a transaction")
	}
	if !input.Reason.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid movement reason %q", input.Reason)
	}

	batch, err := Consolidate(input.Adjustments)
	if err != nil {
		return nil, err
	}
	if len(batch) == 0 {
		return nil, nil
	}

	repo := l.repo.WithTx(tx)
	applied := make([]Adjustment, 0, len(batch))
	for _, adj := range batch {
		ok, err := repo.IncrementStock(ctx, adj.VariantID, adj.Delta)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment stock")
		}
		if !ok {
			continue
		}

		movement := &models.InventoryMovement{
			VariantID: adj.VariantID,
			Delta:     adj.Delta,
			Reason:    input.Reason,
		}
		if input.OrderID != uuid.Nil {
			orderID := input.OrderID
			movement.OrderID = &orderID
		}
		if err := repo.InsertMovement(ctx, movement); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record inventory movement")
		}
		applied = append(applied, adj)
	}
	return applied, nil
}

// Consolidate sums adjustments per variant and sorts them by variant id.
// Every delta must be positive.
func Consolidate(adjustments []Adjustment) ([]Adjustment, error) {
	totals := make(map[uuid.UUID]int, len(adjustments))
	for _, adj := range adjustments {
		if adj.VariantID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
		}
		if adj.Delta <= 0 {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "stock delta must be positive, got %d", adj.Delta)
		}
		totals[adj.VariantID] += adj.Delta
	}

	out := make([]Adjustment, 0, len(totals))
	for id, delta := range totals {
		out = append(out, Adjustment{VariantID: id, Delta: delta})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].VariantID.String() < out[j].VariantID.String()
	})
	return out, nil
}
