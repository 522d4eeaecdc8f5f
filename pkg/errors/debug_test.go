package errors

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestDumpPgxSerializationFailure(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "40001", Message: "could not serialize access", TableName: "orders"}
	err := Wrap(CodeDependency, fmt.Errorf("lock order: %w", pgErr), "update order")

	d := Dump(err)
	if d.Code != CodeDependency || !d.Retryable {
		t.Fatalf("expected retryable dependency dump, got %+v", d)
	}
	if d.PGCode != "40001" || d.PGClass != "transaction_rollback" || d.PGTable != "orders" {
		t.Fatalf("unexpected pg fields %+v", d)
	}
	if len(d.Chain) < 2 {
		t.Fatalf("expected wrapped chain, got %v", d.Chain)
	}
}

func TestDumpPqCheckViolation(t *testing.T) {
	pqErr := &pq.Error{Code: "23514", Table: "order_items", Constraint: "order_items_check"}

	d := Dump(pqErr)
	if d.PGClass != "integrity_constraint_violation" || d.PGConstraint != "order_items_check" {
		t.Fatalf("unexpected pq fields %+v", d)
	}
	if d.Retryable {
		t.Fatalf("untyped errors must not be marked retryable")
	}
}

func TestDumpNil(t *testing.T) {
	if d := Dump(nil); d.TopMessage != "" || d.Chain != nil {
		t.Fatalf("expected empty dump, got %+v", d)
	}
}
