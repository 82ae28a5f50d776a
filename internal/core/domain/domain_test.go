package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapErrorPreservesKindAndCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapError(ErrBackendUnavailable, "postgres select", cause)

	if !IsKind(err, ErrBackendUnavailable) {
		t.Fatal("expected kind to survive wrapping")
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected cause to survive wrapping")
	}
	if !strings.Contains(err.Error(), "postgres select") {
		t.Fatalf("expected operation context in message, got %q", err.Error())
	}
}

func TestWrapErrorNilPassthrough(t *testing.T) {
	if err := WrapError(ErrBackendUnavailable, "op", nil); err != nil {
		t.Fatalf("expected nil for nil cause, got %v", err)
	}
}

func TestRowRenderKeepsFieldOrder(t *testing.T) {
	row := Row{
		{Name: "name", Value: "Alice Johnson"},
		{Name: "total_amount", Value: "278.99"},
	}
	if got := row.Render(); got != "name=Alice Johnson total_amount=278.99" {
		t.Fatalf("unexpected rendering: %q", got)
	}
}

func TestRetailSchemaColumnLookup(t *testing.T) {
	schema := RetailSchema()

	if !schema.HasColumn("purchases", "purchased_at") {
		t.Fatal("expected purchases.purchased_at to exist")
	}
	if schema.HasColumn("purchases", "password") {
		t.Fatal("unexpected column purchases.password")
	}
	if schema.HasColumn("sessions", "id") {
		t.Fatal("unexpected table sessions")
	}
}

func TestRetailSchemaSummaryListsAllTables(t *testing.T) {
	summary := RetailSchema().Summary()
	for _, table := range []string{
		"customers", "customer_addresses", "categories", "items",
		"suppliers", "item_suppliers", "purchases",
	} {
		if !strings.Contains(summary, "Table "+table) {
			t.Fatalf("expected summary to list %s:\n%s", table, summary)
		}
	}
}
