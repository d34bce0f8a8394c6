//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"compras/internal/core"
	ports "compras/internal/sheets"

	"github.com/google/uuid"
)

// Integration tests require real Google Sheets credentials
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_ExportRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	if os.Getenv("GOOGLE_SPREADSHEET_ID") == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	e, err := NewFromEnv(ctx)
	if err != nil {
		t.Fatalf("NewFromEnv: %v", err)
	}

	p := core.PurchaseWithStore{Purchase: core.Purchase{
		ID:        "it-" + uuid.NewString(),
		OwnerID:   "integration",
		Name:      "Integration test",
		Category:  core.CategoryOther,
		UnitPrice: core.Money{Cents: 123},
		Quantity:  1,
		Date:      core.Today(),
	}}
	p.Normalize()

	if err := e.UpsertPurchase(ctx, ports.RowFromPurchase(p)); err != nil {
		t.Fatalf("append: %v", err)
	}
	p.Quantity = 2
	if err := e.UpsertPurchase(ctx, ports.RowFromPurchase(p)); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, found, err := e.findRow(ctx, p.ID); err != nil || !found {
		t.Fatalf("row not found after upsert: found=%v err=%v", found, err)
	}
	if err := e.DeletePurchase(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, found, err := e.findRow(ctx, p.ID); err != nil || found {
		t.Fatalf("row still present after delete: found=%v err=%v", found, err)
	}
}
