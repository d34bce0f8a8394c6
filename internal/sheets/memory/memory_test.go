package memory

import (
	"context"
	"testing"

	"compras/internal/core"
	ports "compras/internal/sheets"
)

func TestStore_UpsertAndDelete(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.UpsertPurchase(ctx, ports.PurchaseRow{}); err == nil {
		t.Fatal("row without id should be rejected")
	}

	a := ports.PurchaseRow{ID: "a", Name: "Arroz", Quantity: 1, Total: core.Money{Cents: 100}}
	b := ports.PurchaseRow{ID: "b", Name: "Pan", Quantity: 1}
	if err := s.UpsertPurchase(ctx, a); err != nil {
		t.Fatalf("upsert a: %v", err)
	}
	if err := s.UpsertPurchase(ctx, b); err != nil {
		t.Fatalf("upsert b: %v", err)
	}

	a.Quantity = 3
	if err := s.UpsertPurchase(ctx, a); err != nil {
		t.Fatalf("update a: %v", err)
	}
	rows := s.Rows()
	if len(rows) != 2 || rows[0].Quantity != 3 {
		t.Fatalf("update should replace in place, got %+v", rows)
	}

	if err := s.DeletePurchase(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeletePurchase(ctx, "missing"); err != nil {
		t.Fatalf("delete of a missing row should be a no-op: %v", err)
	}
	rows = s.Rows()
	if len(rows) != 1 || rows[0].ID != "b" {
		t.Errorf("unexpected rows %+v", rows)
	}
}

func TestRowFromPurchase(t *testing.T) {
	p := core.PurchaseWithStore{
		Purchase: core.Purchase{
			ID: "p1", OwnerID: "u1", Name: "Arroz", Category: core.CategoryFood,
			UnitPrice: core.Money{Cents: 1050}, Quantity: 2, Date: core.NewDate(2024, 1, 5), Month: 1, Year: 2024,
		},
		Store: &core.Store{Name: "Éxito"},
	}
	got := ports.RowFromPurchase(p).Strings()
	want := []string{"p1", "2024-01-05", "2024", "1", "Arroz", "Alimentación", "Éxito", "10.50", "2", "21.00", "u1"}
	if len(got) != len(ports.Header) {
		t.Fatalf("row has %d columns, header has %d", len(got), len(ports.Header))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("column %s = %q, want %q", ports.Header[i], got[i], want[i])
		}
	}
}

func TestRowStringsEscapeFormulas(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Arroz", "Arroz"},
		{"", ""},
		{"=IMPORTXML(\"http://x\")", "'=IMPORTXML(\"http://x\")"},
		{"+57 pan", "'+57 pan"},
		{"-1 leche", "'-1 leche"},
		{"@SUM(A1)", "'@SUM(A1)"},
		{"a=b", "a=b"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			row := ports.PurchaseRow{Name: tt.in, Category: tt.in, Store: tt.in}.Strings()
			for _, col := range []int{4, 5, 6} {
				if row[col] != tt.want {
					t.Errorf("column %s = %q, want %q", ports.Header[col], row[col], tt.want)
				}
			}
		})
	}
}
