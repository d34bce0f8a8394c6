package analytics

import (
	"testing"

	"github.com/shopspring/decimal"

	"compras/internal/core"
)

func purchase(name string, cat core.Category, store *core.Store, cents int64, qty int, date core.Date) core.PurchaseWithStore {
	p := core.Purchase{
		ID:        name + date.String(),
		Name:      name,
		Category:  cat,
		UnitPrice: core.Money{Cents: cents},
		Quantity:  qty,
		Date:      date,
	}
	if store != nil {
		p.StoreID = store.ID
	}
	p.Normalize()
	return core.PurchaseWithStore{Purchase: p, Store: store}
}

func TestCompareStoresByCategory_Scenario(t *testing.T) {
	s1 := &core.Store{ID: "s1", Name: "S1"}
	s2 := &core.Store{ID: "s2", Name: "S2"}
	purchases := []core.PurchaseWithStore{
		purchase("Arroz", core.CategoryFood, s1, 1000, 2, core.NewDate(2024, 1, 5)),
		purchase("Arroz", core.CategoryFood, s2, 600, 1, core.NewDate(2024, 1, 10)),
	}

	got := CompareStoresByCategory(purchases, DateRange{})
	if len(got) != 1 {
		t.Fatalf("expected 1 category, got %d", len(got))
	}
	c := got[0]
	if c.Category != core.CategoryFood {
		t.Fatalf("category = %s", c.Category)
	}
	averages := map[string]decimal.Decimal{}
	for _, s := range c.Stores {
		averages[s.StoreName] = s.AveragePrice
	}
	if !averages["S1"].Equal(decimal.NewFromInt(1000)) || !averages["S2"].Equal(decimal.NewFromInt(600)) {
		t.Errorf("averages = %v", averages)
	}
	if !c.PotentialSaving.Equal(decimal.NewFromInt(400)) {
		t.Errorf("potential saving = %s, want 400", c.PotentialSaving)
	}
	if c.BestStore.StoreName != "S2" || c.WorstStore.StoreName != "S1" {
		t.Errorf("best=%s worst=%s", c.BestStore.StoreName, c.WorstStore.StoreName)
	}
	if c.Stores[1].TotalSpent.Cents != 2000 || c.Stores[1].TotalQuantity != 2 {
		t.Errorf("S1 totals = %+v", c.Stores[1])
	}
}

func TestCompareStoresByCategory_WeightedAverageAndExclusions(t *testing.T) {
	a := &core.Store{ID: "a", Name: "Alfa"}
	b := &core.Store{ID: "b", Name: "Beta"}
	purchases := []core.PurchaseWithStore{
		purchase("Leche", core.CategoryFood, a, 100, 3, core.NewDate(2024, 3, 1)),
		purchase("Pan", core.CategoryFood, a, 500, 1, core.NewDate(2024, 3, 2)),
		purchase("Leche", core.CategoryFood, b, 150, 2, core.NewDate(2024, 3, 3)),
		purchase("Taxi", core.CategoryTransport, a, 900, 1, core.NewDate(2024, 3, 3)), // single store
		purchase("Pan", core.CategoryFood, nil, 10, 1, core.NewDate(2024, 3, 3)),      // no store
	}

	got := CompareStoresByCategory(purchases, DateRange{})
	if len(got) != 1 {
		t.Fatalf("only food has two stores, got %d categories", len(got))
	}
	// Alfa: (300 + 500) / 4 = 200; Beta: 300 / 2 = 150.
	food := got[0]
	if food.BestStore.StoreID != "b" || !food.BestStore.AveragePrice.Equal(decimal.NewFromInt(150)) {
		t.Errorf("best = %+v", food.BestStore)
	}
	if food.WorstStore.StoreID != "a" || !food.WorstStore.AveragePrice.Equal(decimal.NewFromInt(200)) {
		t.Errorf("worst = %+v", food.WorstStore)
	}
	if !food.PotentialSaving.Equal(decimal.NewFromInt(50)) {
		t.Errorf("potential saving = %s", food.PotentialSaving)
	}
}

func TestCompareStoresByCategory_DateRange(t *testing.T) {
	a := &core.Store{ID: "a", Name: "Alfa"}
	b := &core.Store{ID: "b", Name: "Beta"}
	purchases := []core.PurchaseWithStore{
		purchase("Leche", core.CategoryFood, a, 100, 1, core.NewDate(2024, 1, 1)),
		purchase("Leche", core.CategoryFood, b, 200, 1, core.NewDate(2024, 1, 31)),
		purchase("Leche", core.CategoryFood, b, 900, 1, core.NewDate(2024, 2, 1)),
	}

	r := DateRange{Start: core.NewDate(2024, 1, 1), End: core.NewDate(2024, 1, 31)}
	got := CompareStoresByCategory(purchases, r)
	if len(got) != 1 || !got[0].PotentialSaving.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("bounds are inclusive; got %+v", got)
	}

	r = DateRange{Start: core.NewDate(2024, 1, 15)}
	if got := CompareStoresByCategory(purchases, r); len(got) != 0 {
		t.Fatalf("only Beta remains after the start bound, got %+v", got)
	}
}

func TestProductBreakdown(t *testing.T) {
	a := &core.Store{ID: "a", Name: "Alfa"}
	purchases := []core.PurchaseWithStore{
		purchase("Leche", core.CategoryFood, a, 100, 1, core.NewDate(2024, 1, 1)),
		purchase(" leche ", core.CategoryFood, nil, 120, 2, core.NewDate(2024, 2, 1)),
		purchase("Jabón", core.CategoryHome, a, 300, 1, core.NewDate(2024, 1, 5)),
	}

	got := ProductBreakdown(purchases, DateRange{})
	if len(got) != 2 {
		t.Fatalf("expected 2 products, got %d", len(got))
	}
	leche := got[0]
	if leche.Name != "Leche" || len(leche.Entries) != 2 {
		t.Fatalf("leche = %+v", leche)
	}
	if leche.Entries[0].Date.String() != "2024-02-01" || leche.Entries[0].StoreName != "" {
		t.Errorf("entries should be newest first, got %+v", leche.Entries)
	}
	if leche.Entries[1].StoreName != "Alfa" {
		t.Errorf("store name missing: %+v", leche.Entries[1])
	}
}
