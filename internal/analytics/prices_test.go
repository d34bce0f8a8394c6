package analytics

import (
	"testing"

	"github.com/shopspring/decimal"

	"compras/internal/core"
)

func price(productID, storeID, storeName string, cents int64) core.PriceWithStore {
	return core.PriceWithStore{
		ProductPrice: core.ProductPrice{
			ID:          productID + "@" + storeID,
			ProductID:   productID,
			StoreID:     storeID,
			Price:       core.Money{Cents: cents},
			LastUpdated: core.NewDate(2024, 1, 1),
		},
		Store: core.Store{ID: storeID, Name: storeName},
	}
}

func TestComparePrices_Scenario(t *testing.T) {
	products := []core.Product{
		{ID: "A", Name: "Arroz", Category: core.CategoryFood},
		{ID: "B", Name: "Frijol", Category: core.CategoryFood},
	}
	prices := []core.PriceWithStore{
		price("A", "x", "StoreX", 1000),
		price("A", "y", "StoreY", 1500),
		price("B", "x", "StoreX", 800),
	}

	got := ComparePrices(products, prices)
	if len(got) != 1 {
		t.Fatalf("expected 1 comparison, got %d", len(got))
	}
	c := got[0]
	if c.ProductID != "A" {
		t.Fatalf("expected product A, got %s", c.ProductID)
	}
	if c.Best.StoreName != "StoreX" || c.Best.Price.Cents != 1000 {
		t.Errorf("best = %+v", c.Best)
	}
	if c.Worst.StoreName != "StoreY" || c.Worst.Price.Cents != 1500 {
		t.Errorf("worst = %+v", c.Worst)
	}
	if c.MaxSaving.Cents != 500 {
		t.Errorf("max saving = %d, want 500", c.MaxSaving.Cents)
	}
	if !c.SavingPct.Equal(decimal.RequireFromString("33.3")) {
		t.Errorf("saving pct = %s, want 33.3", c.SavingPct)
	}
}

func TestComparePrices_Properties(t *testing.T) {
	products := []core.Product{
		{ID: "P1", Name: "Leche", Category: core.CategoryFood},
		{ID: "P2", Name: "Pan", Category: core.CategoryFood},
		{ID: "P3", Name: "Jabón", Category: core.CategoryHome},
	}
	prices := []core.PriceWithStore{
		price("P1", "s3", "Tercera", 700),
		price("P1", "s1", "Primera", 500),
		price("P1", "s2", "Segunda", 900),
		price("P2", "s1", "Primera", 300),
		price("P2", "s2", "Segunda", 300),
		price("P3", "s1", "Primera", 0),  // ignored
		price("P3", "s2", "Segunda", 450), // single valid price left
	}

	got := ComparePrices(products, prices)
	if len(got) != 2 {
		t.Fatalf("expected 2 comparisons, got %d", len(got))
	}
	if got[0].ProductID != "P1" || got[1].ProductID != "P2" {
		t.Fatalf("output should follow product order, got %s, %s", got[0].ProductID, got[1].ProductID)
	}
	for _, c := range got {
		for _, p := range c.Prices {
			if p.Price.Cents < c.Best.Price.Cents || p.Price.Cents > c.Worst.Price.Cents {
				t.Errorf("%s: price %d outside [%d, %d]", c.ProductID, p.Price.Cents, c.Best.Price.Cents, c.Worst.Price.Cents)
			}
		}
		if c.MaxSaving.Cents != c.Worst.Price.Cents-c.Best.Price.Cents || c.MaxSaving.Cents < 0 {
			t.Errorf("%s: max saving %d inconsistent", c.ProductID, c.MaxSaving.Cents)
		}
		if c.SavingPct.IsNegative() || c.SavingPct.GreaterThanOrEqual(decimal.NewFromInt(100)) {
			t.Errorf("%s: saving pct %s out of range", c.ProductID, c.SavingPct)
		}
	}

	// Equal prices keep input order: best is the first store listed.
	if got[1].Best.StoreID != "s1" || got[1].Worst.StoreID != "s2" {
		t.Errorf("tie order: best=%s worst=%s", got[1].Best.StoreID, got[1].Worst.StoreID)
	}
	if !got[1].SavingPct.IsZero() {
		t.Errorf("expected zero saving pct, got %s", got[1].SavingPct)
	}
}

func TestComparePrices_Empty(t *testing.T) {
	if got := ComparePrices(nil, nil); len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
	products := []core.Product{{ID: "A", Name: "x", Category: core.CategoryOther}}
	if got := ComparePrices(products, []core.PriceWithStore{price("A", "s", "S", 100)}); len(got) != 0 {
		t.Fatalf("single price should be excluded, got %v", got)
	}
}

func TestComparePrices_DuplicateStoreCountsOnce(t *testing.T) {
	products := []core.Product{{ID: "A", Name: "x", Category: core.CategoryOther}}
	prices := []core.PriceWithStore{price("A", "s", "S", 100), price("A", "s", "S", 300)}
	if got := ComparePrices(products, prices); len(got) != 0 {
		t.Fatalf("two prices from the same store are not comparable, got %v", got)
	}
}

func TestPercentOfZeroWhole(t *testing.T) {
	if got := percentOf(10, 0); !got.IsZero() {
		t.Fatalf("expected 0, got %s", got)
	}
}

func TestRollupCategories(t *testing.T) {
	comparisons := []PriceComparison{
		{ProductID: "1", Category: core.CategoryFood, Best: StorePrice{StoreID: "b", StoreName: "Beta"}, MaxSaving: core.Money{Cents: 500}},
		{ProductID: "2", Category: core.CategoryFood, Best: StorePrice{StoreID: "a", StoreName: "Alfa"}, MaxSaving: core.Money{Cents: 300}},
		{ProductID: "3", Category: core.CategoryHome, Best: StorePrice{StoreID: "b", StoreName: "Beta"}, MaxSaving: core.Money{Cents: 1000}},
		{ProductID: "4", Category: core.CategoryHome, Best: StorePrice{StoreID: "b", StoreName: "Beta"}, MaxSaving: core.Money{Cents: 200}},
		{ProductID: "5", Category: core.CategoryHome, Best: StorePrice{StoreID: "a", StoreName: "Alfa"}, MaxSaving: core.Money{Cents: 300}},
	}

	got := RollupCategories(comparisons)
	if len(got) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(got))
	}

	food, home := got[1], got[0]
	if food.Category != core.CategoryFood || home.Category != core.CategoryHome {
		t.Fatalf("unexpected order: %s, %s", got[0].Category, got[1].Category)
	}
	if food.Products != 2 || !food.AverageSaving.Equal(decimal.NewFromInt(400)) {
		t.Errorf("food rollup = %+v", food)
	}
	// One win each: alphabetical tie-break.
	if food.BestStore != "Alfa" || food.BestStoreWins != 1 {
		t.Errorf("food best store = %s (%d wins)", food.BestStore, food.BestStoreWins)
	}
	if home.Products != 3 || !home.AverageSaving.Equal(decimal.NewFromInt(500)) {
		t.Errorf("home rollup = %+v", home)
	}
	if home.BestStore != "Beta" || home.BestStoreWins != 2 {
		t.Errorf("home best store = %s (%d wins)", home.BestStore, home.BestStoreWins)
	}
}

func TestRollupCategories_SortedByAverageSaving(t *testing.T) {
	comparisons := []PriceComparison{
		{Category: core.CategoryFood, Best: StorePrice{StoreID: "a", StoreName: "A"}, MaxSaving: core.Money{Cents: 100}},
		{Category: core.CategoryHealth, Best: StorePrice{StoreID: "a", StoreName: "A"}, MaxSaving: core.Money{Cents: 900}},
		{Category: core.CategoryHome, Best: StorePrice{StoreID: "a", StoreName: "A"}, MaxSaving: core.Money{Cents: 500}},
	}
	got := RollupCategories(comparisons)
	want := []core.Category{core.CategoryHealth, core.CategoryHome, core.CategoryFood}
	for i, c := range want {
		if got[i].Category != c {
			t.Fatalf("position %d = %s, want %s", i, got[i].Category, c)
		}
	}
}
