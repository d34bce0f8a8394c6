package services

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"compras/internal/analytics"
	"compras/internal/core"
	"compras/internal/storage"
)

type fakePublisher struct {
	mu      sync.Mutex
	syncs   []string
	deletes []string
	err     error
}

func (f *fakePublisher) PublishPurchaseSync(_ context.Context, id, ownerID string, version int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncs = append(f.syncs, id)
	return f.err
}

func (f *fakePublisher) PublishPurchaseDelete(_ context.Context, id, ownerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	return f.err
}

type event struct{ owner, entity, action, id string }

type fakeNotifier struct {
	mu     sync.Mutex
	events []event
}

func (f *fakeNotifier) Notify(ownerID, entity, action, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event{ownerID, entity, action, id})
}

func setupRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "services.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func validPurchase() core.Purchase {
	return core.Purchase{
		Name:      "Arroz",
		Category:  core.CategoryFood,
		UnitPrice: core.Money{Cents: 1000},
		Quantity:  2,
		Date:      core.NewDate(2024, 1, 5),
	}
}

func TestPurchaseService_CreatePublishesAndNotifies(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{err: errors.New("broker down")}
	hub := &fakeNotifier{}
	svc := NewPurchaseService(setupRepo(t), pub, hub)

	p, err := svc.Create(ctx, "u1", validPurchase())
	if err != nil {
		t.Fatalf("publish failure must not fail the request: %v", err)
	}
	if p.OwnerID != "u1" || p.ID == "" {
		t.Fatalf("unexpected purchase %+v", p)
	}
	if len(pub.syncs) != 1 || pub.syncs[0] != p.ID {
		t.Errorf("expected one sync message, got %v", pub.syncs)
	}
	if len(hub.events) != 1 || hub.events[0] != (event{"u1", EntityPurchase, ActionCreated, p.ID}) {
		t.Errorf("unexpected events %+v", hub.events)
	}

	p.Quantity = 3
	if _, err := svc.Update(ctx, "u1", p.ID, p); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := svc.Delete(ctx, "u1", p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(pub.syncs) != 2 || len(pub.deletes) != 1 {
		t.Errorf("syncs=%v deletes=%v", pub.syncs, pub.deletes)
	}
}

func TestPurchaseService_ValidationRejectsBeforeWrite(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	svc := NewPurchaseService(setupRepo(t), pub, nil)

	tests := []struct {
		name   string
		mutate func(*core.Purchase)
		want   error
	}{
		{"blank name", func(p *core.Purchase) { p.Name = "   " }, core.ErrNameRequired},
		{"bad category", func(p *core.Purchase) { p.Category = "Viajes" }, core.ErrInvalidCategory},
		{"zero price", func(p *core.Purchase) { p.UnitPrice.Cents = 0 }, core.ErrInvalidPrice},
		{"zero quantity", func(p *core.Purchase) { p.Quantity = 0 }, core.ErrInvalidQuantity},
		{"missing date", func(p *core.Purchase) { p.Date = core.Date{} }, core.ErrInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPurchase()
			tt.mutate(&p)
			_, err := svc.Create(ctx, "u1", p)
			if !errors.Is(err, tt.want) || !errors.Is(err, core.ErrValidation) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}

	list, _ := svc.List(ctx, "u1", storage.PurchaseFilter{})
	if len(list) != 0 || len(pub.syncs) != 0 {
		t.Fatalf("invalid purchases must not be stored or published")
	}
}

func TestPurchaseService_NilCollaborators(t *testing.T) {
	svc := NewPurchaseService(setupRepo(t), nil, nil)
	if _, err := svc.Create(context.Background(), "u1", validPurchase()); err != nil {
		t.Fatalf("create without publisher: %v", err)
	}
}

func TestPurchaseService_ExportCSV(t *testing.T) {
	ctx := context.Background()
	svc := NewPurchaseService(setupRepo(t), nil, nil)
	if _, err := svc.Create(ctx, "u1", validPurchase()); err != nil {
		t.Fatalf("create: %v", err)
	}

	var buf bytes.Buffer
	n, err := svc.ExportCSV(ctx, "u1", storage.PurchaseFilter{}, &buf)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if n != 1 {
		t.Fatalf("exported %d rows", n)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "id,date,name,category,store,unit_price,quantity,total") {
		t.Errorf("unexpected header: %q", out)
	}
	if !strings.Contains(out, "2024-01-05,Arroz,Alimentación,,10.00,2,20.00") {
		t.Errorf("unexpected row: %q", out)
	}
}

func TestPurchaseService_ExportCSVEscapesFormulas(t *testing.T) {
	ctx := context.Background()
	svc := NewPurchaseService(setupRepo(t), nil, nil)
	p := validPurchase()
	p.Name = "=HYPERLINK(\"http://evil\")"
	if _, err := svc.Create(ctx, "u1", p); err != nil {
		t.Fatalf("create: %v", err)
	}

	var buf bytes.Buffer
	if _, err := svc.ExportCSV(ctx, "u1", storage.PurchaseFilter{}, &buf); err != nil {
		t.Fatalf("export: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %q", lines)
	}
	fields := strings.Split(lines[1], ",")
	if len(fields) < 3 || !strings.HasPrefix(fields[2], `"'=HYPERLINK`) {
		t.Errorf("name cell not escaped: %q", lines[1])
	}
}

func TestCatalogService_PriceConfirmation(t *testing.T) {
	ctx := context.Background()
	hub := &fakeNotifier{}
	svc := NewCatalogService(setupRepo(t), hub)

	prod, err := svc.CreateProduct(ctx, "u1", core.Product{Name: "Leche", Category: core.CategoryFood})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	store, err := svc.CreateStore(ctx, "u1", core.Store{Name: "D1"})
	if err != nil {
		t.Fatalf("create store: %v", err)
	}

	pp := core.ProductPrice{ProductID: prod.ID, StoreID: store.ID, Price: core.Money{Cents: 450}}
	first, err := svc.SavePrice(ctx, "u1", pp, false)
	if err != nil {
		t.Fatalf("first price: %v", err)
	}

	pp.Price.Cents = 500
	_, err = svc.SavePrice(ctx, "u1", pp, false)
	var conflict *PriceConflictError
	if !errors.As(err, &conflict) || !errors.Is(err, core.ErrPriceExists) {
		t.Fatalf("expected price conflict, got %v", err)
	}
	if conflict.Existing.Price.Cents != 450 {
		t.Errorf("conflict should carry the current price, got %d", conflict.Existing.Price.Cents)
	}

	updated, err := svc.SavePrice(ctx, "u1", pp, true)
	if err != nil {
		t.Fatalf("confirmed update: %v", err)
	}
	if updated.ID != first.ID || updated.Price.Cents != 500 {
		t.Errorf("unexpected update %+v", updated)
	}

	if _, err := svc.SavePrice(ctx, "u1", core.ProductPrice{ProductID: prod.ID, StoreID: store.ID}, true); !errors.Is(err, core.ErrInvalidPrice) {
		t.Errorf("zero price should be rejected, got %v", err)
	}

	last := hub.events[len(hub.events)-1]
	if last.entity != EntityPrice || last.action != ActionUpdated {
		t.Errorf("unexpected last event %+v", last)
	}
}

func TestCatalogService_StoreValidationAndMap(t *testing.T) {
	ctx := context.Background()
	svc := NewCatalogService(setupRepo(t), nil)

	lat, lng := 4.6097, -74.0817
	bad := 95.0
	if _, err := svc.CreateStore(ctx, "u1", core.Store{Name: "Norte", Latitude: &bad, Longitude: &lng}); !errors.Is(err, core.ErrInvalidLatitude) {
		t.Fatalf("expected invalid latitude, got %v", err)
	}
	if _, err := svc.CreateStore(ctx, "u1", core.Store{Name: "Centro", Latitude: &lat, Longitude: &lng}); err != nil {
		t.Fatalf("create store: %v", err)
	}
	if _, err := svc.CreateStore(ctx, "u1", core.Store{Name: "Sin mapa"}); err != nil {
		t.Fatalf("create store: %v", err)
	}
	if _, err := svc.CreateStore(ctx, "u1", core.Store{Name: "CENTRO"}); !errors.Is(err, core.ErrDuplicateStore) {
		t.Fatalf("expected duplicate store, got %v", err)
	}

	locs, err := svc.StoreLocations(ctx, "u1")
	if err != nil {
		t.Fatalf("locations: %v", err)
	}
	if len(locs) != 1 {
		t.Fatalf("expected 1 located store, got %d", len(locs))
	}
	if want := "https://www.google.com/maps/search/?api=1&query=4.6097,-74.0817"; locs[0].MapURL != want {
		t.Errorf("map url = %s, want %s", locs[0].MapURL, want)
	}
}

func TestShoppingService(t *testing.T) {
	ctx := context.Background()
	svc := NewShoppingService(setupRepo(t), nil)

	if _, err := svc.Add(ctx, "u1", core.ShoppingListItem{ItemName: "Pan", Quantity: 0}); !errors.Is(err, core.ErrInvalidQuantity) {
		t.Fatalf("expected invalid quantity, got %v", err)
	}
	if _, err := svc.Add(ctx, "u1", core.ShoppingListItem{ItemName: "Pan", Quantity: 1, Category: "Bebidas"}); !errors.Is(err, core.ErrInvalidCategory) {
		t.Fatalf("expected invalid category, got %v", err)
	}
	item, err := svc.Add(ctx, "u1", core.ShoppingListItem{ItemName: "Pan", Quantity: 2})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if item.Category != core.ShoppingOther {
		t.Errorf("default category = %s", item.Category)
	}
	if _, err := svc.Add(ctx, "u1", core.ShoppingListItem{ItemName: "Pan", Quantity: 1}); !errors.Is(err, core.ErrDuplicateItem) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	if _, err := svc.Toggle(ctx, "u1", "Pan"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	n, err := svc.ClearPurchased(ctx, "u1")
	if err != nil || n != 1 {
		t.Fatalf("clear purchased = %d, %v", n, err)
	}
}

func TestReportService(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)
	purchases := NewPurchaseService(repo, nil, nil)
	catalog := NewCatalogService(repo, nil)
	reports := NewReportService(repo)
	reports.now = func() time.Time { return time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC) }

	s1, _ := catalog.CreateStore(ctx, "u1", core.Store{Name: "S1"})
	s2, _ := catalog.CreateStore(ctx, "u1", core.Store{Name: "S2"})
	seed := []core.Purchase{
		{Name: "Arroz", Category: core.CategoryFood, UnitPrice: core.Money{Cents: 1000}, Quantity: 2, Date: core.NewDate(2024, 1, 5), StoreID: s1.ID},
		{Name: "Arroz", Category: core.CategoryFood, UnitPrice: core.Money{Cents: 600}, Quantity: 1, Date: core.NewDate(2024, 1, 10), StoreID: s2.ID},
		{Name: "Carne", Category: core.CategoryFood, UnitPrice: core.Money{Cents: 5400}, Quantity: 1, Date: core.NewDate(2024, 2, 3)},
	}
	for _, p := range seed {
		if _, err := purchases.Create(ctx, "u1", p); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	t.Run("dashboard", func(t *testing.T) {
		ov, err := reports.Dashboard(ctx, "u1")
		if err != nil {
			t.Fatalf("dashboard: %v", err)
		}
		if ov.Year != 2024 || ov.Month != 2 || ov.Total.Cents != 5400 || ov.Count != 1 {
			t.Errorf("unexpected overview %+v", ov)
		}
	})

	t.Run("monthly", func(t *testing.T) {
		months, err := reports.Monthly(ctx, "u1")
		if err != nil {
			t.Fatalf("monthly: %v", err)
		}
		if len(months) != 2 || months[0].Month != 2 || months[1].Total.Cents != 2600 {
			t.Fatalf("unexpected months %+v", months)
		}
		if months[0].Trend == nil || months[0].Trend.Direction != analytics.Increase {
			t.Errorf("unexpected trend %+v", months[0].Trend)
		}
	})

	t.Run("month detail", func(t *testing.T) {
		detail, err := reports.MonthDetail(ctx, "u1", 2024, 1)
		if err != nil {
			t.Fatalf("month detail: %v", err)
		}
		if len(detail.Purchases) != 2 || detail.Summary.Total.Cents != 2600 || detail.Summary.Trend != nil {
			t.Errorf("unexpected detail %+v", detail)
		}
		if _, err := reports.MonthDetail(ctx, "u1", 2024, 13); !errors.Is(err, core.ErrValidation) {
			t.Errorf("month 13 should be a validation error, got %v", err)
		}
	})

	t.Run("category comparison", func(t *testing.T) {
		report, err := reports.CategoryComparison(ctx, "u1", core.NewDate(2024, 1, 1), core.NewDate(2024, 1, 31))
		if err != nil {
			t.Fatalf("category comparison: %v", err)
		}
		if len(report.Categories) != 1 || report.Categories[0].BestStore.StoreName != "S2" {
			t.Fatalf("unexpected categories %+v", report.Categories)
		}
		if len(report.Products) != 1 || report.From == nil {
			t.Errorf("unexpected report %+v", report)
		}
	})

	t.Run("price comparison", func(t *testing.T) {
		prod, _ := catalog.CreateProduct(ctx, "u1", core.Product{Name: "Arroz", Category: core.CategoryFood})
		if _, err := catalog.SavePrice(ctx, "u1", core.ProductPrice{ProductID: prod.ID, StoreID: s1.ID, Price: core.Money{Cents: 1000}}, false); err != nil {
			t.Fatalf("price: %v", err)
		}
		if _, err := catalog.SavePrice(ctx, "u1", core.ProductPrice{ProductID: prod.ID, StoreID: s2.ID, Price: core.Money{Cents: 1500}}, false); err != nil {
			t.Fatalf("price: %v", err)
		}
		report, err := reports.PriceComparison(ctx, "u1")
		if err != nil {
			t.Fatalf("price comparison: %v", err)
		}
		if len(report.Comparisons) != 1 || report.Comparisons[0].MaxSaving.Cents != 500 {
			t.Fatalf("unexpected comparisons %+v", report.Comparisons)
		}
		if len(report.Categories) != 1 || report.Categories[0].BestStore != "S1" {
			t.Errorf("unexpected rollup %+v", report.Categories)
		}
	})
}
