package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"compras/internal/analytics"
	"compras/internal/core"
	"compras/internal/storage"
)

// PriceReport is the price comparison view.
type PriceReport struct {
	Comparisons []analytics.PriceComparison `json:"comparisons"`
	Categories  []analytics.CategoryRollup  `json:"categories"`
}

// CategoryReport is the purchase-based store comparison for a date range.
type CategoryReport struct {
	From       *core.Date                     `json:"from,omitempty"`
	To         *core.Date                     `json:"to,omitempty"`
	Categories []analytics.CategoryComparison `json:"categories"`
	Products   []analytics.ProductDetail      `json:"products"`
}

// MonthReport details one month and how it compares with the one before.
type MonthReport struct {
	Summary   analytics.MonthSummary   `json:"summary"`
	Purchases []core.PurchaseWithStore `json:"purchases"`
}

var errInvalidMonth = &core.ValidationError{Field: "month", Message: "month must be between 1 and 12"}

// ReportService assembles the read-only reports from storage and the
// analytics package.
type ReportService struct {
	repo ReportRepository
	now  func() time.Time
}

func NewReportService(repo ReportRepository) *ReportService {
	return &ReportService{repo: repo, now: time.Now}
}

// Dashboard summarises the current month.
func (s *ReportService) Dashboard(ctx context.Context, ownerID string) (core.MonthOverview, error) {
	today := core.DateOf(s.now())
	purchases, err := s.repo.ListPurchases(ctx, ownerID, storage.PurchaseFilter{Year: today.Year(), Month: today.Month()})
	if err != nil {
		return core.MonthOverview{}, fmt.Errorf("load purchases: %w", err)
	}
	return analytics.Dashboard(purchases, today), nil
}

// PriceComparison compares current store prices for every product.
func (s *ReportService) PriceComparison(ctx context.Context, ownerID string) (PriceReport, error) {
	var (
		products []core.Product
		prices   []core.PriceWithStore
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = s.repo.ListProducts(gctx, ownerID)
		if err != nil {
			return fmt.Errorf("load products: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		prices, err = s.repo.ListPrices(gctx, ownerID, "")
		if err != nil {
			return fmt.Errorf("load prices: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return PriceReport{}, err
	}

	comparisons := analytics.ComparePrices(products, prices)
	return PriceReport{
		Comparisons: comparisons,
		Categories:  analytics.RollupCategories(comparisons),
	}, nil
}

// CategoryComparison compares stores per category from actual purchases in
// the inclusive range. Zero bounds are open.
func (s *ReportService) CategoryComparison(ctx context.Context, ownerID string, from, to core.Date) (CategoryReport, error) {
	purchases, err := s.repo.ListPurchases(ctx, ownerID, storage.PurchaseFilter{From: from, To: to})
	if err != nil {
		return CategoryReport{}, fmt.Errorf("load purchases: %w", err)
	}
	r := analytics.DateRange{Start: from, End: to}
	report := CategoryReport{
		Categories: analytics.CompareStoresByCategory(purchases, r),
		Products:   analytics.ProductBreakdown(purchases, r),
	}
	if !from.IsZero() {
		report.From = &from
	}
	if !to.IsZero() {
		report.To = &to
	}
	return report, nil
}

// Monthly returns every month with purchases, newest first, with trends.
func (s *ReportService) Monthly(ctx context.Context, ownerID string) ([]analytics.MonthSummary, error) {
	purchases, err := s.repo.ListPurchases(ctx, ownerID, storage.PurchaseFilter{})
	if err != nil {
		return nil, fmt.Errorf("load purchases: %w", err)
	}
	return analytics.Trends(analytics.SummarizeMonths(purchases)), nil
}

// MonthDetail lists the purchases of one month. The summary carries a trend
// against the previous calendar month when that month has purchases.
func (s *ReportService) MonthDetail(ctx context.Context, ownerID string, year, month int) (MonthReport, error) {
	if month < 1 || month > 12 {
		return MonthReport{}, errInvalidMonth
	}
	prevYear, prevMonth := year, month-1
	if prevMonth == 0 {
		prevYear, prevMonth = year-1, 12
	}

	var current, previous []core.PurchaseWithStore
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, err = s.repo.ListPurchases(gctx, ownerID, storage.PurchaseFilter{Year: year, Month: month})
		if err != nil {
			return fmt.Errorf("load month: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		previous, err = s.repo.ListPurchases(gctx, ownerID, storage.PurchaseFilter{Year: prevYear, Month: prevMonth})
		if err != nil {
			return fmt.Errorf("load previous month: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return MonthReport{}, err
	}

	report := MonthReport{
		Summary:   summaryOf(current, year, month),
		Purchases: analytics.MonthDetail(current, year, month),
	}
	if len(previous) > 0 {
		t := analytics.CompareMonths(report.Summary, summaryOf(previous, prevYear, prevMonth))
		report.Summary.Trend = &t
	}
	return report, nil
}

func summaryOf(purchases []core.PurchaseWithStore, year, month int) analytics.MonthSummary {
	for _, s := range analytics.SummarizeMonths(purchases) {
		if s.Year == year && s.Month == month {
			return s
		}
	}
	return analytics.MonthSummary{Year: year, Month: month}
}
