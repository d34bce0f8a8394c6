package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"compras/internal/core"
)

// PriceConflictError reports that a price already exists for the product and
// store. It matches core.ErrPriceExists.
type PriceConflictError struct {
	Existing core.PriceWithStore
}

func (e *PriceConflictError) Error() string {
	return fmt.Sprintf("%s (current price %s)", core.ErrPriceExists, e.Existing.Price)
}

func (e *PriceConflictError) Unwrap() error { return core.ErrPriceExists }

// StoreLocation is a store with coordinates and a link to open it on a map.
type StoreLocation struct {
	core.Store
	MapURL string `json:"map_url"`
}

// MapsURL returns the Google Maps search link for a coordinate pair.
func MapsURL(lat, lng float64) string {
	return "https://www.google.com/maps/search/?api=1&query=" +
		strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lng, 'f', -1, 64)
}

type CatalogService struct {
	repo   CatalogRepository
	notify notifier
}

func NewCatalogService(repo CatalogRepository, n Notifier) *CatalogService {
	return &CatalogService{repo: repo, notify: notifier{n}}
}

// --- Stores ---

func (s *CatalogService) CreateStore(ctx context.Context, ownerID string, st core.Store) (core.Store, error) {
	st.OwnerID = ownerID
	st.ID = ""
	st.Normalize()
	if err := st.Validate(); err != nil {
		return core.Store{}, err
	}
	saved, err := s.repo.CreateStore(ctx, st)
	if err != nil {
		return core.Store{}, fmt.Errorf("create store: %w", err)
	}
	s.notify.send(ownerID, EntityStore, ActionCreated, saved.ID)
	return saved, nil
}

func (s *CatalogService) GetStore(ctx context.Context, ownerID, id string) (core.Store, error) {
	return s.repo.GetStore(ctx, ownerID, id)
}

func (s *CatalogService) ListStores(ctx context.Context, ownerID string) ([]core.Store, error) {
	stores, err := s.repo.ListStores(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	return stores, nil
}

func (s *CatalogService) UpdateStore(ctx context.Context, ownerID, id string, st core.Store) (core.Store, error) {
	st.OwnerID = ownerID
	st.ID = id
	st.Normalize()
	if err := st.Validate(); err != nil {
		return core.Store{}, err
	}
	saved, err := s.repo.UpdateStore(ctx, st)
	if err != nil {
		return core.Store{}, fmt.Errorf("update store: %w", err)
	}
	s.notify.send(ownerID, EntityStore, ActionUpdated, id)
	return saved, nil
}

func (s *CatalogService) DeleteStore(ctx context.Context, ownerID, id string) error {
	if err := s.repo.DeleteStore(ctx, ownerID, id); err != nil {
		return fmt.Errorf("delete store: %w", err)
	}
	s.notify.send(ownerID, EntityStore, ActionDeleted, id)
	return nil
}

// StoreLocations lists the stores that have both coordinates.
func (s *CatalogService) StoreLocations(ctx context.Context, ownerID string) ([]StoreLocation, error) {
	stores, err := s.ListStores(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]StoreLocation, 0, len(stores))
	for _, st := range stores {
		if !st.HasCoordinates() {
			continue
		}
		out = append(out, StoreLocation{Store: st, MapURL: MapsURL(*st.Latitude, *st.Longitude)})
	}
	return out, nil
}

// --- Products ---

func (s *CatalogService) CreateProduct(ctx context.Context, ownerID string, p core.Product) (core.Product, error) {
	p.OwnerID = ownerID
	p.ID = ""
	p.Normalize()
	if err := p.Validate(); err != nil {
		return core.Product{}, err
	}
	saved, err := s.repo.CreateProduct(ctx, p)
	if err != nil {
		return core.Product{}, fmt.Errorf("create product: %w", err)
	}
	s.notify.send(ownerID, EntityProduct, ActionCreated, saved.ID)
	return saved, nil
}

func (s *CatalogService) ListProducts(ctx context.Context, ownerID string) ([]core.Product, error) {
	products, err := s.repo.ListProducts(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, ownerID, id string, p core.Product) (core.Product, error) {
	p.OwnerID = ownerID
	p.ID = id
	p.Normalize()
	if err := p.Validate(); err != nil {
		return core.Product{}, err
	}
	saved, err := s.repo.UpdateProduct(ctx, p)
	if err != nil {
		return core.Product{}, fmt.Errorf("update product: %w", err)
	}
	s.notify.send(ownerID, EntityProduct, ActionUpdated, id)
	return saved, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, ownerID, id string) error {
	if err := s.repo.DeleteProduct(ctx, ownerID, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	s.notify.send(ownerID, EntityProduct, ActionDeleted, id)
	return nil
}

// --- Prices ---

func (s *CatalogService) ListPrices(ctx context.Context, ownerID, productID string) ([]core.PriceWithStore, error) {
	prices, err := s.repo.ListPrices(ctx, ownerID, productID)
	if err != nil {
		return nil, fmt.Errorf("list prices: %w", err)
	}
	return prices, nil
}

// SavePrice records the price of a product at a store. Replacing an existing
// price requires confirm; otherwise a *PriceConflictError carrying the
// current price is returned.
func (s *CatalogService) SavePrice(ctx context.Context, ownerID string, pp core.ProductPrice, confirm bool) (core.PriceWithStore, error) {
	if err := pp.Validate(); err != nil {
		return core.PriceWithStore{}, err
	}

	existing, err := s.repo.FindPrice(ctx, ownerID, pp.ProductID, pp.StoreID)
	switch {
	case err == nil:
		if !confirm {
			return core.PriceWithStore{}, &PriceConflictError{Existing: existing}
		}
		pp.ID = existing.ID
	case errors.Is(err, core.ErrNotFound):
		pp.ID = ""
	default:
		return core.PriceWithStore{}, fmt.Errorf("find price: %w", err)
	}

	saved, err := s.repo.SavePrice(ctx, ownerID, pp)
	if err != nil {
		return core.PriceWithStore{}, fmt.Errorf("save price: %w", err)
	}
	action := ActionCreated
	if pp.ID != "" {
		action = ActionUpdated
	}
	s.notify.send(ownerID, EntityPrice, action, saved.ID)
	return saved, nil
}

func (s *CatalogService) DeletePrice(ctx context.Context, ownerID, id string) error {
	if err := s.repo.DeletePrice(ctx, ownerID, id); err != nil {
		return fmt.Errorf("delete price: %w", err)
	}
	s.notify.send(ownerID, EntityPrice, ActionDeleted, id)
	return nil
}
