package services

import (
	"context"
	"fmt"
	"log/slog"

	"compras/internal/core"
	"compras/internal/storage"
)

// PurchaseService orchestrates purchase operations across SQLite, AMQP and
// the websocket hub. Publisher and notifier are optional.
type PurchaseService struct {
	repo      PurchaseRepository
	publisher Publisher
	notify    notifier
}

func NewPurchaseService(repo PurchaseRepository, publisher Publisher, n Notifier) *PurchaseService {
	return &PurchaseService{repo: repo, publisher: publisher, notify: notifier{n}}
}

// Create validates and saves a purchase, then schedules its export.
func (s *PurchaseService) Create(ctx context.Context, ownerID string, p core.Purchase) (core.Purchase, error) {
	p.OwnerID = ownerID
	p.ID = ""
	p.Normalize()
	if err := p.Validate(); err != nil {
		return core.Purchase{}, err
	}

	// Save to SQLite first; export is best effort.
	saved, err := s.repo.CreatePurchase(ctx, p)
	if err != nil {
		return core.Purchase{}, fmt.Errorf("save purchase: %w", err)
	}

	s.publishSync(ctx, saved.ID, ownerID, 1)
	s.notify.send(ownerID, EntityPurchase, ActionCreated, saved.ID)
	return saved, nil
}

func (s *PurchaseService) Get(ctx context.Context, ownerID, id string) (core.PurchaseWithStore, error) {
	return s.repo.GetPurchase(ctx, ownerID, id)
}

// Update replaces the mutable fields of the purchase id.
func (s *PurchaseService) Update(ctx context.Context, ownerID, id string, p core.Purchase) (core.Purchase, error) {
	p.OwnerID = ownerID
	p.ID = id
	p.Normalize()
	if err := p.Validate(); err != nil {
		return core.Purchase{}, err
	}

	saved, err := s.repo.UpdatePurchase(ctx, p)
	if err != nil {
		return core.Purchase{}, fmt.Errorf("update purchase: %w", err)
	}

	version, err := s.repo.PurchaseVersion(ctx, ownerID, id)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to read purchase version", "id", id, "error", err)
	} else {
		s.publishSync(ctx, id, ownerID, version)
	}
	s.notify.send(ownerID, EntityPurchase, ActionUpdated, id)
	return saved, nil
}

func (s *PurchaseService) Delete(ctx context.Context, ownerID, id string) error {
	if err := s.repo.DeletePurchase(ctx, ownerID, id); err != nil {
		return fmt.Errorf("delete purchase: %w", err)
	}

	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping delete message")
	} else if err := s.publisher.PublishPurchaseDelete(ctx, id, ownerID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete message", "id", id, "error", err)
	}
	s.notify.send(ownerID, EntityPurchase, ActionDeleted, id)
	return nil
}

func (s *PurchaseService) List(ctx context.Context, ownerID string, f storage.PurchaseFilter) ([]core.PurchaseWithStore, error) {
	purchases, err := s.repo.ListPurchases(ctx, ownerID, f)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	return purchases, nil
}

func (s *PurchaseService) publishSync(ctx context.Context, id, ownerID string, version int64) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return
	}
	if err := s.publisher.PublishPurchaseSync(ctx, id, ownerID, version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", id, "version", version, "error", err)
	}
}
