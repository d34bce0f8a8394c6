package services

import (
	"context"
	"fmt"

	"compras/internal/core"
)

type ShoppingService struct {
	repo   ShoppingRepository
	notify notifier
}

func NewShoppingService(repo ShoppingRepository, n Notifier) *ShoppingService {
	return &ShoppingService{repo: repo, notify: notifier{n}}
}

func (s *ShoppingService) List(ctx context.Context, ownerID string) ([]core.ShoppingListItem, error) {
	items, err := s.repo.ListItems(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list shopping items: %w", err)
	}
	return items, nil
}

func (s *ShoppingService) Add(ctx context.Context, ownerID string, item core.ShoppingListItem) (core.ShoppingListItem, error) {
	item.OwnerID = ownerID
	item.Purchased = false
	item.Normalize()
	if err := item.Validate(); err != nil {
		return core.ShoppingListItem{}, err
	}
	saved, err := s.repo.AddItem(ctx, item)
	if err != nil {
		return core.ShoppingListItem{}, fmt.Errorf("add shopping item: %w", err)
	}
	s.notify.send(ownerID, EntityItem, ActionCreated, saved.ItemName)
	return saved, nil
}

// Update replaces the item stored under name.
func (s *ShoppingService) Update(ctx context.Context, ownerID, name string, item core.ShoppingListItem) (core.ShoppingListItem, error) {
	item.OwnerID = ownerID
	if item.ItemName == "" {
		item.ItemName = name
	}
	item.Normalize()
	if err := item.Validate(); err != nil {
		return core.ShoppingListItem{}, err
	}
	saved, err := s.repo.UpdateItem(ctx, name, item)
	if err != nil {
		return core.ShoppingListItem{}, fmt.Errorf("update shopping item: %w", err)
	}
	s.notify.send(ownerID, EntityItem, ActionUpdated, saved.ItemName)
	return saved, nil
}

func (s *ShoppingService) Toggle(ctx context.Context, ownerID, name string) (core.ShoppingListItem, error) {
	item, err := s.repo.ToggleItem(ctx, ownerID, name)
	if err != nil {
		return core.ShoppingListItem{}, fmt.Errorf("toggle shopping item: %w", err)
	}
	s.notify.send(ownerID, EntityItem, ActionUpdated, name)
	return item, nil
}

func (s *ShoppingService) Delete(ctx context.Context, ownerID, name string) error {
	if err := s.repo.DeleteItem(ctx, ownerID, name); err != nil {
		return fmt.Errorf("delete shopping item: %w", err)
	}
	s.notify.send(ownerID, EntityItem, ActionDeleted, name)
	return nil
}

// ClearPurchased removes every purchased item and returns how many went.
func (s *ShoppingService) ClearPurchased(ctx context.Context, ownerID string) (int64, error) {
	n, err := s.repo.ClearPurchased(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("clear purchased items: %w", err)
	}
	if n > 0 {
		s.notify.send(ownerID, EntityItem, ActionDeleted, "")
	}
	return n, nil
}
