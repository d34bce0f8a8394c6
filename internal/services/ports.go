package services

import (
	"context"

	"compras/internal/core"
	"compras/internal/storage"
)

// PurchaseRepository is the purchase persistence used by PurchaseService.
type PurchaseRepository interface {
	CreatePurchase(ctx context.Context, p core.Purchase) (core.Purchase, error)
	GetPurchase(ctx context.Context, ownerID, id string) (core.PurchaseWithStore, error)
	UpdatePurchase(ctx context.Context, p core.Purchase) (core.Purchase, error)
	DeletePurchase(ctx context.Context, ownerID, id string) error
	ListPurchases(ctx context.Context, ownerID string, f storage.PurchaseFilter) ([]core.PurchaseWithStore, error)
	PurchaseVersion(ctx context.Context, ownerID, id string) (int64, error)
}

// CatalogRepository persists stores, products and their prices.
type CatalogRepository interface {
	CreateStore(ctx context.Context, s core.Store) (core.Store, error)
	GetStore(ctx context.Context, ownerID, id string) (core.Store, error)
	ListStores(ctx context.Context, ownerID string) ([]core.Store, error)
	UpdateStore(ctx context.Context, s core.Store) (core.Store, error)
	DeleteStore(ctx context.Context, ownerID, id string) error

	CreateProduct(ctx context.Context, p core.Product) (core.Product, error)
	GetProduct(ctx context.Context, ownerID, id string) (core.Product, error)
	ListProducts(ctx context.Context, ownerID string) ([]core.Product, error)
	UpdateProduct(ctx context.Context, p core.Product) (core.Product, error)
	DeleteProduct(ctx context.Context, ownerID, id string) error

	ListPrices(ctx context.Context, ownerID, productID string) ([]core.PriceWithStore, error)
	FindPrice(ctx context.Context, ownerID, productID, storeID string) (core.PriceWithStore, error)
	SavePrice(ctx context.Context, ownerID string, pp core.ProductPrice) (core.PriceWithStore, error)
	DeletePrice(ctx context.Context, ownerID, id string) error
}

// ShoppingRepository persists shopping list items.
type ShoppingRepository interface {
	ListItems(ctx context.Context, ownerID string) ([]core.ShoppingListItem, error)
	AddItem(ctx context.Context, item core.ShoppingListItem) (core.ShoppingListItem, error)
	UpdateItem(ctx context.Context, name string, item core.ShoppingListItem) (core.ShoppingListItem, error)
	ToggleItem(ctx context.Context, ownerID, name string) (core.ShoppingListItem, error)
	DeleteItem(ctx context.Context, ownerID, name string) error
	ClearPurchased(ctx context.Context, ownerID string) (int64, error)
}

// ReportRepository is the read side used to build reports.
type ReportRepository interface {
	ListPurchases(ctx context.Context, ownerID string, f storage.PurchaseFilter) ([]core.PurchaseWithStore, error)
	ListProducts(ctx context.Context, ownerID string) ([]core.Product, error)
	ListPrices(ctx context.Context, ownerID, productID string) ([]core.PriceWithStore, error)
}

// Publisher enqueues purchase exports. Implemented by *amqp.Client.
type Publisher interface {
	PublishPurchaseSync(ctx context.Context, id, ownerID string, version int64) error
	PublishPurchaseDelete(ctx context.Context, id, ownerID string) error
}

// Notifier pushes change events to the owner's live connections.
// Implemented by *websocket.Hub.
type Notifier interface {
	Notify(ownerID, entity, action, id string)
}

// Entity and action names carried by change events.
const (
	EntityPurchase = "purchase"
	EntityStore    = "store"
	EntityProduct  = "product"
	EntityPrice    = "price"
	EntityItem     = "shopping_item"

	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

type notifier struct {
	n Notifier
}

func (n notifier) send(ownerID, entity, action, id string) {
	if n.n == nil {
		return
	}
	n.n.Notify(ownerID, entity, action, id)
}
