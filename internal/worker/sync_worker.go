package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"compras/internal/amqp"
	"compras/internal/core"
	"compras/internal/sheets"
	"compras/internal/storage"

	"golang.org/x/sync/errgroup"
)

// PurchaseStore is the slice of storage the worker needs.
type PurchaseStore interface {
	GetPurchase(ctx context.Context, ownerID, id string) (core.PurchaseWithStore, error)
	PurchaseVersion(ctx context.Context, ownerID, id string) (int64, error)
	GetPendingSyncPurchases(ctx context.Context, limit int) ([]storage.PendingSyncPurchase, error)
	MarkSynced(ctx context.Context, ownerID, id string, version int64) error
	MarkSyncError(ctx context.Context, ownerID, id string) error
}

// Consumer delivers queued messages to a handler until ctx is done.
type Consumer interface {
	Consume(ctx context.Context, handler amqp.Handler) error
}

// SyncWorker exports purchases from SQLite to a spreadsheet.
type SyncWorker struct {
	store     PurchaseStore
	exporter  sheets.PurchaseExporter
	batchSize int
}

func NewSyncWorker(store PurchaseStore, exporter sheets.PurchaseExporter, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &SyncWorker{
		store:     store,
		exporter:  exporter,
		batchSize: batchSize,
	}
}

// HandleMessage is the amqp.Handler for the sync queue.
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.Message) error {
	switch msg.Type {
	case amqp.TypeSync:
		return w.HandleSyncMessage(ctx, msg)
	case amqp.TypeDelete:
		return w.HandleDeleteMessage(ctx, msg)
	default:
		slog.WarnContext(ctx, "Dropping message of unknown type", "type", msg.Type, "id", msg.ID)
		return nil
	}
}

// HandleSyncMessage exports the current state of the purchase. The message
// version is informational: whatever is in the database now is exported.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.Message) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"version", msg.Version)

	err := w.syncPurchase(ctx, msg.OwnerID, msg.ID)
	if errors.Is(err, core.ErrNotFound) {
		// Deleted after the message was queued; its delete message follows.
		slog.InfoContext(ctx, "Purchase no longer exists, skipping sync", "id", msg.ID)
		return nil
	}
	return err
}

// HandleDeleteMessage removes the purchase row from the export.
func (w *SyncWorker) HandleDeleteMessage(ctx context.Context, msg *amqp.Message) error {
	slog.InfoContext(ctx, "Processing delete message", "id", msg.ID)

	if err := w.exporter.DeletePurchase(ctx, msg.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to delete exported purchase",
			"id", msg.ID,
			"error", err,
			"timestamp", msg.Timestamp)
		return fmt.Errorf("delete exported purchase: %w", err)
	}

	slog.InfoContext(ctx, "Deleted exported purchase", "id", msg.ID)
	return nil
}

// ProcessPendingPurchases exports one batch of purchases still pending or
// in error. It is the backstop for lost or failed messages.
func (w *SyncWorker) ProcessPendingPurchases(ctx context.Context) error {
	_, _, err := w.processPending(ctx, w.batchSize)
	return err
}

// StartupSyncCheck runs a larger sweep when the worker starts, to catch up
// on anything missed while it was down.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	synced, failed, err := w.processPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	if synced+failed == 0 {
		slog.InfoContext(ctx, "No pending purchases found on startup")
		return nil
	}
	slog.InfoContext(ctx, "Startup sync completed",
		"synced", synced,
		"errors", failed)
	return nil
}

// Run consumes messages (when consumer is non-nil) and sweeps pending
// purchases every interval until ctx is done.
func (w *SyncWorker) Run(ctx context.Context, consumer Consumer, interval time.Duration) error {
	if err := w.StartupSyncCheck(ctx); err != nil {
		slog.ErrorContext(ctx, "Startup sync check failed", "error", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	if consumer != nil {
		g.Go(func() error {
			return consumer.Consume(ctx, w.HandleMessage)
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := w.ProcessPendingPurchases(ctx); err != nil {
					slog.ErrorContext(ctx, "Pending sync sweep failed", "error", err)
				}
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *SyncWorker) processPending(ctx context.Context, limit int) (synced, failed int, err error) {
	pending, err := w.store.GetPendingSyncPurchases(ctx, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("get pending purchases: %w", err)
	}
	if len(pending) == 0 {
		return 0, 0, nil
	}

	slog.InfoContext(ctx, "Processing pending purchases", "count", len(pending))

	for _, p := range pending {
		if ctx.Err() != nil {
			return synced, failed, ctx.Err()
		}
		if err := w.syncPurchase(ctx, p.OwnerID, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to sync purchase", "id", p.ID, "error", err)
			failed++
			continue
		}
		synced++
	}
	return synced, failed, nil
}

// syncPurchase reads the version before the row, so an edit that lands
// during the export leaves the purchase pending for the next sweep.
func (w *SyncWorker) syncPurchase(ctx context.Context, ownerID, id string) error {
	version, err := w.store.PurchaseVersion(ctx, ownerID, id)
	if err != nil {
		return fmt.Errorf("get purchase version: %w", err)
	}
	p, err := w.store.GetPurchase(ctx, ownerID, id)
	if err != nil {
		return fmt.Errorf("get purchase: %w", err)
	}

	if err := w.exporter.UpsertPurchase(ctx, sheets.RowFromPurchase(p)); err != nil {
		if markErr := w.store.MarkSyncError(ctx, ownerID, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("export purchase: %w", err)
	}

	if err := w.store.MarkSynced(ctx, ownerID, id, version); err != nil {
		// The export worked; the next sweep re-exports idempotently.
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", id, "error", err)
	}

	slog.InfoContext(ctx, "Synced purchase",
		"id", id,
		"version", version,
		"total_cents", p.Total().Cents)
	return nil
}
