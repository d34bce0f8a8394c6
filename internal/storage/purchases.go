package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"compras/internal/core"
)

// Sync states of a purchase row.
const (
	SyncPending = "pending"
	SyncSynced  = "synced"
	SyncError   = "error"
)

// PurchaseFilter narrows ListPurchases. Zero fields do not filter.
type PurchaseFilter struct {
	Query    string
	Category core.Category
	Year     int
	Month    int
	From     core.Date
	To       core.Date
}

// PendingSyncPurchase is the minimal data needed to enqueue an export.
type PendingSyncPurchase struct {
	ID        string
	OwnerID   string
	Version   int64
	CreatedAt time.Time
}

const purchaseCols = `p.id, p.owner_id, p.name, p.category, p.unit_price_cents, p.quantity, p.date, p.store_id, p.month, p.year, p.created_at, p.updated_at,
	s.id, s.owner_id, s.name, s.address, s.latitude, s.longitude, s.created_at`

const purchaseFrom = ` FROM purchases p LEFT JOIN stores s ON s.id = p.store_id AND s.owner_id = p.owner_id`

func scanPurchase(scanner interface{ Scan(...any) error }) (*core.PurchaseWithStore, error) {
	var (
		p                                     core.PurchaseWithStore
		date, createdAt, updatedAt            string
		storeID                               sql.NullString
		sID, sOwner, sName, sAddr, sCreatedAt sql.NullString
		sLat, sLng                            sql.NullFloat64
	)
	err := scanner.Scan(
		&p.ID, &p.OwnerID, &p.Name, &p.Category, &p.UnitPrice.Cents, &p.Quantity, &date, &storeID,
		&p.Month, &p.Year, &createdAt, &updatedAt,
		&sID, &sOwner, &sName, &sAddr, &sLat, &sLng, &sCreatedAt,
	)
	if err != nil {
		return nil, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("purchase %s has invalid date %q", p.ID, date)
	}
	p.Date = d
	p.StoreID = storeID.String
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	if sID.Valid {
		p.Store = &core.Store{
			ID:        sID.String,
			OwnerID:   sOwner.String,
			Name:      sName.String,
			Address:   sAddr.String,
			Latitude:  floatPtr(sLat),
			Longitude: floatPtr(sLng),
			CreatedAt: parseTime(sCreatedAt.String),
		}
	}
	return &p, nil
}

// CreatePurchase inserts p, assigning its id and timestamps. The purchase
// starts pending export.
func (r *SQLiteRepository) CreatePurchase(ctx context.Context, p core.Purchase) (core.Purchase, error) {
	p.Normalize()
	if p.ID == "" {
		p.ID = newID()
	}
	now := r.now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	if err := r.checkStoreOwner(ctx, p.OwnerID, p.StoreID); err != nil {
		return core.Purchase{}, err
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO purchases (id, owner_id, name, category, unit_price_cents, quantity, date, store_id, month, year, sync_status, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		p.ID, p.OwnerID, p.Name, string(p.Category), p.UnitPrice.Cents, p.Quantity, p.Date.String(),
		nullString(p.StoreID), p.Month, p.Year, SyncPending, formatTime(now), formatTime(now),
	)
	if err != nil {
		return core.Purchase{}, fmt.Errorf("insert purchase: %w", err)
	}

	slog.InfoContext(ctx, "Purchase saved to SQLite",
		"id", p.ID,
		"name", p.Name,
		"unit_price_cents", p.UnitPrice.Cents,
		"quantity", p.Quantity,
		"date", p.Date.String())

	return p, nil
}

// GetPurchase returns one purchase joined with its store.
func (r *SQLiteRepository) GetPurchase(ctx context.Context, ownerID, id string) (core.PurchaseWithStore, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+purchaseCols+purchaseFrom+` WHERE p.owner_id = ? AND p.id = ?`, ownerID, id)
	p, err := scanPurchase(row)
	if err == sql.ErrNoRows {
		return core.PurchaseWithStore{}, core.ErrNotFound
	}
	if err != nil {
		return core.PurchaseWithStore{}, fmt.Errorf("get purchase by id: %w", err)
	}
	return *p, nil
}

// UpdatePurchase replaces the mutable fields of p, bumps its version and
// puts it back in the export queue.
func (r *SQLiteRepository) UpdatePurchase(ctx context.Context, p core.Purchase) (core.Purchase, error) {
	p.Normalize()
	if err := r.checkStoreOwner(ctx, p.OwnerID, p.StoreID); err != nil {
		return core.Purchase{}, err
	}
	now := r.now().UTC()

	res, err := r.db.ExecContext(ctx,
		`UPDATE purchases
		 SET name = ?, category = ?, unit_price_cents = ?, quantity = ?, date = ?, store_id = ?, month = ?, year = ?,
		     sync_status = ?, version = version + 1, updated_at = ?
		 WHERE owner_id = ? AND id = ?`,
		p.Name, string(p.Category), p.UnitPrice.Cents, p.Quantity, p.Date.String(), nullString(p.StoreID),
		p.Month, p.Year, SyncPending, formatTime(now), p.OwnerID, p.ID,
	)
	if err != nil {
		return core.Purchase{}, fmt.Errorf("update purchase: %w", err)
	}
	if err := affected(res, core.ErrNotFound); err != nil {
		return core.Purchase{}, err
	}

	stored, err := r.GetPurchase(ctx, p.OwnerID, p.ID)
	if err != nil {
		return core.Purchase{}, err
	}
	return stored.Purchase, nil
}

func (r *SQLiteRepository) DeletePurchase(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM purchases WHERE owner_id = ? AND id = ?`, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete purchase: %w", err)
	}
	return affected(res, core.ErrNotFound)
}

// ListPurchases returns the owner's purchases matching f, newest first.
// The text query matches the purchase name or the store name, ignoring case.
func (r *SQLiteRepository) ListPurchases(ctx context.Context, ownerID string, f PurchaseFilter) ([]core.PurchaseWithStore, error) {
	var (
		where = []string{"p.owner_id = ?"}
		args  = []any{ownerID}
	)
	if f.Category != "" {
		where = append(where, "p.category = ?")
		args = append(args, string(f.Category))
	}
	if f.Year > 0 {
		where = append(where, "p.year = ?")
		args = append(args, f.Year)
	}
	if f.Month > 0 {
		where = append(where, "p.month = ?")
		args = append(args, f.Month)
	}
	if !f.From.IsZero() {
		where = append(where, "p.date >= ?")
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		where = append(where, "p.date <= ?")
		args = append(args, f.To.String())
	}

	query := `SELECT ` + purchaseCols + purchaseFrom + ` WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY p.date DESC, p.created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	defer rows.Close()

	q := nameKey(f.Query)
	purchases := make([]core.PurchaseWithStore, 0)
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		if q != "" && !matchesQuery(*p, q) {
			continue
		}
		purchases = append(purchases, *p)
	}
	return purchases, rows.Err()
}

func matchesQuery(p core.PurchaseWithStore, q string) bool {
	if strings.Contains(nameKey(p.Name), q) {
		return true
	}
	return p.Store != nil && strings.Contains(nameKey(p.Store.Name), q)
}

// GetPendingSyncPurchases returns purchases waiting for export, across all
// owners, oldest first.
func (r *SQLiteRepository) GetPendingSyncPurchases(ctx context.Context, limit int) ([]PendingSyncPurchase, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, version, created_at FROM purchases
		 WHERE sync_status IN (?, ?) ORDER BY created_at ASC LIMIT ?`,
		SyncPending, SyncError, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync purchases: %w", err)
	}
	defer rows.Close()

	var pending []PendingSyncPurchase
	for rows.Next() {
		var (
			p         PendingSyncPurchase
			createdAt string
		)
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Version, &createdAt); err != nil {
			return nil, fmt.Errorf("scan pending purchase: %w", err)
		}
		p.CreatedAt = parseTime(createdAt)
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// PurchaseVersion returns the current version of a purchase.
func (r *SQLiteRepository) PurchaseVersion(ctx context.Context, ownerID, id string) (int64, error) {
	var v int64
	err := r.db.QueryRowContext(ctx, `SELECT version FROM purchases WHERE owner_id = ? AND id = ?`, ownerID, id).Scan(&v)
	if err == sql.ErrNoRows {
		return 0, core.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get purchase version: %w", err)
	}
	return v, nil
}

// MarkSynced records a successful export of the given version. A purchase
// edited since then stays pending.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, ownerID, id string, version int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE purchases SET sync_status = ?, synced_at = ? WHERE owner_id = ? AND id = ? AND version = ?`,
		SyncSynced, formatTime(r.now()), ownerID, id, version)
	if err != nil {
		return fmt.Errorf("mark purchase synced: %w", err)
	}

	slog.InfoContext(ctx, "Purchase marked as synced", "id", id, "version", version)
	return nil
}

// MarkSyncError flags a failed export so the periodic sweep retries it.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, ownerID, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE purchases SET sync_status = ? WHERE owner_id = ? AND id = ?`, SyncError, ownerID, id)
	if err != nil {
		return fmt.Errorf("mark purchase sync error: %w", err)
	}

	slog.WarnContext(ctx, "Purchase marked with sync error", "id", id)
	return nil
}

// SyncStatus returns the export state of a purchase.
func (r *SQLiteRepository) SyncStatus(ctx context.Context, ownerID, id string) (string, error) {
	var status string
	err := r.db.QueryRowContext(ctx, `SELECT sync_status FROM purchases WHERE owner_id = ? AND id = ?`, ownerID, id).Scan(&status)
	if err == sql.ErrNoRows {
		return "", core.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get sync status: %w", err)
	}
	return status, nil
}

func (r *SQLiteRepository) checkStoreOwner(ctx context.Context, ownerID, storeID string) error {
	if storeID == "" {
		return nil
	}
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM stores WHERE owner_id = ? AND id = ?`, ownerID, storeID).Scan(&one)
	if err == sql.ErrNoRows {
		return fmt.Errorf("store %s: %w", storeID, core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("check store: %w", err)
	}
	return nil
}
