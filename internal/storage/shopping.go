package storage

import (
	"context"
	"database/sql"
	"fmt"

	"compras/internal/core"
)

const itemCols = `owner_id, item_name, quantity, category, purchased, created_at`

func scanItem(scanner interface{ Scan(...any) error }) (*core.ShoppingListItem, error) {
	var (
		item      core.ShoppingListItem
		purchased int
		createdAt string
	)
	if err := scanner.Scan(&item.OwnerID, &item.ItemName, &item.Quantity, &item.Category, &purchased, &createdAt); err != nil {
		return nil, err
	}
	item.Purchased = purchased != 0
	item.CreatedAt = parseTime(createdAt)
	return &item, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ListItems returns the owner's shopping list, pending items first.
func (r *SQLiteRepository) ListItems(ctx context.Context, ownerID string) ([]core.ShoppingListItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+itemCols+` FROM shopping_list_items WHERE owner_id = ? ORDER BY purchased ASC, category ASC, item_name ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list shopping items: %w", err)
	}
	defer rows.Close()

	items := make([]core.ShoppingListItem, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shopping item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (r *SQLiteRepository) GetItem(ctx context.Context, ownerID, name string) (core.ShoppingListItem, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+itemCols+` FROM shopping_list_items WHERE owner_id = ? AND item_name = ?`, ownerID, name)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return core.ShoppingListItem{}, core.ErrNotFound
	}
	if err != nil {
		return core.ShoppingListItem{}, fmt.Errorf("get shopping item: %w", err)
	}
	return *item, nil
}

func (r *SQLiteRepository) AddItem(ctx context.Context, item core.ShoppingListItem) (core.ShoppingListItem, error) {
	item.Normalize()
	item.CreatedAt = r.now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO shopping_list_items (owner_id, item_name, quantity, category, purchased, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		item.OwnerID, item.ItemName, item.Quantity, string(item.Category), boolInt(item.Purchased), formatTime(item.CreatedAt),
	)
	if isUniqueViolation(err) {
		return core.ShoppingListItem{}, core.ErrDuplicateItem
	}
	if err != nil {
		return core.ShoppingListItem{}, fmt.Errorf("insert shopping item: %w", err)
	}
	return item, nil
}

// UpdateItem replaces the item stored under name. item.ItemName may differ
// from name to rename it.
func (r *SQLiteRepository) UpdateItem(ctx context.Context, name string, item core.ShoppingListItem) (core.ShoppingListItem, error) {
	item.Normalize()
	res, err := r.db.ExecContext(ctx,
		`UPDATE shopping_list_items SET item_name = ?, quantity = ?, category = ?, purchased = ? WHERE owner_id = ? AND item_name = ?`,
		item.ItemName, item.Quantity, string(item.Category), boolInt(item.Purchased), item.OwnerID, name,
	)
	if isUniqueViolation(err) {
		return core.ShoppingListItem{}, core.ErrDuplicateItem
	}
	if err != nil {
		return core.ShoppingListItem{}, fmt.Errorf("update shopping item: %w", err)
	}
	if err := affected(res, core.ErrNotFound); err != nil {
		return core.ShoppingListItem{}, err
	}
	return r.GetItem(ctx, item.OwnerID, item.ItemName)
}

// ToggleItem flips the purchased flag and returns the updated item.
func (r *SQLiteRepository) ToggleItem(ctx context.Context, ownerID, name string) (core.ShoppingListItem, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE shopping_list_items SET purchased = 1 - purchased WHERE owner_id = ? AND item_name = ?`, ownerID, name)
	if err != nil {
		return core.ShoppingListItem{}, fmt.Errorf("toggle shopping item: %w", err)
	}
	if err := affected(res, core.ErrNotFound); err != nil {
		return core.ShoppingListItem{}, err
	}
	return r.GetItem(ctx, ownerID, name)
}

func (r *SQLiteRepository) DeleteItem(ctx context.Context, ownerID, name string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM shopping_list_items WHERE owner_id = ? AND item_name = ?`, ownerID, name)
	if err != nil {
		return fmt.Errorf("delete shopping item: %w", err)
	}
	return affected(res, core.ErrNotFound)
}

// ClearPurchased removes the owner's purchased items and returns how many
// were removed.
func (r *SQLiteRepository) ClearPurchased(ctx context.Context, ownerID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM shopping_list_items WHERE owner_id = ? AND purchased = 1`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("clear purchased items: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
