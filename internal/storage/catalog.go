package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"compras/internal/core"
)

// --- Stores ---

const storeCols = `id, owner_id, name, address, latitude, longitude, created_at`

func scanStore(scanner interface{ Scan(...any) error }) (*core.Store, error) {
	var (
		s         core.Store
		lat, lng  sql.NullFloat64
		createdAt string
	)
	if err := scanner.Scan(&s.ID, &s.OwnerID, &s.Name, &s.Address, &lat, &lng, &createdAt); err != nil {
		return nil, err
	}
	s.Latitude = floatPtr(lat)
	s.Longitude = floatPtr(lng)
	s.CreatedAt = parseTime(createdAt)
	return &s, nil
}

func (r *SQLiteRepository) CreateStore(ctx context.Context, s core.Store) (core.Store, error) {
	s.Normalize()
	if s.ID == "" {
		s.ID = newID()
	}
	s.CreatedAt = r.now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO stores (id, owner_id, name, name_key, address, latitude, longitude, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.OwnerID, s.Name, nameKey(s.Name), s.Address, nullFloat(s.Latitude), nullFloat(s.Longitude), formatTime(s.CreatedAt),
	)
	if isUniqueViolation(err) {
		return core.Store{}, core.ErrDuplicateStore
	}
	if err != nil {
		return core.Store{}, fmt.Errorf("insert store: %w", err)
	}

	slog.InfoContext(ctx, "Store created", "id", s.ID, "name", s.Name)
	return s, nil
}

func (r *SQLiteRepository) GetStore(ctx context.Context, ownerID, id string) (core.Store, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+storeCols+` FROM stores WHERE owner_id = ? AND id = ?`, ownerID, id)
	s, err := scanStore(row)
	if err == sql.ErrNoRows {
		return core.Store{}, core.ErrNotFound
	}
	if err != nil {
		return core.Store{}, fmt.Errorf("get store: %w", err)
	}
	return *s, nil
}

// ListStores returns the owner's stores ordered by name.
func (r *SQLiteRepository) ListStores(ctx context.Context, ownerID string) ([]core.Store, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+storeCols+` FROM stores WHERE owner_id = ? ORDER BY name_key ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	defer rows.Close()

	stores := make([]core.Store, 0)
	for rows.Next() {
		s, err := scanStore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan store: %w", err)
		}
		stores = append(stores, *s)
	}
	return stores, rows.Err()
}

func (r *SQLiteRepository) UpdateStore(ctx context.Context, s core.Store) (core.Store, error) {
	s.Normalize()
	res, err := r.db.ExecContext(ctx,
		`UPDATE stores SET name = ?, name_key = ?, address = ?, latitude = ?, longitude = ? WHERE owner_id = ? AND id = ?`,
		s.Name, nameKey(s.Name), s.Address, nullFloat(s.Latitude), nullFloat(s.Longitude), s.OwnerID, s.ID,
	)
	if isUniqueViolation(err) {
		return core.Store{}, core.ErrDuplicateStore
	}
	if err != nil {
		return core.Store{}, fmt.Errorf("update store: %w", err)
	}
	if err := affected(res, core.ErrNotFound); err != nil {
		return core.Store{}, err
	}
	return r.GetStore(ctx, s.OwnerID, s.ID)
}

// DeleteStore removes a store. Its purchases keep their data without a
// store and its prices are removed.
func (r *SQLiteRepository) DeleteStore(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM stores WHERE owner_id = ? AND id = ?`, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete store: %w", err)
	}
	return affected(res, core.ErrNotFound)
}

// --- Products ---

const productCols = `id, owner_id, name, category, created_at`

func scanProduct(scanner interface{ Scan(...any) error }) (*core.Product, error) {
	var (
		p         core.Product
		createdAt string
	)
	if err := scanner.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Category, &createdAt); err != nil {
		return nil, err
	}
	p.CreatedAt = parseTime(createdAt)
	return &p, nil
}

func (r *SQLiteRepository) CreateProduct(ctx context.Context, p core.Product) (core.Product, error) {
	p.Normalize()
	if p.ID == "" {
		p.ID = newID()
	}
	p.CreatedAt = r.now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO products (id, owner_id, name, name_key, category, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.OwnerID, p.Name, nameKey(p.Name), string(p.Category), formatTime(p.CreatedAt),
	)
	if isUniqueViolation(err) {
		return core.Product{}, core.ErrDuplicateProduct
	}
	if err != nil {
		return core.Product{}, fmt.Errorf("insert product: %w", err)
	}

	slog.InfoContext(ctx, "Product created", "id", p.ID, "name", p.Name, "category", p.Category)
	return p, nil
}

func (r *SQLiteRepository) GetProduct(ctx context.Context, ownerID, id string) (core.Product, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+productCols+` FROM products WHERE owner_id = ? AND id = ?`, ownerID, id)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return core.Product{}, core.ErrNotFound
	}
	if err != nil {
		return core.Product{}, fmt.Errorf("get product: %w", err)
	}
	return *p, nil
}

// ListProducts returns the owner's products ordered by category and name.
func (r *SQLiteRepository) ListProducts(ctx context.Context, ownerID string) ([]core.Product, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+productCols+` FROM products WHERE owner_id = ? ORDER BY category ASC, name_key ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]core.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (r *SQLiteRepository) UpdateProduct(ctx context.Context, p core.Product) (core.Product, error) {
	p.Normalize()
	res, err := r.db.ExecContext(ctx,
		`UPDATE products SET name = ?, name_key = ?, category = ? WHERE owner_id = ? AND id = ?`,
		p.Name, nameKey(p.Name), string(p.Category), p.OwnerID, p.ID,
	)
	if isUniqueViolation(err) {
		return core.Product{}, core.ErrDuplicateProduct
	}
	if err != nil {
		return core.Product{}, fmt.Errorf("update product: %w", err)
	}
	if err := affected(res, core.ErrNotFound); err != nil {
		return core.Product{}, err
	}
	return r.GetProduct(ctx, p.OwnerID, p.ID)
}

func (r *SQLiteRepository) DeleteProduct(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE owner_id = ? AND id = ?`, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return affected(res, core.ErrNotFound)
}

// --- Prices ---

const priceCols = `pp.id, pp.product_id, pp.store_id, pp.price_cents, pp.last_updated,
	p.id, p.owner_id, p.name, p.category, p.created_at,
	s.id, s.owner_id, s.name, s.address, s.latitude, s.longitude, s.created_at`

const priceFrom = ` FROM product_prices pp
	JOIN products p ON p.id = pp.product_id
	JOIN stores s ON s.id = pp.store_id AND s.owner_id = p.owner_id`

func scanPrice(scanner interface{ Scan(...any) error }) (*core.PriceWithStore, error) {
	var (
		pw                 core.PriceWithStore
		lastUpdated        string
		pCreated, sCreated string
		lat, lng           sql.NullFloat64
	)
	err := scanner.Scan(
		&pw.ID, &pw.ProductID, &pw.StoreID, &pw.Price.Cents, &lastUpdated,
		&pw.Product.ID, &pw.Product.OwnerID, &pw.Product.Name, &pw.Product.Category, &pCreated,
		&pw.Store.ID, &pw.Store.OwnerID, &pw.Store.Name, &pw.Store.Address, &lat, &lng, &sCreated,
	)
	if err != nil {
		return nil, err
	}
	d, err := core.ParseDate(lastUpdated)
	if err != nil {
		return nil, fmt.Errorf("price %s has invalid date %q", pw.ID, lastUpdated)
	}
	pw.LastUpdated = d
	pw.Product.CreatedAt = parseTime(pCreated)
	pw.Store.Latitude = floatPtr(lat)
	pw.Store.Longitude = floatPtr(lng)
	pw.Store.CreatedAt = parseTime(sCreated)
	return &pw, nil
}

// ListPrices returns the owner's prices joined with product and store. An
// empty productID lists every product.
func (r *SQLiteRepository) ListPrices(ctx context.Context, ownerID, productID string) ([]core.PriceWithStore, error) {
	query := `SELECT ` + priceCols + priceFrom + ` WHERE p.owner_id = ?`
	args := []any{ownerID}
	if productID != "" {
		query += ` AND pp.product_id = ?`
		args = append(args, productID)
	}
	query += ` ORDER BY p.name_key ASC, pp.price_cents ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list prices: %w", err)
	}
	defer rows.Close()

	prices := make([]core.PriceWithStore, 0)
	for rows.Next() {
		pw, err := scanPrice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}
		prices = append(prices, *pw)
	}
	return prices, rows.Err()
}

// FindPrice returns the price of a product at a store.
func (r *SQLiteRepository) FindPrice(ctx context.Context, ownerID, productID, storeID string) (core.PriceWithStore, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+priceCols+priceFrom+` WHERE p.owner_id = ? AND pp.product_id = ? AND pp.store_id = ?`,
		ownerID, productID, storeID)
	pw, err := scanPrice(row)
	if err == sql.ErrNoRows {
		return core.PriceWithStore{}, core.ErrNotFound
	}
	if err != nil {
		return core.PriceWithStore{}, fmt.Errorf("find price: %w", err)
	}
	return *pw, nil
}

// SavePrice inserts or replaces the price of a product at a store and stamps
// it with today's date. Both must belong to the owner. An existing row keeps
// its id.
func (r *SQLiteRepository) SavePrice(ctx context.Context, ownerID string, pp core.ProductPrice) (core.PriceWithStore, error) {
	if _, err := r.GetProduct(ctx, ownerID, pp.ProductID); err != nil {
		return core.PriceWithStore{}, fmt.Errorf("product %s: %w", pp.ProductID, err)
	}
	if err := r.checkStoreOwner(ctx, ownerID, pp.StoreID); err != nil {
		return core.PriceWithStore{}, err
	}
	today := core.DateOf(r.now())

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO product_prices (id, product_id, store_id, price_cents, last_updated) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (product_id, store_id) DO UPDATE SET price_cents = excluded.price_cents, last_updated = excluded.last_updated`,
		newID(), pp.ProductID, pp.StoreID, pp.Price.Cents, today.String(),
	)
	if err != nil {
		return core.PriceWithStore{}, fmt.Errorf("upsert price: %w", err)
	}

	slog.InfoContext(ctx, "Price saved",
		"product_id", pp.ProductID,
		"store_id", pp.StoreID,
		"price_cents", pp.Price.Cents)

	return r.FindPrice(ctx, ownerID, pp.ProductID, pp.StoreID)
}

func (r *SQLiteRepository) DeletePrice(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM product_prices WHERE id = ? AND product_id IN (SELECT id FROM products WHERE owner_id = ?)`,
		id, ownerID)
	if err != nil {
		return fmt.Errorf("delete price: %w", err)
	}
	return affected(res, core.ErrNotFound)
}
