package core

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	CategoryFood          Category = "Alimentación"
	CategoryTransport     Category = "Transporte"
	CategoryEntertainment Category = "Entretenimiento"
	CategoryHealth        Category = "Salud"
	CategoryClothing      Category = "Ropa"
	CategoryHome          Category = "Hogar"
	CategoryTechnology    Category = "Tecnología"
	CategoryOther         Category = "Otros"
)

const (
	ShoppingFood     ShoppingCategory = "Alimentos"
	ShoppingCleaning ShoppingCategory = "Limpieza"
	ShoppingOther    ShoppingCategory = "Otros"
)

type (
	// Category classifies products and purchases.
	Category string

	// ShoppingCategory classifies shopping list items.
	ShoppingCategory string

	Purchase struct {
		ID        string    `json:"id"`
		OwnerID   string    `json:"owner_id"`
		Name      string    `json:"name"`
		Category  Category  `json:"category"`
		UnitPrice Money     `json:"unit_price_cents"`
		Quantity  int       `json:"quantity"`
		Date      Date      `json:"date"`
		StoreID   string    `json:"store_id,omitempty"`
		Month     int       `json:"month"`
		Year      int       `json:"year"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}

	Store struct {
		ID        string    `json:"id"`
		OwnerID   string    `json:"owner_id"`
		Name      string    `json:"name"`
		Address   string    `json:"address,omitempty"`
		Latitude  *float64  `json:"latitude,omitempty"`
		Longitude *float64  `json:"longitude,omitempty"`
		CreatedAt time.Time `json:"created_at"`
	}

	Product struct {
		ID        string    `json:"id"`
		OwnerID   string    `json:"owner_id"`
		Name      string    `json:"name"`
		Category  Category  `json:"category"`
		CreatedAt time.Time `json:"created_at"`
	}

	// ProductPrice is the current price of a product at one store.
	ProductPrice struct {
		ID          string `json:"id"`
		ProductID   string `json:"product_id"`
		StoreID     string `json:"store_id"`
		Price       Money  `json:"price_cents"`
		LastUpdated Date   `json:"last_updated"`
	}

	ShoppingListItem struct {
		OwnerID   string           `json:"owner_id"`
		ItemName  string           `json:"item_name"`
		Quantity  int              `json:"quantity"`
		Category  ShoppingCategory `json:"category"`
		Purchased bool             `json:"purchased"`
		CreatedAt time.Time        `json:"created_at"`
	}

	// PurchaseWithStore is a purchase joined with its optional store.
	PurchaseWithStore struct {
		Purchase
		Store *Store `json:"store,omitempty"`
	}

	// PriceWithStore is a price joined with its product and store.
	PriceWithStore struct {
		ProductPrice
		Product Product `json:"product"`
		Store   Store   `json:"store"`
	}
)

var (
	ErrNotFound         = errors.New("not found")
	ErrDuplicateProduct = errors.New("a product with this name and category already exists")
	ErrDuplicateStore   = errors.New("a store with this name already exists")
	ErrDuplicateItem    = errors.New("item already in the shopping list")
	ErrPriceExists      = errors.New("a price for this product and store already exists; confirmation required")
)

// Categories returns the fixed purchase and product categories in display order.
func Categories() []Category {
	return []Category{
		CategoryFood, CategoryTransport, CategoryEntertainment, CategoryHealth,
		CategoryClothing, CategoryHome, CategoryTechnology, CategoryOther,
	}
}

func (c Category) IsValid() bool {
	for _, v := range Categories() {
		if c == v {
			return true
		}
	}
	return false
}

// ShoppingCategories returns the fixed shopping list categories.
func ShoppingCategories() []ShoppingCategory {
	return []ShoppingCategory{ShoppingFood, ShoppingCleaning, ShoppingOther}
}

func (c ShoppingCategory) IsValid() bool {
	for _, v := range ShoppingCategories() {
		if c == v {
			return true
		}
	}
	return false
}

// Total returns unit price times quantity.
func (p Purchase) Total() Money {
	return Money{Cents: p.UnitPrice.Cents * int64(p.Quantity)}
}

// Normalize trims text fields and derives Month and Year from Date.
// It must run on every create and edit.
func (p *Purchase) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.StoreID = strings.TrimSpace(p.StoreID)
	if !p.Date.IsZero() {
		p.Month = p.Date.Month()
		p.Year = p.Date.Year()
	}
}

func (p Purchase) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrNameRequired
	}
	if len(p.Name) > 200 {
		return ErrNameTooLong
	}
	if !p.Category.IsValid() {
		return ErrInvalidCategory
	}
	if err := p.UnitPrice.Validate(); err != nil {
		return err
	}
	if p.Quantity < 1 || p.Quantity > MaxQuantity {
		return ErrInvalidQuantity
	}
	if err := p.Date.Validate(); err != nil {
		return err
	}
	return nil
}

func (s *Store) Normalize() {
	s.Name = strings.TrimSpace(s.Name)
	s.Address = strings.TrimSpace(s.Address)
}

func (s Store) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrNameRequired
	}
	if len(s.Name) > 200 {
		return ErrNameTooLong
	}
	if s.Latitude != nil {
		lat := *s.Latitude
		if math.IsNaN(lat) || lat < -90 || lat > 90 {
			return ErrInvalidLatitude
		}
	}
	if s.Longitude != nil {
		lng := *s.Longitude
		if math.IsNaN(lng) || lng < -180 || lng > 180 {
			return ErrInvalidLongitude
		}
	}
	return nil
}

// HasCoordinates reports whether both latitude and longitude are set.
func (s Store) HasCoordinates() bool {
	return s.Latitude != nil && s.Longitude != nil
}

func (p *Product) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
}

func (p Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrNameRequired
	}
	if len(p.Name) > 200 {
		return ErrNameTooLong
	}
	if !p.Category.IsValid() {
		return ErrInvalidCategory
	}
	return nil
}

func (pp ProductPrice) Validate() error {
	if strings.TrimSpace(pp.ProductID) == "" || strings.TrimSpace(pp.StoreID) == "" {
		return ErrReferenceRequired
	}
	return pp.Price.Validate()
}

func (i *ShoppingListItem) Normalize() {
	i.ItemName = strings.TrimSpace(i.ItemName)
	if i.Category == "" {
		i.Category = ShoppingOther
	}
}

func (i ShoppingListItem) Validate() error {
	if strings.TrimSpace(i.ItemName) == "" {
		return ErrNameRequired
	}
	if len(i.ItemName) > 200 {
		return ErrNameTooLong
	}
	if i.Quantity < 1 || i.Quantity > MaxQuantity {
		return ErrInvalidQuantity
	}
	if !i.Category.IsValid() {
		return ErrInvalidCategory
	}
	return nil
}

// ParseCoordinate parses an optional coordinate. An empty string yields nil.
// invalid is returned when the value is not a number.
func ParseCoordinate(s string, invalid error) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return nil, invalid
	}
	v, _ := d.Float64()
	return &v, nil
}

// MaxQuantity bounds a single line so MaxCents*MaxQuantity fits comfortably in
// int64 even when summed over many purchases.
const MaxQuantity = 10_000

// ParseQuantity parses an integer quantity between 1 and MaxQuantity.
func ParseQuantity(s string) (int, error) {
	q, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || q < 1 || q > MaxQuantity {
		return 0, ErrInvalidQuantity
	}
	return q, nil
}
