// Package http provides the JSON API server and its handlers.
//
// This file implements utilities for parsing request bodies. Clients may send
// JSON or form-encoded data; both are read through the same accessors and
// turned into domain values here.

package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"compras/internal/core"
)

const maxBodyBytes = 1 << 20

// RequestBodyParser handles different content types for request body parsing.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = fmt.Errorf("body larger than %d bytes", maxBodyBytes)
	}
	return p
}

// Parse attempts to parse the body as JSON or form data. Errors match
// errBadRequest.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		p.err = fmt.Errorf("%w: %v", errBadRequest, p.err)
		return p.err
	}

	body := strings.TrimSpace(string(p.body))
	if body == "" {
		p.formData = url.Values{}
		return nil
	}

	if strings.HasPrefix(p.contentType, "application/json") || body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal([]byte(body), &p.jsonData); err != nil {
			p.err = fmt.Errorf("%w: invalid JSON body", errBadRequest)
			return p.err
		}
		return nil
	}

	form, err := url.ParseQuery(body)
	if err != nil {
		p.err = fmt.Errorf("%w: invalid form body", errBadRequest)
		return p.err
	}
	p.formData = form
	return nil
}

// Get returns a trimmed string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// GetBool reads a flag. Form checkboxes send "on".
func (p *RequestBodyParser) GetBool(key string) bool {
	switch strings.ToLower(p.Get(key)) {
	case "true", "1", "on", "yes":
		return true
	default:
		return false
	}
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// parseBody reads and parses the request body.
func parseBody(r *http.Request) (*RequestBodyParser, error) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return nil, err
	}
	return p, nil
}

// purchaseFromBody builds a purchase. An empty date means today.
func purchaseFromBody(p *RequestBodyParser) (core.Purchase, error) {
	cents, err := core.ParseDecimalToCents(p.Get("unit_price"))
	if err != nil {
		return core.Purchase{}, err
	}
	qty, err := core.ParseQuantity(p.Get("quantity"))
	if err != nil {
		return core.Purchase{}, err
	}
	date := core.Today()
	if v := p.Get("date"); v != "" {
		if date, err = parseDate(v); err != nil {
			return core.Purchase{}, err
		}
	}
	return core.Purchase{
		Name:      p.Get("name"),
		Category:  core.Category(p.Get("category")),
		UnitPrice: core.Money{Cents: cents},
		Quantity:  qty,
		Date:      date,
		StoreID:   p.Get("store_id"),
	}, nil
}

func storeFromBody(p *RequestBodyParser) (core.Store, error) {
	lat, err := core.ParseCoordinate(p.Get("latitude"), core.ErrInvalidLatitude)
	if err != nil {
		return core.Store{}, err
	}
	lng, err := core.ParseCoordinate(p.Get("longitude"), core.ErrInvalidLongitude)
	if err != nil {
		return core.Store{}, err
	}
	return core.Store{
		Name:      p.Get("name"),
		Address:   p.Get("address"),
		Latitude:  lat,
		Longitude: lng,
	}, nil
}

func productFromBody(p *RequestBodyParser) core.Product {
	return core.Product{
		Name:     p.Get("name"),
		Category: core.Category(p.Get("category")),
	}
}

func priceFromBody(p *RequestBodyParser) (core.ProductPrice, bool, error) {
	pp := core.ProductPrice{
		ProductID: p.Get("product_id"),
		StoreID:   p.Get("store_id"),
	}
	if pp.ProductID == "" || pp.StoreID == "" {
		return core.ProductPrice{}, false, core.ErrReferenceRequired
	}
	cents, err := core.ParseDecimalToCents(p.Get("price"))
	if err != nil {
		return core.ProductPrice{}, false, err
	}
	pp.Price = core.Money{Cents: cents}
	return pp, p.GetBool("confirm"), nil
}

// itemFromBody builds a shopping list item. Quantity defaults to 1.
func itemFromBody(p *RequestBodyParser) (core.ShoppingListItem, error) {
	name := p.Get("item_name")
	if name == "" {
		name = p.Get("name")
	}
	qty := 1
	if v := p.Get("quantity"); v != "" {
		var err error
		if qty, err = core.ParseQuantity(v); err != nil {
			return core.ShoppingListItem{}, err
		}
	}
	return core.ShoppingListItem{
		ItemName: name,
		Quantity: qty,
		Category: core.ShoppingCategory(p.Get("category")),
	}, nil
}
