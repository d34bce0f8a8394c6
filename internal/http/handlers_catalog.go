package http

import (
	"net/http"
	"strings"

	"compras/internal/auth"
	"compras/internal/core"
	"compras/internal/services"
)

// --- Stores ---

func (s *Server) handleListStores(w http.ResponseWriter, r *http.Request) {
	stores, err := s.deps.Catalog.ListStores(r.Context(), auth.OwnerID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if stores == nil {
		stores = []core.Store{}
	}
	writeJSON(w, http.StatusOK, stores)
}

func (s *Server) handleCreateStore(w http.ResponseWriter, r *http.Request) {
	body, err := parseBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	st, err := storeFromBody(body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := s.deps.Catalog.CreateStore(r.Context(), auth.OwnerID(r.Context()), st)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleGetStore(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.Catalog.GetStore(r.Context(), auth.OwnerID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleUpdateStore(w http.ResponseWriter, r *http.Request) {
	body, err := parseBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	st, err := storeFromBody(body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := s.deps.Catalog.UpdateStore(r.Context(), auth.OwnerID(r.Context()), r.PathValue("id"), st)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDeleteStore(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Catalog.DeleteStore(r.Context(), auth.OwnerID(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

func (s *Server) handleStoreMap(w http.ResponseWriter, r *http.Request) {
	locations, err := s.deps.Catalog.StoreLocations(r.Context(), auth.OwnerID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if locations == nil {
		locations = []services.StoreLocation{}
	}
	writeJSON(w, http.StatusOK, locations)
}

// --- Products ---

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.deps.Catalog.ListProducts(r.Context(), auth.OwnerID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if products == nil {
		products = []core.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	body, err := parseBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := s.deps.Catalog.CreateProduct(r.Context(), auth.OwnerID(r.Context()), productFromBody(body))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	body, err := parseBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := s.deps.Catalog.UpdateProduct(r.Context(), auth.OwnerID(r.Context()), r.PathValue("id"), productFromBody(body))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Catalog.DeleteProduct(r.Context(), auth.OwnerID(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

// --- Prices ---

func (s *Server) handleListPrices(w http.ResponseWriter, r *http.Request) {
	productID := strings.TrimSpace(r.URL.Query().Get("product_id"))
	prices, err := s.deps.Catalog.ListPrices(r.Context(), auth.OwnerID(r.Context()), productID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if prices == nil {
		prices = []core.PriceWithStore{}
	}
	writeJSON(w, http.StatusOK, prices)
}

// handleSavePrice upserts a price. Replacing an existing one needs
// confirm=true, otherwise the answer is 409 with the current price.
func (s *Server) handleSavePrice(w http.ResponseWriter, r *http.Request) {
	body, err := parseBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	pp, confirm, err := priceFromBody(body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := s.deps.Catalog.SavePrice(r.Context(), auth.OwnerID(r.Context()), pp, confirm)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDeletePrice(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Catalog.DeletePrice(r.Context(), auth.OwnerID(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

// handleCategories lists the fixed purchase and shopping categories.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Purchase []core.Category         `json:"purchase"`
		Shopping []core.ShoppingCategory `json:"shopping"`
	}{core.Categories(), core.ShoppingCategories()})
}
