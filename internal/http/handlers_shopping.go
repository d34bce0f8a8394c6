package http

import (
	"net/http"

	"compras/internal/auth"
	"compras/internal/core"
)

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.deps.Shopping.List(r.Context(), auth.OwnerID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []core.ShoppingListItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	body, err := parseBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	item, err := itemFromBody(body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := s.deps.Shopping.Add(r.Context(), auth.OwnerID(r.Context()), item)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	body, err := parseBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	item, err := itemFromBody(body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	item.Purchased = body.GetBool("purchased")
	saved, err := s.deps.Shopping.Update(r.Context(), auth.OwnerID(r.Context()), r.PathValue("name"), item)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleToggleItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.deps.Shopping.Toggle(r.Context(), auth.OwnerID(r.Context()), r.PathValue("name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Shopping.Delete(r.Context(), auth.OwnerID(r.Context()), r.PathValue("name")); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

// handleClearPurchased removes bought items. It requires purchased=true so a
// bare DELETE cannot empty the list.
func (s *Server) handleClearPurchased(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("purchased") != "true" {
		ErrorResponse(http.StatusBadRequest, "bad request: purchased=true required").Write(w)
		return
	}
	n, err := s.deps.Shopping.ClearPurchased(r.Context(), auth.OwnerID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}
