package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"compras/internal/auth"
	"compras/internal/core"
	"compras/internal/log"
)

func (s *Server) handleListPurchases(w http.ResponseWriter, r *http.Request) {
	f, err := purchaseFilterFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	purchases, err := s.deps.Purchases.List(r.Context(), auth.OwnerID(r.Context()), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if purchases == nil {
		purchases = []core.PurchaseWithStore{}
	}
	writeJSON(w, http.StatusOK, purchases)
}

func (s *Server) handleCreatePurchase(w http.ResponseWriter, r *http.Request) {
	body, err := parseBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := purchaseFromBody(body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()
	saved, err := s.deps.Purchases.Create(ctx, auth.OwnerID(ctx), p)
	if err != nil {
		writeError(w, r, err)
		return
	}

	log.FromContext(ctx).InfoContext(ctx, "Purchase created",
		log.NewFields().
			WithEntity("purchase", saved.ID).
			WithOperation(log.OpCreate).
			ToSlice()...)
	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/purchases/"+saved.ID).
		JSON(saved).
		Write(w)
}

func (s *Server) handleGetPurchase(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Purchases.Get(r.Context(), auth.OwnerID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdatePurchase(w http.ResponseWriter, r *http.Request) {
	body, err := parseBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := purchaseFromBody(body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := s.deps.Purchases.Update(r.Context(), auth.OwnerID(r.Context()), r.PathValue("id"), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDeletePurchase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	if err := s.deps.Purchases.Delete(ctx, auth.OwnerID(ctx), id); err != nil {
		writeError(w, r, err)
		return
	}
	log.FromContext(ctx).InfoContext(ctx, "Purchase deleted",
		log.NewFields().WithEntity("purchase", id).WithOperation(log.OpDelete).ToSlice()...)
	writeNoContent(w)
}

// handleExportPurchases streams the filtered purchases as CSV. The body is
// buffered so a storage failure still yields a JSON error.
func (s *Server) handleExportPurchases(w http.ResponseWriter, r *http.Request) {
	f, err := purchaseFilterFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()
	var buf bytes.Buffer
	n, err := s.deps.Purchases.ExportCSV(ctx, auth.OwnerID(ctx), f, &buf)
	if err != nil {
		writeError(w, r, err)
		return
	}

	filename := fmt.Sprintf("compras-%s.csv", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("X-Total-Count", strconv.Itoa(n))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
