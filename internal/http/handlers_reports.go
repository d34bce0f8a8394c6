package http

import (
	"net/http"

	"compras/internal/analytics"
	"compras/internal/auth"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	overview, err := s.deps.Reports.Dashboard(r.Context(), auth.OwnerID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (s *Server) handlePriceComparison(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.Reports.PriceComparison(r.Context(), auth.OwnerID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleCategoryComparison accepts optional from and to dates.
func (s *Server) handleCategoryComparison(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := queryDate(q, "from")
	if err != nil {
		writeError(w, r, err)
		return
	}
	to, err := queryDate(q, "to")
	if err != nil {
		writeError(w, r, err)
		return
	}
	report, err := s.deps.Reports.CategoryComparison(r.Context(), auth.OwnerID(r.Context()), from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	months, err := s.deps.Reports.Monthly(r.Context(), auth.OwnerID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if months == nil {
		months = []analytics.MonthSummary{}
	}
	writeJSON(w, http.StatusOK, months)
}

func (s *Server) handleMonthDetail(w http.ResponseWriter, r *http.Request) {
	year, month, err := parseYearMonth(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	report, err := s.deps.Reports.MonthDetail(r.Context(), auth.OwnerID(r.Context()), year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
