package web

import (
	"net/http"
	"strconv"

	"github.com/JonMunkholm/macinv/internal/core"
)

// handleDashboard returns inventory totals and the latest audit entries.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Dashboard(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, stats)
}

// handleAuditLog returns a page of the audit log. Query parameters: page,
// limit (5..100, default 20), action (CREATE, UPDATE, DELETE, IMPORT or
// ALL) and q, a free-text search.
func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	action, err := core.ParseAuditAction(r.URL.Query().Get("action"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "REQ002")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	page, err := s.service.AuditLog(r.Context(), core.AuditLogOptions{
		Page:   parseIntParam(r, "page", 1),
		Limit:  limit,
		Action: action,
		Search: r.URL.Query().Get("q"),
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, page)
}
