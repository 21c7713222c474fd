package web

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/macinv/internal/core"
)

// handleHealth reports liveness and the import limiter state.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":  "ok",
		"imports": s.service.ImportStatus(),
	})
}

// handleListSites returns the configured sites.
func (s *Server) handleListSites(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string][]string{"aps": s.service.Sites()})
}

// handleListDevices returns devices newest first, optionally filtered by
// site (ap) and a free-text query (q).
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	filter := core.DeviceFilter{
		ApName: strings.TrimSpace(r.URL.Query().Get("ap")),
		Query:  strings.TrimSpace(r.URL.Query().Get("q")),
	}
	devices, err := s.service.ListDevices(r.Context(), filter)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, devices)
}

// handleGetDevice returns one device.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	d, err := s.service.GetDevice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, d)
}
