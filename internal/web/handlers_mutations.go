package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/macinv/internal/core"
	"github.com/JonMunkholm/macinv/internal/logging"
)

// handleCreateDevice registers a device. A registered MAC answers 409 with
// the existing device.
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var in core.DeviceInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "REQ001")
		return
	}

	d, err := s.service.CreateDevice(r.Context(), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("device created", "id", d.ID, "mac", d.Mac, "ap", d.ApName)
	writeJSONStatus(w, http.StatusCreated, d)
}

// handleUpdateDevice replaces the editable fields of a device.
func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	var in core.DeviceInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "REQ001")
		return
	}

	d, err := s.service.UpdateDevice(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("device updated", "id", d.ID, "mac", d.Mac)
	writeJSON(w, d)
}

// handleDeleteDevice removes a device and returns it.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	d, err := s.service.DeleteDevice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("device deleted", "id", d.ID, "mac", d.Mac)
	writeJSON(w, map[string]any{"status": "deleted", "device": d})
}
