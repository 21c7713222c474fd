package web

import (
	"net/http"

	"github.com/JonMunkholm/macinv/internal/logging"
)

// handleExportDevices downloads the devices of one site (ap) or of every
// site as a workbook.
func (s *Server) handleExportDevices(w http.ResponseWriter, r *http.Request) {
	site := r.URL.Query().Get("ap")
	data, filename, err := s.service.ExportDevices(r.Context(), site)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("devices exported", "ap", site, "bytes", len(data))
	writeAttachment(w, filename, data)
}
