package web

import (
	"net/http"
)

// handleDownloadTemplate downloads the import template, pre-filled for the
// ap query parameter when it names a site.
func (s *Server) handleDownloadTemplate(w http.ResponseWriter, r *http.Request) {
	data, filename, err := s.service.Template(r.URL.Query().Get("ap"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeAttachment(w, filename, data)
}
