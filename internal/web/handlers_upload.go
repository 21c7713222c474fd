package web

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/JonMunkholm/macinv/internal/core"
)

// multipartOverhead is the allowance for form boundaries and headers on
// top of the workbook itself.
const multipartOverhead = 1 << 20

// ImportErrorResponse is returned with 400 when a workbook is rejected
// before any row is processed. Result holds zero counts and the reason.
type ImportErrorResponse struct {
	ErrorResponse
	Result *core.ImportResult `json:"result"`
}

// handleImportDevices imports the workbook sent as the multipart field
// "file". The ap query parameter is the fallback site for rows without one.
func (s *Server) handleImportDevices(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, core.ErrFileTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form", "FILE003")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file provided", "FILE003")
		return
	}
	defer file.Close()

	if header.Size > maxSize {
		s.respondError(w, r, core.ErrFileTooLarge)
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	site := strings.TrimSpace(r.URL.Query().Get("ap"))
	result, err := s.service.ImportDevices(r.Context(), data, site)

	var structural *core.StructuralError
	if errors.As(err, &structural) {
		msg := core.MapError(err)
		writeJSONStatus(w, http.StatusBadRequest, ImportErrorResponse{
			ErrorResponse: ErrorResponse{
				Error:   structural.Error(),
				Message: msg.Message,
				Action:  msg.Action,
				Code:    msg.Code,
			},
			Result: result,
		})
		return
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, result)
}

// handleImportStatus returns the import limiter state.
func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.ImportStatus())
}
