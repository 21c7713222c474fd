package web

// errors.go turns errors into JSON responses.
//
// Every error is logged with its technical detail and request ID, then
// mapped to a status code and a user message:
//
//	*core.StructuralError, *core.InvalidDeviceError, core.ErrInvalidID  400
//	core.ErrNoActor                                                    401
//	core.ErrNotFound                                                   404
//	*core.ConflictError                                                409
//	core.ErrFileTooLarge, *http.MaxBytesError                          413
//	core.ErrTooManyImports                                             503
//	anything else                                                      500
//
// Client errors carry the error text so operators can fix their input;
// server errors only carry the mapped message from core.MapError.

import (
	"context"
	"errors"
	"net/http"

	"github.com/JonMunkholm/macinv/internal/core"
	"github.com/JonMunkholm/macinv/internal/logging"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error    string       `json:"error"`
	Message  string       `json:"message"`
	Action   string       `json:"action,omitempty"`
	Code     string       `json:"code"`
	Details  []string     `json:"details,omitempty"`
	Existing *core.Device `json:"existing,omitempty"`
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	var (
		structural *core.StructuralError
		invalid    *core.InvalidDeviceError
		conflict   *core.ConflictError
		tooLarge   *http.MaxBytesError
	)
	switch {
	case errors.As(err, &structural), errors.As(err, &invalid), errors.Is(err, core.ErrInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNoActor):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.Is(err, core.ErrFileTooLarge), errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the matching JSON error response.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	args := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", args...)
	} else {
		logger.Warn("request rejected", args...)
	}

	resp := ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	}
	if status < http.StatusInternalServerError {
		resp.Error = err.Error()
	}

	var (
		invalid  *core.InvalidDeviceError
		conflict *core.ConflictError
	)
	if errors.As(err, &invalid) {
		for _, ve := range invalid.Errors {
			resp.Details = append(resp.Details, ve.Error())
		}
	}
	if errors.As(err, &conflict) {
		resp.Existing = conflict.Existing
	}
	if errors.Is(err, core.ErrTooManyImports) {
		w.Header().Set("Retry-After", "30")
	}

	writeJSONStatus(w, status, resp)
}

// writeError writes a JSON error for failures detected in the handler itself,
// such as a malformed request.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSONStatus(w, status, ErrorResponse{
		Error:   message,
		Message: message,
		Code:    code,
	})
}
