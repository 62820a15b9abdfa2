package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/cryptshare/internal/common"
)

var (
	errRateLimited     = fmt.Errorf("%w, come back later", common.ErrRateLimited)
	errMissingIdentity = fmt.Errorf("%w: request reached a handler without a resolved identity", common.ErrProxyMisconfigured)
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.requestLogger(r.Context()).Error(r.Context(), "response encoding failed", "error", err)
	}
}

// writeError maps the error taxonomy to status codes. This is the only place
// in the server where that mapping exists.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	logger := s.requestLogger(ctx)

	var status int
	switch {
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, common.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, common.ErrAlreadyUploading):
		status = http.StatusConflict
	case errors.Is(err, common.ErrStorageExhausted):
		status = http.StatusInsufficientStorage
	case errors.Is(err, common.ErrTooManyUploads):
		status = http.StatusTooManyRequests
	case errors.Is(err, common.ErrProxyMisconfigured):
		logger.Error(ctx, "proxy configuration fault", "error", err)
		s.writeJSON(w, r, http.StatusInternalServerError, errorResponse{Error: "server configuration error"})
		return
	default:
		logger.Error(ctx, "request failed", "error", err)
		s.writeJSON(w, r, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	logger.Debug(ctx, "request rejected", "status", status, "error", err)
	s.writeJSON(w, r, status, errorResponse{Error: err.Error()})
}
