package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/cryptshare/internal/common"
)

// hashLen is the length of a base64url-encoded sha256 digest without padding.
const hashLen = 43

type deleteRequest struct {
	Hash  string `json:"hash"`
	Admin string `json:"admin"`
}

// handleDelete removes a file before its expiry. The caller must hold either
// the file's admin key or a live site-admin session. An unknown hash answers
// not-found before any credential is examined, so the endpoint cannot be
// used to probe which hashes exist behind the authorization wall.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: decoding request body: %v", common.ErrInvalidInput, err))
		return
	}
	if len(req.Hash) != hashLen {
		s.writeError(w, r, fmt.Errorf("%w: invalid hash length", common.ErrInvalidInput))
		return
	}

	res, err := s.resources.Fetch(ctx, req.Hash)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.admin.AuthorizeResource(ctx, res, req.Admin, sessionToken(r)); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.resources.Destroy(ctx, req.Hash); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.requestLogger(ctx).Info(ctx, "manually deleted file", "hash", req.Hash)
	w.WriteHeader(http.StatusOK)
}

// sessionToken pulls the admin session cookie if present.
func sessionToken(r *http.Request) string {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return ""
	}
	return c.Value
}
