package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/cryptshare/internal/common"
	"github.com/dmitrijs2005/cryptshare/internal/server/identity"
)

// prettyUploader renders a stored canonical identity for display, falling
// back to the raw value for rows that predate the current encoding.
func prettyUploader(s string) string {
	p, err := identity.ParsePrefix(s)
	if err != nil {
		return s
	}
	return p.Pretty()
}

type adminLoginRequest struct {
	Password    string `json:"password"`
	LongSession bool   `json:"long_session"`
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req adminLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: decoding request body: %v", common.ErrInvalidInput, err))
		return
	}

	sess, err := s.admin.Login(ctx, req.Password, req.LongSession)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	cookie := &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
	// A short session cookie expires with the browser; a long one carries
	// the session's own lifetime.
	if req.LongSession {
		cookie.Expires = sess.ExpiresAt
	}
	http.SetCookie(w, cookie)

	s.writeJSON(w, r, http.StatusOK, map[string]string{
		"expiry_ts": sess.ExpiresAt.Format(time.RFC3339),
	})
}

func (s *Server) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if token := sessionToken(r); token != "" {
		if err := s.admin.Logout(ctx, token); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
	w.WriteHeader(http.StatusOK)
}

type overviewFile struct {
	Hash       string `json:"hash"`
	Size       int64  `json:"filesize"`
	Uploader   string `json:"uploader"`
	UploadedAt string `json:"upload_ts"`
	ExpiresAt  string `json:"expiry_ts"`
	Downloads  int64  `json:"downloads"`
}

type overviewResponse struct {
	Files        []overviewFile `json:"files"`
	UsedQuota    int64          `json:"used_quota"`
	MaximumQuota int64          `json:"maximum_quota"`
}

// handleAdminOverview reports every live file together with the storage
// totals. Session only; per-file admin keys grant no access here.
func (s *Server) handleAdminOverview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := s.admin.Authenticate(ctx, sessionToken(r)); err != nil {
		s.writeError(w, r, err)
		return
	}

	live, err := s.resources.List(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := overviewResponse{
		Files:        make([]overviewFile, 0, len(live)),
		MaximumQuota: s.config.MaximumQuota,
	}
	for i := range live {
		f := &live[i]
		resp.UsedQuota += f.Size
		resp.Files = append(resp.Files, overviewFile{
			Hash:       f.Hash,
			Size:       f.Size,
			Uploader:   prettyUploader(f.Uploader),
			UploadedAt: f.CreatedAt.Format(time.RFC3339),
			ExpiresAt:  f.ExpiresAt.Format(time.RFC3339),
			Downloads:  f.Downloads,
		})
	}

	s.writeJSON(w, r, http.StatusOK, resp)
}
