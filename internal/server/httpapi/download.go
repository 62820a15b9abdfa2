package httpapi

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/cryptshare/internal/common"
)

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	hash := r.URL.Query().Get("hash")
	if hash == "" {
		s.writeError(w, r, fmt.Errorf("%w: missing hash parameter", common.ErrInvalidInput))
		return
	}

	res, rc, err := s.resources.OpenDownload(ctx, hash)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(res.Size, 10))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, rc); err != nil {
		// Headers are out the door; all we can do is note the broken stream.
		s.requestLogger(ctx).Warn(ctx, "download stream aborted", "hash", hash, "error", err)
	}
}

type fileInfoResponse struct {
	Hash          string `json:"hash"`
	EncryptedName string `json:"e_filename"`
	IVData        string `json:"iv_fd"`
	IVName        string `json:"iv_fn"`
	Size          int64  `json:"filesize"`
	UploadedAt    string `json:"upload_ts"`
	ExpiresAt     string `json:"expiry_ts"`
	Downloads     int64  `json:"downloads"`

	// Uploader only appears when the request carries the file's admin key
	// or a live site-admin session.
	Uploader string `json:"uploader,omitempty"`
}

// handleFileInfo serves the metadata a client needs to decrypt the name
// and download the blob. Everything here is already public through the
// download path except the uploader identity, which requires the admin
// capability or a session.
func (s *Server) handleFileInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	hash := r.URL.Query().Get("hash")
	if hash == "" {
		s.writeError(w, r, fmt.Errorf("%w: missing hash parameter", common.ErrInvalidInput))
		return
	}

	res, err := s.resources.Fetch(ctx, hash)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	info := fileInfoResponse{
		Hash:          res.Hash,
		EncryptedName: base64.RawURLEncoding.EncodeToString(res.EncryptedName),
		IVData:        base64.RawURLEncoding.EncodeToString(res.IVData),
		IVName:        base64.RawURLEncoding.EncodeToString(res.IVName),
		Size:          res.Size,
		UploadedAt:    res.CreatedAt.Format(time.RFC3339),
		ExpiresAt:     res.ExpiresAt.Format(time.RFC3339),
		Downloads:     res.Downloads,
	}

	if s.admin.AuthorizeResource(ctx, res, r.URL.Query().Get("admin"), sessionToken(r)) == nil {
		info.Uploader = prettyUploader(res.Uploader)
	}

	s.writeJSON(w, r, http.StatusOK, info)
}
