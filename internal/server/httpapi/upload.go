package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/cryptshare/internal/common"
	"github.com/dmitrijs2005/cryptshare/internal/server/resources"
)

// maxEncryptedNameLen bounds the e_filename multipart field.
const maxEncryptedNameLen = 8192

// ivLen is the AES-GCM nonce length the client must use.
const ivLen = 12

func ttlFromDuration(s string) (time.Duration, error) {
	switch s {
	case "hour":
		return time.Hour, nil
	case "day":
		return 24 * time.Hour, nil
	case "week":
		return 7 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("%w: duration must be hour, day or week", common.ErrInvalidInput)
	}
}

// readField drains one multipart part, rejecting anything over max bytes.
func readField(part io.Reader, name string, max int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(part, max+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading field %s: %v", common.ErrInvalidInput, name, err)
	}
	if int64(len(data)) > max {
		return nil, fmt.Errorf("%w: field %s exceeds %d bytes", common.ErrInvalidInput, name, max)
	}
	return data, nil
}

// parseUpload walks the multipart stream field by field. All five fields are
// mandatory and no other field is accepted.
func (s *Server) parseUpload(r *http.Request) (*resources.Upload, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("%w: expected a multipart body: %v", common.ErrInvalidInput, err)
	}

	up := &resources.Upload{}
	var haveData, haveName, haveTTL bool

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: reading multipart body: %v", common.ErrInvalidInput, err)
		}

		name := part.FormName()
		switch name {
		case "e_filename":
			if up.EncryptedName, err = readField(part, name, maxEncryptedNameLen); err != nil {
				return nil, err
			}
			haveName = true
		case "e_filedata":
			if up.Data, err = readField(part, name, s.config.MaximumFilesize); err != nil {
				return nil, err
			}
			haveData = true
		case "iv_fd":
			if up.IVData, err = readField(part, name, ivLen); err != nil {
				return nil, err
			}
		case "iv_fn":
			if up.IVName, err = readField(part, name, ivLen); err != nil {
				return nil, err
			}
		case "duration":
			raw, err := readField(part, name, 16)
			if err != nil {
				return nil, err
			}
			if up.TTL, err = ttlFromDuration(string(raw)); err != nil {
				return nil, err
			}
			haveTTL = true
		default:
			return nil, fmt.Errorf("%w: unexpected form field %q", common.ErrInvalidInput, name)
		}
	}

	switch {
	case !haveName:
		return nil, fmt.Errorf("%w: no encrypted filename provided", common.ErrInvalidInput)
	case !haveData:
		return nil, fmt.Errorf("%w: no encrypted filedata provided", common.ErrInvalidInput)
	case len(up.IVData) != ivLen:
		return nil, fmt.Errorf("%w: iv_fd is not exactly %d bytes long", common.ErrInvalidInput, ivLen)
	case len(up.IVName) != ivLen:
		return nil, fmt.Errorf("%w: iv_fn is not exactly %d bytes long", common.ErrInvalidInput, ivLen)
	case !haveTTL:
		return nil, fmt.Errorf("%w: no duration provided", common.ErrInvalidInput)
	}

	return up, nil
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	p, ok := requestIdentity(ctx)
	if !ok {
		s.writeError(w, r, errMissingIdentity)
		return
	}

	// One in-flight upload per identity. The deferred release runs on every
	// exit path, including client disconnects surfaced as read errors.
	if !s.guard.TryEnter(p) {
		s.metrics.IncUploadGuardRejected()
		s.writeError(w, r, common.ErrAlreadyUploading)
		return
	}
	defer s.guard.Leave(ctx, p)

	up, err := s.parseUpload(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	up.Uploader = p.String()

	result, err := s.resources.Store(ctx, up)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusCreated, result)
}
