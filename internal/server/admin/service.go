// Package admin implements the privileged surface: site-password login with
// revocable sessions, and per-resource authorization by admin key or session.
package admin

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/cryptshare/internal/common"
	"github.com/dmitrijs2005/cryptshare/internal/cryptox"
	"github.com/dmitrijs2005/cryptshare/internal/logging"
	"github.com/dmitrijs2005/cryptshare/internal/server/config"
	"github.com/dmitrijs2005/cryptshare/internal/server/models"
	"github.com/dmitrijs2005/cryptshare/internal/server/repositories/repomanager"
)

// Session is handed to a freshly logged-in administrator. Only the digest of
// the token is persisted.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// Service checks the site password and manages admin sessions.
type Service struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *config.Config
	logger      logging.Logger
	now         func() time.Time
}

func NewService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *Service {
	return &Service{
		db:          db,
		repomanager: m,
		config:      cfg,
		logger:      logger,
		now:         time.Now,
	}
}

// digestToken maps an opaque base64url token to the digest the database
// stores. An undecodable token can never match anything.
func digestToken(token string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", common.ErrUnauthorized
	}
	d := sha256.Sum256(raw)
	return base64.RawURLEncoding.EncodeToString(d[:]), nil
}

// Login verifies the site password and creates a session. A long session is
// the "remember me" variant with the extended validity from configuration.
func (s *Service) Login(ctx context.Context, password string, long bool) (*Session, error) {
	salt, err := hex.DecodeString(s.config.AdminPasswordSalt)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding admin password salt: %v", common.ErrUnavailable, err)
	}
	verifier, err := hex.DecodeString(s.config.AdminPasswordVerifier)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding admin password verifier: %v", common.ErrUnavailable, err)
	}

	if !cryptox.VerifyPassword([]byte(password), salt, verifier) {
		s.logger.Warn(ctx, "admin login rejected")
		return nil, common.ErrUnauthorized
	}

	var tokenBytes [32]byte
	if _, err := rand.Read(tokenBytes[:]); err != nil {
		return nil, fmt.Errorf("%w: generating session token: %v", common.ErrUnavailable, err)
	}
	token := base64.RawURLEncoding.EncodeToString(tokenBytes[:])
	digest := sha256.Sum256(tokenBytes[:])

	validity := s.config.SessionValidity
	if long {
		validity = s.config.LongSessionValidity
	}
	expiresAt := s.now().UTC().Truncate(time.Second).Add(validity)

	repo := s.repomanager.Sessions(s.db)
	if err := repo.Create(ctx, base64.RawURLEncoding.EncodeToString(digest[:]), expiresAt); err != nil {
		return nil, fmt.Errorf("%w: inserting session row: %v", common.ErrUnavailable, err)
	}

	s.logger.Info(ctx, "admin logged in", "long_session", long, "expiry", expiresAt)
	return &Session{Token: token, ExpiresAt: expiresAt}, nil
}

// Logout revokes the session for the given token. Revoking an unknown or
// already-revoked token succeeds.
func (s *Service) Logout(ctx context.Context, token string) error {
	digest, err := digestToken(token)
	if err != nil {
		return nil
	}

	if err := s.repomanager.Sessions(s.db).Delete(ctx, digest); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("%w: deleting session row: %v", common.ErrUnavailable, err)
	}
	return nil
}

// Authenticate reports whether the token belongs to a live session. An
// expired row answers exactly like an absent one.
func (s *Service) Authenticate(ctx context.Context, token string) error {
	digest, err := digestToken(token)
	if err != nil {
		return err
	}

	sess, err := s.repomanager.Sessions(s.db).Find(ctx, digest)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrUnauthorized
		}
		return fmt.Errorf("%w: reading session row: %v", common.ErrUnavailable, err)
	}
	if !sess.Live(s.now()) {
		return common.ErrUnauthorized
	}
	return nil
}

// AuthorizeResource grants access to a resource's privileged operations when
// the caller presents either the resource's admin key or a live session
// token. Callers resolve the resource first, so an unknown hash is reported
// as not-found rather than unauthorized.
func (s *Service) AuthorizeResource(ctx context.Context, res *models.Resource, adminKey, sessionToken string) error {
	if adminKey != "" {
		// A key that does not decode to exactly 32 bytes can never match;
		// it is an authorization failure, not a parse error.
		if raw, err := base64.RawURLEncoding.DecodeString(adminKey); err == nil && len(raw) == 32 {
			d := sha256.Sum256(raw)
			presented := base64.RawURLEncoding.EncodeToString(d[:])
			if subtle.ConstantTimeCompare([]byte(presented), []byte(res.AdminKeyDigest)) == 1 {
				return nil
			}
		}
	}

	if sessionToken != "" {
		err := s.Authenticate(ctx, sessionToken)
		if err == nil {
			return nil
		}
		if !errors.Is(err, common.ErrUnauthorized) {
			return err
		}
	}

	return common.ErrUnauthorized
}

// ListExpiredSessions returns sessions failing the liveness predicate, for
// the sweep.
func (s *Service) ListExpiredSessions(ctx context.Context) ([]models.AdminSession, error) {
	all, err := s.repomanager.Sessions(s.db).ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: reading sessions: %v", common.ErrUnavailable, err)
	}

	now := s.now()
	expired := all[:0]
	for i := range all {
		if !all[i].Live(now) {
			expired = append(expired, all[i])
		}
	}
	return expired, nil
}

// DeleteSession removes a session row by its stored digest.
func (s *Service) DeleteSession(ctx context.Context, tokenDigest string) error {
	if err := s.repomanager.Sessions(s.db).Delete(ctx, tokenDigest); err != nil && !errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("%w: deleting session row: %v", common.ErrUnavailable, err)
	}
	return nil
}
