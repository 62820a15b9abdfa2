package admin

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/cryptshare/internal/common"
	"github.com/dmitrijs2005/cryptshare/internal/cryptox"
	"github.com/dmitrijs2005/cryptshare/internal/dbx"
	"github.com/dmitrijs2005/cryptshare/internal/logging"
	"github.com/dmitrijs2005/cryptshare/internal/server/config"
	"github.com/dmitrijs2005/cryptshare/internal/server/models"
	"github.com/dmitrijs2005/cryptshare/internal/server/repositories/resources"
	"github.com/dmitrijs2005/cryptshare/internal/server/repositories/sessions"
)

type fakeSessions struct {
	rows map[string]models.AdminSession
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{rows: make(map[string]models.AdminSession)}
}

func (f *fakeSessions) Create(_ context.Context, digest string, expiresAt time.Time) error {
	f.rows[digest] = models.AdminSession{TokenDigest: digest, ExpiresAt: expiresAt}
	return nil
}

func (f *fakeSessions) Find(_ context.Context, digest string) (*models.AdminSession, error) {
	s, ok := f.rows[digest]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &s, nil
}

func (f *fakeSessions) ListAll(_ context.Context) ([]models.AdminSession, error) {
	out := make([]models.AdminSession, 0, len(f.rows))
	for _, s := range f.rows {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeSessions) Delete(_ context.Context, digest string) error {
	if _, ok := f.rows[digest]; !ok {
		return common.ErrNotFound
	}
	delete(f.rows, digest)
	return nil
}

type fakeManager struct {
	sessions *fakeSessions
}

func (f *fakeManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (f *fakeManager) Resources(dbx.DBTX) resources.Repository     { return nil }
func (f *fakeManager) Sessions(dbx.DBTX) sessions.Repository       { return f.sessions }

const testPassword = "correct horse battery staple"

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()

	salt := []byte("0123456789abcdef")
	verifier := cryptox.MakeVerifier(cryptox.DeriveKey([]byte(testPassword), salt))
	cfg.AdminPasswordSalt = hex.EncodeToString(salt)
	cfg.AdminPasswordVerifier = hex.EncodeToString(verifier)
	return cfg
}

func newService(t *testing.T, cfg *config.Config) (*Service, *fakeSessions) {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	repo := newFakeSessions()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	return NewService(nil, &fakeManager{sessions: repo}, cfg, logger), repo
}

func TestLogin(t *testing.T) {
	svc, repo := newService(t, nil)

	sess, err := svc.Login(context.Background(), testPassword, false)
	require.NoError(t, err)
	assert.Len(t, sess.Token, 43)

	// Stored digest is sha256 of the raw token bytes, never the token.
	raw, err := base64.RawURLEncoding.DecodeString(sess.Token)
	require.NoError(t, err)
	d := sha256.Sum256(raw)
	digest := base64.RawURLEncoding.EncodeToString(d[:])
	require.Contains(t, repo.rows, digest)
	assert.Equal(t, sess.ExpiresAt, repo.rows[digest].ExpiresAt)

	assert.WithinDuration(t, time.Now().Add(24*time.Hour), sess.ExpiresAt, time.Minute)
}

func TestLogin_LongSession(t *testing.T) {
	svc, _ := newService(t, nil)

	sess, err := svc.Login(context.Background(), testPassword, true)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), sess.ExpiresAt, time.Minute)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, repo := newService(t, nil)

	_, err := svc.Login(context.Background(), "incorrect horse", false)
	assert.ErrorIs(t, err, common.ErrUnauthorized)
	assert.Empty(t, repo.rows)
}

func TestLogin_BrokenCredentialConfig(t *testing.T) {
	cfg := testConfig()
	cfg.AdminPasswordSalt = "not hex"
	svc, _ := newService(t, cfg)

	_, err := svc.Login(context.Background(), testPassword, false)
	assert.ErrorIs(t, err, common.ErrUnavailable)
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newService(t, nil)

	sess, err := svc.Login(context.Background(), testPassword, false)
	require.NoError(t, err)

	assert.NoError(t, svc.Authenticate(context.Background(), sess.Token))
	assert.ErrorIs(t, svc.Authenticate(context.Background(), "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"), common.ErrUnauthorized)
	assert.ErrorIs(t, svc.Authenticate(context.Background(), "not!base64url"), common.ErrUnauthorized)
}

func TestAuthenticate_ExpiredSession(t *testing.T) {
	svc, _ := newService(t, nil)

	sess, err := svc.Login(context.Background(), testPassword, false)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	assert.ErrorIs(t, svc.Authenticate(context.Background(), sess.Token), common.ErrUnauthorized)
}

func TestLogout(t *testing.T) {
	svc, repo := newService(t, nil)

	sess, err := svc.Login(context.Background(), testPassword, false)
	require.NoError(t, err)
	require.Len(t, repo.rows, 1)

	require.NoError(t, svc.Logout(context.Background(), sess.Token))
	assert.Empty(t, repo.rows)
	assert.ErrorIs(t, svc.Authenticate(context.Background(), sess.Token), common.ErrUnauthorized)

	// Revoking again, or revoking garbage, is not an error.
	assert.NoError(t, svc.Logout(context.Background(), sess.Token))
	assert.NoError(t, svc.Logout(context.Background(), "not!base64url"))
}

func testResource(adminKey []byte) *models.Resource {
	d := sha256.Sum256(adminKey)
	return &models.Resource{
		Hash:           "somehash",
		AdminKeyDigest: base64.RawURLEncoding.EncodeToString(d[:]),
		ExpiresAt:      time.Now().Add(time.Hour),
	}
}

func TestAuthorizeResource_AdminKey(t *testing.T) {
	svc, _ := newService(t, nil)

	key := bytes.Repeat([]byte{0x42}, 32)
	res := testResource(key)
	encoded := base64.RawURLEncoding.EncodeToString(key)

	assert.NoError(t, svc.AuthorizeResource(context.Background(), res, encoded, ""))

	wrong := base64.RawURLEncoding.EncodeToString(bytes.Repeat([]byte{0x43}, 32))
	assert.ErrorIs(t, svc.AuthorizeResource(context.Background(), res, wrong, ""), common.ErrUnauthorized)
	assert.ErrorIs(t, svc.AuthorizeResource(context.Background(), res, "not!base64url", ""), common.ErrUnauthorized)
	assert.ErrorIs(t, svc.AuthorizeResource(context.Background(), res, "", ""), common.ErrUnauthorized)
}

func TestAuthorizeResource_SessionFallback(t *testing.T) {
	svc, _ := newService(t, nil)

	sess, err := svc.Login(context.Background(), testPassword, false)
	require.NoError(t, err)

	res := testResource(bytes.Repeat([]byte{0x42}, 32))

	// A wrong admin key still passes when a live session token is presented.
	wrong := base64.RawURLEncoding.EncodeToString(bytes.Repeat([]byte{0x43}, 32))
	assert.NoError(t, svc.AuthorizeResource(context.Background(), res, wrong, sess.Token))
	assert.NoError(t, svc.AuthorizeResource(context.Background(), res, "", sess.Token))

	require.NoError(t, svc.Logout(context.Background(), sess.Token))
	assert.ErrorIs(t, svc.AuthorizeResource(context.Background(), res, "", sess.Token), common.ErrUnauthorized)
}

func TestListExpiredSessions(t *testing.T) {
	svc, repo := newService(t, nil)

	_, err := svc.Login(context.Background(), testPassword, false)
	require.NoError(t, err)
	long, err := svc.Login(context.Background(), testPassword, true)
	require.NoError(t, err)
	require.Len(t, repo.rows, 2)

	svc.now = func() time.Time { return time.Now().Add(48 * time.Hour) }

	expired, err := svc.ListExpiredSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, expired, 1)

	require.NoError(t, svc.DeleteSession(context.Background(), expired[0].TokenDigest))
	assert.Len(t, repo.rows, 1)

	// The long session survives the cutoff.
	assert.NoError(t, svc.Authenticate(context.Background(), long.Token))
}
