// Package resources implements the resource store: the content-addressed
// pairing of an uploaded blob with its database row, their shared lifecycle,
// and the quota accounting over them.
package resources

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/cryptshare/internal/common"
	"github.com/dmitrijs2005/cryptshare/internal/logging"
	"github.com/dmitrijs2005/cryptshare/internal/server/blob"
	"github.com/dmitrijs2005/cryptshare/internal/server/config"
	"github.com/dmitrijs2005/cryptshare/internal/server/metrics"
	"github.com/dmitrijs2005/cryptshare/internal/server/models"
	"github.com/dmitrijs2005/cryptshare/internal/server/repositories/repomanager"
)

// Upload carries the client-supplied parts of a new resource.
type Upload struct {
	EncryptedName []byte
	Data          []byte
	IVData        []byte
	IVName        []byte
	TTL           time.Duration
	Uploader      string // canonical client-identity string
}

// StoreResult is returned to the uploader: the public content hash and the
// one-time admin capability. The capability is never persisted, only its
// digest.
type StoreResult struct {
	Hash     string `json:"hash"`
	AdminKey string `json:"admin_key"`
}

// Quota is a point-in-time aggregate over all live resources.
type Quota struct {
	UsedBytes     int64
	UploaderCount int
}

// Service coordinates the database rows and the blob store. The two are not
// covered by one transaction; partial-failure policy is documented on each
// method.
type Service struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blobs       blob.Store
	config      *config.Config
	logger      logging.Logger
	metrics     metrics.Metrics
	now         func() time.Time
}

// NewService constructs a resource service using repositories, blob storage
// and server config.
func NewService(db *sql.DB, m repomanager.RepositoryManager, blobs blob.Store,
	cfg *config.Config, logger logging.Logger, mt metrics.Metrics) *Service {
	return &Service{
		db:          db,
		repomanager: m,
		blobs:       blobs,
		config:      cfg,
		logger:      logger,
		metrics:     mt,
		now:         time.Now,
	}
}

// QuotaSnapshot reports the bytes used by all live resources and how many of
// them the given uploader owns. It is a snapshot: a concurrent upload may
// change the numbers before the caller acts on them. The overshoot is
// bounded because the upload guard allows each identity only one in-flight
// upload.
func (s *Service) QuotaSnapshot(ctx context.Context, uploader string) (*Quota, error) {
	repo := s.repomanager.Resources(s.db)

	all, err := repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: reading files: %v", common.ErrUnavailable, err)
	}

	now := s.now()
	q := &Quota{}
	for i := range all {
		if !all[i].Live(now) {
			continue
		}
		q.UsedBytes += all[i].Size
		if all[i].Uploader == uploader {
			q.UploaderCount++
		}
	}
	return q, nil
}

// Store persists a new resource: quota check, blob write, then row insert.
//
// The blob is written before the row so a failure can never yield a row
// pointing at missing bytes. If the row insert fails after the blob write,
// the orphaned blob is left in place and logged; it is invisible to every
// read path and needs operator cleanup.
func (s *Service) Store(ctx context.Context, up *Upload) (*StoreResult, error) {
	size := int64(len(up.Data))

	quota, err := s.QuotaSnapshot(ctx, up.Uploader)
	if err != nil {
		return nil, err
	}
	if quota.UsedBytes+size > s.config.MaximumQuota {
		s.metrics.IncUploads("quota_exceeded")
		return nil, fmt.Errorf("%w: %d bytes used of %d", common.ErrStorageExhausted, quota.UsedBytes, s.config.MaximumQuota)
	}
	if quota.UploaderCount >= s.config.MaximumUploadsPerIdentity {
		s.metrics.IncUploads("upload_limit")
		return nil, common.ErrTooManyUploads
	}

	digest := sha256.Sum256(up.Data)
	hash := base64.RawURLEncoding.EncodeToString(digest[:])

	// 256 bits of fresh entropy for the admin capability. A single sha256
	// digest is enough for storage: the key is random and never reused, so
	// a password-hashing KDF would buy nothing.
	var keyBytes [32]byte
	if _, err := rand.Read(keyBytes[:]); err != nil {
		return nil, fmt.Errorf("%w: generating admin key: %v", common.ErrUnavailable, err)
	}
	adminKey := base64.RawURLEncoding.EncodeToString(keyBytes[:])
	keyDigest := sha256.Sum256(keyBytes[:])

	now := s.now().UTC().Truncate(time.Second)
	res := &models.Resource{
		Hash:           hash,
		AdminKeyDigest: base64.RawURLEncoding.EncodeToString(keyDigest[:]),
		EncryptedName:  up.EncryptedName,
		IVData:         up.IVData,
		IVName:         up.IVName,
		Size:           size,
		Uploader:       up.Uploader,
		CreatedAt:      now,
		ExpiresAt:      now.Add(up.TTL),
	}

	if err := s.blobs.Save(ctx, hash, up.Data); err != nil {
		s.metrics.IncUploads("blob_error")
		return nil, fmt.Errorf("%w: writing blob: %v", common.ErrUnavailable, err)
	}

	if err := s.repomanager.Resources(s.db).Create(ctx, res); err != nil {
		s.metrics.IncUploads("db_error")
		s.logger.Error(ctx, "file row insert failed, orphaned blob left in storage",
			"hash", hash, "size", size, "error", err)
		return nil, fmt.Errorf("%w: inserting file row: %v", common.ErrUnavailable, err)
	}

	s.metrics.IncUploads("created")
	s.logger.Info(ctx, "stored new file", "hash", hash, "size", size, "expiry", res.ExpiresAt)

	return &StoreResult{Hash: hash, AdminKey: adminKey}, nil
}

// Fetch returns the resource for the given hash if it exists and is live.
// An expired row is reported as common.ErrNotFound, identically to a row
// that was already removed.
func (s *Service) Fetch(ctx context.Context, hash string) (*models.Resource, error) {
	res, err := s.repomanager.Resources(s.db).GetByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("%w: reading file row: %v", common.ErrUnavailable, err)
	}
	if !res.Live(s.now()) {
		return nil, common.ErrNotFound
	}
	return res, nil
}

// OpenDownload returns the live resource and a reader over its blob, and
// bumps the approximate download counter. A live row whose blob is missing
// is a storage inconsistency: logged loudly, surfaced as unavailable.
func (s *Service) OpenDownload(ctx context.Context, hash string) (*models.Resource, io.ReadCloser, error) {
	res, err := s.Fetch(ctx, hash)
	if err != nil {
		return nil, nil, err
	}

	r, err := s.blobs.Open(ctx, hash)
	if err != nil {
		s.logger.Error(ctx, "file row exists but blob is missing", "hash", hash, "error", err)
		return nil, nil, fmt.Errorf("%w: opening blob: %v", common.ErrUnavailable, err)
	}

	// Lost increments under concurrency are fine; this is not a billing
	// counter.
	if err := s.repomanager.Resources(s.db).IncrementDownloads(ctx, hash); err != nil {
		s.logger.Warn(ctx, "download counter update failed", "hash", hash, "error", err)
	}

	s.metrics.IncDownloads()
	return res, r, nil
}

// Destroy removes the row first, then the blob. Once the row is gone the
// resource is logically deleted and reads return not-found, so a blob
// removal failure is logged but does not fail the operation. The sweep
// cannot revisit a row it no longer finds; those bytes stay on disk until
// an operator removes them.
func (s *Service) Destroy(ctx context.Context, hash string) error {
	if err := s.repomanager.Resources(s.db).Delete(ctx, hash); err != nil {
		return fmt.Errorf("%w: deleting file row: %v", common.ErrUnavailable, err)
	}

	if err := s.blobs.Delete(ctx, hash); err != nil {
		s.logger.Error(ctx, "file row deleted but blob removal failed, bytes remain in storage",
			"hash", hash, "error", err)
		return nil
	}

	return nil
}

// ListExpired returns the resources failing the liveness predicate. The sweep
// applies the same predicate the read paths use.
func (s *Service) ListExpired(ctx context.Context) ([]models.Resource, error) {
	all, err := s.repomanager.Resources(s.db).ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: reading files: %v", common.ErrUnavailable, err)
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

// List returns all live resources, for the admin overview.
func (s *Service) List(ctx context.Context) ([]models.Resource, error) {
	all, err := s.repomanager.Resources(s.db).ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: reading files: %v", common.ErrUnavailable, err)
	}

	now := s.now()
	live := all[:0]
	for i := range all {
		if all[i].Live(now) {
			live = append(live, all[i])
		}
	}
	return live, nil
}
