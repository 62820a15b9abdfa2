package resources

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/cryptshare/internal/common"
	"github.com/dmitrijs2005/cryptshare/internal/dbx"
	"github.com/dmitrijs2005/cryptshare/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, res *models.Resource) error {
	query := `
		INSERT INTO uploaded_files
			(efd_sha256sum, admin_key_sha256sum, e_filename, iv_fd, iv_fn, filesize, upload_ip, upload_ts, expiry_ts, downloads)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	if _, err := r.db.ExecContext(ctx, query,
		res.Hash, res.AdminKeyDigest, res.EncryptedName, res.IVData, res.IVName,
		res.Size, res.Uploader, res.CreatedAt, res.ExpiresAt, res.Downloads); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByHash(ctx context.Context, hash string) (*models.Resource, error) {
	query := `
		SELECT efd_sha256sum, admin_key_sha256sum, e_filename, iv_fd, iv_fn, filesize, upload_ip, upload_ts, expiry_ts, downloads
		FROM uploaded_files
		WHERE efd_sha256sum = $1
	`
	res := &models.Resource{}
	err := r.db.QueryRowContext(ctx, query, hash).Scan(
		&res.Hash, &res.AdminKeyDigest, &res.EncryptedName, &res.IVData, &res.IVName,
		&res.Size, &res.Uploader, &res.CreatedAt, &res.ExpiresAt, &res.Downloads)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return res, nil
}

func (r *PostgresRepository) ListAll(ctx context.Context) ([]models.Resource, error) {
	query := `
		SELECT efd_sha256sum, admin_key_sha256sum, e_filename, iv_fd, iv_fn, filesize, upload_ip, upload_ts, expiry_ts, downloads
		FROM uploaded_files
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var all []models.Resource
	for rows.Next() {
		var res models.Resource
		if err := rows.Scan(
			&res.Hash, &res.AdminKeyDigest, &res.EncryptedName, &res.IVData, &res.IVName,
			&res.Size, &res.Uploader, &res.CreatedAt, &res.ExpiresAt, &res.Downloads); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		all = append(all, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return all, nil
}

// IncrementDownloads bumps the download counter. The counter is approximate;
// no row lock is taken.
func (r *PostgresRepository) IncrementDownloads(ctx context.Context, hash string) error {
	query := `
		UPDATE uploaded_files SET downloads = downloads + 1
		WHERE efd_sha256sum = $1
	`
	if _, err := r.db.ExecContext(ctx, query, hash); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, hash string) error {
	query := `
		DELETE FROM uploaded_files
		WHERE efd_sha256sum = $1
	`
	if _, err := r.db.ExecContext(ctx, query, hash); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
