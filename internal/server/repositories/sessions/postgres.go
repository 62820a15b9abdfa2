package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

func (r *PostgresRepository) Create(ctx context.Context, tokenDigest string, expiresAt time.Time) error {
	query := `
		INSERT INTO admin_sessions (session_id_sha256sum, expiry_ts)
		VALUES ($1, $2)
	`
	if _, err := r.db.ExecContext(ctx, query, tokenDigest, expiresAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Find(ctx context.Context, tokenDigest string) (*models.AdminSession, error) {
	query := `
		SELECT session_id_sha256sum, expiry_ts
		FROM admin_sessions
		WHERE session_id_sha256sum = $1
	`
	s := &models.AdminSession{}
	if err := r.db.QueryRowContext(ctx, query, tokenDigest).Scan(&s.TokenDigest, &s.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) ListAll(ctx context.Context) ([]models.AdminSession, error) {
	query := `
		SELECT session_id_sha256sum, expiry_ts
		FROM admin_sessions
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var all []models.AdminSession
	for rows.Next() {
		var s models.AdminSession
		if err := rows.Scan(&s.TokenDigest, &s.ExpiresAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		all = append(all, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return all, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, tokenDigest string) error {
	query := `
		DELETE FROM admin_sessions
		WHERE session_id_sha256sum = $1
	`
	if _, err := r.db.ExecContext(ctx, query, tokenDigest); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
