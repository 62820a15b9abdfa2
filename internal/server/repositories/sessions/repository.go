// Package sessions provides the repository for administrator-session rows,
// keyed by the digest of the session token.
package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/cryptshare/internal/server/models"
)

// Repository is the persistence contract for admin sessions. Find returns
// common.ErrNotFound for an absent digest; expiry is judged by callers.
type Repository interface {
	Create(ctx context.Context, tokenDigest string, expiresAt time.Time) error
	Find(ctx context.Context, tokenDigest string) (*models.AdminSession, error)
	ListAll(ctx context.Context) ([]models.AdminSession, error)
	Delete(ctx context.Context, tokenDigest string) error
}
