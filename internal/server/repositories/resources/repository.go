// Package resources provides the repository for uploaded-file rows.
package resources

import (
	"context"

	"github.com/dmitrijs2005/cryptshare/internal/server/models"
)

// Repository is the persistence contract for uploaded files. Implementations
// return common.ErrNotFound when a row is absent. Expiry is not their
// concern; liveness is decided by callers through models.Resource.Live.
type Repository interface {
	Create(ctx context.Context, r *models.Resource) error
	GetByHash(ctx context.Context, hash string) (*models.Resource, error)
	ListAll(ctx context.Context) ([]models.Resource, error)
	IncrementDownloads(ctx context.Context, hash string) error
	Delete(ctx context.Context, hash string) error
}
