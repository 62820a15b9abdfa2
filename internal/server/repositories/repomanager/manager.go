// Package repomanager wires repository constructors and database migrations
// together behind one interface, so services depend on a single seam.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/cryptshare/internal/dbx"
	"github.com/dmitrijs2005/cryptshare/internal/server/repositories/resources"
	"github.com/dmitrijs2005/cryptshare/internal/server/repositories/sessions"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Resources(db dbx.DBTX) resources.Repository
	Sessions(db dbx.DBTX) sessions.Repository
}
