package repomanager

import (
	"context"
	"database/sql"

	"github.com/staywo/authgate/internal/dbx"
	"github.com/staywo/authgate/internal/server/repositories/users"
	"github.com/staywo/authgate/internal/server/repositories/verifications"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Verifications(db dbx.DBTX) verifications.Repository
}
