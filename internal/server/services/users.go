package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/staywo/authgate/internal/common"
	"github.com/staywo/authgate/internal/server/auth"
	"github.com/staywo/authgate/internal/server/config"
	"github.com/staywo/authgate/internal/server/models"
	"github.com/staywo/authgate/internal/server/repositories/repomanager"
)

// UserUpdate lists the attributes an administrator may change. Nil fields
// are left untouched. A password update passes through the idempotent
// hasher, so handing back an already-stored digest never re-hashes it.
type UserUpdate struct {
	Username *string
	Password *string
	Verified *bool
	Role     *models.Role
}

// UsersService provides the administrative user operations: list, lookup,
// update, delete. Authorization happens at the transport layer, never here.
type UsersService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	bcryptCost  int
}

// NewUsersService constructs a UsersService using repositories and server config.
func NewUsersService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *UsersService {
	return &UsersService{db: db, repomanager: m, bcryptCost: cfg.BcryptCost}
}

// List returns every user.
func (s *UsersService) List(ctx context.Context) ([]*models.User, error) {
	users, err := s.repomanager.Users(s.db).List(ctx)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return users, nil
}

// FindByEmail returns the user with the given email or common.ErrorNotFound.
func (s *UsersService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}
	return user, nil
}

// Update applies the given changes to the user identified by id.
func (s *UsersService) Update(ctx context.Context, id int64, update *UserUpdate) (*models.User, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}

	if update.Username != nil {
		user.Username = *update.Username
	}
	if update.Password != nil {
		digest, err := auth.HashPassword(*update.Password, s.bcryptCost)
		if err != nil {
			return nil, common.ErrorInternal
		}
		user.PasswordHash = sql.NullString{String: digest, Valid: true}
	}
	if update.Verified != nil {
		user.Verified = *update.Verified
	}
	if update.Role != nil {
		user.Role = *update.Role
	}

	if err := repo.Update(ctx, user); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}
	return user, nil
}

// DeleteByID removes a single user or reports common.ErrorNotFound.
func (s *UsersService) DeleteByID(ctx context.Context, id int64) error {
	err := s.repomanager.Users(s.db).DeleteByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return common.ErrorInternal
	}
	return nil
}

// DeleteAll removes every user. Administrative use only.
func (s *UsersService) DeleteAll(ctx context.Context) error {
	if err := s.repomanager.Users(s.db).DeleteAll(ctx); err != nil {
		return common.ErrorInternal
	}
	return nil
}
