package verifications

import (
	"context"
	"time"

	"github.com/staywo/authgate/internal/server/models"
)

type Repository interface {
	// Issue records a pending verification token for email. If a live
	// pending record already exists it reports common.ErrorAlreadyPending;
	// an expired record is replaced in the same statement.
	Issue(ctx context.Context, email, token string, ttl time.Duration) error

	// Consume atomically deletes the record for token and returns its email.
	// Unknown, already-consumed, and expired tokens all yield
	// common.ErrorNotFound.
	Consume(ctx context.Context, token string, ttl time.Duration) (string, error)

	// FindByEmail returns the pending record for email or common.ErrorNotFound.
	FindByEmail(ctx context.Context, email string) (*models.EmailVerification, error)
}
