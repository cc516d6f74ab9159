// Package services contains the gateway's business logic. This file
// implements AuthService, which reconciles local credentials and external
// provider assertions onto canonical user records and mints session tokens.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/staywo/authgate/internal/common"
	"github.com/staywo/authgate/internal/dbx"
	"github.com/staywo/authgate/internal/server/auth"
	"github.com/staywo/authgate/internal/server/config"
	"github.com/staywo/authgate/internal/server/models"
	"github.com/staywo/authgate/internal/server/providers"
	"github.com/staywo/authgate/internal/server/repositories/repomanager"
)

// Notifier sends the gateway's transactional email. Satisfied by mail.Mailer.
type Notifier interface {
	SendVerification(ctx context.Context, email, username, token string) (string, error)
	SendPasswordReset(ctx context.Context, email, token string) (string, error)
}

// RegisterResult is the outcome of a successful (or partially successful)
// registration. Token is empty when session-token-on-register is disabled.
// VerificationSent is false when the user exists but the verification email
// could not be delivered; the accompanying error carries the delivery kind.
type RegisterResult struct {
	User             *models.User
	Token            string
	VerificationSent bool
}

// AuthService provides the authentication operations behind all four login
// paths:
//   - Register / Login: local email+password accounts
//   - ExternalLogin: Google/Facebook/Apple assertions
//   - VerifyEmail / ResendVerification / RequestPasswordReset: the email
//     verification workflow
type AuthService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	notifier                     Notifier
	jwtSecret                    []byte
	sessionTokenValidityDuration time.Duration
	verificationTokenTTL         time.Duration
	bcryptCost                   int
	sessionTokenOnRegister       bool
}

// NewAuthService constructs an AuthService using repositories, the mail
// dispatcher, and server config.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, notifier Notifier, cfg *config.Config) *AuthService {
	return &AuthService{
		db:                           db,
		repomanager:                  m,
		notifier:                     notifier,
		jwtSecret:                    []byte(cfg.SecretKey),
		sessionTokenValidityDuration: cfg.SessionTokenValidityDuration,
		verificationTokenTTL:         cfg.VerificationTokenTTL,
		bcryptCost:                   cfg.BcryptCost,
		sessionTokenOnRegister:       cfg.SessionTokenOnRegister,
	}
}

// Register creates a local account with a hashed password and kicks off the
// email verification workflow. A duplicate email yields common.ErrorConflict.
// When the user is created but the verification email cannot be delivered,
// the result is returned together with a common.ErrorDelivery so the caller
// sees the partial success instead of a silent drop.
func (s *AuthService) Register(ctx context.Context, email, username, password string) (*RegisterResult, error) {
	digest, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, common.ErrorInternal
	}

	user := &models.User{
		Email:        email,
		Username:     username,
		PasswordHash: sql.NullString{String: digest, Valid: true},
		Verified:     false,
		Role:         models.RoleTest,
	}

	repo := s.repomanager.Users(s.db)
	user, err = repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorConflict) {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("error creating user: %v", err)
	}

	result := &RegisterResult{User: user}

	if s.sessionTokenOnRegister {
		token, err := auth.GenerateSessionToken(user, s.jwtSecret, s.sessionTokenValidityDuration)
		if err != nil {
			return nil, common.ErrorInternal
		}
		result.Token = token
	}

	code, err := s.issueVerification(ctx, email)
	if err != nil {
		return result, err
	}

	if _, err := s.notifier.SendVerification(ctx, email, username, code); err != nil {
		// the account exists either way; report the failed delivery, do not
		// roll anything back
		return result, err
	}

	result.VerificationSent = true
	return result, nil
}

// Login verifies the email/password pair and, on success, returns a session
// token. Unknown emails and wrong passwords are indistinguishable to the
// caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorUnauthorized
		}
		return "", common.ErrorInternal
	}

	if !user.PasswordHash.Valid || !auth.CheckPassword(password, user.PasswordHash.String) {
		return "", common.ErrorUnauthorized
	}

	token, err := auth.GenerateSessionToken(user, s.jwtSecret, s.sessionTokenValidityDuration)
	if err != nil {
		return "", common.ErrorInternal
	}
	return token, nil
}

// ExternalLogin resolves a provider assertion to a canonical user,
// creating one on first contact. Users created this way are verified from
// the start (the provider already asserted ownership of the email) and hold
// no local password. Malformed assertions fail with common.ErrorForbidden
// before any store access.
func (s *AuthService) ExternalLogin(ctx context.Context, assertion *providers.Assertion) (string, error) {
	if err := assertion.Validate(); err != nil {
		return "", err
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.FindByEmail(ctx, assertion.Email)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorInternal
		}
		user, err = repo.Create(ctx, &models.User{
			Email:    assertion.Email,
			Username: assertion.DisplayName(),
			Verified: true,
			Role:     models.RoleTest,
		})
		if errors.Is(err, common.ErrorConflict) {
			// lost the race against a concurrent first login for this email
			user, err = repo.FindByEmail(ctx, assertion.Email)
		}
		if err != nil {
			return "", common.ErrorInternal
		}
	}

	token, err := auth.GenerateSessionToken(user, s.jwtSecret, s.sessionTokenValidityDuration)
	if err != nil {
		return "", common.ErrorInternal
	}
	return token, nil
}

// VerifyEmail consumes a verification token and flips the account's
// verified flag, both inside one transaction: if the user row is gone the
// consume rolls back and the token survives. Unknown, expired, and reused
// tokens yield common.ErrInvalidToken.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		email, err := s.repomanager.Verifications(tx).Consume(ctx, token, s.verificationTokenTTL)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInvalidToken
			}
			return common.ErrorInternal
		}

		if err := s.repomanager.Users(tx).SetVerified(ctx, email); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorNotFound
			}
			return common.ErrorInternal
		}
		return nil
	})
}

// ResendVerification re-sends the activation email for an unverified
// account, reusing the pending token when one is still live. Unknown emails
// yield common.ErrorNotFound; transport failures common.ErrorDelivery.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	user, err := s.findUser(ctx, email)
	if err != nil {
		return err
	}

	code, err := s.issueVerification(ctx, email)
	if err != nil {
		return err
	}

	_, err = s.notifier.SendVerification(ctx, email, user.Username, code)
	return err
}

// RequestPasswordReset issues (or reuses) a single-use token for email and
// sends the reset message. Unknown emails yield common.ErrorNotFound.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	if _, err := s.findUser(ctx, email); err != nil {
		return err
	}

	code, err := s.issueVerification(ctx, email)
	if err != nil {
		return err
	}

	_, err = s.notifier.SendPasswordReset(ctx, email, code)
	return err
}

// --- helpers below ---

func (s *AuthService) findUser(ctx context.Context, email string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}
	return user, nil
}

// issueVerification stores a fresh verification code for email, or picks up
// the still-pending one when a live record already exists. The
// already-pending case is a normal outcome, not a failure.
func (s *AuthService) issueVerification(ctx context.Context, email string) (string, error) {
	code, err := common.MakeVerificationCode()
	if err != nil {
		return "", common.ErrorInternal
	}

	repo := s.repomanager.Verifications(s.db)
	err = repo.Issue(ctx, email, code, s.verificationTokenTTL)
	if err == nil {
		return code, nil
	}
	if !errors.Is(err, common.ErrorAlreadyPending) {
		return "", common.ErrorInternal
	}

	pending, err := repo.FindByEmail(ctx, email)
	if err != nil {
		return "", common.ErrorInternal
	}
	return pending.Token, nil
}
