// Package httpapi exposes the gateway's HTTP endpoints: registration,
// the four login paths, the email verification workflow, and the
// administrative user routes.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/staywo/authgate/internal/logging"
	"github.com/staywo/authgate/internal/server/models"
	"github.com/staywo/authgate/internal/server/providers"
	"github.com/staywo/authgate/internal/server/services"
)

// AuthService is the authentication surface the handlers call.
// Satisfied by services.AuthService.
type AuthService interface {
	Register(ctx context.Context, email, username, password string) (*services.RegisterResult, error)
	Login(ctx context.Context, email, password string) (string, error)
	ExternalLogin(ctx context.Context, assertion *providers.Assertion) (string, error)
	VerifyEmail(ctx context.Context, token string) error
	ResendVerification(ctx context.Context, email string) error
	RequestPasswordReset(ctx context.Context, email string) error
}

// UsersService is the administrative surface the handlers call.
// Satisfied by services.UsersService.
type UsersService interface {
	List(ctx context.Context) ([]*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, id int64, update *services.UserUpdate) (*models.User, error)
	DeleteByID(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context) error
}

type HTTPServer struct {
	address     string
	auth        AuthService
	users       UsersService
	logger      logging.Logger
	jwtSecret   []byte
	redirectURL string
}

func NewHTTPServer(a string, l logging.Logger, as AuthService, us UsersService, secretKey, redirectURL string) (*HTTPServer, error) {
	return &HTTPServer{
		address:     a,
		logger:      l.With("module", "http_server"),
		auth:        as,
		users:       us,
		jwtSecret:   []byte(secretKey),
		redirectURL: redirectURL,
	}, nil
}

func (s *HTTPServer) Run(ctx context.Context) error {

	srv := &http.Server{
		Addr:    s.address,
		Handler: s.routes(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
