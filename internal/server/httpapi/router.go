package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/staywo/authgate/internal/server/models"
	"github.com/staywo/authgate/internal/server/providers"
)

func (s *HTTPServer) routes() http.Handler {
	r := chi.NewRouter()

	// Public endpoints
	r.Route("/auth", func(r chi.Router) {
		r.Post("/email/register", s.handleRegister)
		r.Post("/email/login", s.handleLogin)
		r.Get("/email/verify/{token}", s.handleVerifyEmail)
		r.Get("/email/resend-verification/{email}", s.handleResendVerification)
		r.Get("/email/forget-password/{email}", s.handleForgetPassword)

		r.Post("/google", s.handleExternalLogin(providers.Google))
		r.Post("/facebook", s.handleExternalLogin(providers.Facebook))
		r.Post("/apple", s.handleExternalLogin(providers.Apple))
	})

	// Admin-only endpoints
	r.Route("/users", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Use(requireRole(models.RoleAdmin))
		r.Get("/", s.handleListUsers)
		r.Get("/email/{email}", s.handleGetUserByEmail)
		r.Put("/{id}", s.handleUpdateUser)
		r.Delete("/{id}", s.handleDeleteUser)
		r.Delete("/", s.handleDeleteAllUsers)
	})

	return r
}
