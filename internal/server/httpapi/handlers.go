package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/staywo/authgate/internal/common"
	"github.com/staywo/authgate/internal/server/models"
	"github.com/staywo/authgate/internal/server/providers"
	"github.com/staywo/authgate/internal/server/services"
)

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type userResponse struct {
	ID        int64       `json:"id"`
	Email     string      `json:"email"`
	Username  string      `json:"username"`
	Verified  bool        `json:"verified"`
	Role      models.Role `json:"role"`
	CreatedAt time.Time   `json:"createdAt"`
}

type registerResponse struct {
	User             userResponse `json:"user"`
	Token            string       `json:"token,omitempty"`
	VerificationSent bool         `json:"verificationSent"`
}

type updateUserRequest struct {
	Username *string      `json:"username"`
	Password *string      `json:"password"`
	Verified *bool        `json:"verified"`
	Role     *models.Role `json:"role"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		Verified:  u.Verified,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps the service error taxonomy to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrorConflict):
		writeJSONError(w, http.StatusConflict, common.ErrorConflict.Error())
	case errors.Is(err, common.ErrorUnauthorized):
		writeJSONError(w, http.StatusUnauthorized, common.ErrorUnauthorized.Error())
	case errors.Is(err, common.ErrorForbidden):
		writeJSONError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired):
		writeJSONError(w, http.StatusForbidden, "invalid token")
	case errors.Is(err, common.ErrorNotFound):
		writeJSONError(w, http.StatusNotFound, "not found")
	case errors.Is(err, common.ErrorDelivery):
		writeJSONError(w, http.StatusBadGateway, "email delivery failed")
	default:
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *HTTPServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Username == "" || req.Password == "" {
		writeJSONError(w, http.StatusBadRequest, "email, username and password are required")
		return
	}

	s.logger.Info(r.Context(), "Registration request", "email", req.Email)

	result, err := s.auth.Register(r.Context(), req.Email, req.Username, req.Password)
	if err != nil && result == nil {
		s.logger.Error(r.Context(), err.Error())
		writeError(w, err)
		return
	}
	if err != nil {
		// the account exists, only the verification mail failed
		s.logger.Error(r.Context(), "verification mail not delivered", "email", req.Email, "error", err)
	}

	writeJSON(w, http.StatusCreated, registerResponse{
		User:             toUserResponse(result.User),
		Token:            result.Token,
		VerificationSent: result.VerificationSent,
	})
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (s *HTTPServer) handleExternalLogin(provider providers.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var assertion providers.Assertion
		if err := json.NewDecoder(r.Body).Decode(&assertion); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		assertion.Provider = provider

		token, err := s.auth.ExternalLogin(r.Context(), &assertion)
		if err != nil {
			s.logger.Error(r.Context(), err.Error(), "provider", provider)
			writeError(w, err)
			return
		}

		s.logger.Info(r.Context(), "external login", "provider", provider)
		writeJSON(w, http.StatusOK, tokenResponse{Token: token})
	}
}

// handleVerifyEmail is the endpoint behind the link in the verification
// mail, so on success it redirects the browser instead of returning JSON.
func (s *HTTPServer) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	if err := s.auth.VerifyEmail(r.Context(), token); err != nil {
		writeError(w, err)
		return
	}

	http.Redirect(w, r, s.redirectURL, http.StatusFound)
}

func (s *HTTPServer) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")

	if err := s.auth.ResendVerification(r.Context(), email); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "verification email sent"})
}

func (s *HTTPServer) handleForgetPassword(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")

	if err := s.auth.RequestPasswordReset(r.Context(), email); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "password reset email sent"})
}

func (s *HTTPServer) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *HTTPServer) handleGetUserByEmail(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.FindByEmail(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (s *HTTPServer) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.users.Update(r.Context(), id, &services.UserUpdate{
		Username: req.Username,
		Password: req.Password,
		Verified: req.Verified,
		Role:     req.Role,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (s *HTTPServer) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := s.users.DeleteByID(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *HTTPServer) handleDeleteAllUsers(w http.ResponseWriter, r *http.Request) {
	if err := s.users.DeleteAll(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
