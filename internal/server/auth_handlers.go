package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"gazette/internal/auth"
	"gazette/internal/core"
	"gazette/internal/persistence"
)

// CredentialsRequest is the register and login payload.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse carries an issued bearer token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// handleRegister handles POST /register.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		s.respondError(w, http.StatusBadRequest, "A valid email is required")
		return
	}
	if len(req.Password) < 8 {
		s.respondError(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		s.log.Error("Failed to hash password", "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	now := time.Now().UTC()
	user := core.User{
		ID:             uuid.NewString(),
		Email:          req.Email,
		HashedPassword: hashed,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err = s.db.Users().Create(r.Context(), &user)
	if errors.Is(err, persistence.ErrDuplicateEmail) {
		s.respondError(w, http.StatusBadRequest, "Email already registered")
		return
	}
	if err != nil {
		s.log.Error("Failed to create user", "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	s.issueToken(w, user.ID)
}

// handleLogin handles POST /login.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	user, err := s.db.Users().GetByEmail(r.Context(), req.Email)
	if errors.Is(err, persistence.ErrNotFound) {
		s.respondError(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	if err != nil {
		s.log.Error("Failed to load user", "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	if !auth.VerifyPassword(user.HashedPassword, req.Password) {
		s.respondError(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}

	s.issueToken(w, user.ID)
}

// issueToken signs a token for the user and writes the token response.
func (s *Server) issueToken(w http.ResponseWriter, userID string) {
	token, err := s.tokens.Issue(userID)
	if err != nil {
		s.log.Error("Failed to issue token", "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	s.respondJSON(w, http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}

// handleMe handles GET /me.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	s.respondJSON(w, http.StatusOK, user)
}

// DeleteUserRequest is the DELETE /user payload; the password is re-verified
// before the account is removed.
type DeleteUserRequest struct {
	Password string `json:"password"`
}

// handleDeleteUser handles DELETE /user. Billing cleanup is best-effort: a
// failed cancel or customer delete is logged and the account is removed
// anyway.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	var req DeleteUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !auth.VerifyPassword(user.HashedPassword, req.Password) {
		s.respondError(w, http.StatusUnauthorized, "Incorrect password")
		return
	}

	if err := s.billing.CancelSubscription(r.Context(), user.StripeSubscriptionID); err != nil {
		s.log.Warn("Failed to cancel subscription during account deletion", "user_id", user.ID, "error", err)
	}
	if err := s.billing.DeleteCustomer(r.Context(), user.StripeCustomerID); err != nil {
		s.log.Warn("Failed to delete billing customer during account deletion", "user_id", user.ID, "error", err)
	}

	if err := s.db.Users().Delete(r.Context(), user.ID); err != nil {
		s.log.Error("Failed to delete user", "user_id", user.ID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to delete account")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// currentUser loads the authenticated user row, writing a 401 when the token
// subject no longer exists.
func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) (*core.User, bool) {
	userID := userIDFromContext(r.Context())

	user, err := s.db.Users().Get(r.Context(), userID)
	if errors.Is(err, persistence.ErrNotFound) {
		s.respondError(w, http.StatusUnauthorized, "Could not validate credentials")
		return nil, false
	}
	if err != nil {
		s.log.Error("Failed to load user", "user_id", userID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to load account")
		return nil, false
	}

	return user, true
}
