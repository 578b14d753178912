package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/resonarr/backend/internal/crypto"
	"github.com/resonarr/backend/internal/db"
	"github.com/resonarr/backend/internal/logging"
	"github.com/resonarr/backend/internal/middleware"
	"github.com/resonarr/backend/internal/models"
	"github.com/resonarr/backend/internal/services"
)

// AuthHandler serves login and the authenticated user's own account.
type AuthHandler struct {
	queries     *db.Queries
	authService *services.AuthService
}

func NewAuthHandler(queries *db.Queries, authService *services.AuthService) *AuthHandler {
	return &AuthHandler{queries: queries, authService: authService}
}

func userResponse(u db.User) models.UserResponse {
	return models.UserResponse{
		ID:             u.ID,
		Username:       u.Username,
		IsAdmin:        u.IsAdmin,
		IsActive:       u.IsActive,
		LastfmUsername: u.LastfmUsername,
		CreatedAt:      u.CreatedAt,
	}
}

// Login verifies credentials and issues a JWT. Unknown users and wrong
// passwords get the same answer so usernames can't be probed.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.queries.GetUserByUsername(r.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			logging.LogSecurityEvent(r.Context(), logging.SecurityEventBadLogin, "unknown username")
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "login failed", err)
		return
	}

	if !crypto.VerifyPassword(req.Password, user.PasswordHash) {
		logging.LogSecurityEvent(r.Context(), logging.SecurityEventBadLogin, "wrong password")
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if !user.IsActive {
		logging.LogSecurityEvent(r.Context(), logging.SecurityEventInactiveUser, "login by deactivated user")
		writeError(w, http.StatusForbidden, "account is deactivated")
		return
	}

	token, err := h.authService.GenerateToken(user.ID, user.Username, user.IsAdmin)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "login failed", err)
		return
	}

	writeJSON(w, http.StatusOK, models.LoginResponse{Token: token, User: userResponse(user)})
}

// Me returns the authenticated user's account.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())

	user, err := h.queries.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to load account", err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse(user))
}

// ChangePassword replaces the caller's own password after verifying the
// current one.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())

	var req models.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.NewPassword) < 8 {
		writeError(w, http.StatusBadRequest, "new password must be at least 8 characters")
		return
	}

	user, err := h.queries.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to load account", err)
		return
	}
	if !crypto.VerifyPassword(req.CurrentPassword, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "current password is incorrect")
		return
	}

	hash, err := crypto.HashPassword(req.NewPassword)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to update password", err)
		return
	}
	if err := h.queries.UpdateUserPassword(r.Context(), db.UpdateUserPasswordParams{
		PasswordHash: hash,
		ID:           user.ID,
	}); err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to update password", err)
		return
	}

	writeJSON(w, http.StatusOK, models.AcceptedResponse{Status: "ok"})
}

// UpdateProfile updates the caller's own profile fields.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())

	var req models.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.queries.UpdateUserProfile(r.Context(), db.UpdateUserProfileParams{
		LastfmUsername: strings.TrimSpace(req.LastfmUsername),
		ID:             claims.UserID,
	}); err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to update profile", err)
		return
	}

	user, err := h.queries.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to load account", err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse(user))
}
