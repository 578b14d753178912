package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/resonarr/backend/internal/crypto"
	"github.com/resonarr/backend/internal/db"
	"github.com/resonarr/backend/internal/middleware"
	"github.com/resonarr/backend/internal/models"
)

// UserHandler serves the admin-only user management endpoints.
type UserHandler struct {
	queries *db.Queries
}

func NewUserHandler(queries *db.Queries) *UserHandler {
	return &UserHandler{queries: queries}
}

// List returns every account.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.queries.ListUsers(r.Context())
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to list users", err)
		return
	}

	out := make([]models.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userResponse(u))
	}
	writeJSON(w, http.StatusOK, out)
}

// Create registers a new account.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to create user", err)
		return
	}

	user, err := h.queries.CreateUser(r.Context(), db.CreateUserParams{
		Username:     req.Username,
		PasswordHash: hash,
		IsAdmin:      req.IsAdmin,
	})
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			writeError(w, http.StatusConflict, "username is taken")
			return
		}
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to create user", err)
		return
	}

	writeJSON(w, http.StatusCreated, userResponse(user))
}

// Update changes an account's admin or active flags. The last active admin
// can be neither demoted nor deactivated.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req models.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.queries.GetUserByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	demoting := req.IsAdmin != nil && !*req.IsAdmin && user.IsAdmin
	deactivating := req.IsActive != nil && !*req.IsActive && user.IsActive
	if (demoting || deactivating) && user.IsAdmin && user.IsActive {
		admins, err := h.queries.CountActiveAdmins(r.Context())
		if err != nil {
			writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to update user", err)
			return
		}
		if admins <= 1 {
			writeError(w, http.StatusConflict, "cannot remove the last active admin")
			return
		}
	}

	if req.IsAdmin != nil {
		if err := h.queries.SetUserAdmin(r.Context(), db.SetUserAdminParams{IsAdmin: *req.IsAdmin, ID: id}); err != nil {
			writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to update user", err)
			return
		}
	}
	if req.IsActive != nil {
		if err := h.queries.SetUserActive(r.Context(), db.SetUserActiveParams{IsActive: *req.IsActive, ID: id}); err != nil {
			writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to update user", err)
			return
		}
	}

	updated, err := h.queries.GetUserByID(r.Context(), id)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to load user", err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse(updated))
}

// Delete removes an account. Admins cannot delete themselves, and the last
// active admin cannot be removed at all.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	claims := middleware.GetClaims(r.Context())
	if claims.UserID == id {
		writeError(w, http.StatusConflict, "cannot delete your own account")
		return
	}

	user, err := h.queries.GetUserByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if user.IsAdmin && user.IsActive {
		admins, err := h.queries.CountActiveAdmins(r.Context())
		if err != nil {
			writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to delete user", err)
			return
		}
		if admins <= 1 {
			writeError(w, http.StatusConflict, "cannot remove the last active admin")
			return
		}
	}

	if err := h.queries.DeleteUser(r.Context(), id); err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to delete user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
