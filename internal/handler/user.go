package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gatekit/gatekit/internal/model"
	"github.com/gatekit/gatekit/internal/server/middleware"
	"github.com/gatekit/gatekit/internal/service"
	"github.com/gatekit/gatekit/internal/store"
)

// pageSize is the fixed page size for the admin user listing.
const pageSize = 10

// UserHandler serves the admin user-management endpoints and the
// self-service profile endpoints.
type UserHandler struct {
	store   *store.Store
	authSvc *service.AuthService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(st *store.Store, authSvc *service.AuthService) *UserHandler {
	return &UserHandler{store: st, authSvc: authSvc}
}

// ---------------------------------------------------------------------------
// Admin endpoints
// ---------------------------------------------------------------------------

// List returns one page of users, newest first, with total counts. The page
// parameter defaults to 1 and is not bounds-checked: a page past the end
// yields an empty list.
// GET /api/users?page=N
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize

	users, err := h.store.ListUsers(r.Context(), offset, pageSize)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list users: "+err.Error())
		return
	}
	total, err := h.store.CountUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count users: "+err.Error())
		return
	}

	views := make([]map[string]interface{}, 0, len(users))
	for i := range users {
		views = append(views, users[i].PublicView())
	}

	writeJSON(w, http.StatusOK, model.UserListResponse{
		Users:      views,
		Page:       page,
		Total:      total,
		TotalPages: int((total + pageSize - 1) / pageSize),
	})
}

// Activate sets a user's status to active. Idempotent.
// PATCH /api/users/{id}/activate
func (h *UserHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, model.StatusActive)
}

// Deactivate sets a user's status to inactive. Tokens issued before the
// change keep verifying until they expire; only future logins are blocked.
// PATCH /api/users/{id}/deactivate
func (h *UserHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, model.StatusInactive)
}

func (h *UserHandler) setStatus(w http.ResponseWriter, r *http.Request, status model.Status) {
	id := chi.URLParam(r, "id")

	if err := h.store.SetStatus(r.Context(), id, status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to update status: "+err.Error())
		return
	}

	user, err := h.store.GetUser(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load user: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user.PublicView()})
}

// ---------------------------------------------------------------------------
// Profile endpoints (self-service)
// ---------------------------------------------------------------------------

type updateProfileRequest struct {
	FullName string `json:"fullName" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required,min=8"`
	NewPassword     string `json:"newPassword" validate:"required,min=8"`
}

// GetProfile returns the authenticated user's own record.
// GET /api/profile
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	user, err := h.store.GetUser(r.Context(), principal.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load user: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user.PublicView()})
}

// UpdateProfile changes the authenticated user's full name and email.
// Fails 409 if the new email belongs to a different existing user.
// PUT /api/profile
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req updateProfileRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	req.Email = normalizeEmail(req.Email)
	if !checkRequest(w, req) {
		return
	}

	// Collision check against a *different* user; re-submitting your own
	// email is fine.
	if existing, err := h.store.GetUserByEmail(r.Context(), req.Email); err == nil && existing.ID != principal.UserID {
		writeError(w, http.StatusConflict, "Email already in use")
		return
	} else if err != nil && !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "Failed to update profile: "+err.Error())
		return
	}

	if err := h.store.UpdateProfile(r.Context(), principal.UserID, req.FullName, req.Email); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateEmail):
			writeError(w, http.StatusConflict, "Email already in use")
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "User not found")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to update profile: "+err.Error())
		}
		return
	}

	user, err := h.store.GetUser(r.Context(), principal.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load user: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user.PublicView()})
}

// ChangePassword replaces the stored hash after verifying the current
// password. A wrong current password leaves the hash untouched.
// PATCH /api/profile/change-password
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req changePasswordRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if !checkRequest(w, req) {
		return
	}

	user, err := h.store.GetUser(r.Context(), principal.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load user: "+err.Error())
		return
	}

	if !h.authSvc.VerifyPassword(req.CurrentPassword, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "Current password is incorrect")
		return
	}

	hash, err := h.authSvc.HashPassword(req.NewPassword)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to change password: "+err.Error())
		return
	}
	if err := h.store.UpdatePassword(r.Context(), principal.UserID, hash); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to change password: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Password updated successfully",
	})
}
