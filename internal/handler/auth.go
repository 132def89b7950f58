package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gatekit/gatekit/internal/model"
	"github.com/gatekit/gatekit/internal/server/middleware"
	"github.com/gatekit/gatekit/internal/service"
	"github.com/gatekit/gatekit/internal/store"
)

// AuthHandler serves the anonymous-to-authenticated flow: signup, login,
// fetch-self, and the stateless logout.
type AuthHandler struct {
	store   *store.Store
	authSvc *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(st *store.Store, authSvc *service.AuthService) *AuthHandler {
	return &AuthHandler{store: st, authSvc: authSvc}
}

type signupRequest struct {
	FullName string `json:"fullName" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// authResponse is the payload for successful signup and login.
type authResponse struct {
	User  map[string]interface{} `json:"user"`
	Token string                 `json:"token"`
}

// Signup registers a new account and returns the public user view plus a
// session token.
// POST /api/auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	req.Email = normalizeEmail(req.Email)
	if !checkRequest(w, req) {
		return
	}

	// Pre-check for the friendly 409. The UNIQUE constraint on email closes
	// the window between this lookup and the insert.
	if _, err := h.store.GetUserByEmail(r.Context(), req.Email); err == nil {
		writeError(w, http.StatusConflict, "Email already in use")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "Signup failed: "+err.Error())
		return
	}

	hash, err := h.authSvc.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Signup failed: "+err.Error())
		return
	}

	user := &model.User{
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: hash,
		Role:         model.RoleUser,
		Status:       model.StatusActive,
	}
	if err := h.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			writeError(w, http.StatusConflict, "Email already in use")
			return
		}
		writeError(w, http.StatusInternalServerError, "Signup failed: "+err.Error())
		return
	}

	token, err := h.authSvc.IssueToken(user.ID, user.Role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to issue token: "+err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{
		User:  user.PublicView(),
		Token: token,
	})
}

// Login authenticates by email and password. Unknown email and wrong
// password produce the same 401 so the endpoint cannot be used to probe for
// registered addresses. Inactive accounts get 403 regardless of password.
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	req.Email = normalizeEmail(req.Email)
	if !checkRequest(w, req) {
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, service.ErrInvalidCredentials.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Login failed: "+err.Error())
		return
	}

	if user.Status == model.StatusInactive {
		writeError(w, http.StatusForbidden, "Account is inactive")
		return
	}

	if !h.authSvc.VerifyPassword(req.Password, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, service.ErrInvalidCredentials.Error())
		return
	}

	now := time.Now().UTC()
	if err := h.store.UpdateLastLogin(r.Context(), user.ID); err == nil {
		user.LastLogin = &now
	}

	token, err := h.authSvc.IssueToken(user.ID, user.Role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to issue token: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		User:  user.PublicView(),
		Token: token,
	})
}

// Me returns the stored record for the authenticated user.
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
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

// Logout always succeeds. Sessions are stateless JWTs, so the only logout
// action is the client discarding its token.
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Logged out successfully",
	})
}
