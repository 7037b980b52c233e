package handlers

import (
	"encoding/json"
	"net/http"

	"sakuga/internal/middleware"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

// Register creates an account and immediately issues a session.
func (a *App) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Username == "" || req.Password == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "username and password are required")
		return
	}
	if _, err := a.Auth.Register(r.Context(), req.Username, req.Password, req.Email); err != nil {
		a.fail(w, r, err)
		return
	}
	user, session, err := a.Auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, map[string]any{
		"user":      user,
		"token":     session.Token,
		"expiresAt": session.ExpiresAt,
	})
}

// Login verifies credentials and issues a session token.
func (a *App) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	user, session, err := a.Auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"user":      user,
		"token":     session.Token,
		"expiresAt": session.ExpiresAt,
	})
}

// Logout revokes the presented session token.
func (a *App) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.TokenFromRequest(r)
	if token == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "missing token")
		return
	}
	if err := a.Auth.Logout(r.Context(), token); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ChangePassword swaps the account password. Every other session is
// revoked; the response carries a replacement token.
func (a *App) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "current and new password are required")
		return
	}
	if len(req.NewPassword) < 6 {
		a.error(w, http.StatusBadRequest, "bad_request", "new password must be at least 6 characters")
		return
	}
	session, err := a.Auth.ChangePassword(r.Context(), user, req.CurrentPassword, req.NewPassword)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"token":     session.Token,
		"expiresAt": session.ExpiresAt,
	})
}

// Me returns the authenticated account.
func (a *App) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	a.json(w, http.StatusOK, user)
}
