package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/mkowalczyk/authguard/internal/guard"
	"github.com/mkowalczyk/authguard/internal/models"
	pkghttp "github.com/mkowalczyk/authguard/pkg/http"
)

const sessionCookieName = "authguard_session"

// SecurityGuard is the guard surface the auth handlers need.
type SecurityGuard interface {
	Login(ctx context.Context, req guard.LoginRequest) (*models.Session, error)
	Logout(ctx context.Context, info guard.LogoutInfo)
	ResetPassword(ctx context.Context, identity, address, userAgent string) error
	IsAuthenticated(ctx context.Context) bool
	Touch()
}

// PasswordChanger updates the signed-in account's password.
type PasswordChanger interface {
	UpdatePassword(ctx context.Context, newSecret string) error
}

// AuthHandler handles authentication HTTP requests through the security
// guard.
type AuthHandler struct {
	guard    SecurityGuard
	accounts PasswordChanger
	secure   bool
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(g SecurityGuard, accounts PasswordChanger, env string) *AuthHandler {
	return &AuthHandler{
		guard:    g,
		accounts: accounts,
		secure:   env == "production",
	}
}

// Request DTOs

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ResetPasswordRequest represents the request body for a reset email
type ResetPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ChangePasswordRequest represents the request body for a password change
type ChangePasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required"`
}

// SessionResponse reports whether a live session exists
type SessionResponse struct {
	Authenticated bool `json:"authenticated"`
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	session, err := h.guard.Login(r.Context(), guard.LoginRequest{
		Identity:  req.Email,
		Secret:    req.Password,
		Address:   clientAddress(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		switch {
		case errors.Is(err, models.ErrThrottled):
			pkghttp.WriteTooManyRequests(w, err.Error())
		default:
			pkghttp.WriteUnauthorized(w, "Invalid credentials")
		}
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
	})

	pkghttp.WriteJSON(w, http.StatusOK, map[string]any{
		"user_id":    session.UserID,
		"email":      session.Email,
		"expires_at": session.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Logout handles POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.guard.Logout(r.Context(), guard.LogoutInfo{
		Reason:    models.EventLogout,
		Address:   clientAddress(r),
		UserAgent: r.UserAgent(),
	})

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
	})

	w.WriteHeader(http.StatusNoContent)
}

// ResetPassword handles POST /auth/password-reset
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if err := h.guard.ResetPassword(r.Context(), req.Email, clientAddress(r), r.UserAgent()); err != nil {
		pkghttp.WriteInternalError(w, models.ErrResetFailed.Error())
		return
	}

	// Same response whether or not the account exists
	pkghttp.WriteJSON(w, http.StatusAccepted, map[string]string{
		"message": "If the address is registered, a reset email has been sent",
	})
}

// ChangePassword handles POST /auth/password, for signed-in users. The new
// password must satisfy the strength policy; each unmet rule is returned.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	if !h.guard.IsAuthenticated(r.Context()) {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if result := guard.ValidatePassword(req.NewPassword); !result.Valid {
		pkghttp.WriteJSON(w, http.StatusBadRequest, map[string]any{
			"error":      "weak_password",
			"violations": result.Violations,
		})
		return
	}

	if err := h.accounts.UpdatePassword(r.Context(), req.NewPassword); err != nil {
		if errors.Is(err, models.ErrNoActiveSession) {
			pkghttp.WriteUnauthorized(w, "Authentication required")
			return
		}
		pkghttp.WriteInternalError(w, "Failed to update password")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Session handles GET /auth/session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	pkghttp.WriteJSON(w, http.StatusOK, SessionResponse{
		Authenticated: h.guard.IsAuthenticated(r.Context()),
	})
}

// clientAddress extracts the throttling key for a request. chi's RealIP
// middleware has already folded proxy headers into RemoteAddr.
func clientAddress(r *http.Request) string {
	addr := r.RemoteAddr
	if i := strings.LastIndex(addr, ":"); i > 0 && !strings.HasSuffix(addr, "]") {
		host := addr[:i]
		host = strings.TrimPrefix(host, "[")
		host = strings.TrimSuffix(host, "]")
		return host
	}
	return addr
}
