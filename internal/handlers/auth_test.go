package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkowalczyk/authguard/internal/guard"
	"github.com/mkowalczyk/authguard/internal/models"
)

type fakeGuard struct {
	loginSession *models.Session
	loginErr     error
	loginReqs    []guard.LoginRequest

	logoutInfos []guard.LogoutInfo

	resetErr        error
	resetIdentities []string

	authenticated bool
	touches       int
}

func (f *fakeGuard) Login(ctx context.Context, req guard.LoginRequest) (*models.Session, error) {
	f.loginReqs = append(f.loginReqs, req)
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.loginSession, nil
}

func (f *fakeGuard) Logout(ctx context.Context, info guard.LogoutInfo) {
	f.logoutInfos = append(f.logoutInfos, info)
}

func (f *fakeGuard) ResetPassword(ctx context.Context, identity, address, userAgent string) error {
	if f.resetErr != nil {
		return f.resetErr
	}
	f.resetIdentities = append(f.resetIdentities, identity)
	return nil
}

func (f *fakeGuard) IsAuthenticated(ctx context.Context) bool { return f.authenticated }

func (f *fakeGuard) Touch() { f.touches++ }

type fakeAccounts struct {
	updateErr   error
	newPassword string
}

func (f *fakeAccounts) UpdatePassword(ctx context.Context, newSecret string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.newPassword = newSecret
	return nil
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	return nil
}

func TestLoginHandler(t *testing.T) {
	g := &fakeGuard{loginSession: &models.Session{
		Token:     "token-123",
		UserID:    "user-1",
		Email:     "a@b.com",
		ExpiresAt: time.Now().Add(time.Hour),
	}}
	h := NewAuthHandler(g, &fakeAccounts{}, "development")

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"A@B.com","password":"Sup3r$ecret123"}`))
	req.RemoteAddr = "1.2.3.4:5678"
	req.Header.Set("User-Agent", "test-agent")
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	// Email is normalized, address stripped of port
	require.Len(t, g.loginReqs, 1)
	assert.Equal(t, "a@b.com", g.loginReqs[0].Identity)
	assert.Equal(t, "1.2.3.4", g.loginReqs[0].Address)
	assert.Equal(t, "test-agent", g.loginReqs[0].UserAgent)

	cookie := sessionCookie(t, rec)
	require.NotNil(t, cookie)
	assert.Equal(t, "token-123", cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.False(t, cookie.Secure, "secure flag stays off outside production")
}

func TestLoginHandlerThrottled(t *testing.T) {
	g := &fakeGuard{loginErr: models.ErrThrottled}
	h := NewAuthHandler(g, &fakeAccounts{}, "development")

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"a@b.com","password":"wrong"}`))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "rate_limit_exceeded", resp["error"])
	assert.Contains(t, resp["message"], "15 minutes")
	assert.Nil(t, sessionCookie(t, rec))
}

func TestLoginHandlerInvalidCredentials(t *testing.T) {
	g := &fakeGuard{loginErr: models.ErrInvalidCredentials}
	h := NewAuthHandler(g, &fakeAccounts{}, "development")

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"a@b.com","password":"wrong"}`))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Invalid credentials", resp["message"])
}

func TestLoginHandlerRejectsBadBody(t *testing.T) {
	g := &fakeGuard{}
	h := NewAuthHandler(g, &fakeAccounts{}, "development")

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{`},
		{"missing password", `{"email":"a@b.com"}`},
		{"bad email", `{"email":"not-an-email","password":"x"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()

			h.Login(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.Empty(t, g.loginReqs, "invalid requests must not reach the guard")
}

func TestLogoutHandler(t *testing.T) {
	g := &fakeGuard{}
	h := NewAuthHandler(g, &fakeAccounts{}, "development")

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.RemoteAddr = "1.2.3.4:5678"
	rec := httptest.NewRecorder()

	h.Logout(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)

	require.Len(t, g.logoutInfos, 1)
	assert.Equal(t, models.EventLogout, g.logoutInfos[0].Reason)
	assert.Equal(t, "1.2.3.4", g.logoutInfos[0].Address)

	cookie := sessionCookie(t, rec)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Negative(t, cookie.MaxAge)
}

func TestResetPasswordHandlerResponseIsUniform(t *testing.T) {
	g := &fakeGuard{}
	h := NewAuthHandler(g, &fakeAccounts{}, "development")

	req := httptest.NewRequest(http.MethodPost, "/auth/password-reset",
		strings.NewReader(`{"email":"Nobody@Example.com"}`))
	rec := httptest.NewRecorder()

	h.ResetPassword(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"nobody@example.com"}, g.resetIdentities)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp["message"], "If the address is registered")
}

func TestResetPasswordHandlerFailure(t *testing.T) {
	g := &fakeGuard{resetErr: models.ErrResetFailed}
	h := NewAuthHandler(g, &fakeAccounts{}, "development")

	req := httptest.NewRequest(http.MethodPost, "/auth/password-reset",
		strings.NewReader(`{"email":"a@b.com"}`))
	rec := httptest.NewRecorder()

	h.ResetPassword(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestChangePasswordRequiresAuthentication(t *testing.T) {
	g := &fakeGuard{authenticated: false}
	h := NewAuthHandler(g, &fakeAccounts{}, "development")

	req := httptest.NewRequest(http.MethodPost, "/auth/password",
		strings.NewReader(`{"new_password":"Sup3r$ecret123"}`))
	rec := httptest.NewRecorder()

	h.ChangePassword(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChangePasswordRejectsWeakPassword(t *testing.T) {
	g := &fakeGuard{authenticated: true}
	accounts := &fakeAccounts{}
	h := NewAuthHandler(g, accounts, "development")

	req := httptest.NewRequest(http.MethodPost, "/auth/password",
		strings.NewReader(`{"new_password":"abc"}`))
	rec := httptest.NewRecorder()

	h.ChangePassword(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Error      string   `json:"error"`
		Violations []string `json:"violations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "weak_password", resp.Error)
	assert.Len(t, resp.Violations, 4)
	assert.Empty(t, accounts.newPassword)
}

func TestChangePassword(t *testing.T) {
	g := &fakeGuard{authenticated: true}
	accounts := &fakeAccounts{}
	h := NewAuthHandler(g, accounts, "development")

	req := httptest.NewRequest(http.MethodPost, "/auth/password",
		strings.NewReader(`{"new_password":"Sup3r$ecret123"}`))
	rec := httptest.NewRecorder()

	h.ChangePassword(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "Sup3r$ecret123", accounts.newPassword)
}

func TestSessionHandler(t *testing.T) {
	g := &fakeGuard{authenticated: true}
	h := NewAuthHandler(g, &fakeAccounts{}, "development")

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	rec := httptest.NewRecorder()

	h.Session(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Authenticated)
}

func TestClientAddress(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{"1.2.3.4:5678", "1.2.3.4"},
		{"1.2.3.4", "1.2.3.4"},
		{"[::1]:8080", "::1"},
	}

	for _, tc := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tc.remote
		assert.Equal(t, tc.want, clientAddress(req), "remote %q", tc.remote)
	}
}
