package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mkowalczyk/authguard/internal/models"
	pkgauth "github.com/mkowalczyk/authguard/pkg/auth"
)

// UserStore is the account storage the provider reads and updates.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// Mailer dispatches password-reset emails on the provider's behalf.
type Mailer interface {
	SendPasswordResetEmail(ctx context.Context, email, redirectTo string) error
}

// Provider is a Postgres-backed identity provider. It verifies credentials
// against the users table, issues signed session tokens, and keeps the
// current session in memory the way a hosted-auth client would.
type Provider struct {
	users  UserStore
	mailer Mailer
	logger *slog.Logger

	secret []byte
	expiry time.Duration

	mu      sync.Mutex
	session *models.Session
}

// NewProvider creates a new Provider
func NewProvider(users UserStore, mailer Mailer, secret string, expiry time.Duration, logger *slog.Logger) *Provider {
	return &Provider{
		users:  users,
		mailer: mailer,
		logger: logger,
		secret: []byte(secret),
		expiry: expiry,
	}
}

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// SignInWithPassword verifies credentials and, on success, issues and stores
// a new session.
func (p *Provider) SignInWithPassword(ctx context.Context, identity, secret string) (*models.Session, error) {
	identity = strings.ToLower(strings.TrimSpace(identity))
	if identity == "" || secret == "" {
		return nil, models.ErrUnauthorized
	}

	user, err := p.users.GetByEmail(ctx, identity)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		p.logger.Error("failed to fetch user for sign-in", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, secret); err != nil {
		return nil, models.ErrUnauthorized
	}

	expiresAt := time.Now().Add(p.expiry)
	claims := sessionClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		p.logger.Error("failed to sign session token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	session := &models.Session{
		Token:     token,
		UserID:    user.ID,
		Email:     user.Email,
		ExpiresAt: expiresAt,
	}

	p.mu.Lock()
	p.session = session
	p.mu.Unlock()

	return session, nil
}

// CurrentSession returns the live session, or nil when none is held. An
// expired or tampered token is an error so callers can fail closed.
func (p *Provider) CurrentSession(ctx context.Context) (*models.Session, error) {
	p.mu.Lock()
	session := p.session
	p.mu.Unlock()

	if session == nil {
		return nil, nil
	}

	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(session.Token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, nil
		}
		return nil, fmt.Errorf("invalid session token: %w", err)
	}

	// Token issued before the password last changed is stale.
	user, err := p.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("session user lookup failed: %w", err)
	}
	if user.PasswordChangedAt != nil && claims.IssuedAt != nil &&
		claims.IssuedAt.Time.Before(*user.PasswordChangedAt) {
		return nil, nil
	}

	return session, nil
}

// SignOut discards the current session.
func (p *Provider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	p.session = nil
	p.mu.Unlock()
	return nil
}

// UpdatePassword replaces the password of the currently signed-in account.
func (p *Provider) UpdatePassword(ctx context.Context, newSecret string) error {
	p.mu.Lock()
	session := p.session
	p.mu.Unlock()

	if session == nil {
		return models.ErrNoActiveSession
	}

	hash, err := pkgauth.HashPassword(newSecret)
	if err != nil {
		return err
	}

	return p.users.UpdatePassword(ctx, session.UserID, hash)
}

// SendPasswordResetEmail dispatches a reset email pointing at redirectTo.
// Whether the account exists is not revealed to the caller: an unknown
// identity is treated as success.
func (p *Provider) SendPasswordResetEmail(ctx context.Context, identity, redirectTo string) error {
	identity = strings.ToLower(strings.TrimSpace(identity))

	_, err := p.users.GetByEmail(ctx, identity)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		return err
	}

	return p.mailer.SendPasswordResetEmail(ctx, identity, redirectTo)
}
