package guard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mkowalczyk/authguard/internal/models"
	pkglogger "github.com/mkowalczyk/authguard/pkg/logger"
)

// UnknownAddress is recorded when the client address cannot be resolved.
// All unresolvable clients share this throttling bucket.
const UnknownAddress = "unknown"

// IdentityProvider is the external service that verifies credentials and
// issues sessions. The guard never inspects provider errors beyond
// success/failure; detailed reasons must not leak to callers.
type IdentityProvider interface {
	SignInWithPassword(ctx context.Context, identity, secret string) (*models.Session, error)
	CurrentSession(ctx context.Context) (*models.Session, error)
	SignOut(ctx context.Context) error
	UpdatePassword(ctx context.Context, newSecret string) error
	SendPasswordResetEmail(ctx context.Context, identity, redirectTo string) error
}

// EventStore persists security audit events. Inserts are fire-and-forget:
// a failure is logged and never blocks the operation that produced the event.
type EventStore interface {
	Insert(ctx context.Context, event *models.SecurityEvent) error
}

// AddressResolver resolves the caller's network address when the transport
// layer did not supply one.
type AddressResolver interface {
	Resolve(ctx context.Context) (string, error)
}

// Alert is an out-of-band security notification, fired when an address
// crosses the block threshold.
type Alert struct {
	Type    string
	Address string
	Details string
	Time    time.Time
}

// AlertSink delivers alerts to a remote endpoint, best-effort.
type AlertSink interface {
	Notify(ctx context.Context, alert Alert) error
}

// BlockStore persists the blocked-address set across restarts.
type BlockStore interface {
	Load(ctx context.Context) ([]string, error)
	Save(ctx context.Context, addresses []string) error
}

// Config holds the guard's tunables. Zero values fall back to the defaults
// below.
type Config struct {
	MaxFailedAttempts int           // failures within the window before an address is blocked
	AttemptWindow     time.Duration // sliding window for counting failures
	SessionTimeout    time.Duration // idle period before forced sign-out
	ResetRedirectURL  string        // target of password-reset email links

	// OnSessionExpired is invoked after the idle watchdog signs out an
	// active session, so the host application can surface a notice.
	OnSessionExpired func()
}

const (
	DefaultMaxFailedAttempts = 5
	DefaultAttemptWindow     = 15 * time.Minute
	DefaultSessionTimeout    = 30 * time.Minute
)

func (c *Config) applyDefaults() {
	if c.MaxFailedAttempts <= 0 {
		c.MaxFailedAttempts = DefaultMaxFailedAttempts
	}
	if c.AttemptWindow <= 0 {
		c.AttemptWindow = DefaultAttemptWindow
	}
	if c.SessionTimeout <= 0 {
		c.SessionTimeout = DefaultSessionTimeout
	}
}

// Guard is the single authority for authentication-adjacent security
// decisions: password policy, per-address attempt throttling, the durable
// block list, the security audit trail, and idle-session termination.
//
// All mutable state is owned by the guard and protected by mu; collaborators
// are injected so tests can substitute fakes.
type Guard struct {
	provider IdentityProvider
	events   EventStore
	resolver AddressResolver
	alerts   AlertSink
	blocks   BlockStore

	config Config
	logger *slog.Logger
	audit  *pkglogger.AuditLogger

	mu       sync.Mutex
	attempts map[string][]models.LoginAttempt
	blocked  map[string]struct{}

	idle *watchdog

	now func() time.Time
}

// New constructs a Guard and reloads the persisted block list. A block-list
// load failure is not fatal: the guard starts with an empty set and logs the
// error.
func New(
	provider IdentityProvider,
	events EventStore,
	resolver AddressResolver,
	alerts AlertSink,
	blocks BlockStore,
	config Config,
	logger *slog.Logger,
) *Guard {
	config.applyDefaults()

	g := &Guard{
		provider: provider,
		events:   events,
		resolver: resolver,
		alerts:   alerts,
		blocks:   blocks,
		config:   config,
		logger:   logger,
		audit:    pkglogger.NewAuditLogger(logger),
		attempts: make(map[string][]models.LoginAttempt),
		blocked:  make(map[string]struct{}),
		now:      time.Now,
	}

	if blocks != nil {
		addresses, err := blocks.Load(context.Background())
		if err != nil {
			logger.Error("failed to load blocked address list", slog.Any("error", err))
		} else {
			for _, addr := range addresses {
				g.blocked[addr] = struct{}{}
			}
		}
	}

	return g
}

// LoginRequest carries one credential presentation plus the request metadata
// recorded in the audit trail. Address may be left empty; the guard then
// consults its resolver and falls back to UnknownAddress.
type LoginRequest struct {
	Identity  string
	Secret    string
	Address   string
	UserAgent string
}

// Login enforces throttling, delegates credential verification to the
// identity provider, and records the outcome. The only errors returned are
// models.ErrThrottled and models.ErrInvalidCredentials; provider failures are
// normalized so account existence cannot be probed.
func (g *Guard) Login(ctx context.Context, req LoginRequest) (*models.Session, error) {
	address := g.resolveAddress(ctx, req.Address)

	if !g.CanAttempt(address) {
		g.logger.Warn("login rejected: address throttled", slog.String("address", address))
		g.writeEvent(ctx, models.EventLoginAttempt, address, req.UserAgent, req.Identity, "rejected: throttled")
		return nil, models.ErrThrottled
	}

	session, err := g.provider.SignInWithPassword(ctx, req.Identity, req.Secret)
	if err != nil {
		g.RecordAttempt(ctx, address, false, req.Identity, req.UserAgent)
		return nil, models.ErrInvalidCredentials
	}
	if session == nil {
		// Provider reported success without a session. Treat as a failure
		// but do not count it against the address.
		g.logger.Error("identity provider returned success with no session",
			slog.String("identity", pkglogger.SanitizedEmail(req.Identity)))
		return nil, models.ErrInvalidCredentials
	}

	g.RecordAttempt(ctx, address, true, req.Identity, req.UserAgent)
	return session, nil
}

// LogoutInfo tags a sign-out with request metadata for the audit trail.
type LogoutInfo struct {
	Reason    string // models.EventLogout or models.EventSessionTimeout
	Address   string
	UserAgent string
}

// Logout signs the current session out. Best-effort: provider failures are
// logged and swallowed, the audit event is written either way.
func (g *Guard) Logout(ctx context.Context, info LogoutInfo) {
	if err := g.provider.SignOut(ctx); err != nil {
		g.logger.Error("sign-out failed", slog.Any("error", err))
	}

	eventType := info.Reason
	if eventType != models.EventSessionTimeout {
		eventType = models.EventLogout
	}

	address := g.resolveAddress(ctx, info.Address)
	g.writeEvent(ctx, eventType, address, info.UserAgent, "", "")
	g.audit.LogAuthEvent(pkglogger.AuditEvent{
		EventType: eventType,
		Address:   address,
		UserAgent: info.UserAgent,
		Success:   true,
	})
}

// ResetPassword asks the identity provider to dispatch a password-reset
// email pointing at the configured in-app reset route. Failures are reduced
// to a generic error.
func (g *Guard) ResetPassword(ctx context.Context, identity, address, userAgent string) error {
	err := g.provider.SendPasswordResetEmail(ctx, identity, g.config.ResetRedirectURL)
	if err != nil {
		g.logger.Error("password reset dispatch failed",
			slog.String("identity", pkglogger.SanitizedEmail(identity)),
			slog.Any("error", err))
		return models.ErrResetFailed
	}

	g.writeEvent(ctx, models.EventPasswordReset, g.resolveAddress(ctx, address), userAgent, identity, "")
	return nil
}

// IsAuthenticated reports whether the identity provider holds a live
// session. Fail-closed: any error on the query forces a sign-out to purge
// stale session state and reports false.
func (g *Guard) IsAuthenticated(ctx context.Context) bool {
	session, err := g.provider.CurrentSession(ctx)
	if err != nil {
		g.logger.Warn("session query failed, forcing sign-out", slog.Any("error", err))
		if signOutErr := g.provider.SignOut(ctx); signOutErr != nil {
			g.logger.Error("forced sign-out failed", slog.Any("error", signOutErr))
		}
		return false
	}
	return session != nil
}

// resolveAddress prefers the transport-supplied address, then the resolver,
// then the shared UnknownAddress bucket.
func (g *Guard) resolveAddress(ctx context.Context, supplied string) string {
	if supplied != "" {
		return supplied
	}
	if g.resolver == nil {
		return UnknownAddress
	}
	address, err := g.resolver.Resolve(ctx)
	if err != nil || address == "" {
		if err != nil {
			g.logger.Warn("address resolution failed", slog.Any("error", err))
		}
		return UnknownAddress
	}
	return address
}

// writeEvent persists an audit event, logging but never propagating store
// failures.
func (g *Guard) writeEvent(ctx context.Context, eventType, address, userAgent, identity, details string) {
	if g.events == nil {
		return
	}
	event := &models.SecurityEvent{
		EventType: eventType,
		Address:   address,
		UserAgent: userAgent,
		Identity:  identity,
		Details:   details,
		CreatedAt: g.now().UTC(),
	}
	if err := g.events.Insert(ctx, event); err != nil {
		g.logger.Error("failed to persist security event",
			slog.String("event_type", eventType),
			slog.Any("error", err))
	}
}
