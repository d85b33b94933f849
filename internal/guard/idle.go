package guard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mkowalczyk/authguard/internal/models"
)

// watchdog terminates idle sessions. A single shared timer is rescheduled by
// every activity signal; when it fires with a live session, the session is
// signed out and one session_timeout event written.
type watchdog struct {
	guard   *Guard
	timeout time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// StartIdleWatchdog arms the idle timer and begins watching for expiry.
// It returns immediately; the watchdog stops when ctx is cancelled. Calling
// it more than once is a no-op after the first.
func (g *Guard) StartIdleWatchdog(ctx context.Context) {
	g.mu.Lock()
	if g.idle != nil {
		g.mu.Unlock()
		return
	}
	w := &watchdog{
		guard:   g,
		timeout: g.config.SessionTimeout,
		timer:   time.NewTimer(g.config.SessionTimeout),
	}
	g.idle = w
	g.mu.Unlock()

	go w.run(ctx)
}

// Touch registers a user-activity signal, rescheduling the idle timer to a
// full timeout from now. Safe to call from any goroutine; a no-op before the
// watchdog is started.
func (g *Guard) Touch() {
	g.mu.Lock()
	w := g.idle
	g.mu.Unlock()
	if w == nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.timer.Stop() {
		select {
		case <-w.timer.C:
		default:
		}
	}
	w.timer.Reset(w.timeout)
}

func (w *watchdog) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			w.timer.Stop()
			w.mu.Unlock()
			return
		case <-w.timer.C:
			w.expire(ctx)
			w.mu.Lock()
			w.timer.Reset(w.timeout)
			w.mu.Unlock()
		}
	}
}

// expire handles one idle-timeout firing. Nothing happens unless the
// identity provider still holds a live session.
func (w *watchdog) expire(ctx context.Context) {
	g := w.guard

	session, err := g.provider.CurrentSession(ctx)
	if err != nil {
		g.logger.Warn("idle check: session query failed", slog.Any("error", err))
		return
	}
	if session == nil {
		return
	}

	g.logger.Info("session expired after inactivity",
		slog.String("user_id", session.UserID),
		slog.Duration("timeout", w.timeout))

	g.Logout(ctx, LogoutInfo{Reason: models.EventSessionTimeout})

	if g.config.OnSessionExpired != nil {
		g.config.OnSessionExpired()
	}
}
