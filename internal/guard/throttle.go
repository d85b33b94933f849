package guard

import (
	"context"
	"log/slog"
	"time"

	"github.com/mkowalczyk/authguard/internal/models"
	pkglogger "github.com/mkowalczyk/authguard/pkg/logger"
)

// IsBlocked reports whether an address is on the block list.
func (g *Guard) IsBlocked(address string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, blocked := g.blocked[address]
	return blocked
}

// CanAttempt reports whether an address may present credentials. A blocked
// address is rejected outright; otherwise the address's history is pruned to
// the attempt window and the failed count compared against the threshold.
func (g *Guard) CanAttempt(address string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, blocked := g.blocked[address]; blocked {
		return false
	}

	g.pruneLocked(address, g.now())
	return g.failedCountLocked(address) < g.config.MaxFailedAttempts
}

// RecordAttempt appends a login attempt for an address and writes the
// corresponding audit event. A failure that brings the address to the
// threshold blocks it: the set is persisted and an out-of-band alert fired.
// Successes never clear earlier failures; only the window ages them out.
func (g *Guard) RecordAttempt(ctx context.Context, address string, success bool, identity, userAgent string) {
	now := g.now()

	g.mu.Lock()
	g.pruneLocked(address, now)
	g.attempts[address] = append(g.attempts[address], models.LoginAttempt{
		Address:     address,
		Identity:    identity,
		AttemptTime: now,
		Success:     success,
	})

	crossedThreshold := false
	if !success {
		if _, blocked := g.blocked[address]; !blocked && g.failedCountLocked(address) >= g.config.MaxFailedAttempts {
			g.blocked[address] = struct{}{}
			crossedThreshold = true
		}
	}
	blockedNow := g.snapshotBlockedLocked()
	g.mu.Unlock()

	eventType := models.EventLoginFailure
	if success {
		eventType = models.EventLoginSuccess
	}
	g.writeEvent(ctx, eventType, address, userAgent, identity, "")
	g.audit.LogAuthEvent(pkglogger.AuditEvent{
		EventType: eventType,
		Address:   address,
		UserAgent: userAgent,
		Identity:  identity,
		Success:   success,
	})

	if crossedThreshold {
		g.blockAddress(ctx, address, userAgent, identity, blockedNow)
	}
}

// blockAddress persists the updated block list and fires the security alert.
// Both are best-effort; the in-memory block decision already stands.
func (g *Guard) blockAddress(ctx context.Context, address, userAgent, identity string, blocked []string) {
	g.logger.Warn("address blocked after repeated login failures",
		slog.String("address", address),
		slog.Int("max_failed_attempts", g.config.MaxFailedAttempts))

	if g.blocks != nil {
		if err := g.blocks.Save(ctx, blocked); err != nil {
			g.logger.Error("failed to persist blocked address list", slog.Any("error", err))
		}
	}

	g.writeEvent(ctx, models.EventAddressBlocked, address, userAgent, identity, "failed attempt threshold reached")

	if g.alerts != nil {
		alert := Alert{
			Type:    models.EventAddressBlocked,
			Address: address,
			Details: "failed login attempt threshold reached",
			Time:    g.now().UTC(),
		}
		if err := g.alerts.Notify(ctx, alert); err != nil {
			g.logger.Error("failed to deliver security alert", slog.Any("error", err))
		}
	}
}

// BlockedAddresses returns a copy of the current block list.
func (g *Guard) BlockedAddresses() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotBlockedLocked()
}

// Unblock removes an address from the block list and persists the change.
// Blocking has no automatic expiry, so this is the only way out.
func (g *Guard) Unblock(ctx context.Context, address string) error {
	g.mu.Lock()
	if _, blocked := g.blocked[address]; !blocked {
		g.mu.Unlock()
		return models.ErrNotFound
	}
	delete(g.blocked, address)
	delete(g.attempts, address)
	blocked := g.snapshotBlockedLocked()
	g.mu.Unlock()

	if g.blocks != nil {
		if err := g.blocks.Save(ctx, blocked); err != nil {
			g.logger.Error("failed to persist blocked address list", slog.Any("error", err))
			return err
		}
	}

	g.logger.Info("address unblocked", slog.String("address", address))
	return nil
}

// PruneStale drops attempt histories that fall entirely outside the attempt
// window and returns the number of addresses removed. Pruning is otherwise
// lazy; this keeps the map from accumulating one entry per address seen.
func (g *Guard) PruneStale() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	removed := 0
	for address := range g.attempts {
		g.pruneLocked(address, now)
		if len(g.attempts[address]) == 0 {
			delete(g.attempts, address)
			removed++
		}
	}
	return removed
}

// pruneLocked drops entries strictly older than the attempt window. Order is
// preserved; entries are appended in call order and only aged from the front.
func (g *Guard) pruneLocked(address string, now time.Time) {
	cutoff := now.Add(-g.config.AttemptWindow)
	history := g.attempts[address]

	kept := history[:0]
	for _, attempt := range history {
		if attempt.AttemptTime.After(cutoff) {
			kept = append(kept, attempt)
		}
	}
	if len(kept) == 0 {
		delete(g.attempts, address)
		return
	}
	g.attempts[address] = kept
}

func (g *Guard) failedCountLocked(address string) int {
	count := 0
	for _, attempt := range g.attempts[address] {
		if !attempt.Success {
			count++
		}
	}
	return count
}

func (g *Guard) snapshotBlockedLocked() []string {
	addresses := make([]string, 0, len(g.blocked))
	for address := range g.blocked {
		addresses = append(addresses, address)
	}
	return addresses
}
