package guard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkowalczyk/authguard/internal/models"
)

func TestCanAttemptBelowThreshold(t *testing.T) {
	fx := newGuardFixture(t, Config{})
	ctx := context.Background()

	for i := 0; i < DefaultMaxFailedAttempts-1; i++ {
		fx.guard.RecordAttempt(ctx, "1.2.3.4", false, "a@b.com", "")
	}

	assert.True(t, fx.guard.CanAttempt("1.2.3.4"))
	assert.False(t, fx.guard.IsBlocked("1.2.3.4"))
}

func TestBlocksAtThreshold(t *testing.T) {
	fx := newGuardFixture(t, Config{})
	ctx := context.Background()

	for i := 0; i < DefaultMaxFailedAttempts; i++ {
		fx.guard.RecordAttempt(ctx, "9.9.9.9", false, "a@b.com", "")
	}

	assert.True(t, fx.guard.IsBlocked("9.9.9.9"))
	assert.False(t, fx.guard.CanAttempt("9.9.9.9"))

	// Block list persisted and alert fired exactly once
	assert.Equal(t, []string{"9.9.9.9"}, fx.blocks.lastSaved())
	assert.Equal(t, 1, fx.alerts.count())
}

func TestSuccessDoesNotResetFailures(t *testing.T) {
	fx := newGuardFixture(t, Config{})
	ctx := context.Background()

	for i := 0; i < DefaultMaxFailedAttempts-1; i++ {
		fx.guard.RecordAttempt(ctx, "1.2.3.4", false, "a@b.com", "")
	}
	fx.guard.RecordAttempt(ctx, "1.2.3.4", true, "a@b.com", "")

	// Four failures still inside the window; one more blocks
	fx.guard.RecordAttempt(ctx, "1.2.3.4", false, "a@b.com", "")

	assert.True(t, fx.guard.IsBlocked("1.2.3.4"))
}

func TestBlockedStaysBlockedAfterSuccesses(t *testing.T) {
	fx := newGuardFixture(t, Config{})
	ctx := context.Background()

	for i := 0; i < DefaultMaxFailedAttempts; i++ {
		fx.guard.RecordAttempt(ctx, "9.9.9.9", false, "a@b.com", "")
	}
	require.True(t, fx.guard.IsBlocked("9.9.9.9"))

	fx.guard.RecordAttempt(ctx, "9.9.9.9", true, "a@b.com", "")
	fx.guard.RecordAttempt(ctx, "9.9.9.9", true, "a@b.com", "")

	assert.True(t, fx.guard.IsBlocked("9.9.9.9"))
	assert.False(t, fx.guard.CanAttempt("9.9.9.9"))
}

func TestOldFailuresAgeOutOfWindow(t *testing.T) {
	fx := newGuardFixture(t, Config{})
	ctx := context.Background()

	base := time.Now()

	// Four failures well outside the window
	fx.guard.now = func() time.Time { return base.Add(-20 * time.Minute) }
	for i := 0; i < 4; i++ {
		fx.guard.RecordAttempt(ctx, "1.2.3.4", false, "a@b.com", "")
	}

	// Four fresh failures: only these count, 4 < 5
	fx.guard.now = func() time.Time { return base }
	for i := 0; i < 4; i++ {
		fx.guard.RecordAttempt(ctx, "1.2.3.4", false, "a@b.com", "")
	}

	assert.False(t, fx.guard.IsBlocked("1.2.3.4"))
	assert.True(t, fx.guard.CanAttempt("1.2.3.4"))

	// The fifth fresh failure blocks
	fx.guard.RecordAttempt(ctx, "1.2.3.4", false, "a@b.com", "")
	assert.True(t, fx.guard.IsBlocked("1.2.3.4"))
}

func TestBlockingIsPerAddressAcrossIdentities(t *testing.T) {
	fx := newGuardFixture(t, Config{})
	ctx := context.Background()

	identities := []string{"a@b.com", "b@b.com", "c@b.com", "d@b.com", "e@b.com"}
	for _, identity := range identities {
		fx.guard.RecordAttempt(ctx, "9.9.9.9", false, identity, "")
	}

	assert.True(t, fx.guard.IsBlocked("9.9.9.9"))
	assert.True(t, fx.guard.CanAttempt("5.5.5.5"))
}

func TestLockoutScenario(t *testing.T) {
	fx := newGuardFixture(t, Config{})
	fx.provider.signInErr = assert.AnError
	ctx := context.Background()

	// Five failed logins inside one minute
	for i := 0; i < 5; i++ {
		_, err := fx.guard.Login(ctx, LoginRequest{
			Identity: "a@b.com",
			Secret:   "wrong",
			Address:  "9.9.9.9",
		})
		require.ErrorIs(t, err, models.ErrInvalidCredentials)
	}

	signInBefore, _ := fx.provider.counts()
	require.Equal(t, 5, signInBefore)

	// Sixth is throttled without touching the provider
	_, err := fx.guard.Login(ctx, LoginRequest{
		Identity: "a@b.com",
		Secret:   "wrong",
		Address:  "9.9.9.9",
	})
	require.ErrorIs(t, err, models.ErrThrottled)

	signInAfter, _ := fx.provider.counts()
	assert.Equal(t, 5, signInAfter)
	assert.Contains(t, fx.blocks.lastSaved(), "9.9.9.9")
}

func TestBlockPersistFailureKeepsInMemoryBlock(t *testing.T) {
	fx := newGuardFixture(t, Config{})
	fx.blocks.saveErr = assert.AnError
	ctx := context.Background()

	for i := 0; i < DefaultMaxFailedAttempts; i++ {
		fx.guard.RecordAttempt(ctx, "9.9.9.9", false, "a@b.com", "")
	}

	assert.True(t, fx.guard.IsBlocked("9.9.9.9"))
}

func TestUnblock(t *testing.T) {
	fx := newGuardFixture(t, Config{})
	ctx := context.Background()

	for i := 0; i < DefaultMaxFailedAttempts; i++ {
		fx.guard.RecordAttempt(ctx, "9.9.9.9", false, "a@b.com", "")
	}
	require.True(t, fx.guard.IsBlocked("9.9.9.9"))

	require.NoError(t, fx.guard.Unblock(ctx, "9.9.9.9"))

	assert.False(t, fx.guard.IsBlocked("9.9.9.9"))
	assert.True(t, fx.guard.CanAttempt("9.9.9.9"))
	assert.Empty(t, fx.blocks.lastSaved())
}

func TestUnblockUnknownAddress(t *testing.T) {
	fx := newGuardFixture(t, Config{})

	err := fx.guard.Unblock(context.Background(), "1.2.3.4")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestBlockedAddressesSnapshot(t *testing.T) {
	fx := newGuardFixture(t, Config{})
	ctx := context.Background()

	for _, address := range []string{"9.9.9.9", "8.8.8.8"} {
		for i := 0; i < DefaultMaxFailedAttempts; i++ {
			fx.guard.RecordAttempt(ctx, address, false, "a@b.com", "")
		}
	}

	addresses := fx.guard.BlockedAddresses()
	assert.ElementsMatch(t, []string{"9.9.9.9", "8.8.8.8"}, addresses)
}

func TestPruneStale(t *testing.T) {
	fx := newGuardFixture(t, Config{})
	ctx := context.Background()

	base := time.Now()
	fx.guard.now = func() time.Time { return base.Add(-20 * time.Minute) }
	fx.guard.RecordAttempt(ctx, "1.2.3.4", false, "a@b.com", "")
	fx.guard.RecordAttempt(ctx, "5.6.7.8", false, "a@b.com", "")

	fx.guard.now = func() time.Time { return base }
	fx.guard.RecordAttempt(ctx, "9.9.9.9", false, "a@b.com", "")

	removed := fx.guard.PruneStale()
	assert.Equal(t, 2, removed)

	// The fresh address keeps its history
	fx.guard.mu.Lock()
	_, ok := fx.guard.attempts["9.9.9.9"]
	fx.guard.mu.Unlock()
	assert.True(t, ok)
}

func TestAttemptsRecordedInOrder(t *testing.T) {
	fx := newGuardFixture(t, Config{})
	ctx := context.Background()

	base := time.Now()
	for i := 0; i < 3; i++ {
		offset := time.Duration(i) * time.Second
		fx.guard.now = func() time.Time { return base.Add(offset) }
		fx.guard.RecordAttempt(ctx, "1.2.3.4", false, "a@b.com", "")
	}

	fx.guard.mu.Lock()
	history := fx.guard.attempts["1.2.3.4"]
	fx.guard.mu.Unlock()

	require.Len(t, history, 3)
	for i := 1; i < len(history); i++ {
		assert.True(t, history[i].AttemptTime.After(history[i-1].AttemptTime))
	}
}
