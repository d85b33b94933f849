package models

import (
	"time"

	"github.com/google/uuid"
)

// Security event types recorded in the audit trail.
const (
	EventLoginAttempt   = "login_attempt"
	EventLoginSuccess   = "login_success"
	EventLoginFailure   = "login_failure"
	EventLogout         = "logout"
	EventSessionTimeout = "session_timeout"
	EventPasswordReset  = "password_reset"
	EventAddressBlocked = "address_blocked"
)

// SecurityEvent is one entry in the security audit trail.
type SecurityEvent struct {
	ID        uuid.UUID `db:"id"`
	EventType string    `db:"event_type"`
	Address   string    `db:"address"`
	UserAgent string    `db:"user_agent"`
	Identity  string    `db:"identity"`
	Details   string    `db:"details"`
	CreatedAt time.Time `db:"created_at"`
}
