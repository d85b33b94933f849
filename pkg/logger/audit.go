package logger

import (
	"context"
	"log/slog"
	"time"
)

// AuditEvent mirrors a security event into the process log, alongside the
// durable audit trail.
type AuditEvent struct {
	EventType string
	Address   string
	UserAgent string
	Identity  string
	Success   bool
	Details   string
}

// AuditLogger emits structured security audit records.
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// LogAuthEvent logs an authentication-related security event. Failures log
// at warn so they stand out in aggregated logs.
func (al *AuditLogger) LogAuthEvent(event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "auth"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.Address != "" {
		attrs = append(attrs, slog.String("address", event.Address))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}
	if event.Identity != "" {
		attrs = append(attrs, slog.String("identity", SanitizedEmail(event.Identity)))
	}
	if event.Details != "" {
		attrs = append(attrs, slog.String("details", event.Details))
	}

	if event.Success {
		al.logger.LogAttrs(context.Background(), slog.LevelInfo, "audit", attrs...)
	} else {
		al.logger.LogAttrs(context.Background(), slog.LevelWarn, "audit", attrs...)
	}
}
