package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mkowalczyk/authguard/internal/database"
	"github.com/mkowalczyk/authguard/internal/models"
)

// SecurityEventRepository persists the security audit trail.
type SecurityEventRepository struct {
	db *database.DB
}

// NewSecurityEventRepository creates a new SecurityEventRepository
func NewSecurityEventRepository(db *database.DB) *SecurityEventRepository {
	return &SecurityEventRepository{db: db}
}

// Insert writes one security event row.
func (r *SecurityEventRepository) Insert(ctx context.Context, event *models.SecurityEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO security_events (id, event_type, address, user_agent, identity, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		event.ID,
		event.EventType,
		event.Address,
		event.UserAgent,
		event.Identity,
		event.Details,
		event.CreatedAt,
	)

	return database.MapPostgresError(err)
}

// ListRecent returns the newest events, newest first.
func (r *SecurityEventRepository) ListRecent(ctx context.Context, limit int) ([]models.SecurityEvent, error) {
	query := `
		SELECT id, event_type, address, user_agent, identity, details, created_at
		FROM security_events
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	defer rows.Close()

	var events []models.SecurityEvent
	for rows.Next() {
		var event models.SecurityEvent
		if err := rows.Scan(
			&event.ID,
			&event.EventType,
			&event.Address,
			&event.UserAgent,
			&event.Identity,
			&event.Details,
			&event.CreatedAt,
		); err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

// CountByTypeSince returns the number of events of one type recorded at or
// after the given instant.
func (r *SecurityEventRepository) CountByTypeSince(ctx context.Context, eventType string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM security_events
		WHERE event_type = $1 AND created_at >= $2
	`

	var count int
	err := r.db.Pool.QueryRow(ctx, query, eventType, since).Scan(&count)
	return count, database.MapPostgresError(err)
}
