package models

import "time"

// User is an account row for the Postgres identity provider.
type User struct {
	ID                string     `db:"id"`
	Email             string     `db:"email"`
	PasswordHash      string     `db:"password_hash"`
	Name              string     `db:"name"`
	Role              string     `db:"role"`
	PasswordChangedAt *time.Time `db:"password_changed_at"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`
}

// Session is an authenticated session issued by the identity provider.
type Session struct {
	Token     string
	UserID    string
	Email     string
	ExpiresAt time.Time
}
