package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizedEmail(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"user@example.com", "u***@*******.com"},
		{"a@b.co", "a@*.co"},
		{"not-an-email", "[invalid-email]"},
		{"", "[invalid-email]"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, SanitizedEmail(tc.email), "email %q", tc.email)
	}
}

func TestSanitizeQueryString(t *testing.T) {
	assert.True(t, SanitizeQueryString("email=a%40b.com"))
	assert.True(t, SanitizeQueryString("reset_TOKEN=abc"))
	assert.True(t, SanitizeQueryString("password=hunter2"))
	assert.False(t, SanitizeQueryString("limit=100&offset=0"))
	assert.False(t, SanitizeQueryString(""))
}
