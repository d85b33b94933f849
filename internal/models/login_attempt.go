package models

import "time"

// LoginAttempt is a single login attempt observed by the guard. Attempts live
// only in memory, keyed by client address; they age out of throttling
// decisions once older than the attempt window.
type LoginAttempt struct {
	Address     string
	Identity    string
	AttemptTime time.Time
	Success     bool
}
