package middleware

import "net/http"

// ActivitySignaler receives user-activity ticks for idle-session tracking.
type ActivitySignaler interface {
	Touch()
}

// Activity feeds every handled request into the guard's idle watchdog,
// rescheduling the session timeout.
func Activity(signaler ActivitySignaler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			signaler.Touch()
			next.ServeHTTP(w, r)
		})
	}
}
