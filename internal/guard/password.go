package guard

import (
	"fmt"
	"strings"
	"unicode"
)

const minPasswordLength = 12

// passwordSymbols is the accepted special-character set for the symbol rule.
const passwordSymbols = `!@#$%^&*()_+-=[]{};':"\|,.<>/?~`

// PolicyResult reports the outcome of a password policy evaluation.
// Violations are ordered: length, lowercase, uppercase, digit, symbol.
type PolicyResult struct {
	Valid      bool
	Violations []string
}

// ValidatePassword evaluates a candidate password against the strength
// policy. Pure function: no state, no I/O.
func ValidatePassword(candidate string) PolicyResult {
	var violations []string

	if len(candidate) < minPasswordLength {
		violations = append(violations, fmt.Sprintf("must be at least %d characters long", minPasswordLength))
	}

	hasLower := false
	hasUpper := false
	hasDigit := false
	hasSymbol := false
	for _, r := range candidate {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(passwordSymbols, r):
			hasSymbol = true
		}
	}

	if !hasLower {
		violations = append(violations, "must contain at least one lowercase letter")
	}
	if !hasUpper {
		violations = append(violations, "must contain at least one uppercase letter")
	}
	if !hasDigit {
		violations = append(violations, "must contain at least one digit")
	}
	if !hasSymbol {
		violations = append(violations, "must contain at least one special character")
	}

	return PolicyResult{
		Valid:      len(violations) == 0,
		Violations: violations,
	}
}
