package users

import (
	"regexp"
	"unicode"

	"github.com/domperidog/docshare/internal/apperr"
)

const (
	minUsernameLen = 4
	minPasswordLen = 8
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// ValidateUsername checks the length and alphabet of a new username.
func ValidateUsername(name string) error {
	if len(name) < minUsernameLen {
		return apperr.Validation("username must be at least %d characters", minUsernameLen)
	}
	if !usernamePattern.MatchString(name) {
		return apperr.Validation("username may only contain letters, digits, '_', '.' and '-'")
	}
	return nil
}

// ValidatePassword requires a minimum length plus an upper-case letter, a
// lower-case letter and a digit.
func ValidatePassword(pw string) error {
	if len(pw) < minPasswordLen {
		return apperr.Validation("password must be at least %d characters", minPasswordLen)
	}
	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return apperr.Validation("password must contain an upper-case letter, a lower-case letter and a digit")
	}
	return nil
}
