// Package validate holds the pure input checks applied before anything is
// persisted or sent upstream.
package validate

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

// MaxMessageLength bounds a single chat message.
const MaxMessageLength = 4000

var (
	emailRe    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]{3,30}$`)
)

var (
	ErrEmailInvalid    = errors.New("invalid email address")
	ErrUsernameInvalid = errors.New("username must be 3-30 characters, letters, digits and underscores only")
	ErrPasswordLength  = errors.New("password must be at least 8 characters")
	ErrPasswordLetter  = errors.New("password must contain at least one letter")
	ErrPasswordDigit   = errors.New("password must contain at least one digit")
)

func Email(email string) error {
	if !emailRe.MatchString(email) {
		return ErrEmailInvalid
	}
	return nil
}

func Username(username string) error {
	if !usernameRe.MatchString(username) {
		return ErrUsernameInvalid
	}
	return nil
}

// Password returns the specific rule the candidate fails first.
func Password(password string) error {
	if len(password) < 8 {
		return ErrPasswordLength
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter {
		return ErrPasswordLetter
	}
	if !hasDigit {
		return ErrPasswordDigit
	}
	return nil
}

// Text trims surrounding whitespace and hard-truncates to max runes.
func Text(s string, max int) string {
	s = strings.TrimSpace(s)
	if max > 0 {
		if runes := []rune(s); len(runes) > max {
			s = string(runes[:max])
		}
	}
	return s
}
