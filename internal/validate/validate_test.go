package validate

import (
	"errors"
	"strings"
	"testing"
)

func TestEmail(t *testing.T) {
	valid := []string{"user@example.com", "first.last@sub.domain.org", "a+b@test.co"}
	for _, e := range valid {
		if err := Email(e); err != nil {
			t.Errorf("Email(%q) = %v, want nil", e, err)
		}
	}

	invalid := []string{"", "plainaddress", "@no-local.com", "user@", "user@domain", "user @example.com"}
	for _, e := range invalid {
		if err := Email(e); err == nil {
			t.Errorf("Email(%q) = nil, want error", e)
		}
	}
}

func TestUsername(t *testing.T) {
	valid := []string{"bob", "user_123", strings.Repeat("a", 30)}
	for _, u := range valid {
		if err := Username(u); err != nil {
			t.Errorf("Username(%q) = %v, want nil", u, err)
		}
	}

	invalid := []string{"", "ab", strings.Repeat("a", 31), "has space", "dash-ed", "dot.ted"}
	for _, u := range invalid {
		if err := Username(u); err == nil {
			t.Errorf("Username(%q) = nil, want error", u)
		}
	}
}

func TestPasswordReturnsSpecificReason(t *testing.T) {
	cases := []struct {
		password string
		want     error
	}{
		{"short1", ErrPasswordLength},
		{"12345678", ErrPasswordLetter},
		{"password", ErrPasswordDigit},
		{"passw0rd", nil},
		{"Abcdefg1", nil},
	}
	for _, tc := range cases {
		got := Password(tc.password)
		if !errors.Is(got, tc.want) {
			t.Errorf("Password(%q) = %v, want %v", tc.password, got, tc.want)
		}
	}
}

func TestText(t *testing.T) {
	if got := Text("  hello  ", 100); got != "hello" {
		t.Errorf("Text trim: got %q", got)
	}
	if got := Text("abcdef", 3); got != "abc" {
		t.Errorf("Text truncate: got %q", got)
	}
	if got := Text("  spaced out  ", 6); got != "spaced" {
		t.Errorf("Text trim+truncate: got %q", got)
	}
	if got := Text("", 10); got != "" {
		t.Errorf("Text empty: got %q", got)
	}
}
