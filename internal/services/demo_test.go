package services

import (
	"strings"
	"testing"
)

func containsOneOf(t *testing.T, got string, options []string) bool {
	t.Helper()
	for _, opt := range options {
		if got == opt {
			return true
		}
	}
	return false
}

func TestDemoReplyGreeting(t *testing.T) {
	for _, msg := range []string{"hello there", "Hi!", "HEY what's up", "howdy partner"} {
		got := DemoReply(msg)
		if !containsOneOf(t, got, demoGreetings) {
			t.Errorf("DemoReply(%q) = %q, want a greeting reply", msg, got)
		}
	}
}

func TestDemoReplyCoding(t *testing.T) {
	for _, msg := range []string{"help me with python", "my javascript has a bug", "write a function"} {
		got := DemoReply(msg)
		if !containsOneOf(t, got, demoCoding) {
			t.Errorf("DemoReply(%q) = %q, want a coding reply", msg, got)
		}
	}
}

func TestDemoReplyGeneral(t *testing.T) {
	got := DemoReply("what's the weather like?")
	if !containsOneOf(t, got, demoGeneral) {
		t.Errorf("DemoReply(general) = %q, want a general reply", got)
	}
}

func TestGreetingBeatsCoding(t *testing.T) {
	// Greeting tokens are checked first.
	got := DemoReply("hello, I have a python question")
	if !containsOneOf(t, got, demoGreetings) {
		t.Errorf("DemoReply(mixed) = %q, want a greeting reply", got)
	}
}

func TestDemoNews(t *testing.T) {
	got := DemoNews()
	if !containsOneOf(t, got, demoNews) {
		t.Errorf("DemoNews() = %q, want a canned news blurb", got)
	}
	if !strings.Contains(got, "Demo") {
		t.Errorf("DemoNews() = %q, want a demo marker", got)
	}
}
