package passphrase

import (
	"errors"
	"io"
	"testing"
)

func testSource(env map[string]string, tty bool, typed string) *Source {
	s := NewSource("ADMIN_JWT_SECRET", "admin secret", 8)
	s.lookup = func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
	s.isTerminal = func() bool { return tty }
	s.read = func() ([]byte, error) { return []byte(typed), nil }
	s.prompt = io.Discard
	return s
}

func TestSourcePrefersEnvironment(t *testing.T) {
	s := testSource(map[string]string{"ADMIN_JWT_SECRET": "from-env-123"}, true, "typed-secret")
	got, err := s.Get()
	if err != nil || got != "from-env-123" {
		t.Fatalf("expected env secret, got %q, %v", got, err)
	}
}

func TestSourcePromptsOnTerminal(t *testing.T) {
	s := testSource(nil, true, "typed-secret")
	got, err := s.Get()
	if err != nil || got != "typed-secret" {
		t.Fatalf("expected typed secret, got %q, %v", got, err)
	}
	s.read = func() ([]byte, error) { t.Fatalf("value must be cached"); return nil, nil }
	if again, _ := s.Get(); again != got {
		t.Fatalf("cached value changed")
	}
}

func TestSourceErrors(t *testing.T) {
	if _, err := testSource(nil, false, "").Get(); !errors.Is(err, ErrNoTerminal) {
		t.Fatalf("expected ErrNoTerminal, got %v", err)
	}
	if _, err := testSource(map[string]string{"ADMIN_JWT_SECRET": "  "}, true, "").Get(); err == nil {
		t.Fatalf("expected blank env value to be rejected")
	}
	if _, err := testSource(nil, true, "short").Get(); err == nil {
		t.Fatalf("expected short secret to be rejected")
	}
}
