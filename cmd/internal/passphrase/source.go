package passphrase

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// ErrNoTerminal is returned when the secret is neither in the environment nor
// obtainable from an interactive prompt.
var ErrNoTerminal = errors.New("passphrase: no terminal available")

// Source lazily resolves a secret from an environment variable or by prompting
// the operator. The value is cached after the first successful retrieval.
type Source struct {
	envVar string
	label  string
	minLen int

	// lookup, isTerminal and read are swapped out in tests.
	lookup     func(string) (string, bool)
	isTerminal func() bool
	read       func() ([]byte, error)
	prompt     io.Writer

	once  sync.Once
	value string
	err   error
}

// NewSource constructs a source that checks envVar before interactively
// prompting for label on stderr. Secrets shorter than minLen are rejected.
func NewSource(envVar, label string, minLen int) *Source {
	fd := int(os.Stdin.Fd())
	return &Source{
		envVar:     strings.TrimSpace(envVar),
		label:      label,
		minLen:     minLen,
		lookup:     os.LookupEnv,
		isTerminal: func() bool { return term.IsTerminal(fd) },
		read:       func() ([]byte, error) { return term.ReadPassword(fd) },
		prompt:     os.Stderr,
	}
}

// Get returns the cached secret or resolves it if this is the first call.
func (s *Source) Get() (string, error) {
	s.once.Do(func() {
		s.value, s.err = s.resolve()
	})
	return s.value, s.err
}

func (s *Source) resolve() (string, error) {
	if s.envVar != "" {
		if value, ok := s.lookup(s.envVar); ok {
			if strings.TrimSpace(value) == "" {
				return "", fmt.Errorf("%s is set but empty", s.envVar)
			}
			return s.check(value)
		}
	}

	if !s.isTerminal() {
		if s.envVar != "" {
			return "", fmt.Errorf("%w: set %s or run interactively", ErrNoTerminal, s.envVar)
		}
		return "", ErrNoTerminal
	}

	fmt.Fprintf(s.prompt, "Enter %s: ", s.label)
	bytes, err := s.read()
	fmt.Fprintln(s.prompt)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", s.label, err)
	}
	return s.check(string(bytes))
}

func (s *Source) check(value string) (string, error) {
	if strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("%s cannot be empty", s.label)
	}
	if len(value) < s.minLen {
		return "", fmt.Errorf("%s must be at least %d bytes", s.label, s.minLen)
	}
	return value, nil
}
