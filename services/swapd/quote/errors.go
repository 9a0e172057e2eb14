package quote

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies provider failures.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindAPI         Kind = "api"
	KindNetwork     Kind = "network"
	KindRateLimited Kind = "rate_limited"
	KindNoRoute     Kind = "no_route"
)

// Error is returned by every Provider operation.
type Error struct {
	Kind       Kind
	Field      string
	Value      string
	Status     int
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindValidation:
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	case KindAPI:
		return fmt.Sprintf("quote api error (%d): %s", e.Status, e.Message)
	case KindNetwork:
		return fmt.Sprintf("network error: %s", e.Message)
	case KindRateLimited:
		return "rate limited, try again later"
	case KindNoRoute:
		return fmt.Sprintf("no swap route found: %s", e.Message)
	default:
		return e.Message
	}
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of a provider error or "" for other errors.
func KindOf(err error) Kind {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Kind
	}
	return ""
}

func validationError(field, value, reason string) *Error {
	return &Error{Kind: KindValidation, Field: field, Value: value, Message: reason}
}
