package payment

import (
	"errors"
	"fmt"

	"saldo/internal/core"
)

// Error is a gateway failure. Message is safe to show to the user: it is the
// gateway's own description when one was returned.
type Error struct {
	Op      string
	Status  int // HTTP status, 0 when no response arrived
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Message, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Unwrap exposes core.ErrPaymentFailed and the transport cause, if any.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{core.ErrPaymentFailed}
	}
	return []error{core.ErrPaymentFailed, e.Err}
}

// UserMessage returns the message to surface for err, or "" if err is not a gateway error.
func UserMessage(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Message
	}
	return ""
}
