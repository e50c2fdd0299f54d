package services

import (
	"errors"
	"fmt"

	"luckydraw/internal/models"
)

var (
	// ErrInvalidTransition is reported when an event is not allowed in the
	// current session status. The session is left untouched.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrUnknownPrize is reported when a prize key is not in the prize table.
	ErrUnknownPrize = errors.New("unknown prize")
	// ErrUnknownLocale is reported when a locale cannot be matched.
	ErrUnknownLocale = errors.New("unknown locale")
)

// TransitionError describes a rejected state machine event.
type TransitionError struct {
	From   models.Status
	Event  string
	Reason string
}

func (e *TransitionError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: cannot %s while %s", ErrInvalidTransition, e.Event, e.From)
	}
	return fmt.Sprintf("%s: cannot %s while %s: %s", ErrInvalidTransition, e.Event, e.From, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidTransition.
func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
