package anki

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDuplicateNote indicates the store already holds an equivalent note
// within the configured deck. It is never retried.
var ErrDuplicateNote = errors.New("anki: duplicate note")

// StoreError is an error reported inside the AnkiConnect response envelope.
// It is retryable unless classified as a duplicate.
type StoreError struct {
	Action  string
	Message string
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("anki: %s: %s", e.Action, e.Message)
}

// MalformedResponseError indicates a response that could not be decoded as an
// AnkiConnect envelope. It is not retried.
type MalformedResponseError struct {
	Action string
	Cause  error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("anki: %s: malformed response: %v", e.Action, e.Cause)
}

func (e *MalformedResponseError) Unwrap() error { return e.Cause }

// classify maps a raw envelope error message onto the closed error set.
// AnkiConnect signals duplicates with "cannot create note because it is a
// duplicate".
func classify(action, message string) error {
	if strings.Contains(strings.ToLower(message), "duplicate") {
		return ErrDuplicateNote
	}
	return &StoreError{Action: action, Message: message}
}
