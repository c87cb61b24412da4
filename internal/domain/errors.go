package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every typed error below unwraps to exactly one of these.
var (
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	ErrPermission = errors.New("permission denied")
	ErrNotFound   = errors.New("not found")
	ErrStorage    = errors.New("storage failure")
	ErrFanout     = errors.New("fanout failure")
)

var (
	ErrNotMember = errors.New("user not member")
	ErrNotAdmin  = errors.New("user not admin")
	ErrNotSender = errors.New("user not sender")

	ErrEmptyMessage    = errors.New("empty message")
	ErrMessageTooLarge = errors.New("message too large")
)

type ValidationError struct {
	Field  string
	Reason string
	Values []string
}

func NewValidationError(field, reason string, values ...string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason, Values: values}
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("validation: ")
	if e.Field != "" {
		b.WriteString(e.Field)
		b.WriteString(": ")
	}
	b.WriteString(e.Reason)
	if len(e.Values) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(e.Values, ", "))
		b.WriteString("]")
	}
	return b.String()
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ConflictError is returned when a private conversation already exists for the pair.
type ConflictError struct {
	ConversationID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: private conversation already exists: %s", e.ConversationID)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

type PermissionError struct {
	Action string
	Reason error
}

func NewPermissionError(action string, reason error) *PermissionError {
	return &PermissionError{Action: action, Reason: reason}
}

func (e *PermissionError) Error() string {
	if e.Reason == nil {
		return "permission denied: " + e.Action
	}
	return fmt.Sprintf("permission denied: %s: %v", e.Action, e.Reason)
}

func (e *PermissionError) Unwrap() []error {
	if e.Reason == nil {
		return []error{ErrPermission}
	}
	return []error{ErrPermission, e.Reason}
}

const (
	ResourceConversation = "conversation"
	ResourceMessage      = "message"
	ResourceAttachment   = "attachment"
	ResourceUser         = "user"
	ResourceMember       = "member"
)

type NotFoundError struct {
	Resource string
	ID       string
}

func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// StorageError wraps a failure of the attachment byte store.
// Timeout is set when the operation ran out of its own deadline.
type StorageError struct {
	Op      string
	Locator string
	Timeout bool
	Err     error
}

func (e *StorageError) Error() string {
	msg := "storage " + e.Op
	if e.Locator != "" {
		msg += " " + e.Locator
	}
	if e.Timeout {
		msg += ": timeout"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StorageError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrStorage}
	}
	return []error{ErrStorage, e.Err}
}

// FanoutError is only ever logged. Writers never receive it.
type FanoutError struct {
	Topic string
	Err   error
}

func (e *FanoutError) Error() string {
	return fmt.Sprintf("fanout %s: %v", e.Topic, e.Err)
}

func (e *FanoutError) Unwrap() []error {
	return []error{ErrFanout, e.Err}
}
