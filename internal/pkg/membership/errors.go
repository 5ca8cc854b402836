package membership

import (
	"errors"
	"fmt"
	"time"
)

// ValidationError marks bad caller input. Controllers map it to 400 with the
// offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NotFoundError marks a missing student/plan/enrollment/contract.
type NotFoundError struct {
	Resource string
	ID       uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

// ConflictError marks a business-rule violation, e.g. a duplicate active
// enrollment. DueDate carries the conflicting resource's due date when one
// explains the rejection.
type ConflictError struct {
	Message string
	DueDate *time.Time
}

func (e *ConflictError) Error() string {
	if e.DueDate != nil {
		return fmt.Sprintf("%s (vencimento em %s)", e.Message, e.DueDate.Format("2006-01-02"))
	}
	return e.Message
}

// UnresolvableEventError marks a webhook event no resolver rule could map to
// an enrollment or package contract. The event is audited but causes no
// financial mutation.
type UnresolvableEventError struct {
	EventType  string
	ExternalID string
	Reference  string
}

func (e *UnresolvableEventError) Error() string {
	return fmt.Sprintf("could not resolve %s event %s (reference %q) to any enrollment or package contract", e.EventType, e.ExternalID, e.Reference)
}

// TransientError wraps an upstream gateway failure. No local state was
// mutated; the gateway's own redelivery provides the retry.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("gateway %s failed: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsNotFound(err error) bool {
	var n *NotFoundError
	return errors.As(err, &n)
}

func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

func IsUnresolvable(err error) bool {
	var u *UnresolvableEventError
	return errors.As(err, &u)
}

func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}
