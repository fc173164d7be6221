package core

import "fmt"

// The four error families callers are expected to branch on. Each is a typed
// value matched with errors.As; none of them ever accompanies a partial
// mutation.

// ValidationError reports malformed or missing input, including illegal
// status transitions. The caller can correct the input and retry.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func validationf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// RoleError reports an actor attempting an operation its role does not allow.
type RoleError struct {
	Role   Role
	Action string
}

func (e *RoleError) Error() string {
	return fmt.Sprintf("role %s is not allowed to %s", e.Role, e.Action)
}

// NotFoundError reports an unknown item, location, transaction or user id.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// InsufficientStockError reports a movement that current stock cannot
// satisfy. Available carries the actual quantity so the caller can retry
// with a smaller amount.
type InsufficientStockError struct {
	ItemID     string
	LocationID string
	Requested  int64
	Available  int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %s at %s: requested %d, available %d",
		e.ItemID, e.LocationID, e.Requested, e.Available)
}
