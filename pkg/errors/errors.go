package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeNotFound represents missing-entity errors
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeConflict represents uniqueness/state-conflict errors
	ErrorTypeConflict ErrorType = "conflict"
	// ErrorTypeValidation represents malformed caller input
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeStore represents unexpected record-store failures
	ErrorTypeStore ErrorType = "store"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Not-found errors

// ErrNotFound is returned when an entity does not exist
type ErrNotFound struct {
	*BaseError
	Entity string
	Key    string
}

func NewNotFound(entity, key string) *ErrNotFound {
	return &ErrNotFound{
		BaseError: NewBaseError(ErrorTypeNotFound, fmt.Sprintf("%s not found: %s", entity, key), nil),
		Entity:    entity,
		Key:       key,
	}
}

// ErrUserNotFound is returned when a friendship endpoint user is missing
type ErrUserNotFound struct {
	*BaseError
	UUID string
}

func NewUserNotFound(uuid string) *ErrUserNotFound {
	return &ErrUserNotFound{
		BaseError: NewBaseError(ErrorTypeNotFound, fmt.Sprintf("user not found: %s", uuid), nil),
		UUID:      uuid,
	}
}

// Conflict errors

// ErrDuplicateKey is returned when the store reports a uniqueness violation
type ErrDuplicateKey struct {
	*BaseError
	Collection string
}

func NewDuplicateKey(collection string, err error) *ErrDuplicateKey {
	return &ErrDuplicateKey{
		BaseError:  NewBaseError(ErrorTypeConflict, fmt.Sprintf("duplicate key in %s", collection), err),
		Collection: collection,
	}
}

// ErrAlreadyFriends is returned when a friendship already exists for the pair
type ErrAlreadyFriends struct {
	*BaseError
	User1UUID string
	User2UUID string
}

func NewAlreadyFriends(user1, user2 string) *ErrAlreadyFriends {
	return &ErrAlreadyFriends{
		BaseError: NewBaseError(ErrorTypeConflict, "users are already friends", nil),
		User1UUID: user1,
		User2UUID: user2,
	}
}

// ErrReferralCodeExhausted is returned when referral code generation runs out of attempts
type ErrReferralCodeExhausted struct {
	*BaseError
	Attempts int
}

func NewReferralCodeExhausted(attempts int) *ErrReferralCodeExhausted {
	return &ErrReferralCodeExhausted{
		BaseError: NewBaseError(ErrorTypeConflict, fmt.Sprintf("could not generate unique referral code after %d attempts", attempts), nil),
		Attempts:  attempts,
	}
}

// Validation errors

// ErrInvalidFilter is returned when a filter references an unknown field
type ErrInvalidFilter struct {
	*BaseError
	Field string
}

func NewInvalidFilter(field string) *ErrInvalidFilter {
	return &ErrInvalidFilter{
		BaseError: NewBaseError(ErrorTypeValidation, fmt.Sprintf("unknown filter field: %s", field), nil),
		Field:     field,
	}
}

// ErrInvalidArgument is returned for malformed caller input
type ErrInvalidArgument struct {
	*BaseError
	Argument string
	Reason   string
}

func NewInvalidArgument(argument, reason string) *ErrInvalidArgument {
	return &ErrInvalidArgument{
		BaseError: NewBaseError(ErrorTypeValidation, fmt.Sprintf("invalid %s: %s", argument, reason), nil),
		Argument:  argument,
		Reason:    reason,
	}
}

// ErrInvalidCursor is returned when a cursor does not decode to a store identifier
type ErrInvalidCursor struct {
	*BaseError
	Cursor string
}

func NewInvalidCursor(cursor string, err error) *ErrInvalidCursor {
	return &ErrInvalidCursor{
		BaseError: NewBaseError(ErrorTypeValidation, fmt.Sprintf("invalid cursor: %s", cursor), err),
		Cursor:    cursor,
	}
}

// ErrSelfFriendship is returned when a user tries to friend themselves
type ErrSelfFriendship struct {
	*BaseError
	UUID string
}

func NewSelfFriendship(uuid string) *ErrSelfFriendship {
	return &ErrSelfFriendship{
		BaseError: NewBaseError(ErrorTypeValidation, "cannot friend yourself", nil),
		UUID:      uuid,
	}
}

// Store errors

// ErrStoreFailed wraps an unexpected record-store failure
type ErrStoreFailed struct {
	*BaseError
	Operation string
}

func NewStoreFailed(operation string, err error) *ErrStoreFailed {
	return &ErrStoreFailed{
		BaseError: NewBaseError(ErrorTypeStore, fmt.Sprintf("store operation failed: %s", operation), err),
		Operation: operation,
	}
}

// Helper functions

// Base exposes the embedded BaseError so category checks work through
// concrete error types (the method is promoted by embedding).
func (e *BaseError) Base() *BaseError { return e }

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	for err != nil {
		if be, ok := err.(interface{ Base() *BaseError }); ok {
			return be.Base().Type == errType
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// IsNotFound reports whether err is a not-found error
func IsNotFound(err error) bool { return IsErrorType(err, ErrorTypeNotFound) }

// IsConflict reports whether err is a conflict error
func IsConflict(err error) bool { return IsErrorType(err, ErrorTypeConflict) }

// IsValidation reports whether err is a validation error
func IsValidation(err error) bool { return IsErrorType(err, ErrorTypeValidation) }
