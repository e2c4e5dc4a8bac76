package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateName indicates that a registry entry with the same name already exists
	ErrDuplicateName = errors.New("name already in use")

	// ErrInvalidName indicates that a file or folder name contains reserved characters
	ErrInvalidName = errors.New("invalid name")

	// ErrReservedName indicates that a name collides with a reserved file name
	ErrReservedName = errors.New("reserved name")

	// ErrUnknownNodeType indicates that a serialized node carries an unregistered type tag
	ErrUnknownNodeType = errors.New("unknown node type")

	// ErrNodeNotFound indicates that no node with the requested id exists in the graph
	ErrNodeNotFound = errors.New("node not found")

	// ErrUnknownVariable indicates that a variable name is not present in the registry
	ErrUnknownVariable = errors.New("unknown variable")

	// ErrInsufficientQuantity indicates that an inventory use requested more items than held
	ErrInsufficientQuantity = errors.New("insufficient quantity")

	// ErrEmptyReturnStack indicates a return was requested with no pending jump
	ErrEmptyReturnStack = errors.New("return stack is empty")

	// ErrNotFound indicates that a stored file or asset does not exist
	ErrNotFound = errors.New("not found")

	// ErrUnknownFunction indicates that a remote call names an unregistered function
	ErrUnknownFunction = errors.New("unknown function")
)

// Error represents a structured engine error
type Error struct {
	// Code is a machine-readable error code
	Code string

	// Message is a human-readable error message
	Message string

	// Err is the underlying error, if any
	Err error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new structured error
func NewError(code, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsDuplicateName checks if an error is a duplicate name error
func IsDuplicateName(err error) bool {
	return errors.Is(err, ErrDuplicateName)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
