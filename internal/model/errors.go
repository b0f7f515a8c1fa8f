package model

import (
	"errors"
	"fmt"
)

// Error codes exposed to CLI and tool callers.
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeClientNotFound      = "CLIENT_NOT_FOUND"
	CodeDeviceNotFound      = "DEVICE_NOT_FOUND"
	CodeClientAlreadyExists = "CLIENT_ALREADY_EXISTS"
	CodeStorage             = "STORAGE_ERROR"
	CodeIntegration         = "INTEGRATION_ERROR"
	CodeInternal            = "INTERNAL_ERROR"
)

// Resource names used by NotFoundError and AlreadyExistsError.
const (
	ResourceClient = "client"
	ResourceDevice = "device"
)

// ValidationError reports malformed caller input. It is always raised before any
// side effect takes place.
type ValidationError struct {
	Field   string      // offending input or config key
	Value   interface{} // rejected value
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("invalid value for %s: %v", e.Field, e.Value)
}

// Code returns the stable error code.
func (e *ValidationError) Code() string { return CodeValidation }

// NotFoundError reports a missing client or device.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s '%s' not found", e.Resource, e.ID)
}

// Code returns the stable error code.
func (e *NotFoundError) Code() string {
	if e.Resource == ResourceDevice {
		return CodeDeviceNotFound
	}
	return CodeClientNotFound
}

// NewClientNotFound is a shorthand for a missing client.
func NewClientNotFound(id string) *NotFoundError {
	return &NotFoundError{Resource: ResourceClient, ID: id}
}

// AlreadyExistsError reports a duplicate create.
type AlreadyExistsError struct {
	Resource string
	ID       string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s '%s' already exists", e.Resource, e.ID)
}

// Code returns the stable error code.
func (e *AlreadyExistsError) Code() string { return CodeClientAlreadyExists }

// StorageError wraps a persistence failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Code returns the stable error code.
func (e *StorageError) Code() string { return CodeStorage }

// IntegrationError wraps a failure of an external RMM or metrics endpoint.
type IntegrationError struct {
	Integration string
	Err         error
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("%s integration: %v", e.Integration, e.Err)
}

func (e *IntegrationError) Unwrap() error { return e.Err }

// Code returns the stable error code.
func (e *IntegrationError) Code() string { return CodeIntegration }

// ErrorCode extracts the code of the first coded error in err's chain.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return CodeInternal
}

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
