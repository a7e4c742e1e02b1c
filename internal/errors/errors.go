// Package errors provides structured error handling for kibanahunt operations.
// It defines error codes and typed errors for probe outcomes and configuration
// problems, plus helpers for classifying errors by code.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"syscall"
)

// ErrorCode represents different types of errors that can occur.
type ErrorCode string

const (
	// General errors.
	CodeUnknown       ErrorCode = "UNKNOWN"
	CodeValidation    ErrorCode = "VALIDATION"
	CodeConfiguration ErrorCode = "CONFIGURATION"
	CodeTimeout       ErrorCode = "TIMEOUT"
	CodeCanceled      ErrorCode = "CANCELED"
	CodeInternal      ErrorCode = "INTERNAL"

	// Network and probing errors.
	CodeNetworkUnreachable ErrorCode = "NETWORK_UNREACHABLE"
	CodeHostUnreachable    ErrorCode = "HOST_UNREACHABLE"
	CodePortClosed         ErrorCode = "PORT_CLOSED"
	CodeConnectionReset    ErrorCode = "CONNECTION_RESET"

	// Service validation errors.
	CodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	CodeHTTPStatus         ErrorCode = "HTTP_STATUS"
	CodeSignatureMissing   ErrorCode = "SIGNATURE_MISSING"
	CodeMalformedResponse  ErrorCode = "MALFORMED_RESPONSE"
)

// ProbeError describes why a single probe of one address and port came back negative.
// These are routine outcomes and are carried as values, never raised.
type ProbeError struct {
	Code    ErrorCode
	Message string
	Target  string
	Port    uint16
	Stage   string
	Cause   error
}

// Error implements the error interface.
func (e *ProbeError) Error() string {
	if e.Target != "" && e.Port > 0 {
		return fmt.Sprintf("[%s] %s (target: %s:%d)", e.Code, e.Message, e.Target, e.Port)
	}
	if e.Target != "" {
		return fmt.Sprintf("[%s] %s (target: %s)", e.Code, e.Message, e.Target)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ProbeError) Unwrap() error {
	return e.Cause
}

// NewProbeError creates a probe error for a specific target and port.
func NewProbeError(code ErrorCode, stage, message, target string, port uint16) *ProbeError {
	return &ProbeError{
		Code:    code,
		Message: message,
		Target:  target,
		Port:    port,
		Stage:   stage,
	}
}

// WrapProbeError wraps a network error as a probe error.
func WrapProbeError(code ErrorCode, stage, message, target string, port uint16, err error) *ProbeError {
	return &ProbeError{
		Code:    code,
		Message: message,
		Target:  target,
		Port:    port,
		Stage:   stage,
		Cause:   err,
	}
}

// ConfigError represents configuration-related errors.
type ConfigError struct {
	Code    ErrorCode
	Message string
	Field   string
	Value   interface{}
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewConfigError creates a new configuration error.
func NewConfigError(code ErrorCode, message string) *ConfigError {
	return &ConfigError{
		Code:    code,
		Message: message,
	}
}

// NewConfigFieldError creates a configuration error for a specific field.
func NewConfigFieldError(code ErrorCode, message, field string, value interface{}) *ConfigError {
	return &ConfigError{
		Code:    code,
		Message: message,
		Field:   field,
		Value:   value,
	}
}

// WrapConfigError wraps an existing error as a configuration error.
func WrapConfigError(code ErrorCode, message string, err error) *ConfigError {
	return &ConfigError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Utility functions for common error operations

// IsCode checks if an error, or any error it wraps, has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// GetCode extracts the error code from an error if it has one.
func GetCode(err error) ErrorCode {
	var probeErr *ProbeError
	if stderrors.As(err, &probeErr) {
		return probeErr.Code
	}
	var cfgErr *ConfigError
	if stderrors.As(err, &cfgErr) {
		return cfgErr.Code
	}
	return CodeUnknown
}

// IsFatal determines if an error should stop the run. Only configuration
// problems qualify; every probe failure is absorbed by the scan.
func IsFatal(err error) bool {
	switch GetCode(err) {
	case CodeConfiguration, CodeValidation:
		return true
	default:
		return false
	}
}

// ClassifyNetworkError maps a dial or transport error onto an error code.
func ClassifyNetworkError(err error) ErrorCode {
	switch {
	case err == nil:
		return CodeUnknown
	case stderrors.Is(err, context.Canceled):
		return CodeCanceled
	case stderrors.Is(err, context.DeadlineExceeded), stderrors.Is(err, os.ErrDeadlineExceeded):
		return CodeTimeout
	case stderrors.Is(err, syscall.ECONNREFUSED):
		return CodePortClosed
	case stderrors.Is(err, syscall.ECONNRESET), stderrors.Is(err, syscall.EPIPE):
		return CodeConnectionReset
	case stderrors.Is(err, syscall.EHOSTUNREACH), stderrors.Is(err, syscall.EHOSTDOWN):
		return CodeHostUnreachable
	case stderrors.Is(err, syscall.ENETUNREACH), stderrors.Is(err, syscall.ENETDOWN):
		return CodeNetworkUnreachable
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return CodeTimeout
	}
	return CodeUnknown
}

// Common error creation functions

// ErrInvalidRange creates an error for an address range that cannot be parsed.
func ErrInvalidRange(value string, err error) *ConfigError {
	return &ConfigError{
		Code:    CodeValidation,
		Message: "Invalid address range",
		Field:   "scan.ranges",
		Value:   value,
		Cause:   err,
	}
}

// ErrConfigInvalid creates an error for invalid configuration.
func ErrConfigInvalid(field string, value interface{}) *ConfigError {
	return NewConfigFieldError(CodeValidation, "Invalid configuration value", field, value)
}

// ErrConfigMissing creates an error for missing required configuration.
func ErrConfigMissing(field string) *ConfigError {
	return NewConfigFieldError(CodeConfiguration, "Required configuration field missing", field, nil)
}
