package errors

import (
	"fmt"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrTypeValidation represents rule or settings validation errors
	ErrTypeValidation ErrorType = "validation"
	// ErrTypeConfig represents configuration errors (missing or unparseable files)
	ErrTypeConfig ErrorType = "config"
	// ErrTypeNotFound represents resource not found errors
	ErrTypeNotFound ErrorType = "not_found"
	// ErrTypePattern represents trigger pattern compilation errors
	ErrTypePattern ErrorType = "pattern"
	// ErrTypeCooldown represents cooldown-active conditions
	ErrTypeCooldown ErrorType = "cooldown"
	// ErrTypeRemote represents remote rule import errors
	ErrTypeRemote ErrorType = "remote"
	// ErrTypePersistence represents durable storage write errors
	ErrTypePersistence ErrorType = "persistence"
	// ErrTypeInternal represents internal system errors
	ErrTypeInternal ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type    ErrorType              `json:"type"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	parts := []string{string(e.Type), e.Message}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause=%v", e.Cause))
	}

	if len(e.Context) > 0 {
		contextParts := make([]string, 0, len(e.Context))
		for k, v := range e.Context {
			contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, v))
		}
		parts = append(parts, fmt.Sprintf("context={%s}", strings.Join(contextParts, ", ")))
	}

	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// ValidationError creates a new validation error
func ValidationError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeValidation,
		Message: msg,
	}
}

// ConfigError creates a new configuration error
func ConfigError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeConfig,
		Message: msg,
		Cause:   cause,
	}
}

// NotFoundError creates a new not found error
func NotFoundError(resource string) *AppError {
	return &AppError{
		Type:    ErrTypeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// PatternError creates a new pattern compilation error
func PatternError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypePattern,
		Message: msg,
		Cause:   cause,
	}
}

// RemoteError creates a new remote import error
func RemoteError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeRemote,
		Message: msg,
		Cause:   cause,
	}
}

// PersistenceError creates a new persistence error
func PersistenceError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypePersistence,
		Message: msg,
		Cause:   cause,
	}
}

// InternalError creates a new internal error
func InternalError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeInternal,
		Message: msg,
		Cause:   cause,
	}
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	if err == nil {
		return false
	}

	appErr, ok := err.(*AppError)
	if !ok {
		return false
	}

	return appErr.Type == errType
}

// GetType returns the error type if it's an AppError, otherwise returns ErrTypeInternal
func GetType(err error) ErrorType {
	if err == nil {
		return ""
	}

	appErr, ok := err.(*AppError)
	if !ok {
		return ErrTypeInternal
	}

	return appErr.Type
}
