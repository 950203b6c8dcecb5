package model

import (
	"errors"
	"fmt"
)

var (
	// ErrWrongPassphrase is returned when the digest of the derived key does
	// not match the verifier stored in the snapshot.
	ErrWrongPassphrase = errors.New("passphrase does not match the stored key digest")
	// ErrIntegrityMismatch is returned when the container key is correct but
	// the decrypted records disagree with the stored records digest.
	ErrIntegrityMismatch = errors.New("records digest does not match decrypted data")
	// ErrReservedField is returned when a reserved record field is assigned.
	ErrReservedField = errors.New("field name is reserved")
	// ErrUnusable is returned by operations on a container that failed to load.
	ErrUnusable = errors.New("container is unusable")
	// ErrNotFound is returned by stores when nothing matches the lookup.
	ErrNotFound = errors.New("not found")
)

// ValidationError reports input that was rejected before any state changed.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError creates a ValidationError for the named field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConfigurationError reports an unknown algorithm token or an unusable
// environment setting.
type ConfigurationError struct {
	Setting string
	Value   string
	Err     error
}

// NewConfigurationError creates a ConfigurationError for setting=value.
func NewConfigurationError(setting, value string, err error) *ConfigurationError {
	return &ConfigurationError{Setting: setting, Value: value, Err: err}
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bad %s %q: %v", e.Setting, e.Value, e.Err)
	}
	return fmt.Sprintf("bad %s %q", e.Setting, e.Value)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
