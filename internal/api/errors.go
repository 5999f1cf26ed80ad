package api

import (
	"errors"
	"fmt"
)

// NotFoundError represents a resource not found error with contextual
// information. It is returned by the state store, the config loader and the
// registry whenever a named thing does not exist.
type NotFoundError struct {
	// ResourceType categorizes the type of resource that was not found
	// (e.g., "environment", "service", "state").
	ResourceType string

	// ResourceName is the specific identifier of the resource that was not found.
	ResourceName string

	// Message provides a custom error message if the default format is insufficient.
	Message string
}

// Error implements the error interface for NotFoundError.
func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s not found", e.ResourceType, e.ResourceName)
}

// IsNotFound checks if an error is a NotFoundError using error unwrapping.
func IsNotFound(err error) bool {
	var notFoundErr *NotFoundError
	return errors.As(err, &notFoundErr)
}

// NewNotFoundError creates a new NotFoundError with the specified resource
// type and name.
func NewNotFoundError(resourceType, resourceName string) *NotFoundError {
	return &NotFoundError{
		ResourceType: resourceType,
		ResourceName: resourceName,
	}
}

// UnsupportedError indicates that a command is not available for a service on
// its platform, either because no handler is registered for the triple or
// because the service's capability annotations exclude it. It is a
// per-service failure, never fatal to a batch.
type UnsupportedError struct {
	Command     string
	Platform    Platform
	ServiceType string
	Reason      string
}

func (e *UnsupportedError) Error() string {
	msg := fmt.Sprintf("command %q not supported for service type %q on platform %q", e.Command, e.ServiceType, e.Platform)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// IsUnsupported checks if an error is an UnsupportedError using error unwrapping.
func IsUnsupported(err error) bool {
	var unsupportedErr *UnsupportedError
	return errors.As(err, &unsupportedErr)
}

// NewUnsupportedError creates an UnsupportedError for the given dispatch triple.
func NewUnsupportedError(command string, platform Platform, serviceType, reason string) *UnsupportedError {
	return &UnsupportedError{
		Command:     command,
		Platform:    platform,
		ServiceType: serviceType,
		Reason:      reason,
	}
}

// ConfigError indicates invalid or missing environment configuration. It is
// reported before any platform call is made.
type ConfigError struct {
	Environment string
	Problems    []string
}

func (e *ConfigError) Error() string {
	if len(e.Problems) == 1 {
		return fmt.Sprintf("environment %q: %s", e.Environment, e.Problems[0])
	}
	return fmt.Sprintf("environment %q has %d configuration problems: %v", e.Environment, len(e.Problems), e.Problems)
}

// IsConfigError checks if an error is a ConfigError using error unwrapping.
func IsConfigError(err error) bool {
	var configErr *ConfigError
	return errors.As(err, &configErr)
}
