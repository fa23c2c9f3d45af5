// Package utils provides the error taxonomy shared by the simulation packages
package utils

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// SimulationError represents a simulation specific error
type SimulationError struct {
	Code      string
	Message   string
	Component string
	Cause     error
	Details   map[string]interface{}
}

// Error implements the error interface
func (e *SimulationError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Message != "" {
		parts = append(parts, e.Message)
	}

	if e.Component != "" {
		parts = append(parts, fmt.Sprintf("component: %s", e.Component))
	}

	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		details := make([]string, 0, len(keys))
		for _, k := range keys {
			details = append(details, fmt.Sprintf("%s=%v", k, e.Details[k]))
		}
		parts = append(parts, fmt.Sprintf("details: {%s}", strings.Join(details, ", ")))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %v", e.Cause))
	}

	return strings.Join(parts, " - ")
}

// Unwrap exposes the underlying cause
func (e *SimulationError) Unwrap() error {
	return e.Cause
}

// Is matches errors by code so that derived errors still compare equal to the sentinels
func (e *SimulationError) Is(target error) bool {
	var other *SimulationError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code != "" && other.Code == e.Code
}

// clone returns a copy so sentinels are never mutated by the With* helpers
func (e *SimulationError) clone() *SimulationError {
	c := *e
	if e.Details != nil {
		c.Details = make(map[string]interface{}, len(e.Details))
		for k, v := range e.Details {
			c.Details[k] = v
		}
	}
	return &c
}

// WithComponent adds component information to the error
func (e *SimulationError) WithComponent(component string) *SimulationError {
	c := e.clone()
	c.Component = component
	return c
}

// WithCause adds cause information to the error
func (e *SimulationError) WithCause(err error) *SimulationError {
	c := e.clone()
	c.Cause = err
	return c
}

// WithDetail adds a detail to the error
func (e *SimulationError) WithDetail(key string, value interface{}) *SimulationError {
	c := e.clone()
	if c.Details == nil {
		c.Details = make(map[string]interface{})
	}
	c.Details[key] = value
	return c
}

// Error codes
const (
	CodeNotImplemented       = "NOT_IMPLEMENTED"
	CodeStoreClosed          = "STORE_CLOSED"
	CodeAlreadyStarted       = "ALREADY_STARTED"
	CodeNotStarted           = "NOT_STARTED"
	CodeStopped              = "STOPPED"
	CodeInvalidConfiguration = "INVALID_CONFIGURATION"
	CodeWorkerFailed         = "WORKER_FAILED"
	CodeStoreFailure         = "STORE_FAILURE"
)

var (
	// ErrNotImplemented is returned when a backend variant has no implementation
	ErrNotImplemented = &SimulationError{
		Code:    CodeNotImplemented,
		Message: "backend not implemented",
	}

	// ErrStoreClosed is returned when the shared-state store has been torn down
	ErrStoreClosed = &SimulationError{
		Code:    CodeStoreClosed,
		Message: "shared-state store is closed",
	}

	// ErrAlreadyStarted is returned when a simulation is started twice
	ErrAlreadyStarted = &SimulationError{
		Code:    CodeAlreadyStarted,
		Message: "simulation has already been started",
	}

	// ErrNotStarted is returned when an operation requires a running simulation
	ErrNotStarted = &SimulationError{
		Code:    CodeNotStarted,
		Message: "simulation has not been started",
	}

	// ErrStopped is returned when trying to use a stopped simulation
	ErrStopped = &SimulationError{
		Code:    CodeStopped,
		Message: "simulation has been stopped",
	}

	// ErrInvalidConfiguration is returned when configuration validation fails
	ErrInvalidConfiguration = &SimulationError{
		Code:    CodeInvalidConfiguration,
		Message: "invalid configuration",
	}
)

// NewConfigurationError creates an error for configuration issues
func NewConfigurationError(field string, message string) *SimulationError {
	return &SimulationError{
		Code:    CodeInvalidConfiguration,
		Message: message,
		Details: map[string]interface{}{
			"field": field,
		},
	}
}

// NewWorkerError creates an error for a failed worker tick
func NewWorkerError(worker string, cause error) *SimulationError {
	return &SimulationError{
		Code:      CodeWorkerFailed,
		Message:   "worker failed",
		Component: worker,
		Cause:     cause,
	}
}

// NewStoreError creates an error for shared-state store operations
func NewStoreError(operation string, key string, cause error) *SimulationError {
	return &SimulationError{
		Code:    CodeStoreFailure,
		Message: fmt.Sprintf("store %s failed", operation),
		Details: map[string]interface{}{
			"key": key,
		},
		Cause: cause,
	}
}

// ErrorCollector collects multiple errors during validation or shutdown
type ErrorCollector struct {
	errors []error
}

// NewErrorCollector creates a new error collector
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{
		errors: make([]error, 0),
	}
}

// Add adds an error to the collector
func (ec *ErrorCollector) Add(err error) {
	if err != nil {
		ec.errors = append(ec.errors, err)
	}
}

// HasErrors returns whether any errors were collected
func (ec *ErrorCollector) HasErrors() bool {
	return len(ec.errors) > 0
}

// GetErrors returns all collected errors
func (ec *ErrorCollector) GetErrors() []error {
	return ec.errors
}

// Err returns nil when nothing was collected, the collector otherwise
func (ec *ErrorCollector) Err() error {
	if !ec.HasErrors() {
		return nil
	}
	return ec
}

// Unwrap exposes collected errors to errors.Is and errors.As
func (ec *ErrorCollector) Unwrap() []error {
	return ec.errors
}

// Error returns a string representation of all errors
func (ec *ErrorCollector) Error() string {
	if len(ec.errors) == 0 {
		return "no errors"
	}

	if len(ec.errors) == 1 {
		return ec.errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d errors occurred:\n", len(ec.errors)))

	for i, err := range ec.errors {
		sb.WriteString(fmt.Sprintf("  %d: %v\n", i+1, err))
	}

	return sb.String()
}
