package controller

import (
	"errors"
	"fmt"
)

// Lifecycle errors for illegal state transitions.
var (
	// ErrAlreadyConfigured indicates Init on a configured or running
	// controller.
	ErrAlreadyConfigured = errors.New("controller: already configured")

	// ErrNotConfigured indicates Start on a controller that has not
	// completed Init.
	ErrNotConfigured = errors.New("controller: not configured")

	// ErrNotRunning indicates Stop on a controller that is not running.
	ErrNotRunning = errors.New("controller: not running")
)

// ConfigError reports a missing or malformed configuration parameter.
type ConfigError struct {
	Key string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("controller: parameter %q: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("controller: missing parameter %q", e.Key)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ModelError reports a robot description that failed to parse or build.
type ModelError struct {
	Err error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("controller: loading model: %v", e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

// UnknownDOFError reports a configured joint name absent from the
// model.
type UnknownDOFError struct {
	Name string
}

func (e *UnknownDOFError) Error() string {
	return fmt.Sprintf("controller: there is no DOF named %q", e.Name)
}

// HandleError reports a controlled DOF for which no command handle
// could be obtained. This is always fatal: a controller that cannot
// command one of its declared joints must not run.
type HandleError struct {
	Name string
	Err  error
}

func (e *HandleError) Error() string {
	return fmt.Sprintf("controller: no command handle for controlled DOF %q: %v", e.Name, e.Err)
}

func (e *HandleError) Unwrap() error { return e.Err }
