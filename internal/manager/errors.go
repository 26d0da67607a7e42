package manager

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownPlugin = errors.New("unknown plugin")
	ErrNotFound      = errors.New("not found")
)

// UnknownPluginError is returned by explicit-key dispatch to a name that is
// not registered.
type UnknownPluginError struct {
	Name string
}

func (e *UnknownPluginError) Error() string {
	return fmt.Sprintf("unknown plugin %q", e.Name)
}

func (e *UnknownPluginError) Unwrap() error {
	return ErrUnknownPlugin
}

// NotFoundError is returned when no usable topic row exists for ID. A row
// whose type names no registered tracker is not usable.
type NotFoundError struct {
	ID     uint
	Reason string
}

func (e *NotFoundError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("topic %d not found: %s", e.ID, e.Reason)
	}
	return fmt.Sprintf("topic %d not found", e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}
