package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a device does not exist.
	ErrNotFound = errors.New("device not found")

	// ErrInvalidID is returned for identifiers that are not UUIDs.
	ErrInvalidID = errors.New("invalid device id")

	// ErrDuplicateMAC is returned by a DeviceStore when the storage uniqueness
	// constraint on the MAC rejects a write.
	ErrDuplicateMAC = errors.New("duplicate key: mac already registered")

	// ErrNoActor is returned by mutations when the context carries no actor.
	ErrNoActor = errors.New("no authenticated actor")
)

// StructuralError aborts an import before any row is processed: the
// workbook is unreadable or a required column is missing.
type StructuralError struct {
	Message string
	Missing []Field
}

func (e *StructuralError) Error() string {
	return e.Message
}

func newMissingColumnsError(missing []Field) *StructuralError {
	names := make([]string, len(missing))
	for i, f := range missing {
		names[i] = string(f)
	}
	return &StructuralError{
		Message: "missing required columns: " + strings.Join(names, ", "),
		Missing: missing,
	}
}

// ConflictError reports that a MAC is already registered. Existing is the
// device that holds it.
type ConflictError struct {
	Mac      string
	Existing *Device
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("MAC %s is already registered at site %s, location %s",
		e.Mac, e.Existing.ApName, e.Existing.LocationPoint)
}

// InvalidDeviceError carries the validation failures of a create or update.
type InvalidDeviceError struct {
	Errors []ValidationError
}

func (e *InvalidDeviceError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		msgs[i] = ve.Error()
	}
	return "invalid device: " + strings.Join(msgs, "; ")
}

func unreadableWorkbook() *StructuralError {
	return &StructuralError{Message: "empty or unreadable workbook"}
}
