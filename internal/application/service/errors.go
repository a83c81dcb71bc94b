package service

import (
	"errors"
	"fmt"
)

var (
	// ErrFieldNotFound is matched by FieldNotFoundError
	ErrFieldNotFound = errors.New("form field not found")

	// ErrPersistence is matched by PersistenceError
	ErrPersistence = errors.New("persistence failure")

	// ErrFormRead is returned when a completed form cannot be fetched
	ErrFormRead = errors.New("form read failure")

	// ErrCaseBusy is returned when another worker holds the case lease
	ErrCaseBusy = errors.New("case is locked by another worker")
)

// FieldNotFoundError reports a label that is absent from the form structure
type FieldNotFoundError struct {
	Label string
}

func (e *FieldNotFoundError) Error() string {
	return fmt.Sprintf("form field %q not found", e.Label)
}

func (e *FieldNotFoundError) Is(target error) bool {
	return target == ErrFieldNotFound
}

// PersistenceError reports a failed read or write against the case store
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// CascadeFailure is a sibling case that could not be retracted
type CascadeFailure struct {
	SdkCaseID string
	Err       error
}

func (f CascadeFailure) Error() string {
	return fmt.Sprintf("retract case %s: %v", f.SdkCaseID, f.Err)
}

func (f CascadeFailure) Unwrap() error {
	return f.Err
}

func persistenceError(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

// classify keeps known failures intact and treats anything else leaving a
// transaction as a persistence failure.
func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrPersistence),
		errors.Is(err, ErrFieldNotFound),
		errors.Is(err, ErrFormRead),
		errors.Is(err, ErrCaseBusy):
		return err
	default:
		return persistenceError(op, err)
	}
}
