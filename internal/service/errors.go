package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound means the requested id or station has no rows.
	ErrNotFound = errors.New("measurement not found")
	// ErrDuplicateID means a batch update named the same id twice.
	ErrDuplicateID = errors.New("duplicate ID found")
	// ErrInvalidIDFormat means an id list held no parseable id at all.
	ErrInvalidIDFormat = errors.New("invalid ID format")
)

// ValidationError reports required fields missing from a request item.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Missing required field: %s", strings.Join(e.Fields, ", "))
}

// StationNotFoundError is returned when a station has no measurements.
type StationNotFoundError struct {
	Station string
}

func (e *StationNotFoundError) Error() string {
	return fmt.Sprintf("No measurements found in %s", e.Station)
}

func (e *StationNotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
