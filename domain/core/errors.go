package core

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors - centralized error definitions
var (
	// Caller errors
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidSubject  = fmt.Errorf("%w: subject", ErrInvalidArgument)
	ErrInvalidLevel    = fmt.Errorf("%w: level", ErrInvalidArgument)

	// Source errors. These never cross the ingestion boundary; loaders turn
	// them into skip records.
	ErrCorruptSource = errors.New("corrupt source")

	// Computation errors
	ErrComputationFailure = errors.New("computation failed")
)

// NewInvalidArgumentError reports the offending value together with the accepted set.
func NewInvalidArgumentError(kind error, value string, accepted []string) error {
	return fmt.Errorf("%w %q (expected: %s)", kind, value, strings.Join(accepted, ", "))
}

func NewCorruptSourceError(path string, err error) error {
	return fmt.Errorf("%w %s: %v", ErrCorruptSource, path, err)
}

func NewComputationError(key string, err error) error {
	return fmt.Errorf("%w for %s: %w", ErrComputationFailure, key, err)
}

// Error checking helpers
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

func IsComputationFailure(err error) bool {
	return errors.Is(err, ErrComputationFailure)
}

func IsCorruptSource(err error) bool {
	return errors.Is(err, ErrCorruptSource)
}
