package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Input / configuration errors (fatal for a load run)
	ErrMissingInput         = errors.New("required input missing")
	ErrMetadataFileNotFound = fmt.Errorf("%w: plate metadata file", ErrMissingInput)
	ErrFollowUpArchive      = errors.New("invalid follow-up archive")

	// Validation errors
	ErrPlateNameMismatch   = errors.New("plate name count mismatch")
	ErrUnsupportedSetCount = errors.New("venn diagram supports exactly 2 or 3 sets")
	ErrDuplicateResource   = errors.New("duplicate resource name in collection")
	ErrMissingColumn       = errors.New("required column missing")

	// Per-key errors (recoverable, the key is skipped)
	ErrEmptyTable  = errors.New("table has no usable rows")
	ErrRunNotFound = errors.New("load run not found")
	ErrNoResource  = errors.New("resource not found")
)

// NewMissingInputError names the missing file or pattern
func NewMissingInputError(what string, where string) error {
	return fmt.Errorf("%w: %s in %s", ErrMissingInput, what, where)
}

// NewMissingColumnError reports which alias set could not be matched
func NewMissingColumnError(table string, aliases []string) error {
	return fmt.Errorf("%w: %s needs one of %v", ErrMissingColumn, table, aliases)
}

// NewPlateNameMismatchError reports user-supplied vs inferred plate counts
func NewPlateNameMismatchError(supplied, inferred int) error {
	return fmt.Errorf("%w: %d plate names supplied but %d plates found", ErrPlateNameMismatch, supplied, inferred)
}

// IsFatal reports whether err must abort the whole load run
func IsFatal(err error) bool {
	return errors.Is(err, ErrMissingInput) ||
		errors.Is(err, ErrPlateNameMismatch) ||
		errors.Is(err, ErrFollowUpArchive)
}
