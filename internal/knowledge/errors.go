package knowledge

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateVariant is returned when a variant is already bound to a
	// different answer. Use errors.As with *DuplicateVariantError for details.
	ErrDuplicateVariant = errors.New("variant already bound to a different answer")

	// ErrEntryNotFound is returned for an unknown entry ID.
	ErrEntryNotFound = errors.New("knowledge entry not found")

	// ErrInvalidEntry is returned for an empty answer or no usable variant.
	ErrInvalidEntry = errors.New("invalid knowledge entry")

	// ErrCorrupted marks a knowledge file that could not be decoded.
	ErrCorrupted = errors.New("knowledge file corrupted")
)

// DuplicateVariantError reports which variant collided and who owns it.
type DuplicateVariantError struct {
	Variant string
	OwnerID string
}

func (e *DuplicateVariantError) Error() string {
	return fmt.Sprintf("variant %q already bound to entry %s", e.Variant, e.OwnerID)
}

func (e *DuplicateVariantError) Unwrap() error {
	return ErrDuplicateVariant
}

// StoreIOError reports a failed read or write of the knowledge file. The
// previously persisted file is left intact.
type StoreIOError struct {
	Op   string // read, decode, write
	Path string
	Err  error
}

func (e *StoreIOError) Error() string {
	return fmt.Sprintf("knowledge store %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StoreIOError) Unwrap() error {
	return e.Err
}

// IsIOError reports whether err is, or wraps, a *StoreIOError.
func IsIOError(err error) bool {
	var ioErr *StoreIOError
	return errors.As(err, &ioErr)
}
