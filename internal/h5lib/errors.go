package h5lib

import "errors"

var (
	// ErrInvalidHandle is returned for an unknown or closed handle, or a
	// handle of the wrong kind.
	ErrInvalidHandle = errors.New("invalid handle")

	// ErrExists is returned when creating an object whose name is taken.
	ErrExists = errors.New("object already exists")

	// ErrNotFound is returned when opening an object that does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrConversion is returned when a memory type cannot be converted to
	// or from the stored type.
	ErrConversion = errors.New("no conversion path between memory and stored type")

	// ErrSelection is returned when memory and file selections disagree.
	ErrSelection = errors.New("memory and file selections differ")

	// ErrClosed is returned by any call on a closed library.
	ErrClosed = errors.New("library is closed")
)
