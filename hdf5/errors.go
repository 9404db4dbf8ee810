// Package hdf5 is a binding to an HDF5-style native library for data
// whose element size is not fixed: variable-length sequences and strings,
// compound records and fixed-size arrays of them.
package hdf5

import (
	"errors"

	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/h5lib"
	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/vl"
)

// Common errors
var (
	ErrNotFound    = h5lib.ErrNotFound
	ErrExists      = h5lib.ErrExists
	ErrUnsupported = errors.New("unsupported feature")
	ErrClosed      = errors.New("session is closed")
)

// Transfer errors. Use errors.As with *TransferError for the element index
// and member path.
var (
	ErrInvalidTypeHandle  = vl.ErrInvalidTypeHandle
	ErrTypeMismatch       = vl.ErrTypeMismatch
	ErrBufferSizeMismatch = vl.ErrBufferSizeMismatch
	ErrNativeCallFailure  = vl.ErrNativeCallFailure
)

// TransferError is the structured error of a read or write.
type TransferError = vl.Error
