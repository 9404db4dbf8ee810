package hdf5

import (
	"go.uber.org/zap"

	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/vl"
)

// LifetimePolicy selects how long the native memory of a transfer lives.
type LifetimePolicy = vl.Policy

const (
	// PolicyPerCall frees every buffer the library only borrows when the
	// call returns. Write payloads are freed by reclaim.
	PolicyPerCall = vl.PolicyPerCall
	// PolicyProcessLifetime never frees top-level transfer buffers.
	PolicyProcessLifetime = vl.PolicyProcessLifetime
)

// Option configures a Session.
type Option func(*options)

type options struct {
	logger        *zap.Logger
	wordSize      int
	wasm          bool
	policy        LifetimePolicy
	maxStringSize int
	offsetSize    int
}

func defaultOptions() *options {
	return &options{
		wordSize:      8,
		policy:        PolicyPerCall,
		maxStringSize: vl.DefaultMaxStringSize,
		offsetSize:    8,
	}
}

// WithLogger sets the session logger. The package logger is used
// otherwise.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithWordSize sets the platform word of the native address space (4 or
// 8). It has no effect with WithWasmMemory, whose words are 4 bytes.
func WithWordSize(size int) Option {
	return func(o *options) {
		if size == 4 || size == 8 {
			o.wordSize = size
		}
	}
}

// WithWasmMemory backs the native address space with a WebAssembly linear
// memory.
func WithWasmMemory() Option {
	return func(o *options) {
		o.wasm = true
	}
}

// WithLifetimePolicy sets the lifetime policy of transfer buffers.
func WithLifetimePolicy(p LifetimePolicy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithMaxStringSize bounds the length of a VL string. Longer strings are
// rejected on write with ErrBufferSizeMismatch and cut off on read.
func WithMaxStringSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxStringSize = n
		}
	}
}

// WithOffsetSize sets the size in bytes of heap addresses in the
// library's storage image (2, 4, or 8).
func WithOffsetSize(size int) Option {
	return func(o *options) {
		if size == 2 || size == 4 || size == 8 {
			o.offsetSize = size
		}
	}
}
