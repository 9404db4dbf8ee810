package hdf5

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/h5lib"
	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/native"
	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/internal/vl"
)

// Session is an open library instance with its own native address space.
// A Session is not safe for concurrent use.
type Session struct {
	lib    *h5lib.Library
	heap   *native.Heap
	vl     *vl.Marshaller
	log    *zap.Logger
	opts   *options
	closed bool
}

// Open starts a session.
func Open(opts ...Option) (*Session, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	log := o.logger
	if log == nil {
		log = Logger()
	}

	var (
		mem native.Memory
		err error
	)
	if o.wasm {
		mem, err = native.NewWasmMemory(context.Background())
	} else {
		mem, err = native.NewSliceMemory(o.wordSize)
	}
	if err != nil {
		return nil, fmt.Errorf("creating native memory: %w", err)
	}

	heap := native.NewHeap(mem, log)
	lib, err := h5lib.New(h5lib.Config{
		Heap:       heap,
		OffsetSize: o.offsetSize,
		Logger:     log,
	})
	if err != nil {
		heap.Close()
		return nil, fmt.Errorf("starting library: %w", err)
	}

	log.Debug("session opened",
		zap.Int("word_size", heap.WordSize()),
		zap.Bool("wasm", o.wasm),
		zap.Stringer("policy", o.policy))

	return &Session{
		lib:  lib,
		heap: heap,
		vl: vl.New(lib,
			vl.WithPolicy(o.policy),
			vl.WithMaxStringSize(o.maxStringSize),
			vl.WithLogger(log)),
		log:  log,
		opts: o,
	}, nil
}

// Close shuts the library down and releases the native address space.
// Handles that are still open are reported as an error.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	libErr := s.lib.Close()
	if err := s.heap.Close(); err != nil {
		return errors.Join(libErr, fmt.Errorf("closing native memory: %w", err))
	}
	return libErr
}

// WordSize returns the platform word of the session's address space.
func (s *Session) WordSize() int {
	return s.heap.WordSize()
}

// Stats describes the native heap and the library's handle table.
type Stats struct {
	LiveBlocks  uint64
	LiveBytes   uint64
	Allocations uint64
	Frees       uint64
	OpenHandles int
}

// Stats returns native heap statistics, useful for leak checks.
func (s *Session) Stats() Stats {
	hs := s.heap.Stats()
	return Stats{
		LiveBlocks:  hs.LiveBlocks,
		LiveBytes:   hs.LiveBytes,
		Allocations: hs.TotalAllocations,
		Frees:       hs.TotalFrees,
		OpenHandles: len(s.lib.OpenHandles()),
	}
}

func (s *Session) check() error {
	if s.closed {
		return ErrClosed
	}
	return nil
}
