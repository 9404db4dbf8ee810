package vl

import (
	"fmt"
	"strconv"
	"strings"
)

// Op names the entry point an error came from.
type Op string

const (
	OpCompile Op = "compile"
	OpRead    Op = "read"
	OpWrite   Op = "write"
	OpReclaim Op = "reclaim"
)

// Kind categorizes the error.
type Kind string

const (
	KindInvalidTypeHandle  Kind = "invalid_type_handle"
	KindTypeMismatch       Kind = "type_mismatch"
	KindBufferSizeMismatch Kind = "buffer_size_mismatch"
	KindNativeCallFailure  Kind = "native_call_failure"
	KindReclaimState       Kind = "reclaim_state"
)

// Sentinels for errors.Is. They match any *Error of the same Kind.
var (
	ErrInvalidTypeHandle  = &Error{Kind: KindInvalidTypeHandle}
	ErrTypeMismatch       = &Error{Kind: KindTypeMismatch}
	ErrBufferSizeMismatch = &Error{Kind: KindBufferSizeMismatch}
	ErrNativeCallFailure  = &Error{Kind: KindNativeCallFailure}
	ErrReclaimState       = &Error{Kind: KindReclaimState}
)

// Error is the structured error returned by the marshalling entry points.
type Error struct {
	Cause  error
	Op     Op
	Kind   Kind
	Detail string
	// Path is the member path inside one element, e.g. ["tags", "[1]"].
	Path []string
	// Index is the element index within the container, or -1.
	Index int
}

func (e *Error) Error() string {
	var b strings.Builder

	if e.Op != "" {
		b.WriteByte('[')
		b.WriteString(string(e.Op))
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))

	if e.Index >= 0 {
		b.WriteString(" at element ")
		b.WriteString(strconv.Itoa(e.Index))
	}
	if len(e.Path) > 0 {
		if e.Index >= 0 {
			b.WriteString(", field ")
		} else {
			b.WriteString(" at ")
		}
		b.WriteString(joinPath(e.Path))
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on Kind, and on Op when the target sets one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && (t.Op == "" || e.Op == t.Op)
}

// joinPath renders ["tags", "[1]", "name"] as tags[1].name.
func joinPath(path []string) string {
	var b strings.Builder
	for i, p := range path {
		if i > 0 && !strings.HasPrefix(p, "[") {
			b.WriteByte('.')
		}
		b.WriteString(p)
	}
	return b.String()
}

// builder provides structured error construction.
type builder struct {
	err Error
}

func newError(op Op, kind Kind) *builder {
	return &builder{err: Error{Op: op, Kind: kind, Index: -1}}
}

func (b *builder) Path(path ...string) *builder {
	b.err.Path = path
	return b
}

func (b *builder) Index(i int) *builder {
	b.err.Index = i
	return b
}

func (b *builder) Cause(err error) *builder {
	b.err.Cause = err
	return b
}

func (b *builder) Detail(msg string, args ...any) *builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

func (b *builder) Build() *Error {
	return &b.err
}

// mismatch is a TypeMismatch raised inside a codec. The path is filled in
// as the error unwinds through enclosing codecs.
func mismatch(format string, args ...any) *Error {
	return newError("", KindTypeMismatch).Detail(format, args...).Build()
}

// within prefixes the path of a codec error with seg.
func within(err error, seg string) error {
	if e, ok := err.(*Error); ok {
		e.Path = append([]string{seg}, e.Path...)
		return e
	}
	return err
}

// at stamps a codec error with the call's op and element index.
func at(err error, op Op, index int) error {
	if e, ok := err.(*Error); ok {
		e.Op = op
		e.Index = index
		return e
	}
	return newError(op, KindNativeCallFailure).Index(index).Cause(err).Build()
}
