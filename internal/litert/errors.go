package litert

import (
	"errors"
	"fmt"
)

// Kind classifies failures at the native boundary.
type Kind int

const (
	KindUnknown Kind = iota
	// KindInvalidArgument: a text parameter cannot be represented as native
	// text (embedded NUL), or a backend outside the closed set.
	KindInvalidArgument
	// KindNativeConstructionFailed: settings, engine or session construction
	// returned a null handle.
	KindNativeConstructionFailed
	// KindGenerationFailed: generate returned a null responses buffer.
	KindGenerationFailed
	// KindEmptyResponse: the first response slot had no text.
	KindEmptyResponse
	// KindMetricsUnavailable: benchmark info returned null (benchmarking off).
	KindMetricsUnavailable
	// KindClosed: the owner was already closed.
	KindClosed
	// KindUnavailable: the binary was built without the native library.
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid argument"
	case KindNativeConstructionFailed:
		return "native construction failed"
	case KindGenerationFailed:
		return "generation failed"
	case KindEmptyResponse:
		return "empty response"
	case KindMetricsUnavailable:
		return "metrics unavailable"
	case KindClosed:
		return "closed"
	case KindUnavailable:
		return "native library unavailable"
	default:
		return "unknown"
	}
}

// Error is returned for every failure in this package.
type Error struct {
	Kind Kind
	Op   string // load, create_session, generate, benchmark_info
	Msg  string
}

func (e *Error) Error() string {
	switch {
	case e.Op == "" && e.Msg == "":
		return "litert-lm: " + e.Kind.String()
	case e.Op == "":
		return "litert-lm: " + e.Msg
	default:
		return fmt.Sprintf("litert-lm: %s: %s", e.Op, e.Msg)
	}
}

// Is matches sentinels by Kind, so errors.Is(err, ErrEmptyResponse) works on
// any *Error of that kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

// Sentinels for errors.Is.
var (
	ErrInvalidArgument          = &Error{Kind: KindInvalidArgument}
	ErrNativeConstructionFailed = &Error{Kind: KindNativeConstructionFailed}
	ErrGenerationFailed         = &Error{Kind: KindGenerationFailed}
	ErrEmptyResponse            = &Error{Kind: KindEmptyResponse}
	ErrMetricsUnavailable       = &Error{Kind: KindMetricsUnavailable}
	ErrClosed                   = &Error{Kind: KindClosed}
	ErrUnavailable              = &Error{Kind: KindUnavailable}
)

func newError(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind of err, or KindUnknown if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}
