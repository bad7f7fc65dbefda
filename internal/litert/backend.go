package litert

import (
	"fmt"
	"strings"
)

// Backend selects the execution target at engine construction.
type Backend int

const (
	CPU Backend = iota
	GPU
)

// String returns the native spelling ("cpu", "gpu").
func (b Backend) String() string {
	switch b {
	case CPU:
		return "cpu"
	case GPU:
		return "gpu"
	default:
		return fmt.Sprintf("Backend(%d)", int(b))
	}
}

// Valid reports whether b is one of the supported backends.
func (b Backend) Valid() bool { return b == CPU || b == GPU }

// ParseBackend is the inverse of String. Matching ignores case and
// surrounding space; anything outside {cpu, gpu} is KindInvalidArgument.
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cpu":
		return CPU, nil
	case "gpu":
		return GPU, nil
	default:
		return CPU, newError(KindInvalidArgument, "parse_backend", "unknown backend %q (want cpu or gpu)", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (b Backend) MarshalText() ([]byte, error) {
	if !b.Valid() {
		return nil, newError(KindInvalidArgument, "marshal_backend", "unknown backend %d", int(b))
	}
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Backend) UnmarshalText(text []byte) error {
	v, err := ParseBackend(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}
