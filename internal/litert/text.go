package litert

import "strings"

// nativeText checks that s can cross the boundary as a NUL-terminated string.
func nativeText(op, field, s string) error {
	if i := strings.IndexByte(s, 0); i >= 0 {
		return newError(KindInvalidArgument, op, "invalid %s: embedded NUL byte at offset %d", field, i)
	}
	return nil
}

// lossyUTF8 replaces invalid byte sequences with U+FFFD.
func lossyUTF8(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}
