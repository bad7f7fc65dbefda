//go:build !litertlm

package native

// This file keeps default builds and CI cgo-free. The real binding lives in
// cgo_litertlm.go behind the 'litertlm' build tag.

// Built reports whether this binary links the native library.
const Built = false

// Default fails fast: there is no native library in this build.
func Default() (API, error) {
	return nil, ErrUnavailable
}
