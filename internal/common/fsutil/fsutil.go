// Package fsutil holds the filesystem helpers shared by the model registry
// and the CLI.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandHome replaces a leading "~" or "~/" with the current user's home
// directory. Anything else, "~user" included, is returned unchanged.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", path, err)
	}
	return filepath.Join(home, strings.TrimPrefix(path[1:], "/")), nil
}

// ModelFile expands path and reports whether it names a regular file, along
// with the expanded path and the file size. Directories, missing paths and
// unreadable entries are not model files.
func ModelFile(path string) (resolved string, size int64, ok bool) {
	p, err := ExpandHome(path)
	if err != nil || p == "" {
		return "", 0, false
	}
	st, err := os.Stat(p)
	if err != nil || !st.Mode().IsRegular() {
		return "", 0, false
	}
	return p, st.Size(), true
}
