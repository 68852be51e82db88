package utils

import (
	"path/filepath"
	"strings"
)

// IsPathWithin reports whether path sits under one of the roots once symlinks
// are resolved, so a link dropped into the watched folder cannot steer a scan
// outside of it.
func IsPathWithin(path string, roots []string) bool {
	target, ok := canonical(path)
	if !ok {
		return false
	}
	for _, root := range roots {
		base, ok := canonical(root)
		if !ok {
			continue
		}
		if target == base || strings.HasPrefix(target, base+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// canonical resolves symlinks where possible and always yields an absolute
// path. Resolution failures fall back to the literal path; a missing file
// still has a well-defined location.
func canonical(path string) (string, bool) {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	return abs, true
}
