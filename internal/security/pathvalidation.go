package security

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrPathEscape is returned when a path resolves outside its allowed root.
var ErrPathEscape = errors.New("path escapes allowed directory")

// ValidatePathWithinDirectory reports whether filePath, after cleaning and
// symlink resolution, stays inside safeDir. Paths that do not exist yet are
// checked through their nearest existing ancestor so a linked parent
// directory cannot be used to escape. safeDir itself need not exist.
func ValidatePathWithinDirectory(filePath, safeDir string) error {
	absPath, err := filepath.Abs(filepath.Clean(filePath))
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	absSafeDir, err := filepath.Abs(safeDir)
	if err != nil {
		return fmt.Errorf("failed to resolve safe directory path: %w", err)
	}

	rel, err := filepath.Rel(canonical(absSafeDir), canonical(absPath))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPathEscape, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("%w: %s is outside %s", ErrPathEscape, filePath, safeDir)
	}
	return nil
}

// canonical resolves symlinks in p, falling back to the nearest existing
// ancestor when p itself does not exist.
func canonical(p string) string {
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		return resolved
	}
	for dir := filepath.Dir(p); ; dir = filepath.Dir(dir) {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			rest, _ := filepath.Rel(dir, p)
			return filepath.Join(resolved, rest)
		}
		if dir == filepath.Dir(dir) {
			return p
		}
	}
}

// SanitizeFilename makes a safe filename from an arbitrary string. Characters
// other than ASCII letters, digits, dot, underscore or dash become a single
// underscore, leading and trailing dots and underscores are trimmed, and the
// result is capped at 128 bytes. The output never contains a separator.
func SanitizeFilename(s string) string {
	if s == "" {
		return "unknown"
	}
	var b strings.Builder
	const maxLen = 128
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastUnderscore = false
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}

// MapFileName turns a user-supplied map name into a bare .json file name.
func MapFileName(name string) string {
	clean := SanitizeFilename(name)
	if !strings.EqualFold(filepath.Ext(clean), ".json") {
		clean += ".json"
	}
	return clean
}
