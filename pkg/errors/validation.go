package errors

import (
	"math"
	"strings"
	"unicode"
)

// ValidateBondLength checks a caller-supplied target bond length.
// Zero selects the default and derive is the sentinel asking the layout to
// measure existing coordinates; every other value must be finite and positive.
func ValidateBondLength(v, derive float64) error {
	if v == 0 || v == derive {
		return nil
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return New(ErrCodeInvalidBondLength, "bond length must be finite, got %v", v)
	}
	if v < 0 {
		return New(ErrCodeInvalidBondLength, "bond length must be positive, got %v", v)
	}
	return nil
}

// ValidateMoleculeName validates a molecule name before it is used as part of
// an output filename or cache key.
//
// The validation rules are intentionally conservative:
//   - No control characters
//   - No path separators or traversal sequences
//   - Maximum length of 256 characters
//
// Empty names are allowed; callers substitute a generated name.
func ValidateMoleculeName(name string) error {
	if len(name) > 256 {
		return New(ErrCodeInvalidInput, "molecule name too long (max 256 characters)")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "molecule name contains invalid control characters")
		}
	}
	for _, pattern := range []string{"..", "/", "\\", "\x00"} {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidInput, "molecule name contains invalid characters: %q", pattern)
		}
	}
	return nil
}
