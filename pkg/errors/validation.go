package errors

import (
	"math"
	"slices"
	"strings"
	"unicode"
)

// ValidateChoice checks that value is one of allowed.
func ValidateChoice(code Code, what, value string, allowed []string) error {
	if slices.Contains(allowed, value) {
		return nil
	}
	return New(code, "invalid %s: %q (must be one of: %s)", what, value, strings.Join(allowed, ", "))
}

// ValidateFormats checks every output format against allowed.
func ValidateFormats(formats, allowed []string) error {
	for _, f := range formats {
		if err := ValidateChoice(ErrCodeInvalidFormat, "format", f, allowed); err != nil {
			return err
		}
	}
	return nil
}

// ValidateEngine checks a layout engine name against allowed.
func ValidateEngine(name string, allowed []string) error {
	return ValidateChoice(ErrCodeInvalidEngine, "engine", name, allowed)
}

// ValidateDimension checks that a frame dimension is finite and positive.
func ValidateDimension(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return New(ErrCodeInvalidDimension, "%s must be a positive number, got %v", name, v)
	}
	return nil
}

// ValidateSourceURI checks that a collection source is non-empty and free of
// control characters. Scheme-specific checks happen when the source opens.
func ValidateSourceURI(uri string) error {
	if strings.TrimSpace(uri) == "" {
		return New(ErrCodeInvalidSource, "source cannot be empty")
	}
	for _, r := range uri {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidSource, "source contains invalid control characters")
		}
	}
	return nil
}

// ValidateURL checks that a URL uses http or https.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}
	return nil
}

// ValidatePath checks a relative path inside a served directory, rejecting
// absolute paths and traversal.
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}
	for _, r := range path {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}
	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}
	if slices.Contains(strings.Split(path, "/"), "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}
	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}
	return nil
}

// ValidateIndex checks that index addresses one of count elements.
func ValidateIndex(index, count int) error {
	if index < 0 || index >= count {
		return New(ErrCodeIndexOutOfRange, "index %d out of range [0, %d)", index, count)
	}
	return nil
}
