package upload

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError rejects a file before any storage call is made.
type ValidationError struct {
	File   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.File, e.Reason)
}

// Extension returns the lower-cased text after the last dot of name, or "".
func Extension(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 || i == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}

// Validate checks name's extension against the category allow-list and size
// against the category ceiling. It has no side effects.
func Validate(name string, size int64, category Category) error {
	allowed, ceiling, err := category.rules()
	if err != nil {
		return &ValidationError{File: name, Reason: err.Error()}
	}

	ext := Extension(name)
	if !slices.Contains(allowed, ext) {
		return &ValidationError{
			File:   name,
			Reason: "file type not allowed, expected one of: " + strings.Join(allowed, ", "),
		}
	}
	if size > ceiling {
		return &ValidationError{
			File:   name,
			Reason: fmt.Sprintf("file too large (max %d bytes)", ceiling),
		}
	}
	return nil
}

// ValidateAll runs Validate over items and returns every failure.
func ValidateAll(items []Item) []*ValidationError {
	var errs []*ValidationError
	for _, it := range items {
		if err := Validate(it.Name, it.Size, it.Category); err != nil {
			errs = append(errs, err.(*ValidationError))
		}
	}
	return errs
}
