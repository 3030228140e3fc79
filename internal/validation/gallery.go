package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MaxTitleLength   = 100
	MaxAuthorLength  = 30
	MaxContentLength = 5000
)

// ValidateTitle requires a non-blank title of bounded length.
func ValidateTitle(title string) error {
	t := strings.TrimSpace(title)
	if t == "" {
		return fmt.Errorf("title is required")
	}
	if utf8.RuneCountInString(t) > MaxTitleLength {
		return fmt.Errorf("title must not exceed %d characters", MaxTitleLength)
	}
	return nil
}

// ValidateAuthorName requires a non-blank author nickname of bounded length.
func ValidateAuthorName(name string) error {
	n := strings.TrimSpace(name)
	if n == "" {
		return fmt.Errorf("author name is required")
	}
	if utf8.RuneCountInString(n) > MaxAuthorLength {
		return fmt.Errorf("author name must not exceed %d characters", MaxAuthorLength)
	}
	return nil
}

// ValidateContent bounds the optional post description.
func ValidateContent(content string) error {
	if utf8.RuneCountInString(content) > MaxContentLength {
		return fmt.Errorf("content must not exceed %d characters", MaxContentLength)
	}
	return nil
}
