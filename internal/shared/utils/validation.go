package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// String length limits for editable instance properties
const (
	MaxNameLength    = 256
	MaxGroupLength   = 256
	MaxIconKeyLength = 128
	MaxNotesLength   = 16 * 1024
)

// IconKeyPattern allows alphanumeric, dots, hyphens, and underscores
var IconKeyPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// ValidateString validates a string field with length and content checks.
// A required field must contain something other than whitespace.
func ValidateString(value, fieldName string, minLen, maxLen int, required bool) error {
	if required && strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", fieldName)
	}

	if value == "" && !required {
		return nil
	}

	length := utf8.RuneCountInString(value)
	if length < minLen {
		return fmt.Errorf("%s must be at least %d characters", fieldName, minLen)
	}
	if length > maxLen {
		return fmt.Errorf("%s must not exceed %d characters", fieldName, maxLen)
	}

	if strings.Contains(value, "\x00") {
		return fmt.Errorf("%s contains invalid characters", fieldName)
	}
	if !utf8.ValidString(value) {
		return fmt.Errorf("%s is not valid UTF-8", fieldName)
	}

	return nil
}

// ValidateName validates an instance display name
func ValidateName(name string) error {
	return ValidateString(name, "name", 1, MaxNameLength, true)
}

// ValidateGroup validates a group name; empty means ungrouped
func ValidateGroup(group string) error {
	if strings.ContainsAny(group, "\n\r") {
		return fmt.Errorf("group must be a single line")
	}
	return ValidateString(group, "group", 0, MaxGroupLength, false)
}

// ValidateIconKey validates an icon key
func ValidateIconKey(key string) error {
	if err := ValidateString(key, "icon_key", 1, MaxIconKeyLength, true); err != nil {
		return err
	}

	if !IconKeyPattern.MatchString(key) {
		return fmt.Errorf("icon_key contains invalid characters (only alphanumeric, dots, hyphens, and underscores allowed)")
	}

	return nil
}

// ValidateNotes validates free-form notes
func ValidateNotes(notes string) error {
	return ValidateString(notes, "notes", 0, MaxNotesLength, false)
}
