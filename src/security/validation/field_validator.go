package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

var ErrValidationFailed = fmt.Errorf("validation failed")

const (
	DefaultMaxStringLength = 255
	MaxItemNameLength      = 100
	MaxUsernameLength      = 50
)

// ValidateStringNotEmpty checks if a string is not empty after trimming.
func ValidateStringNotEmpty(s, fieldName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrValidationFailed, fieldName)
	}
	return nil
}

// ValidateStringMaxLength checks if a string's UTF-8 character count is within max bounds.
func ValidateStringMaxLength(s string, maxLength int, fieldName string) error {
	if utf8.RuneCountInString(s) > maxLength {
		return fmt.Errorf("%w: %s exceeds maximum length of %d characters", ErrValidationFailed, fieldName, maxLength)
	}
	return nil
}

// ValidatePositive checks that an amount is strictly greater than zero.
// Buy quantities and per-unit prices are rejected here, before any store
// mutation or upstream call happens.
func ValidatePositive(v int64, fieldName string) error {
	if v <= 0 {
		return fmt.Errorf("%w: %s must be a positive number", ErrValidationFailed, fieldName)
	}
	return nil
}

// ValidateAlertCondition checks an alert direction keyword.
func ValidateAlertCondition(condition string) error {
	if condition != "above" && condition != "below" {
		return fmt.Errorf("%w: condition must be 'above' or 'below'", ErrValidationFailed)
	}
	return nil
}
