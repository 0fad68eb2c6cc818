package validation

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"loot-tracker-api/internal/models"
)

// ExpiryDateLayout is the calendar-date encoding used on offers.
const ExpiryDateLayout = "2006-01-02"

// ValidationError reports bad user input on a named field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// InvalidDateFormatError reports an offer expiry date that does not parse as
// YYYY-MM-DD. It is a hard error: such an offer must never be silently
// included in or excluded from a filtered result.
type InvalidDateFormatError struct {
	Value string
}

func (e *InvalidDateFormatError) Error() string {
	return fmt.Sprintf("invalid expiry date format: %q (want YYYY-MM-DD)", e.Value)
}

// ParseExpiryDate parses an offer expiry date at midnight local time.
func ParseExpiryDate(s string) (time.Time, error) {
	t, err := time.Parse(ExpiryDateLayout, s)
	if err != nil {
		return time.Time{}, &InvalidDateFormatError{Value: s}
	}
	return t, nil
}

// SanitizeString strips control characters (except common whitespace) and
// trims surrounding spaces.
func SanitizeString(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)

	return strings.TrimSpace(s)
}

// ValidateCard checks a card registration. Only the length of the suffix is
// enforced; a non-numeric 4-character suffix is accepted, matching the
// product's length-only rule.
func ValidateCard(bank models.Bank, lastFour string) error {
	if !models.KnownBank(bank) {
		return &ValidationError{
			Field:   "bank",
			Message: fmt.Sprintf("unknown bank %q", string(bank)),
		}
	}

	if len([]rune(lastFour)) != 4 {
		return &ValidationError{
			Field:   "lastFour",
			Message: "must be exactly 4 characters",
		}
	}

	return nil
}

// ValidateDraft checks an offer-like record coming back from the AI
// collaborator before it may enter the store.
func ValidateDraft(d models.OfferDraft) error {
	if !models.KnownBank(d.Bank) {
		return &ValidationError{
			Field:   "bank",
			Message: fmt.Sprintf("unknown bank %q", string(d.Bank)),
		}
	}

	if strings.TrimSpace(d.Title) == "" {
		return &ValidationError{
			Field:   "title",
			Message: "is required",
		}
	}

	if !models.KnownCategory(d.Category) {
		return &ValidationError{
			Field:   "category",
			Message: fmt.Sprintf("unknown category %q", string(d.Category)),
		}
	}

	if _, err := ParseExpiryDate(d.ExpiryDate); err != nil {
		return &ValidationError{
			Field:   "expiryDate",
			Message: err.Error(),
		}
	}

	if d.EstimatedValue < 0 {
		return &ValidationError{
			Field:   "estimatedValue",
			Message: "must be non-negative",
		}
	}

	return nil
}
