package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hyperengineering/ascend/internal/ledger"
	"github.com/hyperengineering/ascend/internal/types"
)

// MaxHabitNameLength bounds habit names in runes.
const MaxHabitNameLength = 100

// ValidationError represents a single field validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Collector accumulates validation errors without failing on first.
type Collector struct {
	errors []ValidationError
}

// Add appends a validation error to the collector if non-nil.
func (c *Collector) Add(err *ValidationError) {
	if err != nil {
		c.errors = append(c.errors, *err)
	}
}

// HasErrors returns true if the collector has accumulated any errors.
func (c *Collector) HasErrors() bool {
	return len(c.errors) > 0
}

// Errors returns all accumulated validation errors.
func (c *Collector) Errors() []ValidationError {
	return c.errors
}

// ValidateUTF8 returns an error if the value is not valid UTF-8.
func ValidateUTF8(field, value string) *ValidationError {
	if !utf8.ValidString(value) {
		return &ValidationError{
			Field:   field,
			Message: "must be valid UTF-8",
		}
	}
	return nil
}

// ValidateNoNullBytes returns an error if the value contains null bytes.
func ValidateNoNullBytes(field, value string) *ValidationError {
	if strings.Contains(value, "\x00") {
		return &ValidationError{
			Field:   field,
			Message: "must not contain null bytes",
		}
	}
	return nil
}

// ValidateMaxLength returns an error if the value exceeds max runes.
func ValidateMaxLength(field, value string, max int) *ValidationError {
	if utf8.RuneCountInString(value) > max {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("exceeds maximum length of %d characters", max),
		}
	}
	return nil
}

// ValidateULID returns an error if the value is not a valid ULID format.
// ULIDs are 26 characters using Crockford Base32 (excludes I, L, O, U).
func ValidateULID(field, value string) *ValidationError {
	if len(value) != 26 {
		return &ValidationError{
			Field:   field,
			Message: "must be a valid ULID (26 characters)",
		}
	}

	const crockfordBase32 = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"
	for _, r := range value {
		upper := strings.ToUpper(string(r))
		if !strings.Contains(crockfordBase32, upper) {
			return &ValidationError{
				Field:   field,
				Message: "must be a valid ULID (invalid character)",
			}
		}
	}
	return nil
}

// ValidateUUID returns an error if the value is not a UUID. User IDs come
// from the auth provider in this form.
func ValidateUUID(field, value string) *ValidationError {
	if _, err := uuid.Parse(value); err != nil {
		return &ValidationError{
			Field:   field,
			Message: "must be a valid UUID",
		}
	}
	return nil
}

// ValidateRequired returns an error if the value is empty or whitespace-only.
func ValidateRequired(field, value string) *ValidationError {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{
			Field:   field,
			Message: "is required",
		}
	}
	return nil
}

// ValidateEnum returns an error if the value is not in the allowed list.
func ValidateEnum(field, value string, allowed []string) *ValidationError {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}
}

// ValidateRange returns an error if the value is outside [min, max].
func ValidateRange(field string, value, min, max int) *ValidationError {
	if value < min || value > max {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be between %d and %d", min, max),
		}
	}
	return nil
}

// ValidateDate returns an error if the value is not a YYYY-MM-DD date.
func ValidateDate(field, value string) *ValidationError {
	if _, err := types.ParseDate(value); err != nil {
		return &ValidationError{
			Field:   field,
			Message: "must be a date in YYYY-MM-DD form",
		}
	}
	return nil
}

// ValidateDelta returns an error if a signed XP or HP change is out of bounds.
func ValidateDelta(field string, delta int) *ValidationError {
	return ValidateRange(field, delta, -ledger.MaxDelta, ledger.MaxDelta)
}

// ValidateCreateHabitRequest checks every field of req.
func ValidateCreateHabitRequest(req types.CreateHabitRequest) []ValidationError {
	var c Collector
	c.Add(ValidateRequired("name", req.Name))
	c.Add(ValidateUTF8("name", req.Name))
	c.Add(ValidateNoNullBytes("name", req.Name))
	c.Add(ValidateMaxLength("name", req.Name, MaxHabitNameLength))
	for i, d := range req.FrequencyDays {
		c.Add(ValidateRange(fmt.Sprintf("frequency_days[%d]", i), d, 0, 6))
	}
	c.Add(ValidateRange("xp_reward", req.XPReward, 0, 1000))
	return c.Errors()
}

// ValidateHabitStatusRequest checks the status a user may set. An empty
// status clears the entry; missed is reserved for reconciliation.
func ValidateHabitStatusRequest(req types.HabitStatusRequest) []ValidationError {
	if req.Status == "" {
		return nil
	}
	var c Collector
	c.Add(ValidateEnum("status", req.Status, []string{
		string(types.StatusCompleted),
		string(types.StatusPartial),
		string(types.StatusSkipped),
	}))
	return c.Errors()
}

// ValidateOpenAppRequest checks the optional date.
func ValidateOpenAppRequest(req types.OpenAppRequest) []ValidationError {
	if req.Date == "" {
		return nil
	}
	var c Collector
	c.Add(ValidateDate("date", req.Date))
	return c.Errors()
}
