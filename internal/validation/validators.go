// File: internal/validation/validators.go
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Result is what every validator returns. Message is empty when Valid is true.
type Result struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

func ok() Result { return Result{Valid: true} }

func fail(format string, args ...interface{}) Result {
	return Result{Valid: false, Message: fmt.Sprintf(format, args...)}
}

const (
	MaxEmailLength    = 254
	MinPasswordLength = 8
	MaxPasswordLength = 128
	MinNameLength     = 2
	MaxNameLength     = 50
	MaxBioLength      = 500
	DateLayout        = "2006-01-02"
)

var (
	javascriptScheme = regexp.MustCompile(`(?i)javascript:`)
	eventHandler     = regexp.MustCompile(`(?i)on\w+=`)

	emailPattern = regexp.MustCompile("^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+@" +
		`[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)+$`)
	phonePattern    = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
	phoneFormatting = regexp.MustCompile(`[\s()\-]`)
	datePattern     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	namePattern     = regexp.MustCompile(`^[\p{L} '\-]+$`)
)

// Sanitize trims the input and strips angle brackets, javascript: schemes and
// inline event handler tokens. Stripping can splice a new token together
// ("oonclick=nclick=" leaves "onclick="), so the pass repeats until nothing changes.
func Sanitize(text string) string {
	for {
		next := sanitizePass(text)
		if next == text {
			return next
		}
		text = next
	}
}

func sanitizePass(text string) string {
	text = strings.TrimSpace(text)
	text = strings.NewReplacer("<", "", ">", "").Replace(text)
	text = javascriptScheme.ReplaceAllString(text, "")
	text = eventHandler.ReplaceAllString(text, "")
	return text
}

func ValidateEmail(email string) Result {
	email = Sanitize(email)
	if email == "" {
		return fail("Email is required")
	}
	if len(email) > MaxEmailLength {
		return fail("Email is too long")
	}
	if !emailPattern.MatchString(email) {
		return fail("Please enter a valid email address")
	}
	return ok()
}

// ValidatePassword checks the rules in a fixed order and reports the first failure.
// Passwords are never sanitized; every character is significant.
func ValidatePassword(password string) Result {
	n := utf8.RuneCountInString(password)
	switch {
	case password == "":
		return fail("Password is required")
	case n < MinPasswordLength:
		return fail("Password must be at least %d characters", MinPasswordLength)
	case n > MaxPasswordLength:
		return fail("Password must be at most %d characters", MaxPasswordLength)
	case !strings.ContainsFunc(password, unicode.IsUpper):
		return fail("Password must contain at least one uppercase letter")
	case !strings.ContainsFunc(password, unicode.IsLower):
		return fail("Password must contain at least one lowercase letter")
	case !strings.ContainsFunc(password, unicode.IsDigit):
		return fail("Password must contain at least one number")
	}
	return ok()
}

// NormalizePhoneNumber removes the formatting characters users type between digits.
func NormalizePhoneNumber(phone string) string {
	return phoneFormatting.ReplaceAllString(phone, "")
}

func ValidatePhoneNumber(phone string) Result {
	phone = NormalizePhoneNumber(phone)
	if phone == "" {
		return fail("Phone number is required")
	}
	if !phonePattern.MatchString(phone) {
		return fail("Please enter a valid phone number")
	}
	return ok()
}

// ValidateDate checks a YYYY-MM-DD calendar date that is not after today.
func ValidateDate(date string) Result {
	return ValidateDateAt(date, time.Now())
}

// ValidateDateAt is ValidateDate with an explicit "today".
func ValidateDateAt(date string, now time.Time) Result {
	date = strings.TrimSpace(date)
	if date == "" {
		return fail("Date is required")
	}
	if !datePattern.MatchString(date) {
		return fail("Please use the YYYY-MM-DD format")
	}
	parsed, err := time.ParseInLocation(DateLayout, date, now.Location())
	if err != nil {
		return fail("Please enter a valid date")
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if parsed.After(today) {
		return fail("Date cannot be in the future")
	}
	return ok()
}

func ValidateRequired(value, label string) Result {
	if strings.TrimSpace(value) == "" {
		return fail("%s is required", label)
	}
	return ok()
}

func ValidateMinLength(value string, min int, label string) Result {
	if utf8.RuneCountInString(strings.TrimSpace(value)) < min {
		return fail("%s must be at least %d characters", label, min)
	}
	return ok()
}

func ValidateMaxLength(value string, max int, label string) Result {
	if utf8.RuneCountInString(strings.TrimSpace(value)) > max {
		return fail("%s must be at most %d characters", label, max)
	}
	return ok()
}

func ValidateName(name string) Result {
	return ValidateNameField(name, "Name")
}

// ValidateNameField is ValidateName with a caller-chosen label, e.g. "First name".
func ValidateNameField(name, label string) Result {
	name = Sanitize(name)
	if r := ValidateRequired(name, label); !r.Valid {
		return r
	}
	if r := ValidateMinLength(name, MinNameLength, label); !r.Valid {
		return r
	}
	if r := ValidateMaxLength(name, MaxNameLength, label); !r.Valid {
		return r
	}
	if !namePattern.MatchString(name) {
		return fail("%s can only contain letters, spaces, hyphens and apostrophes", label)
	}
	return ok()
}
