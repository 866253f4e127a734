// internal/form/fields.go
//
// Per-field validators.
//
// Every validator sanitizes first, then checks, and always returns the
// sanitized value so the UI can re-render cleaned text even when the value
// is rejected.  None of them panic or return Go errors.

package form

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/yanizio/leadsite/internal/sanitize"
)

// Length bounds, counted in characters.
const (
	NameMin    = 2
	NameMax    = 100
	EmailMax   = 255
	PhoneMin   = 10
	PhoneMax   = 15
	MessageMin = 10
	MessageMax = 2000
	CompanyMax = 200
	TextMaxDef = 500
)

// FieldResult is the outcome of one field check.
type FieldResult struct {
	Valid     bool
	Message   string // set when Valid is false
	Sanitized string
}

var (
	nameRe = regexp.MustCompile(`^[\p{L}\s'\-]+$`)

	// RFC 5322-like: local part of atext and dots, domain of labels, TLD of
	// two or more letters.
	emailRe = regexp.MustCompile(`^[a-z0-9!#$%&'*+/=?^_` + "`" + `{|}~-]+(?:\.[a-z0-9!#$%&'*+/=?^_` + "`" + `{|}~-]+)*@(?:[a-z0-9](?:[a-z0-9-]*[a-z0-9])?\.)+[a-z]{2,}$`)

	validate = validator.New()
)

func ok(s string) FieldResult { return FieldResult{Valid: true, Sanitized: s} }

func bad(s, msg string) FieldResult { return FieldResult{Message: msg, Sanitized: s} }

// ValidateName checks a first or last name.
func ValidateName(raw string) FieldResult {
	s := sanitize.Sanitize(raw)
	n := utf8.RuneCountInString(s)
	switch {
	case n == 0:
		return bad(s, "Name is required.")
	case n < NameMin:
		return bad(s, fmt.Sprintf("Name must be at least %d characters.", NameMin))
	case n > NameMax:
		return bad(s, fmt.Sprintf("Name must be %d characters or fewer.", NameMax))
	case !nameRe.MatchString(s):
		return bad(s, "Name can only contain letters, spaces, hyphens, and apostrophes.")
	}
	return ok(s)
}

// ValidateEmail checks and lower-cases an email address.
func ValidateEmail(raw string) FieldResult {
	s := strings.ToLower(sanitize.Sanitize(raw))
	switch {
	case s == "":
		return bad(s, "Email is required.")
	case len(s) > EmailMax:
		return bad(s, "Email address is too long.")
	case !emailRe.MatchString(s) || validate.Var(s, "email") != nil:
		return bad(s, "Please enter a valid email address.")
	}
	return ok(s)
}

// ValidatePhone reduces a phone number to its digits.  Empty is valid.
func ValidatePhone(raw string) FieldResult {
	s := sanitize.Sanitize(raw)
	if s == "" {
		return ok("")
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
	if n := len(digits); n < PhoneMin || n > PhoneMax {
		return bad(digits, fmt.Sprintf("Please enter a valid phone number (%d to %d digits).", PhoneMin, PhoneMax))
	}
	return ok(digits)
}

// ValidateMessage checks free-text message length.
func ValidateMessage(raw string) FieldResult {
	s := sanitize.Sanitize(raw)
	n := utf8.RuneCountInString(s)
	switch {
	case n < MessageMin:
		return bad(s, fmt.Sprintf("Message must be at least %d characters.", MessageMin))
	case n > MessageMax:
		return bad(s, fmt.Sprintf("Message must be %d characters or fewer.", MessageMax))
	}
	return ok(s)
}

// ValidateCompany checks an optional company name.
func ValidateCompany(raw string) FieldResult {
	s := sanitize.Sanitize(raw)
	if utf8.RuneCountInString(s) > CompanyMax {
		return bad(s, fmt.Sprintf("Company name must be %d characters or fewer.", CompanyMax))
	}
	return ok(s)
}

// ValidateSelect checks an optional enumerated value against allowed.
func ValidateSelect(raw string, allowed []string) FieldResult {
	s := sanitize.Sanitize(raw)
	if s == "" || contains(allowed, s) {
		return ok(s)
	}
	return bad(s, "Please select a valid option.")
}

// ValidateText checks generic free text against max characters.
func ValidateText(raw string, max int) FieldResult {
	if max <= 0 {
		max = TextMaxDef
	}
	s := sanitize.Sanitize(raw)
	if utf8.RuneCountInString(s) > max {
		return bad(s, fmt.Sprintf("Must be %d characters or fewer.", max))
	}
	return ok(s)
}

// validateMulti checks each value of a multi-select.  Empty entries are
// dropped and duplicates collapsed.
func validateMulti(raw []string, allowed []string) ([]string, string) {
	out := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	msg := ""
	for _, r := range raw {
		s := sanitize.Sanitize(r)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
		if !contains(allowed, s) {
			msg = "Please select valid options."
		}
	}
	return out, msg
}
