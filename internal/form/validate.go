// internal/form/validate.go
//
// Lead forms: whole-form validation and sanitization.
//
// Context
//   The front end posts camelCase JSON.  This file runs every field of the
//   form definition through its validator, collecting all failures instead of
//   stopping at the first so the UI can mark every bad field at once.  The
//   sanitized value of every field is kept even when it fails.
//
// Workflow
//   •  ValidateForm walks the FieldDefs and dispatches on Kind.
//   •  Optional selects absent from the input are skipped, or take their
//      default when one is declared.
//   •  Per-form extra checks (buyer, seller) append to the same error list
//      with the same {field, message} shape.
//   •  Valid is true iff the error list is empty.
//
// Style
//   Full sentences, two spaces after periods, Oxford commas.
//
//------------------------------------------------------------------------------

package form

import (
	"errors"
	"fmt"

	"github.com/yanizio/leadsite/internal/sanitize"
)

// ErrUnknownForm is returned for a form ID that is not registered.
var ErrUnknownForm = errors.New("form: unknown form")

// -----------------------------------------------------------------------------
// Types
// -----------------------------------------------------------------------------

// ValidationError is one field-level failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// SanitizedFormData maps field name to its cleaned value: a string, or a
// []string for multi-select fields.
type SanitizedFormData map[string]any

// Input is a decoded request body.  Values are strings, string slices, or
// scalars that are formatted as strings.
type Input map[string]any

// Result is the outcome of validating one submission.
type Result struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors"`
	Data   SanitizedFormData `json:"data"`
}

// Add appends a field error and marks the result invalid.
func (r *Result) Add(field, message string) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: message})
	r.Valid = false
}

// ErrorFor returns the first message recorded for field, or "".
func (r *Result) ErrorFor(field string) string {
	for _, e := range r.Errors {
		if e.Field == field {
			return e.Message
		}
	}
	return ""
}

// Check is an extra per-form rule run after the field validators.
type Check func(in Input, res *Result)

var extraChecks = map[string]Check{
	"buyer":  buyerChecks,
	"seller": sellerChecks,
}

// -----------------------------------------------------------------------------
// Public API
// -----------------------------------------------------------------------------

// ValidateContactForm validates the built-in contact form.
func ValidateContactForm(in Input) Result {
	fd, ok := MustBuiltin().Get("contact")
	if !ok {
		panic("form: contact definition missing")
	}
	return ValidateForm(fd, in)
}

// Validate looks up id in r and runs ValidateForm plus the form's extra
// checks.
func (r *Registry) Validate(id string, in Input) (Result, error) {
	fd, ok := r.Get(id)
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownForm, id)
	}
	return ValidateForm(fd, in), nil
}

// ValidateForm validates in against fd, then appends the extra checks
// registered for fd.ID.
func ValidateForm(fd *FormDef, in Input) Result {
	res := Result{Valid: true, Data: make(SanitizedFormData, len(fd.Fields))}

	for i := range fd.Fields {
		f := &fd.Fields[i]

		if f.Kind == KindMultiSelect {
			validateMultiField(f, in, &res)
			continue
		}

		raw, present := in.str(f.Name)
		empty := !present || sanitize.Sanitize(raw) == ""

		if f.Kind == KindSelect && empty && !f.Required {
			if f.Default != "" {
				res.Data[f.Name] = f.Default
			}
			continue
		}

		fr := checkField(f, raw)
		res.Data[f.Name] = fr.Sanitized

		if empty {
			if f.Required {
				res.Add(f.Name, requiredMsg(f, fr))
			}
			continue
		}
		if !fr.Valid {
			res.Add(f.Name, fr.Message)
		}
	}

	if check, ok := extraChecks[fd.ID]; ok {
		check(in, &res)
	}
	return res
}

// -----------------------------------------------------------------------------
// Field dispatch
// -----------------------------------------------------------------------------

func checkField(f *FieldDef, raw string) FieldResult {
	switch f.Kind {
	case KindName:
		return ValidateName(raw)
	case KindEmail:
		return ValidateEmail(raw)
	case KindPhone:
		return ValidatePhone(raw)
	case KindMessage:
		return ValidateMessage(raw)
	case KindCompany:
		return ValidateCompany(raw)
	case KindSelect:
		return ValidateSelect(raw, f.Allowed())
	default:
		return ValidateText(raw, f.Max)
	}
}

func validateMultiField(f *FieldDef, in Input, res *Result) {
	vals, _ := in.strs(f.Name)
	clean, msg := validateMulti(vals, f.Allowed())
	res.Data[f.Name] = clean
	switch {
	case msg != "":
		res.Add(f.Name, msg)
	case f.Required && len(clean) == 0:
		res.Add(f.Name, "Please select at least one option.")
	}
}

// requiredMsg prefers the validator's own message for an empty value and
// falls back to a label-based one.
func requiredMsg(f *FieldDef, fr FieldResult) string {
	if !fr.Valid && fr.Message != "" {
		return fr.Message
	}
	return f.Label + " is required."
}

// -----------------------------------------------------------------------------
// Extra checks
// -----------------------------------------------------------------------------

func buyerChecks(_ Input, res *Result) {
	if s, _ := res.Data["investmentRange"].(string); s == "" && res.ErrorFor("investmentRange") == "" {
		res.Add("investmentRange", "Please select an investment range.")
	}
	if v, _ := res.Data["propertyTypes"].([]string); len(v) == 0 && res.ErrorFor("propertyTypes") == "" {
		res.Add("propertyTypes", "Please select at least one property type.")
	}
}

func sellerChecks(_ Input, res *Result) {
	if s, _ := res.Data["propertyAddress"].(string); s == "" && res.ErrorFor("propertyAddress") == "" {
		res.Add("propertyAddress", "Please enter the property address.")
	}
}

// -----------------------------------------------------------------------------
// Input access
// -----------------------------------------------------------------------------

// str returns a single value.  The first element of a list is used.
func (in Input) str(name string) (string, bool) {
	v, ok := in[name]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case []string:
		if len(t) == 0 {
			return "", false
		}
		return t[0], true
	case []any:
		if len(t) == 0 {
			return "", false
		}
		return fmt.Sprint(t[0]), true
	default:
		return fmt.Sprint(t), true
	}
}

// strs returns a list value.  A single string becomes a one-element list.
func (in Input) strs(name string) ([]string, bool) {
	v, ok := in[name]
	if !ok || v == nil {
		return nil, false
	}
	switch t := v.(type) {
	case []string:
		return t, true
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if e == nil {
				continue
			}
			out = append(out, fmt.Sprint(e))
		}
		return out, true
	case string:
		return []string{t}, true
	default:
		return []string{fmt.Sprint(t)}, true
	}
}

// Keys lists the field names present in the input, used by the
// sensitive-payload check.
func (in Input) Keys() []string {
	out := make([]string, 0, len(in))
	for k := range in {
		out = append(out, k)
	}
	return out
}
