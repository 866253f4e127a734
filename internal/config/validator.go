// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `internal/config/loader.go` calls `validateStruct` once defaults are
// applied.  Any tag mismatch or validation error aborts startup, so the
// binary never runs with partial, malformed, or missing configuration.
//
// Rules in use: `required`, `required_if`, `oneof`, `hostname_port`,
// `cidr|ip`, `email`, and `url`.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

//
// validator instance (package-level singleton)
//

var v = validator.New()

//
// public API
//

// validateStruct returns nil on success, or one error naming every field
// that failed.
func validateStruct(c *Config) error {
	err := v.Struct(c)
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	msgs := make([]string, 0, len(ves))
	for _, fe := range ves {
		msgs = append(msgs, fmt.Sprintf("%s fails %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("config: %s", strings.Join(msgs, "; "))
}
