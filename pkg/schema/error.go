// Package schema defines the error returned when an input record does not
// match the typed shape expected at a parse boundary.
package schema

import (
	"fmt"
	"strings"

	"emperror.dev/errors"
)

// Error reports a missing or malformed field in an input record.
type Error struct {
	// Source names the input being parsed (file name, "stdin", ...). Optional.
	Source string
	// Path is the location of the offending field, outermost key first.
	Path []string
	// Reason describes what is wrong with the field.
	Reason string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("schema error")
	if e.Source != "" {
		fmt.Fprintf(&b, " in %s", e.Source)
	}
	if len(e.Path) > 0 {
		fmt.Fprintf(&b, " at %s", strings.Join(e.Path, "."))
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	return b.String()
}

// Missing returns an Error for a required field that is absent.
func Missing(path ...string) *Error {
	return &Error{Path: path, Reason: "required field is missing"}
}

// Invalid returns an Error for a field whose value cannot be used.
func Invalid(reason string, path ...string) *Error {
	return &Error{Path: path, Reason: reason}
}

// WithSource sets the source of err when it is a schema error without one.
// Other errors are returned unchanged.
func WithSource(err error, source string) error {
	var se *Error
	if errors.As(err, &se) && se.Source == "" {
		se.Source = source
	}
	return err
}

// Is reports whether err is, or wraps, a schema Error.
func Is(err error) bool {
	var se *Error
	return errors.As(err, &se)
}
