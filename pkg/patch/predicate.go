// SPDX-License-Identifier: MPL-2.0

package patch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrInvalidPredicate is the sentinel error wrapped by InvalidPredicateError.
var ErrInvalidPredicate = errors.New("invalid predicate")

type (
	// Predicate selects modules by name. Exactly one field must be set.
	Predicate struct {
		// Equals matches a module whose name is exactly this value.
		Equals string `json:"equals,omitempty"`
		// Pattern matches module names against a doublestar glob ("flutter_*").
		Pattern string `json:"pattern,omitempty"`
		// Contains matches module names containing this substring.
		Contains string `json:"contains,omitempty"`
	}

	// InvalidPredicateError is returned when a Predicate sets zero or several
	// fields, or carries a malformed glob.
	InvalidPredicateError struct {
		Predicate Predicate
		Reason    string
	}
)

// Validate checks that exactly one matcher is set and that a pattern is
// well-formed.
func (p Predicate) Validate() error {
	set := 0
	for _, v := range []string{p.Equals, p.Pattern, p.Contains} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return &InvalidPredicateError{Predicate: p, Reason: fmt.Sprintf("exactly one of equals, pattern, contains must be set (got %d)", set)}
	}
	if p.Pattern != "" && !doublestar.ValidatePattern(p.Pattern) {
		return &InvalidPredicateError{Predicate: p, Reason: fmt.Sprintf("malformed pattern %q", p.Pattern)}
	}
	return nil
}

// Matches reports whether the module name satisfies the predicate.
// An invalid predicate matches nothing.
func (p Predicate) Matches(name string) bool {
	switch {
	case p.Equals != "":
		return name == p.Equals
	case p.Pattern != "":
		ok, err := doublestar.Match(p.Pattern, name)
		return err == nil && ok
	case p.Contains != "":
		return strings.Contains(name, p.Contains)
	default:
		return false
	}
}

// String renders the predicate for logs ("equals app").
func (p Predicate) String() string {
	switch {
	case p.Equals != "":
		return "equals " + p.Equals
	case p.Pattern != "":
		return "pattern " + p.Pattern
	case p.Contains != "":
		return "contains " + p.Contains
	default:
		return "<empty>"
	}
}

// Error implements the error interface for InvalidPredicateError.
func (e *InvalidPredicateError) Error() string {
	return fmt.Sprintf("invalid predicate: %s", e.Reason)
}

// Unwrap returns ErrInvalidPredicate for errors.Is() compatibility.
func (e *InvalidPredicateError) Unwrap() error { return ErrInvalidPredicate }
