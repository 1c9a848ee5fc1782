// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidModuleName is the sentinel error wrapped by InvalidModuleNameError.
var ErrInvalidModuleName = errors.New("invalid module name")

type (
	// ModuleName identifies one buildable unit in the project tree.
	// A valid name is a single path element: non-empty, not "." or "..",
	// and free of path separators, ':' and surrounding whitespace. These
	// rules keep root/<name> a strict descendant of the output root.
	ModuleName string

	// InvalidModuleNameError is returned when a ModuleName violates the
	// naming rules.
	InvalidModuleNameError struct {
		Value  ModuleName
		Reason string
	}
)

// String returns the string representation of the ModuleName.
func (n ModuleName) String() string { return string(n) }

// Validate returns an error if the ModuleName cannot be used as a single
// directory name below the output root.
func (n ModuleName) Validate() error {
	s := string(n)
	switch {
	case s == "":
		return &InvalidModuleNameError{Value: n, Reason: "must be non-empty"}
	case strings.TrimSpace(s) != s:
		return &InvalidModuleNameError{Value: n, Reason: "must not have leading or trailing whitespace"}
	case s == "." || s == "..":
		return &InvalidModuleNameError{Value: n, Reason: "must not be a relative path element"}
	case strings.ContainsAny(s, `/\:`):
		return &InvalidModuleNameError{Value: n, Reason: `must not contain '/', '\' or ':'`}
	}
	return nil
}

// Error implements the error interface for InvalidModuleNameError.
func (e *InvalidModuleNameError) Error() string {
	return fmt.Sprintf("invalid module name %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidModuleName for errors.Is() compatibility.
func (e *InvalidModuleNameError) Unwrap() error { return ErrInvalidModuleName }
