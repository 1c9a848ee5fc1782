// SPDX-License-Identifier: MPL-2.0

package patch

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrInvalidRule is the sentinel error wrapped by InvalidRuleError.
var ErrInvalidRule = errors.New("invalid patch rule")

type (
	// Rule is one idempotent, conditional text substitution.
	Rule struct {
		// Name labels the rule in logs and reports. Optional.
		Name string `json:"name,omitempty"`
		// Target is the file to patch, relative to the module source directory.
		Target string `json:"target"`
		// Match selects the modules the rule applies to.
		Match Predicate `json:"match"`
		// Find is the exact text to remove or replace.
		Find string `json:"find"`
		// Replace is written in place of every occurrence of Find.
		Replace string `json:"replace"`
		// Namespace, when set, becomes the namespace override of every
		// matching module.
		Namespace string `json:"namespace,omitempty"`
		// RequiresPlugin restricts the rule to modules whose merged plugin
		// list contains this plugin id.
		RequiresPlugin string `json:"requires_plugin,omitempty"`
	}

	// InvalidRuleError is returned when a Rule cannot be applied safely.
	InvalidRuleError struct {
		Rule        string
		FieldErrors []error
	}
)

// Label returns the rule name, or a description derived from its target and
// predicate when unnamed.
func (r Rule) Label() string {
	if r.Name != "" {
		return r.Name
	}
	return fmt.Sprintf("%s (%s)", r.Target, r.Match)
}

// Validate checks the rule's predicate and target, and rejects rules that
// could never converge.
func (r Rule) Validate() error {
	var errs []error
	if err := r.Match.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := validateTarget(r.Target); err != nil {
		errs = append(errs, err)
	}
	if r.Find == "" {
		errs = append(errs, errors.New("find text must be non-empty"))
	} else if strings.Contains(r.Replace, r.Find) {
		// Replace containing Find would reintroduce the text on every run.
		errs = append(errs, errors.New("replace text must not contain the find text"))
	}
	if len(errs) > 0 {
		return &InvalidRuleError{Rule: r.Label(), FieldErrors: errs}
	}
	return nil
}

// targetPath joins the rule target to a module source directory.
func (r Rule) targetPath(sourceDir string) string {
	return filepath.Join(sourceDir, filepath.FromSlash(r.Target))
}

func validateTarget(target string) error {
	if strings.TrimSpace(target) == "" {
		return errors.New("target must be non-empty")
	}
	native := filepath.FromSlash(target)
	if filepath.IsAbs(native) {
		return fmt.Errorf("target %q must be relative to the module directory", target)
	}
	cleaned := filepath.Clean(native)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return fmt.Errorf("target %q escapes the module directory", target)
	}
	return nil
}

// Error implements the error interface for InvalidRuleError.
func (e *InvalidRuleError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid patch rule %s: %s", e.Rule, strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidRule for errors.Is() compatibility.
func (e *InvalidRuleError) Unwrap() error { return ErrInvalidRule }
