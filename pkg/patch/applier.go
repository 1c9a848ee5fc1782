// SPDX-License-Identifier: MPL-2.0

package patch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/layerbuild/layerbuild/pkg/types"
)

const (
	// StateUnchecked is the initial state of a (module, rule) pair.
	StateUnchecked State = iota
	// StateNotApplicable means the target file does not exist.
	StateNotApplicable
	// StateAlreadyPatched means the file no longer contains the find text.
	StateAlreadyPatched
	// StatePatched means the find text was replaced and the file rewritten.
	StatePatched
	// StateWouldPatch is reported instead of StatePatched in dry-run mode.
	StateWouldPatch
)

// ErrPatchWrite is the sentinel error wrapped by WriteError.
var ErrPatchWrite = errors.New("patch write failed")

type (
	// State is the terminal state of one (module, rule) pair.
	State int

	// Target is the module-side input of the applier.
	Target struct {
		Name      types.ModuleName
		SourceDir string
		// Plugins is the module's merged plugin list, consulted by
		// Rule.RequiresPlugin.
		Plugins []string
	}

	// Outcome records what happened to one (module, rule) pair.
	Outcome struct {
		Module       types.ModuleName `json:"module"`
		Rule         string           `json:"rule"`
		File         string           `json:"file"`
		State        State            `json:"state"`
		Replacements int              `json:"replacements,omitempty"`
	}

	// Result aggregates all outcomes of one Apply call.
	Result struct {
		Outcomes []Outcome `json:"outcomes"`
		// Namespaces holds the namespace override of each module matched by
		// a rule carrying a namespace.
		Namespaces map[types.ModuleName]string `json:"namespaces,omitempty"`
	}

	// WriteError is returned when a target file exists but cannot be read or
	// rewritten. It aborts the whole run.
	WriteError struct {
		Module types.ModuleName
		Path   string
		Op     string
		Err    error
	}

	// Applier applies patch rules to module source trees.
	Applier struct {
		logger *log.Logger
		dryRun bool
	}

	// Option configures an Applier.
	Option func(*Applier)
)

// WithLogger sets the logger receiving one info event per patched file.
func WithLogger(logger *log.Logger) Option {
	return func(a *Applier) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithDryRun makes the applier report StateWouldPatch without writing.
func WithDryRun(dryRun bool) Option {
	return func(a *Applier) {
		a.dryRun = dryRun
	}
}

// NewApplier creates an Applier. Without WithLogger, events are discarded.
func NewApplier(opts ...Option) *Applier {
	a := &Applier{logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AppliesTo reports whether the rule selects the target: the predicate must
// match its name and, when RequiresPlugin is set, the plugin must be applied.
func (r Rule) AppliesTo(t Target) bool {
	if !r.Match.Matches(string(t.Name)) {
		return false
	}
	return r.RequiresPlugin == "" || slices.Contains(t.Plugins, r.RequiresPlugin)
}

// Apply runs every rule against every matching target, rules in order and
// targets in order within a rule. All rules are validated before the first
// file is touched. The first WriteError aborts the run; outcomes recorded up
// to that point are returned alongside it.
func (a *Applier) Apply(ctx context.Context, targets []Target, rules []Rule) (*Result, error) {
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}

	result := &Result{Namespaces: make(map[types.ModuleName]string)}
	for _, r := range rules {
		for _, t := range targets {
			if !r.AppliesTo(t) {
				continue
			}
			if err := ctx.Err(); err != nil {
				return result, fmt.Errorf("apply patches: %w", err)
			}

			if r.Namespace != "" {
				if prev, ok := result.Namespaces[t.Name]; ok && prev != r.Namespace {
					a.logger.Warn("namespace override replaced", "module", t.Name, "old", prev, "new", r.Namespace)
				}
				result.Namespaces[t.Name] = r.Namespace
			}

			outcome, err := a.ApplyOne(t, r)
			result.Outcomes = append(result.Outcomes, outcome)
			if err != nil {
				return result, err
			}
		}
	}
	return result, nil
}

// ApplyOne moves a single (module, rule) pair out of StateUnchecked. It does
// not evaluate the rule's predicate; callers filter with AppliesTo.
func (a *Applier) ApplyOne(t Target, r Rule) (Outcome, error) {
	path := r.targetPath(t.SourceDir)
	outcome := Outcome{Module: t.Name, Rule: r.Label(), File: path, State: StateUnchecked}

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		outcome.State = StateNotApplicable
		a.logger.Debug("patch target absent", "module", t.Name, "file", path)
		return outcome, nil
	}
	if err != nil {
		return outcome, &WriteError{Module: t.Name, Path: path, Op: "stat", Err: err}
	}
	if info.IsDir() {
		return outcome, &WriteError{Module: t.Name, Path: path, Op: "read", Err: errors.New("target is a directory")}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return outcome, &WriteError{Module: t.Name, Path: path, Op: "read", Err: err}
	}

	find := []byte(r.Find)
	count := bytes.Count(data, find)
	if count == 0 {
		outcome.State = StateAlreadyPatched
		a.logger.Debug("patch already applied", "module", t.Name, "file", path)
		return outcome, nil
	}
	outcome.Replacements = count

	if a.dryRun {
		outcome.State = StateWouldPatch
		a.logger.Info("would patch file", "module", t.Name, "file", path, "rule", r.Label())
		return outcome, nil
	}

	updated := bytes.ReplaceAll(data, find, []byte(r.Replace))
	if err := os.WriteFile(path, updated, info.Mode().Perm()); err != nil {
		return outcome, &WriteError{Module: t.Name, Path: path, Op: "write", Err: err}
	}
	outcome.State = StatePatched
	a.logger.Info("patched file", "module", t.Name, "file", path, "rule", r.Label())
	return outcome, nil
}

// Count returns how many outcomes ended in the given state.
func (r *Result) Count(state State) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.State == state {
			n++
		}
	}
	return n
}

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateUnchecked:
		return "unchecked"
	case StateNotApplicable:
		return "not-applicable"
	case StateAlreadyPatched:
		return "already-patched"
	case StatePatched:
		return "patched"
	case StateWouldPatch:
		return "would-patch"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Error implements the error interface for WriteError.
func (e *WriteError) Error() string {
	return fmt.Sprintf("patch module %s: %s %s: %v", e.Module, e.Op, e.Path, e.Err)
}

// Unwrap exposes both ErrPatchWrite and the underlying I/O error.
func (e *WriteError) Unwrap() []error { return []error{ErrPatchWrite, e.Err} }
