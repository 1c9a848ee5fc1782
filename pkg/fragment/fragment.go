// SPDX-License-Identifier: MPL-2.0

package fragment

import (
	_ "embed"
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"strings"

	"github.com/layerbuild/layerbuild/pkg/patch"
	"github.com/layerbuild/layerbuild/pkg/types"
)

// RootScope is the scope of the project's root fragment.
const RootScope Scope = ":"

var (
	//go:embed fragment_schema.cue
	fragmentSchema []byte

	// ErrInvalidFragment is the sentinel error wrapped by InvalidFragmentError.
	ErrInvalidFragment = errors.New("invalid fragment")
)

type (
	// Scope identifies the layer a fragment belongs to: RootScope or the
	// name of the subproject module that owns it.
	Scope string

	// Dependency is one dependency coordinate. Version may be empty for
	// coordinates whose version is managed by a platform/BOM.
	Dependency struct {
		Name    string `json:"name"`
		Version string `json:"version,omitempty"`
	}

	// Subproject is a subproject declaration in the root fragment.
	Subproject struct {
		// Path is the subproject directory, relative to the project root.
		Path string `json:"path"`
		// Name overrides the module name, which defaults to the base name
		// of Path.
		Name types.ModuleName `json:"name,omitempty"`
	}

	// OutputSpec redirects the shared build output root.
	OutputSpec struct {
		Root string `json:"root,omitempty"`
	}

	// SigningRef points to an opaque signing-credentials properties file,
	// relative to the fragment's directory.
	SigningRef struct {
		File string `json:"file"`
	}

	// descriptor is the decoded shape of one descriptor file.
	descriptor struct {
		Repositories        []string           `json:"repositories,omitempty"`
		Plugins             []string           `json:"plugins,omitempty"`
		Dependencies        []Dependency       `json:"dependencies,omitempty"`
		Subprojects         []Subproject       `json:"subprojects,omitempty"`
		EvaluationDependsOn []types.ModuleName `json:"evaluation_depends_on,omitempty"`
		Properties          map[string]string  `json:"properties,omitempty"`
		Output              *OutputSpec        `json:"output,omitempty"`
		Signing             *SigningRef        `json:"signing,omitempty"`
		Patches             []patch.Rule       `json:"patches,omitempty"`
	}

	// Fragment is one loaded, validated descriptor. It is immutable: every
	// accessor returns a copy.
	Fragment struct {
		scope  Scope
		path   string
		dir    string
		format Format
		desc   descriptor
	}

	// InvalidFragmentError is returned when a descriptor decodes but
	// violates a rule the schema cannot express.
	InvalidFragmentError struct {
		Path        string
		FieldErrors []error
	}
)

// ModuleScope returns the scope of a subproject module.
func ModuleScope(name types.ModuleName) Scope { return Scope(name) }

// IsRoot reports whether the scope is the root scope.
func (s Scope) IsRoot() bool { return s == RootScope }

// Module returns the module name of a subproject scope, or "" for the root.
func (s Scope) Module() types.ModuleName {
	if s.IsRoot() {
		return ""
	}
	return types.ModuleName(s)
}

// String returns "root" or the module name.
func (s Scope) String() string {
	if s.IsRoot() {
		return "root"
	}
	return string(s)
}

// String renders the coordinate as name:version, or just name when the
// version is managed elsewhere.
func (d Dependency) String() string {
	if d.Version == "" {
		return d.Name
	}
	return d.Name + ":" + d.Version
}

// ModuleName returns the declared name, or the base name of the path.
func (s Subproject) ModuleName() types.ModuleName {
	if s.Name != "" {
		return s.Name
	}
	return types.ModuleName(filepath.Base(filepath.Clean(filepath.FromSlash(s.Path))))
}

// Scope returns the fragment's scope.
func (f *Fragment) Scope() Scope { return f.scope }

// Path returns the descriptor file path.
func (f *Fragment) Path() string { return f.path }

// Dir returns the directory holding the descriptor. For subproject
// fragments this is the module source directory.
func (f *Fragment) Dir() string { return f.dir }

// Format returns the descriptor format.
func (f *Fragment) Format() Format { return f.format }

// Repositories returns the declared repositories in declaration order.
func (f *Fragment) Repositories() []string { return cloneSlice(f.desc.Repositories) }

// Plugins returns the declared plugin ids in application order.
func (f *Fragment) Plugins() []string { return cloneSlice(f.desc.Plugins) }

// Dependencies returns the declared dependency coordinates.
func (f *Fragment) Dependencies() []Dependency { return cloneSlice(f.desc.Dependencies) }

// Subprojects returns the subproject declarations (root fragment only).
func (f *Fragment) Subprojects() []Subproject { return cloneSlice(f.desc.Subprojects) }

// EvaluationDependsOn returns modules that must be evaluated before the
// fragment's module. On the root fragment it applies to every subproject.
func (f *Fragment) EvaluationDependsOn() []types.ModuleName {
	return cloneSlice(f.desc.EvaluationDependsOn)
}

// Properties returns a copy of the fragment's property map.
func (f *Fragment) Properties() map[string]string {
	out := make(map[string]string, len(f.desc.Properties))
	maps.Copy(out, f.desc.Properties)
	return out
}

// OutputRoot returns the declared output root, or "" when not declared.
func (f *Fragment) OutputRoot() string {
	if f.desc.Output == nil {
		return ""
	}
	return f.desc.Output.Root
}

// Signing returns the signing-credentials reference, if declared.
func (f *Fragment) Signing() (SigningRef, bool) {
	if f.desc.Signing == nil {
		return SigningRef{}, false
	}
	return *f.desc.Signing, true
}

// Patches returns the fragment's patch rules.
func (f *Fragment) Patches() []patch.Rule { return cloneSlice(f.desc.Patches) }

// validate checks the rules the schema cannot express.
func (d *descriptor) validate(scope Scope) []error {
	var errs []error
	if !scope.IsRoot() {
		if len(d.Subprojects) > 0 {
			errs = append(errs, errors.New("subprojects: only allowed in the root fragment"))
		}
		if d.Output != nil {
			errs = append(errs, errors.New("output: only allowed in the root fragment"))
		}
	}
	for i, sp := range d.Subprojects {
		if err := sp.ModuleName().Validate(); err != nil {
			errs = append(errs, fmt.Errorf("subprojects[%d]: %w", i, err))
		}
	}
	for i, name := range d.EvaluationDependsOn {
		if err := name.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("evaluation_depends_on[%d]: %w", i, err))
		}
	}
	for i, r := range d.Patches {
		if err := r.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("patches[%d]: %w", i, err))
		}
	}
	return errs
}

// Error implements the error interface for InvalidFragmentError.
func (e *InvalidFragmentError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Path, strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidFragment for errors.Is() compatibility.
func (e *InvalidFragmentError) Unwrap() error { return ErrInvalidFragment }

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}
