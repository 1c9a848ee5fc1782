// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"errors"
	"fmt"

	"github.com/layerbuild/layerbuild/internal/signing"
	"github.com/layerbuild/layerbuild/pkg/fragment"
	"github.com/layerbuild/layerbuild/pkg/patch"
	"github.com/layerbuild/layerbuild/pkg/types"
)

// ErrUnknownModule is the sentinel error wrapped by UnknownModuleError.
var ErrUnknownModule = errors.New("unknown module")

type (
	// Module is one subproject discovered from the root fragment.
	Module struct {
		Name types.ModuleName
		// SourceDir is the directory holding the module's fragment.
		SourceDir string
		// OutputDir is assigned from the output layout.
		OutputDir string
		// Namespace is the override set by a matching patch rule, if any.
		Namespace string
		// Config is the root fragment merged with the module's fragment.
		Config fragment.ModuleView
		// Signing is the module's signing configuration, if it declares one.
		Signing *signing.Config

		fragment *fragment.Fragment
	}

	// UnknownModuleError is returned when evaluation_depends_on names a
	// module that was not declared as a subproject.
	UnknownModuleError struct {
		Module   types.ModuleName
		Referrer fragment.Scope
	}
)

// target describes the module to the patch applier.
func (m *Module) target() patch.Target {
	return patch.Target{Name: m.Name, SourceDir: m.SourceDir, Plugins: m.Config.Plugins}
}

// Error implements the error interface for UnknownModuleError.
func (e *UnknownModuleError) Error() string {
	return fmt.Sprintf("%s fragment: evaluation_depends_on references unknown module %q", e.Referrer, e.Module)
}

// Unwrap returns ErrUnknownModule for errors.Is() compatibility.
func (e *UnknownModuleError) Unwrap() error { return ErrUnknownModule }
