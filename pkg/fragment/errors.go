// SPDX-License-Identifier: MPL-2.0

package fragment

import (
	"errors"
	"fmt"

	"github.com/layerbuild/layerbuild/pkg/types"
)

var (
	// ErrConfigNotFound is the sentinel error wrapped by ConfigNotFoundError.
	ErrConfigNotFound = errors.New("configuration fragment not found")

	// ErrModuleCollision is the sentinel error wrapped by ModuleCollisionError.
	ErrModuleCollision = errors.New("module name collision")
)

type (
	// ConfigNotFoundError is returned when the root or a declared subproject
	// directory has no descriptor file.
	ConfigNotFoundError struct {
		Scope    Scope
		Dir      string
		Searched []string
	}

	// ModuleCollisionError is returned when two subproject declarations
	// resolve to the same module name but different directories.
	ModuleCollisionError struct {
		Module types.ModuleName
		First  string
		Second string
	}
)

// Error implements the error interface for ConfigNotFoundError.
func (e *ConfigNotFoundError) Error() string {
	return fmt.Sprintf("no %s descriptor found in %s", e.Scope, e.Dir)
}

// Unwrap returns ErrConfigNotFound for errors.Is() compatibility.
func (e *ConfigNotFoundError) Unwrap() error { return ErrConfigNotFound }

// Error implements the error interface for ModuleCollisionError.
func (e *ModuleCollisionError) Error() string {
	return fmt.Sprintf("module %q declared for both %s and %s", e.Module, e.First, e.Second)
}

// Unwrap returns ErrModuleCollision for errors.Is() compatibility.
func (e *ModuleCollisionError) Unwrap() error { return ErrModuleCollision }
