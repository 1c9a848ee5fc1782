// SPDX-License-Identifier: MPL-2.0

// Package layout computes where each module writes its build output and
// removes those directories again.
//
// Every module output directory is root/<module name>. Module names are
// single path elements (see types.ModuleName), so the mapping is injective
// and every directory is a strict descendant of the shared root.
package layout

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/layerbuild/layerbuild/pkg/types"
)

var (
	// ErrUnsafeRoot is returned when the output root is relative or is a
	// filesystem root; clean would otherwise delete far more than intended.
	ErrUnsafeRoot = errors.New("unsafe output root")
	// ErrDuplicateModule is returned when the same module name is passed
	// twice.
	ErrDuplicateModule = errors.New("duplicate module")
)

type (
	// Layout maps module names to absolute output directories below one
	// shared root. It is immutable once built.
	Layout struct {
		root  string
		names []types.ModuleName
		dirs  map[types.ModuleName]string
	}

	// Entry is one module's row in the layout.
	Entry struct {
		Module types.ModuleName `json:"module"`
		Dir    string           `json:"dir"`
	}
)

// Rewrite computes the layout for the given modules. root must be absolute;
// it is cleaned before use. The result is a pure function of its inputs.
func Rewrite(root string, names []types.ModuleName) (*Layout, error) {
	if !filepath.IsAbs(root) {
		return nil, fmt.Errorf("%w: %q is not absolute", ErrUnsafeRoot, root)
	}
	root = filepath.Clean(root)
	if filepath.Dir(root) == root {
		return nil, fmt.Errorf("%w: %q is a filesystem root", ErrUnsafeRoot, root)
	}

	l := &Layout{
		root:  root,
		names: make([]types.ModuleName, 0, len(names)),
		dirs:  make(map[types.ModuleName]string, len(names)),
	}
	for _, name := range names {
		if err := name.Validate(); err != nil {
			return nil, err
		}
		if _, dup := l.dirs[name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateModule, name)
		}
		l.names = append(l.names, name)
		l.dirs[name] = OutputDir(root, name)
	}
	return l, nil
}

// OutputDir returns root/<name>.
func OutputDir(root string, name types.ModuleName) string {
	return filepath.Join(root, string(name))
}

// Root returns the shared output root.
func (l *Layout) Root() string { return l.root }

// Dir returns the output directory of a module.
func (l *Layout) Dir(name types.ModuleName) (string, bool) {
	dir, ok := l.dirs[name]
	return dir, ok
}

// Modules returns the module names in the order they were given.
func (l *Layout) Modules() []types.ModuleName {
	out := make([]types.ModuleName, len(l.names))
	copy(out, l.names)
	return out
}

// Entries returns the module rows in order.
func (l *Layout) Entries() []Entry {
	out := make([]Entry, len(l.names))
	for i, name := range l.names {
		out[i] = Entry{Module: name, Dir: l.dirs[name]}
	}
	return out
}

// Dirs returns every directory the layout names: module directories in
// order, followed by the root.
func (l *Layout) Dirs() []string {
	out := make([]string, 0, len(l.names)+1)
	for _, name := range l.names {
		out = append(out, l.dirs[name])
	}
	return append(out, l.root)
}

// MarshalJSON encodes the layout as {"root": ..., "modules": [...]}.
func (l *Layout) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Root    string  `json:"root"`
		Modules []Entry `json:"modules"`
	}{Root: l.root, Modules: l.Entries()})
}
