// SPDX-License-Identifier: MPL-2.0

package fragment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/layerbuild/layerbuild/pkg/cueutil"
	"github.com/layerbuild/layerbuild/pkg/types"
)

// DefaultDescriptorName is the descriptor base name looked up in every
// project and subproject directory.
const DefaultDescriptorName = "layerbuild"

type (
	// Loader reads a project's root fragment and every declared subproject
	// fragment.
	Loader struct {
		name    string
		maxSize int64
		cache   *Cache
		logger  *log.Logger
	}

	// LoaderOption configures a Loader.
	LoaderOption func(*Loader)
)

// WithDescriptorName overrides the descriptor base name.
func WithDescriptorName(name string) LoaderOption {
	return func(l *Loader) {
		if name != "" {
			l.name = name
		}
	}
}

// WithMaxSize limits the size of a single descriptor file.
func WithMaxSize(size int64) LoaderOption {
	return func(l *Loader) {
		if size > 0 {
			l.maxSize = size
		}
	}
}

// WithCache enables descriptor caching across Load calls.
func WithCache(c *Cache) LoaderOption {
	return func(l *Loader) { l.cache = c }
}

// WithLogger sets the logger used for load diagnostics.
func WithLogger(logger *log.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader creates a Loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		name:    DefaultDescriptorName,
		maxSize: cueutil.DefaultMaxFileSize,
		logger:  log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the root fragment in projectRoot followed by one fragment per
// declared subproject, in declaration order. A subproject declared twice
// with the same name and directory is loaded once. Load either returns every
// fragment or an error; it never returns a partial project.
func (l *Loader) Load(ctx context.Context, projectRoot string) ([]*Fragment, error) {
	root, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}

	rootFrag, err := l.loadDir(ctx, root, RootScope)
	if err != nil {
		return nil, err
	}

	frags := []*Fragment{rootFrag}
	seen := make(map[types.ModuleName]string)
	for _, sp := range rootFrag.desc.Subprojects {
		dir := filepath.FromSlash(sp.Path)
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(root, dir)
		}
		dir = filepath.Clean(dir)

		name := sp.ModuleName()
		if prev, ok := seen[name]; ok {
			if prev == dir {
				l.logger.Debug("skipping duplicate subproject", "module", name, "dir", dir)
				continue
			}
			return nil, &ModuleCollisionError{Module: name, First: prev, Second: dir}
		}
		seen[name] = dir

		frag, err := l.loadDir(ctx, dir, ModuleScope(name))
		if err != nil {
			return nil, err
		}
		frags = append(frags, frag)
	}
	return frags, nil
}

// LoadFile reads a single descriptor file as a fragment of the given scope.
func (l *Loader) LoadFile(ctx context.Context, path string, scope Scope) (*Fragment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	format, ok := formatFor(path)
	if !ok {
		return nil, fmt.Errorf("%s: unrecognised descriptor extension", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if l.cache != nil {
		if desc, hit := l.cache.get(path, data); hit {
			l.logger.Debug("fragment cache hit", "scope", scope, "path", path)
			return newFragment(scope, path, format, desc)
		}
	}

	desc, err := decode(format, data, path, l.maxSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFragment, err)
	}
	if l.cache != nil {
		l.cache.put(path, data, *desc)
	}

	l.logger.Debug("loaded fragment", "scope", scope, "path", path, "format", format)
	return newFragment(scope, path, format, *desc)
}

// Locate returns the descriptor path in dir, trying every recognised
// extension in order.
func (l *Loader) Locate(dir string, scope Scope) (string, error) {
	searched := candidates(dir, l.name)
	for _, path := range searched {
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
	}
	return "", &ConfigNotFoundError{Scope: scope, Dir: dir, Searched: searched}
}

// DescriptorNames returns the descriptor file names the loader recognises.
func (l *Loader) DescriptorNames() []string {
	out := make([]string, len(descriptorExtensions))
	for i, e := range descriptorExtensions {
		out[i] = l.name + e.ext
	}
	return out
}

func (l *Loader) loadDir(ctx context.Context, dir string, scope Scope) (*Fragment, error) {
	path, err := l.Locate(dir, scope)
	if err != nil {
		return nil, err
	}
	return l.LoadFile(ctx, path, scope)
}

func newFragment(scope Scope, path string, format Format, desc descriptor) (*Fragment, error) {
	if errs := desc.validate(scope); len(errs) > 0 {
		return nil, &InvalidFragmentError{Path: path, FieldErrors: errs}
	}
	return &Fragment{
		scope:  scope,
		path:   path,
		dir:    filepath.Dir(path),
		format: format,
		desc:   desc,
	}, nil
}
