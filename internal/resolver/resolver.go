// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/layerbuild/layerbuild/internal/signing"
	"github.com/layerbuild/layerbuild/pkg/fragment"
	"github.com/layerbuild/layerbuild/pkg/layout"
	"github.com/layerbuild/layerbuild/pkg/patch"
	"github.com/layerbuild/layerbuild/pkg/types"
)

// DefaultOutputRoot is used when neither the root fragment nor the caller
// names an output root.
const DefaultOutputRoot = "build"

type (
	// Resolver plans and applies project resolutions.
	Resolver struct {
		loader     *fragment.Loader
		signing    *signing.Loader
		logger     *log.Logger
		outputRoot string
		environ    func() []string
	}

	// Option configures a Resolver.
	Option func(*Resolver)

	// Plan is the read-only outcome of loading a project.
	Plan struct {
		ProjectRoot string
		Fragments   []*fragment.Fragment
		// Merged is the union of every fragment.
		Merged fragment.Merged
		// Modules are in evaluation order.
		Modules []*Module
		Layout  *layout.Layout
		// Signing is the root fragment's signing configuration, if any.
		Signing *signing.Config
	}

	// Result is the outcome of Resolve: the plan plus the patch outcomes.
	Result struct {
		*Plan
		Patches *patch.Result
		DryRun  bool
	}
)

// WithLoader sets the fragment loader, e.g. one sharing a parse cache.
func WithLoader(l *fragment.Loader) Option {
	return func(r *Resolver) {
		if l != nil {
			r.loader = l
		}
	}
}

// WithSigningLoader sets the signing-credentials loader.
func WithSigningLoader(l *signing.Loader) Option {
	return func(r *Resolver) {
		if l != nil {
			r.signing = l
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithDefaultOutputRoot sets the output root used when the root fragment
// does not declare one.
func WithDefaultOutputRoot(root string) Option {
	return func(r *Resolver) {
		if root != "" {
			r.outputRoot = root
		}
	}
}

// WithEnviron replaces os.Environ as the source of expansion variables.
func WithEnviron(fn func() []string) Option {
	return func(r *Resolver) {
		if fn != nil {
			r.environ = fn
		}
	}
}

// New creates a Resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		logger:     log.New(io.Discard),
		outputRoot: DefaultOutputRoot,
		environ:    os.Environ,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.loader == nil {
		r.loader = fragment.NewLoader(fragment.WithLogger(r.logger))
	}
	if r.signing == nil {
		r.signing = signing.NewLoader(signing.WithLogger(r.logger))
	}
	return r
}

// Plan loads the project at projectRoot without touching the filesystem.
func (r *Resolver) Plan(ctx context.Context, projectRoot string) (*Plan, error) {
	root, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}

	frags, err := r.loader.Load(ctx, root)
	if err != nil {
		return nil, err
	}
	rootFrag := frags[0]

	discovered := make([]*Module, 0, len(frags)-1)
	names := make([]types.ModuleName, 0, len(frags)-1)
	for _, f := range frags[1:] {
		m := &Module{
			Name:      f.Scope().Module(),
			SourceDir: f.Dir(),
			Config:    fragment.MergeModule(rootFrag, f),
			fragment:  f,
		}
		discovered = append(discovered, m)
		names = append(names, m.Name)
	}

	ordered, err := evaluationOrder(rootFrag, discovered)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	outputRoot, err := r.outputRootFor(root, rootFrag)
	if err != nil {
		return nil, err
	}
	lay, err := layout.Rewrite(outputRoot, names)
	if err != nil {
		return nil, err
	}
	if err := checkOutputDirs(root, lay, ordered); err != nil {
		return nil, err
	}
	for _, m := range ordered {
		m.OutputDir, _ = lay.Dir(m.Name)
	}

	plan := &Plan{
		ProjectRoot: root,
		Fragments:   frags,
		Merged:      fragment.Merge(frags...),
		Modules:     ordered,
		Layout:      lay,
	}

	if plan.Signing, err = r.loadSigning(rootFrag); err != nil {
		return nil, err
	}
	for _, m := range ordered {
		if m.Signing, err = r.loadSigning(m.fragment); err != nil {
			return nil, err
		}
	}

	for name, versions := range plan.Merged.VersionConflicts() {
		r.logger.Warn("dependency declared at several versions", "dependency", name, "versions", versions)
	}
	r.logger.Debug("planned project", "root", root, "modules", len(ordered), "output_root", lay.Root())
	return plan, nil
}

// Resolve plans the project and applies every patch rule. With dryRun the
// patch outcomes are computed but no file is written.
func (r *Resolver) Resolve(ctx context.Context, projectRoot string, dryRun bool) (*Result, error) {
	plan, err := r.Plan(ctx, projectRoot)
	if err != nil {
		return nil, err
	}

	targets := make([]patch.Target, len(plan.Modules))
	for i, m := range plan.Modules {
		targets[i] = m.target()
	}
	var rules []patch.Rule
	for _, f := range plan.Fragments {
		rules = append(rules, f.Patches()...)
	}

	applier := patch.NewApplier(patch.WithLogger(r.logger), patch.WithDryRun(dryRun))
	patched, err := applier.Apply(ctx, targets, rules)
	if err != nil {
		return nil, err
	}
	for _, m := range plan.Modules {
		m.Namespace = patched.Namespaces[m.Name]
	}

	r.logger.Info("resolved project",
		"modules", len(plan.Modules),
		"patched", patched.Count(patch.StatePatched)+patched.Count(patch.StateWouldPatch),
		"dry_run", dryRun)
	return &Result{Plan: plan, Patches: patched, DryRun: dryRun}, nil
}

// Clean plans the project and deletes every output directory in its layout.
func (r *Resolver) Clean(ctx context.Context, projectRoot string) (*layout.Layout, error) {
	plan, err := r.Plan(ctx, projectRoot)
	if err != nil {
		return nil, err
	}
	cleaner := layout.NewCleaner(layout.WithCleanLogger(r.logger))
	if err := cleaner.Clean(ctx, plan.Layout); err != nil {
		return nil, err
	}
	return plan.Layout, nil
}

// Module returns the planned module with the given name.
func (p *Plan) Module(name types.ModuleName) (*Module, bool) {
	for _, m := range p.Modules {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

func (r *Resolver) outputRootFor(projectRoot string, rootFrag *fragment.Fragment) (string, error) {
	raw := rootFrag.OutputRoot()
	if raw == "" {
		raw = r.outputRoot
	}
	env, err := projectEnv(projectRoot, r.environ())
	if err != nil {
		return "", err
	}
	expanded, err := expandPath(raw, env)
	if err != nil {
		return "", err
	}
	expanded = filepath.FromSlash(expanded)
	if !filepath.IsAbs(expanded) {
		expanded = filepath.Join(projectRoot, expanded)
	}
	return filepath.Clean(expanded), nil
}

// checkOutputDirs rejects layouts in which a directory that clean deletes is,
// or contains, the project root or a module source directory.
func checkOutputDirs(projectRoot string, lay *layout.Layout, modules []*Module) error {
	sources := make([]string, 0, len(modules)+1)
	sources = append(sources, projectRoot)
	for _, m := range modules {
		sources = append(sources, m.SourceDir)
	}
	for _, dir := range lay.Dirs() {
		for _, src := range sources {
			if within(dir, src) {
				return fmt.Errorf("%w: cleaning %s would delete sources in %s", ErrInvalidOutputRoot, dir, src)
			}
		}
	}
	return nil
}

// within reports whether path is dir or lies below it.
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (r *Resolver) loadSigning(f *fragment.Fragment) (*signing.Config, error) {
	ref, ok := f.Signing()
	if !ok {
		return nil, nil
	}
	path := filepath.FromSlash(ref.File)
	if !filepath.IsAbs(path) {
		path = filepath.Join(f.Dir(), path)
	}
	return r.signing.Load(path)
}
