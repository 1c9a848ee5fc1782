// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/layerbuild/layerbuild/internal/watch"
)

// resolveFlagValues holds the flags of `layerbuild resolve`.
type resolveFlagValues struct {
	project      string
	dryRun       bool
	watch        bool
	outputFormat string
}

func newResolveCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	flags := &resolveFlagValues{}

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Merge descriptors, assign output directories and apply patches",
		Long: `Load the root descriptor and every declared subproject, merge their
repositories, plugins and dependencies, assign each module an isolated
output directory and apply the conditional patch rules.

Every descriptor is read and validated before the first file is written, so
a missing or invalid descriptor leaves the project untouched.

Descriptor values are text. Unquoted YAML scalars keep their literal text;
TOML numbers and booleans are converted, but a TOML float drops trailing
zeros, so quote versions such as "1.10".`,
		Example: `  # Resolve the project in the current directory
  layerbuild resolve

  # Preview patches without writing anything
  layerbuild resolve --project ./android --dry-run

  # Print the resolved layout as JSON
  layerbuild resolve --format json

  # Re-resolve whenever a descriptor, .env or properties file changes
  layerbuild resolve --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !validFormat(flags.outputFormat) {
				return fmt.Errorf("invalid --format %q (valid: text, json, cue)", flags.outputFormat)
			}
			cmd.SilenceErrors = true
			return runResolve(cmd, app, rootFlags, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.project, "project", "p", ".", "project root containing the root descriptor")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "compute patch outcomes without writing files")
	cmd.Flags().BoolVarP(&flags.watch, "watch", "w", false, "re-resolve when descriptors change")
	cmd.Flags().StringVarP(&flags.outputFormat, "format", "f", formatText, "output format: text, json or cue")

	return cmd
}

func runResolve(cmd *cobra.Command, app *App, rootFlags *rootFlagValues, flags *resolveFlagValues) error {
	ctx := cmd.Context()

	project, err := filepath.Abs(flags.project)
	if err != nil {
		return app.fail(rootFlags, nil, "resolve project", err)
	}
	sess, err := app.newSession(ctx, rootFlags, project)
	if err != nil {
		return app.fail(rootFlags, nil, "load configuration", err)
	}

	if err := resolveOnce(ctx, app, sess, project, flags); err != nil {
		if !flags.watch {
			return app.fail(rootFlags, sess, "resolve project", err)
		}
		// Keep watching: the user may fix the descriptor and save again.
		_ = app.fail(rootFlags, sess, "resolve project", err)
	}
	if !flags.watch {
		return nil
	}
	return runWatch(ctx, app, rootFlags, sess, project, flags)
}

func resolveOnce(ctx context.Context, app *App, sess *session, project string, flags *resolveFlagValues) error {
	res, err := sess.resolver.Resolve(ctx, project, flags.dryRun)
	if err != nil {
		return err
	}
	return renderResult(app.stdout, res, flags.outputFormat)
}

// runWatch re-resolves the project whenever a watched file changes, until
// ctx is canceled. Failed runs are reported and watching continues.
func runWatch(ctx context.Context, app *App, rootFlags *rootFlagValues, sess *session, project string, flags *resolveFlagValues) error {
	scope := planWatchScope(ctx, sess, project)

	w, err := watch.New(watch.Config{
		Patterns:  watch.DescriptorPatterns(sess.loader.DescriptorNames()...),
		Ignore:    append(slices.Clone(sess.cfg.Watch.Ignore), scope.ignore...),
		ExtraDirs: scope.extraDirs,
		Debounce:  sess.cfg.Watch.Debounce,
		BaseDir:   project,
		Logger:    sess.logger,
		OnChange: func(ctx context.Context, changed []string) error {
			sess.logger.Info("change detected, re-resolving", "files", strings.Join(changed, ","))
			if err := resolveOnce(ctx, app, sess, project, flags); err != nil {
				_ = app.fail(rootFlags, sess, "resolve project", err)
			}
			sess.logger.Debug("fragment cache", "entries", sess.cache.Len())
			return nil
		},
	})
	if err != nil {
		return app.fail(rootFlags, sess, "start watcher", err)
	}

	fmt.Fprintf(app.stderr, "%s Watching %s for changes (Ctrl+C to stop)...\n", CmdStyle.Render("→"), project)
	for _, dir := range scope.extraDirs {
		fmt.Fprintf(app.stderr, "  %s %s\n", SubtitleStyle.Render("also watching"), dir)
	}
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		return app.fail(rootFlags, sess, "watch project", err)
	}
	return nil
}

// watchScope is what the watcher needs from the current plan.
type watchScope struct {
	// ignore holds the output root glob when the root lies inside the project.
	ignore []string
	// extraDirs are module source dirs outside the project. Subprojects
	// declared outside the project after watching starts are not picked up.
	extraDirs []string
}

// planWatchScope derives the watch scope from a fresh plan. A project that
// does not plan yet is watched without extras.
func planWatchScope(ctx context.Context, sess *session, project string) watchScope {
	var scope watchScope
	plan, err := sess.resolver.Plan(ctx, project)
	if err != nil {
		return scope
	}
	if rel, ok := insideProject(project, plan.Layout.Root()); ok && rel != "." {
		scope.ignore = append(scope.ignore, filepath.ToSlash(rel)+"/**")
	}
	for _, m := range plan.Modules {
		if _, ok := insideProject(project, m.SourceDir); !ok {
			scope.extraDirs = append(scope.extraDirs, m.SourceDir)
		}
	}
	return scope
}

func insideProject(project, path string) (string, bool) {
	rel, err := filepath.Rel(project, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}
