// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/layerbuild/layerbuild/internal/config"
	"github.com/layerbuild/layerbuild/internal/dag"
	"github.com/layerbuild/layerbuild/internal/issue"
	"github.com/layerbuild/layerbuild/internal/resolver"
	"github.com/layerbuild/layerbuild/internal/signing"
	"github.com/layerbuild/layerbuild/pkg/fragment"
	"github.com/layerbuild/layerbuild/pkg/layout"
	"github.com/layerbuild/layerbuild/pkg/patch"
	"github.com/layerbuild/layerbuild/pkg/types"
)

// errorKind maps a sentinel error to its exit code, issue page and hints.
type errorKind struct {
	target      error
	code        types.ExitCode
	issue       issue.Id
	suggestions []string
}

// errorKinds is checked in order; the first matching sentinel wins.
var errorKinds = []errorKind{
	{
		target: fragment.ErrConfigNotFound,
		code:   types.ExitConfigNotFound,
		issue:  issue.ConfigNotFoundId,
		suggestions: []string{
			"Check the subproject paths declared in the root descriptor",
			"An empty descriptor file is enough for a module without settings",
		},
	},
	{
		target:      fragment.ErrInvalidFragment,
		code:        types.ExitInvalidConfig,
		issue:       issue.FragmentInvalidId,
		suggestions: []string{"Fix the reported fields; unknown keys are rejected"},
	},
	{
		target:      fragment.ErrModuleCollision,
		code:        types.ExitInvalidConfig,
		issue:       issue.ModuleCollisionId,
		suggestions: []string{"Give one of the subprojects an explicit name"},
	},
	{
		target:      resolver.ErrUnknownModule,
		code:        types.ExitInvalidConfig,
		issue:       issue.UnknownModuleId,
		suggestions: []string{"evaluation_depends_on may only name declared subprojects"},
	},
	{
		target:      dag.ErrCycle,
		code:        types.ExitInvalidConfig,
		issue:       issue.DependencyCycleId,
		suggestions: []string{"Remove one evaluation_depends_on entry from the cycle"},
	},
	{
		target:      resolver.ErrInvalidOutputRoot,
		code:        types.ExitInvalidConfig,
		issue:       issue.OutputRootInvalidId,
		suggestions: []string{"Define the referenced variables in the environment or the project .env file"},
	},
	{
		target:      layout.ErrUnsafeRoot,
		code:        types.ExitInvalidConfig,
		issue:       issue.OutputRootInvalidId,
		suggestions: []string{"Point output.root at a directory below the filesystem root"},
	},
	{
		target: signing.ErrIncomplete,
		code:   types.ExitInvalidConfig,
		issue:  issue.SigningIncompleteId,
		suggestions: []string{
			"Add the missing keys to the properties file",
			"Or export them as " + signing.DefaultEnvPrefix + "_* variables",
		},
	},
	{
		target:      patch.ErrPatchWrite,
		code:        types.ExitPatchWrite,
		issue:       issue.PatchWriteFailedId,
		suggestions: []string{"Check the file permissions; patches already applied were kept"},
	},
	{
		target:      layout.ErrClean,
		code:        types.ExitClean,
		issue:       issue.CleanFailedId,
		suggestions: []string{"Stop processes holding files in the output directory and run clean again"},
	},
	{
		target:      config.ErrInvalidConfig,
		code:        types.ExitInvalidConfig,
		issue:       issue.ConfigLoadFailedId,
		suggestions: []string{"Run 'layerbuild config show' to inspect the effective values"},
	},
}

// classifyError wraps err in an ActionableError for operation and returns
// the exit code for its kind. Errors that already carry context keep it.
func classifyError(err error, operation string) (types.ExitCode, *issue.ActionableError) {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		code := types.ExitFailure
		for _, kind := range errorKinds {
			if errors.Is(err, kind.target) || (ae.Issue != 0 && ae.Issue == kind.issue) {
				code = kind.code
				break
			}
		}
		return code, ae
	}

	ctx := issue.NewErrorContext().
		WithOperation(operation).
		WithResource(resourceOf(err)).
		Wrap(err)
	code := types.ExitFailure
	for _, kind := range errorKinds {
		if errors.Is(err, kind.target) {
			code = kind.code
			ctx.WithIssue(kind.issue).WithSuggestions(kind.suggestions...)
			break
		}
	}
	if cnf := (*fragment.ConfigNotFoundError)(nil); errors.As(err, &cnf) {
		names := make([]string, len(cnf.Searched))
		for i, p := range cnf.Searched {
			names[i] = filepath.Base(p)
		}
		ctx.WithSuggestion("Create one of: " + strings.Join(names, ", "))
	}
	return code, ctx.Build()
}

// resourceOf names the file or directory a typed error is about.
func resourceOf(err error) string {
	var (
		cnf   *fragment.ConfigNotFoundError
		inv   *fragment.InvalidFragmentError
		write *patch.WriteError
		clean *layout.CleanError
		sign  *signing.IncompleteError
	)
	switch {
	case errors.As(err, &cnf):
		return cnf.Dir
	case errors.As(err, &inv):
		return inv.Path
	case errors.As(err, &write):
		return write.Path
	case errors.As(err, &clean):
		return clean.Path
	case errors.As(err, &sign):
		return sign.Source
	}
	return ""
}

// reportError prints err to w and returns the ExitError for the command.
// Verbose mode adds the error chain and the rendered issue page.
func reportError(w io.Writer, verbose bool, mdStyle, operation string, err error) error {
	code, ae := classifyError(err, operation)

	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("Error:"), ae.Format(verbose))
	if verbose {
		if page := issue.Get(ae.Issue); page != nil {
			if rendered, renderErr := page.Render(mdStyle); renderErr == nil {
				fmt.Fprint(w, rendered)
			}
		}
	}
	return &ExitError{Code: code, Err: err}
}

// fail reports err for a command. sess may be nil when configuration
// could not be loaded.
func (a *App) fail(flags *rootFlagValues, sess *session, operation string, err error) error {
	verbose, mdStyle := flags.verbose, "auto"
	if sess != nil {
		verbose, mdStyle = sess.verbose, sess.mdStyle
	}
	return reportError(a.stderr, verbose, mdStyle, operation, err)
}
