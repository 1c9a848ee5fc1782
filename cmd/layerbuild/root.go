// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for layerbuild.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/layerbuild/layerbuild/pkg/types"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// rootFlagValues holds the persistent flags shared by every subcommand.
type rootFlagValues struct {
	verbose    bool
	configPath string
	logLevel   string
}

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlagValues{}

	rootCmd := &cobra.Command{
		Use:   "layerbuild",
		Short: "Resolve layered build configuration for multi-module projects",
		Long: TitleStyle.Render("layerbuild") + SubtitleStyle.Render(" - layered build configuration resolver") + `

layerbuild reads a root descriptor and one descriptor per subproject,
merges repositories, plugins and dependencies, assigns every module an
isolated output directory and applies conditional source patches.

Descriptors are named layerbuild.cue, layerbuild.toml, layerbuild.yaml
or layerbuild.yml; the first one found in a directory wins.

` + SubtitleStyle.Render("Examples:") + `
  layerbuild resolve                  Resolve the project in the current directory
  layerbuild resolve --dry-run        Show which patches would be applied
  layerbuild resolve --format json    Print the resolved layout as JSON
  layerbuild resolve --watch          Re-resolve whenever a descriptor changes
  layerbuild clean                    Delete every module output directory
  layerbuild config show              Show current configuration`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default is $HOME/.config/layerbuild/config.cue)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn or error")

	rootCmd.AddCommand(newResolveCommand(app, flags))
	rootCmd.AddCommand(newCleanCommand(app, flags))
	rootCmd.AddCommand(newConfigCommand(app, flags))

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Run executes the CLI with args and returns the process exit code.
func Run(ctx context.Context, app *App, args []string) types.ExitCode {
	rootCmd := NewRootCommand(app)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	err := fang.Execute(
		ctx,
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(handleError),
	)
	if err == nil {
		return types.ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return types.ExitFailure
}

// Execute runs the CLI with the process arguments and exits on failure.
// This is called by main.main().
func Execute() {
	if code := Run(context.Background(), NewApp(Dependencies{}), os.Args[1:]); !code.IsSuccess() {
		os.Exit(int(code))
	}
}

// handleError prints errors that were not already reported by a command,
// such as unknown flags.
func handleError(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}
