// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/layerbuild/layerbuild/internal/config"
	"github.com/layerbuild/layerbuild/internal/resolver"
	"github.com/layerbuild/layerbuild/internal/signing"
	"github.com/layerbuild/layerbuild/pkg/fragment"
)

type (
	// App wires CLI services and shared dependencies. All Cobra handlers
	// receive an App reference and delegate through it.
	App struct {
		Config  ConfigProvider
		environ func() []string
		stdout  io.Writer
		stderr  io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil fields are
	// replaced with production defaults by NewApp.
	Dependencies struct {
		Config ConfigProvider
		Stdout io.Writer
		Stderr io.Writer
		// Environ replaces os.Environ as the source of output root variables.
		Environ func() []string
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// session is the per-invocation state derived from flags and configuration.
	session struct {
		cfg      *config.Config
		logger   *log.Logger
		verbose  bool
		cfgOpts  config.LoadOptions
		mdStyle  string
		resolver *resolver.Resolver
		loader   *fragment.Loader
		cache    *fragment.Cache
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Environ == nil {
		deps.Environ = os.Environ
	}

	return &App{
		Config:  deps.Config,
		environ: deps.Environ,
		stdout:  deps.Stdout,
		stderr:  deps.Stderr,
	}
}

// newSession loads configuration for baseDir and builds the logger and
// resolver every subcommand shares.
func (a *App) newSession(ctx context.Context, flags *rootFlagValues, baseDir string) (*session, error) {
	opts := config.LoadOptions{ConfigFilePath: flags.configPath, BaseDir: baseDir}
	cfg, err := a.Config.Load(ctx, opts)
	if err != nil {
		return nil, err
	}

	verbose := flags.verbose || cfg.UI.Verbose
	level := cfg.LogLevel
	switch {
	case flags.logLevel != "":
		level = config.LogLevel(flags.logLevel)
		if err := level.Validate(); err != nil {
			return nil, err
		}
	case verbose:
		level = config.LogLevelDebug
	}
	parsed, err := log.ParseLevel(string(level))
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	logger := log.NewWithOptions(a.stderr, log.Options{Prefix: config.AppName, Level: parsed})

	mdStyle := "auto"
	switch cfg.UI.ColorScheme {
	case config.ColorSchemeDark:
		lipgloss.SetHasDarkBackground(true)
		mdStyle = "dark"
	case config.ColorSchemeLight:
		lipgloss.SetHasDarkBackground(false)
		mdStyle = "light"
	}

	cache, err := fragment.NewCache(fragment.DefaultCacheSize)
	if err != nil {
		return nil, err
	}
	loader := fragment.NewLoader(
		fragment.WithDescriptorName(cfg.FragmentName),
		fragment.WithMaxSize(cfg.MaxFragmentSize),
		fragment.WithCache(cache),
		fragment.WithLogger(logger),
	)
	res := resolver.New(
		resolver.WithLoader(loader),
		resolver.WithSigningLoader(signing.NewLoader(signing.WithLogger(logger))),
		resolver.WithLogger(logger),
		resolver.WithDefaultOutputRoot(cfg.OutputRoot),
		resolver.WithEnviron(a.environ),
	)

	return &session{
		cfg:      cfg,
		logger:   logger,
		verbose:  verbose,
		cfgOpts:  opts,
		mdStyle:  mdStyle,
		resolver: res,
		loader:   loader,
		cache:    cache,
	}, nil
}
