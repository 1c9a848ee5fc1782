// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/layerbuild/layerbuild/internal/config"
)

// newConfigCommand creates the `layerbuild config` command tree.
// Subcommands that read configuration use the App's ConfigProvider.
func newConfigCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	var configDir string

	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage layerbuild configuration",
		Long: `Manage layerbuild configuration.

Configuration is stored in:
  - Linux: ~/.config/layerbuild/config.cue
  - macOS: ~/Library/Application Support/layerbuild/config.cue
  - Windows: %APPDATA%\layerbuild\config.cue

A .layerbuild.cue file in the current directory is used when no user
configuration exists. LAYERBUILD_* environment variables override both.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cfgCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "override the configuration directory")

	opts := func() config.LoadOptions {
		return config.LoadOptions{ConfigFilePath: rootFlags.configPath, ConfigDirPath: configDir, BaseDir: "."}
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			if err := showConfig(cmd.Context(), app, opts()); err != nil {
				return app.fail(rootFlags, nil, "load configuration", err)
			}
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			path, created, err := config.CreateDefaultConfig(opts())
			if err != nil {
				return app.fail(rootFlags, nil, "create configuration", err)
			}
			if created {
				fmt.Fprintf(app.stdout, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
			} else {
				fmt.Fprintf(app.stdout, "%s Configuration already exists at %s\n", SubtitleStyle.Render("="), path)
			}
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			path, err := config.Path(opts())
			if err != nil {
				return app.fail(rootFlags, nil, "locate configuration", err)
			}
			if path == "" {
				fmt.Fprintln(app.stdout, "(using defaults)")
				return nil
			}
			fmt.Fprintln(app.stdout, path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output effective configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cfg, err := app.Config.Load(cmd.Context(), opts())
			if err != nil {
				return app.fail(rootFlags, nil, "load configuration", err)
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, app *App, opts config.LoadOptions) error {
	cfg, err := app.Config.Load(ctx, opts)
	if err != nil {
		return err
	}

	keyStyle := CmdStyle
	valueStyle := SuccessStyle
	w := app.stdout

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)

	path, err := config.Path(opts)
	if err != nil || path == "" {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	} else {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), path)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("fragment_name"), valueStyle.Render(cfg.FragmentName))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("output_root"), valueStyle.Render(cfg.OutputRoot))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("log_level"), valueStyle.Render(cfg.LogLevel.String()))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("max_fragment_size"), valueStyle.Render(fmt.Sprintf("%d", cfg.MaxFragmentSize)))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("ui"))
	fmt.Fprintf(w, "  color_scheme: %s\n", valueStyle.Render(cfg.UI.ColorScheme.String()))
	fmt.Fprintf(w, "  verbose: %s\n", valueStyle.Render(fmt.Sprintf("%v", cfg.UI.Verbose)))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("watch"))
	fmt.Fprintf(w, "  debounce: %s\n", valueStyle.Render(cfg.Watch.Debounce.String()))
	if len(cfg.Watch.Ignore) == 0 {
		fmt.Fprintf(w, "  ignore: %s\n", SubtitleStyle.Render("(none configured)"))
	} else {
		fmt.Fprintf(w, "  ignore: %s\n", valueStyle.Render(strings.Join(cfg.Watch.Ignore, ", ")))
	}

	return nil
}
