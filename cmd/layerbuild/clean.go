// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newCleanCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Delete every module output directory",
		Long: `Delete the output directory of every declared module and then the output
root itself. Directories that do not exist are skipped, so running clean
twice succeeds. The first directory that cannot be deleted aborts the run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceErrors = true

			root, err := filepath.Abs(project)
			if err != nil {
				return app.fail(rootFlags, nil, "clean outputs", err)
			}
			sess, err := app.newSession(cmd.Context(), rootFlags, root)
			if err != nil {
				return app.fail(rootFlags, nil, "load configuration", err)
			}

			lay, err := sess.resolver.Clean(cmd.Context(), root)
			if err != nil {
				return app.fail(rootFlags, sess, "clean outputs", err)
			}

			for _, dir := range lay.Dirs() {
				fmt.Fprintf(app.stdout, "%s cleaned %s\n", SuccessStyle.Render("✓"), pathStyle.Render(dir))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&project, "project", "p", ".", "project root containing the root descriptor")

	return cmd
}
