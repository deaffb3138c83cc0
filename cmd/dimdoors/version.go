package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *cli) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version information about the dimdoors CLI.`,
		Example: `  # Show version
  dimdoors version

  # Show version in JSON format
  dimdoors version --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.output != textFormat {
				return c.writeTree(cmd.OutOrStdout(), map[string]any{
					"version":   version,
					"commit":    commit,
					"buildDate": buildDate,
					"goVersion": goVersion,
				})
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "dimdoors version %s\n", version)
			if version != "dev" {
				_, _ = fmt.Fprintf(out, "  commit:     %s\n", commit)
				_, _ = fmt.Fprintf(out, "  built:      %s\n", buildDate)
				_, _ = fmt.Fprintf(out, "  go version: %s\n", goVersion)
			}
			return nil
		},
	}
}
