package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dimdev/pocket/virtual"
)

func (c *cli) typesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List registered virtual pocket types",
		Example: `  # List types
  dimdoors types

  # Include field schemas
  dimdoors types --output yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := virtual.Bootstrap()
			if err != nil {
				return err
			}
			types := registry.Types()

			if c.output == textFormat {
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				for _, typ := range types {
					desc := typ.Description()
					if desc == "" {
						desc = "(no description)"
					}
					_, _ = fmt.Fprintf(w, "%s\t%s\n", typ.Key(), desc)
				}
				return w.Flush()
			}

			out := make([]any, 0, len(types))
			for _, typ := range types {
				meta := typ.Metadata()
				entry := map[string]any{"key": meta.Key}
				if meta.Description != "" {
					entry["description"] = meta.Description
				}
				if meta.Schema != nil {
					entry["schema"] = meta.Schema
				}
				out = append(out, entry)
			}
			return c.writeTree(cmd.OutOrStdout(), out)
		},
	}
}
