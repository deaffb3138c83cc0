package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/dimdev/pocket/generator"
	"github.com/dimdev/pocket/resource"
)

// validation is the outcome for one virtual pocket resource.
type validation struct {
	Name string
	Type string
	Err  error
}

func (c *cli) validateCmd() *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Decode and schema-check every virtual pocket in the data pack",
		Example: `  # Validate a data pack
  dimdoors validate --datapack ./pack

  # Report as JSON
  dimdoors validate --datapack ./pack --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			loader, err := c.openPack()
			if err != nil {
				return err
			}
			codec, err := c.newCodec(true)
			if err != nil {
				return err
			}

			catalog, err := generator.Load(ctx, loader, generator.WithLogger(c.logger))
			if err != nil {
				return fmt.Errorf("generators: %w", err)
			}

			results, err := resource.Preload(ctx, loader, resource.VirtualRoot, concurrency,
				func(ctx context.Context, v any) (validation, error) {
					vp, err := codec.Decode(ctx, v, loader)
					if err != nil {
						return validation{Err: err}, nil
					}
					return validation{Type: vp.Key().String()}, nil
				})
			if err != nil {
				return err
			}

			names := make([]string, 0, len(results))
			for name := range results {
				names = append(names, name)
			}
			sort.Strings(names)

			failed := 0
			report := make([]any, 0, len(names))
			out := cmd.OutOrStdout()
			for _, name := range names {
				r := results[name]
				entry := map[string]any{"name": name}
				if r.Err != nil {
					failed++
					entry["error"] = r.Err.Error()
					if c.output == textFormat {
						_, _ = fmt.Fprintf(out, "FAIL %s: %v\n", name, r.Err)
					}
				} else {
					entry["type"] = r.Type
					if c.output == textFormat {
						_, _ = fmt.Fprintf(out, "ok   %s (%s)\n", name, r.Type)
					}
				}
				report = append(report, entry)
			}

			if c.output == textFormat {
				_, _ = fmt.Fprintf(out, "%d virtual pockets, %d generators, %d failed\n", len(names), catalog.Len(), failed)
			} else if err := c.writeTree(out, map[string]any{
				"pockets":    report,
				"generators": catalog.Len(),
				"failed":     failed,
			}); err != nil {
				return err
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d virtual pockets are invalid", failed, len(names))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 8, "Resources decoded in parallel")
	return cmd
}
