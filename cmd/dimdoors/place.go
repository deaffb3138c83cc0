package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dimdev/pocket"
	"github.com/dimdev/pocket/generator"
)

func (c *cli) placeCmd() *cobra.Command {
	var (
		flags   contextFlags
		count   int
		firstID int
	)

	cmd := &cobra.Command{
		Use:   "place <name>",
		Short: "Place pockets from a virtual pocket",
		Long: `Run the full placement for pockets/virtual/<name> one or more times with a
shared generation context, so unique generators are used up across placements.`,
		Example: `  # Place ten pockets
  dimdoors place dungeon/entrance -d ./pack --count 10 --seed 7`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if count <= 0 {
				return fmt.Errorf("count must be positive, got %d", count)
			}
			ctx := cmd.Context()
			loader, err := c.openPack()
			if err != nil {
				return err
			}
			codec, err := c.newCodec(false)
			if err != nil {
				return err
			}
			catalog, err := generator.Load(ctx, loader,
				generator.WithLogger(c.logger),
				generator.WithFirstID(firstID),
			)
			if err != nil {
				return fmt.Errorf("load generators: %w", err)
			}
			vp, err := codec.Load(ctx, args[0], loader)
			if err != nil {
				return err
			}

			gen := pocket.NewGenerationContext(flags.options(catalog)...)
			placed := make([]pocket.Pocket, 0, count)
			for i := 0; i < count; i++ {
				p, err := vp.PrepareAndPlace(ctx, gen)
				if err != nil {
					return fmt.Errorf("placement %d: %w", i+1, err)
				}
				placed = append(placed, p)
			}

			if c.output == textFormat {
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				_, _ = fmt.Fprintln(w, "ID\tGENERATOR\tWORLD\tSIZE")
				for _, p := range placed {
					_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", p.ID, p.Generator, p.World, p.Size)
				}
				return w.Flush()
			}

			out := make([]any, len(placed))
			for i, p := range placed {
				out[i] = map[string]any{
					"id":        p.ID,
					"generator": p.Generator.String(),
					"world":     p.World,
					"size":      p.Size,
				}
			}
			return c.writeTree(cmd.OutOrStdout(), out)
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of placements")
	cmd.Flags().IntVar(&firstID, "first-id", 1, "Id of the first placed pocket")
	return cmd
}
