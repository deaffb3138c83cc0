package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dimdev/pocket"
)

func (c *cli) peekCmd() *cobra.Command {
	var flags contextFlags

	cmd := &cobra.Command{
		Use:   "peek <name>",
		Short: "Show which generator a virtual pocket would pick",
		Long: `Resolve pockets/virtual/<name> to a generator without placing anything.
Peeking leaves the generation context untouched, so the same seed always
peeks the same generator.`,
		Example: `  # Peek at depth 4
  dimdoors peek dungeon/entrance -d ./pack --depth 4 --seed 42`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := c.openSession(ctx)
			if err != nil {
				return err
			}
			vp, err := s.codec.Load(ctx, args[0], s.loader)
			if err != nil {
				return err
			}

			// Both draws run on one preview so the reference and generator
			// come from the same random sequence a placement would use.
			gen := pocket.NewGenerationContext(flags.options(s.catalog)...)
			preview := gen.Preview()
			ref, err := vp.NextGeneratorReference(preview)
			if err != nil {
				return err
			}
			g, err := ref.Generator(preview)
			if err != nil {
				return err
			}

			if c.output == textFormat {
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s via %s (weight %g)\n", g.Key(), ref.Key(), vp.Weight(gen))
				return err
			}
			return c.writeTree(cmd.OutOrStdout(), map[string]any{
				"generator": g.Key().String(),
				"reference": ref.Key().String(),
				"weight":    vp.Weight(gen),
			})
		},
	}

	flags.register(cmd)
	return cmd
}
