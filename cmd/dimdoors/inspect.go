package main

import (
	"fmt"

	"github.com/ohler55/ojg/jp"
	"github.com/spf13/cobra"

	"github.com/dimdev/pocket/nbt"
)

func (c *cli) inspectCmd() *cobra.Command {
	var (
		query  string
		inline bool
	)

	cmd := &cobra.Command{
		Use:   "inspect <name>",
		Short: "Decode a virtual pocket and print its tree",
		Long: `Decode pockets/virtual/<name> from the data pack and print it. Referenced
resources stay as names unless --inline is set. --query selects parts of the
tree with a JSONPath expression.`,
		Example: `  # Print a tree
  dimdoors inspect dungeon/entrance -d ./pack

  # List every tag a tree references
  dimdoors inspect dungeon/entrance -d ./pack --inline --query '$..tag'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var expr jp.Expr
			if query != "" {
				var err error
				if expr, err = jp.ParseString(query); err != nil {
					return fmt.Errorf("invalid JSONPath expression: %w", err)
				}
			}

			loader, err := c.openPack()
			if err != nil {
				return err
			}
			codec, err := c.newCodec(false)
			if err != nil {
				return err
			}
			vp, err := codec.Load(cmd.Context(), args[0], loader)
			if err != nil {
				return err
			}
			tree, err := codec.Encode(vp, !inline)
			if err != nil {
				return err
			}

			if expr == nil {
				return c.writeTree(cmd.OutOrStdout(), tree)
			}
			results := expr.Get(nbt.Plain(tree))
			c.logger.Debug(cmd.Context(), "query matched", "query", query, "matches", len(results))
			return c.writeTree(cmd.OutOrStdout(), results)
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "JSONPath query over the encoded tree")
	cmd.Flags().BoolVar(&inline, "inline", false, "Inline referenced resources")
	return cmd
}
