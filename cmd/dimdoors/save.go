package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func (c *cli) saveCmd() *cobra.Command {
	var as string

	cmd := &cobra.Command{
		Use:   "save <name>",
		Short: "Store a virtual pocket from the data pack in the saved pocket database",
		Long: `Decode pockets/virtual/<name> and store the fully inlined tree in the
saved pocket database, the way a world keeps the trees its doors point at.`,
		Example: `  # Save under the same name
  dimdoors save dungeon/entrance -d ./pack --db world.db

  # Save under another name
  dimdoors save dungeon/entrance -d ./pack --as doors/1234`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			loader, err := c.openPack()
			if err != nil {
				return err
			}
			codec, err := c.newCodec(false)
			if err != nil {
				return err
			}
			vp, err := codec.Load(ctx, args[0], loader)
			if err != nil {
				return err
			}

			store, err := c.openStore(codec)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			name := args[0]
			if as != "" {
				name = as
			}
			if err := store.Save(ctx, name, vp); err != nil {
				return err
			}
			c.logger.Info(ctx, "virtual pocket saved", "name", name, "type", vp.Key().String())
			return nil
		},
	}

	cmd.Flags().StringVar(&as, "as", "", "Name to store the pocket under")
	return cmd
}

func (c *cli) savedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "saved",
		Short: "Manage the saved pocket database",
	}
	cmd.AddCommand(c.savedListCmd(), c.savedShowCmd(), c.savedDeleteCmd())
	return cmd
}

func (c *cli) savedListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved pockets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := c.newCodec(false)
			if err != nil {
				return err
			}
			store, err := c.openStore(codec)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			entries, err := store.Entries(cmd.Context())
			if err != nil {
				return err
			}

			if c.output == textFormat {
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				_, _ = fmt.Fprintln(w, "NAME\tTYPE\tBYTES\tUPDATED")
				for _, e := range entries {
					_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", e.Name, e.Type, e.Size, e.UpdatedAt.Format(time.RFC3339))
				}
				return w.Flush()
			}

			out := make([]any, len(entries))
			for i, e := range entries {
				out[i] = map[string]any{
					"name":      e.Name,
					"type":      e.Type,
					"bytes":     e.Size,
					"updatedAt": e.UpdatedAt.Format(time.RFC3339),
				}
			}
			return c.writeTree(cmd.OutOrStdout(), out)
		},
	}
}

func (c *cli) savedShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print a saved pocket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := c.newCodec(false)
			if err != nil {
				return err
			}
			store, err := c.openStore(codec)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			vp, err := store.Pocket(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			tree, err := codec.Encode(vp, false)
			if err != nil {
				return err
			}
			return c.writeTree(cmd.OutOrStdout(), tree)
		},
	}
}

func (c *cli) savedDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a saved pocket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := c.newCodec(false)
			if err != nil {
				return err
			}
			store, err := c.openStore(codec)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			return store.Delete(cmd.Context(), args[0])
		},
	}
}
