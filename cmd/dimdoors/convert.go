package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dimdev/pocket/nbt"
)

func (c *cli) convertCmd() *cobra.Command {
	var (
		to   string
		gzip bool
	)

	cmd := &cobra.Command{
		Use:   "convert <input> [output]",
		Short: "Convert between NBT, SNBT, JSON and YAML",
		Long: `Convert a structured file between formats. Formats follow the file
extensions; --to picks the output format when writing to stdout.`,
		Example: `  # Binary NBT to SNBT on stdout
  dimdoors convert pocket.nbt --to snbt

  # YAML to gzip-compressed NBT
  dimdoors convert pocket.yaml pocket.nbt --gzip`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := expandPath(args[0])
			if err != nil {
				return err
			}
			inFormat, ok := nbt.FormatForExt(filepath.Ext(in))
			if !ok {
				return fmt.Errorf("unknown input format for %s", in)
			}
			data, err := os.ReadFile(in) // #nosec G304 - user-provided input file
			if err != nil {
				return fmt.Errorf("read file: %w", err)
			}
			value, err := nbt.Parse(inFormat, data)
			if err != nil {
				return err
			}

			outPath := ""
			outFormat := nbt.Format(to)
			if len(args) == 2 {
				if outPath, err = expandPath(args[1]); err != nil {
					return err
				}
				if !cmd.Flags().Changed("to") {
					if outFormat, ok = nbt.FormatForExt(filepath.Ext(outPath)); !ok {
						return fmt.Errorf("unknown output format for %s", outPath)
					}
				}
			}

			var encoded []byte
			if outFormat == nbt.FormatNBT && gzip {
				encoded, err = nbt.MarshalGzip(value)
			} else {
				encoded, err = nbt.Encode(outFormat, value)
			}
			if err != nil {
				return err
			}

			if outPath == "" {
				if outFormat == nbt.FormatNBT {
					return fmt.Errorf("refusing to write binary NBT to stdout")
				}
				_, err = cmd.OutOrStdout().Write(append(encoded, '\n'))
				return err
			}
			if err := os.WriteFile(outPath, encoded, 0o644); err != nil { // #nosec G306 - data files are world readable
				return fmt.Errorf("write file: %w", err)
			}
			c.logger.Debug(cmd.Context(), "converted", "from", in, "to", outPath, "format", string(outFormat))
			return nil
		},
	}

	cmd.Flags().StringVar(&to, "to", string(nbt.FormatSNBT), "Output format (nbt, snbt, json, yaml)")
	cmd.Flags().BoolVar(&gzip, "gzip", false, "Gzip-compress binary NBT output")
	return cmd
}
