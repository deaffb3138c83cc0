package main

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/dimdev/pocket"
	"github.com/dimdev/pocket/internal/config"
	"github.com/dimdev/pocket/internal/telemetry"
)

// cli holds the global flags and what the root command sets up from them.
type cli struct {
	verbose   bool
	output    string
	datapack  string
	namespace string
	database  string

	cfg      config.Config
	logger   pocket.Logger
	tracer   pocket.Tracer
	shutdown func(context.Context) error
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	c := &cli{
		logger:   pocket.NopLogger{},
		tracer:   pocket.NopTracer{},
		shutdown: func(context.Context) error { return nil },
	}

	cmd := &cobra.Command{
		Use:   "dimdoors",
		Short: "Inspect and resolve Dimensional Doors virtual pockets",
		Long: `dimdoors works with the virtual pocket trees of a Dimensional Doors data pack.

Virtual pockets are read from data/<namespace>/pockets/virtual and generators
from data/<namespace>/pockets/generators, in NBT, SNBT, JSON or YAML.`,
		Version:            fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:       true,
		PersistentPreRunE:  c.setup,
		PersistentPostRunE: c.teardown,
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "Enable verbose output")
	flags.StringVarP(&c.output, "output", "o", textFormat, "Output format (text, json, yaml, snbt)")
	flags.StringVarP(&c.datapack, "datapack", "d", "", "Data pack directory (env DIMDOORS_DATAPACK)")
	flags.StringVar(&c.namespace, "namespace", "", "Default resource namespace (env DIMDOORS_NAMESPACE)")
	flags.StringVar(&c.database, "db", "", "Saved pocket database (env DIMDOORS_DB)")

	cmd.CompletionOptions.DisableDefaultCmd = true

	cmd.AddCommand(
		c.typesCmd(),
		c.validateCmd(),
		c.convertCmd(),
		c.inspectCmd(),
		c.peekCmd(),
		c.placeCmd(),
		c.saveCmd(),
		c.savedCmd(),
		c.versionCmd(),
	)
	return cmd
}

// setup loads the environment configuration; flags win over it.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	c.cfg = cfg

	flags := cmd.Flags()
	if !flags.Changed("datapack") {
		c.datapack = cfg.DataPack
	}
	if !flags.Changed("namespace") {
		c.namespace = cfg.Namespace
	}
	if !flags.Changed("db") {
		c.database = cfg.Database
	}

	switch c.output {
	case textFormat, jsonFormat, yamlFormat, snbtFormat:
	default:
		return fmt.Errorf("unknown output format %q", c.output)
	}

	c.logger = &pocket.StdLogger{
		Logger:  log.New(cmd.ErrOrStderr(), "", log.LstdFlags),
		Verbose: c.verbose,
	}

	shutdown, err := telemetry.Setup(cmd.Context(), telemetry.Settings{
		ServiceName: serviceName,
		Endpoint:    cfg.OTelEndpoint,
		Enabled:     cfg.OTelEnabled,
	})
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	c.shutdown = shutdown
	if cfg.OTelEnabled && cfg.OTelEndpoint != "" {
		c.tracer = telemetry.NewTracer("github.com/dimdev/pocket")
	}
	return nil
}

func (c *cli) teardown(cmd *cobra.Command, _ []string) error {
	return c.shutdown(context.WithoutCancel(cmd.Context()))
}
