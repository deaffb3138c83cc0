package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dimdev/pocket"
	"github.com/dimdev/pocket/generator"
	"github.com/dimdev/pocket/nbt"
	"github.com/dimdev/pocket/resource"
	"github.com/dimdev/pocket/storage/sqlite"
	"github.com/dimdev/pocket/virtual"
)

// expandPath expands ~ to home directory.
func expandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		if path == "~" {
			return home, nil
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}

// openPack returns a cached loader over the data pack directory.
func (c *cli) openPack() (*resource.Cache, error) {
	if c.datapack == "" {
		return nil, fmt.Errorf("no data pack: set --datapack or DIMDOORS_DATAPACK")
	}
	dir, err := expandPath(c.datapack)
	if err != nil {
		return nil, fmt.Errorf("expand path: %w", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("data pack: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("data pack %s is not a directory", dir)
	}

	fsLoader := resource.NewFSLoader(os.DirFS(dir),
		resource.WithNamespace(c.namespace),
		resource.WithLogger(c.logger),
		resource.WithTracer(c.tracer),
	)
	opts := []resource.CacheOption{resource.WithMaxEntries(c.cfg.CacheEntries)}
	if c.cfg.CacheTTL > 0 {
		opts = append(opts, resource.WithTTL(c.cfg.CacheTTL))
	}
	return resource.NewCache(fsLoader, opts...), nil
}

// newCodec bootstraps the registry and a codec over it.
func (c *cli) newCodec(validate bool) (*virtual.Codec, error) {
	registry, err := virtual.Bootstrap()
	if err != nil {
		return nil, err
	}
	return virtual.NewCodec(registry,
		virtual.WithMaxDepth(c.cfg.MaxDepth),
		virtual.WithSchemaValidation(validate),
		virtual.WithLogger(c.logger),
		virtual.WithTracer(c.tracer),
	), nil
}

// openStore opens the saved pocket database.
func (c *cli) openStore(codec *virtual.Codec) (*sqlite.Store, error) {
	path, err := expandPath(c.database)
	if err != nil {
		return nil, fmt.Errorf("expand path: %w", err)
	}
	return sqlite.Open(path, codec, sqlite.WithNamespace(c.namespace))
}

// session is a loaded data pack ready for resolution.
type session struct {
	loader  *resource.Cache
	codec   *virtual.Codec
	catalog *generator.Catalog
}

func (c *cli) openSession(ctx context.Context) (*session, error) {
	loader, err := c.openPack()
	if err != nil {
		return nil, err
	}
	codec, err := c.newCodec(false)
	if err != nil {
		return nil, err
	}
	catalog, err := generator.Load(ctx, loader, generator.WithLogger(c.logger))
	if err != nil {
		return nil, fmt.Errorf("load generators: %w", err)
	}
	return &session{loader: loader, codec: codec, catalog: catalog}, nil
}

// contextFlags are the generation context settings shared by peek and place.
type contextFlags struct {
	seed        uint64
	depth       int
	size        int
	world       string
	sourceWorld string
	vars        map[string]string
}

func (f *contextFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.Uint64Var(&f.seed, "seed", 0, "Random seed")
	flags.IntVar(&f.depth, "depth", 1, "Pocket depth")
	flags.IntVar(&f.size, "size", 1, "Requested pocket size")
	flags.StringVar(&f.world, "world", "dimdoors:dungeon_pockets", "World the pocket is placed in")
	flags.StringVar(&f.sourceWorld, "source-world", "minecraft:overworld", "World the door leads from")
	flags.StringToStringVar(&f.vars, "var", nil, "Extra equation variables (name=value)")
}

func (f *contextFlags) options(source pocket.GeneratorSource) []pocket.ContextOption {
	opts := []pocket.ContextOption{
		pocket.WithSeed(f.seed),
		pocket.WithDepth(f.depth),
		pocket.WithSize(f.size),
		pocket.WithWorld(f.world, f.sourceWorld),
		pocket.WithGenerators(source),
	}
	names := make([]string, 0, len(f.vars))
	for name := range f.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		opts = append(opts, pocket.WithVar(name, parseVar(f.vars[name])))
	}
	return opts
}

// parseVar reads a --var value as a number or boolean when it looks like one.
func parseVar(s string) any {
	v, err := nbt.ParseJSON([]byte(s))
	if err != nil {
		return s
	}
	switch v.(type) {
	case int32, int64, float64, int8:
		return v
	}
	return s
}

// writeTree prints a structured value in the selected output format.
func (c *cli) writeTree(w io.Writer, v any) error {
	var format nbt.Format
	switch c.output {
	case jsonFormat, textFormat:
		format = nbt.FormatJSON
	case yamlFormat:
		format = nbt.FormatYAML
	case snbtFormat:
		format = nbt.FormatSNBT
		normalized, err := nbt.Normalize(v)
		if err != nil {
			return err
		}
		v = normalized
	}
	data, err := nbt.Encode(format, v)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	if len(data) > 0 && data[len(data)-1] != '\n' {
		_, err = io.WriteString(w, "\n")
	}
	return err
}
