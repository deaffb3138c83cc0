package resource

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/dimdev/pocket"
	"github.com/dimdev/pocket/nbt"
)

// DefaultExtensions is the lookup order for resource files.
var DefaultExtensions = []string{"nbt", "snbt", "json", "yaml", "yml"}

// FSLoader reads resources from a data pack laid out on an fs.FS.
type FSLoader struct {
	fsys       fs.FS
	namespace  string
	extensions []string
	logger     pocket.Logger
	tracer     pocket.Tracer
}

// FSOption configures an FSLoader.
type FSOption func(*FSLoader)

// WithNamespace sets the namespace used for names without one.
func WithNamespace(namespace string) FSOption {
	return func(l *FSLoader) {
		if namespace != "" {
			l.namespace = namespace
		}
	}
}

// WithExtensions sets the file extensions tried, in order.
func WithExtensions(exts ...string) FSOption {
	return func(l *FSLoader) {
		if len(exts) > 0 {
			l.extensions = exts
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger pocket.Logger) FSOption {
	return func(l *FSLoader) {
		l.logger = logger
	}
}

// WithTracer sets the tracer used for per-resource spans.
func WithTracer(tracer pocket.Tracer) FSOption {
	return func(l *FSLoader) {
		l.tracer = tracer
	}
}

// NewFSLoader creates a loader over the data pack rooted at fsys.
func NewFSLoader(fsys fs.FS, opts ...FSOption) *FSLoader {
	l := &FSLoader{
		fsys:       fsys,
		namespace:  DefaultNamespace,
		extensions: DefaultExtensions,
		logger:     pocket.NopLogger{},
		tracer:     pocket.NopTracer{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Namespace returns the default namespace.
func (l *FSLoader) Namespace() string {
	return l.namespace
}

// Resolve returns the identifier name refers to.
func (l *FSLoader) Resolve(name string) (pocket.Identifier, error) {
	return pocket.ParseIdentifierIn(name, l.namespace)
}

// Load reads and parses the first file found for root/name.
func (l *FSLoader) Load(ctx context.Context, root, name string) (any, error) {
	ctx, end := l.tracer.StartSpan(ctx, "resource.load")
	defer end()

	id, err := l.Resolve(name)
	if err != nil {
		return nil, fmt.Errorf("%w: resource name %q: %v", pocket.ErrMalformed, name, err)
	}

	base := path.Join("data", id.Namespace, root, id.Path)
	for _, ext := range l.extensions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		file := base + "." + ext
		data, err := fs.ReadFile(l.fsys, file)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}

		format, _ := nbt.FormatForExt(ext)
		value, err := nbt.Parse(format, data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", pocket.ErrMalformed, file, err)
		}
		l.logger.Debug(ctx, "resource loaded", "root", root, "name", id.String(), "file", file)
		return value, nil
	}
	return nil, fmt.Errorf("%w: %s/%s", pocket.ErrNotFound, root, id)
}

// List returns the names of every resource under root, across namespaces,
// sorted and without duplicates.
func (l *FSLoader) List(ctx context.Context, root string) ([]string, error) {
	namespaces, err := fs.ReadDir(l.fsys, "data")
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	for _, ns := range namespaces {
		if !ns.IsDir() {
			continue
		}
		dir := path.Join("data", ns.Name(), root)
		err := fs.WalkDir(l.fsys, dir, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) && p == dir {
					return fs.SkipDir
				}
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			ext := strings.TrimPrefix(path.Ext(p), ".")
			if !l.supported(ext) {
				return nil
			}
			rel := strings.TrimSuffix(strings.TrimPrefix(p, dir+"/"), "."+ext)
			seen[ns.Name()+":"+rel] = true
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", dir, err)
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (l *FSLoader) supported(ext string) bool {
	for _, e := range l.extensions {
		if e == ext {
			return true
		}
	}
	return false
}
