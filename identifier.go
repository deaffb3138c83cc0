package pocket

import (
	"fmt"
	"strings"
)

// DefaultNamespace is used for identifiers written without a namespace.
const DefaultNamespace = "minecraft"

// Identifier is a namespaced key such as "dimdoors:path_selector".
type Identifier struct {
	Namespace string
	Path      string
}

// NewIdentifier builds an identifier from its parts without validation.
func NewIdentifier(namespace, path string) Identifier {
	return Identifier{Namespace: namespace, Path: path}
}

// ParseIdentifier parses "namespace:path". A missing namespace defaults to
// DefaultNamespace.
func ParseIdentifier(s string) (Identifier, error) {
	return ParseIdentifierIn(s, DefaultNamespace)
}

// ParseIdentifierIn parses s using namespace when s has none.
func ParseIdentifierIn(s, namespace string) (Identifier, error) {
	ns, path := namespace, s
	if i := strings.IndexByte(s, ':'); i >= 0 {
		ns, path = s[:i], s[i+1:]
		if ns == "" {
			ns = namespace
		}
	}
	if path == "" {
		return Identifier{}, fmt.Errorf("invalid identifier %q: empty path", s)
	}
	if !validChars(ns, false) {
		return Identifier{}, fmt.Errorf("invalid identifier %q: bad namespace %q", s, ns)
	}
	if !validChars(path, true) {
		return Identifier{}, fmt.Errorf("invalid identifier %q: bad path %q", s, path)
	}
	return Identifier{Namespace: ns, Path: path}, nil
}

// TryParseIdentifier is ParseIdentifier reporting failure as ok=false.
func TryParseIdentifier(s string) (Identifier, bool) {
	id, err := ParseIdentifier(s)
	return id, err == nil
}

// MustParseIdentifier panics if s is not a valid identifier.
func MustParseIdentifier(s string) Identifier {
	id, err := ParseIdentifier(s)
	if err != nil {
		panic(err)
	}
	return id
}

// String returns "namespace:path".
func (id Identifier) String() string {
	if id.IsZero() {
		return ""
	}
	return id.Namespace + ":" + id.Path
}

// IsZero reports whether id is the zero identifier.
func (id Identifier) IsZero() bool {
	return id.Namespace == "" && id.Path == ""
}

// MarshalText implements encoding.TextMarshaler.
func (id Identifier) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *Identifier) UnmarshalText(text []byte) error {
	parsed, err := ParseIdentifier(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func validChars(s string, path bool) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		case c == '_', c == '-', c == '.':
		case c == '/' && path:
		default:
			return false
		}
	}
	return true
}
