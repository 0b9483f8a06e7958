package protocol

import (
	"fmt"
	"strings"
)

// ClassName is a managed class name split into its package path and its
// chain of simple names (outermost first; more than one for nested classes).
type ClassName struct {
	Package []string `cbor:"1,keyasint,omitempty" json:"package,omitempty"`
	Names   []string `cbor:"2,keyasint" json:"names"`
}

// ParseClassName accepts the dotted source form "io.example.Outer$Inner" and
// the internal form "io/example/Outer$Inner".
func ParseClassName(s string) (ClassName, error) {
	if s == "" {
		return ClassName{}, fmt.Errorf("empty class name")
	}
	sep := "."
	if strings.Contains(s, "/") {
		if strings.Contains(s, ".") {
			return ClassName{}, fmt.Errorf("class name %q mixes '.' and '/' separators", s)
		}
		sep = "/"
	}
	parts := strings.Split(s, sep)
	for _, p := range parts {
		if p == "" {
			return ClassName{}, fmt.Errorf("class name %q has an empty segment", s)
		}
	}
	simple := strings.Split(parts[len(parts)-1], "$")
	for _, n := range simple {
		if n == "" {
			return ClassName{}, fmt.Errorf("class name %q has an empty nested name", s)
		}
	}
	cn := ClassName{Names: simple}
	if len(parts) > 1 {
		cn.Package = append([]string(nil), parts[:len(parts)-1]...)
	}
	return cn, nil
}

// MustParseClassName is ParseClassName for constant inputs; it panics on error.
func MustParseClassName(s string) ClassName {
	cn, err := ParseClassName(s)
	if err != nil {
		panic(err)
	}
	return cn
}

// IsZero reports whether the name is empty.
func (c ClassName) IsZero() bool {
	return len(c.Names) == 0
}

// PackagePath returns the dotted package, e.g. "io.example".
func (c ClassName) PackagePath() string {
	return strings.Join(c.Package, ".")
}

// SimpleName returns the simple names joined by '$', e.g. "Outer$Inner".
func (c ClassName) SimpleName() string {
	return strings.Join(c.Names, "$")
}

// Qualified returns the dotted form, e.g. "io.example.Outer$Inner".
func (c ClassName) Qualified() string {
	if len(c.Package) == 0 {
		return c.SimpleName()
	}
	return c.PackagePath() + "." + c.SimpleName()
}

// Internal returns the slash form used in descriptors and class lookup,
// e.g. "io/example/Outer$Inner".
func (c ClassName) Internal() string {
	if len(c.Package) == 0 {
		return c.SimpleName()
	}
	return strings.Join(c.Package, "/") + "/" + c.SimpleName()
}

func (c ClassName) String() string {
	return c.Qualified()
}
