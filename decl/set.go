package decl

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/fxamacker/cbor/v2"
)

// Role says which side of the boundary a Set describes.
type Role string

const (
	RoleExpectations Role = "expectations"
	RoleActuals      Role = "actuals"
)

// Set is a module's fully materialized declarations. A producer build writes
// its actual set so that a consumer build can verify against it.
type Set struct {
	Role         Role          `cbor:"1,keyasint" json:"role"`
	Module       string        `cbor:"2,keyasint,omitempty" json:"module,omitempty"`
	Declarations []Declaration `cbor:"3,keyasint,omitempty" json:"declarations,omitempty"`
}

// Len returns the number of declarations.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Declarations)
}

// Sorted returns a copy with declarations ordered by key, then location.
func (s *Set) Sorted() *Set {
	out := &Set{Role: s.Role, Module: s.Module, Declarations: make([]Declaration, len(s.Declarations))}
	for i := range s.Declarations {
		out.Declarations[i] = s.Declarations[i].Clone()
	}
	sort.SliceStable(out.Declarations, func(i, j int) bool {
		a, b := &out.Declarations[i], &out.Declarations[j]
		if ka, kb := a.Key(), b.Key(); ka != kb {
			return ka < kb
		}
		return a.Location.Less(b.Location)
	})
	return out
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("decl: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalSet serializes a Set to canonical CBOR. Declarations are sorted
// first so equal sets encode to identical bytes.
func MarshalSet(s *Set) ([]byte, error) {
	return cborEncMode.Marshal(s.Sorted())
}

// UnmarshalSet deserializes a Set from CBOR bytes.
func UnmarshalSet(data []byte) (*Set, error) {
	var s Set
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decl: unmarshal set: %w", err)
	}
	switch s.Role {
	case RoleExpectations, RoleActuals:
	default:
		return nil, fmt.Errorf("decl: unmarshal set: unknown role %q", s.Role)
	}
	return &s, nil
}

// WriteSet writes the canonical encoding of s to w.
func WriteSet(w io.Writer, s *Set) error {
	data, err := MarshalSet(s)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// LoadSet reads a Set artifact from path.
func LoadSet(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	s, err := UnmarshalSet(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}
