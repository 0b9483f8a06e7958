// Package descriptor maps native-side Go types to the compact type
// descriptors the managed runtime uses ("I", "[B", "Ljava/lang/String;",
// "(IJ)V") and records the conversion each value needs at the boundary.
//
// Resolution order for a SourceType:
//
//  1. mappings attached to the type (the last one wins and is final)
//  2. the configured override table, keyed by the type's source spelling
//  3. built-in rules
//
// Conversions are never folded into descriptors; they live on the
// TypeSignature and are applied by the glue emitter.
package descriptor

import (
	"fmt"
	"strings"
)

// SourceType is a parameter or return type as written on the native side.
// A non-nil Elem makes it an array of Elem and Name is ignored. The zero
// SourceType is void.
type SourceType struct {
	Name      string      `cbor:"1,keyasint,omitempty" json:"name,omitempty"`
	Elem      *SourceType `cbor:"2,keyasint,omitempty" json:"elem,omitempty"`
	Mappings  []string    `cbor:"3,keyasint,omitempty" json:"mappings,omitempty"`
	TypeParam bool        `cbor:"4,keyasint,omitempty" json:"type_param,omitempty"`
}

// Named returns a SourceType for a primitive, "string" or a qualified class.
func Named(name string) SourceType {
	return SourceType{Name: name}
}

// ArrayOf returns an array type with the given element type.
func ArrayOf(elem SourceType) SourceType {
	e := elem
	return SourceType{Elem: &e}
}

// Void is the empty return type.
var Void = SourceType{}

// IsVoid reports whether t denotes no value.
func (t SourceType) IsVoid() bool {
	return t.Elem == nil && (t.Name == "" || t.Name == "void")
}

// IsArray reports whether t is an array type.
func (t SourceType) IsArray() bool {
	return t.Elem != nil
}

// WithMapping returns a copy of t with m stacked on top of its mappings.
func (t SourceType) WithMapping(m string) SourceType {
	out := t
	out.Mappings = append(append([]string(nil), t.Mappings...), m)
	return out
}

// String returns the source spelling, which is also the key into the
// override table. Mappings are not part of the spelling.
func (t SourceType) String() string {
	if t.Elem != nil {
		return "[]" + t.Elem.String()
	}
	if t.Name == "" {
		return "void"
	}
	return t.Name
}

// Clone returns a deep copy.
func (t SourceType) Clone() SourceType {
	out := t
	if t.Elem != nil {
		e := t.Elem.Clone()
		out.Elem = &e
	}
	if t.Mappings != nil {
		out.Mappings = append([]string(nil), t.Mappings...)
	}
	return out
}

// Conversion holds fmt templates with a single %s verb standing for the value
// expression. An empty template means the value passes through unchanged.
// Templates may refer to the adapter's env parameter as "env".
type Conversion struct {
	ToNative   string `cbor:"1,keyasint,omitempty" json:"to_native,omitempty"`
	ToProtocol string `cbor:"2,keyasint,omitempty" json:"to_protocol,omitempty"`
}

// Native converts a protocol-side expression to its native-side value.
func (c Conversion) Native(expr string) string {
	return apply(c.ToNative, expr)
}

// Protocol converts a native-side expression to its protocol-side value.
func (c Conversion) Protocol(expr string) string {
	return apply(c.ToProtocol, expr)
}

// IsIdentity reports whether values cross unchanged in both directions.
func (c Conversion) IsIdentity() bool {
	return c.ToNative == "" && c.ToProtocol == ""
}

func apply(tmpl, expr string) string {
	if tmpl == "" {
		return expr
	}
	return strings.ReplaceAll(tmpl, "%s", expr)
}

// TypeSignature is a resolved SourceType.
type TypeSignature struct {
	// Descriptor is the managed-side type descriptor.
	Descriptor string `cbor:"1,keyasint" json:"descriptor"`
	// CType is the C handle type in the adapter signature, e.g. "jint".
	CType string `cbor:"2,keyasint,omitempty" json:"ctype,omitempty"`
	// GoType is the type the native Go function declares. Empty for void.
	GoType     string     `cbor:"3,keyasint,omitempty" json:"go_type,omitempty"`
	Conversion Conversion `cbor:"4,keyasint,omitempty" json:"conversion,omitempty"`
}

// IsVoid reports whether the signature is the void return.
func (s TypeSignature) IsVoid() bool {
	return s.Descriptor == "V"
}

// AdapterType returns the Go spelling of CType, e.g. "C.jint".
func (s TypeSignature) AdapterType() string {
	if s.CType == "" || s.CType == "void" {
		return ""
	}
	return "C." + s.CType
}

// MethodSignature builds "(" + parameter descriptors + ")" + return descriptor.
// A zero return signature is treated as void.
func MethodSignature(params []TypeSignature, ret TypeSignature) string {
	var b strings.Builder
	b.WriteByte('(')
	for _, p := range params {
		b.WriteString(p.Descriptor)
	}
	b.WriteByte(')')
	if ret.Descriptor == "" {
		b.WriteByte('V')
	} else {
		b.WriteString(ret.Descriptor)
	}
	return b.String()
}

// ArgDescriptors returns the concatenated parameter descriptors, the input
// of the overloaded mangled form.
func ArgDescriptors(params []TypeSignature) string {
	var b strings.Builder
	for _, p := range params {
		b.WriteString(p.Descriptor)
	}
	return b.String()
}

func (s TypeSignature) String() string {
	if s.GoType == "" {
		return s.Descriptor
	}
	return fmt.Sprintf("%s (%s)", s.Descriptor, s.GoType)
}
