package descriptor

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/wippyai/nativebridge/errors"
	"github.com/wippyai/nativebridge/protocol"
)

type category uint8

const (
	catBool category = iota
	catNumeric
)

type primitive struct {
	desc string
	cat  category
}

// primitives lists every Go primitive that has a descriptor. Each has
// exactly one; unsigned and platform-width types are carried by
// reinterpretation or width conversion.
var primitives = map[string]primitive{
	"bool":    {"Z", catBool},
	"int8":    {"B", catNumeric},
	"uint8":   {"B", catNumeric},
	"byte":    {"B", catNumeric},
	"uint16":  {"C", catNumeric},
	"int16":   {"S", catNumeric},
	"int32":   {"I", catNumeric},
	"rune":    {"I", catNumeric},
	"uint32":  {"I", catNumeric},
	"int64":   {"J", catNumeric},
	"uint64":  {"J", catNumeric},
	"int":     {"J", catNumeric},
	"uint":    {"J", catNumeric},
	"uintptr": {"J", catNumeric},
	"float32": {"F", catNumeric},
	"float64": {"D", catNumeric},
}

// defaultGoTypes picks the native type for a primitive descriptor when the
// source type carries no Go type of its own (type parameters).
var defaultGoTypes = map[string]string{
	"Z": "bool",
	"B": "int8",
	"C": "uint16",
	"S": "int16",
	"I": "int32",
	"J": "int64",
	"F": "float32",
	"D": "float64",
}

// Resolver turns SourceTypes into TypeSignatures. The zero Resolver applies
// the built-in rules only.
type Resolver struct {
	// Overrides maps a source spelling (SourceType.String) to a descriptor or
	// a qualified class name.
	Overrides map[string]string
}

// NewResolver returns a Resolver with a copy of overrides.
func NewResolver(overrides map[string]string) *Resolver {
	r := &Resolver{Overrides: make(map[string]string, len(overrides))}
	for k, v := range overrides {
		r.Overrides[k] = v
	}
	return r
}

// Resolve determines the descriptor, adapter C type, native Go type and
// conversions for t. void is accepted only when isReturn is set.
func (r *Resolver) Resolve(t SourceType, isReturn bool) (TypeSignature, error) {
	return r.resolve(t, isReturn, nil)
}

// ResolveAll resolves parameters and a return type, collecting every
// failure instead of stopping at the first.
func (r *Resolver) ResolveAll(path []string, params []SourceType, ret SourceType) ([]TypeSignature, TypeSignature, errors.List) {
	var errs errors.List
	sigs := make([]TypeSignature, len(params))
	for i, p := range params {
		s, err := r.resolve(p, false, append(append([]string(nil), path...), fmt.Sprintf("param[%d]", i)))
		if err != nil {
			errs.Add(asError(err))
			continue
		}
		sigs[i] = s
	}
	rs, err := r.resolve(ret, true, append(append([]string(nil), path...), "return"))
	if err != nil {
		errs.Add(asError(err))
	}
	return sigs, rs, errs
}

func (r *Resolver) resolve(t SourceType, isReturn bool, path []string) (TypeSignature, error) {
	if t.IsVoid() && len(t.Mappings) == 0 {
		if !isReturn {
			return TypeSignature{}, errors.UnresolvedType(path, "void", "void is only valid as a return type")
		}
		return TypeSignature{Descriptor: "V", CType: "void"}, nil
	}

	if n := len(t.Mappings); n > 0 {
		return r.mapped(t, t.Mappings[n-1], path)
	}
	if r != nil && !t.TypeParam {
		if m, ok := r.Overrides[t.String()]; ok {
			return r.mapped(t, m, path)
		}
	}
	if t.TypeParam {
		return TypeSignature{}, errors.UnresolvedType(path, t.String(), "type parameter without a type mapping")
	}
	return r.natural(t, path)
}

// natural applies the built-in rules.
func (r *Resolver) natural(t SourceType, path []string) (TypeSignature, error) {
	if t.Elem != nil {
		elem, err := r.resolve(*t.Elem, false, append(append([]string(nil), path...), "elem"))
		if err != nil {
			return TypeSignature{}, errors.UnresolvedType(path, t.String(), "array element has no descriptor")
		}
		desc := string(protocol.DescArray) + elem.Descriptor
		if elem.Descriptor == "B" && (elem.GoType == "byte" || elem.GoType == "uint8") {
			return bytesSignature(desc), nil
		}
		return refSignature(desc), nil
	}

	if p, ok := primitives[t.Name]; ok {
		return primitiveSignature(p.desc, t.Name, p.cat), nil
	}
	if t.Name == "string" {
		return stringSignature("L" + protocol.StringClass + ";"), nil
	}
	if strings.Contains(t.Name, ".") {
		cn, err := protocol.ParseClassName(t.Name)
		if err != nil {
			return TypeSignature{}, errors.UnresolvedType(path, t.Name, err.Error())
		}
		return refSignature("L" + cn.Internal() + ";"), nil
	}
	return TypeSignature{}, errors.UnresolvedType(path, t.Name, "not a primitive, string, array or qualified class name")
}

// mapped resolves t under the mapping m. The mapping changes the descriptor;
// the native Go type stays that of t.
func (r *Resolver) mapped(t SourceType, m string, path []string) (TypeSignature, error) {
	desc, err := mappingDescriptor(m)
	if err != nil {
		return TypeSignature{}, errors.New(errors.PhaseResolve, errors.KindUnresolvedType).
			Path(path...).
			SourceType(t.String()).
			Detail("invalid type mapping %q", m).
			Cause(err).
			Build()
	}
	if desc == "V" {
		return TypeSignature{}, errors.UnresolvedType(path, t.String(), "type mapping to void")
	}

	if t.TypeParam || t.IsVoid() {
		if IsPrimitive(desc) {
			goType := defaultGoTypes[desc]
			cat := catNumeric
			if desc == "Z" {
				cat = catBool
			}
			return primitiveSignature(desc, goType, cat), nil
		}
		return refSignature(desc), nil
	}

	nat, err := r.natural(SourceType{Name: t.Name, Elem: t.Elem}, path)
	if err != nil {
		if t.Elem != nil || !isIdent(t.Name) {
			return TypeSignature{}, err
		}
		// A named Go type with no built-in rule takes the mapped
		// descriptor and converts by its own name.
		if IsPrimitive(desc) {
			cat := catNumeric
			if desc == "Z" {
				cat = catBool
			}
			return primitiveSignature(desc, t.Name, cat), nil
		}
		return refSignature(desc), nil
	}
	natPrim := IsPrimitive(nat.Descriptor)
	if natPrim != IsPrimitive(desc) {
		return TypeSignature{}, errors.New(errors.PhaseResolve, errors.KindUnresolvedType).
			Path(path...).
			SourceType(t.String()).
			Descriptor(desc).
			Detail("mapping crosses the primitive/reference boundary").
			Build()
	}

	if natPrim {
		if (nat.Descriptor == "Z") != (desc == "Z") {
			return TypeSignature{}, errors.New(errors.PhaseResolve, errors.KindUnresolvedType).
				Path(path...).
				SourceType(t.String()).
				Descriptor(desc).
				Detail("boolean and numeric types cannot be mapped onto each other").
				Build()
		}
		cat := catNumeric
		if desc == "Z" {
			cat = catBool
		}
		return primitiveSignature(desc, nat.GoType, cat), nil
	}

	ctype := protocol.CType(desc)
	out := TypeSignature{Descriptor: desc, CType: ctype, GoType: nat.GoType, Conversion: nat.Conversion}
	if ctype != nat.CType && !nat.Conversion.IsIdentity() {
		out.Conversion = Conversion{
			ToNative:   strings.ReplaceAll(nat.Conversion.ToNative, "%s", "C."+nat.CType+"(%s)"),
			ToProtocol: "C." + ctype + "(" + nat.Conversion.ToProtocol + ")",
		}
	}
	if nat.Conversion.IsIdentity() {
		out.GoType = "C." + ctype
	}
	return out, nil
}

func isIdent(s string) bool {
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return s != ""
}

// mappingDescriptor accepts a descriptor or a qualified class name.
func mappingDescriptor(m string) (string, error) {
	m = strings.TrimSpace(m)
	if err := ParseDescriptor(m, true); err == nil {
		return m, nil
	}
	if strings.Contains(m, ".") {
		cn, err := protocol.ParseClassName(m)
		if err != nil {
			return "", err
		}
		return "L" + cn.Internal() + ";", nil
	}
	return "", fmt.Errorf("%q is neither a descriptor nor a qualified class name", m)
}

func primitiveSignature(desc, goType string, cat category) TypeSignature {
	ctype := protocol.CType(desc)
	sig := TypeSignature{Descriptor: desc, CType: ctype, GoType: goType}
	if cat == catBool {
		sig.Conversion = Conversion{ToNative: "(%s != 0)", ToProtocol: "bridgeBool(%s)"}
		return sig
	}
	sig.Conversion = Conversion{ToNative: goType + "(%s)", ToProtocol: "C." + ctype + "(%s)"}
	return sig
}

func stringSignature(desc string) TypeSignature {
	return TypeSignature{
		Descriptor: desc,
		CType:      "jstring",
		GoType:     "string",
		Conversion: Conversion{ToNative: "bridgeGoString(env, %s)", ToProtocol: "bridgeJString(env, %s)"},
	}
}

func bytesSignature(desc string) TypeSignature {
	return TypeSignature{
		Descriptor: desc,
		CType:      "jbyteArray",
		GoType:     "[]byte",
		Conversion: Conversion{ToNative: "bridgeGoBytes(env, %s)", ToProtocol: "bridgeJByteArray(env, %s)"},
	}
}

// refSignature passes the handle through untouched.
func refSignature(desc string) TypeSignature {
	ctype := protocol.CType(desc)
	return TypeSignature{Descriptor: desc, CType: ctype, GoType: "C." + ctype}
}

func asError(err error) *errors.Error {
	if e, ok := err.(*errors.Error); ok {
		return e
	}
	return errors.Wrap(errors.PhaseResolve, errors.KindUnresolvedType, err, "resolve")
}
