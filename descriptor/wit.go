package descriptor

import (
	"fmt"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/nativebridge/errors"
)

// parseWIT handles list<T> itself and defers primitive names to the wit
// package.
func parseWIT(s string) (wit.Type, error) {
	if inner, ok := strings.CutPrefix(s, "list<"); ok {
		if !strings.HasSuffix(inner, ">") {
			return nil, fmt.Errorf("unterminated list type %q", s)
		}
		elem, err := parseWIT(strings.TrimSpace(inner[:len(inner)-1]))
		if err != nil {
			return nil, err
		}
		return &wit.TypeDef{Kind: &wit.List{Type: elem}}, nil
	}
	if inner, ok := strings.CutPrefix(s, "option<"); ok {
		if !strings.HasSuffix(inner, ">") {
			return nil, fmt.Errorf("unterminated option type %q", s)
		}
		elem, err := parseWIT(strings.TrimSpace(inner[:len(inner)-1]))
		if err != nil {
			return nil, err
		}
		return &wit.TypeDef{Kind: &wit.Option{Type: elem}}, nil
	}
	return wit.ParseType(s)
}

// FromWIT adapts a WIT type to a SourceType so declarations authored against
// WIT interfaces resolve to the same descriptors as Go-authored ones.
//
// Supported: the numeric primitives, bool, char (as int32), string,
// list<T>, and option<T> where T is a reference (string or list), which
// maps to T since references are already nullable.
func FromWIT(t wit.Type) (SourceType, error) {
	switch v := t.(type) {
	case wit.Bool:
		return Named("bool"), nil
	case wit.U8:
		return Named("uint8"), nil
	case wit.S8:
		return Named("int8"), nil
	case wit.U16:
		return Named("uint16"), nil
	case wit.S16:
		return Named("int16"), nil
	case wit.U32:
		return Named("uint32"), nil
	case wit.S32:
		return Named("int32"), nil
	case wit.U64:
		return Named("uint64"), nil
	case wit.S64:
		return Named("int64"), nil
	case wit.F32:
		return Named("float32"), nil
	case wit.F64:
		return Named("float64"), nil
	case wit.Char:
		return Named("int32"), nil
	case wit.String:
		return Named("string"), nil
	case *wit.TypeDef:
		switch k := v.Kind.(type) {
		case *wit.List:
			elem, err := FromWIT(k.Type)
			if err != nil {
				return SourceType{}, err
			}
			return ArrayOf(elem), nil
		case *wit.Option:
			inner, err := FromWIT(k.Type)
			if err != nil {
				return SourceType{}, err
			}
			if inner.IsArray() || inner.Name == "string" {
				return inner, nil
			}
			return SourceType{}, errors.Unsupported(errors.PhaseResolve,
				fmt.Sprintf("option of primitive WIT type %s has no nullable descriptor", inner))
		case wit.Type:
			return FromWIT(k)
		}
		return SourceType{}, errors.Unsupported(errors.PhaseResolve, fmt.Sprintf("WIT type definition %T", v.Kind))
	}
	return SourceType{}, errors.Unsupported(errors.PhaseResolve, fmt.Sprintf("WIT type %T", t))
}
