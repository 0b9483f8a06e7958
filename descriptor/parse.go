package descriptor

import (
	"fmt"
	"strings"

	"github.com/wippyai/nativebridge/errors"
	"github.com/wippyai/nativebridge/protocol"
)

// ParseDescriptor validates a single field descriptor such as "I", "[[J" or
// "Lio/example/Widget;". "V" is accepted only when allowVoid is set.
func ParseDescriptor(s string, allowVoid bool) error {
	n, err := fieldLen(s, 0, allowVoid)
	if err != nil {
		return err
	}
	if n != len(s) {
		return descriptorError(s, len(s)-n, "trailing characters")
	}
	return nil
}

// SplitMethod splits a method descriptor "(IJ)V" into its parameter
// descriptors and return descriptor.
func SplitMethod(s string) ([]string, string, error) {
	if len(s) < 3 || s[0] != '(' {
		return nil, "", descriptorError(s, 0, "method descriptor must start with '('")
	}
	var params []string
	i := 1
	for i < len(s) && s[i] != ')' {
		n, err := fieldLen(s[i:], i, false)
		if err != nil {
			return nil, "", err
		}
		params = append(params, s[i:i+n])
		i += n
	}
	if i >= len(s) {
		return nil, "", descriptorError(s, i, "missing ')'")
	}
	ret := s[i+1:]
	if err := ParseDescriptor(ret, true); err != nil {
		return nil, "", err
	}
	return params, ret, nil
}

// IsPrimitive reports whether desc is a single primitive letter (not V).
func IsPrimitive(desc string) bool {
	if len(desc) != 1 {
		return false
	}
	switch desc[0] {
	case protocol.DescBoolean, protocol.DescByte, protocol.DescChar, protocol.DescShort,
		protocol.DescInt, protocol.DescLong, protocol.DescFloat, protocol.DescDouble:
		return true
	}
	return false
}

// fieldLen returns the length of the field descriptor at the start of s.
// off is the offset of s within the outer descriptor, for error positions.
func fieldLen(s string, off int, allowVoid bool) (int, error) {
	if s == "" {
		return 0, descriptorError(s, off, "empty descriptor")
	}
	switch s[0] {
	case protocol.DescBoolean, protocol.DescByte, protocol.DescChar, protocol.DescShort,
		protocol.DescInt, protocol.DescLong, protocol.DescFloat, protocol.DescDouble:
		return 1, nil
	case protocol.DescVoid:
		if !allowVoid {
			return 0, descriptorError(s, off, "void is only valid as a return type")
		}
		return 1, nil
	case protocol.DescArray:
		dims := 0
		for dims < len(s) && s[dims] == protocol.DescArray {
			dims++
		}
		if dims > 255 {
			return 0, descriptorError(s, off, "more than 255 array dimensions")
		}
		n, err := fieldLen(s[dims:], off+dims, false)
		if err != nil {
			return 0, err
		}
		return dims + n, nil
	case protocol.DescClass:
		end := strings.IndexByte(s, protocol.DescClassEnd)
		if end < 0 {
			return 0, descriptorError(s, off, "unterminated class descriptor")
		}
		name := s[1:end]
		if name == "" || strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/") || strings.Contains(name, "//") {
			return 0, descriptorError(s, off, "malformed class name")
		}
		if strings.ContainsAny(name, ".[;") {
			return 0, descriptorError(s, off, "class name contains '.', '[' or ';'")
		}
		return end + 1, nil
	}
	return 0, descriptorError(s, off, fmt.Sprintf("unknown descriptor letter %q", s[0]))
}

func descriptorError(s string, off int, detail string) *errors.Error {
	return errors.New(errors.PhaseResolve, errors.KindInvalidData).
		Descriptor(s).
		Value(off).
		Detail("%s (offset %d)", detail, off).
		Build()
}

// ParseSourceType parses a type as spelled in manifests:
//
//	int32, uint8, string          primitives and string
//	[]int32, [][]string           arrays
//	io.example.Widget             qualified managed classes ('$' for nested)
//	wit:u32, wit:list<u8>         WIT spellings, adapted through FromWIT
//	void                          return position only
func ParseSourceType(s string) (SourceType, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return SourceType{}, errors.ParseFailed("source type", fmt.Errorf("empty type"))
	}
	if rest, ok := strings.CutPrefix(s, "wit:"); ok {
		wt, err := parseWIT(strings.TrimSpace(rest))
		if err != nil {
			return SourceType{}, errors.ParseFailed("source type "+s, err)
		}
		return FromWIT(wt)
	}
	if rest, ok := strings.CutPrefix(s, "[]"); ok {
		elem, err := ParseSourceType(rest)
		if err != nil {
			return SourceType{}, err
		}
		if elem.IsVoid() {
			return SourceType{}, errors.ParseFailed("source type "+s, fmt.Errorf("array of void"))
		}
		return ArrayOf(elem), nil
	}
	if strings.ContainsAny(s, " \t[]<>;") {
		return SourceType{}, errors.ParseFailed("source type "+s, fmt.Errorf("unexpected character"))
	}
	return Named(s), nil
}
