// Package protocol holds the fixed vocabulary of the native interface:
// versions, descriptor letters, hook names and per-platform conventions.
package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a native interface version as returned by the load hook.
type Version uint32

// Known versions. The numeric values are part of the protocol.
const (
	Version1_1 Version = 0x00010001
	Version1_2 Version = 0x00010002
	Version1_4 Version = 0x00010004
	Version1_6 Version = 0x00010006
	Version1_8 Version = 0x00010008
	Version9   Version = 0x00090000
	Version10  Version = 0x000a0000
	Version19  Version = 0x00130000
	Version20  Version = 0x00140000
	Version21  Version = 0x00150000
)

// DefaultVersion is assumed when no version is configured.
const DefaultVersion = Version1_6

var versionNames = map[Version]string{
	Version1_1: "JNI_VERSION_1_1",
	Version1_2: "JNI_VERSION_1_2",
	Version1_4: "JNI_VERSION_1_4",
	Version1_6: "JNI_VERSION_1_6",
	Version1_8: "JNI_VERSION_1_8",
	Version9:   "JNI_VERSION_9",
	Version10:  "JNI_VERSION_10",
	Version19:  "JNI_VERSION_19",
	Version20:  "JNI_VERSION_20",
	Version21:  "JNI_VERSION_21",
}

// Known reports whether v is a published version.
func (v Version) Known() bool {
	_, ok := versionNames[v]
	return ok
}

// Constant returns the C macro naming v, e.g. "JNI_VERSION_1_6".
func (v Version) Constant() string {
	if name, ok := versionNames[v]; ok {
		return name
	}
	return fmt.Sprintf("0x%08x", uint32(v))
}

// String renders v as "1.6" or "21".
func (v Version) String() string {
	major, minor := uint32(v)>>16, uint32(v)&0xFFFF
	if major == 1 {
		return fmt.Sprintf("1.%d", minor)
	}
	return strconv.FormatUint(uint64(major), 10)
}

// SupportsHooks reports whether load/unload hooks exist at v.
func (v Version) SupportsHooks() bool {
	return v >= Version1_2
}

// ParseVersion accepts "1.6", "21", "JNI_VERSION_1_6" or a numeric literal
// such as "0x00010006".
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty protocol version")
	}
	if strings.HasPrefix(s, "JNI_VERSION_") {
		for v, name := range versionNames {
			if name == s {
				return v, nil
			}
		}
		return 0, fmt.Errorf("unknown protocol version %q", s)
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		n, err := strconv.ParseUint(s[2:], 16, 32)
		if err != nil {
			return 0, fmt.Errorf("protocol version %q: %w", s, err)
		}
		return Version(n), nil
	}
	major, minor, hasMinor := strings.Cut(s, ".")
	maj, err := strconv.ParseUint(major, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("protocol version %q: %w", s, err)
	}
	var mnr uint64
	if hasMinor {
		mnr, err = strconv.ParseUint(minor, 10, 16)
		if err != nil {
			return 0, fmt.Errorf("protocol version %q: %w", s, err)
		}
	}
	return Version(maj<<16 | mnr), nil
}

// Hook names are fixed by the protocol and not subject to mangling.
const (
	OnLoadSymbol   = "JNI_OnLoad"
	OnUnloadSymbol = "JNI_OnUnload"
)

// SymbolPrefix starts every statically exported native method name.
const SymbolPrefix = "Java_"

// Descriptor letters.
const (
	DescBoolean  = 'Z'
	DescByte     = 'B'
	DescChar     = 'C'
	DescShort    = 'S'
	DescInt      = 'I'
	DescLong     = 'J'
	DescFloat    = 'F'
	DescDouble   = 'D'
	DescVoid     = 'V'
	DescArray    = '['
	DescClass    = 'L'
	DescClassEnd = ';'
)

// StringClass is the managed string class in internal form.
const StringClass = "java/lang/String"

// CType returns the C handle type carrying a value with the given
// descriptor through the native interface.
func CType(desc string) string {
	if desc == "" {
		return ""
	}
	switch desc[0] {
	case DescBoolean:
		return "jboolean"
	case DescByte:
		return "jbyte"
	case DescChar:
		return "jchar"
	case DescShort:
		return "jshort"
	case DescInt:
		return "jint"
	case DescLong:
		return "jlong"
	case DescFloat:
		return "jfloat"
	case DescDouble:
		return "jdouble"
	case DescVoid:
		return "void"
	case DescArray:
		if len(desc) == 2 {
			if elem := CType(desc[1:]); elem != "" && desc[1] != DescVoid {
				return elem + "Array"
			}
		}
		return "jobjectArray"
	case DescClass:
		if desc == "L"+StringClass+";" {
			return "jstring"
		}
		if desc == "Ljava/lang/Class;" {
			return "jclass"
		}
		if desc == "Ljava/lang/Throwable;" {
			return "jthrowable"
		}
		return "jobject"
	}
	return ""
}
