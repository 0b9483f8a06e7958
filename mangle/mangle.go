// Package mangle computes the exported symbol names the managed runtime
// searches for when it resolves a native method.
//
// The rule set must match the runtime bit for bit: a divergence is not a
// compile error but a lookup failure when the class is first used.
//
//	prefix + escape(package segments, '_'-joined) + "_" +
//	         escape(simple names, '$'-joined) + "_" + escape(member)
//
// escape maps '_' to "_1", ';' to "_2", '[' to "_3", and every UTF-16 unit
// above 0x7F to "_0" plus four lowercase hex digits. Everything else passes
// through. Inputs that differ only in Unicode normalization may collide; they
// are not normalized here.
package mangle

import (
	"strings"

	"github.com/wippyai/nativebridge/protocol"
)

// Mangler computes symbol names with a fixed prefix.
type Mangler struct {
	Prefix string
}

// Default uses the protocol's "Java_" prefix.
var Default = Mangler{Prefix: protocol.SymbolPrefix}

// Mangle returns the short symbol name for member of owner.
func (m Mangler) Mangle(owner protocol.ClassName, member string) string {
	var b strings.Builder
	b.Grow(len(m.Prefix) + 2*len(member) + 32)
	b.WriteString(m.Prefix)
	for _, seg := range owner.Package {
		escapeTo(&b, seg, false)
		b.WriteByte('_')
	}
	escapeTo(&b, owner.SimpleName(), false)
	b.WriteByte('_')
	escapeTo(&b, member, false)
	return b.String()
}

// MangleOverloaded returns the long symbol name used when the owner declares
// several natives with the same member name. args is the concatenation of
// the parameter descriptors, without parentheses.
func (m Mangler) MangleOverloaded(owner protocol.ClassName, member, args string) string {
	var b strings.Builder
	b.WriteString(m.Mangle(owner, member))
	b.WriteString("__")
	escapeTo(&b, args, true)
	return b.String()
}

// Mangle uses Default.
func Mangle(owner protocol.ClassName, member string) string {
	return Default.Mangle(owner, member)
}

// MangleOverloaded uses Default.
func MangleOverloaded(owner protocol.ClassName, member, args string) string {
	return Default.MangleOverloaded(owner, member, args)
}

// Escape applies the escape rules to a single name component.
func Escape(s string) string {
	var b strings.Builder
	escapeTo(&b, s, false)
	return b.String()
}

const hexDigits = "0123456789abcdef"

// escapeTo writes s escaped. In signatures '/' separates package segments
// and becomes '_'.
func escapeTo(b *strings.Builder, s string, signature bool) {
	for _, r := range s {
		switch {
		case r == '_':
			b.WriteString("_1")
		case r == ';':
			b.WriteString("_2")
		case r == '[':
			b.WriteString("_3")
		case signature && r == '/':
			b.WriteByte('_')
		case r <= 0x7F:
			b.WriteRune(r)
		case r > 0xFFFF:
			hi, lo := surrogates(r)
			writeUnit(b, hi)
			writeUnit(b, lo)
		default:
			writeUnit(b, uint16(r))
		}
	}
}

func surrogates(r rune) (uint16, uint16) {
	r -= 0x10000
	return uint16(0xD800 + (r>>10)&0x3FF), uint16(0xDC00 + r&0x3FF)
}

func writeUnit(b *strings.Builder, u uint16) {
	b.WriteString("_0")
	b.WriteByte(hexDigits[u>>12&0xF])
	b.WriteByte(hexDigits[u>>8&0xF])
	b.WriteByte(hexDigits[u>>4&0xF])
	b.WriteByte(hexDigits[u&0xF])
}
