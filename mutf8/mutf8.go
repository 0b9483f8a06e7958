// Package mutf8 implements the modified UTF-8 encoding used for text at the
// native interface boundary.
//
// It differs from UTF-8 in two ways: U+0000 is written as the two-byte
// sequence C0 80 so encoded text never contains a zero byte, and code points
// above U+FFFF are written as two individually encoded UTF-16 surrogate
// halves (three bytes each) instead of one four-byte sequence. Every encoded
// value carries a single terminating zero byte.
//
// Class names, method names and type signatures handed to the runtime must be
// in this form. Using plain UTF-8 there is a correctness bug.
package mutf8

import (
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/wippyai/nativebridge/errors"
)

const (
	maxOneByte = 0x7F
	maxTwoByte = 0x7FF

	surrSelf = 0x10000
)

// Encode converts text to modified UTF-8, terminator included.
func Encode(s string) []byte {
	buf := make([]byte, 0, len(s)+1)
	for _, r := range s {
		if r >= surrSelf {
			r1, r2 := utf16.EncodeRune(r)
			buf = appendUnit(buf, uint16(r1))
			buf = appendUnit(buf, uint16(r2))
			continue
		}
		buf = appendUnit(buf, uint16(r))
	}
	return append(buf, 0)
}

// EncodeUTF16 encodes a UTF-16 unit sequence, including unpaired surrogate
// halves, terminator included.
func EncodeUTF16(units []uint16) []byte {
	buf := make([]byte, 0, len(units)+1)
	for _, u := range units {
		buf = appendUnit(buf, u)
	}
	return append(buf, 0)
}

func appendUnit(buf []byte, u uint16) []byte {
	switch {
	case u == 0:
		return append(buf, 0xC0, 0x80)
	case u <= maxOneByte:
		return append(buf, byte(u))
	case u <= maxTwoByte:
		return append(buf, 0xC0|byte(u>>6), 0x80|byte(u&0x3F))
	default:
		return append(buf, 0xE0|byte(u>>12), 0x80|byte((u>>6)&0x3F), 0x80|byte(u&0x3F))
	}
}

// DecodeUTF16 decodes modified UTF-8 into UTF-16 units. Decoding stops at the
// first zero byte; input without a terminator is accepted.
func DecodeUTF16(data []byte) ([]uint16, error) {
	units := make([]uint16, 0, len(data))
	for i := 0; i < len(data); {
		b := data[i]
		switch {
		case b == 0:
			return units, nil
		case b < 0x80:
			units = append(units, uint16(b))
			i++
		case b&0xE0 == 0xC0:
			if i+1 >= len(data) || data[i+1]&0xC0 != 0x80 {
				return nil, errors.InvalidEncoding(errors.PhaseDecode, i, data[i:])
			}
			u := uint16(b&0x1F)<<6 | uint16(data[i+1]&0x3F)
			// Overlong forms are rejected except for the C0 80 null.
			if u != 0 && u <= maxOneByte {
				return nil, errors.InvalidEncoding(errors.PhaseDecode, i, data[i:])
			}
			units = append(units, u)
			i += 2
		case b&0xF0 == 0xE0:
			if i+2 >= len(data) || data[i+1]&0xC0 != 0x80 || data[i+2]&0xC0 != 0x80 {
				return nil, errors.InvalidEncoding(errors.PhaseDecode, i, data[i:])
			}
			u := uint16(b&0x0F)<<12 | uint16(data[i+1]&0x3F)<<6 | uint16(data[i+2]&0x3F)
			if u <= maxTwoByte {
				return nil, errors.InvalidEncoding(errors.PhaseDecode, i, data[i:])
			}
			units = append(units, u)
			i += 3
		default:
			// four-byte UTF-8 forms never occur in modified UTF-8
			return nil, errors.InvalidEncoding(errors.PhaseDecode, i, data[i:])
		}
	}
	return units, nil
}

// Decode converts modified UTF-8 back to text. Surrogate pairs are rejoined;
// an unpaired half becomes utf8.RuneError since Go strings cannot hold it.
func Decode(data []byte) (string, error) {
	units, err := DecodeUTF16(data)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.Grow(len(units))
	for _, r := range utf16.Decode(units) {
		b.WriteRune(r)
	}
	return b.String(), nil
}

// Valid reports whether data is well-formed modified UTF-8.
func Valid(data []byte) bool {
	_, err := DecodeUTF16(data)
	return err == nil
}

// Literal returns a Go string literal holding the encoded form of s with the
// terminator, ready to pass to C through unsafe.StringData. Printable ASCII
// is kept readable; every other byte is hex escaped.
func Literal(s string) string {
	enc := Encode(s)
	var b strings.Builder
	b.Grow(len(enc) + 8)
	b.WriteByte('"')
	for _, c := range enc {
		switch {
		case c == '"' || c == '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c >= 0x20 && c < 0x7F:
			b.WriteByte(c)
		default:
			b.WriteString(`\x`)
			if c < 0x10 {
				b.WriteByte('0')
			}
			b.WriteString(strconv.FormatUint(uint64(c), 16))
		}
	}
	b.WriteByte('"')
	return b.String()
}

// EncodedLen returns the length of Encode(s) without allocating.
func EncodedLen(s string) int {
	n := 1
	for _, r := range s {
		switch {
		case r == 0:
			n += 2
		case r <= maxOneByte:
			n++
		case r <= maxTwoByte:
			n += 2
		case r >= surrSelf && r <= utf8.MaxRune:
			n += 6
		default:
			n += 3
		}
	}
	return n
}
