// Package wasmbin reads and writes the few WebAssembly binary structures
// the symbol check needs: LEB128 integers, the export section, and stub
// modules exporting functions with given core signatures.
package wasmbin

import (
	"github.com/tetratelabs/wazero/api"
)

// Magic is the module preamble: "\0asm" followed by version 1.
var Magic = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

// Section ids.
const (
	SectionType     = 0x01
	SectionFunction = 0x03
	SectionExport   = 0x07
	SectionCode     = 0x0a
)

// EncodeULEB128 encodes an unsigned value in LEB128 format.
func EncodeULEB128(v uint32) []byte {
	var result []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		result = append(result, b)
		if v == 0 {
			break
		}
	}
	return result
}

// DecodeULEB128 decodes an unsigned LEB128 value and returns the number of
// bytes consumed, or 0 when data ends mid-value.
func DecodeULEB128(data []byte) (uint32, int) {
	var result uint32
	var shift uint32
	for i, b := range data {
		result |= uint32(b&0x7F) << shift
		if b&0x80 == 0 {
			return result, i + 1
		}
		shift += 7
		if shift > 35 {
			return result, i + 1
		}
	}
	return 0, 0
}

// ValTypeToWasm converts a wazero value type to its binary encoding.
func ValTypeToWasm(t api.ValueType) byte {
	switch t {
	case api.ValueTypeI64:
		return 0x7e
	case api.ValueTypeF32:
		return 0x7d
	case api.ValueTypeF64:
		return 0x7c
	default:
		return 0x7f
	}
}
