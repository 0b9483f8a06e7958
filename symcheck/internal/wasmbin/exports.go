package wasmbin

import (
	"bytes"
	"fmt"
)

// FunctionExports lists the names of exported functions without
// validating the rest of the module.
func FunctionExports(wasm []byte) ([]string, error) {
	if !bytes.HasPrefix(wasm, Magic[:4]) || len(wasm) < len(Magic) {
		return nil, fmt.Errorf("not a wasm module")
	}
	pos := len(Magic)
	for pos < len(wasm) {
		id := wasm[pos]
		pos++
		size, n := DecodeULEB128(wasm[pos:])
		if n == 0 {
			return nil, fmt.Errorf("truncated section header at offset %d", pos)
		}
		pos += n
		end := pos + int(size)
		if end > len(wasm) {
			return nil, fmt.Errorf("section %d overruns module", id)
		}
		if id == SectionExport {
			return parseExports(wasm[pos:end])
		}
		pos = end
	}
	return nil, nil
}

func parseExports(section []byte) ([]string, error) {
	count, n := DecodeULEB128(section)
	if n == 0 {
		return nil, fmt.Errorf("truncated export count")
	}
	pos := n
	var names []string
	for i := uint32(0); i < count; i++ {
		nameLen, n := DecodeULEB128(section[pos:])
		if n == 0 || pos+n+int(nameLen)+1 > len(section) {
			return nil, fmt.Errorf("truncated export %d", i)
		}
		pos += n
		name := string(section[pos : pos+int(nameLen)])
		pos += int(nameLen)
		kind := section[pos]
		pos++
		_, n = DecodeULEB128(section[pos:])
		if n == 0 {
			return nil, fmt.Errorf("truncated export %d index", i)
		}
		pos += n
		if kind == 0x00 {
			names = append(names, name)
		}
	}
	return names, nil
}
