package wasmbin

import (
	"github.com/tetratelabs/wazero/api"
)

// StubBuilder builds a module whose exported functions trap when called.
// Such modules stand in for a built library when checking its export
// surface.
type StubBuilder struct {
	funcs []stubFunc
}

type stubFunc struct {
	name    string
	params  []api.ValueType
	results []api.ValueType
}

// AddFunc adds an exported function with the given core signature.
func (b *StubBuilder) AddFunc(name string, params, results []api.ValueType) {
	b.funcs = append(b.funcs, stubFunc{name: name, params: params, results: results})
}

// Build generates the module bytes.
func (b *StubBuilder) Build() []byte {
	wasm := append([]byte(nil), Magic...)
	if len(b.funcs) == 0 {
		return wasm
	}
	wasm = appendSection(wasm, SectionType, b.typeSection())
	wasm = appendSection(wasm, SectionFunction, b.funcSection())
	wasm = appendSection(wasm, SectionExport, b.exportSection())
	wasm = appendSection(wasm, SectionCode, b.codeSection())
	return wasm
}

func appendSection(wasm []byte, id byte, body []byte) []byte {
	wasm = append(wasm, id)
	wasm = append(wasm, EncodeULEB128(uint32(len(body)))...)
	return append(wasm, body...)
}

func (b *StubBuilder) typeSection() []byte {
	section := EncodeULEB128(uint32(len(b.funcs)))
	for _, f := range b.funcs {
		section = append(section, 0x60)
		section = append(section, EncodeULEB128(uint32(len(f.params)))...)
		for _, t := range f.params {
			section = append(section, ValTypeToWasm(t))
		}
		section = append(section, EncodeULEB128(uint32(len(f.results)))...)
		for _, t := range f.results {
			section = append(section, ValTypeToWasm(t))
		}
	}
	return section
}

func (b *StubBuilder) funcSection() []byte {
	section := EncodeULEB128(uint32(len(b.funcs)))
	for i := range b.funcs {
		section = append(section, EncodeULEB128(uint32(i))...)
	}
	return section
}

func (b *StubBuilder) exportSection() []byte {
	section := EncodeULEB128(uint32(len(b.funcs)))
	for i, f := range b.funcs {
		section = append(section, EncodeULEB128(uint32(len(f.name)))...)
		section = append(section, f.name...)
		section = append(section, 0x00)
		section = append(section, EncodeULEB128(uint32(i))...)
	}
	return section
}

// codeSection gives every function the body "unreachable; end".
func (b *StubBuilder) codeSection() []byte {
	body := []byte{0x00, 0x00, 0x0b}
	section := EncodeULEB128(uint32(len(b.funcs)))
	for range b.funcs {
		section = append(section, EncodeULEB128(uint32(len(body)))...)
		section = append(section, body...)
	}
	return section
}
