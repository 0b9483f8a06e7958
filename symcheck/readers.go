package symcheck

import (
	"bytes"
	"context"
	"debug/elf"
	"debug/macho"
	"debug/pe"
	"encoding/binary"
	"fmt"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/wippyai/nativebridge/protocol"
	"github.com/wippyai/nativebridge/symcheck/internal/wasmbin"
)

var defaultPrefix = map[protocol.Format]string{
	protocol.FormatMachO: "_",
}

func detect(data []byte) (protocol.Format, bool) {
	if len(data) < 4 {
		return "", false
	}
	switch {
	case bytes.HasPrefix(data, []byte("\x7fELF")):
		return protocol.FormatELF, true
	case bytes.HasPrefix(data, wasmbin.Magic[:4]):
		return protocol.FormatWasm, true
	case bytes.HasPrefix(data, []byte("MZ")):
		return protocol.FormatPE, true
	}
	switch binary.BigEndian.Uint32(data) {
	case macho.Magic32, macho.Magic64, macho.MagicFat:
		return protocol.FormatMachO, true
	}
	switch binary.LittleEndian.Uint32(data) {
	case macho.Magic32, macho.Magic64:
		return protocol.FormatMachO, true
	}
	return "", false
}

// readELF lists defined global function symbols from the dynamic table.
func readELF(data []byte) ([]Export, error) {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	syms, err := f.DynamicSymbols()
	if err == elf.ErrNoSymbols {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []Export
	for _, s := range syms {
		if elf.ST_TYPE(s.Info) != elf.STT_FUNC || s.Section == elf.SHN_UNDEF {
			continue
		}
		if bind := elf.ST_BIND(s.Info); bind != elf.STB_GLOBAL && bind != elf.STB_WEAK {
			continue
		}
		out = append(out, Export{Name: s.Name})
	}
	return out, nil
}

// readMachO lists external symbols defined in a section. Universal binaries
// are read through their first architecture.
func readMachO(data []byte) ([]Export, error) {
	var f *macho.File
	if fat, err := macho.NewFatFile(bytes.NewReader(data)); err == nil {
		defer fat.Close()
		if len(fat.Arches) == 0 {
			return nil, fmt.Errorf("universal binary without architectures")
		}
		f = fat.Arches[0].File
	} else {
		f, err = macho.NewFile(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer f.Close()
	}

	if f.Symtab == nil {
		return nil, nil
	}
	const (
		nExt  = 0x01
		nType = 0x0e
		nSect = 0x0e
	)
	var out []Export
	for _, s := range f.Symtab.Syms {
		if s.Type&nExt == 0 || s.Type&nType != nSect || s.Sect == 0 {
			continue
		}
		out = append(out, Export{Name: s.Name})
	}
	return out, nil
}

// readPE lists names from the export directory. debug/pe parses headers
// and sections but not exports, so the directory is walked here.
func readPE(data []byte) ([]Export, error) {
	f, err := pe.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var dir pe.DataDirectory
	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		if oh.NumberOfRvaAndSizes > pe.IMAGE_DIRECTORY_ENTRY_EXPORT {
			dir = oh.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_EXPORT]
		}
	case *pe.OptionalHeader64:
		if oh.NumberOfRvaAndSizes > pe.IMAGE_DIRECTORY_ENTRY_EXPORT {
			dir = oh.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_EXPORT]
		}
	}
	if dir.VirtualAddress == 0 || dir.Size < 40 {
		return nil, nil
	}

	img := peImage{f: f}
	ed, err := img.read(dir.VirtualAddress, 40)
	if err != nil {
		return nil, err
	}
	count := binary.LittleEndian.Uint32(ed[24:])
	namesRVA := binary.LittleEndian.Uint32(ed[32:])
	names, err := img.read(namesRVA, count*4)
	if err != nil {
		return nil, err
	}
	out := make([]Export, 0, count)
	for i := uint32(0); i < count; i++ {
		name, err := img.cstring(binary.LittleEndian.Uint32(names[i*4:]))
		if err != nil {
			return nil, err
		}
		out = append(out, Export{Name: name})
	}
	return out, nil
}

type peImage struct {
	f *pe.File
}

// read returns n bytes at rva from the section that contains it.
func (img peImage) read(rva, n uint32) ([]byte, error) {
	for _, s := range img.f.Sections {
		if rva < s.VirtualAddress || rva >= s.VirtualAddress+s.VirtualSize {
			continue
		}
		data, err := s.Data()
		if err != nil {
			return nil, err
		}
		off := rva - s.VirtualAddress
		if uint64(off)+uint64(n) > uint64(len(data)) {
			return nil, fmt.Errorf("rva %#x+%d outside section %s", rva, n, s.Name)
		}
		return data[off : off+n], nil
	}
	return nil, fmt.Errorf("rva %#x not in any section", rva)
}

func (img peImage) cstring(rva uint32) (string, error) {
	for _, s := range img.f.Sections {
		if rva < s.VirtualAddress || rva >= s.VirtualAddress+s.VirtualSize {
			continue
		}
		data, err := s.Data()
		if err != nil {
			return "", err
		}
		off := rva - s.VirtualAddress
		if int(off) >= len(data) {
			return "", fmt.Errorf("rva %#x outside section data", rva)
		}
		rest := data[off:]
		if i := bytes.IndexByte(rest, 0); i >= 0 {
			return string(rest[:i]), nil
		}
		return "", fmt.Errorf("unterminated name at rva %#x", rva)
	}
	return "", fmt.Errorf("rva %#x not in any section", rva)
}

// readWasm compiles the module without instantiating it. A module wazero
// rejects still has its export names read, untyped.
func readWasm(ctx context.Context, data []byte) ([]Export, error) {
	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfigInterpreter())
	defer rt.Close(ctx)

	compiled, err := rt.CompileModule(ctx, data)
	if err != nil {
		Logger().Warn("wasm module did not compile, reading export names only", zap.Error(err))
		names, perr := wasmbin.FunctionExports(data)
		if perr != nil {
			return nil, fmt.Errorf("%w (compile: %v)", perr, err)
		}
		out := make([]Export, len(names))
		for i, n := range names {
			out[i] = Export{Name: n}
		}
		return out, nil
	}
	defer compiled.Close(ctx)

	var out []Export
	for name, def := range compiled.ExportedFunctions() {
		out = append(out, Export{
			Name:    name,
			Params:  def.ParamTypes(),
			Results: def.ResultTypes(),
			Typed:   true,
		})
	}
	return out, nil
}
