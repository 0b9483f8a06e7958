package protocol

import "fmt"

// Format is the object file format a platform produces.
type Format string

const (
	FormatELF   Format = "elf"
	FormatMachO Format = "macho"
	FormatPE    Format = "pe"
	FormatWasm  Format = "wasm"
)

// Platform identifies a build target by Go's GOOS and GOARCH spelling.
type Platform struct {
	OS   string
	Arch string
}

func (p Platform) String() string {
	return p.OS + "/" + p.Arch
}

// Conventions are the platform-dependent templates used when locating a
// built library and its exported symbols.
type Conventions struct {
	Format Format
	// SymbolPrefix is prepended by the toolchain to every C symbol.
	SymbolPrefix string
	// LibraryPattern is a fmt pattern turning a library name into a file name.
	LibraryPattern string
	// PointerBits is the width of native pointers and handles.
	PointerBits int
}

// LibraryFile returns the file name of library name on this platform.
func (c Conventions) LibraryFile(name string) string {
	return fmt.Sprintf(c.LibraryPattern, name)
}

var (
	elf64 = Conventions{Format: FormatELF, LibraryPattern: "lib%s.so", PointerBits: 64}
	elf32 = Conventions{Format: FormatELF, LibraryPattern: "lib%s.so", PointerBits: 32}
	mach  = Conventions{Format: FormatMachO, SymbolPrefix: "_", LibraryPattern: "lib%s.dylib", PointerBits: 64}
	pe64  = Conventions{Format: FormatPE, LibraryPattern: "%s.dll", PointerBits: 64}
	pe32  = Conventions{Format: FormatPE, SymbolPrefix: "_", LibraryPattern: "%s.dll", PointerBits: 32}
	wasm  = Conventions{Format: FormatWasm, LibraryPattern: "%s.wasm", PointerBits: 32}
)

// platforms varies along two independent axes; keep it a table.
var platforms = map[Platform]Conventions{
	{"linux", "amd64"}:   elf64,
	{"linux", "arm64"}:   elf64,
	{"linux", "riscv64"}: elf64,
	{"linux", "ppc64le"}: elf64,
	{"linux", "s390x"}:   elf64,
	{"linux", "386"}:     elf32,
	{"linux", "arm"}:     elf32,
	{"android", "arm64"}: elf64,
	{"android", "amd64"}: elf64,
	{"android", "arm"}:   elf32,
	{"android", "386"}:   elf32,
	{"freebsd", "amd64"}: elf64,
	{"freebsd", "arm64"}: elf64,
	{"darwin", "amd64"}:  mach,
	{"darwin", "arm64"}:  mach,
	{"ios", "arm64"}:     mach,
	{"windows", "amd64"}: pe64,
	{"windows", "arm64"}: pe64,
	{"windows", "386"}:   pe32,
	{"wasip1", "wasm"}:   wasm,
	{"js", "wasm"}:       wasm,
}

// Lookup returns the conventions for p.
func Lookup(p Platform) (Conventions, bool) {
	c, ok := platforms[p]
	return c, ok
}

// Platforms lists every known platform.
func Platforms() []Platform {
	out := make([]Platform, 0, len(platforms))
	for p := range platforms {
		out = append(out, p)
	}
	return out
}
