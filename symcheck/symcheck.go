// Package symcheck inspects a compiled native library and confirms that it
// exports every symbol the generated glue promises.
//
// Object formats are detected from the file's magic number. ELF, Mach-O and
// PE are read with the debug/* packages; wasm modules are compiled with
// wazero, which also exposes each export's core signature so parameter and
// result types can be checked against the descriptors.
package symcheck

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/nativebridge/errors"
	"github.com/wippyai/nativebridge/glue"
	"github.com/wippyai/nativebridge/protocol"
)

// Expectation is one symbol the library must export.
type Expectation struct {
	Symbol string
	// Binding is the declaration key the symbol implements; empty for hooks.
	Binding string
	// Params and Return are descriptors of the managed-side signature.
	Params []string
	Return string
	Hook   bool
}

// Expected lists the symbols a plan's glue exports, sorted by symbol.
func Expected(p *glue.Plan) []Expectation {
	var out []Expectation
	for _, b := range p.Bindings() {
		params := make([]string, len(b.Params))
		for i, s := range b.Params {
			params[i] = s.Descriptor
		}
		out = append(out, Expectation{
			Symbol:  b.Symbol,
			Binding: b.Decl.Key(),
			Params:  params,
			Return:  b.Return.Descriptor,
		})
	}
	if p.EmitHooks {
		out = append(out, Expectation{Symbol: protocol.OnLoadSymbol, Return: "I", Hook: true})
		if len(p.UnloadHooks) > 0 {
			out = append(out, Expectation{Symbol: protocol.OnUnloadSymbol, Return: "V", Hook: true})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// CoreSignature is the wasm core signature the symbol should have: two
// pointers (the environment and receiver, or the VM and reserved slot),
// then one value per parameter.
func (e Expectation) CoreSignature() (params, results []api.ValueType) {
	params = []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}
	for _, d := range e.Params {
		params = append(params, coreType(d))
	}
	if e.Return != "" && e.Return != "V" {
		results = []api.ValueType{coreType(e.Return)}
	}
	return params, results
}

func coreType(desc string) api.ValueType {
	switch desc {
	case "J":
		return api.ValueTypeI64
	case "F":
		return api.ValueTypeF32
	case "D":
		return api.ValueTypeF64
	default:
		return api.ValueTypeI32
	}
}

// Export is a function symbol found in a library. Typed is set when the
// format carries a signature (wasm).
type Export struct {
	Name    string
	Params  []api.ValueType
	Results []api.ValueType
	Typed   bool
}

// Library is the export surface of a compiled library.
type Library struct {
	Path    string
	Format  protocol.Format
	Exports map[string]Export
}

// Names returns the exported names, sorted.
func (l *Library) Names() []string {
	out := make([]string, 0, len(l.Exports))
	for n := range l.Exports {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Open reads the library at path. A zero conv detects the format and uses
// that format's usual symbol prefix; otherwise conv's format and prefix are
// enforced.
func Open(ctx context.Context, path string, conv protocol.Conventions) (*Library, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	format, ok := detect(data)
	if !ok {
		return nil, errors.Unsupported(errors.PhaseSymbols, "unrecognized object format in "+path)
	}
	prefix := conv.SymbolPrefix
	if conv.Format == "" {
		prefix = defaultPrefix[format]
	} else if conv.Format != format {
		return nil, errors.New(errors.PhaseSymbols, errors.KindInvalidData).
			Path(path).
			Detail("expected a %s library, found %s", conv.Format, format).
			Build()
	}

	var exports []Export
	switch format {
	case protocol.FormatELF:
		exports, err = readELF(data)
	case protocol.FormatMachO:
		exports, err = readMachO(data)
	case protocol.FormatPE:
		exports, err = readPE(data)
	case protocol.FormatWasm:
		exports, err = readWasm(ctx, data)
	}
	if err != nil {
		return nil, errors.Wrap(errors.PhaseSymbols, errors.KindInvalidData, err, "cannot read exports of "+path)
	}

	lib := &Library{Path: path, Format: format, Exports: make(map[string]Export, len(exports))}
	for _, e := range exports {
		if prefix != "" {
			if !strings.HasPrefix(e.Name, prefix) {
				continue
			}
			e.Name = strings.TrimPrefix(e.Name, prefix)
		}
		lib.Exports[e.Name] = e
	}
	Logger().Debug("read library exports",
		zap.String("path", path),
		zap.String("format", string(format)),
		zap.Int("exports", len(lib.Exports)))
	return lib, nil
}

// Result is the outcome of a check.
type Result struct {
	Library *Library
	Missing []errors.MissingSymbol
	// Diagnostics holds core signature mismatches.
	Diagnostics errors.List
}

// OK reports whether every expectation was met.
func (r *Result) OK() bool {
	return len(r.Missing) == 0 && len(r.Diagnostics) == 0
}

// Err returns nil when OK, otherwise the missing symbols and mismatches.
func (r *Result) Err() error {
	var missing error
	if len(r.Missing) > 0 {
		missing = &errors.MissingSymbolsError{Symbols: r.Missing}
	}
	mismatched := r.Diagnostics.Err()
	switch {
	case missing != nil && mismatched != nil:
		return fmt.Errorf("%w\n%w", missing, mismatched)
	case missing != nil:
		return missing
	default:
		return mismatched
	}
}

// Check opens the library at path, detecting its format, and compares its
// exports with expected.
func Check(ctx context.Context, path string, expected []Expectation) (*Result, error) {
	return CheckFor(ctx, path, protocol.Conventions{}, expected)
}

// CheckFor is Check under the conventions of a specific platform.
func CheckFor(ctx context.Context, path string, conv protocol.Conventions, expected []Expectation) (*Result, error) {
	lib, err := Open(ctx, path, conv)
	if err != nil {
		return nil, err
	}
	return Compare(lib, expected), nil
}

// Compare checks expected against an already opened library.
func Compare(lib *Library, expected []Expectation) *Result {
	res := &Result{Library: lib}
	base := filepath.Base(lib.Path)
	for _, e := range expected {
		exp, ok := lib.Exports[e.Symbol]
		if !ok {
			res.Missing = append(res.Missing, errors.MissingSymbol{Library: base, Symbol: e.Symbol, Binding: e.Binding})
			continue
		}
		if !exp.Typed {
			continue
		}
		params, results := e.CoreSignature()
		if !sameTypes(params, exp.Params) || !sameTypes(results, exp.Results) {
			res.Diagnostics.Add(errors.New(errors.PhaseSymbols, errors.KindSignatureMismatch).
				Path(e.Symbol).
				Descriptor(descriptorOf(e)).
				Detail("core signature %s, want %s", formatCore(exp.Params, exp.Results), formatCore(params, results)).
				Build())
		}
	}
	Logger().Debug("checked library",
		zap.String("library", base),
		zap.Int("expected", len(expected)),
		zap.Int("missing", len(res.Missing)),
		zap.Int("mismatched", len(res.Diagnostics)))
	return res
}

func sameTypes(a, b []api.ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func formatCore(params, results []api.ValueType) string {
	names := func(ts []api.ValueType) string {
		parts := make([]string, len(ts))
		for i, t := range ts {
			parts[i] = api.ValueTypeName(t)
		}
		return strings.Join(parts, ", ")
	}
	return "(" + names(params) + ") -> (" + names(results) + ")"
}

func descriptorOf(e Expectation) string {
	if e.Hook {
		return ""
	}
	ret := e.Return
	if ret == "" {
		ret = "V"
	}
	return "(" + strings.Join(e.Params, "") + ")" + ret
}
