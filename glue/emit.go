// Package glue generates the native-side cgo source that connects managed
// native method declarations to Go functions.
//
// A unit produces one adapter file per source file, a support file with the
// C and Go helpers the adapters use, and, when hooks are generated, a hook
// file with JNI_OnLoad/JNI_OnUnload. Files that carry //export directives
// only declare C functions in their preamble; every C definition lives in
// the support file, which exports nothing.
package glue

import (
	"fmt"
	"go/format"
	"go/token"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/nativebridge/decl"
	"github.com/wippyai/nativebridge/descriptor"
	"github.com/wippyai/nativebridge/errors"
	"github.com/wippyai/nativebridge/mutf8"
)

// Generated file names shared by every unit.
const (
	SupportFile = "bridge_support.go"
	HooksFile   = "bridge_hooks.go"
)

const generatedHeader = "// Code generated by bridgegen. DO NOT EDIT.\n"

// OutputFile is one generated Go source file.
type OutputFile struct {
	Path string
	// Source is the declaration file the output was generated from; empty
	// for the support and hook files.
	Source  string
	Content []byte
}

// Emitter turns planned units into Go source. It is safe for concurrent
// use once constructed.
type Emitter struct {
	opts     Options
	resolver *descriptor.Resolver
}

// New creates an Emitter. A nil resolver applies built-in rules only.
func New(opts Options, resolver *descriptor.Resolver) *Emitter {
	if resolver == nil {
		resolver = &descriptor.Resolver{}
	}
	return &Emitter{opts: opts.withDefaults(), resolver: resolver}
}

// Options returns the effective options.
func (e *Emitter) Options() Options {
	return e.opts
}

// Result is the complete output for a unit.
type Result struct {
	Plan  *Plan
	Files []OutputFile
}

// EmitUnit plans and emits a whole unit sequentially. Files are returned
// sorted by path.
func (e *Emitter) EmitUnit(u *decl.Unit) (*Result, error) {
	p, err := e.Plan(u)
	if err != nil {
		return nil, err
	}
	res := &Result{Plan: p}
	for i := range p.Files {
		f, err := e.EmitFile(p, i)
		if err != nil {
			return nil, err
		}
		res.Files = append(res.Files, f)
	}
	support, err := e.EmitSupport(p)
	if err != nil {
		return nil, err
	}
	res.Files = append(res.Files, support)
	if hooks, ok, err := e.EmitHooks(p); err != nil {
		return nil, err
	} else if ok {
		res.Files = append(res.Files, hooks)
	}
	SortFiles(res.Files)
	return res, nil
}

// SortFiles orders outputs by path.
func SortFiles(files []OutputFile) {
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
}

// EmitFile generates the adapter file for p.Files[i].
func (e *Emitter) EmitFile(p *Plan, i int) (OutputFile, error) {
	if i < 0 || i >= len(p.Files) {
		return OutputFile{}, errors.NotFound(errors.PhaseGenerate, "planned file", strconv.Itoa(i))
	}
	pf := &p.Files[i]

	var b strings.Builder
	b.WriteString(generatedHeader)
	fmt.Fprintf(&b, "// Source: %s\n\n", pf.Source)
	fmt.Fprintf(&b, "package %s\n\n", e.opts.Package)
	b.WriteString("/*\n#include <jni.h>\n*/\nimport \"C\"\n")

	for j := range pf.Bindings {
		b.WriteByte('\n')
		e.writeAdapter(&b, &pf.Bindings[j])
	}

	content, err := formatSource(pf.Output, b.String())
	if err != nil {
		return OutputFile{}, err
	}
	Logger().Debug("emitted adapters",
		zap.String("file", pf.Output),
		zap.Int("adapters", len(pf.Bindings)))
	return OutputFile{Path: pf.Output, Source: pf.Source, Content: content}, nil
}

// receiverParam names and types the adapter's second parameter.
func receiverParam(s decl.Staticness) (string, string) {
	switch s {
	case decl.StaticTrue:
		return "clazz", "C.jclass"
	case decl.StaticFalse:
		return "thiz", "C.jobject"
	default:
		// Unknown staticness: the value is the class or the instance.
		return "target", "C.jobject"
	}
}

func (e *Emitter) writeAdapter(b *strings.Builder, bd *Binding) {
	recvName, recvType := receiverParam(bd.Decl.Static)
	names := paramNames(bd.Decl.Params)

	fmt.Fprintf(b, "// %s implements %s.%s%s.\n", bd.Symbol, bd.Class.Qualified(), bd.Member, bd.Signature)
	fmt.Fprintf(b, "//\n//export %s\n", bd.Symbol)
	fmt.Fprintf(b, "func %s(env *C.JNIEnv, %s %s", bd.Symbol, recvName, recvType)
	for i, p := range bd.Params {
		fmt.Fprintf(b, ", %s %s", names[i], p.AdapterType())
	}
	b.WriteByte(')')
	if !bd.Return.IsVoid() {
		fmt.Fprintf(b, " %s", bd.Return.AdapterType())
	}
	b.WriteString(" {\n")

	args := make([]string, 0, len(bd.Params)+1)
	if bd.Decl.WithReceiver {
		args = append(args, recvName)
	}
	for i, p := range bd.Params {
		args = append(args, p.Conversion.Native(names[i]))
	}
	call := fmt.Sprintf("%s(%s)", bd.Decl.Name, strings.Join(args, ", "))

	if bd.Return.IsVoid() {
		fmt.Fprintf(b, "\t%s\n", call)
	} else {
		fmt.Fprintf(b, "\treturn %s\n", bd.Return.Conversion.Protocol(call))
	}
	b.WriteString("}\n")
}

var reservedParamNames = map[string]bool{
	"env": true, "clazz": true, "thiz": true, "target": true, "C": true,
}

// paramNames keeps declared names where they are usable Go identifiers and
// falls back to p<i> otherwise.
func paramNames(params []decl.Param) []string {
	names := make([]string, len(params))
	used := make(map[string]bool, len(params))
	for i, p := range params {
		n := p.Name
		if !token.IsIdentifier(n) || reservedParamNames[n] || used[n] || n == "_" || isBridgeHelper(n) {
			n = "p" + strconv.Itoa(i)
			for used[n] {
				n = "_" + n
			}
		}
		used[n] = true
		names[i] = n
	}
	return names
}

func isBridgeHelper(n string) bool {
	return strings.HasPrefix(n, "bridge")
}

// EmitSupport generates the helper file shared by every adapter of the unit.
func (e *Emitter) EmitSupport(p *Plan) (OutputFile, error) {
	var b strings.Builder
	b.WriteString(generatedHeader)
	fmt.Fprintf(&b, "\npackage %s\n\n", e.opts.Package)
	b.WriteString(supportPreamble)
	b.WriteString(supportHelpers)
	content, err := formatSource(SupportFile, b.String())
	if err != nil {
		return OutputFile{}, err
	}
	return OutputFile{Path: SupportFile, Content: content}, nil
}

// EmitHooks generates JNI_OnLoad and, when unload hooks exist, JNI_OnUnload.
// ok is false when the plan does not call for a hook file.
func (e *Emitter) EmitHooks(p *Plan) (OutputFile, bool, error) {
	if !p.EmitHooks {
		return OutputFile{}, false, nil
	}
	_, registering := e.opts.Dispatch.(RegistrationTable)
	var tables []ClassTable
	if registering {
		tables = p.RegistrationTables()
	}
	bindings := p.Bindings()

	var b strings.Builder
	b.WriteString(generatedHeader)
	fmt.Fprintf(&b, "\npackage %s\n\n", e.opts.Package)
	b.WriteString("/*\n#include <jni.h>\n")
	if registering && len(bindings) > 0 {
		b.WriteByte('\n')
		for i := range bindings {
			writeExternDecl(&b, &bindings[i])
		}
	}
	b.WriteString("*/\nimport \"C\"\n\nimport \"unsafe\"\n\n")

	version := e.opts.Version
	versionExpr := "C." + version.Constant()
	if !version.Known() {
		versionExpr = fmt.Sprintf("C.jint(%#x)", uint32(version))
	}

	b.WriteString("//export JNI_OnLoad\n")
	b.WriteString("func JNI_OnLoad(vm *C.JavaVM, reserved unsafe.Pointer) C.jint {\n")
	if len(tables) > 0 {
		fmt.Fprintf(&b, "\tenv, ok := bridgeEnv(vm, %s)\n", versionExpr)
		b.WriteString("\tif !ok {\n\t\treturn C.JNI_ERR\n\t}\n")
		for _, t := range tables {
			fmt.Fprintf(&b, "\tif !bridgeRegister(env, %s, []bridgeMethod{\n", mutf8.Literal(t.Class))
			for _, en := range t.Entries {
				fmt.Fprintf(&b, "\t\t{%s, %s, unsafe.Pointer(C.%s)},\n",
					mutf8.Literal(en.Name), mutf8.Literal(en.Signature), en.Function)
			}
			b.WriteString("\t}) {\n\t\treturn C.JNI_ERR\n\t}\n")
		}
	}
	writeHookCalls(&b, p.LoadHooks)
	fmt.Fprintf(&b, "\treturn %s\n}\n", versionExpr)

	if len(p.UnloadHooks) > 0 {
		b.WriteString("\n//export JNI_OnUnload\n")
		b.WriteString("func JNI_OnUnload(vm *C.JavaVM, reserved unsafe.Pointer) {\n")
		writeHookCalls(&b, p.UnloadHooks)
		b.WriteString("}\n")
	}

	content, err := formatSource(HooksFile, b.String())
	if err != nil {
		return OutputFile{}, false, err
	}
	Logger().Debug("emitted hooks",
		zap.String("unit", p.Unit.Name),
		zap.Int("classes", len(tables)),
		zap.Int("load_hooks", len(p.LoadHooks)),
		zap.Int("unload_hooks", len(p.UnloadHooks)))
	return OutputFile{Path: HooksFile, Content: content}, true, nil
}

func writeHookCalls(b *strings.Builder, hooks []decl.Hook) {
	for _, h := range hooks {
		if h.AcceptsVM {
			fmt.Fprintf(b, "\t%s(unsafe.Pointer(vm))\n", h.Name)
		} else {
			fmt.Fprintf(b, "\t%s()\n", h.Name)
		}
	}
}

// writeExternDecl declares an exported adapter so its address can be taken
// from the hook file.
func writeExternDecl(b *strings.Builder, bd *Binding) {
	_, recvType := receiverParam(bd.Decl.Static)
	ret := "void"
	if !bd.Return.IsVoid() {
		ret = bd.Return.CType
	}
	fmt.Fprintf(b, "extern %s %s(JNIEnv*, %s", ret, bd.Symbol, strings.TrimPrefix(recvType, "C."))
	for _, p := range bd.Params {
		fmt.Fprintf(b, ", %s", p.CType)
	}
	b.WriteString(");\n")
}

func formatSource(name, src string) ([]byte, error) {
	out, err := format.Source([]byte(src))
	if err != nil {
		return nil, errors.New(errors.PhaseGenerate, errors.KindInvalidData).
			Path(name).
			Detail("generated source does not parse").
			Cause(err).
			Build()
	}
	return out, nil
}
