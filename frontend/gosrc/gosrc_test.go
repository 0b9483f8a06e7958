package gosrc

import (
	"context"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/wippyai/nativebridge/decl"
	"github.com/wippyai/nativebridge/descriptor"
	bridgeerrors "github.com/wippyai/nativebridge/errors"
)

const calcSource = `package calc

import "unsafe"

type Count int32

// Add sums two values.
//
//bridge:native class=io.example.Calc member=add static
func Add(a, b int32) int32 { return a + b }

//bridge:native class=io.example.Calc instance
//bridge:map label=java.lang.CharSequence return=J
func Describe(label string, n Count) int64 { return 0 }

//bridge:native override=io.example.Calc#bytes receiver instance
func Bytes(self uintptr, data []byte) []byte { return data }

//bridge:native class=io.example.Calc static
func Pick[T any](v T) T { return v }

// helper is not native.
func helper() {}

//bridge:onload
func setup(vm unsafe.Pointer) {}

//bridge:onunload
func teardown() {}
`

func scanSource(t *testing.T, files map[string]string) (*decl.Unit, bridgeerrors.List) {
	t.Helper()
	fset := token.NewFileSet()
	var parsed []*ast.File
	for name, src := range files {
		f, err := parser.ParseFile(fset, name, src, parser.ParseComments)
		if err != nil {
			t.Fatal(err)
		}
		parsed = append(parsed, f)
	}
	info := &types.Info{Defs: make(map[*ast.Ident]types.Object)}
	conf := types.Config{Importer: importer.Default()}
	if _, err := conf.Check("calc", fset, parsed, info); err != nil {
		t.Fatal(err)
	}
	return Scan(fset, parsed, info)
}

func find(t *testing.T, u *decl.Unit, name string) decl.Declaration {
	t.Helper()
	for _, d := range u.Declarations() {
		if d.Name == name {
			return d
		}
	}
	t.Fatalf("no declaration %s", name)
	return decl.Declaration{}
}

func TestScan(t *testing.T) {
	u, diags := scanSource(t, map[string]string{"calc.go": calcSource})
	if len(diags) != 0 {
		t.Fatalf("diagnostics: %v", diags)
	}
	if u.Name != "calc" || len(u.Files) != 1 || u.Files[0].Path != "calc.go" {
		t.Fatalf("unit = %+v", u)
	}
	if n := len(u.Declarations()); n != 4 {
		t.Fatalf("declarations = %d, want 4", n)
	}

	add := find(t, u, "Add")
	if add.Key() != "io.example.Calc#add" || add.Static != decl.StaticTrue {
		t.Errorf("Add = %+v", add)
	}
	if len(add.Params) != 2 || add.Params[1].Name != "b" || add.Params[1].Type.Name != "int32" {
		t.Errorf("Add params = %+v", add.Params)
	}
	if add.Location.File != "calc.go" || add.Location.Line == 0 {
		t.Errorf("Add location = %v", add.Location)
	}

	describe := find(t, u, "Describe")
	if describe.Static != decl.StaticFalse {
		t.Errorf("Describe static = %v", describe.Static)
	}
	if m := describe.Params[0].Type.Mappings; len(m) != 1 || m[0] != "java.lang.CharSequence" {
		t.Errorf("Describe label mappings = %v", m)
	}
	if describe.Params[1].Type.Name != "Count" {
		t.Errorf("Describe n type = %+v", describe.Params[1].Type)
	}
	if m := describe.Return.Mappings; len(m) != 1 || m[0] != "J" {
		t.Errorf("Describe return mappings = %v", m)
	}

	bytesDecl := find(t, u, "Bytes")
	if !bytesDecl.WithReceiver || len(bytesDecl.Params) != 1 || !bytesDecl.Params[0].Type.IsArray() {
		t.Errorf("Bytes = %+v", bytesDecl)
	}
	if bytesDecl.Key() != "io.example.Calc#bytes" {
		t.Errorf("Bytes key = %q", bytesDecl.Key())
	}

	pick := find(t, u, "Pick")
	if len(pick.TypeParams) != 1 || !pick.Params[0].Type.TypeParam || !pick.Return.TypeParam {
		t.Errorf("Pick = %+v", pick)
	}

	if len(u.Hooks) != 2 {
		t.Fatalf("hooks = %+v", u.Hooks)
	}
	if h := u.Hooks[0]; h.Kind != decl.HookLoad || h.Name != "setup" || !h.AcceptsVM {
		t.Errorf("load hook = %+v", h)
	}
	if h := u.Hooks[1]; h.Kind != decl.HookUnload || h.Name != "teardown" || h.AcceptsVM {
		t.Errorf("unload hook = %+v", h)
	}
}

func TestScanResolves(t *testing.T) {
	u, _ := scanSource(t, map[string]string{"calc.go": calcSource})
	r := descriptor.NewResolver(map[string]string{"Count": "I"})
	d := find(t, u, "Describe")
	params, ret, errs := r.ResolveAll(d.Path(), d.ParamTypes(), d.Return)
	if len(errs) != 0 {
		t.Fatal(errs)
	}
	if got := descriptor.MethodSignature(params, ret); got != "(Ljava/lang/CharSequence;I)J" {
		t.Errorf("signature = %q", got)
	}
}

func TestScanMalformed(t *testing.T) {
	src := `package calc

import "unsafe"

type T struct{}

//bridge:native class=io.example.Calc static
func (T) Method() {}

//bridge:native class=io.example.Calc colour=blue
func Unknown() {}

//bridge:native class=io.example.Calc
func Variadic(xs ...int32) {}

//bridge:native class=io.example.Calc
func Pair() (int32, int32) { return 0, 0 }

//bridge:native class=io.example.Calc
//bridge:map nope=I
func BadMap(a int32) {}

//bridge:native class=io.example.Calc receiver
func NoReceiver() {}

//bridge:onload
func badHook(vm unsafe.Pointer, extra int) {}

//bridge:native class=io.example.Calc static
func Fine(a int32) {}
`
	u, diags := scanSource(t, map[string]string{"bad.go": src})
	if got := diags.Count(bridgeerrors.KindMalformedDeclaration); got != 7 {
		t.Errorf("malformed = %d, want 7: %v", got, diags)
	}
	if n := len(u.Declarations()); n != 1 || u.Declarations()[0].Name != "Fine" {
		t.Errorf("declarations = %+v", u.Declarations())
	}
	if len(u.Hooks) != 0 {
		t.Errorf("hooks = %+v", u.Hooks)
	}
}

func TestScanFileOrder(t *testing.T) {
	u, _ := scanSource(t, map[string]string{
		"z.go": "package calc\n\n//bridge:native class=a.Z static\nfunc Z() {}\n",
		"a.go": "package calc\n\n//bridge:native class=a.A static\nfunc A() {}\n",
		"m.go": "package calc\n\nfunc plain() {}\n",
	})
	if len(u.Files) != 2 || u.Files[0].Path != "a.go" || u.Files[1].Path != "z.go" {
		t.Errorf("files = %+v", u.Files)
	}
}

func TestDirectives(t *testing.T) {
	doc := &ast.CommentGroup{List: []*ast.Comment{
		{Text: "//bridge:native class=a.B"},
		{Text: "//bridge:nativeish x"},
		{Text: "//bridge:map a=I"},
		{Text: "// bridge:native spaced"},
	}}
	got := directives(doc, directiveNative)
	if len(got) != 1 || got[0] != "class=a.B" {
		t.Errorf("directives = %q", got)
	}
}

func TestLoad(t *testing.T) {
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go command not available")
	}
	dir := t.TempDir()
	write := func(name, content string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("go.mod", "module example.com/calc\n\ngo 1.21\n")
	write("calc.go", calcSource)

	u, diags, err := Load(context.Background(), dir, ".")
	if err != nil {
		t.Fatal(err)
	}
	if len(diags) != 0 {
		t.Errorf("diagnostics: %v", diags)
	}
	if u.Name != "calc" || len(u.Declarations()) != 4 || len(u.Hooks) != 2 {
		t.Errorf("unit = %+v", u)
	}
}
