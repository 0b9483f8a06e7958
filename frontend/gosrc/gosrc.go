// Package gosrc reads native declarations from annotated Go source.
//
// A function becomes a native member when its doc comment carries a
// //bridge:native directive:
//
//	//bridge:native class=io.example.Calc member=add static
//	//bridge:map b=java.lang.CharSequence
//	func Add(a int32, b string) int32
//
// Directive fields are class, member and override (key=value) and the
// flags static, instance and receiver. With receiver, the first Go
// parameter receives the managed object and is not part of the signature.
// //bridge:map attaches type mappings to parameters by name, or to the
// result with the key "return". //bridge:onload and //bridge:onunload mark
// lifecycle hooks.
package gosrc

import (
	"context"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/tools/go/packages"

	"github.com/wippyai/nativebridge/decl"
	"github.com/wippyai/nativebridge/descriptor"
	"github.com/wippyai/nativebridge/errors"
)

const (
	directiveNative   = "//bridge:native"
	directiveMap      = "//bridge:map"
	directiveOnLoad   = "//bridge:onload"
	directiveOnUnload = "//bridge:onunload"
)

// Load type-checks the package matching pattern in dir and scans it.
// Problems with individual functions are returned as diagnostics; a package
// that cannot be loaded is an error.
func Load(ctx context.Context, dir, pattern string) (*decl.Unit, errors.List, error) {
	fset := token.NewFileSet()
	cfg := &packages.Config{
		Context: ctx,
		Mode: packages.NeedName |
			packages.NeedFiles |
			packages.NeedSyntax |
			packages.NeedTypes |
			packages.NeedTypesInfo,
		Dir:  dir,
		Fset: fset,
	}
	pkgs, err := packages.Load(cfg, pattern)
	if err != nil {
		return nil, nil, fmt.Errorf("packages.Load: %w", err)
	}
	if len(pkgs) != 1 {
		return nil, nil, fmt.Errorf("pattern %q matched %d packages, want 1", pattern, len(pkgs))
	}
	pkg := pkgs[0]
	if len(pkg.Errors) > 0 {
		return nil, nil, fmt.Errorf("package errors: %v", pkg.Errors)
	}
	if pkg.TypesInfo == nil {
		return nil, nil, fmt.Errorf("type information not available for %s", pkg.PkgPath)
	}

	u, diags := Scan(fset, pkg.Syntax, pkg.TypesInfo)
	u.Name = pkg.Name
	u.Package = pkg.Name
	Logger().Debug("scanned package",
		zap.String("package", pkg.PkgPath),
		zap.Int("declarations", len(u.Declarations())),
		zap.Int("hooks", len(u.Hooks)),
		zap.Int("diagnostics", len(diags)))
	return u, diags, nil
}

// Scan extracts declarations and hooks from type-checked files. Files
// without directives are omitted; the rest are sorted by base name.
func Scan(fset *token.FileSet, files []*ast.File, info *types.Info) (*decl.Unit, errors.List) {
	s := &scanner{fset: fset, info: info}
	u := &decl.Unit{}
	for _, f := range files {
		if len(f.Decls) == 0 {
			continue
		}
		path := filepath.Base(fset.Position(f.Pos()).Filename)
		if u.Name == "" {
			u.Name = f.Name.Name
			u.Package = f.Name.Name
		}
		df := decl.File{Path: path}
		for _, d := range f.Decls {
			fn, ok := d.(*ast.FuncDecl)
			if !ok || fn.Doc == nil {
				continue
			}
			if dd, ok := s.function(fn); ok {
				df.Declarations = append(df.Declarations, dd)
			}
			if h, ok := s.hook(fn); ok {
				u.Hooks = append(u.Hooks, h)
			}
		}
		if len(df.Declarations) > 0 {
			u.Files = append(u.Files, df)
		}
	}
	sort.SliceStable(u.Files, func(i, j int) bool { return u.Files[i].Path < u.Files[j].Path })
	return u, s.errs
}

type scanner struct {
	fset *token.FileSet
	info *types.Info
	errs errors.List
}

func (s *scanner) location(pos token.Pos) errors.Location {
	p := s.fset.Position(pos)
	return errors.Location{File: filepath.Base(p.Filename), Line: p.Line, Column: p.Column}
}

func (s *scanner) malformed(pos token.Pos, name, format string, args ...any) {
	s.errs.Add(errors.MalformedDeclaration(s.location(pos), []string{name}, fmt.Sprintf(format, args...)))
}

// directives returns the argument text of every comment line starting with
// name.
func directives(doc *ast.CommentGroup, name string) []string {
	var out []string
	for _, c := range doc.List {
		rest, ok := strings.CutPrefix(c.Text, name)
		if !ok || (rest != "" && rest[0] != ' ' && rest[0] != '\t') {
			continue
		}
		out = append(out, strings.TrimSpace(rest))
	}
	return out
}

func (s *scanner) function(fn *ast.FuncDecl) (decl.Declaration, bool) {
	natives := directives(fn.Doc, directiveNative)
	if len(natives) == 0 {
		return decl.Declaration{}, false
	}
	name := fn.Name.Name
	if len(natives) > 1 {
		s.malformed(fn.Pos(), name, "%d %s directives", len(natives), directiveNative)
		return decl.Declaration{}, false
	}
	if fn.Recv != nil {
		s.malformed(fn.Pos(), name, "methods cannot be native members")
		return decl.Declaration{}, false
	}

	d := decl.Declaration{Name: name, Location: s.location(fn.Pos())}
	if !s.applyFields(fn, &d, natives[0]) {
		return decl.Declaration{}, false
	}

	obj, ok := s.info.Defs[fn.Name].(*types.Func)
	if !ok {
		s.malformed(fn.Pos(), name, "no type information")
		return decl.Declaration{}, false
	}
	sig := obj.Type().(*types.Signature)
	if sig.Variadic() {
		s.malformed(fn.Pos(), name, "variadic functions cannot be native members")
		return decl.Declaration{}, false
	}
	if sig.Results().Len() > 1 {
		s.malformed(fn.Pos(), name, "native members return at most one value")
		return decl.Declaration{}, false
	}

	tparams := sig.TypeParams()
	for i := 0; i < tparams.Len(); i++ {
		d.TypeParams = append(d.TypeParams, tparams.At(i).Obj().Name())
	}

	params := sig.Params()
	first := 0
	if d.WithReceiver {
		if params.Len() == 0 {
			s.malformed(fn.Pos(), name, "receiver flag needs a first parameter for the managed object")
			return decl.Declaration{}, false
		}
		first = 1
	}
	for i := first; i < params.Len(); i++ {
		v := params.At(i)
		pname := v.Name()
		if pname == "" || pname == "_" {
			pname = fmt.Sprintf("p%d", i-first)
		}
		d.Params = append(d.Params, decl.Param{Name: pname, Type: sourceType(v.Type())})
	}
	if sig.Results().Len() == 1 {
		d.Return = sourceType(sig.Results().At(0).Type())
	}

	for _, m := range directives(fn.Doc, directiveMap) {
		if !s.applyMappings(fn, &d, m) {
			return decl.Declaration{}, false
		}
	}
	return d, true
}

func (s *scanner) applyFields(fn *ast.FuncDecl, d *decl.Declaration, args string) bool {
	ok := true
	for _, field := range strings.Fields(args) {
		key, value, hasValue := strings.Cut(field, "=")
		switch {
		case key == "static" && !hasValue:
			d.Static = decl.StaticTrue
		case key == "instance" && !hasValue:
			d.Static = decl.StaticFalse
		case key == "receiver" && !hasValue:
			d.WithReceiver = true
		case key == "class" && hasValue:
			d.TargetClass = value
		case key == "member" && hasValue:
			d.TargetMember = value
		case key == "override" && hasValue:
			d.Override = value
		default:
			s.malformed(fn.Pos(), d.Name, "unknown directive field %q", field)
			ok = false
		}
	}
	return ok
}

func (s *scanner) applyMappings(fn *ast.FuncDecl, d *decl.Declaration, args string) bool {
	ok := true
	for _, field := range strings.Fields(args) {
		key, value, hasValue := strings.Cut(field, "=")
		if !hasValue || value == "" {
			s.malformed(fn.Pos(), d.Name, "type mapping %q is not name=mapping", field)
			ok = false
			continue
		}
		if key == "return" {
			d.Return = d.Return.WithMapping(value)
			continue
		}
		found := false
		for i := range d.Params {
			if d.Params[i].Name == key {
				d.Params[i].Type = d.Params[i].Type.WithMapping(value)
				found = true
			}
		}
		if !found {
			s.malformed(fn.Pos(), d.Name, "type mapping names unknown parameter %q", key)
			ok = false
		}
	}
	return ok
}

func (s *scanner) hook(fn *ast.FuncDecl) (decl.Hook, bool) {
	var kind decl.HookKind
	switch {
	case len(directives(fn.Doc, directiveOnLoad)) > 0:
		kind = decl.HookLoad
	case len(directives(fn.Doc, directiveOnUnload)) > 0:
		kind = decl.HookUnload
	default:
		return decl.Hook{}, false
	}
	name := fn.Name.Name
	obj, ok := s.info.Defs[fn.Name].(*types.Func)
	if !ok || fn.Recv != nil {
		s.malformed(fn.Pos(), name, "%s hook must be a plain function", kind)
		return decl.Hook{}, false
	}
	sig := obj.Type().(*types.Signature)
	if sig.Params().Len() > 1 || sig.Results().Len() > 0 || sig.TypeParams().Len() > 0 {
		s.malformed(fn.Pos(), name, "%s hook must be func() or func(vm unsafe.Pointer)", kind)
		return decl.Hook{}, false
	}
	acceptsVM := sig.Params().Len() == 1
	if acceptsVM {
		if b, ok := sig.Params().At(0).Type().(*types.Basic); !ok || b.Kind() != types.UnsafePointer {
			s.malformed(fn.Pos(), name, "%s hook parameter must be unsafe.Pointer", kind)
			return decl.Hook{}, false
		}
	}
	return decl.Hook{Kind: kind, Name: name, AcceptsVM: acceptsVM, Location: s.location(fn.Pos())}, true
}

// sourceType spells a Go type the way the resolver reads it. Named types
// keep their bare name so configured overrides can address them.
func sourceType(t types.Type) descriptor.SourceType {
	switch tt := t.(type) {
	case *types.Basic:
		return descriptor.Named(tt.Name())
	case *types.Slice:
		return descriptor.ArrayOf(sourceType(tt.Elem()))
	case *types.TypeParam:
		return descriptor.SourceType{Name: tt.Obj().Name(), TypeParam: true}
	case *types.Alias:
		return sourceType(types.Unalias(tt))
	case *types.Named:
		return descriptor.Named(tt.Obj().Name())
	}
	return descriptor.Named(types.TypeString(t, func(*types.Package) string { return "" }))
}
