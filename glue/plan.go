package glue

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/nativebridge/decl"
	"github.com/wippyai/nativebridge/descriptor"
	"github.com/wippyai/nativebridge/errors"
	"github.com/wippyai/nativebridge/protocol"
)

// Binding is one declaration that survived validation and resolution.
type Binding struct {
	Decl   decl.Declaration
	Class  protocol.ClassName
	Member string
	Params []descriptor.TypeSignature
	Return descriptor.TypeSignature
	// Signature is the method descriptor, e.g. "(IJ)I".
	Signature string
	// Symbol is the exported C name of the adapter.
	Symbol string
	// Index numbers bindings across the unit.
	Index int
}

// RegistrationEntry is one row of a bulk registration call.
type RegistrationEntry struct {
	Name      string
	Signature string
	Function  string
}

// ClassTable is every registration entry for one owning class.
type ClassTable struct {
	// Class is the owning class in internal form.
	Class   string
	Entries []RegistrationEntry
}

// PlannedFile is one source file and its bindings.
type PlannedFile struct {
	Source   string
	Output   string
	Bindings []Binding
}

// Plan is everything known about a unit before any text is produced. It is
// read-only once built, so files can be emitted concurrently.
type Plan struct {
	Unit        *decl.Unit
	Files       []PlannedFile
	LoadHooks   []decl.Hook
	UnloadHooks []decl.Hook
	// EmitHooks is set when a hook file is generated.
	EmitHooks bool
	// Diagnostics holds per-declaration failures; those declarations are
	// absent from Files.
	Diagnostics errors.List
}

// Bindings returns every binding in index order.
func (p *Plan) Bindings() []Binding {
	var out []Binding
	for _, f := range p.Files {
		out = append(out, f.Bindings...)
	}
	return out
}

// ActualSet returns the declarations that were bound, as an actual set.
// Declarations skipped during planning are left out, since no adapter
// implements them.
func (p *Plan) ActualSet() *decl.Set {
	set := &decl.Set{Role: decl.RoleActuals, Module: p.Unit.Name}
	for _, b := range p.Bindings() {
		set.Declarations = append(set.Declarations, b.Decl.Clone())
	}
	return set
}

// RegistrationTables groups bindings by owning class, sorted by class and
// then by member name and signature.
func (p *Plan) RegistrationTables() []ClassTable {
	byClass := make(map[string][]RegistrationEntry)
	for _, b := range p.Bindings() {
		cls := b.Class.Internal()
		byClass[cls] = append(byClass[cls], RegistrationEntry{
			Name:      b.Member,
			Signature: b.Signature,
			Function:  b.Symbol,
		})
	}
	classes := make([]string, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Strings(classes)

	tables := make([]ClassTable, 0, len(classes))
	for _, c := range classes {
		entries := byClass[c]
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].Name != entries[j].Name {
				return entries[i].Name < entries[j].Name
			}
			return entries[i].Signature < entries[j].Signature
		})
		tables = append(tables, ClassTable{Class: c, Entries: entries})
	}
	return tables
}

// Plan validates and resolves a unit. Unit-fatal problems (a dispatch mode
// that needs hooks while hooks are disabled, duplicate hooks) are returned
// as an error and nothing is planned. Per-declaration problems are recorded
// in Plan.Diagnostics and only skip the affected declaration.
func (e *Emitter) Plan(u *decl.Unit) (*Plan, error) {
	opts := e.opts
	if opts.Dispatch.NeedsHooks() && !opts.GenerateHooks {
		return nil, errors.HooksRequired(u.Name)
	}

	hookErrs := decl.ValidateHooks(u, opts.AllowSeveralHooks, opts.Version)
	var fatal errors.List
	for _, err := range hookErrs {
		if err.Kind == errors.KindDuplicateHook || err.Kind == errors.KindUnsupported {
			fatal.Add(err)
		}
	}
	if opts.Dispatch.NeedsHooks() && !opts.Version.SupportsHooks() {
		fatal.Add(errors.New(errors.PhaseGenerate, errors.KindUnsupported).
			Path(u.Name).
			Detail("%s dispatch needs a load hook, which protocol version %s lacks", opts.Dispatch.Name(), opts.Version).
			Build())
	}
	if err := fatal.Err(); err != nil {
		return nil, err
	}

	p := &Plan{
		Unit:        u,
		LoadHooks:   u.HooksOf(decl.HookLoad),
		UnloadHooks: u.HooksOf(decl.HookUnload),
		EmitHooks:   opts.GenerateHooks,
	}
	for _, err := range hookErrs {
		if err.Kind == errors.KindMalformedDeclaration {
			p.Diagnostics.Add(err)
		}
	}
	if !opts.GenerateHooks && len(u.Hooks) > 0 {
		p.Diagnostics.Add(errors.New(errors.PhaseGenerate, errors.KindUnsupported).
			At(u.Hooks[0].Location).
			Path(u.Name).
			Detail("%d user hooks declared but hook generation is disabled; they will not be called", len(u.Hooks)).
			Build())
	}

	files := append([]decl.File(nil), u.Files...)
	sort.SliceStable(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	type seenKey struct{ class, member, sig string }
	seen := make(map[seenKey]errors.Location)
	members := make(map[string]int)
	outputs := make(map[string]bool)
	index := 0

	for _, f := range files {
		pf := PlannedFile{Source: f.Path, Output: outputName(f.Path, outputs)}
		for i := range f.Declarations {
			b, errs := e.bind(&f.Declarations[i])
			if len(errs) > 0 {
				p.Diagnostics = append(p.Diagnostics, errs...)
				continue
			}
			k := seenKey{b.Class.Internal(), b.Member, b.Signature}
			if prev, dup := seen[k]; dup {
				p.Diagnostics.Add(errors.MalformedDeclaration(b.Decl.Location, b.Decl.Path(),
					fmt.Sprintf("%s.%s%s is already bound at %s", b.Class.Qualified(), b.Member, b.Signature, prev)))
				continue
			}
			seen[k] = b.Decl.Location
			members[b.Class.Internal()+"#"+b.Member]++
			b.Index = index
			index++
			pf.Bindings = append(pf.Bindings, b)
		}
		p.Files = append(p.Files, pf)
	}

	unitIdent := identFragment(u.Name)
	for fi := range p.Files {
		for bi := range p.Files[fi].Bindings {
			b := &p.Files[fi].Bindings[bi]
			switch opts.Dispatch.(type) {
			case RegistrationTable:
				b.Symbol = "bridgegen_" + unitIdent + "_" + strconv.Itoa(b.Index)
			default:
				if members[b.Class.Internal()+"#"+b.Member] > 1 {
					b.Symbol = opts.Mangler.MangleOverloaded(b.Class, b.Member, descriptor.ArgDescriptors(b.Params))
				} else {
					b.Symbol = opts.Mangler.Mangle(b.Class, b.Member)
				}
			}
		}
	}
	p.Diagnostics.Sort()

	Logger().Debug("planned unit",
		zap.String("unit", u.Name),
		zap.String("dispatch", opts.Dispatch.Name()),
		zap.Int("bindings", index),
		zap.Int("diagnostics", p.Diagnostics.Len()))
	return p, nil
}

// bind validates and resolves a single declaration.
func (e *Emitter) bind(d *decl.Declaration) (Binding, errors.List) {
	errs := decl.ValidateActual(d, decl.ValidateOptions{StrictStaticness: e.opts.StrictStaticness})
	if len(errs) > 0 {
		return Binding{}, errs
	}
	class, member, _ := d.Target()
	params, ret, rerrs := e.resolver.ResolveAll(d.Path(), d.ParamTypes(), d.Return)
	if len(rerrs) > 0 {
		for _, err := range rerrs {
			if err.Location.IsZero() {
				err.Location = d.Location
			}
		}
		return Binding{}, rerrs
	}
	return Binding{
		Decl:      d.Clone(),
		Class:     class,
		Member:    member,
		Params:    params,
		Return:    ret,
		Signature: descriptor.MethodSignature(params, ret),
	}, nil
}

// outputName maps "pkg/calc.go" to "calc_bridge.go", numbering repeats.
// Every name handed out is recorded, so a numbered name never collides with
// one derived from another source.
func outputName(source string, used map[string]bool) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if base == "" || base == "." {
		base = "unit"
	}
	name := base + "_bridge.go"
	for n := 1; used[name]; n++ {
		name = base + "_" + strconv.Itoa(n) + "_bridge.go"
	}
	used[name] = true
	return name
}

// identFragment reduces a unit name to characters valid in a C identifier.
func identFragment(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "unit"
	}
	return b.String()
}
