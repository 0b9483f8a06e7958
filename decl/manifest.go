package decl

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/wippyai/nativebridge/descriptor"
	"github.com/wippyai/nativebridge/errors"
	"github.com/wippyai/nativebridge/protocol"
)

// Manifest is a TOML declaration manifest. Native-side manifests list
// functions per file; managed-side manifests list expected members at the
// top level.
//
//	role = "actuals"
//	unit = "calc"
//	package = "main"
//
//	[[file]]
//	path = "calc.go"
//
//	[[file.native]]
//	name = "Add"
//	target-class = "io.example.Calculator"
//	target-member = "add"
//	static = "static"
//	params = [{ name = "a", type = "int32" }, { name = "b", type = "int32" }]
//	returns = "int32"
//
//	[[hook]]
//	kind = "load"
//	name = "OnLoad"
//	accepts-vm = true
type Manifest struct {
	Role     string           `toml:"role"`
	UnitName string           `toml:"unit"`
	Package  string           `toml:"package"`
	Files    []ManifestFile   `toml:"file"`
	Natives  []ManifestNative `toml:"native"`
	Hooks    []ManifestHook   `toml:"hook"`

	// Path is the manifest file path (set at load time).
	Path string `toml:"-"`
}

// ManifestFile groups the natives of one source file.
type ManifestFile struct {
	Path    string           `toml:"path"`
	Natives []ManifestNative `toml:"native"`
}

// ManifestNative is one declared native member.
type ManifestNative struct {
	Class        string          `toml:"class"`
	Name         string          `toml:"name"`
	Params       []ManifestParam `toml:"params"`
	Returns      string          `toml:"returns"`
	ReturnMap    []string        `toml:"return-mappings"`
	Static       string          `toml:"static"`
	TargetClass  string          `toml:"target-class"`
	TargetMember string          `toml:"target-member"`
	Override     string          `toml:"override"`
	TypeParams   []string        `toml:"type-params"`
	WithReceiver bool            `toml:"with-receiver"`
	Line         int             `toml:"line"`
}

// ManifestParam is one declared parameter.
type ManifestParam struct {
	Name       string   `toml:"name"`
	Type       string   `toml:"type"`
	Mappings   []string `toml:"mappings"`
	HasDefault bool     `toml:"has-default"`
}

// ManifestHook is one declared user hook.
type ManifestHook struct {
	Kind      string `toml:"kind"`
	Name      string `toml:"name"`
	AcceptsVM bool   `toml:"accepts-vm"`
	Line      int    `toml:"line"`
}

// LoadManifest reads and parses a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return ParseManifest(data, path)
}

// ParseManifest parses manifest text. Unknown keys are rejected so that a
// misspelled option cannot silently drop a declaration property.
func ParseManifest(data []byte, path string) (*Manifest, error) {
	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, errors.ParseFailed(path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, errors.InvalidData(errors.PhaseLoad, []string{path}, "unknown keys: "+strings.Join(keys, ", "))
	}
	m.Path = path
	return &m, nil
}

// Unit converts a native-side manifest into a Unit. Entries that fail to
// parse are reported and skipped; the rest are returned.
func (m *Manifest) Unit() (*Unit, errors.List) {
	var errs errors.List
	u := &Unit{Name: m.UnitName, Package: m.Package}
	if u.Name == "" {
		u.Name = strings.TrimSuffix(filepath.Base(m.Path), filepath.Ext(m.Path))
	}
	for _, mf := range m.Files {
		f := File{Path: mf.Path}
		for _, mn := range mf.Natives {
			d, derrs := m.declaration(mn, mf.Path)
			errs = append(errs, derrs...)
			if d != nil {
				f.Declarations = append(f.Declarations, *d)
			}
		}
		u.Files = append(u.Files, f)
	}
	if len(m.Natives) > 0 {
		f := File{Path: strings.TrimSuffix(filepath.Base(m.Path), filepath.Ext(m.Path)) + ".go"}
		for _, mn := range m.Natives {
			d, derrs := m.declaration(mn, "")
			errs = append(errs, derrs...)
			if d != nil {
				f.Declarations = append(f.Declarations, *d)
			}
		}
		u.Files = append(u.Files, f)
	}
	for _, mh := range m.Hooks {
		loc := errors.Location{File: m.Path, Line: mh.Line}
		kind, ok := ParseHookKind(mh.Kind)
		if !ok {
			errs.Add(errors.MalformedDeclaration(loc, []string{u.Name}, fmt.Sprintf("unknown hook kind %q", mh.Kind)))
			continue
		}
		u.Hooks = append(u.Hooks, Hook{Kind: kind, Name: mh.Name, AcceptsVM: mh.AcceptsVM, Location: loc})
	}
	return u, errs
}

// Set converts the manifest into a declaration set. The role comes from
// the manifest, defaulting to expectations when natives are listed at the
// top level and actuals otherwise.
func (m *Manifest) Set() (*Set, errors.List) {
	role := Role(m.Role)
	switch role {
	case RoleExpectations, RoleActuals:
	case "":
		role = RoleActuals
		if len(m.Files) == 0 && len(m.Natives) > 0 {
			role = RoleExpectations
		}
	default:
		var errs errors.List
		errs.Add(errors.InvalidData(errors.PhaseLoad, []string{m.Path}, fmt.Sprintf("unknown role %q", m.Role)))
		return nil, errs
	}
	u, errs := m.Unit()
	return &Set{Role: role, Module: u.Name, Declarations: u.Declarations()}, errs
}

func (m *Manifest) declaration(mn ManifestNative, file string) (*Declaration, errors.List) {
	var errs errors.List
	loc := errors.Location{File: m.Path, Line: mn.Line}
	if file != "" {
		loc.File = file
	}
	path := []string{mn.Name}
	if mn.Class != "" {
		path = []string{mn.Class, mn.Name}
	}

	d := &Declaration{
		Name:         mn.Name,
		TargetClass:  mn.TargetClass,
		TargetMember: mn.TargetMember,
		Override:     mn.Override,
		TypeParams:   append([]string(nil), mn.TypeParams...),
		WithReceiver: mn.WithReceiver,
		Location:     loc,
	}
	if mn.Class != "" {
		cn, err := protocol.ParseClassName(mn.Class)
		if err != nil {
			errs.Add(errors.MalformedDeclaration(loc, path, err.Error()))
			return nil, errs
		}
		d.Owner = &cn
	}
	static, ok := ParseStaticness(mn.Static)
	if !ok {
		errs.Add(errors.MalformedDeclaration(loc, path, fmt.Sprintf("invalid staticness %q", mn.Static)))
		return nil, errs
	}
	d.Static = static

	typeParams := make(map[string]bool, len(mn.TypeParams))
	for _, tp := range mn.TypeParams {
		typeParams[tp] = true
	}
	parse := func(spelling string, mappings []string, what string) (descriptor.SourceType, bool) {
		if spelling == "" {
			return descriptor.Void, true
		}
		st, err := descriptor.ParseSourceType(spelling)
		if err != nil {
			errs.Add(errors.New(errors.PhaseLoad, errors.KindMalformedDeclaration).
				At(loc).
				Path(append(path, what)...).
				SourceType(spelling).
				Cause(err).
				Build())
			return descriptor.SourceType{}, false
		}
		markTypeParams(&st, typeParams)
		for _, mp := range mappings {
			st = st.WithMapping(mp)
		}
		return st, true
	}

	for i, mp := range mn.Params {
		st, ok := parse(mp.Type, mp.Mappings, fmt.Sprintf("param[%d]", i))
		if !ok {
			continue
		}
		if mp.Type == "" {
			errs.Add(errors.MalformedDeclaration(loc, path, fmt.Sprintf("parameter %d has no type", i)))
			continue
		}
		d.Params = append(d.Params, Param{Name: mp.Name, Type: st, HasDefault: mp.HasDefault})
	}
	ret, ok := parse(mn.Returns, mn.ReturnMap, "return")
	if ok {
		d.Return = ret
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return d, nil
}

func markTypeParams(st *descriptor.SourceType, typeParams map[string]bool) {
	if st.Elem != nil {
		markTypeParams(st.Elem, typeParams)
		return
	}
	if typeParams[st.Name] {
		st.TypeParam = true
	}
}
