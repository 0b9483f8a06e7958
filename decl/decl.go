// Package decl is the declaration model shared by front ends, the glue
// emitter and the verifier.
//
// An expectation is declared on the managed side: Owner is the class that
// declares the native method and Name its member name. An actual is a
// top-level native Go function: Owner is nil and TargetClass/TargetMember
// name the managed member it implements. Either side may carry an explicit
// Override binding identity, which takes precedence over derived keys.
package decl

import (
	"strings"

	"github.com/wippyai/nativebridge/descriptor"
	"github.com/wippyai/nativebridge/errors"
	"github.com/wippyai/nativebridge/protocol"
)

// Staticness says whether a native member is bound to the class or to an
// instance. Front ends that cannot tell report StaticUnknown.
type Staticness uint8

const (
	StaticUnknown Staticness = iota
	StaticTrue
	StaticFalse
)

func (s Staticness) String() string {
	switch s {
	case StaticTrue:
		return "static"
	case StaticFalse:
		return "instance"
	default:
		return "unknown"
	}
}

// ParseStaticness accepts "static", "instance" and "unknown" (or empty).
func ParseStaticness(s string) (Staticness, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "static", "true":
		return StaticTrue, true
	case "instance", "false":
		return StaticFalse, true
	case "", "unknown":
		return StaticUnknown, true
	}
	return StaticUnknown, false
}

// Compatible reports whether two staticness values can describe the same
// member. Unknown is compatible with everything.
func (s Staticness) Compatible(o Staticness) bool {
	return s == StaticUnknown || o == StaticUnknown || s == o
}

// Param is a declared parameter.
type Param struct {
	Name       string                `cbor:"1,keyasint" json:"name"`
	Type       descriptor.SourceType `cbor:"2,keyasint" json:"type"`
	HasDefault bool                  `cbor:"3,keyasint,omitempty" json:"has_default,omitempty"`
}

// Declaration is one native member, on either side of the boundary.
// Treat it as immutable; use Clone before changing a shared copy.
type Declaration struct {
	Owner        *protocol.ClassName   `cbor:"1,keyasint,omitempty" json:"owner,omitempty"`
	Name         string                `cbor:"2,keyasint" json:"name"`
	Params       []Param               `cbor:"3,keyasint,omitempty" json:"params,omitempty"`
	Return       descriptor.SourceType `cbor:"4,keyasint,omitempty" json:"return,omitempty"`
	Static       Staticness            `cbor:"5,keyasint,omitempty" json:"static,omitempty"`
	TargetClass  string                `cbor:"6,keyasint,omitempty" json:"target_class,omitempty"`
	TargetMember string                `cbor:"7,keyasint,omitempty" json:"target_member,omitempty"`
	Override     string                `cbor:"8,keyasint,omitempty" json:"override,omitempty"`
	TypeParams   []string              `cbor:"9,keyasint,omitempty" json:"type_params,omitempty"`
	WithReceiver bool                  `cbor:"10,keyasint,omitempty" json:"with_receiver,omitempty"`
	Location     errors.Location       `cbor:"11,keyasint,omitempty" json:"location,omitempty"`
}

// Key is the binding identity used to match actuals with expectations:
// the override if present, else TargetClass#TargetMember, else Owner#Name.
// Class names are normalized to their dotted form.
func (d *Declaration) Key() string {
	if d.Override != "" {
		return NormalizeKey(d.Override)
	}
	if d.TargetClass != "" {
		member := d.TargetMember
		if member == "" {
			member = d.Name
		}
		return normalizeClass(d.TargetClass) + "#" + member
	}
	if d.Owner != nil {
		return d.Owner.Qualified() + "#" + d.Name
	}
	return d.Name
}

// Target returns the managed class and member this declaration binds to,
// derived from TargetClass/TargetMember, an override of the form
// "class#member", or Owner/Name. ok is false when no class is known.
func (d *Declaration) Target() (protocol.ClassName, string, bool) {
	if d.TargetClass != "" {
		cn, err := protocol.ParseClassName(d.TargetClass)
		if err != nil {
			return protocol.ClassName{}, "", false
		}
		member := d.TargetMember
		if member == "" {
			member = d.Name
		}
		return cn, member, true
	}
	if class, member, found := strings.Cut(d.Override, "#"); found && member != "" {
		cn, err := protocol.ParseClassName(class)
		if err != nil {
			return protocol.ClassName{}, "", false
		}
		return cn, member, true
	}
	if d.Owner != nil {
		return *d.Owner, d.Name, true
	}
	return protocol.ClassName{}, "", false
}

// Path names the declaration in diagnostics.
func (d *Declaration) Path() []string {
	if d.Owner != nil {
		return []string{d.Owner.Qualified(), d.Name}
	}
	return []string{d.Name}
}

// ParamTypes returns the parameter source types in order.
func (d *Declaration) ParamTypes() []descriptor.SourceType {
	out := make([]descriptor.SourceType, len(d.Params))
	for i, p := range d.Params {
		out[i] = p.Type
	}
	return out
}

// Clone returns a deep copy.
func (d Declaration) Clone() Declaration {
	out := d
	if d.Owner != nil {
		o := protocol.ClassName{
			Package: append([]string(nil), d.Owner.Package...),
			Names:   append([]string(nil), d.Owner.Names...),
		}
		out.Owner = &o
	}
	if d.Params != nil {
		out.Params = make([]Param, len(d.Params))
		for i, p := range d.Params {
			out.Params[i] = Param{Name: p.Name, Type: p.Type.Clone(), HasDefault: p.HasDefault}
		}
	}
	out.Return = d.Return.Clone()
	if d.TypeParams != nil {
		out.TypeParams = append([]string(nil), d.TypeParams...)
	}
	return out
}

// NormalizeKey rewrites the class part of "class#member" to dotted form.
func NormalizeKey(key string) string {
	class, member, found := strings.Cut(key, "#")
	if !found {
		return key
	}
	return normalizeClass(class) + "#" + member
}

func normalizeClass(s string) string {
	cn, err := protocol.ParseClassName(s)
	if err != nil {
		return s
	}
	return cn.Qualified()
}

// HookKind distinguishes load and unload hooks.
type HookKind uint8

const (
	HookLoad HookKind = iota + 1
	HookUnload
)

func (k HookKind) String() string {
	switch k {
	case HookLoad:
		return "load"
	case HookUnload:
		return "unload"
	default:
		return "unknown"
	}
}

// ParseHookKind accepts "load" and "unload".
func ParseHookKind(s string) (HookKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "load", "onload":
		return HookLoad, true
	case "unload", "onunload":
		return HookUnload, true
	}
	return 0, false
}

// Hook is a user function called from the generated load or unload hook.
type Hook struct {
	Kind      HookKind        `cbor:"1,keyasint" json:"kind"`
	Name      string          `cbor:"2,keyasint" json:"name"`
	AcceptsVM bool            `cbor:"3,keyasint,omitempty" json:"accepts_vm,omitempty"`
	Location  errors.Location `cbor:"4,keyasint,omitempty" json:"location,omitempty"`
}

// File is one native source file and the actuals it declares.
type File struct {
	Path         string        `cbor:"1,keyasint" json:"path"`
	Declarations []Declaration `cbor:"2,keyasint,omitempty" json:"declarations,omitempty"`
}

// Unit is one compiled native library.
type Unit struct {
	Name    string `cbor:"1,keyasint" json:"name"`
	Package string `cbor:"2,keyasint,omitempty" json:"package,omitempty"`
	Files   []File `cbor:"3,keyasint,omitempty" json:"files,omitempty"`
	Hooks   []Hook `cbor:"4,keyasint,omitempty" json:"hooks,omitempty"`
}

// Declarations returns every declaration of the unit in file order.
func (u *Unit) Declarations() []Declaration {
	var out []Declaration
	for _, f := range u.Files {
		out = append(out, f.Declarations...)
	}
	return out
}

// HooksOf returns the unit's hooks of kind k in declaration order.
func (u *Unit) HooksOf(k HookKind) []Hook {
	var out []Hook
	for _, h := range u.Hooks {
		if h.Kind == k {
			out = append(out, h)
		}
	}
	return out
}

// ActualSet returns the unit's declarations as an actual set.
func (u *Unit) ActualSet() *Set {
	return &Set{Role: RoleActuals, Module: u.Name, Declarations: u.Declarations()}
}
