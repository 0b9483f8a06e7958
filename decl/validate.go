package decl

import (
	"fmt"
	"strings"

	"github.com/wippyai/nativebridge/errors"
	"github.com/wippyai/nativebridge/protocol"
)

// ValidateOptions tunes validation.
type ValidateOptions struct {
	// StrictStaticness rejects declarations whose staticness is unknown.
	StrictStaticness bool
}

// ValidateActual checks the structural rules for a native-side declaration.
// Every violation is reported; an empty list means the declaration is usable.
func ValidateActual(d *Declaration, opts ValidateOptions) errors.List {
	var errs errors.List
	malformed := func(format string, args ...any) {
		errs.Add(errors.MalformedDeclaration(d.Location, d.Path(), fmt.Sprintf(format, args...)))
	}

	if d.Name == "" {
		malformed("missing function name")
	}
	if d.Owner != nil {
		malformed("native function must be top-level, found inside %s", d.Owner.Qualified())
	}
	for i, p := range d.Params {
		if p.HasDefault {
			malformed("parameter %d (%s) declares a default value", i, p.Name)
		}
	}
	if len(d.TypeParams) > 0 {
		malformed("native function is generic over %s", strings.Join(d.TypeParams, ", "))
	}
	if d.WithReceiver && d.Static == StaticUnknown {
		malformed("forwarding the receiver needs known staticness")
	}
	if opts.StrictStaticness && d.Static == StaticUnknown {
		malformed("staticness is unknown")
	}
	if _, _, ok := d.Target(); !ok {
		switch {
		case d.TargetClass != "":
			malformed("invalid target class %q", d.TargetClass)
		default:
			malformed("no target class; set target-class or an override of the form class#member")
		}
	}
	return errs
}

// ValidateExpectation checks a managed-side declaration.
func ValidateExpectation(d *Declaration) errors.List {
	var errs errors.List
	if d.Name == "" {
		errs.Add(errors.MalformedDeclaration(d.Location, d.Path(), "missing member name"))
	}
	if d.Owner == nil && d.Override == "" && d.TargetClass == "" {
		errs.Add(errors.MalformedDeclaration(d.Location, d.Path(), "expectation has no owning class"))
	}
	if d.Owner != nil && d.Owner.IsZero() {
		errs.Add(errors.MalformedDeclaration(d.Location, d.Path(), "empty owning class"))
	}
	return errs
}

// ValidateHooks enforces at most one hook of each kind unless allowSeveral,
// and that hooks exist in the configured protocol version.
func ValidateHooks(u *Unit, allowSeveral bool, version protocol.Version) errors.List {
	var errs errors.List
	if len(u.Hooks) > 0 && !version.SupportsHooks() {
		errs.Add(errors.New(errors.PhaseGenerate, errors.KindUnsupported).
			Path(u.Name).
			Value(version).
			Detail("load/unload hooks need protocol version 1.2 or later, configured %s", version).
			Build())
	}
	for _, k := range []HookKind{HookLoad, HookUnload} {
		hooks := u.HooksOf(k)
		for _, h := range hooks {
			if h.Name == "" {
				errs.Add(errors.MalformedDeclaration(h.Location, []string{u.Name}, k.String()+" hook without a function name"))
			}
		}
		if len(hooks) > 1 && !allowSeveral {
			locs := make([]errors.Location, len(hooks))
			for i, h := range hooks {
				locs[i] = h.Location
			}
			errs.Add(errors.DuplicateHook(u.Name, k.String(), locs))
		}
	}
	return errs
}
