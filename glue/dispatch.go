package glue

import (
	"fmt"
	"strings"

	"github.com/wippyai/nativebridge/mangle"
	"github.com/wippyai/nativebridge/protocol"
)

// Dispatch selects how the managed runtime finds native implementations.
// It is chosen once per compiled unit.
type Dispatch interface {
	// Name is the configuration spelling.
	Name() string
	// NeedsHooks reports whether the strategy only works with a generated
	// load hook.
	NeedsHooks() bool

	dispatch()
}

// ExportedSymbol exports every adapter under its mangled name; the runtime
// finds it by symbol lookup. Lookup happens independently under every class
// loader that loads the owning class.
type ExportedSymbol struct{}

// RegistrationTable exports adapters under internal names and registers them
// in bulk, one call per owning class, from the generated load hook.
type RegistrationTable struct{}

func (ExportedSymbol) Name() string        { return "exported-symbol" }
func (ExportedSymbol) NeedsHooks() bool    { return false }
func (ExportedSymbol) dispatch()           {}
func (RegistrationTable) Name() string     { return "registration-table" }
func (RegistrationTable) NeedsHooks() bool { return true }
func (RegistrationTable) dispatch()        {}

// ParseDispatch accepts "exported-symbol" and "registration-table".
func ParseDispatch(s string) (Dispatch, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "exported-symbol", "exported", "symbol":
		return ExportedSymbol{}, nil
	case "registration-table", "registration", "table":
		return RegistrationTable{}, nil
	}
	return nil, fmt.Errorf("unknown dispatch mode %q", s)
}

// Options configures an Emitter.
type Options struct {
	Dispatch          Dispatch
	Version           protocol.Version
	GenerateHooks     bool
	AllowSeveralHooks bool
	StrictStaticness  bool
	// Mangler computes exported names; the zero value uses mangle.Default.
	Mangler mangle.Mangler
	// Package is the Go package clause of generated files; "main" if empty.
	Package string
}

func (o Options) withDefaults() Options {
	if o.Dispatch == nil {
		o.Dispatch = ExportedSymbol{}
	}
	if o.Version == 0 {
		o.Version = protocol.DefaultVersion
	}
	if o.Mangler.Prefix == "" {
		o.Mangler = mangle.Default
	}
	if o.Package == "" {
		o.Package = "main"
	}
	return o
}
