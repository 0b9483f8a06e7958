// Package config loads generator options from a TOML file and BRIDGEGEN_*
// environment variables.
//
//	protocol-version = "1.6"
//	dispatch-mode = "registration-table"
//	generate-hooks = true
//	package = "main"
//	output-dir = "gen"
//
//	[type-mapping-overrides]
//	uint32 = "J"
//	Handle = "java.lang.Object"
package config

import (
	"fmt"
	"go/token"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/xyproto/env/v2"

	"github.com/wippyai/nativebridge/descriptor"
	"github.com/wippyai/nativebridge/errors"
	"github.com/wippyai/nativebridge/glue"
	"github.com/wippyai/nativebridge/mangle"
	"github.com/wippyai/nativebridge/protocol"
	"github.com/wippyai/nativebridge/verify"
)

// FileName is the conventional configuration file name.
const FileName = "bridgegen.toml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BRIDGEGEN_"

// Options holds every generator and verifier setting.
type Options struct {
	ProtocolVersion      ProtocolVersion   `toml:"protocol-version"`
	DispatchMode         string            `toml:"dispatch-mode"`
	GenerateHooks        bool              `toml:"generate-hooks"`
	AllowSeveralHooks    bool              `toml:"allow-several-hooks"`
	AllowExtraActuals    bool              `toml:"allow-extra-actuals"`
	StrictStaticness     bool              `toml:"strict-staticness"`
	TypeMappingOverrides map[string]string `toml:"type-mapping-overrides"`
	Package              string            `toml:"package"`
	OutputDir            string            `toml:"output-dir"`
	SymbolPrefix         string            `toml:"symbol-prefix"`
}

// ProtocolVersion accepts a TOML string ("1.6", "JNI_VERSION_1_6") or an
// integer (0x00010006).
type ProtocolVersion protocol.Version

// UnmarshalTOML implements toml.Unmarshaler.
func (v *ProtocolVersion) UnmarshalTOML(data any) error {
	switch x := data.(type) {
	case string:
		pv, err := protocol.ParseVersion(x)
		if err != nil {
			return err
		}
		*v = ProtocolVersion(pv)
		return nil
	case int64:
		if x <= 0 || x > 0xffffffff {
			return fmt.Errorf("protocol version %d out of range", x)
		}
		*v = ProtocolVersion(x)
		return nil
	}
	return fmt.Errorf("protocol version must be a string or integer, got %T", data)
}

// MarshalText renders the version the way ParseVersion reads it back.
func (v ProtocolVersion) MarshalText() ([]byte, error) {
	return []byte(protocol.Version(v).String()), nil
}

// Default returns the options used when nothing is configured.
func Default() Options {
	return Options{
		ProtocolVersion: ProtocolVersion(protocol.DefaultVersion),
		DispatchMode:    glue.ExportedSymbol{}.Name(),
		GenerateHooks:   true,
		Package:         "main",
		OutputDir:       ".",
		SymbolPrefix:    protocol.SymbolPrefix,
	}
}

// Load reads path on top of the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (Options, error) {
	opts := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Options{}, fmt.Errorf("cannot read %s: %w", path, err)
		}
		if err := opts.decode(string(data), path); err != nil {
			return Options{}, err
		}
	}
	if err := opts.ApplyEnv(); err != nil {
		return Options{}, err
	}
	if err := opts.Validate().Err(); err != nil {
		return Options{}, err
	}
	Logger().Debug("loaded configuration", optionFields(path, opts)...)
	return opts, nil
}

// Parse decodes TOML text on top of the defaults and validates it. The
// environment is not consulted.
func Parse(data string) (Options, error) {
	opts := Default()
	if err := opts.decode(data, ""); err != nil {
		return Options{}, err
	}
	if err := opts.Validate().Err(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

func (o *Options) decode(data, path string) error {
	md, err := toml.Decode(data, o)
	if err != nil {
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidConfig, err, "cannot parse "+displayPath(path))
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return errors.InvalidConfig(keys[0], nil, fmt.Sprintf("unknown option(s) in %s: %s", displayPath(path), strings.Join(keys, ", ")))
	}
	return nil
}

func displayPath(path string) string {
	if path == "" {
		return "configuration"
	}
	return path
}

// ApplyEnv overrides options from BRIDGEGEN_* variables that are set.
// The environment is re-read on every call.
func (o *Options) ApplyEnv() error {
	env.Load()
	if env.Has(EnvPrefix + "PROTOCOL_VERSION") {
		raw := env.Str(EnvPrefix + "PROTOCOL_VERSION")
		v, err := protocol.ParseVersion(raw)
		if err != nil {
			return errors.InvalidConfig("protocol-version", raw, err.Error())
		}
		o.ProtocolVersion = ProtocolVersion(v)
	}
	strs := []struct {
		name string
		dst  *string
	}{
		{"DISPATCH_MODE", &o.DispatchMode},
		{"PACKAGE", &o.Package},
		{"OUTPUT_DIR", &o.OutputDir},
		{"SYMBOL_PREFIX", &o.SymbolPrefix},
	}
	for _, s := range strs {
		if env.Has(EnvPrefix + s.name) {
			*s.dst = env.Str(EnvPrefix + s.name)
		}
	}
	bools := []struct {
		name string
		dst  *bool
	}{
		{"GENERATE_HOOKS", &o.GenerateHooks},
		{"ALLOW_SEVERAL_HOOKS", &o.AllowSeveralHooks},
		{"ALLOW_EXTRA_ACTUALS", &o.AllowExtraActuals},
		{"STRICT_STATICNESS", &o.StrictStaticness},
	}
	for _, b := range bools {
		if env.Has(EnvPrefix + b.name) {
			*b.dst = env.Bool(EnvPrefix + b.name)
		}
	}
	return nil
}

// Validate reports every invalid option.
func (o *Options) Validate() errors.List {
	var errs errors.List
	if o.ProtocolVersion == 0 {
		errs.Add(errors.InvalidConfig("protocol-version", 0, "must be set"))
	}
	if _, err := glue.ParseDispatch(o.DispatchMode); err != nil {
		errs.Add(errors.InvalidConfig("dispatch-mode", o.DispatchMode, "expected exported-symbol or registration-table"))
	}
	if !token.IsIdentifier(o.Package) {
		errs.Add(errors.InvalidConfig("package", o.Package, "not a Go package name"))
	}
	if o.SymbolPrefix == "" || strings.ContainsAny(o.SymbolPrefix, " \t/.;[") {
		errs.Add(errors.InvalidConfig("symbol-prefix", o.SymbolPrefix, "must be a non-empty C identifier fragment"))
	}

	keys := make([]string, 0, len(o.TypeMappingOverrides))
	for k := range o.TypeMappingOverrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !validMapping(o.TypeMappingOverrides[k]) {
			errs.Add(errors.InvalidConfig("type-mapping-overrides."+k, o.TypeMappingOverrides[k],
				"expected a descriptor or a qualified class name"))
		}
	}
	return errs
}

func validMapping(m string) bool {
	m = strings.TrimSpace(m)
	if m == "V" {
		return false
	}
	if descriptor.ParseDescriptor(m, false) == nil {
		return true
	}
	if !strings.Contains(m, ".") {
		return false
	}
	_, err := protocol.ParseClassName(m)
	return err == nil
}

// Version returns the configured protocol version.
func (o *Options) Version() protocol.Version {
	return protocol.Version(o.ProtocolVersion)
}

// Resolver returns a resolver carrying the type-mapping overrides.
func (o *Options) Resolver() *descriptor.Resolver {
	return descriptor.NewResolver(o.TypeMappingOverrides)
}

// Glue converts the options to emitter options.
func (o *Options) Glue() (glue.Options, error) {
	d, err := glue.ParseDispatch(o.DispatchMode)
	if err != nil {
		return glue.Options{}, errors.InvalidConfig("dispatch-mode", o.DispatchMode, err.Error())
	}
	return glue.Options{
		Dispatch:          d,
		Version:           o.Version(),
		GenerateHooks:     o.GenerateHooks,
		AllowSeveralHooks: o.AllowSeveralHooks,
		StrictStaticness:  o.StrictStaticness,
		Mangler:           mangle.Mangler{Prefix: o.SymbolPrefix},
		Package:           o.Package,
	}, nil
}

// Verify converts the options to verifier options.
func (o *Options) Verify() verify.Options {
	return verify.Options{
		AllowExtraActuals: o.AllowExtraActuals,
		Resolver:          o.Resolver(),
	}
}
