package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wippyai/nativebridge/config"
	"github.com/wippyai/nativebridge/decl"
	"github.com/wippyai/nativebridge/descriptor"
	bridgeerrors "github.com/wippyai/nativebridge/errors"
	"github.com/wippyai/nativebridge/glue"
)

func wideUnit(files int) *decl.Unit {
	u := &decl.Unit{Name: "wide"}
	for i := 0; i < files; i++ {
		path := fmt.Sprintf("f%02d.go", i)
		u.Files = append(u.Files, decl.File{
			Path: path,
			Declarations: []decl.Declaration{{
				Name:        fmt.Sprintf("Op%d", i),
				TargetClass: "io.example.Wide",
				Static:      decl.StaticTrue,
				Params: []decl.Param{
					{Name: "a", Type: descriptor.Named("int64")},
					{Name: "s", Type: descriptor.Named("string")},
				},
				Return:   descriptor.Named("bool"),
				Location: bridgeerrors.Location{File: path, Line: 1},
			}},
		})
	}
	return u
}

func paths(files []glue.OutputFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

func TestGenerate(t *testing.T) {
	out, err := Generate(context.Background(), wideUnit(3), Options{})
	require.NoError(t, err)
	require.Equal(t, []string{"bridge_support.go", "f00_bridge.go", "f01_bridge.go", "f02_bridge.go"}, paths(out.Files))
	require.Empty(t, out.Diagnostics())
	require.Equal(t, "wide.bridgeset", out.SetFile())
	require.Equal(t, decl.RoleActuals, out.Set.Role)
	require.Equal(t, 3, out.Set.Len())

	set, err := decl.UnmarshalSet(out.Artifact)
	require.NoError(t, err)
	require.Equal(t, 3, set.Len())
}

func TestGenerateSetOmitsSkipped(t *testing.T) {
	u := wideUnit(2)
	u.Files[1].Declarations[0].Params[0].Type = descriptor.Named("complex128")

	out, err := Generate(context.Background(), u, Options{})
	require.NoError(t, err)
	require.Equal(t, 1, out.Diagnostics().Count(bridgeerrors.KindUnresolvedType))
	require.Equal(t, 1, out.Set.Len())
	require.Equal(t, "Op0", out.Set.Declarations[0].Name)

	set, err := decl.UnmarshalSet(out.Artifact)
	require.NoError(t, err)
	require.Equal(t, 1, set.Len())
}

func TestGenerateRegistrationTable(t *testing.T) {
	opts := Options{Glue: glue.Options{Dispatch: glue.RegistrationTable{}, GenerateHooks: true}}
	out, err := Generate(context.Background(), wideUnit(2), opts)
	require.NoError(t, err)
	require.Contains(t, paths(out.Files), glue.HooksFile)
}

func TestGenerateHooksRequired(t *testing.T) {
	opts := Options{Glue: glue.Options{Dispatch: glue.RegistrationTable{}}}
	_, err := Generate(context.Background(), wideUnit(1), opts)
	require.Error(t, err)
	require.ErrorIs(t, err, &bridgeerrors.Error{Phase: bridgeerrors.PhaseGenerate, Kind: bridgeerrors.KindHooksRequired})
}

func TestGenerateDeterministic(t *testing.T) {
	u := wideUnit(24)
	serial, err := Generate(context.Background(), u, Options{Workers: 1})
	require.NoError(t, err)

	for run := 0; run < 3; run++ {
		parallel, err := Generate(context.Background(), u, Options{Workers: 8})
		require.NoError(t, err)
		require.Equal(t, len(serial.Files), len(parallel.Files))
		for i := range serial.Files {
			require.Equal(t, serial.Files[i].Path, parallel.Files[i].Path)
			require.Equal(t, string(serial.Files[i].Content), string(parallel.Files[i].Content))
		}
		require.Equal(t, serial.Artifact, parallel.Artifact)
	}
}

func TestGenerateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Generate(ctx, wideUnit(4), Options{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestWrite(t *testing.T) {
	out, err := Generate(context.Background(), wideUnit(2), Options{})
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "gen")
	written, err := Write(context.Background(), out, dir, "")
	require.NoError(t, err)
	require.Len(t, written, len(out.Files)+1)

	for _, f := range out.Files {
		data, err := os.ReadFile(filepath.Join(dir, f.Path))
		require.NoError(t, err)
		require.Equal(t, f.Content, data)
	}

	set, err := decl.LoadSet(filepath.Join(dir, "wide.bridgeset"))
	require.NoError(t, err)
	require.Equal(t, "wide", set.Module)

	custom := filepath.Join(t.TempDir(), "custom.bridgeset")
	written, err = Write(context.Background(), out, dir, custom)
	require.NoError(t, err)
	require.Equal(t, custom, written[len(written)-1])
}

func TestFromConfig(t *testing.T) {
	cfg, err := config.Parse(`
dispatch-mode = "registration-table"
package = "calc"

[type-mapping-overrides]
Count = "I"
`)
	require.NoError(t, err)

	opts, err := FromConfig(&cfg)
	require.NoError(t, err)
	require.Equal(t, glue.RegistrationTable{}, opts.Glue.Dispatch)

	u := &decl.Unit{Name: "calc", Files: []decl.File{{
		Path: "calc.go",
		Declarations: []decl.Declaration{{
			Name:        "Inc",
			TargetClass: "io.example.Counter",
			Static:      decl.StaticTrue,
			Params:      []decl.Param{{Name: "c", Type: descriptor.Named("Count")}},
			Return:      descriptor.Named("Count"),
		}},
	}}}
	out, err := Generate(context.Background(), u, opts)
	require.NoError(t, err)
	require.Empty(t, out.Diagnostics())
	require.Len(t, out.Plan.Bindings(), 1)
	require.Equal(t, "(I)I", out.Plan.Bindings()[0].Signature)
}

func TestLoadUnits(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "calc.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
unit = "calc"

[[file]]
path = "calc.go"

[[file.native]]
name = "Add"
target-class = "io.example.Calculator"
target-member = "add"
static = "static"
params = [{ name = "a", type = "int32" }, { name = "b", type = "int32" }]
returns = "int32"

[[hook]]
kind = "sideways"
name = "OnLoad"
`), 0o644))

	units, diags, err := LoadUnits([]string{path})
	require.NoError(t, err)
	require.Len(t, units, 1)
	require.Equal(t, "calc", units[0].Name)
	require.Len(t, units[0].Declarations(), 1)
	require.Equal(t, 1, diags.Count(bridgeerrors.KindMalformedDeclaration))

	_, _, err = LoadUnits([]string{filepath.Join(dir, "missing.toml")})
	require.Error(t, err)
}
