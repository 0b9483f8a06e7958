// Package pipeline drives generation for a unit: plan, parallel per-file
// emission, support and hook files, and the unit's declaration-set
// artifact. Output is independent of scheduling.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/nativebridge/config"
	"github.com/wippyai/nativebridge/decl"
	"github.com/wippyai/nativebridge/descriptor"
	"github.com/wippyai/nativebridge/errors"
	"github.com/wippyai/nativebridge/glue"
)

// SetExt is the file extension of declaration-set artifacts.
const SetExt = ".bridgeset"

// Options configures Generate.
type Options struct {
	Glue     glue.Options
	Resolver *descriptor.Resolver
	// Workers bounds parallel file emission; GOMAXPROCS when zero.
	Workers int
}

// FromConfig builds pipeline options from loaded configuration.
func FromConfig(cfg *config.Options) (Options, error) {
	g, err := cfg.Glue()
	if err != nil {
		return Options{}, err
	}
	return Options{Glue: g, Resolver: cfg.Resolver()}, nil
}

// Output is everything generated for one unit.
type Output struct {
	Unit  string
	Plan  *glue.Plan
	Files []glue.OutputFile
	// Set is the unit's actual declarations, encoded in Artifact.
	Set      *decl.Set
	Artifact []byte
}

// Diagnostics returns the declaration-local problems found while planning.
func (o *Output) Diagnostics() errors.List {
	if o.Plan == nil {
		return nil
	}
	return o.Plan.Diagnostics
}

// SetFile names the unit's declaration-set artifact.
func (o *Output) SetFile() string {
	return o.Unit + SetExt
}

// Generate emits glue for u. Declaration-local problems are reported in the
// plan's diagnostics; unit-fatal problems and cancellation return an error.
func Generate(ctx context.Context, u *decl.Unit, opts Options) (*Output, error) {
	e := glue.New(opts.Glue, opts.Resolver)
	p, err := e.Plan(u)
	if err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	files := make([]glue.OutputFile, len(p.Files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range p.Files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f, err := e.EmitFile(p, i)
			if err != nil {
				return err
			}
			files[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	support, err := e.EmitSupport(p)
	if err != nil {
		return nil, err
	}
	files = append(files, support)
	hooks, ok, err := e.EmitHooks(p)
	if err != nil {
		return nil, err
	}
	if ok {
		files = append(files, hooks)
	}
	glue.SortFiles(files)

	set := p.ActualSet()
	artifact, err := decl.MarshalSet(set)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseGenerate, errors.KindInvalidData, err, "encode declaration set")
	}

	Logger().Info("generated unit",
		zap.String("unit", u.Name),
		zap.Int("files", len(files)),
		zap.Int("bindings", len(p.Bindings())),
		zap.Int("diagnostics", len(p.Diagnostics)),
		zap.Bool("hooks", ok))

	return &Output{
		Unit:     u.Name,
		Plan:     p,
		Files:    files,
		Set:      set,
		Artifact: artifact,
	}, nil
}

// Write stores the generated files in dir, creating it if needed, and the
// declaration-set artifact at setPath (dir/<unit>.bridgeset when empty).
// It returns the written paths in order.
func Write(ctx context.Context, out *Output, dir, setPath string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	written := make([]string, 0, len(out.Files)+1)
	for _, f := range out.Files {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		path := filepath.Join(dir, f.Path)
		if err := os.WriteFile(path, f.Content, 0o644); err != nil {
			return written, fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
	}

	if setPath == "" {
		setPath = filepath.Join(dir, out.SetFile())
	}
	if err := os.WriteFile(setPath, out.Artifact, 0o644); err != nil {
		return written, fmt.Errorf("write %s: %w", setPath, err)
	}
	written = append(written, setPath)

	Logger().Debug("wrote unit", zap.String("unit", out.Unit), zap.String("dir", dir), zap.Int("files", len(written)))
	return written, nil
}

// LoadUnits reads manifests and returns one unit per manifest, in order.
// Entries that fail to convert are skipped and returned as diagnostics; an
// unreadable manifest is an error.
func LoadUnits(paths []string) ([]*decl.Unit, errors.List, error) {
	var diags errors.List
	units := make([]*decl.Unit, 0, len(paths))
	for _, path := range paths {
		m, err := decl.LoadManifest(path)
		if err != nil {
			return nil, nil, err
		}
		u, errs := m.Unit()
		diags = append(diags, errs...)
		units = append(units, u)
	}
	return units, diags, nil
}
