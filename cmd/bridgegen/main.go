package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/nativebridge/config"
	"github.com/wippyai/nativebridge/decl"
	"github.com/wippyai/nativebridge/descriptor"
	"github.com/wippyai/nativebridge/frontend/gosrc"
	"github.com/wippyai/nativebridge/glue"
	"github.com/wippyai/nativebridge/mangle"
	"github.com/wippyai/nativebridge/pipeline"
	"github.com/wippyai/nativebridge/protocol"
	"github.com/wippyai/nativebridge/symcheck"
	"github.com/wippyai/nativebridge/verify"
)

// listFlag collects a repeatable string flag.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	*l = append(*l, v)
	return nil
}

var commands = map[string]func(ctx context.Context, args []string) int{
	"generate":   runGenerate,
	"verify":     runVerify,
	"mangle":     runMangle,
	"descriptor": runDescriptor,
	"symcheck":   runSymcheck,
}

func main() {
	verbose := flag.Bool("v", false, "Log debug output to stderr")
	logJSON := flag.Bool("log-json", false, "Log JSON to stderr")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}
	run, ok := commands[flag.Arg(0)]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", flag.Arg(0))
		usage()
		os.Exit(1)
	}

	logger, err := newLogger(*verbose, *logJSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	setLoggers(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, flag.Args()[1:])
	stop()
	_ = logger.Sync()
	os.Exit(code)
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: bridgegen [-v] [-log-json] <command> [flags]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  generate    Emit glue and a declaration set for each unit\n")
	fmt.Fprintf(os.Stderr, "  verify      Check expectations against generated declarations\n")
	fmt.Fprintf(os.Stderr, "  mangle      Print the exported symbol for a member\n")
	fmt.Fprintf(os.Stderr, "  descriptor  Resolve a source type to its descriptor\n")
	fmt.Fprintf(os.Stderr, "  symcheck    Check a compiled library exports the glue's symbols\n")
	fmt.Fprintf(os.Stderr, "\nGlobal flags:\n")
	flag.PrintDefaults()
}

func newLogger(verbose, jsonOut bool) (*zap.Logger, error) {
	switch {
	case jsonOut:
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		}
		return cfg.Build()
	case verbose:
		return zap.NewDevelopment()
	default:
		return zap.NewNop(), nil
	}
}

func setLoggers(l *zap.Logger) {
	config.SetLogger(l.Named("config"))
	glue.SetLogger(l.Named("glue"))
	pipeline.SetLogger(l.Named("pipeline"))
	verify.SetLogger(l.Named("verify"))
	symcheck.SetLogger(l.Named("symcheck"))
	gosrc.SetLogger(l.Named("gosrc"))
}

// styled reports whether stdout is a terminal that gets lipgloss output.
func styled() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func paint(s lipgloss.Style, text string) string {
	if !styled() {
		return text
	}
	return s.Render(text)
}

func fail(format string, args ...any) int {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	return 1
}

func loadConfig(path string) (config.Options, error) {
	if path == "" {
		if _, err := os.Stat(config.FileName); err == nil {
			path = config.FileName
		}
	}
	return config.Load(path)
}

// loadUnits reads manifests and, when goDir is set, scans the Go package
// there as one more unit.
func loadUnits(ctx context.Context, manifests []string, goDir, goPattern string) ([]*decl.Unit, int, error) {
	units, diags, err := pipeline.LoadUnits(manifests)
	if err != nil {
		return nil, 0, err
	}
	if goDir != "" {
		u, scanDiags, err := gosrc.Load(ctx, goDir, goPattern)
		if err != nil {
			return nil, 0, err
		}
		units = append(units, u)
		diags = append(diags, scanDiags...)
	}
	for _, d := range diags {
		fmt.Fprintln(os.Stderr, paint(errorStyle, d.Error()))
	}
	return units, len(diags), nil
}

func runGenerate(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	configPath := fs.String("config", "", "Configuration file (default ./"+config.FileName+" if present)")
	var manifests listFlag
	fs.Var(&manifests, "decls", "Declaration manifest (repeatable)")
	goDir := fs.String("go-src", "", "Directory of an annotated Go package to scan")
	goPattern := fs.String("go-pkg", ".", "Package pattern within -go-src")
	outDir := fs.String("out", "", "Output directory (default from configuration)")
	setPath := fs.String("set", "", "Declaration-set output path (single unit only)")
	_ = fs.Parse(args)

	if len(manifests) == 0 && *goDir == "" {
		return fail("generate needs -decls or -go-src")
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fail("%v", err)
	}
	opts, err := pipeline.FromConfig(&cfg)
	if err != nil {
		return fail("%v", err)
	}
	units, diagCount, err := loadUnits(ctx, manifests, *goDir, *goPattern)
	if err != nil {
		return fail("%v", err)
	}
	if *setPath != "" && len(units) > 1 {
		return fail("-set names one file but %d units were loaded", len(units))
	}
	dir := *outDir
	if dir == "" {
		dir = cfg.OutputDir
	}

	for _, u := range units {
		out, err := pipeline.Generate(ctx, u, opts)
		if err != nil {
			return fail("%s: %v", u.Name, err)
		}
		for _, d := range out.Diagnostics() {
			fmt.Fprintln(os.Stderr, paint(errorStyle, d.Error()))
		}
		diagCount += len(out.Diagnostics())

		unitDir := dir
		if len(units) > 1 {
			unitDir = filepath.Join(dir, u.Name)
		}
		written, err := pipeline.Write(ctx, out, unitDir, *setPath)
		if err != nil {
			return fail("%s: %v", u.Name, err)
		}
		fmt.Printf("%s %s: %d bindings, %d files\n",
			paint(titleStyle, "generated"), paint(funcStyle, u.Name), len(out.Plan.Bindings()), len(written))
		for _, p := range written {
			fmt.Printf("  %s\n", paint(typeStyle, p))
		}
	}
	if diagCount > 0 {
		fmt.Fprintf(os.Stderr, "%d declarations skipped\n", diagCount)
		return 1
	}
	return 0
}

// loadSet reads a declaration set from a generated artifact or a manifest.
func loadSet(path string, role decl.Role) (*decl.Set, error) {
	if filepath.Ext(path) == pipeline.SetExt {
		return decl.LoadSet(path)
	}
	m, err := decl.LoadManifest(path)
	if err != nil {
		return nil, err
	}
	set, diags := m.Set()
	for _, d := range diags {
		fmt.Fprintln(os.Stderr, paint(errorStyle, d.Error()))
	}
	if set == nil {
		return nil, diags.Err()
	}
	set.Role = role
	return set, nil
}

func runVerify(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	configPath := fs.String("config", "", "Configuration file (default ./"+config.FileName+" if present)")
	expectPath := fs.String("expect", "", "Expectations: manifest or "+pipeline.SetExt+" file")
	actualPath := fs.String("actual", "", "Actual declarations: manifest or "+pipeline.SetExt+" file")
	allowExtra := fs.Bool("allow-extra", false, "Do not report actuals that match no expectation")
	jsonOut := fs.Bool("json", false, "Print the report as JSON")
	interactive := fs.Bool("i", false, "Browse the report interactively")
	_ = fs.Parse(args)

	if *expectPath == "" || *actualPath == "" {
		return fail("verify needs -expect and -actual")
	}
	if err := ctx.Err(); err != nil {
		return fail("%v", err)
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fail("%v", err)
	}
	expect, err := loadSet(*expectPath, decl.RoleExpectations)
	if err != nil {
		return fail("%v", err)
	}
	actual, err := loadSet(*actualPath, decl.RoleActuals)
	if err != nil {
		return fail("%v", err)
	}

	opts := cfg.Verify()
	if *allowExtra {
		opts.AllowExtraActuals = true
	}
	report := verify.Verify(expect, actual, opts)

	switch {
	case *interactive:
		if err := runInteractive(report); err != nil {
			return fail("%v", err)
		}
	case *jsonOut:
		if err := report.WriteJSON(os.Stdout); err != nil {
			return fail("%v", err)
		}
	default:
		for _, d := range report.Diagnostics {
			fmt.Println(paint(errorStyle, d.String()))
		}
		fmt.Println(paint(helpStyle, fmt.Sprintf("%d expectations, %d bound, %d diagnostics",
			len(report.Records), report.Bound(), len(report.Diagnostics))))
	}
	if !report.OK() {
		return 1
	}
	return 0
}

func runMangle(_ context.Context, args []string) int {
	fs := flag.NewFlagSet("mangle", flag.ExitOnError)
	class := fs.String("class", "", "Fully qualified class name")
	member := fs.String("member", "", "Member name")
	sig := fs.String("sig", "", "Method descriptor; selects the overloaded long form")
	prefix := fs.String("prefix", protocol.SymbolPrefix, "Symbol prefix")
	_ = fs.Parse(args)

	if *class == "" || *member == "" {
		return fail("mangle needs -class and -member")
	}
	owner, err := protocol.ParseClassName(*class)
	if err != nil {
		return fail("%v", err)
	}
	m := mangle.Mangler{Prefix: *prefix}
	if *sig == "" {
		fmt.Println(m.Mangle(owner, *member))
		return 0
	}
	params, _, err := descriptor.SplitMethod(*sig)
	if err != nil {
		return fail("%v", err)
	}
	fmt.Println(m.MangleOverloaded(owner, *member, strings.Join(params, "")))
	return 0
}

func runDescriptor(_ context.Context, args []string) int {
	fs := flag.NewFlagSet("descriptor", flag.ExitOnError)
	configPath := fs.String("config", "", "Configuration file for type-mapping overrides")
	typ := fs.String("type", "", "Source type, e.g. int32, []byte, wit:list<u8>, io.example.Widget")
	var mappings listFlag
	fs.Var(&mappings, "map", "Type mapping to attach (repeatable, last wins)")
	isReturn := fs.Bool("return", false, "Resolve in return position (allows void)")
	_ = fs.Parse(args)

	if *typ == "" {
		return fail("descriptor needs -type")
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fail("%v", err)
	}
	st, err := descriptor.ParseSourceType(*typ)
	if err != nil {
		return fail("%v", err)
	}
	for _, m := range mappings {
		st = st.WithMapping(m)
	}
	sig, err := cfg.Resolver().Resolve(st, *isReturn)
	if err != nil {
		return fail("%v", err)
	}
	fmt.Printf("%s\t%s\t%s\n", paint(funcStyle, sig.Descriptor), paint(typeStyle, sig.GoType), sig.AdapterType())
	return 0
}

func runSymcheck(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("symcheck", flag.ExitOnError)
	configPath := fs.String("config", "", "Configuration file (default ./"+config.FileName+" if present)")
	lib := fs.String("lib", "", "Compiled library to inspect")
	var manifests listFlag
	fs.Var(&manifests, "decls", "Declaration manifest (repeatable)")
	goDir := fs.String("go-src", "", "Directory of an annotated Go package to scan")
	goPattern := fs.String("go-pkg", ".", "Package pattern within -go-src")
	targetOS := fs.String("os", "", "Target OS; detected from the file when empty")
	targetArch := fs.String("arch", "", "Target architecture")
	_ = fs.Parse(args)

	if *lib == "" || (len(manifests) == 0 && *goDir == "") {
		return fail("symcheck needs -lib and -decls or -go-src")
	}
	var conv protocol.Conventions
	if *targetOS != "" {
		p := protocol.Platform{OS: *targetOS, Arch: *targetArch}
		c, ok := protocol.Lookup(p)
		if !ok {
			return fail("unknown platform %s", p)
		}
		conv = c
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fail("%v", err)
	}
	opts, err := pipeline.FromConfig(&cfg)
	if err != nil {
		return fail("%v", err)
	}
	units, _, err := loadUnits(ctx, manifests, *goDir, *goPattern)
	if err != nil {
		return fail("%v", err)
	}

	var expected []symcheck.Expectation
	for _, u := range units {
		p, err := glue.New(opts.Glue, opts.Resolver).Plan(u)
		if err != nil {
			return fail("%s: %v", u.Name, err)
		}
		expected = append(expected, symcheck.Expected(p)...)
	}

	res, err := symcheck.CheckFor(ctx, *lib, conv, expected)
	if err != nil {
		return fail("%v", err)
	}
	if res.OK() {
		fmt.Printf("%s %s: %d symbols present\n", paint(resultStyle, "ok"), res.Library.Path, len(expected))
		return 0
	}
	fmt.Fprintln(os.Stderr, paint(errorStyle, res.Err().Error()))
	return 1
}
