package errors

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseLoad     Phase = "load"     // manifest, declaration set and source loading
	PhaseConfig   Phase = "config"   // option validation
	PhaseEncode   Phase = "encode"   // text to modified UTF-8
	PhaseDecode   Phase = "decode"   // modified UTF-8 to text
	PhaseResolve  Phase = "resolve"  // source type to descriptor
	PhaseGenerate Phase = "generate" // glue emission
	PhaseVerify   Phase = "verify"   // expectation/actual matching
	PhaseSymbols  Phase = "symbols"  // compiled library inspection
)

// Kind categorizes the error
type Kind string

const (
	KindMalformedDeclaration Kind = "malformed_declaration"
	KindUnresolvedType       Kind = "unresolved_type"
	KindHooksRequired        Kind = "hooks_required"
	KindDuplicateHook        Kind = "duplicate_hook"
	KindMissingActual        Kind = "missing_actual"
	KindAmbiguousActual      Kind = "ambiguous_actual"
	KindSignatureMismatch    Kind = "signature_mismatch"
	KindUnexpectedActual     Kind = "unexpected_actual"
	KindInvalidEncoding      Kind = "invalid_encoding"
	KindInvalidConfig        Kind = "invalid_config"
	KindInvalidData          Kind = "invalid_data"
	KindMissingSymbol        Kind = "missing_symbol"
	KindUnsupported          Kind = "unsupported"
	KindNotFound             Kind = "not_found"
)

// Location is a position in declaration source, used for diagnostics.
// The zero Location means "unknown".
type Location struct {
	File   string `cbor:"1,keyasint,omitempty" json:"file,omitempty"`
	Line   int    `cbor:"2,keyasint,omitempty" json:"line,omitempty"`
	Column int    `cbor:"3,keyasint,omitempty" json:"column,omitempty"`
}

// IsZero reports whether the location is unknown.
func (l Location) IsZero() bool {
	return l.File == "" && l.Line == 0 && l.Column == 0
}

// String renders file:line:column, omitting unknown parts.
func (l Location) String() string {
	if l.IsZero() {
		return "<unknown>"
	}
	var b strings.Builder
	b.WriteString(l.File)
	if l.Line > 0 {
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(l.Line))
		if l.Column > 0 {
			b.WriteByte(':')
			b.WriteString(strconv.Itoa(l.Column))
		}
	}
	return b.String()
}

// Less orders locations by file, line, column.
func (l Location) Less(o Location) bool {
	if l.File != o.File {
		return l.File < o.File
	}
	if l.Line != o.Line {
		return l.Line < o.Line
	}
	return l.Column < o.Column
}

// Error is the structured error type used throughout the generator
type Error struct {
	Value      any
	Cause      error
	Phase      Phase
	Kind       Kind
	SourceType string
	Descriptor string
	Detail     string
	Path       []string
	Location   Location
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if !e.Location.IsZero() {
		b.WriteString(e.Location.String())
		b.WriteString(": ")
	}

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.SourceType != "" || e.Descriptor != "" {
		b.WriteString(": ")
		if e.SourceType != "" && e.Descriptor != "" {
			b.WriteString("source type ")
			b.WriteString(e.SourceType)
			b.WriteString(", descriptor ")
			b.WriteString(e.Descriptor)
		} else if e.SourceType != "" {
			b.WriteString("source type ")
			b.WriteString(e.SourceType)
		} else {
			b.WriteString("descriptor ")
			b.WriteString(e.Descriptor)
		}
	}

	if e.Detail != "" {
		if e.SourceType != "" || e.Descriptor != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Fatal reports whether the error aborts generation for a whole unit rather
// than a single declaration.
func (e *Error) Fatal() bool {
	return e.Kind == KindHooksRequired || e.Kind == KindDuplicateHook || e.Kind == KindInvalidConfig
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the declaration path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// At sets the source location
func (b *Builder) At(loc Location) *Builder {
	b.err.Location = loc
	return b
}

// SourceType sets the source-level type spelling
func (b *Builder) SourceType(t string) *Builder {
	b.err.SourceType = t
	return b
}

// Descriptor sets the protocol descriptor
func (b *Builder) Descriptor(d string) *Builder {
	b.err.Descriptor = d
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for the diagnostic taxonomy

// MalformedDeclaration reports a structurally invalid declaration.
func MalformedDeclaration(loc Location, path []string, detail string) *Error {
	return &Error{
		Phase:    PhaseGenerate,
		Kind:     KindMalformedDeclaration,
		Location: loc,
		Path:     path,
		Detail:   detail,
	}
}

// UnresolvedType reports a source type with no descriptor.
func UnresolvedType(path []string, sourceType, detail string) *Error {
	return &Error{
		Phase:      PhaseResolve,
		Kind:       KindUnresolvedType,
		Path:       path,
		SourceType: sourceType,
		Detail:     detail,
	}
}

// HooksRequired reports a dispatch mode that needs a generated load hook
// while hook generation is disabled.
func HooksRequired(unit string) *Error {
	return &Error{
		Phase:  PhaseGenerate,
		Kind:   KindHooksRequired,
		Path:   []string{unit},
		Detail: "registration-table dispatch needs a generated load hook but hook generation is disabled",
	}
}

// DuplicateHook reports more than one hook of the same kind in a unit.
func DuplicateHook(unit, hookKind string, locs []Location) *Error {
	where := make([]string, len(locs))
	for i, l := range locs {
		where[i] = l.String()
	}
	return &Error{
		Phase:  PhaseGenerate,
		Kind:   KindDuplicateHook,
		Path:   []string{unit},
		Detail: fmt.Sprintf("%d %s hooks declared (%s); set allow-several-hooks to permit this", len(locs), hookKind, strings.Join(where, ", ")),
		Value:  len(locs),
	}
}

// MissingActual reports an expectation with no implementation.
func MissingActual(key string, loc Location) *Error {
	return &Error{
		Phase:    PhaseVerify,
		Kind:     KindMissingActual,
		Location: loc,
		Path:     []string{key},
		Detail:   "no actual declaration implements this native member",
	}
}

// AmbiguousActual reports an expectation matched by several actuals.
func AmbiguousActual(key string, loc Location, candidates []Location) *Error {
	return &Error{
		Phase:    PhaseVerify,
		Kind:     KindAmbiguousActual,
		Location: loc,
		Path:     []string{key},
		Detail:   fmt.Sprintf("%d candidate actuals: %s", len(candidates), joinLocations(candidates)),
		Value:    len(candidates),
	}
}

// SignatureMismatch reports an actual whose shape differs from its
// expectation.
func SignatureMismatch(key string, expectation, actual Location, detail string) *Error {
	return &Error{
		Phase:    PhaseVerify,
		Kind:     KindSignatureMismatch,
		Location: expectation,
		Path:     []string{key},
		Detail:   fmt.Sprintf("%s (actual at %s)", detail, actual),
	}
}

// UnexpectedActual reports an actual no expectation asks for.
func UnexpectedActual(key string, loc Location) *Error {
	return &Error{
		Phase:    PhaseVerify,
		Kind:     KindUnexpectedActual,
		Location: loc,
		Path:     []string{key},
		Detail:   "actual declaration matches no expectation",
	}
}

func joinLocations(locs []Location) string {
	parts := make([]string, len(locs))
	for i, l := range locs {
		parts[i] = l.String()
	}
	return strings.Join(parts, ", ")
}

// InvalidEncoding reports a malformed modified UTF-8 sequence.
func InvalidEncoding(phase Phase, offset int, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidEncoding,
		Detail: fmt.Sprintf("malformed modified UTF-8 at byte %d: %x", offset, preview),
		Value:  offset,
	}
}

// InvalidConfig reports an invalid option value.
func InvalidConfig(option string, value any, detail string) *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindInvalidConfig,
		Path:   []string{option},
		Detail: detail,
		Value:  value,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// ParseFailed creates a parsing error
func ParseFailed(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: fmt.Sprintf("parse %s", what),
		Cause:  cause,
	}
}

// List collects diagnostics so that a pass can run to completion before
// failing. The zero value is ready to use.
type List []*Error

// Add appends a diagnostic; nil is ignored.
func (l *List) Add(err *Error) {
	if err != nil {
		*l = append(*l, err)
	}
}

// Len returns the number of diagnostics.
func (l List) Len() int { return len(l) }

// Sort orders diagnostics by location, then kind, then message.
func (l List) Sort() {
	sort.SliceStable(l, func(i, j int) bool {
		a, b := l[i], l[j]
		if a.Location != b.Location {
			return a.Location.Less(b.Location)
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Error() < b.Error()
	})
}

// Count returns how many diagnostics have the given kind.
func (l List) Count(kind Kind) int {
	n := 0
	for _, e := range l {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Err returns nil for an empty list, otherwise the list itself as an error.
func (l List) Err() error {
	if len(l) == 0 {
		return nil
	}
	return l
}

func (l List) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d errors:", len(l))
	for _, e := range l {
		b.WriteString("\n  ")
		b.WriteString(e.Error())
	}
	return b.String()
}

// Unwrap exposes the individual diagnostics to errors.Is/As.
func (l List) Unwrap() []error {
	errs := make([]error, len(l))
	for i, e := range l {
		errs[i] = e
	}
	return errs
}

// MissingSymbol represents a single symbol a compiled library fails to export
type MissingSymbol struct {
	Library string // e.g., "libnative.so"
	Symbol  string // e.g., "Java_io_example_TestType_testMethod"
	Binding string // e.g., "io.example.TestType#testMethod"
}

// MissingSymbolsError is returned when a compiled library does not export
// every symbol the generated glue promises
type MissingSymbolsError struct {
	Symbols []MissingSymbol
}

// NewMissingSymbolsError creates an error from "library#symbol" keys
func NewMissingSymbolsError(keys []string) *MissingSymbolsError {
	result := &MissingSymbolsError{
		Symbols: make([]MissingSymbol, 0, len(keys)),
	}
	for _, k := range keys {
		lib, sym := parseSymbolKey(k)
		result.Symbols = append(result.Symbols, MissingSymbol{
			Library: lib,
			Symbol:  sym,
		})
	}
	return result
}

func parseSymbolKey(key string) (library, symbol string) {
	lib, sym, found := strings.Cut(key, "#")
	if found {
		return lib, sym
	}
	return "", key
}

func (e *MissingSymbolsError) Error() string {
	if len(e.Symbols) == 0 {
		return "[symbols] missing_symbol: no symbols specified"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("missing %d exported symbol(s):\n", len(e.Symbols)))

	// Group by library for cleaner output
	byLib := make(map[string][]MissingSymbol)
	var libOrder []string
	for _, s := range e.Symbols {
		if _, exists := byLib[s.Library]; !exists {
			libOrder = append(libOrder, s.Library)
		}
		byLib[s.Library] = append(byLib[s.Library], s)
	}

	for _, lib := range libOrder {
		b.WriteString("\n  ")
		if lib == "" {
			b.WriteString("<library>")
		} else {
			b.WriteString(lib)
		}
		b.WriteString(":\n")
		for _, s := range byLib[lib] {
			b.WriteString("    - ")
			b.WriteString(s.Symbol)
			if s.Binding != "" {
				b.WriteString(" (")
				b.WriteString(s.Binding)
				b.WriteByte(')')
			}
			b.WriteByte('\n')
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// Is reports whether target matches this error type
func (e *MissingSymbolsError) Is(target error) bool {
	_, ok := target.(*MissingSymbolsError)
	return ok
}
