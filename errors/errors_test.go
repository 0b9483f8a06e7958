package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:      PhaseResolve,
				Kind:       KindUnresolvedType,
				Location:   Location{File: "native.toml", Line: 12, Column: 3},
				Path:       []string{"io.example.Widget", "resize"},
				SourceType: "T",
				Descriptor: "I",
				Detail:     "cannot resolve",
			},
			contains: []string{"native.toml:12:3", "[resolve]", "unresolved_type", "io.example.Widget.resize", "T", "descriptor I", "cannot resolve"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseVerify,
				Kind:  KindMissingActual,
			},
			contains: []string{"[verify]", "missing_actual"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseLoad,
				Kind:   KindInvalidData,
				Detail: "bad manifest",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[load]", "invalid_data", "bad manifest", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseLoad,
		Kind:  KindInvalidData,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseVerify,
		Kind:  KindSignatureMismatch,
		Path:  []string{"foo"},
	}

	if !err.Is(&Error{Phase: PhaseVerify, Kind: KindSignatureMismatch}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseGenerate, Kind: KindSignatureMismatch}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseVerify, Kind: KindMissingActual}) {
		t.Error("Is should not match different kind")
	}
	if !errors.Is(err, &Error{Phase: PhaseVerify, Kind: KindSignatureMismatch}) {
		t.Error("errors.Is should match")
	}
}

func TestError_Fatal(t *testing.T) {
	if !HooksRequired("u").Fatal() {
		t.Error("HooksRequired should be unit-fatal")
	}
	if !DuplicateHook("u", "load", nil).Fatal() {
		t.Error("DuplicateHook should be unit-fatal")
	}
	if MalformedDeclaration(Location{}, nil, "x").Fatal() {
		t.Error("MalformedDeclaration should be declaration-local")
	}
	if UnresolvedType(nil, "T", "").Fatal() {
		t.Error("UnresolvedType should be declaration-local")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	loc := Location{File: "a.go", Line: 4}
	err := New(PhaseResolve, KindUnresolvedType).
		Path("pkg.Type", "member").
		At(loc).
		SourceType("T").
		Descriptor("I").
		Value(42).
		Cause(cause).
		Detail("expected %s, got %s", "int32", "T").
		Build()

	if err.Phase != PhaseResolve {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseResolve)
	}
	if err.Kind != KindUnresolvedType {
		t.Errorf("Kind = %v, want %v", err.Kind, KindUnresolvedType)
	}
	if len(err.Path) != 2 || err.Path[0] != "pkg.Type" || err.Path[1] != "member" {
		t.Errorf("Path = %v, want [pkg.Type member]", err.Path)
	}
	if err.Location != loc {
		t.Errorf("Location = %v, want %v", err.Location, loc)
	}
	if err.SourceType != "T" || err.Descriptor != "I" {
		t.Errorf("SourceType=%v Descriptor=%v", err.SourceType, err.Descriptor)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected int32, got T" {
		t.Errorf("Detail = %v", err.Detail)
	}
}

func TestLocation(t *testing.T) {
	tests := []struct {
		loc  Location
		want string
	}{
		{Location{}, "<unknown>"},
		{Location{File: "x.toml"}, "x.toml"},
		{Location{File: "x.toml", Line: 3}, "x.toml:3"},
		{Location{File: "x.toml", Line: 3, Column: 9}, "x.toml:3:9"},
	}
	for _, tt := range tests {
		if got := tt.loc.String(); got != tt.want {
			t.Errorf("Location%+v.String() = %q, want %q", tt.loc, got, tt.want)
		}
	}

	a := Location{File: "a", Line: 9}
	b := Location{File: "a", Line: 10}
	if !a.Less(b) || b.Less(a) {
		t.Error("Less should order by line")
	}
}

func TestList(t *testing.T) {
	var l List
	if l.Err() != nil {
		t.Fatal("empty list should not be an error")
	}

	l.Add(nil)
	l.Add(&Error{Phase: PhaseVerify, Kind: KindMissingActual, Location: Location{File: "b", Line: 1}})
	l.Add(&Error{Phase: PhaseVerify, Kind: KindAmbiguousActual, Location: Location{File: "a", Line: 7}})
	l.Add(&Error{Phase: PhaseVerify, Kind: KindMissingActual, Location: Location{File: "a", Line: 2}})

	if l.Len() != 3 {
		t.Fatalf("Len = %d, want 3", l.Len())
	}
	if l.Count(KindMissingActual) != 2 {
		t.Errorf("Count(missing) = %d, want 2", l.Count(KindMissingActual))
	}

	l.Sort()
	if l[0].Location.Line != 2 || l[1].Location.Line != 7 || l[2].Location.File != "b" {
		t.Errorf("unexpected order: %v", l)
	}

	err := l.Err()
	if !errors.Is(err, &Error{Phase: PhaseVerify, Kind: KindAmbiguousActual}) {
		t.Error("errors.Is should see through List")
	}
	if !strings.HasPrefix(err.Error(), "3 errors:") {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestDuplicateHook(t *testing.T) {
	err := DuplicateHook("native", "load", []Location{{File: "a.go", Line: 1}, {File: "b.go", Line: 2}})
	msg := err.Error()
	for _, s := range []string{"duplicate_hook", "2 load hooks", "a.go:1", "b.go:2"} {
		if !strings.Contains(msg, s) {
			t.Errorf("message %q does not contain %q", msg, s)
		}
	}
}

func TestVerifyConstructors(t *testing.T) {
	exp := Location{File: "App.kt", Line: 4}
	a := Location{File: "a.go", Line: 1}
	b := Location{File: "b.go", Line: 2}

	tests := []struct {
		err  *Error
		kind Kind
		subs []string
	}{
		{MissingActual("p.C#m", exp), KindMissingActual, []string{"App.kt:4", "p.C#m"}},
		{AmbiguousActual("p.C#m", exp, []Location{a, b}), KindAmbiguousActual, []string{"2 candidate actuals", "a.go:1", "b.go:2"}},
		{SignatureMismatch("p.C#m", exp, a, "arity 2 vs 3"), KindSignatureMismatch, []string{"App.kt:4", "arity 2 vs 3", "actual at a.go:1"}},
		{UnexpectedActual("p.C#x", a), KindUnexpectedActual, []string{"a.go:1", "p.C#x"}},
	}
	for _, tt := range tests {
		if tt.err.Kind != tt.kind || tt.err.Phase != PhaseVerify {
			t.Errorf("got %s/%s, want verify/%s", tt.err.Phase, tt.err.Kind, tt.kind)
		}
		msg := tt.err.Error()
		for _, s := range tt.subs {
			if !strings.Contains(msg, s) {
				t.Errorf("message %q does not contain %q", msg, s)
			}
		}
	}
}

func TestMissingSymbolsError(t *testing.T) {
	t.Run("single symbol", func(t *testing.T) {
		err := NewMissingSymbolsError([]string{"libnative.so#Java_a_B_c"})
		if len(err.Symbols) != 1 {
			t.Fatalf("expected 1 symbol, got %d", len(err.Symbols))
		}
		if err.Symbols[0].Library != "libnative.so" {
			t.Errorf("library = %q", err.Symbols[0].Library)
		}
		if err.Symbols[0].Symbol != "Java_a_B_c" {
			t.Errorf("symbol = %q", err.Symbols[0].Symbol)
		}
	})

	t.Run("grouped by library", func(t *testing.T) {
		err := NewMissingSymbolsError([]string{
			"libone.so#Java_a_B_c",
			"libtwo.so#Java_a_B_d",
			"libone.so#JNI_OnLoad",
		})
		msg := err.Error()
		for _, s := range []string{"missing 3", "libone.so:", "libtwo.so:", "JNI_OnLoad"} {
			if !strings.Contains(msg, s) {
				t.Errorf("message %q does not contain %q", msg, s)
			}
		}
	})

	t.Run("empty", func(t *testing.T) {
		err := NewMissingSymbolsError(nil)
		if !strings.Contains(err.Error(), "no symbols specified") {
			t.Errorf("got: %s", err.Error())
		}
	})

	t.Run("errors.Is", func(t *testing.T) {
		err := NewMissingSymbolsError([]string{"sym"})
		if !errors.Is(err, &MissingSymbolsError{}) {
			t.Error("errors.Is should match MissingSymbolsError")
		}
	})
}
