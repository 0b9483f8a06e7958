package protocol

import "testing"

func TestParseClassName(t *testing.T) {
	tests := []struct {
		input     string
		qualified string
		internal  string
		simple    string
		pkg       string
		wantErr   bool
	}{
		{"io.example.TestType", "io.example.TestType", "io/example/TestType", "TestType", "io.example", false},
		{"io/example/TestType", "io.example.TestType", "io/example/TestType", "TestType", "io.example", false},
		{"io.example.Outer$Inner", "io.example.Outer$Inner", "io/example/Outer$Inner", "Outer$Inner", "io.example", false},
		{"Bare", "Bare", "Bare", "Bare", "", false},
		{"", "", "", "", "", true},
		{"io..Type", "", "", "", "", true},
		{"io.example/Type", "", "", "", "", true},
		{"io.Outer$", "", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			cn, err := ParseClassName(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %+v", cn)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseClassName failed: %v", err)
			}
			if cn.Qualified() != tt.qualified {
				t.Errorf("Qualified = %q, want %q", cn.Qualified(), tt.qualified)
			}
			if cn.Internal() != tt.internal {
				t.Errorf("Internal = %q, want %q", cn.Internal(), tt.internal)
			}
			if cn.SimpleName() != tt.simple {
				t.Errorf("SimpleName = %q, want %q", cn.SimpleName(), tt.simple)
			}
			if cn.PackagePath() != tt.pkg {
				t.Errorf("PackagePath = %q, want %q", cn.PackagePath(), tt.pkg)
			}
		})
	}
}

func TestMustParseClassNamePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	MustParseClassName("")
}
