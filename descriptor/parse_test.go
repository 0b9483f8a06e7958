package descriptor

import (
	"reflect"
	"testing"
)

func TestParseDescriptor(t *testing.T) {
	tests := []struct {
		in        string
		allowVoid bool
		wantErr   bool
	}{
		{"I", false, false},
		{"Z", false, false},
		{"[[J", false, false},
		{"Lio/example/Widget;", false, false},
		{"[Ljava/lang/String;", false, false},
		{"V", true, false},
		{"V", false, true},
		{"[V", true, true},
		{"", false, true},
		{"Q", false, true},
		{"II", false, true},
		{"Ljava/lang/String", false, true},
		{"L;", false, true},
		{"Ljava.lang.String;", false, true},
		{"Ljava//String;", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			err := ParseDescriptor(tt.in, tt.allowVoid)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseDescriptor(%q, %v) error = %v, wantErr %v", tt.in, tt.allowVoid, err, tt.wantErr)
			}
		})
	}
}

func TestSplitMethod(t *testing.T) {
	params, ret, err := SplitMethod("(I[JLjava/lang/String;Z)V")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"I", "[J", "Ljava/lang/String;", "Z"}
	if !reflect.DeepEqual(params, want) {
		t.Errorf("params = %v, want %v", params, want)
	}
	if ret != "V" {
		t.Errorf("ret = %q", ret)
	}

	params, ret, err = SplitMethod("()Lio/example/Widget;")
	if err != nil {
		t.Fatal(err)
	}
	if len(params) != 0 || ret != "Lio/example/Widget;" {
		t.Errorf("got %v %q", params, ret)
	}

	for _, bad := range []string{"", "I", "(I", "(V)V", "(I)", "(I)VV", "(X)V"} {
		if _, _, err := SplitMethod(bad); err == nil {
			t.Errorf("SplitMethod(%q) should fail", bad)
		}
	}
}

func TestParseSourceType(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"int32", "int32", false},
		{"  string ", "string", false},
		{"[]byte", "[]byte", false},
		{"[][]string", "[][]string", false},
		{"io.example.Outer$Inner", "io.example.Outer$Inner", false},
		{"void", "void", false},
		{"wit:u32", "uint32", false},
		{"wit:char", "int32", false},
		{"wit:list<u8>", "[]uint8", false},
		{"wit:list<list<string>>", "[][]string", false},
		{"wit:option<string>", "string", false},
		{"", "", true},
		{"[]void", "", true},
		{"map[string]int", "", true},
		{"wit:list<u8", "", true},
		{"wit:option<u32>", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			st, err := ParseSourceType(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %v", st)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSourceType failed: %v", err)
			}
			if st.String() != tt.want {
				t.Errorf("String() = %q, want %q", st.String(), tt.want)
			}
		})
	}
}

func TestSourceTypeClone(t *testing.T) {
	orig := ArrayOf(Named("int32").WithMapping("J"))
	c := orig.Clone()
	c.Elem.Mappings[0] = "I"
	if orig.Elem.Mappings[0] != "J" {
		t.Error("Clone shares mappings with the original")
	}
}
