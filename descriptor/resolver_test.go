package descriptor

import (
	"errors"
	"testing"

	"go.bytecodealliance.org/wit"

	bridgeerrors "github.com/wippyai/nativebridge/errors"
)

var unresolved = &bridgeerrors.Error{Phase: bridgeerrors.PhaseResolve, Kind: bridgeerrors.KindUnresolvedType}

func TestResolvePrimitives(t *testing.T) {
	tests := []struct {
		name  string
		desc  string
		ctype string
	}{
		{"bool", "Z", "jboolean"},
		{"int8", "B", "jbyte"},
		{"uint8", "B", "jbyte"},
		{"byte", "B", "jbyte"},
		{"uint16", "C", "jchar"},
		{"int16", "S", "jshort"},
		{"int32", "I", "jint"},
		{"rune", "I", "jint"},
		{"uint32", "I", "jint"},
		{"int64", "J", "jlong"},
		{"uint64", "J", "jlong"},
		{"int", "J", "jlong"},
		{"uint", "J", "jlong"},
		{"uintptr", "J", "jlong"},
		{"float32", "F", "jfloat"},
		{"float64", "D", "jdouble"},
	}

	var r Resolver
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := r.Resolve(Named(tt.name), false)
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if sig.Descriptor != tt.desc {
				t.Errorf("Descriptor = %q, want %q", sig.Descriptor, tt.desc)
			}
			if sig.CType != tt.ctype {
				t.Errorf("CType = %q, want %q", sig.CType, tt.ctype)
			}
			if sig.GoType != tt.name {
				t.Errorf("GoType = %q, want %q", sig.GoType, tt.name)
			}
		})
	}
}

func TestResolveConversions(t *testing.T) {
	var r Resolver

	sig, err := r.Resolve(Named("uint32"), false)
	if err != nil {
		t.Fatal(err)
	}
	if got := sig.Conversion.Native("a"); got != "uint32(a)" {
		t.Errorf("Native = %q", got)
	}
	if got := sig.Conversion.Protocol("a"); got != "C.jint(a)" {
		t.Errorf("Protocol = %q", got)
	}

	sig, err = r.Resolve(Named("bool"), false)
	if err != nil {
		t.Fatal(err)
	}
	if got := sig.Conversion.Native("b"); got != "(b != 0)" {
		t.Errorf("bool Native = %q", got)
	}

	sig, err = r.Resolve(Named("string"), false)
	if err != nil {
		t.Fatal(err)
	}
	if sig.Descriptor != "Ljava/lang/String;" || sig.CType != "jstring" {
		t.Errorf("string = %+v", sig)
	}
	if got := sig.Conversion.Native("s"); got != "bridgeGoString(env, s)" {
		t.Errorf("string Native = %q", got)
	}
}

func TestResolveVoid(t *testing.T) {
	var r Resolver
	sig, err := r.Resolve(Void, true)
	if err != nil {
		t.Fatal(err)
	}
	if !sig.IsVoid() {
		t.Errorf("expected void, got %+v", sig)
	}

	_, err = r.Resolve(Named("void"), false)
	if !errors.Is(err, unresolved) {
		t.Errorf("void parameter: got %v, want unresolved type", err)
	}
}

func TestResolveArrays(t *testing.T) {
	tests := []struct {
		typ    SourceType
		desc   string
		ctype  string
		goType string
	}{
		{ArrayOf(Named("byte")), "[B", "jbyteArray", "[]byte"},
		{ArrayOf(Named("uint8")), "[B", "jbyteArray", "[]byte"},
		{ArrayOf(Named("int8")), "[B", "jbyteArray", "C.jbyteArray"},
		{ArrayOf(Named("int32")), "[I", "jintArray", "C.jintArray"},
		{ArrayOf(ArrayOf(Named("int64"))), "[[J", "jobjectArray", "C.jobjectArray"},
		{ArrayOf(Named("string")), "[Ljava/lang/String;", "jobjectArray", "C.jobjectArray"},
		{ArrayOf(Named("io.example.Widget")), "[Lio/example/Widget;", "jobjectArray", "C.jobjectArray"},
	}

	var r Resolver
	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			sig, err := r.Resolve(tt.typ, false)
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if sig.Descriptor != tt.desc || sig.CType != tt.ctype || sig.GoType != tt.goType {
				t.Errorf("got (%q, %q, %q), want (%q, %q, %q)",
					sig.Descriptor, sig.CType, sig.GoType, tt.desc, tt.ctype, tt.goType)
			}
		})
	}
}

func TestResolveClasses(t *testing.T) {
	var r Resolver
	sig, err := r.Resolve(Named("io.example.Outer$Inner"), false)
	if err != nil {
		t.Fatal(err)
	}
	if sig.Descriptor != "Lio/example/Outer$Inner;" {
		t.Errorf("Descriptor = %q", sig.Descriptor)
	}
	if !sig.Conversion.IsIdentity() {
		t.Errorf("class references should pass through, got %+v", sig.Conversion)
	}

	_, err = r.Resolve(Named("Widget"), false)
	if !errors.Is(err, unresolved) {
		t.Errorf("unqualified name: got %v", err)
	}
}

func TestResolveUnresolved(t *testing.T) {
	var r Resolver
	tests := []struct {
		name string
		typ  SourceType
	}{
		{"type parameter", SourceType{Name: "T", TypeParam: true}},
		{"array of type parameter", ArrayOf(SourceType{Name: "T", TypeParam: true})},
		{"unknown name", Named("complex128")},
		{"bad mapping", Named("int32").WithMapping("not a type")},
		{"mapping to void", Named("int32").WithMapping("V")},
		{"primitive to reference", Named("int32").WithMapping("Ljava/lang/Object;")},
		{"reference to primitive", Named("string").WithMapping("I")},
		{"bool to numeric", Named("bool").WithMapping("I")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(tt.typ, false)
			if !errors.Is(err, unresolved) {
				t.Errorf("got %v, want unresolved type", err)
			}
		})
	}
}

func TestResolveMappingPrecedence(t *testing.T) {
	r := NewResolver(map[string]string{
		"uint32": "J",
		"T":      "I",
	})

	// configured override
	sig, err := r.Resolve(Named("uint32"), false)
	if err != nil {
		t.Fatal(err)
	}
	if sig.Descriptor != "J" || sig.GoType != "uint32" {
		t.Errorf("override: got %+v", sig)
	}
	if got := sig.Conversion.Protocol("x"); got != "C.jlong(x)" {
		t.Errorf("override Protocol = %q", got)
	}

	// attached mapping beats the table; the last one wins
	sig, err = r.Resolve(Named("uint32").WithMapping("S").WithMapping("I"), false)
	if err != nil {
		t.Fatal(err)
	}
	if sig.Descriptor != "I" {
		t.Errorf("mapping: Descriptor = %q, want I", sig.Descriptor)
	}

	// type parameters only resolve through attached mappings
	_, err = r.Resolve(SourceType{Name: "T", TypeParam: true}, false)
	if !errors.Is(err, unresolved) {
		t.Errorf("type param via table: got %v", err)
	}
	sig, err = r.Resolve(SourceType{Name: "T", TypeParam: true, Mappings: []string{"J"}}, false)
	if err != nil {
		t.Fatal(err)
	}
	if sig.Descriptor != "J" || sig.GoType != "int64" {
		t.Errorf("type param mapping: got %+v", sig)
	}
}

func TestResolveNamedTypeMapping(t *testing.T) {
	r := NewResolver(map[string]string{"Count": "I", "Handle": "java.lang.Object"})

	sig, err := r.Resolve(Named("Count"), false)
	if err != nil {
		t.Fatal(err)
	}
	if sig.Descriptor != "I" || sig.GoType != "Count" {
		t.Errorf("Count: got %+v", sig)
	}
	if got := sig.Conversion.Native("x"); got != "Count(x)" {
		t.Errorf("Count Native = %q", got)
	}

	sig, err = r.Resolve(Named("Handle"), true)
	if err != nil {
		t.Fatal(err)
	}
	if sig.Descriptor != "Ljava/lang/Object;" || sig.GoType != "C.jobject" {
		t.Errorf("Handle: got %+v", sig)
	}

	if _, err := (&Resolver{}).Resolve(Named("Count"), false); !errors.Is(err, unresolved) {
		t.Errorf("Count without mapping: got %v", err)
	}
}

func TestResolveReferenceMapping(t *testing.T) {
	var r Resolver
	sig, err := r.Resolve(Named("string").WithMapping("java.lang.CharSequence"), false)
	if err != nil {
		t.Fatal(err)
	}
	if sig.Descriptor != "Ljava/lang/CharSequence;" || sig.CType != "jobject" || sig.GoType != "string" {
		t.Errorf("got %+v", sig)
	}
	if got := sig.Conversion.Native("v"); got != "bridgeGoString(env, C.jstring(v))" {
		t.Errorf("Native = %q", got)
	}
	if got := sig.Conversion.Protocol("v"); got != "C.jobject(bridgeJString(env, v))" {
		t.Errorf("Protocol = %q", got)
	}

	sig, err = r.Resolve(Named("io.example.Widget").WithMapping("Ljava/lang/Object;"), false)
	if err != nil {
		t.Fatal(err)
	}
	if sig.Descriptor != "Ljava/lang/Object;" || sig.GoType != "C.jobject" {
		t.Errorf("got %+v", sig)
	}
}

func TestResolveAllCollectsEveryFailure(t *testing.T) {
	var r Resolver
	params := []SourceType{Named("int32"), Named("nope"), {Name: "T", TypeParam: true}}
	sigs, ret, errs := r.ResolveAll([]string{"io.example.C", "m"}, params, Named("alsoNope"))
	if errs.Len() != 3 {
		t.Fatalf("got %d errors, want 3: %v", errs.Len(), errs)
	}
	if sigs[0].Descriptor != "I" {
		t.Errorf("first param should still resolve, got %+v", sigs[0])
	}
	if ret.Descriptor != "" {
		t.Errorf("return should be unresolved, got %+v", ret)
	}
}

func TestMethodSignature(t *testing.T) {
	var r Resolver
	params := make([]TypeSignature, 0, 3)
	for _, n := range []string{"int32", "string", "int64"} {
		s, err := r.Resolve(Named(n), false)
		if err != nil {
			t.Fatal(err)
		}
		params = append(params, s)
	}
	got := MethodSignature(params, TypeSignature{Descriptor: "V"})
	if got != "(ILjava/lang/String;J)V" {
		t.Errorf("MethodSignature = %q", got)
	}
	if got := MethodSignature(nil, TypeSignature{}); got != "()V" {
		t.Errorf("empty MethodSignature = %q", got)
	}
	if got := ArgDescriptors(params); got != "ILjava/lang/String;J" {
		t.Errorf("ArgDescriptors = %q", got)
	}
}

func TestFromWIT(t *testing.T) {
	tests := []struct {
		name string
		typ  wit.Type
		want string
	}{
		{"bool", wit.Bool{}, "bool"},
		{"u8", wit.U8{}, "uint8"},
		{"s8", wit.S8{}, "int8"},
		{"u16", wit.U16{}, "uint16"},
		{"s16", wit.S16{}, "int16"},
		{"u32", wit.U32{}, "uint32"},
		{"s32", wit.S32{}, "int32"},
		{"u64", wit.U64{}, "uint64"},
		{"s64", wit.S64{}, "int64"},
		{"f32", wit.F32{}, "float32"},
		{"f64", wit.F64{}, "float64"},
		{"char", wit.Char{}, "int32"},
		{"string", wit.String{}, "string"},
		{"list<u8>", &wit.TypeDef{Kind: &wit.List{Type: wit.U8{}}}, "[]uint8"},
		{"list<list<string>>", &wit.TypeDef{Kind: &wit.List{Type: &wit.TypeDef{Kind: &wit.List{Type: wit.String{}}}}}, "[][]string"},
		{"option<string>", &wit.TypeDef{Kind: &wit.Option{Type: wit.String{}}}, "string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := FromWIT(tt.typ)
			if err != nil {
				t.Fatalf("FromWIT failed: %v", err)
			}
			if st.String() != tt.want {
				t.Errorf("FromWIT = %q, want %q", st.String(), tt.want)
			}
		})
	}

	_, err := FromWIT(&wit.TypeDef{Kind: &wit.Option{Type: wit.U32{}}})
	if err == nil {
		t.Error("option<u32> should be unsupported")
	}
	_, err = FromWIT(&wit.TypeDef{Kind: &wit.Tuple{Types: []wit.Type{wit.U32{}}}})
	if err == nil {
		t.Error("tuple should be unsupported")
	}
}

func TestWITResolvesLikeGo(t *testing.T) {
	var r Resolver
	st, err := FromWIT(&wit.TypeDef{Kind: &wit.List{Type: wit.U8{}}})
	if err != nil {
		t.Fatal(err)
	}
	sig, err := r.Resolve(st, false)
	if err != nil {
		t.Fatal(err)
	}
	if sig.Descriptor != "[B" || sig.GoType != "[]byte" {
		t.Errorf("list<u8> resolved to %+v", sig)
	}
}
