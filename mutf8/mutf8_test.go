package mutf8

import (
	"bytes"
	"errors"
	"testing"
	"unicode/utf8"

	bridgeerrors "github.com/wippyai/nativebridge/errors"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []byte
	}{
		{"empty", "", []byte{0x00}},
		{"null", "\x00", []byte{0xC0, 0x80, 0x00}},
		{"ascii", "Ab1", []byte{'A', 'b', '1', 0x00}},
		{"two byte low", "\u0080", []byte{0xC2, 0x80, 0x00}},
		{"two byte high", "߿", []byte{0xDF, 0xBF, 0x00}},
		{"three byte", "ࠀ", []byte{0xE0, 0xA0, 0x80, 0x00}},
		{"three byte euro", "€", []byte{0xE2, 0x82, 0xAC, 0x00}},
		{"max bmp", "￿", []byte{0xEF, 0xBF, 0xBF, 0x00}},
		{
			"supplementary as surrogates",
			"\U0001F600",
			// D83D DE00
			[]byte{0xED, 0xA0, 0xBD, 0xED, 0xB8, 0x80, 0x00},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Encode(tt.input)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Encode(%q) = % x, want % x", tt.input, got, tt.want)
			}
			if n := EncodedLen(tt.input); n != len(tt.want) {
				t.Errorf("EncodedLen(%q) = %d, want %d", tt.input, n, len(tt.want))
			}
		})
	}
}

func TestEncodeNeverContainsInteriorZero(t *testing.T) {
	enc := Encode("a\x00b\x00\x00c")
	if i := bytes.IndexByte(enc, 0); i != len(enc)-1 {
		t.Fatalf("zero byte at %d, want only terminator at %d", i, len(enc)-1)
	}
}

func TestRoundTrip(t *testing.T) {
	// one string per range: null, ASCII, two-byte, three-byte, surrogate-derived
	inputs := []string{
		"\x00",
		"hello, world",
		"ÿ߿ΩЖ",
		"ࠀ中文�￿",
		"\U00010000\U0001F600\U0010FFFF",
		"mixed\x00ü中\U0001F600end",
	}
	for _, in := range inputs {
		out, err := Decode(Encode(in))
		if err != nil {
			t.Fatalf("Decode(Encode(%q)) failed: %v", in, err)
		}
		if out != in {
			t.Errorf("round trip mismatch: %q -> %q", in, out)
		}
	}
}

func TestUTF16RoundTripLoneSurrogates(t *testing.T) {
	units := []uint16{'a', 0xD800, 'b', 0xDC00, 0x0000, 0xD83D, 0xDE00}
	got, err := DecodeUTF16(EncodeUTF16(units))
	if err != nil {
		t.Fatalf("DecodeUTF16 failed: %v", err)
	}
	if len(got) != len(units) {
		t.Fatalf("got %d units, want %d", len(got), len(units))
	}
	for i := range units {
		if got[i] != units[i] {
			t.Errorf("unit %d = %#04x, want %#04x", i, got[i], units[i])
		}
	}
}

func TestDecodeUnpairedSurrogate(t *testing.T) {
	s, err := Decode(EncodeUTF16([]uint16{'x', 0xD800, 'y'}))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	want := "x" + string(utf8.RuneError) + "y"
	if s != want {
		t.Errorf("Decode = %q, want %q", s, want)
	}
}

func TestDecodeStopsAtTerminator(t *testing.T) {
	s, err := Decode([]byte{'a', 'b', 0x00, 'c'})
	if err != nil {
		t.Fatal(err)
	}
	if s != "ab" {
		t.Errorf("Decode = %q, want %q", s, "ab")
	}

	s, err = Decode([]byte{'a', 'b'})
	if err != nil {
		t.Fatal(err)
	}
	if s != "ab" {
		t.Errorf("Decode without terminator = %q, want %q", s, "ab")
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"truncated two byte", []byte{0xC2}},
		{"bad continuation", []byte{0xC2, 0x41}},
		{"truncated three byte", []byte{0xE2, 0x82}},
		{"overlong ascii", []byte{0xC1, 0x81}},
		{"overlong two byte", []byte{0xE0, 0x81, 0x80}},
		{"four byte form", []byte{0xF0, 0x9F, 0x98, 0x80}},
		{"stray continuation", []byte{0x80}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if Valid(tt.data) {
				t.Errorf("Valid(% x) = true", tt.data)
			}
			_, err := Decode(tt.data)
			if err == nil {
				t.Fatal("expected error")
			}
			target := &bridgeerrors.Error{Phase: bridgeerrors.PhaseDecode, Kind: bridgeerrors.KindInvalidEncoding}
			if !errors.Is(err, target) {
				t.Errorf("error %v is not invalid_encoding", err)
			}
		})
	}
}

func TestDiffersFromUTF8(t *testing.T) {
	in := "\x00\U0001F600"
	if bytes.Equal(Encode(in)[:len(in)], []byte(in)) {
		t.Fatal("modified UTF-8 should differ from UTF-8 for null and supplementary characters")
	}
}

func TestLiteral(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"io/example/TestType", `"io/example/TestType\x00"`},
		{"(I)V", `"(I)V\x00"`},
		{"a\"b", `"a\"b\x00"`},
		{"ü", `"\xc3\xbc\x00"`},
		{"\x00", `"\xc0\x80\x00"`},
	}
	for _, tt := range tests {
		if got := Literal(tt.in); got != tt.want {
			t.Errorf("Literal(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
