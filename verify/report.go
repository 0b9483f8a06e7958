package verify

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/wippyai/nativebridge/errors"
)

// Summary counts diagnostics per kind.
func (r *Report) Summary() map[errors.Kind]int {
	out := make(map[errors.Kind]int)
	for _, d := range r.Diagnostics {
		out[d.Kind]++
	}
	return out
}

// Bound returns the number of expectations that have an actual.
func (r *Report) Bound() int {
	n := 0
	for _, rec := range r.Records {
		if rec.Actual != nil {
			n++
		}
	}
	return n
}

// WriteText renders the report one diagnostic per line.
func (r *Report) WriteText(w io.Writer) error {
	var b strings.Builder
	for _, d := range r.Diagnostics {
		b.WriteString(d.String())
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "%d expectations, %d bound, %d diagnostics\n", len(r.Records), r.Bound(), len(r.Diagnostics))
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteJSON renders the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// String renders "location: kind key: message", naming the actual
// locations when they differ from the first one.
func (d Diagnostic) String() string {
	var b strings.Builder
	b.WriteString(firstLocation(d).String())
	b.WriteString(": ")
	b.WriteString(string(d.Kind))
	if d.Key != "" {
		b.WriteByte(' ')
		b.WriteString(d.Key)
	}
	if d.Message != "" {
		b.WriteString(": ")
		b.WriteString(d.Message)
	}
	if !d.Expectation.IsZero() && len(d.Actual) > 0 {
		parts := make([]string, len(d.Actual))
		for i, l := range d.Actual {
			parts[i] = l.String()
		}
		b.WriteString(" [actual ")
		b.WriteString(strings.Join(parts, ", "))
		b.WriteByte(']')
	}
	return b.String()
}
