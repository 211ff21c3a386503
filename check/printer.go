package check

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

const (
	passMark = "✅"
	failMark = "❌"
)

// Printer writes reports in console form:
//
//	=== Anthropic Forward Compatibility Test ===
//
//	Test 1: Passing undocumented parameter to request...
//	✅ Request with undocumented parameter succeeded
//	Response ID: msg_01ABC123
//
// A report error is printed last as "❌ Error during <activity>: <err>".
type Printer struct {
	w io.Writer
}

// NewPrinter creates a printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Print writes r.
func (p *Printer) Print(r *Report) error {
	var b strings.Builder

	fmt.Fprintf(&b, "=== %s ===\n\n", r.Title)
	for i, s := range r.Steps {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Test %d: %s\n", i+1, s.Title)
		for _, l := range s.Lines {
			b.WriteString(FormatLine(l))
			b.WriteString("\n")
		}
	}
	if r.Err != nil {
		activity := r.Activity
		if activity == "" {
			activity = "test"
		}
		fmt.Fprintf(&b, "%s Error during %s: %v\n", failMark, activity, r.Err)
	}

	_, err := io.WriteString(p.w, b.String())
	return err
}

// PrintAll writes each report, separated by a blank line.
func (p *Printer) PrintAll(reports ...*Report) error {
	for i, r := range reports {
		if i > 0 {
			if _, err := io.WriteString(p.w, "\n"); err != nil {
				return err
			}
		}
		if err := p.Print(r); err != nil {
			return err
		}
	}
	return nil
}

// FormatLine renders a single line without trailing newline.
func FormatLine(l Line) string {
	indent := strings.Repeat("  ", l.Indent)
	switch l.Kind {
	case KindPass:
		return indent + passMark + " " + l.Label
	case KindFail:
		return indent + failMark + " " + l.Label
	default:
		return indent + l.Label + ": " + FormatValue(l.Value)
	}
}

// FormatValue renders strings verbatim and everything else as compact JSON.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case json.RawMessage:
		return string(t)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
