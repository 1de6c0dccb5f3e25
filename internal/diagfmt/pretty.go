// Package diagfmt renders diagnostic records for the CLI: pretty
// colored text for humans, Event/Source IR JSON for machines.
package diagfmt

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"texel/internal/diag"
)

// PrettyOpts configures human-readable output.
type PrettyOpts struct {
	Color bool
	// ConfidenceThreshold marks records below it as uncertain.
	ConfidenceThreshold float64
}

var (
	errColor  = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow, color.Bold)
	infoColor = color.New(color.FgCyan)
	dimColor  = color.New(color.Faint)
)

// Pretty форматирует диагностики в человекочитаемый вид:
// <path>:<line>:<col>: <SEV> <CODE>: <Message>, затем notes.
// Записи ниже порога уверенности помечаются явно (I3: неоднозначность
// различима, не замалчивается).
func Pretty(w io.Writer, diags []diag.Diagnostic, opts PrettyOpts) {
	for i := range diags {
		prettyOne(w, &diags[i], opts)
	}
}

func prettyOne(w io.Writer, d *diag.Diagnostic, opts PrettyOpts) {
	sev := d.Severity.String()
	if opts.Color {
		switch d.Severity {
		case diag.SevError:
			sev = errColor.Sprint(sev)
		case diag.SevWarning:
			sev = warnColor.Sprint(sev)
		default:
			sev = infoColor.Sprint(sev)
		}
	}

	loc := d.File
	if loc == "" {
		loc = "<unmapped>"
	}
	if d.HasRange {
		loc = fmt.Sprintf("%s:%d:%d", loc, d.Range.Start.Line+1, d.Range.Start.Character+1)
	}

	fmt.Fprintf(w, "%s: %s %s: %s", loc, sev, d.Code.ID(), d.Message)
	if opts.ConfidenceThreshold > 0 && float64(d.Confidence) < opts.ConfidenceThreshold {
		marker := fmt.Sprintf(" (uncertain, %.2f)", float64(d.Confidence))
		if opts.Color {
			marker = dimColor.Sprint(marker)
		}
		io.WriteString(w, marker)
	}
	fmt.Fprintln(w)

	for _, n := range d.Notes {
		note := fmt.Sprintf("  note: %s", n.Msg)
		if opts.Color {
			note = dimColor.Sprint(note)
		}
		fmt.Fprintln(w, note)
	}
}
