package diagfmt

import (
	"encoding/json"
	"io"

	"texel/internal/diag"
	"texel/internal/ir"
	"texel/internal/texlog"
)

// StreamEvents writes one Event IR record per line (JSON Lines), the
// format the watch mode appends to as the log grows.
func StreamEvents(w io.Writer, events []texlog.Event) error {
	enc := json.NewEncoder(w)
	for _, e := range events {
		if err := enc.Encode(ir.ExportEvent(e)); err != nil {
			return err
		}
	}
	return nil
}

// ParseOutput is the one-shot JSON document of `texel parse`.
type ParseOutput struct {
	Schema      string          `json:"schema_version"`
	Events      []ir.Event      `json:"events"`
	Diagnostics []ir.Diagnostic `json:"diagnostics"`
}

// WriteParseOutput writes the full event+diagnostic export.
func WriteParseOutput(w io.Writer, events []texlog.Event, diags []diag.Diagnostic) error {
	out := ParseOutput{Schema: ir.EventSchemaVersion}
	for _, e := range events {
		out.Events = append(out.Events, ir.ExportEvent(e))
	}
	for _, d := range diags {
		out.Diagnostics = append(out.Diagnostics, ir.ExportDiagnostic(d))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
