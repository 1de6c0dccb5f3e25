// Package ir defines the versioned export schemas: the Event IR
// (schema 1.0) for the log pipeline and the Source IR (schema 0.1) for
// document snapshots. Exporters are total functions over the variant
// sets; consumers must ignore unknown kinds and fields.
package ir

import (
	"texel/internal/diag"
	"texel/internal/source"
	"texel/internal/texlog"
)

// EventSchemaVersion is emitted with every exported log record.
const EventSchemaVersion = "1.0"

// Span is a half-open byte range into the log buffer.
type Span struct {
	Start uint32 `json:"start"`
	End   uint32 `json:"end"`
}

// Event is one Event IR record.
type Event struct {
	Schema     string         `json:"schema_version"`
	Kind       string         `json:"kind"`
	Span       Span           `json:"span"`
	Confidence float64        `json:"confidence"`
	Data       map[string]any `json:"data"`
}

// ExportEvent lowers a log event to its IR record. The switch is total:
// every variant exports, unknown variants degrade to an empty payload
// rather than failing.
func ExportEvent(e texlog.Event) Event {
	out := Event{
		Schema:     EventSchemaVersion,
		Kind:       e.Kind.String(),
		Span:       Span{Start: e.Span.Start, End: e.Span.End},
		Confidence: float64(e.Confidence),
		Data:       map[string]any{},
	}
	switch e.Kind {
	case texlog.EvFileEnter:
		out.Data["path"] = e.Path
	case texlog.EvFileExit:
		// полезной нагрузки нет
	case texlog.EvErrorStart, texlog.EvWarning, texlog.EvErrorContextLine:
		out.Data["message"] = e.Message
	case texlog.EvInfo:
		out.Data["message"] = e.Message
		if e.Code != 0 {
			out.Data["code"] = e.Code.ID()
		}
	case texlog.EvErrorLineRef:
		out.Data["line"] = e.Line
		if e.Excerpt != "" {
			out.Data["source_excerpt"] = e.Excerpt
		}
	case texlog.EvOutputArtifact:
		if e.Path != "" {
			out.Data["path"] = e.Path
		}
		if e.Format != "" {
			out.Data["format"] = e.Format
		}
		if e.Role != "" {
			out.Data["role"] = e.Role
		}
	case texlog.EvBuildSummary:
		out.Data["success"] = e.Success
	}
	return out
}

// Position mirrors the LSP zero-based position.
type Position struct {
	Line      uint32 `json:"line"`
	Character uint32 `json:"character"`
}

// Range mirrors the LSP half-open range.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Provenance is the evidence block of an exported diagnostic.
type Provenance struct {
	LogSpan   Span     `json:"log_span"`
	Excerpt   string   `json:"log_excerpt,omitempty"`
	FileStack []string `json:"file_stack,omitempty"`
	Engine    string   `json:"engine,omitempty"`
}

// Diagnostic is one exported diagnostic record; it serves both the log
// and the source pipeline.
type Diagnostic struct {
	Schema     string       `json:"schema_version"`
	Severity   string       `json:"severity"`
	Message    string       `json:"message"`
	Confidence float64      `json:"confidence"`
	Provenance *Provenance  `json:"provenance,omitempty"`
	File       string       `json:"file,omitempty"`
	Range      *Range       `json:"range,omitempty"`
	Code       string       `json:"code,omitempty"`
	Related    []Diagnostic `json:"related,omitempty"`
}

// ExportDiagnostic lowers a diagnostic record.
func ExportDiagnostic(d diag.Diagnostic) Diagnostic {
	out := Diagnostic{
		Schema:     EventSchemaVersion,
		Severity:   d.Severity.Label(),
		Message:    d.Message,
		Confidence: float64(d.Confidence),
		File:       d.File,
	}
	if d.Code != 0 {
		out.Code = d.Code.ID()
	}
	if d.HasRange {
		out.Range = exportRange(d.Range)
	}
	if d.Provenance != nil {
		out.Provenance = &Provenance{
			LogSpan:   Span{Start: d.Provenance.LogSpan.Start, End: d.Provenance.LogSpan.End},
			Excerpt:   d.Provenance.Excerpt,
			FileStack: d.Provenance.FileStack,
			Engine:    d.Provenance.Engine,
		}
	}
	for _, r := range d.Related {
		out.Related = append(out.Related, ExportDiagnostic(r))
	}
	return out
}

func exportRange(r source.Range) *Range {
	return &Range{
		Start: Position{Line: r.Start.Line, Character: r.Start.Character},
		End:   Position{Line: r.End.Line, Character: r.End.Character},
	}
}
