package diag

import (
	"texel/internal/source"
)

// Confidence scores how reliable an interpretation is, in [0, 1].
// 1.0 means "highly certain", not a mathematical guarantee. Confidence
// composes multiplicatively when derived from several uncertain sources.
type Confidence float64

// Certain is the default confidence for unambiguous interpretations.
const Certain Confidence = 1.0

// Mul composes two confidences, clamped to [0, 1].
func (c Confidence) Mul(other Confidence) Confidence {
	v := c * other
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Clamp forces the value into [0, 1].
func (c Confidence) Clamp() Confidence {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

type Note struct {
	Span source.Span
	Msg  string
}

// Provenance records the log-buffer evidence behind a diagnostic:
// the span is mandatory (invariant I1), the rest is optional context.
type Provenance struct {
	LogSpan   source.Span
	Excerpt   string   // length-bounded slice of the log, may be empty
	FileStack []string // snapshot of the file-context stack at emission
	Engine    string   // engine identifier when known
}

// Diagnostic is the record shared between the log and source pipelines.
// A source diagnostic carries Range (and HasRange=true) or is explicitly
// unmapped; File may be empty when the evidence names no file.
type Diagnostic struct {
	Severity   Severity
	Code       Code
	Message    string
	Confidence Confidence
	Primary    source.Span // span into the originating buffer
	File       string      // associated file path, "" when unknown
	Range      source.Range
	HasRange   bool
	Provenance *Provenance // set for log-derived diagnostics
	Notes      []Note
	Related    []Diagnostic
}

func New(sev Severity, code Code, primary source.Span, msg string) Diagnostic {
	return Diagnostic{
		Severity:   sev,
		Code:       code,
		Primary:    primary,
		Message:    msg,
		Confidence: Certain,
	}
}

func NewError(code Code, primary source.Span, msg string) Diagnostic {
	return New(SevError, code, primary, msg)
}

func NewWarning(code Code, primary source.Span, msg string) Diagnostic {
	return New(SevWarning, code, primary, msg)
}

func (d Diagnostic) WithNote(sp source.Span, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Span: sp, Msg: msg})
	return d
}

func (d Diagnostic) WithConfidence(c Confidence) Diagnostic {
	d.Confidence = c.Clamp()
	return d
}

func (d Diagnostic) WithRange(r source.Range) Diagnostic {
	d.Range = r
	d.HasRange = true
	return d
}
