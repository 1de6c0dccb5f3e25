package texlog

import (
	"fmt"

	"texel/internal/diag"
	"texel/internal/source"
)

// EventKind tags the variant of a log event.
type EventKind uint8

const (
	// EvFileEnter marks a recognized file-open paren.
	EvFileEnter EventKind = iota
	// EvFileExit marks a file-close paren.
	EvFileExit
	// EvErrorStart marks a '!' error line.
	EvErrorStart
	// EvErrorLineRef marks an 'l.<n>' line inside an error block.
	EvErrorLineRef
	// EvErrorContextLine marks a raw context line inside an error block.
	EvErrorContextLine
	// EvWarning marks a recognized warning line.
	EvWarning
	// EvInfo marks an informational or recovery line.
	EvInfo
	// EvOutputArtifact marks an 'Output written on ...' line.
	EvOutputArtifact
	// EvBuildSummary marks the end-of-run summary line.
	EvBuildSummary
)

func (k EventKind) String() string {
	switch k {
	case EvFileEnter:
		return "FileEnter"
	case EvFileExit:
		return "FileExit"
	case EvErrorStart:
		return "ErrorStart"
	case EvErrorLineRef:
		return "ErrorLineRef"
	case EvErrorContextLine:
		return "ErrorContextLine"
	case EvWarning:
		return "Warning"
	case EvInfo:
		return "Info"
	case EvOutputArtifact:
		return "OutputArtifact"
	case EvBuildSummary:
		return "BuildSummary"
	}
	return "Unknown"
}

// Event is one element of the typed log event stream. Kind selects which
// payload fields are meaningful; Span always references the raw log
// buffer and Confidence is always set (invariant I1).
type Event struct {
	Kind       EventKind
	Span       source.Span
	Confidence diag.Confidence

	// EvFileEnter, EvOutputArtifact
	Path string
	// EvErrorStart, EvErrorContextLine, EvWarning, EvInfo
	Message string
	// EvErrorLineRef: 1-indexed source line and optional excerpt
	Line    uint32
	Excerpt string
	// EvOutputArtifact
	Format string
	Role   string
	// EvBuildSummary
	Success bool
	// Recovery or demotion code attached to EvInfo/EvFileEnter, 0 if none
	Code diag.Code
}

func (e Event) String() string {
	switch e.Kind {
	case EvFileEnter, EvOutputArtifact:
		return fmt.Sprintf("%s(%q)@%s", e.Kind, e.Path, e.Span)
	case EvErrorLineRef:
		return fmt.Sprintf("%s(l.%d)@%s", e.Kind, e.Line, e.Span)
	case EvBuildSummary:
		return fmt.Sprintf("%s(success=%v)@%s", e.Kind, e.Success, e.Span)
	case EvFileExit:
		return fmt.Sprintf("%s@%s", e.Kind, e.Span)
	default:
		return fmt.Sprintf("%s(%q)@%s", e.Kind, e.Message, e.Span)
	}
}
