package index

import (
	"fmt"

	"texel/internal/diag"
)

// CheckOptions steer cross-file diagnostics.
type CheckOptions struct {
	// BibMissing indicates that a declared bibliography could not be
	// read. Unresolved citations are then suppressed: the bibliography
	// failure is the informative diagnostic, not every citation.
	BibMissing bool
}

// Check computes the cross-file diagnostics of the whole table:
// duplicate labels, unresolved label references, unresolved citations.
// Include cycles and resolution failures are reported by the workspace,
// which owns the graph and the resolver.
func Check(t *Table, opts CheckOptions) []diag.Diagnostic {
	var out []diag.Diagnostic

	defs := make(map[string][]Record)
	bib := make(map[string]bool)
	for _, uri := range t.Documents() {
		for _, r := range t.Records(uri) {
			switch r.Kind {
			case LabelDefinition:
				defs[r.Name] = append(defs[r.Name], r)
			case BibEntry:
				bib[r.Name] = true
			}
		}
	}

	for _, uri := range t.Documents() {
		for _, r := range t.Records(uri) {
			switch r.Kind {
			case LabelDefinition:
				if len(defs[r.Name]) > 1 && defs[r.Name][0] != r {
					d := diag.New(
						diag.SevWarning, diag.RefDuplicateLabel, r.Span,
						fmt.Sprintf("label %q is already defined", r.Name),
					).WithConfidence(r.Confidence).WithRange(r.Range)
					d.File = r.URI
					d = d.WithNote(defs[r.Name][0].Span, "first definition")
					out = append(out, d)
				}

			case LabelReference:
				if len(defs[r.Name]) == 0 {
					d := diag.New(
						diag.SevWarning, diag.RefUnresolvedRef, r.Span,
						fmt.Sprintf("undefined label %q", r.Name),
					).WithConfidence(r.Confidence).WithRange(r.Range)
					d.File = r.URI
					out = append(out, d)
				}

			case CitationReference:
				if bib[r.Name] || opts.BibMissing {
					continue
				}
				d := diag.New(
					diag.SevWarning, diag.CiteUnresolved, r.Span,
					fmt.Sprintf("undefined citation %q", r.Name),
				).WithConfidence(r.Confidence).WithRange(r.Range)
				d.File = r.URI
				out = append(out, d)
			}
		}
	}
	return out
}
