// Package index maintains the workspace symbol tables extracted from
// document CSTs: label and citation definitions/references, package
// uses, command definitions, and include sites feeding the include
// graph.
package index

import (
	"fmt"

	"texel/internal/diag"
	"texel/internal/source"
)

// RecordKind classifies an index record.
type RecordKind uint8

const (
	// LabelDefinition is \label{X}.
	LabelDefinition RecordKind = iota
	// LabelReference is \ref{X}, \autoref{X} and equivalents.
	LabelReference
	// CitationReference is one key of \cite{...} and variants.
	CitationReference
	// BibEntry is one @type{key, ...} entry of a bibliography file.
	BibEntry
	// CommandDefinition is \newcommand{\F}... and equivalents.
	CommandDefinition
	// EnvironmentDefinition is \newenvironment{name}... and equivalents.
	EnvironmentDefinition
	// PackageUse is \usepackage{P}.
	PackageUse
	// InputInclude is \input/\include/\subfile/\includegraphics.
	InputInclude
)

func (k RecordKind) String() string {
	switch k {
	case LabelDefinition:
		return "LabelDefinition"
	case LabelReference:
		return "LabelReference"
	case CitationReference:
		return "CitationReference"
	case BibEntry:
		return "BibEntry"
	case CommandDefinition:
		return "CommandDefinition"
	case EnvironmentDefinition:
		return "EnvironmentDefinition"
	case PackageUse:
		return "PackageUse"
	case InputInclude:
		return "InputInclude"
	}
	return "Unknown"
}

// Record is one index entry. Records are owned by the document that
// defines them; cross-document queries traverse the include graph.
type Record struct {
	Kind       RecordKind
	Name       string
	URI        string
	Range      source.Range
	Span       source.Span
	Confidence diag.Confidence
	Container  string // enclosing environment name, "" at top level
	Raw        string // raw excerpt (include argument as written)
	Edge       bool   // whether this include contributes a graph edge
	Bib        bool   // whether the include target is a bibliography
}

func (r Record) String() string {
	return fmt.Sprintf("%s(%s)@%s in %s", r.Kind, r.Name, r.Span, r.URI)
}
