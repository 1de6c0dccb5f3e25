package ir

import (
	"texel/internal/cst"
	"texel/internal/diag"
	"texel/internal/index"
	"texel/internal/source"
	"texel/internal/workspace"
)

// SourceSchemaVersion is emitted with every exported snapshot.
const SourceSchemaVersion = "0.1"

// Token is one exported source token.
type Token struct {
	Kind  string `json:"kind"`
	Range Range  `json:"range"`
	Text  string `json:"text"`
}

// Node is one exported CST node.
type Node struct {
	Kind       string         `json:"kind"`
	Range      Range          `json:"range"`
	Children   []Node         `json:"children,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	Confidence float64        `json:"confidence"`
}

// IndexRecord is one exported index entry.
type IndexRecord struct {
	Kind       string  `json:"kind"`
	Name       string  `json:"name"`
	URI        string  `json:"uri"`
	Range      Range   `json:"range"`
	Confidence float64 `json:"confidence"`
	Container  string  `json:"container,omitempty"`
	Raw        string  `json:"raw_excerpt,omitempty"`
}

// DocumentSnapshot is the Source IR root record.
type DocumentSnapshot struct {
	Schema      string        `json:"schema_version"`
	URI         string        `json:"uri"`
	Version     int32         `json:"version"`
	Language    string        `json:"language"`
	Tokens      []Token       `json:"tokens"`
	CST         Node          `json:"cst"`
	Index       []IndexRecord `json:"index"`
	Diagnostics []Diagnostic  `json:"diagnostics"`
}

// ExportSnapshot lowers a workspace snapshot into the Source IR.
func ExportSnapshot(s workspace.Snapshot) DocumentSnapshot {
	lineIdx := s.Tree.File.LineIdx
	out := DocumentSnapshot{
		Schema:   SourceSchemaVersion,
		URI:      s.URI,
		Version:  s.Version,
		Language: "latex",
		CST:      exportNode(s.Tree, s.Tree.Root, lineIdx),
	}
	for _, t := range s.Tokens {
		out.Tokens = append(out.Tokens, Token{
			Kind:  t.Kind.String(),
			Range: spanRange(lineIdx, t.Span),
			Text:  t.Text,
		})
	}
	for _, r := range s.Records {
		out.Index = append(out.Index, ExportRecord(r))
	}
	for _, d := range s.Diagnostics {
		out.Diagnostics = append(out.Diagnostics, exportSourceDiagnostic(d))
	}
	return out
}

// ExportRecord lowers one index record.
func ExportRecord(r index.Record) IndexRecord {
	return IndexRecord{
		Kind:       r.Kind.String(),
		Name:       r.Name,
		URI:        r.URI,
		Range:      Range{Start: Position(r.Range.Start), End: Position(r.Range.End)},
		Confidence: float64(r.Confidence),
		Container:  r.Container,
		Raw:        r.Raw,
	}
}

func exportSourceDiagnostic(d diag.Diagnostic) Diagnostic {
	out := ExportDiagnostic(d)
	out.Schema = SourceSchemaVersion
	return out
}

func exportNode(t *cst.Tree, id cst.NodeID, lineIdx []uint32) Node {
	n := t.Get(id)
	out := Node{
		Kind:       n.Kind.String(),
		Range:      spanRange(lineIdx, n.Span),
		Confidence: float64(n.Confidence),
	}
	data := map[string]any{}
	if n.Name != "" {
		data["name"] = n.Name
	}
	if n.Unclosed {
		data["unclosed"] = true
	}
	if n.Kind == cst.KindToken {
		data["token_kind"] = n.Token.Kind.String()
		data["text"] = n.Token.Text
	}
	if len(data) > 0 {
		out.Data = data
	}
	for _, c := range n.Children {
		out.Children = append(out.Children, exportNode(t, c, lineIdx))
	}
	return out
}

func spanRange(lineIdx []uint32, span source.Span) Range {
	s := source.ToPosition(lineIdx, span.Start)
	e := source.ToPosition(lineIdx, span.End)
	return Range{
		Start: Position{Line: s.Line, Character: s.Character},
		End:   Position{Line: e.Line, Character: e.Character},
	}
}
