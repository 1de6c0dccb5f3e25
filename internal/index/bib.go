package index

import (
	"strings"

	"texel/internal/diag"
	"texel/internal/source"
)

// ScanBib extracts entry keys from a BibTeX file. This is deliberately
// shallow: the index needs keys and positions, not field semantics.
// Malformed entries produce FTX0301 diagnostics and scanning continues.
func ScanBib(uri string, file *source.File) ([]Record, []diag.Diagnostic) {
	var recs []Record
	var diags []diag.Diagnostic
	content := file.Content

	i := 0
	for i < len(content) {
		if content[i] != '@' {
			i++
			continue
		}
		at := i
		i++

		// тип записи
		typeStart := i
		for i < len(content) && isBibWord(content[i]) {
			i++
		}
		entryType := strings.ToLower(string(content[typeStart:i]))
		if entryType == "" {
			continue
		}
		// @comment/@preamble/@string не дают ключей
		if entryType == "comment" || entryType == "preamble" || entryType == "string" {
			continue
		}

		for i < len(content) && (content[i] == ' ' || content[i] == '\t') {
			i++
		}
		if i >= len(content) || (content[i] != '{' && content[i] != '(') {
			span := source.Span{File: file.ID, Start: uint32(at), End: uint32(i)}
			diags = append(diags, diag.New(
				diag.SevError, diag.CiteBibParseError, span,
				"malformed bibliography entry: expected '{' after @"+entryType,
			).WithConfidence(0.9))
			continue
		}
		i++ // '{'

		keyStart := i
		for i < len(content) && content[i] != ',' && content[i] != '}' && content[i] != '\n' {
			i++
		}
		key := strings.TrimSpace(string(content[keyStart:i]))
		span := source.Span{File: file.ID, Start: uint32(at), End: uint32(i)}
		if key == "" {
			diags = append(diags, diag.New(
				diag.SevError, diag.CiteBibParseError, span,
				"bibliography entry without a key",
			).WithConfidence(0.9))
			continue
		}

		recs = append(recs, Record{
			Kind:       BibEntry,
			Name:       key,
			URI:        uri,
			Range:      bibRange(file, span),
			Span:       span,
			Confidence: 1,
			Container:  entryType,
		})
	}
	return recs, diags
}

func bibRange(file *source.File, span source.Span) source.Range {
	return source.Range{
		Start: source.ToPosition(file.LineIdx, span.Start),
		End:   source.ToPosition(file.LineIdx, span.End),
	}
}

func isBibWord(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
