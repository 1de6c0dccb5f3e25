package index

import (
	"sort"
	"strings"
)

// Table is the workspace-wide symbol index. It is owned by a single
// task; queries over it operate on the state at one consistent set of
// document versions.
type Table struct {
	byURI map[string][]Record
}

func NewTable() *Table {
	return &Table{byURI: make(map[string][]Record)}
}

// SetDocument replaces a document's index slice and returns the set of
// (kind, name) pairs whose records changed — the keys that cross-file
// diagnostics must be recomputed for.
func (t *Table) SetDocument(uri string, recs []Record) map[RecordKind]map[string]bool {
	old := t.byURI[uri]
	changed := make(map[RecordKind]map[string]bool)
	mark := func(r Record) {
		if changed[r.Kind] == nil {
			changed[r.Kind] = make(map[string]bool)
		}
		changed[r.Kind][r.Name] = true
	}

	oldSet := make(map[string]int)
	for _, r := range old {
		oldSet[recordKey(r)]++
	}
	newSet := make(map[string]int)
	for _, r := range recs {
		newSet[recordKey(r)]++
	}
	for _, r := range old {
		if oldSet[recordKey(r)] != newSet[recordKey(r)] {
			mark(r)
		}
	}
	for _, r := range recs {
		if oldSet[recordKey(r)] != newSet[recordKey(r)] {
			mark(r)
		}
	}

	if len(recs) == 0 {
		delete(t.byURI, uri)
	} else {
		t.byURI[uri] = append([]Record(nil), recs...)
	}
	return changed
}

// RemoveDocument drops a document's records (file deleted or closed).
func (t *Table) RemoveDocument(uri string) {
	t.SetDocument(uri, nil)
}

func recordKey(r Record) string {
	return r.Kind.String() + "\x00" + r.Name + "\x00" + r.Raw
}

// Documents returns the indexed URIs, sorted.
func (t *Table) Documents() []string {
	out := make([]string, 0, len(t.byURI))
	for uri := range t.byURI {
		out = append(out, uri)
	}
	sort.Strings(out)
	return out
}

// Records returns a copy of one document's slice.
func (t *Table) Records(uri string) []Record {
	return append([]Record(nil), t.byURI[uri]...)
}

// FindDefinitions returns records that define name under the given kind.
// For references the definition kind is looked up on the defining side:
// LabelReference resolves against LabelDefinition, CitationReference
// against BibEntry.
func (t *Table) FindDefinitions(kind RecordKind, name string) []Record {
	defKind := kind
	switch kind {
	case LabelReference:
		defKind = LabelDefinition
	case CitationReference:
		defKind = BibEntry
	}
	return t.collect(func(r Record) bool {
		return r.Kind == defKind && r.Name == name
	})
}

// FindReferences returns the reference records for name.
func (t *Table) FindReferences(kind RecordKind, name string) []Record {
	refKind := kind
	switch kind {
	case LabelDefinition:
		refKind = LabelReference
	case BibEntry:
		refKind = CitationReference
	}
	return t.collect(func(r Record) bool {
		return r.Kind == refKind && r.Name == name
	})
}

// WorkspaceSymbols returns definition records whose name contains query
// (case-insensitive substring; empty query matches everything).
func (t *Table) WorkspaceSymbols(query string) []Record {
	q := strings.ToLower(query)
	return t.collect(func(r Record) bool {
		switch r.Kind {
		case LabelDefinition, BibEntry, CommandDefinition, EnvironmentDefinition:
			return q == "" || strings.Contains(strings.ToLower(r.Name), q)
		}
		return false
	})
}

// LinksIn returns the include records of one document.
func (t *Table) LinksIn(uri string) []Record {
	var out []Record
	for _, r := range t.byURI[uri] {
		if r.Kind == InputInclude {
			out = append(out, r)
		}
	}
	return out
}

// HasBibEntries reports whether any bibliography keys are indexed.
func (t *Table) HasBibEntries() bool {
	for _, recs := range t.byURI {
		for _, r := range recs {
			if r.Kind == BibEntry {
				return true
			}
		}
	}
	return false
}

func (t *Table) collect(pred func(Record) bool) []Record {
	var out []Record
	for _, uri := range t.Documents() {
		for _, r := range t.byURI[uri] {
			if pred(r) {
				out = append(out, r)
			}
		}
	}
	return out
}
