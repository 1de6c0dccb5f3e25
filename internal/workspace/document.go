// Package workspace owns the mutable analysis state: document
// snapshots, the symbol table, and the include graph. A single owner
// goroutine serializes every mutation; readers receive immutable copies
// keyed by document versions, never a partial mid-application state.
package workspace

import (
	"texel/internal/cst"
	"texel/internal/diag"
	"texel/internal/index"
	"texel/internal/source"
	"texel/internal/token"
)

// Document is one open document's snapshot. Versions are monotonically
// non-decreasing per URI.
type Document struct {
	URI         string
	Version     int32
	File        *source.File
	Tree        *cst.Tree
	Records     []index.Record
	Diagnostics []diag.Diagnostic // parse-level only; cross-file lives on the workspace
}

// TextEdit is one replacement in the document's current byte
// coordinates. Edits in a DidChange batch are applied in order.
type TextEdit struct {
	Start uint32
	End   uint32
	Text  []byte
}

// Snapshot is the immutable view handed to readers.
type Snapshot struct {
	URI         string
	Version     int32
	Text        []byte
	Tokens      []token.Token
	Tree        *cst.Tree
	Records     []index.Record
	Diagnostics []diag.Diagnostic
}
