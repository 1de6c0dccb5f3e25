package cst

import (
	"strings"

	"texel/internal/diag"
	"texel/internal/source"
	"texel/internal/token"
)

// NodeID is a 1-based handle into the tree's arena; 0 means "no node".
type NodeID uint32

// Kind tags the CST node variant.
type Kind uint8

const (
	// KindRoot is the document root.
	KindRoot Kind = iota
	// KindToken is a leaf holding exactly one source token.
	KindToken
	// KindCommand is a control sequence with its attached argument groups.
	KindCommand
	// KindGroup is a brace group { ... }.
	KindGroup
	// KindBracketGroup is a bracket group [ ... ].
	KindBracketGroup
	// KindEnvironment is \begin{name} ... \end{name}.
	KindEnvironment
	// KindMath is inline/display math or a math environment.
	KindMath
	// KindInclude is \input/\include/\includegraphics/\subfile with its
	// raw argument; resolution is deferred to the index layer.
	KindInclude
	// KindMismatchError marks the mismatched \end of an environment.
	KindMismatchError
	// KindError wraps a malformed region; construction never halts on it.
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "Root"
	case KindToken:
		return "Token"
	case KindCommand:
		return "Command"
	case KindGroup:
		return "Group"
	case KindBracketGroup:
		return "BracketGroup"
	case KindEnvironment:
		return "Environment"
	case KindMath:
		return "Math"
	case KindInclude:
		return "Include"
	case KindMismatchError:
		return "MismatchError"
	case KindError:
		return "Error"
	}
	return "Unknown"
}

// IncludeKind distinguishes the include-producing commands.
type IncludeKind uint8

const (
	IncludeNone IncludeKind = iota
	IncludeInput
	IncludeInclude
	IncludeGraphics
	IncludeSubfile
)

// Node is one CST node. The tree is lossless: concatenating the Token
// texts of all leaves in order reproduces the document byte-exactly.
type Node struct {
	Kind       Kind
	Span       source.Span
	Token      token.Token // KindToken only
	Children   []NodeID
	Name       string // environment name, command name, raw include argument
	Include    IncludeKind
	Unclosed   bool
	Confidence diag.Confidence
}

// Tree is the concrete syntax tree of one document snapshot.
type Tree struct {
	arena *Arena[Node]
	Root  NodeID
	File  *source.File
}

func (t *Tree) Get(id NodeID) *Node {
	return t.arena.Get(uint32(id))
}

// Len returns the number of allocated nodes.
func (t *Tree) Len() uint32 {
	return t.arena.Len()
}

// Walk visits id and its descendants in document order. Returning false
// from visit skips the node's children.
func (t *Tree) Walk(id NodeID, visit func(id NodeID, n *Node) bool) {
	n := t.Get(id)
	if n == nil {
		return
	}
	if !visit(id, n) {
		return
	}
	for _, c := range n.Children {
		t.Walk(c, visit)
	}
}

// Text reconstructs the source text from the leaves (losslessness
// invariant: Text() == string(File.Content) for every snapshot).
func (t *Tree) Text() string {
	var b strings.Builder
	t.Walk(t.Root, func(_ NodeID, n *Node) bool {
		if n.Kind == KindToken {
			b.WriteString(n.Token.Text)
		}
		return true
	})
	return b.String()
}
