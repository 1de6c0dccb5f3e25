package cst

import (
	"fmt"
	"strings"
)

// Dump renders the tree structure for tests and the CLI tree view.
// Node identity is omitted so that structurally equal trees render
// identically regardless of arena layout.
func Dump(t *Tree) string {
	var b strings.Builder
	var walk func(id NodeID, depth int)
	walk = func(id NodeID, depth int) {
		n := t.Get(id)
		if n == nil {
			return
		}
		b.WriteString(strings.Repeat("  ", depth))
		switch n.Kind {
		case KindToken:
			fmt.Fprintf(&b, "%s %s %q\n", n.Token.Kind, n.Span, n.Token.Text)
		default:
			fmt.Fprintf(&b, "%s %s", n.Kind, n.Span)
			if n.Name != "" {
				fmt.Fprintf(&b, " name=%q", n.Name)
			}
			if n.Unclosed {
				b.WriteString(" unclosed")
			}
			if n.Confidence != 1 {
				fmt.Fprintf(&b, " conf=%.2f", float64(n.Confidence))
			}
			b.WriteByte('\n')
		}
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	walk(t.Root, 0)
	return b.String()
}
