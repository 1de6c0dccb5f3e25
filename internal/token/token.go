package token

import (
	"fmt"

	"texel/internal/source"
)

// Token is one lexed LaTeX token. Text always holds the exact source
// bytes of Span: the token stream is lossless by construction.
type Token struct {
	Kind Kind
	Span source.Span
	Text string
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%s", t.Kind, t.Text, t.Span)
}

// IsTrivia reports whether the token carries no structure of its own.
func (t Token) IsTrivia() bool {
	return t.Kind == Whitespace || t.Kind == Newline || t.Kind == Comment
}
