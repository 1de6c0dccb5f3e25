package cst

import (
	"strings"

	"texel/internal/lexer"
	"texel/internal/source"
	"texel/internal/token"
)

// mathEnvs are environment names that switch into math mode.
var mathEnvs = map[string]bool{
	"math": true, "displaymath": true,
	"equation": true, "equation*": true,
	"align": true, "align*": true,
	"alignat": true, "alignat*": true,
	"gather": true, "gather*": true,
	"multline": true, "multline*": true,
	"eqnarray": true, "eqnarray*": true,
	"split": true,
}

var includeCommands = map[string]IncludeKind{
	`\input`:            IncludeInput,
	`\include`:          IncludeInclude,
	`\includegraphics`:  IncludeGraphics,
	`\includegraphics*`: IncludeGraphics,
	`\subfile`:          IncludeSubfile,
}

type stopFn func(token.Token) bool

func stopNever(token.Token) bool { return false }

type builder struct {
	arena *Arena[Node]
	lx    *lexer.Lexer
	file  *source.File
	look  *token.Token
	limit uint32 // exclusive parse bound for regional rebuilds
}

// Parse builds a lossless CST for the whole document. It accepts any
// byte sequence; malformed regions become Error nodes with bounded,
// local recovery (invariant I6).
func Parse(file *source.File) *Tree {
	b := &builder{
		arena: NewArena[Node](uint(len(file.Content)/8 + 16)),
		lx:    lexer.New(file),
		file:  file,
		limit: uint32(len(file.Content)),
	}
	children := b.parseSequence(stopNever)
	root := b.alloc(Node{
		Kind:       KindRoot,
		Span:       source.Span{File: file.ID, Start: 0, End: uint32(len(file.Content))},
		Children:   children,
		Confidence: 1,
	})
	return &Tree{arena: b.arena, Root: root, File: file}
}

func (b *builder) alloc(n Node) NodeID {
	if n.Confidence == 0 {
		n.Confidence = 1
	}
	return NodeID(b.arena.Allocate(n))
}

func (b *builder) peek() token.Token {
	if b.look == nil {
		t := b.lx.Next()
		b.look = &t
	}
	if b.look.Kind != token.EOF && b.look.Span.Start >= b.limit {
		return token.Token{Kind: token.EOF, Span: source.Span{File: b.file.ID, Start: b.limit, End: b.limit}}
	}
	return *b.look
}

func (b *builder) next() token.Token {
	t := b.peek()
	if t.Kind != token.EOF {
		b.look = nil
	}
	return t
}

func (b *builder) leaf(t token.Token) NodeID {
	return b.alloc(Node{Kind: KindToken, Span: t.Span, Token: t})
}

// parseSequence builds sibling nodes until EOF or the stop predicate
// fires. The stopping token is left unconsumed.
func (b *builder) parseSequence(stop stopFn) []NodeID {
	var out []NodeID
	for {
		t := b.peek()
		if t.Kind == token.EOF || stop(t) {
			return out
		}
		out = append(out, b.parseItem(stop))
	}
}

func (b *builder) parseItem(stop stopFn) NodeID {
	t := b.peek()
	switch t.Kind {
	case token.CommandName:
		return b.parseCommand(stop)

	case token.LBrace:
		return b.parseGroup(stop)

	case token.LBracket:
		return b.parseBracketGroup(stop)

	case token.RBrace, token.RBracket:
		// непарная закрывающая скобка: Error-обёртка, разбор продолжается
		b.next()
		return b.alloc(Node{
			Kind:       KindError,
			Span:       t.Span,
			Name:       "group",
			Children:   []NodeID{b.leaf(t)},
			Confidence: 0.5,
		})

	case token.MathShift:
		return b.parseMath(stop)

	default:
		// Comment, Text, Whitespace, Newline, Invalid — листы
		b.next()
		return b.leaf(t)
	}
}

// parseGroup parses { ... }. An unclosed group becomes an Error node
// carrying an Unclosed marker; everything parsed so far stays inside.
func (b *builder) parseGroup(parentStop stopFn) NodeID {
	open := b.next()
	children := []NodeID{b.leaf(open)}
	span := open.Span

	body := b.parseSequence(func(t token.Token) bool {
		return t.Kind == token.RBrace || parentStop(t)
	})
	children = append(children, body...)

	if t := b.peek(); t.Kind == token.RBrace {
		b.next()
		children = append(children, b.leaf(t))
		return b.alloc(Node{
			Kind:     KindGroup,
			Span:     span.Cover(t.Span),
			Children: children,
		})
	}
	return b.alloc(Node{
		Kind:       KindError,
		Span:       b.coverAll(span, children),
		Name:       "group",
		Children:   children,
		Unclosed:   true,
		Confidence: 0.5,
	})
}

func (b *builder) parseBracketGroup(parentStop stopFn) NodeID {
	open := b.next()
	children := []NodeID{b.leaf(open)}
	span := open.Span

	body := b.parseSequence(func(t token.Token) bool {
		return t.Kind == token.RBracket || parentStop(t)
	})
	children = append(children, body...)

	if t := b.peek(); t.Kind == token.RBracket {
		b.next()
		children = append(children, b.leaf(t))
		return b.alloc(Node{
			Kind:     KindBracketGroup,
			Span:     span.Cover(t.Span),
			Children: children,
		})
	}
	return b.alloc(Node{
		Kind:       KindError,
		Span:       b.coverAll(span, children),
		Name:       "bracket",
		Children:   children,
		Unclosed:   true,
		Confidence: 0.5,
	})
}

// parseMath parses $ ... $ or $$ ... $$; the closing shift must match
// the opening one. Unclosed math extends to the stop boundary.
func (b *builder) parseMath(parentStop stopFn) NodeID {
	open := b.next()
	children := []NodeID{b.leaf(open)}
	span := open.Span

	body := b.parseSequence(func(t token.Token) bool {
		return (t.Kind == token.MathShift && t.Text == open.Text) || parentStop(t)
	})
	children = append(children, body...)

	if t := b.peek(); t.Kind == token.MathShift && t.Text == open.Text {
		b.next()
		children = append(children, b.leaf(t))
		return b.alloc(Node{
			Kind:     KindMath,
			Span:     span.Cover(t.Span),
			Children: children,
		})
	}
	return b.alloc(Node{
		Kind:       KindMath,
		Span:       b.coverAll(span, children),
		Children:   children,
		Unclosed:   true,
		Confidence: 0.7,
	})
}

func (b *builder) parseCommand(parentStop stopFn) NodeID {
	cmd := b.peek()
	switch cmd.Text {
	case `\begin`:
		return b.parseEnvironment(parentStop)
	case `\end`:
		return b.parseStrayEnd()
	case `\[`:
		return b.parseDisplayMath(parentStop)
	}
	if kind, ok := includeCommands[cmd.Text]; ok {
		return b.parseInclude(kind, parentStop)
	}

	b.next()
	children := []NodeID{b.leaf(cmd)}
	span := cmd.Span
	// аргументы: только непосредственно примыкающие группы
	for {
		t := b.peek()
		if t.Kind == token.LBrace {
			children = append(children, b.parseGroup(parentStop))
		} else if t.Kind == token.LBracket {
			children = append(children, b.parseBracketGroup(parentStop))
		} else {
			break
		}
	}
	return b.alloc(Node{
		Kind:     KindCommand,
		Span:     b.coverAll(span, children),
		Name:     cmd.Text,
		Children: children,
	})
}

// parseDisplayMath parses \[ ... \].
func (b *builder) parseDisplayMath(parentStop stopFn) NodeID {
	open := b.next()
	children := []NodeID{b.leaf(open)}
	span := open.Span

	body := b.parseSequence(func(t token.Token) bool {
		return (t.Kind == token.CommandName && t.Text == `\]`) || parentStop(t)
	})
	children = append(children, body...)

	if t := b.peek(); t.Kind == token.CommandName && t.Text == `\]` {
		b.next()
		children = append(children, b.leaf(t))
		return b.alloc(Node{
			Kind:     KindMath,
			Span:     span.Cover(t.Span),
			Children: children,
		})
	}
	return b.alloc(Node{
		Kind:       KindMath,
		Span:       b.coverAll(span, children),
		Children:   children,
		Unclosed:   true,
		Confidence: 0.7,
	})
}

// parseStrayEnd wraps an \end with no matching \begin.
func (b *builder) parseStrayEnd() NodeID {
	end := b.next()
	children := []NodeID{b.leaf(end)}
	span := end.Span
	name := ""
	if t := b.peek(); t.Kind == token.LBrace {
		g := b.parseGroup(stopNever)
		children = append(children, g)
		name = b.innerText(g)
		span = span.Cover(b.Getspan(g))
	}
	return b.alloc(Node{
		Kind:       KindError,
		Span:       span,
		Name:       "environment " + name,
		Children:   children,
		Confidence: 0.5,
	})
}

func (b *builder) parseInclude(kind IncludeKind, parentStop stopFn) NodeID {
	cmd := b.next()
	children := []NodeID{b.leaf(cmd)}
	span := cmd.Span

	// \includegraphics[width=...]{path}
	if t := b.peek(); t.Kind == token.LBracket {
		children = append(children, b.parseBracketGroup(parentStop))
	}

	raw := ""
	if t := b.peek(); t.Kind == token.LBrace {
		g := b.parseGroup(parentStop)
		children = append(children, g)
		raw = b.innerText(g)
	}

	if raw == "" {
		// без аргумента это просто команда
		return b.alloc(Node{
			Kind:     KindCommand,
			Span:     b.coverAll(span, children),
			Name:     cmd.Text,
			Children: children,
		})
	}
	return b.alloc(Node{
		Kind:     KindInclude,
		Span:     b.coverAll(span, children),
		Name:     raw,
		Include:  kind,
		Children: children,
	})
}

func (b *builder) parseEnvironment(parentStop stopFn) NodeID {
	begin := b.next()
	children := []NodeID{b.leaf(begin)}
	span := begin.Span

	name := ""
	if t := b.peek(); t.Kind == token.LBrace {
		g := b.parseGroup(parentStop)
		children = append(children, g)
		name = b.innerText(g)
	}

	body := b.parseSequence(func(t token.Token) bool {
		return (t.Kind == token.CommandName && t.Text == `\end`) || parentStop(t)
	})
	children = append(children, body...)

	kind := KindEnvironment
	if mathEnvs[name] {
		kind = KindMath
	}

	if t := b.peek(); t.Kind == token.CommandName && t.Text == `\end` {
		b.next()
		endChildren := []NodeID{b.leaf(t)}
		endSpan := t.Span
		endName := ""
		if g := b.peek(); g.Kind == token.LBrace {
			gid := b.parseGroup(parentStop)
			endChildren = append(endChildren, gid)
			endName = b.innerText(gid)
			endSpan = endSpan.Cover(b.Getspan(gid))
		}

		if endName == name {
			children = append(children, endChildren...)
			return b.alloc(Node{
				Kind:     kind,
				Span:     b.coverAll(span, children),
				Name:     name,
				Children: children,
			})
		}

		// \begin{x}...\end{y}: окружение x с вложенной ошибкой про y
		mismatch := b.alloc(Node{
			Kind:       KindMismatchError,
			Span:       endSpan,
			Name:       endName,
			Children:   endChildren,
			Confidence: 0.5,
		})
		children = append(children, mismatch)
		return b.alloc(Node{
			Kind:       kind,
			Span:       b.coverAll(span, children),
			Name:       name,
			Children:   children,
			Confidence: 0.7,
		})
	}

	// незакрытое окружение тянется до конца области
	return b.alloc(Node{
		Kind:       kind,
		Span:       b.coverAll(span, children),
		Name:       name,
		Children:   children,
		Unclosed:   true,
		Confidence: 0.7,
	})
}

func (b *builder) Getspan(id NodeID) source.Span {
	return b.arena.Get(uint32(id)).Span
}

func (b *builder) coverAll(span source.Span, children []NodeID) source.Span {
	for _, c := range children {
		span = span.Cover(b.Getspan(c))
	}
	return span
}

// innerText returns the concatenated leaf text of a group without its
// delimiting braces, trimmed. Used for environment names and include
// arguments.
func (b *builder) innerText(id NodeID) string {
	var sb strings.Builder
	var walk func(NodeID)
	walk = func(nid NodeID) {
		n := b.arena.Get(uint32(nid))
		if n.Kind == KindToken {
			sb.WriteString(n.Token.Text)
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(id)
	s := sb.String()
	s = strings.TrimPrefix(s, "{")
	s = strings.TrimSuffix(s, "}")
	return strings.TrimSpace(s)
}
