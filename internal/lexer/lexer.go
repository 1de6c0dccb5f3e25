// Package lexer tokenizes LaTeX source. The lexer is total — any byte
// sequence produces some token stream — and restartable from any byte
// offset that lies on a line boundary, which the incremental CST builder
// uses to retokenize only the edited region.
package lexer

import (
	"texel/internal/source"
	"texel/internal/token"
)

type Lexer struct {
	file   *source.File
	cursor Cursor
	look   *token.Token // 1 элементный буфер для токена
}

func New(file *source.File) *Lexer {
	return &Lexer{file: file, cursor: NewCursor(file)}
}

// NewAt starts lexing from offset off, which must lie on a line boundary.
func NewAt(file *source.File, off uint32) *Lexer {
	return &Lexer{file: file, cursor: NewCursorAt(file, off)}
}

// Next возвращает следующий токен. После EOF всегда возвращает EOF.
func (lx *Lexer) Next() token.Token {
	if lx.look != nil {
		tok := *lx.look
		lx.look = nil
		return tok
	}

	if lx.cursor.EOF() {
		return token.Token{Kind: token.EOF, Span: lx.emptySpan()}
	}

	ch := lx.cursor.Peek()
	switch ch {
	case '\\':
		return lx.scanCommand()
	case '{':
		return lx.single(token.LBrace)
	case '}':
		return lx.single(token.RBrace)
	case '[':
		return lx.single(token.LBracket)
	case ']':
		return lx.single(token.RBracket)
	case '%':
		return lx.scanComment()
	case '$':
		return lx.scanMathShift()
	case '\n':
		return lx.single(token.Newline)
	case '\r':
		return lx.scanNewlineCR()
	case ' ', '\t':
		return lx.scanWhitespace()
	default:
		return lx.scanText()
	}
}

// Peek возвращает следующий токен, не потребляя его.
func (lx *Lexer) Peek() token.Token {
	t := lx.Next()
	lx.look = &t
	return t
}

// Offset reports the position of the next unread byte.
func (lx *Lexer) Offset() uint32 {
	if lx.look != nil {
		return lx.look.Span.Start
	}
	return lx.cursor.Off
}

func (lx *Lexer) emptySpan() source.Span {
	return source.Span{File: lx.file.ID, Start: lx.cursor.Off, End: lx.cursor.Off}
}

func (lx *Lexer) single(kind token.Kind) token.Token {
	m := lx.cursor.Mark()
	lx.cursor.Bump()
	return lx.tok(kind, m)
}

func (lx *Lexer) tok(kind token.Kind, m Mark) token.Token {
	span := lx.cursor.SpanFrom(m)
	return token.Token{
		Kind: kind,
		Span: span,
		Text: string(lx.file.Content[span.Start:span.End]),
	}
}

// scanCommand lexes a control sequence: a backslash followed by a run of
// ASCII letters (\section), or a single non-letter byte (\%, \\, \$).
// A trailing backslash at EOF is an Invalid token.
func (lx *Lexer) scanCommand() token.Token {
	m := lx.cursor.Mark()
	lx.cursor.Bump() // '\'

	if lx.cursor.EOF() {
		return lx.tok(token.Invalid, m)
	}

	if isLetter(lx.cursor.Peek()) {
		for !lx.cursor.EOF() && isLetter(lx.cursor.Peek()) {
			lx.cursor.Bump()
		}
		// звёздочка — часть имени команды: \section*
		lx.cursor.Eat('*')
		return lx.tok(token.CommandName, m)
	}

	// односимвольная команда: \%, \{, \$, \\ и любой другой байт
	lx.cursor.Bump()
	return lx.tok(token.CommandName, m)
}

func (lx *Lexer) scanComment() token.Token {
	m := lx.cursor.Mark()
	for !lx.cursor.EOF() && lx.cursor.Peek() != '\n' {
		lx.cursor.Bump()
	}
	return lx.tok(token.Comment, m)
}

func (lx *Lexer) scanMathShift() token.Token {
	m := lx.cursor.Mark()
	lx.cursor.Bump()
	lx.cursor.Eat('$') // $$ — один токен
	return lx.tok(token.MathShift, m)
}

func (lx *Lexer) scanNewlineCR() token.Token {
	m := lx.cursor.Mark()
	lx.cursor.Bump() // '\r'
	if lx.cursor.Eat('\n') {
		return lx.tok(token.Newline, m)
	}
	// одиночный \r считается текстом
	return lx.tok(token.Text, m)
}

func (lx *Lexer) scanWhitespace() token.Token {
	m := lx.cursor.Mark()
	for !lx.cursor.EOF() {
		b := lx.cursor.Peek()
		if b != ' ' && b != '\t' {
			break
		}
		lx.cursor.Bump()
	}
	return lx.tok(token.Whitespace, m)
}

func (lx *Lexer) scanText() token.Token {
	m := lx.cursor.Mark()
	for !lx.cursor.EOF() {
		switch lx.cursor.Peek() {
		case '\\', '{', '}', '[', ']', '%', '$', '\n', '\r', ' ', '\t':
			return lx.tok(token.Text, m)
		}
		lx.cursor.Bump()
	}
	return lx.tok(token.Text, m)
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// Tokens lexes the whole file into a slice, excluding the final EOF.
func Tokens(file *source.File) []token.Token {
	lx := New(file)
	var out []token.Token
	for {
		t := lx.Next()
		if t.Kind == token.EOF {
			return out
		}
		out = append(out, t)
	}
}
