package texlog

import (
	"bytes"
	"strconv"
	"strings"

	"texel/internal/source"
)

// TokKind classifies a log token.
type TokKind uint8

const (
	// TokText is any run not claimed by another class.
	TokText TokKind = iota
	// TokLParen is '('.
	TokLParen
	// TokRParen is ')'.
	TokRParen
	// TokBang is '!' at line start.
	TokBang
	// TokLineRef is "l.<digits>" at line start.
	TokLineRef
	// TokWarningPrefix is a recognized warning line prefix.
	TokWarningPrefix
	// TokPrompt is '?' at line start in interactive context.
	TokPrompt
)

// Tok is one log token. Line-level tokens (Bang, LineRef, WarningPrefix,
// Prompt) carry the line remainder in Text.
type Tok struct {
	Kind TokKind
	Span source.Span
	Text string
}

// lineClass is the line-start classification the state machine dispatches on.
type lineClass uint8

const (
	classOther lineClass = iota
	classBlank
	classBang
	classLineRef
	classWarning
	classPrompt
	classOutput
	classSummary
)

// warningMatch describes a recognized warning prefix on a line.
type warningMatch struct {
	prefix string
	pkg    string // package name for "Package <name> Warning:" prefixes
}

// classify determines how a line starts. The warning prefix set comes
// from configuration; the default is the four prefixes TeX engines emit.
func classify(line Line, prefixes []string) (lineClass, warningMatch) {
	c := line.Content
	if line.Blank() {
		return classBlank, warningMatch{}
	}
	switch c[0] {
	case '!':
		return classBang, warningMatch{}
	case '?':
		return classPrompt, warningMatch{}
	}
	if _, _, ok := parseLineRef(c); ok {
		return classLineRef, warningMatch{}
	}
	if m, ok := matchWarningPrefix(c, prefixes); ok {
		return classWarning, m
	}
	if bytes.HasPrefix(c, []byte("Output written on ")) {
		return classOutput, warningMatch{}
	}
	if bytes.HasPrefix(c, []byte("No pages of output")) {
		return classSummary, warningMatch{}
	}
	return classOther, warningMatch{}
}

// parseLineRef parses "l.<digits>" at line start, returning the line
// number and the byte length of the matched "l.<digits>" head.
func parseLineRef(c []byte) (line uint32, head int, ok bool) {
	if len(c) < 3 || c[0] != 'l' || c[1] != '.' {
		return 0, 0, false
	}
	i := 2
	for i < len(c) && c[i] >= '0' && c[i] <= '9' {
		i++
	}
	if i == 2 {
		return 0, 0, false
	}
	n, err := strconv.ParseUint(string(c[2:i]), 10, 32)
	if err != nil {
		return 0, 0, false
	}
	return uint32(n), i, true
}

// matchWarningPrefix checks the configured prefix set. The entry
// "Package * Warning:" matches any "Package <name> Warning:" head and
// captures the package name.
func matchWarningPrefix(c []byte, prefixes []string) (warningMatch, bool) {
	s := string(c)
	for _, p := range prefixes {
		if star := strings.Index(p, "*"); star >= 0 {
			head := p[:star]
			tail := strings.TrimSpace(p[star+1:])
			if !strings.HasPrefix(s, head) {
				continue
			}
			rest := s[len(head):]
			ti := strings.Index(rest, tail)
			if ti <= 0 {
				continue
			}
			name := strings.TrimSpace(rest[:ti])
			if name == "" || strings.ContainsAny(name, " \t") {
				continue
			}
			return warningMatch{prefix: p, pkg: name}, true
		}
		if strings.HasPrefix(s, p) {
			return warningMatch{prefix: p}, true
		}
	}
	return warningMatch{}, false
}

// WarningPackage extracts the package name from a "Package <name>
// Warning:" message, or "" when the message is not package-attributed.
func WarningPackage(message string, prefixes []string) string {
	m, ok := matchWarningPrefix([]byte(message), prefixes)
	if !ok {
		return ""
	}
	return m.pkg
}

// Tokenize splits one logical line into log tokens. Line-level classes
// claim the whole line; otherwise the content is scanned for parens with
// text runs between them. Every byte lands in some token: the tokenizer
// is total.
func Tokenize(line Line, prefixes []string) []Tok {
	cls, _ := classify(line, prefixes)
	switch cls {
	case classBang:
		return []Tok{{Kind: TokBang, Span: line.Span, Text: strings.TrimSpace(string(line.Content[1:]))}}
	case classPrompt:
		return []Tok{{Kind: TokPrompt, Span: line.Span, Text: string(line.Content)}}
	case classLineRef:
		return []Tok{{Kind: TokLineRef, Span: line.Span, Text: string(line.Content)}}
	case classWarning:
		return []Tok{{Kind: TokWarningPrefix, Span: line.Span, Text: string(line.Content)}}
	}
	return scanRuns(line)
}

// scanRuns char-scans a line (or line remainder) into paren tokens with
// text runs between them.
func scanRuns(line Line) []Tok {
	var out []Tok
	start := line.Span.Start
	runStart := start
	flush := func(end uint32) {
		if end > runStart {
			out = append(out, Tok{
				Kind: TokText,
				Span: source.Span{File: line.Span.File, Start: runStart, End: end},
				Text: string(line.Content[runStart-start : end-start]),
			})
		}
	}
	for i, b := range line.Content {
		pos := start + uint32(i)
		switch b {
		case '(':
			flush(pos)
			out = append(out, Tok{Kind: TokLParen, Span: source.Span{File: line.Span.File, Start: pos, End: pos + 1}})
			runStart = pos + 1
		case ')':
			flush(pos)
			out = append(out, Tok{Kind: TokRParen, Span: source.Span{File: line.Span.File, Start: pos, End: pos + 1}})
			runStart = pos + 1
		}
	}
	flush(line.Span.End)
	return out
}
