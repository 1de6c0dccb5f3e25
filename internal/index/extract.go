package index

import (
	"strings"

	"texel/internal/cst"
	"texel/internal/diag"
	"texel/internal/source"
)

var labelRefCommands = map[string]bool{
	`\ref`: true, `\autoref`: true, `\eqref`: true, `\pageref`: true,
	`\cref`: true, `\Cref`: true, `\vref`: true, `\nameref`: true,
}

var citeCommands = map[string]bool{
	`\cite`: true, `\citep`: true, `\citet`: true, `\autocite`: true,
	`\textcite`: true, `\parencite`: true, `\footcite`: true, `\Cite`: true,
}

var commandDefCommands = map[string]bool{
	`\newcommand`: true, `\renewcommand`: true, `\providecommand`: true,
	`\DeclareMathOperator`: true, `\DeclareMathOperator*`: true,
}

var environmentDefCommands = map[string]bool{
	`\newenvironment`: true, `\renewenvironment`: true, `\newtheorem`: true,
}

// SubfileConfidence gates \subfile include records: whether the subfiles
// package is actually in effect is not tracked, so the edge is
// best-effort.
const SubfileConfidence = diag.Confidence(0.8)

// Extract lowers a CST into the document's index slice. Ranges are
// resolved against the tree's file; records come out in document order.
func Extract(tree *cst.Tree, uri string) []Record {
	x := extractor{tree: tree, uri: uri}
	x.walk(tree.Root)
	return x.out
}

type extractor struct {
	tree *cst.Tree
	uri  string
	envs []string // стек имён окружений для Container
	out  []Record
}

func (x *extractor) container() string {
	if len(x.envs) == 0 {
		return ""
	}
	return x.envs[len(x.envs)-1]
}

func (x *extractor) walk(id cst.NodeID) {
	n := x.tree.Get(id)
	if n == nil {
		return
	}

	switch n.Kind {
	case cst.KindEnvironment:
		x.envs = append(x.envs, n.Name)
		for _, c := range n.Children {
			x.walk(c)
		}
		x.envs = x.envs[:len(x.envs)-1]
		return

	case cst.KindCommand:
		x.command(n)

	case cst.KindInclude:
		x.include(n)
	}

	for _, c := range n.Children {
		x.walk(c)
	}
}

func (x *extractor) command(n *cst.Node) {
	switch {
	case n.Name == `\label`:
		if name := x.firstArg(n); name != "" {
			x.add(LabelDefinition, name, n, 1)
		}

	case labelRefCommands[n.Name]:
		if name := x.firstArg(n); name != "" {
			x.add(LabelReference, name, n, 1)
		}

	case citeCommands[n.Name]:
		// \cite{a,b,c} — одна ссылка на каждый ключ
		for _, key := range splitKeys(x.firstArg(n)) {
			x.add(CitationReference, key, n, 1)
		}

	case n.Name == `\usepackage` || n.Name == `\RequirePackage`:
		for _, pkg := range splitKeys(x.firstArg(n)) {
			x.add(PackageUse, pkg, n, 1)
		}

	case commandDefCommands[n.Name]:
		name, conf := x.definedCommand(n)
		if name != "" {
			x.add(CommandDefinition, name, n, conf)
		}

	case environmentDefCommands[n.Name]:
		if name := x.firstArg(n); name != "" {
			x.add(EnvironmentDefinition, name, n, 1)
		}

	case n.Name == `\bibliography` || n.Name == `\addbibresource`:
		for _, b := range splitKeys(x.firstArg(n)) {
			x.out = append(x.out, Record{
				Kind:       InputInclude,
				Name:       b,
				URI:        x.uri,
				Range:      x.rng(n.Span),
				Span:       n.Span,
				Confidence: 1,
				Container:  x.container(),
				Raw:        b,
				Bib:        true,
			})
		}
	}
}

func (x *extractor) include(n *cst.Node) {
	conf := diag.Certain
	if n.Include == cst.IncludeSubfile {
		conf = SubfileConfidence
	}
	r := Record{
		Kind:       InputInclude,
		Name:       n.Name,
		URI:        x.uri,
		Range:      x.rng(n.Span),
		Span:       n.Span,
		Confidence: conf,
		Container:  x.container(),
		Raw:        n.Name,
		// \includegraphics — ссылка на ресурс, но не ребро графа включений
		Edge: n.Include != cst.IncludeGraphics,
	}
	x.out = append(x.out, r)
}

// definedCommand extracts the command being defined. The clean shape is
// \newcommand{\F}...: a brace group whose sole meaningful content is one
// control sequence. Anything murkier is confidence-gated.
func (x *extractor) definedCommand(n *cst.Node) (string, diag.Confidence) {
	arg := x.firstArg(n)
	if arg == "" {
		return "", 0
	}
	name := strings.TrimSpace(arg)
	if !strings.HasPrefix(name, `\`) {
		// \DeclareMathOperator{\F}{...} всегда с backslash; без него
		// структура аргумента сомнительна
		return name, 0.5
	}
	bare := strings.TrimPrefix(name, `\`)
	if bare == "" {
		return "", 0
	}
	for _, r := range bare {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '*') {
			return bare, 0.7
		}
	}
	return bare, 1
}

// firstArg returns the inner text of the first brace-group argument.
func (x *extractor) firstArg(n *cst.Node) string {
	for _, c := range n.Children {
		child := x.tree.Get(c)
		if child.Kind == cst.KindGroup {
			return groupInner(x.tree, c)
		}
	}
	return ""
}

func (x *extractor) add(kind RecordKind, name string, n *cst.Node, conf diag.Confidence) {
	x.out = append(x.out, Record{
		Kind:       kind,
		Name:       name,
		URI:        x.uri,
		Range:      x.rng(n.Span),
		Span:       n.Span,
		Confidence: conf,
		Container:  x.container(),
	})
}

func (x *extractor) rng(span source.Span) source.Range {
	idx := x.tree.File.LineIdx
	return source.Range{
		Start: source.ToPosition(idx, span.Start),
		End:   source.ToPosition(idx, span.End),
	}
}

func groupInner(t *cst.Tree, id cst.NodeID) string {
	var b strings.Builder
	t.Walk(id, func(_ cst.NodeID, n *cst.Node) bool {
		if n.Kind == cst.KindToken {
			b.WriteString(n.Token.Text)
		}
		return true
	})
	s := b.String()
	s = strings.TrimPrefix(s, "{")
	s = strings.TrimSuffix(s, "}")
	return strings.TrimSpace(s)
}

func splitKeys(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if k := strings.TrimSpace(p); k != "" {
			out = append(out, k)
		}
	}
	return out
}
