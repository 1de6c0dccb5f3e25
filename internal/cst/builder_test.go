package cst

import (
	"math/rand"
	"reflect"
	"strings"
	"testing"

	"texel/internal/diag"
	"texel/internal/source"
)

func parse(input string) *Tree {
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.tex", []byte(input))
	return Parse(fs.Get(id))
}

func findNodes(t *Tree, kind Kind) []*Node {
	var out []*Node
	t.Walk(t.Root, func(_ NodeID, n *Node) bool {
		if n.Kind == kind {
			out = append(out, n)
		}
		return true
	})
	return out
}

func TestLossless(t *testing.T) {
	inputs := []string{
		"",
		`\documentclass{article}\begin{document}hello\end{document}`,
		"broken { group \\begin{x} $math\nnewline",
		"% comment\n\\section*{Títle} [opt] }stray",
		"$$display$$ \\[ x \\] $inline$",
	}
	for _, in := range inputs {
		tree := parse(in)
		if got := tree.Text(); got != in {
			t.Fatalf("losslessness broken:\n in:  %q\n out: %q", in, got)
		}
	}
}

func TestLosslessOnRandomBytes(t *testing.T) {
	alphabet := []byte("\\{}[]%$ \nbeginenduX1.")
	for seed := int64(0); seed < 60; seed++ {
		rng := rand.New(rand.NewSource(seed))
		n := rng.Intn(400)
		data := make([]byte, n)
		for i := range data {
			data[i] = alphabet[rng.Intn(len(alphabet))]
		}
		tree := parse(string(data))
		if tree.Text() != string(data) {
			t.Fatalf("seed %d: lossless invariant broken", seed)
		}
	}
}

func TestEnvironment(t *testing.T) {
	tree := parse(`\begin{itemize}\item a\end{itemize}`)
	envs := findNodes(tree, KindEnvironment)
	if len(envs) != 1 {
		t.Fatalf("envs = %d\n%s", len(envs), Dump(tree))
	}
	if envs[0].Name != "itemize" || envs[0].Unclosed {
		t.Fatalf("env = %+v", envs[0])
	}
}

func TestEnvironmentMismatch(t *testing.T) {
	tree := parse(`\begin{x}\end{y}`)

	envs := findNodes(tree, KindEnvironment)
	if len(envs) != 1 || envs[0].Name != "x" {
		t.Fatalf("env missing:\n%s", Dump(tree))
	}
	mm := findNodes(tree, KindMismatchError)
	if len(mm) != 1 || mm[0].Name != "y" {
		t.Fatalf("mismatch child missing:\n%s", Dump(tree))
	}
	if tree.Text() != `\begin{x}\end{y}` {
		t.Fatal("losslessness broken on mismatch")
	}

	diags := ParseDiagnostics(tree)
	count := 0
	for _, d := range diags {
		if d.Code == diag.SynUnmatchedEnvironment {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("FTX0101 count = %d, diags = %+v", count, diags)
	}
}

func TestUnclosedEnvironmentExtendsToEOF(t *testing.T) {
	input := `\begin{proof} body text`
	tree := parse(input)
	envs := findNodes(tree, KindEnvironment)
	if len(envs) != 1 || !envs[0].Unclosed {
		t.Fatalf("unclosed env missing:\n%s", Dump(tree))
	}
	if envs[0].Span.End != uint32(len(input)) {
		t.Fatalf("unclosed env span = %v, want end %d", envs[0].Span, len(input))
	}
}

func TestMathEnvironmentIsMath(t *testing.T) {
	tree := parse(`\begin{equation}x=1\end{equation}`)
	if len(findNodes(tree, KindMath)) != 1 {
		t.Fatalf("equation env not math:\n%s", Dump(tree))
	}
}

func TestMathVariants(t *testing.T) {
	tree := parse(`$a$ $$b$$ \[c\]`)
	maths := findNodes(tree, KindMath)
	if len(maths) != 3 {
		t.Fatalf("math nodes = %d:\n%s", len(maths), Dump(tree))
	}
	for _, m := range maths {
		if m.Unclosed {
			t.Fatalf("math unexpectedly unclosed: %+v", m)
		}
	}
}

func TestUnmatchedBraces(t *testing.T) {
	tree := parse("a } b { c")
	errs := findNodes(tree, KindError)
	if len(errs) != 2 {
		t.Fatalf("errors = %d:\n%s", len(errs), Dump(tree))
	}
	var unclosed, stray int
	for _, e := range errs {
		if e.Unclosed {
			unclosed++
		} else {
			stray++
		}
	}
	if unclosed != 1 || stray != 1 {
		t.Fatalf("unclosed=%d stray=%d", unclosed, stray)
	}

	diags := ParseDiagnostics(tree)
	for _, d := range diags {
		if d.Code != diag.SynUnmatchedGroup {
			t.Fatalf("unexpected code %v", d.Code)
		}
	}
	if len(diags) != 2 {
		t.Fatalf("diags = %+v", diags)
	}
}

func TestIncludeNodes(t *testing.T) {
	tree := parse(`\input{chapters/intro}\include{appendix}\includegraphics[width=1cm]{fig.png}\subfile{sub}`)
	incs := findNodes(tree, KindInclude)
	if len(incs) != 4 {
		t.Fatalf("includes = %d:\n%s", len(incs), Dump(tree))
	}
	want := []struct {
		name string
		kind IncludeKind
	}{
		{"chapters/intro", IncludeInput},
		{"appendix", IncludeInclude},
		{"fig.png", IncludeGraphics},
		{"sub", IncludeSubfile},
	}
	for i, w := range want {
		if incs[i].Name != w.name || incs[i].Include != w.kind {
			t.Errorf("include[%d] = %q/%d, want %q/%d", i, incs[i].Name, incs[i].Include, w.name, w.kind)
		}
	}
}

func TestCommandArguments(t *testing.T) {
	tree := parse(`\cite[p.~7]{knuth84}`)
	cmds := findNodes(tree, KindCommand)
	if len(cmds) != 1 || cmds[0].Name != `\cite` {
		t.Fatalf("command missing:\n%s", Dump(tree))
	}
	if len(cmds[0].Children) != 3 { // leaf, [..], {..}
		t.Fatalf("children = %d:\n%s", len(cmds[0].Children), Dump(tree))
	}
}

func TestCommentLeaf(t *testing.T) {
	tree := parse("a % rest of line {not a group\nb")
	if len(findNodes(tree, KindGroup)) != 0 {
		t.Fatalf("comment content parsed as structure:\n%s", Dump(tree))
	}
}

func edit(t *testing.T, old string, start, oldEnd int, replacement string) (incremental, full string) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.tex", []byte(old))
	oldFile := fs.Get(id)
	tree := Parse(oldFile)

	newText := old[:start] + replacement + old[oldEnd:]
	newFile := source.NewFileVersion(oldFile, []byte(newText))

	e := Edit{Start: uint32(start), OldEnd: uint32(oldEnd), NewEnd: uint32(start + len(replacement))}
	inc := Incremental(tree, newFile, e)

	if inc.Text() != newText {
		t.Fatalf("incremental tree lost bytes:\n want %q\n got  %q", newText, inc.Text())
	}
	return Dump(inc), Dump(Parse(newFile))
}

func TestIncrementalEquivalence(t *testing.T) {
	doc := "\\documentclass{article}\n\\begin{document}\nhello $x$\n\\input{a}\n\\end{document}\n"

	cases := []struct {
		name       string
		start, end int
		repl       string
	}{
		{"replace text", 41, 46, "world"},
		{"insert char", 44, 44, "!"},
		{"delete char", 44, 45, ""},
		{"break math open", 47, 48, ""}, // удаляем первый $
		{"new group", 41, 41, "{"},      // несбалансированная скобка
		{"edit include", 51, 60, `\input{b}`},
		{"append at end", len(doc), len(doc), "postscript\n"},
		{"edit at start", 0, 0, "% header\n"},
	}
	for _, c := range cases {
		inc, full := edit(t, doc, c.start, c.end, c.repl)
		if inc != full {
			t.Errorf("%s: incremental != full\n--- incremental:\n%s--- full:\n%s", c.name, inc, full)
		}
	}
}

func TestIncrementalRandomEdits(t *testing.T) {
	base := "\\begin{document}\ntext $m$ {g} [b]\n% c\n\\input{x}\n\\end{document}\n"
	alphabet := "\\{}[]$%ab \n"
	for seed := int64(0); seed < 40; seed++ {
		rng := rand.New(rand.NewSource(seed))
		doc := base

		fs := source.NewFileSet()
		id := fs.AddVirtual("test.tex", []byte(doc))
		file := fs.Get(id)
		tree := Parse(file)

		for step := 0; step < 4; step++ {
			start := rng.Intn(len(doc) + 1)
			end := start + rng.Intn(len(doc)-start+1)
			var repl strings.Builder
			for k := 0; k < rng.Intn(6); k++ {
				repl.WriteByte(alphabet[rng.Intn(len(alphabet))])
			}
			newDoc := doc[:start] + repl.String() + doc[end:]
			newFile := source.NewFileVersion(file, []byte(newDoc))

			tree = Incremental(tree, newFile, Edit{
				Start:  uint32(start),
				OldEnd: uint32(end),
				NewEnd: uint32(start + repl.Len()),
			})
			if tree.Text() != newDoc {
				t.Fatalf("seed %d step %d: lossless broken", seed, step)
			}
			if Dump(tree) != Dump(Parse(newFile)) {
				t.Fatalf("seed %d step %d: incremental diverged from full parse\nedit [%d,%d)+%q on %q",
					seed, step, start, end, repl.String(), doc)
			}
			doc = newDoc
			file = newFile
		}
	}
}

func TestIncrementalPreservesUntouchedIdentity(t *testing.T) {
	doc := "first line\n{group}\nlast line\n"
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.tex", []byte(doc))
	file := fs.Get(id)
	tree := Parse(file)

	root := tree.Get(tree.Root)
	firstChild := root.Children[0]
	before := *tree.Get(firstChild)

	// правим последнюю строку
	start := len(doc) - 2
	newDoc := doc[:start] + "X\n"
	newFile := source.NewFileVersion(file, []byte(newDoc))
	tree = Incremental(tree, newFile, Edit{Start: uint32(start), OldEnd: uint32(len(doc)), NewEnd: uint32(len(newDoc))})

	root = tree.Get(tree.Root)
	if root.Children[0] != firstChild {
		t.Fatal("untouched prefix child lost its identity")
	}
	if !reflect.DeepEqual(*tree.Get(firstChild), before) {
		t.Fatal("untouched prefix node mutated")
	}
}
