package workspace

import (
	"context"
	"fmt"
	"testing"

	"go.uber.org/goleak"

	"texel/internal/config"
	"texel/internal/diag"
	"texel/internal/index"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// memFS — резолвер и файловая система в памяти для тестов.
type memFS map[string]string

func (m memFS) resolver() *index.Resolver {
	return &index.Resolver{
		Exists:     func(p string) bool { _, ok := m[p]; return ok },
		Extensions: []string{".tex", ".sty", ".cls", ".bib"},
	}
}

func (m memFS) readFile(p string) ([]byte, error) {
	if s, ok := m[p]; ok {
		return []byte(s), nil
	}
	return nil, fmt.Errorf("%s: no such file", p)
}

func newTestWorkspace(m memFS) *Workspace {
	return New(config.Default().Analysis, Options{Resolver: m.resolver(), ReadFile: m.readFile})
}

func TestOpenChangeClose(t *testing.T) {
	w := newTestWorkspace(memFS{})
	defer w.Close()
	ctx := context.Background()

	snap, err := w.DidOpen(ctx, "main.tex", []byte(`\label{a}\ref{a}\ref{b}`))
	if err != nil {
		t.Fatal(err)
	}
	if snap.Version != 0 {
		t.Fatalf("version = %d", snap.Version)
	}

	unresolved := countCode(snap.Diagnostics, diag.RefUnresolvedRef)
	if unresolved != 1 {
		t.Fatalf("FTX0201 = %d, want 1: %+v", unresolved, snap.Diagnostics)
	}

	// правим \ref{b} -> \ref{a}: позиция b — последний байт перед }
	text := []byte(`\label{a}\ref{a}\ref{b}`)
	pos := uint32(len(text) - 2)
	snap, err = w.DidChange(ctx, "main.tex", []TextEdit{{Start: pos, End: pos + 1, Text: []byte("a")}})
	if err != nil {
		t.Fatal(err)
	}
	if snap.Version != 1 {
		t.Fatalf("version after change = %d", snap.Version)
	}
	if got := countCode(snap.Diagnostics, diag.RefUnresolvedRef); got != 0 {
		t.Fatalf("unresolved after fix = %d: %+v", got, snap.Diagnostics)
	}

	if err := w.DidClose(ctx, "main.tex"); err != nil {
		t.Fatal(err)
	}
	if syms, _ := w.WorkspaceSymbols(ctx, ""); len(syms) != 0 {
		t.Fatalf("records survive close: %v", syms)
	}
}

func TestIncludeCycleDiagnostic(t *testing.T) {
	m := memFS{"main.tex": `\input{a}`, "a.tex": `\input{main}`}
	w := newTestWorkspace(m)
	defer w.Close()
	ctx := context.Background()

	if _, err := w.DidOpen(ctx, "main.tex", []byte(m["main.tex"])); err != nil {
		t.Fatal(err)
	}
	if _, err := w.DidOpen(ctx, "a.tex", []byte(m["a.tex"])); err != nil {
		t.Fatal(err)
	}

	all, err := w.AllDiagnostics(ctx)
	if err != nil {
		t.Fatal(err)
	}
	cycles := 0
	for _, diags := range all {
		cycles += countCode(diags, diag.InclCycle)
	}
	if cycles != 1 {
		t.Fatalf("FTX0400 = %d, want exactly 1 per cycle: %+v", cycles, all)
	}

	// диагностика висит на замыкающем ребре: a.tex -> main.tex
	if countCode(all["a.tex"], diag.InclCycle) != 1 {
		t.Fatalf("cycle diagnostic not at closing edge: %+v", all)
	}

	entries, err := w.EntrypointsIncluding(ctx, "a.tex")
	if err != nil {
		t.Fatal(err)
	}
	// в цикле корней нет — у обоих узлов есть входящие рёбра
	if len(entries) != 0 {
		t.Fatalf("entrypoints in a pure cycle = %v", entries)
	}
}

func TestIncludeResolutionFailure(t *testing.T) {
	w := newTestWorkspace(memFS{})
	defer w.Close()
	ctx := context.Background()

	snap, err := w.DidOpen(ctx, "main.tex", []byte(`\input{ghost}`))
	if err != nil {
		t.Fatal(err)
	}
	if got := countCode(snap.Diagnostics, diag.InclResolveFailed); got != 1 {
		t.Fatalf("FTX0401 = %d: %+v", got, snap.Diagnostics)
	}
	var found bool
	for _, d := range snap.Diagnostics {
		if d.Code == diag.InclResolveFailed && len(d.Notes) > 0 {
			found = true
		}
	}
	if !found {
		t.Fatal("resolution failure without attempted paths in related info")
	}
}

func TestBibliographyMissingSuppressesCitations(t *testing.T) {
	w := newTestWorkspace(memFS{})
	defer w.Close()
	ctx := context.Background()

	snap, err := w.DidOpen(ctx, "main.tex", []byte(`\cite{knuth84}\bibliography{refs}`))
	if err != nil {
		t.Fatal(err)
	}
	if got := countCode(snap.Diagnostics, diag.CiteUnresolved); got != 0 {
		t.Fatalf("FTX0300 despite missing bibliography: %+v", snap.Diagnostics)
	}
	if got := countCode(snap.Diagnostics, diag.InclResolveFailed); got != 1 {
		t.Fatalf("missing bibliography diagnostic absent: %+v", snap.Diagnostics)
	}
}

func TestBibliographyResolvesCitations(t *testing.T) {
	m := memFS{"refs.bib": "@article{knuth84, title={X}}\n"}
	w := newTestWorkspace(m)
	defer w.Close()
	ctx := context.Background()

	snap, err := w.DidOpen(ctx, "main.tex", []byte(`\cite{knuth84}\cite{ghost}\bibliography{refs}`))
	if err != nil {
		t.Fatal(err)
	}
	if got := countCode(snap.Diagnostics, diag.CiteUnresolved); got != 1 {
		t.Fatalf("FTX0300 = %d, want 1 (ghost only): %+v", got, snap.Diagnostics)
	}
}

func TestFSEventsInvalidate(t *testing.T) {
	m := memFS{"chapter.tex": `\label{ch}`}
	w := newTestWorkspace(m)
	defer w.Close()
	ctx := context.Background()

	if err := w.ApplyFSEvents(ctx, []FSEvent{{Path: "chapter.tex", Op: FSCreate}}); err != nil {
		t.Fatal(err)
	}
	defs, err := w.FindDefinitions(ctx, index.LabelDefinition, "ch")
	if err != nil {
		t.Fatal(err)
	}
	if len(defs) != 1 {
		t.Fatalf("defs after create = %v", defs)
	}

	if err := w.ApplyFSEvents(ctx, []FSEvent{{Path: "chapter.tex", Op: FSDelete}}); err != nil {
		t.Fatal(err)
	}
	defs, _ = w.FindDefinitions(ctx, index.LabelDefinition, "ch")
	if len(defs) != 0 {
		t.Fatalf("defs after delete = %v", defs)
	}
}

func TestCancelledQueryHasNoEffect(t *testing.T) {
	w := newTestWorkspace(memFS{})
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := w.DidOpen(ctx, "main.tex", []byte(`\label{x}`)); err == nil {
		t.Fatal("cancelled open returned no error")
	}

	// отменённая операция не оставила следов
	defs, err := w.FindDefinitions(context.Background(), index.LabelDefinition, "x")
	if err != nil {
		t.Fatal(err)
	}
	if len(defs) != 0 {
		t.Fatalf("cancelled mutation leaked state: %v", defs)
	}
}

func countCode(diags []diag.Diagnostic, code diag.Code) int {
	n := 0
	for _, d := range diags {
		if d.Code == code {
			n++
		}
	}
	return n
}
