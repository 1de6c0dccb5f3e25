package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"texel/internal/config"
	"texel/internal/cst"
	"texel/internal/diag"
	"texel/internal/graph"
	"texel/internal/index"
	"texel/internal/lexer"
	"texel/internal/source"
)

// Workspace is the single logical owner of the analysis state. All
// mutations and queries are funneled through one goroutine; public
// methods are synchronous wrappers that honor context cancellation at
// the enqueue/dequeue suspension points. Cancelled work leaves no side
// effects on shared state.
type Workspace struct {
	reqs chan func(*state)
	done chan struct{}
	cfg  config.Analysis
}

// Options wires the workspace's collaborators. Zero values are usable:
// no resolver means includes never resolve, no cache means extraction
// always runs, ReadFile defaults to the filesystem.
type Options struct {
	Resolver *index.Resolver
	Cache    *Cache
	ReadFile func(string) ([]byte, error)
}

type state struct {
	cfg        config.Analysis
	resolver   *index.Resolver
	cache      *Cache
	readFile   func(string) ([]byte, error)
	nextFileID source.FileID

	docs        map[string]*Document
	table       *index.Table
	graph       *graph.Graph
	missingBibs map[string]bool // "uri\x00raw" of unresolved bibliographies

	crossDiags   []diag.Diagnostic // duplicate/unresolved/cycle
	includeDiags map[string][]diag.Diagnostic
}

// New starts the owner goroutine. Close must be called to stop it.
func New(cfg config.Analysis, opts Options) *Workspace {
	w := &Workspace{
		reqs: make(chan func(*state), 64),
		done: make(chan struct{}),
		cfg:  cfg,
	}
	readFile := opts.ReadFile
	if readFile == nil {
		readFile = os.ReadFile
	}
	st := &state{
		cfg:          cfg,
		resolver:     opts.Resolver,
		cache:        opts.Cache,
		readFile:     readFile,
		docs:         make(map[string]*Document),
		table:        index.NewTable(),
		graph:        graph.New(),
		missingBibs:  make(map[string]bool),
		includeDiags: make(map[string][]diag.Diagnostic),
	}
	go func() {
		defer close(w.done)
		for fn := range w.reqs {
			fn(st)
		}
	}()
	return w
}

// Close stops the owner goroutine after draining queued work.
func (w *Workspace) Close() {
	close(w.reqs)
	<-w.done
}

// post runs fn on the owner goroutine and waits for it. When ctx is
// cancelled before the closure is picked up, the closure is abandoned
// without running: no partial mutation ever happens.
func (w *Workspace) post(ctx context.Context, fn func(*state)) error {
	ready := make(chan struct{})
	ran := false
	wrapped := func(st *state) {
		defer close(ready)
		select {
		case <-ctx.Done():
			// отменено до начала работы — побочных эффектов нет
			return
		default:
		}
		fn(st)
		ran = true
	}
	select {
	case w.reqs <- wrapped:
	case <-ctx.Done():
		return ctx.Err()
	}
	<-ready
	if !ran {
		return ctx.Err()
	}
	return nil
}

// DidOpen creates or replaces a document from full text.
func (w *Workspace) DidOpen(ctx context.Context, uri string, text []byte) (Snapshot, error) {
	var snap Snapshot
	err := w.post(ctx, func(st *state) {
		snap = st.open(ctx, uri, text)
	})
	return snap, err
}

// DidChange applies edits to an open document, producing the next
// version via the incremental pipeline.
func (w *Workspace) DidChange(ctx context.Context, uri string, edits []TextEdit) (Snapshot, error) {
	var snap Snapshot
	var inner error
	err := w.post(ctx, func(st *state) {
		snap, inner = st.change(ctx, uri, edits)
	})
	if err == nil {
		err = inner
	}
	return snap, err
}

// DidClose destroys a document snapshot. Its index records are removed;
// the file may be re-indexed from disk by filesystem events later.
func (w *Workspace) DidClose(ctx context.Context, uri string) error {
	return w.post(ctx, func(st *state) {
		delete(st.docs, uri)
		st.table.RemoveDocument(uri)
		if id, ok := st.graph.Lookup(uri); ok {
			st.graph.SetOutgoing(id, nil)
		}
		delete(st.includeDiags, uri)
		st.recheck()
	})
}

// Diagnostics returns the merged parse + cross-file diagnostics of uri.
func (w *Workspace) Diagnostics(ctx context.Context, uri string) ([]diag.Diagnostic, error) {
	var out []diag.Diagnostic
	err := w.post(ctx, func(st *state) {
		out = st.diagnosticsFor(uri)
	})
	return out, err
}

// FindDefinitions services the definition query at one index state.
func (w *Workspace) FindDefinitions(ctx context.Context, kind index.RecordKind, name string) ([]index.Record, error) {
	var out []index.Record
	err := w.post(ctx, func(st *state) {
		out = st.table.FindDefinitions(kind, name)
	})
	return out, err
}

// FindReferences services the references query.
func (w *Workspace) FindReferences(ctx context.Context, kind index.RecordKind, name string) ([]index.Record, error) {
	var out []index.Record
	err := w.post(ctx, func(st *state) {
		out = st.table.FindReferences(kind, name)
	})
	return out, err
}

// WorkspaceSymbols services the symbol query.
func (w *Workspace) WorkspaceSymbols(ctx context.Context, query string) ([]index.Record, error) {
	var out []index.Record
	err := w.post(ctx, func(st *state) {
		out = st.table.WorkspaceSymbols(query)
	})
	return out, err
}

// LinksIn returns the include records of one document.
func (w *Workspace) LinksIn(ctx context.Context, uri string) ([]index.Record, error) {
	var out []index.Record
	err := w.post(ctx, func(st *state) {
		out = st.table.LinksIn(uri)
	})
	return out, err
}

// EntrypointsIncluding returns root documents that transitively include uri.
func (w *Workspace) EntrypointsIncluding(ctx context.Context, uri string) ([]string, error) {
	var out []string
	err := w.post(ctx, func(st *state) {
		out = st.graph.EntrypointsIncluding(uri)
	})
	return out, err
}

// --- owner-side implementation ---

func (st *state) open(ctx context.Context, uri string, text []byte) Snapshot {
	uri = filepath.ToSlash(uri)
	doc, ok := st.docs[uri]
	if !ok {
		doc = &Document{
			URI:  uri,
			File: &source.File{ID: st.allocFileID(), Path: uri},
		}
		st.docs[uri] = doc
	} else {
		doc.Version++
	}
	doc.File = source.NewFileVersion(doc.File, text)
	doc.File.Version = doc.Version
	doc.Tree = cst.Parse(doc.File)
	st.finishUpdate(ctx, doc)
	return st.snapshot(doc)
}

func (st *state) change(ctx context.Context, uri string, edits []TextEdit) (Snapshot, error) {
	uri = filepath.ToSlash(uri)
	doc, ok := st.docs[uri]
	if !ok {
		return Snapshot{}, fmt.Errorf("didChange for unopened document %q", uri)
	}
	doc.Version++

	for _, e := range edits {
		old := doc.File.Content
		if e.Start > uint32(len(old)) || e.End > uint32(len(old)) || e.Start > e.End {
			return Snapshot{}, fmt.Errorf("edit [%d,%d) outside document of %d bytes", e.Start, e.End, len(old))
		}
		text := make([]byte, 0, len(old)-int(e.End-e.Start)+len(e.Text))
		text = append(text, old[:e.Start]...)
		text = append(text, e.Text...)
		text = append(text, old[e.End:]...)

		newFile := source.NewFileVersion(doc.File, text)
		newFile.Version = doc.Version
		doc.Tree = cst.Incremental(doc.Tree, newFile, cst.Edit{
			Start:  e.Start,
			OldEnd: e.End,
			NewEnd: e.Start + uint32(len(e.Text)),
		})
		doc.File = newFile
	}

	st.finishUpdate(ctx, doc)
	return st.snapshot(doc), nil
}

// finishUpdate runs extraction, applies the index difference, refreshes
// the document's include edges, and recomputes cross-file diagnostics
// only when something they depend on actually changed.
func (st *state) finishUpdate(ctx context.Context, doc *Document) {
	doc.Diagnostics = cst.ParseDiagnostics(doc.Tree)

	var recs []index.Record
	if st.cache != nil {
		if cached, ok := st.cache.Get(doc.File.Hash); ok {
			recs = cached
		}
	}
	if recs == nil {
		recs = index.Extract(doc.Tree, doc.URI)
		if st.cache != nil {
			st.cache.Put(doc.File.Hash, recs)
		}
	}
	doc.Records = recs

	changed := st.table.SetDocument(doc.URI, recs)
	edgesChanged := st.refreshEdges(ctx, doc.URI, recs)

	// dependency-directed: правка, не менявшая имён и рёбер, не трогает
	// кросс-файловые диагностики
	if len(changed) > 0 || edgesChanged {
		st.recheck()
	}
}

// refreshEdges re-resolves the document's include records into graph
// edges. Reports whether the edge set changed.
func (st *state) refreshEdges(ctx context.Context, uri string, recs []index.Record) bool {
	from := st.graph.Node(uri)
	var edges []graph.Edge
	var incDiags []diag.Diagnostic

	for _, r := range recs {
		if r.Kind != index.InputInclude {
			continue
		}
		if r.Bib {
			st.refreshBib(ctx, uri, r, &incDiags)
			continue
		}
		if !r.Edge {
			continue
		}
		res := resolveRecord(ctx, st.resolver, r)
		if !res.OK {
			d := diag.New(
				diag.SevWarning, diag.InclResolveFailed, r.Span,
				fmt.Sprintf("cannot resolve include %q", r.Raw),
			).WithConfidence(r.Confidence).WithRange(r.Range)
			d.File = uri
			for _, p := range res.Attempted {
				d = d.WithNote(r.Span, "tried "+p)
			}
			incDiags = append(incDiags, d)
			continue
		}
		edges = append(edges, graph.Edge{
			From:       from,
			To:         st.graph.Node(filepath.ToSlash(res.Path)),
			Span:       r.Span,
			Confidence: r.Confidence.Mul(res.Confidence),
		})
	}

	old := st.graph.Out(from)
	st.graph.SetOutgoing(from, edges)
	st.includeDiags[uri] = incDiags

	if len(old) != len(edges) {
		return true
	}
	for i := range old {
		if old[i] != edges[i] {
			return true
		}
	}
	return false
}

func resolveRecord(ctx context.Context, r *index.Resolver, rec index.Record) index.Resolution {
	if r == nil {
		return index.Resolution{}
	}
	return r.Resolve(ctx, rec.Raw, rec.URI)
}

// refreshBib resolves and indexes one \bibliography reference. A
// missing or unreadable bibliography suppresses unresolved-citation
// noise: the single resolution diagnostic is the informative one.
func (st *state) refreshBib(ctx context.Context, uri string, r index.Record, incDiags *[]diag.Diagnostic) {
	key := uri + "\x00" + r.Raw
	raw := r.Raw
	if filepath.Ext(raw) == "" {
		raw += ".bib"
	}
	var res index.Resolution
	if st.resolver != nil {
		res = st.resolver.Resolve(ctx, raw, uri)
	}
	if !res.OK {
		st.missingBibs[key] = true
		d := diag.New(
			diag.SevWarning, diag.InclResolveFailed, r.Span,
			fmt.Sprintf("bibliography %q not found", r.Raw),
		).WithConfidence(r.Confidence).WithRange(r.Range)
		d.File = uri
		for _, p := range res.Attempted {
			d = d.WithNote(r.Span, "tried "+p)
		}
		*incDiags = append(*incDiags, d)
		return
	}

	path := filepath.ToSlash(res.Path)
	content, err := st.readFile(path)
	if err != nil {
		st.missingBibs[key] = true
		d := diag.New(
			diag.SevWarning, diag.CiteBibParseError, r.Span,
			fmt.Sprintf("bibliography %q is unreadable: %v", path, err),
		).WithRange(r.Range)
		d.File = uri
		*incDiags = append(*incDiags, d)
		return
	}
	delete(st.missingBibs, key)

	f := source.NewFile(st.allocFileID(), path, content)
	recs, bibDiags := index.ScanBib(path, f)
	st.table.SetDocument(path, recs)
	for i := range bibDiags {
		bibDiags[i].File = path
	}
	st.includeDiags[path] = bibDiags
}

func (st *state) allocFileID() source.FileID {
	id := st.nextFileID
	st.nextFileID++
	return id
}

// recheck recomputes the workspace-level diagnostics: label/citation
// checks plus one cycle diagnostic per include cycle at its closing edge.
func (st *state) recheck() {
	st.crossDiags = index.Check(st.table, index.CheckOptions{BibMissing: len(st.missingBibs) > 0})

	for _, c := range st.graph.Cycles() {
		names := make([]string, len(c.Nodes))
		for i, n := range c.Nodes {
			names[i] = st.graph.URI(n)
		}
		d := diag.New(
			diag.SevError, diag.InclCycle, c.Closing.Span,
			"include cycle: "+strings.Join(names, " -> "),
		).WithConfidence(c.Closing.Confidence)
		d.File = st.graph.URI(c.Closing.From)
		st.crossDiags = append(st.crossDiags, d)
	}
}

func (st *state) diagnosticsFor(uri string) []diag.Diagnostic {
	uri = filepath.ToSlash(uri)
	var out []diag.Diagnostic
	if doc, ok := st.docs[uri]; ok {
		out = append(out, doc.Diagnostics...)
	}
	out = append(out, st.includeDiags[uri]...)
	for _, d := range st.crossDiags {
		if d.File == uri {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Primary.Start != out[j].Primary.Start {
			return out[i].Primary.Start < out[j].Primary.Start
		}
		return out[i].Code < out[j].Code
	})
	return out
}

func (st *state) snapshot(doc *Document) Snapshot {
	return Snapshot{
		URI:         doc.URI,
		Version:     doc.Version,
		Text:        append([]byte(nil), doc.File.Content...),
		Tokens:      lexer.Tokens(doc.File),
		Tree:        doc.Tree,
		Records:     append([]index.Record(nil), doc.Records...),
		Diagnostics: st.diagnosticsFor(doc.URI),
	}
}
