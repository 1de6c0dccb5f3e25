package workspace

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"texel/internal/cst"
	"texel/internal/diag"
	"texel/internal/index"
	"texel/internal/source"
)

// FSOp classifies a filesystem change.
type FSOp uint8

const (
	FSCreate FSOp = iota
	FSModify
	FSDelete
)

// FSEvent is one debounced filesystem event.
type FSEvent struct {
	Path string
	Op   FSOp
}

// watchedExts are the patterns the invalidator reacts to.
var watchedExts = map[string]bool{
	".tex": true, ".bib": true, ".sty": true, ".cls": true,
}

// Watched reports whether path matters to the analysis state.
func Watched(path string) bool {
	return watchedExts[strings.ToLower(filepath.Ext(path))]
}

// ApplyFSEvents translates a batch of filesystem events into minimal
// recomputation: create/delete invalidate graph edges, modify reindexes
// the file. Open documents win over their on-disk contents.
func (w *Workspace) ApplyFSEvents(ctx context.Context, events []FSEvent) error {
	return w.post(ctx, func(st *state) {
		changed := false
		for _, ev := range events {
			if !Watched(ev.Path) {
				continue
			}
			uri := filepath.ToSlash(ev.Path)
			if _, open := st.docs[uri]; open {
				continue
			}
			switch ev.Op {
			case FSDelete:
				st.table.RemoveDocument(uri)
				if id, ok := st.graph.Lookup(uri); ok {
					st.graph.SetOutgoing(id, nil)
				}
				delete(st.includeDiags, uri)
				changed = true
			case FSCreate, FSModify:
				if st.indexFromDisk(ctx, uri) {
					changed = true
				}
			}
		}
		if changed {
			st.recheck()
		}
	})
}

// indexFromDisk loads and indexes one file. Reports whether the state
// changed.
func (st *state) indexFromDisk(ctx context.Context, uri string) bool {
	content, err := st.readFile(uri)
	if err != nil {
		// файл исчез между событием и чтением — эквивалент delete
		st.table.RemoveDocument(uri)
		delete(st.includeDiags, uri)
		return true
	}

	f := source.NewFile(st.allocFileID(), uri, content)
	if strings.EqualFold(filepath.Ext(uri), ".bib") {
		recs, bibDiags := index.ScanBib(uri, f)
		st.table.SetDocument(uri, recs)
		for i := range bibDiags {
			bibDiags[i].File = uri
		}
		st.includeDiags[uri] = bibDiags
		return true
	}

	tree := cst.Parse(f)
	var recs []index.Record
	if st.cache != nil {
		if cached, ok := st.cache.Get(f.Hash); ok {
			recs = cached
		}
	}
	if recs == nil {
		recs = index.Extract(tree, uri)
		if st.cache != nil {
			st.cache.Put(f.Hash, recs)
		}
	}

	parseDiags := cst.ParseDiagnostics(tree)
	for i := range parseDiags {
		parseDiags[i].File = uri
	}

	changed := st.table.SetDocument(uri, recs)
	edgesChanged := st.refreshEdges(ctx, uri, recs)
	st.includeDiags[uri] = append(parseDiags, st.includeDiags[uri]...)
	return len(changed) > 0 || edgesChanged || len(parseDiags) > 0
}

// IndexRoot walks root and indexes every watched file, parsing in
// parallel and applying the results atomically on the owner goroutine.
func (w *Workspace) IndexRoot(ctx context.Context, root string) error {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && Watched(path) {
			files = append(files, filepath.ToSlash(path))
		}
		return nil
	})
	if err != nil {
		return err
	}
	sort.Strings(files)

	// резервируем диапазон FileID у владельца до параллельной фазы
	var base source.FileID
	if err := w.post(ctx, func(st *state) {
		base = st.nextFileID
		st.nextFileID += source.FileID(len(files))
	}); err != nil {
		return err
	}

	type parsed struct {
		uri   string
		recs  []index.Record
		diags []diag.Diagnostic
	}
	results := make([]*parsed, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			content, err := os.ReadFile(path)
			if err != nil {
				return nil // файл исчез по дороге — пропускаем
			}
			f := source.NewFile(base+source.FileID(i), path, content)

			p := &parsed{uri: path}
			if strings.EqualFold(filepath.Ext(path), ".bib") {
				p.recs, p.diags = index.ScanBib(path, f)
			} else {
				tree := cst.Parse(f)
				p.recs = index.Extract(tree, path)
				p.diags = cst.ParseDiagnostics(tree)
			}
			for j := range p.diags {
				p.diags[j].File = path
			}
			results[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return w.post(ctx, func(st *state) {
		for _, p := range results {
			if p == nil {
				continue
			}
			st.table.SetDocument(p.uri, p.recs)
			st.refreshEdges(ctx, p.uri, p.recs)
			st.includeDiags[p.uri] = append(p.diags, st.includeDiags[p.uri]...)
		}
		st.recheck()
	})
}

// AllDiagnostics returns every known diagnostic grouped by URI.
func (w *Workspace) AllDiagnostics(ctx context.Context) (map[string][]diag.Diagnostic, error) {
	out := make(map[string][]diag.Diagnostic)
	err := w.post(ctx, func(st *state) {
		uris := make(map[string]bool)
		for uri := range st.docs {
			uris[uri] = true
		}
		for uri := range st.includeDiags {
			uris[uri] = true
		}
		for _, d := range st.crossDiags {
			if d.File != "" {
				uris[d.File] = true
			}
		}
		for uri := range uris {
			if diags := st.diagnosticsFor(uri); len(diags) > 0 {
				out[uri] = diags
			}
		}
	})
	return out, err
}
