package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"texel/internal/diag"
	"texel/internal/diagfmt"
	"texel/internal/index"
	"texel/internal/workspace"
)

var indexCmd = &cobra.Command{
	Use:   "index [flags] <root>",
	Short: "Index a workspace and report cross-file diagnostics",
	Long:  `Index walks the root for .tex/.bib/.sty/.cls files, builds the symbol index and include graph, and reports duplicate labels, unresolved references, cycles, and resolution failures`,
	Args:  cobra.ExactArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().Bool("watch", false, "keep watching the root for changes")
	indexCmd.Flags().Bool("no-cache", false, "disable the on-disk extraction cache")
	indexCmd.Flags().String("symbols", "", "also print workspace symbols matching the query")
}

func runIndex(cmd *cobra.Command, args []string) error {
	root := args[0]
	watch, _ := cmd.Flags().GetBool("watch")
	noCache, _ := cmd.Flags().GetBool("no-cache")
	symbolQuery, _ := cmd.Flags().GetString("symbols")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return &exitError{code: exitInvalid, err: err}
	}
	if st, err := os.Stat(root); err != nil || !st.IsDir() {
		return &exitError{code: exitInvalid, err: fmt.Errorf("workspace root %q is not a directory", root)}
	}

	var cache *workspace.Cache
	if !noCache {
		// кэш — ускоритель; без него просто медленнее
		cache, _ = workspace.OpenCache("texel")
	}
	resolver := &index.Resolver{
		WorkspaceRoots:  append([]string{root}, cfg.Analysis.WorkspaceRoots...),
		SearchPaths:     cfg.Analysis.SearchPaths,
		Exists:          fileExists,
		ExternalTimeout: cfg.Analysis.ResolverTimeout(),
		Extensions:      cfg.Log.PathExtensions,
	}
	w := workspace.New(cfg.Analysis, workspace.Options{Resolver: resolver, Cache: cache})
	defer w.Close()
	ctx := context.Background()

	if err := w.IndexRoot(ctx, root); err != nil {
		return &exitError{code: exitInternal, err: err}
	}
	if err := printWorkspaceReport(cmd, w, cfg.Analysis.ConfidenceThreshold, symbolQuery); err != nil {
		return err
	}
	if !watch {
		return nil
	}

	watcher, err := workspace.NewWatcher([]string{root}, cfg.Analysis.DebounceWindow())
	if err != nil {
		return &exitError{code: exitInternal, err: err}
	}
	defer func() { _ = watcher.Close() }()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	for {
		select {
		case batch, ok := <-watcher.Events():
			if !ok {
				return nil
			}
			if err := w.ApplyFSEvents(ctx, batch); err != nil {
				return &exitError{code: exitInternal, err: err}
			}
			fmt.Fprintf(os.Stdout, "-- %d change(s)\n", len(batch))
			if err := printWorkspaceReport(cmd, w, cfg.Analysis.ConfidenceThreshold, symbolQuery); err != nil {
				return err
			}
		case <-sig:
			return nil
		}
	}
}

func printWorkspaceReport(cmd *cobra.Command, w *workspace.Workspace, threshold float64, symbolQuery string) error {
	ctx := context.Background()
	all, err := w.AllDiagnostics(ctx)
	if err != nil {
		return &exitError{code: exitInternal, err: err}
	}

	uris := make([]string, 0, len(all))
	for uri := range all {
		uris = append(uris, uri)
	}
	sort.Strings(uris)

	maxDiags, _ := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	bag := diag.NewBag(maxDiags)
	for _, uri := range uris {
		for _, d := range all[uri] {
			bag.Add(d)
		}
	}
	bag.Dedup()
	diagfmt.Pretty(os.Stdout, bag.Items(), diagfmt.PrettyOpts{
		Color:               useColor(cmd, os.Stdout),
		ConfidenceThreshold: threshold,
	})

	if symbolQuery != "" {
		syms, err := w.WorkspaceSymbols(ctx, symbolQuery)
		if err != nil {
			return &exitError{code: exitInternal, err: err}
		}
		for _, s := range syms {
			fmt.Fprintf(os.Stdout, "%s %s %s:%d\n", s.Kind, s.Name, s.URI, s.Range.Start.Line+1)
		}
	}
	return nil
}
