package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"texel/internal/cst"
	"texel/internal/diagfmt"
	"texel/internal/index"
	"texel/internal/ir"
	"texel/internal/workspace"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [flags] file.tex...",
	Short: "Analyze LaTeX sources into tokens, CST, and index records",
	Long:  `Analyze runs the source pipeline over each file and emits the Source IR snapshot, the tree, or pretty diagnostics`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().String("format", "json", "output format (json|tree|pretty)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return &exitError{code: exitInvalid, err: err}
	}

	resolver := &index.Resolver{
		WorkspaceRoots:  cfg.Analysis.WorkspaceRoots,
		SearchPaths:     cfg.Analysis.SearchPaths,
		Exists:          fileExists,
		ExternalTimeout: cfg.Analysis.ResolverTimeout(),
		Extensions:      cfg.Log.PathExtensions,
	}
	w := workspace.New(cfg.Analysis, workspace.Options{Resolver: resolver})
	defer w.Close()
	ctx := context.Background()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	for _, path := range args {
		content, err := os.ReadFile(path)
		if err != nil {
			return &exitError{code: exitInvalid, err: err}
		}
		snap, err := w.DidOpen(ctx, path, content)
		if err != nil {
			return &exitError{code: exitInternal, err: err}
		}

		switch format {
		case "json":
			if err := enc.Encode(ir.ExportSnapshot(snap)); err != nil {
				return &exitError{code: exitInternal, err: err}
			}
		case "tree":
			fmt.Fprintf(os.Stdout, "== %s\n%s", path, cst.Dump(snap.Tree))
		case "pretty":
			diagfmt.Pretty(os.Stdout, snap.Diagnostics, diagfmt.PrettyOpts{
				Color:               useColor(cmd, os.Stdout),
				ConfidenceThreshold: cfg.Analysis.ConfidenceThreshold,
			})
		default:
			return fmt.Errorf("unknown format: %s", format)
		}
	}
	return nil
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
