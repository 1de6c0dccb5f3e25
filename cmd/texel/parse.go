package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"texel/internal/diag"
	"texel/internal/diagfmt"
	"texel/internal/ir"
	"texel/internal/reconstruct"
	"texel/internal/texlog"
)

var parseCmd = &cobra.Command{
	Use:   "parse [flags] build.log",
	Short: "Parse a TeX log into typed events and diagnostics",
	Long:  `Parse reads a complete engine log and emits the Event IR stream plus the reconstructed diagnostics`,
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

func init() {
	parseCmd.Flags().String("format", "json", "output format (json|pretty)")
	parseCmd.Flags().String("engine", "", "engine identifier recorded in provenance")
}

func runParse(cmd *cobra.Command, args []string) error {
	logPath := args[0]

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	engine, _ := cmd.Flags().GetString("engine")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return &exitError{code: exitInvalid, err: err}
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		// лог не найден — это диагностика тулчейна, а не голая ошибка
		d := reconstruct.Toolchain(diag.LogNotFound, fmt.Sprintf("log file not found: %s", logPath))
		if werr := diagfmt.WriteParseOutput(os.Stdout, nil, []diag.Diagnostic{d}); werr != nil {
			return &exitError{code: exitInternal, err: werr}
		}
		return &exitError{code: exitInvalid}
	}

	events := texlog.Parse(0, data, cfg.Log, cfg.Analysis.ConfidenceThreshold)
	diags := reconstruct.Diagnostics(events, data, reconstruct.Options{
		Cfg:    cfg.Log,
		Engine: engine,
	})

	switch format {
	case "json":
		if err := diagfmt.WriteParseOutput(os.Stdout, events, diags); err != nil {
			return &exitError{code: exitInternal, err: err}
		}
		return nil
	case "pretty":
		for _, e := range events {
			rec := ir.ExportEvent(e)
			fmt.Fprintf(os.Stdout, "%-16s [%d,%d) %.2f %v\n", rec.Kind, rec.Span.Start, rec.Span.End, rec.Confidence, rec.Data)
		}
		maxDiags, _ := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
		bag := diag.NewBag(maxDiags)
		reconstruct.Report(events, data, reconstruct.Options{Cfg: cfg.Log, Engine: engine}, diag.BagReporter{Bag: bag})
		bag.Sort()
		bag.Dedup()
		diagfmt.Pretty(os.Stdout, bag.Items(), diagfmt.PrettyOpts{
			Color:               useColor(cmd, os.Stdout),
			ConfidenceThreshold: cfg.Analysis.ConfidenceThreshold,
		})
		return nil
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}
