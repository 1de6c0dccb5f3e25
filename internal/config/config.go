// Package config loads texel.toml and provides the tuning knobs shared
// by both cores: wrap-join limits, warning prefixes, confidence
// thresholds and penalties, debounce windows, and include search paths.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Log configures the log reconstruction core.
type Log struct {
	// WrapColumn is the display width at which TeX engines wrap lines.
	WrapColumn int `toml:"wrap_column"`
	// MaxJoin is the hard ceiling on joined fragments per structure.
	MaxJoin int `toml:"max_join"`
	// WarningPrefixes lists the recognized warning line prefixes.
	// "Package * Warning:" is matched structurally, not literally.
	WarningPrefixes []string `toml:"warning_prefixes"`
	// PathExtensions lists extensions that raise path-recognition confidence.
	PathExtensions []string `toml:"path_extensions"`
	// QuotedPaths enables the quoted-path convention; off by default,
	// spaces terminate path candidates.
	QuotedPaths bool `toml:"quoted_paths"`
	// NoStackPenalty multiplies confidence when the file stack is empty.
	NoStackPenalty float64 `toml:"no_stack_penalty"`
	// ExcerptColumnPenalty multiplies confidence when a column was
	// inferred by excerpt substring search.
	ExcerptColumnPenalty float64 `toml:"excerpt_column_penalty"`
	// AmbiguityDecay multiplies subsequent event confidence per ambiguous
	// event within AmbiguityWindow events; floored at AmbiguityFloor.
	AmbiguityDecay  float64 `toml:"ambiguity_decay"`
	AmbiguityWindow int     `toml:"ambiguity_window"`
	AmbiguityFloor  float64 `toml:"ambiguity_floor"`
	// MaxExcerpt bounds the log excerpt attached to provenance, bytes.
	MaxExcerpt int `toml:"max_excerpt"`
}

// Analysis configures the source analysis core.
type Analysis struct {
	// ConfidenceThreshold partitions displayed-as-certain from
	// displayed-as-uncertain records.
	ConfidenceThreshold float64 `toml:"confidence_threshold"`
	// SubfileConfidence is checked to lie in [0, 1] on load; the index
	// does not read it and gates \subfile include edges with its own
	// fixed confidence (index.SubfileConfidence).
	SubfileConfidence float64 `toml:"subfile_confidence"`
	// WorkspaceRoots are extra roots for include resolution.
	WorkspaceRoots []string `toml:"workspace_roots"`
	// SearchPaths is the configured environment search list (TEXINPUTS-like).
	SearchPaths []string `toml:"search_paths"`
	// ResolverTimeoutMS bounds external resolver calls, milliseconds.
	ResolverTimeoutMS int `toml:"resolver_timeout_ms"`
	// DebounceMS coalesces filesystem event bursts, milliseconds.
	DebounceMS int `toml:"debounce_ms"`
	// MaxDiagnostics is loaded with the rest of the configuration; no
	// part of the analysis reads it, so per-document diagnostic output
	// is not bounded.
	MaxDiagnostics int `toml:"max_diagnostics"`
}

// ResolverTimeout returns the external resolver bound.
func (a Analysis) ResolverTimeout() time.Duration {
	return time.Duration(a.ResolverTimeoutMS) * time.Millisecond
}

// DebounceWindow returns the file-watch coalescing window.
func (a Analysis) DebounceWindow() time.Duration {
	return time.Duration(a.DebounceMS) * time.Millisecond
}

// Config is the root of texel.toml.
type Config struct {
	Log      Log      `toml:"log"`
	Analysis Analysis `toml:"analysis"`
}

// Default returns the built-in configuration. Every field can be
// overridden from texel.toml.
func Default() Config {
	return Config{
		Log: Log{
			WrapColumn: 79,
			MaxJoin:    3,
			WarningPrefixes: []string{
				"LaTeX Warning:",
				"Package * Warning:",
				`Overfull \hbox`,
				`Underfull \hbox`,
			},
			PathExtensions: []string{
				".tex", ".sty", ".cls", ".bib", ".aux", ".toc", ".bbl",
				".out", ".lof", ".lot", ".def", ".cfg", ".fd", ".ltx",
			},
			NoStackPenalty:       0.5,
			ExcerptColumnPenalty: 0.9,
			AmbiguityDecay:       0.9,
			AmbiguityWindow:      32,
			AmbiguityFloor:       0.5,
			MaxExcerpt:           256,
		},
		Analysis: Analysis{
			ConfidenceThreshold: 0.8,
			SubfileConfidence:   0.8,
			ResolverTimeoutMS:   300,
			DebounceMS:          100,
			MaxDiagnostics:      1000,
		},
	}
}

// Load reads texel.toml at path and overlays it onto the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	return cfg.validated()
}

func (c Config) validated() (Config, error) {
	if c.Log.WrapColumn < 8 {
		return c, fmt.Errorf("log.wrap_column %d is below the minimum of 8", c.Log.WrapColumn)
	}
	if c.Log.MaxJoin < 1 {
		return c, fmt.Errorf("log.max_join must be at least 1, got %d", c.Log.MaxJoin)
	}
	for _, v := range []float64{
		c.Log.NoStackPenalty, c.Log.ExcerptColumnPenalty,
		c.Log.AmbiguityDecay, c.Log.AmbiguityFloor,
		c.Analysis.ConfidenceThreshold, c.Analysis.SubfileConfidence,
	} {
		if v < 0 || v > 1 {
			return c, fmt.Errorf("confidence factor %v is outside [0, 1]", v)
		}
	}
	return c, nil
}
