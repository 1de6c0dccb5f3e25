package index

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"texel/internal/diag"
)

// Resolver locates the target of an include argument. Resolution is
// conservative and deterministic: precedence is fixed, and the external
// resolver — when configured — is bounded by a timeout and soft-fails.
type Resolver struct {
	// WorkspaceRoots are tried after the including file's directory.
	WorkspaceRoots []string
	// SearchPaths is the configured environment search list.
	SearchPaths []string
	// Exists reports whether a candidate path exists. Tests inject a
	// fake; production uses the filesystem.
	Exists func(path string) bool
	// External is an opt-in resolver of last resort (kpsewhich-like).
	// It must honor ctx cancellation.
	External func(ctx context.Context, raw string) (string, bool)
	// ExternalTimeout bounds External calls.
	ExternalTimeout time.Duration
	// Extensions are the recognized extensions; a raw argument without
	// one gets ".tex" appended.
	Extensions []string
}

// Resolution is the outcome of resolving one include argument.
type Resolution struct {
	Path       string // resolved path, "" when not found
	OK         bool
	Confidence diag.Confidence
	Attempted  []string // every candidate tried, for related info
}

// Resolve locates raw relative to the including document. Paths are
// NFC-normalized before comparison so that visually identical Unicode
// paths match.
func (r *Resolver) Resolve(ctx context.Context, raw, includingURI string) Resolution {
	raw = norm.NFC.String(strings.TrimSpace(raw))
	if raw == "" {
		return Resolution{}
	}

	candidate := raw
	if !r.hasRecognizedExt(candidate) {
		candidate += ".tex"
	}

	var attempted []string
	try := func(p string) (Resolution, bool) {
		p = filepath.ToSlash(filepath.Clean(p))
		attempted = append(attempted, p)
		if r.Exists != nil && r.Exists(p) {
			return Resolution{Path: p, OK: true, Confidence: 1, Attempted: attempted}, true
		}
		return Resolution{}, false
	}

	// 1. явный абсолютный путь
	if filepath.IsAbs(candidate) {
		if res, ok := try(candidate); ok {
			return res
		}
		return Resolution{Attempted: attempted}
	}

	// 2. директория включающего файла
	if includingURI != "" {
		if res, ok := try(filepath.Join(filepath.Dir(includingURI), candidate)); ok {
			return res
		}
	}

	// 3. корни workspace
	for _, root := range r.WorkspaceRoots {
		if res, ok := try(filepath.Join(root, candidate)); ok {
			return res
		}
	}

	// 4. сконфигурированный список поиска
	for _, dir := range r.SearchPaths {
		if res, ok := try(filepath.Join(dir, candidate)); ok {
			return res
		}
	}

	// 5. внешний резолвер: ограниченный таймаут, мягкий отказ
	if r.External != nil {
		timeout := r.ExternalTimeout
		if timeout <= 0 {
			timeout = 300 * time.Millisecond
		}
		ectx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if p, ok := r.External(ectx, candidate); ok && ectx.Err() == nil {
			attempted = append(attempted, p)
			// найден вне обычных корней — доверие снижено
			return Resolution{Path: p, OK: true, Confidence: 0.8, Attempted: attempted}
		}
	}

	return Resolution{Attempted: attempted}
}

func (r *Resolver) hasRecognizedExt(p string) bool {
	ext := strings.ToLower(filepath.Ext(p))
	if ext == "" {
		return false
	}
	if len(r.Extensions) == 0 {
		return true
	}
	for _, e := range r.Extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}
