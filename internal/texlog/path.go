package texlog

import (
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mattn/go-runewidth"

	"texel/internal/config"
	"texel/internal/diag"
	"texel/internal/source"
)

// pathResult is the outcome of scanning a path candidate after '('.
type pathResult struct {
	path       string
	span       source.Span // from '(' through the last path byte
	conf       diag.Confidence
	endLine    int // feed line index where scanning stopped
	endChar    int // byte index into that line's Content after the path
	joined     int
	incomplete bool // need more bytes to decide
	ok         bool // heuristic accepted the candidate
}

// частые ложные срабатывания из реальных логов: "Latexmk: (Info)",
// "TeX Live (preloaded format=...)"
var pathBlacklist = map[string]bool{
	"Info":      true,
	"preloaded": true,
	"TeX":       true,
	"con":       true,
}

// continuation blacklist beyond classified lines: banner lines that start
// a new structure without being warnings or errors.
var noJoinPrefixes = []string{
	"LaTeX",
	"Document Class:",
	"L3 programming",
}

// extractPath scans a path candidate starting at lines[li].Content[ci]
// (the byte after '(' at absolute position openPos). Spaces and ')'
// terminate the candidate. When a line ends mid-candidate the guarded
// wrap-join may continue onto the next line, bounded by cfg.MaxJoin
// fragments; the join never mutates the buffer, the resulting span
// covers all fragments.
func extractPath(f *feed, li, ci int, openPos uint32, cfg *config.Log, atEOF bool) pathResult {
	var b strings.Builder
	curLine, curChar := li, ci
	joined := 0

	for {
		line := f.lines[curLine].Line
		rem := line.Content[curChar:]

		if idx := indexTerminator(rem); idx >= 0 {
			b.Write(rem[:idx])
			end := curChar + idx
			return finishPath(b.String(), line.Span.File, openPos, line.Span.Start+uint32(end), curLine, end, joined, cfg)
		}

		b.Write(rem)

		// Guard 1: the line must end in a syntactically incomplete state —
		// wrapped at the engine's wrap column, or no extension seen yet.
		wide := runewidth.StringWidth(string(line.Content)) >= cfg.WrapColumn-1
		if !wide && hasRecognizedExt(b.String(), cfg) {
			return finishPath(b.String(), line.Span.File, openPos, line.Span.End, curLine, len(line.Content), joined, cfg)
		}
		if joined+1 >= cfg.MaxJoin {
			// жёсткий потолок: join всегда завершается
			return finishPath(b.String(), line.Span.File, openPos, line.Span.End, curLine, len(line.Content), joined, cfg)
		}
		if curLine+1 >= len(f.lines) {
			if atEOF {
				return finishPath(b.String(), line.Span.File, openPos, line.Span.End, curLine, len(line.Content), joined, cfg)
			}
			return pathResult{incomplete: true}
		}
		if curLine+1 == f.partialIdx && !atEOF {
			// следующая строка ещё не завершена: решение о склейке откладываем
			return pathResult{incomplete: true}
		}

		// Guard 2: the next line must look like a continuation, not the
		// start of a new structure.
		next := f.lines[curLine+1].Line
		if !joinable(next, cfg) {
			return finishPath(b.String(), line.Span.File, openPos, line.Span.End, curLine, len(line.Content), joined, cfg)
		}

		joined++
		curLine++
		curChar = 0
	}
}

func finishPath(candidate string, file source.FileID, openPos, spanEnd uint32, endLine, endChar, joined int, cfg *config.Log) pathResult {
	ok, conf := acceptPath(candidate, cfg)
	if !ok {
		return pathResult{ok: false, endLine: endLine, endChar: endChar}
	}
	for i := 0; i < joined; i++ {
		conf = conf.Mul(0.95)
	}
	return pathResult{
		path:    candidate,
		span:    source.Span{File: file, Start: openPos, End: spanEnd},
		conf:    conf,
		endLine: endLine,
		endChar: endChar,
		joined:  joined,
		ok:      true,
	}
}

func indexTerminator(rem []byte) int {
	for i, b := range rem {
		if b == ')' || b == ' ' || b == '\t' {
			return i
		}
	}
	return -1
}

// joinable reports whether line may continue a wrapped structure:
// not blank, not a recognized boundary, not a paren line, not a banner.
func joinable(line Line, cfg *config.Log) bool {
	if line.Blank() {
		return false
	}
	if cls, _ := classify(line, cfg.WarningPrefixes); cls != classOther {
		return false
	}
	switch line.Content[0] {
	case '(', ')':
		return false
	}
	s := string(line.Content)
	for _, p := range noJoinPrefixes {
		if strings.HasPrefix(s, p) {
			return false
		}
	}
	return true
}

// acceptPath applies the path heuristic: shapes that must be accepted,
// a blacklist of known false positives, and confidence demotion when the
// candidate has no recognized extension.
func acceptPath(candidate string, cfg *config.Log) (bool, diag.Confidence) {
	if candidate == "" || pathBlacklist[candidate] {
		return false, 0
	}

	likely := strings.HasPrefix(candidate, "./") ||
		strings.HasPrefix(candidate, "../") ||
		strings.HasPrefix(candidate, "/") ||
		strings.Contains(candidate, "/")
	if !likely && runtime.GOOS == "windows" && isDrivePath(candidate) {
		likely = true
	}
	if !likely && strings.Contains(candidate, ".") && !strings.HasSuffix(candidate, ".") {
		likely = true
	}
	if !likely {
		return false, 0
	}

	if hasRecognizedExt(candidate, cfg) {
		return true, 0.95
	}
	return true, 0.7
}

func isDrivePath(s string) bool {
	if len(s) < 3 {
		return false
	}
	c := s[0]
	letter := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
	return letter && s[1] == ':' && (s[2] == '/' || s[2] == '\\')
}

func hasRecognizedExt(candidate string, cfg *config.Log) bool {
	ext := strings.ToLower(filepath.Ext(candidate))
	if ext == "" {
		return false
	}
	for _, e := range cfg.PathExtensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}
