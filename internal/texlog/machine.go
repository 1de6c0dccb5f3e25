package texlog

import (
	"math"
	"path/filepath"
	"strings"

	"github.com/mattn/go-runewidth"

	"texel/internal/config"
	"texel/internal/diag"
	"texel/internal/source"
)

// state of the event machine. The stream is unbounded: there is no
// terminal state.
type state uint8

const (
	stTop state = iota
	stInError
	stAfterLineRef
)

// fileRef is one entry of the reconstructed file-context stack.
type fileRef struct {
	Path       string
	Confidence diag.Confidence
	EnterIndex int // event index of the FileEnter
}

// feedLine is a logical line plus the offset of the first byte after its
// terminator, used for anchor placement.
type feedLine struct {
	Line
	nextOff uint32
}

type feed struct {
	lines      []feedLine
	partialIdx int // index of the unterminated tail line, -1 if none
}

// machine converts log tokens into typed events with explicit recovery.
// It never panics on arbitrary bytes; unrecognized input is text, and
// structural ambiguity becomes Info events with stable recovery codes.
type machine struct {
	cfg       *config.Log
	threshold diag.Confidence

	state  state
	stack  []fileRef
	events []Event
	ambig  []int // event indices of recent ambiguous interpretations
}

func newMachine(cfg *config.Log, threshold float64) *machine {
	return &machine{cfg: cfg, threshold: diag.Confidence(threshold)}
}

// snapshot captures resumable machine state for a synchronization anchor.
type snapshot struct {
	off    uint32
	events int
	state  state
	stack  []fileRef
	ambig  []int
}

func (m *machine) capture(off uint32) snapshot {
	return snapshot{
		off:    off,
		events: len(m.events),
		state:  m.state,
		stack:  append([]fileRef(nil), m.stack...),
		ambig:  append([]int(nil), m.ambig...),
	}
}

func (m *machine) restore(s snapshot) {
	m.events = m.events[:s.events]
	m.state = s.state
	m.stack = append(m.stack[:0], s.stack...)
	m.ambig = append(m.ambig[:0], s.ambig...)
}

// decayFactor computes the confidence multiplier from recent ambiguity:
// decay^k for k ambiguous events within the configured window, floored.
func (m *machine) decayFactor() diag.Confidence {
	lo := len(m.events) - m.cfg.AmbiguityWindow
	k := 0
	for _, idx := range m.ambig {
		if idx >= lo {
			k++
		}
	}
	if k == 0 {
		return 1
	}
	f := math.Pow(m.cfg.AmbiguityDecay, float64(k))
	if f < m.cfg.AmbiguityFloor {
		f = m.cfg.AmbiguityFloor
	}
	return diag.Confidence(f)
}

func (m *machine) emit(ev Event) int {
	ev.Confidence = ev.Confidence.Mul(m.decayFactor())
	m.events = append(m.events, ev)
	return len(m.events) - 1
}

func (m *machine) markAmbiguous(eventIdx int) {
	lo := len(m.events) - m.cfg.AmbiguityWindow
	pruned := m.ambig[:0]
	for _, idx := range m.ambig {
		if idx >= lo {
			pruned = append(pruned, idx)
		}
	}
	m.ambig = append(pruned, eventIdx)
}

// run processes the feed. It returns the index of the first unprocessed
// line and whether processing stopped because a structure is incomplete
// and more bytes are needed.
func (m *machine) run(f *feed, atEOF bool, onAnchor func(lineIdx int)) (int, bool) {
	li := 0
	for li < len(f.lines) {
		var consumed int
		var incomplete, hint bool

		switch m.state {
		case stTop:
			consumed, incomplete, hint = m.topLine(f, li, atEOF)
		default:
			consumed, hint = m.errorLine(f, li)
			if consumed == 0 {
				// граница ошибки: строка переобрабатывается в Top
				continue
			}
		}
		if incomplete {
			return li, true
		}
		li += consumed

		lastIdx := li - 1
		provisional := f.partialIdx >= 0 && lastIdx >= f.partialIdx
		if hint && !provisional && m.state == stTop && onAnchor != nil {
			onAnchor(lastIdx)
		}
	}
	return li, false
}

// errorLine handles one line in the InError/AfterLineRef states.
// consumed 0 means the line is a boundary: state has been reset to Top
// and the caller must reprocess the same line there.
func (m *machine) errorLine(f *feed, li int) (consumed int, hint bool) {
	line := f.lines[li].Line
	cls, _ := classify(line, m.cfg.WarningPrefixes)

	switch cls {
	case classBlank:
		m.state = stTop
		return 1, true

	case classBang:
		// новый '!' закрывает предыдущий блок и открывает новый
		m.emit(Event{
			Kind:       EvErrorStart,
			Span:       line.Span,
			Confidence: diag.Certain,
			Message:    strings.TrimSpace(string(line.Content[1:])),
		})
		m.state = stInError
		return 1, false

	case classLineRef:
		n, head, _ := parseLineRef(line.Content)
		excerpt := strings.TrimSpace(string(line.Content[head:]))
		m.emit(Event{
			Kind:       EvErrorLineRef,
			Span:       line.Span,
			Confidence: diag.Certain,
			Line:       n,
			Excerpt:    excerpt,
		})
		m.state = stAfterLineRef
		return 1, false

	case classPrompt:
		m.emit(Event{
			Kind:       EvInfo,
			Span:       line.Span,
			Confidence: diag.Certain,
			Message:    string(line.Content),
		})
		m.state = stTop
		return 1, true

	case classWarning, classOutput, classSummary:
		m.state = stTop
		return 0, false

	default:
		if m.state == stInError && line.Content[0] != '(' && line.Content[0] != ')' {
			m.emit(Event{
				Kind:       EvErrorContextLine,
				Span:       line.Span,
				Confidence: diag.Certain,
				Message:    string(line.Content),
			})
			return 1, false
		}
		m.state = stTop
		return 0, false
	}
}

// topLine handles one line in the Top state. It may consume several
// lines when a wrapped path or folded warning spans them.
func (m *machine) topLine(f *feed, li int, atEOF bool) (consumed int, incomplete, hint bool) {
	line := f.lines[li].Line
	cls, _ := classify(line, m.cfg.WarningPrefixes)

	switch cls {
	case classBlank:
		return 1, false, false

	case classBang:
		m.emit(Event{
			Kind:       EvErrorStart,
			Span:       line.Span,
			Confidence: diag.Certain,
			Message:    strings.TrimSpace(string(line.Content[1:])),
		})
		m.state = stInError
		return 1, false, false

	case classWarning:
		return m.warningLine(f, li), false, false

	case classOutput:
		m.outputLine(line)
		return 1, false, true

	case classSummary:
		m.emit(Event{
			Kind:       EvBuildSummary,
			Span:       line.Span,
			Confidence: diag.Certain,
			Success:    false,
		})
		return 1, false, true

	default:
		// classLineRef и classPrompt вне контекста ошибки — обычный текст
		return m.scanLine(f, li, atEOF)
	}
}

// warningLine emits a Warning, folding continuation lines that are
// clearly part of the message (indented, or following a line wrapped at
// the engine's wrap column) under the join ceiling.
func (m *machine) warningLine(f *feed, li int) (consumed int) {
	line := f.lines[li].Line
	msg := strings.TrimSpace(string(line.Content))
	span := line.Span
	conf := diag.Certain
	wide := runewidth.StringWidth(string(line.Content)) >= m.cfg.WrapColumn-1

	folded := 0
	for folded < m.cfg.MaxJoin-1 {
		ni := li + 1 + folded
		if ni >= len(f.lines) {
			break
		}
		next := f.lines[ni].Line
		if next.Blank() {
			break
		}
		if cls, _ := classify(next, m.cfg.WarningPrefixes); cls != classOther {
			break
		}
		indented := next.Content[0] == ' ' || next.Content[0] == '\t'
		if !indented && !wide {
			break
		}
		if next.Content[0] == '(' || next.Content[0] == ')' {
			break
		}
		msg += " " + strings.TrimSpace(string(next.Content))
		span = span.Cover(next.Span)
		conf = conf.Mul(0.95)
		wide = runewidth.StringWidth(string(next.Content)) >= m.cfg.WrapColumn-1
		folded++
	}

	m.emit(Event{
		Kind:       EvWarning,
		Span:       span,
		Confidence: conf,
		Message:    msg,
	})
	return 1 + folded
}

// outputLine parses "Output written on <path> (...)." into an artifact
// plus a successful build summary.
func (m *machine) outputLine(line Line) {
	rest := strings.TrimPrefix(string(line.Content), "Output written on ")
	path := rest
	if idx := strings.LastIndex(rest, " ("); idx > 0 {
		path = rest[:idx]
	}
	path = strings.TrimSpace(path)
	format := strings.TrimPrefix(filepath.Ext(path), ".")

	m.emit(Event{
		Kind:       EvOutputArtifact,
		Span:       line.Span,
		Confidence: diag.Certain,
		Path:       path,
		Format:     format,
		Role:       "primary",
	})
	m.emit(Event{
		Kind:       EvBuildSummary,
		Span:       line.Span,
		Confidence: diag.Certain,
		Success:    true,
	})
}

// scanLine walks the paren/text tokens of a line, following wrapped
// paths onto subsequent lines when the guard conditions hold.
func (m *machine) scanLine(f *feed, li int, atEOF bool) (consumed int, incomplete, hint bool) {
	curLine, curChar := li, 0
	snap := m.capture(0)

	for {
		line := f.lines[curLine].Line
		sub := subLine(line, curChar)
		resumed := false

		for _, tk := range scanRuns(sub) {
			switch tk.Kind {
			case TokLParen:
				ci := int(tk.Span.Start-line.Span.Start) + 1
				res := extractPath(f, curLine, ci, tk.Span.Start, m.cfg, atEOF)
				if res.incomplete {
					// откатываем эффекты уже обработанных токенов строки:
					// она будет переобработана целиком, когда данных хватит
					m.restore(snap)
					return 0, true, false
				}
				if !res.ok {
					continue // '(' — просто текст
				}
				if len(m.stack) == 0 {
					hint = true
				}
				ev := Event{
					Kind:       EvFileEnter,
					Span:       res.span,
					Confidence: res.conf,
					Path:       res.path,
				}
				if res.conf < m.threshold {
					ev.Code = diag.LogSuspiciousEnter
				}
				idx := m.emit(ev)
				if ev.Code != 0 {
					m.markAmbiguous(idx)
				}
				m.stack = append(m.stack, fileRef{
					Path:       res.path,
					Confidence: m.events[idx].Confidence,
					EnterIndex: idx,
				})
				curLine, curChar = res.endLine, res.endChar
				resumed = true

			case TokRParen:
				if len(m.stack) > 0 {
					popped := m.stack[len(m.stack)-1]
					m.stack = m.stack[:len(m.stack)-1]
					// выход не достовернее соответствующего входа
					m.emit(Event{
						Kind:       EvFileExit,
						Span:       tk.Span,
						Confidence: popped.Confidence,
					})
					if len(m.stack) == 0 {
						hint = true
					}
				} else {
					idx := m.emit(Event{
						Kind:       EvInfo,
						Span:       tk.Span,
						Confidence: 0.5,
						Message:    "Unmatched closing parenthesis",
						Code:       diag.LogUnmatchedFileExit,
					})
					m.markAmbiguous(idx)
				}
			}
			if resumed {
				break
			}
		}

		if !resumed {
			return curLine - li + 1, false, hint
		}
	}
}

func subLine(line Line, fromChar int) Line {
	return Line{
		Content: line.Content[fromChar:],
		Span: source.Span{
			File:  line.Span.File,
			Start: line.Span.Start + uint32(fromChar),
			End:   line.Span.End,
		},
	}
}
