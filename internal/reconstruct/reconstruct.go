// Package reconstruct attaches log events to source locations: it
// replays the event stream, tracks the file-context stack, and produces
// diagnostic records with composed confidences and full provenance.
package reconstruct

import (
	"regexp"
	"strconv"
	"strings"

	"texel/internal/config"
	"texel/internal/diag"
	"texel/internal/source"
	"texel/internal/texlog"
)

// Options configures reconstruction.
type Options struct {
	Cfg    config.Log
	Engine string // engine identifier recorded in provenance, may be empty
	// Lookup returns the 1-based source line text for column inference.
	// When nil, no column inference is attempted.
	Lookup func(path string, line uint32) (string, bool)
}

type stackEntry struct {
	path string
	conf diag.Confidence
}

var inputLineRe = regexp.MustCompile(` on input line (\d+)\.?\s*$`)

// Diagnostics converts an event stream into diagnostic records. raw is
// the log buffer the events reference; it is only read through event
// spans, never reinterpreted.
func Diagnostics(events []texlog.Event, raw []byte, opts Options) []diag.Diagnostic {
	var out []diag.Diagnostic
	var stack []stackEntry

	for i := 0; i < len(events); i++ {
		ev := events[i]
		switch ev.Kind {
		case texlog.EvFileEnter:
			stack = append(stack, stackEntry{path: ev.Path, conf: ev.Confidence})

		case texlog.EvFileExit:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}

		case texlog.EvErrorStart:
			d, consumed := errorDiagnostic(events, i, raw, stack, opts)
			out = append(out, d)
			i += consumed

		case texlog.EvWarning:
			out = append(out, warningDiagnostic(ev, raw, stack, opts))

		case texlog.EvInfo:
			if ev.Code != 0 {
				out = append(out, infoDiagnostic(ev, raw, stack, opts))
			}
		}
	}
	return out
}

// Report feeds the reconstructed diagnostics to a Reporter, the same
// contract the source pipeline phases use.
func Report(events []texlog.Event, raw []byte, opts Options, r diag.Reporter) {
	for _, d := range Diagnostics(events, raw, opts) {
		r.Report(d)
	}
}

// errorDiagnostic builds the record for a '!' block starting at events[i].
// It consumes the trailing ErrorLineRef/ErrorContextLine events of the
// same block and returns how many were folded in.
func errorDiagnostic(events []texlog.Event, i int, raw []byte, stack []stackEntry, opts Options) (diag.Diagnostic, int) {
	start := events[i]
	span := start.Span
	conf := start.Confidence

	var lineRef *texlog.Event
	consumed := 0
	for j := i + 1; j < len(events); j++ {
		switch events[j].Kind {
		case texlog.EvErrorLineRef:
			if lineRef == nil {
				lineRef = &events[j]
			}
			span = span.Cover(events[j].Span)
			consumed = j - i
			continue
		case texlog.EvErrorContextLine:
			span = span.Cover(events[j].Span)
			consumed = j - i
			continue
		}
		break
	}

	d := diag.New(diag.SevError, diag.TexError, span, start.Message)
	d.File, conf = associateFile(stack, conf, opts)

	if lineRef != nil {
		conf = conf.Mul(lineRef.Confidence)
		pos := source.Position{Line: lineRef.Line - 1, Character: 0}
		if lineRef.Excerpt != "" && opts.Lookup != nil && d.File != "" {
			if text, ok := opts.Lookup(d.File, lineRef.Line); ok {
				// поиск подстроки допустим, но обязан снижать уверенность
				if idx := strings.Index(text, lineRef.Excerpt); idx >= 0 &&
					strings.Count(text, lineRef.Excerpt) == 1 {
					pos.Character = uint32(idx)
					conf = conf.Mul(diag.Confidence(opts.Cfg.ExcerptColumnPenalty))
				}
			}
		}
		d = d.WithRange(source.Range{Start: pos, End: pos})
	}

	d.Confidence = conf.Clamp()
	d.Provenance = provenance(span, raw, stack, opts)
	return d, consumed
}

func warningDiagnostic(ev texlog.Event, raw []byte, stack []stackEntry, opts Options) diag.Diagnostic {
	code := diag.LatexWarning
	switch {
	case strings.HasPrefix(ev.Message, `Overfull \hbox`):
		code = diag.OverfullHbox
	case strings.HasPrefix(ev.Message, `Underfull \hbox`):
		code = diag.UnderfullHbox
	}

	d := diag.New(diag.SevWarning, code, ev.Span, ev.Message)
	conf := ev.Confidence
	d.File, conf = associateFile(stack, conf, opts)

	// "... on input line N." даёт строку; это не l.N-ссылка, поэтому
	// дополнительная неуверенность закладывается в композицию
	if m := inputLineRe.FindStringSubmatch(ev.Message); m != nil {
		if n, err := strconv.ParseUint(m[1], 10, 32); err == nil && n > 0 {
			pos := source.Position{Line: uint32(n) - 1, Character: 0}
			d = d.WithRange(source.Range{Start: pos, End: pos})
			conf = conf.Mul(0.95)
		}
	}

	if pkg := texlog.WarningPackage(ev.Message, opts.Cfg.WarningPrefixes); pkg != "" {
		d = d.WithNote(ev.Span, "reported by package "+pkg)
	}

	d.Confidence = conf.Clamp()
	d.Provenance = provenance(ev.Span, raw, stack, opts)
	return d
}

func infoDiagnostic(ev texlog.Event, raw []byte, stack []stackEntry, opts Options) diag.Diagnostic {
	d := diag.New(diag.SevInfo, ev.Code, ev.Span, ev.Message)
	conf := ev.Confidence
	d.File, conf = associateFile(stack, conf, opts)
	d.Confidence = conf.Clamp()
	d.Provenance = provenance(ev.Span, raw, stack, opts)
	return d
}

// associateFile applies rule D1: the diagnostic's file is the stack top
// at emission; an empty stack leaves the file unset and applies the
// configured penalty.
func associateFile(stack []stackEntry, conf diag.Confidence, opts Options) (string, diag.Confidence) {
	if len(stack) == 0 {
		return "", conf.Mul(diag.Confidence(opts.Cfg.NoStackPenalty))
	}
	top := stack[len(stack)-1]
	return top.path, conf.Mul(top.conf)
}

func provenance(span source.Span, raw []byte, stack []stackEntry, opts Options) *diag.Provenance {
	p := &diag.Provenance{LogSpan: span, Engine: opts.Engine}
	if len(stack) > 0 {
		p.FileStack = make([]string, len(stack))
		for i, e := range stack {
			p.FileStack[i] = e.path
		}
	}
	if int(span.Start) < len(raw) {
		end := span.End
		if int(end) > len(raw) {
			end = uint32(len(raw))
		}
		if int(end-span.Start) > opts.Cfg.MaxExcerpt {
			end = span.Start + uint32(opts.Cfg.MaxExcerpt)
		}
		p.Excerpt = string(raw[span.Start:end])
	}
	return p
}

// Toolchain builds a resource-failure diagnostic (log missing, engine
// invocation failed). Core state is never corrupted by these: they are
// plain records with full confidence.
func Toolchain(code diag.Code, msg string) diag.Diagnostic {
	d := diag.New(diag.SevError, code, source.Span{}, msg)
	d.Provenance = &diag.Provenance{}
	return d
}
