package texlog

import (
	"strings"
	"testing"

	"texel/internal/config"
	"texel/internal/diag"
)

func parseAll(t *testing.T, input string) []Event {
	t.Helper()
	cfg := config.Default()
	return Parse(0, []byte(input), cfg.Log, cfg.Analysis.ConfidenceThreshold)
}

func kinds(events []Event) []EventKind {
	out := make([]EventKind, len(events))
	for i, e := range events {
		out[i] = e.Kind
	}
	return out
}

func TestUndefinedControlSequence(t *testing.T) {
	input := "(./main.tex\n! Undefined control sequence.\nl.5 \\foo\n)\n"
	events := parseAll(t, input)

	want := []EventKind{EvFileEnter, EvErrorStart, EvErrorLineRef, EvFileExit}
	got := kinds(events)
	if len(got) != len(want) {
		t.Fatalf("events = %v", events)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event[%d] = %v, want %v (all: %v)", i, got[i], want[i], events)
		}
	}

	enter := events[0]
	if enter.Path != "./main.tex" {
		t.Errorf("enter.Path = %q", enter.Path)
	}
	if enter.Confidence < 0.9 {
		t.Errorf("enter.Confidence = %v, want >= 0.9", enter.Confidence)
	}
	if events[1].Message != "Undefined control sequence." {
		t.Errorf("error message = %q", events[1].Message)
	}
	if events[2].Line != 5 || events[2].Excerpt != "\\foo" {
		t.Errorf("lineref = %d %q", events[2].Line, events[2].Excerpt)
	}
}

func TestSpaceTerminatesPath(t *testing.T) {
	input := "(./main.tex (./chapter 1.tex) )\n"
	events := parseAll(t, input)

	enters := 0
	exits := 0
	for _, e := range events {
		switch e.Kind {
		case EvFileEnter:
			enters++
			if e.Path == "./main.tex" && e.Confidence < 0.9 {
				t.Errorf("main.tex confidence = %v", e.Confidence)
			}
			if e.Path == "./chapter" {
				// пробел оборвал путь: кандидат без расширения — ниже порога
				if e.Confidence >= 0.8 {
					t.Errorf("./chapter confidence = %v, want < threshold", e.Confidence)
				}
				if e.Code != diag.LogSuspiciousEnter {
					t.Errorf("./chapter code = %v, want FTX1002", e.Code)
				}
			}
		case EvFileExit:
			exits++
		}
	}
	if enters != exits {
		t.Fatalf("unbalanced: %d enters, %d exits (%v)", enters, exits, events)
	}
}

func TestParensInsideFilename(t *testing.T) {
	input := "(./weird (paper) name.tex\n)\n"
	cfg := config.Default()
	events := parseAll(t, input)

	// Принятые FileEnter выше порога не должны разбалансировать стек.
	depth := 0
	for _, e := range events {
		switch e.Kind {
		case EvFileEnter:
			if float64(e.Confidence) >= cfg.Analysis.ConfidenceThreshold {
				depth++
			} else {
				depth++ // ниже порога тоже входит, но обязан быть помечен
				if e.Code != diag.LogSuspiciousEnter {
					t.Errorf("low-confidence enter %q without FTX1002", e.Path)
				}
			}
		case EvFileExit:
			depth--
		}
	}
	if depth < 0 {
		t.Fatalf("stack went negative: %v", events)
	}
}

func TestUnmatchedCloseParen(t *testing.T) {
	events := parseAll(t, ")\n")
	if len(events) != 1 {
		t.Fatalf("events = %v", events)
	}
	e := events[0]
	if e.Kind != EvInfo || e.Code != diag.LogUnmatchedFileExit {
		t.Fatalf("got %v with code %v, want Info/FTX1001", e.Kind, e.Code)
	}
}

func TestWrappedPathSingleEnter(t *testing.T) {
	cfg := config.Default()
	// первая строка упирается в колонку переноса без расширения
	first := "(" + "./" + strings.Repeat("a", cfg.Log.WrapColumn-8) + "/chap"
	if len(first) < cfg.Log.WrapColumn-1 {
		first += strings.Repeat("b", cfg.Log.WrapColumn-1-len(first))
	}
	input := first + "\nter1.tex)\n"
	events := parseAll(t, input)

	enters := 0
	for _, e := range events {
		if e.Kind == EvFileEnter {
			enters++
			if !strings.HasSuffix(e.Path, "ter1.tex") {
				t.Errorf("joined path = %q", e.Path)
			}
			// спан покрывает оба фрагмента
			if e.Span.Start != 0 || int(e.Span.End) <= len(first) {
				t.Errorf("joined span = %v", e.Span)
			}
		}
	}
	if enters != 1 {
		t.Fatalf("enters = %d, want single joined FileEnter (%v)", enters, events)
	}
}

func TestWarningEvents(t *testing.T) {
	input := "LaTeX Warning: Reference `missing' on page 1 undefined on input line 6.\n" +
		"Package hyperref Warning: Token not allowed in a PDF string.\n" +
		"Overfull \\hbox (15.0pt too wide) in paragraph at lines 12--13\n"
	events := parseAll(t, input)
	if len(events) != 3 {
		t.Fatalf("events = %v", events)
	}
	for i, e := range events {
		if e.Kind != EvWarning {
			t.Errorf("event[%d] = %v, want Warning", i, e.Kind)
		}
	}
	if !strings.HasPrefix(events[1].Message, "Package hyperref Warning:") {
		t.Errorf("package warning message = %q", events[1].Message)
	}
}

func TestWarningFoldIndentedContinuation(t *testing.T) {
	input := "LaTeX Warning: Citation `knuth84' on page 1 undefined\n" +
		"               on input line 7.\n"
	events := parseAll(t, input)
	if len(events) != 1 {
		t.Fatalf("events = %v", events)
	}
	if !strings.Contains(events[0].Message, "on input line 7.") {
		t.Errorf("continuation not folded: %q", events[0].Message)
	}
}

func TestOutputArtifactAndSummary(t *testing.T) {
	events := parseAll(t, "Output written on out/main.pdf (3 pages, 41724 bytes).\n")
	if len(events) != 2 {
		t.Fatalf("events = %v", events)
	}
	art := events[0]
	if art.Kind != EvOutputArtifact || art.Path != "out/main.pdf" || art.Format != "pdf" {
		t.Fatalf("artifact = %+v", art)
	}
	sum := events[1]
	if sum.Kind != EvBuildSummary || !sum.Success {
		t.Fatalf("summary = %+v", sum)
	}
}

func TestNoPagesSummary(t *testing.T) {
	events := parseAll(t, "No pages of output.\n")
	if len(events) != 1 || events[0].Kind != EvBuildSummary || events[0].Success {
		t.Fatalf("events = %v", events)
	}
}

func TestErrorContextLines(t *testing.T) {
	input := "! Missing $ inserted.\n<inserted text>\n$\nl.12 x\n\nmore prose\n"
	events := parseAll(t, input)

	want := []EventKind{EvErrorStart, EvErrorContextLine, EvErrorContextLine, EvErrorLineRef}
	got := kinds(events)
	if len(got) != len(want) {
		t.Fatalf("events = %v", events)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestBangInsideErrorStartsNewError(t *testing.T) {
	input := "! First error.\n! Second error.\n"
	events := parseAll(t, input)
	if len(events) != 2 {
		t.Fatalf("events = %v", events)
	}
	if events[0].Message != "First error." || events[1].Message != "Second error." {
		t.Fatalf("messages = %q, %q", events[0].Message, events[1].Message)
	}
}

func TestAmbiguityDecay(t *testing.T) {
	// серия непарных ')' снижает уверенность последующих событий
	input := strings.Repeat(")\n", 5) + "(./main.tex)\n"
	events := parseAll(t, input)

	last := events[len(events)-2] // FileEnter
	if last.Kind != EvFileEnter {
		t.Fatalf("expected FileEnter, got %v", events)
	}
	if last.Confidence >= 0.95 {
		t.Errorf("confidence = %v, want decayed below base", last.Confidence)
	}
	cfg := config.Default()
	if float64(last.Confidence) < 0.95*cfg.Log.AmbiguityFloor {
		t.Errorf("confidence = %v fell below the floor", last.Confidence)
	}
}
