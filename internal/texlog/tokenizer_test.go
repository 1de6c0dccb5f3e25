package texlog

import (
	"testing"

	"texel/internal/config"
	"texel/internal/source"
)

func mkLine(s string, start uint32) Line {
	return Line{
		Content: []byte(s),
		Span:    source.Span{File: 0, Start: start, End: start + uint32(len(s))},
	}
}

func TestClassify(t *testing.T) {
	prefixes := config.Default().Log.WarningPrefixes

	tests := []struct {
		in   string
		want lineClass
	}{
		{"", classBlank},
		{"   ", classBlank},
		{"! Undefined control sequence.", classBang},
		{"? ", classPrompt},
		{"l.5 \\foo", classLineRef},
		{"l.x not a ref", classOther},
		{"LaTeX Warning: Reference `a' undefined.", classWarning},
		{"Package hyperref Warning: Token not allowed.", classWarning},
		{`Overfull \hbox (12.0pt too wide) in paragraph`, classWarning},
		{`Underfull \hbox (badness 10000) in paragraph`, classWarning},
		{"Output written on main.pdf (3 pages, 1234 bytes).", classOutput},
		{"No pages of output.", classSummary},
		{"This is pdfTeX, Version 3.14", classOther},
	}
	for _, tt := range tests {
		got, _ := classify(mkLine(tt.in, 0), prefixes)
		if got != tt.want {
			t.Errorf("classify(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestMatchWarningPrefixPackage(t *testing.T) {
	prefixes := config.Default().Log.WarningPrefixes

	m, ok := matchWarningPrefix([]byte("Package hyperref Warning: Token not allowed."), prefixes)
	if !ok {
		t.Fatal("package warning not matched")
	}
	if m.pkg != "hyperref" {
		t.Fatalf("pkg = %q, want hyperref", m.pkg)
	}

	// "Package" без структуры "<name> Warning:" — не предупреждение
	if _, ok := matchWarningPrefix([]byte("Package loading order matters"), prefixes); ok {
		t.Fatal("false positive on non-warning Package line")
	}
}

func TestParseLineRef(t *testing.T) {
	n, head, ok := parseLineRef([]byte("l.42 \\foo bar"))
	if !ok || n != 42 || head != 4 {
		t.Fatalf("parseLineRef = %d,%d,%v", n, head, ok)
	}
	if _, _, ok := parseLineRef([]byte("l. no digits")); ok {
		t.Fatal("accepted l. without digits")
	}
}

func TestTokenizeParenScan(t *testing.T) {
	toks := Tokenize(mkLine("see (file) end", 100), nil)
	wantKinds := []TokKind{TokText, TokLParen, TokText, TokRParen, TokText}
	if len(toks) != len(wantKinds) {
		t.Fatalf("got %d tokens, want %d: %+v", len(toks), len(wantKinds), toks)
	}
	for i, k := range wantKinds {
		if toks[i].Kind != k {
			t.Errorf("tok[%d].Kind = %d, want %d", i, toks[i].Kind, k)
		}
	}
	// спаны абсолютные
	if toks[1].Span.Start != 104 || toks[1].Span.End != 105 {
		t.Fatalf("lparen span = %v", toks[1].Span)
	}
}

func TestTokenizeLineLevel(t *testing.T) {
	prefixes := config.Default().Log.WarningPrefixes
	toks := Tokenize(mkLine("! Missing $ inserted.", 0), prefixes)
	if len(toks) != 1 || toks[0].Kind != TokBang {
		t.Fatalf("bang line tokens = %+v", toks)
	}
	if toks[0].Text != "Missing $ inserted." {
		t.Fatalf("bang payload = %q", toks[0].Text)
	}
}

func TestLineScannerCRLFAndPartial(t *testing.T) {
	buf := []byte("one\r\ntwo\nthr")
	sc := NewLineScanner(0, buf, 0)

	l1, ok := sc.Next()
	if !ok || string(l1.Content) != "one" {
		t.Fatalf("line1 = %q, %v", l1.Content, ok)
	}
	// спан не включает терминатор, но указывает в сырые байты
	if l1.Span.Start != 0 || l1.Span.End != 3 {
		t.Fatalf("line1 span = %v", l1.Span)
	}

	l2, ok := sc.Next()
	if !ok || string(l2.Content) != "two" || l2.Span.Start != 5 {
		t.Fatalf("line2 = %q span %v", l2.Content, l2.Span)
	}

	if _, ok := sc.Next(); ok {
		t.Fatal("partial line returned by Next")
	}
	rest, ok := sc.Rest()
	if !ok || string(rest.Content) != "thr" {
		t.Fatalf("rest = %q, %v", rest.Content, ok)
	}
}

func TestLineScannerInvalidUTF8(t *testing.T) {
	buf := []byte{0xff, 0xfe, '\n', 0x80, '\n'}
	sc := NewLineScanner(0, buf, 0)
	l1, ok := sc.Next()
	if !ok || len(l1.Content) != 2 {
		t.Fatalf("invalid utf8 line lost: %q", l1.Content)
	}
	l2, ok := sc.Next()
	if !ok || len(l2.Content) != 1 {
		t.Fatalf("second line = %q", l2.Content)
	}
}
