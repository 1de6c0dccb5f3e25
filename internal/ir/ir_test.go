package ir

import (
	"encoding/json"
	"testing"

	"texel/internal/config"
	"texel/internal/diag"
	"texel/internal/reconstruct"
	"texel/internal/source"
	"texel/internal/texlog"
)

func TestExportEventTotal(t *testing.T) {
	// экспортёр тотален: каждый вариант даёт запись со схемой
	events := []texlog.Event{
		{Kind: texlog.EvFileEnter, Path: "./main.tex", Confidence: 0.95},
		{Kind: texlog.EvFileExit, Confidence: 1},
		{Kind: texlog.EvErrorStart, Message: "Undefined control sequence.", Confidence: 1},
		{Kind: texlog.EvErrorLineRef, Line: 5, Excerpt: `\foo`, Confidence: 1},
		{Kind: texlog.EvErrorContextLine, Message: "<inserted text>", Confidence: 1},
		{Kind: texlog.EvWarning, Message: "LaTeX Warning: x", Confidence: 1},
		{Kind: texlog.EvInfo, Message: "unmatched )", Code: diag.LogUnmatchedFileExit, Confidence: 0.5},
		{Kind: texlog.EvOutputArtifact, Path: "main.pdf", Format: "pdf", Role: "primary", Confidence: 1},
		{Kind: texlog.EvBuildSummary, Success: true, Confidence: 1},
	}
	for _, e := range events {
		rec := ExportEvent(e)
		if rec.Schema != EventSchemaVersion {
			t.Fatalf("%v: schema = %q", e.Kind, rec.Schema)
		}
		if rec.Kind == "" || rec.Data == nil {
			t.Fatalf("%v: incomplete record %+v", e.Kind, rec)
		}
		if _, err := json.Marshal(rec); err != nil {
			t.Fatalf("%v: marshal: %v", e.Kind, err)
		}
	}

	if got := ExportEvent(events[6]); got.Data["code"] != "FTX1001" {
		t.Fatalf("info code = %v", got.Data["code"])
	}
}

func TestExportDiagnosticJSONShape(t *testing.T) {
	log := "(./main.tex\n! Undefined control sequence.\nl.5 \\foo\n)\n"
	cfg := config.Default()
	events := texlog.Parse(0, []byte(log), cfg.Log, cfg.Analysis.ConfidenceThreshold)
	diags := reconstruct.Diagnostics(events, []byte(log), reconstruct.Options{Cfg: cfg.Log, Engine: "pdftex"})

	out := ExportDiagnostic(diags[0])
	data, err := json.Marshal(out)
	if err != nil {
		t.Fatal(err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["schema_version"] != "1.0" {
		t.Fatalf("schema_version = %v", decoded["schema_version"])
	}
	if decoded["severity"] != "error" || decoded["code"] != "FTX2000" {
		t.Fatalf("severity/code = %v/%v", decoded["severity"], decoded["code"])
	}
	prov, ok := decoded["provenance"].(map[string]any)
	if !ok {
		t.Fatalf("provenance missing: %s", data)
	}
	if _, ok := prov["log_span"]; !ok {
		t.Fatalf("log_span missing (I1): %s", data)
	}
	rng, ok := decoded["range"].(map[string]any)
	if !ok {
		t.Fatalf("range missing: %s", data)
	}
	start := rng["start"].(map[string]any)
	if start["line"] != float64(4) || start["character"] != float64(0) {
		t.Fatalf("range.start = %v", start)
	}
}

func TestUnknownFieldsIgnoredByConsumers(t *testing.T) {
	// запись с неизвестными полями и kind обязана декодироваться
	payload := []byte(`{"schema_version":"1.0","kind":"FutureKind","span":{"start":0,"end":1},"confidence":1,"data":{"x":1},"extra_field":true}`)
	var rec Event
	if err := json.Unmarshal(payload, &rec); err != nil {
		t.Fatalf("consumer choked on unknown fields: %v", err)
	}
	if rec.Kind != "FutureKind" {
		t.Fatalf("kind = %q", rec.Kind)
	}
}

func TestSpanExport(t *testing.T) {
	e := texlog.Event{
		Kind:       texlog.EvFileEnter,
		Path:       "x.tex",
		Span:       source.Span{File: 0, Start: 3, End: 14},
		Confidence: 1,
	}
	rec := ExportEvent(e)
	if rec.Span.Start != 3 || rec.Span.End != 14 {
		t.Fatalf("span = %+v", rec.Span)
	}
}
