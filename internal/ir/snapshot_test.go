package ir

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"texel/internal/config"
	"texel/internal/workspace"
)

func TestExportSnapshot(t *testing.T) {
	w := workspace.New(config.Default().Analysis, workspace.Options{})
	defer w.Close()

	snap, err := w.DidOpen(context.Background(), "main.tex",
		[]byte("\\documentclass{article}\n\\label{a}\\ref{b}\n"))
	if err != nil {
		t.Fatal(err)
	}

	out := ExportSnapshot(snap)
	if out.Schema != SourceSchemaVersion {
		t.Fatalf("schema = %q", out.Schema)
	}
	if out.Language != "latex" || out.URI != "main.tex" {
		t.Fatalf("header = %+v", out)
	}
	if out.CST.Kind != "Root" || len(out.CST.Children) == 0 {
		t.Fatalf("cst = %+v", out.CST)
	}
	if len(out.Tokens) == 0 {
		t.Fatal("tokens missing")
	}

	kinds := make(map[string]int)
	for _, r := range out.Index {
		kinds[r.Kind]++
	}
	if kinds["LabelDefinition"] != 1 || kinds["LabelReference"] != 1 {
		t.Fatalf("index export = %v", kinds)
	}

	data, err := json.Marshal(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"schema_version":"0.1"`) {
		t.Fatalf("schema missing in JSON: %s", data[:120])
	}

	// собранный обратно текст листьев — исходник (I6 переживает экспорт)
	var text strings.Builder
	var walk func(Node)
	walk = func(n Node) {
		if n.Kind == "Token" {
			text.WriteString(n.Data["text"].(string))
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(out.CST)
	if text.String() != string(snap.Text) {
		t.Fatal("exported leaves do not reproduce the document")
	}
}
