package workspace

import (
	"crypto/sha256"
	"testing"

	"github.com/google/go-cmp/cmp"

	"texel/internal/index"
	"texel/internal/source"
)

func TestCacheRoundtrip(t *testing.T) {
	c, err := OpenCacheAt(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	recs := []index.Record{
		{
			Kind:       index.LabelDefinition,
			Name:       "sec:intro",
			URI:        "main.tex",
			Span:       source.Span{File: 1, Start: 10, End: 25},
			Range:      source.Range{Start: source.Position{Line: 2}},
			Confidence: 1,
		},
		{Kind: index.InputInclude, Name: "ch1", URI: "main.tex", Raw: "ch1", Edge: true, Confidence: 0.8},
	}
	key := sha256.Sum256([]byte("content"))

	if _, ok := c.Get(key); ok {
		t.Fatal("hit on empty cache")
	}
	c.Put(key, recs)
	got, ok := c.Get(key)
	if !ok {
		t.Fatal("miss after Put")
	}
	if diff := cmp.Diff(recs, got); diff != "" {
		t.Fatalf("roundtrip diff:\n%s", diff)
	}
}

func TestCacheMissOnDifferentHash(t *testing.T) {
	c, err := OpenCacheAt(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	c.Put(sha256.Sum256([]byte("a")), []index.Record{{Name: "x"}})
	if _, ok := c.Get(sha256.Sum256([]byte("b"))); ok {
		t.Fatal("hit for unrelated hash")
	}
}
