package diag

import (
	"testing"

	"texel/internal/source"
)

func span(start, end uint32) source.Span {
	return source.Span{File: 0, Start: start, End: end}
}

func TestBagLimit(t *testing.T) {
	b := NewBag(2)
	if !b.Add(NewError(TexError, span(0, 1), "one")) {
		t.Fatal("first Add rejected")
	}
	if !b.Add(NewError(TexError, span(1, 2), "two")) {
		t.Fatal("second Add rejected")
	}
	if b.Add(NewError(TexError, span(2, 3), "three")) {
		t.Fatal("Add above limit accepted")
	}
	if b.Len() != 2 {
		t.Fatalf("Len = %d, want 2", b.Len())
	}
}

func TestBagSortStable(t *testing.T) {
	b := NewBag(10)
	b.Add(NewWarning(LatexWarning, span(5, 6), "later"))
	b.Add(NewError(TexError, span(0, 1), "earlier"))
	b.Add(NewWarning(OverfullHbox, span(0, 1), "same start, lower severity"))
	b.Sort()

	items := b.Items()
	if items[0].Code != TexError {
		t.Fatalf("items[0].Code = %v, want TexError", items[0].Code)
	}
	if items[1].Code != OverfullHbox {
		t.Fatalf("items[1].Code = %v, want OverfullHbox", items[1].Code)
	}
	if items[2].Code != LatexWarning {
		t.Fatalf("items[2].Code = %v, want LatexWarning", items[2].Code)
	}
}

func TestBagDedup(t *testing.T) {
	b := NewBag(10)
	d := NewError(RefDuplicateLabel, span(3, 7), "dup")
	b.Add(d)
	b.Add(d)
	b.Dedup()
	if b.Len() != 1 {
		t.Fatalf("Len after Dedup = %d, want 1", b.Len())
	}
}

func TestCodeID(t *testing.T) {
	tests := []struct {
		code Code
		want string
	}{
		{SynParseRecovery, "FTX0100"},
		{RefUnresolvedRef, "FTX0201"},
		{InclCycle, "FTX0400"},
		{LogUnmatchedFileExit, "FTX1001"},
		{TexError, "FTX2000"},
		{LogNotFound, "FTX3001"},
	}
	for _, tt := range tests {
		if got := tt.code.ID(); got != tt.want {
			t.Errorf("%d.ID() = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestConfidenceMulClamps(t *testing.T) {
	if got := Confidence(0.5).Mul(0.5); got != 0.25 {
		t.Fatalf("Mul = %v, want 0.25", got)
	}
	if got := Confidence(2.0).Clamp(); got != 1.0 {
		t.Fatalf("Clamp above = %v, want 1", got)
	}
	if got := Confidence(-1).Clamp(); got != 0 {
		t.Fatalf("Clamp below = %v, want 0", got)
	}
}
