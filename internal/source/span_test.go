package source

import "testing"

func TestSpanCover(t *testing.T) {
	a := Span{File: 1, Start: 10, End: 20}
	b := Span{File: 1, Start: 5, End: 15}
	got := a.Cover(b)
	if got.Start != 5 || got.End != 20 {
		t.Fatalf("Cover = %v, want 1:5-20", got)
	}

	other := Span{File: 2, Start: 0, End: 100}
	if got := a.Cover(other); got != a {
		t.Fatalf("Cover across buffers must be a no-op, got %v", got)
	}
}

func TestSpanIntersects(t *testing.T) {
	tests := []struct {
		a, b Span
		want bool
	}{
		{Span{0, 0, 5}, Span{0, 4, 8}, true},
		{Span{0, 0, 5}, Span{0, 5, 8}, false},
		{Span{0, 3, 3}, Span{0, 0, 10}, false}, // empty span
		{Span{0, 0, 5}, Span{1, 0, 5}, false},  // different buffers
	}
	for i, tt := range tests {
		if got := tt.a.Intersects(tt.b); got != tt.want {
			t.Errorf("case %d: Intersects(%v, %v) = %v, want %v", i, tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSpanContains(t *testing.T) {
	s := Span{File: 0, Start: 2, End: 4}
	for off, want := range map[uint32]bool{1: false, 2: true, 3: true, 4: false} {
		if got := s.Contains(off); got != want {
			t.Errorf("Contains(%d) = %v, want %v", off, got, want)
		}
	}
}
