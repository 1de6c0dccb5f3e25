package workspace

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherDebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher([]string{dir}, 50*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = w.Close() }()

	path := filepath.Join(dir, "main.tex")
	// всплеск записей: одна партия на окно затишья
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case batch := <-w.Events():
		if len(batch) != 1 {
			t.Fatalf("batch = %v, want single coalesced event", batch)
		}
		if batch[0].Path != path {
			t.Fatalf("path = %q", batch[0].Path)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no batch within timeout")
	}
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher([]string{dir}, 30*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = w.Close() }()

	if err := os.WriteFile(filepath.Join(dir, "main.pdf"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case batch := <-w.Events():
		t.Fatalf("unexpected batch for .pdf: %v", batch)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatchedPatterns(t *testing.T) {
	for path, want := range map[string]bool{
		"a.tex": true, "b.BIB": true, "c.sty": true, "d.cls": true,
		"e.pdf": false, "f.log": false, "g": false,
	} {
		if got := Watched(path); got != want {
			t.Errorf("Watched(%q) = %v, want %v", path, got, want)
		}
	}
}
