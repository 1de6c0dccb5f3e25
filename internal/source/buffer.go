package source

import (
	"fmt"
	"sync"

	"fortio.org/safecast"
)

// LogBuffer is an append-only byte sequence produced by an engine run.
// It is single-writer/multi-reader: the ingesting task appends, observers
// read by span. Spans assigned before an append remain valid after it.
type LogBuffer struct {
	mu     sync.RWMutex
	id     FileID
	name   string
	data   []byte
	closed bool
}

// NewLogBuffer creates an empty log buffer with the given display name.
func NewLogBuffer(id FileID, name string) *LogBuffer {
	return &LogBuffer{id: id, name: name}
}

func (b *LogBuffer) ID() FileID   { return b.id }
func (b *LogBuffer) Name() string { return b.name }

// Append adds bytes to the end of the buffer and returns the offset at
// which they were placed. Appending to a closed buffer panics: the
// lifecycle is create at build-start, append during the run, close at
// build-end.
func (b *LogBuffer) Append(chunk []byte) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		panic(fmt.Errorf("append to closed log buffer %q", b.name))
	}
	off, err := safecast.Conv[uint32](len(b.data))
	if err != nil {
		panic(fmt.Errorf("log buffer overflow: %w", err))
	}
	b.data = append(b.data, chunk...)
	return off
}

// Close marks the buffer complete. Further appends are a bug.
func (b *LogBuffer) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
}

// Len returns the current buffer length.
func (b *LogBuffer) Len() uint32 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n, err := safecast.Conv[uint32](len(b.data))
	if err != nil {
		panic(fmt.Errorf("log buffer overflow: %w", err))
	}
	return n
}

// Bytes returns the full contents. The returned slice must be treated as
// read-only; it aliases the internal storage up to the current length.
func (b *LogBuffer) Bytes() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.data[:len(b.data):len(b.data)]
}

// Slice returns the bytes covered by [start, end). Out-of-range requests
// are clamped to the buffer; the log pipeline never panics on bad spans.
func (b *LogBuffer) Slice(start, end uint32) []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := uint32(len(b.data))
	if start > n {
		start = n
	}
	if end > n {
		end = n
	}
	if start >= end {
		return nil
	}
	return b.data[start:end:end]
}
