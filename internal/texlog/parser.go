package texlog

import (
	"fmt"

	"fortio.org/safecast"

	"texel/internal/config"
	"texel/internal/source"
)

// Parser is the streaming log parser. Bytes are appended with Update as
// the engine produces them; the event stream is rebuilt from the latest
// synchronization anchor, so an append costs O(|append| + |tail since
// last anchor|). A chunked parse followed by Finish yields exactly the
// events of a single-shot parse of the concatenated bytes.
type Parser struct {
	cfg      config.Log
	bufID    source.FileID
	buf      []byte
	m        *machine
	anchor   *snapshot
	finished bool
}

// NewParser creates a parser for one log buffer. threshold is the
// confidence threshold used to flag suspicious file enters.
func NewParser(bufID source.FileID, cfg config.Log, threshold float64) *Parser {
	p := &Parser{cfg: cfg, bufID: bufID}
	p.m = newMachine(&p.cfg, threshold)
	return p
}

// Update appends chunk to the internal buffer and reprocesses from the
// latest anchor. It returns the full current event stream and the index
// from which events may differ from the previous call: events before
// replayFrom are committed and will never change, events at or after it
// are re-emitted (bit-identical when the underlying bytes are unchanged).
func (p *Parser) Update(chunk []byte) (events []Event, replayFrom int) {
	if p.finished {
		return p.m.events, len(p.m.events)
	}
	p.buf = append(p.buf, chunk...)

	scanOff := p.rollback()
	replayFrom = len(p.m.events)

	f := p.buildFeed(scanOff)
	p.m.run(&f, false, func(lineIdx int) {
		s := p.m.capture(f.lines[lineIdx].nextOff)
		p.anchor = &s
	})
	return p.m.events, replayFrom
}

// Finish flushes the trailing partial structure and closes the parser.
// Further updates are no-ops.
func (p *Parser) Finish() []Event {
	if p.finished {
		return p.m.events
	}
	p.finished = true

	scanOff := p.rollback()
	f := p.buildFeed(scanOff)
	p.m.run(&f, true, nil)
	return p.m.events
}

// Events returns the current full event stream.
func (p *Parser) Events() []Event {
	return p.m.events
}

// StableCount returns the number of leading events that are committed:
// they lie at or before the latest anchor and will never be re-emitted.
func (p *Parser) StableCount() int {
	if p.finished {
		return len(p.m.events)
	}
	if p.anchor == nil {
		return 0
	}
	return p.anchor.events
}

// Len returns the current buffer length.
func (p *Parser) Len() uint32 {
	n, err := safecast.Conv[uint32](len(p.buf))
	if err != nil {
		panic(fmt.Errorf("log buffer overflow: %w", err))
	}
	return n
}

// rollback restores the machine to the latest anchor (or to the start)
// and returns the byte offset to rescan from.
func (p *Parser) rollback() uint32 {
	if p.anchor != nil {
		p.m.restore(*p.anchor)
		return p.anchor.off
	}
	p.m.restore(snapshot{})
	return 0
}

func (p *Parser) buildFeed(scanOff uint32) feed {
	sc := NewLineScanner(p.bufID, p.buf, scanOff)
	f := feed{partialIdx: -1}
	for {
		line, ok := sc.Next()
		if !ok {
			break
		}
		f.lines = append(f.lines, feedLine{Line: line, nextOff: sc.Offset()})
	}
	if rest, ok := sc.Rest(); ok && len(rest.Content) > 0 {
		n, err := safecast.Conv[uint32](len(p.buf))
		if err != nil {
			panic(fmt.Errorf("log buffer overflow: %w", err))
		}
		f.lines = append(f.lines, feedLine{Line: rest, nextOff: n})
		f.partialIdx = len(f.lines) - 1
	}
	return f
}

// Parse processes data in one shot: a single Update followed by Finish.
func Parse(bufID source.FileID, data []byte, cfg config.Log, threshold float64) []Event {
	p := NewParser(bufID, cfg, threshold)
	p.Update(data)
	return p.Finish()
}
