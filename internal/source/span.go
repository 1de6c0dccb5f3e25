package source

import (
	"fmt"
)

// Span is a half-open byte range [Start, End) into a named buffer.
// Spans are never derived without provenance: every event and diagnostic
// carries the span that justifies it.
type Span struct {
	File  FileID
	Start uint32 // в байтах включительно
	End   uint32 // в байтах не включительно
}

func (s Span) Empty() bool {
	return s.Start == s.End
}

func (s Span) Len() uint32 {
	return s.End - s.Start
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d", s.File, s.Start, s.End)
}

// Contains reports whether off lies inside the span.
func (s Span) Contains(off uint32) bool {
	return off >= s.Start && off < s.End
}

// Intersects reports whether two spans of the same buffer overlap.
func (s Span) Intersects(other Span) bool {
	if s.File != other.File || s.Start == s.End || other.Start == other.End {
		return false
	}
	return s.Start < other.End && other.Start < s.End
}

// Cover расширяет span так, чтобы покрыть other (в пределах одного буфера).
func (s Span) Cover(other Span) Span {
	if s.File != other.File {
		return s
	}
	if other.Start < s.Start {
		s.Start = other.Start
	}
	if other.End > s.End {
		s.End = other.End
	}
	return s
}
