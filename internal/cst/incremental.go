package cst

import (
	"texel/internal/lexer"
	"texel/internal/source"
)

// Edit describes one text replacement in old-document byte coordinates:
// bytes [Start, OldEnd) were replaced and now occupy [Start, NewEnd).
type Edit struct {
	Start  uint32
	OldEnd uint32
	NewEnd uint32
}

// Incremental rebuilds the tree after an edit. The smallest run of
// top-level nodes covering the edit (expanded to line boundaries, so the
// lexer can restart) is retokenized and rebuilt; untouched siblings keep
// their node identity, their spans shifted by the edit delta. When the
// regional parse leaves a structure open that must spill past the region
// the rebuild falls back to the document suffix, and on degenerate
// inputs to a full reparse — the result is always equivalent to
// Parse(newFile). The caller keeps newFile.ID equal to the old file's ID
// so that preserved spans stay valid.
func Incremental(t *Tree, newFile *source.File, e Edit) *Tree {
	root := t.Get(t.Root)
	children := root.Children
	if len(children) == 0 || e.Start > uint32(len(t.File.Content)) || e.OldEnd < e.Start {
		return Parse(newFile)
	}

	delta := int64(e.NewEnd) - int64(e.OldEnd)

	// первое/последнее затронутые top-level поддеревья (границы включительно:
	// правка на стыке может склеить токены соседей)
	i := 0
	for i < len(children) && t.Get(children[i]).Span.End < e.Start {
		i++
	}
	j := len(children) - 1
	for j > i && t.Get(children[j]).Span.Start > e.OldEnd {
		j--
	}
	if i >= len(children) {
		i = len(children) - 1
		j = i
	}

	// расширяем область до границ строк; расширение может накрыть соседей —
	// крутим до неподвижной точки
	regionStart := lineStartAt(newFile.Content, t.Get(children[i]).Span.Start)
	regionOldEnd := lineEndAt(t.File.Content, maxU32(e.OldEnd, t.Get(children[j]).Span.End))
	for {
		changed := false
		for i > 0 && t.Get(children[i-1]).Span.End > regionStart {
			i--
			changed = true
		}
		for j+1 < len(children) && t.Get(children[j+1]).Span.Start < regionOldEnd {
			j++
			changed = true
		}
		if !changed {
			break
		}
		regionStart = lineStartAt(newFile.Content, minU32(regionStart, t.Get(children[i]).Span.Start))
		regionOldEnd = lineEndAt(t.File.Content, maxU32(regionOldEnd, t.Get(children[j]).Span.End))
	}

	regionNewEnd64 := int64(regionOldEnd) + delta
	if regionNewEnd64 < int64(regionStart) || regionNewEnd64 > int64(len(newFile.Content)) {
		return Parse(newFile)
	}
	regionNewEnd := uint32(regionNewEnd64)

	newKids := parseRegion(t, newFile, regionStart, regionNewEnd)
	if containsUnclosed(t, newKids) && regionNewEnd < uint32(len(newFile.Content)) {
		// структура выплеснулась за область — перестраиваем хвост документа
		j = len(children) - 1
		newKids = parseRegion(t, newFile, regionStart, uint32(len(newFile.Content)))
	}

	if delta != 0 {
		for _, c := range children[j+1:] {
			shiftSpans(t, c, delta)
		}
	}

	spliced := make([]NodeID, 0, i+len(newKids)+len(children)-j-1)
	spliced = append(spliced, children[:i]...)
	spliced = append(spliced, newKids...)
	spliced = append(spliced, children[j+1:]...)

	root = t.Get(t.Root) // арена могла перевыделиться при аллокации новых узлов
	root.Children = spliced
	root.Span = source.Span{File: newFile.ID, Start: 0, End: uint32(len(newFile.Content))}
	t.File = newFile
	return t
}

// parseRegion parses newFile bytes [from, to) into fresh nodes in the
// tree's arena.
func parseRegion(t *Tree, newFile *source.File, from, to uint32) []NodeID {
	b := &builder{
		arena: t.arena,
		lx:    lexer.NewAt(newFile, from),
		file:  newFile,
		limit: to,
	}
	return b.parseSequence(stopNever)
}

func containsUnclosed(t *Tree, ids []NodeID) bool {
	found := false
	for _, id := range ids {
		t.Walk(id, func(_ NodeID, n *Node) bool {
			if n.Unclosed {
				found = true
				return false
			}
			return true
		})
	}
	return found
}

func shiftSpans(t *Tree, id NodeID, delta int64) {
	t.Walk(id, func(_ NodeID, n *Node) bool {
		n.Span.Start = uint32(int64(n.Span.Start) + delta)
		n.Span.End = uint32(int64(n.Span.End) + delta)
		if n.Kind == KindToken {
			n.Token.Span.Start = uint32(int64(n.Token.Span.Start) + delta)
			n.Token.Span.End = uint32(int64(n.Token.Span.End) + delta)
		}
		return true
	})
}

// lineStartAt returns the offset of the first byte of the line holding off.
func lineStartAt(content []byte, off uint32) uint32 {
	if off > uint32(len(content)) {
		off = uint32(len(content))
	}
	for off > 0 && content[off-1] != '\n' {
		off--
	}
	return off
}

// lineEndAt returns the offset just past the newline of the line holding
// off (or the end of content).
func lineEndAt(content []byte, off uint32) uint32 {
	n := uint32(len(content))
	if off >= n {
		return n
	}
	for off < n {
		if content[off] == '\n' {
			return off + 1
		}
		off++
	}
	return n
}

func minU32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

func maxU32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}
