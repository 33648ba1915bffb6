package stylesheet

import (
	"sort"

	"go.lsp.dev/protocol"
)

// Span is a half-open byte range [Start, End) in a document.
type Span struct {
	Start int
	End   int
}

// Empty reports whether the span covers no text.
func (s Span) Empty() bool {
	return s.End <= s.Start
}

// Contains reports whether offset falls inside the span or right after its last byte,
// which is where an editor cursor sits after typing a token.
func (s Span) Contains(offset int) bool {
	return offset >= s.Start && offset <= s.End
}

// LineIndex maps byte offsets to zero-based line/character positions and back.
// Characters are byte offsets within the raw line text.
type LineIndex struct {
	starts []int
	size   int
}

// NewLineIndex indexes the line starts of text.
func NewLineIndex(text string) *LineIndex {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{starts: starts, size: len(text)}
}

// LineCount returns the number of lines, counting a trailing empty line.
func (li *LineIndex) LineCount() int {
	return len(li.starts)
}

// Position converts a byte offset into a protocol position. Offsets outside the
// document are clamped.
func (li *LineIndex) Position(offset int) protocol.Position {
	offset = max(0, min(offset, li.size))
	line := sort.Search(len(li.starts), func(i int) bool { return li.starts[i] > offset }) - 1
	return protocol.Position{Line: uint32(line), Character: uint32(offset - li.starts[line])}
}

// Offset converts a protocol position into a byte offset. A character past the end
// of its line is clamped to the line end; a line past the end of the document maps
// to the document end.
func (li *LineIndex) Offset(pos protocol.Position) int {
	line := int(pos.Line)
	if line >= len(li.starts) {
		return li.size
	}
	start := li.starts[line]
	end := li.size
	if line+1 < len(li.starts) {
		end = li.starts[line+1] - 1
	}
	return min(start+int(pos.Character), end)
}

// LineStart returns the offset of the first byte of the line containing offset.
func (li *LineIndex) LineStart(offset int) int {
	pos := li.Position(offset)
	return li.starts[pos.Line]
}

// Range converts a span into a protocol range.
func (li *LineIndex) Range(s Span) protocol.Range {
	return protocol.Range{Start: li.Position(s.Start), End: li.Position(s.End)}
}
