package classify

import (
	"log/slog"
	"strings"

	"go.lsp.dev/protocol"

	"github.com/alexispurslane/stylable-lsp/selector"
	"github.com/alexispurslane/stylable-lsp/stylesheet"
)

type frameKind int

const (
	frameStyle frameKind = iota
	frameImport
	frameVars
	frameMedia
	// frameGroup is a conditional group at-rule other than @media holding rules.
	frameGroup
	frameOther
)

type frame struct {
	kind    frameKind
	prelude string
	open    int
}

func kindOf(prelude string) frameKind {
	p := strings.TrimSpace(prelude)
	switch {
	case p == stylesheet.ImportSelector:
		return frameImport
	case p == stylesheet.VarsSelector:
		return frameVars
	case atKeyword(p, "@media"):
		return frameMedia
	case atKeyword(p, "@supports"), atKeyword(p, "@layer"), atKeyword(p, "@container"), atKeyword(p, "@document"):
		return frameGroup
	case strings.HasPrefix(p, "@"):
		return frameOther
	}
	return frameStyle
}

func atKeyword(prelude, kw string) bool {
	if !strings.HasPrefix(prelude, kw) {
		return false
	}
	return len(prelude) == len(kw) || !selector.IsIdentByte(prelude[len(kw)])
}

// Classify describes the cursor position in sheet. It never fails: text it cannot
// make sense of yields Unknown, which offers nothing.
func Classify(sheet *stylesheet.Sheet, pos protocol.Position) (result Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("PANIC in Classify", "recover", r)
			result = Unknown{}
		}
	}()

	text := sheet.Source
	offset := sheet.Lines.Offset(pos)
	cur := newCursor(text, offset, sheet.Lines.LineStart(offset), sheet.Lines.Position(offset))

	stack, stmt, ok := scan(text, offset)
	if !ok {
		return Unknown{Cursor: cur}
	}
	statement := text[stmt:offset]

	inMedia := false
	for _, f := range stack {
		if f.kind == frameMedia {
			inMedia = true
		}
	}

	var top *frame
	if len(stack) > 0 {
		top = &stack[len(stack)-1]
	}

	if top == nil || top.kind == frameMedia || top.kind == frameGroup {
		lead := strings.TrimLeft(statement, " \t\r\n\f")
		if strings.HasPrefix(lead, "@") && strings.IndexAny(lead, " \t\r\n\f(") >= 0 {
			return Unknown{Cursor: cur}
		}
		return topLevel(cur, statement, stmt, offset, inMedia)
	}

	var kind stylesheet.RuleKind
	switch top.kind {
	case frameStyle:
		kind = stylesheet.StyleRule
	case frameImport:
		kind = stylesheet.ImportRule
	default:
		return Unknown{Cursor: cur}
	}

	scope := &Scope{
		Kind:       kind,
		Selector:   strings.TrimSpace(top.prelude),
		BlockStart: top.open,
		Declared:   declared(text, top.open, offset),
		InMedia:    inMedia,
		Rule:       ruleWithBlock(sheet, top.open),
	}

	if idx := strings.IndexByte(statement, ':'); idx >= 0 {
		return DeclarationValue{
			Cursor:     cur,
			Rule:       scope,
			Property:   strings.TrimSpace(statement[:idx]),
			Value:      statement[idx+1:],
			ValueStart: stmt + idx + 1,
		}
	}
	if kind == stylesheet.ImportRule {
		return ImportBlock{Cursor: cur, Rule: scope}
	}
	if selector.IsSimple(scope.Selector) {
		return SimpleSelectorRule{Cursor: cur, Rule: scope}
	}
	return ComplexSelectorRule{Cursor: cur, Rule: scope}
}

func newCursor(text string, offset, lineStart int, pos protocol.Position) Cursor {
	line := text[lineStart:offset]
	j := len(line)
	for j > 0 && selector.IsIdentByte(line[j-1]) {
		j--
	}
	if j > 0 {
		switch line[j-1] {
		case '.', '@':
			j--
		case ':':
			j--
			if j > 0 && line[j-1] == ':' {
				j--
			}
		}
	}
	return Cursor{
		Position:    pos,
		Offset:      offset,
		Line:        line,
		TrimmedLine: strings.TrimSpace(line),
		Token:       line[j:],
		LineStart:   strings.TrimSpace(line[:j]) == "",
	}
}

// scan walks text up to offset tracking open blocks. It returns the open blocks,
// the start of the statement the cursor is in, and false when the cursor is inside
// a comment.
func scan(text string, offset int) ([]frame, int, bool) {
	var stack []frame
	stmt := 0
	for i := 0; i < offset; i++ {
		switch text[i] {
		case '/':
			if i+1 < len(text) && text[i+1] == '*' {
				end := strings.Index(text[i+2:], "*/")
				if end < 0 || i+2+end+2 > offset {
					return nil, 0, false
				}
				i += 2 + end + 1
			}
		case '"', '\'':
			end := closingQuote(text, i)
			if end < 0 || end >= offset {
				// The cursor is inside the string; the statement runs to the cursor.
				return stack, stmt, true
			}
			i = end
		case '{':
			stack = append(stack, frame{kind: kindOf(text[stmt:i]), prelude: text[stmt:i], open: i})
			stmt = i + 1
		case '}':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			stmt = i + 1
		case ';':
			stmt = i + 1
		}
	}
	return stack, stmt, true
}

func closingQuote(text string, open int) int {
	q := text[open]
	for i := open + 1; i < len(text); i++ {
		switch text[i] {
		case '\\':
			i++
		case q:
			return i
		case '\n':
			return -1
		}
	}
	return -1
}

func topLevel(cur Cursor, statement string, start, offset int, inMedia bool) TopLevel {
	statement = blankComments(statement)
	t := TopLevel{
		Cursor:        cur,
		InMedia:       inMedia,
		Selector:      statement,
		SelectorStart: start,
		Chunks:        selector.Parse(statement),
		Segment:       -1,
	}
	rel := offset - start
	if chunk, ok := selector.ChunkAt(t.Chunks, rel); ok {
		t.Focus = chunk
		t.HasFocus = true
		if i, ok := chunk.SegmentAt(rel); ok {
			t.Segment = i
		}
	}
	return t
}

// blankComments replaces comments with spaces, keeping offsets intact.
func blankComments(s string) string {
	if !strings.Contains(s, "/*") {
		return s
	}
	b := []byte(s)
	for i := 0; i+1 < len(b); i++ {
		if b[i] != '/' || b[i+1] != '*' {
			continue
		}
		end := strings.Index(s[i+2:], "*/")
		stop := len(b)
		if end >= 0 {
			stop = i + 2 + end + 2
		}
		for j := i; j < stop; j++ {
			if b[j] != '\n' {
				b[j] = ' '
			}
		}
		i = stop - 1
	}
	return string(b)
}

// declared lists the properties of the block opened at open, skipping the one
// whose name contains the cursor.
func declared(text string, open, cursor int) []string {
	var props []string
	stmt := open + 1
	depth := 0

	flush := func(end int) {
		if depth != 0 || stmt >= end {
			return
		}
		s := text[stmt:end]
		colon := strings.IndexByte(s, ':')
		if colon < 0 {
			return
		}
		before := s[:colon]
		fields := strings.Fields(before)
		if len(fields) == 0 {
			return
		}
		prop := fields[len(fields)-1]
		propStart := stmt + strings.LastIndex(before, prop)
		if cursor >= propStart && cursor <= stmt+colon {
			return
		}
		props = append(props, prop)
	}

	for i := open + 1; i < len(text); i++ {
		switch text[i] {
		case '/':
			if i+1 < len(text) && text[i+1] == '*' {
				end := strings.Index(text[i+2:], "*/")
				if end < 0 {
					flush(len(text))
					return props
				}
				i += 2 + end + 1
			}
		case '"', '\'':
			if end := closingQuote(text, i); end >= 0 {
				i = end
			}
		case '{':
			if depth == 0 {
				// A nested rule: whatever preceded it was its selector.
				stmt = i
			}
			depth++
		case '}':
			if depth == 0 {
				flush(i)
				return props
			}
			depth--
			stmt = i + 1
		case ';':
			flush(i)
			stmt = i + 1
		}
	}
	flush(len(text))
	return props
}

func ruleWithBlock(sheet *stylesheet.Sheet, open int) *stylesheet.Rule {
	for _, r := range sheet.AllRules() {
		if r.Block.Start == open && !r.Block.Empty() {
			return r
		}
	}
	return nil
}
