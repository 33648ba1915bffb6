// Package selector splits stylesheet selector text into compound chunks.
//
// The parser works on partially typed selectors (".gaga:", ".a .b::") and never
// fails: unknown characters are skipped, unterminated brackets run to the end of
// the input.
package selector

// Kind identifies a simple selector inside a compound chunk.
type Kind int

const (
	Class Kind = iota
	Element
	ID
	PseudoClass
	PseudoElement
	Attribute
	Universal
	Nesting
)

func (k Kind) markerLen() int {
	switch k {
	case Class, ID, PseudoClass:
		return 1
	case PseudoElement:
		return 2
	default:
		return 0
	}
}

func (k Kind) String() string {
	switch k {
	case Class:
		return "class"
	case Element:
		return "element"
	case ID:
		return "id"
	case PseudoClass:
		return "pseudo-class"
	case PseudoElement:
		return "pseudo-element"
	case Attribute:
		return "attribute"
	case Universal:
		return "universal"
	case Nesting:
		return "nesting"
	default:
		return "unknown"
	}
}

// Segment is one simple selector. Start and End delimit Name within the parsed
// text; for an empty name (".gaga:" while typing) both equal the end of the marker.
type Segment struct {
	Kind  Kind
	Name  string
	Start int
	End   int
}

// Chunk is a compound selector: the segments between two combinators.
type Chunk struct {
	Start int
	End   int
	// Combinator joining this chunk to the previous one: "" for the first chunk of a
	// selector, " ", ">", "+", "~", or "," for the first chunk after a comma.
	Combinator string
	Segments   []Segment
}

// Contains reports whether offset lies inside the chunk or directly after it.
func (c Chunk) Contains(offset int) bool {
	return offset >= c.Start && offset <= c.End
}

// States returns the pseudo-class names listed in the chunk, skipping the
// segment that contains offset (pass -1 to keep all).
func (c Chunk) States(offset int) []string {
	var states []string
	for _, seg := range c.Segments {
		if seg.Kind != PseudoClass || seg.Name == "" {
			continue
		}
		if offset >= seg.Start-1 && offset <= seg.End {
			continue
		}
		states = append(states, seg.Name)
	}
	return states
}

// SegmentAt returns the index of the segment whose marker or name contains offset.
func (c Chunk) SegmentAt(offset int) (int, bool) {
	for i := len(c.Segments) - 1; i >= 0; i-- {
		seg := c.Segments[i]
		if offset >= seg.Start-seg.Kind.markerLen() && offset <= seg.End {
			return i, true
		}
	}
	return -1, false
}

// OwnerOf returns the class, element or pseudo-element segment that the segment at
// index i applies to: the closest one before it in the same chunk.
func (c Chunk) OwnerOf(i int) (Segment, int, bool) {
	for j := min(i, len(c.Segments)) - 1; j >= 0; j-- {
		switch c.Segments[j].Kind {
		case Class, Element, PseudoElement:
			if c.Segments[j].Name != "" {
				return c.Segments[j], j, true
			}
		}
	}
	return Segment{}, -1, false
}

// OwnerPath returns the type path the segment at index i applies to: the closest
// class or element before it followed by any pseudo-elements, e.g. ["gaga", "label"]
// for the ":hover" in ".gaga::label:hover". It is nil when nothing owns the segment.
func (c Chunk) OwnerPath(i int) []string {
	var path []string
	for j := 0; j < i && j < len(c.Segments); j++ {
		seg := c.Segments[j]
		if seg.Name == "" {
			continue
		}
		switch seg.Kind {
		case Class, Element:
			path = []string{seg.Name}
		case PseudoElement:
			if path != nil {
				path = append(path, seg.Name)
			}
		}
	}
	return path
}

// Parse splits text into chunks.
func Parse(text string) []Chunk {
	p := parser{src: text}
	p.run()
	return p.chunks
}

// ChunkAt returns the chunk containing offset.
func ChunkAt(chunks []Chunk, offset int) (Chunk, bool) {
	for i := len(chunks) - 1; i >= 0; i-- {
		if chunks[i].Contains(offset) {
			return chunks[i], true
		}
	}
	return Chunk{}, false
}

// IsSimple reports whether text is a single compound made of exactly one class or
// element selector, with no combinators, chaining, pseudo selectors or lists.
func IsSimple(text string) bool {
	chunks := Parse(text)
	if len(chunks) != 1 || len(chunks[0].Segments) != 1 {
		return false
	}
	seg := chunks[0].Segments[0]
	return (seg.Kind == Class || seg.Kind == Element) && seg.Name != ""
}

// IsIdentByte reports whether b may appear inside a CSS identifier.
func IsIdentByte(b byte) bool {
	return b == '-' || b == '_' || b >= 0x80 ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

type parser struct {
	src     string
	pos     int
	chunks  []Chunk
	current *Chunk
	pending string
}

func (p *parser) run() {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f':
			p.closeChunk()
			if p.pending == "" && len(p.chunks) > 0 {
				p.pending = " "
			}
			p.pos++
		case c == '>' || c == '+' || c == '~':
			p.closeChunk()
			p.pending = string(c)
			p.pos++
		case c == ',':
			p.closeChunk()
			p.pending = ","
			p.pos++
		case c == '/' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '*':
			p.closeChunk()
			p.skipComment()
		case c == '.':
			p.segment(Class, 1)
		case c == '#':
			p.segment(ID, 1)
		case c == ':':
			if p.pos+1 < len(p.src) && p.src[p.pos+1] == ':' {
				p.segment(PseudoElement, 2)
			} else {
				p.segment(PseudoClass, 1)
			}
			p.skipArguments()
		case c == '[':
			p.attribute()
		case c == '*':
			p.add(Segment{Kind: Universal, Name: "*", Start: p.pos, End: p.pos + 1}, p.pos)
			p.pos++
		case c == '&':
			p.add(Segment{Kind: Nesting, Name: "&", Start: p.pos, End: p.pos + 1}, p.pos)
			p.pos++
		case IsIdentByte(c):
			start := p.pos
			end := p.ident(start)
			p.add(Segment{Kind: Element, Name: p.src[start:end], Start: start, End: end}, start)
			p.pos = end
		default:
			p.pos++
		}
	}
	p.closeChunk()
}

func (p *parser) segment(kind Kind, marker int) {
	start := p.pos
	nameStart := start + marker
	end := p.ident(nameStart)
	p.add(Segment{Kind: kind, Name: p.src[nameStart:end], Start: nameStart, End: end}, start)
	p.pos = end
}

func (p *parser) ident(from int) int {
	i := from
	for i < len(p.src) && IsIdentByte(p.src[i]) {
		i++
	}
	return i
}

func (p *parser) add(seg Segment, start int) {
	if p.current == nil {
		comb := p.pending
		if len(p.chunks) == 0 && comb == " " {
			comb = ""
		}
		p.current = &Chunk{Start: start, Combinator: comb}
		p.pending = ""
	}
	p.current.Segments = append(p.current.Segments, seg)
	p.current.End = seg.End
}

func (p *parser) closeChunk() {
	if p.current == nil {
		return
	}
	p.chunks = append(p.chunks, *p.current)
	p.current = nil
}

func (p *parser) skipComment() {
	end := indexFrom(p.src, "*/", p.pos+2)
	if end < 0 {
		p.pos = len(p.src)
		return
	}
	p.pos = end + 2
}

// skipArguments skips a balanced parenthesised argument list directly after a
// pseudo selector, e.g. ":not(.a, .b)" or ":size(big)".
func (p *parser) skipArguments() {
	if p.pos >= len(p.src) || p.src[p.pos] != '(' {
		return
	}
	depth := 0
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				p.pos++
				if p.current != nil {
					p.current.End = p.pos
				}
				return
			}
		}
		p.pos++
	}
	if p.current != nil {
		p.current.End = p.pos
	}
}

func (p *parser) attribute() {
	start := p.pos
	end := indexFrom(p.src, "]", start)
	if end < 0 {
		end = len(p.src)
	} else {
		end++
	}
	p.add(Segment{Kind: Attribute, Name: p.src[start:end], Start: start, End: end}, start)
	p.pos = end
}

func indexFrom(s, sub string, from int) int {
	if from >= len(s) {
		return -1
	}
	for i := from; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
