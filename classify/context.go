// Package classify turns a document and a cursor position into a description of
// where in the grammar the cursor sits.
package classify

import (
	"slices"

	"go.lsp.dev/protocol"

	"github.com/alexispurslane/stylable-lsp/selector"
	"github.com/alexispurslane/stylable-lsp/stylesheet"
)

// Cursor holds what every location shares.
type Cursor struct {
	Position protocol.Position
	Offset   int
	// Line is the text of the cursor's line up to the cursor.
	Line        string
	TrimmedLine string
	// Token is the partially typed word before the cursor, including a leading
	// ".", ":", "::" or "@" marker.
	Token string
	// LineStart is set when only whitespace precedes Token on the line.
	LineStart bool
}

// TokenRange is the range replaced when a completion for Token is accepted.
func (c Cursor) TokenRange() protocol.Range {
	return c.rangeBack(len(c.Token))
}

// PrefixRange is the range covering the last n bytes before the cursor.
func (c Cursor) PrefixRange(n int) protocol.Range {
	return c.rangeBack(n)
}

func (c Cursor) rangeBack(n int) protocol.Range {
	start := c.Position
	if uint32(n) > start.Character {
		start.Character = 0
	} else {
		start.Character -= uint32(n)
	}
	return protocol.Range{Start: start, End: c.Position}
}

// Context is one of Unknown, TopLevel, ImportBlock, SimpleSelectorRule,
// ComplexSelectorRule or DeclarationValue.
type Context interface {
	Base() Cursor
	context()
}

// Scope describes the rule whose block encloses the cursor.
type Scope struct {
	Kind     stylesheet.RuleKind
	Selector string
	// BlockStart is the offset of the opening brace.
	BlockStart int
	// Declared lists the properties already declared in the block, other than the
	// one being typed.
	Declared []string
	InMedia  bool
	// Rule is the parsed rule for the block, when the parser recovered one.
	Rule *stylesheet.Rule
}

// Declares reports whether the block already declares prop.
func (s *Scope) Declares(prop string) bool {
	return slices.Contains(s.Declared, prop)
}

// Unknown is a position where nothing may be completed: comments, strings,
// at-rule preludes and blocks the classifier does not understand.
type Unknown struct {
	Cursor
}

// TopLevel is a position between rules, where a selector is being typed.
type TopLevel struct {
	Cursor
	InMedia bool
	// Selector is the text typed since the previous rule, up to the cursor.
	Selector      string
	SelectorStart int
	Chunks        []selector.Chunk
	// Focus is the chunk containing the cursor. HasFocus is false on an empty
	// selector.
	Focus    selector.Chunk
	HasFocus bool
	// Segment is the index of the focus chunk segment under the cursor, or -1.
	Segment int
}

// FocusSegment returns the selector segment under the cursor.
func (t TopLevel) FocusSegment() (selector.Segment, bool) {
	if !t.HasFocus || t.Segment < 0 {
		return selector.Segment{}, false
	}
	return t.Focus.Segments[t.Segment], true
}

// ImportBlock is a position inside an :import block, outside any value.
type ImportBlock struct {
	Cursor
	Rule *Scope
}

// SimpleSelectorRule is a position inside the block of a rule whose selector is a
// single class or element.
type SimpleSelectorRule struct {
	Cursor
	Rule *Scope
}

// ComplexSelectorRule is a position inside any other style rule block.
type ComplexSelectorRule struct {
	Cursor
	Rule *Scope
}

// DeclarationValue is a position after the colon of a declaration.
type DeclarationValue struct {
	Cursor
	Rule     *Scope
	Property string
	// Value is the value text up to the cursor.
	Value      string
	ValueStart int
}

func (c Cursor) Base() Cursor { return c }

func (Unknown) context()             {}
func (TopLevel) context()            {}
func (ImportBlock) context()         {}
func (SimpleSelectorRule) context()  {}
func (ComplexSelectorRule) context() {}
func (DeclarationValue) context()    {}

// RuleOf returns the enclosing rule scope of a context, or nil at top level.
func RuleOf(c Context) *Scope {
	switch c := c.(type) {
	case ImportBlock:
		return c.Rule
	case SimpleSelectorRule:
		return c.Rule
	case ComplexSelectorRule:
		return c.Rule
	case DeclarationValue:
		return c.Rule
	}
	return nil
}
