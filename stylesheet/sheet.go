// Package stylesheet builds the Stylable meta-model of a single stylesheet: its rule
// tree, local classes with their directives, imports, variables and every syntactic
// symbol occurrence.
package stylesheet

import (
	"sort"
)

// RootClass is the implicit class every stylesheet declares.
const RootClass = "root"

// Directive property names.
const (
	DirectiveFrom    = "-st-from"
	DirectiveDefault = "-st-default"
	DirectiveNamed   = "-st-named"
	DirectiveTheme   = "-st-theme"
	DirectiveExtends = "-st-extends"
	DirectiveStates  = "-st-states"
	DirectiveMixin   = "-st-mixin"
	DirectiveVariant = "-st-variant"
)

// Special selectors.
const (
	ImportSelector = ":import"
	VarsSelector   = ":vars"
)

// RuleKind classifies a rule of the rule tree.
type RuleKind int

const (
	StyleRule RuleKind = iota
	ImportRule
	VarsRule
	MediaRule
	AtRule
)

func (k RuleKind) String() string {
	switch k {
	case StyleRule:
		return "style"
	case ImportRule:
		return "import"
	case VarsRule:
		return "vars"
	case MediaRule:
		return "media"
	case AtRule:
		return "at-rule"
	default:
		return "unknown"
	}
}

// Rule is a rule set or a block at-rule. For at-rules Selector holds the prelude,
// including the at-keyword.
type Rule struct {
	Kind         RuleKind
	Selector     string
	SelectorSpan Span
	// Block covers the braces; it is empty for a rule without a body.
	Block    Span
	Span     Span
	Decls    []*Decl
	Children []*Rule
	Parent   *Rule
}

// Decl returns the first declaration of prop, or nil.
func (r *Rule) Decl(prop string) *Decl {
	for _, d := range r.Decls {
		if d.Prop == prop {
			return d
		}
	}
	return nil
}

// InMedia reports whether the rule is nested in a media rule.
func (r *Rule) InMedia() bool {
	for p := r.Parent; p != nil; p = p.Parent {
		if p.Kind == MediaRule {
			return true
		}
	}
	return false
}

// Decl is a declaration inside a rule block.
type Decl struct {
	Prop      string
	PropSpan  Span
	Value     string
	ValueSpan Span
	Span      Span
}

// Ref is a symbol name and the span it was written at.
type Ref struct {
	Name string
	Span Span
}

// Class is a class declared by the stylesheet. Directives are only read from rules
// whose selector is that single class.
type Class struct {
	Name string
	// Def is the first selector occurrence; for an implicit root it is the empty
	// span at the start of the document.
	Def      Span
	Implicit bool
	States   []Ref
	Extends  *Ref
	Mixins   []Ref
	Variant  bool
}

// HasState reports whether the class itself declares state name.
func (c *Class) HasState(name string) bool {
	for _, s := range c.States {
		if s.Name == name {
			return true
		}
	}
	return false
}

// Import is one :import block.
type Import struct {
	From     string
	FromSpan Span
	Default  *Ref
	Named    []Ref
	Theme    bool
	Rule     *Rule
}

// Var is a :vars declaration.
type Var struct {
	Name      string
	Span      Span
	Value     string
	ValueSpan Span
}

// OccurrenceKind is the syntactic role of a symbol occurrence.
type OccurrenceKind int

const (
	ClassSelector OccurrenceKind = iota
	ElementSelector
	StateSelector
	PseudoElementSelector
	StateDecl
	ExtendsValue
	MixinValue
	DefaultImport
	NamedImport
	VarDecl
	VarUsage
)

func (k OccurrenceKind) String() string {
	switch k {
	case ClassSelector:
		return "class selector"
	case ElementSelector:
		return "element selector"
	case StateSelector:
		return "state selector"
	case PseudoElementSelector:
		return "pseudo-element selector"
	case StateDecl:
		return "state declaration"
	case ExtendsValue:
		return "extends value"
	case MixinValue:
		return "mixin value"
	case DefaultImport:
		return "default import"
	case NamedImport:
		return "named import"
	case VarDecl:
		return "variable declaration"
	case VarUsage:
		return "variable usage"
	default:
		return "unknown"
	}
}

// Occurrence is a symbol name written somewhere in the stylesheet. Span covers the
// name only.
type Occurrence struct {
	Kind OccurrenceKind
	Name string
	Span Span
	// Owner is the selector path a state or pseudo-element applies to: a class or
	// element name followed by any pseudo-elements, e.g. ["gaga", "label"] for
	// ":hover" in ".gaga::label:hover". For a state declaration it is the class.
	Owner []string
}

// Problem is a locally detectable error in the stylesheet.
type Problem struct {
	Span    Span
	Message string
}

// Sheet is the parsed meta-model of one stylesheet.
type Sheet struct {
	Source string
	Lines  *LineIndex
	// Rules holds the top level rules; nested rules hang off Children.
	Rules       []*Rule
	Classes     map[string]*Class
	ClassOrder  []string
	Imports     []*Import
	Vars        []*Var
	Namespace   string
	Occurrences []Occurrence
	Problems    []Problem
	// HasErrors is set when the parser had to recover from malformed input.
	HasErrors bool

	flat []*Rule
}

func newSheet(text string) *Sheet {
	s := &Sheet{
		Source:  text,
		Lines:   NewLineIndex(text),
		Classes: make(map[string]*Class),
	}
	s.addClass(RootClass, Span{}, true)
	return s
}

func (s *Sheet) addClass(name string, def Span, implicit bool) *Class {
	if c, ok := s.Classes[name]; ok {
		if c.Implicit && !implicit {
			c.Def = def
			c.Implicit = false
		}
		return c
	}
	c := &Class{Name: name, Def: def, Implicit: implicit}
	s.Classes[name] = c
	s.ClassOrder = append(s.ClassOrder, name)
	return c
}

// Class returns the local class called name.
func (s *Sheet) Class(name string) (*Class, bool) {
	c, ok := s.Classes[name]
	return c, ok
}

// Var returns the variable called name.
func (s *Sheet) Var(name string) (*Var, bool) {
	for _, v := range s.Vars {
		if v.Name == name {
			return v, true
		}
	}
	return nil, false
}

// ImportOf returns the import that brings name into scope, and whether name is its
// default symbol. The last matching import wins, as in a cascade.
func (s *Sheet) ImportOf(name string) (*Import, bool) {
	for i := len(s.Imports) - 1; i >= 0; i-- {
		imp := s.Imports[i]
		if imp.Default != nil && imp.Default.Name == name {
			return imp, true
		}
		for _, n := range imp.Named {
			if n.Name == name {
				return imp, false
			}
		}
	}
	return nil, false
}

// AllRules returns every rule in document order.
func (s *Sheet) AllRules() []*Rule {
	return s.flat
}

// RuleAt returns the innermost rule whose span contains offset.
func (s *Sheet) RuleAt(offset int) *Rule {
	var found *Rule
	for _, r := range s.flat {
		if offset > r.Span.Start && offset < r.Span.End {
			found = r
		}
	}
	return found
}

// OccurrenceAt returns the occurrence whose name span contains offset. An offset
// right after the name still matches.
func (s *Sheet) OccurrenceAt(offset int) (Occurrence, bool) {
	i := sort.Search(len(s.Occurrences), func(i int) bool {
		return s.Occurrences[i].Span.End >= offset
	})
	if i < len(s.Occurrences) && s.Occurrences[i].Span.Contains(offset) {
		return s.Occurrences[i], true
	}
	return Occurrence{}, false
}

// OccurrencesOf returns the occurrences named name, in document order.
func (s *Sheet) OccurrencesOf(name string) []Occurrence {
	var out []Occurrence
	for _, o := range s.Occurrences {
		if o.Name == name {
			out = append(out, o)
		}
	}
	return out
}
