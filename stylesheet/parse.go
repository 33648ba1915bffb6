package stylesheet

import (
	"context"
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/css"

	"github.com/alexispurslane/stylable-lsp/selector"
)

// Tree-sitter CSS node types.
const (
	nodeRuleSet   = "rule_set"
	nodeSelectors = "selectors"
	nodeBlock     = "block"
	nodeDecl      = "declaration"
	nodeMedia     = "media_statement"
	nodeSupports  = "supports_statement"
	nodeAtRule    = "at_rule"
	nodeNamespace = "namespace_statement"
	nodeKeyframes = "keyframes_statement"
	nodeError     = "ERROR"
)

const rootAfterSpacing = ".root class cannot be used after spacing"

// Parse parses text into a Sheet. Malformed input never fails: the parser recovers
// and HasErrors is set. An error is only returned when ctx is done.
func Parse(ctx context.Context, text string) (*Sheet, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("stylesheet parse canceled before start: %w", err)
	}

	src := []byte(text)
	parser := sitter.NewParser()
	parser.SetLanguage(css.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	b := &builder{src: text, sheet: newSheet(text)}
	root := tree.RootNode()
	b.sheet.HasErrors = root.HasError()
	b.walk(root, nil)
	b.extract()
	return b.sheet, nil
}

// MustParse parses text with a background context. It is meant for tests and for
// callers that already hold the text in memory.
func MustParse(text string) *Sheet {
	s, err := Parse(context.Background(), text)
	if err != nil {
		panic(err)
	}
	return s
}

type builder struct {
	src   string
	sheet *Sheet
}

func (b *builder) span(n *sitter.Node) Span {
	return Span{Start: int(n.StartByte()), End: int(n.EndByte())}
}

func (b *builder) walk(node *sitter.Node, parent *Rule) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case nodeRuleSet:
			b.ruleSet(child, parent)
		case nodeMedia:
			b.atRule(child, parent, MediaRule)
		case nodeSupports, nodeAtRule:
			b.atRule(child, parent, AtRule)
		case nodeKeyframes:
			b.add(&Rule{Kind: AtRule, Selector: b.prelude(child), SelectorSpan: b.span(child), Span: b.span(child)}, parent)
		case nodeNamespace:
			if parent == nil {
				b.namespace(child)
			}
		case nodeDecl:
			if parent != nil {
				parent.Decls = append(parent.Decls, b.decl(child))
			}
		case nodeError, nodeBlock:
			b.walk(child, parent)
		}
	}
}

func (b *builder) add(r *Rule, parent *Rule) {
	r.Parent = parent
	if parent != nil {
		parent.Children = append(parent.Children, r)
	} else {
		b.sheet.Rules = append(b.sheet.Rules, r)
	}
	b.sheet.flat = append(b.sheet.flat, r)
}

func (b *builder) ruleSet(node *sitter.Node, parent *Rule) {
	r := &Rule{Kind: StyleRule, Span: b.span(node)}
	var block *sitter.Node
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case nodeSelectors:
			r.SelectorSpan = b.trimmed(b.span(child))
			r.Selector = b.src[r.SelectorSpan.Start:r.SelectorSpan.End]
		case nodeBlock:
			block = child
			r.Block = b.span(child)
		}
	}
	switch r.Selector {
	case ImportSelector:
		r.Kind = ImportRule
	case VarsSelector:
		r.Kind = VarsRule
	}
	b.add(r, parent)
	if block != nil {
		b.walk(block, r)
	}
}

func (b *builder) atRule(node *sitter.Node, parent *Rule, kind RuleKind) {
	r := &Rule{Kind: kind, Span: b.span(node)}
	var block *sitter.Node
	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child.Type() == nodeBlock {
			block = child
			r.Block = b.span(child)
		}
	}
	end := r.Span.End
	if block != nil {
		end = r.Block.Start
	}
	r.SelectorSpan = b.trimmed(Span{Start: r.Span.Start, End: end})
	r.Selector = b.src[r.SelectorSpan.Start:r.SelectorSpan.End]
	b.add(r, parent)
	if block != nil {
		b.walk(block, r)
	}
}

func (b *builder) prelude(node *sitter.Node) string {
	text := b.src[node.StartByte():node.EndByte()]
	if i := strings.IndexByte(text, '{'); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}

func (b *builder) namespace(node *sitter.Node) {
	text := b.src[node.StartByte():node.EndByte()]
	text = strings.TrimPrefix(strings.TrimSpace(text), "@namespace")
	text = strings.TrimSuffix(strings.TrimSpace(text), ";")
	b.sheet.Namespace = unquote(strings.TrimSpace(text))
}

func (b *builder) decl(node *sitter.Node) *Decl {
	full := b.span(node)
	d := &Decl{Span: full}
	text := b.src[full.Start:full.End]
	colon := strings.IndexByte(text, ':')
	if colon < 0 {
		d.PropSpan = b.trimmed(full)
		d.Prop = b.src[d.PropSpan.Start:d.PropSpan.End]
		d.ValueSpan = Span{Start: full.End, End: full.End}
		return d
	}
	d.PropSpan = b.trimmed(Span{Start: full.Start, End: full.Start + colon})
	d.Prop = b.src[d.PropSpan.Start:d.PropSpan.End]

	end := full.End
	for end > full.Start+colon+1 && (b.src[end-1] == ';' || isSpace(b.src[end-1])) {
		end--
	}
	d.ValueSpan = b.trimmed(Span{Start: full.Start + colon + 1, End: end})
	d.Value = b.src[d.ValueSpan.Start:d.ValueSpan.End]
	return d
}

// trimmed shrinks s to exclude surrounding whitespace.
func (b *builder) trimmed(s Span) Span {
	for s.Start < s.End && isSpace(b.src[s.Start]) {
		s.Start++
	}
	for s.End > s.Start && isSpace(b.src[s.End-1]) {
		s.End--
	}
	return s
}

// extract derives classes, imports, vars and occurrences from the rule tree.
func (b *builder) extract() {
	for _, r := range b.sheet.flat {
		switch r.Kind {
		case StyleRule:
			b.styleRule(r)
		case ImportRule:
			b.importRule(r)
		case VarsRule:
			b.varsRule(r)
		}
		for _, d := range r.Decls {
			b.valueUsages(d)
		}
	}
	sort.SliceStable(b.sheet.Occurrences, func(i, j int) bool {
		return b.sheet.Occurrences[i].Span.Start < b.sheet.Occurrences[j].Span.Start
	})
}

func (b *builder) occur(kind OccurrenceKind, name string, span Span, owner []string) {
	b.sheet.Occurrences = append(b.sheet.Occurrences, Occurrence{Kind: kind, Name: name, Span: span, Owner: owner})
}

func (b *builder) styleRule(r *Rule) {
	base := r.SelectorSpan.Start
	chunks := selector.Parse(r.Selector)
	for ci, chunk := range chunks {
		for i, seg := range chunk.Segments {
			if seg.Name == "" {
				continue
			}
			span := Span{Start: base + seg.Start, End: base + seg.End}
			switch seg.Kind {
			case selector.Class:
				b.sheet.addClass(seg.Name, span, false)
				b.occur(ClassSelector, seg.Name, span, nil)
				if seg.Name == RootClass && ci > 0 && chunk.Combinator != "," {
					b.sheet.Problems = append(b.sheet.Problems, Problem{Span: span, Message: rootAfterSpacing})
				}
			case selector.Element:
				b.occur(ElementSelector, seg.Name, span, nil)
			case selector.PseudoClass:
				if owner := chunk.OwnerPath(i); owner != nil {
					b.occur(StateSelector, seg.Name, span, owner)
				}
			case selector.PseudoElement:
				if owner := chunk.OwnerPath(i); owner != nil {
					b.occur(PseudoElementSelector, seg.Name, span, owner)
				}
			}
		}
	}

	var class *Class
	if selector.IsSimple(r.Selector) && chunks[0].Segments[0].Kind == selector.Class {
		class = b.sheet.Classes[chunks[0].Segments[0].Name]
	}

	for _, d := range r.Decls {
		switch d.Prop {
		case DirectiveMixin:
			for _, ref := range b.list(d) {
				b.occur(MixinValue, ref.Name, ref.Span, nil)
				if class != nil {
					class.Mixins = append(class.Mixins, ref)
				}
			}
		case DirectiveStates:
			if class == nil {
				continue
			}
			for _, ref := range b.list(d) {
				class.States = append(class.States, ref)
				b.occur(StateDecl, ref.Name, ref.Span, []string{class.Name})
			}
		case DirectiveExtends:
			if class == nil {
				continue
			}
			if refs := b.list(d); len(refs) > 0 {
				ref := refs[0]
				class.Extends = &ref
				b.occur(ExtendsValue, ref.Name, ref.Span, nil)
			}
		case DirectiveVariant:
			if class != nil {
				class.Variant = strings.TrimSpace(d.Value) == "true"
			}
		}
	}
}

func (b *builder) importRule(r *Rule) {
	imp := &Import{Rule: r}
	for _, d := range r.Decls {
		switch d.Prop {
		case DirectiveFrom:
			imp.From, imp.FromSpan = unquoteSpan(d.Value, d.ValueSpan)
		case DirectiveDefault:
			if refs := b.list(d); len(refs) > 0 {
				ref := refs[0]
				imp.Default = &ref
				b.occur(DefaultImport, ref.Name, ref.Span, nil)
			}
		case DirectiveNamed:
			for _, ref := range b.list(d) {
				imp.Named = append(imp.Named, ref)
				b.occur(NamedImport, ref.Name, ref.Span, nil)
			}
		case DirectiveTheme:
			imp.Theme = strings.TrimSpace(d.Value) == "true"
		}
	}
	b.sheet.Imports = append(b.sheet.Imports, imp)
}

func (b *builder) varsRule(r *Rule) {
	for _, d := range r.Decls {
		if d.Prop == "" {
			continue
		}
		b.sheet.Vars = append(b.sheet.Vars, &Var{Name: d.Prop, Span: d.PropSpan, Value: d.Value, ValueSpan: d.ValueSpan})
		b.occur(VarDecl, d.Prop, d.PropSpan, nil)
	}
}

// valueUsages records every value(name) call in the declaration value.
func (b *builder) valueUsages(d *Decl) {
	for _, ref := range ValueCalls(d.Value, d.ValueSpan.Start) {
		b.occur(VarUsage, ref.Name, ref.Span, nil)
	}
}

// list splits a comma separated directive value into names.
func (b *builder) list(d *Decl) []Ref {
	return SplitList(d.Value, d.ValueSpan.Start)
}

// SplitList splits value at top level commas and returns the leading identifier of
// each entry, with spans shifted by base. Entries without an identifier are skipped,
// and arguments such as "size(small, big)" are ignored.
func SplitList(value string, base int) []Ref {
	var refs []Ref
	depth := 0
	start := 0
	flush := func(end int) {
		entry := value[start:end]
		i := 0
		for i < len(entry) && isSpace(entry[i]) {
			i++
		}
		j := i
		for j < len(entry) && selector.IsIdentByte(entry[j]) {
			j++
		}
		if j > i {
			refs = append(refs, Ref{Name: entry[i:j], Span: Span{Start: base + start + i, End: base + start + j}})
		}
	}
	for i := 0; i < len(value); i++ {
		switch value[i] {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				flush(i)
				start = i + 1
			}
		}
	}
	flush(len(value))
	return refs
}

// ValueCalls returns the variable names referenced with value(name) in text, with
// spans shifted by base.
func ValueCalls(text string, base int) []Ref {
	var refs []Ref
	for from := 0; ; {
		i := strings.Index(text[from:], "value(")
		if i < 0 {
			return refs
		}
		at := from + i
		from = at + len("value(")
		if at > 0 && selector.IsIdentByte(text[at-1]) {
			continue
		}
		s := from
		for s < len(text) && isSpace(text[s]) {
			s++
		}
		e := s
		for e < len(text) && selector.IsIdentByte(text[e]) {
			e++
		}
		if e > s {
			refs = append(refs, Ref{Name: text[s:e], Span: Span{Start: base + s, End: base + e}})
		}
	}
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return strings.Trim(s, `"'`)
}

func unquoteSpan(s string, span Span) (string, Span) {
	if s == "" {
		return "", span
	}
	start, end := 0, len(s)
	if s[0] == '"' || s[0] == '\'' {
		start++
		if end > start && s[end-1] == s[0] {
			end--
		}
	}
	return s[start:end], Span{Start: span.Start + start, End: span.Start + end}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}
