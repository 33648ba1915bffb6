package completion

import (
	"strings"

	"go.lsp.dev/protocol"

	"github.com/alexispurslane/stylable-lsp/classify"
	"github.com/alexispurslane/stylable-lsp/resolve"
	"github.com/alexispurslane/stylable-lsp/selector"
	"github.com/alexispurslane/stylable-lsp/stylesheet"
)

// ClassProvider offers local classes and named imports while a selector is typed.
type ClassProvider struct{}

func (ClassProvider) Tokens() []string { return nil }

func (ClassProvider) Provide(req *Request) []Completion {
	top, ok := req.Context.(classify.TopLevel)
	if !ok || (top.Token != "" && top.Token[0] != '.') {
		return nil
	}

	var out []Completion
	seen := map[string]bool{stylesheet.RootClass: true}
	add := func(name string, sym resolve.Symbol) {
		if seen[name] {
			return
		}
		seen[name] = true
		label := "." + name
		if !strings.HasPrefix(label, top.Token) {
			return
		}
		out = append(out, Completion{
			Label:      label,
			Detail:     describe(req.URI, sym.File),
			SortText:   "b" + name,
			InsertText: label,
			Range:      top.TokenRange(),
			Kind:       protocol.CompletionItemKindClass,
			Origin:     sym.File,
		})
	}

	for _, name := range req.Sheet.ClassOrder {
		if imp, _ := req.Sheet.ImportOf(name); imp != nil {
			// Listed below with the import it comes from.
			continue
		}
		add(name, resolve.Symbol{File: req.URI})
	}
	for _, imp := range req.Sheet.Imports {
		for _, n := range imp.Named {
			sym, ok := req.Resolver.Class(req.URI, n.Name)
			if !ok {
				continue
			}
			add(n.Name, sym)
		}
	}
	return out
}

// TypeProvider offers default imported components as selector types.
type TypeProvider struct{}

func (TypeProvider) Tokens() []string { return nil }

func (TypeProvider) Provide(req *Request) []Completion {
	top, ok := req.Context.(classify.TopLevel)
	if !ok {
		return nil
	}
	if _, ok := identPrefix(top.Token); !ok {
		return nil
	}

	var out []Completion
	seen := make(map[string]bool)
	for _, imp := range req.Sheet.Imports {
		if imp.Default == nil || seen[imp.Default.Name] {
			continue
		}
		name := imp.Default.Name
		seen[name] = true
		if !strings.HasPrefix(name, top.Token) {
			continue
		}
		sym, _ := req.Resolver.Class(req.URI, name)
		out = append(out, Completion{
			Label:      name,
			Detail:     "Default export from: " + imp.From,
			SortText:   "b" + name,
			InsertText: name,
			Range:      top.TokenRange(),
			Kind:       protocol.CompletionItemKindModule,
			Origin:     sym.File,
		})
	}
	return out
}

// ExtendsProvider offers what a class may extend inside an -st-extends value.
type ExtendsProvider struct{}

func (ExtendsProvider) Tokens() []string { return nil }

func (ExtendsProvider) Provide(req *Request) []Completion {
	decl, ok := req.Context.(classify.DeclarationValue)
	if !ok || decl.Property != stylesheet.DirectiveExtends || decl.Rule.Kind != stylesheet.StyleRule {
		return nil
	}
	prefix, ok := identPrefix(decl.Value)
	if !ok {
		return nil
	}

	self := ""
	if selector.IsSimple(decl.Rule.Selector) {
		self = strings.TrimPrefix(decl.Rule.Selector, ".")
	}
	rng := decl.PrefixRange(len(prefix))
	return symbolCompletions(req, prefix, rng, func(name string) bool {
		return name != self
	})
}

// symbolCompletions lists default imports, named imports and local classes whose
// name starts with prefix and that keep accepts. Local classes come last.
func symbolCompletions(req *Request, prefix string, rng protocol.Range, keep func(string) bool) []Completion {
	var out []Completion
	seen := make(map[string]bool)
	add := func(name string, kind protocol.CompletionItemKind, sort string) {
		if seen[name] || !keep(name) || !strings.HasPrefix(name, prefix) {
			return
		}
		seen[name] = true
		sym, ok := req.Resolver.Class(req.URI, name)
		if !ok {
			return
		}
		out = append(out, Completion{
			Label:      name,
			Detail:     describe(req.URI, sym.File),
			SortText:   sort + name,
			InsertText: name,
			Range:      rng,
			Kind:       kind,
			Origin:     sym.File,
		})
	}

	for _, imp := range req.Sheet.Imports {
		if imp.Default != nil {
			add(imp.Default.Name, protocol.CompletionItemKindModule, "a")
		}
	}
	for _, imp := range req.Sheet.Imports {
		for _, n := range imp.Named {
			add(n.Name, protocol.CompletionItemKindClass, "b")
		}
	}
	for _, name := range req.Sheet.ClassOrder {
		add(name, protocol.CompletionItemKindClass, "c")
	}
	return out
}

// StateProvider offers the states of the type under the cursor after a colon.
type StateProvider struct{}

func (StateProvider) Tokens() []string { return nil }

func (StateProvider) Provide(req *Request) []Completion {
	top, ok := req.Context.(classify.TopLevel)
	if !ok {
		return nil
	}
	seg, ok := top.FocusSegment()
	if !ok || seg.Kind != selector.PseudoClass {
		return nil
	}
	owner := top.Focus.OwnerPath(top.Segment)
	if owner == nil {
		return nil
	}
	typ, ok := req.Resolver.TypeOf(req.URI, owner)
	if !ok {
		return nil
	}

	existing := make(map[string]bool)
	for _, s := range top.Focus.States(top.Offset - top.SelectorStart) {
		existing[s] = true
	}

	var out []Completion
	for _, st := range req.Resolver.StatesOf(typ) {
		if existing[st.Name] {
			continue
		}
		text := ":" + st.Name
		if !strings.HasPrefix(text, top.Token) {
			continue
		}
		out = append(out, Completion{
			Label:      st.Name,
			Detail:     describe(req.URI, st.File),
			SortText:   "a" + st.Name,
			FilterText: text,
			InsertText: text,
			Range:      top.TokenRange(),
			Kind:       protocol.CompletionItemKindEnumMember,
			Origin:     st.File,
		})
	}
	return out
}
