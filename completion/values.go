package completion

import (
	"slices"
	"strings"

	"go.lsp.dev/protocol"

	"github.com/alexispurslane/stylable-lsp/classify"
	"github.com/alexispurslane/stylable-lsp/stylesheet"
)

const valueFunc = "value("

// MixinProvider offers mixin targets inside an -st-mixin value.
type MixinProvider struct{}

func (MixinProvider) Tokens() []string { return nil }

func (MixinProvider) Provide(req *Request) []Completion {
	decl, ok := req.Context.(classify.DeclarationValue)
	if !ok || decl.Property != stylesheet.DirectiveMixin || decl.Rule.Kind != stylesheet.StyleRule {
		return nil
	}
	prefix, listed, ok := listItem(decl.Value)
	if !ok {
		return nil
	}
	return symbolCompletions(req, prefix, decl.PrefixRange(len(prefix)), func(name string) bool {
		return name != stylesheet.RootClass && !slices.Contains(listed, name)
	})
}

// NamedProvider offers the exports of the imported file inside -st-named.
type NamedProvider struct{}

func (NamedProvider) Tokens() []string { return nil }

func (NamedProvider) Provide(req *Request) []Completion {
	decl, ok := req.Context.(classify.DeclarationValue)
	if !ok || decl.Property != stylesheet.DirectiveNamed || decl.Rule.Kind != stylesheet.ImportRule {
		return nil
	}
	prefix, listed, ok := listItem(decl.Value)
	if !ok {
		return nil
	}
	imp := importOf(req.Sheet, decl.Rule)
	if imp == nil {
		return nil
	}
	target, tsheet, ok := req.Resolver.Import(req.URI, imp)
	if !ok {
		return nil
	}

	rng := decl.PrefixRange(len(prefix))
	var out []Completion
	add := func(name, detail string, kind protocol.CompletionItemKind) {
		if slices.Contains(listed, name) || !strings.HasPrefix(name, prefix) {
			return
		}
		out = append(out, Completion{
			Label:      name,
			Detail:     detail,
			SortText:   "a" + name,
			InsertText: name,
			Range:      rng,
			Kind:       kind,
			Origin:     target,
		})
	}
	for _, name := range tsheet.ClassOrder {
		if name != stylesheet.RootClass {
			add(name, describe(req.URI, target), protocol.CompletionItemKindClass)
		}
	}
	for _, v := range tsheet.Vars {
		add(v.Name, v.Value, protocol.CompletionItemKindVariable)
	}
	return out
}

// importOf finds the import parsed from the block in scope. While the block is
// being edited the parser may not have recovered it; the -st-from line is then
// read from the text.
func importOf(sheet *stylesheet.Sheet, scope *classify.Scope) *stylesheet.Import {
	if scope.Rule != nil {
		for _, imp := range sheet.Imports {
			if imp.Rule == scope.Rule {
				return imp
			}
		}
	}

	block := sheet.Source[scope.BlockStart:]
	if end := strings.IndexByte(block, '}'); end >= 0 {
		block = block[:end]
	}
	i := strings.Index(block, stylesheet.DirectiveFrom)
	if i < 0 {
		return nil
	}
	rest := strings.TrimLeft(block[i+len(stylesheet.DirectiveFrom):], " \t")
	if !strings.HasPrefix(rest, ":") {
		return nil
	}
	rest = rest[1:]
	if end := strings.IndexAny(rest, ";\n"); end >= 0 {
		rest = rest[:end]
	}
	from := strings.Trim(rest, " \t\"'")
	if from == "" {
		return nil
	}
	return &stylesheet.Import{From: from}
}

// ValueProvider offers variables inside value(), and value() itself in ordinary
// declaration values.
type ValueProvider struct{}

func (ValueProvider) Tokens() []string { return nil }

func (ValueProvider) Provide(req *Request) []Completion {
	decl, ok := req.Context.(classify.DeclarationValue)
	if !ok || decl.Rule.Kind != stylesheet.StyleRule || strings.HasPrefix(decl.Property, "-st-") {
		return nil
	}

	if i := strings.LastIndex(decl.Value, valueFunc); i >= 0 && !strings.Contains(decl.Value[i:], ")") {
		prefix, ok := identPrefix(decl.Value[i+len(valueFunc):])
		if !ok {
			return nil
		}
		return variableCompletions(req, prefix, decl.PrefixRange(len(prefix)))
	}

	prefix := decl.Token
	if prefix == "" || !strings.HasPrefix(valueFunc, prefix) || len(variableCompletions(req, "", decl.PrefixRange(0))) == 0 {
		return nil
	}
	return []Completion{{
		Label:            "value()",
		Detail:           "Use the value of a variable",
		SortText:         "a" + valueFunc,
		InsertText:       "value($1)$0",
		Snippet:          true,
		Range:            decl.TokenRange(),
		Kind:             protocol.CompletionItemKindFunction,
		TriggerSuggest:   true,
		TriggerSignature: true,
	}}
}

func variableCompletions(req *Request, prefix string, rng protocol.Range) []Completion {
	var out []Completion
	seen := make(map[string]bool)
	add := func(name string) {
		if seen[name] || !strings.HasPrefix(name, prefix) {
			return
		}
		seen[name] = true
		sym, ok := req.Resolver.Var(req.URI, name)
		if !ok {
			return
		}
		detail := describe(req.URI, sym.File)
		if sheet, ok := req.Resolver.Source().Sheet(sym.File); ok && !sym.Unresolved {
			if v, ok := sheet.Var(sym.Name); ok {
				detail = v.Value
			}
		}
		out = append(out, Completion{
			Label:      name,
			Detail:     detail,
			SortText:   "a" + name,
			InsertText: name,
			Range:      rng,
			Kind:       protocol.CompletionItemKindVariable,
			Origin:     sym.File,
		})
	}
	for _, v := range req.Sheet.Vars {
		add(v.Name)
	}
	for _, imp := range req.Sheet.Imports {
		for _, n := range imp.Named {
			add(n.Name)
		}
	}
	return out
}

// FromPathProvider offers workspace stylesheets inside an -st-from string.
type FromPathProvider struct{}

func (FromPathProvider) Tokens() []string { return nil }

func (FromPathProvider) Provide(req *Request) []Completion {
	decl, ok := req.Context.(classify.DeclarationValue)
	if !ok || decl.Property != stylesheet.DirectiveFrom || decl.Rule.Kind != stylesheet.ImportRule {
		return nil
	}
	value := strings.TrimLeft(decl.Value, " \t")
	if value == "" || (value[0] != '"' && value[0] != '\'') {
		return nil
	}
	partial := value[1:]
	if strings.ContainsAny(partial, "\"'\n") {
		return nil
	}

	rng := decl.PrefixRange(len(partial))
	var out []Completion
	for _, u := range req.Resolver.Source().URIs() {
		if u == req.URI {
			continue
		}
		rel, ok := stylesheet.RelativeImport(req.URI, u)
		if !ok || !strings.HasPrefix(rel, partial) {
			continue
		}
		out = append(out, Completion{
			Label:      rel,
			SortText:   "a" + rel,
			InsertText: rel,
			Range:      rng,
			Kind:       protocol.CompletionItemKindFile,
			Origin:     u,
		})
	}
	return out
}
