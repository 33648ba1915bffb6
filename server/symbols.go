package server

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/alexispurslane/stylable-lsp/stylesheet"
)

// DocumentSymbol lists the classes, variables and imports of a stylesheet.
// Classes carry their states as children, imports their default and named
// symbols.
func (s *ServerImpl) DocumentSymbol(ctx context.Context, params *protocol.DocumentSymbolParams) (result []interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("PANIC in DocumentSymbol", "recover", r)
		}
	}()
	u := params.TextDocument.URI
	slog.Debug("DocumentSymbol called", "uri", u)

	doc, ok := s.document(u)
	if !ok {
		return nil, nil
	}
	for _, sym := range documentSymbols(doc.Sheet) {
		result = append(result, sym)
	}
	return result, nil
}

func documentSymbols(sheet *stylesheet.Sheet) []protocol.DocumentSymbol {
	var out []protocol.DocumentSymbol

	for _, imp := range sheet.Imports {
		sym := protocol.DocumentSymbol{
			Name:   imp.From,
			Detail: ":import",
			Kind:   protocol.SymbolKindModule,
		}
		if imp.Rule != nil {
			sym.Range = spanRange(sheet, imp.Rule.Span)
			sym.SelectionRange = spanRange(sheet, imp.Rule.SelectorSpan)
		}
		if !imp.FromSpan.Empty() {
			sym.SelectionRange = spanRange(sheet, imp.FromSpan)
		}
		if imp.Default != nil {
			sym.Children = append(sym.Children, refSymbol(sheet, *imp.Default, "default", protocol.SymbolKindClass))
		}
		for _, n := range imp.Named {
			sym.Children = append(sym.Children, refSymbol(sheet, n, "named", protocol.SymbolKindClass))
		}
		out = append(out, sym)
	}

	for _, v := range sheet.Vars {
		sym := refSymbol(sheet, stylesheet.Ref{Name: v.Name, Span: v.Span}, v.Value, protocol.SymbolKindVariable)
		out = append(out, sym)
	}

	for _, name := range sheet.ClassOrder {
		class := sheet.Classes[name]
		if class.Implicit {
			continue
		}
		sym := refSymbol(sheet, stylesheet.Ref{Name: "." + name, Span: class.Def}, "", protocol.SymbolKindClass)
		if class.Extends != nil {
			sym.Detail = "extends " + class.Extends.Name
		}
		for _, st := range class.States {
			sym.Children = append(sym.Children, refSymbol(sheet, stylesheet.Ref{Name: ":" + st.Name, Span: st.Span}, "state", protocol.SymbolKindEnumMember))
		}
		out = append(out, sym)
	}
	return out
}

func refSymbol(sheet *stylesheet.Sheet, ref stylesheet.Ref, detail string, kind protocol.SymbolKind) protocol.DocumentSymbol {
	rng := spanRange(sheet, ref.Span)
	return protocol.DocumentSymbol{
		Name:           ref.Name,
		Detail:         detail,
		Kind:           kind,
		Range:          rng,
		SelectionRange: rng,
	}
}

// Symbols searches the classes and variables of every resident stylesheet. The
// query matches case-insensitively anywhere in the name; an empty query
// matches everything.
func (s *ServerImpl) Symbols(ctx context.Context, params *protocol.WorkspaceSymbolParams) (result []protocol.SymbolInformation, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("PANIC in Symbols", "recover", r)
		}
	}()
	slog.Debug("Symbols called", "query", params.Query)

	query := strings.ToLower(params.Query)
	for _, doc := range s.store.All() {
		container := s.containerName(doc.URI)
		add := func(name string, span stylesheet.Span, kind protocol.SymbolKind) {
			if query != "" && !strings.Contains(strings.ToLower(name), query) {
				return
			}
			result = append(result, protocol.SymbolInformation{
				Name:          name,
				Kind:          kind,
				Location:      protocol.Location{URI: doc.URI, Range: spanRange(doc.Sheet, span)},
				ContainerName: container,
			})
		}
		for _, name := range doc.Sheet.ClassOrder {
			class := doc.Sheet.Classes[name]
			if class.Implicit {
				continue
			}
			if imp, _ := doc.Sheet.ImportOf(name); imp != nil {
				continue
			}
			add("."+name, class.Def, protocol.SymbolKindClass)
		}
		for _, v := range doc.Sheet.Vars {
			add(v.Name, v.Span, protocol.SymbolKindVariable)
		}
	}
	return result, nil
}

// containerName is the path of u relative to the workspace root.
func (s *ServerImpl) containerName(u uri.URI) string {
	path, ok := stylesheet.Path(u)
	if !ok {
		return string(u)
	}
	s.mu.RLock()
	root := s.root
	s.mu.RUnlock()
	if root != "" {
		if rel, err := filepath.Rel(root, path); err == nil {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.Base(path)
}
