package server

import (
	"context"
	"fmt"
	"log/slog"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/alexispurslane/stylable-lsp/stylesheet"
)

// CodeAction offers to import an unknown -st-extends target from every
// workspace stylesheet that declares a class of that name.
func (s *ServerImpl) CodeAction(ctx context.Context, params *protocol.CodeActionParams) (result []protocol.CodeAction, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("PANIC in CodeAction", "recover", r)
		}
	}()
	u := params.TextDocument.URI
	slog.Debug("CodeAction called", "uri", u, "line", params.Range.Start.Line)

	doc, ok := s.document(u)
	if !ok {
		return nil, nil
	}
	sheet := doc.Sheet
	for _, name := range sheet.ClassOrder {
		class := sheet.Classes[name]
		if class.Extends == nil || !overlaps(spanRange(sheet, class.Extends.Span), params.Range) {
			continue
		}
		if _, ok := s.resolver.Class(u, class.Extends.Name); ok {
			continue
		}
		result = append(result, s.importActions(u, class.Extends.Name, params.Context.Diagnostics)...)
	}
	return result, nil
}

func (s *ServerImpl) importActions(u uri.URI, name string, diags []protocol.Diagnostic) []protocol.CodeAction {
	var actions []protocol.CodeAction
	for _, other := range s.store.All() {
		if other.URI == u {
			continue
		}
		class, ok := other.Sheet.Class(name)
		if !ok || class.Implicit {
			continue
		}
		if imp, _ := other.Sheet.ImportOf(name); imp != nil {
			continue
		}
		from, ok := stylesheet.RelativeImport(u, other.URI)
		if !ok {
			continue
		}
		text := fmt.Sprintf(":import {\n    %s: %q;\n    %s: %s;\n}\n", stylesheet.DirectiveFrom, from, stylesheet.DirectiveNamed, name)
		actions = append(actions, protocol.CodeAction{
			Title:       fmt.Sprintf("Import %s from %q", name, from),
			Kind:        protocol.QuickFix,
			Diagnostics: matching(diags, name),
			Edit: &protocol.WorkspaceEdit{
				Changes: map[protocol.DocumentURI][]protocol.TextEdit{
					u: {{Range: protocol.Range{}, NewText: text}},
				},
			},
		})
	}
	return actions
}

// matching returns the diagnostics about name among those the client sent.
func matching(diags []protocol.Diagnostic, name string) []protocol.Diagnostic {
	want := fmt.Sprintf("unknown -st-extends target %q", name)
	var out []protocol.Diagnostic
	for _, d := range diags {
		if d.Source == diagnosticSource && d.Message == want {
			out = append(out, d)
		}
	}
	return out
}

func overlaps(a, b protocol.Range) bool {
	return !before(a.End, b.Start) && !before(b.End, a.Start)
}

func before(a, b protocol.Position) bool {
	return a.Line < b.Line || (a.Line == b.Line && a.Character < b.Character)
}
