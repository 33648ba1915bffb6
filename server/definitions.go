package server

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/alexispurslane/stylable-lsp/resolve"
	"github.com/alexispurslane/stylable-lsp/stylesheet"
)

func (s *ServerImpl) Definition(ctx context.Context, params *protocol.DefinitionParams) (result []protocol.Location, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("PANIC in Definition", "recover", r)
		}
	}()
	u := params.TextDocument.URI
	log := requestLogger("textDocument/definition", u)
	log.Debug("Definition called", "line", params.Position.Line, "char", params.Position.Character)

	if !s.ensureDependencies(ctx, log, u) {
		return nil, nil
	}
	locs := s.refs.FindDefinition(u, params.Position)
	if len(locs) == 0 {
		log.Debug("No symbol at position")
		return nil, nil
	}
	return toProtocolLocations(locs), nil
}

func (s *ServerImpl) References(ctx context.Context, params *protocol.ReferenceParams) (result []protocol.Location, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("PANIC in References", "recover", r)
		}
	}()
	u := params.TextDocument.URI
	log := requestLogger("textDocument/references", u)
	log.Debug("References called", "line", params.Position.Line, "char", params.Position.Character,
		"includeDeclaration", params.Context.IncludeDeclaration)

	if !s.ensureDependencies(ctx, log, u) {
		return nil, nil
	}
	locs := s.refs.FindReferences(u, params.Position, params.Context.IncludeDeclaration)
	log.Debug("References found", "count", len(locs))
	return toProtocolLocations(locs), nil
}

func (s *ServerImpl) Hover(ctx context.Context, params *protocol.HoverParams) (result *protocol.Hover, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("PANIC in Hover", "recover", r)
		}
	}()
	u := params.TextDocument.URI
	log := requestLogger("textDocument/hover", u)
	log.Debug("Hover handler called", "line", params.Position.Line, "char", params.Position.Character)

	if !s.ensureDependencies(ctx, log, u) {
		return nil, nil
	}
	sym, occ, ok := s.refs.SymbolAt(u, params.Position)
	if !ok {
		return nil, nil
	}
	doc, ok := s.document(u)
	if !ok {
		return nil, nil
	}

	rng := spanRange(doc.Sheet, occ.Span)
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.Markdown,
			Value: s.describeSymbol(u, sym),
		},
		Range: &rng,
	}, nil
}

// describeSymbol renders the kind and provenance of sym as seen from file.
func (s *ServerImpl) describeSymbol(file uri.URI, sym resolve.Symbol) string {
	var b strings.Builder
	switch sym.Kind {
	case resolve.State:
		fmt.Fprintf(&b, "**state** `:%s` of `.%s`", sym.Name, sym.Owner)
	case resolve.Variable:
		fmt.Fprintf(&b, "**variable** `%s`", sym.Name)
	case resolve.Type:
		fmt.Fprintf(&b, "**stylesheet** `%s`", sym.Name)
	default:
		fmt.Fprintf(&b, "**class** `.%s`", sym.Name)
	}

	switch {
	case sym.Unresolved:
		b.WriteString("\n\nImported from a stylesheet that could not be resolved")
	case sym.File == file:
		b.WriteString("\n\nLocal file")
	default:
		if rel, ok := stylesheet.RelativeImport(file, sym.File); ok {
			fmt.Fprintf(&b, "\n\nfrom: `%s`", rel)
		} else {
			fmt.Fprintf(&b, "\n\nfrom: `%s`", sym.File)
		}
	}

	if sym.Kind == resolve.Variable && !sym.Unresolved {
		if sheet, ok := s.store.Sheet(sym.File); ok {
			if v, ok := sheet.Var(sym.Name); ok {
				fmt.Fprintf(&b, "\n\n```css\n%s: %s;\n```", v.Name, v.Value)
			}
		}
	}
	return b.String()
}

func (s *ServerImpl) Declaration(ctx context.Context, params *protocol.DeclarationParams) (result []protocol.Location, err error) {
	return s.Definition(ctx, &protocol.DefinitionParams{TextDocumentPositionParams: params.TextDocumentPositionParams})
}

func (s *ServerImpl) TypeDefinition(ctx context.Context, params *protocol.TypeDefinitionParams) (result []protocol.Location, err error) {
	return nil, nil
}

func (s *ServerImpl) Implementation(ctx context.Context, params *protocol.ImplementationParams) (result []protocol.Location, err error) {
	return nil, nil
}
