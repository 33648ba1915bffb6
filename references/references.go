// Package references finds where a symbol is declared and everywhere it is used
// across the stylesheets of a project.
package references

import (
	"sort"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/alexispurslane/stylable-lsp/resolve"
	"github.com/alexispurslane/stylable-lsp/stylesheet"
)

// Location is an occurrence of a symbol in a file.
type Location struct {
	URI   uri.URI
	Span  stylesheet.Span
	Range protocol.Range
}

// Protocol converts the location to its protocol form.
func (l Location) Protocol() protocol.Location {
	return protocol.Location{URI: protocol.DocumentURI(l.URI), Range: l.Range}
}

// Engine answers definition and reference queries.
type Engine struct {
	res *resolve.Resolver
}

// New creates an engine resolving through res.
func New(res *resolve.Resolver) *Engine {
	return &Engine{res: res}
}

// SymbolAt resolves the symbol whose occurrence is under pos in file.
func (e *Engine) SymbolAt(file uri.URI, pos protocol.Position) (resolve.Symbol, stylesheet.Occurrence, bool) {
	sheet, ok := e.res.Source().Sheet(file)
	if !ok {
		return resolve.Symbol{}, stylesheet.Occurrence{}, false
	}
	occ, ok := sheet.OccurrenceAt(sheet.Lines.Offset(pos))
	if !ok {
		return resolve.Symbol{}, stylesheet.Occurrence{}, false
	}
	sym, ok := e.res.Occurrence(file, occ)
	if !ok {
		return resolve.Symbol{}, occ, false
	}
	return sym, occ, true
}

// FindDefinition returns where the symbol under pos is declared.
func (e *Engine) FindDefinition(file uri.URI, pos protocol.Position) []Location {
	sym, _, ok := e.SymbolAt(file, pos)
	if !ok {
		return nil
	}
	loc, ok := e.location(sym.File, sym.Span)
	if !ok {
		return nil
	}
	return []Location{loc}
}

// FindReferences returns every occurrence of the symbol under pos: files in
// traversal order (the defining file first, then importers as discovered), and
// ascending position within a file. The declaration itself is left out unless
// includeDeclaration is set.
func (e *Engine) FindReferences(file uri.URI, pos protocol.Position, includeDeclaration bool) []Location {
	sym, _, ok := e.SymbolAt(file, pos)
	if !ok {
		return nil
	}
	identity := sym.Identity()

	var out []Location
	for _, f := range e.scope(sym.File, file) {
		sheet, ok := e.res.Source().Sheet(f)
		if !ok {
			continue
		}
		var found []Location
		seen := make(map[stylesheet.Span]bool)
		for _, occ := range sheet.Occurrences {
			if !candidate(occ, sym) || seen[occ.Span] {
				continue
			}
			other, ok := e.res.Occurrence(f, occ)
			if !ok || other.Identity() != identity {
				continue
			}
			if !includeDeclaration && f == sym.File && occ.Span == sym.Span {
				continue
			}
			seen[occ.Span] = true
			found = append(found, Location{URI: f, Span: occ.Span, Range: sheet.Lines.Range(occ.Span)})
		}
		sort.SliceStable(found, func(i, j int) bool { return found[i].Span.Start < found[j].Span.Start })
		out = append(out, found...)
	}
	return out
}

// candidate filters occurrences by name before resolving them. A root class is
// also reached through default import names, so every name is a candidate.
func candidate(occ stylesheet.Occurrence, sym resolve.Symbol) bool {
	if occ.Name == sym.Name {
		return true
	}
	switch sym.Kind {
	case resolve.Class, resolve.Type:
		if sym.Name != stylesheet.RootClass {
			return false
		}
		switch occ.Kind {
		case stylesheet.ClassSelector, stylesheet.ElementSelector, stylesheet.ExtendsValue,
			stylesheet.MixinValue, stylesheet.DefaultImport:
			return true
		}
	}
	return false
}

// scope lists the files that may mention a symbol defined in def: def itself,
// then every file importing it directly or through other importers, breadth
// first. The anchor is scanned even when the walk does not reach it.
func (e *Engine) scope(def, anchor uri.URI) []uri.URI {
	order := []uri.URI{def}
	visited := map[uri.URI]bool{def: true}
	for i := 0; i < len(order); i++ {
		for _, imp := range e.res.Importers(order[i]) {
			if !visited[imp] {
				visited[imp] = true
				order = append(order, imp)
			}
		}
	}
	if !visited[anchor] {
		order = append(order, anchor)
	}
	return order
}

func (e *Engine) location(file uri.URI, span stylesheet.Span) (Location, bool) {
	sheet, ok := e.res.Source().Sheet(file)
	if !ok {
		return Location{}, false
	}
	return Location{URI: file, Span: span, Range: sheet.Lines.Range(span)}, true
}
