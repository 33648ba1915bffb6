package server

import (
	"context"
	"fmt"
	"log/slog"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/alexispurslane/stylable-lsp/docstore"
	"github.com/alexispurslane/stylable-lsp/stylesheet"
)

const diagnosticSource = "stylable"

// diagnose reports the problems of u that the resident documents can tell:
// parse-level problems, -st-from targets that cannot be found, named imports the
// target does not export, and -st-extends targets that do not exist.
func (s *ServerImpl) diagnose(ctx context.Context, doc *docstore.Document) []protocol.Diagnostic {
	sheet := doc.Sheet
	out := make([]protocol.Diagnostic, 0)
	add := func(span stylesheet.Span, severity protocol.DiagnosticSeverity, msg string) {
		out = append(out, protocol.Diagnostic{
			Range:    spanRange(sheet, span),
			Severity: severity,
			Source:   diagnosticSource,
			Message:  msg,
		})
	}

	for _, p := range sheet.Problems {
		add(p.Span, protocol.DiagnosticSeverityWarning, p.Message)
	}

	for _, imp := range sheet.Imports {
		target, ok := stylesheet.ResolveImport(doc.URI, imp.From)
		if !ok {
			continue
		}
		tsheet, ok := s.store.Sheet(target)
		if !ok && s.loadFromDisk(ctx, target) {
			tsheet, ok = s.store.Sheet(target)
		}
		if !ok {
			add(imp.FromSpan, protocol.DiagnosticSeverityError, fmt.Sprintf("cannot resolve imported file: %q", imp.From))
			continue
		}
		for _, n := range imp.Named {
			_, isClass := tsheet.Class(n.Name)
			_, isVar := tsheet.Var(n.Name)
			if isClass || isVar {
				continue
			}
			if sym, ok := s.resolver.Named(doc.URI, n.Name); ok && !sym.Unresolved {
				continue
			}
			add(n.Span, protocol.DiagnosticSeverityWarning, fmt.Sprintf("%q does not export %q", imp.From, n.Name))
		}
	}

	for _, name := range sheet.ClassOrder {
		class := sheet.Classes[name]
		if class.Extends == nil {
			continue
		}
		if _, ok := s.resolver.Class(doc.URI, class.Extends.Name); !ok {
			add(class.Extends.Span, protocol.DiagnosticSeverityWarning, fmt.Sprintf("unknown -st-extends target %q", class.Extends.Name))
		}
	}
	return out
}

// loadFromDisk makes u resident when it exists on disk. Unlike the missing
// handler it never asks the client.
func (s *ServerImpl) loadFromDisk(ctx context.Context, u uri.URI) bool {
	s.mu.RLock()
	ix := s.indexer
	s.mu.RUnlock()
	return ix != nil && ix.Load(ctx, u)
}

// clients returns the client of the session ctx belongs to, or every connected
// client when the work did not come from a session, as with watcher rescans.
func (s *ServerImpl) clients(ctx context.Context) []protocol.Client {
	if sess, ok := sessionFrom(ctx); ok {
		return []protocol.Client{sess.client}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]protocol.Client, 0, len(s.sessions))
	for sess := range s.sessions {
		out = append(out, sess.client)
	}
	return out
}

func (s *ServerImpl) publish(ctx context.Context, u uri.URI) {
	clients := s.clients(ctx)
	if len(clients) == 0 {
		return
	}
	doc, ok := s.store.Get(u)
	if !ok || !doc.Open {
		return
	}

	diags := s.diagnose(ctx, doc)
	s.mu.Lock()
	s.published[u] = true
	s.mu.Unlock()
	for _, client := range clients {
		if err := client.PublishDiagnostics(ctx, &protocol.PublishDiagnosticsParams{
			URI:         u,
			Version:     uint32(doc.Version),
			Diagnostics: diags,
		}); err != nil {
			slog.Error("Failed to publish diagnostics", "uri", u, "error", err)
		}
	}
}

// publishAround refreshes u and every open file importing it.
func (s *ServerImpl) publishAround(ctx context.Context, u uri.URI) {
	s.publish(ctx, u)
	for _, imp := range s.resolver.Importers(u) {
		s.publish(ctx, imp)
	}
}

// publishOpen refreshes every open file.
func (s *ServerImpl) publishOpen(ctx context.Context) {
	for _, doc := range s.store.All() {
		if doc.Open {
			s.publish(ctx, doc.URI)
		}
	}
}

func (s *ServerImpl) clearDiagnostics(ctx context.Context, u uri.URI) {
	s.mu.Lock()
	was := s.published[u]
	delete(s.published, u)
	s.mu.Unlock()
	if !was {
		return
	}
	for _, client := range s.clients(ctx) {
		if err := client.PublishDiagnostics(ctx, &protocol.PublishDiagnosticsParams{
			URI:         u,
			Diagnostics: []protocol.Diagnostic{},
		}); err != nil {
			slog.Error("Failed to clear diagnostics", "uri", u, "error", err)
		}
	}
}
