package server

import (
	"context"
	"errors"
	"log/slog"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/alexispurslane/stylable-lsp/classify"
	"github.com/alexispurslane/stylable-lsp/completion"
	"github.com/alexispurslane/stylable-lsp/docstore"
)

func (s *ServerImpl) Completion(ctx context.Context, params *protocol.CompletionParams) (result *protocol.CompletionList, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("PANIC in Completion", "recover", r)
		}
	}()
	u := params.TextDocument.URI
	log := requestLogger("textDocument/completion", u)
	log.Debug("Completion called", "line", params.Position.Line, "char", params.Position.Character)

	req, ok := s.request(ctx, log, u, params.Position)
	if !ok {
		return nil, nil
	}

	completions := s.registry.Provide(req)
	items := make([]protocol.CompletionItem, 0, len(completions))
	for _, c := range completions {
		items = append(items, c.Item())
	}
	log.Debug("Completion result", "items", len(items))
	return &protocol.CompletionList{Items: items}, nil
}

func (s *ServerImpl) CompletionResolve(ctx context.Context, params *protocol.CompletionItem) (result *protocol.CompletionItem, err error) {
	return params, nil
}

func (s *ServerImpl) SignatureHelp(ctx context.Context, params *protocol.SignatureHelpParams) (result *protocol.SignatureHelp, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("PANIC in SignatureHelp", "recover", r)
		}
	}()
	u := params.TextDocument.URI
	log := requestLogger("textDocument/signatureHelp", u)
	log.Debug("SignatureHelp called", "line", params.Position.Line, "char", params.Position.Character)

	req, ok := s.request(ctx, log, u, params.Position)
	if !ok {
		return nil, nil
	}
	sig, ok := completion.Signature(req)
	if !ok {
		return nil, nil
	}
	return sig, nil
}

// request makes the dependencies of u resident and classifies the cursor. A
// dependency that does not arrive in time only narrows the results.
func (s *ServerImpl) request(ctx context.Context, log *slog.Logger, u uri.URI, pos protocol.Position) (*completion.Request, bool) {
	if !s.ensureDependencies(ctx, log, u) {
		return nil, false
	}

	// Loading dependencies never replaces the open document, but re-read it in
	// case an edit arrived meanwhile.
	doc, ok := s.document(u)
	if !ok {
		return nil, false
	}
	return &completion.Request{
		URI:      u,
		Sheet:    doc.Sheet,
		Context:  classify.Classify(doc.Sheet, pos),
		Resolver: s.resolver,
	}, true
}

// ensureDependencies reports false when u is unknown or the caller gave up.
func (s *ServerImpl) ensureDependencies(ctx context.Context, log *slog.Logger, u uri.URI) bool {
	if _, ok := s.document(u); !ok {
		return false
	}
	err := docstore.EnsureDependencies(ctx, s.store, s.waiter, u, s.Config().DependencyTimeout)
	switch {
	case err == nil:
	case errors.Is(err, docstore.ErrDependencyUnavailable):
		log.Debug("Continuing without dependencies", "error", err)
	default:
		log.Debug("Dependency wait aborted", "error", err)
		return false
	}
	return true
}
