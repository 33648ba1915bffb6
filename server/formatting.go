package server

import (
	"context"
	"log/slog"
	"strings"

	"go.lsp.dev/protocol"
)

// Formatting removes trailing whitespace and, when the client asks for it,
// inserts a final newline. Declarations themselves are left alone.
func (s *ServerImpl) Formatting(ctx context.Context, params *protocol.DocumentFormattingParams) (result []protocol.TextEdit, err error) {
	u := params.TextDocument.URI
	slog.Debug("Formatting document", "uri", u)

	doc, ok := s.document(u)
	if !ok {
		return nil, nil
	}
	return formatEdits(doc.Text, params.Options), nil
}

func formatEdits(text string, opts protocol.FormattingOptions) []protocol.TextEdit {
	var edits []protocol.TextEdit
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		trimmed := strings.TrimRight(line, " \t")
		if len(trimmed) == len(line) {
			continue
		}
		edits = append(edits, protocol.TextEdit{
			Range: protocol.Range{
				Start: protocol.Position{Line: uint32(i), Character: uint32(len(trimmed))},
				End:   protocol.Position{Line: uint32(i), Character: uint32(len(line))},
			},
		})
	}

	if opts.InsertFinalNewline && text != "" && !strings.HasSuffix(text, "\n") {
		last := len(lines) - 1
		end := protocol.Position{Line: uint32(last), Character: uint32(len(lines[last]))}
		edits = append(edits, protocol.TextEdit{
			Range:   protocol.Range{Start: end, End: end},
			NewText: "\n",
		})
	}
	return edits
}

func (s *ServerImpl) RangeFormatting(ctx context.Context, params *protocol.DocumentRangeFormattingParams) (result []protocol.TextEdit, err error) {
	all, err := s.Formatting(ctx, &protocol.DocumentFormattingParams{
		TextDocument: params.TextDocument,
		Options:      params.Options,
	})
	if err != nil {
		return nil, err
	}
	for _, e := range all {
		if e.Range.Start.Line >= params.Range.Start.Line && e.Range.Start.Line <= params.Range.End.Line {
			result = append(result, e)
		}
	}
	return result, nil
}

func (s *ServerImpl) OnTypeFormatting(ctx context.Context, params *protocol.DocumentOnTypeFormattingParams) (result []protocol.TextEdit, err error) {
	return nil, nil
}

func (s *ServerImpl) WillSaveWaitUntil(ctx context.Context, params *protocol.WillSaveTextDocumentParams) (result []protocol.TextEdit, err error) {
	return nil, nil
}
