package server

import (
	"context"
	"log/slog"

	"go.lsp.dev/protocol"

	"github.com/alexispurslane/stylable-lsp/stylesheet"
)

// FoldingRanges implements textDocument/foldingRange.
//
// Every rule block spanning more than one line folds, nested blocks included.
// Import blocks use the Imports kind, everything else Region.
func (s *ServerImpl) FoldingRanges(ctx context.Context, params *protocol.FoldingRangeParams) ([]protocol.FoldingRange, error) {
	slog.Debug("FoldingRanges called", "uri", params.TextDocument.URI)

	doc, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	return findFoldingRanges(doc.Sheet), nil
}

func findFoldingRanges(sheet *stylesheet.Sheet) []protocol.FoldingRange {
	var ranges []protocol.FoldingRange
	for _, rule := range sheet.AllRules() {
		if rule.Block.Empty() {
			continue
		}
		start := sheet.Lines.Position(rule.Block.Start)
		end := sheet.Lines.Position(rule.Block.End)
		if end.Line <= start.Line {
			continue
		}
		kind := protocol.RegionFoldingRange
		if rule.Kind == stylesheet.ImportRule {
			kind = protocol.ImportsFoldingRange
		}
		ranges = append(ranges, protocol.FoldingRange{
			StartLine: start.Line,
			EndLine:   end.Line,
			Kind:      kind,
		})
	}
	return ranges
}
