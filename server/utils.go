package server

import (
	"github.com/google/uuid"
	"go.lsp.dev/protocol"

	"github.com/alexispurslane/stylable-lsp/references"
	"github.com/alexispurslane/stylable-lsp/stylesheet"
)

// newRequestID returns a short id correlating the log lines of one request.
func newRequestID() string {
	return uuid.NewString()[:8]
}

func toProtocolLocations(locs []references.Location) []protocol.Location {
	if len(locs) == 0 {
		return nil
	}
	out := make([]protocol.Location, 0, len(locs))
	for _, l := range locs {
		out = append(out, l.Protocol())
	}
	return out
}

// spanRange converts a byte span of sheet to a protocol range.
func spanRange(sheet *stylesheet.Sheet, span stylesheet.Span) protocol.Range {
	return sheet.Lines.Range(span)
}
