package integration

import "go.lsp.dev/protocol"

// compSheet is a component stylesheet most scenarios import.
const compSheet = `.root {
    -st-states: shmover, toggled;
}
.label {}
:vars {
    color1: red;
}
`

func labels(items []protocol.CompletionItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Label)
	}
	return out
}

func findItem(items []protocol.CompletionItem, label string) (protocol.CompletionItem, bool) {
	for _, it := range items {
		if it.Label == label {
			return it, true
		}
	}
	return protocol.CompletionItem{}, false
}
