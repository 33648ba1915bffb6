// Package completion computes what may be typed at a cursor. Completions come from
// a registry of independent providers; each looks at the classified cursor
// context and contributes its own items.
package completion

import (
	"fmt"
	"log/slog"
	"strings"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/alexispurslane/stylable-lsp/classify"
	"github.com/alexispurslane/stylable-lsp/resolve"
	"github.com/alexispurslane/stylable-lsp/selector"
	"github.com/alexispurslane/stylable-lsp/stylesheet"
)

const (
	commandTriggerSuggest        = "editor.action.triggerSuggest"
	commandTriggerParameterHints = "editor.action.triggerParameterHints"
)

// Completion is one suggestion. Range is what accepting it replaces.
type Completion struct {
	Label      string
	Detail     string
	SortText   string
	FilterText string
	InsertText string
	Snippet    bool
	Range      protocol.Range
	Kind       protocol.CompletionItemKind
	// Origin is the file that declares the suggested symbol, if any.
	Origin uri.URI
	// TriggerSuggest asks the editor to complete again after insertion.
	TriggerSuggest bool
	// TriggerSignature asks the editor for parameter hints after insertion.
	TriggerSignature bool
}

// Item converts the completion to its protocol form.
func (c Completion) Item() protocol.CompletionItem {
	item := protocol.CompletionItem{
		Label:            c.Label,
		Kind:             c.Kind,
		Detail:           c.Detail,
		SortText:         c.SortText,
		FilterText:       c.FilterText,
		InsertTextFormat: protocol.InsertTextFormatPlainText,
		TextEdit: &protocol.TextEdit{
			Range:   c.Range,
			NewText: c.InsertText,
		},
	}
	if c.Snippet {
		item.InsertTextFormat = protocol.InsertTextFormatSnippet
	}
	switch {
	case c.TriggerSignature:
		item.Command = &protocol.Command{Title: "Parameter hints", Command: commandTriggerParameterHints}
	case c.TriggerSuggest:
		item.Command = &protocol.Command{Title: "Additional completions", Command: commandTriggerSuggest}
	}
	return item
}

// Request is everything a provider may look at.
type Request struct {
	URI      uri.URI
	Sheet    *stylesheet.Sheet
	Context  classify.Context
	Resolver *resolve.Resolver
}

// Provider contributes completions. Tokens lists the directives the provider owns;
// a directive already declared by the enclosing rule is not offered again.
type Provider interface {
	Tokens() []string
	Provide(req *Request) []Completion
}

// Registry runs every provider and concatenates their results.
type Registry struct {
	providers []Provider
}

// NewRegistry creates a registry running providers in order.
func NewRegistry(providers ...Provider) *Registry {
	return &Registry{providers: providers}
}

// DefaultRegistry holds every built-in provider.
func DefaultRegistry() *Registry {
	providers := Directives()
	providers = append(providers,
		ClassProvider{},
		TypeProvider{},
		ExtendsProvider{},
		StateProvider{},
		MixinProvider{},
		NamedProvider{},
		ValueProvider{},
		FromPathProvider{},
	)
	return NewRegistry(providers...)
}

// Providers returns the registered providers.
func (r *Registry) Providers() []Provider {
	return r.providers
}

// Provide asks every provider. A provider that panics contributes nothing.
func (r *Registry) Provide(req *Request) []Completion {
	var out []Completion
	for _, p := range r.providers {
		out = append(out, provide(p, req)...)
	}
	return out
}

func provide(p Provider, req *Request) (items []Completion) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("PANIC in completion provider", "provider", fmt.Sprintf("%T", p), "recover", r)
			items = nil
		}
	}()
	return p.Provide(req)
}

// identPrefix returns s without leading whitespace when what is left is a
// (possibly empty) identifier.
func identPrefix(s string) (string, bool) {
	s = strings.TrimLeft(s, " \t\r\n\f")
	for i := 0; i < len(s); i++ {
		if !selector.IsIdentByte(s[i]) {
			return "", false
		}
	}
	return s, true
}

// listItem returns the list entry being typed at the end of a comma separated
// value, and the entries before it.
func listItem(value string) (string, []string, bool) {
	if strings.Count(value, "(") != strings.Count(value, ")") {
		return "", nil, false
	}
	var before []string
	last := value
	if i := strings.LastIndexByte(value, ','); i >= 0 {
		last = value[i+1:]
		for _, ref := range stylesheet.SplitList(value[:i], 0) {
			before = append(before, ref.Name)
		}
	}
	prefix, ok := identPrefix(last)
	return prefix, before, ok
}

func describe(origin, target uri.URI) string {
	if origin == target {
		return "Local file"
	}
	if rel, ok := stylesheet.RelativeImport(origin, target); ok {
		return "from: " + rel
	}
	return "from: " + string(target)
}
