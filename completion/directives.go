package completion

import (
	"strings"

	"go.lsp.dev/protocol"

	"github.com/alexispurslane/stylable-lsp/classify"
	"github.com/alexispurslane/stylable-lsp/stylesheet"
)

// place is where a directive may be written.
type place int

const (
	// placeTopLevel is between rules, outside media queries.
	placeTopLevel place = iota
	// placeAnyTopLevel is between rules, media queries included.
	placeAnyTopLevel
	// placeImport is inside an :import block.
	placeImport
	// placeSimpleRule is inside a single class or element rule, outside media queries.
	placeSimpleRule
	// placeStyleRule is inside any style rule.
	placeStyleRule
)

// DirectiveProvider offers one structural directive at the start of a line.
type DirectiveProvider struct {
	token  string
	insert string
	detail string
	place  place
	// needsPrefix keeps the directive out of the list until something matching
	// has been typed.
	needsPrefix bool
	suggest     bool
}

// Directives returns a provider per Stylable directive.
func Directives() []Provider {
	return []Provider{
		&DirectiveProvider{
			token:   stylesheet.ImportSelector,
			insert:  ":import {\n\t-st-from: \"$1\";\n}$0",
			detail:  "Import an external library",
			place:   placeTopLevel,
			suggest: true,
		},
		&DirectiveProvider{
			token:  "." + stylesheet.RootClass,
			insert: "." + stylesheet.RootClass,
			detail: "The root class",
			place:  placeAnyTopLevel,
		},
		&DirectiveProvider{
			token:       "@namespace",
			insert:      "@namespace \"$1\";$0",
			detail:      "Declare a namespace for the file",
			place:       placeTopLevel,
			needsPrefix: true,
		},
		&DirectiveProvider{
			token:       stylesheet.VarsSelector,
			insert:      ":vars {\n\t$1\n}$0",
			detail:      "Declare variables",
			place:       placeTopLevel,
			needsPrefix: true,
		},
		&DirectiveProvider{
			token:  stylesheet.DirectiveDefault,
			insert: "-st-default: $1;",
			detail: "Default object export name",
			place:  placeImport,
		},
		&DirectiveProvider{
			token:   stylesheet.DirectiveFrom,
			insert:  "-st-from: \"$1\";",
			detail:  "Path to library",
			place:   placeImport,
			suggest: true,
		},
		&DirectiveProvider{
			token:   stylesheet.DirectiveNamed,
			insert:  "-st-named: $1;",
			detail:  "Named object export name",
			place:   placeImport,
			suggest: true,
		},
		&DirectiveProvider{
			token:  stylesheet.DirectiveTheme,
			insert: "-st-theme: true;",
			detail: "Declare a theme",
			place:  placeImport,
		},
		&DirectiveProvider{
			token:   stylesheet.DirectiveExtends,
			insert:  "-st-extends: $1;",
			detail:  "Extend an external component",
			place:   placeSimpleRule,
			suggest: true,
		},
		&DirectiveProvider{
			token:  stylesheet.DirectiveStates,
			insert: "-st-states: $1;",
			detail: "Define the CSS states available for this component",
			place:  placeSimpleRule,
		},
		&DirectiveProvider{
			token:   stylesheet.DirectiveMixin,
			insert:  "-st-mixin: $1;",
			detail:  "Apply mixins on the class",
			place:   placeStyleRule,
			suggest: true,
		},
		&DirectiveProvider{
			token:  stylesheet.DirectiveVariant,
			insert: "-st-variant: true;",
			detail: "Is a variant",
			place:  placeSimpleRule,
		},
	}
}

func (d *DirectiveProvider) Tokens() []string {
	return []string{d.token}
}

func (d *DirectiveProvider) Provide(req *Request) []Completion {
	cur := req.Context.Base()
	if !cur.LineStart || !strings.HasPrefix(d.token, cur.Token) {
		return nil
	}
	if d.needsPrefix && cur.Token == "" {
		return nil
	}
	if !d.allowed(req.Context) {
		return nil
	}
	return []Completion{{
		Label:          d.token,
		Detail:         d.detail,
		SortText:       "a" + d.token,
		InsertText:     d.insert,
		Snippet:        strings.Contains(d.insert, "$"),
		Range:          cur.TokenRange(),
		Kind:           protocol.CompletionItemKindKeyword,
		TriggerSuggest: d.suggest,
	}}
}

func (d *DirectiveProvider) allowed(ctx classify.Context) bool {
	switch c := ctx.(type) {
	case classify.TopLevel:
		// Only a fresh statement: the line holds nothing but the token.
		if strings.TrimSpace(c.Selector) != c.Token {
			return false
		}
		switch d.place {
		case placeTopLevel:
			return !c.InMedia
		case placeAnyTopLevel:
			return true
		}
	case classify.ImportBlock:
		return d.place == placeImport && !d.declared(c.Rule)
	case classify.SimpleSelectorRule:
		switch d.place {
		case placeSimpleRule:
			return !c.Rule.InMedia && !d.declared(c.Rule)
		case placeStyleRule:
			return !d.declared(c.Rule)
		}
	case classify.ComplexSelectorRule:
		return d.place == placeStyleRule && !d.declared(c.Rule)
	}
	return false
}

func (d *DirectiveProvider) declared(scope *classify.Scope) bool {
	if scope == nil {
		return true
	}
	for _, t := range d.Tokens() {
		if scope.Declares(t) {
			return true
		}
	}
	return false
}
