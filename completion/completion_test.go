package completion

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/alexispurslane/stylable-lsp/classify"
	"github.com/alexispurslane/stylable-lsp/docstore"
	"github.com/alexispurslane/stylable-lsp/resolve"
)

func project(name string) uri.URI {
	return uri.File("/project/" + name)
}

// complete runs the default registry at the "|" caret of src, opened as
// main.st.css next to files.
func complete(t *testing.T, src string, files map[string]string) []Completion {
	t.Helper()
	return completeWith(t, DefaultRegistry(), src, files)
}

func completeWith(t *testing.T, reg *Registry, src string, files map[string]string) []Completion {
	t.Helper()
	ctx := context.Background()
	store := docstore.New()
	for name, text := range files {
		_, err := store.Put(ctx, project(name), text, 0, false)
		require.NoError(t, err)
	}

	caret := strings.Index(src, "|")
	require.GreaterOrEqual(t, caret, 0, "fixture needs a caret")
	main := project("main.st.css")
	doc, err := store.Put(ctx, main, src[:caret]+src[caret+1:], 1, true)
	require.NoError(t, err)

	pos := doc.Sheet.Lines.Position(caret)
	return reg.Provide(&Request{
		URI:      main,
		Sheet:    doc.Sheet,
		Context:  classify.Classify(doc.Sheet, pos),
		Resolver: resolve.New(store),
	})
}

func labels(items []Completion) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Label)
	}
	return out
}

func find(items []Completion, label string) (Completion, bool) {
	for _, it := range items {
		if it.Label == label {
			return it, true
		}
	}
	return Completion{}, false
}

var ruleDirectives = []string{"-st-extends", "-st-states", "-st-mixin", "-st-variant"}

func TestTopLevelOffersOnlyImportRootAndClasses(t *testing.T) {
	items := complete(t, ".root{} .gaga{}\n|", nil)

	assert.ElementsMatch(t, []string{":import", ".root", ".gaga"}, labels(items))
}

func TestTopLevelAfterDot(t *testing.T) {
	items := complete(t, ".root{} .gaga{}\n.|", nil)

	assert.ElementsMatch(t, []string{".root", ".gaga"}, labels(items))
	for _, it := range items {
		assert.Equal(t, protocol.Position{Line: 1, Character: 0}, it.Range.Start)
		assert.Equal(t, protocol.Position{Line: 1, Character: 1}, it.Range.End)
	}
}

func TestTopLevelAfterHeaderComment(t *testing.T) {
	items := complete(t, "/* header */\n|", nil)

	assert.Contains(t, labels(items), ":import")
}

func TestAtKeywordDirectives(t *testing.T) {
	items := complete(t, "@na|", nil)
	assert.Equal(t, []string{"@namespace"}, labels(items))

	items = complete(t, ":|", nil)
	assert.ElementsMatch(t, []string{":import", ":vars"}, labels(items))
}

func TestRootNotImportInsideMedia(t *testing.T) {
	items := complete(t, "@media (max-width: 200px) {\n    |\n}", nil)

	assert.Equal(t, []string{".root"}, labels(items))
}

func TestDirectivesInsideSimpleSelector(t *testing.T) {
	for _, src := range []string{".gaga {\n    |\n}", ".gaga {\n    -|\n}", "gaga {\n    -st-|\n}"} {
		items := complete(t, src, nil)
		assert.ElementsMatch(t, ruleDirectives, labels(items), src)
	}
}

func TestDirectivesNotRepeated(t *testing.T) {
	src := `.gaga {
    -st-states: a;
    -st-extends: b;
    -st-mixin: c;
    -st-variant: true;
    |
}`
	items := complete(t, src, nil)

	assert.Empty(t, items)
}

func TestDirectiveAboveExistingDeclaration(t *testing.T) {
	src := `.gaga {
    |
    -st-states: a;
}`
	items := complete(t, src, nil)

	assert.ElementsMatch(t, []string{"-st-extends", "-st-mixin", "-st-variant"}, labels(items))
}

func TestOnlyMixinInsideComplexRules(t *testing.T) {
	for _, sel := range []string{".gaga:hover", ".gaga.baga", ".gaga div", ".gaga > div", "div.baga"} {
		items := complete(t, sel+" {\n    |\n}", nil)
		assert.Equal(t, []string{"-st-mixin"}, labels(items), sel)
	}

	items := complete(t, "@media (max-width: 200px) {\n    .baga {\n        |\n    }\n}", nil)
	assert.Equal(t, []string{"-st-mixin"}, labels(items))
}

func TestImportBlockDirectives(t *testing.T) {
	items := complete(t, ":import {\n    |\n}", nil)
	assert.ElementsMatch(t, []string{"-st-default", "-st-from", "-st-named", "-st-theme"}, labels(items))

	from, ok := find(items, "-st-from")
	require.True(t, ok)
	assert.True(t, from.Snippet)
	assert.True(t, from.TriggerSuggest)

	items = complete(t, ":import {\n    -st-from: \"./a.st.css\";\n    |\n}", nil)
	assert.ElementsMatch(t, []string{"-st-default", "-st-named", "-st-theme"}, labels(items))
}

func TestStatesAfterColon(t *testing.T) {
	src := `.gaga {
    -st-states: hello, goodbye;
}
.gaga:|`
	items := complete(t, src, nil)

	assert.ElementsMatch(t, []string{"hello", "goodbye"}, labels(items))
	hello, _ := find(items, "hello")
	assert.Equal(t, project("main.st.css"), hello.Origin)
	assert.Equal(t, ":hello", hello.InsertText)
	assert.Equal(t, protocol.Position{Line: 3, Character: 5}, hello.Range.Start)
}

func TestStatesNotRepeatedInFocusChunk(t *testing.T) {
	src := `.gaga {
    -st-states: hello, goodbye, cheerio;
}
.x .gaga:cheerio:|`
	items := complete(t, src, nil)

	assert.ElementsMatch(t, []string{"hello", "goodbye"}, labels(items))
}

func TestStatePrefixRange(t *testing.T) {
	items := complete(t, ".gaga { -st-states: hello; }\n.gaga:he|", nil)

	require.Len(t, items, 1)
	assert.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 1, Character: 5},
		End:   protocol.Position{Line: 1, Character: 8},
	}, items[0].Range)
}

func TestStatesOfImportedComponent(t *testing.T) {
	src := `:import {
    -st-from: "./comp.st.css";
    -st-default: Comp;
}
.gaga {
    -st-extends: Comp;
    -st-states: hello;
}
.gaga:|`
	items := complete(t, src, map[string]string{
		"comp.st.css": ".root { -st-states: shmover; }",
	})

	assert.ElementsMatch(t, []string{"hello", "shmover"}, labels(items))
	shmover, _ := find(items, "shmover")
	assert.Equal(t, project("comp.st.css"), shmover.Origin)
	assert.Equal(t, "from: ./comp.st.css", shmover.Detail)
}

func TestStatesRecursive(t *testing.T) {
	src := `:import {
    -st-from: "./comp2.st.css";
    -st-default: Comp;
}
.gaga {
    -st-extends: Comp;
    -st-states: normalstate;
}
.gaga:|`
	items := complete(t, src, map[string]string{
		"comp1.st.css": ".root { -st-states: recursestate; }",
		"comp2.st.css": `:import {
    -st-from: "./comp1.st.css";
    -st-default: Zag;
}
.root {
    -st-extends: Zag;
    -st-states: importedstate;
}`,
	})

	origins := make(map[string]uri.URI)
	for _, it := range items {
		origins[it.Label] = it.Origin
	}
	assert.Equal(t, map[string]uri.URI{
		"normalstate":   project("main.st.css"),
		"importedstate": project("comp2.st.css"),
		"recursestate":  project("comp1.st.css"),
	}, origins)
}

func TestDoesNotBreakWhileTyping(t *testing.T) {
	src := `.|
.gaga{
    -st-states:hello;
}
.gaga:hello{
}`
	items := complete(t, src, nil)

	assert.Contains(t, labels(items), ".gaga")
}

func TestNothingWhenBroken(t *testing.T) {
	src := `:import{
    -st-from:"./comp.st.css";
    -st-default:Comp;
}
.gaga{
    -st-extends::| ;
}`
	items := complete(t, src, map[string]string{"comp.st.css": ""})

	assert.Empty(t, items)
}

func TestExtendsTargets(t *testing.T) {
	src := `:import {
    -st-from: "./comp.st.css";
    -st-default: Comp;
    -st-named: btn;
}
.other {}
.gaga {
    -st-extends: |
}`
	items := complete(t, src, map[string]string{"comp.st.css": ".btn {}"})

	assert.Equal(t, []string{"Comp", "btn", "root", "other"}, labels(items))
	btn, _ := find(items, "btn")
	assert.Equal(t, project("comp.st.css"), btn.Origin)
	assert.Equal(t, btn.Range.Start, btn.Range.End)
}

func TestTypeCompletion(t *testing.T) {
	src := `:import {
    -st-from: "./comp.st.css";
    -st-default: Comp;
}
Co|`
	items := complete(t, src, map[string]string{"comp.st.css": ""})

	require.Equal(t, []string{"Comp"}, labels(items))
	assert.Equal(t, protocol.CompletionItemKindModule, items[0].Kind)
}

func TestMixinTargets(t *testing.T) {
	src := `.a {}
.b {}
.gaga {
    -st-mixin: a, |
}`
	items := complete(t, src, nil)

	assert.ElementsMatch(t, []string{"b", "gaga"}, labels(items))
}

func TestNamedExports(t *testing.T) {
	src := `:import {
    -st-from: "./comp.st.css";
    -st-named: btn, |
}`
	items := complete(t, src, map[string]string{
		"comp.st.css": ".btn {}\n.icon {}\n:vars { color1: red; }",
	})

	assert.Equal(t, []string{"icon", "color1"}, labels(items))
}

func TestValueCompletion(t *testing.T) {
	src := `:vars { color1: red; }
.gaga {
    color: value(|
}`
	items := complete(t, src, nil)

	require.Equal(t, []string{"color1"}, labels(items))
	assert.Equal(t, "red", items[0].Detail)

	items = complete(t, ":vars { color1: red; }\n.gaga {\n    color: val|\n}", nil)
	require.Equal(t, []string{"value()"}, labels(items))
	assert.True(t, items[0].TriggerSignature)
	assert.Equal(t, commandTriggerParameterHints, items[0].Item().Command.Command)
}

func TestFromPathCompletion(t *testing.T) {
	src := `:import {
    -st-from: "./|
}`
	items := complete(t, src, map[string]string{
		"comp.st.css":  "",
		"sub/x.st.css": "",
	})

	assert.ElementsMatch(t, []string{"./comp.st.css", "./sub/x.st.css"}, labels(items))
	for _, it := range items {
		assert.Equal(t, uint32(15), it.Range.Start.Character)
	}
}

func TestMissingDependencyStillCompletesLocally(t *testing.T) {
	src := `:import {
    -st-from: "./missing.st.css";
    -st-default: Missing;
}
.gaga {
    |
}`
	items := complete(t, src, nil)

	assert.ElementsMatch(t, ruleDirectives, labels(items))
}

type panicky struct{}

func (panicky) Tokens() []string              { return nil }
func (panicky) Provide(*Request) []Completion { panic("boom") }

func TestRegistryIsolatesProviderPanics(t *testing.T) {
	reg := NewRegistry(append([]Provider{panicky{}}, DefaultRegistry().Providers()...)...)

	items := completeWith(t, reg, ".root{} .gaga{}\n|", nil)

	assert.ElementsMatch(t, []string{":import", ".root", ".gaga"}, labels(items))
}

func TestItemConversion(t *testing.T) {
	c := Completion{
		Label:          ":import",
		InsertText:     ":import {\n\t-st-from: \"$1\";\n}$0",
		Snippet:        true,
		TriggerSuggest: true,
	}

	item := c.Item()

	assert.Equal(t, protocol.InsertTextFormatSnippet, item.InsertTextFormat)
	require.NotNil(t, item.TextEdit)
	assert.Equal(t, c.InsertText, item.TextEdit.NewText)
	require.NotNil(t, item.Command)
	assert.Equal(t, commandTriggerSuggest, item.Command.Command)
}

func signatureAt(t *testing.T, src string, files map[string]string) (*protocol.SignatureHelp, bool) {
	t.Helper()
	ctx := context.Background()
	store := docstore.New()
	for name, text := range files {
		_, err := store.Put(ctx, project(name), text, 0, false)
		require.NoError(t, err)
	}
	caret := strings.Index(src, "|")
	require.GreaterOrEqual(t, caret, 0, "fixture needs a caret")
	main := project("main.st.css")
	doc, err := store.Put(ctx, main, src[:caret]+src[caret+1:], 1, true)
	require.NoError(t, err)

	return Signature(&Request{
		URI:      main,
		Sheet:    doc.Sheet,
		Context:  classify.Classify(doc.Sheet, doc.Sheet.Lines.Position(caret)),
		Resolver: resolve.New(store),
	})
}

func TestValueSignature(t *testing.T) {
	sig, ok := signatureAt(t, ":vars { color1: red; }\n.gaga {\n    color: value(|\n}", nil)
	require.True(t, ok)
	require.Len(t, sig.Signatures, 1)
	assert.Equal(t, "value(varName)", sig.Signatures[0].Label)

	_, ok = signatureAt(t, ".gaga {\n    color: value(color1) |\n}", nil)
	assert.False(t, ok)

	_, ok = signatureAt(t, ".gaga {\n    -st-extends: value(|\n}", nil)
	assert.False(t, ok)
}

func TestMixinSignature(t *testing.T) {
	mix := `:vars {
    color1: red;
    size: 4px;
}
.root {}
`
	src := `:import {
    -st-from: "./mix.st.css";
    -st-default: Mix;
}
.gaga {
    -st-mixin: Mix(color1 blue, |
}`
	sig, ok := signatureAt(t, src, map[string]string{"mix.st.css": mix})
	require.True(t, ok)
	require.Len(t, sig.Signatures, 1)
	assert.Equal(t, "Mix(color1, size)", sig.Signatures[0].Label)
	assert.Equal(t, uint32(1), sig.ActiveParameter)

	sig, ok = signatureAt(t, ".gaga {\n    -st-mixin: Unknown(|\n}", nil)
	require.True(t, ok)
	assert.Equal(t, "Unknown(...)", sig.Signatures[0].Label)
}
