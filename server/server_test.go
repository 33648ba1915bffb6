package server

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/alexispurslane/stylable-lsp/config"
)

const compSheet = `.root {
    -st-states: shmover;
}
.label {}
`

// newServer initializes a server over a temp workspace holding files.
func newServer(t *testing.T, files map[string]string) (*ServerImpl, string) {
	t.Helper()
	dir := t.TempDir()
	for name, text := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(text), 0644))
	}

	cfg := config.DefaultConfig()
	cfg.Watch = false
	cfg.DependencyTimeout = 50 * time.Millisecond
	s := New(WithConfig(cfg))

	ctx := context.Background()
	_, err := s.Initialize(ctx, &protocol.InitializeParams{RootURI: uri.File(dir)})
	require.NoError(t, err)
	require.NoError(t, s.Initialized(ctx, &protocol.InitializedParams{}))
	t.Cleanup(func() { _ = s.Shutdown(ctx) })
	return s, dir
}

// open sends didOpen for src, with the "|" caret removed, and returns the caret
// position.
func open(t *testing.T, s *ServerImpl, dir, name, src string) (uri.URI, protocol.Position) {
	t.Helper()
	u := uri.File(filepath.Join(dir, name))
	caret := strings.Index(src, "|")
	if caret >= 0 {
		src = src[:caret] + src[caret+1:]
	}
	require.NoError(t, s.DidOpen(context.Background(), &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: u, LanguageID: "css", Version: 1, Text: src},
	}))

	var pos protocol.Position
	if caret >= 0 {
		doc, ok := s.Store().Get(u)
		require.True(t, ok)
		pos = doc.Sheet.Lines.Position(caret)
	}
	return u, pos
}

func docPos(u uri.URI, pos protocol.Position) protocol.TextDocumentPositionParams {
	return protocol.TextDocumentPositionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: u},
		Position:     pos,
	}
}

func TestInitializeScansWorkspace(t *testing.T) {
	s, dir := newServer(t, map[string]string{
		"comp.st.css":           compSheet,
		"sub/other.st.css":      ".x {}",
		"node_modules/a.st.css": ".y {}",
		"plain.css":             ".z {}",
	})

	assert.False(t, s.LastScanTime().IsZero())
	_, ok := s.Store().Get(uri.File(filepath.Join(dir, "comp.st.css")))
	assert.True(t, ok)
	_, ok = s.Store().Get(uri.File(filepath.Join(dir, "sub/other.st.css")))
	assert.True(t, ok)
	_, ok = s.Store().Get(uri.File(filepath.Join(dir, "node_modules/a.st.css")))
	assert.False(t, ok)
	_, ok = s.Store().Get(uri.File(filepath.Join(dir, "plain.css")))
	assert.False(t, ok)
}

func TestInitializeCapabilities(t *testing.T) {
	s := New(WithConfig(config.DefaultConfig()))
	res, err := s.Initialize(context.Background(), &protocol.InitializeParams{})
	require.NoError(t, err)

	assert.Equal(t, []string{".", "-", ":", "\"", ","}, res.Capabilities.CompletionProvider.TriggerCharacters)
	assert.Equal(t, []string{"(", ","}, res.Capabilities.SignatureHelpProvider.TriggerCharacters)
	assert.Equal(t, serverName, res.ServerInfo.Name)
}

func TestCompletionOfImportedStates(t *testing.T) {
	s, dir := newServer(t, map[string]string{"comp.st.css": compSheet})
	u, pos := open(t, s, dir, "main.st.css", `:import {
    -st-from: "./comp.st.css";
    -st-default: Comp;
}
.gaga {
    -st-extends: Comp;
}
.gaga:|`)

	list, err := s.Completion(context.Background(), &protocol.CompletionParams{TextDocumentPositionParams: docPos(u, pos)})
	require.NoError(t, err)
	require.NotNil(t, list)
	var item protocol.CompletionItem
	for _, it := range list.Items {
		if it.Label == "shmover" {
			item = it
		}
	}
	require.Equal(t, "shmover", item.Label)
	assert.Equal(t, ":shmover", item.FilterText)
	require.NotNil(t, item.TextEdit)
	assert.Equal(t, ":shmover", item.TextEdit.NewText)
	assert.Equal(t, "from: ./comp.st.css", item.Detail)
}

func TestCompletionLoadsDependencyOutsideWorkspace(t *testing.T) {
	s, dir := newServer(t, nil)
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "ext.st.css"), []byte(compSheet), 0644))

	rel, err := filepath.Rel(dir, filepath.Join(outside, "ext.st.css"))
	require.NoError(t, err)
	u, pos := open(t, s, dir, "main.st.css", `:import {
    -st-from: "`+filepath.ToSlash(rel)+`";
    -st-default: Ext;
}
Ext:|`)

	list, err := s.Completion(context.Background(), &protocol.CompletionParams{TextDocumentPositionParams: docPos(u, pos)})
	require.NoError(t, err)
	require.NotNil(t, list)
	var labels []string
	for _, it := range list.Items {
		labels = append(labels, it.Label)
	}
	assert.Contains(t, labels, "shmover")
}

func TestCompletionWithUnavailableDependency(t *testing.T) {
	s, dir := newServer(t, nil)
	u, pos := open(t, s, dir, "main.st.css", `:import {
    -st-from: "./missing.st.css";
    -st-default: Missing;
}
|`)

	start := time.Now()
	list, err := s.Completion(context.Background(), &protocol.CompletionParams{TextDocumentPositionParams: docPos(u, pos)})
	require.NoError(t, err)
	require.NotNil(t, list)
	assert.Less(t, time.Since(start), 2*time.Second)

	var labels []string
	for _, it := range list.Items {
		labels = append(labels, it.Label)
	}
	assert.Contains(t, labels, ":import")
	assert.Contains(t, labels, "Missing")
}

func TestCompletionOfUnknownDocument(t *testing.T) {
	s, dir := newServer(t, nil)
	list, err := s.Completion(context.Background(), &protocol.CompletionParams{
		TextDocumentPositionParams: docPos(uri.File(filepath.Join(dir, "nope.st.css")), protocol.Position{}),
	})
	require.NoError(t, err)
	assert.Nil(t, list)
}

func TestDefinitionAndReferencesAcrossFiles(t *testing.T) {
	s, dir := newServer(t, map[string]string{"comp.st.css": compSheet})
	u, _ := open(t, s, dir, "main.st.css", `:import {
    -st-from: "./comp.st.css";
    -st-named: label;
}
.gaga .label {}
`)
	ctx := context.Background()
	comp := uri.File(filepath.Join(dir, "comp.st.css"))

	defs, err := s.Definition(ctx, &protocol.DefinitionParams{TextDocumentPositionParams: docPos(u, protocol.Position{Line: 4, Character: 8})})
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, comp, defs[0].URI)
	assert.Equal(t, protocol.Position{Line: 3, Character: 1}, defs[0].Range.Start)

	refs, err := s.References(ctx, &protocol.ReferenceParams{
		TextDocumentPositionParams: docPos(u, protocol.Position{Line: 4, Character: 8}),
		Context:                    protocol.ReferenceContext{IncludeDeclaration: true},
	})
	require.NoError(t, err)
	require.Len(t, refs, 3)
	assert.Equal(t, comp, refs[0].URI)
	assert.Equal(t, u, refs[1].URI)
	assert.Equal(t, protocol.Position{Line: 2, Character: 15}, refs[1].Range.Start)
	assert.Equal(t, protocol.Position{Line: 4, Character: 7}, refs[2].Range.Start)

	refs, err = s.References(ctx, &protocol.ReferenceParams{
		TextDocumentPositionParams: docPos(u, protocol.Position{Line: 4, Character: 8}),
	})
	require.NoError(t, err)
	assert.Len(t, refs, 2)
}

func TestHoverDescribesState(t *testing.T) {
	s, dir := newServer(t, map[string]string{"comp.st.css": compSheet})
	u, pos := open(t, s, dir, "main.st.css", `:import {
    -st-from: "./comp.st.css";
    -st-default: Comp;
}
.gaga {
    -st-extends: Comp;
}
.gaga:shm|over {}
`)

	hover, err := s.Hover(context.Background(), &protocol.HoverParams{TextDocumentPositionParams: docPos(u, pos)})
	require.NoError(t, err)
	require.NotNil(t, hover)
	assert.Contains(t, hover.Contents.Value, "**state** `:shmover` of `.root`")
	assert.Contains(t, hover.Contents.Value, "from: `./comp.st.css`")
	require.NotNil(t, hover.Range)
	assert.Equal(t, protocol.Position{Line: 7, Character: 6}, hover.Range.Start)

	hover, err = s.Hover(context.Background(), &protocol.HoverParams{TextDocumentPositionParams: docPos(u, protocol.Position{Line: 0, Character: 0})})
	require.NoError(t, err)
	assert.Nil(t, hover)
}

func TestSignatureHelp(t *testing.T) {
	s, dir := newServer(t, nil)
	u, pos := open(t, s, dir, "main.st.css", ":vars { c: red; }\n.a {\n    color: value(|\n}")

	sig, err := s.SignatureHelp(context.Background(), &protocol.SignatureHelpParams{TextDocumentPositionParams: docPos(u, pos)})
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, "value(varName)", sig.Signatures[0].Label)
}

func TestDiagnostics(t *testing.T) {
	s, dir := newServer(t, map[string]string{"comp.st.css": compSheet})
	u, _ := open(t, s, dir, "main.st.css", `:import {
    -st-from: "./nope.st.css";
    -st-default: Nope;
}
:import {
    -st-from: "./comp.st.css";
    -st-named: ghost, label;
}
.a {
    -st-extends: Unknown;
}
.b .root {}
`)
	doc, ok := s.Store().Get(u)
	require.True(t, ok)

	var messages []string
	for _, d := range s.diagnose(context.Background(), doc) {
		assert.Equal(t, diagnosticSource, d.Source)
		messages = append(messages, d.Message)
	}
	assert.ElementsMatch(t, []string{
		".root class cannot be used after spacing",
		`cannot resolve imported file: "./nope.st.css"`,
		`"./comp.st.css" does not export "ghost"`,
		`unknown -st-extends target "Unknown"`,
	}, messages)
}

func TestDidChangeReplacesText(t *testing.T) {
	s, dir := newServer(t, nil)
	u, _ := open(t, s, dir, "main.st.css", ".a {}")

	require.NoError(t, s.DidChange(context.Background(), &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: u},
			Version:                2,
		},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{{Text: ".b {}"}},
	}))

	doc, ok := s.Store().Get(u)
	require.True(t, ok)
	assert.Equal(t, int32(2), doc.Version)
	_, ok = doc.Sheet.Class("b")
	assert.True(t, ok)
}

func TestDidCloseFallsBackToDisk(t *testing.T) {
	s, dir := newServer(t, map[string]string{"comp.st.css": compSheet})
	u, _ := open(t, s, dir, "comp.st.css", ".edited {}")
	ctx := context.Background()

	require.NoError(t, s.DidClose(ctx, &protocol.DidCloseTextDocumentParams{TextDocument: protocol.TextDocumentIdentifier{URI: u}}))
	doc, ok := s.Store().Get(u)
	require.True(t, ok)
	assert.False(t, doc.Open)
	assert.Equal(t, compSheet, doc.Text)

	scratch, _ := open(t, s, dir, "scratch.st.css", ".x {}")
	require.NoError(t, s.DidClose(ctx, &protocol.DidCloseTextDocumentParams{TextDocument: protocol.TextDocumentIdentifier{URI: scratch}}))
	_, ok = s.Store().Get(scratch)
	assert.False(t, ok)
}

func TestDocumentSymbols(t *testing.T) {
	s, dir := newServer(t, map[string]string{"comp.st.css": compSheet})
	u, _ := open(t, s, dir, "main.st.css", `:import {
    -st-from: "./comp.st.css";
    -st-default: Comp;
}
:vars {
    color1: red;
}
.gaga {
    -st-states: on, off;
}
`)

	result, err := s.DocumentSymbol(context.Background(), &protocol.DocumentSymbolParams{TextDocument: protocol.TextDocumentIdentifier{URI: u}})
	require.NoError(t, err)
	require.Len(t, result, 3)

	imp := result[0].(protocol.DocumentSymbol)
	assert.Equal(t, "./comp.st.css", imp.Name)
	assert.Equal(t, protocol.SymbolKindModule, imp.Kind)
	require.Len(t, imp.Children, 1)
	assert.Equal(t, "Comp", imp.Children[0].Name)

	v := result[1].(protocol.DocumentSymbol)
	assert.Equal(t, "color1", v.Name)
	assert.Equal(t, protocol.SymbolKindVariable, v.Kind)

	gaga := result[2].(protocol.DocumentSymbol)
	assert.Equal(t, ".gaga", gaga.Name)
	require.Len(t, gaga.Children, 2)
	assert.Equal(t, ":on", gaga.Children[0].Name)
}

func TestWorkspaceSymbols(t *testing.T) {
	s, _ := newServer(t, map[string]string{
		"comp.st.css":      compSheet,
		"sub/other.st.css": ":vars { labelColor: red; }\n.other {}",
	})

	result, err := s.Symbols(context.Background(), &protocol.WorkspaceSymbolParams{Query: "LABEL"})
	require.NoError(t, err)

	var names []string
	for _, sym := range result {
		names = append(names, sym.Name+"@"+sym.ContainerName)
	}
	assert.ElementsMatch(t, []string{".label@comp.st.css", "labelColor@sub/other.st.css"}, names)
}

func TestFoldingRanges(t *testing.T) {
	s, dir := newServer(t, nil)
	u, _ := open(t, s, dir, "main.st.css", `:import {
    -st-from: "./a.st.css";
}
.a {}
@media (max-width: 10px) {
    .b {
        color: red;
    }
}
`)

	ranges, err := s.FoldingRanges(context.Background(), &protocol.FoldingRangeParams{
		TextDocumentPositionParams: docPos(u, protocol.Position{}),
	})
	require.NoError(t, err)
	assert.Equal(t, []protocol.FoldingRange{
		{StartLine: 0, EndLine: 2, Kind: protocol.ImportsFoldingRange},
		{StartLine: 4, EndLine: 8, Kind: protocol.RegionFoldingRange},
		{StartLine: 5, EndLine: 7, Kind: protocol.RegionFoldingRange},
	}, ranges)
}

func TestCodeActionImportsExtendsTarget(t *testing.T) {
	s, dir := newServer(t, map[string]string{"lib/buttons.st.css": ".button {}"})
	u, _ := open(t, s, dir, "main.st.css", `.a {
    -st-extends: button;
}
`)

	actions, err := s.CodeAction(context.Background(), &protocol.CodeActionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: u},
		Range: protocol.Range{
			Start: protocol.Position{Line: 1, Character: 18},
			End:   protocol.Position{Line: 1, Character: 18},
		},
	})
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, `Import button from "./lib/buttons.st.css"`, actions[0].Title)
	edits := actions[0].Edit.Changes[u]
	require.Len(t, edits, 1)
	assert.Equal(t, ":import {\n    -st-from: \"./lib/buttons.st.css\";\n    -st-named: button;\n}\n", edits[0].NewText)
}

func TestFormattingTrimsTrailingWhitespace(t *testing.T) {
	edits := formatEdits(".a {  \n    color: red;\t\n}", protocol.FormattingOptions{InsertFinalNewline: true})

	require.Len(t, edits, 3)
	assert.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 0, Character: 4},
		End:   protocol.Position{Line: 0, Character: 6},
	}, edits[0].Range)
	assert.Equal(t, "", edits[1].NewText)
	assert.Equal(t, "\n", edits[2].NewText)
	assert.Equal(t, protocol.Position{Line: 2, Character: 1}, edits[2].Range.Start)
}
