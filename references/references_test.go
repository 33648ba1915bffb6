package references

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/alexispurslane/stylable-lsp/docstore"
	"github.com/alexispurslane/stylable-lsp/resolve"
)

const localRefs = `  .gaga {
    -st-states: active;
        color: red;
    }

.gaga:active .gaga {
    background-color: fuchsia;
}

.lokal {
    -st-extends:      gaga;
}

.mixed {
    -st-mixin: lokal,
    gaga, lokal,
    gaga;
}
`

func project(name string) uri.URI {
	return uri.File("/project/" + name)
}

func engine(t *testing.T, files map[string]string) *Engine {
	t.Helper()
	store := docstore.New()
	for name, text := range files {
		_, err := store.Put(context.Background(), project(name), text, 0, true)
		require.NoError(t, err)
	}
	return New(resolve.New(store))
}

func pos(line, char uint32) protocol.Position {
	return protocol.Position{Line: line, Character: char}
}

func rng(line, start, end uint32) protocol.Range {
	return protocol.Range{Start: pos(line, start), End: pos(line, end)}
}

func ranges(locs []Location) []protocol.Range {
	out := make([]protocol.Range, 0, len(locs))
	for _, l := range locs {
		out = append(out, l.Range)
	}
	return out
}

func TestLocalClassReferences(t *testing.T) {
	e := engine(t, map[string]string{"main.st.css": localRefs})
	main := project("main.st.css")

	expected := []protocol.Range{
		rng(0, 3, 7),
		rng(5, 1, 5),
		rng(5, 14, 18),
		rng(10, 22, 26),
		rng(15, 4, 8),
		rng(16, 4, 8),
	}
	for _, anchor := range []protocol.Position{pos(0, 4), pos(5, 2), pos(5, 16), pos(10, 24), pos(15, 5), pos(16, 7)} {
		locs := e.FindReferences(main, anchor, true)
		assert.Equal(t, expected, ranges(locs), "anchor %v", anchor)
	}

	locs := e.FindReferences(main, pos(10, 24), false)
	assert.Equal(t, expected[1:], ranges(locs))
}

func TestLocalStateReferences(t *testing.T) {
	e := engine(t, map[string]string{"main.st.css": localRefs})
	main := project("main.st.css")

	locs := e.FindReferences(main, pos(5, 8), true)
	assert.Equal(t, []protocol.Range{rng(1, 16, 22), rng(5, 6, 12)}, ranges(locs))
}

func TestNoSymbolUnderCursor(t *testing.T) {
	e := engine(t, map[string]string{"main.st.css": localRefs})
	main := project("main.st.css")

	assert.Empty(t, e.FindReferences(main, pos(2, 10), true))
	assert.Empty(t, e.FindDefinition(main, pos(2, 10)))
	assert.Empty(t, e.FindReferences(project("missing.st.css"), pos(0, 0), true))
}

const (
	varsSheet = `:vars {
    color1: red;
}
.root {
    color: value(color1);
}
`
	importerSheet = `:import {
    -st-from: "./vars.st.css";
    -st-named: color1;
}
.a {
    color: value(color1);
}
`
	otherSheet = `:vars {
    color1: blue;
}
.b {
    color: value(color1);
}
`
)

func TestCrossFileVariableReferences(t *testing.T) {
	e := engine(t, map[string]string{
		"vars.st.css":     varsSheet,
		"importer.st.css": importerSheet,
		"other.st.css":    otherSheet,
	})
	vars := project("vars.st.css")
	importer := project("importer.st.css")

	expected := []Location{
		{URI: vars, Range: rng(1, 4, 10)},
		{URI: vars, Range: rng(4, 17, 23)},
		{URI: importer, Range: rng(2, 15, 21)},
		{URI: importer, Range: rng(5, 17, 23)},
	}
	strip := func(locs []Location) []Location {
		out := make([]Location, 0, len(locs))
		for _, l := range locs {
			out = append(out, Location{URI: l.URI, Range: l.Range})
		}
		return out
	}

	assert.Equal(t, expected, strip(e.FindReferences(vars, pos(1, 6), true)))
	assert.Equal(t, expected, strip(e.FindReferences(importer, pos(5, 19), true)))
	assert.Equal(t, expected[1:], strip(e.FindReferences(importer, pos(2, 16), false)))
}

func TestDefinition(t *testing.T) {
	e := engine(t, map[string]string{
		"vars.st.css":     varsSheet,
		"importer.st.css": importerSheet,
	})
	importer := project("importer.st.css")

	defs := e.FindDefinition(importer, pos(5, 19))
	require.Len(t, defs, 1)
	assert.Equal(t, project("vars.st.css"), defs[0].URI)
	assert.Equal(t, rng(1, 4, 10), defs[0].Range)

	proto := defs[0].Protocol()
	assert.Equal(t, protocol.DocumentURI(project("vars.st.css")), proto.URI)
}

func TestDefinitionOfDanglingImport(t *testing.T) {
	e := engine(t, map[string]string{"importer.st.css": importerSheet})
	importer := project("importer.st.css")

	defs := e.FindDefinition(importer, pos(5, 19))
	require.Len(t, defs, 1)
	assert.Equal(t, importer, defs[0].URI)
	assert.Equal(t, rng(2, 15, 21), defs[0].Range)
}

func TestDefaultImportReferencesRoot(t *testing.T) {
	comp := `.root {
    -st-states: on;
}
`
	main := `:import {
    -st-from: "./comp.st.css";
    -st-default: Comp;
}
.a {
    -st-extends: Comp;
}
`
	e := engine(t, map[string]string{"comp.st.css": comp, "main.st.css": main})

	locs := e.FindReferences(project("main.st.css"), pos(5, 18), true)
	require.Len(t, locs, 3)
	assert.Equal(t, project("comp.st.css"), locs[0].URI)
	assert.Equal(t, rng(0, 1, 5), locs[0].Range)
	assert.Equal(t, project("main.st.css"), locs[1].URI)
	assert.Equal(t, rng(2, 17, 21), locs[1].Range)
	assert.Equal(t, rng(5, 17, 21), locs[2].Range)

	defs := e.FindDefinition(project("main.st.css"), pos(5, 18))
	require.Len(t, defs, 1)
	assert.Equal(t, project("comp.st.css"), defs[0].URI)
}
