package integration

import (
	"testing"

	"github.com/MarvinJWendt/testza"
	"go.lsp.dev/protocol"
)

func TestDefaultImportDefinition(t *testing.T) {
	Given("a class extending a default imported component", t,
		func(t *testing.T) *LSPTestContext {
			tc := NewTestContext(t)
			tc.GivenFile("comp.st.css", compSheet).
				GivenFile("main.st.css", `:import {
    -st-from: "./comp.st.css";
    -st-default: Comp;
}
.gaga {
    -st-extends: Co|mp;
}
`).
				GivenOpenFile("main.st.css")
			return tc
		},
		func(t *testing.T, tc *LSPTestContext) {
			params := protocol.DefinitionParams{TextDocumentPositionParams: tc.At("main.st.css")}

			When(t, tc, "requesting definition of the extends target", protocol.MethodTextDocumentDefinition, params, func(t *testing.T, locs []protocol.Location) {
				Then("returns the root class of the component", t, func(t *testing.T) {
					testza.AssertLen(t, locs, 1, "Expected exactly one definition location")
					testza.AssertEqual(t, tc.DocURI("comp.st.css"), locs[0].URI)
					testza.AssertEqual(t, protocol.Position{Line: 0, Character: 1}, locs[0].Range.Start)
					testza.AssertEqual(t, protocol.Position{Line: 0, Character: 5}, locs[0].Range.End)
				})
			})
		},
	)
}

func TestVariableDefinition(t *testing.T) {
	Given("a value() call on a named import", t,
		func(t *testing.T) *LSPTestContext {
			tc := NewTestContext(t)
			tc.GivenFile("comp.st.css", compSheet).
				GivenFile("main.st.css", `:import {
    -st-from: "./comp.st.css";
    -st-named: color1;
}
.a {
    color: value(col|or1);
}
`).
				GivenOpenFile("main.st.css")
			return tc
		},
		func(t *testing.T, tc *LSPTestContext) {
			params := protocol.DefinitionParams{TextDocumentPositionParams: tc.At("main.st.css")}

			When(t, tc, "requesting definition of the variable", protocol.MethodTextDocumentDefinition, params, func(t *testing.T, locs []protocol.Location) {
				Then("returns the declaration in the :vars block", t, func(t *testing.T) {
					testza.AssertLen(t, locs, 1)
					testza.AssertEqual(t, tc.DocURI("comp.st.css"), locs[0].URI)
					testza.AssertEqual(t, uint32(5), locs[0].Range.Start.Line)
					testza.AssertEqual(t, uint32(4), locs[0].Range.Start.Character)
				})
			})
		},
	)
}

func TestDefinitionOfUnresolvedImport(t *testing.T) {
	Given("a named import from a missing file", t,
		func(t *testing.T) *LSPTestContext {
			tc := NewTestContext(t)
			tc.GivenFile("main.st.css", `:import {
    -st-from: "./missing.st.css";
    -st-named: ghost;
}
.a {
    color: value(gh|ost);
}
`).
				GivenOpenFile("main.st.css")
			return tc
		},
		func(t *testing.T, tc *LSPTestContext) {
			params := protocol.DefinitionParams{TextDocumentPositionParams: tc.At("main.st.css")}

			When(t, tc, "requesting definition", protocol.MethodTextDocumentDefinition, params, func(t *testing.T, locs []protocol.Location) {
				Then("points at the import entry", t, func(t *testing.T) {
					testza.AssertLen(t, locs, 1)
					testza.AssertEqual(t, tc.DocURI("main.st.css"), locs[0].URI)
					testza.AssertEqual(t, protocol.Position{Line: 2, Character: 15}, locs[0].Range.Start)
				})
			})
		},
	)
}
