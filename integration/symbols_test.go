package integration

import (
	"testing"

	"github.com/MarvinJWendt/testza"
	"go.lsp.dev/protocol"
)

func TestDocumentSymbols(t *testing.T) {
	Given("a stylesheet with an import, variables and classes", t,
		func(t *testing.T) *LSPTestContext {
			tc := NewTestContext(t)
			tc.GivenFile("comp.st.css", compSheet).
				GivenFile("main.st.css", `:import {
    -st-from: "./comp.st.css";
    -st-default: Comp;
    -st-named: label;
}
:vars {
    gap: 4px;
}
.panel {
    -st-extends: Comp;
    -st-states: open;
}
`).
				GivenOpenFile("main.st.css")
			return tc
		},
		func(t *testing.T, tc *LSPTestContext) {
			params := protocol.DocumentSymbolParams{
				TextDocument: protocol.TextDocumentIdentifier{URI: tc.DocURI("main.st.css")},
			}

			When(t, tc, "requesting document symbols", protocol.MethodTextDocumentDocumentSymbol, params, func(t *testing.T, result []protocol.DocumentSymbol) {
				Then("returns the import with its entries", t, func(t *testing.T) {
					testza.AssertLen(t, result, 3)
					testza.AssertEqual(t, "./comp.st.css", result[0].Name)
					testza.AssertEqual(t, protocol.SymbolKindModule, result[0].Kind)
					testza.AssertLen(t, result[0].Children, 2)
					testza.AssertEqual(t, "Comp", result[0].Children[0].Name)
					testza.AssertEqual(t, "label", result[0].Children[1].Name)
				})

				Then("returns variables and classes with their states", t, func(t *testing.T) {
					testza.AssertEqual(t, "gap", result[1].Name)
					testza.AssertEqual(t, protocol.SymbolKindVariable, result[1].Kind)

					testza.AssertEqual(t, ".panel", result[2].Name)
					testza.AssertEqual(t, "extends Comp", result[2].Detail)
					testza.AssertLen(t, result[2].Children, 1)
					testza.AssertEqual(t, ":open", result[2].Children[0].Name)
				})
			})
		},
	)
}

func TestWorkspaceSymbols(t *testing.T) {
	Given("several stylesheets in the workspace", t,
		func(t *testing.T) *LSPTestContext {
			tc := NewTestContext(t)
			tc.GivenFile("comp.st.css", compSheet).
				GivenFile("forms/button.st.css", ".button {}\n.buttonLabel {}\n").
				GivenFile("node_modules/lib/button.st.css", ".button {}\n").
				GivenFile("main.st.css", ".main {}\n").
				GivenOpenFile("main.st.css").
				GivenSaveFile("main.st.css")
			return tc
		},
		func(t *testing.T, tc *LSPTestContext) {
			params := protocol.WorkspaceSymbolParams{Query: "Button"}

			When(t, tc, "searching for button", protocol.MethodWorkspaceSymbol, params, func(t *testing.T, result []protocol.SymbolInformation) {
				Then("matches case-insensitively outside ignored directories", t, func(t *testing.T) {
					var names []string
					for _, sym := range result {
						names = append(names, sym.Name+" "+sym.ContainerName)
					}
					testza.AssertLen(t, names, 2)
					testza.AssertContains(t, names, ".button forms/button.st.css")
					testza.AssertContains(t, names, ".buttonLabel forms/button.st.css")
				})
			})
		},
	)
}
