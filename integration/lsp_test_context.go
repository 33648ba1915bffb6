package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"text/template"
	"time"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/alexispurslane/stylable-lsp/lspstream"
	ourserver "github.com/alexispurslane/stylable-lsp/server"
)

// caret marks the cursor in fixture text; GivenFile strips it.
const caret = "|"

// testConfig keeps dependency waits short and the watcher off.
const testConfig = `dependencyTimeout: 1s
watch: false
`

// LSPTestContext manages server lifecycle and provides test helpers
type LSPTestContext struct {
	t        *testing.T
	conn     jsonrpc2.Conn
	ctx      context.Context
	cancel   context.CancelFunc
	tempDir  string
	server   *ourserver.ServerImpl
	done     chan struct{}
	listener net.Listener
	TestData map[string]string // Storage for template values used by GivenFile

	mu          sync.Mutex
	carets      map[string]protocol.Position
	diagnostics map[uri.URI][]protocol.Diagnostic
	requested   []uri.URI
	virtual     map[uri.URI]string
}

// NewTestContext creates a temp workspace, starts the LSP server on a local TCP
// port with that directory as root, and returns an initialized client.
func NewTestContext(t *testing.T) *LSPTestContext {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "stylable-lsp-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tempDir, "stylable-lsp.yaml"), []byte(testConfig), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	srv := ourserver.New()

	done := make(chan struct{})
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		cancel()
		os.RemoveAll(tempDir)
		t.Fatalf("Failed to create TCP listener: %v", err)
	}

	go func() {
		defer close(done)
		for {
			conn, err := listener.Accept()
			if err != nil {
				return // Listener closed
			}
			go func(c net.Conn) {
				defer c.Close()
				_ = srv.Serve(ctx, lspstream.NewStream(c))
			}(conn)
		}
	}()

	clientConn, err := net.Dial("tcp", listener.Addr().String())
	if err != nil {
		cancel()
		listener.Close()
		os.RemoveAll(tempDir)
		t.Fatalf("Failed to connect to server: %v", err)
	}

	tc := &LSPTestContext{
		t:           t,
		ctx:         ctx,
		cancel:      cancel,
		tempDir:     tempDir,
		server:      srv,
		done:        done,
		listener:    listener,
		TestData:    make(map[string]string),
		carets:      make(map[string]protocol.Position),
		diagnostics: make(map[uri.URI][]protocol.Diagnostic),
		virtual:     make(map[uri.URI]string),
	}

	tc.conn = jsonrpc2.NewConn(lspstream.NewStream(clientConn))
	tc.conn.Go(ctx, tc.handle)

	var initResult protocol.InitializeResult
	if _, err := tc.conn.Call(ctx, protocol.MethodInitialize, protocol.InitializeParams{
		ProcessID: int32(os.Getpid()),
		RootURI:   uri.File(tempDir),
	}, &initResult); err != nil {
		tc.Shutdown()
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := tc.conn.Notify(ctx, protocol.MethodInitialized, protocol.InitializedParams{}); err != nil {
		tc.Shutdown()
		t.Fatalf("Initialized notification failed: %v", err)
	}
	return tc
}

// handle plays the editor's side: it records diagnostics and answers the
// server's open-document requests from the virtual files.
func (tc *LSPTestContext) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	switch req.Method() {
	case protocol.MethodTextDocumentPublishDiagnostics:
		var params protocol.PublishDiagnosticsParams
		if err := json.Unmarshal(req.Params(), &params); err == nil {
			tc.mu.Lock()
			tc.diagnostics[params.URI] = params.Diagnostics
			tc.mu.Unlock()
		}
	case ourserver.MethodOpenDocument:
		var raw string
		if err := json.Unmarshal(req.Params(), &raw); err == nil {
			u := uri.URI(raw)
			tc.mu.Lock()
			tc.requested = append(tc.requested, u)
			text, ok := tc.virtual[u]
			tc.mu.Unlock()
			if ok {
				_ = tc.conn.Notify(ctx, protocol.MethodTextDocumentDidOpen, protocol.DidOpenTextDocumentParams{
					TextDocument: protocol.TextDocumentItem{URI: u, LanguageID: "css", Version: 1, Text: text},
				})
			}
		}
	}
	return reply(ctx, nil, nil)
}

// GivenFile creates a file in the temp directory with template substitution.
// Content is treated as a Go text/template with tc.TestData as its data. A "|"
// in the content marks the cursor for Caret and is not written.
func (tc *LSPTestContext) GivenFile(path, content string) *LSPTestContext {
	tc.t.Helper()

	fullPath := filepath.Join(tc.tempDir, path)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		tc.t.Fatalf("Failed to create directory for %s: %v", path, err)
	}
	text := tc.render(path, content)
	if err := os.WriteFile(fullPath, []byte(text), 0644); err != nil {
		tc.t.Fatalf("Failed to create file %s: %v", path, err)
	}
	return tc
}

// GivenVirtualFile registers a document that only the editor has. The server
// learns about it by asking for it.
func (tc *LSPTestContext) GivenVirtualFile(path, content string) *LSPTestContext {
	tc.t.Helper()
	text := tc.render(path, content)
	tc.mu.Lock()
	tc.virtual[tc.DocURI(path)] = text
	tc.mu.Unlock()
	return tc
}

func (tc *LSPTestContext) render(path, content string) string {
	tc.t.Helper()
	tmpl, err := template.New(path).Parse(content)
	if err != nil {
		tc.t.Fatalf("Failed to parse template for %s: %v", path, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, tc.TestData); err != nil {
		tc.t.Fatalf("Failed to execute template for %s: %v", path, err)
	}

	text := buf.String()
	if i := strings.Index(text, caret); i >= 0 {
		text = text[:i] + text[i+len(caret):]
		tc.mu.Lock()
		tc.carets[path] = positionOf(text, i)
		tc.mu.Unlock()
	}
	return text
}

// GivenOpenFile opens a document from the workspace in the server.
func (tc *LSPTestContext) GivenOpenFile(path string) *LSPTestContext {
	tc.t.Helper()

	content, err := os.ReadFile(filepath.Join(tc.tempDir, path))
	if err != nil {
		tc.t.Fatalf("Failed to read file for didOpen: %v", err)
	}
	err = tc.conn.Notify(tc.ctx, protocol.MethodTextDocumentDidOpen, protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        tc.DocURI(path),
			LanguageID: "css",
			Version:    1,
			Text:       string(content),
		},
	})
	if err != nil {
		tc.t.Fatalf("didOpen failed: %v", err)
	}
	return tc
}

// GivenSaveFile sends didSave for path, which makes the server rescan the
// workspace and pick up files written since initialize.
func (tc *LSPTestContext) GivenSaveFile(path string) *LSPTestContext {
	tc.t.Helper()

	err := tc.conn.Notify(tc.ctx, protocol.MethodTextDocumentDidSave, protocol.DidSaveTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: tc.DocURI(path)},
	})
	if err != nil {
		tc.t.Fatalf("didSave failed: %v", err)
	}
	return tc
}

// GivenChangeFile replaces the whole text of an open document.
func (tc *LSPTestContext) GivenChangeFile(path, content string, version int32) *LSPTestContext {
	tc.t.Helper()

	text := tc.render(path, content)
	err := tc.conn.Notify(tc.ctx, protocol.MethodTextDocumentDidChange, protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: tc.DocURI(path)},
			Version:                version,
		},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{{Text: text}},
	})
	if err != nil {
		tc.t.Fatalf("didChange failed: %v", err)
	}
	return tc
}

// When performs an LSP operation and calls the handler with the result.
// It wraps the operation in t.Run with a "when " prefix for Gherkin-style output.
func When[T any](t *testing.T, tc *LSPTestContext, description string, method string, params any, handler func(*testing.T, T)) bool {
	return t.Run("when "+description, func(t *testing.T) {
		var result T
		if _, err := tc.conn.Call(tc.ctx, method, params, &result); err != nil {
			t.Fatalf("LSP call %s failed: %v", method, err)
		}
		handler(t, result)
	})
}

// AwaitDiagnostics waits until diagnostics for path have been published and
// returns the latest set.
func (tc *LSPTestContext) AwaitDiagnostics(path string) []protocol.Diagnostic {
	tc.t.Helper()
	u := tc.DocURI(path)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		tc.mu.Lock()
		diags, ok := tc.diagnostics[u]
		tc.mu.Unlock()
		if ok {
			return diags
		}
		time.Sleep(5 * time.Millisecond)
	}
	tc.t.Fatalf("No diagnostics published for %s", path)
	return nil
}

// Requested returns the documents the server asked the editor to open.
func (tc *LSPTestContext) Requested() []uri.URI {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return append([]uri.URI(nil), tc.requested...)
}

// Shutdown gracefully shuts down the server and cleans up resources
func (tc *LSPTestContext) Shutdown() {
	_, _ = tc.conn.Call(tc.ctx, protocol.MethodShutdown, nil, nil)
	tc.cancel()
	tc.conn.Close()
	tc.listener.Close()
	<-tc.done
	os.RemoveAll(tc.tempDir)
}

// DocURI returns the URI of a file relative to the test root.
func (tc *LSPTestContext) DocURI(path string) protocol.DocumentURI {
	return uri.File(filepath.Join(tc.tempDir, path))
}

// Caret returns where the "|" marker sat in the last content given for path.
func (tc *LSPTestContext) Caret(path string) protocol.Position {
	tc.t.Helper()
	tc.mu.Lock()
	pos, ok := tc.carets[path]
	tc.mu.Unlock()
	if !ok {
		tc.t.Fatalf("No caret marker given for %s", path)
	}
	return pos
}

// At builds position params for the caret of path.
func (tc *LSPTestContext) At(path string) protocol.TextDocumentPositionParams {
	return protocol.TextDocumentPositionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: tc.DocURI(path)},
		Position:     tc.Caret(path),
	}
}

// PosAfter returns the position just after the first occurrence of marker in
// the file on disk.
func (tc *LSPTestContext) PosAfter(path, marker string) protocol.Position {
	content, err := os.ReadFile(filepath.Join(tc.tempDir, path))
	if err != nil {
		tc.t.Fatalf("Failed to read file %s for PosAfter: %v", path, err)
	}
	idx := strings.Index(string(content), marker)
	if idx < 0 {
		tc.t.Fatalf("Marker %q not found in file %s", marker, path)
	}
	return positionOf(string(content), idx+len(marker))
}

// positionOf converts a byte offset of text to a line and byte column.
func positionOf(text string, offset int) protocol.Position {
	line := strings.Count(text[:offset], "\n")
	col := offset - (strings.LastIndex(text[:offset], "\n") + 1)
	return protocol.Position{Line: uint32(line), Character: uint32(col)}
}
