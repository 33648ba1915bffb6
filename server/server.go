// Package server provides the LSP server implementation for Stylable stylesheets.
package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/zap"

	"github.com/alexispurslane/stylable-lsp/completion"
	"github.com/alexispurslane/stylable-lsp/config"
	"github.com/alexispurslane/stylable-lsp/docstore"
	"github.com/alexispurslane/stylable-lsp/lspstream"
	"github.com/alexispurslane/stylable-lsp/references"
	"github.com/alexispurslane/stylable-lsp/resolve"
	"github.com/alexispurslane/stylable-lsp/stylesheet"
	"github.com/alexispurslane/stylable-lsp/workspace"
)

const (
	serverName    = "stylable-lsp"
	serverVersion = "0.1.0"

	// MethodOpenDocument asks the client to open a dependency the server cannot
	// read itself. Its params are the file URI as a string.
	MethodOpenDocument = "stylable/openDocumentNotification"
)

// ServerImpl implements protocol.Server over the document store.
type ServerImpl struct {
	store    *docstore.Store
	waiter   *docstore.Waiter
	resolver *resolve.Resolver
	refs     *references.Engine
	registry *completion.Registry
	logger   *zap.Logger

	mu         sync.RWMutex
	cfg        *config.Config
	configPath string
	root       string
	indexer    *workspace.Indexer
	watcher    *workspace.Watcher
	sessions   map[*session]struct{}
	lifetime   context.Context
	stop       context.CancelFunc
	published  map[uri.URI]bool
}

// Option configures a ServerImpl.
type Option func(*ServerImpl)

// WithConfig uses cfg instead of loading the configuration at initialize.
func WithConfig(cfg *config.Config) Option {
	return func(s *ServerImpl) { s.cfg = cfg }
}

// WithConfigPath loads the configuration from path at initialize.
func WithConfigPath(path string) Option {
	return func(s *ServerImpl) { s.configPath = path }
}

// WithRegistry replaces the default completion providers.
func WithRegistry(reg *completion.Registry) Option {
	return func(s *ServerImpl) { s.registry = reg }
}

// WithLogger sets the zap logger used by the JSON-RPC transport.
func WithLogger(logger *zap.Logger) Option {
	return func(s *ServerImpl) { s.logger = logger }
}

// New creates and returns a new LSP server instance.
func New(opts ...Option) *ServerImpl {
	store := docstore.New()
	resolver := resolve.New(store)
	lifetime, stop := context.WithCancel(context.Background())
	s := &ServerImpl{
		store:     store,
		waiter:    docstore.NewWaiter(store),
		resolver:  resolver,
		refs:      references.New(resolver),
		registry:  completion.DefaultRegistry(),
		logger:    zap.NewNop(),
		lifetime:  lifetime,
		stop:      stop,
		published: make(map[uri.URI]bool),
		sessions:  make(map[*session]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	store.SetMissingHandler(s.loadMissing)
	return s
}

// Store exposes the document store.
func (s *ServerImpl) Store() *docstore.Store {
	return s.store
}

// Config returns the active configuration.
func (s *ServerImpl) Config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cfg == nil {
		return config.DefaultConfig()
	}
	return s.cfg
}

// LastScanTime reports when the workspace index last finished a scan.
func (s *ServerImpl) LastScanTime() time.Time {
	s.mu.RLock()
	ix := s.indexer
	s.mu.RUnlock()
	if ix == nil {
		return time.Time{}
	}
	return ix.LastScanTime()
}

// Serve runs the protocol over stream until the connection closes. Every
// connection is its own session.
func (s *ServerImpl) Serve(ctx context.Context, stream jsonrpc2.Stream) error {
	conn := jsonrpc2.NewConn(stream)
	sess := &session{
		conn:   conn,
		client: protocol.ClientDispatcher(conn, s.logger.Named("client")),
	}
	s.mu.Lock()
	s.sessions[sess] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.sessions, sess)
		s.mu.Unlock()
	}()

	ctx = protocol.WithClient(withSession(ctx, sess), sess.client)
	conn.Go(ctx, s.handler())

	select {
	case <-conn.Done():
	case <-ctx.Done():
		conn.Close()
		<-conn.Done()
	}
	return conn.Err()
}

// RunStdio serves a single client over standard input and output.
func (s *ServerImpl) RunStdio() error {
	err := s.Serve(context.Background(), lspstream.NewStream(lspstream.Stdio()))
	if err == io.EOF {
		return nil
	}
	return err
}

// RunTCP listens on addr and serves every accepted connection.
func (s *ServerImpl) RunTCP(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	defer listener.Close()
	slog.Info("Listening", "address", listener.Addr().String())

	for {
		conn, err := listener.Accept()
		if err != nil {
			return fmt.Errorf("accept failed: %w", err)
		}
		go func(c net.Conn) {
			defer c.Close()
			if err := s.Serve(context.Background(), lspstream.NewStream(c)); err != nil && err != io.EOF {
				slog.Debug("Connection closed", "remote", c.RemoteAddr().String(), "error", err)
			}
		}(conn)
	}
}

func (s *ServerImpl) Initialize(ctx context.Context, params *protocol.InitializeParams) (result *protocol.InitializeResult, err error) {
	slog.Debug("Initialize called", "rootUri", params.RootURI, "rootPath", params.RootPath)

	root := workspaceRoot(params)
	s.mu.Lock()
	s.root = root
	if s.cfg == nil {
		cfg, err := config.Load(s.configPath, root)
		if err != nil {
			slog.Error("Failed to load configuration, using defaults", "error", err)
			cfg = config.DefaultConfig()
		}
		s.cfg = cfg
	}
	cfg := s.cfg
	s.mu.Unlock()

	slog.SetLogLoggerLevel(cfg.SlogLevel())

	if root != "" {
		ix := workspace.NewIndexer(root, s.store, workspaceOptions(cfg))
		s.mu.Lock()
		s.indexer = ix
		s.mu.Unlock()

		slog.Info("Starting stylesheet scan", "root", root)
		if err := ix.Process(ctx); err != nil {
			slog.Error("Failed to scan stylesheets", "error", err)
		} else {
			slog.Info("Completed stylesheet scan", "files", len(ix.Files()))
		}
	}

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
				Save:      &protocol.SaveOptions{IncludeText: true},
			},
			CompletionProvider: &protocol.CompletionOptions{
				TriggerCharacters: []string{".", "-", ":", "\"", ","},
			},
			SignatureHelpProvider: &protocol.SignatureHelpOptions{
				TriggerCharacters: []string{"(", ","},
			},
			HoverProvider:                   true,
			DefinitionProvider:              true,
			ReferencesProvider:              true,
			DocumentSymbolProvider:          true,
			WorkspaceSymbolProvider:         true,
			FoldingRangeProvider:            true,
			CodeActionProvider:              true,
			DocumentFormattingProvider:      true,
			DocumentRangeFormattingProvider: true,
		},
		ServerInfo: &protocol.ServerInfo{
			Name:    serverName,
			Version: serverVersion,
		},
	}, nil
}

func workspaceRoot(params *protocol.InitializeParams) string {
	if params.RootURI != "" {
		if path, ok := stylesheet.Path(params.RootURI); ok {
			return path
		}
	}
	if len(params.WorkspaceFolders) > 0 {
		if path, ok := stylesheet.Path(uri.URI(params.WorkspaceFolders[0].URI)); ok {
			return path
		}
	}
	return params.RootPath
}

func workspaceOptions(cfg *config.Config) workspace.Options {
	return workspace.Options{
		Extensions:  cfg.Extensions,
		Ignore:      cfg.Ignore,
		Concurrency: cfg.ScanConcurrency,
	}
}

func (s *ServerImpl) Initialized(ctx context.Context, params *protocol.InitializedParams) (err error) {
	slog.Debug("Initialized called")

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.root == "" || s.cfg == nil || !s.cfg.Watch || s.watcher != nil {
		return nil
	}
	w, err := workspace.NewWatcher(s.root, workspaceOptions(s.cfg), s.cfg.WatchDebounce, s.rescan)
	if err != nil {
		slog.Error("Failed to create file watcher", "error", err)
		return nil
	}
	if err := w.Start(s.lifetime); err != nil {
		slog.Error("Failed to start file watcher", "error", err)
		w.Stop()
		return nil
	}
	s.watcher = w
	return nil
}

// rescan re-indexes the workspace and refreshes the diagnostics of open files.
func (s *ServerImpl) rescan(ctx context.Context) {
	s.mu.RLock()
	ix := s.indexer
	s.mu.RUnlock()
	if ix == nil {
		return
	}
	if err := ix.Process(ctx); err != nil {
		slog.Error("Failed to re-scan stylesheets", "error", err)
	}
	s.publishOpen(ctx)
}

func (s *ServerImpl) Shutdown(ctx context.Context) (err error) {
	slog.Debug("Shutdown called")
	s.mu.Lock()
	w := s.watcher
	s.watcher = nil
	s.mu.Unlock()
	if w != nil {
		w.Stop()
	}
	s.waiter.Close()
	s.stop()
	return nil
}

func (s *ServerImpl) Exit(ctx context.Context) (err error) {
	slog.Debug("Exit called")
	s.stop()
	if sess, ok := sessionFrom(ctx); ok {
		return sess.conn.Close()
	}
	return nil
}

func (s *ServerImpl) DidOpen(ctx context.Context, params *protocol.DidOpenTextDocumentParams) (err error) {
	u := params.TextDocument.URI
	slog.Info("Opening document", "uri", u, "version", params.TextDocument.Version)

	if _, err := s.store.Put(ctx, u, params.TextDocument.Text, params.TextDocument.Version, true); err != nil {
		slog.Error("Failed to parse document", "uri", u, "error", err)
		return nil
	}
	s.publishAround(ctx, u)
	return nil
}

func (s *ServerImpl) DidChange(ctx context.Context, params *protocol.DidChangeTextDocumentParams) (err error) {
	u := params.TextDocument.URI
	slog.Debug("Changing document", "uri", u, "version", params.TextDocument.Version)
	if len(params.ContentChanges) == 0 {
		return nil
	}

	// Full sync: the last change carries the whole text.
	text := params.ContentChanges[len(params.ContentChanges)-1].Text
	if _, err := s.store.Put(ctx, u, text, params.TextDocument.Version, true); err != nil {
		slog.Error("Failed to parse document", "uri", u, "error", err)
		return nil
	}
	s.publishAround(ctx, u)
	return nil
}

func (s *ServerImpl) DidSave(ctx context.Context, params *protocol.DidSaveTextDocumentParams) (err error) {
	u := params.TextDocument.URI
	slog.Debug("Saved document", "uri", u)

	if params.Text != "" {
		version := int32(0)
		if doc, ok := s.store.Get(u); ok {
			version = doc.Version
		}
		if _, err := s.store.Put(ctx, u, params.Text, version, true); err != nil {
			slog.Error("Failed to parse document", "uri", u, "error", err)
		}
	}
	s.rescan(ctx)
	return nil
}

func (s *ServerImpl) DidClose(ctx context.Context, params *protocol.DidCloseTextDocumentParams) (err error) {
	u := params.TextDocument.URI
	slog.Info("Closing document", "uri", u)

	// Unsaved edits die with the editor buffer; the disk copy takes over.
	s.store.Close(u)
	s.mu.RLock()
	ix := s.indexer
	s.mu.RUnlock()
	if ix == nil || !ix.Load(ctx, u) {
		s.store.Remove(u)
	}
	s.clearDiagnostics(ctx, u)
	return nil
}

func (s *ServerImpl) DidChangeWatchedFiles(ctx context.Context, params *protocol.DidChangeWatchedFilesParams) (err error) {
	slog.Debug("Watched files changed", "changes", len(params.Changes))
	s.rescan(ctx)
	return nil
}

// loadMissing makes u resident: from disk when the file exists, otherwise by
// asking the client of the requesting session to open it.
func (s *ServerImpl) loadMissing(ctx context.Context, u uri.URI) {
	s.mu.RLock()
	ix := s.indexer
	s.mu.RUnlock()

	if ix != nil && ix.Load(ctx, u) {
		return
	}
	if ix == nil {
		if path, ok := stylesheet.Path(u); ok {
			if data, err := os.ReadFile(path); err == nil {
				if _, err := s.store.Put(ctx, u, string(data), 0, false); err == nil {
					return
				}
			}
		}
	}
	sess, ok := sessionFrom(ctx)
	if !ok {
		return
	}
	// The didOpen answering this queues behind the request.
	yield(ctx)
	slog.Debug("Asking client to open dependency", "uri", u)
	if err := sess.conn.Notify(ctx, MethodOpenDocument, string(u)); err != nil {
		slog.Error("Failed to send open document notification", "uri", u, "error", err)
	}
}

func (s *ServerImpl) document(u uri.URI) (*docstore.Document, bool) {
	doc, ok := s.store.Get(u)
	if !ok {
		slog.Debug("Document not in store", "uri", u)
	}
	return doc, ok
}

// requestLogger tags every log line of one request with a correlation id.
func requestLogger(method string, u uri.URI) *slog.Logger {
	return slog.With("method", method, "request", newRequestID(), "uri", strings.TrimPrefix(string(u), "file://"))
}
