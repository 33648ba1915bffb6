package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.lsp.dev/uri"
	"golang.org/x/sync/errgroup"

	"github.com/alexispurslane/stylable-lsp/docstore"
	"github.com/alexispurslane/stylable-lsp/stylesheet"
)

// Indexer loads the workspace's stylesheets into a document store and keeps them
// current across incremental scans.
type Indexer struct {
	mu       sync.Mutex
	root     string
	opts     Options
	store    *docstore.Store
	known    map[uri.URI]time.Time
	lastScan time.Time
}

// NewIndexer creates an indexer for root feeding store.
func NewIndexer(root string, store *docstore.Store, opts Options) *Indexer {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultOptions().Concurrency
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultOptions().Extensions
	}
	return &Indexer{
		root:  root,
		opts:  opts,
		store: store,
		known: make(map[uri.URI]time.Time),
	}
}

// Root returns the directory being indexed.
func (ix *Indexer) Root() string {
	return ix.root
}

// Files returns the URIs of every stylesheet found by the last scan or loaded on
// request.
func (ix *Indexer) Files() []uri.URI {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	out := make([]uri.URI, 0, len(ix.known))
	for u := range ix.known {
		out = append(out, u)
	}
	return out
}

// LastScanTime returns when the last Process call finished.
func (ix *Indexer) LastScanTime() time.Time {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.lastScan
}

// scanUnlocked compares the disk with what was indexed before and returns what to
// parse and what to delete. ix.mu must be held.
func (ix *Indexer) scanUnlocked() ([]FileMessage, error) {
	files, err := Scan(ix.root, ix.opts)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", ix.root, err)
	}

	var messages []FileMessage
	seen := make(map[uri.URI]bool, len(files))
	for _, f := range files {
		seen[f.URI] = true
		if mod, ok := ix.known[f.URI]; ok && mod.Equal(f.ModTime) {
			continue
		}
		messages = append(messages, FileMessage{Action: ShouldParse, Info: f})
	}
	for u, mod := range ix.known {
		if !seen[u] {
			messages = append(messages, FileMessage{Action: ShouldDelete, Info: FileInfo{URI: u, ModTime: mod}})
		}
	}
	return messages, nil
}

// Process performs an incremental scan: new and modified files are read and
// parsed in parallel, deleted files leave the store.
func (ix *Indexer) Process(ctx context.Context) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	messages, err := ix.scanUnlocked()
	if err != nil || len(messages) == 0 {
		slog.Debug("No stylesheet changes detected", "root", ix.root)
		ix.lastScan = time.Now()
		return err
	}

	// Phase 1: deletions
	for _, msg := range messages {
		if msg.Action == ShouldDelete {
			delete(ix.known, msg.Info.URI)
			ix.store.Remove(msg.Info.URI)
		}
	}

	// Phase 2: parse concurrently
	var mu sync.Mutex // Protects known
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.opts.Concurrency)

	parsed := 0
	for _, msg := range messages {
		if msg.Action != ShouldParse {
			continue
		}
		m := msg
		g.Go(func() error {
			if err := ix.load(gctx, m.Info.URI); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				slog.Error("Failed to index stylesheet", "path", m.Info.Path, "error", err)
				return nil
			}
			mu.Lock()
			ix.known[m.Info.URI] = m.Info.ModTime
			parsed++
			mu.Unlock()
			return nil
		})
	}
	err = g.Wait()
	ix.lastScan = time.Now()

	slog.Info("Incremental scan complete",
		"messages_processed", len(messages),
		"files_parsed", parsed,
		"files_total", len(ix.known))

	return err
}

func (ix *Indexer) load(ctx context.Context, u uri.URI) error {
	path, ok := stylesheet.Path(u)
	if !ok {
		return fmt.Errorf("not a file uri: %s", u)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	if _, err := ix.store.Put(ctx, u, string(data), 0, false); err != nil {
		return err
	}
	return nil
}

// Load reads u from disk into the store. It is the store's missing-document
// handler and reports whether the file existed.
func (ix *Indexer) Load(ctx context.Context, u uri.URI) bool {
	path, ok := stylesheet.Path(u)
	if !ok {
		return false
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if err := ix.load(ctx, u); err != nil {
		slog.Debug("Failed to load dependency from disk", "uri", u, "error", err)
		return false
	}

	if ix.tracks(path) {
		ix.mu.Lock()
		ix.known[u] = info.ModTime()
		ix.mu.Unlock()
	}
	return true
}

// tracks reports whether a scan would find path, so that later scans may delete it.
func (ix *Indexer) tracks(path string) bool {
	rel, err := filepath.Rel(ix.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, "../") {
		return false
	}
	return HasExtension(path, ix.opts.Extensions)
}
