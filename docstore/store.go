// Package docstore holds the text and parsed meta-model of every stylesheet the
// server knows about, whether opened by the editor or loaded from disk.
package docstore

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"go.lsp.dev/uri"

	"github.com/alexispurslane/stylable-lsp/stylesheet"
)

// Document is one resident stylesheet.
type Document struct {
	URI     uri.URI
	Version int32
	Text    string
	Sheet   *stylesheet.Sheet
	// Open is set while the editor owns the document; disk loads never replace an
	// open document.
	Open bool
}

// EventKind tells subscribers what happened to a document.
type EventKind int

const (
	Loaded EventKind = iota
	Changed
	Removed
)

func (k EventKind) String() string {
	switch k {
	case Loaded:
		return "loaded"
	case Changed:
		return "changed"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers after the store has been updated.
type Event struct {
	Kind EventKind
	URI  uri.URI
}

// MissingHandler is asked to make a document resident.
type MissingHandler func(ctx context.Context, u uri.URI)

// Store is the document store. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	docs    map[uri.URI]*Document
	subs    map[int]func(Event)
	nextSub int
	missing MissingHandler
}

// New creates an empty store.
func New() *Store {
	return &Store{
		docs: make(map[uri.URI]*Document),
		subs: make(map[int]func(Event)),
	}
}

// Get returns the resident document for u.
func (s *Store) Get(u uri.URI) (*Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[u]
	return doc, ok
}

// Sheet returns the meta-model of the resident document u.
func (s *Store) Sheet(u uri.URI) (*stylesheet.Sheet, bool) {
	doc, ok := s.Get(u)
	if !ok || doc.Sheet == nil {
		return nil, false
	}
	return doc.Sheet, true
}

// URIs returns the URIs of all resident documents, sorted.
func (s *Store) URIs() []uri.URI {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]uri.URI, 0, len(s.docs))
	for u := range s.docs {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// All returns every resident document, sorted by URI.
func (s *Store) All() []*Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Document, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URI < out[j].URI })
	return out
}

// Put parses text and stores it as the current content of u. A disk load
// (open=false) is ignored while the editor has the document open.
func (s *Store) Put(ctx context.Context, u uri.URI, text string, version int32, open bool) (*Document, error) {
	sheet, err := stylesheet.Parse(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", u, err)
	}
	doc := &Document{URI: u, Version: version, Text: text, Sheet: sheet, Open: open}

	s.mu.Lock()
	prev, existed := s.docs[u]
	if existed && prev.Open && !open {
		s.mu.Unlock()
		slog.Debug("Ignoring disk content for open document", "uri", u)
		return prev, nil
	}
	s.docs[u] = doc
	s.mu.Unlock()

	kind := Changed
	if !existed {
		kind = Loaded
	}
	slog.Debug("Document stored", "uri", u, "version", version, "open", open, "event", kind.String())
	s.publish(Event{Kind: kind, URI: u})
	return doc, nil
}

// Close marks u as no longer owned by the editor. The text stays resident until a
// disk load replaces it or the file is removed.
func (s *Store) Close(u uri.URI) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.docs[u]; ok {
		closed := *doc
		closed.Open = false
		s.docs[u] = &closed
	}
}

// Remove drops u unless the editor has it open. It reports whether the document
// was removed.
func (s *Store) Remove(u uri.URI) bool {
	s.mu.Lock()
	doc, ok := s.docs[u]
	if !ok || doc.Open {
		s.mu.Unlock()
		return false
	}
	delete(s.docs, u)
	s.mu.Unlock()

	slog.Debug("Document removed", "uri", u)
	s.publish(Event{Kind: Removed, URI: u})
	return true
}

// SetMissingHandler installs the collaborator that loads documents on request.
func (s *Store) SetMissingHandler(h MissingHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.missing = h
}

// NotifyMissing asks the missing handler to make u resident. It is the only side
// effect the resolution code has on its environment.
func (s *Store) NotifyMissing(ctx context.Context, u uri.URI) {
	s.mu.RLock()
	h := s.missing
	s.mu.RUnlock()
	if h == nil {
		slog.Debug("No handler for missing document", "uri", u)
		return
	}
	h(ctx, u)
}

// Subscribe registers fn for store events and returns a function that removes it.
// fn runs on the goroutine that changed the store and must not block.
func (s *Store) Subscribe(fn func(Event)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) publish(ev Event) {
	s.mu.RLock()
	subs := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.RUnlock()

	for _, fn := range subs {
		fn(ev)
	}
}
