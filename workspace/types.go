// Package workspace discovers stylesheets on disk and keeps the document store
// in sync with them.
package workspace

import (
	"time"

	"go.lsp.dev/uri"
)

// FileInfo is a stylesheet found on disk.
type FileInfo struct {
	// Path is relative to the workspace root.
	Path    string
	URI     uri.URI
	ModTime time.Time
}

// Action is what an incremental scan decided to do with a file.
type Action int

const (
	ShouldParse Action = iota
	ShouldDelete
)

// FileMessage pairs a file with the action the indexer takes for it.
type FileMessage struct {
	Action Action
	Info   FileInfo
}

// Options configures scanning and indexing.
type Options struct {
	// Extensions are the file name suffixes treated as stylesheets.
	Extensions []string
	// Ignore lists directory names that are never descended into.
	Ignore []string
	// Concurrency bounds the number of files read and parsed at once.
	Concurrency int
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		Extensions:  []string{".st.css"},
		Ignore:      []string{"node_modules", ".git"},
		Concurrency: 8,
	}
}
