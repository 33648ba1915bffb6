package workspace

import (
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.lsp.dev/uri"
)

// Scan walks the directory tree from root and collects all stylesheet files.
// Returns a slice of FileInfo with relative paths and modification times.
func Scan(root string, opts Options) ([]FileInfo, error) {
	slog.Debug("Scanning directory for stylesheets", "root", root, "extensions", opts.Extensions)
	var files []FileInfo

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			// Continue scanning on individual file errors
			return nil
		}

		if d.IsDir() {
			if path != root && slices.Contains(opts.Ignore, d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if !HasExtension(path, opts.Extensions) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			slog.Error("Error getting file info", "path", path, "error", err)
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			relPath = path
		}

		files = append(files, FileInfo{
			Path:    filepath.ToSlash(relPath),
			URI:     uri.File(path),
			ModTime: info.ModTime(),
		})
		return nil
	})

	if err != nil {
		return nil, err
	}

	return files, nil
}

// HasExtension reports whether path ends with one of exts.
func HasExtension(path string, exts []string) bool {
	for _, ext := range exts {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}
