package stylesheet

import (
	"path/filepath"
	"strings"

	"go.lsp.dev/uri"
)

// Path returns the filesystem path of a file URI.
func Path(u uri.URI) (string, bool) {
	if !strings.HasPrefix(string(u), uri.FileScheme+"://") {
		return "", false
	}
	return u.Filename(), true
}

// ResolveImport resolves an -st-from value against the importing document.
// Relative paths are joined with the importing document's directory.
func ResolveImport(origin uri.URI, from string) (uri.URI, bool) {
	from = strings.TrimSpace(unquote(strings.TrimSpace(from)))
	if from == "" {
		return "", false
	}
	if strings.HasPrefix(from, uri.FileScheme+"://") {
		return uri.URI(from), true
	}
	if filepath.IsAbs(from) {
		return uri.File(filepath.Clean(from)), true
	}
	originPath, ok := Path(origin)
	if !ok {
		return "", false
	}
	return uri.File(filepath.Join(filepath.Dir(originPath), from)), true
}

// RelativeImport returns the -st-from value that imports target from origin.
func RelativeImport(origin, target uri.URI) (string, bool) {
	originPath, ok := Path(origin)
	if !ok {
		return "", false
	}
	targetPath, ok := Path(target)
	if !ok {
		return "", false
	}
	rel, err := filepath.Rel(filepath.Dir(originPath), targetPath)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if !strings.HasPrefix(rel, "../") {
		rel = "./" + rel
	}
	return rel, true
}
