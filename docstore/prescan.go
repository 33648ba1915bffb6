package docstore

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.lsp.dev/uri"

	"github.com/alexispurslane/stylable-lsp/stylesheet"
)

// RequestedFiles extracts the -st-from targets of text without parsing it: every
// line that starts with -st-from contributes the value up to the first ';', with
// quotes stripped, resolved against origin. Duplicates are dropped.
func RequestedFiles(text string, origin uri.URI) []uri.URI {
	var out []uri.URI
	seen := make(map[uri.URI]bool)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		rest, ok := strings.CutPrefix(line, stylesheet.DirectiveFrom)
		if !ok {
			continue
		}
		rest = strings.TrimSpace(rest)
		rest, ok = strings.CutPrefix(rest, ":")
		if !ok {
			continue
		}
		if i := strings.IndexByte(rest, ';'); i >= 0 {
			rest = rest[:i]
		}
		target, ok := stylesheet.ResolveImport(origin, rest)
		if !ok || target == origin || seen[target] {
			continue
		}
		seen[target] = true
		out = append(out, target)
	}
	return out
}

// Dependencies returns the -st-from targets of doc. The parsed imports come
// first; the line scan of the text adds what a broken parse lost.
func Dependencies(doc *Document) []uri.URI {
	var out []uri.URI
	seen := map[uri.URI]bool{doc.URI: true}
	if doc.Sheet != nil {
		for _, imp := range doc.Sheet.Imports {
			target, ok := stylesheet.ResolveImport(doc.URI, imp.From)
			if !ok || seen[target] {
				continue
			}
			seen[target] = true
			out = append(out, target)
		}
	}
	for _, target := range RequestedFiles(doc.Text, doc.URI) {
		if !seen[target] {
			seen[target] = true
			out = append(out, target)
		}
	}
	return out
}

// EnsureDependencies makes the transitive -st-from closure of u resident, asking
// the store's missing handler for every absent file and waiting for it. All waits
// share one deadline. Dependencies that never arrive are reported with an error
// wrapping ErrDependencyUnavailable after the rest of the closure was processed.
func EnsureDependencies(ctx context.Context, store *Store, waiter *Waiter, u uri.URI, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	visited := map[uri.URI]bool{u: true}
	queue := []uri.URI{u}
	var errs []error

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		doc, ok := store.Get(current)
		if !ok {
			continue
		}

		var missing []uri.URI
		for _, dep := range Dependencies(doc) {
			if visited[dep] {
				continue
			}
			visited[dep] = true
			queue = append(queue, dep)
			if _, ok := store.Get(dep); !ok {
				missing = append(missing, dep)
			}
		}
		if len(missing) == 0 {
			continue
		}

		for _, dep := range missing {
			slog.Debug("Requesting missing dependency", "uri", dep, "importer", current)
			store.NotifyMissing(ctx, dep)
		}
		err := waiter.Await(ctx, missing, time.Until(deadline))
		switch {
		case err == nil:
		case errors.Is(err, ErrDependencyUnavailable):
			errs = append(errs, err)
		default:
			return err
		}
	}
	return errors.Join(errs...)
}
