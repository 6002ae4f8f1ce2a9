// Package matcher finds every node of a JSON tree whose key or rendered value contains
// a query string, case-insensitively.
package matcher

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/gamma-omg/profile-mcp/jsonval"
	"golang.org/x/text/cases"
)

// RootPath addresses a document whose root is itself a matching scalar.
const RootPath = "root"

// Matches maps a structural path (".key" for object descent, "[i]" for array descent,
// with no leading dot at the root, and ["k.e.y"] for keys containing path syntax) to
// the node found there.
type Matches map[string]jsonval.Value

type Matcher struct {
	log *slog.Logger
}

// New returns a Matcher that reports each hit at debug level. A nil logger disables
// reporting.
func New(log *slog.Logger) *Matcher {
	return &Matcher{log: log}
}

// Search runs a Matcher without diagnostics.
func Search(root jsonval.Value, query string) Matches {
	return (&Matcher{}).Search(root, query)
}

// Search walks root depth-first. Hits do not stop the descent, so an ancestor and its
// descendants can both be reported. The result is never nil.
func (m *Matcher) Search(root jsonval.Value, query string) Matches {
	w := walker{
		log:  m.log,
		fold: cases.Fold(),
		res:  make(Matches),
	}
	w.query = w.fold.String(query)

	if root.IsScalar() {
		if w.contains(root.Render()) {
			w.record(RootPath, root, "value")
		}
		return w.res
	}

	w.walk(root, "")
	return w.res
}

type walker struct {
	log   *slog.Logger
	fold  cases.Caser
	query string
	res   Matches
}

func (w *walker) walk(node jsonval.Value, path string) {
	switch node.Kind() {
	case jsonval.Object:
		for _, m := range node.Members() {
			p := keyPath(path, m.Key)

			if w.contains(m.Key) {
				w.record(p, m.Value, "key")
			}
			if m.Value.IsScalar() && w.contains(m.Value.Render()) {
				w.record(p, m.Value, "value")
			}

			w.walk(m.Value, p)
		}
	case jsonval.Array:
		for i, item := range node.Items() {
			p := path + "[" + strconv.Itoa(i) + "]"
			if w.contains(item.Render()) {
				w.record(p, item, "item")
			}

			w.walk(item, p)
		}
	}
}

// keyPath appends an object key to path. Keys that contain path syntax are written as
// a quoted segment, ["a.b"], so that every path names a single node.
func keyPath(path, key string) string {
	if strings.ContainsAny(key, ".[]") {
		return path + "[" + strconv.Quote(key) + "]"
	}
	if path == "" {
		return key
	}

	return path + "." + key
}

func (w *walker) contains(text string) bool {
	return strings.Contains(w.fold.String(text), w.query)
}

func (w *walker) record(path string, v jsonval.Value, on string) {
	w.res[path] = v
	if w.log != nil {
		w.log.Debug("match", "path", path, "on", on)
	}
}
