package docstore

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gamma-omg/profile-mcp/jsonval"
	"github.com/gamma-omg/profile-mcp/readers"
)

type FileReader interface {
	CanRead(path string) bool
	Read(path string) (jsonval.Value, error)
}

// Registry loads a directory of documents into a Store.
type Registry struct {
	log             *slog.Logger
	root            string
	seedPlaceholder bool
	readers         []FileReader
}

func NewRegistry(log *slog.Logger, root string, seedPlaceholder bool) *Registry {
	return &Registry{
		log:             log,
		root:            root,
		seedPlaceholder: seedPlaceholder,
		readers:         []FileReader{&readers.JSONFileReader{}},
	}
}

func (dr *Registry) RegisterReader(readers ...FileReader) {
	dr.readers = append(dr.readers, readers...)
}

// Load reads every supported file directly under the root. Files that fail to parse
// are logged and skipped, even when none survives. A missing root or one without
// supported files yields the placeholder set when seeding is enabled and an empty store
// otherwise.
func (dr *Registry) Load() (*Store, error) {
	entries, err := os.ReadDir(dr.root)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read document root %s: %w", dr.root, err)
		}

		dr.log.Warn("document root does not exist", "root", dr.root)
		return dr.fallback(), nil
	}

	var docs []Document
	candidates := 0
	seen := make(map[string]struct{})
	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		path := filepath.Join(dr.root, e.Name())
		reader := dr.findReader(path)
		if reader == nil {
			dr.log.Debug("unsupported file", "file", e.Name())
			continue
		}
		candidates++

		id := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if _, ok := seen[id]; ok {
			dr.log.Warn("duplicate document id, file skipped", "file", e.Name(), "id", id)
			continue
		}

		content, err := reader.Read(path)
		if err != nil {
			dr.log.Error("failed to load document", "file", e.Name(), "error", err)
			continue
		}

		seen[id] = struct{}{}
		docs = append(docs, newDocument(id, content, fmt.Sprintf("Profile document %s", e.Name())))
		dr.log.Info("document loaded", "file", e.Name(), "keys", topLevelKeys(content))
	}

	if candidates == 0 {
		dr.log.Warn("no JSON documents found", "root", dr.root)
		return dr.fallback(), nil
	}
	if len(docs) == 0 {
		dr.log.Error("no document could be loaded", "root", dr.root, "files", candidates)
	}

	return newStore(docs), nil
}

func (dr *Registry) fallback() *Store {
	if !dr.seedPlaceholder {
		return newStore(nil)
	}

	docs := placeholderDocuments()
	for _, d := range docs {
		dr.log.Warn("serving placeholder document", "id", d.ID)
	}

	return newStore(docs)
}

func (dr *Registry) findReader(path string) FileReader {
	for _, r := range dr.readers {
		if r.CanRead(path) {
			return r
		}
	}

	return nil
}

func newDocument(id string, content jsonval.Value, description string) Document {
	return Document{
		ID:          id,
		Address:     AddressScheme + id,
		Content:     content,
		Description: description,
		MimeType:    MimeJSON,
	}
}

func topLevelKeys(v jsonval.Value) any {
	if v.Kind() != jsonval.Object {
		return "non-object " + v.Kind().String()
	}

	return v.Keys()
}
