package docstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gamma-omg/profile-mcp/jsonval"
	"github.com/gamma-omg/profile-mcp/matcher"
)

var ErrNotFound = errors.New("document not found")

// Store holds documents in load order. It is never modified after construction and is
// safe for concurrent readers.
type Store struct {
	docs []Document
	byID map[string]int
}

func newStore(docs []Document) *Store {
	s := &Store{
		docs: docs,
		byID: make(map[string]int, len(docs)),
	}
	for i, d := range docs {
		s.byID[d.ID] = i
	}

	return s
}

// NewStore builds a Store from already materialised documents.
func NewStore(docs ...Document) *Store {
	cp := make([]Document, len(docs))
	copy(cp, docs)
	for i := range cp {
		if cp[i].Address == "" {
			cp[i].Address = AddressScheme + cp[i].ID
		}
		if cp[i].MimeType == "" {
			cp[i].MimeType = MimeJSON
		}
	}

	return newStore(cp)
}

func (s *Store) Get(id string) (Document, error) {
	i, ok := s.byID[id]
	if !ok {
		return Document{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return s.docs[i], nil
}

// GetByAddress resolves a document address such as "profile://resume".
func (s *Store) GetByAddress(address string) (Document, error) {
	id, ok := strings.CutPrefix(address, AddressScheme)
	if !ok {
		return Document{}, fmt.Errorf("%w: %s", ErrNotFound, address)
	}

	return s.Get(id)
}

func (s *Store) List() []Document {
	res := make([]Document, len(s.docs))
	copy(res, s.docs)
	return res
}

func (s *Store) Len() int {
	return len(s.docs)
}

// Contents maps every document id to its content.
func (s *Store) Contents() jsonval.Value {
	members := make([]jsonval.Member, 0, len(s.docs))
	for _, d := range s.docs {
		members = append(members, jsonval.Member{Key: d.ID, Value: d.Content})
	}

	return jsonval.NewObject(members...)
}

// Search runs m over every document and keeps those with at least one match.
func (s *Store) Search(m *matcher.Matcher, query string) SearchResult {
	res := make(SearchResult)
	for _, d := range s.docs {
		matches := m.Search(d.Content, query)
		if len(matches) == 0 {
			continue
		}

		res[d.ID] = DocumentMatches{
			DocumentName: d.FileName(),
			DocumentID:   d.ID,
			Matches:      matches,
		}
	}

	return res
}

// Summary describes the shape of every document: top-level keys and, one level down,
// object keys, array lengths or scalar kinds.
func (s *Store) Summary() string {
	var b strings.Builder
	for i, d := range s.docs {
		if i > 0 {
			b.WriteByte('\n')
		}

		fmt.Fprintf(&b, "document: %s", d.FileName())
		if d.Content.Kind() != jsonval.Object {
			fmt.Fprintf(&b, "\n  - type: %s", d.Content.Kind())
			continue
		}

		fmt.Fprintf(&b, "\n  - keys: [%s]", strings.Join(d.Content.Keys(), ", "))
		for _, m := range d.Content.Members() {
			switch m.Value.Kind() {
			case jsonval.Object:
				fmt.Fprintf(&b, "\n    - %s: [%s]", m.Key, strings.Join(m.Value.Keys(), ", "))
			case jsonval.Array:
				fmt.Fprintf(&b, "\n    - %s: array (length %d)", m.Key, m.Value.Len())
			default:
				fmt.Fprintf(&b, "\n    - %s: %s", m.Key, m.Value.Kind())
			}
		}
	}

	return b.String()
}
