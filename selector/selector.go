// Package selector picks the parts of a profile that a conversational question is
// about, using a fixed vocabulary rather than free-text search.
package selector

import (
	"strings"

	"github.com/gamma-omg/profile-mcp/jsonval"
	"golang.org/x/text/cases"
)

type Selector struct {
	vocab Vocabulary
}

func New(vocab Vocabulary) *Selector {
	return &Selector{vocab: vocab}
}

// Table resolves the vocabulary against profile. Fixed terms come first, followed by
// the names found in the configured lists; a later entry with the same term replaces
// the earlier value but keeps its position. Terms whose field is absent map to null.
func (s *Selector) Table(profile jsonval.Value) []jsonval.Member {
	var table []jsonval.Member
	put := func(term string, v jsonval.Value) {
		for i := range table {
			if table[i].Key == term {
				table[i].Value = v
				return
			}
		}
		table = append(table, jsonval.Member{Key: term, Value: v})
	}

	for _, t := range s.vocab.Terms {
		if t.Term == "" {
			continue
		}

		v, ok := profile.Lookup(t.Path...)
		if !ok {
			v = jsonval.NewNull()
		}
		put(t.Term, v)
	}

	for _, n := range s.vocab.Named {
		list, ok := profile.Get(n.Field)
		if !ok || list.Kind() != jsonval.Array {
			continue
		}

		seen := make(map[string]struct{})
		for _, rec := range list.Items() {
			name, ok := rec.Get(n.NameKey)
			if !ok || name.Kind() != jsonval.String || name.Str() == "" {
				continue
			}
			if _, dup := seen[name.Str()]; dup {
				continue
			}

			seen[name.Str()] = struct{}{}
			put(name.Str(), rec)
		}
	}

	return table
}

// Select returns an object keyed by every vocabulary term contained in query. When no
// term occurs the whole profile is returned, so the caller always has context.
func (s *Selector) Select(profile jsonval.Value, query string) jsonval.Value {
	fold := cases.Fold()
	q := fold.String(query)

	var hits []jsonval.Member
	for _, entry := range s.Table(profile) {
		if strings.Contains(q, fold.String(entry.Key)) {
			hits = append(hits, entry)
		}
	}

	if len(hits) == 0 {
		return profile
	}

	return jsonval.NewObject(hits...)
}
