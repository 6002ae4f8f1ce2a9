package docstore

import (
	"github.com/gamma-omg/profile-mcp/jsonval"
	"github.com/gamma-omg/profile-mcp/matcher"
)

const (
	MimeJSON      = "application/json"
	AddressScheme = "profile://"
)

type Document struct {
	ID          string        `json:"id"`
	Address     string        `json:"address"`
	Content     jsonval.Value `json:"content"`
	Description string        `json:"description"`
	MimeType    string        `json:"mimeType"`
}

// FileName is the name the document was loaded from.
func (d Document) FileName() string {
	return d.ID + ".json"
}

type DocumentMatches struct {
	DocumentName string          `json:"documentName"`
	DocumentID   string          `json:"documentId"`
	Matches      matcher.Matches `json:"matches"`
}

// SearchResult is keyed by document id. Documents without matches are absent.
type SearchResult map[string]DocumentMatches
