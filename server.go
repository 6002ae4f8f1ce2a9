package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gamma-omg/profile-mcp/docstore"
	"github.com/gamma-omg/profile-mcp/matcher"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	toolSearch  = "search_person_profiles"
	toolGetAll  = "get_all_profiles"
	toolGetByID = "get_profile_by_file"
	toolSummary = "get_data_summary"
)

type profileTools struct {
	log     *slog.Logger
	store   *docstore.Store
	matcher *matcher.Matcher
}

func NewProfileServer(store *docstore.Store, logger *slog.Logger) *server.MCPServer {
	tools := &profileTools{
		log:     logger,
		store:   store,
		matcher: matcher.New(logger),
	}

	srv := server.NewMCPServer("person-profile-server", "0.1.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
	)

	srv.AddTool(mcp.NewTool(toolSearch,
		mcp.WithDescription("Search keys and values of the loaded person profiles, including nested structures"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Keyword or phrase to search for"),
		)), tools.search)

	srv.AddTool(mcp.NewTool(toolGetAll,
		mcp.WithDescription("Return every loaded person profile keyed by document id")), tools.getAll)

	srv.AddTool(mcp.NewTool(toolGetByID,
		mcp.WithDescription("Return one person profile by document id"),
		mcp.WithString("documentId",
			mcp.Required(),
			mcp.Description("Name of the JSON file without the .json extension"),
		)), tools.getByID)

	srv.AddTool(mcp.NewTool(toolSummary,
		mcp.WithDescription("Describe the structure of the loaded profiles")), tools.summary)

	for _, d := range store.List() {
		srv.AddResource(mcp.NewResource(d.Address, d.ID,
			mcp.WithResourceDescription(d.Description),
			mcp.WithMIMEType(d.MimeType),
		), tools.readDocument)
	}

	return srv
}

func (t *profileTools) search(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q, err := request.RequireString("query")
	if err != nil || q == "" {
		return errorResult("missing required parameter 'query'"), nil
	}

	res := t.store.Search(t.matcher, q)
	t.log.Info("search", "query", q, "documents", len(res))

	return jsonResult(res), nil
}

func (t *profileTools) getAll(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(t.store.Contents()), nil
}

func (t *profileTools) getByID(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("documentId")
	if err != nil || id == "" {
		return errorResult("missing required parameter 'documentId'"), nil
	}

	doc, err := t.store.Get(id)
	if err != nil {
		t.log.Warn("profile not found", "id", id)
		return errorResult(err.Error()), nil
	}

	return jsonResult(doc.Content), nil
}

func (t *profileTools) summary(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(t.store.Summary()), nil
}

func (t *profileTools) readDocument(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	doc, err := t.store.GetByAddress(request.Params.URI)
	if err != nil {
		return nil, err
	}

	text, err := encodeJSON(doc.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", doc.ID, err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      doc.Address,
			MIMEType: doc.MimeType,
			Text:     text,
		},
	}, nil
}

func jsonResult(v any) *mcp.CallToolResult {
	text, err := encodeJSON(v)
	if err != nil {
		return errorResult(err.Error())
	}

	return mcp.NewToolResultText(text)
}

func errorResult(msg string) *mcp.CallToolResult {
	text, err := encodeJSON(map[string]string{"error": msg})
	if err != nil {
		text = `{"error": "internal error"}`
	}

	return mcp.NewToolResultError(text)
}

func encodeJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}

	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
