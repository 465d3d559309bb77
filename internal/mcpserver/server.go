// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the site collections as tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/sitedesk/internal/editor"
	"github.com/starford/sitedesk/internal/schema"
)

const kindsURI = "sitedesk://kinds"

// Server wraps the MCP server with the collection tools.
type Server struct {
	mcp    *server.MCPServer
	svc    *editor.Service
	fetch  *fetcher
	logger *slog.Logger
}

// New creates a new MCP server with all tools registered.
func New(svc *editor.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{svc: svc, fetch: newFetcher(), logger: logger.With(slog.String("component", "mcp"))}

	s.mcp = server.NewMCPServer(
		"sitedesk",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_kinds",
		mcp.WithDescription("List the content kinds and whether each collection file exists."),
	), s.listKinds)

	s.mcp.AddTool(mcp.NewTool("get_kind_contract",
		mcp.WithDescription("Returns how records are edited and the field contract of every kind. "+
			"Call this before saving records. With a kind, returns that kind's contract as JSON."),
		mcp.WithString("kind", mcp.Description("Optional kind (topics, music, movies, discography, live)")),
	), s.getKindContract)

	s.mcp.AddTool(mcp.NewTool("list_records",
		mcp.WithDescription("List the records of a collection in file order (id, title, date)."),
		mcp.WithString("kind", mcp.Required(), mcp.Description("Content kind")),
	), s.listRecords)

	s.mcp.AddTool(mcp.NewTool("get_record",
		mcp.WithDescription("Read one record: its editable fields and the stored JSON."),
		mcp.WithString("kind", mcp.Required(), mcp.Description("Content kind")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Record id")),
	), s.getRecord)

	s.mcp.AddTool(mcp.NewTool("save_record",
		mcp.WithDescription("Create or update one record from flat fields. "+
			"Read the contract first via get_kind_contract or the "+kindsURI+" resource."),
		mcp.WithString("kind", mcp.Required(), mcp.Description("Content kind")),
		mcp.WithObject("fields", mcp.Required(), mcp.Description("Field values; id is required")),
		mcp.WithString("raw", mcp.Description("Optional JSON object merged into the record")),
		mcp.WithBoolean("is_new", mcp.Description("true to create, false (default) to update")),
	), s.saveRecord)

	s.mcp.AddTool(mcp.NewTool("delete_record",
		mcp.WithDescription("Delete one record from a collection."),
		mcp.WithString("kind", mcp.Required(), mcp.Description("Content kind")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Record id")),
	), s.deleteRecord)

	s.mcp.AddTool(mcp.NewTool("search_records",
		mcp.WithDescription("Full-text search across every collection's titles and bodies."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Max results (default 20)")),
	), s.searchRecords)

	s.mcp.AddTool(mcp.NewTool("import_asset",
		mcp.WithDescription("Import an image from an http(s) URL or a base64 data URI into the "+
			"site's images directory. Returns the repo-relative path to store in a cover field."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:image/...;base64,... URI")),
		mcp.WithString("filename", mcp.Description("Optional file name (e.g. jacket.png)")),
	), s.importAsset)

	s.mcp.AddResource(
		mcp.NewResource(kindsURI, "Kind Contracts",
			mcp.WithResourceDescription("How records are edited and the field contract of every kind."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readKindsResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// decodeArg converts an object (or JSON string) argument into target.
func decodeArg(req mcp.CallToolRequest, key string, target any) error {
	v, ok := req.GetArguments()[key]
	if !ok || v == nil {
		return fmt.Errorf("required argument %q not found", key)
	}
	var raw []byte
	if s, isString := v.(string); isString {
		raw = []byte(s)
	} else {
		var err error
		if raw, err = json.Marshal(v); err != nil {
			return fmt.Errorf("argument %q: %w", key, err)
		}
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("argument %q is not a valid object: %w", key, err)
	}
	return nil
}

func (s *Server) listKinds(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kinds, err := s.svc.Kinds(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(kinds)
}

func (s *Server) getKindContract(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind := req.GetString("kind", "")
	if kind == "" {
		return mcp.NewToolResultText(Guide()), nil
	}
	spec, err := schema.Lookup(kind)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(spec.Contract())
}

type recordSummary struct {
	Position int    `json:"position"`
	ID       string `json:"id"`
	Title    string `json:"title,omitempty"`
	Date     string `json:"date,omitempty"`
}

func (s *Server) listRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := req.RequireString("kind")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c, err := s.svc.ListCollection(ctx, kind)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out := make([]recordSummary, 0, len(c.Records))
	for i, r := range c.Records {
		out = append(out, recordSummary{Position: i, ID: r.ID(), Title: r.Text(schema.KeyTitle), Date: r.Text(schema.KeyDate)})
	}
	return jsonResult(out)
}

func (s *Server) getRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := req.RequireString("kind")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.GetRecord(ctx, kind, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(d)
}

func (s *Server) saveRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := req.RequireString("kind")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var f schema.Fields
	if err := decodeArg(req, "fields", &f); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.SaveRecord(ctx, kind, editor.SaveRequest{
		Fields: f,
		Raw:    req.GetString("raw", ""),
		IsNew:  req.GetBool("is_new", false),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(d)
}

func (s *Server) deleteRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := req.RequireString("kind")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.DeleteRecord(ctx, kind, id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s/%s", kind, id)), nil
}

func (s *Server) searchRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, req.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) readKindsResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      kindsURI,
			MIMEType: "text/markdown",
			Text:     Guide(),
		},
	}, nil
}
