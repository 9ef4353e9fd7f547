// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the vault's note and plan tools for LLM integration via
// stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/muninn/internal/archive"
	"github.com/starford/muninn/internal/index"
	"github.com/starford/muninn/internal/links"
	"github.com/starford/muninn/internal/moc"
	"github.com/starford/muninn/internal/models"
	"github.com/starford/muninn/internal/records"
	"github.com/starford/muninn/internal/render"
)

// Server wraps the MCP server with all vault tools.
type Server struct {
	mcp      *server.MCPServer
	notes    *records.Service
	plans    *records.Service
	links    *links.Service
	archive  *archive.Service
	moc      *moc.Service
	db       *index.DB
	handlers map[string]toolHandler
}

// New creates a new MCP server with all tools registered. db may be nil;
// the search and backlink tools then report that the index is disabled.
func New(notes, plans *records.Service, lk *links.Service, ar *archive.Service, mc *moc.Service, db *index.DB) *Server {
	s := &Server{
		notes: notes, plans: plans, links: lk, archive: ar, moc: mc, db: db,
		handlers: make(map[string]toolHandler),
	}

	s.mcp = server.NewMCPServer(
		"Muninn",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.registerRecordTools(models.KindNote, notes)
	s.registerRecordTools(models.KindPlan, plans)

	s.addTool(mcp.NewTool("create_link",
		mcp.WithDescription("Create a bidirectional link between two notes. Both notes get a bullet in their Related Notes section."),
		mcp.WithString("sourceNoteId", mcp.Required(), mcp.Description("ID of the source note")),
		mcp.WithString("targetNoteId", mcp.Required(), mcp.Description("ID of the target note")),
		mcp.WithString("linkType", mcp.Description("Relationship type: related, references, builds-on, part-of, example-of (default related)")),
		mcp.WithString("description", mcp.Description("Optional description of the relationship")),
	), s.createLink)

	s.addTool(mcp.NewTool("archive_item",
		mcp.WithDescription("Archive a note or plan: the id gains an archive_ prefix and the record is stamped with the archive time and reason."),
		mcp.WithString("itemType", mcp.Required(), mcp.Description("'note' or 'plan'")),
		mcp.WithString("itemId", mcp.Required(), mcp.Description("ID of the item to archive")),
		mcp.WithString("reason", mcp.Description("Optional reason for archiving")),
		mcp.WithString("keepOriginalPrefix", mcp.Description("Set to 'true' to keep the PARA prefix under the archive_ marker")),
	), s.archiveItem)

	s.addTool(mcp.NewTool("create_moc",
		mcp.WithDescription("Create a Map of Content (MOC) note that organizes related notes by topic."),
		mcp.WithString("topic", mcp.Required(), mcp.Description("Topic of the MOC")),
		mcp.WithString("noteIds", mcp.Required(), mcp.Description("Comma-separated note IDs to include")),
		mcp.WithString("description", mcp.Description("Optional description explaining the purpose of this MOC")),
		mcp.WithString("category", mcp.Description("PARA category for the MOC (default resource)")),
	), s.createMOC)

	s.addTool(mcp.NewTool("search_records",
		mcp.WithDescription("Full-text search through note and plan content and titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchRecords)

	s.addTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all records that reference the specified record id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Record id to find backlinks for")),
	), s.getBacklinks)

	s.addTool(mcp.NewTool("get_record_contract",
		mcp.WithDescription("Returns the canonical record format contract. "+
			"Call this before creating or updating notes or plans to ensure correct structure."),
	), s.getRecordContract)

	// Resource: record format contract.
	s.mcp.AddResource(
		mcp.NewResource("muninn://record-format", "Record Format Contract",
			mcp.WithResourceDescription("Canonical Markdown record format that all notes and plans follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readRecordFormatResource,
	)

	return s
}

// registerRecordTools registers the per-kind CRUD tools (save_note,
// read_note, ... or the plan equivalents).
func (s *Server) registerRecordTools(kind models.Kind, svc *records.Service) {
	noun := string(kind)
	idArg := noun + "Id"

	s.addTool(mcp.NewTool("save_"+noun,
		mcp.WithDescription(fmt.Sprintf("Save a new %s to the vault. Always writes a new file; the id's PARA prefix (project_, area_, resource_, inbox_) sets its category.", noun)),
		mcp.WithString(idArg, mcp.Required(), mcp.Description(fmt.Sprintf("Unique ID for the %s", noun))),
		mcp.WithString("title", mcp.Required(), mcp.Description("Title of the "+noun)),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content of the "+noun)),
	), s.saveRecord(kind, svc, idArg))

	s.addTool(mcp.NewTool("read_"+noun,
		mcp.WithDescription(fmt.Sprintf("Read the most recent version of a %s by ID.", noun)),
		mcp.WithString(idArg, mcp.Required(), mcp.Description(fmt.Sprintf("ID of the %s to read", noun))),
	), s.readRecord(kind, svc, idArg))

	s.addTool(mcp.NewTool("update_"+noun,
		mcp.WithDescription(fmt.Sprintf("Update the most recent version of a %s in place. Omitted fields keep their current value.", noun)),
		mcp.WithString(idArg, mcp.Required(), mcp.Description(fmt.Sprintf("ID of the %s to update", noun))),
		mcp.WithString("title", mcp.Description("New title (omit to keep the current title)")),
		mcp.WithString("content", mcp.Description("New content (omit to keep the current content)")),
	), s.updateRecord(kind, svc, idArg))

	s.addTool(mcp.NewTool("delete_"+noun,
		mcp.WithDescription(fmt.Sprintf("Delete the most recent version of a %s by ID. Older versions are kept.", noun)),
		mcp.WithString(idArg, mcp.Required(), mcp.Description(fmt.Sprintf("ID of the %s to delete", noun))),
	), s.deleteRecord(kind, svc, idArg))

	s.addTool(mcp.NewTool("list_"+noun+"s",
		mcp.WithDescription(fmt.Sprintf("List %ss sorted by creation date (most recent first), with optional filters.", noun)),
		mcp.WithString("filterByTitle", mcp.Description("Case-insensitive title substring filter")),
		mcp.WithString("filterById", mcp.Description("Case-insensitive id substring filter")),
		mcp.WithNumber("maxResults", mcp.Description("Maximum number of results (default 50)")),
	), s.listRecords(kind, svc))
}

// addTool registers the tool with the MCP server and keeps the handler
// addressable by name for direct invocation in tests.
func (s *Server) addTool(tool mcp.Tool, h toolHandler) {
	s.mcp.AddTool(tool, server.ToolHandlerFunc(h))
	s.handlers[tool.Name] = h
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

type toolHandler func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)

func (s *Server) saveRecord(kind models.Kind, svc *records.Service, idArg string) toolHandler {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString(idArg)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		title, err := req.RequireString("title")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		content, err := req.RequireString("content")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		res, err := svc.Save(ctx, id, title, content)
		return mcp.NewToolResultText(render.Save(kind, res, err)), nil
	}
}

func (s *Server) readRecord(kind models.Kind, svc *records.Service, idArg string) toolHandler {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString(idArg)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		res, err := svc.Read(ctx, id)
		return mcp.NewToolResultText(render.Read(kind, id, res, err)), nil
	}
}

func (s *Server) updateRecord(kind models.Kind, svc *records.Service, idArg string) toolHandler {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString(idArg)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		// Presence matters: an omitted field keeps the current value,
		// an empty content clears the body.
		args := req.GetArguments()
		var title, content *string
		if v, ok := args["title"].(string); ok {
			title = &v
		}
		if v, ok := args["content"].(string); ok {
			content = &v
		}
		res, err := svc.Update(ctx, id, title, content)
		return mcp.NewToolResultText(render.Update(kind, id, res, err)), nil
	}
}

func (s *Server) deleteRecord(kind models.Kind, svc *records.Service, idArg string) toolHandler {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString(idArg)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		res, err := svc.Delete(ctx, id)
		return mcp.NewToolResultText(render.Delete(kind, id, res, err)), nil
	}
}

func (s *Server) listRecords(kind models.Kind, svc *records.Service) toolHandler {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		titleFilter, _ := args["filterByTitle"].(string)
		idFilter, _ := args["filterById"].(string)
		maxResults := 0
		if n, ok := args["maxResults"].(float64); ok {
			maxResults = int(n)
		}
		res, err := svc.List(ctx, titleFilter, idFilter, maxResults)
		return mcp.NewToolResultText(render.List(kind, res, err)), nil
	}
}

func (s *Server) createLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sourceID, err := req.RequireString("sourceNoteId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	targetID, err := req.RequireString("targetNoteId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	args := req.GetArguments()
	linkType, _ := args["linkType"].(string)
	description, _ := args["description"].(string)

	res, err := s.links.Create(ctx, sourceID, targetID, linkType, description)
	return mcp.NewToolResultText(render.Link(res, err)), nil
}

func (s *Server) archiveItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	itemType, err := req.RequireString("itemType")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	itemID, err := req.RequireString("itemId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kind, err := models.ParseKind(itemType)
	if err != nil {
		return mcp.NewToolResultText("Error: Invalid item type. Must be 'note' or 'plan'."), nil
	}
	args := req.GetArguments()
	reason, _ := args["reason"].(string)
	keep := args["keepOriginalPrefix"] == "true"

	res, err := s.archive.Archive(ctx, kind, itemID, reason, keep)
	return mcp.NewToolResultText(render.Archive(kind, itemID, res, err)), nil
}

func (s *Server) createMOC(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	topic, err := req.RequireString("topic")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rawIDs, err := req.RequireString("noteIds")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var noteIDs []string
	for _, id := range strings.Split(rawIDs, ",") {
		if id = strings.TrimSpace(id); id != "" {
			noteIDs = append(noteIDs, id)
		}
	}
	args := req.GetArguments()
	description, _ := args["description"].(string)
	category, _ := args["category"].(string)

	res, err := s.moc.Create(ctx, topic, noteIDs, description, category)
	return mcp.NewToolResultText(render.MOC(res, err)), nil
}

func (s *Server) searchRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if s.db == nil {
		return mcp.NewToolResultError("search index is disabled"), nil
	}
	results, err := s.db.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if s.db == nil {
		return mcp.NewToolResultError("search index is disabled"), nil
	}
	bl, err := s.db.Backlinks(id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

func (s *Server) getRecordContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(RecordFormatContract), nil
}

func (s *Server) readRecordFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "muninn://record-format",
			MIMEType: "text/markdown",
			Text:     RecordFormatContract,
		},
	}, nil
}
