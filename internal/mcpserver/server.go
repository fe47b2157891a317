// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Raido tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/query"
	"github.com/starford/raido/internal/slipservice"
)

// Server wraps the MCP server with Raido tools.
type Server struct {
	mcp *server.MCPServer
	svc *slipservice.Service
}

// New creates a new MCP server with all Raido tools registered.
func New(svc *slipservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Raido",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_slips",
		mcp.WithDescription("List slip records with an optional type filter and search term. "+
			"Returns the matching slips and a summary over the same set."),
		mcp.WithString("type", mcp.Description("Slip type filter: all, loading, offloading, or fuel")),
		mcp.WithString("query", mcp.Description("Case-insensitive search over trip number, vehicle, driver, and location")),
	), s.listSlips)

	s.mcp.AddTool(mcp.NewTool("add_slip",
		mcp.WithDescription("Create a new slip record."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Slip type: loading, offloading, or fuel")),
		mcp.WithString("trip_number", mcp.Description("Trip reference")),
		mcp.WithString("vehicle_number", mcp.Description("Vehicle registration")),
		mcp.WithString("driver_name", mcp.Description("Driver full name")),
		mcp.WithNumber("amount", mcp.Description("Monetary value")),
		mcp.WithNumber("quantity", mcp.Description("Tons, litres, or units")),
		mcp.WithString("location", mcp.Description("Site or station name")),
		mcp.WithString("date", mcp.Description("Calendar date YYYY-MM-DD; defaults to today")),
		mcp.WithString("notes", mcp.Description("Free text")),
	), s.addSlip)

	s.mcp.AddTool(mcp.NewTool("delete_slip",
		mcp.WithDescription("Delete a slip record by identifier. Deleting an absent record is a no-op."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Slip identifier")),
	), s.deleteSlip)

	s.mcp.AddTool(mcp.NewTool("slip_summary",
		mcp.WithDescription("Aggregate the full collection per slip type, including zero rows."),
	), s.slipSummary)

	s.mcp.AddTool(mcp.NewTool("export_slips",
		mcp.WithDescription("Export the full collection to an .xlsx workbook at the given path. "+
			"The workbook layout is described by the raido://import-format resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Destination file path for the workbook")),
	), s.exportSlips)

	s.mcp.AddTool(mcp.NewTool("import_slips",
		mcp.WithDescription("Import slip records from an .xlsx workbook file. Every row becomes a new "+
			"record; there is no deduplication. Read the format contract first via the "+
			"get_import_contract tool or the raido://import-format resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the workbook file to import")),
	), s.importSlips)

	s.mcp.AddTool(mcp.NewTool("get_import_contract",
		mcp.WithDescription("Returns the canonical Raido workbook format contract. "+
			"Call this before producing workbooks for import_slips."),
	), s.getImportContract)

	// Resource: workbook format contract.
	s.mcp.AddResource(
		mcp.NewResource("raido://import-format", "Workbook Format Contract",
			mcp.WithResourceDescription("Canonical workbook layout for slip import and export."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readImportFormatResource,
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

func (s *Server) listSlips(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f := query.Filter{Type: query.TypeAll}
	if v, err := req.RequireString("type"); err == nil && v != "" {
		f.Type = v
	}
	if v, err := req.RequireString("query"); err == nil {
		f.Search = v
	}
	slips, summary := s.svc.List(ctx, f)
	out, _ := json.MarshalIndent(map[string]any{
		"slips":   slips,
		"summary": summary,
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) addSlip(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawType, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	t := models.SlipType(rawType)
	if !t.Valid() {
		return mcp.NewToolResultError(fmt.Sprintf("unknown slip type: %s (allowed: loading, offloading, fuel)", rawType)), nil
	}

	slip := s.svc.Create(ctx, t)
	if v, err := req.RequireString("trip_number"); err == nil {
		slip.TripNumber = v
	}
	if v, err := req.RequireString("vehicle_number"); err == nil {
		slip.VehicleNumber = v
	}
	if v, err := req.RequireString("driver_name"); err == nil {
		slip.DriverName = v
	}
	if v, err := req.RequireFloat("amount"); err == nil {
		slip.Amount = v
	}
	if v, err := req.RequireFloat("quantity"); err == nil {
		slip.Quantity = v
	}
	if v, err := req.RequireString("location"); err == nil {
		slip.Location = v
	}
	if v, err := req.RequireString("notes"); err == nil {
		slip.Notes = v
	}
	if v, err := req.RequireString("date"); err == nil && v != "" {
		slip.Date = v
	}

	saved, err := s.svc.Update(ctx, slip.ID, slip)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(saved, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) deleteSlip(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.svc.Delete(ctx, id)
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) slipSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rows := s.svc.SummaryByType(ctx)
	out, _ := json.MarshalIndent(rows, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) exportSlips(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	f, err := os.Create(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("create workbook: %v", err)), nil
	}
	defer f.Close()

	if _, err := s.svc.ExportWorkbook(f); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("exported: %s", path)), nil
}

func (s *Server) importSlips(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("open workbook: %v", err)), nil
	}
	defer f.Close()

	n, err := s.svc.ImportWorkbook(f)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("imported %d slips from %s", n, path)), nil
}

func (s *Server) getImportContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ImportFormatContract), nil
}

func (s *Server) readImportFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "raido://import-format",
			MIMEType: "text/markdown",
			Text:     ImportFormatContract,
		},
	}, nil
}
