package mcpserver

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/raido/internal/slipservice"
	"github.com/starford/raido/internal/sliprepo"
)

func testServer(t *testing.T) (*Server, *sliprepo.Repository) {
	t.Helper()
	repo := sliprepo.New()
	srv := New(slipservice.NewService(repo))
	return srv, repo
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go doesn't expose a direct "call tool" test helper, so we call
	// the tool handler functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_slips":
		result, err = srv.listSlips(ctx, req)
	case "add_slip":
		result, err = srv.addSlip(ctx, req)
	case "delete_slip":
		result, err = srv.deleteSlip(ctx, req)
	case "slip_summary":
		result, err = srv.slipSummary(ctx, req)
	case "export_slips":
		result, err = srv.exportSlips(ctx, req)
	case "import_slips":
		result, err = srv.importSlips(ctx, req)
	case "get_import_contract":
		result, err = srv.getImportContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestAddAndListSlips(t *testing.T) {
	srv, repo := testServer(t)

	r := callTool(t, srv, "add_slip", map[string]interface{}{
		"type":           "fuel",
		"trip_number":    "TRP-42",
		"vehicle_number": "GP 123 DEF",
		"driver_name":    "Chris Taylor",
		"amount":         500.0,
		"quantity":       40.0,
		"location":       "Shell Station",
	})
	if r.IsError {
		t.Fatalf("add result = %q", resultText(r))
	}
	if repo.Len() != 1 {
		t.Fatalf("repo len = %d, want 1", repo.Len())
	}

	r = callTool(t, srv, "list_slips", map[string]interface{}{"type": "fuel", "query": "chris"})
	text := resultText(r)
	if !strings.Contains(text, "TRP-42") {
		t.Errorf("list result missing slip: %q", text)
	}
	if !strings.Contains(text, `"total_amount": 500`) {
		t.Errorf("list result missing summary: %q", text)
	}
}

func TestAddSlip_UnknownType(t *testing.T) {
	srv, repo := testServer(t)

	r := callTool(t, srv, "add_slip", map[string]interface{}{"type": "banana"})
	if !r.IsError {
		t.Error("expected error for unknown type")
	}
	if repo.Len() != 0 {
		t.Errorf("repo len = %d, want 0", repo.Len())
	}
}

func TestDeleteSlip(t *testing.T) {
	srv, repo := testServer(t)

	callTool(t, srv, "add_slip", map[string]interface{}{"type": "loading", "trip_number": "TRP-1"})
	id := repo.All()[0].ID

	r := callTool(t, srv, "delete_slip", map[string]interface{}{"id": id})
	if resultText(r) != "deleted: "+id {
		t.Errorf("delete result = %q", resultText(r))
	}
	if repo.Len() != 0 {
		t.Errorf("repo len = %d, want 0", repo.Len())
	}

	// Deleting again is a no-op, not an error.
	r = callTool(t, srv, "delete_slip", map[string]interface{}{"id": id})
	if r.IsError {
		t.Error("second delete should not be an error")
	}
}

func TestSlipSummaryIncludesZeroRows(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "add_slip", map[string]interface{}{"type": "fuel", "amount": 100.0})

	r := callTool(t, srv, "slip_summary", map[string]interface{}{})
	text := resultText(r)
	for _, want := range []string{"loading", "offloading", "fuel"} {
		if !strings.Contains(text, want) {
			t.Errorf("summary missing %s row: %q", want, text)
		}
	}
}

func TestExportThenImportRoundTrip(t *testing.T) {
	srv, repo := testServer(t)
	callTool(t, srv, "add_slip", map[string]interface{}{"type": "offloading", "trip_number": "TRP-9"})

	path := filepath.Join(t.TempDir(), "slips.xlsx")
	r := callTool(t, srv, "export_slips", map[string]interface{}{"path": path})
	if r.IsError {
		t.Fatalf("export result = %q", resultText(r))
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("workbook not written: %v", err)
	}

	r = callTool(t, srv, "import_slips", map[string]interface{}{"path": path})
	if r.IsError {
		t.Fatalf("import result = %q", resultText(r))
	}
	if !strings.Contains(resultText(r), "imported 1 slips") {
		t.Errorf("import result = %q", resultText(r))
	}
	if repo.Len() != 2 {
		t.Errorf("repo len = %d, want 2 (no dedup)", repo.Len())
	}
}

func TestImportSlips_MissingFile(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "import_slips", map[string]interface{}{"path": "/nope/missing.xlsx"})
	if !r.IsError {
		t.Error("expected error for missing workbook")
	}
}

func TestGetImportContract(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_import_contract", map[string]interface{}{})
	if !strings.Contains(resultText(r), "Trip Number") {
		t.Errorf("contract missing column table: %q", resultText(r))
	}
}
