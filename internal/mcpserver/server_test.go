package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/tabula/internal/datasetservice"
	"github.com/starford/tabula/internal/profile"
	"github.com/starford/tabula/internal/testutil"
)

const salesCSV = "Region,Sales\nnorth,10\nsouth,5\nnorth,7\neast,1\n"

func testServer(t *testing.T) *Server {
	t.Helper()
	_, files := testutil.TestUploads(t)
	db := testutil.TestStore(t)
	svc := datasetservice.New(db, datasetservice.WithAnalyzer(profile.New()))
	return New(svc, files, "test")
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_datasets":
		result, err = srv.listDatasets(ctx, req)
	case "describe_dataset":
		result, err = srv.describeDataset(ctx, req)
	case "read_rows":
		result, err = srv.readRows(ctx, req)
	case "chart_data":
		result, err = srv.chartData(ctx, req)
	case "generate_analysis":
		result, err = srv.generateAnalysis(ctx, req)
	case "ingest_file":
		result, err = srv.ingestFile(ctx, req)
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

func dataURI(mime, content string) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString([]byte(content))
}

// ingestSales ingests salesCSV and returns the new dataset id.
func ingestSales(t *testing.T, srv *Server) string {
	t.Helper()
	r := callTool(t, srv, "ingest_file", map[string]interface{}{
		"url":      dataURI("text/csv", salesCSV),
		"filename": "sales.csv",
	})
	if r.IsError {
		t.Fatalf("ingest_file: %s", resultText(r))
	}
	var res datasetservice.IngestResult
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatal(err)
	}
	if res.DatasetID == "" || res.Summary.TotalRows != 4 || res.Summary.TotalColumns != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	return res.DatasetID
}

func TestIngestAndDescribe(t *testing.T) {
	srv := testServer(t)
	id := ingestSales(t, srv)

	r := callTool(t, srv, "describe_dataset", map[string]interface{}{"dataset_id": id})
	if r.IsError {
		t.Fatalf("describe_dataset: %s", resultText(r))
	}
	text := resultText(r)
	if !strings.Contains(text, `"name": "sales"`) || !strings.Contains(text, `"Sales"`) {
		t.Errorf("unexpected dataset: %s", text)
	}

	r = callTool(t, srv, "list_datasets", map[string]interface{}{})
	if !strings.Contains(resultText(r), id) {
		t.Errorf("list_datasets missing %s: %s", id, resultText(r))
	}
}

func TestIngestWithoutFilename(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "ingest_file", map[string]interface{}{
		"url": dataURI("text/csv", salesCSV),
	})
	if r.IsError {
		t.Fatalf("ingest_file: %s", resultText(r))
	}
}

func TestIngestRejects(t *testing.T) {
	srv := testServer(t)
	cases := map[string]map[string]interface{}{
		"extension":  {"url": dataURI("text/plain", "a,b\n1,2\n"), "filename": "notes.txt"},
		"magic":      {"url": dataURI("text/csv", salesCSV), "filename": "sales.xlsx"},
		"not base64": {"url": "data:text/csv,a,b", "filename": "x.csv"},
		"scheme":     {"url": "ftp://example.com/x.csv"},
		"loopback":   {"url": "http://127.0.0.1/x.csv"},
		"any v4":     {"url": "http://0.0.0.0/x.csv"},
		"any v6":     {"url": "http://[::]/x.csv"},
		"link-local": {"url": "http://169.254.1.1/x.csv"},
		"metadata":   {"url": "http://169.254.169.254/latest/meta-data"},
		"empty":      {"url": dataURI("text/csv", "Region,Sales\n"), "filename": "empty.csv"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			if r := callTool(t, srv, "ingest_file", args); !r.IsError {
				t.Errorf("expected error, got %s", resultText(r))
			}
		})
	}

	r := callTool(t, srv, "list_datasets", map[string]interface{}{})
	if strings.TrimSpace(resultText(r)) != "[]" {
		t.Errorf("rejected ingests left datasets: %s", resultText(r))
	}
}

func TestReadRows(t *testing.T) {
	srv := testServer(t)
	id := ingestSales(t, srv)

	r := callTool(t, srv, "read_rows", map[string]interface{}{
		"dataset_id": id, "page": float64(2), "limit": float64(3),
	})
	if r.IsError {
		t.Fatalf("read_rows: %s", resultText(r))
	}
	var page datasetservice.Page
	if err := json.Unmarshal([]byte(resultText(r)), &page); err != nil {
		t.Fatal(err)
	}
	if len(page.Data) != 1 || page.Pagination.Total != 4 || page.Pagination.TotalPages != 2 {
		t.Errorf("unexpected page: %+v", page)
	}
}

func TestReadRows_PagePastEnd(t *testing.T) {
	srv := testServer(t)
	id := ingestSales(t, srv)

	r := callTool(t, srv, "read_rows", map[string]interface{}{
		"dataset_id": id, "page": float64(1 << 62), "limit": float64(4),
	})
	if r.IsError {
		t.Fatalf("read_rows: %s", resultText(r))
	}
	var page datasetservice.Page
	if err := json.Unmarshal([]byte(resultText(r)), &page); err != nil {
		t.Fatal(err)
	}
	if len(page.Data) != 0 || page.Pagination.TotalPages != 1 {
		t.Errorf("unexpected page: %+v", page.Pagination)
	}
}

func TestChartData(t *testing.T) {
	srv := testServer(t)
	id := ingestSales(t, srv)

	r := callTool(t, srv, "chart_data", map[string]interface{}{
		"dataset_id": id,
		"chart_type": "bar",
		"filters":    map[string]interface{}{"Region": "NORTH"},
	})
	if r.IsError {
		t.Fatalf("chart_data: %s", resultText(r))
	}
	var res struct {
		Data []struct {
			X string  `json:"x"`
			Y float64 `json:"y"`
		} `json:"data"`
		Summary struct {
			Total float64 `json:"total"`
		} `json:"summary"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Data) != 1 || res.Data[0].X != "north" || res.Summary.Total != 17 {
		t.Errorf("unexpected chart: %s", resultText(r))
	}

	r = callTool(t, srv, "chart_data", map[string]interface{}{"dataset_id": id, "chart_type": "scatter"})
	if !r.IsError {
		t.Error("expected error for unsupported chart type")
	}
}

func TestMissingDataset(t *testing.T) {
	srv := testServer(t)
	for _, tool := range []string{"describe_dataset", "read_rows", "chart_data", "generate_analysis"} {
		r := callTool(t, srv, tool, map[string]interface{}{"dataset_id": "nope", "chart_type": "pie"})
		if !r.IsError {
			t.Errorf("%s: expected error for missing dataset", tool)
		}
	}
}

func TestGenerateAnalysis(t *testing.T) {
	srv := testServer(t)
	id := ingestSales(t, srv)

	r := callTool(t, srv, "generate_analysis", map[string]interface{}{
		"dataset_id": id, "department": "finance",
	})
	if r.IsError {
		t.Fatalf("generate_analysis: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), `"dataset_id": "`+id+`"`) {
		t.Errorf("analysis not tied to dataset: %s", resultText(r))
	}
}

func TestValidateMagicBytes(t *testing.T) {
	if err := validateMagicBytes([]byte("PK\x03\x04rest"), ".xlsx"); err != nil {
		t.Errorf("xlsx: %v", err)
	}
	if err := validateMagicBytes(oleMagic, ".xls"); err != nil {
		t.Errorf("xls: %v", err)
	}
	if err := validateMagicBytes([]byte("PK\x03\x04"), ".xls"); err == nil {
		t.Error("zip accepted as xls")
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"../../etc/passwd.csv":       "passwd.csv",
		`C:\Users\me\Q1 report.xlsx`: "Q1 report.xlsx",
		"a;b.csv":                    "a_b.csv",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
