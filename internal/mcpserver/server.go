// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Tabula datasets to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/tabula/internal/chart"
	"github.com/starford/tabula/internal/datasetservice"
	"github.com/starford/tabula/internal/storage"
)

const (
	guideURI        = "tabula://dataset-guide"
	defaultRowLimit = 100
	maxRowLimit     = 1000
)

// Server wraps the MCP server with Tabula tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *datasetservice.Service
	files storage.Provider
}

// New creates a new MCP server with all Tabula tools registered.
func New(svc *datasetservice.Service, files storage.Provider, version string) *Server {
	s := &Server{svc: svc, files: files}

	s.mcp = server.NewMCPServer(
		"Tabula",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_datasets",
		mcp.WithDescription("List ingested datasets, newest first, with row and column counts."),
	), s.listDatasets)

	s.mcp.AddTool(mcp.NewTool("describe_dataset",
		mcp.WithDescription("Describe one dataset: metadata plus every column with its inferred type, "+
			"whether it is filterable, and its number of distinct values."),
		mcp.WithString("dataset_id", mcp.Required(), mcp.Description("Dataset id from list_datasets")),
	), s.describeDataset)

	s.mcp.AddTool(mcp.NewTool("read_rows",
		mcp.WithDescription("Read one page of dataset rows in file order."),
		mcp.WithString("dataset_id", mcp.Required(), mcp.Description("Dataset id")),
		mcp.WithNumber("page", mcp.Description("1-based page number (default 1)")),
		mcp.WithNumber("limit", mcp.Description("Rows per page (default 100, max 1000)")),
	), s.readRows)

	s.mcp.AddTool(mcp.NewTool("chart_data",
		mcp.WithDescription("Aggregate a dataset for a chart. Bar, line and area charts sum yAxis per "+
			"xAxis category (top 20); pie charts count rows per category (top 10). Axes are picked "+
			"automatically when omitted. Read "+guideURI+" for the exact rules."),
		mcp.WithString("dataset_id", mcp.Required(), mcp.Description("Dataset id")),
		mcp.WithString("chart_type", mcp.Required(), mcp.Enum("bar", "line", "area", "pie")),
		mcp.WithString("x_axis", mcp.Description("Category column")),
		mcp.WithString("y_axis", mcp.Description("Value column")),
		mcp.WithObject("filters", mcp.Description("Column to substring filter, case-insensitive")),
	), s.chartData)

	s.mcp.AddTool(mcp.NewTool("generate_analysis",
		mcp.WithDescription("Generate and store an analysis report over the first 100 rows of a dataset."),
		mcp.WithString("dataset_id", mcp.Required(), mcp.Description("Dataset id")),
		mcp.WithString("department", mcp.Description("Audience of the report")),
	), s.generateAnalysis)

	s.mcp.AddTool(mcp.NewTool("ingest_file",
		mcp.WithDescription("Ingest a CSV, XLSX or XLS file from an http(s) URL or a base64 data URI "+
			"and return the new dataset id with its column summary."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:<mime>;base64,<data>")),
		mcp.WithString("filename", mcp.Description("File name including extension; derived from the URL when omitted")),
	), s.ingestFile)

	s.mcp.AddResource(
		mcp.NewResource(guideURI, "Dataset Guide",
			mcp.WithResourceDescription("How Tabula cleans columns, infers types and aggregates charts."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readGuideResource,
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

func (s *Server) listDatasets(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := s.svc.GetAllDatasets(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(list)
}

func (s *Server) describeDataset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("dataset_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ds, err := s.svc.GetDatasetByID(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("dataset %s: %v", id, err)), nil
	}
	return jsonResult(ds)
}

func (s *Server) readRows(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("dataset_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page := req.GetInt("page", 1)
	limit := min(req.GetInt("limit", defaultRowLimit), maxRowLimit)
	if limit <= 0 {
		limit = defaultRowLimit
	}
	p, err := s.svc.GetDatasetPage(ctx, id, page, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("dataset %s: %v", id, err)), nil
	}
	return jsonResult(p)
}

func (s *Server) chartData(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("dataset_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kind, err := req.RequireString("chart_type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !chart.Kind(kind).Valid() {
		return mcp.NewToolResultError(fmt.Sprintf("unsupported chart type: %s", kind)), nil
	}

	cr := datasetservice.ChartRequest{
		Kind:    chart.Kind(kind),
		XAxis:   req.GetString("x_axis", ""),
		YAxis:   req.GetString("y_axis", ""),
		Filters: map[string]string{},
	}
	if raw, ok := req.GetArguments()["filters"].(map[string]any); ok {
		for col, v := range raw {
			cr.Filters[col] = fmt.Sprint(v)
		}
	}
	res, err := s.svc.ChartData(ctx, id, cr)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) generateAnalysis(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("dataset_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ar := datasetservice.AnalysisRequest{}
	ar.Context.Department = req.GetString("department", "")
	a, err := s.svc.GenerateAnalysis(ctx, id, ar)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(a)
}

func (s *Server) readGuideResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      guideURI,
			MIMEType: "text/markdown",
			Text:     DatasetGuide,
		},
	}, nil
}
