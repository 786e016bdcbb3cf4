package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/tabula/internal/datasetservice"
	"github.com/starford/tabula/internal/models"
	"github.com/starford/tabula/internal/profile"
	"github.com/starford/tabula/internal/testutil"
)

const salesCSV = "Region,Sales\nnorth,10\nsouth,5\nnorth,7\neast,1\n"

// testEnv sets up a temp upload dir, SQLite store, service, and router.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) (*datasetservice.Service, http.Handler) {
	t.Helper()
	svc, router, _ := testEnvFull(t, authToken != "", authToken, true)
	return svc, router
}

func testEnvFull(t *testing.T, authEnabled bool, authToken string, withAnalyzer bool) (*datasetservice.Service, http.Handler, string) {
	t.Helper()
	dir, files := testutil.TestUploads(t)
	db := testutil.TestStore(t)

	var opts []datasetservice.Option
	if withAnalyzer {
		opts = append(opts, datasetservice.WithAnalyzer(profile.New()))
	}
	svc := datasetservice.New(db, opts...)
	router := NewRouter(svc, files, authEnabled, authToken, nil, 0)
	return svc, router, dir
}

func do(router http.Handler, method, target string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func uploadFile(t *testing.T, router http.Handler, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = io.Copy(part, bytes.NewReader(content))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func mustUpload(t *testing.T, router http.Handler) string {
	t.Helper()
	w := uploadFile(t, router, "sales.csv", []byte(salesCSV))
	if w.Code != http.StatusOK {
		t.Fatalf("upload = %d, body = %s", w.Code, w.Body.String())
	}
	var resp UploadResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode upload: %v", err)
	}
	return resp.DatasetID
}

func TestUploadAndGetDataset(t *testing.T) {
	_, router, dir := testEnvFull(t, false, "", false)

	w := uploadFile(t, router, "sales.csv", []byte(salesCSV))
	if w.Code != http.StatusOK {
		t.Fatalf("upload = %d, body = %s", w.Code, w.Body.String())
	}
	var resp UploadResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Message != msgUploaded {
		t.Errorf("message = %q", resp.Message)
	}
	if resp.Summary.TotalRows != 4 || resp.Summary.TotalColumns != 2 {
		t.Errorf("summary = %+v", resp.Summary)
	}
	if !strings.Contains(w.Body.String(), `"uniqueValues":3`) {
		t.Errorf("body missing per-column unique count: %s", w.Body.String())
	}

	// The source file is kept content-addressed.
	matches, _ := filepath.Glob(filepath.Join(dir, "*.csv"))
	if len(matches) != 1 {
		t.Errorf("stored uploads = %v", matches)
	}

	w = do(router, http.MethodGet, "/data/"+resp.DatasetID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get = %d", w.Code)
	}
	var ds models.Dataset
	_ = json.Unmarshal(w.Body.Bytes(), &ds)
	if ds.Name != "sales" || ds.RowCount != 4 || len(ds.Columns) != 2 {
		t.Errorf("dataset = %+v", ds)
	}
}

func TestUpload_Rejections(t *testing.T) {
	_, router := testEnv(t, "")

	cases := []struct {
		name     string
		filename string
		content  string
		want     int
	}{
		{"unsupported extension", "notes.txt", "a,b\n1,2\n", http.StatusBadRequest},
		{"header only", "empty.csv", "a,b\n", http.StatusBadRequest},
		{"all blank", "blank.csv", "a,b\n,\nnull,\n", http.StatusBadRequest},
		{"corrupt workbook", "broken.xlsx", "this is not a zip archive", http.StatusBadRequest},
		{"corrupt legacy workbook", "broken.xls", "this is not an OLE2 document", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := uploadFile(t, router, tc.filename, []byte(tc.content))
			if w.Code != tc.want {
				t.Errorf("status = %d, want %d, body = %s", w.Code, tc.want, w.Body.String())
			}
		})
	}

	w := do(router, http.MethodGet, "/data", nil)
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("rejected uploads were stored: %s", w.Body.String())
	}
}

func TestUpload_MissingFileField(t *testing.T) {
	_, router := testEnv(t, "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("wrong", "data")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing field = %d, want 400", w.Code)
	}
}

func TestUpload_TooLarge(t *testing.T) {
	_, files := testutil.TestUploads(t)
	svc := datasetservice.New(testutil.TestStore(t))
	router := NewRouter(svc, files, false, "", nil, 64)

	w := uploadFile(t, router, "big.csv", bytes.Repeat([]byte("a,b\n"), 100))
	if w.Code != http.StatusBadRequest {
		t.Errorf("oversized upload = %d, want 400", w.Code)
	}
}

func TestUploadName(t *testing.T) {
	cases := map[string]string{
		"sales.csv":           "sales.csv",
		"../escape.csv":       "escape.csv",
		`C:\Users\me\q1.xlsx`: "q1.xlsx",
	}
	for in, want := range cases {
		got, err := uploadName(in)
		if err != nil || got != want {
			t.Errorf("uploadName(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := uploadName(".."); err == nil {
		t.Error("expected error for ..")
	}
}

func TestListAndDeleteDataset(t *testing.T) {
	_, router := testEnv(t, "")
	id := mustUpload(t, router)

	w := do(router, http.MethodGet, "/data", nil)
	var list []models.Dataset
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list) != 1 || list[0].ID != id {
		t.Fatalf("list = %+v", list)
	}

	w = do(router, http.MethodDelete, "/data/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("delete missing = %d, want 404", w.Code)
	}

	w = do(router, http.MethodDelete, "/data/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete = %d", w.Code)
	}
	var msg MessageResponse
	_ = json.Unmarshal(w.Body.Bytes(), &msg)
	if msg.Message != msgDeleted {
		t.Errorf("message = %q", msg.Message)
	}

	w = do(router, http.MethodGet, "/data/"+id, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
}

func TestGetDatasetData_Pagination(t *testing.T) {
	_, router := testEnv(t, "")

	var b strings.Builder
	b.WriteString("n\n")
	for i := 0; i < 250; i++ {
		fmt.Fprintf(&b, "%d\n", i)
	}
	w := uploadFile(t, router, "big.csv", []byte(b.String()))
	var up UploadResponse
	_ = json.Unmarshal(w.Body.Bytes(), &up)

	w = do(router, http.MethodGet, "/data/"+up.DatasetID+"/data?page=3&limit=100", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("page = %d", w.Code)
	}
	var page struct {
		Data       []map[string]any          `json:"data"`
		Pagination datasetservice.Pagination `json:"pagination"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &page)
	if len(page.Data) != 50 {
		t.Errorf("rows = %d, want 50", len(page.Data))
	}
	want := datasetservice.Pagination{Page: 3, Limit: 100, Total: 250, TotalPages: 3}
	if page.Pagination != want {
		t.Errorf("pagination = %+v, want %+v", page.Pagination, want)
	}

	w = do(router, http.MethodGet, "/data/"+up.DatasetID+"/data?page=x", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad page = %d, want 400", w.Code)
	}
	w = do(router, http.MethodGet, "/data/missing/data", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing dataset = %d, want 404", w.Code)
	}
}

func TestChartEndpoint(t *testing.T) {
	_, router := testEnv(t, "")
	id := mustUpload(t, router)

	w := do(router, http.MethodGet, "/charts/"+id+"/bar?xAxis=Region&yAxis=Sales", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("chart = %d, body = %s", w.Code, w.Body.String())
	}
	var res struct {
		Data []struct {
			X     string  `json:"x"`
			Y     float64 `json:"y"`
			Name  string  `json:"name"`
			Value float64 `json:"value"`
		} `json:"data"`
		Summary struct {
			Total      float64 `json:"total"`
			Categories int     `json:"categories"`
		} `json:"summary"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if len(res.Data) != 3 || res.Data[0].X != "north" || res.Data[0].Y != 17 {
		t.Errorf("data = %+v", res.Data)
	}
	if res.Summary.Total != 23 || res.Summary.Categories != 3 {
		t.Errorf("summary = %+v", res.Summary)
	}

	w = do(router, http.MethodGet, "/charts/"+id+"/pie?filters%5BRegion%5D=NORTH", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("pie = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `{"name":"north","value":2}`) {
		t.Errorf("filtered pie = %s", w.Body.String())
	}

	w = do(router, http.MethodGet, "/charts/"+id+"/scatter", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown chart type = %d, want 400", w.Code)
	}
	w = do(router, http.MethodGet, "/charts/missing/bar", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing dataset = %d, want 404", w.Code)
	}
}

func TestAnalysisEndpoints(t *testing.T) {
	_, router := testEnv(t, "")
	id := mustUpload(t, router)

	body := strings.NewReader(`{"context":{"department":"Sales"}}`)
	w := do(router, http.MethodPost, "/ai-analysis/"+id+"/generate", body)
	if w.Code != http.StatusOK {
		t.Fatalf("generate = %d, body = %s", w.Code, w.Body.String())
	}
	var gen AnalysisResponse
	_ = json.Unmarshal(w.Body.Bytes(), &gen)
	if gen.Message != msgAnalysis || gen.Analysis == nil || len(gen.Analysis.Content.Insights) == 0 {
		t.Fatalf("generate response = %s", w.Body.String())
	}
	analysisID := gen.Analysis.ID
	insightID := gen.Analysis.Content.Insights[0].ID

	w = do(router, http.MethodGet, "/ai-analysis/"+analysisID, nil)
	if w.Code != http.StatusOK {
		t.Errorf("get analysis = %d", w.Code)
	}
	w = do(router, http.MethodGet, "/ai-analysis/dataset/"+id, nil)
	var list []models.Analysis
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list) != 1 {
		t.Errorf("analyses = %d, want 1", len(list))
	}

	w = do(router, http.MethodPut, "/ai-analysis/"+analysisID+"/insight/"+insightID,
		strings.NewReader(`{"content":"How is Sales spread?"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("update insight = %d, body = %s", w.Code, w.Body.String())
	}
	var upd ContentResponse
	_ = json.Unmarshal(w.Body.Bytes(), &upd)
	if upd.Content.Insights[0].ID != insightID || upd.Content.Insights[0].Title != "How is Sales spread?" {
		t.Errorf("updated insight = %+v", upd.Content.Insights[0])
	}

	w = do(router, http.MethodPut, "/ai-analysis/"+analysisID+"/insight/"+insightID, strings.NewReader(`{}`))
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty question = %d, want 400", w.Code)
	}

	before := len(upd.Content.Insights)
	w = do(router, http.MethodDelete, "/ai-analysis/"+analysisID+"/insight/"+insightID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete insight = %d", w.Code)
	}
	var del ContentResponse
	_ = json.Unmarshal(w.Body.Bytes(), &del)
	if len(del.Content.Insights) != before-1 {
		t.Errorf("insights after delete = %d, want %d", len(del.Content.Insights), before-1)
	}

	w = do(router, http.MethodGet, "/ai-analysis/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing analysis = %d, want 404", w.Code)
	}
}

func TestGenerateAnalysis_NoAnalyzer(t *testing.T) {
	_, router, _ := testEnvFull(t, false, "", false)
	id := mustUpload(t, router)

	w := do(router, http.MethodPost, "/ai-analysis/"+id+"/generate", nil)
	if w.Code != http.StatusNotImplemented {
		t.Errorf("generate without analyzer = %d, want 501", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret")
	req := httptest.NewRequest(http.MethodGet, "/data", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret")
	w := do(router, http.MethodGet, "/data", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret")
	req := httptest.NewRequest(http.MethodGet, "/data", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_QueryTokenOnlyForGet(t *testing.T) {
	_, router := testEnv(t, "secret")
	w := do(router, http.MethodGet, "/data?access_token=secret", nil)
	if w.Code != http.StatusOK {
		t.Errorf("GET with query token = %d, want 200", w.Code)
	}
	w = do(router, http.MethodDelete, "/data/x?access_token=secret", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("DELETE with query token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(router, http.MethodGet, "/data", nil)
	if w.Code != http.StatusOK {
		t.Errorf("disabled auth = %d, want 200", w.Code)
	}
}

func TestUpload_AuthProtected(t *testing.T) {
	_, router := testEnv(t, "secret")
	w := uploadFile(t, router, "x.csv", []byte(salesCSV))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("upload no auth = %d, want 401", w.Code)
	}
}

// testEnvWithSSE creates a router with a dummy SSE handler to test auth on /events.
func testEnvWithSSE(t *testing.T, authEnabled bool, token string) http.Handler {
	t.Helper()
	_, files := testutil.TestUploads(t)
	svc := datasetservice.New(testutil.TestStore(t))

	sseHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})
	return NewRouter(svc, files, authEnabled, token, sseHandler, 0)
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	router := testEnvWithSSE(t, true, "tok")
	w := do(router, http.MethodGet, "/events", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE without token = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	router := testEnvWithSSE(t, true, "tok")
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/events?access_token=tok", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}

func TestUploadedSourceKeptOnDisk(t *testing.T) {
	_, router, dir := testEnvFull(t, false, "", false)
	mustUpload(t, router)
	mustUpload(t, router)

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("identical uploads stored %d files, want 1", len(entries))
	}
}
