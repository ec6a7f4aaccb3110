package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/dharaneesh71/Financeflow-ai/internal/analysis"
	"github.com/dharaneesh71/Financeflow-ai/internal/docai"
	"github.com/dharaneesh71/Financeflow-ai/internal/docstore"
	"github.com/dharaneesh71/Financeflow-ai/internal/gateway/handler"
	"github.com/dharaneesh71/Financeflow-ai/internal/gateway/run"
	"github.com/dharaneesh71/Financeflow-ai/internal/gateway/server"
	"github.com/dharaneesh71/Financeflow-ai/internal/llm"
	"github.com/dharaneesh71/Financeflow-ai/internal/metric"
	"github.com/dharaneesh71/Financeflow-ai/internal/pipeline"
	"github.com/dharaneesh71/Financeflow-ai/internal/warehouse"
)

type testGateway struct {
	srv  *httptest.Server
	docs docstore.Store
	runs *run.Registry
}

// newTestGateway assembles the full mux over the offline stack: fake LLM,
// mock parser, memory warehouse, file staging.
func newTestGateway(t *testing.T) *testGateway {
	t.Helper()
	docs, err := docstore.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	exec := warehouse.NewMemory()
	client := llm.NewFakeClient()
	machine := pipeline.NewMachine(pipeline.Deps{
		LLM:    client,
		Docs:   docs,
		Parser: docai.MockParser{},
		Exec:   exec,
		Log:    zerolog.Nop(),
	})
	agent := analysis.New(client, exec, "FINANCIAL_DATA", "PUBLIC", zerolog.Nop())
	runs := run.NewRegistry()

	api := handler.New(docs, machine, agent, runs, "FINANCIAL_DATA", "PUBLIC", zerolog.Nop())
	srv := httptest.NewServer(server.NewMux(api))
	t.Cleanup(srv.Close)
	return &testGateway{srv: srv, docs: docs, runs: runs}
}

func (g *testGateway) postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(g.srv.URL+path, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s error = %v", path, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, into any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestRootAndHealth(t *testing.T) {
	g := newTestGateway(t)

	resp, err := http.Get(g.srv.URL + "/")
	if err != nil {
		t.Fatalf("GET / error = %v", err)
	}
	var banner map[string]string
	decodeBody(t, resp, &banner)
	if banner["status"] != "running" || banner["service"] != "FinanceFlow AI" {
		t.Fatalf("banner = %v", banner)
	}

	resp, err = http.Get(g.srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health error = %v", err)
	}
	var health map[string]string
	decodeBody(t, resp, &health)
	if health["status"] != "healthy" {
		t.Fatalf("health = %v", health)
	}

	resp, err = http.Get(g.srv.URL + "/nope")
	if err != nil {
		t.Fatalf("GET /nope error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("GET /nope status = %d, want 404", resp.StatusCode)
	}
}

func TestUploadStagesDocuments(t *testing.T) {
	g := newTestGateway(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range map[string]string{
		"Q3 Balance Sheet.pdf": "%PDF-1.4 balance",
		"income.pdf":           "%PDF-1.4 income",
	} {
		fw, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("CreateFormFile(%s) error = %v", name, err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	mw.Close()

	resp, err := http.Post(g.srv.URL+"/api/upload", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST /api/upload error = %v", err)
	}
	var out struct {
		Files []struct {
			Key  string `json:"key"`
			Name string `json:"name"`
			Size int64  `json:"size"`
		} `json:"files"`
		Count int `json:"count"`
	}
	decodeBody(t, resp, &out)

	if resp.StatusCode != http.StatusOK || out.Count != 2 || len(out.Files) != 2 {
		t.Fatalf("status/count/files = %d/%d/%d", resp.StatusCode, out.Count, len(out.Files))
	}
	for _, f := range out.Files {
		want := docstore.SafeKey(f.Name)
		if f.Key != want {
			t.Fatalf("key for %q = %q, want %q", f.Name, f.Key, want)
		}
		staged, err := g.docs.Get(context.Background(), f.Key)
		if err != nil {
			t.Fatalf("staged object %q missing: %v", f.Key, err)
		}
		if int64(len(staged)) != f.Size {
			t.Fatalf("staged size = %d, reported %d", len(staged), f.Size)
		}
	}
}

func TestUploadRejectsEmptyForm(t *testing.T) {
	g := newTestGateway(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.Close()

	resp, err := http.Post(g.srv.URL+"/api/upload", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST /api/upload error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

type processOut struct {
	RunID            string                      `json:"run_id"`
	MarkdownPaths    []string                    `json:"markdown_paths"`
	SuggestedMetrics metric.Set                  `json:"suggested_metrics"`
	Reasoning        string                      `json:"reasoning"`
	ExtractedMetrics map[string]metric.Values    `json:"extracted_metrics_by_document"`
	Schema           *json.RawMessage            `json:"schema"`
	Deployment       *warehouse.DeploymentResult `json:"deployment"`
	Error            string                      `json:"error"`
	Success          bool                        `json:"success"`
}

func stageDocument(t *testing.T, g *testGateway, key, content string) {
	t.Helper()
	if err := g.docs.Put(context.Background(), key, []byte(content)); err != nil {
		t.Fatalf("stage %q: %v", key, err)
	}
}

func TestProcessSuggestBranch(t *testing.T) {
	g := newTestGateway(t)
	stageDocument(t, g, "balance-sheet.pdf", "%PDF-1.4 balance")

	resp := g.postJSON(t, "/api/process", map[string]any{
		"file_paths":  []string{"balance-sheet.pdf"},
		"user_prompt": "focus on liquidity",
	})
	var out processOut
	decodeBody(t, resp, &out)

	if resp.StatusCode != http.StatusOK || !out.Success {
		t.Fatalf("status/success = %d/%v, error = %q", resp.StatusCode, out.Success, out.Error)
	}
	if out.RunID == "" {
		t.Fatalf("run_id missing from response")
	}
	if len(out.SuggestedMetrics) != 5 || out.SuggestedMetrics[0].Name != "total_assets" {
		t.Fatalf("suggested_metrics = %+v", out.SuggestedMetrics)
	}
	if out.Reasoning == "" {
		t.Fatalf("reasoning missing from suggest response")
	}
	if len(out.MarkdownPaths) != 1 || out.MarkdownPaths[0] != "balance-sheet.md" {
		t.Fatalf("markdown_paths = %v", out.MarkdownPaths)
	}
	if out.Schema != nil || out.Deployment != nil {
		t.Fatalf("suggest response carries schema/deployment")
	}
}

func TestProcessExtractBranch(t *testing.T) {
	g := newTestGateway(t)
	stageDocument(t, g, "balance-sheet.pdf", "%PDF-1.4 balance")

	resp := g.postJSON(t, "/api/process", map[string]any{
		"file_paths": []string{"balance-sheet.pdf"},
		"selected_metrics": []map[string]string{
			{"name": "total_assets", "type": "float", "description": "Total assets"},
			{"name": "revenue", "type": "float", "description": "Revenue"},
		},
	})
	var out processOut
	decodeBody(t, resp, &out)

	if resp.StatusCode != http.StatusOK || !out.Success {
		t.Fatalf("status/success = %d/%v, error = %q", resp.StatusCode, out.Success, out.Error)
	}
	vals, ok := out.ExtractedMetrics["balance-sheet.pdf"]
	if !ok {
		t.Fatalf("extracted_metrics_by_document = %v", out.ExtractedMetrics)
	}
	if got := vals["total_assets"]; got != 203200.00 {
		t.Fatalf("total_assets = %v, want 203200", got)
	}
	if out.Schema == nil {
		t.Fatalf("schema missing from process response")
	}
	if out.Deployment == nil || out.Deployment.RowsLoaded != 1 || out.Deployment.TablesCreated != 1 {
		t.Fatalf("deployment = %+v", out.Deployment)
	}
	if out.Deployment.Status != warehouse.StatusSuccess {
		t.Fatalf("deployment status = %q, want %q", out.Deployment.Status, warehouse.StatusSuccess)
	}
}

func TestProcessValidation(t *testing.T) {
	g := newTestGateway(t)

	resp := g.postJSON(t, "/api/process", map[string]any{"file_paths": []string{}})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty file_paths status = %d, want 400", resp.StatusCode)
	}

	resp = g.postJSON(t, "/api/process", map[string]any{
		"file_paths": []string{"doc.pdf"},
		"selected_metrics": []map[string]string{
			{"name": "revenue", "type": "float"},
			{"name": "Revenue", "type": "float"},
		},
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("duplicate metric status = %d, want 400", resp.StatusCode)
	}

	if _, _, err := g.runs.Begin("taken"); err != nil {
		t.Fatalf("Begin(taken) error = %v", err)
	}
	resp = g.postJSON(t, "/api/process", map[string]any{
		"run_id":     "taken",
		"file_paths": []string{"doc.pdf"},
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate run_id status = %d, want 409", resp.StatusCode)
	}
}

func TestProcessPublishesStepEvents(t *testing.T) {
	g := newTestGateway(t)
	stageDocument(t, g, "balance-sheet.pdf", "%PDF-1.4 balance")

	resp := g.postJSON(t, "/api/process", map[string]any{
		"run_id":     "evt-run",
		"file_paths": []string{"balance-sheet.pdf"},
		"selected_metrics": []map[string]string{
			{"name": "total_assets", "type": "float"},
		},
	})
	var out processOut
	decodeBody(t, resp, &out)
	if out.RunID != "evt-run" {
		t.Fatalf("run_id = %q, want evt-run", out.RunID)
	}

	ch, ok := g.runs.Events("evt-run")
	if !ok {
		t.Fatalf("events gone right after the run finished")
	}
	var events []pipeline.Event
	for ev := range ch {
		events = append(events, ev)
	}
	var steps []string
	for _, ev := range events {
		if ev.Type == pipeline.EventStep {
			steps = append(steps, ev.Step)
		}
	}
	wantSteps := []string{"extract_metrics", "build_schema", "deploy_schema", "insert_rows"}
	if fmt.Sprint(steps) != fmt.Sprint(wantSteps) {
		t.Fatalf("steps = %v, want %v", steps, wantSteps)
	}
	last := events[len(events)-1]
	if last.Type != pipeline.EventComplete {
		t.Fatalf("last event = %+v, want complete", last)
	}

	rec, ok := g.runs.Get("evt-run")
	if !ok || rec.Status != run.StatusComplete {
		t.Fatalf("record = %+v, %v, want complete", rec, ok)
	}
}

func TestProcessHaltReportsStateError(t *testing.T) {
	g := newTestGateway(t)
	// Nothing staged: the parse read fails and the suggest batch halts.

	resp := g.postJSON(t, "/api/process", map[string]any{
		"file_paths": []string{"missing.pdf"},
	})
	var out processOut
	decodeBody(t, resp, &out)

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	if out.Success || out.Error == "" {
		t.Fatalf("halt response = %+v, want success=false with error", out)
	}
	if rec, ok := g.runs.Get(out.RunID); !ok || rec.Status != run.StatusFailed {
		t.Fatalf("record = %+v, %v, want failed", rec, ok)
	}
}

func TestAnalyzeEndpoint(t *testing.T) {
	g := newTestGateway(t)
	stageDocument(t, g, "balance-sheet.pdf", "%PDF-1.4 balance")

	// Deploy the metric table first so the agent has catalog metadata.
	resp := g.postJSON(t, "/api/process", map[string]any{
		"file_paths": []string{"balance-sheet.pdf"},
		"selected_metrics": []map[string]string{
			{"name": "total_assets", "type": "float"},
		},
	})
	resp.Body.Close()

	resp = g.postJSON(t, "/api/analyze", map[string]any{
		"query": "How are total assets trending?",
		"conversation_history": []map[string]string{
			{"role": "user", "content": "hi"},
			{"role": "assistant", "content": "hello"},
		},
	})
	var out analysis.Response
	decodeBody(t, resp, &out)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if out.Error != "" {
		t.Fatalf("analysis error = %q", out.Error)
	}
	if out.Summary == "" || len(out.Insights) == 0 {
		t.Fatalf("summary/insights = %q/%v", out.Summary, out.Insights)
	}
	found := false
	for _, c := range out.AvailableColumns {
		if c == "TOTAL_ASSETS" {
			found = true
		}
	}
	if !found {
		t.Fatalf("available_columns = %v, want TOTAL_ASSETS listed", out.AvailableColumns)
	}
}

func TestAnalyzeValidation(t *testing.T) {
	g := newTestGateway(t)

	resp := g.postJSON(t, "/api/analyze", map[string]any{"query": "   "})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("blank query status = %d, want 400", resp.StatusCode)
	}
}

func TestStarSchemaPreview(t *testing.T) {
	g := newTestGateway(t)

	resp, err := http.Get(g.srv.URL + "/api/schema/star")
	if err != nil {
		t.Fatalf("GET /api/schema/star error = %v", err)
	}
	var out struct {
		Design struct {
			Tables []struct {
				Name string `json:"name"`
			} `json:"tables"`
		} `json:"design"`
		DDL string `json:"ddl"`
	}
	decodeBody(t, resp, &out)

	if len(out.Design.Tables) != 3 {
		t.Fatalf("tables = %d, want 3", len(out.Design.Tables))
	}
	if out.Design.Tables[2].Name != "fact_financial_data" {
		t.Fatalf("fact table = %q", out.Design.Tables[2].Name)
	}
	for _, want := range []string{"CREATE TABLE IF NOT EXISTS dim_time_period", "FOREIGN KEY"} {
		if !strings.Contains(out.DDL, want) {
			t.Fatalf("ddl missing %q", want)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	g := newTestGateway(t)

	req, err := http.NewRequest(http.MethodOptions, g.srv.URL+"/api/process", nil)
	if err != nil {
		t.Fatalf("NewRequest error = %v", err)
	}
	req.Header.Set("Origin", "http://localhost:3000")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS error = %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("preflight status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("Allow-Origin = %q, want the caller's origin", got)
	}
	if resp.Header.Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatalf("Allow-Credentials missing on preflight with Origin")
	}
}
