package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"call-insights-go/internal/extractor"
	"call-insights-go/internal/logger"
	"call-insights-go/internal/processor"
	"call-insights-go/internal/sentiment"
	"call-insights-go/internal/store"
	"call-insights-go/internal/summarizer"
	"call-insights-go/internal/types"
)

type stubSummarizer struct {
	summary string
	err     error
	calls   int
}

func (s *stubSummarizer) Summarize(ctx context.Context, transcript string) (string, error) {
	s.calls++
	return s.summary, s.err
}

type fixedPolarity float64

func (f fixedPolarity) Polarity(string) float64 { return float64(f) }

type failingReader struct{}

func (failingReader) ReadAll() ([]types.CallRecord, error) {
	return nil, &store.StorageError{Path: "x", Op: "read", Err: errors.New("boom")}
}

const scenario = "Customer: Hi, this is Jane Doe. My order #991 for a laptop hasn't arrived."

func setup(t *testing.T, sum *stubSummarizer, datasetPath string) (*Server, *store.CSVSink) {
	t.Helper()
	sink := store.NewCSVSink(filepath.Join(t.TempDir(), "call_analysis.csv"), logger.Discard())
	proc := processor.New(sum, sentiment.New(fixedPolarity(-0.5)), extractor.New(), sink, nil, logger.Discard())
	return NewServer(proc, sink, datasetPath, logger.Discard()), sink
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s, _ := setup(t, &stubSummarizer{}, "")
	w := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRequestIDEchoed(t *testing.T) {
	s, _ := setup(t, &stubSummarizer{}, "")
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc")
	w := serve(s, req)
	assert.Equal(t, "abc", w.Header().Get("X-Request-ID"))
}

func TestForm_Get(t *testing.T) {
	s, _ := setup(t, &stubSummarizer{}, "")
	w := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Enter Call Transcript")
	assert.Contains(t, body, "Analyze Transcript")
	assert.NotContains(t, body, "Customer Name")
}

func postForm(transcript string) *http.Request {
	form := url.Values{"transcript": {transcript}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestForm_SubmitRendersSixFields(t *testing.T) {
	s, sink := setup(t, &stubSummarizer{summary: "Laptop order #991 is late."}, "")
	w := serve(s, postForm(scenario))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	for _, want := range []string{
		"Original Transcript", "Summary", "Sentiment", "Customer Name", "Order ID", "Product",
		"Laptop order #991 is late.", `value="Negative"`, `value="Jane Doe"`, `value="#991"`, `value="Laptop"`,
	} {
		assert.Contains(t, body, want)
	}

	recs, err := sink.ReadAll()
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestForm_EmptyShowsWarning(t *testing.T) {
	sum := &stubSummarizer{summary: "x"}
	s, sink := setup(t, sum, "")
	w := serve(s, postForm("   "))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Please enter a transcript.")
	assert.Zero(t, sum.calls)

	recs, err := sink.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestForm_LLMFailureShowsBanner(t *testing.T) {
	s, _ := setup(t, &stubSummarizer{err: &summarizer.TransportError{StatusCode: 500}}, "")
	w := serve(s, postForm(scenario))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "HTTP 500")
}

func TestForm_EscapesInput(t *testing.T) {
	s, _ := setup(t, &stubSummarizer{summary: "ok"}, "")
	w := serve(s, postForm("Customer: <script>alert(1)</script>"))
	assert.NotContains(t, w.Body.String(), "<script>alert(1)</script>")
	assert.Contains(t, w.Body.String(), "&lt;script&gt;")
}

func postJSON(path string, body any) *http.Request {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestAPIAnalyze(t *testing.T) {
	s, _ := setup(t, &stubSummarizer{summary: "Late laptop."}, "")
	w := serve(s, postJSON("/api/v1/analyze", map[string]string{"transcript": scenario}))
	require.Equal(t, http.StatusOK, w.Code)

	var res types.Result
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.Equal(t, "Late laptop.", res.Summary)
	assert.Equal(t, "Jane Doe", res.CustomerName)
	assert.Equal(t, "#991", res.OrderID)
	assert.Equal(t, "Laptop", res.Product)
	assert.Equal(t, "Negative", res.Sentiment)
}

func TestAPIAnalyze_Statuses(t *testing.T) {
	tests := []struct {
		name string
		sum  *stubSummarizer
		in   string
		want int
	}{
		{"empty", &stubSummarizer{summary: "x"}, " ", http.StatusBadRequest},
		{"transport", &stubSummarizer{err: &summarizer.TransportError{StatusCode: 503}}, scenario, http.StatusBadGateway},
		{"malformed", &stubSummarizer{err: &summarizer.MalformedResponseError{Reason: "no choices"}}, scenario, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := setup(t, tt.sum, "")
			w := serve(s, postJSON("/api/v1/analyze", map[string]string{"transcript": tt.in}))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestAPIAnalyze_InvalidJSON(t *testing.T) {
	s, _ := setup(t, &stubSummarizer{}, "")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader("{"))
	w := serve(s, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusFor_StorageErrorStillOK(t *testing.T) {
	err := &store.StorageError{Path: "x", Op: "open", Err: errors.New("denied")}
	assert.Equal(t, http.StatusOK, statusFor(err))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("other")))
}

func TestExportRecords(t *testing.T) {
	s, _ := setup(t, &stubSummarizer{summary: "Late laptop."}, "")
	serve(s, postForm(scenario))

	w := serve(s, httptest.NewRequest(http.MethodGet, "/api/v1/records/export.xlsx", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))

	f, err := excelize.OpenReader(w.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(store.ExportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Jane Doe", rows[1][3])
}

func TestExportRecords_ReadFailure(t *testing.T) {
	sum := &stubSummarizer{}
	sink := store.NewCSVSink(filepath.Join(t.TempDir(), "c.csv"), logger.Discard())
	proc := processor.New(sum, sentiment.New(fixedPolarity(0)), extractor.New(), sink, nil, logger.Discard())
	s := NewServer(proc, failingReader{}, "", logger.Discard())

	w := serve(s, httptest.NewRequest(http.MethodGet, "/api/v1/records/export.xlsx", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestBatch_NotConfigured(t *testing.T) {
	s, _ := setup(t, &stubSummarizer{}, "")
	w := serve(s, httptest.NewRequest(http.MethodPost, "/api/v1/batch", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBatch_RunsDatasetRows(t *testing.T) {
	f := excelize.NewFile()
	rows := [][]interface{}{
		{"Call ID", "Transcript"},
		{"C-1", scenario},
		{"C-2", "Customer: my name is Omar, TV order ORD-7"},
		{"C-3", "Customer: mobile"},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		row := r
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	path := filepath.Join(t.TempDir(), "calls.xlsx")
	require.NoError(t, f.SaveAs(path))
	f.Close()

	s, sink := setup(t, &stubSummarizer{summary: "ok"}, path)
	w := serve(s, httptest.NewRequest(http.MethodPost, "/api/v1/batch?limit=2", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var items []processor.BatchItem
	require.NoError(t, json.NewDecoder(w.Body).Decode(&items))
	require.Len(t, items, 2)
	assert.Equal(t, "C-2", items[1].Ref)
	assert.Equal(t, "Omar", items[1].Result.CustomerName)
	assert.Equal(t, "ORD-7", items[1].Result.OrderID)
	assert.Equal(t, "Tv", items[1].Result.Product)

	recs, err := sink.ReadAll()
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestBatch_BadLimit(t *testing.T) {
	s, _ := setup(t, &stubSummarizer{}, "/does/not/matter.xlsx")
	w := serve(s, httptest.NewRequest(http.MethodPost, "/api/v1/batch?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotFound(t *testing.T) {
	s, _ := setup(t, &stubSummarizer{}, "")
	w := serve(s, httptest.NewRequest(http.MethodGet, "/nonexistent", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
