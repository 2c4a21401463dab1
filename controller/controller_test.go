package controller

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Netcracker/qubership-data-contract-validator/client"
	"github.com/Netcracker/qubership-data-contract-validator/exception"
	"github.com/Netcracker/qubership-data-contract-validator/service"
	"github.com/Netcracker/qubership-data-contract-validator/view"
)

const contract = `{"type": "object", "required": ["name"], "properties": {"name": {"type": "string", "minLength": 2}}}`

type noRemoteFiles struct{}

func (noRemoteFiles) Download(_ context.Context, fileUrl string) (*client.RemoteFile, error) {
	return nil, &exception.CustomError{Status: http.StatusBadGateway, Code: exception.RemoteFileUnavailable, Message: exception.RemoteFileUnavailableMsg,
		Params: map[string]interface{}{"url": fileUrl, "reason": "offline"}}
}

type cannedAssistant struct{ answer string }

func (c cannedAssistant) Provider() string { return "canned" }

func (c cannedAssistant) Complete(context.Context, client.Prompt) (string, error) {
	return c.answer, nil
}

func newRouter(maxUpload int64, assistant client.SuggestionClient) *mux.Router {
	vs := service.NewValidationService(service.NewMemoryRunStore(10, time.Hour), nil, noRemoteFiles{}, service.ValidationConfig{Threshold: 1, Workers: 1})
	ss := service.NewSuggestionService(assistant, vs, time.Second, 1)
	vc := NewValidationController(vs, maxUpload, 50)
	sc := NewSuggestionController(ss)

	router := mux.NewRouter()
	router.HandleFunc("/api/v1/validate", vc.Validate).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/runs/{runId}", vc.GetRun).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/runs/{runId}/export/markdown", vc.ExportMarkdown).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/runs/{runId}/export/csv", vc.ExportCsv).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/runs/{runId}/suggestions/testcases", sc.SuggestTestCases).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/history", vc.GetHistory).Methods(http.MethodGet)
	return router
}

func multipartBody(t *testing.T, files map[string][2]string, fields map[string]string) (*bytes.Buffer, string) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, f := range files {
		part, err := mw.CreateFormFile(field, f[0])
		require.NoError(t, err)
		_, err = part.Write([]byte(f[1]))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func doRequest(router http.Handler, method, target string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func validate(t *testing.T, router http.Handler) view.ValidationRun {
	body, ct := multipartBody(t, map[string][2]string{
		"schema": {"contract.json", contract},
		"data":   {"people.json", `[{"name": "Al"}, {"name": "B"}, {}]`},
	}, nil)
	rec := doRequest(router, http.MethodPost, "/api/v1/validate?threshold=2", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var run view.ValidationRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	return run
}

func TestValidateAndFetchRun(t *testing.T) {
	router := newRouter(1<<20, nil)
	run := validate(t, router)

	assert.Equal(t, "contract.json", run.SchemaName)
	assert.Equal(t, 3, run.Report.TotalRows)
	assert.Equal(t, 1, run.Report.PassingRows)
	assert.Equal(t, 2, run.Report.Threshold)

	rec := doRequest(router, http.MethodGet, "/api/v1/runs/"+run.RunId, nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(router, http.MethodGet, "/api/v1/runs/"+run.RunId+"/export/csv", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "name,violations\nB,name: minLength\n,name: required\n", rec.Body.String())

	rec = doRequest(router, http.MethodGet, "/api/v1/runs/"+run.RunId+"/export/markdown", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".md")
}

func TestValidate_BadRequests(t *testing.T) {
	router := newRouter(1<<20, nil)

	rec := doRequest(router, http.MethodPost, "/api/v1/validate?threshold=abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body, ct := multipartBody(t, map[string][2]string{"schema": {"contract.json", contract}}, nil)
	rec = doRequest(router, http.MethodPost, "/api/v1/validate", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), exception.RequiredParamsMissing)

	body, ct = multipartBody(t, map[string][2]string{
		"schema": {"contract.txt", contract},
		"data":   {"people.json", `[]`},
	}, nil)
	rec = doRequest(router, http.MethodPost, "/api/v1/validate", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), exception.UnsupportedFormat)

	body, ct = multipartBody(t, map[string][2]string{"data": {"people.json", `[]`}}, map[string]string{"schemaUrl": "https://example.com/s.json"})
	rec = doRequest(router, http.MethodPost, "/api/v1/validate", body, ct)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestValidate_PayloadTooLarge(t *testing.T) {
	router := newRouter(64, nil)
	body, ct := multipartBody(t, map[string][2]string{
		"schema": {"contract.json", contract},
		"data":   {"people.json", strings.Repeat(" ", 1024)},
	}, nil)
	rec := doRequest(router, http.MethodPost, "/api/v1/validate", body, ct)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestGetRun_NotFound(t *testing.T) {
	rec := doRequest(newRouter(1<<20, nil), http.MethodGet, "/api/v1/runs/unknown", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHistory_NotConfigured(t *testing.T) {
	rec := doRequest(newRouter(1<<20, nil), http.MethodGet, "/api/v1/history?limit=5", nil, "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	rec = doRequest(newRouter(1<<20, nil), http.MethodGet, "/api/v1/history?limit=0", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type historyRecorder struct {
	service.ValidationService
	limit int
	page  int
}

func (h *historyRecorder) ListHistory(_ context.Context, limit int, page int) (*view.RunHistory, error) {
	h.limit, h.page = limit, page
	return &view.RunHistory{Runs: []view.RunSummary{}}, nil
}

func TestHistory_LimitIsCapped(t *testing.T) {
	recorder := &historyRecorder{}
	router := mux.NewRouter()
	router.HandleFunc("/api/v1/history", NewValidationController(recorder, 1<<20, 50).GetHistory).Methods(http.MethodGet)

	tests := []struct {
		query string
		limit int
		page  int
	}{
		{"", 50, 0},
		{"?limit=7&page=2", 7, 2},
		{"?limit=500", 500, 0},
		{"?limit=9223372036854775807&page=3", 500, 3},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := doRequest(router, http.MethodGet, "/api/v1/history"+tt.query, nil, "")
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tt.limit, recorder.limit)
			assert.Equal(t, tt.page, recorder.page)
		})
	}
}

func TestSuggestTestCases(t *testing.T) {
	router := newRouter(1<<20, cannedAssistant{answer: `[{"field": "name", "issue_type": "minLength edge case", "recommended_value": "Ab", "explanation": "exact bound"}]`})
	run := validate(t, router)

	rec := doRequest(router, http.MethodPost, "/api/v1/runs/"+run.RunId+"/suggestions/testcases", bytes.NewBufferString(`{"count": 1}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp view.SuggestionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.TestCases, 1)
	assert.Equal(t, "Ab", resp.TestCases[0].RecommendedValue)

	rec = doRequest(router, http.MethodPost, "/api/v1/runs/"+run.RunId+"/suggestions/testcases", bytes.NewBufferString(`{"count":`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSuggestTestCases_AssistantDisabled(t *testing.T) {
	router := newRouter(1<<20, nil)
	run := validate(t, router)
	rec := doRequest(router, http.MethodPost, "/api/v1/runs/"+run.RunId+"/suggestions/testcases", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), exception.SuggestionUnavailable)
}

func TestHealthController(t *testing.T) {
	readyChan := make(chan bool)
	hc := NewHealthController(readyChan)

	rec := httptest.NewRecorder()
	hc.HandleLiveRequest(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	readyChan <- true
	close(readyChan)
	assert.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		hc.HandleReadyRequest(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
		return rec.Code == http.StatusOK
	}, time.Second, 10*time.Millisecond)
}
