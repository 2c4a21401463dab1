package service

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Netcracker/qubership-data-contract-validator/checker"
	"github.com/Netcracker/qubership-data-contract-validator/client"
	"github.com/Netcracker/qubership-data-contract-validator/exception"
	"github.com/Netcracker/qubership-data-contract-validator/loader"
	"github.com/Netcracker/qubership-data-contract-validator/view"
)

const testSchema = `type: object
required: [id]
properties:
  id:
    type: integer
    minimum: 1
  status:
    type: string
    enum: [new, done]
`

const testData = "id,status\n1,new\n0,done\n"

type fakeFileClient struct {
	files map[string]client.RemoteFile
}

func (f fakeFileClient) Download(_ context.Context, fileUrl string) (*client.RemoteFile, error) {
	file, ok := f.files[fileUrl]
	if !ok {
		return nil, &exception.CustomError{Code: exception.RemoteFileUnavailable, Message: exception.RemoteFileUnavailableMsg}
	}
	return &file, nil
}

type fakeSuggestionClient struct {
	answer  string
	err     error
	prompts []client.Prompt
}

func (f *fakeSuggestionClient) Provider() string { return "fake" }

func (f *fakeSuggestionClient) Complete(_ context.Context, prompt client.Prompt) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.answer, f.err
}

func newTestValidationService() ValidationService {
	files := fakeFileClient{files: map[string]client.RemoteFile{
		"https://example.com/contract": {Name: "contract.yaml", Data: []byte(testSchema)},
		"https://example.com/rows.csv": {Name: "rows.csv", Data: []byte(testData)},
	}}
	return NewValidationService(NewMemoryRunStore(10, time.Hour), nil, files, ValidationConfig{Threshold: 1, Workers: 2})
}

func validateFixture(t *testing.T, vs ValidationService) *view.ValidationRun {
	run, err := vs.Validate(context.Background(), view.ValidateRequest{
		SchemaName: "contract.yaml",
		Schema:     []byte(testSchema),
		DataName:   "rows.csv",
		Data:       []byte(testData),
	})
	require.NoError(t, err)
	return run
}

func TestValidate_StoresRun(t *testing.T) {
	vs := newTestValidationService()
	run := validateFixture(t, vs)

	assert.NotEmpty(t, run.RunId)
	assert.Equal(t, checker.StatusFail, run.Report.Status)
	assert.Equal(t, 2, run.Report.TotalRows)
	assert.Equal(t, 2, run.Dataset.Rows)
	assert.Len(t, run.SchemaHash, 64)

	got, err := vs.GetRun(context.Background(), run.RunId)
	require.NoError(t, err)
	assert.Equal(t, run.RunId, got.RunId)

	csv, err := vs.ExportFailedRows(context.Background(), run.RunId)
	require.NoError(t, err)
	assert.Equal(t, "id,status,violations\n0,done,id: minimum\n", string(csv))

	md, err := vs.ExportMarkdown(context.Background(), run.RunId)
	require.NoError(t, err)
	assert.Contains(t, string(md), "FAIL")
}

func TestValidate_DownloadsRemoteFiles(t *testing.T) {
	vs := newTestValidationService()
	run, err := vs.Validate(context.Background(), view.ValidateRequest{
		SchemaUrl: "https://example.com/contract",
		DataUrl:   "https://example.com/rows.csv",
		Threshold: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, "contract.yaml", run.SchemaName)
	assert.Equal(t, "rows.csv", run.DataName)
	assert.Equal(t, 2, run.Report.Threshold)
}

func TestValidate_Errors(t *testing.T) {
	vs := newTestValidationService()
	tests := []struct {
		name string
		req  view.ValidateRequest
		code string
	}{
		{"missing schema", view.ValidateRequest{DataName: "d.csv", Data: []byte(testData)}, exception.RequiredParamsMissing},
		{"missing data", view.ValidateRequest{SchemaName: "s.yaml", Schema: []byte(testSchema)}, exception.RequiredParamsMissing},
		{"schema extension", view.ValidateRequest{SchemaName: "s.txt", Schema: []byte(testSchema), DataName: "d.csv", Data: []byte(testData)}, exception.UnsupportedFormat},
		{"data extension", view.ValidateRequest{SchemaName: "s.yaml", Schema: []byte(testSchema), DataName: "d.xml", Data: []byte("<a/>")}, exception.UnsupportedFormat},
		{"bad schema", view.ValidateRequest{SchemaName: "s.yaml", Schema: []byte("properties: [1]"), DataName: "d.csv", Data: []byte(testData)}, exception.SchemaParseError},
		{"unknown url", view.ValidateRequest{SchemaUrl: "https://example.com/missing", DataName: "d.csv", Data: []byte(testData)}, exception.RemoteFileUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := vs.Validate(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, exception.HasCode(err, tt.code), err.Error())
		})
	}
}

func TestGetRun_NotFound(t *testing.T) {
	_, err := newTestValidationService().GetRun(context.Background(), "missing")
	assert.True(t, exception.HasCode(err, exception.EntityNotFound))
}

func TestListHistory_Disabled(t *testing.T) {
	_, err := newTestValidationService().ListHistory(context.Background(), 10, 0)
	assert.True(t, exception.HasCode(err, exception.HistoryDisabled))
}

func TestListHistory_Paging(t *testing.T) {
	repo := &recordingRunRepository{}
	vs := NewValidationService(NewMemoryRunStore(10, time.Hour), repo, fakeFileClient{}, ValidationConfig{Threshold: 1, Workers: 1})

	history, err := vs.ListHistory(context.Background(), 20, 3)
	require.NoError(t, err)
	assert.Empty(t, history.Runs)
	assert.Equal(t, 60, repo.listOffset)

	history, err = vs.ListHistory(context.Background(), 1000, math.MaxInt/2)
	require.NoError(t, err)
	assert.Empty(t, history.Runs)
	assert.Equal(t, 1, repo.listCalls, "an offset past the last page must not reach the database")
}

func TestGenerateRows_HistoryOnlyRun(t *testing.T) {
	store := NewMemoryRunStore(10, time.Hour)
	require.NoError(t, store.Save(context.Background(), &view.StoredRun{Run: view.ValidationRun{RunId: "r1", SchemaName: "contract.yaml"}}))
	vs := NewValidationService(store, nil, fakeFileClient{}, ValidationConfig{Threshold: 1, Workers: 1})
	fake := &fakeSuggestionClient{answer: "[]"}
	ss := NewSuggestionService(fake, vs, time.Second, 1)

	_, err := ss.GenerateRows(context.Background(), "r1", 2, "")
	require.Error(t, err)
	assert.True(t, exception.HasCode(err, exception.DatasetUnavailable), err.Error())
	assert.Empty(t, fake.prompts)
}

func TestExportFailedRows_DatasetUnavailable(t *testing.T) {
	store := NewMemoryRunStore(10, time.Hour)
	require.NoError(t, store.Save(context.Background(), &view.StoredRun{Run: view.ValidationRun{RunId: "r1"}}))
	vs := NewValidationService(store, nil, fakeFileClient{}, ValidationConfig{Threshold: 1, Workers: 1})
	_, err := vs.ExportFailedRows(context.Background(), "r1")
	assert.True(t, exception.HasCode(err, exception.DatasetUnavailable))
}

func TestSuggestTestCases(t *testing.T) {
	vs := newTestValidationService()
	run := validateFixture(t, vs)
	fake := &fakeSuggestionClient{answer: "```json\n[{\"field\": \"id\", \"issue_type\": \"min/max edge case\", \"recommended_value\": 1, \"explanation\": \"boundary\"}]\n```"}
	ss := NewSuggestionService(fake, vs, time.Second, 1)

	resp, err := ss.SuggestTestCases(context.Background(), run.RunId, 0)
	require.NoError(t, err)
	require.Len(t, resp.TestCases, 1)
	assert.Equal(t, "id", resp.TestCases[0].Field)
	assert.Equal(t, 1.0, resp.TestCases[0].RecommendedValue)
	assert.Contains(t, fake.prompts[0].User, "Provide 3 distinct suggestions")
	assert.Contains(t, fake.prompts[0].User, "minimum: 1")

	stored, err := vs.GetRun(context.Background(), run.RunId)
	require.NoError(t, err)
	assert.Equal(t, resp.TestCases, stored.Suggestions.TestCases)
}

func TestSuggestSchemaImprovements_WrappedAnswer(t *testing.T) {
	vs := newTestValidationService()
	run := validateFixture(t, vs)
	fake := &fakeSuggestionClient{answer: `{"suggestions": [{"schema_path": "properties.status", "improvement_type": "add required", "suggested_snippet": {"required": ["status"]}, "explanation": "always present"}]}`}
	ss := NewSuggestionService(fake, vs, time.Second, 1)

	resp, err := ss.SuggestSchemaImprovements(context.Background(), run.RunId, 50)
	require.NoError(t, err)
	require.Len(t, resp.SchemaImprovements, 1)
	assert.Equal(t, `{"required":["status"]}`, resp.SchemaImprovements[0].SuggestedSnippet)
	assert.Contains(t, fake.prompts[0].User, "Provide 20 distinct suggestions")
}

func TestSuggestions_RawTextFallback(t *testing.T) {
	vs := newTestValidationService()
	run := validateFixture(t, vs)
	fake := &fakeSuggestionClient{answer: "Add more rows with id = 1."}
	ss := NewSuggestionService(fake, vs, time.Second, 1)

	resp, err := ss.SuggestTestCases(context.Background(), run.RunId, 2)
	require.NoError(t, err)
	assert.Empty(t, resp.TestCases)
	assert.Equal(t, "Add more rows with id = 1.", resp.RawText)
}

func TestSuggestions_FailureIsRecordedAsNote(t *testing.T) {
	vs := newTestValidationService()
	run := validateFixture(t, vs)
	fake := &fakeSuggestionClient{err: errors.New("invalid api key")}
	ss := NewSuggestionService(fake, vs, time.Second, 1)

	_, err := ss.SuggestTestCases(context.Background(), run.RunId, 1)
	require.Error(t, err)
	assert.True(t, exception.HasCode(err, exception.SuggestionUnavailable))

	stored, err := vs.GetRun(context.Background(), run.RunId)
	require.NoError(t, err)
	assert.Equal(t, []string{"AI insights unavailable: invalid api key"}, stored.Notes)
	assert.Equal(t, checker.StatusFail, stored.Report.Status)
}

func TestSuggestions_Disabled(t *testing.T) {
	vs := newTestValidationService()
	run := validateFixture(t, vs)
	ss := NewSuggestionService(nil, vs, time.Second, 1)

	assert.False(t, ss.Enabled())
	_, err := ss.InferSchema(context.Background(), run.RunId)
	assert.True(t, exception.HasCode(err, exception.SuggestionUnavailable))
}

func TestGenerateRows_ValidatedWithRunSchema(t *testing.T) {
	vs := newTestValidationService()
	run := validateFixture(t, vs)
	fake := &fakeSuggestionClient{answer: `{"rows": [{"id": 1, "status": "new"}, {"id": 2, "status": "archived"}, "junk"]}`}
	ss := NewSuggestionService(fake, vs, time.Second, 1)

	resp, err := ss.GenerateRows(context.Background(), run.RunId, 2, "use small ids")
	require.NoError(t, err)
	require.Len(t, resp.Rows, 2)
	require.NotNil(t, resp.Report)
	assert.Equal(t, 1, resp.Report.PassingRows)
	assert.Equal(t, 1, resp.Report.ViolationsByKind["enum"])
	assert.Contains(t, fake.prompts[0].User, "Additional instructions: use small ids")
	assert.Contains(t, fake.prompts[0].User, "Field: id")

	original, err := vs.GetRun(context.Background(), run.RunId)
	require.NoError(t, err)
	assert.Equal(t, 2, original.Report.TotalRows)
	assert.Equal(t, fake.prompts[0].User, original.Suggestions.GenerationPrompt)
}

func TestInferSchema(t *testing.T) {
	vs := newTestValidationService()
	run := validateFixture(t, vs)
	fake := &fakeSuggestionClient{answer: `{"schema": {"type": "object", "required": ["id"]}}`}
	ss := NewSuggestionService(fake, vs, time.Second, 1)

	resp, err := ss.InferSchema(context.Background(), run.RunId)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"type": "object", "required": []any{"id"}}, resp.Schema)
	assert.Contains(t, fake.prompts[0].User, `"status": "done"`)
}

func TestStripFences(t *testing.T) {
	tests := map[string]string{
		"[1]":                   "[1]",
		"```json\n[1]\n```":     "[1]",
		"```\n{\"a\":1}\n```":   "{\"a\":1}",
		"```[1]```":             "[1]",
		"  plain text  ":        "plain text",
		"```json\nnot closed":   "```json\nnot closed",
	}
	for in, want := range tests {
		assert.Equal(t, want, stripFences(in), in)
	}
}

func TestNormalizeCount(t *testing.T) {
	assert.Equal(t, 3, normalizeCount(0, 3))
	assert.Equal(t, 7, normalizeCount(7, 3))
	assert.Equal(t, maxSuggestionCount, normalizeCount(1000, 3))
}

func TestMemoryRunStore(t *testing.T) {
	store := NewMemoryRunStore(1, time.Hour)
	ctx := context.Background()
	got, err := store.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, store.Save(ctx, &view.StoredRun{Run: view.ValidationRun{RunId: "a"}}))
	require.NoError(t, store.Save(ctx, &view.StoredRun{Run: view.ValidationRun{RunId: "b"}}))
	got, _ = store.Get(ctx, "a")
	assert.Nil(t, got, "least recently used run is evicted")
	got, _ = store.Get(ctx, "b")
	require.NotNil(t, got)
}

func TestStorablePayload_DropsUnreadableRecords(t *testing.T) {
	ds, err := loader.LoadData("rows.csv", []byte("a,b\n1,2\n1,2,3\n"))
	require.NoError(t, err)
	run := &view.StoredRun{Run: view.ValidationRun{RunId: "r"}, Data: ds}

	payload := storablePayload(run)
	assert.NotNil(t, payload.Data.Records[0])
	assert.Nil(t, payload.Data.Records[1])
	_, stillUnreadable := run.Data.Records[1].(checker.Unreadable)
	assert.True(t, stillUnreadable, "source run is not modified")
}

func TestSystemInfo_Defaults(t *testing.T) {
	s := &systemInfoServiceImpl{}
	require.NoError(t, s.Init())
	assert.Equal(t, ":8080", s.GetListenAddress())
	assert.Equal(t, 1, s.GetCoverageThreshold())
	assert.Equal(t, ReportStoreMemory, s.GetReportStore())
	assert.Equal(t, time.Hour, s.GetReportTtl())
	assert.Equal(t, int64(50<<20), s.GetMaxUploadSize())
	assert.False(t, s.IsHistoryEnabled())
	assert.Equal(t, 5, s.GetSuggestionClientConfig().Retry.MaxAttempts)
}

func TestSystemInfo_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"coverage_threshold": 3, "validation_workers": 8, "log_level": "debug"}`), 0o600))
	t.Setenv(VALIDATION_WORKERS, "2")
	t.Setenv(DB_HOST, "postgres")
	t.Setenv(DB_NAME, "validator")
	t.Setenv(DB_USER, "validator")

	s := &systemInfoServiceImpl{configFile: path}
	require.NoError(t, s.Init())
	assert.Equal(t, 3, s.GetCoverageThreshold())
	assert.Equal(t, 2, s.GetValidationWorkers())
	assert.Equal(t, "debug", s.GetLogLevel())
	assert.True(t, s.IsHistoryEnabled())
	assert.Equal(t, 5432, s.GetDbCredentials().Port)
}

func TestSystemInfo_Invalid(t *testing.T) {
	tests := map[string]string{
		AI_PROVIDER:        "openai",
		REPORT_STORE:       "redis",
		COVERAGE_THRESHOLD: "0",
		JWT_SECRET:         "short",
	}
	for key, value := range tests {
		t.Run(strings.ToLower(key), func(t *testing.T) {
			t.Setenv(key, value)
			s := &systemInfoServiceImpl{}
			assert.Error(t, s.Init())
		})
	}
}
