// Copyright 2024-2025 NetCracker Technology Corporation
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"

	"github.com/Netcracker/qubership-data-contract-validator/checker"
	"github.com/Netcracker/qubership-data-contract-validator/client"
	"github.com/Netcracker/qubership-data-contract-validator/exception"
	"github.com/Netcracker/qubership-data-contract-validator/loader"
	"github.com/Netcracker/qubership-data-contract-validator/schema"
	"github.com/Netcracker/qubership-data-contract-validator/view"
)

const (
	defaultSuggestionCount = 3
	defaultGeneratedRows   = 5
	maxSuggestionCount     = 20
	maxPromptIssues        = 5
	inferSchemaSampleRows  = 100
)

var errAssistantDisabled = errors.New("AI provider is not configured")

type SuggestionService interface {
	Enabled() bool
	SuggestTestCases(ctx context.Context, runId string, count int) (*view.SuggestionResponse, error)
	SuggestSchemaImprovements(ctx context.Context, runId string, count int) (*view.SuggestionResponse, error)
	GenerateRows(ctx context.Context, runId string, count int, instructions string) (*view.GeneratedRowsResponse, error)
	InferSchema(ctx context.Context, runId string) (*view.InferredSchemaResponse, error)
}

// NewSuggestionService builds the AI follow-ups of a run. A nil client disables them:
// every call then fails with SuggestionUnavailable.
func NewSuggestionService(suggestionClient client.SuggestionClient, validationService ValidationService, timeout time.Duration, workers int) SuggestionService {
	return &suggestionServiceImpl{
		client:            suggestionClient,
		validationService: validationService,
		timeout:           timeout,
		workers:           workers,
	}
}

type suggestionServiceImpl struct {
	client            client.SuggestionClient
	validationService ValidationService
	timeout           time.Duration
	workers           int
	updateMutex       sync.Mutex
}

func (s *suggestionServiceImpl) Enabled() bool {
	return s.client != nil
}

func (s *suggestionServiceImpl) SuggestTestCases(ctx context.Context, runId string, count int) (*view.SuggestionResponse, error) {
	stored, err := s.validationService.GetStoredRun(ctx, runId)
	if err != nil {
		return nil, err
	}
	count = normalizeCount(count, defaultSuggestionCount)
	text, err := s.complete(ctx, runId, testCasesPrompt(stored, count))
	if err != nil {
		return nil, err
	}

	items, ok := suggestionItems(text)
	if !ok {
		return &view.SuggestionResponse{RawText: text}, nil
	}
	result := make([]view.TestCaseSuggestion, 0, len(items))
	for _, item := range items {
		result = append(result, view.TestCaseSuggestion{
			Field:            stringOf(item["field"]),
			IssueType:        stringOf(item["issue_type"]),
			RecommendedValue: item["recommended_value"],
			Explanation:      stringOf(item["explanation"]),
		})
	}
	s.updateRun(ctx, runId, func(run *view.StoredRun) {
		run.Run.Suggestions.TestCases = result
	})
	return &view.SuggestionResponse{TestCases: result}, nil
}

func (s *suggestionServiceImpl) SuggestSchemaImprovements(ctx context.Context, runId string, count int) (*view.SuggestionResponse, error) {
	stored, err := s.validationService.GetStoredRun(ctx, runId)
	if err != nil {
		return nil, err
	}
	count = normalizeCount(count, defaultSuggestionCount)
	text, err := s.complete(ctx, runId, schemaImprovementsPrompt(stored, count))
	if err != nil {
		return nil, err
	}

	items, ok := suggestionItems(text)
	if !ok {
		return &view.SuggestionResponse{RawText: text}, nil
	}
	result := make([]view.SchemaImprovement, 0, len(items))
	for _, item := range items {
		result = append(result, view.SchemaImprovement{
			SchemaPath:       stringOf(item["schema_path"]),
			ImprovementType:  stringOf(item["improvement_type"]),
			SuggestedSnippet: stringOf(item["suggested_snippet"]),
			Explanation:      stringOf(item["explanation"]),
		})
	}
	s.updateRun(ctx, runId, func(run *view.StoredRun) {
		run.Run.Suggestions.SchemaImprovements = result
	})
	return &view.SuggestionResponse{SchemaImprovements: result}, nil
}

// GenerateRows asks for synthetic rows aimed at the run's gaps and violations and validates
// them with the run's schema. The original run keeps its own report.
func (s *suggestionServiceImpl) GenerateRows(ctx context.Context, runId string, count int, instructions string) (*view.GeneratedRowsResponse, error) {
	stored, err := s.validationService.GetStoredRun(ctx, runId)
	if err != nil {
		return nil, err
	}
	// runs restored from history keep only the report
	if stored.SchemaText == "" {
		return nil, exception.NewDatasetUnavailable(runId)
	}
	doc, err := loader.LoadSchema(stored.Run.SchemaName, []byte(stored.SchemaText))
	if err != nil {
		return nil, err
	}
	model, err := schema.Build(doc)
	if err != nil {
		return nil, err
	}

	count = normalizeCount(count, defaultGeneratedRows)
	prompt := generateRowsPrompt(stored, count, instructions)
	text, err := s.complete(ctx, runId, prompt)
	if err != nil {
		return nil, err
	}

	rows, ok := generatedRows(text)
	if !ok {
		return &view.GeneratedRowsResponse{Rows: []map[string]any{}, RawText: text}, nil
	}
	records := make([]any, len(rows))
	for i, row := range rows {
		records[i] = row
	}
	report := checker.Run(model, records, checker.Options{Threshold: stored.Run.Report.Threshold, Workers: s.workers})
	s.updateRun(ctx, runId, func(run *view.StoredRun) {
		run.Run.Suggestions.GenerationPrompt = prompt.User
	})
	return &view.GeneratedRowsResponse{Rows: rows, Report: &report}, nil
}

func (s *suggestionServiceImpl) InferSchema(ctx context.Context, runId string) (*view.InferredSchemaResponse, error) {
	stored, err := s.validationService.GetStoredRun(ctx, runId)
	if err != nil {
		return nil, err
	}
	if stored.Data == nil {
		return nil, exception.NewDatasetUnavailable(runId)
	}
	sample := objectRecords(stored.Data.Records, inferSchemaSampleRows)
	if len(sample) == 0 {
		return nil, exception.NewSuggestionUnavailable(errors.New("no sample data rows to infer a schema from"))
	}
	text, err := s.complete(ctx, runId, inferSchemaPrompt(sample))
	if err != nil {
		return nil, err
	}

	inferred, ok := inferredSchema(text)
	if !ok {
		return &view.InferredSchemaResponse{RawText: text}, nil
	}
	s.updateRun(ctx, runId, func(run *view.StoredRun) {
		run.Run.Suggestions.InferredSchema = inferred
	})
	return &view.InferredSchemaResponse{Schema: inferred}, nil
}

func (s *suggestionServiceImpl) complete(ctx context.Context, runId string, prompt client.Prompt) (string, error) {
	if s.client == nil {
		return "", exception.NewSuggestionUnavailable(errAssistantDisabled)
	}
	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.client.Complete(callCtx, prompt)
	if err != nil {
		log.Errorf("%s request for run %s failed after %dms: %s", prompt.ResponseName, runId, time.Since(start).Milliseconds(), err.Error())
		unavailable := exception.NewSuggestionUnavailable(err)
		s.updateRun(ctx, runId, func(run *view.StoredRun) {
			run.Run.Notes = append(run.Run.Notes, unavailable.Error())
		})
		return "", unavailable
	}
	log.Debugf("%s request for run %s took %dms", prompt.ResponseName, runId, time.Since(start).Milliseconds())
	return text, nil
}

// updateRun applies f to a copy of the stored run and saves it. Failures are logged only:
// suggestions are advisory and must not fail the request that produced them.
func (s *suggestionServiceImpl) updateRun(ctx context.Context, runId string, f func(run *view.StoredRun)) {
	s.updateMutex.Lock()
	defer s.updateMutex.Unlock()

	stored, err := s.validationService.GetStoredRun(ctx, runId)
	if err != nil {
		log.Warnf("Unable to update run %s: %s", runId, err.Error())
		return
	}
	cp := *stored
	cp.Run.Notes = append([]string{}, stored.Run.Notes...)
	f(&cp)
	if err := s.validationService.SaveRun(ctx, &cp); err != nil {
		log.Warnf("Unable to update run %s: %s", runId, err.Error())
	}
}

func normalizeCount(count int, def int) int {
	if count <= 0 {
		return def
	}
	if count > maxSuggestionCount {
		return maxSuggestionCount
	}
	return count
}

func objectRecords(records []any, limit int) []map[string]any {
	var result []map[string]any
	for _, rec := range records {
		if obj, ok := rec.(map[string]any); ok {
			result = append(result, obj)
			if len(result) == limit {
				break
			}
		}
	}
	return result
}

// stripFences removes a surrounding markdown code block.
func stripFences(text string) string {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "```") || !strings.HasSuffix(t, "```") || len(t) < 6 {
		return t
	}
	t = strings.TrimSuffix(strings.TrimPrefix(t, "```"), "```")
	if nl := strings.IndexByte(t, '\n'); nl >= 0 && !strings.ContainsAny(t[:nl], "{[") {
		t = t[nl+1:]
	}
	return strings.TrimSpace(t)
}

func decodeAnswer(text string) (any, bool) {
	var v any
	if err := json.Unmarshal([]byte(stripFences(text)), &v); err != nil {
		log.Debugf("Assistant answer is not valid json: %s", err.Error())
		return nil, false
	}
	return v, true
}

// suggestionItems accepts a bare array or an object wrapping it under "suggestions".
func suggestionItems(text string) ([]map[string]any, bool) {
	v, ok := decodeAnswer(text)
	if !ok {
		return nil, false
	}
	if obj, isObj := v.(map[string]any); isObj {
		v = obj["suggestions"]
	}
	list, isList := v.([]any)
	if !isList {
		return nil, false
	}
	items := make([]map[string]any, 0, len(list))
	for _, el := range list {
		if item, isItem := el.(map[string]any); isItem {
			items = append(items, item)
		}
	}
	return items, true
}

// generatedRows accepts a bare array or an object wrapping it under "rows" or "test_cases".
func generatedRows(text string) ([]map[string]any, bool) {
	v, ok := decodeAnswer(text)
	if !ok {
		return nil, false
	}
	if obj, isObj := v.(map[string]any); isObj {
		if rows, found := obj["rows"]; found {
			v = rows
		} else {
			v = obj["test_cases"]
		}
	}
	list, isList := v.([]any)
	if !isList {
		return nil, false
	}
	rows := make([]map[string]any, 0, len(list))
	for _, el := range list {
		if row, isRow := el.(map[string]any); isRow {
			rows = append(rows, row)
		}
	}
	return rows, true
}

// inferredSchema accepts the schema object itself or an object wrapping it under "schema".
func inferredSchema(text string) (map[string]any, bool) {
	v, ok := decodeAnswer(text)
	if !ok {
		return nil, false
	}
	obj, isObj := v.(map[string]any)
	if !isObj {
		return nil, false
	}
	if inner, wrapped := obj["schema"].(map[string]any); wrapped && obj["properties"] == nil {
		return inner, true
	}
	return obj, true
}

func stringOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, el := range t {
			parts = append(parts, stringOf(el))
		}
		return strings.Join(parts, ", ")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
