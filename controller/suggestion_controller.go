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

package controller

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/Netcracker/qubership-data-contract-validator/exception"
	"github.com/Netcracker/qubership-data-contract-validator/secctx"
	"github.com/Netcracker/qubership-data-contract-validator/service"
	"github.com/Netcracker/qubership-data-contract-validator/view"
)

type SuggestionController interface {
	SuggestTestCases(w http.ResponseWriter, r *http.Request)
	SuggestSchemaImprovements(w http.ResponseWriter, r *http.Request)
	GenerateRows(w http.ResponseWriter, r *http.Request)
	InferSchema(w http.ResponseWriter, r *http.Request)
}

func NewSuggestionController(suggestionService service.SuggestionService) SuggestionController {
	return &suggestionControllerImpl{suggestionService: suggestionService}
}

type suggestionControllerImpl struct {
	suggestionService service.SuggestionService
}

func (s *suggestionControllerImpl) SuggestTestCases(w http.ResponseWriter, r *http.Request) {
	req, err := readSuggestionRequest(r)
	if err != nil {
		respondWithError(w, "Failed to read request", err)
		return
	}
	result, err := s.suggestionService.SuggestTestCases(secctx.MakeUserContext(r), getStringParam(r, "runId"), req.Count)
	if err != nil {
		respondWithError(w, "Failed to suggest test cases", err)
		return
	}
	respondWithJson(w, http.StatusOK, result)
}

func (s *suggestionControllerImpl) SuggestSchemaImprovements(w http.ResponseWriter, r *http.Request) {
	req, err := readSuggestionRequest(r)
	if err != nil {
		respondWithError(w, "Failed to read request", err)
		return
	}
	result, err := s.suggestionService.SuggestSchemaImprovements(secctx.MakeUserContext(r), getStringParam(r, "runId"), req.Count)
	if err != nil {
		respondWithError(w, "Failed to suggest schema improvements", err)
		return
	}
	respondWithJson(w, http.StatusOK, result)
}

func (s *suggestionControllerImpl) GenerateRows(w http.ResponseWriter, r *http.Request) {
	req, err := readSuggestionRequest(r)
	if err != nil {
		respondWithError(w, "Failed to read request", err)
		return
	}
	result, err := s.suggestionService.GenerateRows(secctx.MakeUserContext(r), getStringParam(r, "runId"), req.Count, req.Instructions)
	if err != nil {
		respondWithError(w, "Failed to generate rows", err)
		return
	}
	respondWithJson(w, http.StatusOK, result)
}

func (s *suggestionControllerImpl) InferSchema(w http.ResponseWriter, r *http.Request) {
	result, err := s.suggestionService.InferSchema(secctx.MakeUserContext(r), getStringParam(r, "runId"))
	if err != nil {
		respondWithError(w, "Failed to infer schema", err)
		return
	}
	respondWithJson(w, http.StatusOK, result)
}

// readSuggestionRequest accepts an empty body as a request with default values.
func readSuggestionRequest(r *http.Request) (view.SuggestionRequest, error) {
	var req view.SuggestionRequest
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return req, badRequestBody(err)
	}
	if len(body) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return req, badRequestBody(err)
	}
	if req.Count < 0 {
		return req, &exception.CustomError{
			Status:  http.StatusBadRequest,
			Code:    exception.InvalidParameterValue,
			Message: exception.InvalidParameterValueMsg,
			Params:  map[string]interface{}{"param": "count", "value": req.Count},
		}
	}
	return req, nil
}

func badRequestBody(err error) error {
	if errors.Is(err, io.EOF) {
		err = errors.New("unexpected end of body")
	}
	return &exception.CustomError{
		Status:  http.StatusBadRequest,
		Code:    exception.BadRequestBody,
		Message: exception.BadRequestBodyMsg,
		Debug:   err.Error(),
	}
}
