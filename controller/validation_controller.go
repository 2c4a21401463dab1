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
	"mime/multipart"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/Netcracker/qubership-data-contract-validator/exception"
	"github.com/Netcracker/qubership-data-contract-validator/secctx"
	"github.com/Netcracker/qubership-data-contract-validator/service"
	"github.com/Netcracker/qubership-data-contract-validator/view"
)

const multipartMemory = 32 << 20

// historyMaxPages caps the history limit at this many default pages.
const historyMaxPages = 10

type ValidationController interface {
	Validate(w http.ResponseWriter, r *http.Request)
	GetRun(w http.ResponseWriter, r *http.Request)
	ExportMarkdown(w http.ResponseWriter, r *http.Request)
	ExportCsv(w http.ResponseWriter, r *http.Request)
	GetHistory(w http.ResponseWriter, r *http.Request)
}

func NewValidationController(validationService service.ValidationService, maxUploadSize int64, historyPageSize int) ValidationController {
	return &validationControllerImpl{
		validationService: validationService,
		maxUploadSize:     maxUploadSize,
		historyPageSize:   historyPageSize,
	}
}

type validationControllerImpl struct {
	validationService service.ValidationService
	maxUploadSize     int64
	historyPageSize   int
}

func (v *validationControllerImpl) Validate(w http.ResponseWriter, r *http.Request) {
	threshold, err := getIntQueryParam(r, "threshold", 0, 1)
	if err != nil {
		respondWithError(w, "Invalid threshold", err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, v.maxUploadSize)
	err = r.ParseMultipartForm(multipartMemory)
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			RespondWithCustomError(w, &exception.CustomError{
				Status:  http.StatusRequestEntityTooLarge,
				Code:    exception.PayloadTooLarge,
				Message: exception.PayloadTooLargeMsg,
				Params:  map[string]interface{}{"limit": v.maxUploadSize},
			})
			return
		}
		RespondWithCustomError(w, &exception.CustomError{
			Status:  http.StatusBadRequest,
			Code:    exception.IncorrectMultipartFile,
			Message: exception.IncorrectMultipartFileMsg,
			Debug:   err.Error(),
		})
		return
	}
	if r.MultipartForm != nil {
		defer func() {
			if err := r.MultipartForm.RemoveAll(); err != nil {
				log.Debugf("failed to remove multipart form temp data: %s", err.Error())
			}
		}()
	}

	req := view.ValidateRequest{
		SchemaUrl: r.FormValue("schemaUrl"),
		DataUrl:   r.FormValue("dataUrl"),
		Threshold: threshold,
	}
	if req.SchemaName, req.Schema, err = readFormFile(r, "schema"); err != nil {
		respondWithError(w, "Failed to read schema file", err)
		return
	}
	if req.DataName, req.Data, err = readFormFile(r, "data"); err != nil {
		respondWithError(w, "Failed to read data file", err)
		return
	}

	run, err := v.validationService.Validate(secctx.MakeUserContext(r), req)
	if err != nil {
		respondWithError(w, "Failed to validate data", err)
		return
	}
	respondWithJson(w, http.StatusOK, run)
}

// readFormFile returns an empty name and content when the part is not present.
func readFormFile(r *http.Request, field string) (string, []byte, error) {
	if r.MultipartForm == nil {
		return "", nil, nil
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil, nil
		}
		return "", nil, incorrectMultipartFile(err)
	}
	defer func(f multipart.File) {
		_ = f.Close()
	}(file)
	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, incorrectMultipartFile(err)
	}
	return header.Filename, data, nil
}

func incorrectMultipartFile(err error) error {
	return &exception.CustomError{
		Status:  http.StatusBadRequest,
		Code:    exception.IncorrectMultipartFile,
		Message: exception.IncorrectMultipartFileMsg,
		Debug:   err.Error(),
	}
}

func (v *validationControllerImpl) GetRun(w http.ResponseWriter, r *http.Request) {
	runId := getStringParam(r, "runId")
	run, err := v.validationService.GetRun(secctx.MakeUserContext(r), runId)
	if err != nil {
		respondWithError(w, "Failed to get validation run", err)
		return
	}
	respondWithJson(w, http.StatusOK, run)
}

func (v *validationControllerImpl) ExportMarkdown(w http.ResponseWriter, r *http.Request) {
	runId := getStringParam(r, "runId")
	data, err := v.validationService.ExportMarkdown(secctx.MakeUserContext(r), runId)
	if err != nil {
		respondWithError(w, "Failed to export markdown report", err)
		return
	}
	respondWithFile(w, "text/markdown; charset=utf-8", "validation_report_"+runId+".md", data)
}

func (v *validationControllerImpl) ExportCsv(w http.ResponseWriter, r *http.Request) {
	runId := getStringParam(r, "runId")
	data, err := v.validationService.ExportFailedRows(secctx.MakeUserContext(r), runId)
	if err != nil {
		respondWithError(w, "Failed to export failed rows", err)
		return
	}
	respondWithFile(w, "text/csv; charset=utf-8", "failed_rows_"+runId+".csv", data)
}

func (v *validationControllerImpl) GetHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := getIntQueryParam(r, "limit", v.historyPageSize, 1)
	if err != nil {
		respondWithError(w, "Invalid limit", err)
		return
	}
	if maxLimit := v.historyPageSize * historyMaxPages; limit > maxLimit {
		limit = maxLimit
	}
	page, err := getIntQueryParam(r, "page", 0, 0)
	if err != nil {
		respondWithError(w, "Invalid page", err)
		return
	}
	history, err := v.validationService.ListHistory(secctx.MakeUserContext(r), limit, page)
	if err != nil {
		respondWithError(w, "Failed to list run history", err)
		return
	}
	respondWithJson(w, http.StatusOK, history)
}
