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

package exception

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type CustomError struct {
	Status  int                    `json:"status"`
	Code    string                 `json:"code,omitempty"`
	Message string                 `json:"message,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Debug   string                 `json:"debug,omitempty"`
}

func (c CustomError) Error() string {
	msg := c.Message
	for k, v := range c.Params {
		//todo make smart replace (e.g. now it replaces $rowIndex if we have $row in params)
		msg = strings.ReplaceAll(msg, "$"+k, fmt.Sprintf("%v", v))
	}
	return msg
}

// HasCode reports whether err (or any error it wraps) is a CustomError with the given code.
func HasCode(err error, code string) bool {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	var cv CustomError
	if errors.As(err, &cv) {
		return cv.Code == code
	}
	return false
}

const SchemaParseError = "SchemaParseError"
const SchemaParseErrorMsg = "Schema is invalid at '$path': $reason"

const UnsupportedFormat = "UnsupportedFormat"
const UnsupportedFormatMsg = "File '$file' has unsupported format: $reason"

const MalformedRow = "MalformedRow"
const MalformedRowMsg = "Row $row is malformed: $reason"

const SuggestionUnavailable = "SuggestionUnavailable"
const SuggestionUnavailableMsg = "AI insights unavailable: $reason"

const InvalidURLEscape = "6"
const InvalidURLEscapeMsg = "Failed to unescape parameter $param"

const InvalidParameterValue = "9"
const InvalidParameterValueMsg = "Value '$value' is not allowed for parameter $param"

const BadRequestBody = "10"
const BadRequestBodyMsg = "Failed to decode body"

const RequiredParamsMissing = "15"
const RequiredParamsMissingMsg = "Required parameters are missing: $params"

const IncorrectMultipartFile = "1000"
const IncorrectMultipartFileMsg = "Unable to read Multipart file"

const EntityNotFound = "100"
const EntityNotFoundMsg = "$entity with id $id is not found"

const RemoteFileUnavailable = "1100"
const RemoteFileUnavailableMsg = "Unable to download '$url': $reason"

const HistoryDisabled = "1200"
const HistoryDisabledMsg = "Run history is not configured"

const DatasetUnavailable = "1300"
const DatasetUnavailableMsg = "Dataset of run $id is no longer available"

const PayloadTooLarge = "1400"
const PayloadTooLargeMsg = "Request body exceeds $limit bytes"

func NewSchemaParseError(path string, reason string) *CustomError {
	if path == "" {
		path = "#"
	}
	return &CustomError{
		Status:  http.StatusBadRequest,
		Code:    SchemaParseError,
		Message: SchemaParseErrorMsg,
		Params:  map[string]interface{}{"path": path, "reason": reason},
	}
}

func NewUnsupportedFormat(file string, reason string) *CustomError {
	return &CustomError{
		Status:  http.StatusBadRequest,
		Code:    UnsupportedFormat,
		Message: UnsupportedFormatMsg,
		Params:  map[string]interface{}{"file": file, "reason": reason},
	}
}

func NewMalformedRow(row int, reason string) *CustomError {
	return &CustomError{
		Status:  http.StatusUnprocessableEntity,
		Code:    MalformedRow,
		Message: MalformedRowMsg,
		Params:  map[string]interface{}{"row": row, "reason": reason},
	}
}

func NewDatasetUnavailable(runId string) *CustomError {
	return &CustomError{
		Status:  http.StatusGone,
		Code:    DatasetUnavailable,
		Message: DatasetUnavailableMsg,
		Params:  map[string]interface{}{"id": runId},
	}
}

func NewSuggestionUnavailable(err error) *CustomError {
	reason := "unknown error"
	if err != nil {
		reason = err.Error()
	}
	return &CustomError{
		Status:  http.StatusServiceUnavailable,
		Code:    SuggestionUnavailable,
		Message: SuggestionUnavailableMsg,
		Params:  map[string]interface{}{"reason": reason},
	}
}
