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

package client

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/resty.v1"

	"github.com/Netcracker/qubership-data-contract-validator/exception"
	"github.com/Netcracker/qubership-data-contract-validator/secctx"
)

// RemoteFileClient downloads schema and data files referenced by URL.
type RemoteFileClient interface {
	Download(ctx context.Context, fileUrl string) (*RemoteFile, error)
}

type RemoteFile struct {
	Name string
	Data []byte
}

func NewRemoteFileClient(timeout time.Duration, maxSize int64) RemoteFileClient {
	cl := http.Client{Timeout: timeout}
	client := resty.NewWithClient(&cl)
	return &remoteFileClientImpl{client: client, maxSize: maxSize}
}

type remoteFileClientImpl struct {
	client  *resty.Client
	maxSize int64
}

var contentTypeExtensions = map[string]string{
	"application/json":   ".json",
	"text/json":          ".json",
	"application/yaml":   ".yaml",
	"application/x-yaml": ".yaml",
	"text/yaml":          ".yaml",
	"text/x-yaml":        ".yaml",
	"text/csv":           ".csv",
	"application/csv":    ".csv",
}

func (r remoteFileClientImpl) Download(ctx context.Context, fileUrl string) (*RemoteFile, error) {
	start := time.Now()
	parsed, err := url.Parse(fileUrl)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, &exception.CustomError{
			Status:  http.StatusBadRequest,
			Code:    exception.InvalidParameterValue,
			Message: exception.InvalidParameterValueMsg,
			Params:  map[string]interface{}{"param": "url", "value": fileUrl},
		}
	}

	resp, err := r.makeRequest(ctx).Get(fileUrl)
	if err != nil {
		return nil, remoteFileError(fileUrl, err.Error())
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, remoteFileError(fileUrl, fmt.Sprintf("status code %d", resp.StatusCode()))
	}
	body := resp.Body()
	if r.maxSize > 0 && int64(len(body)) > r.maxSize {
		return nil, remoteFileError(fileUrl, fmt.Sprintf("file is larger than %d bytes", r.maxSize))
	}

	name := path.Base(parsed.Path)
	if name == "." || name == "/" {
		name = "download"
	}
	if path.Ext(name) == "" {
		name += extensionFor(resp.Header().Get("Content-Type"))
	}
	log.Infof("Downloaded %s (%d bytes) in %dms", fileUrl, len(body), time.Since(start).Milliseconds())
	return &RemoteFile{Name: name, Data: body}, nil
}

func (r remoteFileClientImpl) makeRequest(ctx context.Context) *resty.Request {
	req := r.client.R()
	req.SetContext(ctx)
	if userId := secctx.GetUserId(ctx); userId != "" {
		req.SetHeader("X-Requested-By", userId)
	}
	return req
}

func extensionFor(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return contentTypeExtensions[strings.ToLower(mediaType)]
}

func remoteFileError(fileUrl string, reason string) error {
	return &exception.CustomError{
		Status:  http.StatusBadGateway,
		Code:    exception.RemoteFileUnavailable,
		Message: exception.RemoteFileUnavailableMsg,
		Params:  map[string]interface{}{"url": fileUrl, "reason": reason},
	}
}
