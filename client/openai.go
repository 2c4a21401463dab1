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
	"errors"
	"net/http"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	log "github.com/sirupsen/logrus"
)

const ProviderOpenai = "openai"

func NewOpenaiClient(apiKey string, model string, proxy string, timeout time.Duration) (SuggestionClient, error) {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	} else {
		return nil, errors.New("openai: api key is required")
	}

	if proxy != "" {
		opts = append(opts, option.WithBaseURL(proxy))
	}

	var openAIModel openai.ChatModel
	if model != "" {
		openAIModel = model
	} else {
		openAIModel = openai.ChatModelGPT5
	}

	tr := http.Transport{
		TLSHandshakeTimeout:   timeout,
		IdleConnTimeout:       timeout,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: time.Second,
	}
	cl := http.Client{Transport: &tr, Timeout: timeout}

	// retries are done by the RetryClient wrapper
	opts = append(opts, option.WithHTTPClient(&cl), option.WithMaxRetries(0))

	return &oaiClientImpl{
		client: openai.NewClient(opts...),
		model:  openAIModel,
	}, nil
}

type oaiClientImpl struct {
	client openai.Client
	model  openai.ChatModel
}

func (l oaiClientImpl) Provider() string {
	return ProviderOpenai
}

func (l oaiClientImpl) Complete(ctx context.Context, prompt Prompt) (string, error) {
	start := time.Now()
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(prompt.System),
		openai.UserMessage(prompt.User),
	}

	params := openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    l.model,
	}
	if prompt.ResponseSchema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:   prompt.ResponseName,
				Schema: prompt.ResponseSchema,
				Strict: openai.Bool(false),
			}},
		}
	}

	log.Debugf("run %s completion with openai client", prompt.ResponseName)
	chat, err := l.client.Chat.Completions.New(ctx, params)
	log.Infof("finished %s completion with openai client, it took %dms", prompt.ResponseName, time.Since(start).Milliseconds())
	if err != nil {
		return "", err
	}
	if len(chat.Choices) == 0 {
		return "", errors.New("openai: empty response")
	}
	return chat.Choices[0].Message.Content, nil
}

// GenerateSchema reflects the JSON schema used as structured output format.
func GenerateSchema[T any]() interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	return schema
}

func openaiStatus(err error) (int, bool) {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode, true
	}
	return 0, false
}
