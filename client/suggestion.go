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
	"time"
)

// Prompt is a single request to an assistant. ResponseSchema is a hint for providers
// that support structured output, the answer is always returned as text.
type Prompt struct {
	System         string
	User           string
	ResponseName   string
	ResponseSchema interface{}
}

// SuggestionClient is the prompt-in, text-out contract of an AI assistant.
type SuggestionClient interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
	Provider() string
}

type SuggestionClientConfig struct {
	Provider     string
	OpenaiApiKey string
	OpenaiModel  string
	OpenaiProxy  string
	GeminiApiKey string
	GeminiModel  string
	Timeout      time.Duration
	Retry        RetryPolicy
}

// NewSuggestionClient builds the configured provider wrapped with retries.
// An empty provider means AI features are disabled and nil is returned.
func NewSuggestionClient(ctx context.Context, conf SuggestionClientConfig) (SuggestionClient, error) {
	var cl SuggestionClient
	var err error
	switch conf.Provider {
	case "":
		return nil, nil
	case ProviderOpenai:
		cl, err = NewOpenaiClient(conf.OpenaiApiKey, conf.OpenaiModel, conf.OpenaiProxy, conf.Timeout)
	case ProviderGemini:
		cl, err = NewGeminiClient(ctx, conf.GeminiApiKey, conf.GeminiModel)
	default:
		return nil, fmt.Errorf("unknown AI provider '%s'", conf.Provider)
	}
	if err != nil {
		return nil, err
	}
	return NewRetryClient(cl, conf.Retry), nil
}
