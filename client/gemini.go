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
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
)

const ProviderGemini = "gemini"

const defaultGeminiModel = "gemini-1.5-flash-latest"

type geminiClientImpl struct {
	llm   llms.Model
	model string
}

func NewGeminiClient(ctx context.Context, apiKey string, model string) (SuggestionClient, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	if model == "" {
		model = defaultGeminiModel
	}
	llm, err := googleai.New(ctx, googleai.WithAPIKey(apiKey), googleai.WithDefaultModel(model))
	if err != nil {
		return nil, err
	}
	return &geminiClientImpl{llm: llm, model: model}, nil
}

func (g geminiClientImpl) Provider() string {
	return ProviderGemini
}

func (g geminiClientImpl) Complete(ctx context.Context, prompt Prompt) (string, error) {
	start := time.Now()
	var sb strings.Builder
	if prompt.System != "" {
		sb.WriteString(prompt.System)
		sb.WriteString("\n\n")
	}
	sb.WriteString(prompt.User)

	text, err := llms.GenerateFromSinglePrompt(ctx, g.llm, sb.String(), llms.WithModel(g.model))
	log.Infof("finished %s completion with gemini client, it took %dms", prompt.ResponseName, time.Since(start).Milliseconds())
	if err != nil {
		return "", err
	}
	return text, nil
}
