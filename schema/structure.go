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

package schema

import (
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

func intPtr(i int) *int {
	return &i
}

// contractMetaSchema is the minimal shape every uploaded data contract is expected to have.
var contractMetaSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"$schema":     {Type: "string"},
		"title":       {Type: "string"},
		"description": {Type: "string"},
		"type":        {Type: "string", Enum: []any{"object"}},
		"properties":  {Type: "object", MinProperties: intPtr(1)},
		"required":    {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
	},
	Required: []string{"type", "properties"},
}

var (
	resolveOnce      sync.Once
	resolvedContract *jsonschema.Resolved
	resolveErr       error
)

// CheckStructure validates the contract document against the contract meta-schema.
// Problems are returned as warnings: the model builder is the one that rejects documents.
func CheckStructure(doc *yaml.Node) []string {
	resolveOnce.Do(func() {
		resolvedContract, resolveErr = contractMetaSchema.Resolve(nil)
	})
	if resolveErr != nil {
		log.Errorf("Contract meta-schema is invalid: %s", resolveErr.Error())
		return nil
	}

	root := unwrapDocument(doc)
	if root == nil {
		return []string{"schema document is empty"}
	}
	var instance any
	if err := root.Decode(&instance); err != nil {
		return []string{err.Error()}
	}
	if err := resolvedContract.Validate(normalizeDecoded(instance)); err != nil {
		log.Debugf("Schema structure check failed: %s", err.Error())
		return []string{err.Error()}
	}
	return nil
}
