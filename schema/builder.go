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
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/Netcracker/qubership-data-contract-validator/exception"
	"gopkg.in/yaml.v3"
)

// Build walks an ordered schema document and returns its constraint model.
// Properties keep their declaration order, so violations come out in the same order
// the contract author wrote the fields.
func Build(doc *yaml.Node) (*Model, error) {
	root := unwrapDocument(doc)
	if root == nil || root.Kind != yaml.MappingNode {
		return nil, exception.NewSchemaParseError("", "schema document must be a mapping")
	}

	if typeNode := mappingValue(root, "type"); typeNode != nil {
		types, _, err := parseTypes(typeNode, "")
		if err != nil {
			return nil, err
		}
		if len(types) != 1 || types[0] != TypeObject {
			return nil, exception.NewSchemaParseError("", "root schema must describe an object")
		}
	}

	model := newModel()
	b := builder{model: model}
	if err := b.walkObject(root, nil); err != nil {
		return nil, err
	}
	return model, nil
}

// BuildFromValue builds a model from an already decoded document (map[string]any).
// Map keys are visited in the order yaml.v3 encodes them, which is sorted.
func BuildFromValue(doc any) (*Model, error) {
	if _, ok := doc.(map[string]any); !ok {
		return nil, exception.NewSchemaParseError("", "schema document must be a mapping")
	}
	var node yaml.Node
	if err := node.Encode(doc); err != nil {
		return nil, exception.NewSchemaParseError("", err.Error())
	}
	return Build(&node)
}

type builder struct {
	model *Model
}

// walkObject emits constraints for every property of an object schema node.
func (b *builder) walkObject(node *yaml.Node, prefix []Segment) error {
	required, err := parseRequired(node, JoinPath(prefix))
	if err != nil {
		return err
	}

	declared := make(map[string]bool)
	propsNode := mappingValue(node, "properties")
	if propsNode != nil {
		if propsNode.Kind != yaml.MappingNode {
			return exception.NewSchemaParseError(joinOrRoot(prefix, "properties"), "properties must be a mapping")
		}
		for i := 0; i+1 < len(propsNode.Content); i += 2 {
			name := propsNode.Content[i].Value
			declared[name] = true
			segs := appendName(prefix, name)
			if err := b.walkField(propsNode.Content[i+1], segs, required[name]); err != nil {
				return err
			}
		}
	}

	// required names without a property declaration still get a presence check
	for _, name := range requiredOrder(node) {
		if declared[name] {
			continue
		}
		segs := appendName(prefix, name)
		b.model.add(FieldConstraint{Kind: KindRequired, Path: JoinPath(segs), Segments: segs})
	}
	return nil
}

func (b *builder) walkField(node *yaml.Node, segs []Segment, required bool) error {
	path := JoinPath(segs)
	node = unwrapDocument(node)
	if node == nil {
		return exception.NewSchemaParseError(path, "field schema is empty")
	}

	if node.Kind == yaml.ScalarNode && node.Tag == "!!bool" {
		// boolean schemas carry no field level rules
		if required {
			b.model.add(FieldConstraint{Kind: KindRequired, Path: path, Segments: segs})
		}
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return exception.NewSchemaParseError(path, "field schema must be a mapping")
	}

	if required {
		b.model.add(FieldConstraint{Kind: KindRequired, Path: path, Segments: segs})
	}

	var types []string
	nullable := (*bool)(nil)
	if typeNode := mappingValue(node, "type"); typeNode != nil {
		var hasNull bool
		var err error
		types, hasNull, err = parseTypes(typeNode, path)
		if err != nil {
			return err
		}
		if hasNull && len(types) > 0 {
			allowed := true
			nullable = &allowed
		}
		if hasNull && len(types) == 0 {
			types = []string{TypeNull}
		}
	}
	if len(types) > 0 {
		b.model.add(FieldConstraint{Kind: KindType, Path: path, Segments: segs, Types: types})
	}

	if nullNode := mappingValue(node, "nullable"); nullNode != nil {
		if nullNode.Kind != yaml.ScalarNode || nullNode.Tag != "!!bool" {
			return exception.NewSchemaParseError(path, "nullable must be a boolean")
		}
		allowed := nullNode.Value == "true"
		if nullable == nil || !allowed {
			// explicit false wins over a type list mentioning null
			nullable = &allowed
		}
	}
	if nullable != nil {
		b.model.add(FieldConstraint{Kind: KindNullable, Path: path, Segments: segs, Nullable: nullable})
	}

	if enumNode := mappingValue(node, "enum"); enumNode != nil {
		values, err := parseEnum(enumNode, path)
		if err != nil {
			return err
		}
		b.model.add(FieldConstraint{Kind: KindEnum, Path: path, Segments: segs, Enum: values})
	}

	for _, kind := range []ConstraintKind{KindMinimum, KindMaximum} {
		boundNode := mappingValue(node, string(kind))
		if boundNode == nil {
			continue
		}
		bound, err := parseNumber(boundNode)
		if err != nil {
			return exception.NewSchemaParseError(path, fmt.Sprintf("%s must be numeric, got '%s'", kind, boundNode.Value))
		}
		b.model.add(FieldConstraint{Kind: kind, Path: path, Segments: segs, Bound: &bound})
	}

	lengthKeys := []struct {
		kind    ConstraintKind
		aliases []string
	}{
		{KindMinLength, []string{"minLength", "minItems"}},
		{KindMaxLength, []string{"maxLength", "maxItems"}},
	}
	for _, lk := range lengthKeys {
		for _, key := range lk.aliases {
			lengthNode := mappingValue(node, key)
			if lengthNode == nil {
				continue
			}
			length, err := parseLength(lengthNode)
			if err != nil {
				return exception.NewSchemaParseError(path, fmt.Sprintf("%s must be a non-negative integer, got '%s'", key, lengthNode.Value))
			}
			b.model.add(FieldConstraint{Kind: lk.kind, Path: path, Segments: segs, Length: &length})
			break
		}
	}

	if patternNode := mappingValue(node, "pattern"); patternNode != nil {
		if patternNode.Kind != yaml.ScalarNode {
			return exception.NewSchemaParseError(path, "pattern must be a string")
		}
		re, err := regexp.Compile(patternNode.Value)
		if err != nil {
			return exception.NewSchemaParseError(path, fmt.Sprintf("pattern does not compile: %s", err.Error()))
		}
		b.model.add(FieldConstraint{Kind: KindPattern, Path: path, Segments: segs, Pattern: patternNode.Value, re: re})
	}

	if mappingValue(node, "properties") != nil || mappingValue(node, "required") != nil {
		if err := b.walkObject(node, segs); err != nil {
			return err
		}
	}

	if itemsNode := mappingValue(node, "items"); itemsNode != nil {
		itemsNode = unwrapDocument(itemsNode)
		if itemsNode.Kind != yaml.MappingNode {
			return exception.NewSchemaParseError(path+"[]", "items must be a mapping")
		}
		if err := b.walkField(itemsNode, appendItems(segs), false); err != nil {
			return err
		}
	}
	return nil
}

func parseTypes(node *yaml.Node, path string) ([]string, bool, error) {
	var names []string
	switch node.Kind {
	case yaml.ScalarNode:
		names = []string{node.Value}
	case yaml.SequenceNode:
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return nil, false, exception.NewSchemaParseError(path, "type list must contain type names")
			}
			names = append(names, item.Value)
		}
	default:
		return nil, false, exception.NewSchemaParseError(path, "type must be a name or a list of names")
	}

	var types []string
	hasNull := false
	for _, name := range names {
		if !knownTypes[name] {
			return nil, false, exception.NewSchemaParseError(path, fmt.Sprintf("unrecognized type '%s'", name))
		}
		if name == TypeNull {
			hasNull = true
			continue
		}
		types = append(types, name)
	}
	return types, hasNull, nil
}

func parseRequired(node *yaml.Node, path string) (map[string]bool, error) {
	result := make(map[string]bool)
	reqNode := mappingValue(node, "required")
	if reqNode == nil {
		return result, nil
	}
	if reqNode.Kind != yaml.SequenceNode {
		return nil, exception.NewSchemaParseError(path, "required must be a list of property names")
	}
	for _, item := range reqNode.Content {
		if item.Kind != yaml.ScalarNode || (item.Tag != "!!str" && item.Tag != "") {
			return nil, exception.NewSchemaParseError(path, "required must be a list of property names")
		}
		result[item.Value] = true
	}
	return result, nil
}

func requiredOrder(node *yaml.Node) []string {
	reqNode := mappingValue(node, "required")
	if reqNode == nil {
		return nil
	}
	names := make([]string, 0, len(reqNode.Content))
	for _, item := range reqNode.Content {
		names = append(names, item.Value)
	}
	return names
}

func parseEnum(node *yaml.Node, path string) ([]any, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, exception.NewSchemaParseError(path, "enum must be a list")
	}
	if len(node.Content) == 0 {
		return nil, exception.NewSchemaParseError(path, "enum must not be empty")
	}
	values := make([]any, 0, len(node.Content))
	for _, item := range node.Content {
		var v any
		if err := item.Decode(&v); err != nil {
			return nil, exception.NewSchemaParseError(path, fmt.Sprintf("enum value is invalid: %s", err.Error()))
		}
		values = append(values, normalizeDecoded(v))
	}
	return values, nil
}

func parseNumber(node *yaml.Node) (float64, error) {
	if node.Kind != yaml.ScalarNode || (node.Tag != "!!int" && node.Tag != "!!float") {
		return 0, fmt.Errorf("not a number")
	}
	var f float64
	if err := node.Decode(&f); err != nil {
		return 0, err
	}
	return f, nil
}

func parseLength(node *yaml.Node) (int, error) {
	f, err := parseNumber(node)
	if err != nil {
		return 0, err
	}
	if f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, fmt.Errorf("not a non-negative integer")
	}
	return int(f), nil
}

// normalizeDecoded converts yaml map[string]interface{} trees to the shapes the JSON decoder produces.
func normalizeDecoded(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = normalizeDecoded(vv)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[fmt.Sprintf("%v", k)] = normalizeDecoded(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = normalizeDecoded(t[i])
		}
		return out
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	}
	return v
}

func unwrapDocument(node *yaml.Node) *yaml.Node {
	for node != nil && (node.Kind == yaml.DocumentNode || node.Kind == yaml.AliasNode) {
		if node.Kind == yaml.AliasNode {
			node = node.Alias
			continue
		}
		if len(node.Content) == 0 {
			return nil
		}
		node = node.Content[0]
	}
	return node
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return unwrapDocument(node.Content[i+1])
		}
	}
	return nil
}

func joinOrRoot(segs []Segment, key string) string {
	if len(segs) == 0 {
		return key
	}
	return JoinPath(segs) + "." + key
}

// FormatBound is used by exports to print numeric limits without trailing zeros.
func FormatBound(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
