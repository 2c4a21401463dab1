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

// Package schema turns a data contract (a subset of JSON Schema) into an ordered,
// read-only list of field constraints and resolves field paths inside data rows.
package schema

import (
	"regexp"
	"strconv"
	"strings"
)

type ConstraintKind string

const (
	KindType      ConstraintKind = "type"
	KindRequired  ConstraintKind = "required"
	KindEnum      ConstraintKind = "enum"
	KindMinimum   ConstraintKind = "minimum"
	KindMaximum   ConstraintKind = "maximum"
	KindMinLength ConstraintKind = "minLength"
	KindMaxLength ConstraintKind = "maxLength"
	KindNullable  ConstraintKind = "nullable"
	KindPattern   ConstraintKind = "pattern"

	// KindMalformedRow is never declared by a schema, it marks rows that could not be evaluated.
	KindMalformedRow ConstraintKind = "MalformedRow"
)

// Severity orders constraint kinds for gap ranking, lower is more severe.
func (k ConstraintKind) Severity() int {
	switch k {
	case KindMalformedRow:
		return 0
	case KindRequired, KindType:
		return 1
	case KindNullable:
		return 2
	case KindEnum:
		return 3
	case KindMinimum, KindMaximum, KindMinLength, KindMaxLength:
		return 4
	case KindPattern:
		return 5
	}
	return 6
}

const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeObject  = "object"
	TypeArray   = "array"
	TypeNull    = "null"
)

var knownTypes = map[string]bool{
	TypeString:  true,
	TypeInteger: true,
	TypeNumber:  true,
	TypeBoolean: true,
	TypeObject:  true,
	TypeArray:   true,
	TypeNull:    true,
}

// Segment is one step of a field path: a property name or an "every array element" step.
type Segment struct {
	Name  string
	Items bool
}

// FieldConstraint is one declared rule on one field path.
type FieldConstraint struct {
	Index    int            `json:"index"`
	Kind     ConstraintKind `json:"kind"`
	Path     string         `json:"path"`
	Segments []Segment      `json:"-"`

	Types    []string `json:"types,omitempty"`
	Enum     []any    `json:"enum,omitempty"`
	Bound    *float64 `json:"bound,omitempty"`
	Length   *int     `json:"length,omitempty"`
	Nullable *bool    `json:"nullable,omitempty"`
	Pattern  string   `json:"pattern,omitempty"`

	re *regexp.Regexp
}

func (c FieldConstraint) Regexp() *regexp.Regexp {
	return c.re
}

// Describe renders the constraint parameters in a compact human readable form.
func (c FieldConstraint) Describe() string {
	switch c.Kind {
	case KindType:
		return "type: " + strings.Join(c.Types, "|")
	case KindRequired:
		return "required"
	case KindEnum:
		vals := make([]string, 0, len(c.Enum))
		for _, v := range c.Enum {
			vals = append(vals, FormatValue(v))
		}
		return "enum: [" + strings.Join(vals, ", ") + "]"
	case KindMinimum, KindMaximum:
		if c.Bound != nil {
			return string(c.Kind) + ": " + strconv.FormatFloat(*c.Bound, 'f', -1, 64)
		}
	case KindMinLength, KindMaxLength:
		if c.Length != nil {
			return string(c.Kind) + ": " + strconv.Itoa(*c.Length)
		}
	case KindNullable:
		if c.Nullable != nil {
			return "nullable: " + strconv.FormatBool(*c.Nullable)
		}
	case KindPattern:
		return "pattern: " + c.Pattern
	}
	return string(c.Kind)
}

// Model is the ordered, read-only set of constraints of one schema.
type Model struct {
	constraints []FieldConstraint
	byPath      map[string][]int
	paths       []string
}

func (m *Model) Constraints() []FieldConstraint {
	return m.constraints
}

func (m *Model) Len() int {
	return len(m.constraints)
}

func (m *Model) Constraint(i int) FieldConstraint {
	return m.constraints[i]
}

// Paths returns the field paths in declaration order.
func (m *Model) Paths() []string {
	return m.paths
}

// ForPath returns the constraints declared on a field path in declaration order.
func (m *Model) ForPath(path string) []FieldConstraint {
	idx := m.byPath[path]
	result := make([]FieldConstraint, 0, len(idx))
	for _, i := range idx {
		result = append(result, m.constraints[i])
	}
	return result
}

// HasKind reports whether the field path declares a constraint of the given kind.
func (m *Model) HasKind(path string, kind ConstraintKind) bool {
	for _, i := range m.byPath[path] {
		if m.constraints[i].Kind == kind {
			return true
		}
	}
	return false
}

func (m *Model) add(c FieldConstraint) {
	c.Index = len(m.constraints)
	if _, ok := m.byPath[c.Path]; !ok {
		m.paths = append(m.paths, c.Path)
	}
	m.byPath[c.Path] = append(m.byPath[c.Path], c.Index)
	m.constraints = append(m.constraints, c)
}

func newModel() *Model {
	return &Model{byPath: make(map[string][]int)}
}

func appendName(segs []Segment, name string) []Segment {
	out := make([]Segment, len(segs), len(segs)+1)
	copy(out, segs)
	return append(out, Segment{Name: name})
}

func appendItems(segs []Segment) []Segment {
	out := make([]Segment, len(segs), len(segs)+1)
	copy(out, segs)
	return append(out, Segment{Items: true})
}

// JoinPath renders segments using dot notation for properties and [] for array elements.
func JoinPath(segs []Segment) string {
	var sb strings.Builder
	for i, s := range segs {
		if s.Items {
			sb.WriteString("[]")
			continue
		}
		if i > 0 {
			sb.WriteString(".")
		}
		sb.WriteString(s.Name)
	}
	return sb.String()
}
