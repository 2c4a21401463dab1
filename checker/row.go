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

// Package checker validates data rows against a schema model, tracks which constraints
// the rows exercised and aggregates both into a report.
package checker

import (
	"fmt"
	"unicode/utf8"

	"github.com/Netcracker/qubership-data-contract-validator/exception"
	"github.com/Netcracker/qubership-data-contract-validator/schema"
)

// DataRow is one record of the dataset keyed by top-level field name.
type DataRow map[string]any

// ViolationRecord is produced when a row fails a constraint.
type ViolationRecord struct {
	Row        int                    `json:"row"`
	Path       string                 `json:"path"`
	Constraint schema.FieldConstraint `json:"constraint"`
	Observed   any                    `json:"observed"`
	Message    string                 `json:"message"`
}

func (v ViolationRecord) Kind() schema.ConstraintKind {
	return v.Constraint.Kind
}

// Unreadable is a record the loader could not turn into an object.
type Unreadable struct {
	Raw    any
	Reason string
}

// Outcome records that a row exercised a constraint.
type Outcome struct {
	Constraint int
	Violated   bool
	Values     []any
}

// RowResult is the evaluation of one row.
type RowResult struct {
	Index      int
	Pass       bool
	Violations []ViolationRecord
	Outcomes   []Outcome
}

// Validator evaluates rows against one model. It holds only data derived from the
// model, so one instance can be shared between goroutines.
type Validator struct {
	model    *schema.Model
	enumSets map[int]map[string]bool
}

func NewValidator(model *schema.Model) *Validator {
	v := &Validator{model: model, enumSets: make(map[int]map[string]bool)}
	for _, c := range model.Constraints() {
		if c.Kind != schema.KindEnum {
			continue
		}
		set := make(map[string]bool, len(c.Enum))
		for _, e := range c.Enum {
			set[schema.CanonicalKey(e)] = true
		}
		v.enumSets[c.Index] = set
	}
	return v
}

func (v *Validator) Model() *schema.Model {
	return v.model
}

// ValidateRow checks one row against a model.
func ValidateRow(row DataRow, model *schema.Model) (bool, []ViolationRecord) {
	res := NewValidator(model).Evaluate(0, row)
	return res.Pass, res.Violations
}

// EvaluateRecord evaluates a decoded record. Records that are not objects, or whose
// evaluation fails unexpectedly, produce a single MalformedRow violation.
func (v *Validator) EvaluateRecord(index int, record any) (res RowResult) {
	defer func() {
		if r := recover(); r != nil {
			res = malformed(index, record, fmt.Sprintf("evaluation failed: %v", r))
		}
	}()

	switch row := record.(type) {
	case DataRow:
		return v.Evaluate(index, row)
	case map[string]any:
		return v.Evaluate(index, row)
	case Unreadable:
		return malformed(index, row.Raw, row.Reason)
	case nil:
		return malformed(index, record, "record is null")
	default:
		return malformed(index, record, fmt.Sprintf("record is %s, expected an object", schema.RuntimeType(record)))
	}
}

func malformed(index int, record any, reason string) RowResult {
	return RowResult{
		Index: index,
		Pass:  false,
		Violations: []ViolationRecord{{
			Row:        index,
			Constraint: schema.FieldConstraint{Index: -1, Kind: schema.KindMalformedRow},
			Observed:   record,
			Message:    exception.NewMalformedRow(index, reason).Error(),
		}},
	}
}

// Evaluate runs every constraint of the model, in declaration order, against the row.
func (v *Validator) Evaluate(index int, row DataRow) RowResult {
	res := RowResult{Index: index}
	for _, c := range v.model.Constraints() {
		lookups := schema.Resolve(row, c.Segments)
		exercised := false
		violated := false
		var values []any
		for _, l := range lookups {
			applicable, message := v.check(c, l)
			if !applicable {
				continue
			}
			exercised = true
			if l.State == schema.Present || (l.State == schema.Null && c.Kind == schema.KindEnum) {
				values = append(values, l.Value)
			}
			if message != "" {
				violated = true
				res.Violations = append(res.Violations, ViolationRecord{
					Row:        index,
					Path:       l.Path,
					Constraint: c,
					Observed:   l.Value,
					Message:    message,
				})
			}
		}
		if exercised {
			res.Outcomes = append(res.Outcomes, Outcome{Constraint: c.Index, Violated: violated, Values: values})
		}
	}
	res.Pass = len(res.Violations) == 0
	return res
}

// check returns whether the constraint applies to the lookup and, if it was violated, why.
func (v *Validator) check(c schema.FieldConstraint, l schema.Lookup) (bool, string) {
	switch c.Kind {
	case schema.KindRequired:
		if l.State == schema.Absent {
			return true, "required field is missing"
		}
		return true, ""

	case schema.KindType:
		switch l.State {
		case schema.Absent:
			return false, ""
		case schema.Null:
			if v.model.HasKind(c.Path, schema.KindNullable) {
				return false, ""
			}
			for _, t := range c.Types {
				if t == schema.TypeNull {
					return true, ""
				}
			}
			return true, fmt.Sprintf("expected %s, got null", typesText(c.Types))
		}
		for _, t := range c.Types {
			if schema.MatchesType(l.Value, t) {
				return true, ""
			}
		}
		return true, fmt.Sprintf("expected %s, got %s", typesText(c.Types), schema.RuntimeType(l.Value))

	case schema.KindNullable:
		switch l.State {
		case schema.Absent:
			return false, ""
		case schema.Null:
			if c.Nullable != nil && !*c.Nullable {
				return true, "null is not allowed"
			}
		}
		return true, ""

	case schema.KindEnum:
		// null is an ordinary member of the enumeration
		if l.State == schema.Absent {
			return false, ""
		}
		if !v.enumSets[c.Index][schema.CanonicalKey(l.Value)] {
			return true, fmt.Sprintf("value %s is not one of the allowed values", schema.FormatValue(l.Value))
		}
		return true, ""
	}

	if l.State != schema.Present {
		return false, ""
	}

	switch c.Kind {
	case schema.KindMinimum, schema.KindMaximum:
		f, ok := schema.ToFloat(l.Value)
		if !ok {
			return true, fmt.Sprintf("expected a number to compare with %s, got %s", c.Kind, schema.RuntimeType(l.Value))
		}
		if c.Kind == schema.KindMinimum && f < *c.Bound {
			return true, fmt.Sprintf("value %s is less than minimum %s", schema.FormatValue(f), schema.FormatBound(*c.Bound))
		}
		if c.Kind == schema.KindMaximum && f > *c.Bound {
			return true, fmt.Sprintf("value %s is greater than maximum %s", schema.FormatValue(f), schema.FormatBound(*c.Bound))
		}
		return true, ""

	case schema.KindMinLength, schema.KindMaxLength:
		var n int
		switch t := l.Value.(type) {
		case string:
			n = utf8.RuneCountInString(t)
		case []any:
			n = len(t)
		default:
			return false, ""
		}
		if c.Kind == schema.KindMinLength && n < *c.Length {
			return true, fmt.Sprintf("length %d is less than minLength %d", n, *c.Length)
		}
		if c.Kind == schema.KindMaxLength && n > *c.Length {
			return true, fmt.Sprintf("length %d is greater than maxLength %d", n, *c.Length)
		}
		return true, ""

	case schema.KindPattern:
		s, ok := l.Value.(string)
		if !ok {
			return false, ""
		}
		if re := c.Regexp(); re != nil && !re.MatchString(s) {
			return true, fmt.Sprintf("value %s does not match pattern %s", schema.FormatValue(s), c.Pattern)
		}
		return true, ""
	}
	return false, ""
}

func typesText(types []string) string {
	if len(types) == 1 {
		return types[0]
	}
	return fmt.Sprintf("one of %v", types)
}
