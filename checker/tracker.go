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

package checker

import (
	"math"

	"github.com/Netcracker/qubership-data-contract-validator/schema"
)

// boundaryFallbackTolerance applies when only one of minimum/maximum is declared.
const boundaryFallbackTolerance = 0.01

// boundaryRangeShare is the share of (maximum - minimum) used as boundary tolerance.
const boundaryRangeShare = 0.01

// CoverageEntry is the coverage of one constraint.
type CoverageEntry struct {
	Constraint     schema.FieldConstraint `json:"constraint"`
	HitCount       int                    `json:"hitCount"`
	ViolationCount int                    `json:"violationCount"`

	ObservedEnum   []any    `json:"observedEnum,omitempty"`
	MissingEnum    []any    `json:"missingEnum,omitempty"`
	ObservedMin    *float64 `json:"observedMin,omitempty"`
	ObservedMax    *float64 `json:"observedMax,omitempty"`
	BoundaryTested *bool    `json:"boundaryTested,omitempty"`
}

type coverageState struct {
	hits       int
	violations int
	observed   map[string]bool
	min        float64
	max        float64
	numeric    bool
}

// Tracker accumulates per-constraint coverage. A Tracker is not safe for concurrent use,
// parallel evaluation gives each worker its own Tracker and merges them at the end.
type Tracker struct {
	model  *schema.Model
	states []coverageState
}

func NewTracker(model *schema.Model) *Tracker {
	t := &Tracker{model: model, states: make([]coverageState, model.Len())}
	for i := range t.states {
		t.states[i].observed = make(map[string]bool)
	}
	return t
}

// Record adds the outcomes of one evaluated row. Each constraint is counted at most once per row.
func (t *Tracker) Record(res RowResult) {
	for _, o := range res.Outcomes {
		if o.Constraint < 0 || o.Constraint >= len(t.states) {
			continue
		}
		st := &t.states[o.Constraint]
		st.hits++
		if o.Violated {
			st.violations++
		}
		switch t.model.Constraint(o.Constraint).Kind {
		case schema.KindEnum:
			for _, v := range o.Values {
				st.observed[schema.CanonicalKey(v)] = true
			}
		case schema.KindMinimum, schema.KindMaximum:
			for _, v := range o.Values {
				if f, ok := schema.ToFloat(v); ok {
					st.observe(f)
				}
			}
		}
	}
}

func (st *coverageState) observe(f float64) {
	if !st.numeric {
		st.min, st.max, st.numeric = f, f, true
		return
	}
	st.min = math.Min(st.min, f)
	st.max = math.Max(st.max, f)
}

// Merge folds the counts of another tracker built for the same model into t.
func (t *Tracker) Merge(other *Tracker) {
	if other == nil {
		return
	}
	for i := range t.states {
		if i >= len(other.states) {
			break
		}
		src := other.states[i]
		dst := &t.states[i]
		dst.hits += src.hits
		dst.violations += src.violations
		for k := range src.observed {
			dst.observed[k] = true
		}
		if src.numeric {
			dst.observe(src.min)
			dst.observe(src.max)
		}
	}
}

// Entries returns one coverage entry per constraint in declaration order.
func (t *Tracker) Entries() []CoverageEntry {
	entries := make([]CoverageEntry, 0, len(t.states))
	for i, st := range t.states {
		c := t.model.Constraint(i)
		entry := CoverageEntry{Constraint: c, HitCount: st.hits, ViolationCount: st.violations}

		switch c.Kind {
		case schema.KindEnum:
			for _, v := range c.Enum {
				if st.observed[schema.CanonicalKey(v)] {
					entry.ObservedEnum = append(entry.ObservedEnum, v)
				} else {
					entry.MissingEnum = append(entry.MissingEnum, v)
				}
			}
		case schema.KindMinimum, schema.KindMaximum:
			if st.numeric {
				lo, hi := st.min, st.max
				entry.ObservedMin = &lo
				entry.ObservedMax = &hi
				tested := t.boundaryTested(c, st)
				entry.BoundaryTested = &tested
			}
		}
		entries = append(entries, entry)
	}
	return entries
}

// boundaryTested reports whether the observed extreme on the bound side lies within
// tolerance of the declared bound.
func (t *Tracker) boundaryTested(c schema.FieldConstraint, st coverageState) bool {
	tolerance := boundaryFallbackTolerance
	if lo, hi, ok := t.declaredRange(c.Path); ok {
		tolerance = boundaryRangeShare * (hi - lo)
	}
	if c.Kind == schema.KindMinimum {
		return math.Abs(st.min-*c.Bound) <= tolerance
	}
	return math.Abs(st.max-*c.Bound) <= tolerance
}

func (t *Tracker) declaredRange(path string) (float64, float64, bool) {
	var lo, hi *float64
	for _, c := range t.model.ForPath(path) {
		switch c.Kind {
		case schema.KindMinimum:
			lo = c.Bound
		case schema.KindMaximum:
			hi = c.Bound
		}
	}
	if lo == nil || hi == nil {
		return 0, 0, false
	}
	return *lo, *hi, true
}
