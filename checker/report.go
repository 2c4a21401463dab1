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
	"fmt"
	"sort"

	"github.com/Netcracker/qubership-data-contract-validator/schema"
)

type Status string

const (
	StatusPass     Status = "PASS"
	StatusWarnings Status = "WARNINGS"
	StatusFail     Status = "FAIL"
)

type GapReason string

const (
	GapUntested         GapReason = "untested"
	GapBelowThreshold   GapReason = "below_threshold"
	GapPartialEnum      GapReason = "partial_enum"
	GapBoundaryUntested GapReason = "boundary_untested"
)

func (r GapReason) rank() int {
	switch r {
	case GapUntested, GapBelowThreshold:
		return 0
	case GapPartialEnum:
		return 1
	}
	return 2
}

// CoverageGap is a constraint the dataset did not exercise enough.
type CoverageGap struct {
	Constraint schema.FieldConstraint `json:"constraint"`
	Reason     GapReason              `json:"reason"`
	HitCount   int                    `json:"hitCount"`
	Threshold  int                    `json:"threshold"`
	Missing    []any                  `json:"missing,omitempty"`
	Message    string                 `json:"message"`
}

// RowStatus is the pass/fail state of one row.
type RowStatus struct {
	Row        int  `json:"row"`
	Pass       bool `json:"pass"`
	Violations int  `json:"violations"`
}

type Report struct {
	Status            Status                        `json:"status"`
	TotalRows         int                           `json:"totalRows"`
	PassingRows       int                           `json:"passingRows"`
	FailingRows       int                           `json:"failingRows"`
	PassRate          float64                       `json:"passRate"`
	Threshold         int                           `json:"threshold"`
	Rows              []RowStatus                   `json:"rows"`
	Violations        []ViolationRecord             `json:"violations"`
	ViolationsByKind  map[schema.ConstraintKind]int `json:"violationsByKind"`
	ViolationsByField map[string]int                `json:"violationsByField"`
	Coverage          []CoverageEntry               `json:"coverage"`
	Gaps              []CoverageGap                 `json:"gaps"`
	Warnings          []string                      `json:"warnings,omitempty"`
}

// FailedRows returns the indexes of failing rows in ascending order.
func (r Report) FailedRows() []int {
	var rows []int
	for _, rs := range r.Rows {
		if !rs.Pass {
			rows = append(rows, rs.Row)
		}
	}
	return rows
}

// ViolationsForRow returns the violations of one row in evaluation order.
func (r Report) ViolationsForRow(row int) []ViolationRecord {
	var result []ViolationRecord
	for _, v := range r.Violations {
		if v.Row == row {
			result = append(result, v)
		}
	}
	return result
}

// NormalizeThreshold raises thresholds below 1 to 1 so that unexercised rules are always gaps.
func NormalizeThreshold(threshold int) int {
	if threshold < 1 {
		return 1
	}
	return threshold
}

// FindGaps derives coverage gaps from coverage entries, in declaration order.
func FindGaps(entries []CoverageEntry, threshold int) []CoverageGap {
	threshold = NormalizeThreshold(threshold)
	var gaps []CoverageGap
	for _, e := range entries {
		gap := CoverageGap{Constraint: e.Constraint, HitCount: e.HitCount, Threshold: threshold}
		switch {
		case e.HitCount == 0:
			gap.Reason = GapUntested
			gap.Message = "no row exercised this rule"
		case e.HitCount < threshold:
			gap.Reason = GapBelowThreshold
			gap.Message = fmt.Sprintf("exercised by %d row(s), %d required", e.HitCount, threshold)
		case e.Constraint.Kind == schema.KindEnum && len(e.MissingEnum) > 0:
			gap.Reason = GapPartialEnum
			gap.Missing = e.MissingEnum
			gap.Message = fmt.Sprintf("%d of %d allowed values never observed", len(e.MissingEnum), len(e.Constraint.Enum))
		case e.BoundaryTested != nil && !*e.BoundaryTested:
			gap.Reason = GapBoundaryUntested
			gap.Message = boundaryMessage(e)
		default:
			continue
		}
		gaps = append(gaps, gap)
	}
	return gaps
}

func boundaryMessage(e CoverageEntry) string {
	observed := e.ObservedMax
	if e.Constraint.Kind == schema.KindMinimum {
		observed = e.ObservedMin
	}
	return fmt.Sprintf("no value near %s %s, closest observed %s",
		e.Constraint.Kind, schema.FormatBound(*e.Constraint.Bound), schema.FormatBound(*observed))
}

// RankGaps orders gaps by kind severity, then by reason, then by declaration order.
func RankGaps(gaps []CoverageGap) []CoverageGap {
	ranked := make([]CoverageGap, len(gaps))
	copy(ranked, gaps)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if sa, sb := a.Constraint.Kind.Severity(), b.Constraint.Kind.Severity(); sa != sb {
			return sa < sb
		}
		if ra, rb := a.Reason.rank(), b.Reason.rank(); ra != rb {
			return ra < rb
		}
		return a.Constraint.Index < b.Constraint.Index
	})
	return ranked
}

// BuildReport aggregates row results and coverage into a report.
// Results must be ordered by row index.
func BuildReport(results []RowResult, entries []CoverageEntry, threshold int) Report {
	threshold = NormalizeThreshold(threshold)
	report := Report{
		TotalRows:         len(results),
		Threshold:         threshold,
		Rows:              make([]RowStatus, 0, len(results)),
		Violations:        []ViolationRecord{},
		ViolationsByKind:  make(map[schema.ConstraintKind]int),
		ViolationsByField: make(map[string]int),
		Coverage:          entries,
	}

	for _, res := range results {
		report.Rows = append(report.Rows, RowStatus{Row: res.Index, Pass: res.Pass, Violations: len(res.Violations)})
		if res.Pass {
			report.PassingRows++
		} else {
			report.FailingRows++
		}
		for _, v := range res.Violations {
			report.Violations = append(report.Violations, v)
			report.ViolationsByKind[v.Kind()]++
			report.ViolationsByField[fieldKey(v)]++
		}
	}

	if report.TotalRows > 0 {
		report.PassRate = float64(report.PassingRows) / float64(report.TotalRows)
	} else {
		report.Warnings = append(report.Warnings, "no data rows were provided")
	}

	report.Gaps = RankGaps(FindGaps(entries, threshold))
	if report.Gaps == nil {
		report.Gaps = []CoverageGap{}
	}

	switch {
	case len(report.Violations) > 0:
		report.Status = StatusFail
	case len(report.Gaps) > 0 || report.TotalRows == 0:
		report.Status = StatusWarnings
	default:
		report.Status = StatusPass
	}
	return report
}

func fieldKey(v ViolationRecord) string {
	if v.Kind() == schema.KindMalformedRow {
		return "(row)"
	}
	return v.Constraint.Path
}
