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

// Package export renders validation runs as Markdown and CSV documents.
package export

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/goccy/go-json"

	"github.com/Netcracker/qubership-data-contract-validator/checker"
	"github.com/Netcracker/qubership-data-contract-validator/schema"
	"github.com/Netcracker/qubership-data-contract-validator/view"
)

//go:embed report.md.tmpl
var tmplFS embed.FS

var funcMap = template.FuncMap{
	"percent":  percent,
	"cell":     cell,
	"value":    value,
	"values":   values,
	"pretty":   pretty,
	"pathOf":   pathOf,
	"observed": observed,
	"inc":      func(i int) int { return i + 1 },
}

var tmpl = template.Must(template.New("report.md.tmpl").Funcs(funcMap).ParseFS(tmplFS, "report.md.tmpl"))

// Markdown renders the run as a Markdown report.
func Markdown(run view.ValidationRun) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "report.md.tmpl", run); err != nil {
		return nil, fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.Bytes(), nil
}

func percent(f float64) string {
	return fmt.Sprintf("%.2f%%", f*100)
}

// cell escapes text for a Markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\r\n", " ")
	return strings.ReplaceAll(s, "\n", " ")
}

func value(v any) string {
	return strings.ReplaceAll(cell(schema.FormatValue(v)), "`", "'")
}

func values(vs []any) string {
	parts := make([]string, 0, len(vs))
	for _, v := range vs {
		parts = append(parts, "`"+value(v)+"`")
	}
	return strings.Join(parts, ", ")
}

func pretty(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func pathOf(v checker.ViolationRecord) string {
	if v.Path == "" {
		return "(row)"
	}
	return v.Path
}

func observed(e checker.CoverageEntry) string {
	switch {
	case len(e.ObservedEnum) > 0 || len(e.MissingEnum) > 0:
		return fmt.Sprintf("%d/%d values", len(e.ObservedEnum), len(e.Constraint.Enum))
	case e.ObservedMin != nil && e.ObservedMax != nil:
		mark := "❌"
		if e.BoundaryTested != nil && *e.BoundaryTested {
			mark = "✅"
		}
		return fmt.Sprintf("[%s, %s] boundary %s",
			schema.FormatBound(*e.ObservedMin), schema.FormatBound(*e.ObservedMax), mark)
	}
	return ""
}
