package service

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/Netcracker/qubership-data-contract-validator/checker"
	"github.com/Netcracker/qubership-data-contract-validator/client"
	"github.com/Netcracker/qubership-data-contract-validator/view"
)

const dataQualitySystemPrompt = "You are an AI assistant specialized in data quality, data contracts and test case design. " +
	"Answer with JSON only, without markdown or any additional text."

type promptIssue struct {
	Row     int    `json:"row"`
	Path    string `json:"path"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

type promptGap struct {
	Rule    string `json:"rule"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type promptCoverage struct {
	Rule       string `json:"rule"`
	HitCount   int    `json:"hitCount"`
	Violations int    `json:"violations"`
}

type promptReportSummary struct {
	OverallStatus checker.Status   `json:"overall_status"`
	TotalRows     int              `json:"total_rows"`
	PassRate      float64          `json:"pass_rate"`
	Errors        []promptIssue    `json:"errors"`
	Warnings      []promptGap      `json:"warnings"`
	Coverage      []promptCoverage `json:"coverage"`
}

func summarizeReport(report checker.Report) promptReportSummary {
	summary := promptReportSummary{
		OverallStatus: report.Status,
		TotalRows:     report.TotalRows,
		PassRate:      report.PassRate,
		Errors:        []promptIssue{},
		Warnings:      []promptGap{},
		Coverage:      make([]promptCoverage, 0, len(report.Coverage)),
	}
	for i, v := range report.Violations {
		if i == maxPromptIssues {
			break
		}
		summary.Errors = append(summary.Errors, promptIssue{Row: v.Row, Path: v.Path, Rule: v.Constraint.Describe(), Message: v.Message})
	}
	for i, g := range report.Gaps {
		if i == maxPromptIssues {
			break
		}
		summary.Warnings = append(summary.Warnings, promptGap{Rule: g.Constraint.Path + " " + g.Constraint.Describe(), Reason: string(g.Reason), Message: g.Message})
	}
	for _, e := range report.Coverage {
		summary.Coverage = append(summary.Coverage, promptCoverage{Rule: e.Constraint.Path + " " + e.Constraint.Describe(), HitCount: e.HitCount, Violations: e.ViolationCount})
	}
	return summary
}

func indentJson(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func testCasesPrompt(stored *view.StoredRun, count int) client.Prompt {
	user := fmt.Sprintf(`Given a data contract schema and a validation report for a dataset checked against it,
suggest specific improvements for the test data. Focus on fixing validation errors and on
constraints that were never or rarely exercised.

Schema contract (%s):
%s

Validation report summary:
%s

Provide %d distinct suggestions for new or modified data rows. For each suggestion state the field(s)
involved, the type of issue it addresses (e.g. "missing required field", "enum boundary",
"min/max edge case", "invalid format"), the exact value you recommend and why the case matters.

Return {"suggestions": [...]} where every item has the keys "field" (string), "issue_type" (string),
"recommended_value" (any JSON value) and "explanation" (string).`,
		stored.Run.SchemaName, stored.SchemaText, indentJson(summarizeReport(stored.Run.Report)), count)
	return client.Prompt{
		System:         dataQualitySystemPrompt,
		User:           user,
		ResponseName:   "test_case_suggestions",
		ResponseSchema: client.GenerateSchema[view.TestCaseSuggestionsOutput](),
	}
}

func schemaImprovementsPrompt(stored *view.StoredRun, count int) client.Prompt {
	user := fmt.Sprintf(`Given a data contract schema and a validation report for a dataset checked against it,
suggest improvements or fixes to the schema itself. Consider stricter types and formats, missing
bounds or length limits, patterns, fields that should be required, enums for fields with a small
set of discrete values, and better descriptions.

Schema contract (%s):
%s

Validation report summary:
%s

Provide %d distinct suggestions. Return {"suggestions": [...]} where every item has the keys
"schema_path" (string, e.g. "properties.age"), "improvement_type" (string, e.g. "add minimum"),
"suggested_snippet" (string holding a JSON snippet) and "explanation" (string).`,
		stored.Run.SchemaName, stored.SchemaText, indentJson(summarizeReport(stored.Run.Report)), count)
	return client.Prompt{
		System:         dataQualitySystemPrompt,
		User:           user,
		ResponseName:   "schema_improvements",
		ResponseSchema: client.GenerateSchema[view.SchemaImprovementsOutput](),
	}
}

func generateRowsPrompt(stored *view.StoredRun, count int, instructions string) client.Prompt {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Given the following data contract schema, generate %d synthetic data rows.\n\n", count)
	fmt.Fprintf(&sb, "Schema contract (%s):\n%s\n\n", stored.Run.SchemaName, stored.SchemaText)

	report := stored.Run.Report
	if len(report.Gaps) > 0 || len(report.Violations) > 0 {
		sb.WriteString("Focus on these issues found by the last validation run:\n")
		for i, g := range report.Gaps {
			if i == maxPromptIssues {
				break
			}
			fmt.Fprintf(&sb, "- Field: %s, Rule: %s, Problem: %s\n", g.Constraint.Path, g.Constraint.Describe(), g.Message)
		}
		for i, v := range report.Violations {
			if i == maxPromptIssues {
				break
			}
			fmt.Fprintf(&sb, "- Field: %s, Rule: %s, Problem: %s\n", v.Path, v.Constraint.Describe(), v.Message)
		}
		sb.WriteString("Generate data that exercises these areas, including edge cases.\n\n")
	}
	if instructions != "" {
		fmt.Fprintf(&sb, "Additional instructions: %s\n\n", instructions)
	}
	sb.WriteString(`Include typical values, boundary values (minimum/maximum, minLength/maxLength), every enum
value where reasonable, and nulls or missing fields where the schema allows them.

Return {"rows": [...]} where every item is one data row object.`)
	return client.Prompt{
		System:         dataQualitySystemPrompt,
		User:           sb.String(),
		ResponseName:   "generated_rows",
		ResponseSchema: client.GenerateSchema[view.GeneratedRowsOutput](),
	}
}

func inferSchemaPrompt(sample []map[string]any) client.Prompt {
	user := fmt.Sprintf(`Infer a data contract schema (JSON Schema draft 7 compatible) from the sample rows below.
Describe the structure and types (string, number, integer, boolean, array, object, null), fields that
are always present as required, enums for fields with a small set of discrete values, minimum and
maximum for numbers, minLength and maxLength for strings, formats where evident, and a short
description per field. Use a type list with "null" for fields that can be null.

Sample rows:
%s

Return {"schema": {...}} holding the inferred schema object.`, indentJson(sample))
	return client.Prompt{
		System:         dataQualitySystemPrompt,
		User:           user,
		ResponseName:   "inferred_schema",
		ResponseSchema: client.GenerateSchema[view.InferredSchemaOutput](),
	}
}
