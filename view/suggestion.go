package view

import (
	"github.com/Netcracker/qubership-data-contract-validator/checker"
)

type Suggestions struct {
	TestCases          []TestCaseSuggestion `json:"testCases,omitempty"`
	SchemaImprovements []SchemaImprovement  `json:"schemaImprovements,omitempty"`
	InferredSchema     map[string]any       `json:"inferredSchema,omitempty"`
	GenerationPrompt   string               `json:"generationPrompt,omitempty"`
}

type TestCaseSuggestion struct {
	Field            string `json:"field"`
	IssueType        string `json:"issue_type"`
	RecommendedValue any    `json:"recommended_value"`
	Explanation      string `json:"explanation"`
}

type SchemaImprovement struct {
	SchemaPath       string `json:"schema_path"`
	ImprovementType  string `json:"improvement_type"`
	SuggestedSnippet string `json:"suggested_snippet"`
	Explanation      string `json:"explanation"`
}

type TestCaseSuggestionsOutput struct {
	Suggestions []TestCaseSuggestion `json:"suggestions"`
}

type SchemaImprovementsOutput struct {
	Suggestions []SchemaImprovement `json:"suggestions"`
}

type GeneratedRowsOutput struct {
	Rows []map[string]any `json:"rows"`
}

type InferredSchemaOutput struct {
	Schema map[string]any `json:"schema"`
}

type SuggestionRequest struct {
	Count        int    `json:"count"`
	Instructions string `json:"instructions,omitempty"`
}

// SuggestionResponse carries parsed items, or only RawText when the assistant did not
// answer in the expected shape.
type SuggestionResponse struct {
	TestCases          []TestCaseSuggestion `json:"testCases,omitempty"`
	SchemaImprovements []SchemaImprovement  `json:"schemaImprovements,omitempty"`
	RawText            string               `json:"rawText,omitempty"`
}

type GeneratedRowsResponse struct {
	Rows    []map[string]any `json:"rows"`
	Report  *checker.Report  `json:"report,omitempty"`
	RawText string           `json:"rawText,omitempty"`
}

type InferredSchemaResponse struct {
	Schema  map[string]any `json:"schema,omitempty"`
	RawText string         `json:"rawText,omitempty"`
}
