package view

import (
	"time"

	"github.com/Netcracker/qubership-data-contract-validator/checker"
	"github.com/Netcracker/qubership-data-contract-validator/loader"
)

type ValidationRun struct {
	RunId          string         `json:"runId"`
	CreatedAt      time.Time      `json:"createdAt"`
	CreatedBy      string         `json:"createdBy,omitempty"`
	SchemaName     string         `json:"schemaName"`
	SchemaHash     string         `json:"schemaHash"`
	DataName       string         `json:"dataName"`
	SchemaWarnings []string       `json:"schemaWarnings,omitempty"`
	Dataset        loader.Info    `json:"dataset"`
	Report         checker.Report `json:"report"`
	Suggestions    Suggestions    `json:"suggestions"`
	Notes          []string       `json:"notes,omitempty"`
}

// StoredRun is what the run store keeps: the public run plus the inputs needed for
// exports and AI follow-ups.
type StoredRun struct {
	Run        ValidationRun   `json:"run"`
	SchemaText string          `json:"schemaText"`
	Data       *loader.Dataset `json:"data"`
}

type ValidateRequest struct {
	SchemaName string
	Schema     []byte
	SchemaUrl  string
	DataName   string
	Data       []byte
	DataUrl    string
	Threshold  int
}

type RunSummary struct {
	RunId      string         `json:"runId"`
	CreatedAt  time.Time      `json:"createdAt"`
	CreatedBy  string         `json:"createdBy,omitempty"`
	SchemaName string         `json:"schemaName"`
	SchemaHash string         `json:"schemaHash"`
	DataName   string         `json:"dataName"`
	Status     checker.Status `json:"status"`
	TotalRows  int            `json:"totalRows"`
	PassRate   float64        `json:"passRate"`
	Violations int            `json:"violations"`
	Gaps       int            `json:"gaps"`
	Threshold  int            `json:"threshold"`
}

type RunHistory struct {
	Runs []RunSummary `json:"runs"`
}
