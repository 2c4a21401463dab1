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

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/Netcracker/qubership-data-contract-validator/checker"
	"github.com/Netcracker/qubership-data-contract-validator/export"
	"github.com/Netcracker/qubership-data-contract-validator/service"
)

var errValidationFailed = errors.New("validation failed")

const (
	formatJson     = "json"
	formatMarkdown = "markdown"
	formatCsv      = "csv"
)

type checkOptions struct {
	schemaFile string
	dataFile   string
	threshold  int
	workers    int
	format     string
	out        string
	logLevel   string
}

func newCheckCommand() *cobra.Command {
	opts := checkOptions{}
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a data file against a schema and print the report",
		Long: "Validate a data file (.csv, .json) against a schema (.yaml, .yml, .json) without starting the service.\n" +
			"Exits with code 1 when the report status is FAIL.",
		RunE: func(cmd *cobra.Command, args []string) error {
			configureLogging(opts.logLevel, "text")
			return runCheck(opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.schemaFile, "schema", "", "schema file")
	cmd.Flags().StringVar(&opts.dataFile, "data", "", "data file")
	cmd.Flags().IntVar(&opts.threshold, "threshold", 1, "minimum number of rows that must exercise every rule")
	cmd.Flags().IntVar(&opts.workers, "workers", 1, "number of parallel validation workers")
	cmd.Flags().StringVar(&opts.format, "format", formatJson, "output format: json, markdown or csv (failed rows)")
	cmd.Flags().StringVar(&opts.out, "out", "", "output file, stdout when empty")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "warn", "log level")
	_ = cmd.MarkFlagRequired("schema")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func runCheck(opts checkOptions, stdout io.Writer) error {
	switch opts.format {
	case formatJson, formatMarkdown, formatCsv:
	default:
		return fmt.Errorf("unknown format '%s', expected one of: json, markdown, csv", opts.format)
	}
	schemaData, err := os.ReadFile(opts.schemaFile)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(opts.dataFile)
	if err != nil {
		return err
	}

	stored, err := service.RunValidation(filepath.Base(opts.schemaFile), schemaData, filepath.Base(opts.dataFile), data,
		checker.Options{Threshold: opts.threshold, Workers: opts.workers})
	if err != nil {
		return err
	}

	var output []byte
	switch opts.format {
	case formatMarkdown:
		output, err = export.Markdown(stored.Run)
	case formatCsv:
		output, err = export.FailedRowsCSV(stored.Data, stored.Run.Report)
	default:
		output, err = json.MarshalIndent(stored.Run, "", "  ")
		output = append(output, '\n')
	}
	if err != nil {
		return err
	}

	if opts.out == "" {
		_, err = stdout.Write(output)
	} else {
		err = os.WriteFile(opts.out, output, 0o644)
	}
	if err != nil {
		return err
	}
	if stored.Run.Report.Status == checker.StatusFail {
		return errValidationFailed
	}
	return nil
}
