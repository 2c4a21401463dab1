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

package export

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/Netcracker/qubership-data-contract-validator/checker"
	"github.com/Netcracker/qubership-data-contract-validator/loader"
)

const ViolationsColumn = "violations"

// FailedRowsCSV writes the failing rows of the dataset with their original columns
// and one extra column listing the violations of the row.
func FailedRowsCSV(ds *loader.Dataset, report checker.Report) ([]byte, error) {
	columns := ds.ColumnNames()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(append(append([]string{}, columns...), ViolationsColumn)); err != nil {
		return nil, err
	}

	byRow := make(map[int][]string)
	for _, v := range report.Violations {
		byRow[v.Row] = append(byRow[v.Row], pathOf(v)+": "+string(v.Kind()))
	}

	for _, row := range report.FailedRows() {
		line := make([]string, len(columns), len(columns)+1)
		switch {
		case row < len(ds.Cells):
			copy(line, ds.Cells[row])
		case row < len(ds.Records):
			if obj, ok := ds.Records[row].(map[string]any); ok {
				for i, col := range columns {
					line[i] = csvValue(obj[col])
				}
			}
		}
		line = append(line, strings.Join(byRow[row], "; "))
		if err := w.Write(line); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func csvValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
