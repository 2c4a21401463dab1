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

package loader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"

	"github.com/Netcracker/qubership-data-contract-validator/checker"
	"github.com/Netcracker/qubership-data-contract-validator/exception"
	"github.com/Netcracker/qubership-data-contract-validator/schema"
)

const (
	FormatCSV  = "csv"
	FormatJSON = "json"

	TypeMixed = "mixed"

	DefaultSampleRows = 3
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Dataset is a loaded data file. Records hold one decoded value per row: objects for
// well-formed rows, checker.Unreadable for rows that could not be mapped to columns.
type Dataset struct {
	Name    string     `json:"name"`
	Format  string     `json:"format"`
	Columns []Column   `json:"columns"`
	Records []any      `json:"records"`
	Cells   [][]string `json:"cells,omitempty"`
}

// Info is the compact description of a dataset sent to the AI assistant.
type Info struct {
	Rows       int      `json:"rows"`
	Columns    []Column `json:"columns"`
	SampleData []any    `json:"sampleData"`
}

func (d *Dataset) Len() int {
	return len(d.Records)
}

func (d *Dataset) ColumnNames() []string {
	names := make([]string, 0, len(d.Columns))
	for _, c := range d.Columns {
		names = append(names, c.Name)
	}
	return names
}

// Info returns the columns and the first sampleRows object records.
func (d *Dataset) Info(sampleRows int) Info {
	info := Info{Rows: len(d.Records), Columns: d.Columns, SampleData: []any{}}
	for _, rec := range d.Records {
		if len(info.SampleData) >= sampleRows {
			break
		}
		if _, ok := rec.(map[string]any); ok {
			info.SampleData = append(info.SampleData, rec)
		}
	}
	return info
}

// LoadData parses a CSV or JSON data file.
func LoadData(name string, data []byte) (*Dataset, error) {
	var ds *Dataset
	var err error
	switch extension(name) {
	case FormatCSV:
		ds, err = loadCSV(data)
	case FormatJSON:
		ds, err = loadJSON(data)
	default:
		return nil, exception.NewUnsupportedFormat(name, "only .csv and .json data files are supported")
	}
	if err != nil {
		return nil, exception.NewUnsupportedFormat(name, err.Error())
	}
	ds.Name = name
	log.Infof("Loaded %d rows from %s", len(ds.Records), name)
	return ds, nil
}

func loadCSV(data []byte) (*Dataset, error) {
	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return &Dataset{Format: FormatCSV, Columns: []Column{}, Records: []any{}}, nil
	}
	if err != nil {
		return nil, err
	}
	header = dedupeHeader(header)

	var cells [][]string
	for {
		line, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		cells = append(cells, line)
	}

	types := make([]string, len(header))
	for i := range header {
		types[i] = inferColumnType(cells, i)
	}

	ds := &Dataset{Format: FormatCSV, Cells: cells, Records: make([]any, 0, len(cells))}
	for i, name := range header {
		ds.Columns = append(ds.Columns, Column{Name: name, Type: types[i]})
	}
	for n, line := range cells {
		if len(line) > len(header) {
			ds.Records = append(ds.Records, checker.Unreadable{
				Raw:    line,
				Reason: fmt.Sprintf("line %d has %d cells, header has %d", n+2, len(line), len(header)),
			})
			continue
		}
		row := make(map[string]any, len(line))
		for i, cell := range line {
			row[header[i]] = convertCell(cell, types[i])
		}
		ds.Records = append(ds.Records, row)
	}
	return ds, nil
}

// dedupeHeader renames repeated column names to name.1, name.2 and so on.
func dedupeHeader(header []string) []string {
	seen := make(map[string]int, len(header))
	out := make([]string, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if n, ok := seen[name]; ok {
			seen[name] = n + 1
			name = name + "." + strconv.Itoa(n+1)
		} else {
			seen[name] = 0
		}
		out[i] = name
	}
	return out
}

// inferColumnType picks the narrowest type every non-empty cell of the column parses as:
// integer, then number, then boolean, falling back to string.
func inferColumnType(cells [][]string, col int) string {
	isInt, isFloat, isBool, nonEmpty := true, true, true, false
	for _, line := range cells {
		if col >= len(line) || line[col] == "" {
			continue
		}
		nonEmpty = true
		v := strings.TrimSpace(line[col])
		if isInt {
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				isFloat = false
			}
		}
		if isBool {
			if _, ok := parseBool(v); !ok {
				isBool = false
			}
		}
	}
	switch {
	case !nonEmpty:
		return schema.TypeNull
	case isInt:
		return schema.TypeInteger
	case isFloat:
		return schema.TypeNumber
	case isBool:
		return schema.TypeBoolean
	}
	return schema.TypeString
}

func parseBool(v string) (bool, bool) {
	switch strings.ToLower(v) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

// convertCell converts a cell to the column type. Empty cells are null.
func convertCell(cell string, typ string) any {
	if cell == "" {
		return nil
	}
	v := strings.TrimSpace(cell)
	switch typ {
	case schema.TypeInteger, schema.TypeNumber:
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	case schema.TypeBoolean:
		if b, ok := parseBool(v); ok {
			return b
		}
	}
	return cell
}

func loadJSON(data []byte) (*Dataset, error) {
	var root any
	if err := json.Unmarshal(bytes.TrimPrefix(data, utf8BOM), &root); err != nil {
		return nil, err
	}

	ds := &Dataset{Format: FormatJSON}
	switch t := root.(type) {
	case []any:
		ds.Records = t
	case map[string]any:
		ds.Records = []any{t}
	default:
		return nil, fmt.Errorf("expected an array of objects or a single object, got %s", schema.RuntimeType(root))
	}

	ds.Columns = jsonColumns(ds.Records)
	return ds, nil
}

// jsonColumns lists top-level keys in first-seen order with the JSON type of their non-null values.
func jsonColumns(records []any) []Column {
	var order []string
	types := make(map[string]string)
	for _, rec := range records {
		obj, ok := rec.(map[string]any)
		if !ok {
			continue
		}
		keys := make([]string, 0, len(obj))
		for k := range obj {
			if _, seen := types[k]; !seen {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			types[k] = schema.TypeNull
			order = append(order, k)
		}
		for k, v := range obj {
			types[k] = mergeType(types[k], schema.RuntimeType(v))
		}
	}
	columns := make([]Column, 0, len(order))
	for _, k := range order {
		columns = append(columns, Column{Name: k, Type: types[k]})
	}
	return columns
}

func mergeType(current, next string) string {
	switch {
	case next == schema.TypeNull || current == next:
		return current
	case current == schema.TypeNull:
		return next
	case (current == schema.TypeInteger && next == schema.TypeNumber) || (current == schema.TypeNumber && next == schema.TypeInteger):
		return schema.TypeNumber
	}
	return TypeMixed
}
