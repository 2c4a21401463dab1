package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Netcracker/qubership-data-contract-validator/checker"
	"github.com/Netcracker/qubership-data-contract-validator/exception"
	"github.com/Netcracker/qubership-data-contract-validator/schema"
)

func TestLoadSchema_JSONKeepsKeyOrder(t *testing.T) {
	doc, err := LoadSchema("contract.JSON", []byte(`{
		"type": "object",
		"required": ["zeta"],
		"properties": {
			"zeta": {"type": "integer", "minimum": 0, "maximum": 1.5e2},
			"alpha": {"type": ["string", "null"], "enum": ["a", "b"]}
		}
	}`))
	require.NoError(t, err)

	model, err := schema.Build(doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha"}, model.Paths())
	assert.Equal(t, 150.0, *model.ForPath("zeta")[3].Bound)
}

func TestLoadSchema_YAML(t *testing.T) {
	doc, err := LoadSchema("c.yml", []byte("type: object\nproperties:\n  b: {type: string}\n  a: {type: string}\n"))
	require.NoError(t, err)
	model, err := schema.Build(doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, model.Paths())
}

func TestLoadSchema_Errors(t *testing.T) {
	tests := []struct {
		name string
		file string
		data string
		code string
	}{
		{"unknown extension", "schema.xml", "<a/>", exception.UnsupportedFormat},
		{"yaml list root", "s.yaml", "- a\n", exception.SchemaParseError},
		{"json list root", "s.json", `[1, 2]`, exception.SchemaParseError},
		{"broken json", "s.json", `{"type": `, exception.SchemaParseError},
		{"trailing json", "s.json", `{} {}`, exception.SchemaParseError},
		{"empty yaml", "s.yaml", "", exception.SchemaParseError},
		{"broken yaml", "s.yaml", "a: [", exception.SchemaParseError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := LoadSchema(tt.file, []byte(tt.data))
			assert.Nil(t, doc)
			assert.True(t, exception.HasCode(err, tt.code), "%v", err)
		})
	}
}

func TestJSONToNode_Scalars(t *testing.T) {
	node, err := jsonToNode([]byte(`{"i": 3, "f": 2.5, "b": true, "n": null, "s": "x"}`))
	require.NoError(t, err)
	require.Equal(t, yaml.MappingNode, node.Kind)
	tags := map[string]string{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		tags[node.Content[i].Value] = node.Content[i+1].Tag
	}
	assert.Equal(t, map[string]string{"i": "!!int", "f": "!!float", "b": "!!bool", "n": "!!null", "s": "!!str"}, tags)
}

func TestLoadData_CSV(t *testing.T) {
	ds, err := LoadData("users.csv", []byte("id,score,active,name,empty\n1,2.5,true,Ann,\n2,,FALSE,Bob,\n3,4,true,,\n"))
	require.NoError(t, err)

	assert.Equal(t, FormatCSV, ds.Format)
	assert.Equal(t, []Column{
		{Name: "id", Type: schema.TypeInteger},
		{Name: "score", Type: schema.TypeNumber},
		{Name: "active", Type: schema.TypeBoolean},
		{Name: "name", Type: schema.TypeString},
		{Name: "empty", Type: schema.TypeNull},
	}, ds.Columns)
	require.Len(t, ds.Records, 3)
	assert.Equal(t, map[string]any{"id": 1.0, "score": 2.5, "active": true, "name": "Ann", "empty": nil}, ds.Records[0])
	assert.Equal(t, map[string]any{"id": 2.0, "score": nil, "active": false, "name": "Bob", "empty": nil}, ds.Records[1])
	assert.Nil(t, ds.Records[2].(map[string]any)["name"])
}

func TestLoadData_CSVRaggedRows(t *testing.T) {
	ds, err := LoadData("d.csv", []byte("a,b\n1\n1,2,3\n"))
	require.NoError(t, err)
	require.Len(t, ds.Records, 2)
	assert.Equal(t, map[string]any{"a": 1.0}, ds.Records[0])
	_, ok := ds.Records[1].(checker.Unreadable)
	assert.True(t, ok)
}

func TestLoadData_CSVDuplicateHeader(t *testing.T) {
	ds, err := LoadData("d.csv", []byte("a,a,b\nx,y,z\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a.1", "b"}, ds.ColumnNames())
}

func TestLoadData_JSON(t *testing.T) {
	ds, err := LoadData("rows.json", []byte(`[{"b": 1, "a": "x"}, {"a": null, "c": 2.5}, 7]`))
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, ds.Format)
	require.Len(t, ds.Records, 3)
	assert.Equal(t, []Column{
		{Name: "a", Type: schema.TypeString},
		{Name: "b", Type: schema.TypeInteger},
		{Name: "c", Type: schema.TypeNumber},
	}, ds.Columns)

	single, err := LoadData("row.json", []byte(`{"a": 1}`))
	require.NoError(t, err)
	assert.Len(t, single.Records, 1)
}

func TestLoadData_Errors(t *testing.T) {
	for name, data := range map[string]string{
		"d.xlsx": "x",
		"d.json": `"just a string"`,
		"e.json": `[{"a": 1}`,
		"f.csv":  "a,b\n\"unterminated,1\n",
	} {
		_, err := LoadData(name, []byte(data))
		assert.True(t, exception.HasCode(err, exception.UnsupportedFormat), name)
	}
}

func TestDatasetInfo(t *testing.T) {
	ds, err := LoadData("rows.json", []byte(`[{"a": 1}, "bad", {"a": 2}, {"a": 3}, {"a": 4}]`))
	require.NoError(t, err)
	info := ds.Info(DefaultSampleRows)
	assert.Equal(t, 5, info.Rows)
	assert.Equal(t, []any{
		map[string]any{"a": 1.0},
		map[string]any{"a": 2.0},
		map[string]any{"a": 3.0},
	}, info.SampleData)
}
