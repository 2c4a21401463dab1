package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, dir, name, content string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestCheckCommand(t *testing.T) {
	dir := t.TempDir()
	schemaFile := writeFixture(t, dir, "orders.yaml", "properties:\n  qty:\n    type: integer\n    minimum: 1\n")
	passing := writeFixture(t, dir, "good.csv", "qty\n1\n5\n")
	failing := writeFixture(t, dir, "bad.csv", "qty\n1\n0\n")

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"check", "--schema", schemaFile, "--data", passing, "--format", "markdown"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "good.csv")

	out.Reset()
	cmd = newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"check", "--schema", schemaFile, "--data", failing, "--format", "csv"})
	assert.ErrorIs(t, cmd.Execute(), errValidationFailed)
	assert.Equal(t, "qty,violations\n0,qty: minimum\n", out.String())
}

func TestCheckCommand_WritesOutFile(t *testing.T) {
	dir := t.TempDir()
	schemaFile := writeFixture(t, dir, "s.json", `{"properties": {"a": {"type": "string"}}}`)
	dataFile := writeFixture(t, dir, "d.json", `[{"a": "x"}]`)
	outFile := filepath.Join(dir, "report.json")

	cmd := newRootCommand()
	cmd.SetArgs([]string{"check", "--schema", schemaFile, "--data", dataFile, "--out", outFile})
	require.NoError(t, cmd.Execute())
	content, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"status": "PASS"`)
}

func TestCheckCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	schemaFile := writeFixture(t, dir, "s.json", `{"properties": {}}`)
	dataFile := writeFixture(t, dir, "d.xml", `<rows/>`)

	cmd := newRootCommand()
	cmd.SetArgs([]string{"check", "--schema", schemaFile, "--data", dataFile})
	assert.Error(t, cmd.Execute())

	cmd = newRootCommand()
	cmd.SetArgs([]string{"check", "--schema", schemaFile, "--data", dataFile, "--format", "xml"})
	assert.ErrorContains(t, cmd.Execute(), "unknown format")
}
