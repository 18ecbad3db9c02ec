package sqlite

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSONL_Atomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stages.jsonl")

	records := []json.RawMessage{
		json.RawMessage(`{"stage_id":"a"}`),
		json.RawMessage(`{"stage_id":"b"}`),
	}
	require.NoError(t, writeJSONL(path, records))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\"stage_id\":\"a\"}\n{\"stage_id\":\"b\"}\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file is renamed away")
}

func TestReadJSONL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"a\":1}\n\n{broken\n{\"b\":2}\n"), 0o644))

	got, err := readJSONL(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.JSONEq(t, `{"b":2}`, string(got[1]))

	missing, err := readJSONL(filepath.Join(dir, "missing.jsonl"))
	require.NoError(t, err)
	assert.Nil(t, missing)
}
