package monitoring

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileResultLogger_WritesPrettyJSON(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	l := NewFileResultLogger(dir, nil)

	at := time.Date(2026, 10, 15, 9, 30, 5, 0, time.UTC)
	entry := ResultEntry{
		RequestID:   "0f8b2c1e-aaaa-bbbb-cccc-000000000000",
		GeneratedAt: at,
		Result:      map[string]interface{}{"stores": []string{"Apollo"}, "name": "Paracétamol"},
	}
	require.NoError(t, l.LogResult(context.Background(), entry))

	path := filepath.Join(dir, "result_2026-10-15T09-30-05_0f8b2c1e.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Contains(t, string(data), "\n  ")
	assert.Contains(t, string(data), "Paracétamol")

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, []interface{}{"Apollo"}, decoded["stores"])
}

func TestFileResultLogger_UnwritableDir(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	l := NewFileResultLogger(filepath.Join(blocker, "logs"), nil)
	err := l.LogResult(context.Background(), ResultEntry{Result: 1})
	assert.Error(t, err)
}

func TestFileName(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, "result_2026-01-02T03-04-05.json", FileName(ResultEntry{GeneratedAt: at}))
	assert.Equal(t, "result_2026-01-02T03-04-05_abc.json", FileName(ResultEntry{GeneratedAt: at, RequestID: "abc"}))
}

func TestNopResultLogger(t *testing.T) {
	assert.NoError(t, NopResultLogger{}.LogResult(context.Background(), ResultEntry{}))
}
