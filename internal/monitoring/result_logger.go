// Package monitoring records ranked results for later inspection.
package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spherical-ai/medicine-finder/internal/fsutil"
	"github.com/spherical-ai/medicine-finder/internal/observability"
)

// ResultEntry is one ranked request to be recorded.
type ResultEntry struct {
	RequestID   string
	GeneratedAt time.Time
	Result      interface{}
}

// ResultLogger persists ranked results. Implementations are best-effort:
// callers log a returned error and carry on.
type ResultLogger interface {
	LogResult(ctx context.Context, entry ResultEntry) error
}

// NopResultLogger discards every entry.
type NopResultLogger struct{}

// LogResult implements ResultLogger.
func (NopResultLogger) LogResult(context.Context, ResultEntry) error { return nil }

// FileResultLogger writes each result as pretty-printed JSON into a directory.
type FileResultLogger struct {
	dir    string
	logger *observability.Logger
}

// NewFileResultLogger returns a logger writing under dir.
func NewFileResultLogger(dir string, logger *observability.Logger) *FileResultLogger {
	return &FileResultLogger{dir: dir, logger: observability.OrNop(logger)}
}

// FileName returns the file name used for entry.
func FileName(entry ResultEntry) string {
	ts := entry.GeneratedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	name := "result_" + ts.UTC().Format("2006-01-02T15-04-05")
	if id := entry.RequestID; id != "" {
		if len(id) > 8 {
			id = id[:8]
		}
		name += "_" + id
	}
	return name + ".json"
}

// LogResult implements ResultLogger.
func (l *FileResultLogger) LogResult(ctx context.Context, entry ResultEntry) error {
	data, err := json.MarshalIndent(entry.Result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("create result log dir: %w", err)
	}

	path := filepath.Join(l.dir, FileName(entry))
	if err := fsutil.WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("write result log: %w", err)
	}

	l.logger.Debug().
		Str("request_id", entry.RequestID).
		Str("path", path).
		Msg("result logged")
	return nil
}

var (
	_ ResultLogger = NopResultLogger{}
	_ ResultLogger = (*FileResultLogger)(nil)
)
