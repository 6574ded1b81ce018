package ui_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/finddupes/internal/ui"
)

// terminalAndLogFile mirrors the --log setup: warnings on the terminal,
// everything in a JSON file.
func terminalAndLogFile() (*bytes.Buffer, *bytes.Buffer, *slog.Logger) {
	var term, file bytes.Buffer
	textH := slog.NewTextHandler(&term, &slog.HandlerOptions{Level: slog.LevelWarn})
	jsonH := slog.NewJSONHandler(&file, &slog.HandlerOptions{Level: slog.LevelDebug})
	return &term, &file, slog.New(ui.NewMultiHandler(textH, jsonH))
}

func jsonLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for line := range strings.SplitSeq(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		out = append(out, rec)
	}
	return out
}

func TestMultiHandler_TerminalAndLogFile(t *testing.T) {
	t.Parallel()

	term, file, logger := terminalAndLogFile()
	logger.Debug("refine stage", "stage", "partial", "files", 4)
	logger.Warn("dropping file", "path", "/data/a.bin", "error", "permission denied")

	assert.NotContains(t, term.String(), "refine stage")
	assert.Contains(t, term.String(), "path=/data/a.bin")

	recs := jsonLines(t, file)
	require.Len(t, recs, 2)
	assert.Equal(t, "refine stage", recs[0]["msg"])
	assert.Equal(t, "partial", recs[0]["stage"])
	assert.Equal(t, "WARN", recs[1]["level"])
}

func TestMultiHandler_Enabled(t *testing.T) {
	t.Parallel()

	warnH := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})
	errH := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError})
	m := ui.NewMultiHandler(warnH, errH)

	assert.True(t, m.Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, m.Enabled(context.Background(), slog.LevelError))
	assert.False(t, m.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, ui.NewMultiHandler().Enabled(context.Background(), slog.LevelError))
}

func TestMultiHandler_WithAttrsReachesEveryHandler(t *testing.T) {
	t.Parallel()

	term, file, logger := terminalAndLogFile()
	logger.With("root", "/srv").Warn("skipping path")

	assert.Contains(t, term.String(), "root=/srv")
	recs := jsonLines(t, file)
	require.Len(t, recs, 1)
	assert.Equal(t, "/srv", recs[0]["root"])
}

func TestMultiHandler_WithGroup(t *testing.T) {
	t.Parallel()

	_, file, logger := terminalAndLogFile()
	logger.WithGroup("event").Info("finddupes.event", "type", "GroupFound", "size", 8192)

	recs := jsonLines(t, file)
	require.Len(t, recs, 1)
	group, ok := recs[0]["event"].(map[string]any)
	require.True(t, ok, "expected group 'event' in JSON output")
	assert.Equal(t, "GroupFound", group["type"])
	assert.InDelta(t, 8192, group["size"], 0)
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("disk full") }

func TestMultiHandler_HandleJoinsErrors(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ok := slog.NewTextHandler(&buf, nil)
	bad := failingHandler{slog.NewTextHandler(&bytes.Buffer{}, nil)}
	m := ui.NewMultiHandler(bad, ok)

	r := slog.NewRecord(time.Now(), slog.LevelWarn, "collision", 0)
	err := m.Handle(context.Background(), r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Contains(t, buf.String(), "collision")
}
