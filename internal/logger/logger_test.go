package logger

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInit_Disabled(t *testing.T) {
	closeLog, err := Init(Options{})
	require.NoError(t, err)
	require.NoError(t, closeLog())
	require.False(t, L.Enabled(context.Background(), slog.LevelError))
}

func TestInit_WritesJSONLines(t *testing.T) {
	dir := t.TempDir()
	day := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	closeLog, err := Init(Options{Enabled: true, LogDir: dir, Now: func() time.Time { return day }})
	require.NoError(t, err)

	Info("scan finished", "stream", "a.dump", "chunks", 3)
	Debug("dropped below level")
	require.NoError(t, closeLog())

	data, err := os.ReadFile(filepath.Join(dir, "opaquectl-2026-03-14.log"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	require.Equal(t, "scan finished", rec["msg"])
	require.Equal(t, "a.dump", rec["stream"])
	require.EqualValues(t, 3, rec["chunks"])
}

func TestCleanOldLogs(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	for _, name := range []string{
		"opaquectl-2026-01-01.log", // expired
		"opaquectl-2026-03-01.log", // kept
		"opaquectl-garbage.log",    // unparseable, kept
		"other-2020-01-01.log",     // not ours
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}

	cleanOldLogs(dir, now)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	require.ElementsMatch(t, []string{
		"opaquectl-2026-03-01.log",
		"opaquectl-garbage.log",
		"other-2020-01-01.log",
	}, names)
}
