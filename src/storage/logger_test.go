package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"GamesMarketDash/src/config"
	"GamesMarketDash/src/processor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf)

	logger.Info("dataset loaded")
	logger.Error("boom")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Regexp(t, `^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\] INFO: dataset loaded$`, lines[0])
	assert.True(t, strings.HasSuffix(lines[1], "ERROR: boom"))
}

func TestLoggerSubscribe(t *testing.T) {
	logger := NewWriterLogger(&bytes.Buffer{})
	ch := logger.Subscribe()

	logger.Warning("slow request")
	select {
	case msg := <-ch:
		assert.Contains(t, msg, "WARNING: slow request")
	case <-time.After(time.Second):
		t.Fatal("subscriber got nothing")
	}

	logger.Unsubscribe(ch)
	logger.Info("after unsubscribe")
	select {
	case msg := <-ch:
		t.Fatalf("unexpected message %q", msg)
	default:
	}
}

func TestLoggerRotate(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "app.log")

	logger, err := NewLogger(name)
	require.NoError(t, err)
	defer logger.Close()

	cfg := &config.Config{LogMaxSize: "1 * 10"}
	logger.Debug("short")
	require.NoError(t, logger.CheckRotate(cfg))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	logger.Info("fresh file")
	data, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Contains(t, string(data), "fresh file")
	assert.NotContains(t, string(data), "short")
}

func TestLoggerNoRotateBelowLimit(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(filepath.Join(dir, "app.log"))
	require.NoError(t, err)
	defer logger.Close()

	logger.Info("x")
	require.NoError(t, logger.CheckRotate(&config.Config{LogMaxSize: "1024 * 1024"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "FATAL", FATAL.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}

func TestDataset(t *testing.T) {
	first := processor.NewTable([]processor.Row{{Name: "A", Year: 2005}})
	ds := NewDataset("games.csv", first)
	loaded := ds.LoadedAt()

	assert.Equal(t, "games.csv", ds.Source())
	assert.Equal(t, 1, ds.Get().Len())

	snapshot := ds.Get()
	ds.Set(processor.NewTable(nil))
	assert.Equal(t, 0, ds.Get().Len())
	assert.Equal(t, 1, snapshot.Len())
	assert.False(t, ds.LoadedAt().Before(loaded))
}

func TestLoggerReopen(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "app.log")

	logger, err := NewLogger(name)
	require.NoError(t, err)
	defer logger.Close()

	logger.Info("before")
	require.NoError(t, os.Rename(name, name+".1"))
	require.NoError(t, logger.Reopen(name))
	logger.Info("after")

	data, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Contains(t, string(data), "after")
	assert.NotContains(t, string(data), "before")

	// 新文件无法创建时继续写旧文件
	require.Error(t, logger.Reopen(filepath.Join(dir, "missing", "app.log")))
	logger.Info("still here")
	data, err = os.ReadFile(name)
	require.NoError(t, err)
	assert.Contains(t, string(data), "still here")
}
