package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"GamesMarketDash/src/config"
	"GamesMarketDash/src/datasource/file"
	"GamesMarketDash/src/processor"
	"GamesMarketDash/src/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := newRootCommand()

	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "summary"}, names)
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestRunSummaryDefaults(t *testing.T) {
	var out bytes.Buffer
	err := runSummary(&out, io.Discard, &rootOptions{ConfigDir: "../config"}, &summaryOptions{})
	require.NoError(t, err)

	lines := strings.Split(out.String(), "\n")
	assert.Equal(t, "Результат фильтрации: 4", lines[0])
	assert.Contains(t, out.String(), "Wii")
	assert.Contains(t, out.String(), "PS3")
	assert.NotContains(t, out.String(), "PS2")
	assert.Contains(t, out.String(), processor.ColCriticScore+": 85 (3/4)")
}

func TestSummaryCommandFlags(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--config", "../config", "summary", "--genre", "Strategy", "--rating", "T", "--from", "2010", "--to", "2010"})

	require.NoError(t, cmd.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "Результат фильтрации: 1\n"))
	assert.Contains(t, out.String(), processor.ColCriticScore+": 93 (1/1)")
}

func TestSummaryPartialFlagsKeepDefaults(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--config", "../config", "summary", "--from", "2011"})

	// 类型和评级仍为 Sports/Strategy, T/E, 年份 2011-2014
	require.NoError(t, cmd.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "Результат фильтрации: 2\n"))
}

func TestSummarySelection(t *testing.T) {
	defaults := processor.Selection{
		Genres:  []string{"Sports"},
		Ratings: []string{"E"},
		Years:   processor.YearRange{Min: 2004, Max: 2014},
	}
	given := map[string]bool{"rating": true, "to": true}
	sopts := &summaryOptions{
		Genres:  []string{"Puzzle"},
		Ratings: []string{"T"},
		From:    1990,
		To:      2010,
		changed: func(name string) bool { return given[name] },
	}

	assert.Equal(t, processor.Selection{
		Genres:  []string{"Sports"},
		Ratings: []string{"T"},
		Years:   processor.YearRange{Min: 2004, Max: 2010},
	}, sopts.selection(defaults))
	assert.Equal(t, defaults, (&summaryOptions{}).selection(defaults))
}

func TestReloadDataset(t *testing.T) {
	var logs bytes.Buffer
	logger := storage.NewWriterLogger(&logs)
	ds := storage.NewDataset("games.csv", processor.NewTable(nil))

	reloadDataset("missing.csv", file.Options{}, ds, logger)
	assert.Equal(t, 0, ds.Get().Len())
	assert.Contains(t, logs.String(), "ERROR: 重新加载数据失败")

	reloadDataset("../data/games.csv", file.Options{}, ds, logger)
	assert.Equal(t, 6, ds.Get().Len())
	assert.Contains(t, logs.String(), "INFO: 数据已重新加载")
}

func TestReopenOnHangup(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "app.log")
	logger, err := storage.NewLogger(name)
	require.NoError(t, err)
	defer logger.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hup := make(chan os.Signal, 1)
	go reopenOnHangup(ctx, hup, logger, name)

	logger.Info("before rotate")
	require.NoError(t, os.Rename(name, name+".1"))
	hup <- syscall.SIGHUP

	assert.Eventually(t, func() bool {
		data, err := os.ReadFile(name)
		return err == nil && strings.Contains(string(data), "日志文件已重新打开")
	}, 2*time.Second, 10*time.Millisecond)
}

func TestScheduleRotation(t *testing.T) {
	cfg := &config.Config{LogMaxSize: "1024", LogCheckInterval: config.Duration(time.Second)}
	c, err := scheduleRotation(cfg, storage.NewWriterLogger(io.Discard))
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)
}
