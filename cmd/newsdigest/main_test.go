package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paaalop/news-analyzer/internal/config"
)

func TestParseOptions(t *testing.T) {
	t.Parallel()

	cfg := config.Config{}

	opts, err := parseOptions([]string{"-date", "2024-05-01"}, cfg, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "once", opts.mode)
	assert.Equal(t, "2024-05-01", opts.day.Format("2006-01-02"))

	opts, err = parseOptions(nil, cfg, io.Discard)
	require.NoError(t, err)
	assert.True(t, opts.day.Before(time.Now()))

	opts, err = parseOptions([]string{"-mode", "serve"}, cfg, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "serve", opts.mode)

	for _, args := range [][]string{
		{"-date", "05/01/2024"},
		{"-mode", "daily"},
		{"-mode", "schedule", "-date", "2024-05-01"},
		{"-unknown"},
	} {
		_, err := parseOptions(args, cfg, io.Discard)
		assert.Error(t, err, "%v", args)
	}
}

func TestRunRejectsBadDateBeforeOpeningStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "news.db")
	t.Setenv("NEWS_ANALYZER_CONFIG", "")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_DSN", "file:"+dbPath)
	t.Setenv("LOG_LEVEL", "error")

	code := run([]string{"-date", "not-a-day"}, io.Discard)
	assert.Equal(t, exitUsage, code)

	_, err := os.Stat(dbPath)
	assert.True(t, os.IsNotExist(err), "store must not be opened for invalid flags")
}
