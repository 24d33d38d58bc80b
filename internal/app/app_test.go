package app

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paaalop/news-analyzer/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()

	t.Setenv("NEWS_ANALYZER_CONFIG", "")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_DSN", "file:"+filepath.Join(t.TempDir(), "news.db"))
	return config.Load()
}

func TestRunOnceWithoutSummaries(t *testing.T) {
	cfg := testConfig(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	application, err := New(context.Background(), cfg, logger)
	require.NoError(t, err)
	defer application.Close()

	report, err := application.RunOnce(context.Background(), time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, report.NoInput)
	assert.Equal(t, "2024-05-01", report.Day)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Clustering.Mode = "blended"

	_, err := New(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestScheduleStopsWithContext(t *testing.T) {
	cfg := testConfig(t)

	application, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer application.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, application.Schedule(ctx))
}
