package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDaily(t *testing.T) {
	t.Parallel()

	minute, hour, err := parseDaily("30 6 * * *")
	require.NoError(t, err)
	assert.Equal(t, 30, minute)
	assert.Equal(t, 6, hour)

	for _, bad := range []string{"", "0 6 * *", "0 6 1 * *", "61 6 * * *", "0 24 * * *", "x 6 * * *"} {
		_, _, err := parseDaily(bad)
		assert.Error(t, err, bad)
	}
}

func TestNext(t *testing.T) {
	t.Parallel()

	seoul := time.FixedZone("KST", 9*60*60)
	c, err := NewCronScheduler("0 6 * * *", seoul, nil)
	require.NoError(t, err)

	// 05:59 KST fires the same day
	next := c.Next(time.Date(2024, 5, 1, 20, 59, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 5, 2, 6, 0, 0, 0, seoul), next)

	// exactly at fire time moves to tomorrow
	next = c.Next(time.Date(2024, 5, 2, 6, 0, 0, 0, seoul))
	assert.Equal(t, time.Date(2024, 5, 3, 6, 0, 0, 0, seoul), next)

	next = c.Next(time.Date(2024, 12, 31, 7, 0, 0, 0, seoul))
	assert.Equal(t, time.Date(2025, 1, 1, 6, 0, 0, 0, seoul), next)
}

func TestStartStop(t *testing.T) {
	t.Parallel()

	c, err := NewCronScheduler("0 0 * * *", time.UTC, nil)
	require.NoError(t, err)

	require.NoError(t, c.Start(context.Background(), func(time.Time) {}))
	require.NoError(t, c.Start(context.Background(), func(time.Time) {}), "second start is a no-op")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Stop(ctx))
	require.NoError(t, c.Stop(ctx), "second stop is a no-op")
}
