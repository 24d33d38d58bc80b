package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type immediateDriver struct {
	trigger time.Time
	stopped bool
}

func (d *immediateDriver) Start(_ context.Context, job func(time.Time)) error {
	job(d.trigger)
	return nil
}

func (d *immediateDriver) Stop(context.Context) error {
	d.stopped = true
	return nil
}

type recordingProcessor struct {
	days []time.Time
}

func (r *recordingProcessor) ProcessDay(_ context.Context, day time.Time) (Report, error) {
	r.days = append(r.days, day)
	return Report{Day: day.Format("2006-01-02")}, nil
}

func TestSchedulerProcessesPreviousDay(t *testing.T) {
	t.Parallel()

	seoul := time.FixedZone("KST", 9*60*60)
	driver := &immediateDriver{trigger: time.Date(2024, 3, 1, 6, 0, 0, 0, seoul)}
	proc := &recordingProcessor{}

	s := NewScheduler(driver, proc, discard)
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))

	require.Len(t, proc.days, 1)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, seoul), proc.days[0])
	assert.True(t, driver.stopped)
}

func TestPreviousDay(t *testing.T) {
	t.Parallel()

	got := PreviousDay(time.Date(2025, 1, 1, 0, 30, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), got)
}
