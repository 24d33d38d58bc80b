package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/paaalop/news-analyzer/internal/ports"
)

// CronScheduler fires a job once a day at the minute and hour of a cron expression.
// Only the "M H * * *" form is understood.
type CronScheduler struct {
	minute int
	hour   int
	loc    *time.Location
	logger *slog.Logger

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler configured via cron expression string.
func NewCronScheduler(spec string, loc *time.Location, logger *slog.Logger) (*CronScheduler, error) {
	minute, hour, err := parseDaily(spec)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CronScheduler{minute: minute, hour: hour, loc: loc, logger: logger}, nil
}

func parseDaily(spec string) (int, int, error) {
	fields := strings.Fields(spec)
	if len(fields) != 5 {
		return 0, 0, fmt.Errorf("cron %q: want 5 fields", spec)
	}
	for _, f := range fields[2:] {
		if f != "*" {
			return 0, 0, fmt.Errorf("cron %q: only daily schedules are supported", spec)
		}
	}
	minute, err := strconv.Atoi(fields[0])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("cron %q: bad minute", spec)
	}
	hour, err := strconv.Atoi(fields[1])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("cron %q: bad hour", spec)
	}
	return minute, hour, nil
}

// Next returns the first fire time strictly after now.
func (c *CronScheduler) Next(now time.Time) time.Time {
	local := now.In(c.loc)
	y, m, d := local.Date()
	next := time.Date(y, m, d, c.hour, c.minute, 0, 0, c.loc)
	if !next.After(local) {
		next = time.Date(y, m, d+1, c.hour, c.minute, 0, 0, c.loc)
	}
	return next
}

// Start runs job at every fire time until ctx is done or Stop is called.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		return nil
	}

	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.loop(ctx, job, c.stop, c.done)
	return nil
}

func (c *CronScheduler) loop(ctx context.Context, job func(time.Time), stop, done chan struct{}) {
	defer close(done)
	for {
		next := c.Next(time.Now())
		c.logger.Info("next run scheduled", "at", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case t := <-timer.C:
			job(t.In(c.loc))
		case <-ctx.Done():
			timer.Stop()
			return
		case <-stop:
			timer.Stop()
			return
		}
	}
}

// Stop halts the loop and waits for a running job to return or ctx to expire.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	stop, done := c.stop, c.done
	c.stop, c.done = nil, nil
	c.mu.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
