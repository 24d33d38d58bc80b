package domain

import "time"

// DateLayout is the calendar-day key format used for digests.
const DateLayout = "2006-01-02"

// Vector is a unit-normalized embedding.
type Vector []float32

// Cluster groups summaries judged to cover the same topic.
// Count always equals 1 + len(Extras).
type Cluster struct {
	Representative string
	Centroid       Vector
	Count          int
	Extras         []string
}

// Members returns the representative followed by the extras in admission order.
func (c *Cluster) Members() []string {
	out := make([]string, 0, c.Count)
	out = append(out, c.Representative)
	return append(out, c.Extras...)
}

// Digest is the merged summary persisted for one calendar date.
type Digest struct {
	Date string
	Text string
}

// DigestDate formats t as the digest key in t's location.
func DigestDate(t time.Time) string {
	return t.Format(DateLayout)
}
