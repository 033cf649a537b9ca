package source

import (
	"math"
	"time"
)

// localTimeLayout is the shape every surfaced timestamp takes after
// timezone normalization: ISO-8601 with milliseconds and numeric offset.
const localTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// toLocal shifts an RFC3339 UTC timestamp to the reader's configured fixed
// offset. Zero offset or an unparsable input is a pass-through; duration
// math is unaffected either way because both bounds shift together.
func (r *Reader) toLocal(ts string) string {
	if r.TZOffsetHours == 0 || ts == "" {
		return ts
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return ts
	}
	zone := time.FixedZone("", int(r.TZOffsetHours*3600))
	return t.In(zone).Format(localTimeLayout)
}

// durationMinutes computes end minus start in minutes, rounded to one
// decimal place. Zero when either bound is missing or unparsable.
func durationMinutes(start, end string) float64 {
	if start == "" || end == "" {
		return 0
	}
	t0, err := time.Parse(time.RFC3339Nano, start)
	if err != nil {
		return 0
	}
	t1, err := time.Parse(time.RFC3339Nano, end)
	if err != nil {
		return 0
	}
	mins := t1.Sub(t0).Minutes()
	return math.Round(mins*10) / 10
}
