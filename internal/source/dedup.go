package source

// usage is one cumulative token snapshot.
type usage struct {
	input         int64
	output        int64
	cacheRead     int64
	cacheCreation int64
}

func snapshotOf(u *rawUsage) usage {
	return usage{
		input:         u.InputTokens,
		output:        u.OutputTokens,
		cacheRead:     u.CacheReadInputTokens,
		cacheCreation: u.CacheCreationInputTokens,
	}
}

// deduper converts cumulative streamed usage snapshots into incremental
// deltas. The source emits several lines per logical API response, all
// sharing a stream id and each carrying the cumulative usage so far; summing
// them naively overcounts. The delta for a repeated id is current minus the
// previously stored snapshot, so replaying all chunks nets out to the last
// one. Snapshots without a stream id are never deduplicated.
type deduper struct {
	last map[string]usage
}

func newDeduper() *deduper {
	return &deduper{last: make(map[string]usage)}
}

func (d *deduper) delta(streamID string, cur usage) usage {
	if streamID == "" {
		return cur
	}
	prev, seen := d.last[streamID]
	d.last[streamID] = cur
	if !seen {
		return cur
	}
	return usage{
		input:         cur.input - prev.input,
		output:        cur.output - prev.output,
		cacheRead:     cur.cacheRead - prev.cacheRead,
		cacheCreation: cur.cacheCreation - prev.cacheCreation,
	}
}
