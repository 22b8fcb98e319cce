package dupescan

import "sync/atomic"

// ScanProgress carries live counters for a single run. It is passed
// explicitly to every stage that reports progress; nothing ambient survives
// between runs. All fields are safe for concurrent increment.
type ScanProgress struct {
	FilesDiscovered atomic.Int64 // regular files catalogued by the walker
	BytesDiscovered atomic.Int64 // their combined size
	CandidatesFound atomic.Int64 // files in size buckets with >=2 members
	PrefixHashed    atomic.Int64 // prefix digests computed by the pre-filter
	FullHashed      atomic.Int64 // full digests computed
	BytesHashed     atomic.Int64 // bytes fed through digests
	Warnings        atomic.Int64 // non-fatal failures so far
}

// ProgressSnapshot is a point-in-time copy of the counters
type ProgressSnapshot struct {
	FilesDiscovered int64
	BytesDiscovered int64
	CandidatesFound int64
	PrefixHashed    int64
	FullHashed      int64
	BytesHashed     int64
	Warnings        int64
}

// Snapshot reads all counters at once
func (p *ScanProgress) Snapshot() ProgressSnapshot {
	return ProgressSnapshot{
		FilesDiscovered: p.FilesDiscovered.Load(),
		BytesDiscovered: p.BytesDiscovered.Load(),
		CandidatesFound: p.CandidatesFound.Load(),
		PrefixHashed:    p.PrefixHashed.Load(),
		FullHashed:      p.FullHashed.Load(),
		BytesHashed:     p.BytesHashed.Load(),
		Warnings:        p.Warnings.Load(),
	}
}
