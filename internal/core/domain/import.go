package domain

import "time"

// ImportProgress is a point-in-time view of one source being imported.
// It is transient and owned by the importer for the duration of a source.
type ImportProgress struct {
	// Source names the file or stream being imported.
	Source string

	// Total is the number of records in the source.
	Total int

	// Current is the number of records processed so far.
	Current int

	// Started is when the source began importing.
	Started time.Time

	// Elapsed is the wall-clock time since Started.
	Elapsed time.Duration

	// Remaining is the estimated time to completion.
	Remaining time.Duration

	// PerRecord is the average time spent per record.
	PerRecord time.Duration

	// PerSecond is the average throughput in records per second.
	PerSecond float64
}

// Fraction returns the completed fraction in [0, 1].
func (p ImportProgress) Fraction() float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Current) / float64(p.Total)
}

// NewImportProgress derives throughput and ETA from counters.
// The ETA is the average time per record times the remaining record count.
func NewImportProgress(source string, total, current int, started, now time.Time) ImportProgress {
	p := ImportProgress{
		Source:  source,
		Total:   total,
		Current: current,
		Started: started,
		Elapsed: now.Sub(started),
	}
	if current > 0 {
		p.PerRecord = p.Elapsed / time.Duration(current)
		if remaining := total - current; remaining > 0 {
			p.Remaining = p.PerRecord * time.Duration(remaining)
		}
	}
	if secs := p.Elapsed.Seconds(); secs > 0 {
		p.PerSecond = float64(current) / secs
	}
	return p
}

// SourceResult summarises the import of one source.
type SourceResult struct {
	// Source names the file or stream.
	Source string

	// Total is the number of records found in the envelope.
	Total int

	// Upserted counts records written to the store.
	Upserted int

	// Skipped counts records rejected without a write (e.g. missing id).
	Skipped int

	// Duration is how long the source took.
	Duration time.Duration

	// Err is set when the source failed. Records before the failure
	// remain committed.
	Err error
}

// ImportResult summarises one import invocation.
type ImportResult struct {
	// RunID identifies the invocation in logs.
	RunID string

	// Sources holds one entry per attempted source, in order.
	Sources []SourceResult
}

// Failed reports whether any source failed.
func (r *ImportResult) Failed() bool {
	for i := range r.Sources {
		if r.Sources[i].Err != nil {
			return true
		}
	}
	return false
}

// Upserted returns the total records written across sources.
func (r *ImportResult) Upserted() int {
	n := 0
	for i := range r.Sources {
		n += r.Sources[i].Upserted
	}
	return n
}
