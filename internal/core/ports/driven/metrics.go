package driven

import "time"

// ImportMetrics records import telemetry.
type ImportMetrics interface {
	// RecordUpserted counts one activity written.
	RecordUpserted()

	// RecordSkipped counts one record rejected without a write.
	RecordSkipped(reason string)

	// RecordSource records the outcome and duration of one source.
	RecordSource(status string, d time.Duration)
}
