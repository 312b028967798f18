package etl

import "context"

// ReportInterval controls how often progress is reported, measured in records
// loaded. This interface can be implemented independently of ProgressReporter
// when you want to set the interval via the job struct rather than the builder.
//
// The value can be overridden at runtime via WithReportInterval, which takes
// precedence over this interface. If neither is set, DefaultReportInterval
// (10,000 records) is used.
//
// Example:
//
//	func (j *MyJob) ReportInterval() int { return 5000 }
type ReportInterval interface {
	// ReportInterval returns how often to call OnProgress (in records loaded).
	ReportInterval() int
}

// ProgressReporter receives progress updates during the load stage.
//
// OnProgress is called each time the cumulative loaded count crosses a
// ReportInterval boundary. With a single full-dataset batch it is called at
// most once, right after that batch is loaded.
//
// Example:
//
//	func (j *MyJob) ReportInterval() int { return 1 }
//
//	func (j *MyJob) OnProgress(ctx context.Context, stats *etl.Stats) {
//	    slog.InfoContext(ctx, "progress",
//	        "extracted", stats.Extracted(),
//	        "loaded", stats.Loaded(),
//	        "errors", stats.Errors(),
//	    )
//	}
type ProgressReporter interface {
	ReportInterval

	// OnProgress is called after a load crosses a reporting boundary.
	OnProgress(ctx context.Context, stats *Stats)
}
