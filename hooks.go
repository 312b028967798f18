package etl

import "context"

// Filter excludes records before transformation. Implement this interface when
// you need to skip records based on their content without incurring the cost of
// transformation.
//
// Filtered records are counted in Stats.Filtered and never reach the
// transform or load stages. A filtered record is not an error; use the
// ErrorHandler path when the exclusion should be reported.
//
// Example:
//
//	func (j *MyJob) Include(src Source) bool {
//	    return src.Value >= j.threshold
//	}
type Filter[S any] interface {
	// Include returns true if the record should be processed.
	Include(src S) bool
}

// ErrorHandler customizes error handling per pipeline stage. Without an
// ErrorHandler, the pipeline stops on the first error in any stage.
//
// The handler decides which failures are recoverable. A typical job inspects
// the error type with errors.As and skips per-record validation failures while
// failing on everything else:
//
//	func (j *MyJob) OnError(ctx context.Context, stage etl.Stage, err error) etl.Action {
//	    var skip *RowSkip
//	    if stage == etl.StageExtract && errors.As(err, &skip) {
//	        slog.WarnContext(ctx, "row skipped", "reason", skip.Reason)
//	        return etl.ActionSkip
//	    }
//	    return etl.ActionFail
//	}
//
// Skipped errors still increment Stats.Errors. The err parameter passed to
// Stopper.Stop only contains the fatal error that caused the pipeline to fail.
type ErrorHandler interface {
	// OnError is called when an error occurs during any stage.
	// Return ActionSkip to continue processing, ActionFail to stop the pipeline.
	OnError(ctx context.Context, stage Stage, err error) Action
}

// Starter is called before pipeline execution begins. Implement this interface
// when you need to perform setup work or enrich the context before extraction
// starts.
//
// The context returned by Start is propagated to all pipeline stages and to
// Stopper.Stop.
//
// Example:
//
//	func (j *MyJob) Start(ctx context.Context) context.Context {
//	    j.startedAt = time.Now()
//	    slog.InfoContext(ctx, "pipeline starting")
//	    return ctx
//	}
//
// Start is called exactly once, before the first call to Extract.
type Starter interface {
	// Start is called before extraction begins.
	// The returned context is used for the entire pipeline.
	Start(ctx context.Context) context.Context
}

// Stopper is called after pipeline execution completes, regardless of whether
// the pipeline succeeded or failed. Implement this interface for cleanup,
// final logging, or recording run history.
//
// The ctx passed to Stop is detached from the run's cancellation so cleanup
// can still write to a database after the caller cancelled the run.
//
// The err parameter is the same error value returned by Run.
//
// Example:
//
//	func (j *MyJob) Stop(ctx context.Context, stats *etl.Stats, err error) {
//	    if err != nil {
//	        slog.ErrorContext(ctx, "pipeline failed", "error", err, "stats", stats)
//	        return
//	    }
//	    slog.InfoContext(ctx, "pipeline complete", "stats", stats)
//	}
//
// Stop is called exactly once, before Run returns.
type Stopper interface {
	// Stop is called exactly once, before Run returns.
	Stop(ctx context.Context, stats *Stats, err error)
}
