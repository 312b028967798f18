package etl

import (
	"context"
	"iter"
)

// Stage identifies where in the pipeline an event occurred.
type Stage string

const (
	StageExtract   Stage = "extract"
	StageTransform Stage = "transform"
	StageLoad      Stage = "load"
	StageQuery     Stage = "query"
)

// Action tells the pipeline what to do after an error.
type Action string

const (
	ActionFail Action = "fail" // Stop pipeline and return error
	ActionSkip Action = "skip" // Skip this record and continue
)

// Job defines the core ETL operations. This is the only required interface to
// implement.
//
// The type parameters are:
//   - S: source record type (extracted from the data source)
//   - T: target record type (loaded to the destination)
//
// For transformation, implement one of:
//   - [Transformer]: 1:1 transform (one input record -> one output record)
//   - [Expander]: 1:N transform (one input record -> multiple output records)
//
// If both are implemented, Transformer takes precedence.
type Job[S, T any] interface {
	// Extract yields records from the source in source order.
	// A yielded error is routed through ErrorHandler when the job has one;
	// returning ActionSkip drops that record and continues with the next.
	Extract(ctx context.Context) iter.Seq2[S, error]

	// Load writes a batch of records to the destination.
	// Should be idempotent (replace or UPSERT) so reruns do not duplicate data.
	Load(ctx context.Context, batch []T) error
}

// Transformer converts one input record to one output record. Use this for
// simple 1:1 mappings where each source record produces exactly one target
// record.
//
// Example:
//
//	func (j *MyJob) Transform(ctx context.Context, src Source) (Target, error) {
//	    return Target{
//	        ID:   src.ID,
//	        Name: strings.ToUpper(src.Name),
//	    }, nil
//	}
type Transformer[S, T any] interface {
	Transform(ctx context.Context, src S) (T, error)
}

// Expander converts one input record to multiple output records. Use this when
// a single source record needs to produce a variable number of target records.
//
// Returning an empty or nil slice filters the record out: no target records
// are produced and nothing reaches the load stage.
//
// Example:
//
//	func (j *MyJob) Expand(ctx context.Context, src Source) ([]Target, error) {
//	    targets := make([]Target, 0, len(src.Items))
//	    for _, item := range src.Items {
//	        targets = append(targets, Target{ParentID: src.ID, ItemID: item.ID})
//	    }
//	    return targets, nil
//	}
type Expander[S, T any] interface {
	Expand(ctx context.Context, src S) ([]T, error)
}
