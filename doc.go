// Package etl provides the Extract-Transform-Load pipeline engine used by
// tabload.
//
// A job type implements only the interfaces it needs. The pipeline
// auto-detects implemented interfaces and configures itself accordingly.
// Runtime configuration overrides are also available via method chaining.
//
// # Quick Start
//
// Implement the required Job interface:
//
//	type BanksJob struct {
//	    page *goquery.Document
//	    db   *sql.DB
//	}
//
//	func (j *BanksJob) Extract(ctx context.Context) iter.Seq2[Record, error] {
//	    return func(yield func(Record, error) bool) {
//	        for _, tr := range j.page.Find("tbody").First().Find("tr").EachIter() {
//	            rec, err := parseRow(tr)
//	            if !yield(rec, err) {
//	                return
//	            }
//	        }
//	    }
//	}
//
//	func (j *BanksJob) Transform(ctx context.Context, rec Record) (Row, error) {
//	    return Row{Name: rec.Name, Billions: rec.Millions / 1000}, nil
//	}
//
//	func (j *BanksJob) Load(ctx context.Context, rows []Row) error {
//	    return replaceTable(ctx, j.db, "Largest_banks", rows)
//	}
//
//	err := etl.New[Record, Row](&BanksJob{page: doc, db: db}).Run(ctx)
//
// # Execution
//
// A run is one linear pass in source order. Each extracted record is
// filtered and transformed as it arrives; the transformed records are
// collected, and loading begins only once the source is exhausted. A failed
// run never reaches the load stage, so a destination is either replaced with
// the complete result or left untouched.
//
// # Interface-Based Design
//
// The pipeline auto-detects optional interfaces:
//
//	// Filter[S]: drop records before transformation
//	func (j *BanksJob) Include(rec Record) bool { return rec.Millions > 0 }
//
//	// ErrorHandler: decide per error whether to skip or fail
//	func (j *BanksJob) OnError(ctx context.Context, stage etl.Stage, err error) etl.Action {
//	    var skip *RowSkip
//	    if stage == etl.StageExtract && errors.As(err, &skip) {
//	        return etl.ActionSkip
//	    }
//	    return etl.ActionFail
//	}
//
//	// ProgressReporter: called as the loaded count crosses ReportInterval
//	func (j *BanksJob) ReportInterval() int { return 1 }
//	func (j *BanksJob) OnProgress(ctx context.Context, stats *etl.Stats) {
//	    slog.InfoContext(ctx, "progress", "stats", stats)
//	}
//
// # Configuration
//
// Every configuration knob follows the same pattern: a WithXxx builder method
// and a matching Xxx interface. The builder always takes priority.
//
//	err := etl.New[Record, Row](job).
//	    WithLoadBatchSize(500).
//	    WithReportInterval(1000).
//	    Run(ctx)
//
// Configuration priority (highest to lowest):
//  1. WithXxx() method overrides
//  2. Interface implementations
//  3. Default values
//
// # Batching
//
// By default transformed records are loaded in batches of LoadBatchSize
// (default 100). Destinations written with replace semantics implement
// Batcher with NoBatcher so Load sees the whole dataset once:
//
//	func (j *BanksJob) Batch(rows []Row) [][]Row {
//	    return etl.NoBatcher[Row]().Batch(rows)
//	}
//
// WeightedBatcher caps the cumulative weight of a batch, which suits
// multi-row INSERT statements bounded by a parameter limit:
//
//	etl.WeightedBatcher(func(Row) int { return 5 }, 32766).Batch(rows)
//
// # Lifecycle Hooks
//
// Starter runs once before extraction and may enrich the context. Stopper
// runs once before Run returns, with the final stats and the run's error,
// on a context that is no longer cancelled:
//
//	func (j *BanksJob) Stop(ctx context.Context, stats *etl.Stats, err error) {
//	    recordRun(ctx, j.runID, stats, err)
//	}
//
// # Error Handling
//
// Without ErrorHandler, the pipeline stops on the first error. Errors are
// returned wrapped with the stage that produced them ("extract: ...",
// "transform: ...", "load: ..."). Skipped errors are still counted in
// Stats.Errors.
package etl
