// Package job binds a configured variant to the pipeline engine.
package job

import (
	"bytes"
	"context"
	"errors"
	"iter"
	"log/slog"
	"time"

	"github.com/google/uuid"

	etl "github.com/Parnalkhole/ExtractTransformLoadGDP"
	"github.com/Parnalkhole/ExtractTransformLoadGDP/internal/config"
	"github.com/Parnalkhole/ExtractTransformLoadGDP/internal/dataset"
	"github.com/Parnalkhole/ExtractTransformLoadGDP/internal/extract"
	"github.com/Parnalkhole/ExtractTransformLoadGDP/internal/fetch"
	"github.com/Parnalkhole/ExtractTransformLoadGDP/internal/sink"
	"github.com/Parnalkhole/ExtractTransformLoadGDP/internal/store"
	"github.com/Parnalkhole/ExtractTransformLoadGDP/internal/transform"
)

// Job is the etl.Job for one variant: it extracts records from the source
// page, transforms them and replaces both the CSV snapshot and the store
// table with the result.
type Job struct {
	name        string
	variant     config.Variant
	fetcher     *fetch.Fetcher
	extractor   *extract.Extractor
	transformer *transform.Transformer
	store       *store.Store
	logger      *slog.Logger
	now         func() time.Time

	runID     string
	startedAt time.Time
	stats     *etl.Stats
	loaded    int64
}

var (
	_ etl.Job[dataset.Record, dataset.Row]         = (*Job)(nil)
	_ etl.Transformer[dataset.Record, dataset.Row] = (*Job)(nil)
	_ etl.Batcher[dataset.Row]                     = (*Job)(nil)
	_ etl.ErrorHandler                             = (*Job)(nil)
	_ etl.Starter                                  = (*Job)(nil)
	_ etl.Stopper                                  = (*Job)(nil)
	_ etl.ProgressReporter                         = (*Job)(nil)
)

// Extract fetches the source page and yields the located table's rows.
func (j *Job) Extract(ctx context.Context) iter.Seq2[dataset.Record, error] {
	return func(yield func(dataset.Record, error) bool) {
		page, err := j.fetcher.Fetch(ctx, j.variant.SourceURL)
		if err != nil {
			yield(dataset.Record{}, err)
			return
		}
		j.logger.DebugContext(ctx, "source fetched", "source", j.variant.SourceURL, "bytes", len(page))

		doc, err := j.extractor.Parse(bytes.NewReader(page))
		if err != nil {
			yield(dataset.Record{}, err)
			return
		}
		for rec, err := range j.extractor.Rows(doc) {
			if !yield(rec, err) {
				return
			}
		}
		j.logger.InfoContext(ctx, "Data extraction complete. Initiating Transformation process")
	}
}

// Transform rescales the record and derives its currency columns.
func (j *Job) Transform(ctx context.Context, rec dataset.Record) (dataset.Row, error) {
	return j.transformer.Transform(ctx, rec)
}

// Batch delivers the whole dataset in one Load call; both destinations are
// replaced, not appended to.
func (j *Job) Batch(rows []dataset.Row) [][]dataset.Row {
	return etl.NoBatcher[dataset.Row]().Batch(rows)
}

// Load writes the snapshot file, then replaces the store table.
func (j *Job) Load(ctx context.Context, rows []dataset.Row) error {
	j.logger.InfoContext(ctx, "Data transformation complete. Initiating loading process")

	d := dataset.Transformed{Schema: j.transformer.Schema(), Rows: rows}

	if err := sink.WriteCSV(j.variant.OutputPath, d); err != nil {
		return err
	}
	j.logger.InfoContext(ctx, "Data saved to CSV file", "path", j.variant.OutputPath)

	n, err := j.store.Replace(ctx, j.variant.TableName, d)
	if err != nil {
		return err
	}
	j.loaded = n
	j.logger.InfoContext(ctx, "Data loaded to Database as table", "table", j.variant.TableName, "rows", n)
	return nil
}

// OnError skips rows that failed validation and fails on everything else.
func (j *Job) OnError(ctx context.Context, stage etl.Stage, err error) etl.Action {
	var skip *extract.SkipError
	if stage != etl.StageExtract || !errors.As(err, &skip) {
		return etl.ActionFail
	}
	level := slog.LevelDebug
	if j.extractor.Options().Policy == extract.PolicyLogged {
		level = slog.LevelWarn
	}
	j.logger.Log(ctx, level, "row excluded", "row", skip.Row, "reason", string(skip.Reason), "value", skip.Value)
	return etl.ActionSkip
}

// Start assigns the run ID and opens the run history entry.
func (j *Job) Start(ctx context.Context) context.Context {
	j.runID = uuid.NewString()
	j.startedAt = j.now()
	j.logger.InfoContext(ctx, "Preliminaries complete. Initiating ETL process", "run_id", j.runID)

	if err := j.store.RecordRun(ctx, j.record(store.StatusRunning, j.startedAt, nil, nil)); err != nil {
		j.logger.WarnContext(ctx, "run history not recorded", "error", err)
	}
	return ctx
}

// ReportInterval reports once per loaded batch.
func (j *Job) ReportInterval() int { return 1 }

// OnProgress logs the counters after the load.
func (j *Job) OnProgress(ctx context.Context, stats *etl.Stats) {
	j.logger.DebugContext(ctx, "load progress", "stats", stats)
}

// Stop records how the pipeline ended.
func (j *Job) Stop(ctx context.Context, stats *etl.Stats, err error) {
	j.stats = stats
	status := store.StatusLoaded
	if err != nil {
		status = store.StatusFailed
	}
	if rerr := j.store.RecordRun(ctx, j.record(status, j.now(), stats, err)); rerr != nil {
		j.logger.WarnContext(ctx, "run history not recorded", "error", rerr)
	}
	j.logger.InfoContext(ctx, "pipeline finished", "status", status, "stats", stats)
}

func (j *Job) record(status string, finished time.Time, stats *etl.Stats, err error) store.RunRecord {
	r := store.RunRecord{
		ID:         j.runID,
		Variant:    j.name,
		Table:      j.variant.TableName,
		StartedAt:  j.startedAt,
		FinishedAt: finished,
		Status:     status,
	}
	if stats != nil {
		if data, merr := stats.MarshalJSON(); merr == nil {
			r.Stats = data
		}
	}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}
