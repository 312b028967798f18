package etl

import (
	"context"
	"fmt"
)

// transformMode indicates which transformation strategy to use.
type transformMode int

const (
	transformModeTransformer transformMode = iota // 1:1 via Transformer interface
	transformModeExpander                         // 1:N via Expander interface
)

// Pipeline orchestrates the ETL process.
//
// A run is one linear pass: every extracted record is filtered and transformed
// as it arrives, the transformed records are collected, and the load stage
// starts only after the source is exhausted. Nothing runs concurrently.
type Pipeline[S, T any] struct {
	job Job[S, T]

	// Configuration overrides (nil means use interface value or default)
	batchSize      *int
	reportInterval *int

	// Transformation strategy (detected at construction)
	txMode      transformMode
	transformer Transformer[S, T]
	expander    Expander[S, T]

	// Optional capabilities (detected from job interfaces)
	filter              Filter[S]
	errHandler          ErrorHandler
	progress            ProgressReporter
	starter             Starter
	stopper             Stopper
	batcher             Batcher[T]
	loadBatchSizeIface  LoadBatchSize
	reportIntervalIface ReportInterval
}

// New creates a new Pipeline for the given job.
// The job must implement Job[S, T]. Optional interfaces are auto-detected.
//
// For transformation, the job must implement one of:
//   - Transformer[S, T]: 1:1 transform (one input record -> one output record)
//   - Expander[S, T]: 1:N transform (one input record -> multiple output records)
//
// If both Transformer and Expander are implemented, Transformer takes precedence.
// Panics if neither is implemented.
func New[S, T any](job Job[S, T]) *Pipeline[S, T] {
	p := &Pipeline[S, T]{
		job: job,
	}

	// Detect transformation mode (precedence: Transformer > Expander)
	if t, ok := any(job).(Transformer[S, T]); ok {
		p.txMode = transformModeTransformer
		p.transformer = t
	} else if e, ok := any(job).(Expander[S, T]); ok {
		p.txMode = transformModeExpander
		p.expander = e
	} else {
		panic("etl: job must implement Transformer[S, T] or Expander[S, T]")
	}

	// Auto-detect optional interfaces
	if f, ok := any(job).(Filter[S]); ok {
		p.filter = f
	}
	if h, ok := any(job).(ErrorHandler); ok {
		p.errHandler = h
	}
	if t, ok := any(job).(ProgressReporter); ok {
		p.progress = t
	}
	if s, ok := any(job).(Starter); ok {
		p.starter = s
	}
	if s, ok := any(job).(Stopper); ok {
		p.stopper = s
	}
	if b, ok := any(job).(Batcher[T]); ok {
		p.batcher = b
	}
	if s, ok := any(job).(LoadBatchSize); ok {
		p.loadBatchSizeIface = s
	}
	if r, ok := any(job).(ReportInterval); ok {
		p.reportIntervalIface = r
	}

	return p
}

// WithLoadBatchSize overrides the number of records to batch before loading.
// Priority: this method > LoadBatchSize interface > DefaultLoadBatchSize.
// Values less than 1 are ignored.
func (p *Pipeline[S, T]) WithLoadBatchSize(n int) *Pipeline[S, T] {
	if n >= 1 {
		p.batchSize = &n
	}
	return p
}

// WithReportInterval overrides how often to report progress (in records).
// Priority: this method > ProgressReporter interface > DefaultReportInterval.
// Values less than 1 are ignored.
func (p *Pipeline[S, T]) WithReportInterval(n int) *Pipeline[S, T] {
	if n >= 1 {
		p.reportInterval = &n
	}
	return p
}

// transform applies the appropriate transformation based on the detected mode.
// Returns a slice of transformed records (may be empty, single, or multiple items).
func (p *Pipeline[S, T]) transform(ctx context.Context, src S) ([]T, error) {
	switch p.txMode {
	case transformModeTransformer:
		result, err := p.transformer.Transform(ctx, src)
		if err != nil {
			return nil, err
		}
		return []T{result}, nil

	case transformModeExpander:
		return p.expander.Expand(ctx, src)

	default:
		panic("etl: unknown transform mode")
	}
}

// Run executes the pipeline.
func (p *Pipeline[S, T]) Run(ctx context.Context) error {
	stats := &Stats{}

	if p.starter != nil {
		ctx = p.starter.Start(ctx)
	}

	pipelineErr := p.execute(ctx, stats)

	if p.stopper != nil {
		p.stopper.Stop(context.WithoutCancel(ctx), stats, pipelineErr)
	}

	return pipelineErr
}

// execute runs the extract and transform stages record by record, then loads
// everything that survived once the source is exhausted.
func (p *Pipeline[S, T]) execute(ctx context.Context, stats *Stats) error {
	var pending []T

	for record, err := range p.job.Extract(ctx) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			if p.skip(ctx, StageExtract, err, stats) {
				continue
			}
			return fmt.Errorf("extract: %w", err)
		}

		stats.incExtracted(1)

		if p.filter != nil && !p.filter.Include(record) {
			stats.incFiltered(1)
			continue
		}

		results, err := p.transform(ctx, record)
		if err != nil {
			if p.skip(ctx, StageTransform, err, stats) {
				continue
			}
			return fmt.Errorf("transform: %w", err)
		}

		stats.incTransformed(1)
		pending = append(pending, results...)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return p.load(ctx, pending, stats)
}

// load batches the collected records and hands each batch to the job in order.
func (p *Pipeline[S, T]) load(ctx context.Context, items []T, stats *Stats) error {
	reportEvery := int64(p.resolveReportInterval())

	for _, batch := range p.resolveBatcher().Batch(items) {
		if len(batch) == 0 {
			continue
		}

		if err := p.job.Load(ctx, batch); err != nil {
			if p.skip(ctx, StageLoad, err, stats) {
				continue
			}
			return fmt.Errorf("load: %w", err)
		}

		newLoaded := stats.incLoaded(int64(len(batch)))
		prevLoaded := newLoaded - int64(len(batch))

		// Report progress when crossing a reportEvery threshold
		if p.progress != nil && newLoaded/reportEvery > prevLoaded/reportEvery {
			p.progress.OnProgress(ctx, stats)
		}
	}

	return nil
}

// skip counts the error and reports whether the job's ErrorHandler asked to
// skip it. Without an ErrorHandler every error is fatal.
func (p *Pipeline[S, T]) skip(ctx context.Context, stage Stage, err error, stats *Stats) bool {
	stats.incErrors(1)
	if p.errHandler == nil {
		return false
	}
	return p.errHandler.OnError(ctx, stage, err) == ActionSkip
}
