package etl

// Default configuration values.
const (
	DefaultLoadBatchSize  = 100
	DefaultReportInterval = 10000
)

// LoadBatchSize controls the number of records batched together before calling
// Load. Implement this interface to set the batch size from the job struct
// rather than the pipeline builder.
//
// The value can be overridden at runtime via WithLoadBatchSize, which takes
// precedence. If neither is set, DefaultLoadBatchSize (100) is used.
//
// This value is used as the default batch size when no custom Batcher is
// implemented. When a custom Batcher is present, this value is ignored in
// favor of the Batcher's own logic.
//
// Jobs whose destination is written with replace semantics must see the whole
// dataset in one Load call; those jobs implement Batcher with [NoBatcher]
// instead of tuning this value.
//
// Example:
//
//	func (j *MyJob) LoadBatchSize() int { return 500 }
type LoadBatchSize interface {
	// LoadBatchSize returns the number of records to batch before loading.
	LoadBatchSize() int
}

// resolveLoadBatchSize returns the effective load batch size.
// Priority: WithLoadBatchSize > LoadBatchSize interface > DefaultLoadBatchSize.
func (p *Pipeline[S, T]) resolveLoadBatchSize() int {
	if p.batchSize != nil {
		return *p.batchSize
	}
	if p.loadBatchSizeIface != nil {
		return p.loadBatchSizeIface.LoadBatchSize()
	}
	return DefaultLoadBatchSize
}

// resolveReportInterval returns the effective report interval.
// Priority: WithReportInterval > ReportInterval interface > DefaultReportInterval.
// Non-positive interface values fall back to the default.
func (p *Pipeline[S, T]) resolveReportInterval() int {
	if p.reportInterval != nil {
		return *p.reportInterval
	}
	if p.reportIntervalIface != nil {
		if n := p.reportIntervalIface.ReportInterval(); n > 0 {
			return n
		}
	}
	return DefaultReportInterval
}

// resolveBatcher returns the effective batcher.
// Uses the job's Batcher if implemented, otherwise falls back to SizeBatcher
// with the resolved load batch size.
func (p *Pipeline[S, T]) resolveBatcher() Batcher[T] {
	if p.batcher != nil {
		return p.batcher
	}
	return SizeBatcher[T](p.resolveLoadBatchSize())
}
