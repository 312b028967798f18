package job

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	etl "github.com/Parnalkhole/ExtractTransformLoadGDP"
	"github.com/Parnalkhole/ExtractTransformLoadGDP/internal/config"
	"github.com/Parnalkhole/ExtractTransformLoadGDP/internal/dataset"
	"github.com/Parnalkhole/ExtractTransformLoadGDP/internal/extract"
	"github.com/Parnalkhole/ExtractTransformLoadGDP/internal/fetch"
	"github.com/Parnalkhole/ExtractTransformLoadGDP/internal/progress"
	"github.com/Parnalkhole/ExtractTransformLoadGDP/internal/query"
	"github.com/Parnalkhole/ExtractTransformLoadGDP/internal/rates"
	"github.com/Parnalkhole/ExtractTransformLoadGDP/internal/store"
	"github.com/Parnalkhole/ExtractTransformLoadGDP/internal/transform"
)

// Report summarizes a successful run.
type Report struct {
	RunID    string
	Variant  string
	Table    string
	CSVPath  string
	Stats    *etl.Stats
	Loaded   int64
	Omitted  []string
	Queries  []query.Result
	Duration time.Duration
}

// Options configures a Runner.
type Options struct {
	Driver       string
	FetchTimeout time.Duration
	// HTTPClient replaces the fetcher's default client.
	HTTPClient *http.Client
	Logger     *slog.Logger
	// Out receives the query report. Nil discards it.
	Out io.Writer
	Now func() time.Time
}

// Runner executes one variant end to end: pipeline, then queries.
type Runner struct {
	name    string
	variant config.Variant
	opts    Options
}

// NewRunner creates a Runner for the named variant.
func NewRunner(name string, v config.Variant, opts Options) *Runner {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	return &Runner{name: name, variant: v, opts: opts}
}

// Run executes the variant once. Fatal errors are logged at
// progress.LevelCritical and returned; the store is closed on every path.
func (r *Runner) Run(ctx context.Context) (rep *Report, err error) {
	logger := r.opts.Logger.With("variant", r.name)
	began := r.opts.Now()
	defer func() {
		if err != nil {
			logger.Log(ctx, progress.LevelCritical, "ETL process failed", "error", err)
		}
	}()

	j, err := r.newJob(logger)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, store.Options{
		Path:   r.variant.StorePath,
		Driver: r.opts.Driver,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logger.Warn("store close failed", "error", cerr)
		}
	}()
	if err := st.Migrate(ctx); err != nil {
		return nil, err
	}
	j.store = st

	if err := etl.New[dataset.Record, dataset.Row](j).Run(ctx); err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "SQL Connection initiated. Running queries", "count", len(r.variant.Queries))
	results, qerr := query.NewRunner(st.DB(), r.opts.Out, logger).Run(ctx, r.variant.Queries)

	final := j.record(store.StatusSucceeded, r.opts.Now(), j.stats, qerr)
	if qerr != nil {
		final.Status = store.StatusFailed
	}
	if rerr := st.RecordRun(context.WithoutCancel(ctx), final); rerr != nil {
		logger.WarnContext(ctx, "run history not recorded", "error", rerr)
	}
	if qerr != nil {
		return nil, fmt.Errorf("%s: %w", etl.StageQuery, qerr)
	}

	logger.InfoContext(ctx, "Process Complete.", "run_id", j.runID)
	return &Report{
		RunID:    j.runID,
		Variant:  r.name,
		Table:    r.variant.TableName,
		CSVPath:  r.variant.OutputPath,
		Stats:    j.stats,
		Loaded:   j.loaded,
		Omitted:  j.transformer.Omitted(),
		Queries:  results,
		Duration: r.opts.Now().Sub(began),
	}, nil
}

// newJob builds the stage components. The conversion table is read only
// when the variant derives currency columns.
func (r *Runner) newJob(logger *slog.Logger) (*Job, error) {
	v := r.variant

	ex, err := extract.New(extract.Options{
		TableIndex:      v.TableLocator,
		NameCell:        v.NameCell,
		ValueCell:       v.ValueCell,
		MinCells:        v.MinCells,
		RequireLink:     v.RequireLink,
		Sentinels:       v.Sentinels,
		Policy:          extract.Policy(v.Policy),
		NameColumn:      v.NameColumn,
		MagnitudeColumn: v.MagnitudeColumn,
	})
	if err != nil {
		return nil, err
	}

	var table rates.Table
	if len(v.Currencies) > 0 {
		if table, err = rates.Load(v.ConversionSource); err != nil {
			return nil, err
		}
	}

	tr, err := transform.New(transform.Options{
		NameColumn:    v.NameColumn,
		PrimaryColumn: v.PrimaryColumn,
		Divisor:       v.Divisor,
		Currencies:    v.Currencies,
		DerivedColumn: v.DerivedColumn,
	}, table, logger)
	if err != nil {
		return nil, err
	}

	return &Job{
		name:    r.name,
		variant: v,
		fetcher: fetch.New(fetch.Options{
			Timeout: r.opts.FetchTimeout,
			Client:  r.opts.HTTPClient,
		}),
		extractor:   ex,
		transformer: tr,
		logger:      logger,
		now:         r.opts.Now,
	}, nil
}
