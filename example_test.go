package etl_test

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strconv"
	"strings"

	etl "github.com/Parnalkhole/ExtractTransformLoadGDP"
)

// Source is a source record type for examples.
type Source struct {
	Name  string
	Value string
}

// Target is a target record type for examples.
type Target struct {
	Name  string
	Value float64
}

// =============================================================================
// Example: Basic Pipeline
// =============================================================================

type basicJob struct {
	rows []Source
}

func (j *basicJob) Extract(_ context.Context) iter.Seq2[Source, error] {
	return func(yield func(Source, error) bool) {
		for _, r := range j.rows {
			if !yield(r, nil) {
				return
			}
		}
	}
}

func (j *basicJob) Transform(_ context.Context, src Source) (Target, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(src.Value, ",", ""), 64)
	if err != nil {
		return Target{}, fmt.Errorf("%s: %w", src.Name, err)
	}
	return Target{Name: src.Name, Value: v / 1000}, nil
}

func (j *basicJob) Load(_ context.Context, batch []Target) error {
	for _, r := range batch {
		fmt.Printf("loaded: %s %.2f\n", r.Name, r.Value) //nolint:forbidigo // example output for godoc
	}
	return nil
}

func ExampleNew() {
	job := &basicJob{
		rows: []Source{
			{Name: "Bank A", Value: "1,000"},
			{Name: "Bank B", Value: "500.5"},
		},
	}

	err := etl.New[Source, Target](job).Run(context.Background())
	if err != nil {
		fmt.Println("error:", err)
	}

	// Output:
	// loaded: Bank A 1.00
	// loaded: Bank B 0.50
}

// =============================================================================
// Example: Skipping Bad Rows
// =============================================================================

var errNoData = errors.New("no data")

type skippingJob struct {
	basicJob
}

func (j *skippingJob) Extract(_ context.Context) iter.Seq2[Source, error] {
	return func(yield func(Source, error) bool) {
		for _, r := range j.rows {
			if r.Value == "—" {
				if !yield(Source{}, fmt.Errorf("%s: %w", r.Name, errNoData)) {
					return
				}
				continue
			}
			if !yield(r, nil) {
				return
			}
		}
	}
}

func (j *skippingJob) OnError(_ context.Context, stage etl.Stage, err error) etl.Action {
	if stage == etl.StageExtract && errors.Is(err, errNoData) {
		fmt.Println("skipped:", err) //nolint:forbidigo // example output for godoc
		return etl.ActionSkip
	}
	return etl.ActionFail
}

func (j *skippingJob) Batch(items []Target) [][]Target {
	return etl.NoBatcher[Target]().Batch(items)
}

func ExampleErrorHandler() {
	job := &skippingJob{basicJob{
		rows: []Source{
			{Name: "Bank A", Value: "1,000"},
			{Name: "Bank B", Value: "—"},
			{Name: "Bank C", Value: "500.5"},
		},
	}}

	err := etl.New[Source, Target](job).Run(context.Background())
	if err != nil {
		fmt.Println("error:", err)
	}

	// Output:
	// skipped: Bank B: no data
	// loaded: Bank A 1.00
	// loaded: Bank C 0.50
}

// =============================================================================
// Example: Pipeline with Configuration
// =============================================================================

func ExamplePipeline_Run() {
	job := &basicJob{
		rows: []Source{
			{Name: "Bank A", Value: "1,000"},
			{Name: "Bank B", Value: "oops"},
		},
	}

	err := etl.New[Source, Target](job).
		WithLoadBatchSize(1).
		Run(context.Background())
	fmt.Println("error:", err)

	// Output:
	// error: transform: Bank B: strconv.ParseFloat: parsing "oops": invalid syntax
}

// =============================================================================
// Example: SizeBatcher
// =============================================================================

func ExampleSizeBatcher() {
	batcher := etl.SizeBatcher[string](2)
	batches := batcher.Batch([]string{"a", "b", "c", "d", "e"})
	fmt.Println(batches)

	// Output:
	// [[a b] [c d] [e]]
}

// =============================================================================
// Example: NoBatcher
// =============================================================================

func ExampleNoBatcher() {
	batcher := etl.NoBatcher[string]()
	batches := batcher.Batch([]string{"a", "b", "c"})
	fmt.Println(batches)

	// Output:
	// [[a b c]]
}

// =============================================================================
// Example: WeightedBatcher
// =============================================================================

func ExampleWeightedBatcher() {
	// Three bound parameters per row, at most seven per statement.
	batcher := etl.WeightedBatcher(func(string) int { return 3 }, 7)
	batches := batcher.Batch([]string{"a", "b", "c", "d", "e"})
	fmt.Println(batches)

	// Output:
	// [[a b] [c d] [e]]
}
