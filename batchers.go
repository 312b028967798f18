package etl

// Batcher groups transformed records into batches for loading. Implement this
// interface on your job when the default size-based batching is insufficient.
//
// The pipeline calls Batch once, after the source is exhausted, with every
// transformed record of the run in source order.
//
// The default batcher (used when Batcher is not implemented) is equivalent to
// SizeBatcher with the resolved LoadBatchSize.
//
// Ready-made batchers are available for common patterns:
//   - [SizeBatcher]: fixed number of items per batch
//   - [WeightedBatcher]: batch by cumulative weight (e.g., SQL param limits)
//   - [NoBatcher]: send everything in a single batch
//
// Example:
//
//	func (j *MyJob) Batch(items []Target) [][]Target {
//	    return etl.NoBatcher[Target]().Batch(items)
//	}
type Batcher[T any] interface {
	// Batch groups items into batches for loading.
	Batch(items []T) [][]T
}

// BatcherFunc adapts a plain function to the [Batcher] interface.
type BatcherFunc[T any] func(items []T) [][]T

func (f BatcherFunc[T]) Batch(items []T) [][]T {
	return f(items)
}

// NoBatcher returns items as a single batch (no batching).
// Destinations written with replace semantics need this: a second Load call
// would discard the first batch.
func NoBatcher[Target any]() Batcher[Target] {
	return BatcherFunc[Target](func(items []Target) [][]Target {
		if len(items) == 0 {
			return nil
		}
		return [][]Target{items}
	})
}

// SizeBatcher creates batches with a maximum number of items per batch.
//
// Example:
//
//	// Create batches of up to 100 items each
//	batcher := etl.SizeBatcher[MyRecord](100)
func SizeBatcher[Target any](maxSize int) Batcher[Target] {
	return BatcherFunc[Target](func(items []Target) [][]Target {
		if len(items) == 0 || maxSize <= 0 {
			return nil
		}
		return chunk(items, maxSize)
	})
}

// WeightedBatcher creates batches where the total weight does not exceed maxWeight.
// The weigher function returns the weight of each individual item. Items are accumulated
// into a batch until adding the next item would exceed maxWeight, at which point a new
// batch is started.
//
// If a single item exceeds maxWeight, it is placed in its own batch (never dropped).
//
// Example:
//
//	// Batch by SQL parameter count (3 columns per row, SQLite's 32766 limit)
//	batcher := etl.WeightedBatcher(func(r Row) int { return 3 }, 32766)
func WeightedBatcher[Target any](weigher func(Target) int, maxWeight int) Batcher[Target] {
	return BatcherFunc[Target](func(items []Target) [][]Target {
		if len(items) == 0 || maxWeight <= 0 {
			return nil
		}

		var batches [][]Target
		var current []Target
		currentWeight := 0

		for _, item := range items {
			w := weigher(item)

			// If adding this item would exceed the limit, flush current batch
			if len(current) > 0 && currentWeight+w > maxWeight {
				batches = append(batches, current)
				current = nil
				currentWeight = 0
			}

			current = append(current, item)
			currentWeight += w
		}

		if len(current) > 0 {
			batches = append(batches, current)
		}

		return batches
	})
}

// chunk splits a slice into sub-slices of at most size elements.
func chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 || size <= 0 {
		return nil
	}

	numChunks := (len(items) + size - 1) / size
	result := make([][]T, 0, numChunks)

	for i := 0; i < len(items); i += size {
		end := min(i+size, len(items))
		result = append(result, items[i:end])
	}

	return result
}
