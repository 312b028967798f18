package etl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Stats counts records at each pipeline stage. The counters are atomic so a
// run can be logged or recorded while workers are still updating it.
type Stats struct {
	extracted   atomic.Int64
	filtered    atomic.Int64
	transformed atomic.Int64
	loaded      atomic.Int64
	errors      atomic.Int64
}

// ParseStats decodes counters previously written with MarshalJSON, such as
// the stats column of the run history. Empty input yields zero counters.
func ParseStats(data []byte) (*Stats, error) {
	s := &Stats{}
	if len(bytes.TrimSpace(data)) == 0 {
		return s, nil
	}
	if err := s.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("decode stats: %w", err)
	}
	return s, nil
}

// Extracted returns the number of records extracted.
func (s *Stats) Extracted() int64 { return s.extracted.Load() }

// Filtered returns the number of records filtered out before transformation.
func (s *Stats) Filtered() int64 { return s.filtered.Load() }

// Transformed returns the number of records transformed.
func (s *Stats) Transformed() int64 { return s.transformed.Load() }

// Loaded returns the number of records loaded.
func (s *Stats) Loaded() int64 { return s.loaded.Load() }

// Errors returns the number of errors encountered.
func (s *Stats) Errors() int64 { return s.errors.Load() }

// LogValue implements slog.LogValuer for structured logging.
func (s *Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("extracted", s.Extracted()),
		slog.Int64("filtered", s.Filtered()),
		slog.Int64("transformed", s.Transformed()),
		slog.Int64("loaded", s.Loaded()),
		slog.Int64("errors", s.Errors()),
	)
}

type statsJSON struct {
	Extracted   int64 `json:"extracted"`
	Filtered    int64 `json:"filtered"`
	Transformed int64 `json:"transformed"`
	Loaded      int64 `json:"loaded"`
	Errors      int64 `json:"errors"`
}

func (s *Stats) MarshalJSON() ([]byte, error) {
	return json.Marshal(statsJSON{
		Extracted:   s.Extracted(),
		Filtered:    s.Filtered(),
		Transformed: s.Transformed(),
		Loaded:      s.Loaded(),
		Errors:      s.Errors(),
	})
}

// UnmarshalJSON overwrites every counter. Missing keys reset to zero.
func (s *Stats) UnmarshalJSON(data []byte) error {
	var v statsJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	for _, c := range []struct {
		dst *atomic.Int64
		val int64
	}{
		{&s.extracted, v.Extracted},
		{&s.filtered, v.Filtered},
		{&s.transformed, v.Transformed},
		{&s.loaded, v.Loaded},
		{&s.errors, v.Errors},
	} {
		c.dst.Store(c.val)
	}
	return nil
}

// Internal increment methods. These return the new value after incrementing
// so progress reporting can detect interval crossings without a second read.
func (s *Stats) incExtracted(n int64) int64   { return s.extracted.Add(n) }
func (s *Stats) incFiltered(n int64) int64    { return s.filtered.Add(n) }
func (s *Stats) incTransformed(n int64) int64 { return s.transformed.Add(n) }
func (s *Stats) incLoaded(n int64) int64      { return s.loaded.Add(n) }
func (s *Stats) incErrors(n int64) int64      { return s.errors.Add(n) }
