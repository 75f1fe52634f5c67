package studentetl

import (
	"encoding/json"
	"log/slog"
	"sync/atomic"
)

// Stats provides pipeline statistics with thread-safe access.
//
// Attempts and Errors accumulate across the whole run. Extracted, Transformed
// and Loaded describe the latest attempt.
type Stats struct {
	attempts    atomic.Int64
	extracted   atomic.Int64
	transformed atomic.Int64
	loaded      atomic.Int64
	errors      atomic.Int64
}

// NewStats creates a Stats with initial counter values.
func NewStats(attempts, extracted, transformed, loaded, errors int64) *Stats {
	s := &Stats{}
	s.attempts.Store(attempts)
	s.extracted.Store(extracted)
	s.transformed.Store(transformed)
	s.loaded.Store(loaded)
	s.errors.Store(errors)
	return s
}

// Attempts returns the number of attempts started.
func (s *Stats) Attempts() int64 { return s.attempts.Load() }

// Extracted returns the number of rows extracted by the latest attempt.
func (s *Stats) Extracted() int64 { return s.extracted.Load() }

// Transformed returns the number of rows transformed by the latest attempt.
func (s *Stats) Transformed() int64 { return s.transformed.Load() }

// Loaded returns the number of results loaded by the latest attempt.
func (s *Stats) Loaded() int64 { return s.loaded.Load() }

// Errors returns the number of failed attempts.
func (s *Stats) Errors() int64 { return s.errors.Load() }

// LogValue implements slog.LogValuer for structured logging.
func (s *Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("attempts", s.Attempts()),
		slog.Int64("extracted", s.Extracted()),
		slog.Int64("transformed", s.Transformed()),
		slog.Int64("loaded", s.Loaded()),
		slog.Int64("errors", s.Errors()),
	)
}

type statsJSON struct {
	Attempts    int64 `json:"attempts"`
	Extracted   int64 `json:"extracted"`
	Transformed int64 `json:"transformed"`
	Loaded      int64 `json:"loaded"`
	Errors      int64 `json:"errors"`
}

// MarshalJSON implements json.Marshaler for Stats serialization.
func (s *Stats) MarshalJSON() ([]byte, error) {
	return json.Marshal(statsJSON{
		Attempts:    s.attempts.Load(),
		Extracted:   s.extracted.Load(),
		Transformed: s.transformed.Load(),
		Loaded:      s.loaded.Load(),
		Errors:      s.errors.Load(),
	})
}

// UnmarshalJSON implements json.Unmarshaler for Stats deserialization.
func (s *Stats) UnmarshalJSON(data []byte) error {
	var v statsJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	s.attempts.Store(v.Attempts)
	s.extracted.Store(v.Extracted)
	s.transformed.Store(v.Transformed)
	s.loaded.Store(v.Loaded)
	s.errors.Store(v.Errors)
	return nil
}

func (s *Stats) incAttempts() int64 { return s.attempts.Add(1) }
func (s *Stats) incErrors() int64   { return s.errors.Add(1) }

// resetAttempt clears the per-attempt counters.
func (s *Stats) resetAttempt() {
	s.extracted.Store(0)
	s.transformed.Store(0)
	s.loaded.Store(0)
}
