// Package marketdata holds the read-only per-instrument daily price series
// consumed by the backtest engine, together with loaders for the formats the
// screening pipeline produces (CSV, SQLite, Parquet).
package marketdata

import (
	"sort"
	"sync"
	"time"

	"github.com/fairweather/keel/internal/core"
)

// Store is an in-memory price-series store indexed by instrument and trading
// date. It is safe for concurrent readers; writes happen only while loading,
// before any simulation starts.
type Store struct {
	mu     sync.RWMutex
	series map[string][]core.Bar
	index  map[string]map[string]int // instrument -> ISO date -> offset into series
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		series: make(map[string][]core.Bar),
		index:  make(map[string]map[string]int),
	}
}

// Add appends bars for one instrument. Bars are normalized to midnight UTC
// and kept sorted ascending by date; a later bar for an existing date
// replaces the earlier one.
func (s *Store) Add(instrument string, bars []core.Bar) {
	if instrument == "" || len(bars) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.index[instrument]
	if idx == nil {
		idx = make(map[string]int)
		s.index[instrument] = idx
	}

	for _, b := range bars {
		b.Instrument = instrument
		b.Date = core.Day(b.Date)
		key := core.FormatDate(b.Date)
		if at, ok := idx[key]; ok {
			s.series[instrument][at] = b
			continue
		}
		s.series[instrument] = append(s.series[instrument], b)
		idx[key] = len(s.series[instrument]) - 1
	}

	sort.Slice(s.series[instrument], func(i, j int) bool {
		return s.series[instrument][i].Date.Before(s.series[instrument][j].Date)
	})
	for i, b := range s.series[instrument] {
		idx[core.FormatDate(b.Date)] = i
	}
}

// Bar returns the bar for an instrument on a date. Absence is a normal,
// typed outcome ("market data unavailable today"), not an error.
func (s *Store) Bar(instrument string, date time.Time) (core.Bar, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.index[instrument]
	if !ok {
		return core.Bar{}, false
	}
	at, ok := idx[core.FormatDate(core.Day(date))]
	if !ok {
		return core.Bar{}, false
	}
	return s.series[instrument][at], true
}

// Series returns the full ordered series for an instrument, or nil if the
// store has never seen it.
func (s *Store) Series(instrument string) []core.Bar {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src := s.series[instrument]
	if src == nil {
		return nil
	}
	out := make([]core.Bar, len(src))
	copy(out, src)
	return out
}

// Instruments returns all instrument ids in the store, sorted.
func (s *Store) Instruments() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.series))
	for id := range s.series {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Dates returns every distinct trading date present across all instruments,
// sorted ascending. The engine unions these with the signal feed's dates to
// build the simulation horizon.
func (s *Store) Dates() []time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]time.Time)
	for _, bars := range s.series {
		for _, b := range bars {
			seen[core.FormatDate(b.Date)] = b.Date
		}
	}

	out := make([]time.Time, 0, len(seen))
	for _, d := range seen {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Len returns the number of instruments in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.series)
}
