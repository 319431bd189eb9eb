// Package signalfeed holds the externally produced buy-candidate feed: a
// mapping from trading date to the ordered list of instruments signaled that
// day. The engine treats a missing date as "no new entries", not as a closed
// market.
package signalfeed

import (
	"sort"
	"sync"
	"time"

	"github.com/fairweather/keel/internal/core"
)

// Candidate is one signaled instrument. The order of candidates within a day
// is the allocation priority order and is preserved verbatim from the source
// document.
type Candidate struct {
	Instrument string `json:"instrument" yaml:"instrument"`
	Name       string `json:"name" yaml:"name"`
}

// Feed maps trading dates to signaled candidates. Safe for concurrent
// readers; writes happen only while loading.
type Feed struct {
	mu   sync.RWMutex
	days map[string][]Candidate
}

// NewFeed creates an empty Feed.
func NewFeed() *Feed {
	return &Feed{days: make(map[string][]Candidate)}
}

// Add appends candidates for a date, preserving their order.
func (f *Feed) Add(date time.Time, candidates []Candidate) {
	if len(candidates) == 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := core.FormatDate(core.Day(date))
	f.days[key] = append(f.days[key], candidates...)
}

// On returns the candidates signaled on a date, in priority order. An absent
// date yields an empty list.
func (f *Feed) On(date time.Time) []Candidate {
	f.mu.RLock()
	defer f.mu.RUnlock()

	src := f.days[core.FormatDate(core.Day(date))]
	if len(src) == 0 {
		return nil
	}
	out := make([]Candidate, len(src))
	copy(out, src)
	return out
}

// Dates returns every date carrying at least one signal, sorted ascending.
func (f *Feed) Dates() []time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]time.Time, 0, len(f.days))
	for key := range f.days {
		d, err := core.ParseDate(key)
		if err != nil {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Len returns the number of signal-bearing dates.
func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.days)
}
