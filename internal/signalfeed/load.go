package signalfeed

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/fairweather/keel/internal/core"
)

// LoadJSON reads a signal document: a JSON object mapping ISO dates to
// candidate lists, e.g.
//
//	{"2023-01-09": [{"instrument": "600001", "name": "浦发银行"}]}
func LoadJSON(path string) (*Feed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.WrapError(core.ErrNoData, err)
	}

	var doc map[string][]Candidate
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing signal feed %s: %w", path, err)
	}
	return fromDocument(doc)
}

// LoadYAML reads the same document shape from YAML.
func LoadYAML(path string) (*Feed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.WrapError(core.ErrNoData, err)
	}

	var doc map[string][]Candidate
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing signal feed %s: %w", path, err)
	}
	return fromDocument(doc)
}

func fromDocument(doc map[string][]Candidate) (*Feed, error) {
	feed := NewFeed()

	// Insert dates in sorted order so Feed construction is reproducible even
	// though per-day candidate order is all that matters downstream.
	keys := make([]string, 0, len(doc))
	for key := range doc {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		date, err := core.ParseDate(key)
		if err != nil {
			return nil, fmt.Errorf("bad signal date %q: %w", key, err)
		}
		for _, c := range doc[key] {
			if c.Instrument == "" {
				return nil, fmt.Errorf("signal on %s has empty instrument id", key)
			}
		}
		feed.Add(date, doc[key])
	}
	return feed, nil
}
