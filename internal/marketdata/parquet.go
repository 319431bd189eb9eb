package marketdata

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/fairweather/keel/internal/core"
)

// barRecord is the Parquet on-disk schema for daily bar data, one file per
// instrument.
type barRecord struct {
	Instrument string  `parquet:"instrument"`
	Timestamp  int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open       float64 `parquet:"open"`
	High       float64 `parquet:"high"`
	Low        float64 `parquet:"low"`
	Close      float64 `parquet:"close"`
	Volume     int64   `parquet:"volume"`
}

// LoadParquetDir loads every "<INSTRUMENT>.parquet" file in dir into a Store.
func LoadParquetDir(dir string) (*Store, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, core.WrapError(core.ErrNoData, err)
	}

	store := NewStore()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".parquet") {
			continue
		}
		instrument := strings.TrimSuffix(e.Name(), ".parquet")

		records, err := parquet.ReadFile[barRecord](filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", e.Name(), err)
		}

		bars := make([]core.Bar, 0, len(records))
		for _, r := range records {
			bars = append(bars, core.Bar{
				Instrument: instrument,
				Date:       core.Day(time.UnixMilli(r.Timestamp).UTC()),
				Open:       r.Open,
				High:       r.High,
				Low:        r.Low,
				Close:      r.Close,
				Volume:     r.Volume,
			})
		}
		store.Add(instrument, bars)
	}

	if store.Len() == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no bar parquet files in %s", dir))
	}
	return store, nil
}

// WriteParquet writes one instrument's series to "<dir>/<instrument>.parquet".
func WriteParquet(dir, instrument string, bars []core.Bar) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	records := make([]barRecord, 0, len(bars))
	for _, b := range bars {
		records = append(records, barRecord{
			Instrument: instrument,
			Timestamp:  core.Day(b.Date).UnixMilli(),
			Open:       b.Open,
			High:       b.High,
			Low:        b.Low,
			Close:      b.Close,
			Volume:     b.Volume,
		})
	}

	path := filepath.Join(dir, instrument+".parquet")
	if err := parquet.WriteFile(path, records); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
