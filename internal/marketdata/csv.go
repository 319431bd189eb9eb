package marketdata

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fairweather/keel/internal/core"
)

// csvHeader is the expected column layout of a bar CSV file.
var csvHeader = []string{"date", "open", "high", "low", "close", "volume"}

// LoadCSVDir loads every "<INSTRUMENT>.csv" file in dir into a Store. Each
// file holds one instrument's daily bars with a
// date,open,high,low,close,volume header.
func LoadCSVDir(dir string) (*Store, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, core.WrapError(core.ErrNoData, err)
	}

	store := NewStore()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		instrument := strings.TrimSuffix(e.Name(), ".csv")
		bars, err := readCSVFile(filepath.Join(dir, e.Name()), instrument)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", e.Name(), err)
		}
		store.Add(instrument, bars)
	}

	if store.Len() == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no bar CSV files in %s", dir))
	}
	return store, nil
}

func readCSVFile(path, instrument string) ([]core.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	// Skip a header row if present.
	start := 0
	if strings.EqualFold(rows[0][0], csvHeader[0]) {
		start = 1
	}

	bars := make([]core.Bar, 0, len(rows)-start)
	for _, row := range rows[start:] {
		if len(row) < 6 {
			return nil, fmt.Errorf("expected 6 columns, got %d", len(row))
		}
		date, err := core.ParseDate(row[0])
		if err != nil {
			return nil, fmt.Errorf("bad date %q: %w", row[0], err)
		}
		open, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("bad open %q: %w", row[1], err)
		}
		high, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return nil, fmt.Errorf("bad high %q: %w", row[2], err)
		}
		low, err := strconv.ParseFloat(row[3], 64)
		if err != nil {
			return nil, fmt.Errorf("bad low %q: %w", row[3], err)
		}
		closeP, err := strconv.ParseFloat(row[4], 64)
		if err != nil {
			return nil, fmt.Errorf("bad close %q: %w", row[4], err)
		}
		volume, err := strconv.ParseInt(row[5], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad volume %q: %w", row[5], err)
		}

		bars = append(bars, core.Bar{
			Instrument: instrument,
			Date:       date,
			Open:       open,
			High:       high,
			Low:        low,
			Close:      closeP,
			Volume:     volume,
		})
	}
	return bars, nil
}

// WriteCSV writes one instrument's series to path in the loader's format.
func WriteCSV(path string, bars []core.Bar) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, b := range bars {
		err := w.Write([]string{
			core.FormatDate(b.Date),
			formatF(b.Open), formatF(b.High), formatF(b.Low), formatF(b.Close),
			strconv.FormatInt(b.Volume, 10),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func formatF(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
