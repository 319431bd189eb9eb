package marketdata

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairweather/keel/internal/core"
)

func sampleBars(t *testing.T) []core.Bar {
	return []core.Bar{
		{Instrument: "600001", Date: day(t, "2023-01-09"), Open: 9.9, High: 10.2, Low: 9.8, Close: 10.0, Volume: 120000},
		{Instrument: "600001", Date: day(t, "2023-01-10"), Open: 10.0, High: 10.4, Low: 9.9, Close: 10.3, Volume: 90000},
		{Instrument: "600001", Date: day(t, "2023-01-11"), Open: 10.3, High: 10.3, Low: 9.7, Close: 9.8, Volume: 150000},
	}
}

func TestCSV_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	bars := sampleBars(t)
	require.NoError(t, WriteCSV(filepath.Join(dir, "600001.csv"), bars))

	store, err := LoadCSVDir(dir)
	require.NoError(t, err)

	got := store.Series("600001")
	require.Len(t, got, 3)
	assert.Equal(t, bars[1].Close, got[1].Close)
	assert.Equal(t, bars[2].Volume, got[2].Volume)
	assert.Equal(t, "2023-01-09", core.FormatDate(got[0].Date))
}

func TestLoadCSVDir_EmptyDirIsNoData(t *testing.T) {
	_, err := LoadCSVDir(t.TempDir())
	assert.True(t, errors.Is(err, core.ErrNoData))
}

func TestLoadCSVDir_RejectsMalformedRows(t *testing.T) {
	dir := t.TempDir()
	content := "date,open,high,low,close,volume\n2023-01-09,9.9,10.2,9.8,not-a-price,120000\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "600001.csv"), []byte(content), 0o644))

	_, err := LoadCSVDir(dir)
	assert.Error(t, err)
}

func TestParquet_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	bars := sampleBars(t)
	require.NoError(t, WriteParquet(dir, "600001", bars))

	store, err := LoadParquetDir(dir)
	require.NoError(t, err)

	got := store.Series("600001")
	require.Len(t, got, 3)
	assert.Equal(t, bars[0].Open, got[0].Open)
	assert.Equal(t, "2023-01-11", core.FormatDate(got[2].Date))
}

func TestSQLite_RoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "bars.db")

	db, err := OpenSQLite(dbPath)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.WriteBars(ctx, sampleBars(t)))

	bars, err := db.ReadBars(ctx, "600001", day(t, "2023-01-09"), day(t, "2023-01-10"))
	require.NoError(t, err)
	require.Len(t, bars, 2, "range read should exclude bars outside [start, end]")
	assert.Equal(t, 10.3, bars[1].Close)

	store, err := db.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())
	assert.Len(t, store.Series("600001"), 3)
}

func TestSQLite_WriteBarsUpserts(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "bars.db"))
	require.NoError(t, err)
	defer db.Close()

	bars := sampleBars(t)
	require.NoError(t, db.WriteBars(ctx, bars))
	bars[0].Close = 11.1
	require.NoError(t, db.WriteBars(ctx, bars[:1]))

	got, err := db.ReadBars(ctx, "600001", day(t, "2023-01-09"), day(t, "2023-01-09"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 11.1, got[0].Close)
}

func TestSQLite_ReadBarsUnknownInstrument(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "bars.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.WriteBars(ctx, sampleBars(t)))

	_, err = db.ReadBars(ctx, "999999", day(t, "2023-01-09"), day(t, "2023-01-11"))
	assert.True(t, errors.Is(err, core.ErrInstrumentNotFound))
}

func TestSQLite_LoadAllEmptyIsNoData(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "bars.db"))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.LoadAll(context.Background())
	assert.True(t, errors.Is(err, core.ErrNoData))
}
