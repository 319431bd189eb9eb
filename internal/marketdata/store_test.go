package marketdata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairweather/keel/internal/core"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := core.ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestStore_BarLookup(t *testing.T) {
	store := NewStore()
	store.Add("600001", []core.Bar{
		{Date: day(t, "2023-01-09"), Open: 9.9, High: 10.1, Low: 9.8, Close: 10.0, Volume: 100},
		{Date: day(t, "2023-01-10"), Open: 10.0, High: 10.3, Low: 9.9, Close: 10.2, Volume: 110},
	})

	bar, ok := store.Bar("600001", day(t, "2023-01-10"))
	require.True(t, ok)
	assert.Equal(t, 10.2, bar.Close)
	assert.Equal(t, "600001", bar.Instrument)
}

func TestStore_MissingBarIsTypedAbsence(t *testing.T) {
	store := NewStore()
	store.Add("600001", []core.Bar{
		{Date: day(t, "2023-01-09"), Close: 10.0},
	})

	_, ok := store.Bar("600001", day(t, "2023-01-11"))
	assert.False(t, ok, "missing date should report absence, not a value")

	_, ok = store.Bar("999999", day(t, "2023-01-09"))
	assert.False(t, ok, "unknown instrument should report absence")
}

func TestStore_NormalizesTimestamps(t *testing.T) {
	store := NewStore()
	noon := time.Date(2023, 1, 9, 12, 30, 0, 0, time.FixedZone("X", 3600))
	store.Add("600001", []core.Bar{{Date: noon, Close: 10.0}})

	_, ok := store.Bar("600001", day(t, "2023-01-09"))
	assert.True(t, ok, "intraday timestamps should index the same trading date")
}

func TestStore_LaterBarReplacesEarlier(t *testing.T) {
	store := NewStore()
	store.Add("600001", []core.Bar{{Date: day(t, "2023-01-09"), Close: 10.0}})
	store.Add("600001", []core.Bar{{Date: day(t, "2023-01-09"), Close: 10.5}})

	bar, ok := store.Bar("600001", day(t, "2023-01-09"))
	require.True(t, ok)
	assert.Equal(t, 10.5, bar.Close)
	assert.Len(t, store.Series("600001"), 1)
}

func TestStore_DatesUnionAcrossInstruments(t *testing.T) {
	store := NewStore()
	store.Add("600001", []core.Bar{
		{Date: day(t, "2023-01-10"), Close: 10},
		{Date: day(t, "2023-01-09"), Close: 10},
	})
	store.Add("600002", []core.Bar{
		{Date: day(t, "2023-01-11"), Close: 20},
		{Date: day(t, "2023-01-10"), Close: 20},
	})

	dates := store.Dates()
	require.Len(t, dates, 3)
	for i := 1; i < len(dates); i++ {
		assert.True(t, dates[i-1].Before(dates[i]), "dates must be sorted ascending")
	}
	assert.Equal(t, "2023-01-09", core.FormatDate(dates[0]))
	assert.Equal(t, "2023-01-11", core.FormatDate(dates[2]))
}

func TestStore_SeriesReturnsCopy(t *testing.T) {
	store := NewStore()
	store.Add("600001", []core.Bar{{Date: day(t, "2023-01-09"), Close: 10.0}})

	series := store.Series("600001")
	series[0].Close = 0

	bar, _ := store.Bar("600001", day(t, "2023-01-09"))
	assert.Equal(t, 10.0, bar.Close, "mutating a returned series must not touch the store")
}
