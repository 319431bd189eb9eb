package core

import "time"

// DateLayout is the ISO calendar-date layout used across the engine and in
// every signal/price document.
const DateLayout = "2006-01-02"

// Bar represents one daily OHLCV candlestick. Series handed to the engine are
// assumed to be sorted ascending by date and already adjusted for corporate
// actions by whoever produced them.
type Bar struct {
	Instrument string
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     int64
	Date       time.Time
}

// IsValid checks if the bar has required fields.
func (b Bar) IsValid() bool {
	return b.Instrument != "" && b.Close > 0 && !b.Date.IsZero()
}

// Day normalizes a timestamp to midnight UTC so bars, signals, and snapshots
// from different sources index the same trading date.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses an ISO calendar date ("2006-01-02") into a UTC midnight
// timestamp.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// FormatDate renders a timestamp as an ISO calendar date.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Weekday returns the day of week with Monday=0 through Sunday=6, the
// convention used by the rebalance configuration.
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
