package marketdata

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"github.com/fairweather/keel/internal/core"
)

// SQLiteStore reads and writes daily bars in a SQLite database. The screening
// pipeline hands over its prepared series as a single `bars` table.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS bars (
	instrument TEXT NOT NULL,
	date       TEXT NOT NULL,
	open       REAL NOT NULL,
	high       REAL NOT NULL,
	low        REAL NOT NULL,
	close      REAL NOT NULL,
	volume     INTEGER NOT NULL,
	PRIMARY KEY (instrument, date)
);
CREATE INDEX IF NOT EXISTS idx_bars_date ON bars(date);
`

// OpenSQLite opens (or creates) the bar database at dbPath.
func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bars table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// WriteBars upserts a batch of bars.
func (s *SQLiteStore) WriteBars(ctx context.Context, bars []core.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO bars (instrument, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, b := range bars {
		_, err := stmt.ExecContext(ctx,
			b.Instrument, core.FormatDate(core.Day(b.Date)),
			b.Open, b.High, b.Low, b.Close, b.Volume)
		if err != nil {
			return fmt.Errorf("inserting bar %s/%s: %w", b.Instrument, core.FormatDate(b.Date), err)
		}
	}
	return tx.Commit()
}

// ReadBars returns one instrument's bars within [start, end], ascending.
func (s *SQLiteStore) ReadBars(ctx context.Context, instrument string, start, end time.Time) ([]core.Bar, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT instrument, date, open, high, low, close, volume
		FROM bars
		WHERE instrument = ? AND date >= ? AND date <= ?
		ORDER BY date`,
		instrument, core.FormatDate(core.Day(start)), core.FormatDate(core.Day(end)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bars, err := scanBars(rows)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, core.WrapError(core.ErrInstrumentNotFound,
			fmt.Errorf("no bars for %s in [%s, %s]",
				instrument, core.FormatDate(start), core.FormatDate(end)))
	}
	return bars, nil
}

// LoadAll reads the entire bars table into an in-memory Store.
func (s *SQLiteStore) LoadAll(ctx context.Context) (*Store, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT instrument, date, open, high, low, close, volume
		FROM bars
		ORDER BY instrument, date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bars, err := scanBars(rows)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("bars table is empty"))
	}

	store := NewStore()
	var instrument string
	var batch []core.Bar
	for _, b := range bars {
		if b.Instrument != instrument && instrument != "" {
			store.Add(instrument, batch)
			batch = batch[:0]
		}
		instrument = b.Instrument
		batch = append(batch, b)
	}
	store.Add(instrument, batch)
	return store, nil
}

func scanBars(rows *sql.Rows) ([]core.Bar, error) {
	var bars []core.Bar
	for rows.Next() {
		var b core.Bar
		var date string
		if err := rows.Scan(&b.Instrument, &date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, err
		}
		d, err := core.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("bad date %q in bars table: %w", date, err)
		}
		b.Date = d
		bars = append(bars, b)
	}
	return bars, rows.Err()
}
