// Package sqlite persists samples in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/d21d3q/goco2mon/internal/monitor"
)

const schema = `
CREATE TABLE IF NOT EXISTS samples (
	ts          INTEGER PRIMARY KEY,
	co2         INTEGER NOT NULL,
	temperature REAL NOT NULL,
	humidity    REAL
)`

// Store is a Store backed by a SQLite database file (or an in-memory
// DSN). Duplicate timestamps are ignored on insert.
type Store struct {
	db *sql.DB
}

// New opens the database at source and ensures the schema exists.
func New(ctx context.Context, source string) (*Store, error) {
	if source == "" {
		return nil, fmt.Errorf("sqlite: database path is empty")
	}
	db, err := sql.Open("sqlite", source)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Append inserts complete samples, ignoring timestamp duplicates.
func (s *Store) Append(ctx context.Context, samples []monitor.Sample) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO samples (ts, co2, temperature, humidity) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlite: prepare: %w", err)
	}
	defer stmt.Close()

	for _, smp := range samples {
		if !smp.Complete() {
			continue
		}
		hum := sql.NullFloat64{Float64: smp.Humidity, Valid: smp.HasHumidity}
		if _, err := stmt.ExecContext(ctx, smp.Time.Unix(), smp.CO2, smp.Temperature, hum); err != nil {
			return fmt.Errorf("sqlite: insert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

// Last returns the newest stored sample.
func (s *Store) Last(ctx context.Context) (monitor.Sample, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT ts, co2, temperature, humidity FROM samples ORDER BY ts DESC LIMIT 1`)
	smp, err := scanSample(row.Scan)
	if err == sql.ErrNoRows {
		return monitor.Sample{}, false, nil
	}
	if err != nil {
		return monitor.Sample{}, false, fmt.Errorf("sqlite: last: %w", err)
	}
	return smp, true, nil
}

// Range returns samples with [from, to) timestamps, oldest first.
func (s *Store) Range(ctx context.Context, from, to time.Time) ([]monitor.Sample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, co2, temperature, humidity FROM samples WHERE ts >= ? AND ts < ? ORDER BY ts`,
		from.Unix(), to.Unix())
	if err != nil {
		return nil, fmt.Errorf("sqlite: range query: %w", err)
	}
	defer rows.Close()

	var out []monitor.Sample
	for rows.Next() {
		smp, err := scanSample(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("sqlite: range scan: %w", err)
		}
		out = append(out, smp)
	}
	return out, rows.Err()
}

func scanSample(scan func(dest ...any) error) (monitor.Sample, error) {
	var ts int64
	var co2 int
	var temp float64
	var hum sql.NullFloat64
	if err := scan(&ts, &co2, &temp, &hum); err != nil {
		return monitor.Sample{}, err
	}
	smp := monitor.Sample{
		Time:           time.Unix(ts, 0).UTC(),
		CO2:            co2,
		HasCO2:         true,
		Temperature:    temp,
		HasTemperature: true,
	}
	if hum.Valid {
		smp.Humidity = hum.Float64
		smp.HasHumidity = true
	}
	return smp, nil
}
