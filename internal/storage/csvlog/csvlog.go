// Package csvlog appends samples to a CSV file: time (RFC3339),
// co2 (ppm), temperature (degrees Celsius).
package csvlog

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/d21d3q/goco2mon/internal/monitor"
)

var header = []string{"time", "co2", "temperature"}

// Logger is a Store backed by an append-only CSV file. On open it
// reads the existing file so a resumed session only appends rows
// newer than the last logged timestamp.
type Logger struct {
	mu   sync.Mutex
	f    *os.File
	w    *csv.Writer
	last monitor.Sample
	has  bool
}

// Open opens or creates the CSV file at path.
func Open(path string) (*Logger, error) {
	var existing []monitor.Sample
	st, err := os.Stat(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("csvlog: stat %s: %w", path, err)
	}
	hasHeader := err == nil && st.Size() > 0
	if hasHeader {
		if existing, err = Read(path); err != nil {
			return nil, err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("csvlog: open %s: %w", path, err)
	}
	l := &Logger{f: f, w: csv.NewWriter(f)}
	if len(existing) > 0 {
		l.last = existing[len(existing)-1]
		l.has = true
	}
	if hasHeader {
		return l, nil
	}
	if err := l.w.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("csvlog: write header: %w", err)
	}
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("csvlog: write header: %w", err)
	}
	return l, nil
}

// Append writes complete samples newer than the last logged row.
func (l *Logger) Append(ctx context.Context, samples []monitor.Sample) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range samples {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !s.Complete() {
			continue
		}
		if l.has && !s.Time.After(l.last.Time) {
			continue
		}
		rec := []string{
			s.Time.Format(time.RFC3339),
			strconv.Itoa(s.CO2),
			strconv.FormatFloat(s.Temperature, 'f', 4, 64),
		}
		if err := l.w.Write(rec); err != nil {
			return fmt.Errorf("csvlog: write row: %w", err)
		}
		l.last = s
		l.has = true
	}
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		return fmt.Errorf("csvlog: flush: %w", err)
	}
	return nil
}

// Last returns the newest logged sample.
func (l *Logger) Last(ctx context.Context) (monitor.Sample, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last, l.has, ctx.Err()
}

// Range re-reads the file and filters rows to [from, to).
func (l *Logger) Range(ctx context.Context, from, to time.Time) ([]monitor.Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	path := l.f.Name()
	l.w.Flush()
	l.mu.Unlock()

	all, err := Read(path)
	if err != nil {
		return nil, err
	}
	var out []monitor.Sample
	for _, s := range all {
		if s.Time.Before(from) || !s.Time.Before(to) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		l.f.Close()
		return err
	}
	return l.f.Close()
}

// Read loads all samples from a CSV file written by this package.
func Read(path string) ([]monitor.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(header)
	var out []monitor.Sample
	first := true
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("csvlog: read %s: %w", path, err)
		}
		if first {
			first = false
			if rec[0] == header[0] {
				continue
			}
		}
		s, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("csvlog: %s: %w", path, err)
		}
		out = append(out, s)
	}
}

func parseRow(rec []string) (monitor.Sample, error) {
	ts, err := time.Parse(time.RFC3339, rec[0])
	if err != nil {
		return monitor.Sample{}, fmt.Errorf("bad timestamp %q: %w", rec[0], err)
	}
	co2, err := strconv.Atoi(rec[1])
	if err != nil {
		return monitor.Sample{}, fmt.Errorf("bad co2 %q: %w", rec[1], err)
	}
	temp, err := strconv.ParseFloat(rec[2], 64)
	if err != nil {
		return monitor.Sample{}, fmt.Errorf("bad temperature %q: %w", rec[2], err)
	}
	return monitor.Sample{
		Time:           ts,
		CO2:            co2,
		HasCO2:         true,
		Temperature:    temp,
		HasTemperature: true,
	}, nil
}
