package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/d21d3q/goco2mon/internal/monitor"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(context.Background(), filepath.Join(t.TempDir(), "co2.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleAt(ts time.Time, co2 int, temp float64) monitor.Sample {
	return monitor.Sample{
		Time:           ts,
		CO2:            co2,
		HasCO2:         true,
		Temperature:    temp,
		HasTemperature: true,
	}
}

func TestAppendAndLast(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 12, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.Append(ctx, []monitor.Sample{
		sampleAt(base, 650, 21.725),
		sampleAt(base.Add(10*time.Second), 655, 21.7875),
	}))

	last, ok, err := s.Last(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 655, last.CO2)
	require.True(t, last.Time.Equal(base.Add(10*time.Second)))
}

func TestLastEmpty(t *testing.T) {
	s := openTestStore(t)
	_, ok, err := s.Last(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAppendIgnoresDuplicateTimestamps(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 12, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.Append(ctx, []monitor.Sample{sampleAt(base, 650, 21.7)}))
	require.NoError(t, s.Append(ctx, []monitor.Sample{sampleAt(base, 999, 30)}))

	got, err := s.Range(ctx, base, base.Add(time.Second))
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, 650, got[0].CO2)
}

func TestAppendSkipsIncomplete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	partial := monitor.Sample{Time: time.Now(), CO2: 700, HasCO2: true}
	require.NoError(t, s.Append(ctx, []monitor.Sample{partial}))

	_, ok, err := s.Last(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRangeHalfOpen(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 12, 10, 0, 0, 0, time.UTC)

	var samples []monitor.Sample
	for i := 0; i < 5; i++ {
		samples = append(samples, sampleAt(base.Add(time.Duration(i)*time.Minute), 600+i, 21))
	}
	require.NoError(t, s.Append(ctx, samples))

	got, err := s.Range(ctx, base.Add(time.Minute), base.Add(3*time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, 601, got[0].CO2)
	require.Equal(t, 602, got[1].CO2)
}

func TestHumidityRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 12, 10, 0, 0, 0, time.UTC)

	smp := sampleAt(base, 650, 21.7)
	smp.Humidity = 48.6
	smp.HasHumidity = true
	require.NoError(t, s.Append(ctx, []monitor.Sample{smp}))

	last, ok, err := s.Last(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, last.HasHumidity)
	require.InDelta(t, 48.6, last.Humidity, 1e-6)
}
