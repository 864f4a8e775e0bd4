package csvlog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/d21d3q/goco2mon/internal/monitor"
)

func sampleAt(ts time.Time, co2 int, temp float64) monitor.Sample {
	return monitor.Sample{
		Time:           ts,
		CO2:            co2,
		HasCO2:         true,
		Temperature:    temp,
		HasTemperature: true,
	}
}

func TestAppendAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "co2.csv")
	l, err := Open(path)
	require.NoError(t, err)

	base := time.Date(2024, 5, 12, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()
	require.NoError(t, l.Append(ctx, []monitor.Sample{
		sampleAt(base, 650, 21.725),
		sampleAt(base.Add(10*time.Second), 655, 21.7875),
	}))
	require.NoError(t, l.Close())

	got, err := Read(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, 650, got[0].CO2)
	require.InDelta(t, 21.725, got[0].Temperature, 1e-6)
	require.True(t, got[1].Time.Equal(base.Add(10*time.Second)))
}

func TestResumeDeduplicatesByTimestamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "co2.csv")
	base := time.Date(2024, 5, 12, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()

	l, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, l.Append(ctx, []monitor.Sample{sampleAt(base, 650, 21.7)}))
	require.NoError(t, l.Close())

	// reopen and append overlapping history
	l, err = Open(path)
	require.NoError(t, err)
	last, ok, err := l.Last(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, last.Time.Equal(base))

	require.NoError(t, l.Append(ctx, []monitor.Sample{
		sampleAt(base.Add(-10*time.Second), 640, 21.6), // older, skipped
		sampleAt(base, 650, 21.7),                      // duplicate, skipped
		sampleAt(base.Add(10*time.Second), 660, 21.8),
	}))
	require.NoError(t, l.Close())

	got, err := Read(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, 660, got[1].CO2)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(string(data), "time,co2,temperature"))
}

func TestAppendSkipsIncomplete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "co2.csv")
	l, err := Open(path)
	require.NoError(t, err)

	partial := monitor.Sample{Time: time.Now(), CO2: 700, HasCO2: true}
	require.NoError(t, l.Append(context.Background(), []monitor.Sample{partial}))
	require.NoError(t, l.Close())

	got, err := Read(path)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "co2.csv")
	l, err := Open(path)
	require.NoError(t, err)
	defer l.Close()

	base := time.Date(2024, 5, 12, 10, 0, 0, 0, time.UTC)
	var samples []monitor.Sample
	for i := 0; i < 5; i++ {
		samples = append(samples, sampleAt(base.Add(time.Duration(i)*time.Minute), 600+i, 21))
	}
	ctx := context.Background()
	require.NoError(t, l.Append(ctx, samples))

	got, err := l.Range(ctx, base.Add(time.Minute), base.Add(3*time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, 601, got[0].CO2)
	require.Equal(t, 602, got[1].CO2)
}
