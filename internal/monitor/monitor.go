// Package monitor runs the polling loop that turns raw HID reports
// into assembled samples.
package monitor

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/d21d3q/goco2mon/internal/hiddev"
	"github.com/d21d3q/goco2mon/internal/history"
	"github.com/d21d3q/goco2mon/internal/report"
)

// ErrDeviceLost is surfaced by Monitor.Err when the device handle
// fails mid-stream (typically unplugged).
var ErrDeviceLost = errors.New("monitor: device lost")

// Decoder turns one raw report into an item. Satisfied by both
// report.Cipher and report.PlainDecoder.
type Decoder interface {
	Decode(raw []byte) (report.Item, error)
}

// Config tunes the polling worker.
type Config struct {
	// MaxRequests caps report reads per sample assembly; the budget
	// doubles as an effective timeout against a silent channel.
	MaxRequests int
	// Interval is the pause between completed samples in continuous
	// mode. Zero keeps the loop reading back to back.
	Interval time.Duration
	// HistorySize bounds the in-memory sample history.
	HistorySize int
	// ChannelBuffer sizes the delivery channel.
	ChannelBuffer int
}

const (
	defaultMaxRequests   = 50
	defaultChannelBuffer = 16
)

func (c *Config) applyDefaults() {
	if c.MaxRequests <= 0 {
		c.MaxRequests = defaultMaxRequests
	}
	if c.ChannelBuffer <= 0 {
		c.ChannelBuffer = defaultChannelBuffer
	}
}

// ReadSample performs one synchronous decode cycle: it reads reports
// until a complete sample is assembled or the request budget runs
// out, and returns whatever was collected. Callers check Complete().
func ReadSample(dev hiddev.Device, dec Decoder, maxRequests int) (Sample, error) {
	if maxRequests <= 0 {
		maxRequests = defaultMaxRequests
	}
	var sample Sample
	buf := make([]byte, report.Size)
	for i := 0; i < maxRequests; i++ {
		n, err := dev.Read(buf)
		if err != nil {
			return Sample{}, fmt.Errorf("%w: %v", ErrDeviceLost, err)
		}
		item, err := dec.Decode(buf[:n])
		if err != nil {
			logrus.WithError(err).Debug("skipping undecodable report")
			continue
		}
		sample.merge(item)
		if sample.Complete() {
			break
		}
	}
	sample.Time = time.Now().Truncate(time.Second)
	return sample, nil
}

// Monitor owns a device handle and a background worker reading from
// it. At most one worker reads a given handle; consumers receive
// completed samples over Samples and may query History concurrently.
type Monitor struct {
	dev hiddev.Device
	dec Decoder
	cfg Config

	hist    *history.Buffer[Sample]
	samples chan Sample

	stop     chan struct{}
	done     chan struct{}
	stopping atomic.Bool
	stopOnce sync.Once

	err error // written by the worker before done is closed
}

// New wraps an open device handle. The monitor takes ownership of the
// handle and closes it on Stop.
func New(dev hiddev.Device, dec Decoder, cfg Config) *Monitor {
	cfg.applyDefaults()
	return &Monitor{
		dev:     dev,
		dec:     dec,
		cfg:     cfg,
		hist:    history.New[Sample](cfg.HistorySize),
		samples: make(chan Sample, cfg.ChannelBuffer),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start launches the worker. It must be called once.
func (m *Monitor) Start() {
	go m.run()
}

// Samples delivers completed samples. The channel is closed when the
// worker exits; check Err afterwards. A consumer that stops draining
// loses samples from the channel but not from History.
func (m *Monitor) Samples() <-chan Sample {
	return m.samples
}

// History returns a snapshot of the accumulated samples, oldest
// first.
func (m *Monitor) History() []Sample {
	return m.hist.Snapshot()
}

// Last returns the most recent completed sample.
func (m *Monitor) Last() (Sample, bool) {
	return m.hist.Last()
}

// Stop signals the worker, unblocks any pending read by closing the
// device handle, and waits for the worker to exit. It returns the
// worker error, nil for a clean stop.
func (m *Monitor) Stop() error {
	m.stopOnce.Do(func() {
		m.stopping.Store(true)
		close(m.stop)
		if err := m.dev.Close(); err != nil {
			logrus.WithError(err).Warn("closing device handle")
		}
	})
	<-m.done
	return m.err
}

// Err reports why the worker exited. It is valid once the samples
// channel is closed; nil means a requested stop.
func (m *Monitor) Err() error {
	select {
	case <-m.done:
		return m.err
	default:
		return nil
	}
}

func (m *Monitor) run() {
	defer close(m.done)
	defer close(m.samples)

	var current Sample
	buf := make([]byte, report.Size)
	reads := 0
	for {
		select {
		case <-m.stop:
			return
		default:
		}

		n, err := m.dev.Read(buf)
		if err != nil {
			if m.stopping.Load() {
				return
			}
			m.err = fmt.Errorf("%w: %v", ErrDeviceLost, err)
			return
		}

		item, err := m.dec.Decode(buf[:n])
		if err != nil {
			logrus.WithError(err).Debug("skipping undecodable report")
			continue
		}
		current.merge(item)
		reads++
		if !current.Complete() {
			if reads >= m.cfg.MaxRequests {
				// stale partial assembly, start over
				current = Sample{}
				reads = 0
			}
			continue
		}

		current.Time = time.Now().Truncate(time.Second)
		m.hist.Append(current)
		select {
		case m.samples <- current:
		default:
			logrus.Warn("sample channel full, dropping delivery")
		}
		current = Sample{}
		reads = 0

		if m.cfg.Interval > 0 {
			select {
			case <-m.stop:
				return
			case <-time.After(m.cfg.Interval):
			}
		}
	}
}
