// Package co2mon is the public interface to ZyTemp USB CO2 monitors:
// report decoding, single-shot reads and continuous monitoring.
package co2mon

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/d21d3q/goco2mon/internal/hiddev"
	"github.com/d21d3q/goco2mon/internal/monitor"
	"github.com/d21d3q/goco2mon/internal/report"
)

// Re-exported types so callers don't import internal packages.
type (
	Sample  = monitor.Sample
	Item    = report.Item
	Monitor = monitor.Monitor
)

// Channel item codes.
const (
	CodeCO2         = report.CodeCO2
	CodeTemperature = report.CodeTemperature
	CodeHumidity    = report.CodeHumidity
)

// Error taxonomy. The report errors are per-report and non-fatal;
// the device errors terminate the operation that hit them.
var (
	ErrInvalidLength  = report.ErrInvalidLength
	ErrChecksum       = report.ErrChecksum
	ErrDeviceNotFound = hiddev.ErrDeviceNotFound
	ErrDeviceLost     = monitor.ErrDeviceLost
)

// Result captures the outcome of DecodeReportHex.
type Result struct {
	RawHex    string
	ByteCount int
	Item      Item
	Fields    map[string]any
}

// String renders a human-readable representation of the result.
func (r Result) String() string {
	summary := map[string]any{
		"raw_hex":    r.RawHex,
		"byte_count": r.ByteCount,
	}
	for k, v := range r.Fields {
		summary[k] = v
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Sprintf("raw:%s bytes:%d code:0x%02X value:%d (marshal error: %v)",
			r.RawHex, r.ByteCount, r.Item.Code, r.Item.Value, err)
	}
	return string(data)
}

// DecodeReportHex decodes one hex-encoded 8-byte report.
func DecodeReportHex(raw string, opts Options) (Result, error) {
	dec, _, err := opts.decoder()
	if err != nil {
		return Result{}, err
	}
	data, err := decodeHex(raw)
	if err != nil {
		return Result{}, err
	}
	result := Result{
		RawHex:    strings.ToUpper(stripSeparators(raw)),
		ByteCount: len(data),
	}
	item, err := dec.Decode(data)
	if err != nil {
		return result, err
	}
	result.Item = item
	result.Fields = itemFields(item)
	return result, nil
}

// ReadData opens the monitor, assembles one sample and closes the
// device again (snapshot mode). The sample may be incomplete if the
// device stayed silent on a channel for the whole request budget.
func ReadData(ctx context.Context, opts Options) (Sample, error) {
	dev, dec, err := openDevice(opts)
	if err != nil {
		return Sample{}, err
	}
	defer dev.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			dev.Close()
		case <-done:
		}
	}()

	sample, err := monitor.ReadSample(dev, dec, opts.MaxRequests)
	if err != nil {
		if ctx.Err() != nil {
			return Sample{}, ctx.Err()
		}
		return Sample{}, err
	}
	return sample, nil
}

// NewMonitor opens the device and returns an owned worker handle.
// The caller starts it with Start and releases the device with Stop.
func NewMonitor(opts Options) (*Monitor, error) {
	dev, dec, err := openDevice(opts)
	if err != nil {
		return nil, err
	}
	return monitor.New(dev, dec, monitor.Config{
		MaxRequests: opts.MaxRequests,
		Interval:    opts.Interval,
		HistorySize: opts.HistorySize,
	}), nil
}

// ListDevices returns the hidraw paths of attached monitors.
func ListDevices() ([]string, error) {
	return hiddev.Enumerate()
}

func openDevice(opts Options) (hiddev.Device, monitor.Decoder, error) {
	dec, key, err := opts.decoder()
	if err != nil {
		return nil, nil, err
	}
	var dev hiddev.Device
	if opts.DevicePath != "" {
		dev, err = hiddev.Open(opts.DevicePath, key)
	} else {
		dev, err = hiddev.OpenFirst(key)
	}
	if err != nil {
		return nil, nil, err
	}
	return dev, dec, nil
}

func itemFields(item Item) map[string]any {
	fields := map[string]any{
		"code":  fmt.Sprintf("0x%02X", item.Code),
		"value": int(item.Value),
	}
	switch item.Code {
	case CodeCO2:
		fields["channel"] = "co2"
		fields["co2_ppm"] = item.PPM()
	case CodeTemperature:
		fields["channel"] = "temperature"
		fields["temperature_c"] = item.Celsius()
	case CodeHumidity:
		fields["channel"] = "humidity"
		fields["humidity_rh"] = item.RH()
	default:
		fields["channel"] = "unknown"
	}
	return fields
}

func decodeHex(input string) ([]byte, error) {
	clean := strings.ToUpper(stripSeparators(input))
	if strings.HasPrefix(clean, "0X") {
		clean = clean[2:]
	}
	if len(clean)%2 != 0 {
		return nil, fmt.Errorf("hex report must contain an even number of digits, got %d", len(clean))
	}
	decoded := make([]byte, len(clean)/2)
	if _, err := hex.Decode(decoded, []byte(clean)); err != nil {
		return nil, fmt.Errorf("decode hex: %w", err)
	}
	return decoded, nil
}

func stripSeparators(s string) string {
	builder := strings.Builder{}
	builder.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) || r == '|' || r == '_' {
			continue
		}
		builder.WriteRune(r)
	}
	return builder.String()
}
