package co2mon

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/d21d3q/goco2mon/internal/monitor"
	"github.com/d21d3q/goco2mon/internal/report"
)

// Options configures device access and decoding.
type Options struct {
	// DevicePath is the hidraw node to open; empty selects the first
	// attached monitor.
	DevicePath string
	// KeyHex is the hex-encoded 8-byte feature-report key. Empty
	// selects the all-zero key the reference tools use.
	KeyHex string
	// BypassDecrypt treats reports as plaintext. Some hardware
	// variants transmit unencrypted; the bypass is never
	// auto-detected.
	BypassDecrypt bool
	// RollingKey advances the keystream origin by one byte per
	// decoded report instead of resetting per report.
	RollingKey bool
	// MaxRequests caps report reads per sample assembly.
	MaxRequests int
	// Interval is the pause between completed samples in continuous
	// mode.
	Interval time.Duration
	// HistorySize bounds the monitor's in-memory sample history.
	HistorySize int
}

func (o Options) decoder() (monitor.Decoder, []byte, error) {
	key, err := ParseKeyHex(o.KeyHex)
	if err != nil {
		return nil, nil, err
	}
	if o.BypassDecrypt {
		// the feature report is still sent: the device needs it to
		// start reporting even when it skips the obfuscation
		return report.PlainDecoder{}, key, nil
	}
	cipher, err := report.NewCipher(key, o.RollingKey)
	if err != nil {
		return nil, nil, err
	}
	return cipher, key, nil
}

// ParseKeyHex validates and decodes a 16-hex-digit key string. An
// empty string selects the all-zero key.
func ParseKeyHex(input string) ([]byte, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}
	clean := stripWhitespace(input)
	if len(clean) != report.Size*2 {
		return nil, fmt.Errorf("key must be %d hex digits (%d bytes), got %d", report.Size*2, report.Size, len(clean))
	}
	dst := make([]byte, report.Size)
	if _, err := hex.Decode(dst, []byte(clean)); err != nil {
		return nil, fmt.Errorf("invalid key hex: %w", err)
	}
	return dst, nil
}

func stripWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
