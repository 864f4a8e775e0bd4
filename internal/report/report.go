package report

import (
	"errors"
)

// Size is the fixed length of a raw HID report from the monitor.
const Size = 8

// Item codes used by ZyTemp monitors. Other codes exist on some
// hardware revisions and are passed through undecoded.
const (
	CodeCO2         byte = 0x50
	CodeTemperature byte = 0x42
	CodeHumidity    byte = 0x41

	codeEndOfMessage byte = 0x0D
)

var (
	ErrInvalidLength = errors.New("report must be 8 bytes")
	ErrChecksum      = errors.New("report checksum mismatch")
)

// Item is one decoded (channel, value) pair extracted from a report.
type Item struct {
	Code  byte
	Value uint16
}

// Known reports whether the item belongs to a channel this library
// understands. Unknown items are valid but carry no interpretation.
func (i Item) Known() bool {
	switch i.Code {
	case CodeCO2, CodeTemperature, CodeHumidity:
		return true
	}
	return false
}

// PPM returns the CO2 concentration for a CO2 item. The device reports
// parts per million directly.
func (i Item) PPM() int {
	return int(i.Value)
}

// Celsius converts a temperature item value to degrees Celsius. The
// device reports temperature in units of 1/16 Kelvin.
func (i Item) Celsius() float64 {
	return float64(i.Value)/16.0 - 273.15
}

// RH converts a humidity item value to percent relative humidity.
func (i Item) RH() float64 {
	return float64(i.Value) / 100.0
}

// ParsePlain interprets a report that the device sent unencrypted.
// Some hardware variants skip the obfuscation entirely; this path must
// be selected explicitly by the caller and is never auto-detected.
func ParsePlain(raw []byte) (Item, error) {
	if len(raw) != Size {
		return Item{}, ErrInvalidLength
	}
	var buf [Size]byte
	copy(buf[:], raw)
	return parse(buf)
}

// PlainDecoder decodes unencrypted reports. It satisfies the same
// Decode contract as Cipher so callers can swap the two paths.
type PlainDecoder struct{}

func (PlainDecoder) Decode(raw []byte) (Item, error) {
	return ParsePlain(raw)
}

// parse validates a de-obfuscated report and extracts its item.
// Layout: [code, valueHi, valueLo, checksum, 0x0D, 0, 0, 0] where
// checksum is the low byte of the sum of the first three bytes.
func parse(buf [Size]byte) (Item, error) {
	if buf[0]+buf[1]+buf[2] != buf[3] {
		return Item{}, ErrChecksum
	}
	if buf[4] != codeEndOfMessage || buf[5] != 0 || buf[6] != 0 || buf[7] != 0 {
		return Item{}, ErrChecksum
	}
	return Item{
		Code:  buf[0],
		Value: uint16(buf[1])<<8 | uint16(buf[2]),
	}, nil
}
