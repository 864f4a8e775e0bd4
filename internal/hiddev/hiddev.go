// Package hiddev provides raw HID access to ZyTemp CO2 monitors via
// the Linux hidraw interface.
package hiddev

import (
	"errors"
)

// USB identifiers of the ZyTemp/Holtek CO2 monitor family
// (CO2Mini, AIRCO2NTROL MINI/COACH and friends).
const (
	VendorID  = 0x04d9
	ProductID = 0xa052
)

// ErrDeviceNotFound is returned when no matching monitor is attached
// or the hidraw node cannot be opened. Open failures surface
// immediately; callers retry externally if they want to.
var ErrDeviceNotFound = errors.New("hiddev: CO2 monitor not found")

// Device is a handle to one monitor. A handle must not be shared
// between concurrent readers; the device interleaves report streams
// per open handle.
type Device interface {
	// Read blocks until one report is available and fills p with it.
	// A read on a closed handle returns an error, it never deadlocks.
	Read(p []byte) (int, error)
	// SendFeatureReport sends a feature report (without report ID).
	// The monitor requires one 8-byte feature report at connect time
	// to unlock data reporting; its content doubles as the
	// de-obfuscation key.
	SendFeatureReport(data []byte) error
	Close() error
}
