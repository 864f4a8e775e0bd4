//go:build !linux

package hiddev

import "fmt"

// Only the Linux hidraw interface is implemented. The stubs keep the
// library importable on other platforms; the decoder and stores do
// not touch the device.

func Enumerate() ([]string, error) {
	return nil, fmt.Errorf("hiddev: device access is only supported on linux")
}

func Open(path string, key []byte) (Device, error) {
	return nil, fmt.Errorf("hiddev: device access is only supported on linux")
}

func OpenFirst(key []byte) (Device, error) {
	return nil, fmt.Errorf("hiddev: device access is only supported on linux")
}
