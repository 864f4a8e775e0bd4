//go:build linux

package hiddev

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"
)

const sysHidraw = "/sys/class/hidraw"

// HIDIOCSFEATURE for a 9-byte buffer (1 report ID byte + 8 payload).
const hidiocsfeature9 = 0xC0094806

// Enumerate lists /dev/hidraw nodes belonging to attached monitors,
// matched by vendor/product ID from the sysfs uevent.
func Enumerate() ([]string, error) {
	entries, err := os.ReadDir(sysHidraw)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("hiddev: scan %s: %w", sysHidraw, err)
	}
	want := fmt.Sprintf("%08X:%08X", VendorID, ProductID)
	var paths []string
	for _, e := range entries {
		uevent, err := os.ReadFile(filepath.Join(sysHidraw, e.Name(), "device", "uevent"))
		if err != nil {
			continue
		}
		for _, line := range strings.Split(string(uevent), "\n") {
			id, ok := strings.CutPrefix(line, "HID_ID=")
			if !ok {
				continue
			}
			// HID_ID=0003:000004D9:0000A052
			if strings.HasSuffix(strings.TrimSpace(id), want) {
				paths = append(paths, "/dev/"+e.Name())
			}
			break
		}
	}
	return paths, nil
}

// Open opens the hidraw node at path and sends the connect-time
// feature report carrying the given 8-byte key (all zeros when key is
// nil). Required on most OS/driver combinations before the device
// starts reporting.
func Open(path string, key []byte) (Device, error) {
	f, err := os.OpenFile(path, os.O_RDWR|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrDeviceNotFound, path, err)
	}
	d := &hidraw{f: f}
	feature := make([]byte, 8)
	copy(feature, key)
	if err := d.SendFeatureReport(feature); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: feature report on %s: %v", ErrDeviceNotFound, path, err)
	}
	return d, nil
}

// OpenFirst opens the first attached monitor.
func OpenFirst(key []byte) (Device, error) {
	paths, err := Enumerate()
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, ErrDeviceNotFound
	}
	return Open(paths[0], key)
}

type hidraw struct {
	f *os.File
}

func (d *hidraw) Read(p []byte) (int, error) {
	return d.f.Read(p)
}

func (d *hidraw) SendFeatureReport(data []byte) error {
	// hidraw expects the report ID (0 for this device) prepended.
	buf := make([]byte, len(data)+1)
	copy(buf[1:], data)

	raw, err := d.f.SyscallConn()
	if err != nil {
		return err
	}
	var errno unix.Errno
	cerr := raw.Control(func(fd uintptr) {
		_, _, errno = unix.Syscall(unix.SYS_IOCTL, fd, hidiocsfeature9, uintptr(unsafe.Pointer(&buf[0])))
	})
	if cerr != nil {
		return cerr
	}
	if errno != 0 {
		return errno
	}
	return nil
}

func (d *hidraw) Close() error {
	return d.f.Close()
}
