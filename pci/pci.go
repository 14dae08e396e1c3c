// Package pci provides the minimal PCI access the programmer needs:
// sysfs-backed enumeration, configuration-space reads and writes, and
// base-address register reads. The Function and Bus interfaces exist so
// callers can substitute fake devices in tests.
package pci

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Configuration-space register offsets used by this tool.
const (
	RegVendorID       = 0x00
	RegDeviceID       = 0x02
	RegHeaderType     = 0x0e
	RegBAR0           = 0x10
	RegBAR4           = 0x20
	RegBAR5           = 0x24
	RegSecondaryBus   = 0x19
	RegSubordinateBus = 0x1a
	RegMemoryBase     = 0x20
	RegMemoryLimit    = 0x22
	RegROMAddress     = 0x30
)

// Header types (low 7 bits of RegHeaderType).
const (
	HeaderTypeNormal = 0x00
	HeaderTypeBridge = 0x01
)

// Addr identifies a PCI function by domain:bus:slot.function.
type Addr struct {
	Domain uint16
	Bus    uint8
	Slot   uint8
	Func   uint8
}

// ParseAddr parses "bb:ss.f" or "dddd:bb:ss.f" (hex fields, as printed
// by lspci).
func ParseAddr(s string) (Addr, error) {
	var a Addr
	if _, err := fmt.Sscanf(s, "%04x:%02x:%02x.%x", &a.Domain, &a.Bus, &a.Slot, &a.Func); err == nil {
		return a, nil
	}
	a = Addr{}
	if _, err := fmt.Sscanf(s, "%x:%x.%x", &a.Bus, &a.Slot, &a.Func); err == nil {
		return a, nil
	}
	return Addr{}, fmt.Errorf("invalid PCI address %q (want bb:ss.f)", s)
}

func (a Addr) String() string {
	return fmt.Sprintf("%04x:%02x:%02x.%x", a.Domain, a.Bus, a.Slot, a.Func)
}

// Function is the slice of a PCI function this tool uses. Implemented by
// *Device (sysfs) and by test fakes.
type Function interface {
	Addr() Addr
	VendorID() uint16
	DeviceID() uint16
	ReadConfig8(off int64) (uint8, error)
	ReadConfig16(off int64) (uint16, error)
	ReadConfig32(off int64) (uint32, error)
	WriteConfig16(off int64, v uint16) error
	WriteConfig32(off int64, v uint32) error
}

// Bus enumerates PCI functions. Close releases any handles opened during
// enumeration.
type Bus interface {
	Functions() ([]Function, error)
	Close() error
}

// ReadBAR reads base address register index (0-5) of f, raw and unmasked.
func ReadBAR(f Function, index int) (uint32, error) {
	if index < 0 || index > 5 {
		return 0, fmt.Errorf("BAR index %d out of range", index)
	}
	return f.ReadConfig32(RegBAR0 + int64(4*index))
}

// IsBridge reports whether f has a type-1 (PCI-to-PCI bridge) header.
// The multi-function bit is ignored.
func IsBridge(f Function) (bool, error) {
	ht, err := f.ReadConfig8(RegHeaderType)
	if err != nil {
		return false, err
	}
	return ht&0x7f == HeaderTypeBridge, nil
}

// Device is a PCI function backed by its sysfs config file.
type Device struct {
	addr   Addr
	config *os.File
	vendor uint16
	device uint16
}

const sysfsRoot = "/sys/bus/pci/devices"

// OpenDevice opens the sysfs config file of the function at addr.
func OpenDevice(addr Addr) (*Device, error) {
	path := filepath.Join(sysfsRoot, addr.String(), "config")
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	d := &Device{addr: addr, config: f}
	if d.vendor, err = d.ReadConfig16(RegVendorID); err != nil {
		f.Close()
		return nil, err
	}
	if d.device, err = d.ReadConfig16(RegDeviceID); err != nil {
		f.Close()
		return nil, err
	}
	return d, nil
}

func (d *Device) Addr() Addr       { return d.addr }
func (d *Device) VendorID() uint16 { return d.vendor }
func (d *Device) DeviceID() uint16 { return d.device }

func (d *Device) ReadConfig8(off int64) (uint8, error) {
	var buf [1]byte
	if _, err := d.config.ReadAt(buf[:], off); err != nil {
		return 0, fmt.Errorf("%s: config read at %#x: %w", d.addr, off, err)
	}
	return buf[0], nil
}

func (d *Device) ReadConfig16(off int64) (uint16, error) {
	var buf [2]byte
	if _, err := d.config.ReadAt(buf[:], off); err != nil {
		return 0, fmt.Errorf("%s: config read at %#x: %w", d.addr, off, err)
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

func (d *Device) ReadConfig32(off int64) (uint32, error) {
	var buf [4]byte
	if _, err := d.config.ReadAt(buf[:], off); err != nil {
		return 0, fmt.Errorf("%s: config read at %#x: %w", d.addr, off, err)
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func (d *Device) WriteConfig16(off int64, v uint16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	if _, err := d.config.WriteAt(buf[:], off); err != nil {
		return fmt.Errorf("%s: config write at %#x: %w", d.addr, off, err)
	}
	return nil
}

func (d *Device) WriteConfig32(off int64, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	if _, err := d.config.WriteAt(buf[:], off); err != nil {
		return fmt.Errorf("%s: config write at %#x: %w", d.addr, off, err)
	}
	return nil
}

func (d *Device) Close() error { return d.config.Close() }

// SysBus enumerates functions from /sys/bus/pci/devices. Devices opened by
// Functions stay open until Close so callers can keep using them.
type SysBus struct {
	root   string
	opened []*Device
}

func NewSysBus() *SysBus {
	return &SysBus{root: sysfsRoot}
}

func (b *SysBus) Functions() ([]Function, error) {
	entries, err := os.ReadDir(b.root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", b.root, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var fns []Function
	for _, n := range names {
		addr, err := ParseAddr(n)
		if err != nil {
			continue
		}
		d, err := OpenDevice(addr)
		if err != nil {
			// Functions we cannot open (no permission, hotplugged
			// away) are skipped, not fatal.
			continue
		}
		b.opened = append(b.opened, d)
		fns = append(fns, d)
	}
	return fns, nil
}

func (b *SysBus) Close() error {
	var first error
	for _, d := range b.opened {
		if err := d.Close(); err != nil && first == nil {
			first = err
		}
	}
	b.opened = nil
	return first
}
