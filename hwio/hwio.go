// Package hwio wraps the raw hardware access paths the programmer uses:
// x86 port I/O through /dev/port, physical memory reads through /dev/mem,
// and an owned memory mapping over a physical window.
package hwio

import (
	"github.com/u-root/u-root/pkg/memio"
)

// PortIO issues x86 I/O port writes. Implemented by Port and by test
// fakes.
type PortIO interface {
	Out8(port uint16, v uint8) error
	Out32(port uint16, v uint32) error
}

// PhysReader reads single bytes from physical memory addresses.
type PhysReader interface {
	ReadPhys8(addr uint32) (uint8, error)
}

// Port performs port I/O through /dev/port.
type Port struct{}

func (Port) Out8(port uint16, v uint8) error {
	d := memio.Uint8(v)
	return memio.Out(port, &d)
}

func (Port) Out32(port uint16, v uint32) error {
	d := memio.Uint32(v)
	return memio.Out(port, &d)
}

func (Port) In8(port uint16) (uint8, error) {
	var d memio.Uint8
	if err := memio.In(port, &d); err != nil {
		return 0, err
	}
	return uint8(d), nil
}

// DevMem reads physical memory through /dev/mem, one byte per access.
// Slow but needs no standing mapping.
type DevMem struct{}

func (DevMem) ReadPhys8(addr uint32) (uint8, error) {
	var d memio.Uint8
	if err := memio.Read(int64(addr), &d); err != nil {
		return 0, err
	}
	return uint8(d), nil
}
