package hwio

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Map is an owned mapping of a physical address window, established over
// /dev/mem. Close releases it; calling Close more than once is a no-op.
type Map struct {
	mem  []byte // page-aligned mapping, nil after Close
	off  int    // offset of base within mem
	size int
}

// MapPhys maps size bytes of physical memory starting at base. The
// mapping is read/write so it can back chip reads during programming.
func MapPhys(base uint32, size int) (*Map, error) {
	f, err := os.OpenFile("/dev/mem", os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("open /dev/mem: %w", err)
	}
	defer f.Close()

	ps := unix.Getpagesize()
	page := int64(base) &^ int64(ps-1)
	off := int(int64(base) - page)

	mem, err := unix.Mmap(int(f.Fd()), page, off+size,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %#x+%#x: %w", base, size, err)
	}
	return &Map{mem: mem, off: off, size: size}, nil
}

// Bytes returns the mapped window. Valid until Close.
func (m *Map) Bytes() []byte {
	if m.mem == nil {
		return nil
	}
	return m.mem[m.off : m.off+m.size]
}

func (m *Map) Close() error {
	if m.mem == nil {
		return nil
	}
	mem := m.mem
	m.mem = nil
	return unix.Munmap(mem)
}
