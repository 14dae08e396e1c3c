package atapromise

import (
	"encoding/binary"

	"github.com/jclehner/flashrom/pci"
)

// fakeFunction is a PCI function backed by an in-memory config space.
type fakeFunction struct {
	addr pci.Addr
	cfg  [256]byte

	// read32 overrides ReadConfig32 when set.
	read32 func(off int64) (uint32, error)

	writes16 []cfgWrite16
}

type cfgWrite16 struct {
	off int64
	val uint16
}

func newFakeFunction(addr pci.Addr, vendor, device uint16) *fakeFunction {
	f := &fakeFunction{addr: addr}
	binary.LittleEndian.PutUint16(f.cfg[pci.RegVendorID:], vendor)
	binary.LittleEndian.PutUint16(f.cfg[pci.RegDeviceID:], device)
	return f
}

// newFakeController builds a PDC2026x-shaped function with its I/O and
// ROM BARs assigned.
func newFakeController(addr pci.Addr, device uint16, ioBar, romBar uint32) *fakeFunction {
	f := newFakeFunction(addr, vendorPromise, device)
	binary.LittleEndian.PutUint32(f.cfg[pci.RegBAR4:], ioBar)
	binary.LittleEndian.PutUint32(f.cfg[pci.RegBAR5:], romBar)
	return f
}

// newFakeBridge builds a type-1 function forwarding buses sec..sub with
// the given memory window registers.
func newFakeBridge(addr pci.Addr, sec, sub uint8, memBase, memLimit uint16) *fakeFunction {
	f := newFakeFunction(addr, 0x8086, 0x2448)
	f.cfg[pci.RegHeaderType] = pci.HeaderTypeBridge
	f.cfg[pci.RegSecondaryBus] = sec
	f.cfg[pci.RegSubordinateBus] = sub
	binary.LittleEndian.PutUint16(f.cfg[pci.RegMemoryBase:], memBase)
	binary.LittleEndian.PutUint16(f.cfg[pci.RegMemoryLimit:], memLimit)
	return f
}

func (f *fakeFunction) Addr() pci.Addr   { return f.addr }
func (f *fakeFunction) VendorID() uint16 { return binary.LittleEndian.Uint16(f.cfg[pci.RegVendorID:]) }
func (f *fakeFunction) DeviceID() uint16 { return binary.LittleEndian.Uint16(f.cfg[pci.RegDeviceID:]) }

func (f *fakeFunction) ReadConfig8(off int64) (uint8, error) {
	return f.cfg[off], nil
}

func (f *fakeFunction) ReadConfig16(off int64) (uint16, error) {
	return binary.LittleEndian.Uint16(f.cfg[off:]), nil
}

func (f *fakeFunction) ReadConfig32(off int64) (uint32, error) {
	if f.read32 != nil {
		return f.read32(off)
	}
	return binary.LittleEndian.Uint32(f.cfg[off:]), nil
}

func (f *fakeFunction) WriteConfig16(off int64, v uint16) error {
	binary.LittleEndian.PutUint16(f.cfg[off:], v)
	f.writes16 = append(f.writes16, cfgWrite16{off, v})
	return nil
}

func (f *fakeFunction) WriteConfig32(off int64, v uint32) error {
	binary.LittleEndian.PutUint32(f.cfg[off:], v)
	return nil
}

func (f *fakeFunction) memBase() uint16 {
	return binary.LittleEndian.Uint16(f.cfg[pci.RegMemoryBase:])
}

func (f *fakeFunction) memLimit() uint16 {
	return binary.LittleEndian.Uint16(f.cfg[pci.RegMemoryLimit:])
}

type fakeBus struct {
	fns    []pci.Function
	closed int
}

func (b *fakeBus) Functions() ([]pci.Function, error) { return b.fns, nil }

func (b *fakeBus) Close() error {
	b.closed++
	return nil
}

type portWrite8 struct {
	port uint16
	val  uint8
}

type portWrite32 struct {
	port uint16
	val  uint32
}

// fakePort records port writes. The optional hook sees every 32-bit
// write, letting a test emulate the controller's flash forwarding.
type fakePort struct {
	writes8  []portWrite8
	writes32 []portWrite32
	hook     func(port uint16, val uint32)
}

func (p *fakePort) Out8(port uint16, v uint8) error {
	p.writes8 = append(p.writes8, portWrite8{port, v})
	return nil
}

func (p *fakePort) Out32(port uint16, v uint32) error {
	p.writes32 = append(p.writes32, portWrite32{port, v})
	if p.hook != nil {
		p.hook(port, v)
	}
	return nil
}

// fakeMem is a sparse physical memory for the unmapped read path.
type fakeMem map[uint32]uint8

func (m fakeMem) ReadPhys8(addr uint32) (uint8, error) { return m[addr], nil }
