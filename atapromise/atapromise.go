package atapromise

import (
	"fmt"

	"github.com/jclehner/flashrom/hwio"
	"github.com/jclehner/flashrom/pci"
)

const (
	// Offset of the combined address/data register from the I/O BAR.
	// In principle this could differ per device ID, but every known
	// PDC2026x uses 0x14.
	addrDataReg = 0x14

	// Register and value of the one controller init write PTIFLASH
	// issues before flash access. Flashing appears to work without
	// it, but all known-good traces include it, so we do too.
	initReg   = 0x10
	initMagic = 0x01

	// Largest decode window any PDC2026x generation supports. Bridge
	// windows are widened for this size because the real window is
	// not known until the controller has been probed.
	maxRomDecode = 128 * 1024
)

// Session is an open programming session on one controller. It is not
// safe for concurrent use: the controller tracks bus state (the JEDEC
// unlock sequence) that is only meaningful under one linear access
// order.
type Session struct {
	cfg   config
	log   Logger
	entry deviceEntry
	addr  pci.Addr

	ioBase  uint32
	romBase uint32
	decode  uint32

	mapping *hwio.Map
	window  []byte // mapping.Bytes(), nil when unmapped

	bus  pci.Bus
	port hwio.PortIO
	mem  hwio.PhysReader

	adjusted bool
	unlock   unlockTracker
	closed   bool
}

// Open locates a supported controller, reconciles any upstream bridge
// window, probes the decode window and prepares the transport. The
// returned session must be released with Close; callers should defer it
// immediately. There is no partial success: any failure here leaves
// nothing usable behind.
func Open(opts ...Option) (*Session, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Session{
		cfg:  cfg,
		log:  cfg.logger,
		bus:  cfg.bus,
		port: cfg.port,
		mem:  cfg.mem,
	}
	if s.bus == nil {
		s.bus = pci.NewSysBus()
	}
	if s.port == nil {
		s.port = hwio.Port{}
	}
	if s.mem == nil {
		s.mem = hwio.DevMem{}
	}

	if err := s.setup(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Session) setup() error {
	fns, err := s.bus.Functions()
	if err != nil {
		return err
	}

	dev, err := s.findController(fns)
	if err != nil {
		return err
	}
	s.addr = dev.Addr()
	s.log.Debugf("using %s at %s", s.entry.name, s.addr)

	if err := s.fixupBridge(fns, dev); err != nil {
		return err
	}

	ioBar, err := pci.ReadBAR(dev, 4)
	if err != nil {
		return err
	}
	if ioBar == 0 {
		return fmt.Errorf("BAR4 (I/O ports): %w", ErrMissingBAR)
	}
	s.ioBase = ioBar &^ 0x1 // clear the I/O space indicator bit

	// Required before flash access; not retried, a failing port write
	// here means raw I/O is unavailable anyway.
	if err := s.port.Out8(uint16(s.ioBase)+initReg, initMagic); err != nil {
		return fmt.Errorf("controller init write: %w", err)
	}

	romBar, err := pci.ReadBAR(dev, 5)
	if err != nil {
		return err
	}
	if romBar == 0 {
		return fmt.Errorf("BAR5 (ROM window): %w", ErrMissingBAR)
	}
	s.romBase = romBar &^ 0xf

	s.decode = s.probeDecodeWindow(dev)
	s.log.Debugf("io=%#x rom=%#x decode=%d kB", s.ioBase, s.romBase, s.decode/1024)

	if s.cfg.mapWindow {
		m, err := hwio.MapPhys(s.romBase, int(s.decode))
		if err != nil {
			return &MappingError{Base: s.romBase, Size: s.decode, Err: err}
		}
		s.mapping = m
		s.window = m.Bytes()
	}
	return nil
}

func (s *Session) findController(fns []pci.Function) (pci.Function, error) {
	if s.cfg.device != "" {
		want, err := pci.ParseAddr(s.cfg.device)
		if err != nil {
			return nil, err
		}
		for _, f := range fns {
			if f.Addr() != want {
				continue
			}
			entry, ok := lookupDevice(f.VendorID(), f.DeviceID())
			if !ok {
				return nil, &UnsupportedDeviceError{f.VendorID(), f.DeviceID()}
			}
			s.entry = entry
			return f, nil
		}
		return nil, fmt.Errorf("%w at %s", ErrNoController, want)
	}

	for _, f := range fns {
		if entry, ok := lookupDevice(f.VendorID(), f.DeviceID()); ok {
			s.entry = entry
			return f, nil
		}
	}
	return nil, ErrNoController
}

// Controller returns the marketing name of the bound controller.
func (s *Session) Controller() string { return s.entry.name }

// Addr returns the PCI address of the bound controller.
func (s *Session) Addr() pci.Addr { return s.addr }

// IOBase returns the controller's I/O port base.
func (s *Session) IOBase() uint32 { return s.ioBase }

// ROMBase returns the physical base of the ROM window.
func (s *Session) ROMBase() uint32 { return s.romBase }

// DecodeWindow returns how many bytes of chip address space the
// controller forwards. Accesses beyond it alias back into the window.
func (s *Session) DecodeWindow() uint32 { return s.decode }

// Close releases the ROM mapping and any PCI handles. It is safe to
// call more than once and runs as a no-op after the first call.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var first error
	if s.mapping != nil {
		first = s.mapping.Close()
		s.mapping = nil
		s.window = nil
	}
	if s.bus != nil {
		if err := s.bus.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
