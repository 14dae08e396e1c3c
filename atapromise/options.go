package atapromise

import (
	"github.com/jclehner/flashrom/hwio"
	"github.com/jclehner/flashrom/pci"
)

// Logger receives diagnostics from a session. All methods must be safe
// to call with any printf arguments; the default logger discards
// everything.
type Logger interface {
	Debugf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Warnf(string, ...interface{})  {}

// BridgeAuto and BridgeNone are the special values accepted by
// WithBridge; anything else is parsed as a PCI address.
const (
	BridgeAuto = "auto"
	BridgeNone = "none"
)

type config struct {
	device string
	bridge string
	logger Logger

	verifyWrites bool
	mapWindow    bool

	bus  pci.Bus
	port hwio.PortIO
	mem  hwio.PhysReader
}

func defaultConfig() config {
	return config{
		bridge:       BridgeAuto,
		logger:       nopLogger{},
		verifyWrites: true,
		mapWindow:    true,
	}
}

// Option configures a session at Open time.
type Option func(*config)

// WithDevice selects the controller at the given PCI address ("bb:ss.f")
// instead of the first supported controller found.
func WithDevice(addr string) Option {
	return func(c *config) { c.device = addr }
}

// WithBridge controls upstream bridge handling: BridgeAuto (default)
// discovers a bridge on the path to the controller and widens its memory
// window if needed, BridgeNone disables bridge handling, and a PCI
// address names the bridge explicitly (Open fails if it does not match).
func WithBridge(selector string) Option {
	return func(c *config) {
		if selector != "" {
			c.bridge = selector
		}
	}
}

// WithLogger directs session diagnostics to logger.
func WithLogger(logger Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithWriteVerify enables or disables the bounded read-back check after
// the data phase of a program sequence. Default is enabled. The check is
// a diagnostic for slow writes, not a correctness guarantee; failures
// are logged and the write still counts as issued.
func WithWriteVerify(verify bool) Option {
	return func(c *config) { c.verifyWrites = verify }
}

// WithMapping enables or disables memory-mapping the ROM window. Default
// is enabled. Without a mapping, reads fall back to byte-wise /dev/mem
// access, which behaves identically but slower.
func WithMapping(mapWindow bool) Option {
	return func(c *config) { c.mapWindow = mapWindow }
}

// WithBus substitutes the PCI bus implementation. Meant for tests and
// alternate backends; the default scans sysfs.
func WithBus(bus pci.Bus) Option {
	return func(c *config) { c.bus = bus }
}

// WithPortIO substitutes the port I/O implementation. Meant for tests;
// the default goes through /dev/port.
func WithPortIO(port hwio.PortIO) Option {
	return func(c *config) { c.port = port }
}

// WithPhysReader substitutes the physical memory read path used when no
// mapping is held. Meant for tests; the default reads /dev/mem.
func WithPhysReader(mem hwio.PhysReader) Option {
	return func(c *config) { c.mem = mem }
}
