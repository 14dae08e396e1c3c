package atapromise

// PCI vendor ID of Promise Technology.
const vendorPromise = 0x105a

// probeStrategy selects the decode-window classification used for a
// controller generation. The two strategies were recovered from
// different hardware revisions and are not interchangeable.
type probeStrategy int

const (
	// probeLegacy knows the 16 and 32 kB tiers (PDC20262).
	probeLegacy probeStrategy = iota
	// probeExtended knows the 16, 64 and 128 kB tiers (PDC20265/67).
	probeExtended
)

type deviceEntry struct {
	vendor   uint16
	device   uint16
	name     string
	tested   bool // flashing confirmed on real hardware
	strategy probeStrategy
}

// The PDC2026x family. Only the PDC20267 has been exercised on real
// hardware; the others share its register protocol.
var supportedDevices = []deviceEntry{
	{vendorPromise, 0x4d38, "PDC20262 (FastTrak66/Ultra66)", false, probeLegacy},
	{vendorPromise, 0x0d30, "PDC20265 (FastTrak100 Lite/Ultra100)", false, probeExtended},
	{vendorPromise, 0x4d30, "PDC20267 (FastTrak100/Ultra100)", true, probeExtended},
}

func lookupDevice(vendor, device uint16) (deviceEntry, bool) {
	for _, e := range supportedDevices {
		if e.vendor == vendor && e.device == device {
			return e, true
		}
	}
	return deviceEntry{}, false
}

// SupportedDevice describes one controller this package can program.
type SupportedDevice struct {
	Vendor uint16
	Device uint16
	Name   string
	Tested bool
}

// SupportedDevices lists the recognized controllers, for display.
func SupportedDevices() []SupportedDevice {
	out := make([]SupportedDevice, 0, len(supportedDevices))
	for _, e := range supportedDevices {
		out = append(out, SupportedDevice{e.vendor, e.device, e.name, e.tested})
	}
	return out
}
