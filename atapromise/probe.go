package atapromise

import (
	"github.com/jclehner/flashrom/pci"
)

// Decode window tiers, in bytes.
const (
	Decode16K  = 16 * 1024
	Decode32K  = 32 * 1024
	Decode64K  = 64 * 1024
	Decode128K = 128 * 1024
)

const (
	// Pattern written to the ROM address register to provoke a
	// classifiable readback.
	romProbePattern = 0xfffff800

	// Readback flag bits. Empirical; the tier boundaries downstream
	// depend on these exact tests, so they must not be "improved".
	probeFlagSmall = 1 << 31 // set: controller decodes only 16 kB
	probeFlagMid   = 1 << 14 // clear of small: set 64 kB, clear 128 kB
)

// probeDecodeWindow discovers how much chip address space the controller
// forwards by writing a probe pattern to its ROM address register and
// classifying the readback. The register is restored on every path. A
// failed probe falls back to the smallest tier rather than failing the
// session: 16 kB is decoded by every known controller.
func (s *Session) probeDecodeWindow(dev pci.Function) uint32 {
	saved, err := dev.ReadConfig32(pci.RegROMAddress)
	if err != nil {
		s.log.Warnf("decode probe: reading ROM address register: %v", err)
		return Decode16K
	}
	if err := dev.WriteConfig32(pci.RegROMAddress, romProbePattern); err != nil {
		s.log.Warnf("decode probe: writing probe pattern: %v", err)
		return Decode16K
	}
	defer func() {
		if err := dev.WriteConfig32(pci.RegROMAddress, saved); err != nil {
			s.log.Warnf("decode probe: restoring ROM address register: %v", err)
		}
	}()

	readback, err := dev.ReadConfig32(pci.RegROMAddress)
	if err != nil {
		s.log.Warnf("decode probe: reading back probe pattern: %v", err)
		return Decode16K
	}
	s.log.Debugf("decode probe readback %08x", readback)
	return classifyDecode(s.entry.strategy, readback)
}

// classifyDecode maps a probe readback to a decode window tier. The
// small-tier flag wins outright; without it the legacy strategy only
// knows the 32 kB tier while the extended one distinguishes 64 from
// 128 kB by the mid flag.
func classifyDecode(strategy probeStrategy, readback uint32) uint32 {
	if readback&probeFlagSmall != 0 {
		return Decode16K
	}
	if strategy == probeLegacy {
		return Decode32K
	}
	if readback&probeFlagMid != 0 {
		return Decode64K
	}
	return Decode128K
}
