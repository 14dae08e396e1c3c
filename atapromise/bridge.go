package atapromise

import (
	"github.com/jclehner/flashrom/pci"
)

// fixupBridge locates a PCI-to-PCI bridge forwarding the controller's
// bus and widens its memory window so the ROM aperture is reachable.
// Chained bridges are out of scope: only the one bridge found (or named)
// is handled.
func (s *Session) fixupBridge(fns []pci.Function, dev pci.Function) error {
	var br pci.Function

	switch s.cfg.bridge {
	case BridgeNone:
		return nil

	case BridgeAuto:
		b, err := findBridge(fns, dev.Addr().Bus)
		if err != nil {
			return err
		}
		if b == nil {
			return nil
		}
		br = b

	default:
		want, err := pci.ParseAddr(s.cfg.bridge)
		if err != nil {
			return err
		}
		for _, f := range fns {
			if f.Addr() == want {
				br = f
				break
			}
		}
		if br == nil {
			return &BridgeNotFoundError{Locator: want.String(), Reason: "no such device"}
		}
		isBr, err := pci.IsBridge(br)
		if err != nil {
			return err
		}
		if !isBr {
			return &BridgeNotFoundError{Locator: want.String(), Reason: "not a PCI-to-PCI bridge"}
		}
		ok, err := bridgeForwardsBus(br, dev.Addr().Bus)
		if err != nil {
			return err
		}
		if !ok {
			return &BridgeNotFoundError{Locator: want.String(), Reason: "does not forward the controller's bus"}
		}
	}

	s.log.Debugf("controller is behind bridge %04x:%04x at %s",
		br.VendorID(), br.DeviceID(), br.Addr())
	return s.widenBridgeWindow(br, dev)
}

func findBridge(fns []pci.Function, bus uint8) (pci.Function, error) {
	for _, f := range fns {
		isBr, err := pci.IsBridge(f)
		if err != nil {
			return nil, err
		}
		if !isBr {
			continue
		}
		ok, err := bridgeForwardsBus(f, bus)
		if err != nil {
			return nil, err
		}
		if ok {
			return f, nil
		}
	}
	return nil, nil
}

func bridgeForwardsBus(br pci.Function, bus uint8) (bool, error) {
	sec, err := br.ReadConfig8(pci.RegSecondaryBus)
	if err != nil {
		return false, err
	}
	sub, err := br.ReadConfig8(pci.RegSubordinateBus)
	if err != nil {
		return false, err
	}
	return bus >= sec && bus <= sub, nil
}

// widenBridgeWindow makes sure the bridge forwards the range the ROM
// aperture lives in. The window is only ever widened: the base may move
// down and the limit up, never the other way.
func (s *Session) widenBridgeWindow(br, dev pci.Function) error {
	// High word of the controller's ROM BAR, i.e. the aperture base in
	// the 64 kB units the bridge window registers use.
	base, err := dev.ReadConfig16(pci.RegBAR5 + 2)
	if err != nil {
		return err
	}
	base &= 0xfff0

	cur, err := br.ReadConfig16(pci.RegMemoryBase)
	if err != nil {
		return err
	}
	if base < cur {
		s.log.Debugf("lowering bridge memory base to %04x", base)
		if err := br.WriteConfig16(pci.RegMemoryBase, base); err != nil {
			return err
		}
	}

	limit := base + maxRomDecode/1024
	cur, err = br.ReadConfig16(pci.RegMemoryLimit)
	if err != nil {
		return err
	}
	if limit > cur {
		s.log.Debugf("raising bridge memory limit to %04x", limit)
		if err := br.WriteConfig16(pci.RegMemoryLimit, limit); err != nil {
			return err
		}
	}
	return nil
}
