package atapromise

import (
	"github.com/jclehner/flashrom/flashchip"
)

// adjustChip shrinks the chip's declared geometry to the decode window,
// once per session. The tested Ultra100 carries a 128 kB MX29F001T of
// which the controller may decode as little as 16 kB; erase and program
// orchestration must not be allowed to address the part beyond that.
//
// Only the erase region describing a full-chip erase survives, shrunk to
// the window; all others get a zero block count. A chip without a
// full-chip region cannot be shrunk safely, which is reported as a
// warning and nothing else: operations past the window will then alias,
// a surfaced limitation rather than a crash.
func (s *Session) adjustChip(chip *flashchip.Chip) {
	if s.adjusted {
		return
	}
	s.adjusted = true

	if chip == nil || chip.TotalSize <= s.decode {
		return
	}

	full := -1
	for i, r := range chip.EraseRegions {
		if r.BlockSize == chip.TotalSize {
			full = i
			break
		}
	}
	if full < 0 {
		s.log.Warnf("cannot shrink %s to the %d kB decode window: no full-chip erase region",
			chip, s.decode/1024)
		return
	}

	for i := range chip.EraseRegions {
		if i == full {
			chip.EraseRegions[i].BlockSize = s.decode
		} else {
			chip.EraseRegions[i].BlockCount = 0
		}
	}
	chip.TotalSize = s.decode
	if chip.PageSize > s.decode {
		chip.PageSize = s.decode
	}
	s.log.Debugf("shrunk %s %s to the %d kB decode window", chip.Vendor, chip.Name, s.decode/1024)
}
