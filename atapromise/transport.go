package atapromise

import (
	"github.com/jclehner/flashrom/flashchip"
)

// Attempts the data-phase read-back check makes before giving up. Writes
// are sometimes not observable immediately; anything still unconverged
// after this many reads gets logged and left alone.
const maxReadbackAttempts = 30

// ReadByte reads one byte of the chip's address space. The address is
// masked to the decode window first; out-of-window addresses alias.
// The chip descriptor is shrunk to the decode window on first access.
func (s *Session) ReadByte(chip *flashchip.Chip, addr uint32) (uint8, error) {
	if s.closed {
		return 0, ErrClosed
	}
	s.adjustChip(chip)

	eff := addr & (s.decode - 1)
	if s.window != nil {
		return s.window[eff], nil
	}
	return s.mem.ReadPhys8(s.romBase + eff)
}

// WriteByte forwards one byte to the chip. The controller has no
// separate address latch: a single 32-bit write of
// (rom_base+addr)<<8 | val to the address/data register is the whole
// protocol. The chip descriptor is shrunk to the decode window on first
// access.
//
// Several alternate encodings of this word were tried while reverse
// engineering; this is the one that matches PTIFLASH traces and works on
// the tested hardware.
func (s *Session) WriteByte(chip *flashchip.Chip, addr uint32, val uint8) error {
	if s.closed {
		return ErrClosed
	}
	s.adjustChip(chip)

	eff := addr & (s.decode - 1)
	word := (s.romBase+eff)<<8 | uint32(val)
	if err := s.port.Out32(uint16(s.ioBase)+addrDataReg, word); err != nil {
		return err
	}

	if s.unlock.observe(eff, val) && s.cfg.verifyWrites {
		s.verifyWrite(chip, addr, val)
	}
	return nil
}

// verifyWrite polls the freshly programmed byte until it reads back, up
// to maxReadbackAttempts. Best effort only: the byte counts as written
// either way, and non-convergence is a warning. Not every chip/window
// combination reads back through this path (the port register itself is
// write-only), which is exactly why this is not an error.
func (s *Session) verifyWrite(chip *flashchip.Chip, addr uint32, val uint8) {
	for i := 0; i < maxReadbackAttempts; i++ {
		got, err := s.ReadByte(chip, addr)
		if err != nil {
			s.log.Warnf("read-back at %#x: %v", addr, err)
			return
		}
		if got == val {
			return
		}
	}
	s.log.Warnf("write of %#02x to %#x not observable after %d reads",
		val, addr, maxReadbackAttempts)
}
