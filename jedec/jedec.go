// Package jedec drives JEDEC-command-set parallel flash chips through a
// byte-level transport: ID autoselect, chip erase, byte program and
// verify. It knows nothing about how bytes reach the chip; the
// atapromise session (or any other ByteBus) supplies that.
package jedec

import (
	"fmt"
	"time"

	"github.com/jclehner/flashrom/flashchip"
)

// ByteBus is the transport a chip is driven through. Implementations
// pass the chip descriptor down so lower layers can adjust its geometry.
type ByteBus interface {
	ReadByte(chip *flashchip.Chip, addr uint32) (uint8, error)
	WriteByte(chip *flashchip.Chip, addr uint32, val uint8) error
}

// JEDEC command addresses and values.
const (
	cmdAddr1 = 0x555
	cmdAddr2 = 0x2aa

	valUnlock1    = 0xaa
	valUnlock2    = 0x55
	valAutoselect = 0x90
	valProgram    = 0xa0
	valEraseSetup = 0x80
	valChipErase  = 0x10
	valReset      = 0xf0
)

const (
	// Reads of a freshly programmed byte before giving up. Matches the
	// transport's own read-back bound.
	programAttempts = 30

	// A full chip erase on these parts takes seconds.
	eraseTimeout  = 20 * time.Second
	erasePollWait = 10 * time.Millisecond

	erasedByte = 0xff
)

// Progress reports a long-running operation. Total is in bytes.
type Progress struct {
	Phase string // "reading", "erasing", "programming", "verifying"
	Done  uint32
	Total uint32
}

// ProgressFunc receives Progress updates. May be nil.
type ProgressFunc func(Progress)

// ProgramError means a byte did not take within the poll bound.
type ProgramError struct {
	Addr uint32
	Want uint8
	Got  uint8
}

func (e *ProgramError) Error() string {
	return fmt.Sprintf("programming %#02x at %#x failed: chip reads %#02x", e.Want, e.Addr, e.Got)
}

// VerifyError means chip contents differ from the reference image.
type VerifyError struct {
	Addr uint32
	Want uint8
	Got  uint8
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("verify mismatch at %#x: want %#02x, got %#02x", e.Addr, e.Want, e.Got)
}

func unlock(bus ByteBus, chip *flashchip.Chip) error {
	if err := bus.WriteByte(chip, cmdAddr1, valUnlock1); err != nil {
		return err
	}
	return bus.WriteByte(chip, cmdAddr2, valUnlock2)
}

// ProbeID reads the chip's JEDEC manufacturer and model IDs via the
// autoselect command, leaving the chip back in read mode.
func ProbeID(bus ByteBus, chip *flashchip.Chip) (manufacturer, model uint8, err error) {
	if err = unlock(bus, chip); err != nil {
		return 0, 0, err
	}
	if err = bus.WriteByte(chip, cmdAddr1, valAutoselect); err != nil {
		return 0, 0, err
	}
	if manufacturer, err = bus.ReadByte(chip, 0); err != nil {
		return 0, 0, err
	}
	if model, err = bus.ReadByte(chip, 1); err != nil {
		return 0, 0, err
	}
	if err = bus.WriteByte(chip, 0, valReset); err != nil {
		return 0, 0, err
	}
	return manufacturer, model, nil
}

// EraseChip issues a full-chip erase and polls until the first byte
// reads erased or the timeout passes.
func EraseChip(bus ByteBus, chip *flashchip.Chip, progress ProgressFunc) error {
	report(progress, Progress{Phase: "erasing", Total: chip.TotalSize})

	if err := unlock(bus, chip); err != nil {
		return err
	}
	if err := bus.WriteByte(chip, cmdAddr1, valEraseSetup); err != nil {
		return err
	}
	if err := unlock(bus, chip); err != nil {
		return err
	}
	if err := bus.WriteByte(chip, cmdAddr1, valChipErase); err != nil {
		return err
	}

	deadline := time.Now().Add(eraseTimeout)
	for {
		got, err := bus.ReadByte(chip, 0)
		if err != nil {
			return err
		}
		if got == erasedByte {
			break
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("chip erase did not complete within %v", eraseTimeout)
		}
		time.Sleep(erasePollWait)
	}

	report(progress, Progress{Phase: "erasing", Done: chip.TotalSize, Total: chip.TotalSize})
	return nil
}

// Program writes data starting at address 0. Bytes that are already in
// the erased state are skipped; callers erase first. Note that the first
// transport access may shrink the chip to the controller's decode
// window, so the length check happens after a touch, not before.
func Program(bus ByteBus, chip *flashchip.Chip, data []byte, progress ProgressFunc) error {
	if _, err := bus.ReadByte(chip, 0); err != nil {
		return err
	}
	if uint32(len(data)) > chip.TotalSize {
		return fmt.Errorf("image is %d bytes but chip decodes only %d", len(data), chip.TotalSize)
	}

	total := uint32(len(data))
	for addr := uint32(0); addr < total; addr++ {
		if data[addr] != erasedByte {
			if err := programByte(bus, chip, addr, data[addr]); err != nil {
				return err
			}
		}
		if addr%1024 == 0 || addr == total-1 {
			report(progress, Progress{Phase: "programming", Done: addr + 1, Total: total})
		}
	}
	return nil
}

func programByte(bus ByteBus, chip *flashchip.Chip, addr uint32, val uint8) error {
	if err := unlock(bus, chip); err != nil {
		return err
	}
	if err := bus.WriteByte(chip, cmdAddr1, valProgram); err != nil {
		return err
	}
	if err := bus.WriteByte(chip, addr, val); err != nil {
		return err
	}

	var got uint8
	var err error
	for i := 0; i < programAttempts; i++ {
		if got, err = bus.ReadByte(chip, addr); err != nil {
			return err
		}
		if got == val {
			return nil
		}
	}
	return &ProgramError{Addr: addr, Want: val, Got: got}
}

// Read copies size bytes of the chip into a new buffer. A zero size
// means the whole (possibly shrunk) chip.
func Read(bus ByteBus, chip *flashchip.Chip, size uint32, progress ProgressFunc) ([]byte, error) {
	if _, err := bus.ReadByte(chip, 0); err != nil {
		return nil, err
	}
	if size == 0 || size > chip.TotalSize {
		size = chip.TotalSize
	}

	buf := make([]byte, size)
	for addr := uint32(0); addr < size; addr++ {
		b, err := bus.ReadByte(chip, addr)
		if err != nil {
			return nil, err
		}
		buf[addr] = b
		if addr%4096 == 0 || addr == size-1 {
			report(progress, Progress{Phase: "reading", Done: addr + 1, Total: size})
		}
	}
	return buf, nil
}

// Verify compares the chip against data, failing on the first mismatch.
func Verify(bus ByteBus, chip *flashchip.Chip, data []byte, progress ProgressFunc) error {
	total := uint32(len(data))
	for addr := uint32(0); addr < total; addr++ {
		got, err := bus.ReadByte(chip, addr)
		if err != nil {
			return err
		}
		if got != data[addr] {
			return &VerifyError{Addr: addr, Want: data[addr], Got: got}
		}
		if addr%4096 == 0 || addr == total-1 {
			report(progress, Progress{Phase: "verifying", Done: addr + 1, Total: total})
		}
	}
	return nil
}

func report(progress ProgressFunc, p Progress) {
	if progress != nil {
		progress(p)
	}
}
