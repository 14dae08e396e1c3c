package atapromise

import (
	"errors"
	"testing"

	"github.com/jclehner/flashrom/pci"
)

func TestClassifyDecode(t *testing.T) {
	tests := []struct {
		name     string
		strategy probeStrategy
		readback uint32
		want     uint32
	}{
		{"small flag wins, legacy", probeLegacy, probeFlagSmall, Decode16K},
		{"small flag wins, extended", probeExtended, probeFlagSmall, Decode16K},
		{"small flag wins regardless of other bits", probeExtended, probeFlagSmall | probeFlagMid | 0xff, Decode16K},
		{"legacy without small flag", probeLegacy, 0, Decode32K},
		{"legacy ignores mid flag", probeLegacy, probeFlagMid, Decode32K},
		{"extended mid flag set", probeExtended, probeFlagMid, Decode64K},
		{"extended mid flag set, noise", probeExtended, probeFlagMid | 0x0800, Decode64K},
		{"extended mid flag clear", probeExtended, 0, Decode128K},
		{"extended mid flag clear, noise", probeExtended, 0x0800, Decode128K},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyDecode(tt.strategy, tt.readback); got != tt.want {
				t.Errorf("classifyDecode(%d, %#08x) = %d, want %d", tt.strategy, tt.readback, got, tt.want)
			}
		})
	}
}

func probeTestSession(strategy probeStrategy) *Session {
	return &Session{
		cfg:   defaultConfig(),
		log:   nopLogger{},
		entry: deviceEntry{strategy: strategy},
	}
}

func TestProbeRestoresROMAddressRegister(t *testing.T) {
	const orig = 0x000c0001

	fn := newFakeController(pci.Addr{Bus: 2}, 0x4d30, 0xac01, 0x000c0000)
	fn.WriteConfig32(pci.RegROMAddress, orig)

	// Answer the post-probe read with a synthetic readback instead of
	// the stored pattern.
	reads := 0
	fn.read32 = func(off int64) (uint32, error) {
		if off != pci.RegROMAddress {
			t.Fatalf("unexpected config read at %#x", off)
		}
		reads++
		if reads == 2 {
			return probeFlagMid, nil
		}
		buf := fn.cfg[off : off+4]
		return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24, nil
	}

	s := probeTestSession(probeExtended)
	if got := s.probeDecodeWindow(fn); got != Decode64K {
		t.Errorf("decode = %d, want %d", got, Decode64K)
	}

	fn.read32 = nil
	if got, _ := fn.ReadConfig32(pci.RegROMAddress); got != orig {
		t.Errorf("ROM address register = %#08x after probe, want %#08x", got, orig)
	}
}

func TestProbeRestoresRegisterWhenReadbackFails(t *testing.T) {
	const orig = 0x000c0001

	fn := newFakeController(pci.Addr{Bus: 2}, 0x4d30, 0xac01, 0x000c0000)
	fn.WriteConfig32(pci.RegROMAddress, orig)

	reads := 0
	fn.read32 = func(off int64) (uint32, error) {
		reads++
		if reads == 2 {
			return 0, errors.New("config read fault")
		}
		return orig, nil
	}

	s := probeTestSession(probeExtended)
	if got := s.probeDecodeWindow(fn); got != Decode16K {
		t.Errorf("decode on failed probe = %d, want smallest tier %d", got, Decode16K)
	}

	fn.read32 = nil
	if got, _ := fn.ReadConfig32(pci.RegROMAddress); got != orig {
		t.Errorf("ROM address register = %#08x after failed probe, want %#08x", got, orig)
	}
}

func TestProbeFallsBackWhenSaveFails(t *testing.T) {
	fn := newFakeController(pci.Addr{Bus: 2}, 0x4d30, 0xac01, 0x000c0000)
	fn.read32 = func(off int64) (uint32, error) {
		return 0, errors.New("config read fault")
	}

	s := probeTestSession(probeLegacy)
	if got := s.probeDecodeWindow(fn); got != Decode16K {
		t.Errorf("decode = %d, want %d", got, Decode16K)
	}
}
