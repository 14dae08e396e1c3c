package atapromise

import (
	"reflect"
	"testing"

	"github.com/jclehner/flashrom/flashchip"
)

func testSession(decode uint32) *Session {
	return &Session{
		cfg:    defaultConfig(),
		log:    nopLogger{},
		decode: decode,
	}
}

func bigChip() *flashchip.Chip {
	return &flashchip.Chip{
		Vendor:         "Macronix",
		Name:           "MX29F001T",
		ManufacturerID: 0xc2,
		ModelID:        0x18,
		TotalSize:      131072,
		PageSize:       131072,
		EraseRegions: []flashchip.EraseRegion{
			{BlockSize: 131072, BlockCount: 1},
			{BlockSize: 65536, BlockCount: 1},
			{BlockSize: 16384, BlockCount: 2},
		},
	}
}

func TestAdjustShrinksToDecodeWindow(t *testing.T) {
	s := testSession(16384)
	chip := bigChip()

	s.adjustChip(chip)

	if chip.TotalSize != 16384 {
		t.Errorf("TotalSize = %d, want 16384", chip.TotalSize)
	}
	if chip.PageSize != 16384 {
		t.Errorf("PageSize = %d, want 16384", chip.PageSize)
	}
	if got := chip.EraseRegions[0]; got.BlockSize != 16384 || got.BlockCount != 1 {
		t.Errorf("full-chip region = %+v, want {16384 1}", got)
	}
	for i, r := range chip.EraseRegions[1:] {
		if r.BlockCount != 0 {
			t.Errorf("region %d still has count %d, want 0", i+1, r.BlockCount)
		}
	}
}

func TestAdjustIsIdempotent(t *testing.T) {
	s := testSession(16384)
	once := bigChip()
	s.adjustChip(once)

	twice := bigChip()
	s2 := testSession(16384)
	s2.adjustChip(twice)
	s2.adjustChip(twice)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("adjusting twice differs from once:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestAdjustAppliesAtMostOncePerSession(t *testing.T) {
	s := testSession(16384)
	first := bigChip()
	s.adjustChip(first)

	// A second chip in the same session must not be touched, even from
	// the other access path.
	second := bigChip()
	want := bigChip()
	s.adjustChip(second)

	if !reflect.DeepEqual(second, want) {
		t.Errorf("second chip was adjusted: %+v", second)
	}
}

func TestAdjustLeavesSmallChipAlone(t *testing.T) {
	s := testSession(131072)
	chip := bigChip()
	want := bigChip()

	s.adjustChip(chip)

	if !reflect.DeepEqual(chip, want) {
		t.Errorf("chip was modified: %+v, want %+v", chip, want)
	}
}

func TestAdjustWithoutFullChipRegionLeavesChipAlone(t *testing.T) {
	s := testSession(16384)
	chip := &flashchip.Chip{
		Name:      "sectors-only",
		TotalSize: 131072,
		PageSize:  256,
		EraseRegions: []flashchip.EraseRegion{
			{BlockSize: 4096, BlockCount: 32},
			{BlockSize: 65536, BlockCount: 2},
		},
	}
	want := *chip
	wantRegions := append([]flashchip.EraseRegion(nil), chip.EraseRegions...)

	s.adjustChip(chip)

	if chip.TotalSize != want.TotalSize || chip.PageSize != want.PageSize {
		t.Errorf("sizes modified: %+v", chip)
	}
	if !reflect.DeepEqual(chip.EraseRegions, wantRegions) {
		t.Errorf("erase regions modified: %+v", chip.EraseRegions)
	}
	if !s.adjusted {
		t.Error("failed adjustment should still latch")
	}
}

func TestAdjustNilChip(t *testing.T) {
	s := testSession(16384)
	s.adjustChip(nil) // must not panic
	if !s.adjusted {
		t.Error("latch not set")
	}
}
