package flashchip

import "testing"

func TestByName(t *testing.T) {
	chip := ByName("MX29F001T")
	if chip == nil {
		t.Fatal("MX29F001T not found")
	}
	if chip.TotalSize != 128*1024 {
		t.Errorf("TotalSize = %d, want %d", chip.TotalSize, 128*1024)
	}
	if ByName("mx29f001t") != nil {
		t.Error("lookup should be case-sensitive")
	}
	if ByName("NO29SUCH") != nil {
		t.Error("unknown chip should return nil")
	}
}

func TestByNameReturnsIndependentCopies(t *testing.T) {
	a := ByName("MX29F001T")
	a.TotalSize = 1
	a.EraseRegions[0].BlockCount = 99

	b := ByName("MX29F001T")
	if b.TotalSize != 128*1024 {
		t.Errorf("mutating one copy leaked into the next: TotalSize = %d", b.TotalSize)
	}
	if b.EraseRegions[0].BlockCount == 99 {
		t.Error("erase regions are shared between copies")
	}
}

func TestByID(t *testing.T) {
	chip := ByID(0xbf, 0xb5)
	if chip == nil || chip.Name != "SST39SF010A" {
		t.Fatalf("ByID(bf, b5) = %v, want SST39SF010A", chip)
	}
	if ByID(0x00, 0x00) != nil {
		t.Error("unknown IDs should return nil")
	}
}

// Every supported chip needs a full-chip erase region: the decode-window
// adjustment keys off it, and a chip without one cannot be shrunk.
func TestEveryChipHasFullChipEraseRegion(t *testing.T) {
	for _, c := range Supported() {
		c := c
		t.Run(c.Name, func(t *testing.T) {
			for _, r := range c.EraseRegions {
				if r.BlockSize == c.TotalSize && r.BlockCount == 1 {
					return
				}
			}
			t.Errorf("%s has no full-chip erase region", c.Name)
		})
	}
}
