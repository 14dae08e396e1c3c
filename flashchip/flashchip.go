// Package flashchip describes the parallel flash parts found on PDC2026x
// cards: declared capacity, programming page size and erase geometry,
// plus the JEDEC IDs used to identify a part in-system.
package flashchip

import "fmt"

// EraseRegion is one erase granularity a chip supports: BlockCount blocks
// of BlockSize bytes. A region whose BlockSize equals the chip's total
// size describes full-chip erase. A zero BlockCount marks the region as
// unusable.
type EraseRegion struct {
	BlockSize  uint32
	BlockCount uint32
}

// Chip describes one flash part. Sessions may shrink TotalSize, PageSize
// and EraseRegions in place when the controller decodes less address
// space than the chip declares, so callers should treat a Chip handed to
// a session as owned by it.
type Chip struct {
	Vendor string
	Name   string

	// JEDEC autoselect IDs.
	ManufacturerID uint8
	ModelID        uint8

	TotalSize    uint32 // bytes
	PageSize     uint32 // bytes
	EraseRegions []EraseRegion
}

func (c *Chip) String() string {
	return fmt.Sprintf("%s %s (%d kB)", c.Vendor, c.Name, c.TotalSize/1024)
}

// Supported lists the chips known to ship on PDC2026x cards.
//
// The full-chip erase region must stay present in each entry: the decode
// window adjustment keys off it.
func Supported() []Chip {
	return []Chip{
		{
			Vendor:         "Macronix",
			Name:           "MX29F001T",
			ManufacturerID: 0xc2,
			ModelID:        0x18,
			TotalSize:      128 * 1024,
			PageSize:       128 * 1024,
			EraseRegions: []EraseRegion{
				{BlockSize: 128 * 1024, BlockCount: 1},
				{BlockSize: 64 * 1024, BlockCount: 1},
				{BlockSize: 32 * 1024, BlockCount: 1},
				{BlockSize: 16 * 1024, BlockCount: 2},
			},
		},
		{
			Vendor:         "SST",
			Name:           "SST39SF010A",
			ManufacturerID: 0xbf,
			ModelID:        0xb5,
			TotalSize:      128 * 1024,
			PageSize:       4 * 1024,
			EraseRegions: []EraseRegion{
				{BlockSize: 4 * 1024, BlockCount: 32},
				{BlockSize: 128 * 1024, BlockCount: 1},
			},
		},
		{
			Vendor:         "Winbond",
			Name:           "W29EE011",
			ManufacturerID: 0xda,
			ModelID:        0xc1,
			TotalSize:      128 * 1024,
			PageSize:       128,
			EraseRegions: []EraseRegion{
				{BlockSize: 128, BlockCount: 1024},
				{BlockSize: 128 * 1024, BlockCount: 1},
			},
		},
		{
			Vendor:         "Atmel",
			Name:           "AT29C010A",
			ManufacturerID: 0x1f,
			ModelID:        0xd5,
			TotalSize:      128 * 1024,
			PageSize:       128,
			EraseRegions: []EraseRegion{
				{BlockSize: 128, BlockCount: 1024},
				{BlockSize: 128 * 1024, BlockCount: 1},
			},
		},
	}
}

// ByName returns a fresh copy of the named chip, or nil. Matching is
// exact and case-sensitive, like flash part numbers.
func ByName(name string) *Chip {
	for _, c := range Supported() {
		if c.Name == name {
			chip := c
			chip.EraseRegions = append([]EraseRegion(nil), c.EraseRegions...)
			return &chip
		}
	}
	return nil
}

// ByID returns a fresh copy of the chip with the given JEDEC IDs, or nil.
func ByID(manufacturer, model uint8) *Chip {
	for _, c := range Supported() {
		if c.ManufacturerID == manufacturer && c.ModelID == model {
			chip := c
			chip.EraseRegions = append([]EraseRegion(nil), c.EraseRegions...)
			return &chip
		}
	}
	return nil
}
