// Package atapromise reads and writes the boot ROM of Promise PDC2026x
// PCI ATA controllers (FastTrak/Ultra 66 and 100 families).
//
// The flash chip on these cards is not memory-mapped for writing.
// Instead, the controller forwards one byte at a time to the chip when a
// combined address/data word is written to an I/O port register. There is
// no public documentation for this protocol; it was recovered by watching
// the vendor's DOS utility (PTIFLASH) and by trial and error, and the
// package reproduces several quirks of that recovered behavior:
//
//   - the controller decodes only part of the chip's address space (16 to
//     128 kB depending on generation), discovered at run time by probing
//     the ROM address register;
//   - the logical chip geometry is shrunk in place, once per session, to
//     fit that decode window;
//   - if the card sits behind a PCI-to-PCI bridge, the bridge's forwarded
//     memory window is widened so the ROM aperture stays reachable.
//
// A Session is obtained with Open, used single-threaded, and released
// with Close. Reads come from a memory mapping of the ROM window (or a
// /dev/mem fallback); writes go through the port register.
package atapromise
