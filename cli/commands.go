package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/sigurn/crc16"

	"github.com/jclehner/flashrom/atapromise"
	"github.com/jclehner/flashrom/flashchip"
	"github.com/jclehner/flashrom/jedec"
	"github.com/jclehner/flashrom/pci"
)

var crcTable = crc16.MakeTable(crc16.CRC16_XMODEM)

func openSession(c *Context) (*atapromise.Session, error) {
	opts := []atapromise.Option{
		atapromise.WithLogger(c.Log),
		atapromise.WithBridge(CLI.Bridge),
		atapromise.WithWriteVerify(!CLI.NoVerify),
		atapromise.WithMapping(!CLI.NoMmap),
	}
	if CLI.Device != "" {
		opts = append(opts, atapromise.WithDevice(CLI.Device))
	}
	return atapromise.Open(opts...)
}

func selectChip() (*flashchip.Chip, error) {
	chip := flashchip.ByName(CLI.Chip)
	if chip == nil {
		return nil, fmt.Errorf("unknown chip %q (supported: %s)", CLI.Chip, chipNames())
	}
	return chip, nil
}

func chipNames() string {
	var s string
	for i, c := range flashchip.Supported() {
		if i > 0 {
			s += ", "
		}
		s += c.Name
	}
	return s
}

func printProgress(p jedec.Progress) {
	fmt.Printf("\r%s... %3d%%", p.Phase, 100*p.Done/p.Total)
	if p.Done == p.Total {
		fmt.Println()
	}
}

type ListCmd struct{}

func (l *ListCmd) Run(c *Context) error {
	bus := pci.NewSysBus()
	defer bus.Close()

	present := map[uint16]pci.Addr{}
	if fns, err := bus.Functions(); err == nil {
		for _, f := range fns {
			for _, d := range atapromise.SupportedDevices() {
				if f.VendorID() == d.Vendor && f.DeviceID() == d.Device {
					present[d.Device] = f.Addr()
				}
			}
		}
	}

	for _, d := range atapromise.SupportedDevices() {
		status := "untested"
		if d.Tested {
			status = "tested"
		}
		line := fmt.Sprintf("%04x:%04x  %-40s %s", d.Vendor, d.Device, d.Name, status)
		if addr, ok := present[d.Device]; ok {
			color.Green("%s  [present at %s]", line, addr)
		} else {
			fmt.Println(line)
		}
	}
	return nil
}

type ProbeCmd struct{}

func (p *ProbeCmd) Run(c *Context) error {
	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Printf("controller: %s at %s\n", s.Controller(), s.Addr())
	fmt.Printf("io base:    %#x\n", s.IOBase())
	fmt.Printf("rom base:   %#x\n", s.ROMBase())
	fmt.Printf("decodes:    %d kB\n", s.DecodeWindow()/1024)

	chip, err := selectChip()
	if err != nil {
		return err
	}
	mfr, model, err := jedec.ProbeID(s, chip)
	if err != nil {
		return err
	}
	if known := flashchip.ByID(mfr, model); known != nil {
		color.Green("chip id %02x:%02x - %s", mfr, model, known)
	} else {
		color.Yellow("chip id %02x:%02x - unknown part", mfr, model)
	}
	return nil
}

type ReadCmd struct {
	Out string `arg:"" help:"Output file." type:"path"`
}

func (r *ReadCmd) Run(c *Context) error {
	chip, err := selectChip()
	if err != nil {
		return err
	}
	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	data, err := jedec.Read(s, chip, 0, printProgress)
	if err != nil {
		return err
	}
	if err := os.WriteFile(r.Out, data, 0o644); err != nil {
		return err
	}
	color.Green("read %d bytes to %s (crc16 %04x)", len(data), r.Out, crc16.Checksum(data, crcTable))
	return nil
}

type WriteCmd struct {
	In string `arg:"" help:"Image file to flash." type:"path"`
}

func (w *WriteCmd) Run(c *Context) error {
	data, err := os.ReadFile(w.In)
	if err != nil {
		return err
	}
	chip, err := selectChip()
	if err != nil {
		return err
	}
	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Printf("flashing %s (%d bytes, crc16 %04x)\n", w.In, len(data), crc16.Checksum(data, crcTable))
	if err := jedec.EraseChip(s, chip, printProgress); err != nil {
		return err
	}
	if err := jedec.Program(s, chip, data, printProgress); err != nil {
		return err
	}
	if err := jedec.Verify(s, chip, data, printProgress); err != nil {
		return err
	}
	color.Green("done")
	return nil
}

type EraseCmd struct{}

func (e *EraseCmd) Run(c *Context) error {
	chip, err := selectChip()
	if err != nil {
		return err
	}
	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := jedec.EraseChip(s, chip, printProgress); err != nil {
		return err
	}
	color.Green("chip erased")
	return nil
}

type VerifyCmd struct {
	In string `arg:"" help:"Image file to compare against." type:"path"`
}

func (v *VerifyCmd) Run(c *Context) error {
	data, err := os.ReadFile(v.In)
	if err != nil {
		return err
	}
	chip, err := selectChip()
	if err != nil {
		return err
	}
	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := jedec.Verify(s, chip, data, printProgress); err != nil {
		return err
	}
	color.Green("verify OK (crc16 %04x)", crc16.Checksum(data, crcTable))
	return nil
}
