// Command atapromise reads and writes the boot ROM of Promise PDC2026x
// ATA controllers. It needs root (raw port I/O, /dev/mem and PCI config
// access) and exclusive use of the controller while running.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
)

var CLI struct {
	Verbose  bool   `short:"v" help:"Enable debug logging."`
	Device   string `help:"PCI address (bb:ss.f) of the controller." placeholder:"ADDR"`
	Bridge   string `help:"Bridge handling: auto, none, or a PCI address (bb:ss.f)." default:"auto"`
	Chip     string `help:"Flash chip part number." default:"MX29F001T"`
	NoVerify bool   `help:"Disable write read-back verification."`
	NoMmap   bool   `help:"Read through /dev/mem instead of mapping the ROM window."`

	List   ListCmd   `cmd:"" help:"List supported controllers and those present."`
	Probe  ProbeCmd  `cmd:"" help:"Show controller info and identify the flash chip."`
	Read   ReadCmd   `cmd:"" help:"Read the boot ROM into a file."`
	Write  WriteCmd  `cmd:"" help:"Erase, program and verify the boot ROM from a file."`
	Erase  EraseCmd  `cmd:"" help:"Erase the flash chip."`
	Verify VerifyCmd `cmd:"" help:"Compare the boot ROM against a file."`
}

// Context is passed to every command's Run method.
type Context struct {
	Log cliLogger
}

// cliLogger adapts session diagnostics to the standard logger, the way
// the rest of the tool logs.
type cliLogger struct {
	verbose bool
}

func (l cliLogger) Debugf(format string, args ...interface{}) {
	if l.verbose {
		log.Printf(format, args...)
	}
}

func (l cliLogger) Warnf(format string, args ...interface{}) {
	color.Yellow("warning: " + fmt.Sprintf(format, args...))
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("atapromise"),
		kong.Description("Boot ROM programmer for Promise PDC2026x ATA controllers."))

	log.SetFlags(0)
	err := ctx.Run(&Context{Log: cliLogger{verbose: CLI.Verbose}})
	if err != nil {
		color.Red("error: %v", err)
		os.Exit(1)
	}
}
