// Package cli implements the shortidctl admin commands.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Printer writes human-oriented command output.
type Printer struct {
	out    io.Writer
	errOut io.Writer
}

// NewPrinter creates a printer writing to stdout and stderr.
func NewPrinter() *Printer {
	return NewPrinterTo(os.Stdout, os.Stderr)
}

// NewPrinterTo creates a printer writing to the given streams.
func NewPrinterTo(out, errOut io.Writer) *Printer {
	return &Printer{out: out, errOut: errOut}
}

// Success prints a message in green
func (p *Printer) Success(msg string, args ...any) {
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(p.out, green("✓ "+msg)+"\n", args...)
}

// Info prints a message in cyan
func (p *Printer) Info(msg string, args ...any) {
	cyan := color.New(color.FgCyan).SprintFunc()
	fmt.Fprintf(p.out, cyan(msg)+"\n", args...)
}

// Warning prints a message in yellow
func (p *Printer) Warning(msg string, args ...any) {
	yellow := color.New(color.FgYellow).SprintFunc()
	fmt.Fprintf(p.out, yellow("⚠ "+msg)+"\n", args...)
}

// Error prints a message in red to the error stream
func (p *Printer) Error(msg string, err error, args ...any) {
	red := color.New(color.FgRed).SprintFunc()
	if err != nil {
		fmt.Fprintf(p.errOut, red("✗ "+msg+": %v")+"\n", append(args, err)...)
	} else {
		fmt.Fprintf(p.errOut, red("✗ "+msg)+"\n", args...)
	}
}

// DryRun prints a change that a real run would make
func (p *Printer) DryRun(action string, msg string, args ...any) {
	yellow := color.New(color.FgYellow).SprintFunc()
	fmt.Fprintf(p.out, yellow("[DRY-RUN] %s: "+msg)+"\n", append([]any{action}, args...)...)
}

// Plain prints without color, for output meant to be piped.
func (p *Printer) Plain(msg string, args ...any) {
	fmt.Fprintf(p.out, msg+"\n", args...)
}
