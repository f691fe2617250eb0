/*
Copyright 2019 Alexander Eldeib.
*/

package message

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

var (
	infoColor    = color.New(color.FgCyan)
	successColor = color.New(color.FgGreen)
	warningColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	sectionColor = color.New(color.FgHiMagenta, color.Bold)
)

// Printer writes operator-facing messages. Structured logs go to the logger instead.
type Printer struct {
	mu      sync.Mutex
	out     io.Writer
	noColor bool
	quiet   bool
}

type Option func(*Printer)

// NoColor disables escape sequences, e.g. when output is redirected.
func NoColor(noColor bool) Option {
	return func(p *Printer) {
		p.noColor = noColor
	}
}

// Quiet suppresses everything but warnings and errors.
func Quiet(quiet bool) Option {
	return func(p *Printer) {
		p.quiet = quiet
	}
}

func New(out io.Writer, opts ...Option) *Printer {
	p := &Printer{out: out}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Printer) printf(c *color.Color, prefix, format string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	msg := fmt.Sprintf(format, args...)
	if p.noColor {
		fmt.Fprintf(p.out, "%s%s\n", prefix, msg)
		return
	}
	c.Fprintf(p.out, "%s%s\n", prefix, msg)
}

func (p *Printer) Info(format string, args ...interface{}) {
	if p.quiet {
		return
	}
	p.printf(infoColor, "[*] ", format, args...)
}

func (p *Printer) Success(format string, args ...interface{}) {
	if p.quiet {
		return
	}
	p.printf(successColor, "[+] ", format, args...)
}

// Done reports the outcome of a run. Unlike Success it is printed in quiet mode too.
func (p *Printer) Done(format string, args ...interface{}) {
	p.printf(successColor, "[+] ", format, args...)
}

func (p *Printer) Warning(format string, args ...interface{}) {
	p.printf(warningColor, "[!] ", format, args...)
}

func (p *Printer) Error(format string, args ...interface{}) {
	p.printf(errorColor, "[-] ", format, args...)
}

// Section prints a header separating the phases of a run.
func (p *Printer) Section(format string, args ...interface{}) {
	if p.quiet {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	msg := fmt.Sprintf(format, args...)
	if p.noColor {
		fmt.Fprintf(p.out, "\n-=[%s]=-\n\n", msg)
		return
	}
	sectionColor.Fprintf(p.out, "\n-=[%s]=-\n\n", msg)
}

// Emphasize renders s in bold, for names inside a message.
func (p *Printer) Emphasize(s string) string {
	if p.noColor {
		return s
	}
	return color.New(color.Bold).Sprint(s)
}
