package core

import (
	"github.com/fatih/color"
)

const (
	ColorAlways = "always"
	ColorAuto   = "auto"
	ColorNever  = "never"
)

var ColorBoldGreen = []color.Attribute{color.FgGreen, color.Bold}

// ColorPrinter decides whether output gets colorized.
type ColorPrinter struct {
	// Mode is one of always, auto or never.
	Mode string
	// IsTerminal is consulted in auto mode.
	IsTerminal bool
}

func (c ColorPrinter) ShouldColor() bool {
	switch c.Mode {
	case ColorNever:
		return false
	case ColorAlways:
		return true
	default:
		return c.IsTerminal
	}
}

// Sprint formats s with attrs if coloring is enabled.
func (c ColorPrinter) Sprint(attrs []color.Attribute, s string) string {
	if !c.ShouldColor() {
		return s
	}

	// Decided above, ignore the library's own terminal detection.
	printer := color.New(attrs...)
	printer.EnableColor()
	return printer.Sprint(s)
}
