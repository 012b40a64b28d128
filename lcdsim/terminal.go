// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdsim

import (
	"bytes"
	"image/color"
	"io"
	"strconv"
	"strings"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
)

// Panel colours of a common yellow-green module.
var (
	colorLit   = color.NRGBA{0x9c, 0xc4, 0x20, 0xff}
	colorUnlit = color.NRGBA{0x30, 0x38, 0x10, 0xff}
)

// Terminal draws the emulated panel on a terminal with ANSI colours. The
// bezel shows the backlight state.
type Terminal struct {
	bus     *Bus
	w       io.Writer
	palette ansi256.Palette

	buf bytes.Buffer
}

// NewTerminal returns a Terminal for bus writing to w. A nil w writes to
// stdout, through go-colorable so it works on Windows consoles too.
func NewTerminal(bus *Bus, w io.Writer, palette *ansi256.Palette) *Terminal {
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	if palette == nil {
		palette = ansi256.Default
	}
	return &Terminal{bus: bus, w: w, palette: *palette}
}

// Refresh redraws the panel. The cursor is moved back up afterwards, so
// successive calls overwrite the previous frame.
func (t *Terminal) Refresh() error {
	t.bus.mu.Lock()
	lines := t.bus.lines()
	lit := t.bus.port&pinBacklight != 0
	t.bus.mu.Unlock()

	bezel := colorUnlit
	if lit {
		bezel = colorLit
	}
	edge := strings.Repeat(t.palette.Block(bezel), t.bus.cols+2)

	t.buf.Reset()
	_, _ = t.buf.WriteString("\r\033[0m")
	_, _ = t.buf.WriteString(edge)
	_, _ = t.buf.WriteString("\033[0m\n")
	for _, l := range lines {
		_, _ = t.buf.WriteString(t.palette.Block(bezel))
		_, _ = t.buf.WriteString("\033[0m")
		_, _ = t.buf.WriteString(printable(l, t.bus.cols))
		_, _ = t.buf.WriteString(t.palette.Block(bezel))
		_, _ = t.buf.WriteString("\033[0m\n")
	}
	_, _ = t.buf.WriteString(edge)
	_, _ = t.buf.WriteString("\033[0m\n")
	// Back to the top for the next frame.
	_, _ = t.buf.WriteString("\033[" + strconv.Itoa(len(lines)+2) + "A")
	_, err := t.buf.WriteTo(t.w)
	return err
}

// Halt leaves the last frame on screen and resets the attributes.
func (t *Terminal) Halt() error {
	_, err := io.WriteString(t.w, "\033["+strconv.Itoa(t.bus.rows+2)+"B\n\033[0m")
	return err
}

// Fprint writes the visible rows to w as plain text inside an ASCII frame.
func (b *Bus) Fprint(w io.Writer) error {
	b.mu.Lock()
	lines := b.lines()
	b.mu.Unlock()
	var buf bytes.Buffer
	edge := "+" + strings.Repeat("-", b.cols) + "+\n"
	buf.WriteString(edge)
	for _, l := range lines {
		buf.WriteString("|" + printable(l, b.cols) + "|\n")
	}
	buf.WriteString(edge)
	_, err := buf.WriteTo(w)
	return err
}

// printable pads l to cols and replaces what a terminal can't show. CGRAM
// codes become a block.
func printable(l string, cols int) string {
	var sb strings.Builder
	for i := 0; i < cols; i++ {
		var c byte = ' '
		if i < len(l) {
			c = l[i]
		}
		switch {
		case c < 0x10:
			sb.WriteRune('█')
		case c < 0x20 || c > 0x7e:
			sb.WriteRune('·')
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}
