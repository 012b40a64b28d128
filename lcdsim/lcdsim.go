// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package lcdsim emulates an HD44780 character LCD on a PCF8574 backpack as
// an i2c.Bus.
//
// Every byte written to the emulated expander becomes its pin state. A
// falling edge on E latches D4..D7 into the controller model, which then
// executes instructions and stores characters the way the real chip does.
// The result can be inspected with Lines and the other accessors, printed to a
// terminal or rendered as an image.
//
// Useful to run the driver without hardware, and as an oracle in tests.
package lcdsim

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// Backpack pins.
const (
	pinRS        byte = 0x01
	pinRW        byte = 0x02
	pinEnable    byte = 0x04
	pinBacklight byte = 0x08
)

// ErrNoAck is returned for transactions to any other address than the
// emulated expander.
var ErrNoAck = errors.New("lcdsim: no device at address")

var rowOffsets = [...]byte{0x00, 0x40, 0x14, 0x54}

// Bus is an I²C bus with a single PCF8574 + HD44780 on it.
type Bus struct {
	addr uint16
	rows int
	cols int

	mu     sync.Mutex
	port   byte
	c      controller
	frames int
	speed  physic.Frequency
	err    error
}

// New returns a bus with a rows x cols display at addr. Like a real PCF8574
// the port powers up with all pins high.
func New(addr uint16, rows, cols int) *Bus {
	if rows < 1 {
		rows = 1
	}
	if rows > len(rowOffsets) {
		rows = len(rowOffsets)
	}
	if cols < 1 {
		cols = 1
	}
	return &Bus{addr: addr, rows: rows, cols: cols, port: 0xff, c: newController()}
}

func (b *Bus) String() string {
	return fmt.Sprintf("lcdsim(%#x %dx%d)", b.addr, b.cols, b.rows)
}

// Tx implements i2c.Bus. w is played as successive port states; r, if any,
// is filled with the current port state.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	if addr != b.addr {
		return fmt.Errorf("%w %#x", ErrNoAck, addr)
	}
	for _, v := range w {
		b.set(v)
	}
	for i := range r {
		r[i] = b.port
	}
	if len(w) != 0 {
		b.frames++
	}
	return nil
}

// SetSpeed implements i2c.Bus.
func (b *Bus) SetSpeed(f physic.Frequency) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.speed = f
	return nil
}

// Close implements i2c.BusCloser. It does nothing.
func (b *Bus) Close() error {
	return nil
}

// SetError makes every following transaction fail with err. Nil restores
// normal operation.
func (b *Bus) SetError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.err = err
}

func (b *Bus) set(v byte) {
	if b.port&pinEnable != 0 && v&pinEnable == 0 && b.port&pinRW == 0 {
		b.c.pulse(b.port&pinRS != 0, b.port)
	}
	b.port = v
}

// Lines returns the characters visible on each row, taking display shift
// into account. Characters are the raw codes; 0 to 15 refer to CGRAM. Rows are
// empty while the display is off.
func (b *Bus) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lines()
}

func (b *Bus) lines() []string {
	out := make([]string, b.rows)
	if !b.c.displayOn {
		return out
	}
	for row := range out {
		line := make([]byte, b.cols)
		for col := range line {
			line[col] = b.c.ddram[b.c.visible(rowOffsets[row], col)]
		}
		out[row] = string(line)
	}
	return out
}

// DDRAM returns a copy of the display data RAM, ignoring shift and the
// on/off state.
func (b *Bus) DDRAM() [0x80]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.c.ddram
}

// Glyph returns the rows stored for CGRAM slot 0 to 7.
func (b *Bus) Glyph(slot, rows int) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	start := (slot & 7) * 8
	end := start + rows
	if end > len(b.c.cgram) {
		end = len(b.c.cgram)
	}
	return append([]byte(nil), b.c.cgram[start:end]...)
}

// Address returns the address counter and whether it points in CGRAM.
func (b *Bus) Address() (byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.c.addr, b.c.cg
}

// Shift returns how many positions the display was shifted to the left.
func (b *Bus) Shift() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.c.displayShift
}

// Backlight returns the state of the backlight pin.
func (b *Bus) Backlight() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.port&pinBacklight != 0
}

// Port returns the last expander state written.
func (b *Bus) Port() byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.port
}

// Frames returns the number of write transactions received.
func (b *Bus) Frames() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frames
}

// Speed returns the last speed set with SetSpeed.
func (b *Bus) Speed() physic.Frequency {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.speed
}

// Flags is a snapshot of the controller mode bits.
type Flags struct {
	FourBit   bool
	TwoLine   bool
	Font5x10  bool
	DisplayOn bool
	CursorOn  bool
	BlinkOn   bool
	Increment bool
	AutoShift bool
}

// Flags returns the current mode bits.
func (b *Bus) Flags() Flags {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Flags{
		FourBit:   b.c.fourBit,
		TwoLine:   b.c.twoLine,
		Font5x10:  b.c.font5x10,
		DisplayOn: b.c.displayOn,
		CursorOn:  b.c.cursorOn,
		BlinkOn:   b.c.blinkOn,
		Increment: b.c.increment,
		AutoShift: b.c.shift,
	}
}

var _ i2c.BusCloser = &Bus{}
