// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package hd44780 controls Hitachi HD44780 character LCDs connected through a
// PCF8574 I²C backpack.
//
// The controller runs in 4-bit mode. Every command or character byte is
// sent as two nibbles, each framed by an enable pulse, so one byte costs six
// expander states. Operations build those states in a transmit buffer and
// send them to the expander as a single I²C write.
//
// The backpack pins are wired as follows:
//
//	P0 RS   P1 RW   P2 E   P3 backlight   P4..P7 D4..D7
//
// RW is always held low. The driver never reads from the controller, so all
// timing is done with fixed delays taken from the datasheet.
//
// # Datasheet
//
// https://www.sparkfun.com/datasheets/LCD/HD44780.pdf
//
// # Product Information
//
// https://www.handsontec.com/dataspecs/I2C_2004_LCD.pdf
package hd44780

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/paulrosania/go-charset/charset"
	_ "github.com/paulrosania/go-charset/data"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/i2c"

	"github.com/GermanBionicSystems/lcdi2c/pcf8574"
)

// CharSize selects the font of the controller.
type CharSize byte

const (
	// Dots5x8 is the font used by almost every module.
	Dots5x8 CharSize = iota
	// Dots5x10 is only honoured by single line modules.
	Dots5x10
)

func (c CharSize) String() string {
	if c == Dots5x10 {
		return "5x10"
	}
	return "5x8"
}

const (
	packageName = "hd44780"

	// DefaultAddress is the usual address of a PCF8574 backpack.
	DefaultAddress = pcf8574.DefaultAddress
	// BufferSize is the capacity of the transmit buffer. Longer writes are
	// split at byte boundaries.
	BufferSize = 500

	maxCols = 40
)

// Controller commands.
const (
	cmdClear          byte = 0x01
	cmdHome           byte = 0x02
	cmdEntryMode      byte = 0x04
	cmdDisplayControl byte = 0x08
	cmdShift          byte = 0x10
	cmdFunctionSet    byte = 0x20
	cmdSetCGRAMAddr   byte = 0x40
	cmdSetDDRAMAddr   byte = 0x80
)

// Command flags.
const (
	entryLeft           byte = 0x02
	entryShiftIncrement byte = 0x01

	controlDisplayOn byte = 0x04
	controlCursorOn  byte = 0x02
	controlBlinkOn   byte = 0x01

	shiftDisplay byte = 0x08
	shiftRight   byte = 0x04

	function8Bit  byte = 0x10
	function2Line byte = 0x08
	function5x10  byte = 0x04
)

// Datasheet timings. Sleep resolution is platform dependent, these are
// minimums.
const (
	delayFlush   = 40 * time.Microsecond
	delayCommand = 40 * time.Microsecond
	delayClear   = 3 * time.Millisecond
)

var (
	ErrInvalidGeometry = errors.New("hd44780: invalid geometry")
	ErrInvalidGlyph    = errors.New("hd44780: invalid glyph")
	ErrOutOfRange      = errors.New("hd44780: position out of range")
	ErrNotImplemented  = fmt.Errorf("%s: %w", packageName, display.ErrNotImplemented)

	// DDRAM address of the first column of each row.
	rowOffsets = [...]byte{0x00, 0x40, 0x14, 0x54}
)

// Opts holds the configuration of a display.
type Opts struct {
	// Addr is the 7-bit I²C address of the backpack.
	Addr uint16
	// Rows and Cols describe the visible grid. Rows is 1 to 4.
	Rows int
	Cols int
	// CharSize selects the font. Dots5x10 only applies when Rows is 1, but
	// custom glyphs are always sized from it.
	CharSize CharSize
	// Backlight turns the backlight on once initialization is done.
	Backlight bool
	// Timeout bounds each I²C write.
	Timeout time.Duration
	// Codepage, when set, is the character set WriteString translates UTF-8
	// text to, e.g. "windows-1251" for modules with a cyrillic ROM.
	Codepage string
	// Sleep is the delay primitive. Defaults to time.Sleep.
	Sleep func(time.Duration)
	// Logger receives init progress at debug level and failed writes at warn
	// level. Nil discards.
	Logger logrus.FieldLogger
}

// DefaultOpts is a 16x2 module at 0x27 with the backlight on.
var DefaultOpts = Opts{
	Addr:      DefaultAddress,
	Rows:      2,
	Cols:      16,
	CharSize:  Dots5x8,
	Backlight: true,
	Timeout:   pcf8574.DefaultTimeout,
}

// Dev is an HD44780 display behind a PCF8574 backpack.
//
// Implements display.TextDisplay and display.DisplayBacklight. All methods
// are safe for concurrent use.
type Dev struct {
	port     *pcf8574.Dev
	rows     int
	cols     int
	charSize CharSize
	opts     Opts
	sleep    func(time.Duration)
	log      logrus.FieldLogger
	tr       charset.Translator

	mu        sync.Mutex
	backlight bool
	function  byte
	control   byte
	entry     byte
	state     State
	buf       []byte
}

func wrap(err error) error {
	if err == nil || strings.HasPrefix(err.Error(), packageName) {
		return err
	}
	return fmt.Errorf("%s: %w", packageName, err)
}

// New runs the power-on initialization of the display at opts.Addr on bus and
// returns it. Nil opts uses DefaultOpts; zero fields take their value from
// DefaultOpts.
//
// The controller gives no feedback, so a missing or broken display is not
// detected. A transport error doesn't stop the sequence: every step is sent
// and the first error is returned together with a usable Dev.
func New(bus i2c.Bus, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	o := *opts
	if o.Addr == 0 {
		o.Addr = DefaultOpts.Addr
	}
	if o.Rows == 0 {
		o.Rows = DefaultOpts.Rows
	}
	if o.Cols == 0 {
		o.Cols = DefaultOpts.Cols
	}
	if o.Timeout == 0 {
		o.Timeout = DefaultOpts.Timeout
	}
	if o.Sleep == nil {
		o.Sleep = time.Sleep
	}
	if o.Rows < 1 || o.Rows > len(rowOffsets) || o.Cols < 1 || o.Cols > maxCols {
		return nil, fmt.Errorf("%w: %d rows, %d cols", ErrInvalidGeometry, o.Rows, o.Cols)
	}
	port, err := pcf8574.New(bus, o.Addr, o.Timeout)
	if err != nil {
		return nil, wrap(err)
	}
	dev := &Dev{
		port:     port,
		rows:     o.Rows,
		cols:     o.Cols,
		charSize: o.CharSize,
		opts:     o,
		sleep:    o.Sleep,
		log:      o.Logger,
		buf:      make([]byte, 0, BufferSize),
	}
	if dev.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		dev.log = l
	}
	dev.log = dev.log.WithField("display", port.String())
	if o.Codepage != "" {
		if dev.tr, err = charset.TranslatorTo(o.Codepage); err != nil {
			return nil, wrap(err)
		}
	}

	// Function set flags never change after this point.
	if dev.rows > 1 {
		dev.function |= function2Line
	}
	if dev.charSize == Dots5x10 && dev.rows == 1 {
		dev.function |= function5x10
	}
	return dev, dev.Reset()
}

// Clear blanks the display and moves the cursor to the first position.
func (dev *Dev) Clear() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.clear()
}

// Home moves the cursor to the first position and undoes any scrolling.
func (dev *Dev) Home() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.home()
}

// SetCursor moves the cursor to col, row, counted from 0. A row past the last
// one selects the last row.
func (dev *Dev) SetCursor(col, row int) error {
	if col < 0 || col >= 0x80 || row < 0 {
		return fmt.Errorf("%w: col %d, row %d", ErrOutOfRange, col, row)
	}
	if row >= dev.rows {
		row = dev.rows - 1
	}
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.command(cmdSetDDRAMAddr | (byte(col) + rowOffsets[row]))
}

// Display turns the display on or off. DDRAM and the backlight are kept.
func (dev *Dev) Display(on bool) error {
	return dev.setControl(controlDisplayOn, on)
}

// ShowCursor shows or hides the underline cursor.
func (dev *Dev) ShowCursor(on bool) error {
	return dev.setControl(controlCursorOn, on)
}

// Blink turns the blinking block cursor on or off.
func (dev *Dev) Blink(on bool) error {
	return dev.setControl(controlBlinkOn, on)
}

// ScrollLeft shifts the whole display one position to the left without
// changing DDRAM.
func (dev *Dev) ScrollLeft() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.command(cmdShift | shiftDisplay)
}

// ScrollRight shifts the whole display one position to the right without
// changing DDRAM.
func (dev *Dev) ScrollRight() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.command(cmdShift | shiftDisplay | shiftRight)
}

// LeftToRight makes text flow to the right of the cursor.
func (dev *Dev) LeftToRight() error {
	return dev.setEntry(entryLeft, true)
}

// RightToLeft makes text flow to the left of the cursor.
func (dev *Dev) RightToLeft() error {
	return dev.setEntry(entryLeft, false)
}

// AutoScroll shifts the display on each character written, so text appears
// to be justified against the cursor.
func (dev *Dev) AutoScroll(enabled bool) error {
	return dev.setEntry(entryShiftIncrement, enabled)
}

// SetBacklight turns the backlight on or off. The state is kept in every
// byte sent afterwards.
func (dev *Dev) SetBacklight(on bool) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	dev.backlight = on
	return dev.expander(dev.backlightBit())
}

// Backlight implements display.DisplayBacklight. The backpack can only switch
// the backlight, so any non-zero intensity turns it on.
func (dev *Dev) Backlight(intensity display.Intensity) error {
	return dev.SetBacklight(intensity > 0)
}

// BacklightOn returns the current backlight state.
func (dev *Dev) BacklightOn() bool {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.backlight
}

// DefineGlyph stores a custom character in CGRAM slot 0 to 7. It is then
// printed by writing the byte slot. pattern holds one byte per dot row, the 5
// low bits being the dots; 8 rows are used with Dots5x8 and 10 with
// Dots5x10.
//
// Slots are 8 rows apart in CGRAM whatever the font, so a Dots5x10 glyph
// spills its last 2 rows into the next slot. With Dots5x10 use even slots
// only, which gives the 4 codes the controller offers in that mode.
//
// This leaves the address counter in CGRAM, so call SetCursor or Home before
// writing text again.
func (dev *Dev) DefineGlyph(slot int, pattern []byte) error {
	rows := dev.glyphRows()
	if slot < 0 || slot > 7 {
		return fmt.Errorf("%w: slot %d", ErrInvalidGlyph, slot)
	}
	if len(pattern) < rows {
		return fmt.Errorf("%w: %d rows, need %d", ErrInvalidGlyph, len(pattern), rows)
	}
	dev.mu.Lock()
	defer dev.mu.Unlock()
	err := dev.command(cmdSetCGRAMAddr | byte(slot)<<3)
	if _, err2 := dev.data(pattern[:rows]); err == nil {
		err = err2
	}
	return err
}

// Write sends p as character codes, at the cursor. No translation happens.
func (dev *Dev) Write(p []byte) (int, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.data(p)
}

// WriteString writes text at the cursor. When a codepage is configured the
// text is translated to it first.
func (dev *Dev) WriteString(text string) (int, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	p, err := dev.encode(text)
	if err != nil {
		return 0, err
	}
	return dev.data(p)
}

// Encode returns the character codes WriteString would send for text. One
// code takes one display cell, so len of the result is the width of text on
// the display.
func (dev *Dev) Encode(text string) ([]byte, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	p, err := dev.encode(text)
	if err != nil {
		return nil, err
	}
	// The translator reuses its output buffer.
	return append([]byte(nil), p...), nil
}

func (dev *Dev) encode(text string) ([]byte, error) {
	p := []byte(text)
	if dev.tr == nil {
		return p, nil
	}
	_, out, err := dev.tr.Translate(p, true)
	if err != nil {
		return nil, wrap(err)
	}
	return out, nil
}

// WriteAt writes a single character at DDRAM address addr. The cursor is left
// after it.
func (dev *Dev) WriteAt(addr, ch byte) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	err := dev.command(cmdSetDDRAMAddr | addr)
	if _, err2 := dev.data([]byte{ch}); err == nil {
		err = err2
	}
	return err
}

// Rows returns the number of rows of the display.
func (dev *Dev) Rows() int {
	return dev.rows
}

// Cols returns the number of columns of the display.
func (dev *Dev) Cols() int {
	return dev.cols
}

// CharSize returns the configured font.
func (dev *Dev) CharSize() CharSize {
	return dev.charSize
}

func (dev *Dev) String() string {
	return fmt.Sprintf("HD44780::%s - Rows: %d, Cols: %d", dev.port, dev.rows, dev.cols)
}

// Halt clears the display, turns it off and turns the backlight off.
func (dev *Dev) Halt() error {
	err := dev.Clear()
	if err2 := dev.Display(false); err == nil {
		err = err2
	}
	if err2 := dev.SetBacklight(false); err == nil {
		err = err2
	}
	return err
}

func (dev *Dev) clear() error {
	err := dev.command(cmdClear)
	dev.sleep(delayClear)
	return err
}

func (dev *Dev) home() error {
	err := dev.command(cmdHome)
	dev.sleep(delayClear)
	return err
}

func (dev *Dev) setControl(flag byte, on bool) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if on {
		dev.control |= flag
	} else {
		dev.control &^= flag
	}
	return dev.command(cmdDisplayControl | dev.control)
}

func (dev *Dev) setEntry(flag byte, on bool) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if on {
		dev.entry |= flag
	} else {
		dev.entry &^= flag
	}
	return dev.command(cmdEntryMode | dev.entry)
}

func (dev *Dev) glyphRows() int {
	if dev.charSize == Dots5x10 {
		return 10
	}
	return 8
}
