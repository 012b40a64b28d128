// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

import (
	"fmt"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
)

// Cursor sets the cursor mode. You can pass multiple arguments.
// Cursor(CursorUnderline, CursorBlink)
func (dev *Dev) Cursor(modes ...display.CursorMode) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	val := dev.control &^ (controlCursorOn | controlBlinkOn)
	for _, mode := range modes {
		switch mode {
		case display.CursorOff:
			val &^= controlCursorOn | controlBlinkOn
		case display.CursorUnderline:
			val |= controlCursorOn
		case display.CursorBlock, display.CursorBlink:
			val |= controlBlinkOn
		default:
			return fmt.Errorf("%s: unexpected cursor: %d: %w", packageName, mode, display.ErrInvalidCommand)
		}
	}
	dev.control = val
	return dev.command(cmdDisplayControl | dev.control)
}

// Move moves the cursor forward or backward. Up and Down are not supported.
func (dev *Dev) Move(dir display.CursorDirection) error {
	val := cmdShift
	switch dir {
	case display.Backward:
	case display.Forward:
		val |= shiftRight
	default:
		return ErrNotImplemented
	}
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.command(val)
}

// MoveTo moves the cursor to row, col, counted from MinRow() and MinCol().
// Unlike SetCursor, positions outside the display are an error.
func (dev *Dev) MoveTo(row, col int) error {
	if row < dev.MinRow() || row >= dev.rows || col < dev.MinCol() || col >= dev.cols {
		return fmt.Errorf("%w: MoveTo(%d,%d)", ErrOutOfRange, row, col)
	}
	return dev.SetCursor(col, row)
}

// MinRow returns the first row number.
func (dev *Dev) MinRow() int {
	return 0
}

// MinCol returns the first column number.
func (dev *Dev) MinCol() int {
	return 0
}

var _ display.TextDisplay = &Dev{}
var _ display.DisplayBacklight = &Dev{}
var _ conn.Resource = &Dev{}
