// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdsim

// controller models the write side of an HD44780: instruction decoding,
// DDRAM, CGRAM and the address counter. Busy time is not modelled.
type controller struct {
	fourBit bool
	pending bool
	high    byte

	ddram [0x80]byte
	cgram [0x40]byte
	addr  byte
	cg    bool

	increment bool
	shift     bool

	displayOn bool
	cursorOn  bool
	blinkOn   bool

	twoLine  bool
	font5x10 bool

	displayShift int
}

func newController() controller {
	// Power-on reset state, datasheet page 23.
	c := controller{increment: true}
	for i := range c.ddram {
		c.ddram[i] = ' '
	}
	return c
}

// pulse handles a falling edge of E with rs and the data lines D4..D7 in
// the upper nibble of d. In 8-bit mode D0..D3 are not connected on a backpack
// and read as zero.
func (c *controller) pulse(rs bool, d byte) {
	d &= 0xf0
	if !c.fourBit {
		c.exec(rs, d)
		return
	}
	if !c.pending {
		c.high = d
		c.pending = true
		return
	}
	c.pending = false
	c.exec(rs, c.high|d>>4)
}

func (c *controller) exec(rs bool, b byte) {
	if rs {
		c.write(b)
		return
	}
	switch {
	case b&0x80 != 0:
		c.cg = false
		c.addr = b & 0x7f
	case b&0x40 != 0:
		c.cg = true
		c.addr = b & 0x3f
	case b&0x20 != 0:
		c.fourBit = b&0x10 == 0
		c.pending = false
		c.twoLine = b&0x08 != 0
		c.font5x10 = b&0x04 != 0
	case b&0x10 != 0:
		right := b&0x04 != 0
		if b&0x08 != 0 {
			if right {
				c.displayShift--
			} else {
				c.displayShift++
			}
		} else {
			c.step(right)
		}
	case b&0x08 != 0:
		c.displayOn = b&0x04 != 0
		c.cursorOn = b&0x02 != 0
		c.blinkOn = b&0x01 != 0
	case b&0x04 != 0:
		c.increment = b&0x02 != 0
		c.shift = b&0x01 != 0
	case b&0x02 != 0:
		c.cg = false
		c.addr = 0
		c.displayShift = 0
	case b&0x01 != 0:
		for i := range c.ddram {
			c.ddram[i] = ' '
		}
		c.cg = false
		c.addr = 0
		c.increment = true
		c.displayShift = 0
	}
}

func (c *controller) write(b byte) {
	if c.cg {
		c.cgram[c.addr&0x3f] = b
	} else {
		c.ddram[c.addr&0x7f] = b
		if c.shift {
			if c.increment {
				c.displayShift++
			} else {
				c.displayShift--
			}
		}
	}
	c.step(c.increment)
}

// step moves the address counter by one, wrapping the way the controller
// does: CGRAM over 64 bytes, DDRAM over one 80 character line or two 40
// character lines at 0x00 and 0x40.
func (c *controller) step(forward bool) {
	if c.cg {
		if forward {
			c.addr = (c.addr + 1) & 0x3f
		} else {
			c.addr = (c.addr - 1) & 0x3f
		}
		return
	}
	if !c.twoLine {
		c.addr = byte(wrap(int(c.addr)+delta(forward), 80))
		return
	}
	base := c.addr & 0x40
	pos := wrap(int(c.addr&0x3f)+delta(forward), 40)
	switch {
	case forward && pos == 0:
		base ^= 0x40
	case !forward && pos == 39:
		base ^= 0x40
	}
	c.addr = base | byte(pos)
}

// visible returns the DDRAM address shown at col of a line starting at
// DDRAM address start.
func (c *controller) visible(start byte, col int) byte {
	if !c.twoLine {
		return byte(wrap(int(start)+col+c.displayShift, 80))
	}
	base := start & 0x40
	return base | byte(wrap(int(start&0x3f)+col+c.displayShift, 40))
}

func delta(forward bool) int {
	if forward {
		return 1
	}
	return -1
}

func wrap(v, n int) int {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}
