// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

// Backpack pin masks.
const (
	pinRS        byte = 0x01
	pinRW        byte = 0x02
	pinEnable    byte = 0x04
	pinBacklight byte = 0x08
)

type writeMode byte

const (
	modeCommand writeMode = 0
	modeData    writeMode = writeMode(pinRS)

	// Expander states needed to pulse one byte in as two nibbles.
	statesPerByte = 6
)

func (dev *Dev) backlightBit() byte {
	if dev.backlight {
		return pinBacklight
	}
	return 0
}

// encodeNibble queues one enable pulse with the upper 4 bits of nibble on
// D4..D7. The controller latches the data lines when E falls.
func (dev *Dev) encodeNibble(nibble byte) {
	v := nibble | dev.backlightBit()
	dev.buf = append(dev.buf, v, v|pinEnable, v)
}

// encodeByte queues b as two nibbles, high first. The backlight bit is
// sampled now, so a byte always carries the backlight state of the moment it
// was encoded.
func (dev *Dev) encodeByte(b byte, mode writeMode) {
	dev.encodeNibble(b&0xf0 | byte(mode))
	dev.encodeNibble((b<<4)&0xf0 | byte(mode))
}

// flush sends the queued states in one write and empties the buffer, whether
// or not the write succeeded. Failed writes are not retried.
func (dev *Dev) flush() error {
	if len(dev.buf) == 0 {
		return nil
	}
	n := len(dev.buf)
	err := dev.port.Write(dev.buf...)
	dev.buf = dev.buf[:0]
	dev.sleep(delayFlush)
	if err != nil {
		dev.log.WithField("states", n).Warnf("write failed: %v", err)
		return wrap(err)
	}
	return nil
}

// command sends one instruction byte.
func (dev *Dev) command(cmd byte) error {
	dev.encodeByte(cmd, modeCommand)
	err := dev.flush()
	dev.sleep(delayCommand)
	return err
}

// data sends p as character or CGRAM bytes. p goes out in as few writes as
// the buffer allows. It stops at the first failed write and returns how many
// bytes of p were sent before it.
func (dev *Dev) data(p []byte) (int, error) {
	sent := 0
	for i, b := range p {
		if len(dev.buf)+statesPerByte > cap(dev.buf) {
			if err := dev.flush(); err != nil {
				return sent, err
			}
			sent = i
		}
		dev.encodeByte(b, modeData)
	}
	if err := dev.flush(); err != nil {
		return sent, err
	}
	return len(p), nil
}

// nibble sends a single enable pulse. Only valid while the controller may
// still be in 8-bit mode, during initialization.
func (dev *Dev) nibble(n byte) error {
	dev.encodeNibble(n)
	return dev.flush()
}

// expander sets the backpack pins directly, with E low.
func (dev *Dev) expander(v byte) error {
	dev.buf = append(dev.buf, v)
	return dev.flush()
}
