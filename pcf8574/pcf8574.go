// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package pcf8574 drives the output side of a TI/NXP PCF8574 I²C I/O
// expander, the chip found on most HD44780 LCD backpacks sold as LCD1602 or
// LCD2004.
//
// The PCF8574 has no registers. Every byte written to it becomes the state of
// its 8 pins, so a single I²C write of N bytes produces N successive pin
// states. Write exploits that to send a whole sequence of states in one
// transaction.
//
// # Datasheet
//
// https://www.ti.com/lit/ds/symlink/pcf8574.pdf
//
// A good description of the I2C LCD backpack usage can be found here:
//
// https://www.handsontec.com/dataspecs/I2C_2004_LCD.pdf
package pcf8574

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
)

const (
	// DefaultAddress is the address of a PCF8574 with A0..A2 pulled high,
	// which is how most LCD backpacks ship.
	DefaultAddress uint16 = 0x27
	// DefaultTimeout bounds a single transaction.
	DefaultTimeout = 100 * time.Millisecond
)

var (
	// ErrTimeout is returned when the bus did not complete a write within the
	// configured timeout.
	ErrTimeout = errors.New("pcf8574: transmit timed out")
	// ErrInvalidAddress is returned for addresses that don't fit in 7 bits.
	ErrInvalidAddress = errors.New("pcf8574: invalid 7-bit address")
)

// Dev is a PCF8574 used as an 8 bit output port.
type Dev struct {
	timeout time.Duration
	// pending is set while a timed transaction is on the bus.
	pending atomic.Bool

	mu    sync.Mutex
	d     *i2c.Dev
	value byte
}

// New returns a Dev for the expander at address on bus. A timeout of zero or
// less lets the bus decide how long a write may take.
func New(bus i2c.Bus, address uint16, timeout time.Duration) (*Dev, error) {
	if address > 0x7f {
		return nil, fmt.Errorf("%w: %#x", ErrInvalidAddress, address)
	}
	return &Dev{d: &i2c.Dev{Bus: bus, Addr: address}, timeout: timeout}, nil
}

// Write sends states to the expander in one I²C transaction, in order. The
// pins end up in the last state. states is not retained.
//
// A write that times out keeps running on the bus in the background. Until it
// returns, further writes fail right away with ErrTimeout instead of queuing
// behind it.
func (dev *Dev) Write(states ...byte) error {
	if len(states) == 0 {
		return nil
	}
	dev.mu.Lock()
	defer dev.mu.Unlock()
	w := make([]byte, len(states))
	copy(w, states)
	if err := dev.tx(w); err != nil {
		return err
	}
	dev.value = w[len(w)-1]
	return nil
}

// Out sets all 8 pins to value.
func (dev *Dev) Out(value byte) error {
	return dev.Write(value)
}

// Value returns the last pin state successfully written.
func (dev *Dev) Value() byte {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.value
}

// Addr returns the 7-bit I²C address of the expander.
func (dev *Dev) Addr() uint16 {
	return dev.d.Addr
}

// Halt implements conn.Resource. The expander has nothing to stop.
func (dev *Dev) Halt() error {
	return nil
}

func (dev *Dev) String() string {
	return fmt.Sprintf("PCF8574_%x", dev.d.Addr)
}

// tx performs the write, giving up after dev.timeout. On timeout the bus call
// is left to finish on its own; w must not be reused by the caller.
func (dev *Dev) tx(w []byte) error {
	if dev.timeout <= 0 {
		return wrap(dev.d.Tx(w, nil))
	}
	if dev.pending.Load() {
		return fmt.Errorf("%w: previous transaction still pending", ErrTimeout)
	}
	dev.pending.Store(true)
	done := make(chan error, 1)
	go func() {
		err := dev.d.Tx(w, nil)
		dev.pending.Store(false)
		done <- err
	}()
	t := time.NewTimer(dev.timeout)
	defer t.Stop()
	select {
	case err := <-done:
		return wrap(err)
	case <-t.C:
		return fmt.Errorf("%w after %s", ErrTimeout, dev.timeout)
	}
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("pcf8574: %w", err)
}

var _ conn.Resource = &Dev{}
