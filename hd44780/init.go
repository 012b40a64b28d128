// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

import (
	"strconv"
	"time"
)

// State is the progress of the power-on initialization.
type State byte

const (
	Unpowered State = iota
	PowerSettle
	Force8Bit1
	Force8Bit2
	Force8Bit3
	Set4Bit
	FunctionSet
	DisplayOn
	Cleared
	EntryModeSet
	// Homed is the terminal state; the display accepts text.
	Homed
)

var stateNames = [...]string{
	"Unpowered",
	"PowerSettle",
	"Force8Bit1",
	"Force8Bit2",
	"Force8Bit3",
	"Set4Bit",
	"FunctionSet",
	"DisplayOn",
	"Cleared",
	"EntryModeSet",
	"Homed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

const (
	delayPowerOn = 50 * time.Millisecond   // datasheet: >40ms after Vcc reaches 2.7V
	delayForce1  = 4500 * time.Microsecond // >4.1ms
	delayForce2  = 150 * time.Microsecond  // >100µs
)

// initStep is one transition of the power-on sequence: enter state, run send,
// then wait.
type initStep struct {
	state State
	send  func(dev *Dev) error
	wait  time.Duration
}

// The sequence of figure 24 of the datasheet. The three 8-bit function sets
// bring the controller to a known bus width whatever state it powered up in;
// the fourth switches it to 4-bit.
var initSequence = []initStep{
	{state: PowerSettle, wait: delayPowerOn},
	// RS and RW low before the first pulse.
	{state: PowerSettle, send: func(dev *Dev) error { return dev.expander(dev.backlightBit()) }},
	{state: Force8Bit1, send: func(dev *Dev) error { return dev.nibble(cmdFunctionSet | function8Bit) }, wait: delayForce1},
	{state: Force8Bit2, send: func(dev *Dev) error { return dev.nibble(cmdFunctionSet | function8Bit) }, wait: delayForce2},
	{state: Force8Bit3, send: func(dev *Dev) error { return dev.nibble(cmdFunctionSet | function8Bit) }},
	{state: Set4Bit, send: func(dev *Dev) error { return dev.nibble(cmdFunctionSet) }},
	{state: FunctionSet, send: func(dev *Dev) error { return dev.command(cmdFunctionSet | dev.function) }},
	{state: DisplayOn, send: func(dev *Dev) error {
		dev.control = controlDisplayOn
		return dev.command(cmdDisplayControl | dev.control)
	}},
	{state: Cleared, send: (*Dev).clear},
	{state: EntryModeSet, send: func(dev *Dev) error {
		dev.entry = entryLeft
		return dev.command(cmdEntryMode | dev.entry)
	}},
	{state: Homed, send: (*Dev).home},
}

// Reset runs the power-on initialization again. Display, cursor and entry
// mode go back to their defaults; the backlight keeps its state unless
// Opts.Backlight asks for it on.
//
// Every step is sent even if an earlier one failed. The first error is
// returned.
func (dev *Dev) Reset() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	dev.buf = dev.buf[:0]
	dev.state = Unpowered
	var first error
	for _, step := range initSequence {
		if dev.state != step.state {
			dev.state = step.state
			dev.log.Debugf("init: %s", step.state)
		}
		if step.send != nil {
			if err := step.send(dev); err != nil && first == nil {
				first = err
			}
		}
		if step.wait > 0 {
			dev.sleep(step.wait)
		}
	}
	if dev.opts.Backlight {
		dev.backlight = true
		if err := dev.expander(dev.backlightBit()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// State returns the initialization state, Homed once New or Reset returned.
func (dev *Dev) State() State {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.state
}
