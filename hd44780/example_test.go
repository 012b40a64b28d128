// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780_test

import (
	"errors"
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/display/displaytest"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/GermanBionicSystems/lcdi2c/hd44780"
)

func Example() {
	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}

	// Open default I²C bus.
	bus, err := i2creg.Open("")
	if err != nil {
		log.Fatalf("failed to open I²C: %v", err)
	}
	defer bus.Close()

	opts := hd44780.DefaultOpts
	opts.Rows, opts.Cols = 4, 20
	lcd, err := hd44780.New(bus, &opts)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(lcd)

	_, _ = lcd.WriteString("Hello")
	_ = lcd.SetCursor(0, 1)
	_, _ = lcd.WriteString("World")
	time.Sleep(5 * time.Second)

	for _, e := range displaytest.TestTextDisplay(lcd, true) {
		if !errors.Is(e, display.ErrNotImplemented) {
			log.Println(e)
		}
	}
	_ = lcd.Halt()
}

// Custom characters live in slots 0 to 7 and are printed by writing the slot
// number.
func ExampleDev_DefineGlyph() {
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}
	bus, err := i2creg.Open("")
	if err != nil {
		log.Fatal(err)
	}
	defer bus.Close()
	lcd, err := hd44780.New(bus, nil)
	if err != nil {
		log.Fatal(err)
	}
	heart := []byte{0x00, 0x0a, 0x1f, 0x1f, 0x0e, 0x04, 0x00, 0x00}
	if err = lcd.DefineGlyph(0, heart); err != nil {
		log.Fatal(err)
	}
	_ = lcd.Home()
	_, _ = lcd.Write([]byte{'I', ' ', 0, ' ', 'G', 'o'})
}
