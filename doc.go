// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package lcdi2c is a container for the HD44780 over PCF8574 LCD driver and
// its tools.
//
// The driver is in hd44780, on top of the expander port in pcf8574. glyph
// builds custom characters and lcdsim emulates a display on an i2c.Bus. The
// lcdi2c command in cmd/lcdi2c drives a display from the shell or from MQTT.
package lcdi2c
