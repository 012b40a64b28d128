// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GermanBionicSystems/lcdi2c/hd44780"
	"github.com/GermanBionicSystems/lcdi2c/lcdsim"
)

func newSink(t *testing.T) (*sink, *lcdsim.Bus) {
	t.Helper()
	return newSinkSize(t, 2, 8, "")
}

func newSinkSize(t *testing.T, rows, cols int, codepage string) (*sink, *lcdsim.Bus) {
	t.Helper()
	bus := lcdsim.New(hd44780.DefaultAddress, rows, cols)
	dev, err := hd44780.New(bus, &hd44780.Opts{Rows: rows, Cols: cols, Codepage: codepage, Sleep: func(time.Duration) {}})
	require.NoError(t, err)
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &sink{prefix: "lcd", log: l, dev: dev}, bus
}

func TestSinkText(t *testing.T) {
	s, bus := newSink(t)
	require.NoError(t, s.handle("lcd/text", []byte("hello\nworld, too long")))
	assert.Equal(t, []string{"hello   ", "world, t"}, bus.Lines())
	require.NoError(t, s.handle("lcd/text", []byte("one")))
	assert.Equal(t, []string{"one     ", "        "}, bus.Lines())
}

func TestSinkLine(t *testing.T) {
	s, bus := newSink(t)
	require.NoError(t, s.handle("lcd/line/1", []byte("bottom")))
	require.NoError(t, s.handle("lcd/line/0", []byte("top\r")))
	assert.Equal(t, []string{"top     ", "bottom  "}, bus.Lines())
	assert.Error(t, s.handle("lcd/line/2", []byte("x")))
	assert.Error(t, s.handle("lcd/line/x", []byte("x")))
}

func TestSinkBacklight(t *testing.T) {
	s, bus := newSink(t)
	require.NoError(t, s.handle("lcd/backlight", []byte("on")))
	assert.True(t, bus.Backlight())
	require.NoError(t, s.handle("lcd/backlight", []byte("0")))
	assert.False(t, bus.Backlight())
	assert.Error(t, s.handle("lcd/backlight", []byte("dim")))
}

func TestSinkClearAndCursor(t *testing.T) {
	s, bus := newSink(t)
	require.NoError(t, s.handle("lcd/text", []byte("junk")))
	require.NoError(t, s.handle("lcd/clear", nil))
	assert.Equal(t, []string{strings.Repeat(" ", 8), strings.Repeat(" ", 8)}, bus.Lines())

	require.NoError(t, s.handle("lcd/cursor", []byte("underline")))
	assert.True(t, bus.Flags().CursorOn)
	require.NoError(t, s.handle("lcd/cursor", []byte("blink")))
	assert.False(t, bus.Flags().CursorOn)
	assert.True(t, bus.Flags().BlinkOn)
	require.NoError(t, s.handle("lcd/cursor", []byte("off")))
	assert.False(t, bus.Flags().BlinkOn)
	assert.Error(t, s.handle("lcd/cursor", []byte("sparkle")))
}

func TestSinkTopics(t *testing.T) {
	s, _ := newSink(t)
	assert.NoError(t, s.handle("lcd/status", []byte("online")))
	assert.Error(t, s.handle("lcd/unknown", nil))
	assert.Error(t, s.handle("other/text", []byte("x")))
}

func TestSinkRefresh(t *testing.T) {
	s, _ := newSink(t)
	calls := 0
	s.refresh = func() error {
		calls++
		return nil
	}
	require.NoError(t, s.handle("lcd/clear", nil))
	assert.Error(t, s.handle("lcd/backlight", []byte("?")))
	assert.Equal(t, 1, calls)
}

// Concurrent messages must each land whole on their row.
func TestSinkConcurrent(t *testing.T) {
	s, bus := newSink(t)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			row := "0"
			text := "aaaaaaaa"
			if i%2 == 1 {
				row, text = "1", "bbbbbbbb"
			}
			assert.NoError(t, s.handle("lcd/line/"+row, []byte(text)))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, []string{"aaaaaaaa", "bbbbbbbb"}, bus.Lines())
}

// On a 20x4 module row 0 runs straight into row 2, so a line wider than the
// display in cells would spill onto another row.
func TestSinkLineMultiByte(t *testing.T) {
	s, bus := newSinkSize(t, 4, 20, "")
	require.NoError(t, s.handle("lcd/line/2", []byte("row two")))
	require.NoError(t, s.handle("lcd/line/0", []byte("é"+strings.Repeat("a", 19))))
	lines := bus.Lines()
	assert.Equal(t, "row two"+strings.Repeat(" ", 13), lines[2])
	assert.Equal(t, "é"+strings.Repeat("a", 18), lines[0])
	assert.Equal(t, byte('r'), bus.DDRAM()[0x14])

	require.NoError(t, s.handle("lcd/line/0", []byte("Temp 21°C")))
	assert.Equal(t, "row two"+strings.Repeat(" ", 13), bus.Lines()[2])
}

func TestSinkLineCodepage(t *testing.T) {
	s, bus := newSinkSize(t, 2, 4, "windows-1251")
	require.NoError(t, s.handle("lcd/line/0", []byte("ЖЖЖЖЖ")))
	require.NoError(t, s.handle("lcd/line/1", []byte("Жa")))
	assert.Equal(t, []string{"\xc6\xc6\xc6\xc6", "\xc6a  "}, bus.Lines())
}

func TestFit(t *testing.T) {
	assert.Equal(t, []byte("ab  "), fit([]byte("ab"), 4))
	assert.Equal(t, []byte("abcd"), fit([]byte("abcdef"), 4))
	// Cells, not runes.
	assert.Equal(t, []byte{0xd0, 0x96, 0xd0}, fit([]byte("ЖЖ"), 3))
}

func TestClientOptions(t *testing.T) {
	opts := clientOptions(MQTTConfig{Broker: "tcp://b:1883", ClientID: "id", Username: "u", Password: "p", Prefix: "x"})
	require.Len(t, opts.Servers, 1)
	assert.Equal(t, "b:1883", opts.Servers[0].Host)
	assert.Equal(t, "id", opts.ClientID)
	assert.Equal(t, "u", opts.Username)
	assert.True(t, opts.WillEnabled)
	assert.Equal(t, "x/status", opts.WillTopic)
	assert.True(t, opts.WillRetained)
}
