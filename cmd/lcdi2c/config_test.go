// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"

	"github.com/GermanBionicSystems/lcdi2c/glyph"
	"github.com/GermanBionicSystems/lcdi2c/hd44780"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lcdi2c.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("LCDI2C_BUS", "")
	t.Setenv("LCDI2C_ADDR", "")
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, uint16(0x27), cfg.Display.Addr)
	assert.Equal(t, 2, cfg.Display.Rows)
	assert.Equal(t, 16, cfg.Display.Cols)
	assert.True(t, cfg.Display.Backlight)
	assert.Equal(t, 100*time.Millisecond, cfg.Display.Timeout)
	assert.Equal(t, "lcd", cfg.MQTT.Prefix)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("LCDI2C_BUS", "")
	t.Setenv("LCDI2C_ADDR", "")
	path := writeConfig(t, `
bus:
  name: "1"
  speed: 400kHz
display:
  addr: 0x3f
  rows: 4
  cols: 20
  font: 5x8
  backlight: false
  codepage: windows-1251
  timeout: 250ms
glyphs:
  0: [heart]
  3:
    - "#...#"
    - ".#.#."
    - "..#.."
mqtt:
  broker: tcp://broker:1883
  prefix: hall/lcd
  qos: 1
log:
  level: debug
  format: json
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "1", cfg.Bus.Name)
	assert.Equal(t, uint16(0x3f), cfg.Display.Addr)
	assert.Equal(t, 4, cfg.Display.Rows)
	assert.Equal(t, 20, cfg.Display.Cols)
	assert.False(t, cfg.Display.Backlight)
	assert.Equal(t, 250*time.Millisecond, cfg.Display.Timeout)
	assert.Equal(t, "hall/lcd", cfg.MQTT.Prefix)
	assert.Equal(t, byte(1), cfg.MQTT.QoS)
	// Not in the file, kept from the defaults.
	assert.Equal(t, "lcdi2c", cfg.MQTT.ClientID)

	f, err := cfg.BusSpeed()
	require.NoError(t, err)
	assert.Equal(t, 400*physic.KiloHertz, f)

	opts, err := cfg.DriverOpts(logrus.New())
	require.NoError(t, err)
	assert.Equal(t, "windows-1251", opts.Codepage)
	assert.Equal(t, hd44780.Dots5x8, opts.CharSize)

	glyphs, err := cfg.GlyphPatterns(glyph.Rows5x8)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 3}, slots(glyphs))
	assert.Equal(t, glyph.Heart, glyphs[0])
	assert.Equal(t, glyph.Pattern{0x11, 0x0a, 0x04, 0, 0, 0, 0, 0}, glyphs[3])
}

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("LCDI2C_BUS", "/dev/i2c-3")
	t.Setenv("LCDI2C_ADDR", "0x20")
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "/dev/i2c-3", cfg.Bus.Name)
	assert.Equal(t, uint16(0x20), cfg.Display.Addr)

	t.Setenv("LCDI2C_ADDR", "0x80")
	_, err = LoadConfig("")
	assert.Error(t, err)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Setenv("LCDI2C_BUS", "")
	t.Setenv("LCDI2C_ADDR", "")
	tests := []struct {
		name    string
		content string
	}{
		{"yaml", "display: [\n"},
		{"rows", "display:\n  rows: 5\n"},
		{"cols", "display:\n  cols: 41\n"},
		{"font", "display:\n  font: 8x8\n"},
		{"speed", "bus:\n  speed: fast\n"},
		{"qos", "mqtt:\n  qos: 3\n"},
		{"level", "log:\n  level: loud\n"},
		{"format", "log:\n  format: xml\n"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, test.content))
			assert.Error(t, err)
		})
	}
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestGlyphPatternsErrors(t *testing.T) {
	cfg := defaultConfig()
	cfg.Glyphs = map[int][]string{8: {"heart"}}
	_, err := cfg.GlyphPatterns(glyph.Rows5x8)
	assert.Error(t, err)
	cfg.Glyphs = map[int][]string{0: {"nope"}}
	_, err = cfg.GlyphPatterns(glyph.Rows5x8)
	assert.Error(t, err)
}

func TestParseAddr(t *testing.T) {
	for s, expected := range map[string]uint16{"0x27": 0x27, "39": 39, "0o47": 0o47} {
		a, err := parseAddr(s)
		require.NoError(t, err, s)
		assert.Equal(t, expected, a, s)
	}
	for _, s := range []string{"", "x", "0x80", "-1"} {
		_, err := parseAddr(s)
		assert.Error(t, err, s)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := newLogger(LogConfig{Level: "warn", Format: "json"}, &buf, false, true)
	require.NoError(t, err)
	l.Info("hidden")
	l.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.NotContains(t, buf.String(), `"time"`)

	l, err = newLogger(LogConfig{Level: "warn", Format: "text"}, &buf, true, false)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())

	_, err = newLogger(LogConfig{Level: "loud"}, &buf, false, false)
	assert.Error(t, err)
}
