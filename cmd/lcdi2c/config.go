// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"

	"github.com/GermanBionicSystems/lcdi2c/glyph"
	"github.com/GermanBionicSystems/lcdi2c/hd44780"
)

// Config is the content of the YAML configuration file.
type Config struct {
	Bus     BusConfig        `yaml:"bus"`
	Display DisplayConfig    `yaml:"display"`
	Glyphs  map[int][]string `yaml:"glyphs"`
	MQTT    MQTTConfig       `yaml:"mqtt"`
	Log     LogConfig        `yaml:"log"`
}

type BusConfig struct {
	// Name is passed to i2creg.Open; empty selects the first bus.
	Name string `yaml:"name"`
	// Speed is a frequency like "400kHz". Empty leaves the bus default.
	Speed string `yaml:"speed"`
	// Sim replaces the bus with an emulated display.
	Sim bool `yaml:"sim"`
}

type DisplayConfig struct {
	Addr      uint16        `yaml:"addr"`
	Rows      int           `yaml:"rows"`
	Cols      int           `yaml:"cols"`
	Font      string        `yaml:"font"`
	Backlight bool          `yaml:"backlight"`
	Codepage  string        `yaml:"codepage"`
	Timeout   time.Duration `yaml:"timeout"`
}

type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Prefix   string `yaml:"prefix"`
	QoS      byte   `yaml:"qos"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func defaultConfig() *Config {
	return &Config{
		Display: DisplayConfig{
			Addr:      hd44780.DefaultOpts.Addr,
			Rows:      hd44780.DefaultOpts.Rows,
			Cols:      hd44780.DefaultOpts.Cols,
			Font:      hd44780.Dots5x8.String(),
			Backlight: hd44780.DefaultOpts.Backlight,
			Timeout:   hd44780.DefaultOpts.Timeout,
		},
		MQTT: MQTTConfig{
			Broker:   "tcp://localhost:1883",
			ClientID: "lcdi2c",
			Prefix:   "lcd",
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// LoadConfig reads path over the defaults, then applies the LCDI2C_BUS and
// LCDI2C_ADDR environment variables. An empty path only uses defaults and
// environment.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Annotate(err, "reading config")
		}
		if err = yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Annotatef(err, "parsing %s", path)
		}
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, errors.Trace(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("LCDI2C_BUS"); v != "" {
		cfg.Bus.Name = v
	}
	if v := os.Getenv("LCDI2C_ADDR"); v != "" {
		a, err := parseAddr(v)
		if err != nil {
			return errors.Annotate(err, "LCDI2C_ADDR")
		}
		cfg.Display.Addr = a
	}
	return nil
}

// parseAddr accepts decimal, 0x hex and 0o octal.
func parseAddr(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, errors.Errorf("invalid address %q", s)
	}
	if v > 0x7f {
		return 0, errors.Errorf("address %#x is not a 7-bit address", v)
	}
	return uint16(v), nil
}

// Validate checks what can be checked without hardware.
func (c *Config) Validate() error {
	if c.Display.Addr > 0x7f {
		return errors.Errorf("display.addr %#x is not a 7-bit address", c.Display.Addr)
	}
	if c.Display.Rows < 1 || c.Display.Rows > 4 {
		return errors.Errorf("display.rows must be 1 to 4, got %d", c.Display.Rows)
	}
	if c.Display.Cols < 1 || c.Display.Cols > 40 {
		return errors.Errorf("display.cols must be 1 to 40, got %d", c.Display.Cols)
	}
	if _, err := c.charSize(); err != nil {
		return err
	}
	if _, err := c.BusSpeed(); err != nil {
		return err
	}
	if c.MQTT.QoS > 2 {
		return errors.Errorf("mqtt.qos must be 0 to 2, got %d", c.MQTT.QoS)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return errors.Annotate(err, "log.level")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

func (c *Config) charSize() (hd44780.CharSize, error) {
	switch strings.ToLower(c.Display.Font) {
	case "", "5x8":
		return hd44780.Dots5x8, nil
	case "5x10":
		return hd44780.Dots5x10, nil
	}
	return 0, errors.Errorf("display.font must be 5x8 or 5x10, got %q", c.Display.Font)
}

// BusSpeed returns the configured bus frequency, 0 if none.
func (c *Config) BusSpeed() (physic.Frequency, error) {
	var f physic.Frequency
	if c.Bus.Speed == "" {
		return 0, nil
	}
	if err := f.Set(c.Bus.Speed); err != nil {
		return 0, errors.Annotate(err, "bus.speed")
	}
	return f, nil
}

// DriverOpts converts the display section to driver options.
func (c *Config) DriverOpts(log logrus.FieldLogger) (*hd44780.Opts, error) {
	cs, err := c.charSize()
	if err != nil {
		return nil, err
	}
	return &hd44780.Opts{
		Addr:      c.Display.Addr,
		Rows:      c.Display.Rows,
		Cols:      c.Display.Cols,
		CharSize:  cs,
		Backlight: c.Display.Backlight,
		Timeout:   c.Display.Timeout,
		Codepage:  c.Display.Codepage,
		Logger:    log,
	}, nil
}

// GlyphPatterns parses the glyphs section. Each slot holds either the name of
// a builtin glyph or ASCII art rows.
func (c *Config) GlyphPatterns(rows int) (map[int]glyph.Pattern, error) {
	out := make(map[int]glyph.Pattern, len(c.Glyphs))
	for slot, art := range c.Glyphs {
		if slot < 0 || slot > 7 {
			return nil, errors.Errorf("glyphs: slot %d out of 0..7", slot)
		}
		p, err := parseGlyph(art)
		if err != nil {
			return nil, errors.Annotatef(err, "glyphs: slot %d", slot)
		}
		out[slot] = p.Resize(rows)
	}
	return out, nil
}

func parseGlyph(args []string) (glyph.Pattern, error) {
	if len(args) == 1 {
		if p, ok := glyph.Lookup(args[0]); ok {
			return p, nil
		}
	}
	p, err := glyph.Parse(args...)
	if err != nil {
		return nil, errors.Annotatef(err, "not a builtin (%s) nor ASCII art", strings.Join(glyph.Names(), ", "))
	}
	return p, nil
}

// slots returns the configured slots in order.
func slots(m map[int]glyph.Pattern) []int {
	out := make([]int, 0, len(m))
	for s := range m {
		out = append(out, s)
	}
	sort.Ints(out)
	return out
}
