// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// lcdi2c drives an HD44780 character LCD on a PCF8574 I²C backpack.
//
// Usage:
//
//	lcdi2c [flags] init
//	lcdi2c [flags] print [-row N] [-col N] text...
//	lcdi2c [flags] clear
//	lcdi2c [flags] backlight on|off
//	lcdi2c [flags] glyph slot name|row...
//	lcdi2c [flags] demo
//	lcdi2c [flags] mqtt
//
// With -sim, the display is emulated and drawn on the terminal, or saved with
// -png.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/juju/errors"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/GermanBionicSystems/lcdi2c/glyph"
	"github.com/GermanBionicSystems/lcdi2c/hd44780"
	"github.com/GermanBionicSystems/lcdi2c/lcdsim"
)

// app is one invocation of the command.
type app struct {
	cfg    *Config
	log    *logrus.Logger
	stdout io.Writer
	png    string
	sleep  func(time.Duration)

	bus i2c.BusCloser
	sim *lcdsim.Bus
	dev *hd44780.Dev
}

func (a *app) open() error {
	if a.cfg.Bus.Sim {
		a.sim = lcdsim.New(a.cfg.Display.Addr, a.cfg.Display.Rows, a.cfg.Display.Cols)
		a.bus = a.sim
	} else {
		if _, err := host.Init(); err != nil {
			return errors.Annotate(err, "host")
		}
		bus, err := i2creg.Open(a.cfg.Bus.Name)
		if err != nil {
			return errors.Annotatef(err, "opening I²C bus %q", a.cfg.Bus.Name)
		}
		a.bus = bus
	}
	if f, err := a.cfg.BusSpeed(); err != nil {
		return err
	} else if f != 0 {
		if err = a.bus.SetSpeed(f); err != nil {
			return errors.Annotatef(err, "setting %s to %s", a.bus, f)
		}
	}

	opts, err := a.cfg.DriverOpts(a.log)
	if err != nil {
		return err
	}
	if a.sim != nil {
		opts.Sleep = func(time.Duration) {}
	}
	if a.dev, err = hd44780.New(a.bus, opts); err != nil {
		return errors.Annotatef(err, "display at %#x", opts.Addr)
	}
	a.log.Debugf("opened %s", a.dev)

	glyphs, err := a.cfg.GlyphPatterns(rowsFor(a.dev.CharSize()))
	if err != nil {
		return err
	}
	for _, slot := range slots(glyphs) {
		if err = a.dev.DefineGlyph(slot, glyphs[slot]); err != nil {
			return errors.Annotatef(err, "glyph %d", slot)
		}
	}
	if len(glyphs) != 0 {
		return errors.Trace(a.dev.Home())
	}
	return nil
}

func (a *app) close() error {
	if a.bus == nil {
		return nil
	}
	return a.bus.Close()
}

// show draws the emulated panel, if any.
func (a *app) show() error {
	if a.sim == nil {
		return nil
	}
	if a.png != "" {
		return errors.Trace(a.sim.SavePNG(a.png, 4))
	}
	if f, ok := a.stdout.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		t := lcdsim.NewTerminal(a.sim, nil, nil)
		if err := t.Refresh(); err != nil {
			return err
		}
		return t.Halt()
	}
	return a.sim.Fprint(a.stdout)
}

func rowsFor(cs hd44780.CharSize) int {
	if cs == hd44780.Dots5x10 {
		return glyph.Rows5x10
	}
	return glyph.Rows5x8
}

func (a *app) cmdPrint(args []string) error {
	fs := flag.NewFlagSet("print", flag.ContinueOnError)
	row := fs.Int("row", 0, "first row")
	col := fs.Int("col", 0, "first column")
	if err := fs.Parse(args); err != nil {
		return err
	}
	text := strings.Join(fs.Args(), " ")
	// Shell friendly line breaks.
	text = strings.ReplaceAll(text, `\n`, "\n")
	for i, line := range strings.Split(text, "\n") {
		c := 0
		if i == 0 {
			c = *col
		}
		if err := a.dev.SetCursor(c, *row+i); err != nil {
			return errors.Trace(err)
		}
		if _, err := a.dev.WriteString(line); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

func (a *app) cmdBacklight(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: backlight on|off")
	}
	on, err := parseSwitch(args[0])
	if err != nil {
		return err
	}
	return errors.Trace(a.dev.SetBacklight(on))
}

func (a *app) cmdGlyph(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: glyph slot name|row...")
	}
	slot, err := parseSlot(args[0])
	if err != nil {
		return err
	}
	p, err := parseGlyph(args[1:])
	if err != nil {
		return err
	}
	if err = a.dev.DefineGlyph(slot, p.Resize(rowsFor(a.dev.CharSize()))); err != nil {
		return errors.Trace(err)
	}
	if err = a.dev.Home(); err != nil {
		return errors.Trace(err)
	}
	_, err = a.dev.Write([]byte{byte(slot)})
	return errors.Trace(err)
}

func parseSlot(s string) (int, error) {
	var slot int
	if _, err := fmt.Sscanf(s, "%d", &slot); err != nil || slot < 0 || slot > 7 {
		return 0, errors.Errorf("slot must be 0 to 7, got %q", s)
	}
	return slot, nil
}

// cmdDemo walks through what the display can do.
func (a *app) cmdDemo() error {
	d := a.dev
	step := func(name string, f func() error) error {
		a.log.Infof("demo: %s", name)
		if err := f(); err != nil {
			return errors.Annotate(err, name)
		}
		a.sleep(time.Second)
		return nil
	}
	steps := []struct {
		name string
		f    func() error
	}{
		{"text", func() error {
			if _, err := d.WriteString("Hello, world!"); err != nil {
				return err
			}
			if err := d.SetCursor(0, 1); err != nil {
				return err
			}
			_, err := d.WriteString(d.String())
			return err
		}},
		{"glyphs", func() error {
			for i, name := range glyph.Names() {
				if i > 7 {
					break
				}
				p, _ := glyph.Lookup(name)
				if err := d.DefineGlyph(i, p.Resize(rowsFor(d.CharSize()))); err != nil {
					return err
				}
			}
			if err := d.Clear(); err != nil {
				return err
			}
			_, err := d.Write([]byte{0, 1, 2, 3, 4, 5, 6, 7})
			return err
		}},
		{"cursor", func() error {
			if err := d.ShowCursor(true); err != nil {
				return err
			}
			return d.Blink(true)
		}},
		{"scroll", func() error {
			if err := d.Blink(false); err != nil {
				return err
			}
			if err := d.ShowCursor(false); err != nil {
				return err
			}
			for i := 0; i < 4; i++ {
				if err := d.ScrollRight(); err != nil {
					return err
				}
			}
			return d.Home()
		}},
		{"backlight", func() error {
			if err := d.SetBacklight(false); err != nil {
				return err
			}
			a.sleep(500 * time.Millisecond)
			return d.SetBacklight(true)
		}},
	}
	for _, s := range steps {
		if err := step(s.name, s.f); err != nil {
			return err
		}
		if err := a.show(); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) cmdMQTT() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	s := &sink{
		prefix: a.cfg.MQTT.Prefix,
		log:    a.log.WithField("broker", a.cfg.MQTT.Broker),
		dev:    a.dev,
	}
	if a.sim != nil {
		s.refresh = a.show
	}
	return runMQTT(ctx, a.cfg.MQTT, s)
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("lcdi2c", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML configuration file")
	busName := fs.String("bus", "", "I²C bus to use")
	addr := fs.String("addr", "", "7-bit address of the backpack, e.g. 0x27")
	rows := fs.Int("rows", 0, "number of rows")
	cols := fs.Int("cols", 0, "number of columns")
	sim := fs.Bool("sim", false, "emulate the display instead of using hardware")
	png := fs.String("png", "", "with -sim, save the panel to this PNG file")
	verbose := fs.Bool("v", false, "verbose logging")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: lcdi2c [flags] init|print|clear|backlight|glyph|demo|mqtt [args]\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		return err
	}
	if *busName != "" {
		cfg.Bus.Name = *busName
	}
	if *addr != "" {
		if cfg.Display.Addr, err = parseAddr(*addr); err != nil {
			return err
		}
	}
	if *rows != 0 {
		cfg.Display.Rows = *rows
	}
	if *cols != 0 {
		cfg.Display.Cols = *cols
	}
	if *sim {
		cfg.Bus.Sim = true
	}
	if err = cfg.Validate(); err != nil {
		return err
	}
	l, err := newLogger(cfg.Log, stderr, *verbose, false)
	if err != nil {
		return err
	}
	if sdnotify(l, "STATUS=starting") {
		// Under systemd the journal stamps the time.
		if l, err = newLogger(cfg.Log, stderr, *verbose, true); err != nil {
			return err
		}
	}

	a := &app{cfg: cfg, log: l, stdout: stdout, png: *png, sleep: time.Sleep}
	if cfg.Bus.Sim {
		a.sleep = func(time.Duration) {}
	}
	if err = a.open(); err != nil {
		_ = a.close()
		return err
	}
	defer a.close()

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "init":
	case "print":
		err = a.cmdPrint(rest)
	case "clear":
		err = errors.Trace(a.dev.Clear())
	case "backlight":
		err = a.cmdBacklight(rest)
	case "glyph":
		err = a.cmdGlyph(rest)
	case "demo":
		return a.cmdDemo()
	case "mqtt":
		return a.cmdMQTT()
	default:
		return errors.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		return err
	}
	return a.show()
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if err != flag.ErrHelp {
			fmt.Fprintf(os.Stderr, "lcdi2c: %s\n", errors.ErrorStack(err))
		}
		os.Exit(1)
	}
}
