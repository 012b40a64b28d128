// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-systemd/daemon"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/juju/errors"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/display"
)

const (
	mqttConnectTimeout = 10 * time.Second
	mqttKeepAlive      = 60 * time.Second
	mqttQuiesce        = 250 // ms
)

// textDisplay is the part of hd44780.Dev the sink drives.
type textDisplay interface {
	Clear() error
	SetCursor(col, row int) error
	Write(p []byte) (int, error)
	Encode(text string) ([]byte, error)
	SetBacklight(on bool) error
	Cursor(modes ...display.CursorMode) error
	Rows() int
	Cols() int
}

// sink applies MQTT messages to a display. Messages may arrive on several
// paho goroutines at once, each one is applied whole.
type sink struct {
	prefix  string
	log     logrus.FieldLogger
	refresh func() error

	mu  sync.Mutex
	dev textDisplay
}

// handle applies one message. Topics relative to the prefix:
//
//	text       replace the whole screen, rows separated by \n
//	line/N     replace row N
//	backlight  on|off|1|0|true|false
//	clear      any payload
//	cursor     off|underline|blink|block
func (s *sink) handle(topic string, payload []byte) error {
	rel := strings.TrimPrefix(topic, s.prefix+"/")
	if rel == topic {
		return errors.Errorf("topic %q outside %s/", topic, s.prefix)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	switch {
	case rel == "text":
		err = s.text(string(payload))
	case strings.HasPrefix(rel, "line/"):
		row, perr := strconv.Atoi(strings.TrimPrefix(rel, "line/"))
		if perr != nil || row < 0 || row >= s.dev.Rows() {
			return errors.Errorf("bad row in %q", topic)
		}
		err = s.line(row, string(payload))
	case rel == "backlight":
		on, perr := parseSwitch(string(payload))
		if perr != nil {
			return perr
		}
		err = s.dev.SetBacklight(on)
	case rel == "clear":
		err = s.dev.Clear()
	case rel == "cursor":
		mode, perr := parseCursor(string(payload))
		if perr != nil {
			return perr
		}
		err = s.dev.Cursor(mode)
	case rel == "status":
		// Our own online/offline messages.
		return nil
	default:
		return errors.Errorf("unknown topic %q", topic)
	}
	if err != nil {
		return errors.Annotate(err, rel)
	}
	if s.refresh != nil {
		return s.refresh()
	}
	return nil
}

func (s *sink) text(text string) error {
	lines := strings.Split(text, "\n")
	for row := 0; row < s.dev.Rows(); row++ {
		l := ""
		if row < len(lines) {
			l = lines[row]
		}
		if err := s.line(row, l); err != nil {
			return err
		}
	}
	return nil
}

// line overwrites a whole row, padding with spaces, so no stale characters
// are left without the flicker of a clear.
// Fitting happens on the encoded codes, one per cell, since a multi-byte
// rune left as UTF-8 takes several cells.
func (s *sink) line(row int, text string) error {
	p, err := s.dev.Encode(strings.TrimRight(text, "\r"))
	if err != nil {
		return err
	}
	if err = s.dev.SetCursor(0, row); err != nil {
		return err
	}
	_, err = s.dev.Write(fit(p, s.dev.Cols()))
	return err
}

// fit cuts or pads p with spaces to n codes.
func fit(p []byte, n int) []byte {
	if len(p) >= n {
		return p[:n]
	}
	return append(p, bytes.Repeat([]byte{' '}, n-len(p))...)
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "1", "true":
		return true, nil
	case "off", "0", "false":
		return false, nil
	}
	return false, errors.Errorf("expected on or off, got %q", s)
}

func parseCursor(s string) (display.CursorMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "":
		return display.CursorOff, nil
	case "underline":
		return display.CursorUnderline, nil
	case "blink":
		return display.CursorBlink, nil
	case "block":
		return display.CursorBlock, nil
	}
	return 0, errors.Errorf("unknown cursor mode %q", s)
}

func (s *sink) messageHandler() mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				s.log.WithField("topic", msg.Topic()).Errorf("handler panic: %v", r)
			}
		}()
		if err := s.handle(msg.Topic(), msg.Payload()); err != nil {
			s.log.WithField("topic", msg.Topic()).Warn(err)
			return
		}
		s.log.WithField("topic", msg.Topic()).Debug("applied")
	}
}

func clientOptions(cfg MQTTConfig) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(mqttConnectTimeout)
	opts.SetKeepAlive(mqttKeepAlive)
	opts.SetWill(cfg.Prefix+"/status", "offline", 1, true)
	return opts
}

// runMQTT subscribes to the display topics until ctx is done.
func runMQTT(ctx context.Context, cfg MQTTConfig, s *sink) error {
	opts := clientOptions(cfg)
	// Subscriptions are not kept by a clean session, so redo them on every
	// connection.
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		s.log.Infof("connected to %s", cfg.Broker)
		c.Subscribe(cfg.Prefix+"/#", cfg.QoS, s.messageHandler())
		c.Publish(cfg.Prefix+"/status", 1, true, "online")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.log.Warnf("connection lost: %v", err)
	})
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return errors.Errorf("connecting to %s: timeout after %s", cfg.Broker, mqttConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return errors.Annotatef(err, "connecting to %s", cfg.Broker)
	}
	sdnotify(s.log, daemon.SdNotifyReady)

	<-ctx.Done()
	sdnotify(s.log, daemon.SdNotifyStopping)
	client.Publish(cfg.Prefix+"/status", 1, true, "offline").WaitTimeout(time.Second)
	client.Disconnect(mqttQuiesce)
	return nil
}

// sdnotify reports state to systemd and tells whether it is listening.
func sdnotify(log logrus.FieldLogger, state string) bool {
	ok, err := daemon.SdNotify(false, state)
	if err != nil {
		log.Warnf("sdnotify: %v", err)
	}
	return ok
}
