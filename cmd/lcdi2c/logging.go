// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"io"

	"github.com/juju/errors"
	"github.com/sirupsen/logrus"
)

// newLogger builds the process logger. verbose forces debug level. Under
// systemd the journal adds timestamps, so they are left out.
func newLogger(cfg LogConfig, w io.Writer, verbose, journal bool) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, errors.Annotate(err, "log.level")
	}
	if verbose {
		level = logrus.DebugLevel
	}
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(level)
	switch cfg.Format {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{DisableTimestamp: journal})
	default:
		l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: journal, FullTimestamp: !journal})
	}
	return l, nil
}
