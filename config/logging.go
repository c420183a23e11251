// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package config

import (
	"io"
	"os"

	"github.com/diffeo/agsadmin/ags"
	"github.com/sirupsen/logrus"
)

// TimestampFormat is the day-first time format of log lines.
const TimestampFormat = "02/01/2006 - 15:04:05"

// NewLogger builds the logger for a run.  Lines go to stderr and, if
// Logging.File is set, are appended to that file; the returned closer
// closes it.  If email is enabled, error entries are also mailed.
func (c Config) NewLogger(stderr io.Writer) (*logrus.Logger, io.Closer, error) {
	level, err := logrus.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, nil, err
	}

	var closer io.Closer = nopCloser{}
	out := stderr
	if c.Logging.File != "" {
		f, err := os.OpenFile(c.Logging.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, ags.ErrLocalIO{Path: c.Logging.File, Err: err}
		}
		out = io.MultiWriter(stderr, f)
		closer = f
	}

	logger := logrus.New()
	logger.Out = out
	logger.Formatter = &logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: TimestampFormat,
	}
	logger.Level = level
	if c.Email.Enabled {
		logger.AddHook(c.Email.Hook())
	}
	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
