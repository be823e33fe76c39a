// Package logging builds the structured JSON logger shared by every component.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Level string
	// File enables a rotating log file next to stdout.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// NewLogger returns a JSON logger tagged with the service name.
func NewLogger(service string, opts Options) *logrus.Entry {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	log.SetOutput(output(opts))

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil || opts.Level == "" {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	return log.WithField("service", service)
}

func output(opts Options) io.Writer {
	if opts.File == "" {
		return os.Stdout
	}
	rotating := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    orDefault(opts.MaxSizeMB, 50),
		MaxBackups: orDefault(opts.MaxBackups, 5),
		MaxAge:     orDefault(opts.MaxAgeDays, 14),
		Compress:   true,
	}
	return io.MultiWriter(os.Stdout, rotating)
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// Discard is a logger for tests.
func Discard() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}
