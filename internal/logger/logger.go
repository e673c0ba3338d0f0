// Package logger builds the process logger: logrus with a text or JSON
// formatter, writing to stdout, a rotated file, or both.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	Output string // stdout, file or both
	Path   string // directory for the log file
	Name   string // file name without extension
}

// New returns a configured logger. Unknown levels fall back to info.
func New(opts Options) (*logrus.Logger, error) {
	log := logrus.New()

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if opts.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05.000",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000",
		})
	}

	var writers []io.Writer
	if opts.Output == "" || opts.Output == "stdout" || opts.Output == "both" {
		writers = append(writers, os.Stdout)
	}
	if opts.Output == "file" || opts.Output == "both" {
		if err := os.MkdirAll(opts.Path, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create logs directory: %w", err)
		}
		name := opts.Name
		if name == "" {
			name = "app"
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   filepath.Join(opts.Path, name+".log"),
			MaxSize:    100, // MB
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		})
	}
	if len(writers) == 0 {
		return nil, fmt.Errorf("unknown log output %q", opts.Output)
	}
	log.SetOutput(io.MultiWriter(writers...))

	return log, nil
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
