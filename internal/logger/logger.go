// Package logger builds the logrus logger used by the commands.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Options configure a logger.
type Options struct {
	Level  string // logrus level name, default "info"
	Format string // "text" (default) or "json"
	Output string // "stderr" (default), "stdout" or a file path

	// MaxAge is the number of days to keep rotated log files.
	// With zero the file is appended to without rotation.
	MaxAge int
}

// New returns a logger configured by opts and the closer of its output.
// Close it when the logger is no longer used.
func New(opts Options) (*logrus.Logger, io.Closer, error) {
	l := logrus.New()

	level := strings.ToLower(opts.Level)
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q", opts.Level)
	}
	l.SetLevel(lvl)

	switch strings.ToLower(opts.Format) {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	default:
		return nil, nil, fmt.Errorf("invalid log format %q", opts.Format)
	}

	out, err := output(opts.Output, opts.MaxAge)
	if err != nil {
		return nil, nil, err
	}
	l.SetOutput(out)
	return l, out, nil
}

// nopCloser keeps the standard streams open.
type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

func output(name string, maxAge int) (io.WriteCloser, error) {
	switch name {
	case "", "stderr":
		return nopCloser{os.Stderr}, nil
	case "stdout":
		return nopCloser{os.Stdout}, nil
	}
	if maxAge > 0 {
		return &lumberjack.Logger{
			Filename: name,
			MaxAge:   maxAge,
			MaxSize:  100,
			Compress: true,
		}, nil
	}
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", name, err)
	}
	return f, nil
}
