package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ParseLogLevel maps debug, info, warn and error to slog levels.
func ParseLogLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("config: invalid logLevel %q", s)
	}
	return l, nil
}

// NewLogger builds the process logger: a text handler on console and, when
// LogFile is set, the same records appended to that file. The returned close
// func releases the file.
func (c Config) NewLogger(console io.Writer) (*slog.Logger, func() error, error) {
	level, err := ParseLogLevel(c.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	out := console
	closeFn := func() error { return nil }

	if c.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(c.LogFile), 0o755); err != nil {
			return nil, nil, fmt.Errorf("config: log dir: %w", err)
		}
		f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("config: open log file: %w", err)
		}
		out = io.MultiWriter(console, f)
		closeFn = f.Close
	}

	h := slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	return slog.New(h), closeFn, nil
}
