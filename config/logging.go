// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Logger builds the logger described by c. Output goes to LogFile when set,
// otherwise to fallback. The returned close function releases the log file.
func (c Config) Logger(fallback io.Writer) (zerolog.Logger, func() error, error) {
	level := zerolog.InfoLevel
	if c.LogLevel != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.LogLevel)
		}
		level = l
	}

	out, closeFn := fallback, func() error { return nil }
	if c.LogFile != "" {
		f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("config: open log file: %w", err)
		}
		out, closeFn = f, f.Close
	}
	if out == nil {
		out = io.Discard
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger(), closeFn, nil
}
