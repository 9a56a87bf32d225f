// ABOUTME: Log output setup
// ABOUTME: Routes the standard logger to a rotating file and optionally stdout
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where logs go
type Options struct {
	File       string
	MaxSizeMB  int
	MaxBackups int
	// Stdout also writes to stdout; disabled while the TUI owns the terminal
	Stdout bool
}

// Setup points the standard logger at a rotating file and returns a closer for it
func Setup(opts Options) (io.Closer, error) {
	if opts.File == "" {
		if opts.Stdout {
			log.SetOutput(os.Stdout)
		} else {
			log.SetOutput(io.Discard)
		}
		return nopCloser{}, nil
	}

	if dir := filepath.Dir(opts.File); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	logFile := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB, // megabytes
		MaxBackups: opts.MaxBackups,
		MaxAge:     7,     // days
		Compress:   false, // plain text for debugging
	}

	if opts.Stdout {
		log.SetOutput(io.MultiWriter(os.Stdout, logFile))
	} else {
		log.SetOutput(logFile)
	}
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	return logFile, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
