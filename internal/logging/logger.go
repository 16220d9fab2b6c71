// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"io"
	"os"
	"sync"

	"github.com/pterm/pterm"
)

var (
	loggerMu sync.Mutex
	logger   *pterm.Logger
	verbose  = os.Getenv("GOEXEC_VERBOSE") == "1"
)

// Logger returns the process-wide structured logger. Debug records are only
// emitted when verbose mode is on.
func Logger() *pterm.Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if logger == nil {
		logger = newLogger(os.Stderr)
	}
	return logger
}

// SetVerbose toggles debug logging and rebuilds the shared logger.
func SetVerbose(v bool) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	verbose = v
	logger = newLogger(os.Stderr)
}

// Verbose reports whether debug logging is on.
func Verbose() bool {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	return verbose
}

// Discard returns a logger that drops everything; used by tests and library callers.
func Discard() *pterm.Logger {
	return pterm.DefaultLogger.WithWriter(io.Discard).WithLevel(pterm.LogLevelDisabled)
}

func newLogger(w io.Writer) *pterm.Logger {
	level := pterm.LogLevelWarn
	if verbose {
		level = pterm.LogLevelDebug
	}
	return pterm.DefaultLogger.WithWriter(w).WithLevel(level).WithTime(false)
}
