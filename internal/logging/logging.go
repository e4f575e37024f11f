// Package logging provides a small leveled logger writing to stderr so
// diagnostic output never mixes with report output on stdout.
package logging

import (
	"log"
	"os"
)

// Level controls which messages are emitted.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

var (
	level  = LevelInfo
	logger = log.New(os.Stderr, "", log.LstdFlags)
)

// SetLevel sets the global log level.
func SetLevel(l Level) {
	level = l
}

// SetVerbose enables debug logging; false restores the info default.
func SetVerbose(verbose bool) {
	if verbose {
		SetLevel(LevelDebug)
	} else {
		SetLevel(LevelInfo)
	}
}

// SetQuiet suppresses everything below error.
func SetQuiet(quiet bool) {
	if quiet {
		SetLevel(LevelError)
	}
}

// Error logs an error message.
func Error(format string, args ...interface{}) {
	if level >= LevelError {
		logger.Printf("[ERROR] "+format, args...)
	}
}

// Warn logs a warning message.
func Warn(format string, args ...interface{}) {
	if level >= LevelWarn {
		logger.Printf("[WARN] "+format, args...)
	}
}

// Info logs an informational message.
func Info(format string, args ...interface{}) {
	if level >= LevelInfo {
		logger.Printf("[INFO] "+format, args...)
	}
}

// Debug logs a debug message, visible only with verbose enabled.
func Debug(format string, args ...interface{}) {
	if level >= LevelDebug {
		logger.Printf("[DEBUG] "+format, args...)
	}
}
