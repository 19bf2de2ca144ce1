//
// Copyright (C) 2025 membridge authors.
//
// membridge is licensed under the Apache License Version 2.0.
//

// Package log provides the logging utilities used across membridge.
package log

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log level names accepted by SetLevel.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Logger is the logging interface membridge writes to. Hosts may swap
// Default for their own implementation.
type Logger interface {
	Debug(args ...any)
	Debugf(format string, args ...any)
	Info(args ...any)
	Infof(format string, args ...any)
	Warn(args ...any)
	Warnf(format string, args ...any)
	Error(args ...any)
	Errorf(format string, args ...any)
}

var level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

// Default is the logger used by the package-level functions. It is a
// sugared zap logger writing to stdout; replace it with anything that
// implements Logger.
var Default Logger = zap.New(
	zapcore.NewCore(
		zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "lvl",
			MessageKey:     "msg",
			CallerKey:      "caller",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalLevelEncoder,
			EncodeTime:     zapcore.RFC3339TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		}),
		zapcore.AddSync(os.Stdout),
		level,
	),
	zap.AddCaller(),
	zap.AddCallerSkip(1),
).Sugar()

// SetLevel adjusts the level of the default logger. Unrecognized names
// fall back to info.
func SetLevel(name string) {
	switch name {
	case LevelDebug:
		level.SetLevel(zapcore.DebugLevel)
	case LevelInfo:
		level.SetLevel(zapcore.InfoLevel)
	case LevelWarn:
		level.SetLevel(zapcore.WarnLevel)
	case LevelError:
		level.SetLevel(zapcore.ErrorLevel)
	default:
		level.SetLevel(zapcore.InfoLevel)
	}
}

// Debug logs at DEBUG level in the manner of fmt.Print.
func Debug(args ...any) { Default.Debug(args...) }

// Debugf logs at DEBUG level in the manner of fmt.Printf.
func Debugf(format string, args ...any) { Default.Debugf(format, args...) }

// Info logs at INFO level in the manner of fmt.Print.
func Info(args ...any) { Default.Info(args...) }

// Infof logs at INFO level in the manner of fmt.Printf.
func Infof(format string, args ...any) { Default.Infof(format, args...) }

// Warn logs at WARN level in the manner of fmt.Print.
func Warn(args ...any) { Default.Warn(args...) }

// Warnf logs at WARN level in the manner of fmt.Printf.
func Warnf(format string, args ...any) { Default.Warnf(format, args...) }

// Error logs at ERROR level in the manner of fmt.Print.
func Error(args ...any) { Default.Error(args...) }

// Errorf logs at ERROR level in the manner of fmt.Printf.
func Errorf(format string, args ...any) { Default.Errorf(format, args...) }
