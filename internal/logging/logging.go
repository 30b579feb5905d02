// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the zap loggers used by fabric-ui.
package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/fritzduchardt/fabric-ui/internal/config"
)

// Options control where logs go.
type Options struct {
	Debug bool
	// Console is the terminal destination; nil disables console output.
	Console io.Writer
	// File enables a rotated log file.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// FromConfig returns options for the log section, writing to stderr.
func FromConfig(c config.LogConfig) Options {
	return Options{
		Debug:      c.Debug,
		Console:    os.Stderr,
		File:       c.File,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
	}
}

// New builds a logger from opts and returns a function that flushes and
// closes its outputs. With neither a console nor a file it returns a no-op
// logger.
func New(opts Options) (*zap.Logger, func()) {
	level := zap.InfoLevel
	if opts.Debug {
		level = zap.DebugLevel
	}

	var cores []zapcore.Core
	var rotator *lumberjack.Logger

	if opts.Console != nil {
		enc := encoderConfig()
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(enc),
			zapcore.AddSync(opts.Console),
			level,
		))
	}

	if opts.File != "" {
		rotator = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB, // megabytes
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays, // days
			LocalTime:  true,
		}
		enc := encoderConfig()
		enc.EncodeLevel = zapcore.CapitalLevelEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(enc),
			zapcore.AddSync(rotator),
			level,
		))
	}

	if len(cores) == 0 {
		return zap.NewNop(), func() {}
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	return logger, func() {
		_ = logger.Sync()
		if rotator != nil {
			_ = rotator.Close()
		}
	}
}

// NewLogger returns a console logger on stderr.
func NewLogger(debug bool) *zap.Logger {
	logger, _ := New(Options{Debug: debug, Console: os.Stderr})
	return logger
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "time"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}
