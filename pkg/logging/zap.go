/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package logging

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures a zap backed Logger.
type Options struct {
	// Level is one of debug, info, warn or error.
	Level string `yaml:"level"`

	// Format is "console" or "json". The log file is always written as json.
	Format string `yaml:"format"`

	// File, when set, additionally writes rotated logs to this path.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	Compress   bool   `yaml:"compress"`
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZap adapts a zap logger to the Logger interface.
// Key/value pairs are passed to zap as loosely typed fields.
func NewZap(logger *zap.Logger) Logger {
	return &zapLogger{
		sugar: logger.WithOptions(zap.AddCallerSkip(1)).Sugar(),
	}
}

func (zl *zapLogger) Log(level LogLevel, text string, args ...interface{}) {
	switch level {
	case LevelDebug:
		zl.sugar.Debugw(text, args...)
	case LevelInfo:
		zl.sugar.Infow(text, args...)
	case LevelWarn:
		zl.sugar.Warnw(text, args...)
	default:
		zl.sugar.Errorw(text, args...)
	}
}

func zapLevel(level LogLevel) zapcore.Level {
	switch level {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func encoder(format string) zapcore.Encoder {
	if format == "json" {
		return zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}

	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(cfg)
}

// NewZapLogger builds a zap logger writing to console and, if configured,
// to a rotated log file.
func NewZapLogger(opts Options, console io.Writer) *zap.Logger {
	level := zap.NewAtomicLevelAt(zapLevel(ParseLevel(opts.Level)))

	cores := []zapcore.Core{
		zapcore.NewCore(encoder(opts.Format), zapcore.AddSync(console), level),
	}

	if opts.File != "" {
		// lumberjack handles rotation; it is safe for concurrent writes.
		fileWriter := zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		})
		cores = append(cores, zapcore.NewCore(encoder("json"), fileWriter, level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller())
}
