package guildlog

import (
	"os"

	"github.com/intrntsrfr/meido/pkg/mio"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger is a wrapper around zap that implements mio.Logger and badger.Logger
type ZapLogger struct {
	log *zap.Logger
}

// NewLogger builds the process logger. format is "console" or "json".
func NewLogger(level zapcore.Level, format string) *ZapLogger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalColorLevelEncoder,
		EncodeTime:     zapcore.RFC3339TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	if format == "json" {
		encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}
	core := zapcore.NewCore(
		encoder,
		zapcore.Lock(os.Stdout),
		zap.NewAtomicLevelAt(level),
	)
	return &ZapLogger{zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))}
}

// Zap returns the underlying logger for packages that log with zap directly.
func (z *ZapLogger) Zap() *zap.Logger {
	return z.log.WithOptions(zap.AddCallerSkip(-1))
}

func (z *ZapLogger) Infof(template string, args ...interface{}) {
	z.log.Sugar().Infof(template, args...)
}

func (z *ZapLogger) Warningf(template string, args ...interface{}) {
	z.log.Sugar().Warnf(template, args...)
}

func (z *ZapLogger) Errorf(template string, args ...interface{}) {
	z.log.Sugar().Errorf(template, args...)
}

func (z *ZapLogger) Debugf(template string, args ...interface{}) {
	z.log.Sugar().Debugf(template, args...)
}

func (z *ZapLogger) Info(msg string, pairs ...interface{}) {
	z.log.Sugar().Infow(msg, pairs...)
}

func (z *ZapLogger) Warn(msg string, pairs ...interface{}) {
	z.log.Sugar().Warnw(msg, pairs...)
}

func (z *ZapLogger) Error(msg string, pairs ...interface{}) {
	z.log.Sugar().Errorw(msg, pairs...)
}

func (z *ZapLogger) Debug(msg string, pairs ...interface{}) {
	z.log.Sugar().Debugw(msg, pairs...)
}

func (z *ZapLogger) Named(name string) mio.Logger {
	return &ZapLogger{z.log.Named(name)}
}

// Badger returns a logger for badger's internal messages.
func (z *ZapLogger) Badger() *ZapLogger {
	return &ZapLogger{z.log.Named("badger")}
}
