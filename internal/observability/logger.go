// File: internal/observability/logger.go
package observability

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/xkilldash9x/uiharness/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// globalLogger stores the process-wide logger.
	globalLogger atomic.Pointer[zap.Logger]
	once         sync.Once
)

// ANSI color codes for the terminal.
const (
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorWhite   = "\x1b[37m"
	colorReset   = "\x1b[0m"
)

var colorMap = map[string]string{
	"red":     colorRed,
	"green":   colorGreen,
	"yellow":  colorYellow,
	"blue":    colorBlue,
	"magenta": colorMagenta,
	"cyan":    colorCyan,
	"white":   colorWhite,
}

// Initialize builds the global logger from cfg, writing console output to
// consoleWriter. Only the first call has any effect until ResetForTest.
func Initialize(cfg config.LoggerConfig, consoleWriter zapcore.WriteSyncer) {
	once.Do(func() {
		level := zap.NewAtomicLevel()
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			level.SetLevel(zap.InfoLevel)
		}

		cores := []zapcore.Core{zapcore.NewCore(encoderFor(cfg), consoleWriter, level)}

		if cfg.LogFile != "" {
			// Rotated file output is always JSON so runs can be grepped for fallback usage.
			rotating := zapcore.AddSync(&lumberjack.Logger{
				Filename:   cfg.LogFile,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   cfg.Compress,
			})
			cores = append(cores, zapcore.NewCore(encoderFor(config.LoggerConfig{Format: "json"}), rotating, level))
		}

		options := []zap.Option{zap.AddStacktrace(zap.ErrorLevel)}
		if cfg.AddSource {
			options = append(options, zap.AddCaller())
		}

		logger := zap.New(zapcore.NewTee(cores...), options...)
		if cfg.ServiceName != "" {
			logger = logger.Named(cfg.ServiceName)
		}
		globalLogger.Store(logger)

		zap.ReplaceGlobals(logger)
		zap.RedirectStdLog(logger)
	})
}

// InitializeLogger initializes the global logger with console output on stdout.
func InitializeLogger(cfg config.LoggerConfig) {
	Initialize(cfg, zapcore.Lock(os.Stdout))
}

// ResetForTest clears the global logger so a test can initialize its own.
func ResetForTest() {
	globalLogger.Store(nil)
	once = sync.Once{}
}

func colorizedLevelEncoder(colors config.ColorConfig) zapcore.LevelEncoder {
	byLevel := map[zapcore.Level]string{
		zapcore.DebugLevel:  colors.Debug,
		zapcore.InfoLevel:   colors.Info,
		zapcore.WarnLevel:   colors.Warn,
		zapcore.ErrorLevel:  colors.Error,
		zapcore.DPanicLevel: colors.DPanic,
		zapcore.PanicLevel:  colors.Panic,
		zapcore.FatalLevel:  colors.Fatal,
	}
	return func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		label := level.CapitalString()
		if code, ok := colorMap[byLevel[level]]; ok {
			enc.AppendString(code + label + colorReset)
			return
		}
		enc.AppendString(label)
	}
}

// encoderFor returns a colorized single-line console encoder for "console"
// and a JSON encoder for anything else.
func encoderFor(cfg config.LoggerConfig) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.000Z07:00")
	ec.EncodeDuration = zapcore.StringDurationEncoder

	if cfg.Format == "console" {
		ec.EncodeLevel = colorizedLevelEncoder(cfg.Colors)
		// "uiharness.locator." reads better than a bare name column.
		ec.EncodeName = func(name string, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(name + ".")
		}
		return zapcore.NewConsoleEncoder(ec)
	}

	ec.EncodeLevel = zapcore.LowercaseLevelEncoder
	return zapcore.NewJSONEncoder(ec)
}

// GetLogger returns the global logger, or a development logger when
// InitializeLogger has not run (library use from a plain go test).
func GetLogger() *zap.Logger {
	if logger := globalLogger.Load(); logger != nil {
		return logger
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l.Named("fallback")
}

// Component returns a child of logger named for an engine component. A nil
// logger resolves to the global one.
func Component(logger *zap.Logger, name string) *zap.Logger {
	if logger == nil {
		logger = GetLogger()
	}
	return logger.Named(name)
}

// Sync flushes buffered entries, ignoring the errors stdout and stderr return
// on platforms where they cannot be synced.
func Sync() {
	logger := globalLogger.Load()
	if logger == nil {
		return
	}
	if err := logger.Sync(); err != nil {
		msg := err.Error()
		if strings.Contains(msg, "sync /dev/stdout") ||
			strings.Contains(msg, "sync /dev/stderr") ||
			strings.Contains(msg, "invalid argument") ||
			strings.Contains(msg, "inappropriate ioctl") ||
			strings.Contains(msg, "operation not supported") {
			return
		}
		fmt.Fprintln(os.Stderr, "Error: failed to sync logger:", err)
	}
}
