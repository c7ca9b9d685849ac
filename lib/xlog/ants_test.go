package xlog

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestAntsXLogger_ParentLogLevelChanged(t *testing.T) {
	var (
		parentLogger XLogger      = nil
		logger       *AntsXLogger = nil
	)
	logger.Printf("test %d", 123)
	NewAntsXLogger(nil).Printf("test %d", 123)

	buf := &bytes.Buffer{}
	opts := []XLoggerOption{
		WithXLoggerLevel(LogLevelDebug),
		WithXLoggerEncoder(JSON),
		WithXLoggerWriteSyncer(AddSync(buf)),
		WithXLoggerConsoleCore(),
		WithXLoggerTimeEncoder(zapcore.ISO8601TimeEncoder),
		WithXLoggerLevelEncoder(zapcore.CapitalLevelEncoder),
	}
	parentLogger = NewXLogger(opts...)
	logger = NewAntsXLogger(parentLogger)
	parentLogger.IncreaseLogLevel(zapcore.InfoLevel)
	parentLogger.Debug("abc")
	require.NotContains(t, buf.String(), "abc")
	logger.Printf("worker exits from panic: %d", 123)
	require.Contains(t, buf.String(), "worker exits from panic: 123")
	require.Contains(t, buf.String(), `"component":"Ants"`)
	parentLogger.IncreaseLogLevel(zapcore.ErrorLevel + 1)
	buf.Reset()
	logger.Printf("test %d", 456)
	require.Empty(t, buf.String())
	_ = parentLogger.Sync()
}
