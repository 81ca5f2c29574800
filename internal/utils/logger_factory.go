package utils

import (
	"errors"
	"fmt"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	logLevelDebugStringConstant          = "debug"
	logLevelInfoStringConstant           = "info"
	logLevelWarnStringConstant           = "warn"
	logLevelErrorStringConstant          = "error"
	logFormatStructuredStringConstant    = "structured"
	logFormatConsoleStringConstant       = "console"
	jsonZapEncodingStringConstant        = "json"
	consoleZapEncodingStringConstant     = "console"
	standardErrorOutputPathConstant      = "stderr"
	unsupportedLogLevelTemplateConstant  = "unsupported log level: %s"
	unsupportedLogFormatTemplateConstant = "unsupported log format: %s"
	loggerBuildErrorTemplateConstant     = "unable to build logger: %w"
)

// LogLevel enumerates supported logging granularities.
type LogLevel string

// Exported log level constants for reuse across packages.
const (
	LogLevelDebug LogLevel = LogLevel(logLevelDebugStringConstant)
	LogLevelInfo  LogLevel = LogLevel(logLevelInfoStringConstant)
	LogLevelWarn  LogLevel = LogLevel(logLevelWarnStringConstant)
	LogLevelError LogLevel = LogLevel(logLevelErrorStringConstant)
)

// LogFormat enumerates supported logger output encodings.
type LogFormat string

// Exported log format constants for reuse across packages.
const (
	LogFormatStructured LogFormat = LogFormat(logFormatStructuredStringConstant)
	LogFormatConsole    LogFormat = LogFormat(logFormatConsoleStringConstant)
)

// SupportedLogLevels lists the accepted log levels in increasing severity.
func SupportedLogLevels() []string {
	return []string{logLevelDebugStringConstant, logLevelInfoStringConstant, logLevelWarnStringConstant, logLevelErrorStringConstant}
}

// SupportedLogFormats lists the accepted log formats.
func SupportedLogFormats() []string {
	return []string{logFormatStructuredStringConstant, logFormatConsoleStringConstant}
}

var logLevelMapping = map[LogLevel]zapcore.Level{
	LogLevelDebug: zapcore.DebugLevel,
	LogLevelInfo:  zapcore.InfoLevel,
	LogLevelWarn:  zapcore.WarnLevel,
	LogLevelError: zapcore.ErrorLevel,
}

var logFormatEncodingMapping = map[LogFormat]string{
	LogFormatStructured: jsonZapEncodingStringConstant,
	LogFormatConsole:    consoleZapEncodingStringConstant,
}

// LoggerFactory builds zap.Logger instances writing diagnostics to standard error.
type LoggerFactory struct {
	outputPaths []string
}

// NewLoggerFactory constructs a logger factory writing to standard error.
func NewLoggerFactory() *LoggerFactory {
	return &LoggerFactory{outputPaths: []string{standardErrorOutputPathConstant}}
}

// CreateLogger produces a zap.Logger honoring the requested log level and format.
// Level and format names are case-insensitive.
// The console format drops timestamps and callers so diagnostics read well next to status lines.
func (factory *LoggerFactory) CreateLogger(requestedLogLevel LogLevel, requestedLogFormat LogFormat) (*zap.Logger, error) {
	requestedLogLevel = LogLevel(strings.ToLower(strings.TrimSpace(string(requestedLogLevel))))
	requestedLogFormat = LogFormat(strings.ToLower(strings.TrimSpace(string(requestedLogFormat))))

	zapLogLevel, levelExists := logLevelMapping[requestedLogLevel]
	if !levelExists {
		return nil, fmt.Errorf(unsupportedLogLevelTemplateConstant, requestedLogLevel)
	}

	encoding, formatExists := logFormatEncodingMapping[requestedLogFormat]
	if !formatExists {
		return nil, fmt.Errorf(unsupportedLogFormatTemplateConstant, requestedLogFormat)
	}

	configuration := zap.NewProductionConfig()
	configuration.Level = zap.NewAtomicLevelAt(zapLogLevel)
	configuration.Encoding = encoding
	configuration.OutputPaths = append([]string{}, factory.outputPaths...)
	configuration.ErrorOutputPaths = []string{standardErrorOutputPathConstant}
	configuration.DisableStacktrace = true
	if requestedLogFormat == LogFormatConsole {
		configuration.EncoderConfig.TimeKey = zapcore.OmitKey
		configuration.EncoderConfig.CallerKey = zapcore.OmitKey
		configuration.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	logger, buildError := configuration.Build()
	if buildError != nil {
		return nil, fmt.Errorf(loggerBuildErrorTemplateConstant, buildError)
	}

	return logger, nil
}

// SyncLogger flushes logger, ignoring the errors terminals and pipes report for fsync.
func SyncLogger(logger *zap.Logger) error {
	if logger == nil {
		return nil
	}

	syncError := logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	default:
		return syncError
	}
}
