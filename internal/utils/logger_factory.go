package utils

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	logLevelDebugStringConstant          = "debug"
	logLevelInfoStringConstant           = "info"
	logLevelWarnStringConstant           = "warn"
	logLevelWarningAliasConstant         = "warning"
	logLevelErrorStringConstant          = "error"
	logFormatStructuredStringConstant    = "structured"
	logFormatJSONAliasConstant           = "json"
	logFormatConsoleStringConstant       = "console"
	jsonZapEncodingStringConstant        = "json"
	consoleZapEncodingStringConstant     = "console"
	unsupportedLogLevelTemplateConstant  = "unsupported log level: %s"
	unsupportedLogFormatTemplateConstant = "unsupported log format: %s"
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

// LoggerFactory builds zap.Logger instances with consistent configuration.
type LoggerFactory struct{}

var logLevelMapping = map[LogLevel]zapcore.Level{
	LogLevelDebug: zapcore.DebugLevel,
	LogLevelInfo:  zapcore.InfoLevel,
	LogLevelWarn:  zapcore.WarnLevel,
	LogLevelError: zapcore.ErrorLevel,
}

var logLevelAliases = map[string]LogLevel{
	logLevelWarningAliasConstant: LogLevelWarn,
}

var logFormatEncodingMapping = map[LogFormat]string{
	LogFormatStructured: jsonZapEncodingStringConstant,
	LogFormatConsole:    consoleZapEncodingStringConstant,
}

var logFormatAliases = map[string]LogFormat{
	logFormatJSONAliasConstant: LogFormatStructured,
}

// NewLoggerFactory constructs a new logger factory.
func NewLoggerFactory() *LoggerFactory {
	return &LoggerFactory{}
}

// ParseLogLevel normalizes a configured level. Matching ignores case and accepts "warning".
func ParseLogLevel(rawLevel string) (LogLevel, error) {
	normalizedLevel := strings.ToLower(strings.TrimSpace(rawLevel))
	if aliasedLevel, isAlias := logLevelAliases[normalizedLevel]; isAlias {
		return aliasedLevel, nil
	}
	if _, supported := logLevelMapping[LogLevel(normalizedLevel)]; !supported {
		return "", fmt.Errorf(unsupportedLogLevelTemplateConstant, rawLevel)
	}
	return LogLevel(normalizedLevel), nil
}

// ParseLogFormat normalizes a configured format. Matching ignores case and accepts "json".
func ParseLogFormat(rawFormat string) (LogFormat, error) {
	normalizedFormat := strings.ToLower(strings.TrimSpace(rawFormat))
	if aliasedFormat, isAlias := logFormatAliases[normalizedFormat]; isAlias {
		return aliasedFormat, nil
	}
	if _, supported := logFormatEncodingMapping[LogFormat(normalizedFormat)]; !supported {
		return "", fmt.Errorf(unsupportedLogFormatTemplateConstant, rawFormat)
	}
	return LogFormat(normalizedFormat), nil
}

// CreateLogger produces a zap.Logger honoring the requested log level and format.
func (factory *LoggerFactory) CreateLogger(requestedLogLevel LogLevel, requestedLogFormat LogFormat) (*zap.Logger, error) {
	parsedLogLevel, levelError := ParseLogLevel(string(requestedLogLevel))
	if levelError != nil {
		return nil, levelError
	}

	parsedLogFormat, formatError := ParseLogFormat(string(requestedLogFormat))
	if formatError != nil {
		return nil, formatError
	}

	configuration := zap.NewProductionConfig()
	configuration.Level = zap.NewAtomicLevelAt(logLevelMapping[parsedLogLevel])
	configuration.Encoding = logFormatEncodingMapping[parsedLogFormat]
	// Every failed row logs the same message; none of them may be dropped.
	configuration.Sampling = nil
	configuration.DisableStacktrace = parsedLogLevel != LogLevelDebug
	configuration.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if parsedLogFormat == LogFormatConsole {
		configuration.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	return configuration.Build()
}
