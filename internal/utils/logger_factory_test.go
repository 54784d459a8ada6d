package utils_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/ghmigrate/internal/utils"
)

const (
	testLogMessageConstant           = "row migration failed"
	testRepeatedMessageCountConstant = 150
)

// captureStandardError redirects os.Stderr while create runs and returns everything the logger wrote.
func captureStandardError(testInstance *testing.T, create func() (*zap.Logger, error), emit func(*zap.Logger)) ([]byte, error) {
	testInstance.Helper()

	pipeReader, pipeWriter, pipeError := os.Pipe()
	require.NoError(testInstance, pipeError)

	originalStandardError := os.Stderr
	os.Stderr = pipeWriter
	logger, creationError := create()
	os.Stderr = originalStandardError

	if creationError != nil {
		require.NoError(testInstance, pipeWriter.Close())
		require.NoError(testInstance, pipeReader.Close())
		return nil, creationError
	}

	emit(logger)
	if syncError := logger.Sync(); syncError != nil {
		require.True(testInstance, errors.Is(syncError, syscall.ENOTSUP) || errors.Is(syncError, syscall.EINVAL))
	}
	require.NoError(testInstance, pipeWriter.Close())

	capturedOutput, readError := io.ReadAll(pipeReader)
	require.NoError(testInstance, readError)
	require.NoError(testInstance, pipeReader.Close())
	return capturedOutput, nil
}

func TestLoggerFactoryCreateLogger(testInstance *testing.T) {
	testCases := []struct {
		name                string
		requestedLogLevel   utils.LogLevel
		requestedLogFormat  utils.LogFormat
		expectError         bool
		expectStructuredLog bool
	}{
		{name: "debug_structured", requestedLogLevel: utils.LogLevelDebug, requestedLogFormat: utils.LogFormatStructured, expectStructuredLog: true},
		{name: "info_console", requestedLogLevel: utils.LogLevelInfo, requestedLogFormat: utils.LogFormatConsole},
		{name: "warning_alias_json_alias", requestedLogLevel: utils.LogLevel("WARNING"), requestedLogFormat: utils.LogFormat("JSON"), expectStructuredLog: true},
		{name: "unsupported_level", requestedLogLevel: utils.LogLevel("verbose"), requestedLogFormat: utils.LogFormatStructured, expectError: true},
		{name: "unsupported_format", requestedLogLevel: utils.LogLevelInfo, requestedLogFormat: utils.LogFormat("xml"), expectError: true},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			loggerFactory := utils.NewLoggerFactory()
			capturedOutput, creationError := captureStandardError(testInstance, func() (*zap.Logger, error) {
				return loggerFactory.CreateLogger(testCase.requestedLogLevel, testCase.requestedLogFormat)
			}, func(logger *zap.Logger) {
				logger.Warn(testLogMessageConstant, zap.Int("row", 2))
			})
			if testCase.expectError {
				require.Error(testInstance, creationError)
				return
			}
			require.NoError(testInstance, creationError)

			trimmedOutput := bytes.TrimSpace(capturedOutput)
			require.Contains(testInstance, string(trimmedOutput), testLogMessageConstant)
			require.Equal(testInstance, testCase.expectStructuredLog, json.Valid(trimmedOutput))
		})
	}
}

func TestLoggerFactoryKeepsRepeatedMessages(testInstance *testing.T) {
	loggerFactory := utils.NewLoggerFactory()
	capturedOutput, creationError := captureStandardError(testInstance, func() (*zap.Logger, error) {
		return loggerFactory.CreateLogger(utils.LogLevelInfo, utils.LogFormatStructured)
	}, func(logger *zap.Logger) {
		for rowNumber := 0; rowNumber < testRepeatedMessageCountConstant; rowNumber++ {
			logger.Warn(testLogMessageConstant, zap.Int("row", rowNumber+2))
		}
	})
	require.NoError(testInstance, creationError)

	lineCount := 0
	scanner := bufio.NewScanner(bytes.NewReader(capturedOutput))
	for scanner.Scan() {
		require.True(testInstance, json.Valid(scanner.Bytes()))
		lineCount++
	}
	require.Equal(testInstance, testRepeatedMessageCountConstant, lineCount)
}

func TestParseLogLevel(testInstance *testing.T) {
	testCases := []struct {
		name          string
		rawLevel      string
		expectedLevel utils.LogLevel
		expectError   bool
	}{
		{name: "lowercase", rawLevel: "debug", expectedLevel: utils.LogLevelDebug},
		{name: "uppercase", rawLevel: " INFO ", expectedLevel: utils.LogLevelInfo},
		{name: "warning_alias", rawLevel: "Warning", expectedLevel: utils.LogLevelWarn},
		{name: "unknown", rawLevel: "verbose", expectError: true},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			parsedLevel, parseError := utils.ParseLogLevel(testCase.rawLevel)
			if testCase.expectError {
				require.Error(testInstance, parseError)
				return
			}
			require.NoError(testInstance, parseError)
			require.Equal(testInstance, testCase.expectedLevel, parsedLevel)
		})
	}
}

func TestParseLogFormat(testInstance *testing.T) {
	testCases := []struct {
		name           string
		rawFormat      string
		expectedFormat utils.LogFormat
		expectError    bool
	}{
		{name: "structured", rawFormat: "structured", expectedFormat: utils.LogFormatStructured},
		{name: "json_alias", rawFormat: " Json ", expectedFormat: utils.LogFormatStructured},
		{name: "console", rawFormat: "CONSOLE", expectedFormat: utils.LogFormatConsole},
		{name: "unknown", rawFormat: "xml", expectError: true},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			parsedFormat, parseError := utils.ParseLogFormat(testCase.rawFormat)
			if testCase.expectError {
				require.Error(testInstance, parseError)
				return
			}
			require.NoError(testInstance, parseError)
			require.Equal(testInstance, testCase.expectedFormat, parsedFormat)
		})
	}
}
