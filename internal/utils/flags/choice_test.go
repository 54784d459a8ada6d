package flags

import (
	"fmt"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestFormatChoiceUsage(testInstance *testing.T) {
	testCases := []struct {
		name           string
		defaultChoice  string
		choices        []string
		description    string
		expectedOutput string
	}{
		{name: "default_first_choice", defaultChoice: "structured", choices: []string{"structured", "console"}, description: "Log encoding.", expectedOutput: "`<STRUCTURED|console>` Log encoding."},
		{name: "default_second_choice", defaultChoice: "console", choices: []string{"structured", "console"}, description: "Log encoding.", expectedOutput: "`<structured|CONSOLE>` Log encoding."},
		{name: "empty_description", defaultChoice: "info", choices: []string{"debug", "info"}, expectedOutput: "`<debug|INFO>`"},
		{name: "duplicates_ignored", defaultChoice: "warn", choices: []string{"warn", "WARN", " error "}, description: "Level.", expectedOutput: "`<WARN|error>` Level."},
		{name: "no_default", choices: []string{"debug", "info"}, description: "Level.", expectedOutput: "`<debug|info>` Level."},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expectedOutput, FormatChoiceUsage(testCase.defaultChoice, testCase.choices, testCase.description))
		})
	}
}

func TestAddChoiceFlagValidatesValues(testInstance *testing.T) {
	testCases := []struct {
		name          string
		arguments     []string
		expectedValue string
		expectError   bool
	}{
		{name: "unset_keeps_default", arguments: []string{}, expectedValue: ""},
		{name: "case_insensitive", arguments: []string{"--log-format", "CONSOLE"}, expectedValue: "console"},
		{name: "rejects_unknown", arguments: []string{"--log-format", "xml"}, expectError: true},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			command := &cobra.Command{}
			var logFormat string
			AddChoiceFlag(command.Flags(), &logFormat, "log-format", "", []string{"structured", "console"}, "Log encoding.")

			parseError := command.ParseFlags(testCase.arguments)
			if testCase.expectError {
				require.Error(testInstance, parseError)
				return
			}
			require.NoError(testInstance, parseError)
			require.Equal(testInstance, testCase.expectedValue, logFormat)
		})
	}
}
