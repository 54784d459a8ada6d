// Package flags provides helpers for binding standardized execution flags to Cobra commands.
package flags

import (
	"github.com/spf13/cobra"
)

// ExecutionDefaults describes default flag values shared across commands.
type ExecutionDefaults struct {
	DryRun          bool
	ContinueOnError bool
}

// ExecutionValues receives the parsed execution toggles.
type ExecutionValues struct {
	DryRun          bool
	ContinueOnError bool
}

// BindExecutionFlags attaches the dry-run and continue-on-error toggles using persistent scope.
func BindExecutionFlags(command *cobra.Command, defaults ExecutionDefaults) *ExecutionValues {
	values := &ExecutionValues{DryRun: defaults.DryRun, ContinueOnError: defaults.ContinueOnError}
	if command == nil {
		return values
	}

	persistentFlagSet := command.PersistentFlags()
	AddToggleFlag(persistentFlagSet, &values.DryRun, DryRunFlagName, "", defaults.DryRun, DryRunFlagUsage)
	AddToggleFlag(persistentFlagSet, &values.ContinueOnError, ContinueOnErrorFlagName, "", defaults.ContinueOnError, ContinueOnErrorFlagUsage)
	return values
}
