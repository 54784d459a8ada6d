package flags

import "github.com/spf13/cobra"

const (
	// DryRunFlagName exposes the shared dry-run flag name.
	DryRunFlagName = "dry-run"
	// DryRunFlagUsage describes the shared dry-run flag purpose.
	DryRunFlagUsage = "Log intended mutations without calling GitHub"
	// ContinueOnErrorFlagName exposes the shared continue-on-error flag name.
	ContinueOnErrorFlagName = "continue-on-error"
	// ContinueOnErrorFlagUsage describes the shared continue-on-error flag purpose.
	ContinueOnErrorFlagUsage = "Keep processing a row after a failed step"
	// TokenFlagName exposes the shared token flag name.
	TokenFlagName = "token"
	// TokenFlagUsage describes the shared token flag purpose.
	TokenFlagUsage = "GitHub token (defaults to GITHUB_TOKEN, GH_TOKEN, or GITHUB_API_TOKEN)"
	// OwnerFlagName exposes the repository owner flag name.
	OwnerFlagName = "owner"
	// RepositoryFlagName exposes the repository name flag name.
	RepositoryFlagName = "repository"
)

// RepositoryFlagDefinition captures configuration for repository context flags.
type RepositoryFlagDefinition struct {
	Name    string
	Usage   string
	Enabled bool
}

// RepositoryFlagDefinitions groups repository context flag definitions.
type RepositoryFlagDefinitions struct {
	Owner RepositoryFlagDefinition
	Name  RepositoryFlagDefinition
}

// RepositoryFlagValues stores repository context flag values.
type RepositoryFlagValues struct {
	Owner string
	Name  string
}

// BindRepositoryFlags attaches repository context flags to the provided command.
func BindRepositoryFlags(command *cobra.Command, defaults RepositoryFlagValues, definitions RepositoryFlagDefinitions) *RepositoryFlagValues {
	values := defaults
	if command == nil {
		return &values
	}

	flagSet := command.Flags()
	if definitions.Owner.Enabled && len(definitions.Owner.Name) > 0 {
		flagSet.StringVar(&values.Owner, definitions.Owner.Name, defaults.Owner, definitions.Owner.Usage)
	}
	if definitions.Name.Enabled && len(definitions.Name.Name) > 0 {
		flagSet.StringVar(&values.Name, definitions.Name.Name, defaults.Name, definitions.Name.Usage)
	}

	return &values
}
