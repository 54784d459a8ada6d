package migrate

import (
	"strings"
	"time"

	"github.com/temirov/ghmigrate/internal/fieldmap"
	"github.com/temirov/ghmigrate/internal/githubapi"
)

const (
	defaultBatchSizeConstant       = 100
	maximumBatchSizeConstant       = 100
	defaultOutputDirectoryConstant = "output"
)

// GitHubConfiguration captures API endpoint and retry settings.
type GitHubConfiguration struct {
	APIURL     string        `mapstructure:"api_url"`
	RESTURL    string        `mapstructure:"rest_url"`
	APIVersion string        `mapstructure:"api_version"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// ClientConfiguration converts the settings into a githubapi.Configuration for the given token.
func (configuration GitHubConfiguration) ClientConfiguration(token string) githubapi.Configuration {
	return githubapi.Configuration{
		Token:      token,
		GraphQLURL: configuration.APIURL,
		RESTURL:    configuration.RESTURL,
		APIVersion: configuration.APIVersion,
		Timeout:    configuration.Timeout,
		MaxRetries: configuration.MaxRetries,
		RetryDelay: configuration.RetryDelay,
	}
}

// ProcessingConfiguration controls run-wide behavior.
type ProcessingConfiguration struct {
	BatchSize            int           `mapstructure:"batch_size"`
	SleepBetweenRequests time.Duration `mapstructure:"sleep_between_requests"`
	DryRun               bool          `mapstructure:"dry_run"`
	ContinueOnError      bool          `mapstructure:"continue_on_error"`
	Separator            string        `mapstructure:"separator"`
	OutputDirectory      string        `mapstructure:"output_directory"`
}

// ProjectConfiguration names the source and target of the migration.
type ProjectConfiguration struct {
	SourceRepositoryID string `mapstructure:"source_repository_id"`
	SourceProjectID    string `mapstructure:"source_project_id"`
	TargetRepositoryID string `mapstructure:"target_repository_id"`
	TargetProjectID    string `mapstructure:"target_project_id"`
	TargetOwner        string `mapstructure:"target_owner"`
	TargetRepository   string `mapstructure:"target_repository"`
}

// FieldBinding ties a worksheet column to a project field.
type FieldBinding struct {
	FieldID string `mapstructure:"field_id"`
	Type    string `mapstructure:"type"`
}

// Configuration is the complete migration configuration.
type Configuration struct {
	GitHub        GitHubConfiguration     `mapstructure:"github"`
	Processing    ProcessingConfiguration `mapstructure:"processing"`
	Project       ProjectConfiguration    `mapstructure:"project"`
	ProjectFields map[string]FieldBinding `mapstructure:"project_fields"`
	Mappings      fieldmap.Tables         `mapstructure:"mappings"`
}

// DefaultConfigurationValues returns the viper defaults for every scalar setting.
func DefaultConfigurationValues() map[string]any {
	return map[string]any{
		"github.api_url":                    githubapi.DefaultGraphQLURL,
		"github.rest_url":                   githubapi.DefaultRESTURL,
		"github.api_version":                githubapi.DefaultAPIVersion,
		"github.timeout":                    githubapi.DefaultTimeout.String(),
		"github.max_retries":                githubapi.DefaultMaxRetries,
		"github.retry_delay":                githubapi.DefaultRetryDelay.String(),
		"processing.batch_size":             defaultBatchSizeConstant,
		"processing.sleep_between_requests": "0s",
		"processing.dry_run":                false,
		"processing.continue_on_error":      true,
		"processing.separator":              fieldmap.DefaultSeparator,
		"processing.output_directory":       defaultOutputDirectoryConstant,
	}
}

// Sanitize trims identifiers and fills empty settings with defaults.
func (configuration Configuration) Sanitize() Configuration {
	sanitized := configuration

	if sanitized.Processing.BatchSize <= 0 || sanitized.Processing.BatchSize > maximumBatchSizeConstant {
		sanitized.Processing.BatchSize = defaultBatchSizeConstant
	}
	if sanitized.Processing.SleepBetweenRequests < 0 {
		sanitized.Processing.SleepBetweenRequests = 0
	}
	if len(sanitized.Processing.Separator) == 0 {
		sanitized.Processing.Separator = fieldmap.DefaultSeparator
	}
	sanitized.Processing.OutputDirectory = strings.TrimSpace(sanitized.Processing.OutputDirectory)
	if len(sanitized.Processing.OutputDirectory) == 0 {
		sanitized.Processing.OutputDirectory = defaultOutputDirectoryConstant
	}

	sanitized.Project = ProjectConfiguration{
		SourceRepositoryID: strings.TrimSpace(configuration.Project.SourceRepositoryID),
		SourceProjectID:    strings.TrimSpace(configuration.Project.SourceProjectID),
		TargetRepositoryID: strings.TrimSpace(configuration.Project.TargetRepositoryID),
		TargetProjectID:    strings.TrimSpace(configuration.Project.TargetProjectID),
		TargetOwner:        strings.TrimSpace(configuration.Project.TargetOwner),
		TargetRepository:   strings.TrimSpace(configuration.Project.TargetRepository),
	}

	return sanitized
}
