package migrate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/ghmigrate/internal/githubapi"
	"github.com/temirov/ghmigrate/internal/labels"
	"github.com/temirov/ghmigrate/internal/utils/flags"
	pathutils "github.com/temirov/ghmigrate/internal/utils/path"
)

const (
	extractCommandUseConstant              = "extract"
	extractCommandShortDescriptionConstant = "Extract issues from a project into a workbook"
	mapCommandUseConstant                  = "map"
	mapCommandShortDescriptionConstant     = "Resolve workbook values to GitHub identifiers"
	migrateCommandUseConstant              = "migrate"
	migrateCommandShortDescriptionConstant = "Create issues in the target repository and project"
	relationsCommandUseConstant            = "relationships"
	relationsCommandShortDescription       = "Link issues as sub-issues and blockers"
	labelsCommandUseConstant               = "labels"
	labelsCommandShortDescriptionConstant  = "Create or update repository labels"
	fullCommandUseConstant                 = "full"
	fullCommandShortDescriptionConstant    = "Run labels, mapping, issue and relationship migration in order"
	projectIDFlagNameConstant              = "project-id"
	projectIDFlagUsageConstant             = "Source project node ID (defaults to project.source_project_id)"
	inputFlagNameConstant                  = "input"
	inputFlagUsageConstant                 = "Input workbook path (.xlsx or .csv)"
	labelsInputFlagUsageConstant           = "Label definitions file (.json or .yaml)"
	outputFlagNameConstant                 = "output"
	outputFlagUsageConstant                = "Output workbook path"
	resultsFlagUsageConstant               = "Results workbook path"
	labelsOutputFlagUsageConstant          = "Path of the JSON summary to write"
	limitFlagNameConstant                  = "limit"
	limitFlagUsageConstant                 = "Maximum number of issues to extract (0 for all)"
	migrateInputFlagNameConstant           = "migrate-input"
	migrateInputFlagUsageConstant          = "Workbook of issues to migrate (extracts the source project when omitted)"
	relationshipsInputFlagNameConstant     = "relationships-input"
	relationshipsInputFlagUsageConstant    = "Workbook of relationships to migrate"
	labelsInputFlagNameConstant            = "labels-input"
	outputDirectoryFlagNameConstant        = "output-dir"
	outputDirectoryFlagUsageConstant       = "Directory for intermediate and result workbooks"
	ownerFlagUsageConstant                 = "Target repository owner (defaults to project.target_owner)"
	repositoryFlagUsageConstant            = "Target repository name (defaults to project.target_repository)"
	requiredFlagErrorTemplateConstant      = "--%s is required"
	unexpectedArgumentsErrorTemplate       = "%s does not accept positional arguments"
	serviceCreationErrorTemplateConstant   = "unable to construct migrator: %w"
	clientCreationErrorTemplateConstant    = "unable to construct GitHub client: %w"
	summaryWriteErrorTemplateConstant      = "unable to write summary %s: %w"
	summaryFilePermissionsConstant         = 0o644
	jsonIndentConstant                     = "  "
	extractSummaryTemplateConstant         = "Extracted %d issues to %s\n"
	mapSummaryTemplateConstant             = "Mapped %d rows across %d sheets to %s\n"
	issueSummaryHeaderConstant             = "Migration Summary:"
	relationshipSummaryHeaderConstant      = "Relationships Summary:"
	labelSummaryHeaderConstant             = "Labels Summary:"
	fullSummaryHeaderConstant              = "Full Migration Complete:"
	summaryTotalTemplateConstant           = "  Total: %d\n"
	summarySuccessTemplateConstant         = "  Success: %d\n"
	summaryFailedTemplateConstant          = "  Failed: %d\n"
	summarySkippedTemplateConstant         = "  Skipped: %d\n"
	summaryErrorsTemplateConstant          = "  Errors: %d\n"
	summaryAddedTemplateConstant           = "  Relationships added: %d\n"
	fullIssuesTemplateConstant             = "  Issues: %d/%d successful\n"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider returns the current migration configuration.
type ConfigurationProvider func() Configuration

// TokenProvider resolves the GitHub token for commands that call the API.
type TokenProvider func(command *cobra.Command) (string, error)

// Operations is the migration surface driven by the commands.
type Operations interface {
	ExtractIssues(executionContext context.Context, projectID string, outputPath string, limit int) (ExtractSummary, error)
	MapFields(inputPath string, outputPath string) (MapSummary, error)
	MigrateIssues(executionContext context.Context, inputPath string, resultsPath string) (IssueSummary, error)
	MigrateRelationships(executionContext context.Context, inputPath string, resultsPath string) (RelationshipSummary, error)
	MigrateLabels(executionContext context.Context, definitionsPath string, target LabelTarget) (labels.Summary, error)
	RunFull(executionContext context.Context, request FullRunRequest) (FullRunSummary, error)
}

// ServiceDependencies carries what a ServiceProvider needs to build Operations.
type ServiceDependencies struct {
	Configuration Configuration
	Token         string
	Logger        *zap.Logger
}

// ServiceProvider constructs the migration operations.
type ServiceProvider func(dependencies ServiceDependencies) (Operations, error)

// CommandBuilder assembles the migration commands.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	TokenProvider         TokenProvider
	ServiceProvider       ServiceProvider
	WorkingDirectory      string
	HomeExpander          *pathutils.HomeExpander
}

// NewService builds a Migrator backed by the GitHub API client. Without a token only MapFields is usable.
func NewService(dependencies ServiceDependencies) (Operations, error) {
	migratorDependencies := Dependencies{Logger: dependencies.Logger}
	if len(dependencies.Token) > 0 {
		client, clientError := githubapi.NewClient(dependencies.Configuration.GitHub.ClientConfiguration(dependencies.Token), dependencies.Logger)
		if clientError != nil {
			return nil, fmt.Errorf(clientCreationErrorTemplateConstant, clientError)
		}
		migratorDependencies.Client = client
	}
	migrator, migratorError := NewMigrator(migratorDependencies, dependencies.Configuration)
	if migratorError != nil {
		return nil, migratorError
	}
	return migrator, nil
}

// Build constructs the extract, map, migrate, relationships, labels and full commands.
func (builder *CommandBuilder) Build() []*cobra.Command {
	extractCommand := &cobra.Command{
		Use:   extractCommandUseConstant,
		Short: extractCommandShortDescriptionConstant,
		RunE:  builder.runExtract,
	}
	extractCommand.Flags().String(projectIDFlagNameConstant, "", projectIDFlagUsageConstant)
	extractCommand.Flags().String(outputFlagNameConstant, "", outputFlagUsageConstant)
	extractCommand.Flags().Int(limitFlagNameConstant, 0, limitFlagUsageConstant)

	mapCommand := &cobra.Command{
		Use:   mapCommandUseConstant,
		Short: mapCommandShortDescriptionConstant,
		RunE:  builder.runMap,
	}
	mapCommand.Flags().String(inputFlagNameConstant, "", inputFlagUsageConstant)
	mapCommand.Flags().String(outputFlagNameConstant, "", outputFlagUsageConstant)

	migrateCommand := &cobra.Command{
		Use:   migrateCommandUseConstant,
		Short: migrateCommandShortDescriptionConstant,
		RunE:  builder.runMigrate,
	}
	migrateCommand.Flags().String(inputFlagNameConstant, "", inputFlagUsageConstant)
	migrateCommand.Flags().String(outputFlagNameConstant, "", resultsFlagUsageConstant)

	relationshipsCommand := &cobra.Command{
		Use:   relationsCommandUseConstant,
		Short: relationsCommandShortDescription,
		RunE:  builder.runRelationships,
	}
	relationshipsCommand.Flags().String(inputFlagNameConstant, "", inputFlagUsageConstant)
	relationshipsCommand.Flags().String(outputFlagNameConstant, "", resultsFlagUsageConstant)

	labelsCommand := &cobra.Command{
		Use:   labelsCommandUseConstant,
		Short: labelsCommandShortDescriptionConstant,
		RunE:  builder.runLabels,
	}
	labelsCommand.Flags().String(inputFlagNameConstant, "", labelsInputFlagUsageConstant)
	labelsCommand.Flags().String(outputFlagNameConstant, "", labelsOutputFlagUsageConstant)
	flags.BindRepositoryFlags(labelsCommand, flags.RepositoryFlagValues{}, flags.RepositoryFlagDefinitions{
		Owner: flags.RepositoryFlagDefinition{Name: flags.OwnerFlagName, Usage: ownerFlagUsageConstant, Enabled: true},
		Name:  flags.RepositoryFlagDefinition{Name: flags.RepositoryFlagName, Usage: repositoryFlagUsageConstant, Enabled: true},
	})

	fullCommand := &cobra.Command{
		Use:   fullCommandUseConstant,
		Short: fullCommandShortDescriptionConstant,
		RunE:  builder.runFull,
	}
	fullCommand.Flags().String(migrateInputFlagNameConstant, "", migrateInputFlagUsageConstant)
	fullCommand.Flags().String(relationshipsInputFlagNameConstant, "", relationshipsInputFlagUsageConstant)
	fullCommand.Flags().String(labelsInputFlagNameConstant, "", labelsInputFlagUsageConstant)
	fullCommand.Flags().String(outputDirectoryFlagNameConstant, "", outputDirectoryFlagUsageConstant)
	fullCommand.Flags().Int(limitFlagNameConstant, 0, limitFlagUsageConstant)

	return []*cobra.Command{extractCommand, mapCommand, migrateCommand, relationshipsCommand, labelsCommand, fullCommand}
}

func (builder *CommandBuilder) runExtract(command *cobra.Command, arguments []string) error {
	if argumentsError := rejectArguments(command, arguments); argumentsError != nil {
		return argumentsError
	}
	outputPath, outputError := builder.requiredPath(command, outputFlagNameConstant)
	if outputError != nil {
		return outputError
	}
	projectID, _ := command.Flags().GetString(projectIDFlagNameConstant)
	limit, _ := command.Flags().GetInt(limitFlagNameConstant)

	operations, serviceError := builder.resolveService(command, true)
	if serviceError != nil {
		return serviceError
	}

	summary, extractError := operations.ExtractIssues(command.Context(), projectID, outputPath, limit)
	if extractError != nil {
		return extractError
	}
	fmt.Fprintf(command.OutOrStdout(), extractSummaryTemplateConstant, summary.Extracted, summary.Output)
	return nil
}

func (builder *CommandBuilder) runMap(command *cobra.Command, arguments []string) error {
	if argumentsError := rejectArguments(command, arguments); argumentsError != nil {
		return argumentsError
	}
	inputPath, inputError := builder.requiredPath(command, inputFlagNameConstant)
	if inputError != nil {
		return inputError
	}
	outputPath, outputError := builder.requiredPath(command, outputFlagNameConstant)
	if outputError != nil {
		return outputError
	}

	operations, serviceError := builder.resolveService(command, false)
	if serviceError != nil {
		return serviceError
	}

	summary, mapError := operations.MapFields(inputPath, outputPath)
	if mapError != nil {
		return mapError
	}
	fmt.Fprintf(command.OutOrStdout(), mapSummaryTemplateConstant, summary.Rows, summary.Sheets, summary.Output)
	return nil
}

func (builder *CommandBuilder) runMigrate(command *cobra.Command, arguments []string) error {
	if argumentsError := rejectArguments(command, arguments); argumentsError != nil {
		return argumentsError
	}
	inputPath, inputError := builder.requiredPath(command, inputFlagNameConstant)
	if inputError != nil {
		return inputError
	}
	resultsPath := builder.optionalPath(command, outputFlagNameConstant)

	operations, serviceError := builder.resolveService(command, true)
	if serviceError != nil {
		return serviceError
	}

	summary, migrateError := operations.MigrateIssues(command.Context(), inputPath, resultsPath)
	printIssueSummary(command.OutOrStdout(), issueSummaryHeaderConstant, summary)
	return migrateError
}

func (builder *CommandBuilder) runRelationships(command *cobra.Command, arguments []string) error {
	if argumentsError := rejectArguments(command, arguments); argumentsError != nil {
		return argumentsError
	}
	inputPath, inputError := builder.requiredPath(command, inputFlagNameConstant)
	if inputError != nil {
		return inputError
	}
	resultsPath := builder.optionalPath(command, outputFlagNameConstant)

	operations, serviceError := builder.resolveService(command, true)
	if serviceError != nil {
		return serviceError
	}

	summary, relationshipsError := operations.MigrateRelationships(command.Context(), inputPath, resultsPath)
	printRelationshipSummary(command.OutOrStdout(), summary)
	return relationshipsError
}

func (builder *CommandBuilder) runLabels(command *cobra.Command, arguments []string) error {
	if argumentsError := rejectArguments(command, arguments); argumentsError != nil {
		return argumentsError
	}
	inputPath, inputError := builder.requiredPath(command, inputFlagNameConstant)
	if inputError != nil {
		return inputError
	}
	summaryPath := builder.optionalPath(command, outputFlagNameConstant)
	owner, _ := command.Flags().GetString(flags.OwnerFlagName)
	repository, _ := command.Flags().GetString(flags.RepositoryFlagName)

	operations, serviceError := builder.resolveService(command, true)
	if serviceError != nil {
		return serviceError
	}

	summary, labelsError := operations.MigrateLabels(command.Context(), inputPath, LabelTarget{
		Owner:      strings.TrimSpace(owner),
		Repository: strings.TrimSpace(repository),
	})
	if labelsError != nil {
		return labelsError
	}
	printLabelSummary(command.OutOrStdout(), summary)

	if len(summaryPath) == 0 {
		return nil
	}
	return writeLabelReport(summaryPath, summary)
}

func (builder *CommandBuilder) runFull(command *cobra.Command, arguments []string) error {
	if argumentsError := rejectArguments(command, arguments); argumentsError != nil {
		return argumentsError
	}
	configuration := builder.resolveConfiguration()

	outputDirectory := builder.optionalPath(command, outputDirectoryFlagNameConstant)
	if len(outputDirectory) == 0 {
		outputDirectory = builder.resolvePath(configuration.Processing.OutputDirectory)
	}
	limit, _ := command.Flags().GetInt(limitFlagNameConstant)

	operations, serviceError := builder.resolveService(command, true)
	if serviceError != nil {
		return serviceError
	}

	summary, runError := operations.RunFull(command.Context(), FullRunRequest{
		OutputDirectory:    outputDirectory,
		MigrateInput:       builder.optionalPath(command, migrateInputFlagNameConstant),
		RelationshipsInput: builder.optionalPath(command, relationshipsInputFlagNameConstant),
		LabelsInput:        builder.optionalPath(command, labelsInputFlagNameConstant),
		Limit:              limit,
	})
	if runError != nil {
		return runError
	}

	output := command.OutOrStdout()
	fmt.Fprintln(output, fullSummaryHeaderConstant)
	fmt.Fprintf(output, fullIssuesTemplateConstant, summary.Issues.Succeeded, summary.Issues.Total)
	if summary.Relationships != nil {
		fmt.Fprintf(output, summaryAddedTemplateConstant, summary.Relationships.RelationshipsAdded)
	}
	return nil
}

func (builder *CommandBuilder) resolveService(command *cobra.Command, requiresToken bool) (Operations, error) {
	dependencies := ServiceDependencies{
		Configuration: builder.resolveConfiguration(),
		Logger:        builder.resolveLogger(),
	}
	if requiresToken && builder.TokenProvider != nil {
		token, tokenError := builder.TokenProvider(command)
		if tokenError != nil {
			return nil, tokenError
		}
		dependencies.Token = token
	}

	serviceProvider := builder.ServiceProvider
	if serviceProvider == nil {
		serviceProvider = NewService
	}
	operations, serviceError := serviceProvider(dependencies)
	if serviceError != nil {
		return nil, fmt.Errorf(serviceCreationErrorTemplateConstant, serviceError)
	}
	return operations, nil
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) resolveConfiguration() Configuration {
	if builder.ConfigurationProvider == nil {
		return Configuration{}.Sanitize()
	}
	return builder.ConfigurationProvider().Sanitize()
}

func (builder *CommandBuilder) requiredPath(command *cobra.Command, flagName string) (string, error) {
	resolvedPath := builder.optionalPath(command, flagName)
	if len(resolvedPath) == 0 {
		return "", fmt.Errorf(requiredFlagErrorTemplateConstant, flagName)
	}
	return resolvedPath, nil
}

func (builder *CommandBuilder) optionalPath(command *cobra.Command, flagName string) string {
	flagValue, _ := command.Flags().GetString(flagName)
	if len(strings.TrimSpace(flagValue)) == 0 {
		return ""
	}
	return builder.resolvePath(flagValue)
}

func (builder *CommandBuilder) resolvePath(candidatePath string) string {
	expander := builder.HomeExpander
	if expander == nil {
		expander = pathutils.NewHomeExpander()
	}
	return expander.Resolve(candidatePath, builder.WorkingDirectory)
}

func rejectArguments(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return fmt.Errorf(unexpectedArgumentsErrorTemplate, command.Name())
	}
	return nil
}

func printIssueSummary(output io.Writer, header string, summary IssueSummary) {
	fmt.Fprintln(output, header)
	fmt.Fprintf(output, summaryTotalTemplateConstant, summary.Total)
	fmt.Fprintf(output, summarySuccessTemplateConstant, summary.Succeeded)
	fmt.Fprintf(output, summaryFailedTemplateConstant, summary.Failed)
	if summary.Skipped > 0 {
		fmt.Fprintf(output, summarySkippedTemplateConstant, summary.Skipped)
	}
	if len(summary.Errors) > 0 {
		fmt.Fprintf(output, summaryErrorsTemplateConstant, len(summary.Errors))
	}
}

func printRelationshipSummary(output io.Writer, summary RelationshipSummary) {
	fmt.Fprintln(output, relationshipSummaryHeaderConstant)
	fmt.Fprintf(output, summaryTotalTemplateConstant, summary.Total)
	fmt.Fprintf(output, summaryAddedTemplateConstant, summary.RelationshipsAdded)
	if len(summary.Errors) > 0 {
		fmt.Fprintf(output, summaryErrorsTemplateConstant, len(summary.Errors))
	}
}

func printLabelSummary(output io.Writer, summary labels.Summary) {
	fmt.Fprintln(output, labelSummaryHeaderConstant)
	fmt.Fprintf(output, summaryTotalTemplateConstant, summary.Total)
	fmt.Fprintf(output, summarySuccessTemplateConstant, summary.Succeeded)
	fmt.Fprintf(output, summaryFailedTemplateConstant, summary.Failed)
}

type labelReport struct {
	Total   int                      `json:"total"`
	Success int                      `json:"success"`
	Failed  int                      `json:"failed"`
	Errors  []string                 `json:"errors"`
	Results map[string]*labels.Label `json:"results"`
}

func writeLabelReport(summaryPath string, summary labels.Summary) error {
	report := labelReport{
		Total:   summary.Total,
		Success: summary.Succeeded,
		Failed:  summary.Failed,
		Errors:  summary.Errors,
		Results: summary.Results,
	}
	if report.Errors == nil {
		report.Errors = []string{}
	}
	encodedReport, encodingError := json.MarshalIndent(report, "", jsonIndentConstant)
	if encodingError != nil {
		return fmt.Errorf(summaryWriteErrorTemplateConstant, summaryPath, encodingError)
	}
	if directoryError := os.MkdirAll(filepath.Dir(summaryPath), outputDirectoryPermissionsConstant); directoryError != nil {
		return fmt.Errorf(summaryWriteErrorTemplateConstant, summaryPath, directoryError)
	}
	if writeError := os.WriteFile(summaryPath, encodedReport, summaryFilePermissionsConstant); writeError != nil {
		return fmt.Errorf(summaryWriteErrorTemplateConstant, summaryPath, writeError)
	}
	return nil
}
