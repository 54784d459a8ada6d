package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/temirov/ghmigrate/internal/githubauth"
	"github.com/temirov/ghmigrate/internal/migrate"
	"github.com/temirov/ghmigrate/internal/utils"
	"github.com/temirov/ghmigrate/internal/utils/flags"
	pathutils "github.com/temirov/ghmigrate/internal/utils/path"
)

const (
	applicationNameConstant                 = "ghmigrate"
	applicationShortDescriptionConstant     = "Migrate issues, labels, and relationships between GitHub projects"
	applicationLongDescriptionConstant      = "ghmigrate extracts issues from a GitHub Projects v2 board, remaps their field values through configurable lookup tables, and recreates them in a target repository and project."
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagUsageConstant               = "Override the configured log level."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagUsageConstant              = "Override the configured log format (structured or console)."
	loggingConfigurationKeyConstant         = "logging"
	loggingLevelConfigKeyConstant           = loggingConfigurationKeyConstant + ".level"
	loggingFormatConfigKeyConstant          = loggingConfigurationKeyConstant + ".format"
	environmentPrefixConstant               = "GHMIGRATE"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	dotEnvFileNameConstant                  = ".env"
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	configurationDryRunFieldConstant        = "dry_run"
	configurationContinueFieldConstant      = "continue_on_error"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	tokenResolutionErrorTemplateConstant    = "unable to resolve GitHub token: %w"
	defaultConfigurationSearchPathConstant  = "."
)

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Logging               LoggingConfiguration `mapstructure:"logging"`
	migrate.Configuration `mapstructure:",squash"`
}

// LoggingConfiguration stores the logger settings.
type LoggingConfiguration struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Application wires the Cobra root command, configuration loader, and structured logger.
type Application struct {
	rootCommand            *cobra.Command
	configurationLoader    *utils.ConfigurationLoader
	loggerFactory          *utils.LoggerFactory
	logger                 *zap.Logger
	configuration          ApplicationConfiguration
	configurationMetadata  utils.LoadedConfiguration
	configurationFilePath  string
	logLevelFlagValue      string
	logFormatFlagValue     string
	tokenFlagValue         string
	executionFlagValues    *flags.ExecutionValues
	tokenResolver          githubauth.TokenResolver
	commandContextAccessor utils.CommandContextAccessor
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		[]string{defaultConfigurationSearchPathConstant},
	)
	configurationLoader.SetEmbeddedConfiguration(EmbeddedDefaultConfiguration())
	configurationLoader.SetDotEnvFiles(dotEnvFileNameConstant)

	application := &Application{
		configurationLoader: configurationLoader,
		loggerFactory:       utils.NewLoggerFactory(),
		logger:              zap.NewNop(),
		tokenResolver: githubauth.TokenResolver{
			DotEnvPaths: []string{dotEnvFileNameConstant},
			Source:      githubauth.NewGitHubCLITokenSource(),
			Prompter:    githubauth.NewTerminalPrompter(),
		},
		commandContextAccessor: utils.NewCommandContextAccessor(),
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}

	cobraCommand.SetContext(context.Background())
	persistentFlagSet := cobraCommand.PersistentFlags()
	persistentFlagSet.StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	flags.AddChoiceFlag(
		persistentFlagSet,
		&application.logLevelFlagValue,
		logLevelFlagNameConstant,
		"",
		[]string{string(utils.LogLevelDebug), string(utils.LogLevelInfo), string(utils.LogLevelWarn), string(utils.LogLevelError)},
		logLevelFlagUsageConstant,
	)
	flags.AddChoiceFlag(
		persistentFlagSet,
		&application.logFormatFlagValue,
		logFormatFlagNameConstant,
		"",
		[]string{string(utils.LogFormatStructured), string(utils.LogFormatConsole)},
		logFormatFlagUsageConstant,
	)
	persistentFlagSet.StringVar(&application.tokenFlagValue, flags.TokenFlagName, "", flags.TokenFlagUsage)
	application.executionFlagValues = flags.BindExecutionFlags(cobraCommand, flags.ExecutionDefaults{ContinueOnError: true})

	migrationBuilder := migrate.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		ConfigurationProvider: func() migrate.Configuration {
			return application.configuration.Configuration
		},
		TokenProvider: application.resolveToken,
		HomeExpander:  pathutils.NewHomeExpander(),
	}
	if workingDirectory, workingDirectoryError := os.Getwd(); workingDirectoryError == nil {
		migrationBuilder.WorkingDirectory = workingDirectory
	}
	cobraCommand.AddCommand(migrationBuilder.Build()...)

	application.rootCommand = cobraCommand

	return application
}

// Run executes the command hierarchy with the provided arguments and flushes the logger.
func (application *Application) Run(arguments []string) error {
	normalizedArguments := flags.NormalizeToggleArguments(application.rootCommand.PersistentFlags(), arguments)
	application.rootCommand.SetArgs(normalizedArguments)

	executionError := application.rootCommand.Execute()
	if syncError := application.flushLogger(); syncError != nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// Execute runs the command hierarchy against the process arguments.
func (application *Application) Execute() error {
	return application.Run(os.Args[1:])
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	defaultValues := map[string]any{
		loggingLevelConfigKeyConstant:  string(utils.LogLevelInfo),
		loggingFormatConfigKeyConstant: string(utils.LogFormatStructured),
	}
	for configurationKey, configurationValue := range migrate.DefaultConfigurationValues() {
		defaultValues[configurationKey] = configurationValue
	}

	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(application.configurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}

	application.configurationMetadata = loadedConfiguration

	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Logging.Level = application.logLevelFlagValue
	}
	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Logging.Format = application.logFormatFlagValue
	}
	if application.persistentFlagChanged(command, flags.DryRunFlagName) {
		application.configuration.Processing.DryRun = application.executionFlagValues.DryRun
	}
	if application.persistentFlagChanged(command, flags.ContinueOnErrorFlagName) {
		application.configuration.Processing.ContinueOnError = application.executionFlagValues.ContinueOnError
	}

	logLevel, logLevelError := utils.ParseLogLevel(application.configuration.Logging.Level)
	if logLevelError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, logLevelError)
	}
	logFormat, logFormatError := utils.ParseLogFormat(application.configuration.Logging.Format)
	if logFormatError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, logFormatError)
	}

	logger, loggerCreationError := application.loggerFactory.CreateLogger(logLevel, logFormat)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}

	application.logger = logger

	application.logger.Info(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, string(logLevel)),
		zap.String(configurationLogFormatFieldConstant, string(logFormat)),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
		zap.Bool(configurationDryRunFieldConstant, application.configuration.Processing.DryRun),
		zap.Bool(configurationContinueFieldConstant, application.configuration.Processing.ContinueOnError),
	)

	if command != nil {
		updatedContext := application.commandContextAccessor.WithConfigurationFilePath(
			command.Context(),
			application.configurationMetadata.ConfigFileUsed,
		)
		updatedContext = application.commandContextAccessor.WithLogLevel(updatedContext, logLevel)
		command.SetContext(updatedContext)
		if rootCommand := command.Root(); rootCommand != nil {
			rootCommand.SetContext(updatedContext)
		}
	}

	return nil
}

func (application *Application) resolveToken(command *cobra.Command) (string, error) {
	token, resolutionError := application.tokenResolver.Resolve(application.tokenFlagValue)
	if resolutionError != nil {
		return "", fmt.Errorf(tokenResolutionErrorTemplateConstant, resolutionError)
	}
	return token, nil
}

func (application *Application) flushLogger() error {
	if syncError := application.syncLoggerInstance(application.logger); syncError != nil {
		return syncError
	}
	return nil
}

func (application *Application) syncLoggerInstance(logger *zap.Logger) error {
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

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSetsToInspect := []*pflag.FlagSet{
		command.PersistentFlags(),
		command.InheritedFlags(),
	}

	rootCommand := command.Root()
	if rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}

	for _, flagSet := range flagSetsToInspect {
		if flagSet == nil {
			continue
		}

		if flagSet.Changed(flagName) {
			return true
		}
	}

	return false
}
