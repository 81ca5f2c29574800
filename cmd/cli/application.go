package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/temirov/upkeep/internal/branches"
	"github.com/temirov/upkeep/internal/branches/refresh"
	"github.com/temirov/upkeep/internal/gitrepo"
	"github.com/temirov/upkeep/internal/upkeep"
	"github.com/temirov/upkeep/internal/utils"
	flagutils "github.com/temirov/upkeep/internal/utils/flags"
)

const (
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagUsageConstant               = "Override the configured log level."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagUsageConstant              = "Override the configured log format."
	commonConfigurationKeyConstant          = "common"
	commonLogLevelConfigKeyConstant         = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant        = commonConfigurationKeyConstant + ".log_format"
	toolsConfigurationKeyConstant           = "tools"
	upkeepConfigurationKeyConstant          = toolsConfigurationKeyConstant + ".upkeep"
	environmentPrefixConstant               = "UPKEEP"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	defaultConfigurationSearchPathConstant  = "."
	userConfigurationSearchPathConstant     = "~/.config/upkeep"
	configurationInitializedMessageConstant = "configuration initialized"
	repositoryDiscoveredMessageConstant     = "repository discovered"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	repositoryRootFieldConstant             = "repository_root"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	workingDirectoryErrorTemplateConstant   = "unable to determine working directory: %w"
	repositoryCloseErrorTemplateConstant    = "unable to close repository: %w"
	commandBuildErrorTemplateConstant       = "unable to build command: %w"
	skipRepositoryDiscoveryAnnotation       = "upkeep/skip-repository-discovery"
	annotationEnabledValueConstant          = "true"
)

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common ApplicationCommonConfiguration `mapstructure:"common" yaml:"common"`
	Tools  ApplicationToolsConfiguration  `mapstructure:"tools" yaml:"tools"`
}

// ApplicationCommonConfiguration stores logging configuration shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// ApplicationToolsConfiguration holds per-tool configuration sections.
type ApplicationToolsConfiguration struct {
	Upkeep upkeep.CommandConfiguration `mapstructure:"upkeep" yaml:"upkeep"`
}

// WorkingDirectoryProvider reports the directory repository discovery starts from.
type WorkingDirectoryProvider func() (string, error)

// RepositoryDiscoverer opens the repository enclosing a path.
type RepositoryDiscoverer func(path string) (*gitrepo.Repository, error)

// Application wires the Cobra root command, configuration loader, and structured logger.
type Application struct {
	rootCommand              *cobra.Command
	configurationLoader      *utils.ConfigurationLoader
	loggerFactory            *utils.LoggerFactory
	logger                   *zap.Logger
	configuration            ApplicationConfiguration
	configurationMetadata    utils.LoadedConfiguration
	configurationFilePath    string
	logLevelFlagValue        string
	logFormatFlagValue       string
	commandContextAccessor   utils.CommandContextAccessor
	workingDirectoryProvider WorkingDirectoryProvider
	repositoryDiscoverer     RepositoryDiscoverer
	repository               *gitrepo.Repository
	buildError               error
}

// ApplicationOption customizes an Application.
type ApplicationOption func(application *Application)

// WithWorkingDirectoryProvider overrides where repository discovery starts.
func WithWorkingDirectoryProvider(provider WorkingDirectoryProvider) ApplicationOption {
	return func(application *Application) {
		if provider != nil {
			application.workingDirectoryProvider = provider
		}
	}
}

// WithRepositoryDiscoverer overrides how the repository is opened.
func WithRepositoryDiscoverer(discoverer RepositoryDiscoverer) ApplicationOption {
	return func(application *Application) {
		if discoverer != nil {
			application.repositoryDiscoverer = discoverer
		}
	}
}

// WithLoggerFactory overrides where diagnostic logs are written.
func WithLoggerFactory(factory *utils.LoggerFactory) ApplicationOption {
	return func(application *Application) {
		if factory != nil {
			application.loggerFactory = factory
		}
	}
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication(options ...ApplicationOption) *Application {
	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		[]string{defaultConfigurationSearchPathConstant, userConfigurationSearchPathConstant},
	)
	configurationLoader.SetEmbeddedConfiguration(EmbeddedDefaultConfiguration())

	application := &Application{
		configurationLoader:      configurationLoader,
		loggerFactory:            utils.NewLoggerFactory(),
		logger:                   zap.NewNop(),
		commandContextAccessor:   utils.NewCommandContextAccessor(),
		workingDirectoryProvider: os.Getwd,
		repositoryDiscoverer:     gitrepo.Discover,
	}
	for _, option := range options {
		option(application)
	}

	loggerProvider := func() *zap.Logger {
		return application.logger
	}

	upkeepBuilder := &upkeep.CommandBuilder{
		LoggerProvider:               loggerProvider,
		HumanReadableLoggingProvider: application.humanReadableLoggingEnabled,
		ConfigurationProvider: func() upkeep.CommandConfiguration {
			return application.configuration.Tools.Upkeep
		},
	}
	refreshBuilder := &refresh.CommandBuilder{
		LoggerProvider:               loggerProvider,
		HumanReadableLoggingProvider: application.humanReadableLoggingEnabled,
		ConfigurationProvider: func() refresh.CommandConfiguration {
			return application.configuration.Tools.Upkeep.Refresh
		},
	}
	pruneBuilder := &branches.CommandBuilder{
		LoggerProvider: loggerProvider,
		ConfigurationProvider: func() branches.CommandConfiguration {
			return application.configuration.Tools.Upkeep.Branches
		},
	}
	configurationBuilder := &ConfigurationCommandBuilder{
		ConfigurationProvider: func() ApplicationConfiguration {
			return application.configuration
		},
	}

	rootCommand, buildError := assembleCommandTree(upkeepBuilder, refreshBuilder, pruneBuilder, configurationBuilder)
	if buildError != nil {
		application.buildError = buildError
		return application
	}

	rootCommand.PersistentPreRunE = func(command *cobra.Command, arguments []string) error {
		return application.initializeConfiguration(command)
	}
	rootCommand.SetContext(context.Background())
	rootCommand.PersistentFlags().StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	rootCommand.PersistentFlags().StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", flagutils.FormatChoiceUsage(string(utils.LogLevelWarn), utils.SupportedLogLevels(), logLevelFlagUsageConstant))
	rootCommand.PersistentFlags().StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", flagutils.FormatChoiceUsage(string(utils.LogFormatConsole), utils.SupportedLogFormats(), logFormatFlagUsageConstant))
	flagutils.BindExecutionFlags(rootCommand, flagutils.ExecutionDefaults{})

	application.rootCommand = rootCommand
	return application
}

type commandBuilder interface {
	Build() (*cobra.Command, error)
}

// assembleCommandTree builds the root command and attaches every subcommand, failing on the first build error.
func assembleCommandTree(rootBuilder commandBuilder, subcommandBuilders ...commandBuilder) (*cobra.Command, error) {
	rootCommand, rootBuildError := rootBuilder.Build()
	if rootBuildError != nil {
		return nil, fmt.Errorf(commandBuildErrorTemplateConstant, rootBuildError)
	}
	for _, subcommandBuilder := range subcommandBuilders {
		subcommand, subcommandBuildError := subcommandBuilder.Build()
		if subcommandBuildError != nil {
			return nil, fmt.Errorf(commandBuildErrorTemplateConstant, subcommandBuildError)
		}
		rootCommand.AddCommand(subcommand)
	}
	return rootCommand, nil
}

// RootCommand exposes the Cobra root command. It is nil when the command tree failed to build.
func (application *Application) RootCommand() *cobra.Command {
	return application.rootCommand
}

// Execute runs the configured Cobra command hierarchy, then releases the repository and flushes the logger.
func (application *Application) Execute() error {
	if application.buildError != nil {
		return application.buildError
	}
	executionError := application.rootCommand.Execute()
	if application.repository != nil {
		if closeError := application.repository.Close(); closeError != nil && executionError == nil {
			executionError = fmt.Errorf(repositoryCloseErrorTemplateConstant, closeError)
		}
	}
	if syncError := utils.SyncLogger(application.logger); syncError != nil && executionError == nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:  string(utils.LogLevelWarn),
		commonLogFormatConfigKeyConstant: string(utils.LogFormatConsole),
	}
	for configurationKey, configurationValue := range upkeep.DefaultConfigurationValues(upkeepConfigurationKeyConstant) {
		defaultValues[configurationKey] = configurationValue
	}

	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(application.configurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}
	application.configurationMetadata = loadedConfiguration

	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}
	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}

	if validationError := flagutils.ValidateChoice(logLevelFlagNameConstant, application.configuration.Common.LogLevel, utils.SupportedLogLevels()); validationError != nil {
		return validationError
	}
	if validationError := flagutils.ValidateChoice(logFormatFlagNameConstant, application.configuration.Common.LogFormat, utils.SupportedLogFormats()); validationError != nil {
		return validationError
	}

	logger, loggerCreationError := application.loggerFactory.CreateLogger(
		utils.LogLevel(application.configuration.Common.LogLevel),
		utils.LogFormat(application.configuration.Common.LogFormat),
	)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}
	application.logger = logger

	application.logger.Info(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
	)

	executionContext := application.commandContextAccessor.WithConfigurationFilePath(
		command.Context(),
		application.configurationMetadata.ConfigFileUsed,
	)

	if requiresRepository(command) {
		repository, discoveryError := application.discoverRepository()
		if discoveryError != nil {
			return discoveryError
		}
		executionContext = application.commandContextAccessor.WithRepository(executionContext, repository)
	}

	command.SetContext(executionContext)
	return nil
}

func (application *Application) discoverRepository() (*gitrepo.Repository, error) {
	workingDirectory, workingDirectoryError := application.workingDirectoryProvider()
	if workingDirectoryError != nil {
		return nil, fmt.Errorf(workingDirectoryErrorTemplateConstant, workingDirectoryError)
	}

	repository, discoveryError := application.repositoryDiscoverer(workingDirectory)
	if discoveryError != nil {
		return nil, discoveryError
	}
	application.repository = repository

	application.logger.Debug(repositoryDiscoveredMessageConstant, zap.String(repositoryRootFieldConstant, repository.RootPath()))
	return repository, nil
}

func requiresRepository(command *cobra.Command) bool {
	return command.Annotations[skipRepositoryDiscoveryAnnotation] != annotationEnabledValueConstant
}

func (application *Application) humanReadableLoggingEnabled() bool {
	logFormatValue := strings.TrimSpace(application.configuration.Common.LogFormat)
	return strings.EqualFold(logFormatValue, string(utils.LogFormatConsole))
}

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSetsToInspect := []*pflag.FlagSet{
		command.PersistentFlags(),
		command.InheritedFlags(),
	}
	if rootCommand := command.Root(); rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}

	for _, flagSet := range flagSetsToInspect {
		if flagSet != nil && flagSet.Changed(flagName) {
			return true
		}
	}
	return false
}
