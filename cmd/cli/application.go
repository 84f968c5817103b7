package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/sebastiken/tsrc/internal/bootstrap"
	"github.com/sebastiken/tsrc/internal/snapshot"
	"github.com/sebastiken/tsrc/internal/status"
	"github.com/sebastiken/tsrc/internal/syncer"
	"github.com/sebastiken/tsrc/internal/utils"
	flagutils "github.com/sebastiken/tsrc/internal/utils/flags"
)

const (
	applicationNameConstant                        = "tsrc"
	applicationShortDescriptionConstant            = "Synchronize a workspace of git repositories from a manifest"
	applicationLongDescriptionConstant             = "tsrc keeps a workspace of git repositories aligned with a declarative manifest, from first clone through ongoing branch updates and drift reporting."
	configFileFlagNameConstant                     = "config"
	configFileFlagUsageConstant                    = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant                       = "log-level"
	logLevelFlagUsageConstant                      = "Override the configured log level."
	logFormatFlagNameConstant                      = "log-format"
	logFormatFlagUsageConstant                     = "Override the configured log format (structured or console)."
	commonConfigurationKeyConstant                 = "common"
	commonLogLevelConfigKeyConstant                = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant               = commonConfigurationKeyConstant + ".log_format"
	environmentPrefixConstant                      = "TSRC"
	configurationNameConstant                      = "config"
	configurationTypeConstant                      = "yaml"
	configurationSearchPathEnvironmentNameConstant = "TSRC_CONFIG_SEARCH_PATH"
	configurationInitializedMessageConstant        = "configuration initialized"
	configurationLogLevelFieldConstant             = "log_level"
	configurationLogFormatFieldConstant            = "log_format"
	configurationFileFieldConstant                 = "config_file"
	configurationLoadErrorTemplateConstant         = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant            = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant                = "unable to flush logger: %w"
	rootCommandInfoMessageConstant                 = "tsrc CLI executed"
	rootCommandDebugMessageConstant                = "tsrc CLI diagnostics"
	logFieldCommandNameConstant                    = "command_name"
	logFieldArgumentCountConstant                  = "argument_count"
	logFieldArgumentsConstant                      = "arguments"
	loggerNotInitializedMessageConstant            = "logger not initialized"
	defaultConfigurationSearchPathConstant         = "."
	toolsConfigurationKeyConstant                  = "tools"
	initConfigurationKeyConstant                   = toolsConfigurationKeyConstant + ".init"
	syncConfigurationKeyConstant                   = toolsConfigurationKeyConstant + ".sync"
	statusConfigurationKeyConstant                 = toolsConfigurationKeyConstant + ".status"
	snapshotConfigurationKeyConstant               = toolsConfigurationKeyConstant + ".snapshot"
	restoreConfigurationKeyConstant                = toolsConfigurationKeyConstant + ".restore"
	versionFlagArgumentConstant                    = "--version"
	versionOutputTemplateConstant                  = "%s version: %s\n"
	fallbackVersionConstant                        = "dev"
)

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common ApplicationCommonConfiguration `mapstructure:"common"`
	Tools  ApplicationToolsConfiguration  `mapstructure:"tools"`
}

// ApplicationCommonConfiguration stores logging configuration shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// ApplicationToolsConfiguration holds configuration for CLI subcommands grouped by tool.
type ApplicationToolsConfiguration struct {
	Init     bootstrap.CommandConfiguration       `mapstructure:"init"`
	Sync     syncer.CommandConfiguration          `mapstructure:"sync"`
	Status   status.CommandConfiguration          `mapstructure:"status"`
	Snapshot snapshot.CommandConfiguration        `mapstructure:"snapshot"`
	Restore  snapshot.RestoreCommandConfiguration `mapstructure:"restore"`
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
	commandContextAccessor utils.CommandContextAccessor
	versionResolver        func(context.Context) string
	exitFunction           func(int)
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	searchPaths := []string{defaultConfigurationSearchPathConstant}
	if environmentSearchPath := strings.TrimSpace(os.Getenv(configurationSearchPathEnvironmentNameConstant)); len(environmentSearchPath) > 0 {
		searchPaths = []string{environmentSearchPath}
	}

	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		searchPaths,
	)

	embeddedConfiguration, embeddedConfigurationType := EmbeddedDefaultConfiguration()
	configurationLoader.SetEmbeddedConfiguration(embeddedConfiguration, embeddedConfigurationType)

	application := &Application{
		configurationLoader:    configurationLoader,
		loggerFactory:          utils.NewLoggerFactory(),
		logger:                 zap.NewNop(),
		commandContextAccessor: utils.NewCommandContextAccessor(),
		versionResolver:        defaultVersionResolver,
		exitFunction:           os.Exit,
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
			return application.runRootCommand(command, arguments)
		},
	}

	cobraCommand.SetContext(context.Background())
	cobraCommand.PersistentFlags().StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", logFormatFlagUsageConstant)

	initBuilder := bootstrap.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		HumanReadableLoggingProvider: application.humanReadableLoggingEnabled,
		ConfigurationProvider: func() bootstrap.CommandConfiguration {
			return application.configuration.Tools.Init
		},
	}
	initCommand, initBuildError := initBuilder.Build()
	if initBuildError == nil {
		cobraCommand.AddCommand(initCommand)
	}

	syncBuilder := syncer.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		HumanReadableLoggingProvider: application.humanReadableLoggingEnabled,
		ConfigurationProvider: func() syncer.CommandConfiguration {
			return application.configuration.Tools.Sync
		},
	}
	syncCommand, syncBuildError := syncBuilder.Build()
	if syncBuildError == nil {
		cobraCommand.AddCommand(syncCommand)
	}

	statusBuilder := status.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		HumanReadableLoggingProvider: application.humanReadableLoggingEnabled,
		ConfigurationProvider: func() status.CommandConfiguration {
			return application.configuration.Tools.Status
		},
	}
	statusCommand, statusBuildError := statusBuilder.Build()
	if statusBuildError == nil {
		cobraCommand.AddCommand(statusCommand)
	}

	snapshotBuilder := snapshot.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		HumanReadableLoggingProvider: application.humanReadableLoggingEnabled,
		ConfigurationProvider: func() snapshot.CommandConfiguration {
			return application.configuration.Tools.Snapshot
		},
	}
	snapshotCommand, snapshotBuildError := snapshotBuilder.Build()
	if snapshotBuildError == nil {
		cobraCommand.AddCommand(snapshotCommand)
	}

	restoreBuilder := snapshot.RestoreCommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		HumanReadableLoggingProvider: application.humanReadableLoggingEnabled,
		ConfigurationProvider: func() snapshot.RestoreCommandConfiguration {
			return application.configuration.Tools.Restore
		},
	}
	restoreCommand, restoreBuildError := restoreBuilder.Build()
	if restoreBuildError == nil {
		cobraCommand.AddCommand(restoreCommand)
	}

	application.rootCommand = cobraCommand

	return application
}

// Execute runs the configured Cobra command hierarchy and ensures logger flushing.
func (application *Application) Execute() error {
	commandArguments := os.Args[1:]
	if len(commandArguments) > 0 && commandArguments[0] == versionFlagArgumentConstant {
		fmt.Printf(versionOutputTemplateConstant, applicationNameConstant, application.versionResolver(application.rootCommand.Context()))
		application.exitFunction(0)
		return nil
	}

	application.rootCommand.SetArgs(flagutils.NormalizeToggleArguments(commandArguments))

	executionError := application.rootCommand.Execute()
	if syncError := application.flushLogger(); syncError != nil {
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
		commonLogLevelConfigKeyConstant:  string(utils.LogLevelInfo),
		commonLogFormatConfigKeyConstant: string(utils.LogFormatStructured),
	}
	for configurationKey, configurationValue := range bootstrap.DefaultConfigurationValues(initConfigurationKeyConstant) {
		defaultValues[configurationKey] = configurationValue
	}
	for configurationKey, configurationValue := range syncer.DefaultConfigurationValues(syncConfigurationKeyConstant) {
		defaultValues[configurationKey] = configurationValue
	}
	for configurationKey, configurationValue := range status.DefaultConfigurationValues(statusConfigurationKeyConstant) {
		defaultValues[configurationKey] = configurationValue
	}
	for configurationKey, configurationValue := range snapshot.DefaultConfigurationValues(snapshotConfigurationKeyConstant) {
		defaultValues[configurationKey] = configurationValue
	}
	for configurationKey, configurationValue := range snapshot.DefaultRestoreConfigurationValues(restoreConfigurationKeyConstant) {
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

	loggerInstance, loggerCreationError := application.loggerFactory.CreateLogger(
		utils.LogLevel(application.configuration.Common.LogLevel),
		utils.LogFormat(application.configuration.Common.LogFormat),
	)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}

	application.logger = loggerInstance

	application.logger.Info(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
	)

	if command != nil {
		updatedContext := application.commandContextAccessor.WithConfigurationFilePath(
			command.Context(),
			application.configurationMetadata.ConfigFileUsed,
		)
		command.SetContext(updatedContext)
		if rootCommand := command.Root(); rootCommand != nil {
			rootCommand.SetContext(updatedContext)
		}
	}

	return nil
}

func (application *Application) humanReadableLoggingEnabled() bool {
	logFormatValue := strings.TrimSpace(application.configuration.Common.LogFormat)
	return strings.EqualFold(logFormatValue, string(utils.LogFormatConsole))
}

func (application *Application) runRootCommand(command *cobra.Command, arguments []string) error {
	if application.logger == nil {
		return errors.New(loggerNotInitializedMessageConstant)
	}

	application.logger.Info(
		rootCommandInfoMessageConstant,
		zap.String(logFieldCommandNameConstant, command.Name()),
		zap.Int(logFieldArgumentCountConstant, len(arguments)),
	)

	application.logger.Debug(
		rootCommandDebugMessageConstant,
		zap.Strings(logFieldArgumentsConstant, arguments),
	)

	if len(arguments) == 0 {
		return command.Help()
	}

	return nil
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

func defaultVersionResolver(_ context.Context) string {
	buildInformation, buildInformationAvailable := debug.ReadBuildInfo()
	if buildInformationAvailable {
		resolvedVersion := strings.TrimSpace(buildInformation.Main.Version)
		if len(resolvedVersion) > 0 {
			return resolvedVersion
		}
	}
	return fallbackVersionConstant
}
