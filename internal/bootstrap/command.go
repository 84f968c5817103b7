package bootstrap

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sebastiken/tsrc/internal/dependencies"
	"github.com/sebastiken/tsrc/internal/shared"
	"github.com/sebastiken/tsrc/internal/syncer"
	"github.com/sebastiken/tsrc/internal/utils/flags"
	pathutils "github.com/sebastiken/tsrc/internal/utils/path"
)

const (
	commandUseConstant                 = "init <manifest-url>"
	commandShortDescriptionConstant    = "Initialize a workspace from a manifest"
	commandLongDescriptionConstant     = "init records the manifest source beneath the workspace state directory, clones the manifest repository into the mirror (or links a local manifest file), and runs a first synchronization so every selected repository is cloned immediately. Re-initializing an existing workspace is an error."
	branchFlagNameConstant             = "branch"
	branchFlagUsageConstant            = "Manifest branch to track"
	localManifestFlagNameConstant      = "path"
	localManifestFlagUsageConstant     = "Use a local manifest file instead of cloning a manifest repository"
	initializedMessageTemplateConstant = "Workspace initialized at %s\n"
	reportLineTemplateConstant         = "%s\n"
)

// WorkspaceInitializer initializes one workspace on behalf of the command.
type WorkspaceInitializer interface {
	Initialize(executionContext context.Context, options Options) (syncer.Summary, error)
}

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ServiceProvider constructs a workspace initializer from dependencies.
type ServiceProvider func(dependencies ServiceDependencies) (WorkspaceInitializer, error)

// CommandBuilder assembles the init Cobra command.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	GitExecutor                  shared.GitExecutor
	FileSystem                   shared.FileSystem
	RepositoryManager            shared.WorkspaceRepositoryManager
	Prompter                     shared.ConfirmationPrompter
	Synchronizer                 syncer.WorkspaceSynchronizer
	ServiceProvider              ServiceProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() CommandConfiguration
}

// Build constructs the init command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           commandUseConstant,
		Short:         commandShortDescriptionConstant,
		Long:          commandLongDescriptionConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.MaximumNArgs(1),
		RunE:          builder.runInit,
	}

	flags.BindWorkspaceFlags(command, flags.WorkspaceFlagValues{}, flags.WorkspaceFlagDefinitions{
		Root:   flags.WorkspaceFlagDefinition{Enabled: true},
		Groups: flags.WorkspaceFlagDefinition{Enabled: true},
	})
	flags.BindJobsFlag(command, defaultJobCountConstant)
	command.Flags().String(branchFlagNameConstant, "", branchFlagUsageConstant)
	command.Flags().String(localManifestFlagNameConstant, "", localManifestFlagUsageConstant)

	return command, nil
}

func (builder *CommandBuilder) runInit(command *cobra.Command, arguments []string) error {
	options, optionsError := builder.parseOptions(command, arguments)
	if optionsError != nil {
		return optionsError
	}

	logger := builder.resolveLogger()

	gitExecutor, executorError := dependencies.ResolveGitExecutor(builder.GitExecutor, logger, builder.humanReadableLoggingEnabled())
	if executorError != nil {
		return executorError
	}
	repositoryManager, managerError := dependencies.ResolveRepositoryManager(builder.RepositoryManager, gitExecutor)
	if managerError != nil {
		return managerError
	}
	fileSystem := dependencies.ResolveFileSystem(builder.FileSystem)
	prompter := dependencies.ResolveConfirmationPrompter(builder.Prompter)

	if len(options.LocalManifestPath) > 0 {
		absoluteManifestPath, absoluteError := fileSystem.Abs(options.LocalManifestPath)
		if absoluteError != nil {
			return absoluteError
		}
		options.LocalManifestPath = absoluteManifestPath
	}

	synchronizer, synchronizerError := builder.resolveSynchronizer(syncer.SyncDependencies{
		Logger:            logger,
		FileSystem:        fileSystem,
		RepositoryManager: repositoryManager,
		Prompter:          prompter,
	})
	if synchronizerError != nil {
		return synchronizerError
	}

	initializer, serviceError := builder.resolveService(ServiceDependencies{
		Logger:            logger,
		FileSystem:        fileSystem,
		RepositoryManager: repositoryManager,
		Synchronizer:      synchronizer,
	})
	if serviceError != nil {
		return serviceError
	}

	summary, initializeError := initializer.Initialize(command.Context(), options)
	if initializeError != nil {
		return initializeError
	}

	reporter := shared.NewWriterReporter(command.OutOrStdout())
	reporter.Printf(initializedMessageTemplateConstant, options.WorkspaceRoot)
	for _, summaryLine := range syncer.FormatSummary(summary) {
		reporter.Printf(reportLineTemplateConstant, summaryLine)
	}
	if summary.HasFailures() {
		return syncer.ErrRepositoriesFailed
	}
	return nil
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command, arguments []string) (Options, error) {
	configuration := builder.resolveConfiguration()

	workspaceRoot := configuration.WorkspaceRoot
	manifestBranch := configuration.ManifestBranch
	groupNames := configuration.GroupNames
	jobCount := configuration.JobCount
	manifestURL := ""
	localManifestPath := ""

	if len(arguments) > 0 {
		manifestURL = strings.TrimSpace(arguments[0])
	}

	if command != nil {
		if command.Flags().Changed(flags.WorkspaceRootFlagName) {
			flagValue, _ := command.Flags().GetString(flags.WorkspaceRootFlagName)
			workspaceRoot = flagValue
		}
		if command.Flags().Changed(flags.GroupFlagName) {
			flagValues, _ := command.Flags().GetStringSlice(flags.GroupFlagName)
			groupNames = flagValues
		}
		if command.Flags().Changed(flags.JobsFlagName) {
			flagValue, _ := command.Flags().GetInt(flags.JobsFlagName)
			jobCount = flagValue
		}
		if command.Flags().Changed(branchFlagNameConstant) {
			flagValue, _ := command.Flags().GetString(branchFlagNameConstant)
			manifestBranch = flagValue
		}
		flagValue, _ := command.Flags().GetString(localManifestFlagNameConstant)
		localManifestPath = flagValue
	}

	resolvedRoot, rootError := pathutils.NewWorkspaceRootResolver().Resolve(workspaceRoot)
	if rootError != nil {
		return Options{}, rootError
	}

	return Options{
		WorkspaceRoot:     resolvedRoot,
		ManifestURL:       manifestURL,
		ManifestBranch:    strings.TrimSpace(manifestBranch),
		LocalManifestPath: strings.TrimSpace(localManifestPath),
		GroupNames:        sanitizeGroupNames(groupNames),
		JobCount:          jobCount,
	}, nil
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider != nil {
		if logger := builder.LoggerProvider(); logger != nil {
			return logger
		}
	}
	return zap.NewNop()
}

func (builder *CommandBuilder) humanReadableLoggingEnabled() bool {
	if builder.HumanReadableLoggingProvider != nil {
		return builder.HumanReadableLoggingProvider()
	}
	return false
}

func (builder *CommandBuilder) resolveSynchronizer(syncDependencies syncer.SyncDependencies) (syncer.WorkspaceSynchronizer, error) {
	if builder.Synchronizer != nil {
		return builder.Synchronizer, nil
	}
	return syncer.NewSyncService(syncDependencies)
}

func (builder *CommandBuilder) resolveService(serviceDependencies ServiceDependencies) (WorkspaceInitializer, error) {
	if builder.ServiceProvider != nil {
		return builder.ServiceProvider(serviceDependencies)
	}
	return NewService(serviceDependencies)
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}
