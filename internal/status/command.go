package status

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sebastiken/tsrc/internal/dependencies"
	"github.com/sebastiken/tsrc/internal/shared"
	"github.com/sebastiken/tsrc/internal/utils/flags"
	pathutils "github.com/sebastiken/tsrc/internal/utils/path"
)

const (
	commandUseConstant                = "status"
	commandShortDescriptionConstant   = "Show the status of workspace repositories"
	commandLongDescriptionConstant    = "status probes every repository selected by the workspace manifest and prints one line per repository: checked-out reference, divergence from upstream, uncommitted changes, and drift from the manifest target. No remote is contacted."
	showCommitHashesFlagNameConstant  = "show-sha1"
	showCommitHashesFlagUsageConstant = "Show commit hashes next to branch names"
	reportLineTemplateConstant        = "%s\n"
)

// StatusCollector collects repository statuses on behalf of the command.
type StatusCollector interface {
	Collect(executionContext context.Context, options Options) ([]RepositoryStatus, error)
}

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ServiceProvider constructs a status collector from dependencies.
type ServiceProvider func(dependencies ServiceDependencies) (StatusCollector, error)

type commandOptions struct {
	collectOptions   Options
	showCommitHashes bool
}

// CommandBuilder assembles the status Cobra command.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	GitExecutor                  shared.GitExecutor
	FileSystem                   shared.FileSystem
	RepositoryManager            shared.WorkspaceRepositoryManager
	ServiceProvider              ServiceProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() CommandConfiguration
}

// Build constructs the status command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           commandUseConstant,
		Short:         commandShortDescriptionConstant,
		Long:          commandLongDescriptionConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE:          builder.runStatus,
	}

	flags.BindWorkspaceFlags(command, flags.WorkspaceFlagValues{}, flags.WorkspaceFlagDefinitions{
		Root:   flags.WorkspaceFlagDefinition{Enabled: true},
		Groups: flags.WorkspaceFlagDefinition{Enabled: true},
	})
	flags.BindJobsFlag(command, defaultJobCountConstant)
	command.Flags().Bool(showCommitHashesFlagNameConstant, false, showCommitHashesFlagUsageConstant)

	return command, nil
}

func (builder *CommandBuilder) runStatus(command *cobra.Command, arguments []string) error {
	options, optionsError := builder.parseOptions(command)
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

	collector, serviceError := builder.resolveService(ServiceDependencies{
		Logger:            logger,
		FileSystem:        fileSystem,
		RepositoryManager: repositoryManager,
	})
	if serviceError != nil {
		return serviceError
	}

	statuses, collectError := collector.Collect(command.Context(), options.collectOptions)
	if collectError != nil {
		return collectError
	}

	reporter := shared.NewWriterReporter(command.OutOrStdout())
	for _, reportLine := range FormatReport(statuses, options.showCommitHashes) {
		reporter.Printf(reportLineTemplateConstant, reportLine)
	}
	return nil
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command) (commandOptions, error) {
	configuration := builder.resolveConfiguration()

	workspaceRoot := configuration.WorkspaceRoot
	groupNames := configuration.GroupNames
	jobCount := configuration.JobCount
	showCommitHashes := false

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
		showCommitHashes, _ = command.Flags().GetBool(showCommitHashesFlagNameConstant)
	}

	resolvedRoot, rootError := pathutils.NewWorkspaceRootResolver().Locate(workspaceRoot)
	if rootError != nil {
		return commandOptions{}, rootError
	}

	return commandOptions{
		collectOptions: Options{
			WorkspaceRoot: resolvedRoot,
			GroupNames:    sanitizeGroupNames(groupNames),
			JobCount:      jobCount,
		},
		showCommitHashes: showCommitHashes,
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

func (builder *CommandBuilder) resolveService(serviceDependencies ServiceDependencies) (StatusCollector, error) {
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
