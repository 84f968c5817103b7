package snapshot

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sebastiken/tsrc/internal/dependencies"
	"github.com/sebastiken/tsrc/internal/shared"
	"github.com/sebastiken/tsrc/internal/syncer"
	"github.com/sebastiken/tsrc/internal/utils/flags"
	pathutils "github.com/sebastiken/tsrc/internal/utils/path"
)

const (
	restoreCommandUseConstant              = "restore <manifest-file>"
	restoreCommandShortDescriptionConstant = "Restore the workspace from a snapshot manifest"
	restoreCommandLongDescriptionConstant  = "restore replays a captured manifest through the synchronization pipeline. Missing repositories are cloned and present ones are moved to the pinned references recorded in the snapshot."
	restoreReportLineTemplateConstant      = "%s\n"
)

// WorkspaceRestorer replays a manifest file through the synchronization pipeline.
type WorkspaceRestorer interface {
	Restore(executionContext context.Context, manifestFilePath string, options syncer.SyncOptions) (syncer.Summary, error)
}

// RestoreServiceProvider constructs a workspace restorer from dependencies.
type RestoreServiceProvider func(dependencies syncer.SyncDependencies) (WorkspaceRestorer, error)

// RestoreCommandBuilder assembles the restore Cobra command.
type RestoreCommandBuilder struct {
	LoggerProvider               LoggerProvider
	GitExecutor                  shared.GitExecutor
	FileSystem                   shared.FileSystem
	RepositoryManager            shared.WorkspaceRepositoryManager
	Prompter                     shared.ConfirmationPrompter
	ServiceProvider              RestoreServiceProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() RestoreCommandConfiguration
}

// Build constructs the restore command.
func (builder *RestoreCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           restoreCommandUseConstant,
		Short:         restoreCommandShortDescriptionConstant,
		Long:          restoreCommandLongDescriptionConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.ExactArgs(1),
		RunE:          builder.runRestore,
	}

	flags.BindWorkspaceFlags(command, flags.WorkspaceFlagValues{}, flags.WorkspaceFlagDefinitions{
		Root:   flags.WorkspaceFlagDefinition{Enabled: true},
		Groups: flags.WorkspaceFlagDefinition{Enabled: true},
	})
	flags.BindJobsFlag(command, defaultJobCountConstant)
	flags.BindExecutionFlags(command, flags.ExecutionDefaults{}, flags.ExecutionFlagDefinitions{
		AssumeYes: flags.ExecutionFlagDefinition{Name: flags.AssumeYesFlagName, Shorthand: flags.AssumeYesFlagShorthand, Usage: flags.AssumeYesFlagUsage, Enabled: true},
		Force:     flags.ExecutionFlagDefinition{Name: flags.ForceFlagName, Usage: flags.ForceFlagUsage, Enabled: true},
	})

	return command, nil
}

func (builder *RestoreCommandBuilder) runRestore(command *cobra.Command, arguments []string) error {
	options, optionsError := builder.parseRestoreOptions(command)
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

	manifestFilePath, manifestPathError := fileSystem.Abs(arguments[0])
	if manifestPathError != nil {
		return manifestPathError
	}

	restorer, serviceError := builder.resolveService(syncer.SyncDependencies{
		Logger:            logger,
		FileSystem:        fileSystem,
		RepositoryManager: repositoryManager,
		Prompter:          prompter,
	})
	if serviceError != nil {
		return serviceError
	}

	summary, restoreError := restorer.Restore(command.Context(), manifestFilePath, options)
	if restoreError != nil {
		return restoreError
	}

	reporter := shared.NewWriterReporter(command.OutOrStdout())
	for _, summaryLine := range syncer.FormatSummary(summary) {
		reporter.Printf(restoreReportLineTemplateConstant, summaryLine)
	}
	if summary.HasFailures() {
		return syncer.ErrRepositoriesFailed
	}
	return nil
}

func (builder *RestoreCommandBuilder) parseRestoreOptions(command *cobra.Command) (syncer.SyncOptions, error) {
	configuration := builder.resolveConfiguration()

	workspaceRoot := configuration.WorkspaceRoot
	groupNames := configuration.GroupNames
	jobCount := configuration.JobCount
	assumeYes := false
	force := false

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
		assumeYes, _ = command.Flags().GetBool(flags.AssumeYesFlagName)
		force, _ = command.Flags().GetBool(flags.ForceFlagName)
	}

	resolvedRoot, rootError := pathutils.NewWorkspaceRootResolver().Locate(workspaceRoot)
	if rootError != nil {
		return syncer.SyncOptions{}, rootError
	}

	return syncer.SyncOptions{
		WorkspaceRoot: resolvedRoot,
		GroupNames:    sanitizeGroupNames(groupNames),
		JobCount:      jobCount,
		Force:         force,
		AssumeYes:     assumeYes,
	}, nil
}

func (builder *RestoreCommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider != nil {
		if logger := builder.LoggerProvider(); logger != nil {
			return logger
		}
	}
	return zap.NewNop()
}

func (builder *RestoreCommandBuilder) humanReadableLoggingEnabled() bool {
	if builder.HumanReadableLoggingProvider != nil {
		return builder.HumanReadableLoggingProvider()
	}
	return false
}

func (builder *RestoreCommandBuilder) resolveService(serviceDependencies syncer.SyncDependencies) (WorkspaceRestorer, error) {
	if builder.ServiceProvider != nil {
		return builder.ServiceProvider(serviceDependencies)
	}
	return syncer.NewSyncService(serviceDependencies)
}

func (builder *RestoreCommandBuilder) resolveConfiguration() RestoreCommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultRestoreCommandConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}
