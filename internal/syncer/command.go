package syncer

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sebastiken/tsrc/internal/dependencies"
	"github.com/sebastiken/tsrc/internal/shared"
	"github.com/sebastiken/tsrc/internal/utils/flags"
	pathutils "github.com/sebastiken/tsrc/internal/utils/path"
)

const (
	commandUseConstant                 = "sync"
	commandShortDescriptionConstant    = "Synchronize workspace repositories with the manifest"
	commandLongDescriptionConstant     = "sync refreshes the workspace manifest and reconciles every selected repository against it. Missing repositories are cloned, tracking repositories fast-forward their branch, pinned repositories check out their fixed reference, and repositories that left the selection are removed after confirmation."
	referenceOverrideFlagNameConstant  = "ref"
	referenceOverrideFlagUsageConstant = "Override the target reference for a repository as name=reference (repeatable)"
	sparseOverrideFlagNameConstant     = "sparse"
	sparseOverrideFlagUsageConstant    = "Override the sparse checkout paths for a repository as name=path[,path...] (repeatable)"
	reportLineTemplateConstant         = "%s\n"
	overrideFormatTemplateConstant     = "override %q must use the form name=value"
	overrideSeparatorConstant          = "="
	sparsePathSeparatorConstant        = ","
)

// InvalidOverrideError indicates a malformed name=value override flag.
type InvalidOverrideError struct {
	RawValue string
}

// Error describes the malformed override entry.
func (overrideError InvalidOverrideError) Error() string {
	return fmt.Sprintf(overrideFormatTemplateConstant, overrideError.RawValue)
}

// WorkspaceSynchronizer runs manifest-driven synchronization on behalf of the command.
type WorkspaceSynchronizer interface {
	Sync(executionContext context.Context, options SyncOptions) (Summary, error)
}

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ServiceProvider constructs a workspace synchronizer from dependencies.
type ServiceProvider func(dependencies SyncDependencies) (WorkspaceSynchronizer, error)

// CommandBuilder assembles the sync Cobra command.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	GitExecutor                  shared.GitExecutor
	FileSystem                   shared.FileSystem
	RepositoryManager            shared.WorkspaceRepositoryManager
	Prompter                     shared.ConfirmationPrompter
	ServiceProvider              ServiceProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() CommandConfiguration
}

// Build constructs the sync command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           commandUseConstant,
		Short:         commandShortDescriptionConstant,
		Long:          commandLongDescriptionConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE:          builder.runSync,
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
	command.Flags().StringArray(referenceOverrideFlagNameConstant, nil, referenceOverrideFlagUsageConstant)
	command.Flags().StringArray(sparseOverrideFlagNameConstant, nil, sparseOverrideFlagUsageConstant)

	return command, nil
}

func (builder *CommandBuilder) runSync(command *cobra.Command, arguments []string) error {
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
	prompter := dependencies.ResolveConfirmationPrompter(builder.Prompter)

	synchronizer, serviceError := builder.resolveService(SyncDependencies{
		Logger:            logger,
		FileSystem:        fileSystem,
		RepositoryManager: repositoryManager,
		Prompter:          prompter,
	})
	if serviceError != nil {
		return serviceError
	}

	summary, syncError := synchronizer.Sync(command.Context(), options)
	if syncError != nil {
		return syncError
	}

	reporter := shared.NewWriterReporter(command.OutOrStdout())
	for _, summaryLine := range FormatSummary(summary) {
		reporter.Printf(reportLineTemplateConstant, summaryLine)
	}
	if summary.HasFailures() {
		return ErrRepositoriesFailed
	}
	return nil
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command) (SyncOptions, error) {
	configuration := builder.resolveConfiguration()

	workspaceRoot := configuration.WorkspaceRoot
	groupNames := configuration.GroupNames
	jobCount := configuration.JobCount
	var rawReferenceOverrides []string
	var rawSparseOverrides []string
	forceRequested := false
	assumeYes := false

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
		rawReferenceOverrides, _ = command.Flags().GetStringArray(referenceOverrideFlagNameConstant)
		rawSparseOverrides, _ = command.Flags().GetStringArray(sparseOverrideFlagNameConstant)
		forceRequested, _ = command.Flags().GetBool(flags.ForceFlagName)
		assumeYes, _ = command.Flags().GetBool(flags.AssumeYesFlagName)
	}

	referenceOverrides, referenceError := parseReferenceOverrides(rawReferenceOverrides)
	if referenceError != nil {
		return SyncOptions{}, referenceError
	}
	sparseOverrides, sparseError := parseSparseOverrides(rawSparseOverrides)
	if sparseError != nil {
		return SyncOptions{}, sparseError
	}

	resolvedRoot, rootError := pathutils.NewWorkspaceRootResolver().Locate(workspaceRoot)
	if rootError != nil {
		return SyncOptions{}, rootError
	}

	return SyncOptions{
		WorkspaceRoot:      resolvedRoot,
		GroupNames:         sanitizeGroupNames(groupNames),
		ReferenceOverrides: referenceOverrides,
		SparseOverrides:    sparseOverrides,
		JobCount:           jobCount,
		Force:              forceRequested,
		AssumeYes:          assumeYes,
	}, nil
}

func parseReferenceOverrides(rawOverrides []string) (map[string]string, error) {
	if len(rawOverrides) == 0 {
		return nil, nil
	}
	overrides := make(map[string]string, len(rawOverrides))
	for _, rawOverride := range rawOverrides {
		repositoryName, overrideValue, parseError := splitOverrideAssignment(rawOverride)
		if parseError != nil {
			return nil, parseError
		}
		overrides[repositoryName] = overrideValue
	}
	return overrides, nil
}

func parseSparseOverrides(rawOverrides []string) (map[string][]string, error) {
	if len(rawOverrides) == 0 {
		return nil, nil
	}
	overrides := make(map[string][]string, len(rawOverrides))
	for _, rawOverride := range rawOverrides {
		repositoryName, overrideValue, parseError := splitOverrideAssignment(rawOverride)
		if parseError != nil {
			return nil, parseError
		}
		overrides[repositoryName] = splitSparsePaths(overrideValue)
	}
	return overrides, nil
}

func splitOverrideAssignment(rawOverride string) (string, string, error) {
	separatorIndex := strings.Index(rawOverride, overrideSeparatorConstant)
	if separatorIndex < 0 {
		return "", "", InvalidOverrideError{RawValue: rawOverride}
	}
	repositoryName := strings.TrimSpace(rawOverride[:separatorIndex])
	overrideValue := strings.TrimSpace(rawOverride[separatorIndex+1:])
	if len(repositoryName) == 0 || len(overrideValue) == 0 {
		return "", "", InvalidOverrideError{RawValue: rawOverride}
	}
	return repositoryName, overrideValue, nil
}

func splitSparsePaths(overrideValue string) []string {
	pathSegments := strings.Split(overrideValue, sparsePathSeparatorConstant)
	sparsePaths := make([]string, 0, len(pathSegments))
	for _, pathSegment := range pathSegments {
		trimmedSegment := strings.TrimSpace(pathSegment)
		if len(trimmedSegment) > 0 {
			sparsePaths = append(sparsePaths, trimmedSegment)
		}
	}
	return sparsePaths
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

func (builder *CommandBuilder) resolveService(syncDependencies SyncDependencies) (WorkspaceSynchronizer, error) {
	if builder.ServiceProvider != nil {
		return builder.ServiceProvider(syncDependencies)
	}
	return NewSyncService(syncDependencies)
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}
