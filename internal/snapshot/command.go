package snapshot

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sebastiken/tsrc/internal/dependencies"
	"github.com/sebastiken/tsrc/internal/gitrepo"
	"github.com/sebastiken/tsrc/internal/shared"
	"github.com/sebastiken/tsrc/internal/utils/flags"
	pathutils "github.com/sebastiken/tsrc/internal/utils/path"
)

const (
	commandUseConstant              = "snapshot"
	commandShortDescriptionConstant = "Capture the workspace as a pinned manifest"
	commandLongDescriptionConstant  = "snapshot walks the workspace for git repositories and writes a manifest pinning every repository to its observed HEAD commit. Repository URLs are read from each origin remote; repositories without one are skipped with a warning."
	outputFlagNameConstant          = "output"
	outputFlagShorthandConstant     = "o"
	outputFlagUsageConstant         = "File the captured manifest is written to"
	forceFlagUsageConstant          = "Overwrite an existing output file"
	captureSummaryTemplateConstant  = "Captured %d repositories into %s\n"
	captureSkippedTemplateConstant  = "Skipped %d repositories without an origin remote\n"
)

// SnapshotCapturer captures workspace state on behalf of the command.
type SnapshotCapturer interface {
	Capture(executionContext context.Context, options Options) (Summary, error)
}

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ServiceProvider constructs a snapshot capturer from dependencies.
type ServiceProvider func(dependencies ServiceDependencies) (SnapshotCapturer, error)

// CommandBuilder assembles the snapshot Cobra command.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	GitExecutor                  shared.GitExecutor
	FileSystem                   shared.FileSystem
	Discoverer                   shared.RepositoryDiscoverer
	Inspector                    RepositoryInspector
	ServiceProvider              ServiceProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() CommandConfiguration
}

// Build constructs the snapshot command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           commandUseConstant,
		Short:         commandShortDescriptionConstant,
		Long:          commandLongDescriptionConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE:          builder.runSnapshot,
	}

	flags.BindWorkspaceFlags(command, flags.WorkspaceFlagValues{}, flags.WorkspaceFlagDefinitions{
		Root: flags.WorkspaceFlagDefinition{Enabled: true},
	})
	command.Flags().StringP(outputFlagNameConstant, outputFlagShorthandConstant, defaultOutputFileNameConstant, outputFlagUsageConstant)
	flags.BindExecutionFlags(command, flags.ExecutionDefaults{}, flags.ExecutionFlagDefinitions{
		Force: flags.ExecutionFlagDefinition{Name: flags.ForceFlagName, Usage: forceFlagUsageConstant, Enabled: true},
	})

	return command, nil
}

func (builder *CommandBuilder) runSnapshot(command *cobra.Command, arguments []string) error {
	options, optionsError := builder.parseOptions(command)
	if optionsError != nil {
		return optionsError
	}

	logger := builder.resolveLogger()

	gitExecutor, executorError := dependencies.ResolveGitExecutor(builder.GitExecutor, logger, builder.humanReadableLoggingEnabled())
	if executorError != nil {
		return executorError
	}
	inspector, inspectorError := builder.resolveInspector(gitExecutor)
	if inspectorError != nil {
		return inspectorError
	}
	fileSystem := dependencies.ResolveFileSystem(builder.FileSystem)

	absoluteOutputPath, outputPathError := fileSystem.Abs(options.OutputPath)
	if outputPathError != nil {
		return outputPathError
	}
	options.OutputPath = absoluteOutputPath

	capturer, serviceError := builder.resolveService(ServiceDependencies{
		Logger:     logger,
		FileSystem: fileSystem,
		Discoverer: dependencies.ResolveRepositoryDiscoverer(builder.Discoverer),
		Inspector:  inspector,
	})
	if serviceError != nil {
		return serviceError
	}

	summary, captureError := capturer.Capture(command.Context(), options)
	if captureError != nil {
		return captureError
	}

	reporter := shared.NewWriterReporter(command.OutOrStdout())
	reporter.Printf(captureSummaryTemplateConstant, summary.RepositoryCount, summary.OutputPath)
	if summary.SkippedCount > 0 {
		reporter.Printf(captureSkippedTemplateConstant, summary.SkippedCount)
	}
	return nil
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command) (Options, error) {
	configuration := builder.resolveConfiguration()

	workspaceRoot := configuration.WorkspaceRoot
	outputPath := configuration.OutputPath
	force := false

	if command != nil {
		if command.Flags().Changed(flags.WorkspaceRootFlagName) {
			flagValue, _ := command.Flags().GetString(flags.WorkspaceRootFlagName)
			workspaceRoot = flagValue
		}
		if command.Flags().Changed(outputFlagNameConstant) {
			flagValue, _ := command.Flags().GetString(outputFlagNameConstant)
			outputPath = flagValue
		}
		force, _ = command.Flags().GetBool(flags.ForceFlagName)
	}

	resolvedRoot, rootError := pathutils.NewWorkspaceRootResolver().Locate(workspaceRoot)
	if rootError != nil {
		return Options{}, rootError
	}

	return Options{
		WorkspaceRoot: resolvedRoot,
		OutputPath:    outputPath,
		Force:         force,
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

func (builder *CommandBuilder) resolveInspector(gitExecutor shared.GitExecutor) (RepositoryInspector, error) {
	if builder.Inspector != nil {
		return builder.Inspector, nil
	}
	return gitrepo.NewRepositoryManager(gitExecutor)
}

func (builder *CommandBuilder) resolveService(serviceDependencies ServiceDependencies) (SnapshotCapturer, error) {
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
