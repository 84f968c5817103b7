package execshell

import (
	"fmt"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	commandLabelTemplateConstant            = "%s%s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	commandArgumentsJoinSeparatorConstant   = " "
	standardErrorSuffixTemplateConstant     = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	emptyStringConstant                     = ""
	defaultWorkingDirectoryLabelConstant    = "current directory"
	fallbackUnknownValueLabelConstant       = "unknown"
)

const (
	gitCloneSubcommandNameConstant          = "clone"
	gitFetchSubcommandNameConstant          = "fetch"
	gitCheckoutSubcommandNameConstant       = "checkout"
	gitMergeSubcommandNameConstant          = "merge"
	gitResetSubcommandNameConstant          = "reset"
	gitStatusSubcommandNameConstant         = "status"
	gitRevParseSubcommandNameConstant       = "rev-parse"
	gitRevListSubcommandNameConstant        = "rev-list"
	gitSparseCheckoutSubcommandNameConstant = "sparse-checkout"
	gitWorkTreeFlagConstant                 = "--is-inside-work-tree"
	gitAbbrevRefFlagConstant                = "--abbrev-ref"
	gitBranchFlagConstant                   = "--branch"
	gitHeadReferenceConstant                = "HEAD"
)

const (
	gitCloneStartTemplateConstant                    = "Cloning %s into %s"
	gitCloneSuccessTemplateConstant                  = "Cloned %s into %s"
	gitCloneFailureTemplateConstant                  = "Failed to clone %s into %s (exit code %d%s)"
	gitCloneExecutionFailureTemplateConstant         = "Unable to clone %s into %s: %s"
	gitFetchStartTemplateConstant                    = "Fetching updates in %s"
	gitFetchSuccessTemplateConstant                  = "Fetched updates in %s"
	gitFetchFailureTemplateConstant                  = "Failed to fetch updates in %s (exit code %d%s)"
	gitFetchExecutionFailureTemplateConstant         = "Unable to fetch updates in %s: %s"
	gitCheckoutStartTemplateConstant                 = "Switching %s to %s"
	gitCheckoutSuccessTemplateConstant               = "%s now at %s"
	gitCheckoutFailureTemplateConstant               = "Failed to switch %s to %s (exit code %d%s)"
	gitCheckoutExecutionFailureTemplateConstant      = "Unable to switch %s to %s: %s"
	gitMergeStartTemplateConstant                    = "Fast-forwarding %s to %s"
	gitMergeSuccessTemplateConstant                  = "Fast-forwarded %s to %s"
	gitMergeFailureTemplateConstant                  = "Failed to fast-forward %s to %s (exit code %d%s)"
	gitMergeExecutionFailureTemplateConstant         = "Unable to fast-forward %s to %s: %s"
	gitResetStartTemplateConstant                    = "Resetting %s to %s"
	gitResetSuccessTemplateConstant                  = "Reset %s to %s"
	gitResetFailureTemplateConstant                  = "Failed to reset %s to %s (exit code %d%s)"
	gitResetExecutionFailureTemplateConstant         = "Unable to reset %s to %s: %s"
	gitStatusStartTemplateConstant                   = "Reviewing working tree status in %s"
	gitStatusSuccessTemplateConstant                 = "Collected working tree status for %s"
	gitStatusFailureTemplateConstant                 = "Failed to review working tree status in %s (exit code %d%s)"
	gitStatusExecutionFailureTemplateConstant        = "Unable to review working tree status in %s: %s"
	gitWorkTreeStartTemplateConstant                 = "Analyzing repository at %s"
	gitWorkTreeSuccessTemplateConstant               = "%s is a Git repository"
	gitWorkTreeFailureTemplateConstant               = "Could not confirm %s is a Git repository (exit code %d%s)"
	gitWorkTreeExecutionFailureTemplateConstant      = "Could not analyze %s: %s"
	gitCurrentBranchStartTemplateConstant            = "Identifying current branch in %s"
	gitCurrentBranchSuccessTemplateConstant          = "Current branch in %s is %s"
	gitCurrentBranchDetachedSuccessTemplateConstant  = "%s is in a detached HEAD state"
	gitCurrentBranchFailureTemplateConstant          = "Failed to identify current branch in %s (exit code %d%s)"
	gitCurrentBranchExecutionFailureTemplateConstant = "Unable to identify current branch in %s: %s"
	gitRevisionStartTemplateConstant                 = "Resolving %s in %s"
	gitRevisionSuccessTemplateConstant               = "%s in %s resolved to %s"
	gitRevisionEmptySuccessTemplateConstant          = "%s in %s did not resolve to a revision"
	gitRevisionFailureTemplateConstant               = "Failed to resolve %s in %s (exit code %d%s)"
	gitRevisionExecutionFailureTemplateConstant      = "Unable to resolve %s in %s: %s"
	gitRevListStartTemplateConstant                  = "Counting divergence from upstream in %s"
	gitRevListSuccessTemplateConstant                = "Counted divergence from upstream in %s"
	gitRevListFailureTemplateConstant                = "Failed to count divergence from upstream in %s (exit code %d%s)"
	gitRevListExecutionFailureTemplateConstant       = "Unable to count divergence from upstream in %s: %s"
	gitSparseStartTemplateConstant                   = "Configuring sparse checkout in %s"
	gitSparseSuccessTemplateConstant                 = "Configured sparse checkout in %s"
	gitSparseFailureTemplateConstant                 = "Failed to configure sparse checkout in %s (exit code %d%s)"
	gitSparseExecutionFailureTemplateConstant        = "Unable to configure sparse checkout in %s: %s"
)

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	if command.Name != CommandGit || len(command.Details.Arguments) == 0 {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	subcommand := strings.TrimSpace(command.Details.Arguments[0])
	switch subcommand {
	case gitCloneSubcommandNameConstant:
		return formatter.describeGitCloneMessage(command, result, failure, stage)
	case gitFetchSubcommandNameConstant:
		return formatter.describeSingleLocationMessage(command, result, failure, stage, gitFetchStartTemplateConstant, gitFetchSuccessTemplateConstant, gitFetchFailureTemplateConstant, gitFetchExecutionFailureTemplateConstant)
	case gitCheckoutSubcommandNameConstant:
		return formatter.describeGitCheckoutMessage(command, result, failure, stage)
	case gitMergeSubcommandNameConstant:
		return formatter.describeRefTargetMessage(command, result, failure, stage, gitMergeStartTemplateConstant, gitMergeSuccessTemplateConstant, gitMergeFailureTemplateConstant, gitMergeExecutionFailureTemplateConstant)
	case gitResetSubcommandNameConstant:
		return formatter.describeGitResetMessage(command, result, failure, stage)
	case gitStatusSubcommandNameConstant:
		return formatter.describeSingleLocationMessage(command, result, failure, stage, gitStatusStartTemplateConstant, gitStatusSuccessTemplateConstant, gitStatusFailureTemplateConstant, gitStatusExecutionFailureTemplateConstant)
	case gitRevParseSubcommandNameConstant:
		return formatter.describeGitRevParseMessage(command, result, failure, stage)
	case gitRevListSubcommandNameConstant:
		return formatter.describeSingleLocationMessage(command, result, failure, stage, gitRevListStartTemplateConstant, gitRevListSuccessTemplateConstant, gitRevListFailureTemplateConstant, gitRevListExecutionFailureTemplateConstant)
	case gitSparseCheckoutSubcommandNameConstant:
		return formatter.describeSingleLocationMessage(command, result, failure, stage, gitSparseStartTemplateConstant, gitSparseSuccessTemplateConstant, gitSparseFailureTemplateConstant, gitSparseExecutionFailureTemplateConstant)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitCloneMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	positionalArguments := formatter.collectPositionalArguments(command.Details.Arguments[1:])
	remote := fallbackUnknownValueLabelConstant
	destination := fallbackUnknownValueLabelConstant
	if len(positionalArguments) > 0 {
		remote = positionalArguments[0]
	}
	if len(positionalArguments) > 1 {
		destination = positionalArguments[1]
	}

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitCloneStartTemplateConstant, remote, destination)
	case messageStageSuccess:
		return fmt.Sprintf(gitCloneSuccessTemplateConstant, remote, destination)
	case messageStageFailure:
		return fmt.Sprintf(gitCloneFailureTemplateConstant, remote, destination, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(gitCloneExecutionFailureTemplateConstant, remote, destination, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitCheckoutMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	positionalArguments := formatter.collectPositionalArguments(command.Details.Arguments[1:])
	reference := fallbackUnknownValueLabelConstant
	if len(positionalArguments) > 0 {
		reference = positionalArguments[0]
	}

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitCheckoutStartTemplateConstant, workingDirectory, reference)
	case messageStageSuccess:
		return fmt.Sprintf(gitCheckoutSuccessTemplateConstant, workingDirectory, reference)
	case messageStageFailure:
		return fmt.Sprintf(gitCheckoutFailureTemplateConstant, workingDirectory, reference, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(gitCheckoutExecutionFailureTemplateConstant, workingDirectory, reference, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitResetMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	positionalArguments := formatter.collectPositionalArguments(command.Details.Arguments[1:])
	reference := gitHeadReferenceConstant
	if len(positionalArguments) > 0 {
		reference = positionalArguments[0]
	}

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitResetStartTemplateConstant, workingDirectory, reference)
	case messageStageSuccess:
		return fmt.Sprintf(gitResetSuccessTemplateConstant, workingDirectory, reference)
	case messageStageFailure:
		return fmt.Sprintf(gitResetFailureTemplateConstant, workingDirectory, reference, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(gitResetExecutionFailureTemplateConstant, workingDirectory, reference, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitRevParseMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	arguments := command.Details.Arguments
	workingDirectory := formatter.describeWorkingDirectory(command)

	if containsArgument(arguments, gitWorkTreeFlagConstant) {
		switch stage {
		case messageStageStart:
			return fmt.Sprintf(gitWorkTreeStartTemplateConstant, workingDirectory)
		case messageStageSuccess:
			return fmt.Sprintf(gitWorkTreeSuccessTemplateConstant, workingDirectory)
		case messageStageFailure:
			return fmt.Sprintf(gitWorkTreeFailureTemplateConstant, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
		case messageStageExecutionFailure:
			return fmt.Sprintf(gitWorkTreeExecutionFailureTemplateConstant, workingDirectory, formatter.describeFailure(failure))
		}
	}

	if containsArgument(arguments, gitAbbrevRefFlagConstant) {
		switch stage {
		case messageStageStart:
			return fmt.Sprintf(gitCurrentBranchStartTemplateConstant, workingDirectory)
		case messageStageSuccess:
			trimmed := strings.TrimSpace(result.StandardOutput)
			if strings.EqualFold(trimmed, gitHeadReferenceConstant) || len(trimmed) == 0 {
				return fmt.Sprintf(gitCurrentBranchDetachedSuccessTemplateConstant, workingDirectory)
			}
			return fmt.Sprintf(gitCurrentBranchSuccessTemplateConstant, workingDirectory, trimmed)
		case messageStageFailure:
			return fmt.Sprintf(gitCurrentBranchFailureTemplateConstant, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
		case messageStageExecutionFailure:
			return fmt.Sprintf(gitCurrentBranchExecutionFailureTemplateConstant, workingDirectory, formatter.describeFailure(failure))
		}
	}

	reference := formatter.resolveRevisionReference(arguments)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitRevisionStartTemplateConstant, reference, workingDirectory)
	case messageStageSuccess:
		trimmed := strings.TrimSpace(result.StandardOutput)
		if len(trimmed) == 0 {
			return fmt.Sprintf(gitRevisionEmptySuccessTemplateConstant, reference, workingDirectory)
		}
		return fmt.Sprintf(gitRevisionSuccessTemplateConstant, reference, workingDirectory, trimmed)
	case messageStageFailure:
		return fmt.Sprintf(gitRevisionFailureTemplateConstant, reference, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(gitRevisionExecutionFailureTemplateConstant, reference, workingDirectory, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeSingleLocationMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage, startTemplate string, successTemplate string, failureTemplate string, executionFailureTemplate string) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(startTemplate, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(successTemplate, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(failureTemplate, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(executionFailureTemplate, workingDirectory, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeRefTargetMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage, startTemplate string, successTemplate string, failureTemplate string, executionFailureTemplate string) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	positionalArguments := formatter.collectPositionalArguments(command.Details.Arguments[1:])
	reference := fallbackUnknownValueLabelConstant
	if len(positionalArguments) > 0 {
		reference = positionalArguments[0]
	}

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(startTemplate, workingDirectory, reference)
	case messageStageSuccess:
		return fmt.Sprintf(successTemplate, workingDirectory, reference)
	case messageStageFailure:
		return fmt.Sprintf(failureTemplate, workingDirectory, reference, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(executionFailureTemplate, workingDirectory, reference, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	commandLabel := formatter.formatCommandLabel(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, commandLabel, formatter.describeFailure(failure))
	default:
		return commandLabel
	}
}

func (formatter CommandMessageFormatter) formatCommandLabel(command ShellCommand) string {
	commandParts := []string{string(command.Name)}
	if len(command.Details.Arguments) > 0 {
		commandParts = append(commandParts, strings.Join(command.Details.Arguments, commandArgumentsJoinSeparatorConstant))
	}
	commandLabel := strings.Join(commandParts, commandArgumentsJoinSeparatorConstant)
	return fmt.Sprintf(commandLabelTemplateConstant, commandLabel, formatter.formatWorkingDirectorySuffix(command))
}

func (formatter CommandMessageFormatter) formatWorkingDirectorySuffix(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory)
}

func (formatter CommandMessageFormatter) describeWorkingDirectory(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return trimmedWorkingDirectory
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

func (formatter CommandMessageFormatter) resolveRevisionReference(arguments []string) string {
	positionalArguments := formatter.collectPositionalArguments(arguments[1:])
	if len(positionalArguments) == 0 {
		return fallbackUnknownValueLabelConstant
	}
	return positionalArguments[len(positionalArguments)-1]
}

func (formatter CommandMessageFormatter) collectPositionalArguments(arguments []string) []string {
	var positionalArguments []string
	skipNext := false
	for _, argument := range arguments {
		if skipNext {
			skipNext = false
			continue
		}
		trimmedArgument := strings.TrimSpace(argument)
		if len(trimmedArgument) == 0 {
			continue
		}
		if strings.HasPrefix(trimmedArgument, "-") {
			if trimmedArgument == gitBranchFlagConstant {
				skipNext = true
			}
			continue
		}
		positionalArguments = append(positionalArguments, trimmedArgument)
	}
	return positionalArguments
}

func containsArgument(arguments []string, candidate string) bool {
	for _, argument := range arguments {
		if strings.TrimSpace(argument) == candidate {
			return true
		}
	}
	return false
}
