package syncer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sebastiken/tsrc/internal/gitrepo"
	"github.com/sebastiken/tsrc/internal/manifest"
	"github.com/sebastiken/tsrc/internal/shared"
)

const (
	removalPromptTemplateConstant     = "Remove repository %s at %s?"
	removalDeclinedMessageConstant    = "removal declined"
	copyFailureTemplateConstant       = "unable to copy %s to %s: %v"
	headReferenceConstant             = "HEAD"
	remoteReferencePrefixConstant     = "origin/"
	copyDirectoryPermissionsConstant  = 0o755
	minimumJobCountConstant           = 1
	repositoryFieldNameConstant       = "repository"
	actionFieldNameConstant           = "action"
	durationFieldNameConstant         = "duration"
	actionCompletedMessageConstant    = "Synchronized repository"
	actionWarningMessageConstant      = "Repository needs attention"
	actionFailedMessageConstant       = "Repository action failed"
	removalCompletedMessageConstant   = "Removed repository"
	removalDeclinedLogMessageConstant = "Skipping repository removal"
	removalInterruptedMessageConstant = "Removal interrupted"
	removalConfirmationFailedConstant = "Removal confirmation failed"
)

// Executor runs planned repository actions with bounded parallelism, gating
// removals behind user confirmation. A single repository's failure never
// aborts the batch.
type Executor struct {
	logger            *zap.Logger
	repositoryManager shared.WorkspaceRepositoryManager
	fileSystem        shared.FileSystem
	prompter          shared.ConfirmationPrompter
	clock             shared.Clock
}

// NewExecutor constructs an Executor from its collaborators.
func NewExecutor(logger *zap.Logger, repositoryManager shared.WorkspaceRepositoryManager, fileSystem shared.FileSystem, prompter shared.ConfirmationPrompter, clock shared.Clock) (*Executor, error) {
	if repositoryManager == nil {
		return nil, ErrRepositoryManagerNotConfigured
	}
	if fileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}
	if prompter == nil {
		return nil, ErrPrompterNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &Executor{
		logger:            logger,
		repositoryManager: repositoryManager,
		fileSystem:        fileSystem,
		prompter:          prompter,
		clock:             clock,
	}, nil
}

// ExecutionRequest carries a computed plan and the controls for one run.
type ExecutionRequest struct {
	WorkspaceRoot string
	Plan          []PlanEntry
	JobCount      int
	Force         bool
	AssumeYes     bool
}

// Execute collects every removal confirmation serially before any repository
// action starts, runs clone and update actions in parallel up to the requested
// job count, then performs the approved removals. Skipped entries and declined
// removals produce no result.
func (executor *Executor) Execute(executionContext context.Context, request ExecutionRequest) []ExecutionResult {
	resultSlots := make([]*ExecutionResult, len(request.Plan))

	removalApprovals := executor.collectRemovalDecisions(executionContext, request, resultSlots)

	jobCount := request.JobCount
	if jobCount < minimumJobCountConstant {
		jobCount = minimumJobCountConstant
	}

	var executionGroup errgroup.Group
	executionGroup.SetLimit(jobCount)

	for planIndex, planEntry := range request.Plan {
		if planEntry.Action != ActionClone && planEntry.Action != ActionUpdate {
			continue
		}

		planIndex, planEntry := planIndex, planEntry
		executionGroup.Go(func() error {
			result := executor.executeRepositoryAction(executionContext, request, planEntry)
			resultSlots[planIndex] = &result
			return nil
		})
	}
	_ = executionGroup.Wait()

	executor.performRemovals(executionContext, request, removalApprovals, resultSlots)

	results := make([]ExecutionResult, 0, len(request.Plan))
	for _, resultSlot := range resultSlots {
		if resultSlot != nil {
			results = append(results, *resultSlot)
		}
	}
	return results
}

func (executor *Executor) executeRepositoryAction(executionContext context.Context, request ExecutionRequest, planEntry PlanEntry) ExecutionResult {
	startTime := executor.clock.Now()
	repositoryPath := filepath.Join(request.WorkspaceRoot, planEntry.Target.LocalPath)

	var actionError error
	switch planEntry.Action {
	case ActionClone:
		actionError = executor.performClone(executionContext, planEntry.Target, repositoryPath)
	case ActionUpdate:
		actionError = executor.performUpdate(executionContext, planEntry.Target, repositoryPath, request.Force)
	}

	result := ExecutionResult{RepositoryName: planEntry.Target.Name, Action: planEntry.Action}

	if actionError != nil {
		var modificationError LocalModificationError
		if errors.As(actionError, &modificationError) {
			result.Outcome = OutcomeWarning
			result.Message = actionError.Error()
			result.Cause = actionError
		} else {
			operationError := RepositoryOperationError{RepositoryName: planEntry.Target.Name, Action: planEntry.Action, Cause: actionError}
			result.Outcome = OutcomeError
			result.Message = operationError.Error()
			result.Cause = operationError
		}
		result.Duration = executor.clock.Now().Sub(startTime)
		executor.logActionResult(result)
		return result
	}

	observedCommit, observationError := executor.repositoryManager.GetCurrentCommit(executionContext, repositoryPath)
	if observationError != nil {
		operationError := RepositoryOperationError{RepositoryName: planEntry.Target.Name, Action: planEntry.Action, Cause: observationError}
		result.Outcome = OutcomeError
		result.Message = operationError.Error()
		result.Cause = operationError
		result.Duration = executor.clock.Now().Sub(startTime)
		executor.logActionResult(result)
		return result
	}

	result.Outcome = OutcomeSuccess
	result.ObservedReference = planEntry.Target.Reference
	result.ObservedCommit = observedCommit

	if copyMessage := executor.performCopies(planEntry.Target, repositoryPath, request.WorkspaceRoot); len(copyMessage) > 0 {
		result.Outcome = OutcomeWarning
		result.Message = copyMessage
	}

	result.Duration = executor.clock.Now().Sub(startTime)
	executor.logActionResult(result)
	return result
}

func (executor *Executor) performClone(executionContext context.Context, target manifest.ResolvedTarget, repositoryPath string) error {
	cloneOptions := gitrepo.CloneOptions{
		RemoteURL:       target.RemoteURL,
		DestinationPath: repositoryPath,
		SparsePatterns:  target.SparsePaths,
	}
	if target.Pinned {
		cloneOptions.PinnedReference = target.Reference
	} else {
		cloneOptions.BranchName = target.Reference
	}
	return executor.repositoryManager.CloneRepository(executionContext, cloneOptions)
}

func (executor *Executor) performUpdate(executionContext context.Context, target manifest.ResolvedTarget, repositoryPath string, force bool) error {
	worktreeClean, cleanlinessError := executor.repositoryManager.CheckCleanWorktree(executionContext, repositoryPath)
	if cleanlinessError != nil {
		return cleanlinessError
	}
	if !worktreeClean && !force {
		return LocalModificationError{RepositoryName: target.Name}
	}

	if fetchError := executor.repositoryManager.FetchRemote(executionContext, repositoryPath); fetchError != nil {
		return fetchError
	}
	if len(target.SparsePaths) > 0 {
		if sparseError := executor.repositoryManager.ConfigureSparseCheckout(executionContext, repositoryPath, target.SparsePaths); sparseError != nil {
			return sparseError
		}
	}
	if !worktreeClean {
		if resetError := executor.repositoryManager.ResetHard(executionContext, repositoryPath, headReferenceConstant); resetError != nil {
			return resetError
		}
	}

	if target.Pinned {
		return executor.repositoryManager.CheckoutCommit(executionContext, repositoryPath, target.Reference)
	}

	if checkoutError := executor.repositoryManager.CheckoutBranch(executionContext, repositoryPath, target.Reference); checkoutError != nil {
		return checkoutError
	}
	if force {
		return executor.repositoryManager.ResetHard(executionContext, repositoryPath, remoteReferencePrefixConstant+target.Reference)
	}
	return executor.repositoryManager.FastForwardBranch(executionContext, repositoryPath)
}

func (executor *Executor) performCopies(target manifest.ResolvedTarget, repositoryPath string, workspaceRoot string) string {
	for _, copyDirective := range target.Copies {
		sourcePath := filepath.Join(repositoryPath, filepath.FromSlash(copyDirective.File))
		destinationPath := filepath.Join(workspaceRoot, filepath.FromSlash(copyDirective.Destination))
		if copyError := executor.copyFile(sourcePath, destinationPath); copyError != nil {
			return fmt.Sprintf(copyFailureTemplateConstant, copyDirective.File, copyDirective.Destination, copyError)
		}
	}
	return ""
}

func (executor *Executor) copyFile(sourcePath string, destinationPath string) error {
	sourceInformation, statError := executor.fileSystem.Stat(sourcePath)
	if statError != nil {
		return statError
	}
	content, readError := executor.fileSystem.ReadFile(sourcePath)
	if readError != nil {
		return readError
	}
	if directoryError := executor.fileSystem.MkdirAll(filepath.Dir(destinationPath), copyDirectoryPermissionsConstant); directoryError != nil {
		return directoryError
	}
	return executor.fileSystem.WriteFile(destinationPath, content, sourceInformation.Mode().Perm())
}

// collectRemovalDecisions resolves every removal confirmation one prompt at a
// time before any repository action runs, so answers are never interleaved
// with clone or update output. An apply-to-all answer covers the remaining
// removals without further prompts.
func (executor *Executor) collectRemovalDecisions(executionContext context.Context, request ExecutionRequest, resultSlots []*ExecutionResult) []bool {
	removalApprovals := make([]bool, len(request.Plan))
	var rememberedDecision *bool

	for planIndex, planEntry := range request.Plan {
		if planEntry.Action != ActionRemove {
			continue
		}

		if contextError := executionContext.Err(); contextError != nil {
			resultSlots[planIndex] = removalFailureResult(planEntry, contextError)
			executor.logger.Error(removalInterruptedMessageConstant, zap.String(repositoryFieldNameConstant, planEntry.Target.Name), zap.Error(contextError))
			continue
		}

		switch {
		case request.AssumeYes:
			removalApprovals[planIndex] = true
		case rememberedDecision != nil:
			removalApprovals[planIndex] = *rememberedDecision
		default:
			confirmation, promptError := executor.prompter.Confirm(fmt.Sprintf(removalPromptTemplateConstant, planEntry.Target.Name, planEntry.Target.LocalPath))
			if promptError != nil {
				resultSlots[planIndex] = removalFailureResult(planEntry, promptError)
				executor.logger.Error(removalConfirmationFailedConstant, zap.String(repositoryFieldNameConstant, planEntry.Target.Name), zap.Error(promptError))
				continue
			}
			removalApprovals[planIndex] = confirmation.Confirmed
			if confirmation.ApplyToAll {
				decision := confirmation.Confirmed
				rememberedDecision = &decision
			}
		}

		if !removalApprovals[planIndex] {
			executor.logger.Info(removalDeclinedLogMessageConstant, zap.String(repositoryFieldNameConstant, planEntry.Target.Name))
		}
	}

	return removalApprovals
}

// performRemovals deletes the repositories whose removal was approved during
// decision collection.
func (executor *Executor) performRemovals(executionContext context.Context, request ExecutionRequest, removalApprovals []bool, resultSlots []*ExecutionResult) {
	for planIndex, planEntry := range request.Plan {
		if planEntry.Action != ActionRemove || resultSlots[planIndex] != nil || !removalApprovals[planIndex] {
			continue
		}

		if contextError := executionContext.Err(); contextError != nil {
			resultSlots[planIndex] = removalFailureResult(planEntry, contextError)
			executor.logger.Error(removalInterruptedMessageConstant, zap.String(repositoryFieldNameConstant, planEntry.Target.Name), zap.Error(contextError))
			continue
		}

		resultSlots[planIndex] = executor.removeRepository(request.WorkspaceRoot, planEntry)
	}
}

func removalFailureResult(planEntry PlanEntry, cause error) *ExecutionResult {
	operationError := RepositoryOperationError{RepositoryName: planEntry.Target.Name, Action: ActionRemove, Cause: cause}
	return &ExecutionResult{
		RepositoryName: planEntry.Target.Name,
		Action:         ActionRemove,
		Outcome:        OutcomeError,
		Message:        operationError.Error(),
		Cause:          operationError,
	}
}

func (executor *Executor) removeRepository(workspaceRoot string, planEntry PlanEntry) *ExecutionResult {
	startTime := executor.clock.Now()
	repositoryPath := filepath.Join(workspaceRoot, planEntry.Target.LocalPath)

	if removalError := executor.fileSystem.RemoveAll(repositoryPath); removalError != nil {
		operationError := RepositoryOperationError{RepositoryName: planEntry.Target.Name, Action: ActionRemove, Cause: removalError}
		executor.logger.Error(actionFailedMessageConstant, zap.String(repositoryFieldNameConstant, planEntry.Target.Name), zap.Error(removalError))
		return &ExecutionResult{
			RepositoryName: planEntry.Target.Name,
			Action:         ActionRemove,
			Outcome:        OutcomeError,
			Message:        operationError.Error(),
			Cause:          operationError,
			Duration:       executor.clock.Now().Sub(startTime),
		}
	}

	executor.logger.Info(removalCompletedMessageConstant, zap.String(repositoryFieldNameConstant, planEntry.Target.Name))
	return &ExecutionResult{
		RepositoryName: planEntry.Target.Name,
		Action:         ActionRemove,
		Outcome:        OutcomeSuccess,
		Duration:       executor.clock.Now().Sub(startTime),
	}
}

func (executor *Executor) logActionResult(result ExecutionResult) {
	fields := []zap.Field{
		zap.String(repositoryFieldNameConstant, result.RepositoryName),
		zap.String(actionFieldNameConstant, string(result.Action)),
		zap.Duration(durationFieldNameConstant, result.Duration),
	}

	switch result.Outcome {
	case OutcomeSuccess:
		executor.logger.Info(actionCompletedMessageConstant, fields...)
	case OutcomeWarning:
		executor.logger.Warn(actionWarningMessageConstant, append(fields, zap.String("detail", result.Message))...)
	case OutcomeError:
		executor.logger.Error(actionFailedMessageConstant, append(fields, zap.Error(result.Cause))...)
	}
}
