package syncer

import (
	"errors"
	"fmt"
	"time"

	"github.com/sebastiken/tsrc/internal/manifest"
)

const (
	repositoryManagerMissingMessageConstant    = "repository manager not configured"
	fileSystemMissingMessageConstant           = "file system not configured"
	prompterMissingMessageConstant             = "confirmation prompter not configured"
	workspaceNotInitializedMessageConstant     = "workspace is not initialized; run init first"
	repositoriesFailedMessageConstant          = "one or more repositories failed to synchronize"
	repositoryOperationFailureTemplateConstant = "repository %s: %s failed: %v"
	localModificationTemplateConstant          = "repository %s has uncommitted local changes"
)

// ErrRepositoryManagerNotConfigured indicates a component was built without a repository manager.
var ErrRepositoryManagerNotConfigured = errors.New(repositoryManagerMissingMessageConstant)

// ErrFileSystemNotConfigured indicates a component was built without a file system.
var ErrFileSystemNotConfigured = errors.New(fileSystemMissingMessageConstant)

// ErrPrompterNotConfigured indicates a component was built without a confirmation prompter.
var ErrPrompterNotConfigured = errors.New(prompterMissingMessageConstant)

// ErrWorkspaceNotInitialized indicates a synchronization was requested in a
// directory that was never initialized.
var ErrWorkspaceNotInitialized = errors.New(workspaceNotInitializedMessageConstant)

// ErrRepositoriesFailed reports that a run finished with at least one
// repository in error.
var ErrRepositoriesFailed = errors.New(repositoriesFailedMessageConstant)

// ActionKind identifies the operation planned for one repository.
type ActionKind string

const (
	// ActionClone plans a fresh clone of a repository missing from the workspace.
	ActionClone ActionKind = "clone"
	// ActionUpdate plans a fetch and checkout moving a repository to its target reference.
	ActionUpdate ActionKind = "update"
	// ActionSkip records that a repository already matches its target.
	ActionSkip ActionKind = "skip"
	// ActionRemove plans deletion of a repository dropped from the manifest selection.
	ActionRemove ActionKind = "remove"
)

// OutcomeClass classifies one repository's result in the run summary.
type OutcomeClass string

const (
	// OutcomeSuccess marks a repository whose planned action completed.
	OutcomeSuccess OutcomeClass = "success"
	// OutcomeSkipped marks a repository that required no work or was deliberately left untouched.
	OutcomeSkipped OutcomeClass = "skipped"
	// OutcomeWarning marks a repository left usable but needing attention.
	OutcomeWarning OutcomeClass = "warning"
	// OutcomeError marks a repository whose planned action failed.
	OutcomeError OutcomeClass = "error"
)

// PlanEntry pairs one repository with the action chosen for this run. Removal
// entries carry only the repository name and local path, reconstructed from
// the workspace record, because the manifest no longer declares them.
type PlanEntry struct {
	Target manifest.ResolvedTarget
	Action ActionKind
	Reason string
}

// ExecutionResult captures the outcome of executing one plan entry.
type ExecutionResult struct {
	RepositoryName    string
	Action            ActionKind
	Outcome           OutcomeClass
	Message           string
	ObservedReference string
	ObservedCommit    string
	Duration          time.Duration
	Cause             error
}

// RepositorySummary describes one repository's outcome in plan order.
type RepositorySummary struct {
	RepositoryName string
	Action         ActionKind
	Outcome        OutcomeClass
	Message        string
	Duration       time.Duration
}

// Summary aggregates per-repository outcomes for one synchronization run.
type Summary struct {
	Repositories []RepositorySummary
	SuccessCount int
	SkippedCount int
	WarningCount int
	ErrorCount   int
}

// HasFailures reports whether any repository ended the run in error.
func (summary Summary) HasFailures() bool {
	return summary.ErrorCount > 0
}

// RepositoryOperationError attributes a git or filesystem failure to one
// repository action.
type RepositoryOperationError struct {
	RepositoryName string
	Action         ActionKind
	Cause          error
}

// Error describes the failed operation.
func (operationError RepositoryOperationError) Error() string {
	return fmt.Sprintf(repositoryOperationFailureTemplateConstant, operationError.RepositoryName, operationError.Action, operationError.Cause)
}

// Unwrap exposes the underlying failure.
func (operationError RepositoryOperationError) Unwrap() error {
	return operationError.Cause
}

// LocalModificationError indicates uncommitted changes block a repository update.
type LocalModificationError struct {
	RepositoryName string
}

// Error names the conflicting repository.
func (modificationError LocalModificationError) Error() string {
	return fmt.Sprintf(localModificationTemplateConstant, modificationError.RepositoryName)
}
