package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sebastiken/tsrc/internal/execshell"
)

const (
	executorNotConfiguredMessageConstant        = "git executor not configured"
	remoteURLRequiredMessageConstant            = "remote url must be provided"
	destinationPathRequiredMessageConstant      = "destination path must be provided"
	repositoryPathRequiredMessageConstant       = "repository path must be provided"
	referenceRequiredMessageConstant            = "reference must be provided"
	remoteNameRequiredMessageConstant           = "remote name must be provided"
	cloneFailureTemplateConstant                = "failed to clone %s: %w"
	sparseConfigurationFailureTemplateConstant  = "failed to configure sparse checkout in %s: %w"
	divergenceOutputErrorTemplateConstant       = "unexpected rev-list output %q"
	gitCloneSubcommandConstant                  = "clone"
	gitFetchSubcommandConstant                  = "fetch"
	gitCheckoutSubcommandConstant               = "checkout"
	gitMergeSubcommandConstant                  = "merge"
	gitResetSubcommandConstant                  = "reset"
	gitStatusSubcommandConstant                 = "status"
	gitRevParseSubcommandConstant               = "rev-parse"
	gitRevListSubcommandConstant                = "rev-list"
	gitRemoteSubcommandConstant                 = "remote"
	gitRemoteGetURLArgumentConstant             = "get-url"
	gitSparseCheckoutSubcommandConstant         = "sparse-checkout"
	gitSparseCheckoutInitArgumentConstant       = "init"
	gitSparseCheckoutSetArgumentConstant        = "set"
	gitBranchFlagConstant                       = "--branch"
	gitNoCheckoutFlagConstant                   = "--no-checkout"
	gitPruneFlagConstant                        = "--prune"
	gitDetachFlagConstant                       = "--detach"
	gitFastForwardOnlyFlagConstant              = "--ff-only"
	gitHardResetFlagConstant                    = "--hard"
	gitPorcelainFlagConstant                    = "--porcelain"
	gitConeFlagConstant                         = "--cone"
	gitAbbreviatedReferenceFlagConstant         = "--abbrev-ref"
	gitWorkTreeProbeFlagConstant                = "--is-inside-work-tree"
	gitLeftRightFlagConstant                    = "--left-right"
	gitCountFlagConstant                        = "--count"
	gitHeadReferenceConstant                    = "HEAD"
	gitUpstreamReferenceConstant                = "@{u}"
	gitDivergenceRangeConstant                  = "HEAD...@{u}"
	originRemoteNameConstant                    = "origin"
	gitTerminalPromptEnvironmentNameConstant    = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptEnvironmentDisableConstant = "0"
)

// ErrExecutorNotConfigured indicates the git executor dependency was missing.
var ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)

// ErrRemoteURLRequired indicates a clone was requested without a remote URL.
var ErrRemoteURLRequired = errors.New(remoteURLRequiredMessageConstant)

// ErrDestinationPathRequired indicates a clone was requested without a destination.
var ErrDestinationPathRequired = errors.New(destinationPathRequiredMessageConstant)

// ErrRepositoryPathRequired indicates an operation was requested without a repository path.
var ErrRepositoryPathRequired = errors.New(repositoryPathRequiredMessageConstant)

// ErrReferenceRequired indicates a checkout or reset was requested without a reference.
var ErrReferenceRequired = errors.New(referenceRequiredMessageConstant)

// ErrRemoteNameRequired indicates a remote lookup was requested without a remote name.
var ErrRemoteNameRequired = errors.New(remoteNameRequiredMessageConstant)

// GitExecutor runs git commands on behalf of the repository manager.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// CloneOptions describes a repository clone request.
type CloneOptions struct {
	RemoteURL       string
	DestinationPath string
	BranchName      string
	PinnedReference string
	SparsePatterns  []string
}

// LocalState captures the observable on-disk state of a workspace repository.
type LocalState struct {
	Present         bool
	CurrentBranch   string
	CurrentCommit   string
	DetachedHead    bool
	HasLocalChanges bool
}

// DivergenceCounts reports how far a branch has drifted from its upstream.
type DivergenceCounts struct {
	HasUpstream bool
	AheadCount  int
	BehindCount int
}

// DivergenceParseError indicates rev-list output could not be interpreted.
type DivergenceParseError struct {
	Output string
}

// Error describes the malformed output.
func (parseError DivergenceParseError) Error() string {
	return fmt.Sprintf(divergenceOutputErrorTemplateConstant, parseError.Output)
}

// RepositoryManager performs repository-level git operations through a shell executor.
type RepositoryManager struct {
	executor GitExecutor
}

// NewRepositoryManager constructs a RepositoryManager bound to the provided executor.
func NewRepositoryManager(executor GitExecutor) (*RepositoryManager, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &RepositoryManager{executor: executor}, nil
}

// CloneRepository clones a remote repository into the destination path. Sparse
// patterns switch the clone into a no-checkout clone followed by sparse-checkout
// configuration, and a pinned reference leaves the clone detached at that commit.
func (manager *RepositoryManager) CloneRepository(executionContext context.Context, options CloneOptions) error {
	trimmedRemoteURL := strings.TrimSpace(options.RemoteURL)
	if len(trimmedRemoteURL) == 0 {
		return ErrRemoteURLRequired
	}
	trimmedDestination := strings.TrimSpace(options.DestinationPath)
	if len(trimmedDestination) == 0 {
		return ErrDestinationPathRequired
	}

	trimmedBranchName := strings.TrimSpace(options.BranchName)
	trimmedPinnedReference := strings.TrimSpace(options.PinnedReference)
	sparseCheckoutRequested := len(options.SparsePatterns) > 0

	cloneArguments := []string{gitCloneSubcommandConstant}
	if sparseCheckoutRequested {
		cloneArguments = append(cloneArguments, gitNoCheckoutFlagConstant)
	}
	if len(trimmedPinnedReference) == 0 && len(trimmedBranchName) > 0 {
		cloneArguments = append(cloneArguments, gitBranchFlagConstant, trimmedBranchName)
	}
	cloneArguments = append(cloneArguments, trimmedRemoteURL, trimmedDestination)

	if cloneError := manager.executeGit(executionContext, execshell.CommandDetails{Arguments: cloneArguments}); cloneError != nil {
		return fmt.Errorf(cloneFailureTemplateConstant, trimmedRemoteURL, cloneError)
	}

	if sparseCheckoutRequested {
		if sparseError := manager.ConfigureSparseCheckout(executionContext, trimmedDestination, options.SparsePatterns); sparseError != nil {
			return sparseError
		}
	}

	switch {
	case len(trimmedPinnedReference) > 0:
		return manager.CheckoutCommit(executionContext, trimmedDestination, trimmedPinnedReference)
	case sparseCheckoutRequested:
		checkoutReference := trimmedBranchName
		if len(checkoutReference) == 0 {
			checkoutReference = gitHeadReferenceConstant
		}
		return manager.CheckoutBranch(executionContext, trimmedDestination, checkoutReference)
	default:
		return nil
	}
}

// FetchRemote downloads updates for the origin remote, pruning removed refs.
func (manager *RepositoryManager) FetchRemote(executionContext context.Context, repositoryPath string) error {
	trimmedRepositoryPath, pathError := requireRepositoryPath(repositoryPath)
	if pathError != nil {
		return pathError
	}
	return manager.executeGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitFetchSubcommandConstant, gitPruneFlagConstant, originRemoteNameConstant},
		WorkingDirectory: trimmedRepositoryPath,
	})
}

// CheckoutBranch switches the repository to the named branch.
func (manager *RepositoryManager) CheckoutBranch(executionContext context.Context, repositoryPath string, branchName string) error {
	trimmedRepositoryPath, pathError := requireRepositoryPath(repositoryPath)
	if pathError != nil {
		return pathError
	}
	trimmedBranchName := strings.TrimSpace(branchName)
	if len(trimmedBranchName) == 0 {
		return ErrReferenceRequired
	}
	return manager.executeGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitCheckoutSubcommandConstant, trimmedBranchName},
		WorkingDirectory: trimmedRepositoryPath,
	})
}

// CheckoutCommit detaches the repository HEAD at the provided reference.
func (manager *RepositoryManager) CheckoutCommit(executionContext context.Context, repositoryPath string, commitReference string) error {
	trimmedRepositoryPath, pathError := requireRepositoryPath(repositoryPath)
	if pathError != nil {
		return pathError
	}
	trimmedReference := strings.TrimSpace(commitReference)
	if len(trimmedReference) == 0 {
		return ErrReferenceRequired
	}
	return manager.executeGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitCheckoutSubcommandConstant, gitDetachFlagConstant, trimmedReference},
		WorkingDirectory: trimmedRepositoryPath,
	})
}

// FastForwardBranch advances the current branch to its upstream, refusing non-fast-forward merges.
func (manager *RepositoryManager) FastForwardBranch(executionContext context.Context, repositoryPath string) error {
	trimmedRepositoryPath, pathError := requireRepositoryPath(repositoryPath)
	if pathError != nil {
		return pathError
	}
	return manager.executeGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitMergeSubcommandConstant, gitFastForwardOnlyFlagConstant, gitUpstreamReferenceConstant},
		WorkingDirectory: trimmedRepositoryPath,
	})
}

// ResetHard discards local changes and moves the working tree to the provided reference.
func (manager *RepositoryManager) ResetHard(executionContext context.Context, repositoryPath string, reference string) error {
	trimmedRepositoryPath, pathError := requireRepositoryPath(repositoryPath)
	if pathError != nil {
		return pathError
	}
	trimmedReference := strings.TrimSpace(reference)
	if len(trimmedReference) == 0 {
		return ErrReferenceRequired
	}
	return manager.executeGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitResetSubcommandConstant, gitHardResetFlagConstant, trimmedReference},
		WorkingDirectory: trimmedRepositoryPath,
	})
}

// ConfigureSparseCheckout restricts the working tree to the provided patterns.
func (manager *RepositoryManager) ConfigureSparseCheckout(executionContext context.Context, repositoryPath string, patterns []string) error {
	trimmedRepositoryPath, pathError := requireRepositoryPath(repositoryPath)
	if pathError != nil {
		return pathError
	}

	if initializationError := manager.executeGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitSparseCheckoutSubcommandConstant, gitSparseCheckoutInitArgumentConstant, gitConeFlagConstant},
		WorkingDirectory: trimmedRepositoryPath,
	}); initializationError != nil {
		return fmt.Errorf(sparseConfigurationFailureTemplateConstant, trimmedRepositoryPath, initializationError)
	}

	setArguments := append([]string{gitSparseCheckoutSubcommandConstant, gitSparseCheckoutSetArgumentConstant}, patterns...)
	if setError := manager.executeGit(executionContext, execshell.CommandDetails{
		Arguments:        setArguments,
		WorkingDirectory: trimmedRepositoryPath,
	}); setError != nil {
		return fmt.Errorf(sparseConfigurationFailureTemplateConstant, trimmedRepositoryPath, setError)
	}
	return nil
}

// CheckCleanWorktree reports whether the repository has no uncommitted changes.
func (manager *RepositoryManager) CheckCleanWorktree(executionContext context.Context, repositoryPath string) (bool, error) {
	trimmedRepositoryPath, pathError := requireRepositoryPath(repositoryPath)
	if pathError != nil {
		return false, pathError
	}
	statusResult, statusError := manager.executor.ExecuteGit(executionContext, withTerminalPromptDisabled(execshell.CommandDetails{
		Arguments:        []string{gitStatusSubcommandConstant, gitPorcelainFlagConstant},
		WorkingDirectory: trimmedRepositoryPath,
	}))
	if statusError != nil {
		return false, statusError
	}
	return len(strings.TrimSpace(statusResult.StandardOutput)) == 0, nil
}

// GetCurrentBranch returns the checked-out branch name, or HEAD when detached.
func (manager *RepositoryManager) GetCurrentBranch(executionContext context.Context, repositoryPath string) (string, error) {
	trimmedRepositoryPath, pathError := requireRepositoryPath(repositoryPath)
	if pathError != nil {
		return "", pathError
	}
	branchResult, branchError := manager.executor.ExecuteGit(executionContext, withTerminalPromptDisabled(execshell.CommandDetails{
		Arguments:        []string{gitRevParseSubcommandConstant, gitAbbreviatedReferenceFlagConstant, gitHeadReferenceConstant},
		WorkingDirectory: trimmedRepositoryPath,
	}))
	if branchError != nil {
		return "", branchError
	}
	return strings.TrimSpace(branchResult.StandardOutput), nil
}

// GetRemoteURL returns the URL configured for the named remote.
func (manager *RepositoryManager) GetRemoteURL(executionContext context.Context, repositoryPath string, remoteName string) (string, error) {
	trimmedRepositoryPath, pathError := requireRepositoryPath(repositoryPath)
	if pathError != nil {
		return "", pathError
	}
	trimmedRemoteName := strings.TrimSpace(remoteName)
	if len(trimmedRemoteName) == 0 {
		return "", ErrRemoteNameRequired
	}
	urlResult, urlError := manager.executor.ExecuteGit(executionContext, withTerminalPromptDisabled(execshell.CommandDetails{
		Arguments:        []string{gitRemoteSubcommandConstant, gitRemoteGetURLArgumentConstant, trimmedRemoteName},
		WorkingDirectory: trimmedRepositoryPath,
	}))
	if urlError != nil {
		return "", urlError
	}
	return strings.TrimSpace(urlResult.StandardOutput), nil
}

// GetCurrentCommit returns the commit the repository HEAD currently points to.
func (manager *RepositoryManager) GetCurrentCommit(executionContext context.Context, repositoryPath string) (string, error) {
	trimmedRepositoryPath, pathError := requireRepositoryPath(repositoryPath)
	if pathError != nil {
		return "", pathError
	}
	commitResult, commitError := manager.executor.ExecuteGit(executionContext, withTerminalPromptDisabled(execshell.CommandDetails{
		Arguments:        []string{gitRevParseSubcommandConstant, gitHeadReferenceConstant},
		WorkingDirectory: trimmedRepositoryPath,
	}))
	if commitError != nil {
		return "", commitError
	}
	return strings.TrimSpace(commitResult.StandardOutput), nil
}

// ProbeRepositoryState gathers the local state consulted during planning. Probe
// failures are interpreted as the repository being absent rather than reported as
// errors, since a missing directory and a missing repository plan identically.
func (manager *RepositoryManager) ProbeRepositoryState(executionContext context.Context, repositoryPath string) (LocalState, error) {
	trimmedRepositoryPath, pathError := requireRepositoryPath(repositoryPath)
	if pathError != nil {
		return LocalState{}, pathError
	}

	_, probeError := manager.executor.ExecuteGit(executionContext, withTerminalPromptDisabled(execshell.CommandDetails{
		Arguments:        []string{gitRevParseSubcommandConstant, gitWorkTreeProbeFlagConstant},
		WorkingDirectory: trimmedRepositoryPath,
	}))
	if probeError != nil {
		return LocalState{}, nil
	}

	currentCommit, commitError := manager.GetCurrentCommit(executionContext, trimmedRepositoryPath)
	if commitError != nil {
		return LocalState{}, commitError
	}

	currentBranch, branchError := manager.GetCurrentBranch(executionContext, trimmedRepositoryPath)
	if branchError != nil {
		return LocalState{}, branchError
	}
	detachedHead := currentBranch == gitHeadReferenceConstant
	if detachedHead {
		currentBranch = ""
	}

	worktreeClean, cleanError := manager.CheckCleanWorktree(executionContext, trimmedRepositoryPath)
	if cleanError != nil {
		return LocalState{}, cleanError
	}

	return LocalState{
		Present:         true,
		CurrentBranch:   currentBranch,
		CurrentCommit:   currentCommit,
		DetachedHead:    detachedHead,
		HasLocalChanges: !worktreeClean,
	}, nil
}

// CountBranchDivergence compares the current branch against its upstream. A branch
// without an upstream yields zero counts with HasUpstream unset rather than an error.
func (manager *RepositoryManager) CountBranchDivergence(executionContext context.Context, repositoryPath string) (DivergenceCounts, error) {
	trimmedRepositoryPath, pathError := requireRepositoryPath(repositoryPath)
	if pathError != nil {
		return DivergenceCounts{}, pathError
	}

	divergenceResult, divergenceError := manager.executor.ExecuteGit(executionContext, withTerminalPromptDisabled(execshell.CommandDetails{
		Arguments:        []string{gitRevListSubcommandConstant, gitLeftRightFlagConstant, gitCountFlagConstant, gitDivergenceRangeConstant},
		WorkingDirectory: trimmedRepositoryPath,
	}))
	if divergenceError != nil {
		var commandFailure execshell.CommandFailedError
		if errors.As(divergenceError, &commandFailure) {
			return DivergenceCounts{}, nil
		}
		return DivergenceCounts{}, divergenceError
	}

	countFields := strings.Fields(divergenceResult.StandardOutput)
	if len(countFields) != 2 {
		return DivergenceCounts{}, DivergenceParseError{Output: divergenceResult.StandardOutput}
	}
	aheadCount, aheadError := strconv.Atoi(countFields[0])
	if aheadError != nil {
		return DivergenceCounts{}, DivergenceParseError{Output: divergenceResult.StandardOutput}
	}
	behindCount, behindError := strconv.Atoi(countFields[1])
	if behindError != nil {
		return DivergenceCounts{}, DivergenceParseError{Output: divergenceResult.StandardOutput}
	}

	return DivergenceCounts{HasUpstream: true, AheadCount: aheadCount, BehindCount: behindCount}, nil
}

func requireRepositoryPath(repositoryPath string) (string, error) {
	trimmedRepositoryPath := strings.TrimSpace(repositoryPath)
	if len(trimmedRepositoryPath) == 0 {
		return "", ErrRepositoryPathRequired
	}
	return trimmedRepositoryPath, nil
}

func (manager *RepositoryManager) executeGit(executionContext context.Context, details execshell.CommandDetails) error {
	_, executionError := manager.executor.ExecuteGit(executionContext, withTerminalPromptDisabled(details))
	return executionError
}

func withTerminalPromptDisabled(details execshell.CommandDetails) execshell.CommandDetails {
	if details.EnvironmentVariables == nil {
		details.EnvironmentVariables = map[string]string{}
	}
	details.EnvironmentVariables[gitTerminalPromptEnvironmentNameConstant] = gitTerminalPromptEnvironmentDisableConstant
	return details
}
