package shared

import (
	"context"
	"io/fs"
	"time"

	"github.com/sebastiken/tsrc/internal/execshell"
	"github.com/sebastiken/tsrc/internal/gitrepo"
)

// Clock abstracts time acquisition for deterministic testing.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the system time source.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// FileSystem exposes filesystem operations required by workspace services.
type FileSystem interface {
	Stat(path string) (fs.FileInfo, error)
	Rename(oldPath string, newPath string) error
	Abs(path string) (string, error)
	MkdirAll(path string, permissions fs.FileMode) error
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, permissions fs.FileMode) error
	RemoveAll(path string) error
}

// ConfirmationResult captures the outcome of a user confirmation prompt.
type ConfirmationResult struct {
	Confirmed  bool
	ApplyToAll bool
}

// ConfirmationPrompter collects user confirmations prior to destructive actions.
type ConfirmationPrompter interface {
	Confirm(prompt string) (ConfirmationResult, error)
}

// GitExecutor exposes the subset of shell execution used by workspace services.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// WorkspaceRepositoryManager exposes repository-level git operations.
type WorkspaceRepositoryManager interface {
	CloneRepository(executionContext context.Context, options gitrepo.CloneOptions) error
	FetchRemote(executionContext context.Context, repositoryPath string) error
	CheckoutBranch(executionContext context.Context, repositoryPath string, branchName string) error
	CheckoutCommit(executionContext context.Context, repositoryPath string, commitReference string) error
	FastForwardBranch(executionContext context.Context, repositoryPath string) error
	ResetHard(executionContext context.Context, repositoryPath string, reference string) error
	ConfigureSparseCheckout(executionContext context.Context, repositoryPath string, patterns []string) error
	CheckCleanWorktree(executionContext context.Context, repositoryPath string) (bool, error)
	GetCurrentBranch(executionContext context.Context, repositoryPath string) (string, error)
	GetCurrentCommit(executionContext context.Context, repositoryPath string) (string, error)
	ProbeRepositoryState(executionContext context.Context, repositoryPath string) (gitrepo.LocalState, error)
	CountBranchDivergence(executionContext context.Context, repositoryPath string) (gitrepo.DivergenceCounts, error)
}

// RepositoryDiscoverer locates Git repositories for bulk operations.
type RepositoryDiscoverer interface {
	DiscoverRepositories(roots []string) ([]string, error)
}
