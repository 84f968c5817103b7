// Package dependencies resolves optional command collaborators to their
// production defaults, letting tests substitute stubs through builder fields.
package dependencies

import (
	"os"

	"go.uber.org/zap"

	"github.com/sebastiken/tsrc/internal/discovery"
	"github.com/sebastiken/tsrc/internal/execshell"
	"github.com/sebastiken/tsrc/internal/filesystem"
	"github.com/sebastiken/tsrc/internal/gitrepo"
	"github.com/sebastiken/tsrc/internal/shared"
	"github.com/sebastiken/tsrc/internal/ui"
)

// ResolveRepositoryDiscoverer returns the provided discoverer or a filesystem-backed default.
func ResolveRepositoryDiscoverer(existing shared.RepositoryDiscoverer) shared.RepositoryDiscoverer {
	if existing != nil {
		return existing
	}
	return discovery.NewFilesystemRepositoryDiscoverer()
}

// ResolveFileSystem returns the provided filesystem or an OS-backed default.
func ResolveFileSystem(existing shared.FileSystem) shared.FileSystem {
	if existing != nil {
		return existing
	}
	return filesystem.OSFileSystem{}
}

// ResolveConfirmationPrompter returns the provided prompter or one conversing on standard streams.
func ResolveConfirmationPrompter(existing shared.ConfirmationPrompter) shared.ConfirmationPrompter {
	if existing != nil {
		return existing
	}
	return shared.NewIOConfirmationPrompter(os.Stdin, os.Stdout)
}

// ResolveGitExecutor returns the provided executor or constructs a shell-backed default.
// Human-readable mode attaches a console observer narrating subprocess activity.
func ResolveGitExecutor(existing shared.GitExecutor, logger *zap.Logger, humanReadableLogging bool) (shared.GitExecutor, error) {
	if existing != nil {
		return existing, nil
	}

	commandRunner := execshell.NewOSCommandRunner()
	if humanReadableLogging {
		return execshell.NewShellExecutorWithObserver(logger, commandRunner, ui.NewConsoleCommandEventLogger(logger))
	}
	return execshell.NewShellExecutor(logger, commandRunner)
}

// ResolveRepositoryManager returns the provided repository manager or constructs one from the executor.
func ResolveRepositoryManager(existing shared.WorkspaceRepositoryManager, executor shared.GitExecutor) (shared.WorkspaceRepositoryManager, error) {
	if existing != nil {
		return existing, nil
	}
	return gitrepo.NewRepositoryManager(executor)
}
