package tests

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	workspaceGitExecutableNameConstant        = "git"
	workspaceLibraryRemoteDirectoryConstant   = "libalpha-remote.git"
	workspaceManifestRemoteDirectoryConstant  = "manifest-remote.git"
	workspaceLibrarySeedDirectoryConstant     = "library-seed"
	workspaceManifestSeedDirectoryConstant    = "manifest-seed"
	workspaceRootDirectoryNameConstant        = "workspace"
	workspaceLibraryRepositoryNameConstant    = "libalpha"
	workspaceMainBranchNameConstant           = "main"
	workspaceRemoteNameConstant               = "origin"
	workspaceUserNameConstant                 = "Integration Tester"
	workspaceUserEmailConstant                = "tester@example.com"
	workspaceManifestFileNameConstant         = "manifest.yml"
	workspaceManifestTemplateConstant         = "repos:\n  - name: libalpha\n    url: %s\n    branch: main\n"
	workspaceEmptyManifestContentConstant     = "repos: []\n"
	workspaceLibraryFileNameConstant          = "library.txt"
	workspaceLibraryFileContentsConstant      = "library contents\n"
	workspaceSeedCommitMessageConstant        = "Seed commit"
	workspaceInitializedTemplateConstant      = "Workspace initialized at %s"
	workspaceCloneSummaryLineConstant         = "* libalpha clone success"
	workspaceSkipSummaryLineConstant          = "* libalpha skip skipped already synchronized"
	workspaceInitTotalsLineConstant           = "1 synchronized, 0 skipped, 0 warnings, 0 failed"
	workspaceSyncTotalsLineConstant           = "0 synchronized, 1 skipped, 0 warnings, 0 failed"
	workspaceStatusLineConstant               = "* libalpha main"
	workspaceDirtyTokenConstant               = "(dirty)"
	workspaceStatusErrorTokenConstant         = "error:"
	workspaceAlreadyInitializedConstant       = "workspace is already initialized"
	workspaceEmptyPlanMessageConstant         = "Nothing to synchronize"
	workspaceManifestURLRecordKeyConstant     = "manifest_url:"
	workspaceManifestBranchRecordLineConstant = "manifest_branch: main"
	workspaceManifestPathRecordKeyConstant    = "manifest_path:"
	workspaceSyncedCommitRecordKeyConstant    = "last_synced_commit:"
	workspaceSnapshotFileNameConstant         = "pinned.yml"
	workspaceSnapshotSummaryTemplateConstant  = "Captured 1 repositories into %s"
	workspaceSnapshotNameLineConstant         = "name: libalpha"
	workspaceSnapshotBranchLineConstant       = "branch: main"
	workspaceSnapshotPinRecordKeyConstant     = "fixed_ref:"
)

// TestWorkspaceLifecycleIntegration drives the full lifecycle against real git
// remotes on the local filesystem: init clones the manifest mirror and every
// selected repository, a repeated init is rejected, status and a second sync
// observe the workspace as already synchronized, and snapshot pins the
// observed commits into a manifest file.
func TestWorkspaceLifecycleIntegration(testInstance *testing.T) {
	repositoryRootDirectory := locateRepositoryRoot(testInstance)
	temporaryRoot := testInstance.TempDir()

	libraryRemotePath := filepath.Join(temporaryRoot, workspaceLibraryRemoteDirectoryConstant)
	seedRemoteRepository(testInstance, temporaryRoot, libraryRemotePath, workspaceLibrarySeedDirectoryConstant, workspaceLibraryFileNameConstant, workspaceLibraryFileContentsConstant)

	manifestRemotePath := filepath.Join(temporaryRoot, workspaceManifestRemoteDirectoryConstant)
	manifestContent := fmt.Sprintf(workspaceManifestTemplateConstant, libraryRemotePath)
	seedRemoteRepository(testInstance, temporaryRoot, manifestRemotePath, workspaceManifestSeedDirectoryConstant, workspaceManifestFileNameConstant, manifestContent)

	workspaceRoot := filepath.Join(temporaryRoot, workspaceRootDirectoryNameConstant)
	require.NoError(testInstance, os.MkdirAll(workspaceRoot, 0o755))

	initArguments := []string{"init", manifestRemotePath, "--root", workspaceRoot, "--branch", workspaceMainBranchNameConstant}
	initOutput, initError := runIntegrationCommand(testInstance, repositoryRootDirectory, nil, initArguments)
	require.NoError(testInstance, initError, initOutput)
	require.Contains(testInstance, initOutput, fmt.Sprintf(workspaceInitializedTemplateConstant, workspaceRoot))
	require.Contains(testInstance, initOutput, workspaceCloneSummaryLineConstant)
	require.Contains(testInstance, initOutput, workspaceInitTotalsLineConstant)

	clonedLibraryPath := filepath.Join(workspaceRoot, workspaceLibraryRepositoryNameConstant, workspaceLibraryFileNameConstant)
	clonedContent, cloneReadError := os.ReadFile(clonedLibraryPath)
	require.NoError(testInstance, cloneReadError)
	require.Equal(testInstance, workspaceLibraryFileContentsConstant, string(clonedContent))

	recordContent := readWorkspaceRecord(testInstance, workspaceRoot)
	require.Contains(testInstance, recordContent, workspaceManifestURLRecordKeyConstant)
	require.Contains(testInstance, recordContent, workspaceManifestBranchRecordLineConstant)
	require.Contains(testInstance, recordContent, workspaceLibraryRepositoryNameConstant)
	require.Contains(testInstance, recordContent, workspaceSyncedCommitRecordKeyConstant)

	reinitOutput, reinitError := runIntegrationCommand(testInstance, repositoryRootDirectory, nil, initArguments)
	require.Error(testInstance, reinitError)
	require.Contains(testInstance, reinitOutput, workspaceAlreadyInitializedConstant)

	statusArguments := []string{"status", "--root", workspaceRoot}
	statusOutput, statusError := runIntegrationCommand(testInstance, repositoryRootDirectory, nil, statusArguments)
	require.NoError(testInstance, statusError, statusOutput)
	require.Contains(testInstance, statusOutput, workspaceStatusLineConstant)
	require.NotContains(testInstance, statusOutput, workspaceDirtyTokenConstant)
	require.NotContains(testInstance, statusOutput, workspaceStatusErrorTokenConstant)

	syncArguments := []string{"sync", "--root", workspaceRoot}
	syncOutput, syncError := runIntegrationCommand(testInstance, repositoryRootDirectory, nil, syncArguments)
	require.NoError(testInstance, syncError, syncOutput)
	require.Contains(testInstance, syncOutput, workspaceSkipSummaryLineConstant)
	require.Contains(testInstance, syncOutput, workspaceSyncTotalsLineConstant)

	snapshotPath := filepath.Join(temporaryRoot, workspaceSnapshotFileNameConstant)
	snapshotArguments := []string{"snapshot", "--root", workspaceRoot, "--output", snapshotPath}
	snapshotOutput, snapshotError := runIntegrationCommand(testInstance, repositoryRootDirectory, nil, snapshotArguments)
	require.NoError(testInstance, snapshotError, snapshotOutput)
	require.Contains(testInstance, snapshotOutput, fmt.Sprintf(workspaceSnapshotSummaryTemplateConstant, snapshotPath))

	snapshotContent, snapshotReadError := os.ReadFile(snapshotPath)
	require.NoError(testInstance, snapshotReadError)
	require.Contains(testInstance, string(snapshotContent), workspaceSnapshotNameLineConstant)
	require.Contains(testInstance, string(snapshotContent), workspaceSnapshotBranchLineConstant)
	require.Contains(testInstance, string(snapshotContent), workspaceSnapshotPinRecordKeyConstant)
}

// TestWorkspaceLocalManifestIntegration initializes a workspace from a local
// manifest file declaring no repositories. Both the first and the repeated
// synchronization report an empty plan without touching git.
func TestWorkspaceLocalManifestIntegration(testInstance *testing.T) {
	repositoryRootDirectory := locateRepositoryRoot(testInstance)
	temporaryRoot := testInstance.TempDir()

	manifestPath := filepath.Join(temporaryRoot, workspaceManifestFileNameConstant)
	writeFile(testInstance, manifestPath, workspaceEmptyManifestContentConstant)

	workspaceRoot := filepath.Join(temporaryRoot, workspaceRootDirectoryNameConstant)
	require.NoError(testInstance, os.MkdirAll(workspaceRoot, 0o755))

	initArguments := []string{"init", "--path", manifestPath, "--root", workspaceRoot}
	initOutput, initError := runIntegrationCommand(testInstance, repositoryRootDirectory, nil, initArguments)
	require.NoError(testInstance, initError, initOutput)
	require.Contains(testInstance, initOutput, fmt.Sprintf(workspaceInitializedTemplateConstant, workspaceRoot))
	require.Contains(testInstance, initOutput, workspaceEmptyPlanMessageConstant)

	recordContent := readWorkspaceRecord(testInstance, workspaceRoot)
	require.Contains(testInstance, recordContent, workspaceManifestPathRecordKeyConstant)

	syncArguments := []string{"sync", "--root", workspaceRoot}
	syncOutput, syncError := runIntegrationCommand(testInstance, repositoryRootDirectory, nil, syncArguments)
	require.NoError(testInstance, syncError, syncOutput)
	require.Contains(testInstance, syncOutput, workspaceEmptyPlanMessageConstant)
}

func seedRemoteRepository(testInstance *testing.T, temporaryRoot string, remotePath string, seedDirectoryName string, fileName string, fileContents string) {
	testInstance.Helper()

	runGitCommand(testInstance, temporaryRoot, []string{workspaceGitExecutableNameConstant, "init", "--bare", remotePath})

	seedPath := filepath.Join(temporaryRoot, seedDirectoryName)
	runGitCommand(testInstance, temporaryRoot, []string{workspaceGitExecutableNameConstant, "init", seedPath})
	runGitCommand(testInstance, seedPath, []string{workspaceGitExecutableNameConstant, "config", "user.name", workspaceUserNameConstant})
	runGitCommand(testInstance, seedPath, []string{workspaceGitExecutableNameConstant, "config", "user.email", workspaceUserEmailConstant})

	writeFile(testInstance, filepath.Join(seedPath, fileName), fileContents)
	runGitCommand(testInstance, seedPath, []string{workspaceGitExecutableNameConstant, "add", fileName})
	runGitCommand(testInstance, seedPath, []string{workspaceGitExecutableNameConstant, "commit", "-m", workspaceSeedCommitMessageConstant})
	runGitCommand(testInstance, seedPath, []string{workspaceGitExecutableNameConstant, "branch", "-M", workspaceMainBranchNameConstant})
	runGitCommand(testInstance, seedPath, []string{workspaceGitExecutableNameConstant, "remote", "add", workspaceRemoteNameConstant, remotePath})
	runGitCommand(testInstance, seedPath, []string{workspaceGitExecutableNameConstant, "push", "-u", workspaceRemoteNameConstant, workspaceMainBranchNameConstant})
}

func readWorkspaceRecord(testInstance *testing.T, workspaceRoot string) string {
	testInstance.Helper()
	recordPath := filepath.Join(workspaceRoot, ".tsrc", "workspace.yml")
	recordContent, readError := os.ReadFile(recordPath)
	require.NoError(testInstance, readError)
	return string(recordContent)
}
