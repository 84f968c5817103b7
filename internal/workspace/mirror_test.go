package workspace_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sebastiken/tsrc/internal/filesystem"
	"github.com/sebastiken/tsrc/internal/gitrepo"
	"github.com/sebastiken/tsrc/internal/workspace"
)

const (
	cloneOperationNameConstant          = "clone"
	fetchOperationNameConstant          = "fetch"
	checkoutBranchOperationNameConstant = "checkout-branch"
	checkoutCommitOperationNameConstant = "checkout-commit"
	fastForwardOperationNameConstant    = "fast-forward"
	resetHardOperationNameConstant      = "reset-hard"
	sparseCheckoutOperationNameConstant = "sparse-checkout"
	fetchFailureMessageConstant         = "fetch failed"
	mirrorManifestContentConstant       = "repos:\n  - name: libfoo\n    url: https://example.com/libfoo.git\n"
)

type recordedRepositoryOperation struct {
	operationName  string
	repositoryPath string
	argument       string
}

type stubRepositoryManager struct {
	recordedOperations []recordedRepositoryOperation
	recordedClones     []gitrepo.CloneOptions
	operationErrors    []error
	currentBranchName  string
}

func (stub *stubRepositoryManager) nextOperationError() error {
	if len(stub.operationErrors) == 0 {
		return nil
	}
	nextError := stub.operationErrors[0]
	stub.operationErrors = stub.operationErrors[1:]
	return nextError
}

func (stub *stubRepositoryManager) recordOperation(operationName string, repositoryPath string, argument string) error {
	stub.recordedOperations = append(stub.recordedOperations, recordedRepositoryOperation{
		operationName:  operationName,
		repositoryPath: repositoryPath,
		argument:       argument,
	})
	return stub.nextOperationError()
}

func (stub *stubRepositoryManager) CloneRepository(_ context.Context, options gitrepo.CloneOptions) error {
	stub.recordedClones = append(stub.recordedClones, options)
	return stub.recordOperation(cloneOperationNameConstant, options.DestinationPath, options.RemoteURL)
}

func (stub *stubRepositoryManager) FetchRemote(_ context.Context, repositoryPath string) error {
	return stub.recordOperation(fetchOperationNameConstant, repositoryPath, "")
}

func (stub *stubRepositoryManager) CheckoutBranch(_ context.Context, repositoryPath string, branchName string) error {
	return stub.recordOperation(checkoutBranchOperationNameConstant, repositoryPath, branchName)
}

func (stub *stubRepositoryManager) CheckoutCommit(_ context.Context, repositoryPath string, commitReference string) error {
	return stub.recordOperation(checkoutCommitOperationNameConstant, repositoryPath, commitReference)
}

func (stub *stubRepositoryManager) FastForwardBranch(_ context.Context, repositoryPath string) error {
	return stub.recordOperation(fastForwardOperationNameConstant, repositoryPath, "")
}

func (stub *stubRepositoryManager) ResetHard(_ context.Context, repositoryPath string, reference string) error {
	return stub.recordOperation(resetHardOperationNameConstant, repositoryPath, reference)
}

func (stub *stubRepositoryManager) ConfigureSparseCheckout(_ context.Context, repositoryPath string, patterns []string) error {
	return stub.recordOperation(sparseCheckoutOperationNameConstant, repositoryPath, strings.Join(patterns, " "))
}

func (stub *stubRepositoryManager) CheckCleanWorktree(_ context.Context, _ string) (bool, error) {
	return true, stub.nextOperationError()
}

func (stub *stubRepositoryManager) GetCurrentBranch(_ context.Context, _ string) (string, error) {
	return stub.currentBranchName, stub.nextOperationError()
}

func (stub *stubRepositoryManager) GetCurrentCommit(_ context.Context, _ string) (string, error) {
	return testSyncedCommitConstant, stub.nextOperationError()
}

func (stub *stubRepositoryManager) ProbeRepositoryState(_ context.Context, _ string) (gitrepo.LocalState, error) {
	return gitrepo.LocalState{}, stub.nextOperationError()
}

func (stub *stubRepositoryManager) CountBranchDivergence(_ context.Context, _ string) (gitrepo.DivergenceCounts, error) {
	return gitrepo.DivergenceCounts{}, stub.nextOperationError()
}

func buildManifestMirror(testFramework *testing.T, workspaceRoot string, repositoryManager *stubRepositoryManager) *workspace.ManifestMirror {
	testFramework.Helper()

	mirror, creationError := workspace.NewManifestMirror(filesystem.OSFileSystem{}, repositoryManager, workspaceRoot)
	require.NoError(testFramework, creationError)
	return mirror
}

func TestManifestMirrorBuildsStatePaths(t *testing.T) {
	t.Parallel()

	workspaceRoot := t.TempDir()
	mirror := buildManifestMirror(t, workspaceRoot, &stubRepositoryManager{})

	expectedDirectoryPath := filepath.Join(workspaceRoot, workspace.StateDirectoryName, "manifest")
	require.Equal(t, expectedDirectoryPath, mirror.DirectoryPath())
	require.Equal(t, filepath.Join(expectedDirectoryPath, "manifest.yml"), mirror.ManifestFilePath())
}

func TestManifestMirrorClonesManifestRepository(t *testing.T) {
	t.Parallel()

	repositoryManager := &stubRepositoryManager{}
	mirror := buildManifestMirror(t, t.TempDir(), repositoryManager)

	require.NoError(t, mirror.Clone(context.Background(), testManifestURLConstant, testManifestBranchConstant))

	require.Len(t, repositoryManager.recordedClones, 1)
	require.Equal(t, gitrepo.CloneOptions{
		RemoteURL:       testManifestURLConstant,
		DestinationPath: mirror.DirectoryPath(),
		BranchName:      testManifestBranchConstant,
	}, repositoryManager.recordedClones[0])
}

func TestManifestMirrorRefreshUpdatesMirrorClone(t *testing.T) {
	t.Parallel()

	repositoryManager := &stubRepositoryManager{}
	mirror := buildManifestMirror(t, t.TempDir(), repositoryManager)

	require.NoError(t, mirror.Refresh(context.Background(), testManifestBranchConstant))

	require.Equal(t, []recordedRepositoryOperation{
		{operationName: fetchOperationNameConstant, repositoryPath: mirror.DirectoryPath()},
		{operationName: checkoutBranchOperationNameConstant, repositoryPath: mirror.DirectoryPath(), argument: testManifestBranchConstant},
		{operationName: resetHardOperationNameConstant, repositoryPath: mirror.DirectoryPath(), argument: "origin/" + testManifestBranchConstant},
	}, repositoryManager.recordedOperations)
}

func TestManifestMirrorRefreshRequiresBranch(t *testing.T) {
	t.Parallel()

	repositoryManager := &stubRepositoryManager{}
	mirror := buildManifestMirror(t, t.TempDir(), repositoryManager)

	refreshError := mirror.Refresh(context.Background(), "  ")

	require.ErrorIs(t, refreshError, workspace.ErrManifestBranchRequired)
	require.Empty(t, repositoryManager.recordedOperations)
}

func TestManifestMirrorRefreshStopsOnFetchFailure(t *testing.T) {
	t.Parallel()

	fetchFailure := errors.New(fetchFailureMessageConstant)
	repositoryManager := &stubRepositoryManager{operationErrors: []error{fetchFailure}}
	mirror := buildManifestMirror(t, t.TempDir(), repositoryManager)

	refreshError := mirror.Refresh(context.Background(), testManifestBranchConstant)

	require.ErrorIs(t, refreshError, fetchFailure)
	require.Len(t, repositoryManager.recordedOperations, 1)
}

func TestManifestMirrorLoadsManifest(t *testing.T) {
	t.Parallel()

	mirror := buildManifestMirror(t, t.TempDir(), &stubRepositoryManager{})
	require.NoError(t, os.MkdirAll(mirror.DirectoryPath(), 0o755))
	require.NoError(t, os.WriteFile(mirror.ManifestFilePath(), []byte(mirrorManifestContentConstant), 0o644))

	loadedManifest, loadError := mirror.Load()

	require.NoError(t, loadError)
	require.Len(t, loadedManifest.Repositories, 1)
	require.Equal(t, testLibraryRepositoryNameConstant, loadedManifest.Repositories[0].Name)
}

func TestLoadManifestFileReportsReadFailures(t *testing.T) {
	t.Parallel()

	_, loadError := workspace.LoadManifestFile(filesystem.OSFileSystem{}, filepath.Join(t.TempDir(), "missing.yml"))

	require.ErrorContains(t, loadError, "unable to read manifest")
}
