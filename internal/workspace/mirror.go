package workspace

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sebastiken/tsrc/internal/gitrepo"
	"github.com/sebastiken/tsrc/internal/manifest"
	"github.com/sebastiken/tsrc/internal/shared"
)

const (
	mirrorDirectoryNameConstant                   = "manifest"
	remoteBranchPrefixConstant                    = "origin/"
	manifestReadFailureTemplateConstant           = "unable to read manifest %s: %w"
	repositoryManagerNotConfiguredMessageConstant = "repository manager not configured"
	manifestBranchRequiredMessageConstant         = "manifest branch is required"
)

var (
	// ErrRepositoryManagerNotConfigured indicates a missing repository manager collaborator.
	ErrRepositoryManagerNotConfigured = errors.New(repositoryManagerNotConfiguredMessageConstant)
	// ErrManifestBranchRequired indicates a mirror refresh without a branch name.
	ErrManifestBranchRequired = errors.New(manifestBranchRequiredMessageConstant)
)

// ManifestMirror maintains the local clone of the manifest repository beneath
// the workspace state directory.
type ManifestMirror struct {
	fileSystem        shared.FileSystem
	repositoryManager shared.WorkspaceRepositoryManager
	workspaceRoot     string
}

// NewManifestMirror validates collaborators and builds a ManifestMirror rooted
// at workspaceRoot.
func NewManifestMirror(fileSystem shared.FileSystem, repositoryManager shared.WorkspaceRepositoryManager, workspaceRoot string) (*ManifestMirror, error) {
	if fileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}
	if repositoryManager == nil {
		return nil, ErrRepositoryManagerNotConfigured
	}
	trimmedWorkspaceRoot := strings.TrimSpace(workspaceRoot)
	if len(trimmedWorkspaceRoot) == 0 {
		return nil, ErrWorkspaceRootRequired
	}
	return &ManifestMirror{
		fileSystem:        fileSystem,
		repositoryManager: repositoryManager,
		workspaceRoot:     trimmedWorkspaceRoot,
	}, nil
}

// DirectoryPath returns the mirror clone location.
func (mirror *ManifestMirror) DirectoryPath() string {
	return filepath.Join(mirror.workspaceRoot, StateDirectoryName, mirrorDirectoryNameConstant)
}

// ManifestFilePath returns the manifest file inside the mirror clone.
func (mirror *ManifestMirror) ManifestFilePath() string {
	return filepath.Join(mirror.DirectoryPath(), manifest.DefaultManifestFileName)
}

// Clone populates the mirror from the manifest repository. An empty branch
// name clones the remote default branch.
func (mirror *ManifestMirror) Clone(executionContext context.Context, remoteURL string, branchName string) error {
	return mirror.repositoryManager.CloneRepository(executionContext, gitrepo.CloneOptions{
		RemoteURL:       remoteURL,
		DestinationPath: mirror.DirectoryPath(),
		BranchName:      branchName,
	})
}

// Refresh updates the mirror clone to the latest manifest revision on branchName.
func (mirror *ManifestMirror) Refresh(executionContext context.Context, branchName string) error {
	trimmedBranchName := strings.TrimSpace(branchName)
	if len(trimmedBranchName) == 0 {
		return ErrManifestBranchRequired
	}
	if fetchError := mirror.repositoryManager.FetchRemote(executionContext, mirror.DirectoryPath()); fetchError != nil {
		return fetchError
	}
	if checkoutError := mirror.repositoryManager.CheckoutBranch(executionContext, mirror.DirectoryPath(), trimmedBranchName); checkoutError != nil {
		return checkoutError
	}
	return mirror.repositoryManager.ResetHard(executionContext, mirror.DirectoryPath(), remoteBranchPrefixConstant+trimmedBranchName)
}

// CurrentBranch reports the branch the mirror clone currently tracks.
func (mirror *ManifestMirror) CurrentBranch(executionContext context.Context) (string, error) {
	return mirror.repositoryManager.GetCurrentBranch(executionContext, mirror.DirectoryPath())
}

// Load parses the manifest from the mirror clone.
func (mirror *ManifestMirror) Load() (manifest.Manifest, error) {
	return LoadManifestFile(mirror.fileSystem, mirror.ManifestFilePath())
}

// LoadManifestFile reads and parses a manifest from an explicit file path.
func LoadManifestFile(fileSystem shared.FileSystem, manifestFilePath string) (manifest.Manifest, error) {
	manifestContent, readError := fileSystem.ReadFile(manifestFilePath)
	if readError != nil {
		return manifest.Manifest{}, fmt.Errorf(manifestReadFailureTemplateConstant, manifestFilePath, readError)
	}
	return manifest.Parse(manifestContent)
}
