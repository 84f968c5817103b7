package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sebastiken/tsrc/internal/filesystem"
	"github.com/sebastiken/tsrc/internal/gitrepo"
	"github.com/sebastiken/tsrc/internal/manifest"
	"github.com/sebastiken/tsrc/internal/shared"
)

const (
	fileSystemMissingMessageConstant   = "file system not configured"
	discovererMissingMessageConstant   = "repository discoverer not configured"
	inspectorMissingMessageConstant    = "repository inspector not configured"
	originRemoteNameConstant           = "origin"
	currentDirectoryNameConstant       = "."
	outputFileExistsTemplateConstant   = "snapshot output %s already exists; use --force to overwrite"
	manifestEncodeTemplateConstant     = "unable to encode snapshot manifest: %w"
	vanishedRepositoryMessageConstant  = "Skipping directory no longer containing a repository"
	missingOriginRemoteMessageConstant = "Skipping repository without an origin remote"
	snapshotCapturedMessageConstant    = "Captured workspace snapshot"
	repositoryFieldNameConstant        = "repository"
	outputPathFieldNameConstant        = "path"
	repositoryCountFieldNameConstant   = "repositories"
	skippedCountFieldNameConstant      = "skipped"
	snapshotFilePermissionsConstant    = 0o644
)

// ErrFileSystemNotConfigured indicates the service was built without a file system.
var ErrFileSystemNotConfigured = errors.New(fileSystemMissingMessageConstant)

// ErrDiscovererNotConfigured indicates the service was built without a repository discoverer.
var ErrDiscovererNotConfigured = errors.New(discovererMissingMessageConstant)

// ErrInspectorNotConfigured indicates the service was built without a repository inspector.
var ErrInspectorNotConfigured = errors.New(inspectorMissingMessageConstant)

// OutputFileExistsError indicates the snapshot target file already exists and
// overwriting was not requested.
type OutputFileExistsError struct {
	OutputPath string
}

// Error names the conflicting output file.
func (existsError OutputFileExistsError) Error() string {
	return fmt.Sprintf(outputFileExistsTemplateConstant, existsError.OutputPath)
}

// RepositoryInspector reads the local state and remote configuration of one repository.
type RepositoryInspector interface {
	ProbeRepositoryState(executionContext context.Context, repositoryPath string) (gitrepo.LocalState, error)
	GetRemoteURL(executionContext context.Context, repositoryPath string, remoteName string) (string, error)
}

// ServiceDependencies carries the collaborators required by the snapshot service.
type ServiceDependencies struct {
	Logger     *zap.Logger
	FileSystem shared.FileSystem
	Discoverer shared.RepositoryDiscoverer
	Inspector  RepositoryInspector
}

// Options carries the per-run settings of one capture.
type Options struct {
	WorkspaceRoot string
	OutputPath    string
	Force         bool
}

// Summary describes one completed capture.
type Summary struct {
	RepositoryCount int
	SkippedCount    int
	OutputPath      string
}

// Service captures workspace state as a pinned manifest file.
type Service struct {
	logger     *zap.Logger
	fileSystem shared.FileSystem
	discoverer shared.RepositoryDiscoverer
	inspector  RepositoryInspector
}

// NewService constructs a snapshot Service from its dependencies.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.FileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}
	if dependencies.Discoverer == nil {
		return nil, ErrDiscovererNotConfigured
	}
	if dependencies.Inspector == nil {
		return nil, ErrInspectorNotConfigured
	}

	serviceLogger := dependencies.Logger
	if serviceLogger == nil {
		serviceLogger = zap.NewNop()
	}

	return &Service{
		logger:     serviceLogger,
		fileSystem: dependencies.FileSystem,
		discoverer: dependencies.Discoverer,
		inspector:  dependencies.Inspector,
	}, nil
}

// Capture walks the workspace for repositories and writes a manifest pinning
// each one to its observed HEAD commit. Repositories without an origin remote
// are skipped with a warning because the manifest could not clone them back.
func (service *Service) Capture(executionContext context.Context, options Options) (Summary, error) {
	if writableError := service.ensureOutputWritable(options); writableError != nil {
		return Summary{}, writableError
	}

	repositoryPaths, discoveryError := service.discoverer.DiscoverRepositories([]string{options.WorkspaceRoot})
	if discoveryError != nil {
		return Summary{}, discoveryError
	}

	descriptors := make([]manifest.RepositoryDescriptor, 0, len(repositoryPaths))
	skippedCount := 0
	for _, repositoryPath := range repositoryPaths {
		if contextError := executionContext.Err(); contextError != nil {
			return Summary{}, contextError
		}

		relativePath, relativeError := filepath.Rel(options.WorkspaceRoot, repositoryPath)
		if relativeError != nil {
			return Summary{}, relativeError
		}
		repositoryName := filepath.ToSlash(relativePath)
		// A workspace root that is itself a git repository is not a member.
		if repositoryName == currentDirectoryNameConstant {
			continue
		}

		descriptor, captured, captureError := service.captureRepository(executionContext, repositoryPath, repositoryName)
		if captureError != nil {
			return Summary{}, captureError
		}
		if !captured {
			skippedCount++
			continue
		}
		descriptors = append(descriptors, descriptor)
	}

	manifestContent, encodeError := yaml.Marshal(manifest.Manifest{Repositories: descriptors})
	if encodeError != nil {
		return Summary{}, fmt.Errorf(manifestEncodeTemplateConstant, encodeError)
	}
	if writeError := filesystem.WriteFileAtomically(service.fileSystem, options.OutputPath, manifestContent, snapshotFilePermissionsConstant); writeError != nil {
		return Summary{}, writeError
	}

	service.logger.Info(snapshotCapturedMessageConstant,
		zap.Int(repositoryCountFieldNameConstant, len(descriptors)),
		zap.Int(skippedCountFieldNameConstant, skippedCount),
		zap.String(outputPathFieldNameConstant, options.OutputPath),
	)
	return Summary{
		RepositoryCount: len(descriptors),
		SkippedCount:    skippedCount,
		OutputPath:      options.OutputPath,
	}, nil
}

func (service *Service) captureRepository(executionContext context.Context, repositoryPath string, repositoryName string) (manifest.RepositoryDescriptor, bool, error) {
	localState, probeError := service.inspector.ProbeRepositoryState(executionContext, repositoryPath)
	if probeError != nil {
		return manifest.RepositoryDescriptor{}, false, probeError
	}
	if !localState.Present {
		service.logger.Warn(vanishedRepositoryMessageConstant, zap.String(repositoryFieldNameConstant, repositoryName))
		return manifest.RepositoryDescriptor{}, false, nil
	}

	remoteURL, remoteError := service.inspector.GetRemoteURL(executionContext, repositoryPath, originRemoteNameConstant)
	if remoteError != nil || len(strings.TrimSpace(remoteURL)) == 0 {
		service.logger.Warn(missingOriginRemoteMessageConstant, zap.String(repositoryFieldNameConstant, repositoryName))
		return manifest.RepositoryDescriptor{}, false, nil
	}

	descriptor := manifest.RepositoryDescriptor{
		Name:           repositoryName,
		RemoteURL:      strings.TrimSpace(remoteURL),
		FixedReference: localState.CurrentCommit,
	}
	if !localState.DetachedHead {
		descriptor.Branch = localState.CurrentBranch
	}
	return descriptor, true, nil
}

func (service *Service) ensureOutputWritable(options Options) error {
	if options.Force {
		return nil
	}
	_, statError := service.fileSystem.Stat(options.OutputPath)
	if statError == nil {
		return OutputFileExistsError{OutputPath: options.OutputPath}
	}
	if errors.Is(statError, fs.ErrNotExist) {
		return nil
	}
	return statError
}
