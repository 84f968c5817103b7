package bootstrap

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/sebastiken/tsrc/internal/manifest"
	"github.com/sebastiken/tsrc/internal/shared"
	"github.com/sebastiken/tsrc/internal/syncer"
	"github.com/sebastiken/tsrc/internal/workspace"
)

const (
	alreadyInitializedMessageConstant             = "workspace is already initialized"
	manifestSourceRequiredMessageConstant         = "manifest url or local manifest path is required"
	manifestSourceConflictMessageConstant         = "manifest url and local manifest path are mutually exclusive"
	branchRequiresRemoteMessageConstant           = "manifest branch selection requires a manifest url"
	fileSystemNotConfiguredMessageConstant        = "file system not configured"
	repositoryManagerNotConfiguredMessageConstant = "repository manager not configured"
	synchronizerNotConfiguredMessageConstant      = "synchronizer not configured"
	workspaceInitializedMessageConstant           = "Initialized workspace"
	workspaceRootFieldNameConstant                = "workspace_root"
	manifestURLFieldNameConstant                  = "manifest_url"
	manifestPathFieldNameConstant                 = "manifest_path"
	manifestBranchFieldNameConstant               = "manifest_branch"
)

var (
	// ErrWorkspaceAlreadyInitialized indicates an init against a workspace that already has a record.
	ErrWorkspaceAlreadyInitialized = errors.New(alreadyInitializedMessageConstant)
	// ErrManifestSourceRequired indicates an init without a manifest url or local manifest path.
	ErrManifestSourceRequired = errors.New(manifestSourceRequiredMessageConstant)
	// ErrManifestSourceConflict indicates an init naming both a manifest url and a local manifest path.
	ErrManifestSourceConflict = errors.New(manifestSourceConflictMessageConstant)
	// ErrBranchRequiresRemoteManifest indicates a branch selection combined with a local manifest path.
	ErrBranchRequiresRemoteManifest = errors.New(branchRequiresRemoteMessageConstant)
	// ErrFileSystemNotConfigured indicates a missing file system collaborator.
	ErrFileSystemNotConfigured = errors.New(fileSystemNotConfiguredMessageConstant)
	// ErrRepositoryManagerNotConfigured indicates a missing repository manager collaborator.
	ErrRepositoryManagerNotConfigured = errors.New(repositoryManagerNotConfiguredMessageConstant)
	// ErrSynchronizerNotConfigured indicates a missing synchronizer collaborator.
	ErrSynchronizerNotConfigured = errors.New(synchronizerNotConfiguredMessageConstant)
)

// ServiceDependencies enumerates the collaborators required by the Service.
type ServiceDependencies struct {
	Logger            *zap.Logger
	FileSystem        shared.FileSystem
	RepositoryManager shared.WorkspaceRepositoryManager
	Synchronizer      syncer.WorkspaceSynchronizer
}

// Options captures one workspace initialization request. Exactly one of
// ManifestURL and LocalManifestPath names the manifest source.
type Options struct {
	WorkspaceRoot     string
	ManifestURL       string
	ManifestBranch    string
	LocalManifestPath string
	GroupNames        []string
	JobCount          int
}

// Service initializes workspaces and runs their first synchronization.
type Service struct {
	logger            *zap.Logger
	fileSystem        shared.FileSystem
	repositoryManager shared.WorkspaceRepositoryManager
	synchronizer      syncer.WorkspaceSynchronizer
}

// NewService validates dependencies and constructs a Service.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.FileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}
	if dependencies.RepositoryManager == nil {
		return nil, ErrRepositoryManagerNotConfigured
	}
	if dependencies.Synchronizer == nil {
		return nil, ErrSynchronizerNotConfigured
	}
	serviceLogger := dependencies.Logger
	if serviceLogger == nil {
		serviceLogger = zap.NewNop()
	}
	return &Service{
		logger:            serviceLogger,
		fileSystem:        dependencies.FileSystem,
		repositoryManager: dependencies.RepositoryManager,
		synchronizer:      dependencies.Synchronizer,
	}, nil
}

// Initialize records the manifest source for a fresh workspace and runs the
// first synchronization against the just-populated manifest. The record is
// written only after the manifest has been fetched and resolved, so a failed
// init leaves the workspace uninitialized.
func (service *Service) Initialize(executionContext context.Context, options Options) (syncer.Summary, error) {
	if validationError := validateOptions(options); validationError != nil {
		return syncer.Summary{}, validationError
	}

	recordStore, storeError := workspace.NewRecordStore(service.fileSystem, options.WorkspaceRoot)
	if storeError != nil {
		return syncer.Summary{}, storeError
	}
	recordExists, existsError := recordStore.Exists()
	if existsError != nil {
		return syncer.Summary{}, existsError
	}
	if recordExists {
		return syncer.Summary{}, ErrWorkspaceAlreadyInitialized
	}

	record := workspace.WorkspaceRecord{GroupNames: options.GroupNames}
	if len(options.LocalManifestPath) > 0 {
		manifestDocument, loadError := workspace.LoadManifestFile(service.fileSystem, options.LocalManifestPath)
		if loadError != nil {
			return syncer.Summary{}, loadError
		}
		if _, resolveError := manifest.Resolve(manifestDocument, options.GroupNames, manifest.Overrides{}); resolveError != nil {
			return syncer.Summary{}, resolveError
		}
		record.ManifestPath = options.LocalManifestPath
	} else {
		manifestBranch, mirrorError := service.populateMirror(executionContext, options)
		if mirrorError != nil {
			return syncer.Summary{}, mirrorError
		}
		record.ManifestURL = options.ManifestURL
		record.ManifestBranch = manifestBranch
	}

	if saveError := recordStore.Save(record); saveError != nil {
		return syncer.Summary{}, saveError
	}
	service.logger.Info(workspaceInitializedMessageConstant, initializationLogFields(options.WorkspaceRoot, record)...)

	return service.synchronizer.Sync(executionContext, syncer.SyncOptions{
		WorkspaceRoot:       options.WorkspaceRoot,
		GroupNames:          options.GroupNames,
		JobCount:            options.JobCount,
		SkipManifestRefresh: true,
	})
}

// populateMirror clones the manifest repository and resolves the manifest it
// carries. A failed earlier init can leave a mirror clone without a record, so
// any existing mirror directory is discarded before cloning.
func (service *Service) populateMirror(executionContext context.Context, options Options) (string, error) {
	mirror, mirrorError := workspace.NewManifestMirror(service.fileSystem, service.repositoryManager, options.WorkspaceRoot)
	if mirrorError != nil {
		return "", mirrorError
	}
	if removeError := service.fileSystem.RemoveAll(mirror.DirectoryPath()); removeError != nil {
		return "", removeError
	}
	if cloneError := mirror.Clone(executionContext, options.ManifestURL, options.ManifestBranch); cloneError != nil {
		return "", cloneError
	}

	manifestBranch := options.ManifestBranch
	if len(manifestBranch) == 0 {
		currentBranch, branchError := mirror.CurrentBranch(executionContext)
		if branchError != nil {
			return "", branchError
		}
		manifestBranch = strings.TrimSpace(currentBranch)
	}

	manifestDocument, loadError := mirror.Load()
	if loadError != nil {
		return "", loadError
	}
	if _, resolveError := manifest.Resolve(manifestDocument, options.GroupNames, manifest.Overrides{}); resolveError != nil {
		return "", resolveError
	}
	return manifestBranch, nil
}

func validateOptions(options Options) error {
	hasRemoteManifest := len(options.ManifestURL) > 0
	hasLocalManifest := len(options.LocalManifestPath) > 0
	if !hasRemoteManifest && !hasLocalManifest {
		return ErrManifestSourceRequired
	}
	if hasRemoteManifest && hasLocalManifest {
		return ErrManifestSourceConflict
	}
	if hasLocalManifest && len(options.ManifestBranch) > 0 {
		return ErrBranchRequiresRemoteManifest
	}
	return nil
}

func initializationLogFields(workspaceRoot string, record workspace.WorkspaceRecord) []zap.Field {
	logFields := []zap.Field{zap.String(workspaceRootFieldNameConstant, workspaceRoot)}
	if record.UsesLocalManifest() {
		return append(logFields, zap.String(manifestPathFieldNameConstant, record.ManifestPath))
	}
	return append(logFields,
		zap.String(manifestURLFieldNameConstant, record.ManifestURL),
		zap.String(manifestBranchFieldNameConstant, record.ManifestBranch),
	)
}
