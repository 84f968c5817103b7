package status

import (
	"context"
	"errors"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sebastiken/tsrc/internal/gitrepo"
	"github.com/sebastiken/tsrc/internal/manifest"
	"github.com/sebastiken/tsrc/internal/shared"
	"github.com/sebastiken/tsrc/internal/workspace"
)

const (
	fileSystemMissingMessageConstant        = "file system not configured"
	repositoryManagerMissingMessageConstant = "repository manager not configured"
	workspaceNotInitializedMessageConstant  = "workspace is not initialized; run init first"
	statusCollectedMessageConstant          = "Collected workspace status"
	repositoryCountFieldNameConstant        = "repositories"
	missingCountFieldNameConstant           = "missing"
	driftedCountFieldNameConstant           = "drifted"
)

// ErrFileSystemNotConfigured indicates the service was built without a file system.
var ErrFileSystemNotConfigured = errors.New(fileSystemMissingMessageConstant)

// ErrRepositoryManagerNotConfigured indicates the service was built without a repository manager.
var ErrRepositoryManagerNotConfigured = errors.New(repositoryManagerMissingMessageConstant)

// ErrWorkspaceNotInitialized indicates a status collection was requested in a
// directory that was never initialized.
var ErrWorkspaceNotInitialized = errors.New(workspaceNotInitializedMessageConstant)

// ServiceDependencies carries the collaborators required by the status service.
type ServiceDependencies struct {
	Logger            *zap.Logger
	FileSystem        shared.FileSystem
	RepositoryManager shared.WorkspaceRepositoryManager
}

// Options carries the per-run settings of one status collection.
type Options struct {
	WorkspaceRoot string
	GroupNames    []string
	JobCount      int
}

// RepositoryStatus describes one repository's observed state next to its
// manifest target.
type RepositoryStatus struct {
	RepositoryName    string
	LocalPath         string
	TargetReference   string
	Pinned            bool
	Present           bool
	CurrentBranch     string
	CurrentCommit     string
	DetachedHead      bool
	HasLocalChanges   bool
	HasUpstream       bool
	AheadCount        int
	BehindCount       int
	OnTargetReference bool
	ObservationError  error
}

// Service collects repository statuses for an initialized workspace.
type Service struct {
	logger            *zap.Logger
	fileSystem        shared.FileSystem
	repositoryManager shared.WorkspaceRepositoryManager
}

// NewService constructs a status Service from its dependencies.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.FileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}
	if dependencies.RepositoryManager == nil {
		return nil, ErrRepositoryManagerNotConfigured
	}

	serviceLogger := dependencies.Logger
	if serviceLogger == nil {
		serviceLogger = zap.NewNop()
	}

	return &Service{
		logger:            serviceLogger,
		fileSystem:        dependencies.FileSystem,
		repositoryManager: dependencies.RepositoryManager,
	}, nil
}

// Collect resolves the recorded manifest selection and probes every target in
// manifest order. The manifest is read as last synchronized; collection never
// refreshes the mirror or contacts any remote.
func (service *Service) Collect(executionContext context.Context, options Options) ([]RepositoryStatus, error) {
	store, storeError := workspace.NewRecordStore(service.fileSystem, options.WorkspaceRoot)
	if storeError != nil {
		return nil, storeError
	}
	record, recordError := store.Load()
	if recordError != nil {
		if errors.Is(recordError, workspace.ErrRecordNotFound) {
			return nil, ErrWorkspaceNotInitialized
		}
		return nil, recordError
	}

	manifestData, manifestError := service.loadWorkspaceManifest(record, options.WorkspaceRoot)
	if manifestError != nil {
		return nil, manifestError
	}

	effectiveGroupNames := options.GroupNames
	if len(effectiveGroupNames) == 0 {
		effectiveGroupNames = record.GroupNames
	}

	targets, resolveError := manifest.Resolve(manifestData, effectiveGroupNames, manifest.Overrides{})
	if resolveError != nil {
		return nil, resolveError
	}

	statuses := make([]RepositoryStatus, len(targets))
	jobCount := options.JobCount
	if jobCount <= 0 {
		jobCount = defaultJobCountConstant
	}

	observationGroup, observationContext := errgroup.WithContext(executionContext)
	observationGroup.SetLimit(jobCount)
	for targetIndex := range targets {
		targetIndex := targetIndex
		observationGroup.Go(func() error {
			statuses[targetIndex] = service.observe(observationContext, options.WorkspaceRoot, targets[targetIndex])
			return nil
		})
	}
	if waitError := observationGroup.Wait(); waitError != nil {
		return nil, waitError
	}
	if contextError := executionContext.Err(); contextError != nil {
		return nil, contextError
	}

	service.logger.Info(
		statusCollectedMessageConstant,
		zap.Int(repositoryCountFieldNameConstant, len(statuses)),
		zap.Int(missingCountFieldNameConstant, countMissing(statuses)),
		zap.Int(driftedCountFieldNameConstant, countDrifted(statuses)),
	)
	return statuses, nil
}

func (service *Service) loadWorkspaceManifest(record workspace.WorkspaceRecord, workspaceRoot string) (manifest.Manifest, error) {
	if record.UsesLocalManifest() {
		return workspace.LoadManifestFile(service.fileSystem, record.ManifestPath)
	}

	mirror, mirrorError := workspace.NewManifestMirror(service.fileSystem, service.repositoryManager, workspaceRoot)
	if mirrorError != nil {
		return manifest.Manifest{}, mirrorError
	}
	return mirror.Load()
}

func (service *Service) observe(executionContext context.Context, workspaceRoot string, target manifest.ResolvedTarget) RepositoryStatus {
	observed := RepositoryStatus{
		RepositoryName:  target.Name,
		LocalPath:       target.LocalPath,
		TargetReference: target.Reference,
		Pinned:          target.Pinned,
	}

	repositoryPath := filepath.Join(workspaceRoot, filepath.FromSlash(target.LocalPath))
	localState, probeError := service.repositoryManager.ProbeRepositoryState(executionContext, repositoryPath)
	if probeError != nil {
		observed.ObservationError = probeError
		return observed
	}
	if !localState.Present {
		return observed
	}

	observed.Present = true
	observed.CurrentBranch = localState.CurrentBranch
	observed.CurrentCommit = localState.CurrentCommit
	observed.DetachedHead = localState.DetachedHead
	observed.HasLocalChanges = localState.HasLocalChanges
	observed.OnTargetReference = onTargetReference(localState, target)

	divergence, divergenceError := service.repositoryManager.CountBranchDivergence(executionContext, repositoryPath)
	if divergenceError != nil {
		observed.ObservationError = divergenceError
		return observed
	}
	observed.HasUpstream = divergence.HasUpstream
	observed.AheadCount = divergence.AheadCount
	observed.BehindCount = divergence.BehindCount
	return observed
}

// onTargetReference treats a pinned target as on target while its HEAD stays
// detached; exact commit comparison belongs to the synchronization planner,
// which has the recorded commit to compare against.
func onTargetReference(localState gitrepo.LocalState, target manifest.ResolvedTarget) bool {
	if target.Pinned {
		return localState.DetachedHead
	}
	return !localState.DetachedHead && localState.CurrentBranch == target.Reference
}

func countMissing(statuses []RepositoryStatus) int {
	missingCount := 0
	for _, repositoryStatus := range statuses {
		if !repositoryStatus.Present && repositoryStatus.ObservationError == nil {
			missingCount++
		}
	}
	return missingCount
}

func countDrifted(statuses []RepositoryStatus) int {
	driftedCount := 0
	for _, repositoryStatus := range statuses {
		if repositoryStatus.Present && !repositoryStatus.OnTargetReference {
			driftedCount++
		}
	}
	return driftedCount
}
