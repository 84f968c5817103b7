package syncer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/sebastiken/tsrc/internal/manifest"
	"github.com/sebastiken/tsrc/internal/shared"
	"github.com/sebastiken/tsrc/internal/workspace"
)

const (
	corruptRecordPromptTemplateConstant = "Workspace record %s is unreadable. Discard it so the workspace can be initialized again?"
	manifestRefreshedMessageConstant    = "Refreshed manifest"
	planComputedMessageConstant         = "Computed synchronization plan"
	manifestBranchFieldNameConstant     = "branch"
	cloneCountFieldNameConstant         = "clones"
	updateCountFieldNameConstant        = "updates"
	skipCountFieldNameConstant          = "skips"
	removalCountFieldNameConstant       = "removals"
)

// SyncDependencies carries the collaborators required by the synchronization service.
type SyncDependencies struct {
	Logger            *zap.Logger
	FileSystem        shared.FileSystem
	RepositoryManager shared.WorkspaceRepositoryManager
	Prompter          shared.ConfirmationPrompter
	Clock             shared.Clock
}

// SyncOptions carries the per-run settings of one synchronization.
type SyncOptions struct {
	WorkspaceRoot       string
	GroupNames          []string
	ReferenceOverrides  map[string]string
	SparseOverrides     map[string][]string
	JobCount            int
	Force               bool
	AssumeYes           bool
	SkipManifestRefresh bool
}

// SyncService wires the resolver, planner, executor, and reconciler into the
// full synchronization pipeline. The workspace record is written exactly once
// per run, after all results are collected.
type SyncService struct {
	logger            *zap.Logger
	fileSystem        shared.FileSystem
	repositoryManager shared.WorkspaceRepositoryManager
	prompter          shared.ConfirmationPrompter
	planner           *Planner
	executor          *Executor
}

// NewSyncService constructs a SyncService from its dependencies.
func NewSyncService(dependencies SyncDependencies) (*SyncService, error) {
	if dependencies.FileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}
	if dependencies.Prompter == nil {
		return nil, ErrPrompterNotConfigured
	}

	serviceLogger := dependencies.Logger
	if serviceLogger == nil {
		serviceLogger = zap.NewNop()
	}

	planner, plannerError := NewPlanner(dependencies.RepositoryManager)
	if plannerError != nil {
		return nil, plannerError
	}
	executor, executorError := NewExecutor(serviceLogger, dependencies.RepositoryManager, dependencies.FileSystem, dependencies.Prompter, dependencies.Clock)
	if executorError != nil {
		return nil, executorError
	}

	return &SyncService{
		logger:            serviceLogger,
		fileSystem:        dependencies.FileSystem,
		repositoryManager: dependencies.RepositoryManager,
		prompter:          dependencies.Prompter,
		planner:           planner,
		executor:          executor,
	}, nil
}

// Sync refreshes the manifest, resolves targets, plans, executes, and
// reconciles one run. The returned summary covers every repository in the
// plan; the error reports only fatal conditions that prevented the run.
func (service *SyncService) Sync(executionContext context.Context, options SyncOptions) (Summary, error) {
	store, record, openError := service.openRecord(options.WorkspaceRoot)
	if openError != nil {
		return Summary{}, openError
	}

	manifestData, manifestError := service.loadWorkspaceManifest(executionContext, options.WorkspaceRoot, record, options.SkipManifestRefresh)
	if manifestError != nil {
		return Summary{}, manifestError
	}

	return service.run(executionContext, store, record, manifestData, options)
}

// Restore replays a previously captured manifest, typically a snapshot with
// pinned references, through the normal pipeline.
func (service *SyncService) Restore(executionContext context.Context, manifestFilePath string, options SyncOptions) (Summary, error) {
	store, record, openError := service.openRecord(options.WorkspaceRoot)
	if openError != nil {
		return Summary{}, openError
	}

	manifestData, manifestError := workspace.LoadManifestFile(service.fileSystem, manifestFilePath)
	if manifestError != nil {
		return Summary{}, manifestError
	}

	return service.run(executionContext, store, record, manifestData, options)
}

func (service *SyncService) openRecord(workspaceRoot string) (*workspace.RecordStore, workspace.WorkspaceRecord, error) {
	store, storeError := workspace.NewRecordStore(service.fileSystem, workspaceRoot)
	if storeError != nil {
		return nil, workspace.WorkspaceRecord{}, storeError
	}

	record, loadError := store.Load()
	if loadError == nil {
		return store, record, nil
	}
	if errors.Is(loadError, workspace.ErrRecordNotFound) {
		return nil, workspace.WorkspaceRecord{}, ErrWorkspaceNotInitialized
	}

	var corruptError workspace.CorruptRecordError
	if errors.As(loadError, &corruptError) {
		confirmation, promptError := service.prompter.Confirm(fmt.Sprintf(corruptRecordPromptTemplateConstant, corruptError.Path))
		if promptError != nil || !confirmation.Confirmed {
			return nil, workspace.WorkspaceRecord{}, loadError
		}
		if removeError := service.fileSystem.RemoveAll(store.RecordFilePath()); removeError != nil {
			return nil, workspace.WorkspaceRecord{}, removeError
		}
		return nil, workspace.WorkspaceRecord{}, ErrWorkspaceNotInitialized
	}

	return nil, workspace.WorkspaceRecord{}, loadError
}

func (service *SyncService) loadWorkspaceManifest(executionContext context.Context, workspaceRoot string, record workspace.WorkspaceRecord, skipRefresh bool) (manifest.Manifest, error) {
	if record.UsesLocalManifest() {
		return workspace.LoadManifestFile(service.fileSystem, record.ManifestPath)
	}

	mirror, mirrorError := workspace.NewManifestMirror(service.fileSystem, service.repositoryManager, workspaceRoot)
	if mirrorError != nil {
		return manifest.Manifest{}, mirrorError
	}
	if !skipRefresh {
		if refreshError := mirror.Refresh(executionContext, record.ManifestBranch); refreshError != nil {
			return manifest.Manifest{}, refreshError
		}
		service.logger.Info(manifestRefreshedMessageConstant, zap.String(manifestBranchFieldNameConstant, record.ManifestBranch))
	}
	return mirror.Load()
}

func (service *SyncService) run(executionContext context.Context, store *workspace.RecordStore, record workspace.WorkspaceRecord, manifestData manifest.Manifest, options SyncOptions) (Summary, error) {
	effectiveGroupNames := options.GroupNames
	if len(effectiveGroupNames) == 0 {
		effectiveGroupNames = record.GroupNames
	}

	targets, resolveError := manifest.Resolve(manifestData, effectiveGroupNames, manifest.Overrides{
		References:  options.ReferenceOverrides,
		SparsePaths: options.SparseOverrides,
	})
	if resolveError != nil {
		return Summary{}, resolveError
	}

	plan := service.planner.Plan(executionContext, PlanRequest{
		WorkspaceRoot: options.WorkspaceRoot,
		Targets:       targets,
		Record:        record,
		Force:         options.Force,
	})
	service.logger.Info(planComputedMessageConstant,
		zap.Int(cloneCountFieldNameConstant, countActions(plan, ActionClone)),
		zap.Int(updateCountFieldNameConstant, countActions(plan, ActionUpdate)),
		zap.Int(skipCountFieldNameConstant, countActions(plan, ActionSkip)),
		zap.Int(removalCountFieldNameConstant, countActions(plan, ActionRemove)),
	)

	results := service.executor.Execute(executionContext, ExecutionRequest{
		WorkspaceRoot: options.WorkspaceRoot,
		Plan:          plan,
		JobCount:      options.JobCount,
		Force:         options.Force,
		AssumeYes:     options.AssumeYes,
	})

	newRecord, summary := Reconcile(record, plan, results, effectiveGroupNames)
	if saveError := store.Save(newRecord); saveError != nil {
		return summary, saveError
	}

	return summary, nil
}

func countActions(plan []PlanEntry, actionKind ActionKind) int {
	count := 0
	for _, planEntry := range plan {
		if planEntry.Action == actionKind {
			count++
		}
	}
	return count
}
