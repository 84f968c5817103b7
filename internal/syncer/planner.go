package syncer

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sebastiken/tsrc/internal/gitrepo"
	"github.com/sebastiken/tsrc/internal/manifest"
	"github.com/sebastiken/tsrc/internal/shared"
	"github.com/sebastiken/tsrc/internal/workspace"
)

const (
	planReasonNotRecordedConstant      = "not previously synchronized"
	planReasonMissingOnDiskConstant    = "missing from the workspace"
	planReasonReferenceChangedConstant = "target reference changed"
	planReasonDriftedConstant          = "checked out state differs from target"
	planReasonPinDriftConstant         = "drifted from the pinned revision"
	planReasonForcedConstant           = "forced resynchronization"
	planReasonUpToDateConstant         = "already synchronized"
	planReasonDeselectedConstant       = "no longer part of the manifest selection"
)

// Planner turns resolved targets plus recorded workspace state into an ordered
// action plan. Target entries keep manifest declaration order; removals for
// deselected repositories are appended in name order.
type Planner struct {
	repositoryManager shared.WorkspaceRepositoryManager
}

// NewPlanner constructs a Planner bound to the provided repository manager.
func NewPlanner(repositoryManager shared.WorkspaceRepositoryManager) (*Planner, error) {
	if repositoryManager == nil {
		return nil, ErrRepositoryManagerNotConfigured
	}
	return &Planner{repositoryManager: repositoryManager}, nil
}

// PlanRequest carries the inputs consumed when computing a synchronization plan.
type PlanRequest struct {
	WorkspaceRoot string
	Targets       []manifest.ResolvedTarget
	Record        workspace.WorkspaceRecord
	Force         bool
}

// Plan computes the per-repository actions for one run. Probe failures are
// interpreted as the repository being absent, so planning itself never fails
// and no repository is touched before the full plan exists.
func (planner *Planner) Plan(executionContext context.Context, request PlanRequest) []PlanEntry {
	planEntries := make([]PlanEntry, 0, len(request.Targets))
	targetNames := make(map[string]struct{}, len(request.Targets))

	for _, target := range request.Targets {
		targetNames[target.Name] = struct{}{}
		planEntries = append(planEntries, planner.planTarget(executionContext, request, target))
	}

	planEntries = append(planEntries, removedRepositories(request.Record, targetNames)...)

	return planEntries
}

func (planner *Planner) planTarget(executionContext context.Context, request PlanRequest, target manifest.ResolvedTarget) PlanEntry {
	recordedState, recorded := request.Record.Repositories[target.Name]
	if !recorded {
		return PlanEntry{Target: target, Action: ActionClone, Reason: planReasonNotRecordedConstant}
	}

	repositoryPath := filepath.Join(request.WorkspaceRoot, target.LocalPath)
	localState, probeError := planner.repositoryManager.ProbeRepositoryState(executionContext, repositoryPath)
	if probeError != nil || !localState.Present {
		return PlanEntry{Target: target, Action: ActionClone, Reason: planReasonMissingOnDiskConstant}
	}

	if recordedState.LastSyncedReference != target.Reference {
		return PlanEntry{Target: target, Action: ActionUpdate, Reason: planReasonReferenceChangedConstant}
	}

	// A pin that still matches the record is never re-synchronized, not even
	// under force. Drift away from it is reported, not corrected.
	if target.Pinned {
		if !observedStateMatches(target, recordedState, localState) {
			return PlanEntry{Target: target, Action: ActionSkip, Reason: planReasonPinDriftConstant}
		}
		return PlanEntry{Target: target, Action: ActionSkip, Reason: planReasonUpToDateConstant}
	}

	if request.Force {
		return PlanEntry{Target: target, Action: ActionUpdate, Reason: planReasonForcedConstant}
	}
	if !observedStateMatches(target, recordedState, localState) {
		return PlanEntry{Target: target, Action: ActionUpdate, Reason: planReasonDriftedConstant}
	}

	return PlanEntry{Target: target, Action: ActionSkip, Reason: planReasonUpToDateConstant}
}

func observedStateMatches(target manifest.ResolvedTarget, recordedState workspace.RepositoryState, localState gitrepo.LocalState) bool {
	if target.Pinned {
		return len(recordedState.LastSyncedCommit) > 0 && localState.CurrentCommit == recordedState.LastSyncedCommit
	}
	return !localState.DetachedHead && localState.CurrentBranch == target.Reference
}

func removedRepositories(record workspace.WorkspaceRecord, targetNames map[string]struct{}) []PlanEntry {
	removedNames := make([]string, 0)
	for repositoryName := range record.Repositories {
		if _, selected := targetNames[repositoryName]; !selected {
			removedNames = append(removedNames, repositoryName)
		}
	}
	sort.Strings(removedNames)

	removalEntries := make([]PlanEntry, 0, len(removedNames))
	for _, repositoryName := range removedNames {
		localPath := record.Repositories[repositoryName].LocalPath
		if len(strings.TrimSpace(localPath)) == 0 {
			localPath = repositoryName
		}
		removalEntries = append(removalEntries, PlanEntry{
			Target: manifest.ResolvedTarget{Name: repositoryName, LocalPath: localPath},
			Action: ActionRemove,
			Reason: planReasonDeselectedConstant,
		})
	}
	return removalEntries
}
