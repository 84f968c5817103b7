package syncer

import "github.com/sebastiken/tsrc/internal/workspace"

// Reconcile folds execution results into the previous workspace record and
// produces the run summary in plan order. Only results carrying an observed
// commit change recorded repository state; failed repositories keep their
// previous entries so a later run can retry them, and declined removals keep
// both their entry and their working tree.
func Reconcile(previousRecord workspace.WorkspaceRecord, plan []PlanEntry, results []ExecutionResult, groupNames []string) (workspace.WorkspaceRecord, Summary) {
	newRecord := previousRecord
	newRecord.GroupNames = groupNames
	newRecord.Repositories = make(map[string]workspace.RepositoryState, len(previousRecord.Repositories))
	for repositoryName, repositoryState := range previousRecord.Repositories {
		newRecord.Repositories[repositoryName] = repositoryState
	}

	resultsByName := make(map[string]ExecutionResult, len(results))
	for _, result := range results {
		resultsByName[result.RepositoryName] = result
	}

	summary := Summary{Repositories: make([]RepositorySummary, 0, len(plan))}
	for _, planEntry := range plan {
		repositoryName := planEntry.Target.Name
		result, executed := resultsByName[repositoryName]

		switch {
		case planEntry.Action == ActionSkip:
			skipOutcome := OutcomeSkipped
			if planEntry.Reason == planReasonPinDriftConstant {
				skipOutcome = OutcomeWarning
			}
			appendSummary(&summary, RepositorySummary{
				RepositoryName: repositoryName,
				Action:         ActionSkip,
				Outcome:        skipOutcome,
				Message:        planEntry.Reason,
			})
		case planEntry.Action == ActionRemove && !executed:
			appendSummary(&summary, RepositorySummary{
				RepositoryName: repositoryName,
				Action:         ActionRemove,
				Outcome:        OutcomeSkipped,
				Message:        removalDeclinedMessageConstant,
			})
		case planEntry.Action == ActionRemove:
			if result.Outcome == OutcomeSuccess {
				delete(newRecord.Repositories, repositoryName)
			}
			appendSummary(&summary, summaryFromResult(result))
		default:
			if result.Outcome != OutcomeError && len(result.ObservedCommit) > 0 {
				newRecord.Repositories[repositoryName] = workspace.RepositoryState{
					LocalPath:           planEntry.Target.LocalPath,
					LastSyncedReference: result.ObservedReference,
					LastSyncedCommit:    result.ObservedCommit,
				}
			}
			appendSummary(&summary, summaryFromResult(result))
		}
	}

	return newRecord, summary
}

func summaryFromResult(result ExecutionResult) RepositorySummary {
	return RepositorySummary{
		RepositoryName: result.RepositoryName,
		Action:         result.Action,
		Outcome:        result.Outcome,
		Message:        result.Message,
		Duration:       result.Duration,
	}
}

func appendSummary(summary *Summary, repositorySummary RepositorySummary) {
	summary.Repositories = append(summary.Repositories, repositorySummary)
	switch repositorySummary.Outcome {
	case OutcomeSuccess:
		summary.SuccessCount++
	case OutcomeSkipped:
		summary.SkippedCount++
	case OutcomeWarning:
		summary.WarningCount++
	case OutcomeError:
		summary.ErrorCount++
	}
}
