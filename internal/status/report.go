package status

import (
	"fmt"
	"strings"
)

const (
	reportLinePrefixConstant               = "*"
	reportPathPaddingTemplateConstant      = "%-*s"
	emptyWorkspaceMessageConstant          = "Workspace is empty"
	missingRepositoryTokenConstant         = "error: missing repo"
	observationErrorTokenTemplateConstant  = "error: %v"
	dirtyWorktreeTokenConstant             = "(dirty)"
	expectedReferenceTokenTemplateConstant = "(expected: %s)"
	aheadTokenTemplateConstant             = "↑%d %s"
	behindTokenTemplateConstant            = "↓%d %s"
	singleCommitNounConstant               = "commit"
	multipleCommitsNounConstant            = "commits"
	shortCommitDisplayLengthConstant       = 7
)

// FormatReport renders one line per repository in manifest order. Repository
// paths are padded to a common width so the state columns line up.
func FormatReport(statuses []RepositoryStatus, showCommitHashes bool) []string {
	if len(statuses) == 0 {
		return []string{emptyWorkspaceMessageConstant}
	}

	widestPathLength := 0
	for _, repositoryStatus := range statuses {
		if len(repositoryStatus.LocalPath) > widestPathLength {
			widestPathLength = len(repositoryStatus.LocalPath)
		}
	}

	reportLines := make([]string, 0, len(statuses))
	for _, repositoryStatus := range statuses {
		tokens := []string{
			reportLinePrefixConstant,
			fmt.Sprintf(reportPathPaddingTemplateConstant, widestPathLength, repositoryStatus.LocalPath),
		}
		tokens = append(tokens, describeRepositoryStatus(repositoryStatus, showCommitHashes)...)
		reportLines = append(reportLines, strings.Join(tokens, " "))
	}
	return reportLines
}

func describeRepositoryStatus(repositoryStatus RepositoryStatus, showCommitHashes bool) []string {
	if repositoryStatus.ObservationError != nil {
		return []string{fmt.Sprintf(observationErrorTokenTemplateConstant, repositoryStatus.ObservationError)}
	}
	if !repositoryStatus.Present {
		return []string{missingRepositoryTokenConstant}
	}

	tokens := describeReference(repositoryStatus, showCommitHashes)
	tokens = append(tokens, describeDivergence(repositoryStatus)...)
	if repositoryStatus.HasLocalChanges {
		tokens = append(tokens, dirtyWorktreeTokenConstant)
	}
	if !repositoryStatus.OnTargetReference {
		tokens = append(tokens, fmt.Sprintf(expectedReferenceTokenTemplateConstant, repositoryStatus.TargetReference))
	}
	return tokens
}

func describeReference(repositoryStatus RepositoryStatus, showCommitHashes bool) []string {
	if len(repositoryStatus.CurrentBranch) == 0 {
		return []string{shortCommit(repositoryStatus.CurrentCommit)}
	}
	if showCommitHashes {
		return []string{repositoryStatus.CurrentBranch, shortCommit(repositoryStatus.CurrentCommit)}
	}
	return []string{repositoryStatus.CurrentBranch}
}

func describeDivergence(repositoryStatus RepositoryStatus) []string {
	var tokens []string
	if repositoryStatus.AheadCount > 0 {
		tokens = append(tokens, fmt.Sprintf(aheadTokenTemplateConstant, repositoryStatus.AheadCount, commitNoun(repositoryStatus.AheadCount)))
	}
	if repositoryStatus.BehindCount > 0 {
		tokens = append(tokens, fmt.Sprintf(behindTokenTemplateConstant, repositoryStatus.BehindCount, commitNoun(repositoryStatus.BehindCount)))
	}
	return tokens
}

func commitNoun(commitCount int) string {
	if commitCount == 1 {
		return singleCommitNounConstant
	}
	return multipleCommitsNounConstant
}

func shortCommit(commitHash string) string {
	if len(commitHash) <= shortCommitDisplayLengthConstant {
		return commitHash
	}
	return commitHash[:shortCommitDisplayLengthConstant]
}
