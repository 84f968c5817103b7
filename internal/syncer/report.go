package syncer

import (
	"fmt"
	"strings"
)

const (
	summaryLinePrefixConstant      = "*"
	summaryPaddingTemplateConstant = "%-*s"
	emptyPlanMessageConstant       = "Nothing to synchronize"
	summaryTotalsTemplateConstant  = "%d synchronized, %d skipped, %d warnings, %d failed"
)

// FormatSummary renders one line per repository in plan order followed by a
// totals line. Repository names and actions are padded to a common width so
// the outcome column lines up.
func FormatSummary(summary Summary) []string {
	if len(summary.Repositories) == 0 {
		return []string{emptyPlanMessageConstant}
	}

	widestNameLength := 0
	widestActionLength := 0
	for _, repositorySummary := range summary.Repositories {
		if len(repositorySummary.RepositoryName) > widestNameLength {
			widestNameLength = len(repositorySummary.RepositoryName)
		}
		if len(repositorySummary.Action) > widestActionLength {
			widestActionLength = len(repositorySummary.Action)
		}
	}

	summaryLines := make([]string, 0, len(summary.Repositories)+1)
	for _, repositorySummary := range summary.Repositories {
		tokens := []string{
			summaryLinePrefixConstant,
			fmt.Sprintf(summaryPaddingTemplateConstant, widestNameLength, repositorySummary.RepositoryName),
			fmt.Sprintf(summaryPaddingTemplateConstant, widestActionLength, string(repositorySummary.Action)),
			string(repositorySummary.Outcome),
		}
		if len(repositorySummary.Message) > 0 {
			tokens = append(tokens, repositorySummary.Message)
		}
		summaryLines = append(summaryLines, strings.Join(tokens, " "))
	}

	summaryLines = append(summaryLines, fmt.Sprintf(summaryTotalsTemplateConstant,
		summary.SuccessCount, summary.SkippedCount, summary.WarningCount, summary.ErrorCount))
	return summaryLines
}
