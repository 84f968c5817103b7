package syncer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	summaryFirstRepositoryNameConstant   = "libalpha"
	summarySecondRepositoryNameConstant  = "libs/libbeta"
	summaryThirdRepositoryNameConstant   = "libgamma"
	summaryFourthRepositoryNameConstant  = "libdelta"
	summaryCopyFailureMessageConstant    = "copy failed"
	summaryRemovalFailureMessageConstant = "permission denied"
)

func TestFormatSummaryRendersRepositoryLines(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name          string
		summary       Summary
		expectedLines []string
	}{
		{
			name: "AlignsColumnsAndAppendsMessages",
			summary: Summary{
				Repositories: []RepositorySummary{
					{RepositoryName: summaryFirstRepositoryNameConstant, Action: ActionClone, Outcome: OutcomeSuccess},
					{RepositoryName: summarySecondRepositoryNameConstant, Action: ActionUpdate, Outcome: OutcomeWarning, Message: summaryCopyFailureMessageConstant},
					{RepositoryName: summaryThirdRepositoryNameConstant, Action: ActionSkip, Outcome: OutcomeSkipped},
					{RepositoryName: summaryFourthRepositoryNameConstant, Action: ActionRemove, Outcome: OutcomeError, Message: summaryRemovalFailureMessageConstant},
				},
				SuccessCount: 1,
				SkippedCount: 1,
				WarningCount: 1,
				ErrorCount:   1,
			},
			expectedLines: []string{
				"* libalpha     clone  success",
				"* libs/libbeta update warning copy failed",
				"* libgamma     skip   skipped",
				"* libdelta     remove error permission denied",
				"1 synchronized, 1 skipped, 1 warnings, 1 failed",
			},
		},
		{
			name:          "EmptyRunSummary",
			expectedLines: []string{emptyPlanMessageConstant},
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, testCase.expectedLines, FormatSummary(testCase.summary))
		})
	}
}
