package gitrepo

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sebastiken/tsrc/internal/execshell"
)

const (
	testRepositoryPathConstant = "/workspace/libfoo"
	testRemoteURLConstant      = "https://example.com/libfoo.git"
	testBranchNameConstant     = "main"
	testCommitConstant         = "deadbeef"
)

type stubGitExecutor struct {
	invocationErrors  []error
	invocationResults []execshell.ExecutionResult
	recordedCommands  []execshell.CommandDetails
}

func (executor *stubGitExecutor) ExecuteGit(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recordedCommands = append(executor.recordedCommands, details)

	var invocationResult execshell.ExecutionResult
	if len(executor.invocationResults) > 0 {
		invocationResult = executor.invocationResults[0]
		executor.invocationResults = executor.invocationResults[1:]
	}

	if len(executor.invocationErrors) > 0 {
		invocationError := executor.invocationErrors[0]
		executor.invocationErrors = executor.invocationErrors[1:]
		if invocationError != nil {
			return execshell.ExecutionResult{}, invocationError
		}
	}
	return invocationResult, nil
}

func recordedArguments(executor *stubGitExecutor) [][]string {
	arguments := make([][]string, 0, len(executor.recordedCommands))
	for _, command := range executor.recordedCommands {
		arguments = append(arguments, command.Arguments)
	}
	return arguments
}

func TestNewRepositoryManagerValidatesExecutor(t *testing.T) {
	manager, creationError := NewRepositoryManager(nil)
	require.ErrorIs(t, creationError, ErrExecutorNotConfigured)
	require.Nil(t, manager)

	manager, creationError = NewRepositoryManager(&stubGitExecutor{})
	require.NoError(t, creationError)
	require.NotNil(t, manager)
}

func TestCloneRepositoryBuildsExpectedCommands(t *testing.T) {
	testCases := []struct {
		name              string
		options           CloneOptions
		expectedArguments [][]string
		expectedErr       error
	}{
		{
			name: "BranchClone",
			options: CloneOptions{
				RemoteURL:       testRemoteURLConstant,
				DestinationPath: testRepositoryPathConstant,
				BranchName:      testBranchNameConstant,
			},
			expectedArguments: [][]string{
				{gitCloneSubcommandConstant, gitBranchFlagConstant, testBranchNameConstant, testRemoteURLConstant, testRepositoryPathConstant},
			},
		},
		{
			name: "PinnedClone",
			options: CloneOptions{
				RemoteURL:       testRemoteURLConstant,
				DestinationPath: testRepositoryPathConstant,
				PinnedReference: testCommitConstant,
			},
			expectedArguments: [][]string{
				{gitCloneSubcommandConstant, testRemoteURLConstant, testRepositoryPathConstant},
				{gitCheckoutSubcommandConstant, gitDetachFlagConstant, testCommitConstant},
			},
		},
		{
			name: "SparseBranchClone",
			options: CloneOptions{
				RemoteURL:       testRemoteURLConstant,
				DestinationPath: testRepositoryPathConstant,
				BranchName:      testBranchNameConstant,
				SparsePatterns:  []string{"docs", "src"},
			},
			expectedArguments: [][]string{
				{gitCloneSubcommandConstant, gitNoCheckoutFlagConstant, gitBranchFlagConstant, testBranchNameConstant, testRemoteURLConstant, testRepositoryPathConstant},
				{gitSparseCheckoutSubcommandConstant, gitSparseCheckoutInitArgumentConstant, gitConeFlagConstant},
				{gitSparseCheckoutSubcommandConstant, gitSparseCheckoutSetArgumentConstant, "docs", "src"},
				{gitCheckoutSubcommandConstant, testBranchNameConstant},
			},
		},
		{
			name:        "MissingRemoteURL",
			options:     CloneOptions{DestinationPath: testRepositoryPathConstant},
			expectedErr: ErrRemoteURLRequired,
		},
		{
			name:        "MissingDestination",
			options:     CloneOptions{RemoteURL: testRemoteURLConstant},
			expectedErr: ErrDestinationPathRequired,
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			executor := &stubGitExecutor{}
			manager, creationError := NewRepositoryManager(executor)
			require.NoError(t, creationError)

			cloneError := manager.CloneRepository(context.Background(), testCase.options)
			if testCase.expectedErr != nil {
				require.ErrorIs(t, cloneError, testCase.expectedErr)
				require.Empty(t, executor.recordedCommands)
				return
			}

			require.NoError(t, cloneError)
			require.Equal(t, testCase.expectedArguments, recordedArguments(executor))
			for _, commandDetails := range executor.recordedCommands {
				require.Equal(t, gitTerminalPromptEnvironmentDisableConstant, commandDetails.EnvironmentVariables[gitTerminalPromptEnvironmentNameConstant])
			}
		})
	}
}

func TestCloneRepositoryWrapsCloneFailures(t *testing.T) {
	executor := &stubGitExecutor{invocationErrors: []error{errors.New("network unreachable")}}
	manager, creationError := NewRepositoryManager(executor)
	require.NoError(t, creationError)

	cloneError := manager.CloneRepository(context.Background(), CloneOptions{
		RemoteURL:       testRemoteURLConstant,
		DestinationPath: testRepositoryPathConstant,
	})
	require.ErrorContains(t, cloneError, "failed to clone")
	require.ErrorContains(t, cloneError, "network unreachable")
}

func TestRepositoryManagerExecutesExpectedArguments(t *testing.T) {
	testCases := []struct {
		name              string
		operation         func(*RepositoryManager) error
		expectedArguments []string
	}{
		{
			name: "FetchRemote",
			operation: func(manager *RepositoryManager) error {
				return manager.FetchRemote(context.Background(), testRepositoryPathConstant)
			},
			expectedArguments: []string{gitFetchSubcommandConstant, gitPruneFlagConstant, originRemoteNameConstant},
		},
		{
			name: "CheckoutBranch",
			operation: func(manager *RepositoryManager) error {
				return manager.CheckoutBranch(context.Background(), testRepositoryPathConstant, testBranchNameConstant)
			},
			expectedArguments: []string{gitCheckoutSubcommandConstant, testBranchNameConstant},
		},
		{
			name: "CheckoutCommit",
			operation: func(manager *RepositoryManager) error {
				return manager.CheckoutCommit(context.Background(), testRepositoryPathConstant, testCommitConstant)
			},
			expectedArguments: []string{gitCheckoutSubcommandConstant, gitDetachFlagConstant, testCommitConstant},
		},
		{
			name: "FastForwardBranch",
			operation: func(manager *RepositoryManager) error {
				return manager.FastForwardBranch(context.Background(), testRepositoryPathConstant)
			},
			expectedArguments: []string{gitMergeSubcommandConstant, gitFastForwardOnlyFlagConstant, gitUpstreamReferenceConstant},
		},
		{
			name: "ResetHard",
			operation: func(manager *RepositoryManager) error {
				return manager.ResetHard(context.Background(), testRepositoryPathConstant, "origin/main")
			},
			expectedArguments: []string{gitResetSubcommandConstant, gitHardResetFlagConstant, "origin/main"},
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			executor := &stubGitExecutor{}
			manager, creationError := NewRepositoryManager(executor)
			require.NoError(t, creationError)

			require.NoError(t, testCase.operation(manager))
			require.Len(t, executor.recordedCommands, 1)
			require.Equal(t, testCase.expectedArguments, executor.recordedCommands[0].Arguments)
			require.Equal(t, testRepositoryPathConstant, executor.recordedCommands[0].WorkingDirectory)
			require.Equal(t, gitTerminalPromptEnvironmentDisableConstant, executor.recordedCommands[0].EnvironmentVariables[gitTerminalPromptEnvironmentNameConstant])
		})
	}
}

func TestGetRemoteURLReadsConfiguredRemote(t *testing.T) {
	executor := &stubGitExecutor{invocationResults: []execshell.ExecutionResult{{StandardOutput: testRemoteURLConstant + "\n"}}}
	manager, creationError := NewRepositoryManager(executor)
	require.NoError(t, creationError)

	remoteURL, lookupError := manager.GetRemoteURL(context.Background(), testRepositoryPathConstant, originRemoteNameConstant)
	require.NoError(t, lookupError)
	require.Equal(t, testRemoteURLConstant, remoteURL)
	require.Len(t, executor.recordedCommands, 1)
	require.Equal(t, []string{gitRemoteSubcommandConstant, gitRemoteGetURLArgumentConstant, originRemoteNameConstant}, executor.recordedCommands[0].Arguments)

	_, missingNameError := manager.GetRemoteURL(context.Background(), testRepositoryPathConstant, "  ")
	require.ErrorIs(t, missingNameError, ErrRemoteNameRequired)
}

func TestCheckCleanWorktreeInterpretsOutput(t *testing.T) {
	testCases := []struct {
		name           string
		standardOutput string
		expectedClean  bool
	}{
		{name: "CleanWorktree", standardOutput: "", expectedClean: true},
		{name: "DirtyWorktree", standardOutput: " M cmd/main.go\n", expectedClean: false},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			executor := &stubGitExecutor{invocationResults: []execshell.ExecutionResult{{StandardOutput: testCase.standardOutput}}}
			manager, creationError := NewRepositoryManager(executor)
			require.NoError(t, creationError)

			clean, cleanError := manager.CheckCleanWorktree(context.Background(), testRepositoryPathConstant)
			require.NoError(t, cleanError)
			require.Equal(t, testCase.expectedClean, clean)
		})
	}
}

func TestProbeRepositoryStateReportsAbsenceOnProbeFailure(t *testing.T) {
	executor := &stubGitExecutor{invocationErrors: []error{errors.New("not a git repository")}}
	manager, creationError := NewRepositoryManager(executor)
	require.NoError(t, creationError)

	localState, probeError := manager.ProbeRepositoryState(context.Background(), testRepositoryPathConstant)
	require.NoError(t, probeError)
	require.False(t, localState.Present)
	require.Len(t, executor.recordedCommands, 1)
}

func TestProbeRepositoryStateCollectsState(t *testing.T) {
	testCases := []struct {
		name          string
		branchOutput  string
		statusOutput  string
		expectedState LocalState
	}{
		{
			name:         "BranchCheckoutClean",
			branchOutput: "main\n",
			statusOutput: "",
			expectedState: LocalState{
				Present:       true,
				CurrentBranch: testBranchNameConstant,
				CurrentCommit: testCommitConstant,
			},
		},
		{
			name:         "DetachedHeadDirty",
			branchOutput: "HEAD\n",
			statusOutput: " M docs/readme.md\n",
			expectedState: LocalState{
				Present:         true,
				CurrentCommit:   testCommitConstant,
				DetachedHead:    true,
				HasLocalChanges: true,
			},
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			executor := &stubGitExecutor{invocationResults: []execshell.ExecutionResult{
				{StandardOutput: "true\n"},
				{StandardOutput: testCommitConstant + "\n"},
				{StandardOutput: testCase.branchOutput},
				{StandardOutput: testCase.statusOutput},
			}}
			manager, creationError := NewRepositoryManager(executor)
			require.NoError(t, creationError)

			localState, probeError := manager.ProbeRepositoryState(context.Background(), testRepositoryPathConstant)
			require.NoError(t, probeError)
			require.Equal(t, testCase.expectedState, localState)
		})
	}
}

func TestCountBranchDivergenceParsesCounts(t *testing.T) {
	executor := &stubGitExecutor{invocationResults: []execshell.ExecutionResult{{StandardOutput: "2\t5\n"}}}
	manager, creationError := NewRepositoryManager(executor)
	require.NoError(t, creationError)

	divergence, divergenceError := manager.CountBranchDivergence(context.Background(), testRepositoryPathConstant)
	require.NoError(t, divergenceError)
	require.Equal(t, DivergenceCounts{HasUpstream: true, AheadCount: 2, BehindCount: 5}, divergence)
}

func TestCountBranchDivergenceHandlesMissingUpstream(t *testing.T) {
	upstreamFailure := execshell.CommandFailedError{
		Command: execshell.ShellCommand{Name: execshell.CommandGit},
		Result:  execshell.ExecutionResult{ExitCode: 128},
	}
	executor := &stubGitExecutor{invocationErrors: []error{upstreamFailure}}
	manager, creationError := NewRepositoryManager(executor)
	require.NoError(t, creationError)

	divergence, divergenceError := manager.CountBranchDivergence(context.Background(), testRepositoryPathConstant)
	require.NoError(t, divergenceError)
	require.False(t, divergence.HasUpstream)
}

func TestCountBranchDivergenceRejectsMalformedOutput(t *testing.T) {
	executor := &stubGitExecutor{invocationResults: []execshell.ExecutionResult{{StandardOutput: "garbage\n"}}}
	manager, creationError := NewRepositoryManager(executor)
	require.NoError(t, creationError)

	_, divergenceError := manager.CountBranchDivergence(context.Background(), testRepositoryPathConstant)
	var parseError DivergenceParseError
	require.ErrorAs(t, divergenceError, &parseError)
}
