package tests

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const integrationCommandTimeoutConstant = 120 * time.Second

func locateRepositoryRoot(testInstance *testing.T) string {
	testInstance.Helper()
	currentWorkingDirectory, workingDirectoryError := os.Getwd()
	require.NoError(testInstance, workingDirectoryError)
	return filepath.Dir(currentWorkingDirectory)
}

func runIntegrationCommand(testInstance *testing.T, repositoryRoot string, environment []string, commandArguments []string) (string, error) {
	testInstance.Helper()
	executionContext, cancelFunction := context.WithTimeout(context.Background(), integrationCommandTimeoutConstant)
	defer cancelFunction()

	goArguments := append([]string{"run", "."}, commandArguments...)
	command := exec.CommandContext(executionContext, "go", goArguments...)
	command.Dir = repositoryRoot
	if len(environment) > 0 {
		command.Env = environment
	} else {
		command.Env = os.Environ()
	}

	outputBytes, runError := command.CombinedOutput()
	return string(outputBytes), runError
}

func runGitCommand(testInstance *testing.T, workingDirectory string, arguments []string) string {
	testInstance.Helper()
	executionContext, cancelFunction := context.WithTimeout(context.Background(), integrationCommandTimeoutConstant)
	defer cancelFunction()

	command := exec.CommandContext(executionContext, arguments[0], arguments[1:]...)
	if len(workingDirectory) > 0 {
		command.Dir = workingDirectory
	}

	outputBytes, commandError := command.CombinedOutput()
	require.NoError(testInstance, commandError, string(outputBytes))
	return string(outputBytes)
}

func writeFile(testInstance *testing.T, filePath string, contents string) {
	testInstance.Helper()
	require.NoError(testInstance, os.MkdirAll(filepath.Dir(filePath), 0o755))
	require.NoError(testInstance, os.WriteFile(filePath, []byte(contents), 0o644))
}
