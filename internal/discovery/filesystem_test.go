package discovery_test

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sebastiken/tsrc/internal/discovery"
)

const (
	platformGroupDirectoryName     = "platform"
	apiRepositoryDirectoryName     = "api"
	libraryRepositoryDirectoryName = "libfoo"
	toolingRepositoryDirectoryName = "tooling"
	workspaceStateDirectoryName    = ".tsrc"
	manifestMirrorDirectoryName    = "manifest"
	gitMetadataDirectoryName       = ".git"
	singleRootSubtestTitle         = "discoversRepositoriesFromSingleRoot"
	combinedRootsSubtestTitle      = "discoversRepositoriesFromParentAndNestedRoots"
	repositoryDirectoryPermissions = 0o755
)

type repositoryDefinition struct {
	directorySegments []string
}

func (definition repositoryDefinition) repositoryPath(rootDirectory string) string {
	segments := append([]string{rootDirectory}, definition.directorySegments...)
	return filepath.Join(segments...)
}

func (definition repositoryDefinition) gitMetadataPath(rootDirectory string) string {
	segments := append([]string{rootDirectory}, definition.directorySegments...)
	segments = append(segments, gitMetadataDirectoryName)
	return filepath.Join(segments...)
}

type filesystemDiscoveryTestScenario struct {
	title                      string
	rootDirectoriesConstructor func(string) []string
}

func (scenario filesystemDiscoveryTestScenario) execute(
	testFramework *testing.T,
	repositoryDefinitions []repositoryDefinition,
	hiddenRepositoryDefinitions []repositoryDefinition,
) {
	testFramework.Helper()

	temporaryRootDirectory := testFramework.TempDir()
	for _, definition := range append(repositoryDefinitions, hiddenRepositoryDefinitions...) {
		gitMetadataDirectoryPath := definition.gitMetadataPath(temporaryRootDirectory)
		creationError := os.MkdirAll(gitMetadataDirectoryPath, repositoryDirectoryPermissions)
		require.NoError(testFramework, creationError)
	}

	repositoryDiscoverer := discovery.NewFilesystemRepositoryDiscoverer()
	discoveredRepositories, discoveryError := repositoryDiscoverer.DiscoverRepositories(
		scenario.rootDirectoriesConstructor(temporaryRootDirectory),
	)
	require.NoError(testFramework, discoveryError)

	expectedRepositories := make([]string, 0, len(repositoryDefinitions))
	for _, definition := range repositoryDefinitions {
		expectedRepositories = append(expectedRepositories, definition.repositoryPath(temporaryRootDirectory))
	}

	sort.Strings(expectedRepositories)
	sort.Strings(discoveredRepositories)
	require.Equal(testFramework, expectedRepositories, discoveredRepositories)
}

func TestFilesystemRepositoryDiscovererDiscoversNestedLayouts(testFramework *testing.T) {
	repositoryDefinitions := []repositoryDefinition{
		{directorySegments: []string{platformGroupDirectoryName, apiRepositoryDirectoryName}},
		{directorySegments: []string{platformGroupDirectoryName, libraryRepositoryDirectoryName}},
		{directorySegments: []string{toolingRepositoryDirectoryName}},
	}
	hiddenRepositoryDefinitions := []repositoryDefinition{
		{directorySegments: []string{workspaceStateDirectoryName, manifestMirrorDirectoryName}},
	}

	testScenarios := []filesystemDiscoveryTestScenario{
		{
			title: singleRootSubtestTitle,
			rootDirectoriesConstructor: func(rootDirectory string) []string {
				return []string{rootDirectory}
			},
		},
		{
			title: combinedRootsSubtestTitle,
			rootDirectoriesConstructor: func(rootDirectory string) []string {
				platformGroupDirectoryPath := filepath.Join(rootDirectory, platformGroupDirectoryName)
				return []string{rootDirectory, platformGroupDirectoryPath}
			},
		},
	}

	for _, testScenario := range testScenarios {
		testFramework.Run(testScenario.title, func(testFramework *testing.T) {
			testScenario.execute(testFramework, repositoryDefinitions, hiddenRepositoryDefinitions)
		})
	}
}
