package pathutils

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const (
	workspaceStateDirectoryNameConstant = ".tsrc"
	workspaceNotLocatedMessageConstant  = "no workspace found in the current directory or any parent"
)

// ErrWorkspaceNotLocated indicates no ancestor directory holds workspace state.
var ErrWorkspaceNotLocated = errors.New(workspaceNotLocatedMessageConstant)

// WorkspaceRootResolver normalizes workspace root arguments and discovers the
// enclosing workspace when no explicit root is provided.
type WorkspaceRootResolver struct {
	homeExpander *HomeExpander
}

// NewWorkspaceRootResolver constructs a resolver using the operating system home lookup.
func NewWorkspaceRootResolver() *WorkspaceRootResolver {
	return NewWorkspaceRootResolverWithExpander(NewHomeExpander())
}

// NewWorkspaceRootResolverWithExpander constructs a resolver with a custom home expander.
func NewWorkspaceRootResolverWithExpander(homeExpander *HomeExpander) *WorkspaceRootResolver {
	if homeExpander == nil {
		homeExpander = NewHomeExpander()
	}
	return &WorkspaceRootResolver{homeExpander: homeExpander}
}

// Resolve normalizes candidateRoot into an absolute path. An empty candidate
// resolves to the current working directory.
func (resolver *WorkspaceRootResolver) Resolve(candidateRoot string) (string, error) {
	trimmedRoot := strings.TrimSpace(candidateRoot)
	if len(trimmedRoot) == 0 {
		return os.Getwd()
	}

	expandedRoot := resolver.homeExpander.Expand(trimmedRoot)
	return filepath.Abs(expandedRoot)
}

// Locate resolves candidateRoot when provided and otherwise walks upward from
// the working directory until a directory holding workspace state is found.
func (resolver *WorkspaceRootResolver) Locate(candidateRoot string) (string, error) {
	if len(strings.TrimSpace(candidateRoot)) > 0 {
		return resolver.Resolve(candidateRoot)
	}

	workingDirectory, workingDirectoryError := os.Getwd()
	if workingDirectoryError != nil {
		return "", workingDirectoryError
	}

	currentDirectory := workingDirectory
	for {
		stateDirectoryPath := filepath.Join(currentDirectory, workspaceStateDirectoryNameConstant)
		if directoryInformation, statError := os.Stat(stateDirectoryPath); statError == nil && directoryInformation.IsDir() {
			return currentDirectory, nil
		}

		parentDirectory := filepath.Dir(currentDirectory)
		if parentDirectory == currentDirectory {
			return "", ErrWorkspaceNotLocated
		}
		currentDirectory = parentDirectory
	}
}
