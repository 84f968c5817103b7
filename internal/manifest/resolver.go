package manifest

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

const (
	defaultBranchNameConstant                 = "master"
	parentDirectoryReferenceConstant          = ".."
	parentDirectoryPrefixConstant             = "../"
	workspaceRootDestinationConstant          = "."
	invalidDestinationTemplateConstant        = "repository %q destination %q escapes the workspace"
	unknownOverrideRepositoryTemplateConstant = "override references unknown repository %q"
)

// Overrides carries run-level adjustments applied on top of manifest values.
// A reference override switches the repository back to tracking mode even when
// the manifest pins it.
type Overrides struct {
	References  map[string]string
	SparsePaths map[string][]string
}

// ResolvedTarget is the final, immutable form of one repository for a single run.
type ResolvedTarget struct {
	Name        string
	RemoteURL   string
	Reference   string
	Pinned      bool
	SparsePaths []string
	LocalPath   string
	Copies      []CopyDirective
}

// UnknownRepositoryOverrideError indicates an override referencing a repository
// the manifest does not declare.
type UnknownRepositoryOverrideError struct {
	RepositoryName string
}

// Error describes the dangling override.
func (overrideError UnknownRepositoryOverrideError) Error() string {
	return fmt.Sprintf(unknownOverrideRepositoryTemplateConstant, overrideError.RepositoryName)
}

// InvalidDestinationError indicates a repository destination escaping the
// workspace root.
type InvalidDestinationError struct {
	RepositoryName string
	Destination    string
}

// Error describes the rejected destination.
func (destinationError InvalidDestinationError) Error() string {
	return fmt.Sprintf(invalidDestinationTemplateConstant, destinationError.RepositoryName, destinationError.Destination)
}

// Resolve merges manifest entries, the group selection, and overrides into an
// ordered target list. Targets follow manifest declaration order regardless of
// how the group filter was composed.
func Resolve(manifestData Manifest, requestedGroupNames []string, overrides Overrides) ([]ResolvedTarget, error) {
	declaredRepositories := map[string]struct{}{}
	for _, repository := range manifestData.Repositories {
		if _, duplicated := declaredRepositories[repository.Name]; duplicated {
			return nil, DuplicateRepositoryError{RepositoryName: repository.Name}
		}
		declaredRepositories[repository.Name] = struct{}{}
	}

	if overrideError := validateOverrideNames(declaredRepositories, overrides); overrideError != nil {
		return nil, overrideError
	}

	groupFilter, filterError := selectRepositories(manifestData, requestedGroupNames)
	if filterError != nil {
		return nil, filterError
	}

	targets := make([]ResolvedTarget, 0, len(manifestData.Repositories))
	for _, repository := range manifestData.Repositories {
		if groupFilter != nil {
			if _, selected := groupFilter[repository.Name]; !selected {
				continue
			}
		}
		target, targetError := resolveTarget(repository, overrides)
		if targetError != nil {
			return nil, targetError
		}
		targets = append(targets, target)
	}
	return targets, nil
}

func validateOverrideNames(declaredRepositories map[string]struct{}, overrides Overrides) error {
	for overrideName := range overrides.References {
		if _, declared := declaredRepositories[overrideName]; !declared {
			return UnknownRepositoryOverrideError{RepositoryName: overrideName}
		}
	}
	for overrideName := range overrides.SparsePaths {
		if _, declared := declaredRepositories[overrideName]; !declared {
			return UnknownRepositoryOverrideError{RepositoryName: overrideName}
		}
	}
	return nil
}

// selectRepositories returns the repository names admitted by the group request,
// or nil when every repository is admitted. An empty request falls back to the
// groups flagged as default; a manifest without default groups admits everything.
func selectRepositories(manifestData Manifest, requestedGroupNames []string) (map[string]struct{}, error) {
	effectiveGroupNames := requestedGroupNames
	if len(effectiveGroupNames) == 0 {
		effectiveGroupNames = defaultGroupNames(manifestData)
	}
	if len(effectiveGroupNames) == 0 {
		return nil, nil
	}
	return expandGroups(buildGroupIndex(manifestData), effectiveGroupNames)
}

func resolveTarget(repository RepositoryDescriptor, overrides Overrides) (ResolvedTarget, error) {
	reference := strings.TrimSpace(repository.Branch)
	pinned := false
	if fixedReference := strings.TrimSpace(repository.FixedReference); len(fixedReference) > 0 {
		reference = fixedReference
		pinned = true
	}
	if len(reference) == 0 {
		reference = defaultBranchNameConstant
	}
	if overrideReference, overridden := overrides.References[repository.Name]; overridden {
		reference = overrideReference
		pinned = false
	}

	sparsePaths := repository.SparsePaths
	if overrideSparsePaths, overridden := overrides.SparsePaths[repository.Name]; overridden {
		sparsePaths = overrideSparsePaths
	}

	localPath, localPathError := resolveLocalPath(repository)
	if localPathError != nil {
		return ResolvedTarget{}, localPathError
	}

	return ResolvedTarget{
		Name:        repository.Name,
		RemoteURL:   repository.RemoteURL,
		Reference:   reference,
		Pinned:      pinned,
		SparsePaths: sparsePaths,
		LocalPath:   localPath,
		Copies:      repository.Copies,
	}, nil
}

func resolveLocalPath(repository RepositoryDescriptor) (string, error) {
	destination := strings.TrimSpace(repository.Destination)
	if len(destination) == 0 {
		destination = repository.Name
	}

	cleanedDestination := path.Clean(destination)
	escapesWorkspace := path.IsAbs(cleanedDestination) ||
		cleanedDestination == workspaceRootDestinationConstant ||
		cleanedDestination == parentDirectoryReferenceConstant ||
		strings.HasPrefix(cleanedDestination, parentDirectoryPrefixConstant)
	if escapesWorkspace {
		return "", InvalidDestinationError{RepositoryName: repository.Name, Destination: destination}
	}
	return filepath.FromSlash(cleanedDestination), nil
}
