package manifest

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultManifestFileName is the manifest file looked up inside a manifest repository.
const DefaultManifestFileName = "manifest.yml"

const (
	manifestParseErrorTemplateConstant       = "unable to parse manifest: %v"
	missingRepositoryNameTemplateConstant    = "repository entry %d is missing a name"
	missingRemoteURLTemplateConstant         = "repository %q is missing a url"
	duplicateRepositoryErrorTemplateConstant = "duplicate repository name %q"
	unknownGroupMemberTemplateConstant       = "group %q references unknown repository %q"
)

// ManifestParseError indicates manifest content could not be deserialized.
type ManifestParseError struct {
	Cause error
}

// Error describes the parse failure.
func (parseError ManifestParseError) Error() string {
	return fmt.Sprintf(manifestParseErrorTemplateConstant, parseError.Cause)
}

// Unwrap exposes the underlying deserialization failure.
func (parseError ManifestParseError) Unwrap() error {
	return parseError.Cause
}

// MissingRepositoryNameError indicates a manifest entry without a name.
type MissingRepositoryNameError struct {
	Position int
}

// Error describes the nameless entry by its position.
func (nameError MissingRepositoryNameError) Error() string {
	return fmt.Sprintf(missingRepositoryNameTemplateConstant, nameError.Position)
}

// MissingRemoteURLError indicates a manifest entry without a remote URL.
type MissingRemoteURLError struct {
	RepositoryName string
}

// Error describes the entry lacking a remote URL.
func (urlError MissingRemoteURLError) Error() string {
	return fmt.Sprintf(missingRemoteURLTemplateConstant, urlError.RepositoryName)
}

// DuplicateRepositoryError indicates two manifest entries share a name.
type DuplicateRepositoryError struct {
	RepositoryName string
}

// Error describes the duplicated entry.
func (duplicateError DuplicateRepositoryError) Error() string {
	return fmt.Sprintf(duplicateRepositoryErrorTemplateConstant, duplicateError.RepositoryName)
}

// UnknownGroupMemberError indicates a group listing a repository the manifest
// does not declare.
type UnknownGroupMemberError struct {
	GroupName      string
	RepositoryName string
}

// Error describes the dangling group member.
func (memberError UnknownGroupMemberError) Error() string {
	return fmt.Sprintf(unknownGroupMemberTemplateConstant, memberError.GroupName, memberError.RepositoryName)
}

// Parse deserializes manifest content and validates its internal references.
func Parse(content []byte) (Manifest, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)

	var parsed Manifest
	if decodeError := decoder.Decode(&parsed); decodeError != nil {
		return Manifest{}, ManifestParseError{Cause: decodeError}
	}
	if validationError := validate(parsed); validationError != nil {
		return Manifest{}, validationError
	}
	return parsed, nil
}

func validate(manifestData Manifest) error {
	declaredRepositories := map[string]struct{}{}
	impliedGroups := map[string]struct{}{}
	for repositoryIndex, repository := range manifestData.Repositories {
		trimmedName := strings.TrimSpace(repository.Name)
		if len(trimmedName) == 0 {
			return MissingRepositoryNameError{Position: repositoryIndex}
		}
		if len(strings.TrimSpace(repository.RemoteURL)) == 0 {
			return MissingRemoteURLError{RepositoryName: trimmedName}
		}
		if _, duplicated := declaredRepositories[trimmedName]; duplicated {
			return DuplicateRepositoryError{RepositoryName: trimmedName}
		}
		declaredRepositories[trimmedName] = struct{}{}
		for _, taggedGroupName := range repository.Groups {
			impliedGroups[taggedGroupName] = struct{}{}
		}
	}

	groupNames := make([]string, 0, len(manifestData.Groups))
	for groupName := range manifestData.Groups {
		groupNames = append(groupNames, groupName)
	}
	sort.Strings(groupNames)

	for _, groupName := range groupNames {
		definition := manifestData.Groups[groupName]
		for _, memberName := range definition.Repositories {
			if _, declared := declaredRepositories[memberName]; !declared {
				return UnknownGroupMemberError{GroupName: groupName, RepositoryName: memberName}
			}
		}
		for _, includedGroupName := range definition.Includes {
			_, declaredGroup := manifestData.Groups[includedGroupName]
			_, impliedGroup := impliedGroups[includedGroupName]
			if !declaredGroup && !impliedGroup {
				return UnknownGroupError{GroupName: includedGroupName}
			}
		}
	}
	return nil
}
