package manifest

import (
	"fmt"
	"sort"
	"strings"
)

const (
	unknownGroupErrorTemplateConstant = "unknown group %q"
	groupCycleErrorTemplateConstant   = "group include cycle: %s"
	groupCycleSeparatorConstant       = " -> "
)

// UnknownGroupError indicates a group reference no manifest group satisfies.
type UnknownGroupError struct {
	GroupName string
}

// Error describes the missing group.
func (unknownError UnknownGroupError) Error() string {
	return fmt.Sprintf(unknownGroupErrorTemplateConstant, unknownError.GroupName)
}

// GroupCycleError indicates group includes form a cycle.
type GroupCycleError struct {
	GroupNames []string
}

// Error renders the cycle in include order.
func (cycleError GroupCycleError) Error() string {
	return fmt.Sprintf(groupCycleErrorTemplateConstant, strings.Join(cycleError.GroupNames, groupCycleSeparatorConstant))
}

// groupIndex merges declared group definitions with membership tags declared on
// repository entries, so a group can be assembled from either direction.
type groupIndex struct {
	directMembers map[string][]string
	includes      map[string][]string
}

func buildGroupIndex(manifestData Manifest) groupIndex {
	index := groupIndex{directMembers: map[string][]string{}, includes: map[string][]string{}}
	for groupName, definition := range manifestData.Groups {
		index.directMembers[groupName] = append(index.directMembers[groupName], definition.Repositories...)
		index.includes[groupName] = append(index.includes[groupName], definition.Includes...)
	}
	for _, repository := range manifestData.Repositories {
		for _, taggedGroupName := range repository.Groups {
			index.directMembers[taggedGroupName] = append(index.directMembers[taggedGroupName], repository.Name)
		}
	}
	return index
}

func (index groupIndex) contains(groupName string) bool {
	if _, declared := index.directMembers[groupName]; declared {
		return true
	}
	_, included := index.includes[groupName]
	return included
}

func defaultGroupNames(manifestData Manifest) []string {
	var defaults []string
	for groupName, definition := range manifestData.Groups {
		if definition.Default {
			defaults = append(defaults, groupName)
		}
	}
	sort.Strings(defaults)
	return defaults
}

type groupExpansionFrame struct {
	groupName        string
	nextIncludeIndex int
}

// expandGroups returns the union of repository names reachable from the
// requested groups. Includes are walked with an explicit stack so deeply nested
// definitions cannot exhaust the call stack, and a group appearing twice on the
// active expansion path is reported as a cycle.
func expandGroups(index groupIndex, requestedGroupNames []string) (map[string]struct{}, error) {
	selectedRepositories := map[string]struct{}{}
	expandedGroups := map[string]struct{}{}

	for _, requestedGroupName := range requestedGroupNames {
		if !index.contains(requestedGroupName) {
			return nil, UnknownGroupError{GroupName: requestedGroupName}
		}
		if _, alreadyExpanded := expandedGroups[requestedGroupName]; alreadyExpanded {
			continue
		}

		onExpansionPath := map[string]struct{}{requestedGroupName: {}}
		expansionStack := []groupExpansionFrame{{groupName: requestedGroupName}}
		collectDirectMembers(index, requestedGroupName, selectedRepositories)

		for len(expansionStack) > 0 {
			currentFrame := &expansionStack[len(expansionStack)-1]
			groupIncludes := index.includes[currentFrame.groupName]
			if currentFrame.nextIncludeIndex >= len(groupIncludes) {
				expandedGroups[currentFrame.groupName] = struct{}{}
				delete(onExpansionPath, currentFrame.groupName)
				expansionStack = expansionStack[:len(expansionStack)-1]
				continue
			}

			includedGroupName := groupIncludes[currentFrame.nextIncludeIndex]
			currentFrame.nextIncludeIndex++

			if _, cycling := onExpansionPath[includedGroupName]; cycling {
				return nil, GroupCycleError{GroupNames: cyclePath(expansionStack, includedGroupName)}
			}
			if !index.contains(includedGroupName) {
				return nil, UnknownGroupError{GroupName: includedGroupName}
			}
			if _, alreadyExpanded := expandedGroups[includedGroupName]; alreadyExpanded {
				continue
			}

			onExpansionPath[includedGroupName] = struct{}{}
			expansionStack = append(expansionStack, groupExpansionFrame{groupName: includedGroupName})
			collectDirectMembers(index, includedGroupName, selectedRepositories)
		}
	}

	return selectedRepositories, nil
}

func collectDirectMembers(index groupIndex, groupName string, selectedRepositories map[string]struct{}) {
	for _, repositoryName := range index.directMembers[groupName] {
		selectedRepositories[repositoryName] = struct{}{}
	}
}

func cyclePath(expansionStack []groupExpansionFrame, repeatedGroupName string) []string {
	startIndex := 0
	for frameIndex, frame := range expansionStack {
		if frame.groupName == repeatedGroupName {
			startIndex = frameIndex
			break
		}
	}
	cycle := make([]string, 0, len(expansionStack)-startIndex+1)
	for _, frame := range expansionStack[startIndex:] {
		cycle = append(cycle, frame.groupName)
	}
	return append(cycle, repeatedGroupName)
}
