package flags

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	// WorkspaceRootFlagName exposes the shared workspace root flag name.
	WorkspaceRootFlagName = "root"
	// WorkspaceRootFlagUsage describes the shared workspace root flag purpose.
	WorkspaceRootFlagUsage = "Workspace root directory"
	// GroupFlagName exposes the shared manifest group flag name.
	GroupFlagName = "group"
	// GroupFlagUsage describes the shared manifest group flag purpose.
	GroupFlagUsage = "Manifest groups to include (repeatable)"
	// JobsFlagName exposes the shared parallelism flag name.
	JobsFlagName = "jobs"
	// JobsFlagShorthand provides the shorthand for the parallelism flag.
	JobsFlagShorthand = "j"
	// JobsFlagUsage describes the shared parallelism flag purpose.
	JobsFlagUsage = "Number of repositories to process in parallel"
	// AssumeYesFlagName exposes the shared assume-yes flag name.
	AssumeYesFlagName = "yes"
	// AssumeYesFlagShorthand provides the shorthand for the assume-yes flag.
	AssumeYesFlagShorthand = "y"
	// AssumeYesFlagUsage describes the shared assume-yes flag purpose.
	AssumeYesFlagUsage = "Automatically confirm prompts"
	// ForceFlagName exposes the shared force flag name.
	ForceFlagName = "force"
	// ForceFlagUsage describes the shared force flag purpose.
	ForceFlagUsage = "Discard local changes when updating repositories"
)

// WorkspaceFlagDefinition captures configuration for a single workspace context flag.
type WorkspaceFlagDefinition struct {
	Name       string
	Usage      string
	Enabled    bool
	Persistent bool
}

// WorkspaceFlagDefinitions groups workspace context flag definitions.
type WorkspaceFlagDefinitions struct {
	Root   WorkspaceFlagDefinition
	Groups WorkspaceFlagDefinition
}

// WorkspaceFlagValues stores workspace context flag values.
type WorkspaceFlagValues struct {
	Root   string
	Groups []string
}

// BindWorkspaceFlags attaches workspace context flags to the provided command.
func BindWorkspaceFlags(command *cobra.Command, defaults WorkspaceFlagValues, definitions WorkspaceFlagDefinitions) *WorkspaceFlagValues {
	values := WorkspaceFlagValues{Root: defaults.Root, Groups: append([]string{}, defaults.Groups...)}
	if command == nil {
		return &values
	}

	if definitions.Root.Enabled {
		rootFlagName := definitions.Root.Name
		if len(rootFlagName) == 0 {
			rootFlagName = WorkspaceRootFlagName
		}
		rootFlagUsage := definitions.Root.Usage
		if len(rootFlagUsage) == 0 {
			rootFlagUsage = WorkspaceRootFlagUsage
		}

		targetSet := flagSetForDefinition(command, definitions.Root)
		if targetSet.Lookup(rootFlagName) == nil {
			targetSet.StringVar(&values.Root, rootFlagName, values.Root, rootFlagUsage)
		}
	}

	if definitions.Groups.Enabled {
		groupFlagName := definitions.Groups.Name
		if len(groupFlagName) == 0 {
			groupFlagName = GroupFlagName
		}
		groupFlagUsage := definitions.Groups.Usage
		if len(groupFlagUsage) == 0 {
			groupFlagUsage = GroupFlagUsage
		}

		targetSet := flagSetForDefinition(command, definitions.Groups)
		if targetSet.Lookup(groupFlagName) == nil {
			targetSet.StringSliceVar(&values.Groups, groupFlagName, values.Groups, groupFlagUsage)
		}
	}

	return &values
}

func flagSetForDefinition(command *cobra.Command, definition WorkspaceFlagDefinition) *pflag.FlagSet {
	if definition.Persistent {
		return command.PersistentFlags()
	}
	return command.Flags()
}

// BindJobsFlag attaches the shared parallelism flag to the provided command.
func BindJobsFlag(command *cobra.Command, defaultValue int) *int {
	value := defaultValue
	if command == nil {
		return &value
	}

	if command.Flags().Lookup(JobsFlagName) == nil {
		command.Flags().IntVarP(&value, JobsFlagName, JobsFlagShorthand, defaultValue, JobsFlagUsage)
	}

	return &value
}
