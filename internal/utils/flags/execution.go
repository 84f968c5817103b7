// Package flags provides helpers for binding standardized execution flags to Cobra commands.
package flags

import "github.com/spf13/cobra"

// ExecutionDefaults describes default flag values shared across commands.
type ExecutionDefaults struct {
	AssumeYes bool
	Force     bool
}

// ExecutionFlagDefinition captures a single flag's configuration.
type ExecutionFlagDefinition struct {
	Name      string
	Usage     string
	Shorthand string
	Enabled   bool
}

// ExecutionFlagDefinitions groups execution flag definitions.
type ExecutionFlagDefinitions struct {
	AssumeYes ExecutionFlagDefinition
	Force     ExecutionFlagDefinition
}

// ExecutionFlagValues stores parsed execution flag values.
type ExecutionFlagValues struct {
	AssumeYes bool
	Force     bool
}

// BindExecutionFlags attaches standardized execution flags to the provided command.
func BindExecutionFlags(command *cobra.Command, defaults ExecutionDefaults, definitions ExecutionFlagDefinitions) *ExecutionFlagValues {
	values := ExecutionFlagValues{AssumeYes: defaults.AssumeYes, Force: defaults.Force}
	if command == nil {
		return &values
	}

	bindToggleFlag(command, &values.AssumeYes, definitions.AssumeYes, defaults.AssumeYes)
	bindToggleFlag(command, &values.Force, definitions.Force, defaults.Force)

	return &values
}

func bindToggleFlag(command *cobra.Command, target *bool, definition ExecutionFlagDefinition, defaultValue bool) {
	if !definition.Enabled {
		return
	}
	if len(definition.Name) == 0 {
		return
	}

	AddToggleFlag(command.Flags(), target, definition.Name, definition.Shorthand, defaultValue, definition.Usage)
}
