package snapshot

import "strings"

const (
	configurationRootKeyConstant   = "root"
	configurationOutputKeyConstant = "output"
	configurationGroupsKeyConstant = "groups"
	configurationJobsKeyConstant   = "jobs"
	defaultOutputFileNameConstant  = "manifest.yml"
	defaultJobCountConstant        = 4
)

// CommandConfiguration captures persisted configuration for the snapshot command.
type CommandConfiguration struct {
	WorkspaceRoot string `mapstructure:"root"`
	OutputPath    string `mapstructure:"output"`
}

// DefaultCommandConfiguration returns baseline configuration values for the snapshot command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{OutputPath: defaultOutputFileNameConstant}
}

// DefaultConfigurationValues produces Viper defaults for the snapshot command.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		rootKey + "." + configurationRootKeyConstant:   defaults.WorkspaceRoot,
		rootKey + "." + configurationOutputKeyConstant: defaults.OutputPath,
	}
}

// Sanitize trims configured values and restores the default output path when blank.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.WorkspaceRoot = strings.TrimSpace(configuration.WorkspaceRoot)
	sanitized.OutputPath = strings.TrimSpace(configuration.OutputPath)
	if len(sanitized.OutputPath) == 0 {
		sanitized.OutputPath = defaultOutputFileNameConstant
	}
	return sanitized
}

// RestoreCommandConfiguration captures persisted configuration for the restore command.
type RestoreCommandConfiguration struct {
	WorkspaceRoot string   `mapstructure:"root"`
	GroupNames    []string `mapstructure:"groups"`
	JobCount      int      `mapstructure:"jobs"`
}

// DefaultRestoreCommandConfiguration returns baseline configuration values for the restore command.
func DefaultRestoreCommandConfiguration() RestoreCommandConfiguration {
	return RestoreCommandConfiguration{JobCount: defaultJobCountConstant}
}

// DefaultRestoreConfigurationValues produces Viper defaults for the restore command.
func DefaultRestoreConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultRestoreCommandConfiguration()
	return map[string]any{
		rootKey + "." + configurationRootKeyConstant:   defaults.WorkspaceRoot,
		rootKey + "." + configurationGroupsKeyConstant: defaults.GroupNames,
		rootKey + "." + configurationJobsKeyConstant:   defaults.JobCount,
	}
}

// Sanitize trims configured values and removes empty entries.
func (configuration RestoreCommandConfiguration) Sanitize() RestoreCommandConfiguration {
	sanitized := configuration
	sanitized.WorkspaceRoot = strings.TrimSpace(configuration.WorkspaceRoot)
	sanitized.GroupNames = sanitizeGroupNames(configuration.GroupNames)
	if sanitized.JobCount <= 0 {
		sanitized.JobCount = defaultJobCountConstant
	}
	return sanitized
}

func sanitizeGroupNames(groupNames []string) []string {
	sanitized := make([]string, 0, len(groupNames))
	for _, groupName := range groupNames {
		trimmedGroupName := strings.TrimSpace(groupName)
		if len(trimmedGroupName) > 0 {
			sanitized = append(sanitized, trimmedGroupName)
		}
	}
	if len(sanitized) == 0 {
		return nil
	}
	return sanitized
}
