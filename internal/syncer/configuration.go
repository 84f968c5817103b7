package syncer

import "strings"

const (
	configurationRootKeyConstant   = "root"
	configurationGroupsKeyConstant = "groups"
	configurationJobsKeyConstant   = "jobs"
	defaultJobCountConstant        = 4
)

// CommandConfiguration captures persisted configuration for the sync command.
type CommandConfiguration struct {
	WorkspaceRoot string   `mapstructure:"root"`
	GroupNames    []string `mapstructure:"groups"`
	JobCount      int      `mapstructure:"jobs"`
}

// DefaultCommandConfiguration returns baseline configuration values for the sync command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{JobCount: defaultJobCountConstant}
}

// DefaultConfigurationValues produces Viper defaults for the sync command.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		rootKey + "." + configurationRootKeyConstant:   defaults.WorkspaceRoot,
		rootKey + "." + configurationGroupsKeyConstant: defaults.GroupNames,
		rootKey + "." + configurationJobsKeyConstant:   defaults.JobCount,
	}
}

// Sanitize trims configured values and removes empty entries.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
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
