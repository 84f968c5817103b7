package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplicationRegistersWorkspaceCommands(t *testing.T) {
	application := NewApplication()

	registeredCommandNames := map[string]bool{}
	for _, registeredCommand := range application.rootCommand.Commands() {
		registeredCommandNames[registeredCommand.Name()] = true
	}

	for _, expectedCommandName := range []string{"init", "sync", "status", "snapshot", "restore"} {
		require.True(t, registeredCommandNames[expectedCommandName], expectedCommandName)
	}
}

func TestApplicationConfigurationDefaultsApplied(t *testing.T) {
	t.Setenv(configurationSearchPathEnvironmentNameConstant, t.TempDir())

	application := NewApplication()

	initializationError := application.initializeConfiguration(application.rootCommand)
	require.NoError(t, initializationError)

	require.Equal(t, "info", application.configuration.Common.LogLevel)
	require.Equal(t, "structured", application.configuration.Common.LogFormat)
	require.False(t, application.humanReadableLoggingEnabled())

	require.Equal(t, 4, application.configuration.Tools.Init.JobCount)
	require.Equal(t, 4, application.configuration.Tools.Sync.JobCount)
	require.Equal(t, 4, application.configuration.Tools.Status.JobCount)
	require.Equal(t, 4, application.configuration.Tools.Restore.JobCount)
	require.Equal(t, "manifest.yml", application.configuration.Tools.Snapshot.OutputPath)
}

func TestApplicationAppliesConfigurationFile(t *testing.T) {
	temporaryDirectory := t.TempDir()
	configurationContent := "common:\n" +
		"  log_level: debug\n" +
		"  log_format: console\n" +
		"tools:\n" +
		"  sync:\n" +
		"    jobs: 8\n" +
		"    groups:\n" +
		"      - platform\n" +
		"  snapshot:\n" +
		"    output: pinned.yml\n"
	configurationPath := filepath.Join(temporaryDirectory, "config.yaml")
	require.NoError(t, os.WriteFile(configurationPath, []byte(configurationContent), 0o600))

	t.Setenv(configurationSearchPathEnvironmentNameConstant, temporaryDirectory)

	application := NewApplication()

	initializationError := application.initializeConfiguration(application.rootCommand)
	require.NoError(t, initializationError)

	require.Equal(t, "debug", application.configuration.Common.LogLevel)
	require.Equal(t, "console", application.configuration.Common.LogFormat)
	require.True(t, application.humanReadableLoggingEnabled())
	require.Equal(t, 8, application.configuration.Tools.Sync.JobCount)
	require.Equal(t, []string{"platform"}, application.configuration.Tools.Sync.GroupNames)
	require.Equal(t, "pinned.yml", application.configuration.Tools.Snapshot.OutputPath)
	require.Equal(t, configurationPath, application.configurationMetadata.ConfigFileUsed)

	stampedConfigurationPath, configurationPathAvailable := application.commandContextAccessor.ConfigurationFilePath(application.rootCommand.Context())
	require.True(t, configurationPathAvailable)
	require.Equal(t, configurationPath, stampedConfigurationPath)
}

func TestApplicationLogFlagOverridesConfiguration(t *testing.T) {
	t.Setenv(configurationSearchPathEnvironmentNameConstant, t.TempDir())

	application := NewApplication()
	require.NoError(t, application.rootCommand.PersistentFlags().Set(logLevelFlagNameConstant, "warn"))
	require.NoError(t, application.rootCommand.PersistentFlags().Set(logFormatFlagNameConstant, "console"))

	initializationError := application.initializeConfiguration(application.rootCommand)
	require.NoError(t, initializationError)

	require.Equal(t, "warn", application.configuration.Common.LogLevel)
	require.Equal(t, "console", application.configuration.Common.LogFormat)
	require.True(t, application.humanReadableLoggingEnabled())
}

func TestApplicationRejectsUnsupportedLogLevel(t *testing.T) {
	t.Setenv(configurationSearchPathEnvironmentNameConstant, t.TempDir())

	application := NewApplication()
	require.NoError(t, application.rootCommand.PersistentFlags().Set(logLevelFlagNameConstant, "verbose"))

	initializationError := application.initializeConfiguration(application.rootCommand)
	require.Error(t, initializationError)
	require.Contains(t, initializationError.Error(), "unable to create logger")
}
