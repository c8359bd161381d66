package cmd

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigConstants(t *testing.T) {
	assert.Equal(t, "mutafix", configBaseName)
	assert.Equal(t, "mutafix.yaml", configFileName)
	assert.Equal(t, ".", configFolderPath)
	assert.Equal(t, "MUTAFIX", envPrefix)
	assert.Equal(t, ".mutafix-reports", defaultReportsDir)
}

func TestConfigDefaults(t *testing.T) {
	assert.Equal(t, []string{"ALL"}, viper.GetStringSlice(mutatorsFlagName))
	assert.Equal(t, "strict", viper.GetString(suspCheckerKey))
	assert.Equal(t, "ochiai", viper.GetString(suspFormulaKey))
	assert.Equal(t, defaultRunParallel, viper.GetInt(runParallelConfigKey))
	assert.Positive(t, viper.GetInt(cacheSizeKey))
	assert.Equal(t, currentConfigVersion, viper.GetInt(configVersionKey))
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("MUTAFIX_SUSP_CHECKER", "weak")
	t.Setenv("MUTAFIX_RUN_PARALLEL", "9")

	assert.Equal(t, "weak", viper.GetString(suspCheckerKey))
	assert.Equal(t, 9, viper.GetInt(runParallelConfigKey))
}

func TestParseSlogLevel(t *testing.T) {
	tests := []struct {
		value string
		want  slog.Level
	}{
		{"", slog.LevelWarn},
		{"debug", slog.LevelDebug},
		{" INFO ", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"-4", slog.LevelDebug},
		{"loud", slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, parseSlogLevel(tt.value, slog.LevelWarn))
		})
	}
}

func TestConfigureLogger(t *testing.T) {
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	configureLogger(filepath.Join(t.TempDir(), "mutafix.log"), true)

	require.NotNil(t, globalLogger)
	assert.Same(t, globalLogger, slog.Default())
	assert.True(t, globalLogger.Enabled(t.Context(), slog.LevelDebug))
}
