package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() RuntimeSettings {
	return RuntimeSettings{
		LLMAPIURL:      "https://example.test/v1",
		LLMAPIKey:      "ak-test",
		LLMModel:       "model-test",
		ExportCron:     "*/5 * * * *",
		TargetLanguage: "en",
	}
}

func TestRuntimeSettings_Validate(t *testing.T) {
	valid := validSettings()
	require.NoError(t, valid.Validate())

	noCron := valid
	noCron.ExportCron = ""
	require.NoError(t, noCron.Validate())

	noKey := valid
	noKey.LLMAPIKey = ""
	require.NoError(t, noKey.Validate())

	invalid := valid
	invalid.ExportCron = "bad cron"
	require.Error(t, invalid.Validate())

	invalidLang := valid
	invalidLang.TargetLanguage = ""
	require.Error(t, invalidLang.Validate())

	noModel := valid
	noModel.LLMModel = " "
	require.Error(t, noModel.Validate())
}

func TestRuntimeSettingsFile_RoundTrip(t *testing.T) {
	for _, name := range []string{"runtime.json", "runtime.toml", "runtime.yaml"} {
		t.Run(name, func(t *testing.T) {
			filePath := filepath.Join(t.TempDir(), "settings", name)
			input := validSettings()

			require.NoError(t, WriteRuntimeSettingsFile(filePath, input))

			got, err := LoadRuntimeSettingsFile(filePath)
			require.NoError(t, err)
			assert.Equal(t, input, got)

			info, err := os.Stat(filePath)
			require.NoError(t, err)
			assert.False(t, info.IsDir())
			_, err = os.Stat(filePath + ".tmp")
			assert.True(t, os.IsNotExist(err))
		})
	}
}

func TestRuntimeSettingsFile_TOMLContent(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, WriteRuntimeSettingsFile(filePath, validSettings()))

	data, err := os.ReadFile(filePath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "target_language = 'en'")
}

func TestRuntimeSettingsFile_YAMLContent(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "settings.yml")
	require.NoError(t, WriteRuntimeSettingsFile(filePath, validSettings()))

	data, err := os.ReadFile(filePath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "target_language: en")
}

func TestWithRuntimeSettings_OverridesConfig(t *testing.T) {
	t.Setenv("ENV_FILE", "")
	t.Setenv("LLM_API_KEY", "env-key")
	t.Setenv("LLM_API_URL", "https://env.example/v1")
	t.Setenv("LLM_MODEL", "env-model")
	t.Setenv("EXPORT_CRON", "0 1 * * *")

	override := RuntimeSettings{
		LLMAPIURL:      "https://file.example/v1",
		LLMAPIKey:      "file-key",
		LLMModel:       "file-model",
		ExportCron:     "*/30 * * * *",
		TargetLanguage: "fr",
	}

	cfg, err := NewFromEnv(WithRuntimeSettings(override))
	require.NoError(t, err)
	assert.Equal(t, override.LLMAPIURL, cfg.LLM.APIURL)
	assert.Equal(t, override.LLMAPIKey, cfg.LLM.APIKey)
	assert.Equal(t, override.LLMModel, cfg.LLM.Model)
	assert.Equal(t, override.ExportCron, cfg.Vocab.ExportCron)
	assert.Equal(t, "fr", cfg.Translate.TargetLanguage.String())
	assert.Equal(t, override, cfg.RuntimeSettings())
}

func TestRuntimeSettingsStore_UpdatePersistsFile(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "runtime-settings.json")

	store, err := NewRuntimeSettingsStore(filePath, validSettings())
	require.NoError(t, err)

	next := RuntimeSettings{
		LLMAPIURL:      "https://new.example/v1",
		LLMAPIKey:      "new-ak",
		LLMModel:       "new-model",
		TargetLanguage: "de",
	}
	got, err := store.UpdateRuntimeSettings(next)
	require.NoError(t, err)
	assert.Equal(t, next, got)

	current, err := store.GetRuntimeSettings()
	require.NoError(t, err)
	assert.Equal(t, next, current)

	loaded, err := LoadRuntimeSettingsFile(filePath)
	require.NoError(t, err)
	assert.Equal(t, next, loaded)

	bad := next
	bad.TargetLanguage = ""
	_, err = store.UpdateRuntimeSettings(bad)
	require.Error(t, err)
	current, _ = store.GetRuntimeSettings()
	assert.Equal(t, next, current)
}
