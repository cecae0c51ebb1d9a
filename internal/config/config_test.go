package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

// unsetEnv clears key for the test and restores it afterwards.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestNewFromEnv_Defaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, ProviderLLM, cfg.LLM.Provider)
	assert.Equal(t, "http://localhost:11434/v1", cfg.LLM.APIURL)
	assert.Equal(t, language.Spanish, cfg.Translate.SourceLanguage)
	assert.Equal(t, language.English, cfg.Translate.TargetLanguage)
	assert.Equal(t, 100*time.Millisecond, cfg.Sync.Interval)
	assert.Equal(t, 30*time.Second, cfg.Translate.Timeout)
	assert.Equal(t, 3*time.Second, cfg.Translate.DisplayTTL)
	assert.True(t, cfg.Translate.PauseOnActivate)
	assert.Equal(t, BackendCSV, cfg.Vocab.Backend)
	assert.Equal(t, "translations.csv", cfg.StorePath())
	assert.Equal(t, "127.0.0.1:8765", cfg.HTTP.Addr)
	assert.Empty(t, cfg.Vocab.ExportCron)
}

func TestNewFromEnv_Overrides(t *testing.T) {
	t.Setenv("ENV_FILE", "")
	t.Setenv("TARGET_LANGUAGE", "fr")
	t.Setenv("SOURCE_LANGUAGE", "not a language!")
	t.Setenv("SYNC_INTERVAL", "250ms")
	t.Setenv("TRANSLATE_TIMEOUT", "5")
	t.Setenv("VOCAB_BACKEND", "SQLite")
	t.Setenv("VOCAB_DB", "/data/words.db")
	t.Setenv("PAUSE_ON_ACTIVATE", "false")
	t.Setenv("HTTP_ALLOWED_ORIGINS", "http://a.test, ,http://b.test")
	t.Setenv("EXPORT_CRON", "@daily")
	t.Setenv("MEDIA_DIRS", "/media/series,/media/films")

	cfg, err := NewFromEnv(WithTempDir("/scratch/"))
	require.NoError(t, err)

	assert.Equal(t, language.French, cfg.Translate.TargetLanguage)
	assert.Equal(t, language.Spanish, cfg.Translate.SourceLanguage)
	assert.Equal(t, 250*time.Millisecond, cfg.Sync.Interval)
	assert.Equal(t, 5*time.Second, cfg.Translate.Timeout)
	assert.Equal(t, BackendSQLite, cfg.Vocab.Backend)
	assert.Equal(t, "/data/words.db", cfg.StorePath())
	assert.False(t, cfg.Translate.PauseOnActivate)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, "/scratch", cfg.Media.TempDir)
	assert.Equal(t, []string{"/media/series", "/media/films"}, cfg.Media.Dirs)
}

func TestNewFromEnv_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "openai needs key", env: map[string]string{"LLM_PROVIDER": "openai", "LLM_API_KEY": ""}},
		{name: "unknown provider", env: map[string]string{"LLM_PROVIDER": "carrier-pigeon"}},
		{name: "unknown backend", env: map[string]string{"VOCAB_BACKEND": "xlsx"}},
		{name: "bad cron", env: map[string]string{"EXPORT_CRON": "every day"}},
		{name: "zero interval", env: map[string]string{"SYNC_INTERVAL": "0s"}},
		{name: "zero workers", env: map[string]string{"DISPATCH_WORKERS": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ENV_FILE", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := NewFromEnv()
			assert.Error(t, err)
		})
	}
}

func TestNewFromEnv_DotEnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("LLM_MODEL=from-file\nTARGET_LANGUAGE=de\n"), 0o600))

	t.Setenv("ENV_FILE", envFile)
	unsetEnv(t, "LLM_MODEL")
	t.Setenv("TARGET_LANGUAGE", "ar")

	cfg, err := NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.LLM.Model)
	// the process environment wins over the file
	assert.Equal(t, language.Arabic, cfg.Translate.TargetLanguage)
}
