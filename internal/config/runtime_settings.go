package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/MimeLyc/wordsub/pkg/icron"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
)

const DefaultRuntimeSettingsFile = "wordsub-settings.json"

// RuntimeSettings are the values a user may change while the engine runs.
// The file extension picks the format: .toml, .yaml or .yml, JSON otherwise.
type RuntimeSettings struct {
	LLMAPIURL      string `json:"llm_api_url" toml:"llm_api_url" yaml:"llm_api_url"`
	LLMAPIKey      string `json:"llm_api_key" toml:"llm_api_key" yaml:"llm_api_key"`
	LLMModel       string `json:"llm_model" toml:"llm_model" yaml:"llm_model"`
	ExportCron     string `json:"export_cron" toml:"export_cron" yaml:"export_cron"`
	TargetLanguage string `json:"target_language" toml:"target_language" yaml:"target_language"`
}

func RuntimeSettingsFilePath() string {
	return getEnvString("SETTINGS_FILE", DefaultRuntimeSettingsFile)
}

func (s RuntimeSettings) Validate() error {
	if strings.TrimSpace(s.LLMAPIURL) == "" {
		return fmt.Errorf("llm_api_url is required")
	}
	if strings.TrimSpace(s.LLMModel) == "" {
		return fmt.Errorf("llm_model is required")
	}
	if strings.TrimSpace(s.ExportCron) != "" {
		if _, err := icron.Parse(s.ExportCron); err != nil {
			return fmt.Errorf("invalid export_cron: %w", err)
		}
	}
	if strings.TrimSpace(s.TargetLanguage) == "" {
		return fmt.Errorf("target_language is required")
	}
	if _, err := language.Parse(s.TargetLanguage); err != nil {
		return fmt.Errorf("invalid target_language: %w", err)
	}
	return nil
}

func (c *Config) RuntimeSettings() RuntimeSettings {
	return RuntimeSettings{
		LLMAPIURL:      c.LLM.APIURL,
		LLMAPIKey:      c.LLM.APIKey,
		LLMModel:       c.LLM.Model,
		ExportCron:     c.Vocab.ExportCron,
		TargetLanguage: c.Translate.TargetLanguage.String(),
	}
}

// WithRuntimeSettings overrides environment values with non-empty settings.
func WithRuntimeSettings(settings RuntimeSettings) Option {
	return func(c *Config) {
		if strings.TrimSpace(settings.LLMAPIURL) != "" {
			c.LLM.APIURL = settings.LLMAPIURL
		}
		if strings.TrimSpace(settings.LLMAPIKey) != "" {
			c.LLM.APIKey = settings.LLMAPIKey
		}
		if strings.TrimSpace(settings.LLMModel) != "" {
			c.LLM.Model = settings.LLMModel
		}
		if strings.TrimSpace(settings.ExportCron) != "" {
			c.Vocab.ExportCron = settings.ExportCron
		}
		if tag, err := language.Parse(settings.TargetLanguage); err == nil {
			c.Translate.TargetLanguage = tag
		}
	}
}

type settingsFormat int

const (
	formatJSON settingsFormat = iota
	formatTOML
	formatYAML
)

func formatOf(path string) settingsFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return formatTOML
	case ".yaml", ".yml":
		return formatYAML
	default:
		return formatJSON
	}
}

func unmarshalSettings(path string, data []byte, settings *RuntimeSettings) error {
	switch formatOf(path) {
	case formatTOML:
		return toml.Unmarshal(data, settings)
	case formatYAML:
		return yaml.Unmarshal(data, settings)
	default:
		return json.Unmarshal(data, settings)
	}
}

func marshalSettings(path string, settings RuntimeSettings) ([]byte, error) {
	switch formatOf(path) {
	case formatTOML:
		return toml.Marshal(settings)
	case formatYAML:
		return yaml.Marshal(settings)
	default:
		content, err := json.MarshalIndent(settings, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(content, '\n'), nil
	}
}

func LoadRuntimeSettingsFile(path string) (RuntimeSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuntimeSettings{}, err
	}
	var settings RuntimeSettings
	if err := unmarshalSettings(path, data, &settings); err != nil {
		return RuntimeSettings{}, fmt.Errorf("invalid settings file: %w", err)
	}
	return settings, nil
}

func WriteRuntimeSettingsFile(path string, settings RuntimeSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	content, err := marshalSettings(path, settings)
	if err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, content, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

type RuntimeSettingsStore struct {
	path string

	mu      sync.RWMutex
	current RuntimeSettings
}

func NewRuntimeSettingsStore(path string, initial RuntimeSettings) (*RuntimeSettingsStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("settings file path is required")
	}
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	return &RuntimeSettingsStore{
		path:    path,
		current: initial,
	}, nil
}

func (s *RuntimeSettingsStore) GetRuntimeSettings() (RuntimeSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, nil
}

func (s *RuntimeSettingsStore) UpdateRuntimeSettings(next RuntimeSettings) (RuntimeSettings, error) {
	if err := next.Validate(); err != nil {
		return RuntimeSettings{}, err
	}
	if err := WriteRuntimeSettingsFile(s.path, next); err != nil {
		return RuntimeSettings{}, err
	}

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
	return next, nil
}
