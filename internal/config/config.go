package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/MimeLyc/wordsub/pkg/icron"
	"github.com/MimeLyc/wordsub/pkg/log"
	"github.com/joho/godotenv"
	"golang.org/x/text/language"
)

// Config holds all application configuration.
// Values come from environment variables, optionally seeded from a .env file
// (ENV_FILE, default ".env"; a missing file is ignored).
//
// LLM:
// - LLM_PROVIDER: "llm" (built-in OpenAI-compatible client) or "openai" (default: llm)
// - LLM_API_KEY: API key, required for the openai provider
// - LLM_API_URL: endpoint (default: http://localhost:11434/v1, a local Ollama)
// - LLM_MODEL: model name (default: gemma3:1b-it-qat)
// - LLM_MAX_TOKENS (default: 64), LLM_TEMPERATURE (default: 0.2), LLM_TIMEOUT seconds (default: 30)
//
// Translation:
// - SOURCE_LANGUAGE (default: es), TARGET_LANGUAGE (default: en)
// - TRANSLATE_TIMEOUT (default: 30s), DISPATCH_WORKERS (default: 4)
// - PAUSE_ON_ACTIVATE (default: true), TRANSLATION_TTL (default: 3s)
//
// Media:
// - FFMPEG_BIN (default: ffmpeg), FFPROBE_BIN (default: ffprobe), TEMP_DIR (default: os temp dir)
// - MPV_SOCKET: mpv IPC socket; empty selects the simulated transport
// - MEDIA_DIRS: comma separated directories listed by the media library
//
// Vocabulary:
// - VOCAB_BACKEND: csv or sqlite (default: csv)
// - VOCAB_FILE (default: translations.csv), VOCAB_DB (default: wordsub.db)
// - VOCAB_RETRY_ERRORS (default: false), VOCAB_WARM_CACHE (default: false)
// - EXPORT_CRON: schedule for the workbook export, empty disables it
// - EXPORT_FILE (default: translations.xlsx)
//
// Runtime:
// - SYNC_INTERVAL (default: 100ms)
// - HTTP_ADDR (default: 127.0.0.1:8765), HTTP_ALLOWED_ORIGINS (comma separated)
// - LOG_LEVEL (default: info), LOG_FILE (optional)
type Config struct {
	LLM       LLMConfig       `json:"llm"`
	Translate TranslateConfig `json:"translate"`
	Media     MediaConfig     `json:"media"`
	Vocab     VocabConfig     `json:"vocab"`
	Sync      SyncConfig      `json:"sync"`
	HTTP      HTTPConfig      `json:"http"`
	Log       LogConfig       `json:"log"`
}

const (
	ProviderLLM    = "llm"
	ProviderOpenAI = "openai"

	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
)

// LLMConfig holds the translation backend connection.
type LLMConfig struct {
	Provider    string  `json:"provider"`
	APIKey      string  `json:"-"`
	APIURL      string  `json:"api_url"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	Timeout     int     `json:"timeout"`
}

type TranslateConfig struct {
	SourceLanguage  language.Tag  `json:"source_language"`
	TargetLanguage  language.Tag  `json:"target_language"`
	Timeout         time.Duration `json:"timeout"`
	Workers         int           `json:"workers"`
	PauseOnActivate bool          `json:"pause_on_activate"`
	DisplayTTL      time.Duration `json:"display_ttl"`
}

type MediaConfig struct {
	FFmpegBin  string   `json:"ffmpeg_bin"`
	FFprobeBin string   `json:"ffprobe_bin"`
	TempDir    string   `json:"temp_dir"`
	MPVSocket  string   `json:"mpv_socket"`
	Dirs       []string `json:"dirs"`
}

type VocabConfig struct {
	Backend     string `json:"backend"`
	CSVPath     string `json:"csv_path"`
	DBPath      string `json:"db_path"`
	RetryErrors bool   `json:"retry_errors"`
	WarmCache   bool   `json:"warm_cache"`
	ExportCron  string `json:"export_cron"`
	ExportPath  string `json:"export_path"`
}

type SyncConfig struct {
	Interval time.Duration `json:"interval"`
}

type HTTPConfig struct {
	Addr           string   `json:"addr"`
	AllowedOrigins []string `json:"allowed_origins"`
}

type LogConfig struct {
	Level string `json:"level"`
	File  string `json:"file"`
}

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a Config from the environment, applies opts and validates.
func NewFromEnv(opts ...Option) (*Config, error) {
	loadDotEnv(getEnvString("ENV_FILE", ".env"))

	config := &Config{
		LLM: LLMConfig{
			Provider:    strings.ToLower(getEnvString("LLM_PROVIDER", ProviderLLM)),
			APIKey:      getEnvString("LLM_API_KEY", ""),
			APIURL:      getEnvString("LLM_API_URL", "http://localhost:11434/v1"),
			Model:       getEnvString("LLM_MODEL", "gemma3:1b-it-qat"),
			MaxTokens:   getEnvInt("LLM_MAX_TOKENS", 64),
			Temperature: getEnvFloat("LLM_TEMPERATURE", 0.2),
			Timeout:     getEnvInt("LLM_TIMEOUT", 30),
		},
		Translate: TranslateConfig{
			SourceLanguage:  getEnvLanguage("SOURCE_LANGUAGE", language.Spanish),
			TargetLanguage:  getEnvLanguage("TARGET_LANGUAGE", language.English),
			Timeout:         getEnvDuration("TRANSLATE_TIMEOUT", 30*time.Second),
			Workers:         getEnvInt("DISPATCH_WORKERS", 4),
			PauseOnActivate: getEnvBool("PAUSE_ON_ACTIVATE", true),
			DisplayTTL:      getEnvDuration("TRANSLATION_TTL", 3*time.Second),
		},
		Media: MediaConfig{
			FFmpegBin:  getEnvString("FFMPEG_BIN", "ffmpeg"),
			FFprobeBin: getEnvString("FFPROBE_BIN", "ffprobe"),
			TempDir:    getEnvString("TEMP_DIR", os.TempDir()),
			MPVSocket:  getEnvString("MPV_SOCKET", ""),
			Dirs:       getEnvList("MEDIA_DIRS"),
		},
		Vocab: VocabConfig{
			Backend:     strings.ToLower(getEnvString("VOCAB_BACKEND", BackendCSV)),
			CSVPath:     getEnvString("VOCAB_FILE", "translations.csv"),
			DBPath:      getEnvString("VOCAB_DB", "wordsub.db"),
			RetryErrors: getEnvBool("VOCAB_RETRY_ERRORS", false),
			WarmCache:   getEnvBool("VOCAB_WARM_CACHE", false),
			ExportCron:  getEnvString("EXPORT_CRON", ""),
			ExportPath:  getEnvString("EXPORT_FILE", "translations.xlsx"),
		},
		Sync: SyncConfig{
			Interval: getEnvDuration("SYNC_INTERVAL", 100*time.Millisecond),
		},
		HTTP: HTTPConfig{
			Addr:           getEnvString("HTTP_ADDR", "127.0.0.1:8765"),
			AllowedOrigins: getEnvList("HTTP_ALLOWED_ORIGINS"),
		},
		Log: LogConfig{
			Level: getEnvString("LOG_LEVEL", "info"),
			File:  getEnvString("LOG_FILE", ""),
		},
	}

	for _, opt := range opts {
		opt(config)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	log.Debug("Config: provider=%s model=%s %s->%s store=%s(%s) sync=%v",
		config.LLM.Provider, config.LLM.Model,
		config.Translate.SourceLanguage, config.Translate.TargetLanguage,
		config.Vocab.Backend, config.StorePath(), config.Sync.Interval)
	return config, nil
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	switch c.LLM.Provider {
	case ProviderLLM:
	case ProviderOpenAI:
		if c.LLM.APIKey == "" {
			return fmt.Errorf("LLM_API_KEY is required for the %s provider", ProviderOpenAI)
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLM.Provider)
	}
	if strings.TrimSpace(c.LLM.APIURL) == "" {
		return fmt.Errorf("LLM_API_URL is required")
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return fmt.Errorf("LLM_MODEL is required")
	}
	switch c.Vocab.Backend {
	case BackendCSV, BackendSQLite:
	default:
		return fmt.Errorf("unknown VOCAB_BACKEND %q", c.Vocab.Backend)
	}
	if c.Sync.Interval <= 0 {
		return fmt.Errorf("SYNC_INTERVAL must be positive")
	}
	if c.Translate.Timeout <= 0 {
		return fmt.Errorf("TRANSLATE_TIMEOUT must be positive")
	}
	if c.Translate.Workers <= 0 {
		return fmt.Errorf("DISPATCH_WORKERS must be positive")
	}
	if c.Vocab.ExportCron != "" {
		if _, err := icron.Parse(c.Vocab.ExportCron); err != nil {
			return fmt.Errorf("EXPORT_CRON: %w", err)
		}
	}
	return nil
}

// StorePath is the file backing the configured vocabulary store.
func (c *Config) StorePath() string {
	if c.Vocab.Backend == BackendSQLite {
		return c.Vocab.DBPath
	}
	return c.Vocab.CSVPath
}

// WithTempDir overrides the extraction directory.
func WithTempDir(dir string) Option {
	return func(c *Config) {
		if dir != "" {
			c.Media.TempDir = filepath.Clean(dir)
		}
	}
}

func loadDotEnv(path string) {
	if path == "" {
		return
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	// existing environment wins over the file
	if err := godotenv.Load(path); err != nil {
		log.Warn("Failed to load %s: %v", path, err)
	}
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets a float value from environment variables with default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("250ms") or plain seconds ("30").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return defaultValue
}

func getEnvLanguage(key string, defaultValue language.Tag) language.Tag {
	if value := os.Getenv(key); value != "" {
		if tag, err := language.Parse(value); err == nil {
			return tag
		}
		log.Warn("Ignoring invalid %s=%q", key, value)
	}
	return defaultValue
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var ret []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ret = append(ret, part)
		}
	}
	return ret
}
