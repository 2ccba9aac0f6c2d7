package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Notion    NotionConfig    `yaml:"notion" mapstructure:"notion"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Evidence  EvidenceConfig  `yaml:"evidence" mapstructure:"evidence"`
	Whisper   WhisperConfig   `yaml:"whisper" mapstructure:"whisper"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// NotionConfig holds Notion API credentials, database IDs and property
// name overrides for renamed workspace columns.
type NotionConfig struct {
	Token      string `yaml:"token" mapstructure:"token"`
	DishesDB   string `yaml:"dishes_db" mapstructure:"dishes_db"`
	PlacesDB   string `yaml:"places_db" mapstructure:"places_db"`
	VideosDB   string `yaml:"videos_db" mapstructure:"videos_db"`
	MentionsDB string `yaml:"mentions_db" mapstructure:"mentions_db"`
	TextLimit  int    `yaml:"text_limit" mapstructure:"text_limit"`

	Properties map[string]string `yaml:"properties" mapstructure:"properties"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// EvidenceConfig tunes evidence document assembly.
type EvidenceConfig struct {
	MaxChars         int     `yaml:"max_chars" mapstructure:"max_chars"`
	DedupeThreshold  int     `yaml:"dedupe_threshold" mapstructure:"dedupe_threshold"`
	MinOCRConfidence float64 `yaml:"min_ocr_confidence" mapstructure:"min_ocr_confidence"`
}

// WhisperConfig configures local speech-to-text.
type WhisperConfig struct {
	CacheDir    string `yaml:"cache_dir" mapstructure:"cache_dir"`
	Model       string `yaml:"model" mapstructure:"model"`
	Language    string `yaml:"language" mapstructure:"language"`
	FFmpegPath  string `yaml:"ffmpeg_path" mapstructure:"ffmpeg_path"`
	WhisperPath string `yaml:"whisper_path" mapstructure:"whisper_path"`
}

// StoreConfig configures the local run ledger.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FOODSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Credential and id keys default to empty so environment
	// overrides bind without a config file.
	v.SetDefault("notion.token", "")
	v.SetDefault("notion.dishes_db", "")
	v.SetDefault("notion.places_db", "")
	v.SetDefault("notion.videos_db", "")
	v.SetDefault("notion.mentions_db", "")
	v.SetDefault("notion.text_limit", 1900)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("evidence.max_chars", 12000)
	v.SetDefault("evidence.dedupe_threshold", 92)
	v.SetDefault("evidence.min_ocr_confidence", 0.5)
	v.SetDefault("whisper.cache_dir", "stt_cache")
	v.SetDefault("whisper.model", "small")
	v.SetDefault("whisper.language", "vi")
	v.SetDefault("whisper.ffmpeg_path", "ffmpeg")
	v.SetDefault("whisper.whisper_path", "whisper")
	v.SetDefault("store.path", "foodsync.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
