package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Bot        BotConfig        `mapstructure:"bot"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Moods      MoodConfig       `mapstructure:"moods"`
	Generation GenerationConfig `mapstructure:"generation"`
	Persona    PersonaConfig    `mapstructure:"persona"`
	Storage    StorageConfig    `mapstructure:"storage"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	I18n       I18nConfig       `mapstructure:"i18n"`
}

type BotConfig struct {
	Token         string        `mapstructure:"token"`
	UpdateTimeout int           `mapstructure:"update_timeout"`
	AllowedGroups []string      `mapstructure:"allowed_groups"`
	Webhook       WebhookConfig `mapstructure:"webhook"`
}

type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Port    int    `mapstructure:"port"`
	Secret  string `mapstructure:"secret"`
}

// EngineConfig is the per-run snapshot of reply-engine tunables. It is
// loaded once at startup and never mutated afterwards; changing a value
// requires a restart.
type EngineConfig struct {
	ReplyProbability   float64       `mapstructure:"reply_probability"`
	ChaosProbability   float64       `mapstructure:"chaos_probability"`
	ContextMsgLimit    int           `mapstructure:"context_msg_limit"`
	MaxPromptMsgs      int           `mapstructure:"max_prompt_msgs"`
	MaxResponseTokens  int           `mapstructure:"max_response_tokens"`
	MaxReplyLength     int           `mapstructure:"max_reply_length"`
	MinResponseDelay   time.Duration `mapstructure:"min_response_delay"`
	MaxResponseDelay   time.Duration `mapstructure:"max_response_delay"`
	TypingDelayPerWord time.Duration `mapstructure:"typing_delay_per_word"`
}

// HourRange is a half-open interval [Start, End) of wall-clock hours.
type HourRange struct {
	Start int `mapstructure:"start"`
	End   int `mapstructure:"end"`
}

// Contains reports whether the hour falls inside the range.
func (r HourRange) Contains(hour int) bool {
	return hour >= r.Start && hour < r.End
}

type MoodConfig struct {
	Morning   HourRange `mapstructure:"morning"`
	Afternoon HourRange `mapstructure:"afternoon"`
	Evening   HourRange `mapstructure:"evening"`
}

type GenerationConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type PersonaConfig struct {
	PersonalityFile    string `mapstructure:"personality_file"`
	ReferenceDir       string `mapstructure:"reference_dir"`
	ReferenceTextLimit int    `mapstructure:"reference_text_limit"`
}

type StorageConfig struct {
	Type   string       `mapstructure:"type"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Memory MemoryConfig `mapstructure:"memory"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MemoryConfig struct {
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	Burst             int  `mapstructure:"burst"`
}

type LoggingConfig struct {
	Level  string     `mapstructure:"level"`
	Format string     `mapstructure:"format"`
	Output string     `mapstructure:"output"`
	File   FileConfig `mapstructure:"file"`
}

type FileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

type MonitoringConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

type I18nConfig struct {
	DefaultLanguage string   `mapstructure:"default_language"`
	Languages       []string `mapstructure:"languages"`
	Directory       string   `mapstructure:"directory"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	viper.BindEnv("bot.token", "BOT_TOKEN")
	viper.BindEnv("bot.webhook.secret", "WEBHOOK_SECRET")
	viper.BindEnv("generation.base_url", "GENERATION_BASE_URL")
	viper.BindEnv("generation.api_key", "GENERATION_API_KEY")
	viper.BindEnv("storage.redis.addr", "REDIS_ADDR")
	viper.BindEnv("storage.redis.password", "REDIS_PASSWORD")
	viper.BindEnv("storage.redis.db", "REDIS_DB")

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Engine.ReplyProbability == 0 {
		cfg.Engine.ReplyProbability = 0.4
	}
	if cfg.Engine.ContextMsgLimit == 0 {
		cfg.Engine.ContextMsgLimit = 15
	}
	if cfg.Engine.MaxPromptMsgs == 0 {
		cfg.Engine.MaxPromptMsgs = 10
	}
	if cfg.Engine.MaxResponseTokens == 0 {
		cfg.Engine.MaxResponseTokens = 200
	}
	if cfg.Engine.MaxReplyLength == 0 {
		cfg.Engine.MaxReplyLength = 200
	}
	if cfg.Engine.MinResponseDelay == 0 {
		cfg.Engine.MinResponseDelay = time.Second
	}
	if cfg.Engine.MaxResponseDelay == 0 {
		cfg.Engine.MaxResponseDelay = 4 * time.Second
	}
	if cfg.Engine.TypingDelayPerWord == 0 {
		cfg.Engine.TypingDelayPerWord = 150 * time.Millisecond
	}
	if cfg.Moods.Morning == (HourRange{}) {
		cfg.Moods.Morning = HourRange{Start: 6, End: 12}
	}
	if cfg.Moods.Afternoon == (HourRange{}) {
		cfg.Moods.Afternoon = HourRange{Start: 12, End: 18}
	}
	if cfg.Moods.Evening == (HourRange{}) {
		cfg.Moods.Evening = HourRange{Start: 18, End: 24}
	}
	if cfg.Persona.ReferenceTextLimit == 0 {
		cfg.Persona.ReferenceTextLimit = 8000
	}
	if cfg.Generation.Timeout == 0 {
		cfg.Generation.Timeout = 60 * time.Second
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "memory"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
	if cfg.I18n.DefaultLanguage == "" {
		cfg.I18n.DefaultLanguage = "en"
	}
	if len(cfg.I18n.Languages) == 0 {
		cfg.I18n.Languages = []string{"en"}
	}
	if cfg.I18n.Directory == "" {
		cfg.I18n.Directory = "configs/i18n"
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Bot.Token == "" {
		return fmt.Errorf("bot token is required")
	}
	if cfg.Generation.BaseURL == "" {
		return fmt.Errorf("generation base_url is required")
	}
	if cfg.Engine.ReplyProbability < 0 || cfg.Engine.ReplyProbability > 1 {
		return fmt.Errorf("reply_probability must be in [0, 1], got %v", cfg.Engine.ReplyProbability)
	}
	if cfg.Engine.ChaosProbability < 0 || cfg.Engine.ChaosProbability > 1 {
		return fmt.Errorf("chaos_probability must be in [0, 1], got %v", cfg.Engine.ChaosProbability)
	}
	if cfg.Engine.MinResponseDelay > cfg.Engine.MaxResponseDelay {
		return fmt.Errorf("min_response_delay exceeds max_response_delay")
	}
	for _, r := range []struct {
		name  string
		hours HourRange
	}{
		{"morning", cfg.Moods.Morning},
		{"afternoon", cfg.Moods.Afternoon},
		{"evening", cfg.Moods.Evening},
	} {
		if r.hours.Start < 0 || r.hours.End > 24 || r.hours.Start > r.hours.End {
			return fmt.Errorf("invalid %s hour range [%d, %d)", r.name, r.hours.Start, r.hours.End)
		}
	}
	return nil
}
