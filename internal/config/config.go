// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Bot       BotConfig       `mapstructure:"bot"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Whitelist WhitelistConfig `mapstructure:"whitelist"`
	Season    SeasonConfig    `mapstructure:"season"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Log       LogConfig       `mapstructure:"log"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token          string        `mapstructure:"token"`
	Username       string        `mapstructure:"username"`
	PollTimeout    time.Duration `mapstructure:"poll_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RatePerSec     int           `mapstructure:"rate_per_sec"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// AdminConfig holds the operator ids that count as admins in every chat.
type AdminConfig struct {
	IDs []int64 `mapstructure:"ids"`
}

// WhitelistConfig holds chat whitelist configuration.
type WhitelistConfig struct {
	Chats []int64 `mapstructure:"chats"`
}

// SeasonConfig holds slate and season configuration.
type SeasonConfig struct {
	QualityGames int `mapstructure:"quality_games"`
	// EndDate is a league date (YYYY-MM-DD) after which no new week starts. Empty means open-ended.
	EndDate  string        `mapstructure:"end_date"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// SchedulerConfig controls the periodic tick.
type SchedulerConfig struct {
	Spec        string        `mapstructure:"spec"`
	Workers     int           `mapstructure:"workers"`
	ChatTimeout time.Duration `mapstructure:"chat_timeout"`
	CallTimeout time.Duration `mapstructure:"call_timeout"`
}

// MetricsConfig holds the metrics endpoint configuration. Empty Addr disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// SeasonEnd parses the configured season end date.
// The boolean is false when no end date is set.
func (s *SeasonConfig) SeasonEnd() (time.Time, bool, error) {
	if s.EndDate == "" {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(time.DateOnly, s.EndDate)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid season.end_date %q: %w", s.EndDate, err)
	}
	return t, true, nil
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g., BOT_TOKEN, DATABASE_HOST, SCHEDULER_SPEC
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	// Config file is optional - env vars can provide all config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations the bot cannot run with.
func (c *Config) Validate() error {
	if c.Season.QualityGames < 0 {
		return fmt.Errorf("season.quality_games must not be negative")
	}
	if c.Scheduler.Workers < 1 {
		return fmt.Errorf("scheduler.workers must be at least 1")
	}
	if _, _, err := c.Season.SeasonEnd(); err != nil {
		return err
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.poll_timeout", "10s")
	v.SetDefault("bot.request_timeout", "30s")
	v.SetDefault("bot.rate_per_sec", 20)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "bettingbot")
	v.SetDefault("database.name", "bettingbot")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("season.quality_games", 10)
	v.SetDefault("season.end_date", "")
	v.SetDefault("season.cache_ttl", "24h")

	v.SetDefault("scheduler.spec", "@hourly")
	v.SetDefault("scheduler.workers", 4)
	v.SetDefault("scheduler.chat_timeout", "2m")
	v.SetDefault("scheduler.call_timeout", "15s")

	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("log.level", "info")
}

// bindEnv registers the keys without defaults. AutomaticEnv alone only
// resolves keys viper already knows about when unmarshalling.
func bindEnv(v *viper.Viper) error {
	for key, env := range map[string]string{
		"bot.token":         "BOT_TOKEN",
		"bot.username":      "BOT_USERNAME",
		"database.password": "DATABASE_PASSWORD",
		"admin.ids":         "ADMIN_IDS",
		"whitelist.chats":   "WHITELIST_CHATS",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}
	return nil
}

// IsAdmin checks if a user ID is in the operator admin list.
func (c *Config) IsAdmin(userID int64) bool {
	return slices.Contains(c.Admin.IDs, userID)
}

// IsChatAllowed checks if a chat ID is in the whitelist.
func (c *Config) IsChatAllowed(chatID int64) bool {
	// Empty whitelist means all chats are allowed
	if len(c.Whitelist.Chats) == 0 {
		return true
	}
	return slices.Contains(c.Whitelist.Chats, chatID)
}
