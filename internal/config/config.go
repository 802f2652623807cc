// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Bot       BotConfig       `mapstructure:"bot"`
	Store     StoreConfig     `mapstructure:"store"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Whitelist WhitelistConfig `mapstructure:"whitelist"`
	Economy   EconomyConfig   `mapstructure:"economy"`
	Games     GamesConfig     `mapstructure:"games"`
	Content   ContentConfig   `mapstructure:"content"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token string `mapstructure:"token"`
}

// StoreConfig selects and configures the ledger backend.
// Backend is one of "document", "postgres" or "redis".
type StoreConfig struct {
	Backend  string         `mapstructure:"backend"`
	Dir      string         `mapstructure:"dir"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig holds PostgreSQL connection configuration.
type PostgresConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	Name           string        `mapstructure:"name"`
	PoolSize       int           `mapstructure:"pool_size"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AdminConfig holds admin user configuration.
type AdminConfig struct {
	IDs []int64 `mapstructure:"ids"`
}

// WhitelistConfig holds chat whitelist configuration.
type WhitelistConfig struct {
	Chats []int64 `mapstructure:"chats"`
}

// EconomyConfig holds reward tuning.
type EconomyConfig struct {
	DailyMin    int64 `mapstructure:"daily_min"`
	DailyMax    int64 `mapstructure:"daily_max"`
	StreakBonus int64 `mapstructure:"streak_bonus"`
	WorkMin     int64 `mapstructure:"work_min"`
	WorkMax     int64 `mapstructure:"work_max"`
}

// GamesConfig holds game-specific configuration.
type GamesConfig struct {
	MoveTimeoutSeconds   int `mapstructure:"move_timeout_seconds"`
	AcceptTimeoutSeconds int `mapstructure:"accept_timeout_seconds"`
	SessionMaxAgeMinutes int `mapstructure:"session_max_age_minutes"`
}

// ContentConfig holds external content API configuration.
type ContentConfig struct {
	JokeURL        string        `mapstructure:"joke_url"`
	FactURL        string        `mapstructure:"fact_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// DSN returns the PostgreSQL connection string.
func (p *PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		p.User, p.Password, p.Host, p.Port, p.Name,
	)
}

// MoveTimeout returns the per-move timeout as a duration.
func (g *GamesConfig) MoveTimeout() time.Duration {
	return time.Duration(g.MoveTimeoutSeconds) * time.Second
}

// AcceptTimeout returns the challenge accept timeout as a duration.
func (g *GamesConfig) AcceptTimeout() time.Duration {
	return time.Duration(g.AcceptTimeoutSeconds) * time.Second
}

// SessionMaxAge returns the stale session cutoff as a duration.
func (g *GamesConfig) SessionMaxAge() time.Duration {
	return time.Duration(g.SessionMaxAgeMinutes) * time.Minute
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Configure viper
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Enable environment variable override
	// Environment variables use underscore separator and uppercase
	// e.g., BOT_TOKEN, STORE_BACKEND, STORE_POSTGRES_HOST
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional - env vars can provide all config)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK - we can use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Store defaults
	v.SetDefault("store.backend", "document")
	v.SetDefault("store.dir", "data")
	v.SetDefault("store.postgres.host", "localhost")
	v.SetDefault("store.postgres.port", 5432)
	v.SetDefault("store.postgres.user", "minigamebot")
	v.SetDefault("store.postgres.name", "minigamebot")
	v.SetDefault("store.postgres.pool_size", 20)
	v.SetDefault("store.postgres.connect_timeout", "10s")
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.db", 0)

	// Economy defaults
	v.SetDefault("economy.daily_min", 100)
	v.SetDefault("economy.daily_max", 200)
	v.SetDefault("economy.streak_bonus", 50)
	v.SetDefault("economy.work_min", 10)
	v.SetDefault("economy.work_max", 50)

	// Game defaults
	v.SetDefault("games.move_timeout_seconds", 60)
	v.SetDefault("games.accept_timeout_seconds", 60)
	v.SetDefault("games.session_max_age_minutes", 30)

	// Content defaults
	v.SetDefault("content.joke_url", "https://official-joke-api.appspot.com/random_joke")
	v.SetDefault("content.fact_url", "https://uselessfacts.jsph.pl/random.json?language=en")
	v.SetDefault("content.request_timeout", "10s")
}

// IsAdmin checks if a user ID is in the admin list.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Admin.IDs {
		if id == userID {
			return true
		}
	}
	return false
}

// IsChatAllowed checks if a chat ID is in the whitelist.
func (c *Config) IsChatAllowed(chatID int64) bool {
	// Empty whitelist means all chats are allowed
	if len(c.Whitelist.Chats) == 0 {
		return true
	}
	for _, id := range c.Whitelist.Chats {
		if id == chatID {
			return true
		}
	}
	return false
}
