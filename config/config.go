package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"reiatsu/reiatsu"
	"reiatsu/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config はアプリケーションの設定を保持します。
type Config struct {
	Discord struct {
		Token string `mapstructure:"token"`
	} `mapstructure:"discord"`
	Database struct {
		Driver string `mapstructure:"driver"`
		DSN    string `mapstructure:"dsn"`
	} `mapstructure:"database"`
	Spawner struct {
		Tick           time.Duration `mapstructure:"tick"`
		Emoji          string        `mapstructure:"emoji"`
		DefaultSpeed   string        `mapstructure:"default_speed"`
		MainInstance   bool          `mapstructure:"main_instance"`
		PostsPerSecond float64       `mapstructure:"posts_per_second"`
	} `mapstructure:"spawner"`
	Log struct {
		File  string `mapstructure:"file"`
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
	Web struct {
		Enabled       bool     `mapstructure:"enabled"`
		Addr          string   `mapstructure:"addr"`
		ClientID      string   `mapstructure:"client_id"`
		ClientSecret  string   `mapstructure:"client_secret"`
		RedirectURI   string   `mapstructure:"redirect_uri"`
		SessionSecret string   `mapstructure:"session_secret"`
		AdminIDs      []string `mapstructure:"admin_ids"`
	} `mapstructure:"web"`
}

var Cfg *Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("discord.token", "")
	v.SetDefault("database.driver", storage.DriverSQLite)
	v.SetDefault("database.dsn", "./reiatsu.db")
	v.SetDefault("spawner.tick", "60s")
	v.SetDefault("spawner.emoji", "💠")
	v.SetDefault("spawner.default_speed", reiatsu.DefaultSpeedKey)
	v.SetDefault("spawner.main_instance", true)
	v.SetDefault("spawner.posts_per_second", 2.0)
	v.SetDefault("log.file", "reiatsu.log")
	v.SetDefault("log.level", "info")
	v.SetDefault("web.enabled", false)
	v.SetDefault("web.addr", ":8080")
	v.SetDefault("web.client_id", "")
	v.SetDefault("web.client_secret", "")
	v.SetDefault("web.redirect_uri", "")
	v.SetDefault("web.session_secret", "")
	v.SetDefault("web.admin_ids", []string{})
}

// LoadConfig は .env、設定ファイル、REIATSU_ で始まる環境変数の順に設定を読み込みます。
// path が空の場合はカレントディレクトリの config.yaml を探します (無くても構いません)。
func LoadConfig(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	Cfg = cfg
	return cfg, nil
}

// LoadDatabaseConfig loads the same sources but only checks the database section.
// Used by CLI commands that never connect to Discord.
func LoadDatabaseConfig(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.validateDatabase(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load(path string) (*Config, error) {
	_ = godotenv.Load() // .env が無い場合は無視

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("REIATSU")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// 既存のデプロイとの互換性のため DISCORD_BOT_TOKEN も受け付ける
	_ = v.BindEnv("discord.token", "REIATSU_DISCORD_TOKEN", "DISCORD_BOT_TOKEN")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Validate ensures the configuration can run the bot.
func (c *Config) Validate() error {
	if c.Discord.Token == "" || c.Discord.Token == "YOUR_DISCORD_BOT_TOKEN_HERE" {
		return errors.New("discord.token is required (REIATSU_DISCORD_TOKEN)")
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if !reiatsu.IsSpeed(c.Spawner.DefaultSpeed) {
		return fmt.Errorf("spawner.default_speed: unknown tier %q", c.Spawner.DefaultSpeed)
	}
	if c.Spawner.Tick < time.Second {
		return fmt.Errorf("spawner.tick must be at least 1s, got %s", c.Spawner.Tick)
	}
	if c.Spawner.Emoji == "" {
		return errors.New("spawner.emoji is required")
	}
	if c.Spawner.PostsPerSecond <= 0 {
		return errors.New("spawner.posts_per_second must be positive")
	}
	if c.Web.Enabled && c.Web.SessionSecret == "" {
		return errors.New("web.session_secret is required when web.enabled is true")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Driver != storage.DriverSQLite && c.Database.Driver != storage.DriverPostgres {
		return fmt.Errorf("database.driver must be %q or %q, got %q", storage.DriverSQLite, storage.DriverPostgres, c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	return nil
}
