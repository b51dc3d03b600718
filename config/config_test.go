package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "")
	path := writeConfig(t, `
discord:
  token: file-token
database:
  driver: postgres
  dsn: postgres://reiatsu@localhost/reiatsu?sslmode=disable
spawner:
  tick: 30s
  default_speed: rapide
web:
  admin_ids: ["1", "2"]
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Discord.Token != "file-token" {
		t.Errorf("Token = %q", cfg.Discord.Token)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("Driver = %q", cfg.Database.Driver)
	}
	if cfg.Spawner.Tick != 30*time.Second {
		t.Errorf("Tick = %s, want 30s", cfg.Spawner.Tick)
	}
	if cfg.Spawner.DefaultSpeed != "rapide" {
		t.Errorf("DefaultSpeed = %q", cfg.Spawner.DefaultSpeed)
	}
	if cfg.Spawner.Emoji != "💠" || !cfg.Spawner.MainInstance {
		t.Errorf("defaults not applied: %+v", cfg.Spawner)
	}
	if len(cfg.Web.AdminIDs) != 2 {
		t.Errorf("AdminIDs = %v", cfg.Web.AdminIDs)
	}
	if Cfg != cfg {
		t.Error("Cfg was not set")
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeConfig(t, "discord:\n  token: file-token\n")
	t.Setenv("REIATSU_DISCORD_TOKEN", "env-token")
	t.Setenv("REIATSU_SPAWNER_MAIN_INSTANCE", "false")
	t.Setenv("REIATSU_SPAWNER_TICK", "2m")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Discord.Token != "env-token" {
		t.Errorf("Token = %q, want env-token", cfg.Discord.Token)
	}
	if cfg.Spawner.MainInstance {
		t.Error("MainInstance = true, want false from env")
	}
	if cfg.Spawner.Tick != 2*time.Minute {
		t.Errorf("Tick = %s, want 2m", cfg.Spawner.Tick)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		var c Config
		c.Discord.Token = "t"
		c.Database.Driver = "sqlite"
		c.Database.DSN = "./x.db"
		c.Spawner.Tick = time.Minute
		c.Spawner.Emoji = "💠"
		c.Spawner.DefaultSpeed = "normal"
		c.Spawner.PostsPerSecond = 1
		return &c
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing token", mutate: func(c *Config) { c.Discord.Token = "" }, wantErr: "discord.token"},
		{name: "bad driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: "database.driver"},
		{name: "bad tier", mutate: func(c *Config) { c.Spawner.DefaultSpeed = "eclair" }, wantErr: "default_speed"},
		{name: "tick too small", mutate: func(c *Config) { c.Spawner.Tick = 0 }, wantErr: "spawner.tick"},
		{name: "web without secret", mutate: func(c *Config) { c.Web.Enabled = true }, wantErr: "session_secret"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDatabaseConfigSkipsDiscord(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "")
	t.Setenv("REIATSU_DISCORD_TOKEN", "")
	path := writeConfig(t, "database:\n  dsn: ./data/reiatsu.db\n")

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("LoadConfig() without token error = nil")
	}
	cfg, err := LoadDatabaseConfig(path)
	if err != nil {
		t.Fatalf("LoadDatabaseConfig() error = %v", err)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.DSN != "./data/reiatsu.db" {
		t.Errorf("database = %+v", cfg.Database)
	}
}
