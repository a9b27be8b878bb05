package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"leetbot/internal/testutil"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bot.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
bot:
  token: "abc"
database:
  dsn: "user:pass@tcp(127.0.0.1:3306)/leetbot"
redis:
  addr: "127.0.0.1:6379"
`)

	cfg, err := loadAppConfig(path)
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, cfg.Server.Addr, defaultAdminAddr)
	testutil.AssertEqual(t, cfg.Server.ReadTimeout, defaultReadTimeout)
	testutil.AssertEqual(t, cfg.API.BaseURL, defaultAPIBaseURL)
	testutil.AssertEqual(t, cfg.API.Timeout, defaultAPITimeout)
	testutil.AssertEqual(t, cfg.Refresh.Interval, defaultRefreshInterval)
	testutil.AssertEqual(t, cfg.Redis.PoolSize, 20)
}

func TestLoadAppConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
bot:
  token: "abc"
  guildID: "123456"
database:
  dsn: "user:pass@tcp(127.0.0.1:3306)/leetbot"
redis:
  addr: "127.0.0.1:6379"
api:
  baseURL: "http://localhost:3000"
  timeout: 5s
refresh:
  enabled: true
  interval: 24h
`)

	cfg, err := loadAppConfig(path)
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, cfg.Bot.GuildID, "123456")
	testutil.AssertEqual(t, cfg.API.BaseURL, "http://localhost:3000")
	testutil.AssertEqual(t, cfg.API.Timeout, 5*time.Second)
	testutil.AssertTrue(t, cfg.Refresh.Enabled, "refresh should be enabled")
	testutil.AssertEqual(t, cfg.Refresh.Interval, 24*time.Hour)
}

func TestLoadAppConfigMissingToken(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "")
	path := writeConfig(t, `
database:
  dsn: "user:pass@tcp(127.0.0.1:3306)/leetbot"
redis:
  addr: "127.0.0.1:6379"
`)

	_, err := loadAppConfig(path)
	testutil.AssertNotNil(t, err)
}

func TestLoadAppConfigTokenFromEnv(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "env-token")
	path := writeConfig(t, `
database:
  dsn: "user:pass@tcp(127.0.0.1:3306)/leetbot"
redis:
  addr: "127.0.0.1:6379"
`)

	cfg, err := loadAppConfig(path)
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, cfg.Bot.Token, "env-token")
}

func TestLoadAppConfigMissingDSN(t *testing.T) {
	path := writeConfig(t, `
bot:
  token: "abc"
redis:
  addr: "127.0.0.1:6379"
`)

	_, err := loadAppConfig(path)
	testutil.AssertNotNil(t, err)
}
