package shared

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./promptlist.db" {
			t.Errorf("expected database path ./promptlist.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Credentials.Spotify.APIBaseURL != "https://api.spotify.com/v1" {
			t.Errorf("unexpected spotify base URL %s", config.Credentials.Spotify.APIBaseURL)
		}

		if config.Cache.GenreSeedTTL() != 24*time.Hour {
			t.Errorf("expected 24h genre seed TTL, got %v", config.Cache.GenreSeedTTL())
		}

		if config.Progress.PollInterval() != 2*time.Second {
			t.Errorf("expected 2s poll interval, got %v", config.Progress.PollInterval())
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		testConfig := `[database]
path = "/custom/path.db"

[server]
host = "0.0.0.0"
port = 8080

[credentials.spotify]
client_id = "test_client_id"
access_token = "tok"

[llm]
model = "test-model"
timeout_seconds = 5
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}
		if config.Server.Addr() != "0.0.0.0:8080" {
			t.Errorf("expected addr 0.0.0.0:8080, got %s", config.Server.Addr())
		}
		if config.Credentials.Spotify.AccessToken != "tok" {
			t.Errorf("expected access token tok, got %s", config.Credentials.Spotify.AccessToken)
		}
		if config.LLM.Timeout() != 5*time.Second {
			t.Errorf("expected 5s timeout, got %v", config.LLM.Timeout())
		}
	})

	t.Run("LoadConfig invalid", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[database\npath ="), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		if _, err := LoadConfig(configPath); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("SaveConfig round trip", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		config := DefaultConfig()
		config.Credentials.Spotify.RefreshToken = "refresh"

		if err := SaveConfig(configPath, config); err != nil {
			t.Fatalf("failed to save config: %v", err)
		}
		loaded, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load saved config: %v", err)
		}
		if loaded.Credentials.Spotify.RefreshToken != "refresh" {
			t.Errorf("refresh token not persisted, got %q", loaded.Credentials.Spotify.RefreshToken)
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		t.Setenv("SPOTIFY_ACCESS_TOKEN", "env-token")
		t.Setenv("OPENAI_API_KEY", "sk-test")
		t.Setenv("PROMPTLIST_PORT", "9999")

		config := DefaultConfig()
		config.ApplyEnv()

		if config.Credentials.Spotify.AccessToken != "env-token" {
			t.Errorf("expected env token, got %s", config.Credentials.Spotify.AccessToken)
		}
		if config.LLM.APIKey != "sk-test" {
			t.Errorf("expected env api key, got %s", config.LLM.APIKey)
		}
		if config.Server.Port != 9999 {
			t.Errorf("expected port 9999, got %d", config.Server.Port)
		}
	})

	t.Run("LoadEnv", func(t *testing.T) {
		dir := t.TempDir()
		if err := LoadEnv(filepath.Join(dir, "missing.env")); err != nil {
			t.Errorf("missing dotenv file should be ignored, got %v", err)
		}

		envPath := filepath.Join(dir, ".env")
		if err := os.WriteFile(envPath, []byte("PROMPTLIST_TEST_VALUE=from-dotenv\n"), 0644); err != nil {
			t.Fatalf("failed to write dotenv: %v", err)
		}
		t.Cleanup(func() { os.Unsetenv("PROMPTLIST_TEST_VALUE") })

		if err := LoadEnv(envPath); err != nil {
			t.Fatalf("failed to load dotenv: %v", err)
		}
		if got := os.Getenv("PROMPTLIST_TEST_VALUE"); got != "from-dotenv" {
			t.Errorf("expected from-dotenv, got %q", got)
		}
	})
}
