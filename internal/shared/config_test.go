package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./dlbot.db" {
			t.Errorf("expected database path ./dlbot.db, got %s", config.Database.Path)
		}
		if config.Downloads.AudioDir != "Audio" {
			t.Errorf("expected audio dir Audio, got %s", config.Downloads.AudioDir)
		}
		if config.Downloads.MaxWorkers != 2 {
			t.Errorf("expected 2 workers, got %d", config.Downloads.MaxWorkers)
		}
		if config.Checker.Interval.Duration != 6*time.Hour {
			t.Errorf("expected 6h checker interval, got %v", config.Checker.Interval.Duration)
		}
		if config.Spotify.Configured() {
			t.Error("expected spotify to be unconfigured by default")
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
		if config.Downloads.BaseDir != DefaultConfig().Downloads.BaseDir {
			t.Errorf("created config base dir doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		testConfig := `[telegram]
token = "123:abc"
owner_id = 42

[downloads]
base_dir = "/srv/media"
max_workers = 4

[checker]
interval = "30m"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Telegram.OwnerID != 42 {
			t.Errorf("expected owner 42, got %d", config.Telegram.OwnerID)
		}
		if config.Downloads.BaseDir != "/srv/media" {
			t.Errorf("expected base dir /srv/media, got %s", config.Downloads.BaseDir)
		}
		if config.Downloads.VideoDir != "Video" {
			t.Errorf("expected unset keys to keep defaults, got video dir %q", config.Downloads.VideoDir)
		}
		if config.Checker.Interval.Duration != 30*time.Minute {
			t.Errorf("expected 30m, got %v", config.Checker.Interval.Duration)
		}
	})

	t.Run("LoadConfig rejects bad duration", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[checker]\ninterval = \"soon\"\n"), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfig(configPath); err == nil {
			t.Error("expected error for invalid duration")
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
		t.Setenv("TELEGRAM_OWNER_ID", "7")
		t.Setenv("SPOTIFY_CLIENT_ID", "cid")
		t.Setenv("SPOTIFY_CLIENT_SECRET", "secret")
		t.Setenv("AUDIO_SUB_DIR_NAME", "Zvuk")

		config := DefaultConfig()
		if err := config.ApplyEnv(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if config.Telegram.Token != "env-token" {
			t.Errorf("expected env token, got %s", config.Telegram.Token)
		}
		if config.Telegram.OwnerID != 7 {
			t.Errorf("expected owner 7, got %d", config.Telegram.OwnerID)
		}
		if !config.Spotify.Configured() {
			t.Error("expected spotify to be configured from env")
		}
		if config.Downloads.AudioDir != "Zvuk" {
			t.Errorf("expected audio dir Zvuk, got %s", config.Downloads.AudioDir)
		}
	})

	t.Run("ApplyEnv rejects non numeric owner", func(t *testing.T) {
		t.Setenv("TELEGRAM_OWNER_ID", "owner")

		if err := DefaultConfig().ApplyEnv(); err == nil {
			t.Error("expected error for non numeric owner id")
		}
	})

	t.Run("LoadEnv", func(t *testing.T) {
		envPath := filepath.Join(t.TempDir(), ".env")
		if err := os.WriteFile(envPath, []byte("DLBOT_TEST_VALUE=from-file\n"), 0644); err != nil {
			t.Fatalf("failed to write env file: %v", err)
		}
		t.Cleanup(func() { os.Unsetenv("DLBOT_TEST_VALUE") })

		if err := LoadEnv(envPath, filepath.Join(t.TempDir(), "missing.env")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := os.Getenv("DLBOT_TEST_VALUE"); got != "from-file" {
			t.Errorf("expected from-file, got %q", got)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		config := DefaultConfig()
		if err := config.Validate(); err == nil {
			t.Error("expected missing token error")
		}

		config.Telegram.Token = "token"
		if err := config.Validate(); err != nil {
			t.Errorf("expected valid config, got %v", err)
		}

		config.Downloads.ArchiveFile = ""
		if err := config.Validate(); !errors.Is(err, ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}

		config.Downloads.MaxWorkers = 0
		if err := config.Validate(); err == nil {
			t.Error("expected error for zero workers")
		}
	})
}
