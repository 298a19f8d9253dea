package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Telegram  TelegramConfig  `toml:"telegram"`
	Spotify   SpotifyConfig   `toml:"spotify"`
	Downloads DownloadsConfig `toml:"downloads"`
	Checker   CheckerConfig   `toml:"checker"`
	Database  DatabaseConfig  `toml:"database"`
	Logging   LoggingConfig   `toml:"logging"`
}

// TelegramConfig contains the bot token and the identities allowed to drive the bot.
type TelegramConfig struct {
	Token   string `toml:"token"`
	OwnerID int64  `toml:"owner_id"`
	ChatID  int64  `toml:"chat_id"`
}

// SpotifyConfig contains Spotify API client credentials.
type SpotifyConfig struct {
	ClientID     string  `toml:"client_id"`
	ClientSecret string  `toml:"client_secret"`
	RateLimit    float64 `toml:"rate_limit"`
}

// Configured reports whether both client credentials are present.
func (s SpotifyConfig) Configured() bool {
	return s.ClientID != "" && s.ClientSecret != ""
}

// DownloadsConfig controls where and how media is written.
type DownloadsConfig struct {
	BaseDir       string `toml:"base_dir"`
	AudioDir      string `toml:"audio_dir"`
	VideoDir      string `toml:"video_dir"`
	ArchiveFile   string `toml:"archive_file"`
	PlaylistsFile string `toml:"playlists_file"`
	MaxWorkers    int    `toml:"max_workers"`
	AudioFormat   string `toml:"audio_format"`
	AudioQuality  string `toml:"audio_quality"`
	VideoFormat   string `toml:"video_format"`
	MergeFormat   string `toml:"merge_format"`
	AutoInstall   bool   `toml:"auto_install"`
}

// CheckerConfig controls the watched playlist loop.
type CheckerConfig struct {
	Enabled  bool     `toml:"enabled"`
	Interval Duration `toml:"interval"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LoggingConfig contains log level and the directory holding latest.log.
type LoggingConfig struct {
	Level string `toml:"level"`
	Dir   string `toml:"dir"`
}

// Duration is a [time.Duration] that decodes from strings like "6h".
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadEnv loads KEY=VALUE pairs from the given dotenv files into the process environment.
// Missing files are ignored; variables already set in the environment win.
func LoadEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overlays secrets and paths from environment variables onto the config.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if v := os.Getenv("TELEGRAM_OWNER_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: TELEGRAM_OWNER_ID is not a number", ErrInvalidConfig)
		}
		c.Telegram.OwnerID = id
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: TELEGRAM_CHAT_ID is not a number", ErrInvalidConfig)
		}
		c.Telegram.ChatID = id
	}
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("BASE_DOWNLOAD_DIR"); v != "" {
		c.Downloads.BaseDir = v
	}
	if v := os.Getenv("AUDIO_SUB_DIR_NAME"); v != "" {
		c.Downloads.AudioDir = v
	}
	if v := os.Getenv("VIDEO_SUB_DIR_NAME"); v != "" {
		c.Downloads.VideoDir = v
	}
	return nil
}

// Validate checks the settings the bot cannot start without.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("%w: telegram token (TELEGRAM_BOT_TOKEN)", ErrMissingCredentials)
	}
	if c.Downloads.BaseDir == "" {
		return fmt.Errorf("%w: downloads.base_dir", ErrInvalidConfig)
	}
	if c.Downloads.MaxWorkers <= 0 {
		return fmt.Errorf("%w: downloads.max_workers must be positive", ErrInvalidConfig)
	}
	if c.Downloads.ArchiveFile == "" || c.Downloads.PlaylistsFile == "" {
		return fmt.Errorf("%w: downloads.archive_file and downloads.playlists_file", ErrMissingConfig)
	}
	return nil
}
